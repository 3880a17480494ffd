package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"quote-assistant-backend/internal/models"
	"quote-assistant-backend/pkg/logging"
)

// redirectTransport sends every request to target, keeping path and query.
type redirectTransport struct {
	target *url.URL
}

func (rt redirectTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(r.Context())
	r.URL.Scheme = rt.target.Scheme
	r.URL.Host = rt.target.Host
	r.Host = rt.target.Host
	return http.DefaultTransport.RoundTrip(r)
}

func newTestGemini(t *testing.T, handler http.HandlerFunc) *GeminiService {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	target, err := url.Parse(server.URL)
	require.NoError(t, err)

	svc, err := NewGeminiService(context.Background(), "test-key", "gemini-2.5-flash", 1, logging.Discard(), nil,
		option.WithHTTPClient(&http.Client{Transport: redirectTransport{target: target}}),
	)
	require.NoError(t, err)
	t.Cleanup(svc.Close)
	return svc
}

func writeGeminiJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func textConversation() Payload {
	return Payload{
		System: "You quote handyman jobs.",
		Messages: []Message{
			{Role: models.RoleUser, Parts: []Part{TextPart{Text: "need to hang a TV"}}},
			{Role: models.RoleAssistant, Parts: []Part{TextPart{Text: "What size?"}}},
			{Role: models.RoleUser, Parts: []Part{TextPart{Text: "65 inch"}}},
		},
	}
}

func TestGenerate_SendsConversationAndReturnsText(t *testing.T) {
	var (
		path string
		body struct {
			SystemInstruction struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"systemInstruction"`
			Contents []struct {
				Role  string `json:"role"`
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"contents"`
		}
	)
	svc := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		writeGeminiJSON(w, http.StatusOK, map[string]any{
			"candidates": []map[string]any{{
				"content": map[string]any{
					"role":  "model",
					"parts": []map[string]any{{"text": "Mounting a 65 inch TV "}, {"text": "runs about $150."}},
				},
				"finishReason": "STOP",
			}},
		})
	})

	reply, err := svc.Generate(context.Background(), textConversation())
	require.NoError(t, err)
	assert.Equal(t, "Mounting a 65 inch TV runs about $150.", reply)

	assert.True(t, strings.HasSuffix(path, "models/gemini-2.5-flash:generateContent"), "unexpected path %q", path)
	require.Len(t, body.SystemInstruction.Parts, 1)
	assert.Equal(t, "You quote handyman jobs.", body.SystemInstruction.Parts[0].Text)
	require.Len(t, body.Contents, 3)
	assert.Equal(t, "user", body.Contents[0].Role)
	assert.Equal(t, "model", body.Contents[1].Role)
	assert.Equal(t, "user", body.Contents[2].Role)
	assert.Equal(t, "65 inch", body.Contents[2].Parts[0].Text)
}

func TestGenerate_APIFailureIsProviderError(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{"bad request", http.StatusBadRequest},
		{"internal error", http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			calls := 0
			svc := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
				calls++
				writeGeminiJSON(w, tc.status, map[string]any{
					"error": map[string]any{"code": tc.status, "message": "API key not valid"},
				})
			})

			_, err := svc.Generate(context.Background(), textConversation())

			var pErr *ProviderError
			require.True(t, errors.As(err, &pErr), "expected ProviderError, got %v", err)
			assert.Equal(t, "Gemini API error", pErr.Op)
			assert.Contains(t, err.Error(), "API key not valid")
			assert.Equal(t, 1, calls)
		})
	}
}

func TestGenerate_NoCandidatesIsProviderError(t *testing.T) {
	svc := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		writeGeminiJSON(w, http.StatusOK, map[string]any{"candidates": []any{}})
	})

	_, err := svc.Generate(context.Background(), textConversation())

	var pErr *ProviderError
	require.True(t, errors.As(err, &pErr), "expected ProviderError, got %v", err)
	assert.Equal(t, "Gemini API error", pErr.Op)
	assert.ErrorContains(t, err, "no candidates returned")
}
