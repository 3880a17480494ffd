package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quote-assistant-backend/internal/handlers"
	"quote-assistant-backend/internal/metrics"
	"quote-assistant-backend/internal/middleware"
	"quote-assistant-backend/internal/models"
	"quote-assistant-backend/internal/repository"
	"quote-assistant-backend/internal/services"
	"quote-assistant-backend/pkg/logging"
)

type echoGenerator struct{}

func (echoGenerator) Generate(ctx context.Context, payload services.Payload) (string, error) {
	last := payload.Messages[len(payload.Messages)-1]
	return "echo: " + last.Parts[0].(services.TextPart).Text, nil
}

func newTestServer(t *testing.T, opts Options, jwtAuth *middleware.JWTAuth) *httptest.Server {
	t.Helper()
	logger := logging.Discard()
	repo := repository.NewPromptRepo(filepath.Join(t.TempDir(), "ai-rules.txt"))
	rules, err := services.NewRulesService(context.Background(), repo, "default rules", nil, logger, nil)
	require.NoError(t, err)

	h := New(
		opts,
		jwtAuth,
		handlers.NewChatHandler(echoGenerator{}, rules, services.BuildOptions{}, logger),
		handlers.NewRulesHandler(rules, logger),
		metrics.New(),
		logger,
	)
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, url, body string, header map[string]string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestRouter_SendUnderPrefix(t *testing.T) {
	srv := newTestServer(t, Options{Prefix: "/gemini-ai", CORSOrigins: []string{"*"}, MaxBodyBytes: 1 << 20}, nil)

	resp := post(t, srv.URL+"/gemini-ai/send", `{"text":"toilet is leaking"}`, map[string]string{"Origin": "https://app.example"})

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "https://app.example", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, resp.Header.Get(middleware.RequestIDHeader))

	var body models.SendResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "echo: toilet is leaking", body.Response)
}

func TestRouter_RulesRoundTrip(t *testing.T) {
	srv := newTestServer(t, Options{Prefix: "/gemini-ai"}, nil)

	resp := post(t, srv.URL+"/gemini-ai/rules", `{"content":"be brief"}`, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	get, err := http.Get(srv.URL + "/gemini-ai/rules")
	require.NoError(t, err)
	defer get.Body.Close()

	var rules models.RulesResponse
	require.NoError(t, json.NewDecoder(get.Body).Decode(&rules))
	assert.Equal(t, "be brief", rules.Content)
}

func TestRouter_BodyLimit(t *testing.T) {
	srv := newTestServer(t, Options{Prefix: "/gemini-ai", MaxBodyBytes: 64}, nil)

	big := `{"text":"` + strings.Repeat("a", 256) + `"}`
	resp := post(t, srv.URL+"/gemini-ai/send", big, nil)

	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestRouter_RulesWriteRequiresAdminWhenConfigured(t *testing.T) {
	jwtAuth := middleware.NewJWTAuth("secret")
	srv := newTestServer(t, Options{Prefix: "/gemini-ai"}, jwtAuth)

	resp := post(t, srv.URL+"/gemini-ai/rules", `{"content":"x"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	token, err := jwtAuth.GenerateAdminToken("ops", time.Hour)
	require.NoError(t, err)
	resp = post(t, srv.URL+"/gemini-ai/rules", `{"content":"x"}`, map[string]string{"Authorization": "Bearer " + token})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Reads stay public.
	get, err := http.Get(srv.URL + "/gemini-ai/rules")
	require.NoError(t, err)
	get.Body.Close()
	assert.Equal(t, http.StatusOK, get.StatusCode)
}

func TestRouter_NoPrefix(t *testing.T) {
	srv := newTestServer(t, Options{}, nil)

	resp := post(t, srv.URL+"/send", `{"text":"hi"}`, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	srv := newTestServer(t, Options{Prefix: "/gemini-ai"}, nil)

	health, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	health.Body.Close()
	assert.Equal(t, http.StatusOK, health.StatusCode)

	m, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	m.Body.Close()
	assert.Equal(t, http.StatusOK, m.StatusCode)
}

func TestRouter_RulesWritesUseCallerLimiter(t *testing.T) {
	limiter := middleware.NewRateLimiter(1, time.Minute)
	defer limiter.Stop()
	srv := newTestServer(t, Options{Prefix: "/gemini-ai", RulesLimiter: limiter}, nil)

	resp := post(t, srv.URL+"/gemini-ai/rules", `{"content":"first"}`, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = post(t, srv.URL+"/gemini-ai/rules", `{"content":"second"}`, nil)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))

	// Reads are not throttled.
	get, err := http.Get(srv.URL + "/gemini-ai/rules")
	require.NoError(t, err)
	get.Body.Close()
	assert.Equal(t, http.StatusOK, get.StatusCode)
}
