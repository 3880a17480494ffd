package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"google.golang.org/api/option"

	"quote-assistant-backend/internal/metrics"
	"quote-assistant-backend/internal/models"
	"quote-assistant-backend/pkg/logging"
)

var geminiTracer = otel.Tracer("quote-assistant/gemini")

// previewLimit caps the text preview written to debug logs.
const previewLimit = 500

type GeminiService struct {
	client   *genai.Client // nil when no credential is configured
	modelID  string
	logger   *logging.Logger
	metrics  *metrics.Metrics
	rateChan chan struct{} // Token bucket
}

// NewGeminiService creates the Gemini client. A missing apiKey is not fatal:
// the service starts and every Generate call fails with a ConfigError.
// opts are appended after the API key, e.g. a custom HTTP client.
func NewGeminiService(
	ctx context.Context,
	apiKey string,
	modelID string,
	concurrentReqs int,
	logger *logging.Logger,
	m *metrics.Metrics,
	opts ...option.ClientOption,
) (*GeminiService, error) {
	if logger == nil {
		logger = logging.Default()
	}
	if concurrentReqs < 1 {
		concurrentReqs = 1
	}

	// Token bucket for rate limiting
	rateChan := make(chan struct{}, concurrentReqs)
	for i := 0; i < concurrentReqs; i++ {
		rateChan <- struct{}{}
	}

	s := &GeminiService{
		modelID:  modelID,
		logger:   logger,
		metrics:  m,
		rateChan: rateChan,
	}

	if strings.TrimSpace(apiKey) == "" {
		logger.Warn("gemini api key not configured; send requests will fail")
		return s, nil
	}

	client, err := genai.NewClient(ctx, append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	s.client = client
	return s, nil
}

func (s *GeminiService) Close() {
	if s.client != nil {
		s.client.Close()
	}
}

// Configured reports whether a credential was supplied.
func (s *GeminiService) Configured() bool {
	return s.client != nil
}

// acquireRate blocks until a rate slot is available
func (s *GeminiService) acquireRate(ctx context.Context) error {
	select {
	case <-s.rateChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Minute):
		return fmt.Errorf("timeout waiting for Gemini rate slot")
	}
}

func (s *GeminiService) releaseRate() {
	s.rateChan <- struct{}{}
}

// Generate sends payload to Gemini and returns the generated text.
// Failures are never retried.
func (s *GeminiService) Generate(ctx context.Context, payload Payload) (string, error) {
	mode := payloadMode(payload)

	if s.client == nil {
		s.metrics.ObserveGeneration(mode, "config_error", 0)
		return "", &ConfigError{Message: "Gemini API key not configured"}
	}

	ctx, span := geminiTracer.Start(ctx, "gemini.generate")
	defer span.End()
	span.SetAttributes(
		attribute.String("gemini.model", s.modelID),
		attribute.String("gemini.mode", mode),
		attribute.Int("gemini.messages", len(payload.Messages)),
	)

	fail := func(op string, err error) (string, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, op)
		s.metrics.ObserveGeneration(mode, "provider_error", 0)
		return "", &ProviderError{Op: op, Err: err}
	}

	system, history, last, err := buildChat(payload)
	if err != nil {
		return fail("build Gemini request", err)
	}

	if err := s.acquireRate(ctx); err != nil {
		return fail("wait for Gemini slot", err)
	}
	defer s.releaseRate()

	s.logRequestShape(ctx, mode, payload)

	model := s.client.GenerativeModel(s.modelID)
	if system != nil {
		model.SystemInstruction = system
	}
	cs := model.StartChat()
	cs.History = history

	start := time.Now()
	resp, err := cs.SendMessage(ctx, last...)
	if err != nil {
		return fail("Gemini API error", err)
	}
	if len(resp.Candidates) == 0 {
		return fail("Gemini API error", errors.New("no candidates returned"))
	}

	for i, cand := range resp.Candidates {
		if cand.FinishReason != genai.FinishReasonStop {
			s.logger.WarnContext(ctx, "gemini stopped early",
				"candidate", i,
				"finish_reason", cand.FinishReason.String(),
			)
		}
	}

	s.metrics.ObserveGeneration(mode, "ok", time.Since(start))
	return extractText(resp), nil
}

func (s *GeminiService) logRequestShape(ctx context.Context, mode string, payload Payload) {
	attrs := []any{
		"model", s.modelID,
		"mode", mode,
		"messages", len(payload.Messages),
		"has_system", payload.System != "",
	}
	if len(payload.Messages) > 0 {
		last := payload.Messages[len(payload.Messages)-1]
		for _, part := range last.Parts {
			switch p := part.(type) {
			case TextPart:
				attrs = append(attrs, "preview", truncate(p.Text, previewLimit))
			case ImagePart:
				attrs = append(attrs, "image_length", len(p.DataURL))
			}
		}
	}
	s.logger.DebugContext(ctx, "sending gemini request", attrs...)
}

func payloadMode(payload Payload) string {
	if payload.HasImage() {
		return "image"
	}
	return "text"
}

// buildChat maps a payload onto a Gemini chat session: an optional system
// instruction, the prior turns as history, and the parts of the final turn.
func buildChat(payload Payload) (*genai.Content, []*genai.Content, []genai.Part, error) {
	if len(payload.Messages) == 0 {
		return nil, nil, nil, errors.New("payload has no messages")
	}

	var system *genai.Content
	if strings.TrimSpace(payload.System) != "" {
		system = genai.NewUserContent(genai.Text(payload.System))
	}

	var history []*genai.Content
	for _, msg := range payload.Messages[:len(payload.Messages)-1] {
		parts, err := toGeminiParts(msg.Parts)
		if err != nil {
			return nil, nil, nil, err
		}
		if len(parts) == 0 {
			continue
		}
		history = append(history, &genai.Content{
			Role:  geminiRole(msg.Role),
			Parts: parts,
		})
	}

	last, err := toGeminiParts(payload.Messages[len(payload.Messages)-1].Parts)
	if err != nil {
		return nil, nil, nil, err
	}
	if len(last) == 0 {
		return nil, nil, nil, errors.New("final message has no content")
	}

	return system, history, last, nil
}

func geminiRole(role string) string {
	if role == models.RoleAssistant {
		return "model"
	}
	return "user"
}

func toGeminiParts(parts []Part) ([]genai.Part, error) {
	out := make([]genai.Part, 0, len(parts))
	for _, part := range parts {
		switch p := part.(type) {
		case TextPart:
			if strings.TrimSpace(p.Text) == "" {
				continue
			}
			out = append(out, genai.Text(p.Text))
		case ImagePart:
			blob, err := decodeImage(p.DataURL)
			if err != nil {
				return nil, err
			}
			out = append(out, blob)
		default:
			return nil, fmt.Errorf("unsupported part type %T", part)
		}
	}
	return out, nil
}

// decodeImage turns a data URL ("data:image/png;base64,...") into an inline
// blob. Bare base64 is accepted and its type sniffed from the bytes.
func decodeImage(ref string) (genai.Blob, error) {
	ref = strings.TrimSpace(ref)

	var mimeType, encoded string
	if rest, ok := strings.CutPrefix(ref, "data:"); ok {
		meta, data, found := strings.Cut(rest, ",")
		if !found {
			return genai.Blob{}, errors.New("malformed image data URL")
		}
		params := strings.Split(meta, ";")
		isBase64 := false
		for _, p := range params[1:] {
			if strings.EqualFold(strings.TrimSpace(p), "base64") {
				isBase64 = true
			}
		}
		if !isBase64 {
			return genai.Blob{}, errors.New("image data URL must be base64 encoded")
		}
		mimeType = strings.ToLower(strings.TrimSpace(params[0]))
		encoded = data
	} else {
		encoded = ref
	}

	raw, err := decodeBase64(encoded)
	if err != nil {
		return genai.Blob{}, fmt.Errorf("invalid image encoding: %w", err)
	}
	if len(raw) == 0 {
		return genai.Blob{}, errors.New("image is empty")
	}

	if mimeType == "" {
		mimeType = http.DetectContentType(raw)
		if i := strings.Index(mimeType, ";"); i >= 0 {
			mimeType = mimeType[:i]
		}
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return genai.Blob{}, fmt.Errorf("unsupported image type %q", mimeType)
	}

	return genai.Blob{MIMEType: mimeType, Data: raw}, nil
}

func decodeBase64(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if raw, err := base64.StdEncoding.DecodeString(s); err == nil {
		return raw, nil
	}
	if raw, err := base64.RawStdEncoding.DecodeString(s); err == nil {
		return raw, nil
	}
	return base64.URLEncoding.DecodeString(s)
}

// Helper functions

func extractText(resp *genai.GenerateContentResponse) string {
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text.WriteString(string(t))
				}
			}
		}
	}
	return text.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
