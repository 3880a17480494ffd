package services

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"quote-assistant-backend/internal/metrics"
	"quote-assistant-backend/pkg/logging"
)

var rulesTracer = otel.Tracer("quote-assistant/rules")

type promptRepository interface {
	Read(ctx context.Context) (string, error)
	Write(ctx context.Context, content string) error
	Exists() (bool, error)
	Path() string
}

// RulesPublisher announces rules changes to other instances.
type RulesPublisher interface {
	PublishRulesUpdated(ctx context.Context, size int) error
}

// RulesService owns the assistant's system prompt. The prompt lives in a file
// and a copy is cached in memory; writes update both, so new conversations see
// the new rules without a restart.
type RulesService struct {
	repo      promptRepository
	publisher RulesPublisher
	logger    *logging.Logger
	metrics   *metrics.Metrics

	mu      sync.RWMutex
	current string
}

// NewRulesService loads the rules file, seeding it with defaultRules when it
// does not exist yet. publisher may be nil.
func NewRulesService(
	ctx context.Context,
	repo promptRepository,
	defaultRules string,
	publisher RulesPublisher,
	logger *logging.Logger,
	m *metrics.Metrics,
) (*RulesService, error) {
	if logger == nil {
		logger = logging.Default()
	}
	s := &RulesService{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		metrics:   m,
	}

	exists, err := repo.Exists()
	if err != nil {
		return nil, &IOError{Op: "stat", Path: repo.Path(), Err: err}
	}
	if !exists {
		if err := repo.Write(ctx, defaultRules); err != nil {
			return nil, &IOError{Op: "seed", Path: repo.Path(), Err: err}
		}
		logger.Info("rules file seeded from assistant defaults", "path", repo.Path())
	}

	if err := s.Reload(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Current returns the cached rules used for generation.
func (s *RulesService) Current() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Read returns the rules file content verbatim and refreshes the cache with it.
func (s *RulesService) Read(ctx context.Context) (string, error) {
	content, err := s.repo.Read(ctx)
	if err != nil {
		return "", &IOError{Op: "read", Path: s.repo.Path(), Err: err}
	}
	s.set(content)
	return content, nil
}

// Reload re-reads the rules file into the cache.
func (s *RulesService) Reload(ctx context.Context) error {
	_, err := s.Read(ctx)
	return err
}

// Write replaces the rules. The previous content is not kept.
func (s *RulesService) Write(ctx context.Context, content string) error {
	ctx, span := rulesTracer.Start(ctx, "rules.write")
	defer span.End()
	span.SetAttributes(attribute.Int("rules.bytes", len(content)))

	if content == "" {
		s.metrics.ObserveRulesUpdate("validation_error")
		return &ValidationError{Message: "Content is required and must be a string"}
	}

	if err := s.repo.Write(ctx, content); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "write rules")
		s.metrics.ObserveRulesUpdate("io_error")
		return &IOError{Op: "write", Path: s.repo.Path(), Err: err}
	}
	s.set(content)
	s.metrics.ObserveRulesUpdate("ok")

	if s.publisher != nil {
		if err := s.publisher.PublishRulesUpdated(ctx, len(content)); err != nil {
			// Local state is already updated; peers pick it up on their next read.
			s.logger.WarnContext(ctx, "rules update broadcast failed", "error", err)
		}
	}

	s.logger.InfoContext(ctx, "rules updated", "path", s.repo.Path(), "bytes", len(content))
	return nil
}

func (s *RulesService) set(content string) {
	s.mu.Lock()
	s.current = content
	s.mu.Unlock()
}
