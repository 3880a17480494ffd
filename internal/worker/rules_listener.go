package worker

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"quote-assistant-backend/internal/metrics"
	"quote-assistant-backend/internal/models"
	"quote-assistant-backend/pkg/logging"
)

type rulesReloader interface {
	Reload(ctx context.Context) error
}

type rulesSubscriber interface {
	Subscribe(ctx context.Context) *redis.PubSub
	IsRemote(evt models.RulesUpdatedEvent) bool
}

// RulesListener reloads the cached rules whenever another instance
// announces a rules update.
type RulesListener struct {
	subscriber rulesSubscriber
	rules      rulesReloader
	logger     *logging.Logger
	metrics    *metrics.Metrics

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func NewRulesListener(subscriber rulesSubscriber, rules rulesReloader, logger *logging.Logger, m *metrics.Metrics) *RulesListener {
	if logger == nil {
		logger = logging.Default()
	}
	return &RulesListener{
		subscriber: subscriber,
		rules:      rules,
		logger:     logger,
		metrics:    m,
		done:       make(chan struct{}),
	}
}

// Start subscribes and returns once the subscription is confirmed.
func (l *RulesListener) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	l.cancel = cancel

	sub := l.subscriber.Subscribe(ctx)
	if _, err := sub.Receive(ctx); err != nil {
		cancel()
		sub.Close()
		close(l.done)
		return err
	}

	go l.loop(ctx, sub)
	l.logger.Info("rules listener started")
	return nil
}

// Stop cancels the subscription and waits for the loop to exit.
func (l *RulesListener) Stop() {
	if l.cancel == nil {
		return
	}
	l.once.Do(l.cancel)
	<-l.done
}

func (l *RulesListener) loop(ctx context.Context, sub *redis.PubSub) {
	defer close(l.done)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("rules listener shutting down")
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			l.handle(ctx, msg.Payload)
		}
	}
}

func (l *RulesListener) handle(ctx context.Context, payload string) {
	var evt models.RulesUpdatedEvent
	if err := json.Unmarshal([]byte(payload), &evt); err != nil {
		l.logger.Warn("rules listener: bad event", "error", err)
		return
	}
	if !l.subscriber.IsRemote(evt) {
		return
	}

	reloadCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := l.rules.Reload(reloadCtx); err != nil {
		l.metrics.ObserveRulesReload("error")
		l.logger.Error("rules reload failed", "error", err, "origin", evt.InstanceID)
		return
	}
	l.metrics.ObserveRulesReload("ok")
	l.logger.Info("rules reloaded", "origin", evt.InstanceID, "bytes", evt.Bytes)
}
