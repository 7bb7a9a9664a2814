package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/literature-backend/pkg/config"
	"github.com/angelmondragon/literature-backend/pkg/db/models"
	"github.com/angelmondragon/literature-backend/pkg/enums"
	"github.com/angelmondragon/literature-backend/pkg/logger"
	"github.com/angelmondragon/literature-backend/pkg/outbox/registry"
)

const (
	defaultBatchSize      = 50
	defaultPollMs         = 500
	defaultPublishTimeout = 15 * time.Second
	defaultMaxAttempts    = 10
	maxBackoff            = 10 * time.Second
	jitterWindow          = 250 * time.Millisecond
)

var (
	jitterMu     sync.Mutex
	jitterSource = rand.New(rand.NewSource(time.Now().UnixNano()))

	errTopicUnconfigured = errors.New("topic has no publisher")
)

type dbClient interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type pubSubClient interface {
	Ping(context.Context) error
	Publisher(name string) *gcppubsub.Publisher
}

type outboxRepository interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID) error
}

type dlqRepository interface {
	InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error
}

type registryResolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

type ServiceParams struct {
	Config           *config.Config
	Logger           *logger.Logger
	DB               dbClient
	PubSub           pubSubClient
	Repository       outboxRepository
	Registry         registryResolver
	PublisherFactory publisherFactory
	DLQRepository    dlqRepository
}

// Service drains outbox_events to Pub/Sub. Rows that can never be delivered
// are parked in outbox_dlq with a reason; transient failures are retried on
// later batches until the attempt budget runs out.
type Service struct {
	logg         *logger.Logger
	db           dbClient
	pubsub       pubSubClient
	repo         outboxRepository
	registry     registryResolver
	dlq          dlqRepository
	publishers   publisherFactory
	batchSize    int
	maxAttempts  int
	ordered      bool
	pollInterval time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	var missing error
	for _, dep := range []struct {
		ok   bool
		name string
	}{
		{params.Config != nil, "config"},
		{params.Logger != nil, "logger"},
		{params.DB != nil, "database client"},
		{params.PubSub != nil, "pubsub client"},
		{params.Repository != nil, "outbox repository"},
		{params.Registry != nil, "event registry"},
		{params.DLQRepository != nil, "dlq repository"},
	} {
		if !dep.ok {
			missing = multierr.Append(missing, fmt.Errorf("%s is required", dep.name))
		}
	}
	if missing != nil {
		return nil, missing
	}

	cfg := params.Config.Outbox
	svc := &Service{
		logg:         params.Logger,
		db:           params.DB,
		pubsub:       params.PubSub,
		repo:         params.Repository,
		registry:     params.Registry,
		dlq:          params.DLQRepository,
		publishers:   params.PublisherFactory,
		batchSize:    positiveOr(cfg.BatchSize, defaultBatchSize),
		maxAttempts:  positiveOr(cfg.MaxAttempts, defaultMaxAttempts),
		ordered:      cfg.OrderedDelivery,
		pollInterval: time.Duration(positiveOr(cfg.PollIntervalMS, defaultPollMs)) * time.Millisecond,
	}
	if svc.publishers == nil {
		svc.publishers = topicPublishers(params.PubSub, svc.ordered)
	}
	return svc, nil
}

func positiveOr(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	for _, dep := range []struct {
		name string
		ping func(context.Context) error
	}{
		{"database", s.db.Ping},
		{"pubsub", s.pubsub.Ping},
	} {
		if err := dep.ping(ctx); err != nil {
			s.logg.Error(s.logg.WithField(ctx, "dependency", dep.name), "outbox.dependency.unavailable", err)
			return fmt.Errorf("%s ping failed: %w", dep.name, err)
		}
	}
	return nil
}

func (s *Service) Run(ctx context.Context) error {
	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}

	backoff := s.pollInterval
	for {
		if err := ctx.Err(); err != nil {
			s.logg.Info(ctx, "outbox.publisher.stopping")
			return err
		}

		processed, err := s.processBatch(ctx)
		wait := s.pollInterval
		switch {
		case err != nil:
			s.logg.Error(ctx, "outbox.batch.failed", err)
			backoff = nextBackoff(backoff, s.pollInterval, maxBackoff)
			wait = backoff
		case processed:
			backoff = s.pollInterval
			continue
		default:
			backoff = s.pollInterval
		}
		if err := s.sleep(ctx, withJitter(wait)); err != nil {
			return err
		}
	}
}

// attempt is the outcome of trying to deliver one row.
type attempt struct {
	event  models.OutboxEvent
	fields map[string]any
	err    error
	// reason is set when the row must be dead-lettered rather than retried.
	reason enums.OutboxDLQErrorReason
}

func (s *Service) processBatch(ctx context.Context) (bool, error) {
	processed := false
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		events, err := s.repo.FetchUnpublishedForPublish(tx, s.batchSize, s.maxAttempts)
		if err != nil {
			return err
		}
		processed = len(events) > 0
		for _, event := range events {
			if err := s.settle(ctx, tx, s.deliver(ctx, event)); err != nil {
				return err
			}
		}
		return nil
	})
	return processed, err
}

func (s *Service) deliver(ctx context.Context, event models.OutboxEvent) attempt {
	a := attempt{event: event, fields: s.baseFields(event)}

	resolved, err := s.registry.Resolve(event)
	if err != nil {
		a.err = err
		a.reason = deadLetterReason(err)
		if a.reason == "" {
			a.reason = enums.OutboxDLQReasonUnroutable
		}
		return a
	}
	a.fields["event_id"] = resolved.Envelope.EventID
	a.fields["occurred_at"] = resolved.Envelope.OccurredAt.Format(time.RFC3339Nano)

	route, err := routeEvent(event, resolved)
	if err != nil {
		a.err = err
		a.reason = deadLetterReason(err)
		return a
	}
	a.fields["topic"] = route.topic
	route.logFields(a.fields)

	a.err = s.publish(ctx, route, event)
	if a.err == nil {
		return a
	}
	if a.reason = deadLetterReason(a.err); a.reason != "" {
		return a
	}

	next := event.AttemptCount + 1
	a.fields["attempt_count"] = next
	if next >= s.maxAttempts {
		a.err = fmt.Errorf("max publish attempts reached: %w", a.err)
		a.reason = enums.OutboxDLQReasonMaxAttempts
	}
	return a
}

func (s *Service) publish(ctx context.Context, route delivery, event models.OutboxEvent) error {
	pub := s.publishers(route.topic)
	if pub == nil {
		return registry.NewNonRetryableError(fmt.Errorf("%w: %s", errTopicUnconfigured, route.topic))
	}

	msg := &gcppubsub.Message{Data: event.Payload, Attributes: route.attributes}
	if s.ordered {
		msg.OrderingKey = route.orderingKey
	}

	publishCtx, cancel := context.WithTimeout(ctx, defaultPublishTimeout)
	defer cancel()
	result := pub.Publish(publishCtx, msg)
	if result == nil {
		return registry.NewNonRetryableError(fmt.Errorf("publisher returned no result for topic %s", route.topic))
	}
	_, err := result.Get(publishCtx)
	return err
}

// deadLetterReason classifies a terminal failure; retryable errors map to "".
func deadLetterReason(err error) enums.OutboxDLQErrorReason {
	switch {
	case errors.Is(err, registry.ErrMalformedPayload):
		return enums.OutboxDLQReasonInvalidPayload
	case errors.Is(err, registry.ErrUnroutable):
		return enums.OutboxDLQReasonUnroutable
	case errors.Is(err, errTopicUnconfigured):
		return enums.OutboxDLQReasonTopicUnconfigured
	}
	var nonRetry registry.NonRetryableError
	if errors.As(err, &nonRetry) {
		return enums.OutboxDLQReasonNonRetryable
	}
	return ""
}

func (s *Service) settle(ctx context.Context, tx *gorm.DB, a attempt) error {
	ctx = s.logg.WithFields(ctx, a.fields)
	switch {
	case a.err == nil:
		if err := s.repo.MarkPublishedTx(tx, a.event.ID); err != nil {
			return fmt.Errorf("mark published %s: %w", a.event.ID, err)
		}
		s.logg.Info(ctx, "outbox.publish.succeeded")
	case a.reason != "":
		return s.deadLetter(ctx, tx, a)
	default:
		s.logg.Warn(s.logg.WithField(ctx, "error", a.err.Error()), "outbox.publish.failed")
		if err := s.repo.MarkFailedTx(tx, a.event.ID, a.err); err != nil {
			return fmt.Errorf("mark failure %s: %w", a.event.ID, err)
		}
	}
	return nil
}

func (s *Service) deadLetter(ctx context.Context, tx *gorm.DB, a attempt) error {
	ctx = s.logg.WithFields(ctx, map[string]any{
		"error_reason": a.reason,
		"error":        a.err.Error(),
	})
	s.logg.Warn(ctx, "outbox.event.dead_lettered")

	msg := a.err.Error()
	entry := models.OutboxDLQ{
		EventID:       a.event.ID,
		EventType:     a.event.EventType,
		AggregateType: a.event.AggregateType,
		AggregateID:   a.event.AggregateID,
		Payload:       a.event.Payload,
		ErrorReason:   a.reason,
		ErrorMessage:  &msg,
		AttemptCount:  a.event.AttemptCount,
		FailedAt:      time.Now().UTC(),
	}
	if err := s.dlq.InsertTx(tx, entry); err != nil {
		return fmt.Errorf("insert dlq %s: %w", a.event.ID, err)
	}
	if err := s.repo.MarkTerminalTx(tx, a.event.ID); err != nil {
		return fmt.Errorf("mark terminal %s: %w", a.event.ID, err)
	}
	return nil
}

func (s *Service) baseFields(event models.OutboxEvent) map[string]any {
	fields := map[string]any{
		"outbox_id":      event.ID.String(),
		"event_type":     event.EventType,
		"aggregate_type": event.AggregateType,
		"aggregate_id":   event.AggregateID.String(),
		"attempt_count":  event.AttemptCount,
	}
	if event.LastError != nil {
		fields["last_error"] = *event.LastError
	}
	return fields
}

func (s *Service) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func nextBackoff(current, base, max time.Duration) time.Duration {
	if current <= 0 {
		current = base
	}
	next := current * 2
	if next > max {
		return max
	}
	return next
}

func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	jitterMu.Lock()
	jitter := time.Duration(jitterSource.Int63n(int64(jitterWindow)))
	jitterMu.Unlock()
	return d + jitter
}
