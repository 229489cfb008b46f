package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"water-quality-api/classifier"
	"water-quality-api/models"
	"water-quality-api/rules"
	"water-quality-api/store"
)

const publishTimeout = time.Second

type Publisher interface {
	Publish(ctx context.Context, channel string, message any) error
}

// IngestionService validates, classifies, applies the safety rules and
// persists a single reading. It holds no per-request state; recorded_at is
// assigned by the store at commit.
type IngestionService struct {
	classifier classifier.Classifier
	rules      *rules.Engine
	store      store.Store
	publisher  Publisher
	channel    string
}

type IngestionOption func(*IngestionService)

// WithPublisher announces every stored reading on channel. Publishing is best
// effort and never fails an ingestion.
func WithPublisher(p Publisher, channel string) IngestionOption {
	return func(s *IngestionService) {
		s.publisher = p
		s.channel = channel
	}
}

func NewIngestionService(c classifier.Classifier, r *rules.Engine, st store.Store, opts ...IngestionOption) *IngestionService {
	s := &IngestionService{
		classifier: c,
		rules:      r,
		store:      st,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *IngestionService) Ingest(ctx context.Context, payload map[string]any) (*models.Reading, error) {
	readingsReceived.Inc()

	m, err := Validate(payload)
	if err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			for field := range ve.Fields {
				readingsRejected.WithLabelValues(field).Inc()
			}
		}
		slog.InfoContext(ctx, "reading rejected", "error", err)
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, s.canceled(ctx, "before classification", err)
	}

	reading := models.Reading{
		PH:          m.PH,
		Turbidity:   m.Turbidity,
		Temperature: m.Temperature,
	}

	label, err := s.classifier.Classify(m.PH, m.Turbidity, m.Temperature)
	if err != nil {
		classifierErrors.Inc()
		slog.WarnContext(ctx, "classifier failed, storing rule verdict only", "error", err)
	} else {
		reading.MLLabel = &label
	}

	reading.FinalStatus = s.rules.Evaluate(m.PH, m.Turbidity, m.Temperature)
	violations := s.rules.Violations(m.PH, m.Turbidity, m.Temperature)

	if err := ctx.Err(); err != nil {
		return nil, s.canceled(ctx, "before persistence", err)
	}

	// The append runs to completion even if the caller goes away, so a slow
	// but successful write is never mistaken for a failure and retried.
	start := time.Now()
	id, err := s.store.Append(context.WithoutCancel(ctx), &reading)
	appendDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		kind := KindOf(err)
		readingsFailed.WithLabelValues(string(kind)).Inc()
		slog.ErrorContext(ctx, "reading append failed", "kind", kind, "error", err)
		return nil, err
	}

	readingsStored.Inc()
	finalStatus.WithLabelValues(string(reading.FinalStatus)).Inc()
	for _, v := range violations {
		ruleViolations.WithLabelValues(string(v.Rule)).Inc()
	}
	if reading.Overridden() {
		ruleOverrides.Inc()
		slog.InfoContext(ctx, "rule verdict overrides classifier",
			"id", id, "ml_label", *reading.MLLabel, "final_status", reading.FinalStatus,
			"violations", describe(violations))
	}

	if err := ctx.Err(); err != nil {
		readingsDiscarded.Inc()
		slog.WarnContext(ctx, "reading stored after client went away, result discarded", "id", id)
		return nil, fmt.Errorf("%w: reading %d stored after cancellation: %w", ErrCanceled, id, err)
	}

	s.publish(ctx, &reading)

	slog.DebugContext(ctx, "reading stored",
		"id", id, "final_status", reading.FinalStatus, "violations", describe(violations))
	return &reading, nil
}

func (s *IngestionService) canceled(ctx context.Context, stage string, cause error) error {
	readingsFailed.WithLabelValues(string(KindCanceled)).Inc()
	slog.InfoContext(ctx, "ingestion abandoned", "stage", stage)
	return fmt.Errorf("%w %s: %w", ErrCanceled, stage, cause)
}

func describe(vs []rules.Violation) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = v.String()
	}
	return out
}

func (s *IngestionService) publish(ctx context.Context, r *models.Reading) {
	if s.publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.publisher.Publish(ctx, s.channel, r); err != nil {
		slog.WarnContext(ctx, "live publish failed", "channel", s.channel, "error", err)
	}
}
