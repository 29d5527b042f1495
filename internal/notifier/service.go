// Package notifier consumes the notify queue and fans each message out to
// the configured notification channels. Acknowledgment is all-or-nothing: a
// message is acked only when every enabled channel delivered, so any partial
// failure retries the whole fan-out after the redelivery window.
package notifier

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jscomlabs/contactd/internal/domain"
	"github.com/jscomlabs/contactd/internal/notify"
)

const (
	receiveBatch = 10
	receiveBlock = 5 * time.Second
)

// Dispatcher runs one notification fan-out.
type Dispatcher interface {
	Dispatch(ctx context.Context, env domain.Envelope) (notify.Report, error)
}

// Service is the notifier stage consumer.
type Service struct {
	queue       domain.Queue
	dispatcher  Dispatcher
	logger      *slog.Logger
	reclaimIdle time.Duration
}

// New creates the notifier Service. reclaimIdle is the pending-entry idle
// window before a redelivery attempt; zero means 5 minutes.
func New(queue domain.Queue, dispatcher Dispatcher, reclaimIdle time.Duration, logger *slog.Logger) *Service {
	if reclaimIdle <= 0 {
		reclaimIdle = 5 * time.Minute
	}
	return &Service{
		queue:       queue,
		dispatcher:  dispatcher,
		logger:      logger.With(slog.String("component", "notifier")),
		reclaimIdle: reclaimIdle,
	}
}

// Run consumes the notify queue until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	reclaim := time.NewTicker(s.reclaimIdle)
	defer reclaim.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-reclaim.C:
			s.drainReclaimed(ctx)
		default:
		}

		msgs, err := s.queue.Receive(ctx, receiveBatch, receiveBlock)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.ErrorContext(ctx, "receive failed", slog.String("error", err.Error()))
			time.Sleep(time.Second)
			continue
		}

		for _, m := range msgs {
			s.handle(ctx, m)
		}
	}
}

func (s *Service) drainReclaimed(ctx context.Context) {
	msgs, err := s.queue.Reclaim(ctx, s.reclaimIdle, receiveBatch)
	if err != nil {
		s.logger.ErrorContext(ctx, "reclaim failed", slog.String("error", err.Error()))
		return
	}
	if len(msgs) > 0 {
		s.logger.InfoContext(ctx, "reclaimed pending messages", slog.Int("count", len(msgs)))
	}
	for _, m := range msgs {
		s.handle(ctx, m)
	}
}

// handle runs one fan-out and acks the message only on aggregate success.
func (s *Service) handle(ctx context.Context, qm domain.QueueMessage) {
	env, err := domain.ParseEnvelope(qm.Payload)
	if err != nil {
		// Unparseable payloads would redeliver forever.
		s.logger.ErrorContext(ctx, "discarding malformed notify payload",
			slog.String("error", err.Error()),
			slog.String("payload", string(qm.Payload)),
		)
		s.ack(ctx, qm.ID)
		return
	}

	report, err := s.dispatcher.Dispatch(ctx, env)
	if err != nil {
		if errors.Is(err, domain.ErrMissingMessage) {
			// Terminal validation failure: retrying can never fix a missing
			// field.
			s.logger.ErrorContext(ctx, "discarding envelope without message body",
				slog.String("payload", string(qm.Payload)),
			)
			s.ack(ctx, qm.ID)
			return
		}
		s.logger.ErrorContext(ctx, "dispatch failed", slog.String("error", err.Error()))
		return
	}

	if !report.Success {
		s.logger.WarnContext(ctx, "fan-out incomplete, leaving message for redelivery",
			slog.String("queue_id", qm.ID),
			slog.String("summary", report.Message),
		)
		return
	}

	s.logger.InfoContext(ctx, "fan-out complete",
		slog.String("queue_id", qm.ID),
		slog.String("summary", report.Message),
		slog.Int("channels", len(report.Results)),
	)
	s.ack(ctx, qm.ID)
}

func (s *Service) ack(ctx context.Context, id string) {
	if err := s.queue.Ack(ctx, id); err != nil {
		s.logger.ErrorContext(ctx, "ack failed",
			slog.String("queue_id", id),
			slog.String("error", err.Error()),
		)
	}
}
