// Package filter consumes the intake queue: each message is checked against
// the blocklist, optionally classified, archived, and forwarded to the
// notify queue when the sender is not blocked.
package filter

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/jscomlabs/contactd/internal/domain"
)

const (
	receiveBatch = 10
	receiveBlock = 5 * time.Second
)

// Classifier labels a message body. Implementations may be remote LLM
// calls; the filter treats every classifier error as "no label".
type Classifier interface {
	Classify(ctx context.Context, message string) (domain.Classification, error)
}

// RawArchiver stores verbatim intake payloads in object storage.
type RawArchiver interface {
	ArchiveRaw(ctx context.Context, id string, receivedAt time.Time, payload []byte) error
}

// Service is the filter stage consumer.
type Service struct {
	intake     domain.Queue
	notify     domain.Queue
	messages   domain.MessageStore
	blocklist  domain.BlocklistStore
	classifier Classifier  // nil when classification is disabled
	archiver   RawArchiver // nil when blob storage is not configured
	events     domain.EventBus
	eventCh    string
	logger     *slog.Logger

	reclaimIdle time.Duration
	now         func() time.Time
}

// Options carries the optional collaborators of the filter stage.
type Options struct {
	Classifier   Classifier
	Archiver     RawArchiver
	Events       domain.EventBus
	EventChannel string
	ReclaimIdle  time.Duration
}

// New creates the filter Service.
func New(intake, notify domain.Queue, messages domain.MessageStore, blocklist domain.BlocklistStore, opts Options, logger *slog.Logger) *Service {
	reclaimIdle := opts.ReclaimIdle
	if reclaimIdle <= 0 {
		reclaimIdle = 5 * time.Minute
	}
	return &Service{
		intake:      intake,
		notify:      notify,
		messages:    messages,
		blocklist:   blocklist,
		classifier:  opts.Classifier,
		archiver:    opts.Archiver,
		events:      opts.Events,
		eventCh:     opts.EventChannel,
		logger:      logger.With(slog.String("component", "filter")),
		reclaimIdle: reclaimIdle,
		now:         time.Now,
	}
}

// Run consumes the intake queue until the context is cancelled. Messages
// that processed to completion are acknowledged; anything that failed stays
// pending for redelivery, which Reclaim picks up after the idle window.
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

		msgs, err := s.intake.Receive(ctx, receiveBatch, receiveBlock)
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
	msgs, err := s.intake.Reclaim(ctx, s.reclaimIdle, receiveBatch)
	if err != nil {
		s.logger.ErrorContext(ctx, "reclaim failed", slog.String("error", err.Error()))
		return
	}
	for _, m := range msgs {
		s.handle(ctx, m)
	}
}

// handle processes one intake message end to end.
func (s *Service) handle(ctx context.Context, qm domain.QueueMessage) {
	var msg domain.IntakeMessage
	if err := json.Unmarshal(qm.Payload, &msg); err != nil {
		// A payload that can never parse would redeliver forever; ack it
		// and keep the raw bytes in the log for manual recovery.
		s.logger.ErrorContext(ctx, "discarding malformed intake payload",
			slog.String("error", err.Error()),
			slog.String("payload", string(qm.Payload)),
		)
		s.ack(ctx, qm.ID)
		return
	}
	if !domain.ValidKind(msg.ContactType) {
		msg.ContactType = domain.KindStandard
	}

	blocked := s.checkBlocked(ctx, msg.IPAddress)

	if s.classifier != nil && !blocked {
		s.attachClassification(ctx, &msg)
	}

	id := uuid.NewString()
	now := s.now()

	record := domain.ContactMessage{
		ID:             id,
		ContactName:    msg.ContactName,
		ContactEmail:   msg.ContactEmail,
		ContactMessage: msg.ContactMessage,
		IPAddress:      msg.IPAddress,
		UserAgent:      msg.UserAgent,
		Timestamp:      now.Unix(),
		IsBlocked:      blocked,
		ContactType:    msg.ContactType,
		CompanyName:    msg.CompanyName,
		Industry:       msg.Industry,
	}

	// Archiving is the one step that must succeed before the message can be
	// acked: a submission must never vanish without a record.
	if err := s.messages.Create(ctx, record); err != nil {
		s.logger.ErrorContext(ctx, "failed to archive message",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return
	}

	if s.archiver != nil {
		if err := s.archiver.ArchiveRaw(ctx, id, now, qm.Payload); err != nil {
			s.logger.WarnContext(ctx, "failed to store raw payload copy",
				slog.String("id", id),
				slog.String("error", err.Error()),
			)
		}
	}

	if !blocked {
		forward, err := json.Marshal(msg)
		if err == nil {
			err = s.notify.Publish(ctx, forward)
		}
		if err != nil {
			// The archive record exists but the notify stage never will; a
			// redelivery re-archives under a fresh id, which is the accepted
			// at-least-once tradeoff.
			s.logger.ErrorContext(ctx, "failed to forward to notify queue",
				slog.String("id", id),
				slog.String("error", err.Error()),
			)
			return
		}
		s.logger.InfoContext(ctx, "message forwarded",
			slog.String("id", id),
			slog.String("contact_type", string(msg.ContactType)),
		)
	} else {
		s.logger.InfoContext(ctx, "message archived as blocked",
			slog.String("id", id),
			slog.String("ip", msg.IPAddress),
		)
	}

	s.publishEvent(ctx, record)
	s.ack(ctx, qm.ID)
}

// checkBlocked is best-effort: a blocklist outage must not stall intake, so
// lookup failures count as "not blocked".
func (s *Service) checkBlocked(ctx context.Context, ip string) bool {
	blocked, err := s.blocklist.IsBlocked(ctx, ip)
	if err != nil {
		s.logger.WarnContext(ctx, "blocklist lookup failed",
			slog.String("ip", ip),
			slog.String("error", err.Error()),
		)
		return false
	}
	return blocked
}

// attachClassification labels the message in place. Failures leave the
// message unlabeled.
func (s *Service) attachClassification(ctx context.Context, msg *domain.IntakeMessage) {
	result, err := s.classifier.Classify(ctx, msg.ContactMessage)
	if err != nil {
		s.logger.WarnContext(ctx, "classification failed",
			slog.String("error", err.Error()),
		)
		return
	}
	msg.ClassificationType = string(result.Category)
	msg.ClassificationPriority = string(result.Priority)
	msg.ConfidenceScore = strconv.FormatFloat(result.Confidence, 'f', 2, 64)
}

// publishEvent pushes the archived record to the admin event feed.
func (s *Service) publishEvent(ctx context.Context, record domain.ContactMessage) {
	if s.events == nil || s.eventCh == "" {
		return
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(map[string]any{
		"type":    "message_archived",
		"payload": record,
	}); err != nil {
		return
	}
	if err := s.events.Publish(ctx, s.eventCh, buf.Bytes()); err != nil {
		s.logger.WarnContext(ctx, "failed to publish archive event",
			slog.String("error", err.Error()),
		)
	}
}

func (s *Service) ack(ctx context.Context, id string) {
	if err := s.intake.Ack(ctx, id); err != nil {
		s.logger.ErrorContext(ctx, "ack failed",
			slog.String("queue_id", id),
			slog.String("error", err.Error()),
		)
	}
}
