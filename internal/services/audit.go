package services

import (
	"context"
	"time"

	"github.com/adminpanel/apiserver/internal/metrics"
	"github.com/adminpanel/apiserver/types"
	"github.com/rs/zerolog"
)

// LogRepository defines persistence operations for the audit log.
type LogRepository interface {
	Append(ctx context.Context, entry types.LogEntry) (types.LogEntry, error)
	ListRecent(ctx context.Context) ([]types.LogEntry, error)
}

// EventPublisher receives every appended entry.
type EventPublisher interface {
	PublishLogEntry(ctx context.Context, entry types.LogEntry) (string, error)
}

// Archiver stores a snapshot of the audit log.
type Archiver interface {
	Snapshot(ctx context.Context, entries []types.LogEntry) (string, error)
}

// AuditService encapsulates audit log use-cases.
type AuditService struct {
	repo      LogRepository
	publisher EventPublisher
	log       zerolog.Logger
	now       func() time.Time
}

// NewAuditService returns a service appending to repo. publisher may be nil.
func NewAuditService(repo LogRepository, publisher EventPublisher, log zerolog.Logger) *AuditService {
	return &AuditService{
		repo:      repo,
		publisher: publisher,
		log:       log,
		now:       time.Now,
	}
}

// Append stores entry and then publishes it. A blank time is replaced with
// the current UTC time. Publishing failures are logged, not returned.
func (s *AuditService) Append(ctx context.Context, entry types.LogEntry) (types.LogEntry, error) {
	if entry.Time == "" {
		entry.Time = s.now().UTC().Format(time.RFC3339)
	}

	stored, err := s.repo.Append(ctx, entry)
	if err != nil {
		return types.LogEntry{}, err
	}

	if s.publisher != nil {
		if _, err := s.publisher.PublishLogEntry(ctx, stored); err != nil {
			metrics.AuditEventsPublished.WithLabelValues("error").Inc()
			s.log.Warn().Err(err).Int64("log_id", stored.ID).Msg("publishing audit entry failed")
		} else {
			metrics.AuditEventsPublished.WithLabelValues("ok").Inc()
		}
	}
	return stored, nil
}

// ListRecent returns every entry, newest first.
func (s *AuditService) ListRecent(ctx context.Context) ([]types.LogEntry, error) {
	return s.repo.ListRecent(ctx)
}

// Archive writes the current log to archiver and returns the object key.
func (s *AuditService) Archive(ctx context.Context, archiver Archiver) (string, int, error) {
	entries, err := s.repo.ListRecent(ctx)
	if err != nil {
		return "", 0, err
	}
	key, err := archiver.Snapshot(ctx, entries)
	if err != nil {
		return "", 0, err
	}
	return key, len(entries), nil
}
