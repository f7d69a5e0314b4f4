// Package store persists outreach settings and the activity log.
// Two backends implement the same contract: SQLite for a single machine and
// Redis for a shared deployment.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"outreach/internal/types"

	"github.com/google/uuid"
)

// ErrNotFound is returned by KV.Get for a missing key.
var ErrNotFound = errors.New("store: not found")

// DefaultLogCap is the number of log entries retained.
const DefaultLogCap = 200

// EventType classifies a log entry.
type EventType string

const (
	EventDryRunPreview     EventType = "dry_run_preview"
	EventProfileEvaluation EventType = "profile_evaluation"
	EventInviteSent        EventType = "invite_sent"
	EventInviteFailed      EventType = "invite_failed"
	EventDailyLimitReached EventType = "daily_limit_reached"
	EventEngineState       EventType = "engine_state"
	EventEngineError       EventType = "engine_error"
	EventPageAdvanced      EventType = "page_advanced"
	EventRunEnded          EventType = "run_ended"
)

// LogEntry is one activity log record.
type LogEntry struct {
	ID         string                `json:"id"`
	Timestamp  int64                 `json:"timestamp"` // unix ms
	EventType  EventType             `json:"eventType"`
	OpID       string                `json:"opId,omitempty"`
	RunID      string                `json:"runId,omitempty"`
	Decision   string                `json:"decision,omitempty"`
	ReasonCode string                `json:"reasonCode,omitempty"`
	Reason     string                `json:"reason,omitempty"`
	Profile    *types.ProfileSummary `json:"profile,omitempty"`
	Message    string                `json:"message,omitempty"`
	NoteUsed   *bool                 `json:"noteUsed,omitempty"`
	Page       int                   `json:"page,omitempty"`
}

// Time returns the entry timestamp.
func (e LogEntry) Time() time.Time { return time.UnixMilli(e.Timestamp) }

// KV is a JSON key-value store.
type KV interface {
	Get(ctx context.Context, key string, dst any) error
	Set(ctx context.Context, key string, value any) error
	Delete(ctx context.Context, key string) error
}

// LogSink is a bounded, newest-first activity log.
type LogSink interface {
	// Append adds a batch on top of the log; batch[0] becomes the newest
	// entry. Entries beyond the cap are evicted oldest first.
	Append(ctx context.Context, entries []LogEntry) error
	// Recent returns up to limit entries, newest first. limit <= 0 returns all.
	Recent(ctx context.Context, limit int) ([]LogEntry, error)
	Clear(ctx context.Context) error
}

// Store combines settings and log persistence.
type Store interface {
	KV
	LogSink
	Close() error
}

// Options selects and configures a backend.
type Options struct {
	Backend       string // sqlite, redis
	Path          string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
	LogCap        int
}

// Open creates the backend named by opts.Backend.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case "", "sqlite":
		s, err := NewSQLiteStore(opts.Path, opts.LogCap)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "redis":
		s, err := NewRedisStore(ctx, RedisOptions{
			Addr:     opts.RedisAddr,
			Password: opts.RedisPassword,
			DB:       opts.RedisDB,
			Prefix:   opts.RedisPrefix,
			LogCap:   opts.LogCap,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", opts.Backend)
	}
}

// normalizeBatch fills missing ids and timestamps. The input is not modified.
func normalizeBatch(entries []LogEntry, now time.Time) []LogEntry {
	out := make([]LogEntry, len(entries))
	for i, e := range entries {
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		if e.Timestamp == 0 {
			e.Timestamp = now.UnixMilli()
		}
		out[i] = e
	}
	return out
}

func capOrDefault(n int) int {
	if n <= 0 {
		return DefaultLogCap
	}
	return n
}
