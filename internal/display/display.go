// Package display receives rendered content views after every successful
// mutation so an external surface (a posted message, a dashboard) can stay
// in sync with stored state.
package display

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/Shivanand-hulikatti/content-roster/internal/roster"
)

// Display is the refresh sink.
type Display interface {
	Refresh(ctx context.Context, v roster.View) error
}

// Remover is implemented by displays that hold state per content and need
// to drop it when the content is deleted.
type Remover interface {
	Remove(ctx context.Context, contentID int64) error
}

// Log writes each refreshed view to a structured logger.
type Log struct {
	logger *slog.Logger
}

// NewLog returns a Log writing to logger, or to slog.Default when nil.
func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger}
}

func (l *Log) Refresh(ctx context.Context, v roster.View) error {
	l.logger.InfoContext(ctx, "display refreshed",
		slog.Int64("content_id", v.ContentID),
		slog.String("external_ref", v.ExternalRef),
		slog.String("channel_ref", v.ChannelRef),
		slog.String("title", v.Title),
	)
	if l.logger.Enabled(ctx, slog.LevelDebug) {
		l.logger.DebugContext(ctx, "display view",
			slog.Int64("content_id", v.ContentID),
			slog.String("text", v.Text()),
		)
	}
	return nil
}

// Entry is the latest view of one content on a Board.
type Entry struct {
	View    roster.View `json:"view"`
	Version int         `json:"version"`
}

// Board keeps the latest view per content id. Version increases only when
// the view actually changes.
type Board struct {
	mu      sync.RWMutex
	entries map[int64]Entry
}

func NewBoard() *Board {
	return &Board{entries: make(map[int64]Entry)}
}

func (b *Board) Refresh(_ context.Context, v roster.View) error {
	b.Update(v)
	return nil
}

// Update stores v and reports whether it differs from the previous view.
func (b *Board) Update(v roster.View) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	cur, ok := b.entries[v.ContentID]
	if ok && cur.View == v {
		return false
	}
	b.entries[v.ContentID] = Entry{View: v, Version: cur.Version + 1}
	return true
}

// Get returns the latest entry for a content.
func (b *Board) Get(contentID int64) (Entry, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	e, ok := b.entries[contentID]
	return e, ok
}

func (b *Board) Remove(_ context.Context, contentID int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.entries, contentID)
	return nil
}

// Multi fans a refresh out to every display, in order. All displays are
// tried; their errors are joined.
type Multi []Display

func (m Multi) Refresh(ctx context.Context, v roster.View) error {
	var errs []error
	for _, d := range m {
		if err := d.Refresh(ctx, v); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Remove(ctx context.Context, contentID int64) error {
	var errs []error
	for _, d := range m {
		if r, ok := d.(Remover); ok {
			if err := r.Remove(ctx, contentID); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
