// Package repository implements persistence for templates and content
// instances. Three stores satisfy the same interfaces: PostgreSQL (pgx),
// SQLite (modernc) and an in-memory store used for tests and local runs.
//
// Every write to a content row replaces its revision token. Writers pass
// the revision they loaded; a mismatch means another writer got there
// first and the write is refused with model.ErrStaleRevision.
package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Shivanand-hulikatti/content-roster/internal/model"
	"github.com/google/uuid"
)

// AnyRevision skips the revision check on a write.
const AnyRevision = ""

// ContentStore persists content instances.
type ContentStore interface {
	CreateContent(ctx context.Context, c model.NewContent) (int64, error)
	GetContent(ctx context.Context, id int64) (*model.Content, error)
	GetContentByExternalRef(ctx context.Context, externalRef string) (*model.Content, error)
	// ListActiveContents returns the channel's contents, most recent first.
	ListActiveContents(ctx context.Context, channelRef string) ([]model.Content, error)
	ReplaceSlotMatrix(ctx context.Context, id int64, revision string, m model.SlotMatrix) (string, error)
	ReplaceSignups(ctx context.Context, id int64, revision string, signups []model.Signup) (string, error)
	ReplaceRoster(ctx context.Context, id int64, revision string, m model.SlotMatrix, signups []model.Signup) (string, error)
	DeleteContent(ctx context.Context, id int64) error
}

// TemplateStore persists templates.
type TemplateStore interface {
	GetTemplate(ctx context.Context, name string) (*model.TemplateRecord, error)
	SaveTemplate(ctx context.Context, name string, parties [][]string) error
	// ListTemplateNames returns names in ascending order.
	ListTemplateNames(ctx context.Context) ([]string, error)
	DeleteTemplate(ctx context.Context, name string) error
}

// Store is a backend providing both stores.
type Store interface {
	ContentStore
	TemplateStore
	Close() error
}

func newRevision() string {
	return uuid.NewString()
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, model.ErrStorage, err)
}

// rosterUpdate carries the JSON columns of a write; nil leaves a column as is.
type rosterUpdate struct {
	slots   *string
	signups *string
}

func encodeUpdate(m model.SlotMatrix, setSlots bool, signups []model.Signup, setSignups bool) (rosterUpdate, error) {
	var u rosterUpdate
	if setSlots {
		s, err := encodeSlots(m)
		if err != nil {
			return u, err
		}
		u.slots = &s
	}
	if setSignups {
		s, err := encodeSignups(signups)
		if err != nil {
			return u, err
		}
		u.signups = &s
	}
	return u, nil
}

func encodeSlots(m model.SlotMatrix) (string, error) {
	if m == nil {
		m = model.SlotMatrix{}
	}
	for i := range m {
		if m[i] == nil {
			m[i] = []string{}
		}
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("encode slots: %w", err)
	}
	return string(b), nil
}

func encodeSignups(s []model.Signup) (string, error) {
	if s == nil {
		s = []model.Signup{}
	}
	b, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("encode signups: %w", err)
	}
	return string(b), nil
}

func encodeParties(parties [][]string) (string, error) {
	b, err := json.Marshal(parties)
	if err != nil {
		return "", fmt.Errorf("encode template: %w", err)
	}
	return string(b), nil
}

// decodeColumns fills the JSON columns of a loaded row. Rows written by
// older versions may hold NULL or empty signups.
func decodeColumns(c *model.Content, slots, signups string) error {
	c.Slots = model.SlotMatrix{}
	if slots != "" {
		if err := json.Unmarshal([]byte(slots), &c.Slots); err != nil {
			return fmt.Errorf("content %d slots: %w: %v", c.ID, model.ErrDataCorruption, err)
		}
	}
	for i := range c.Slots {
		if c.Slots[i] == nil {
			c.Slots[i] = []string{}
		}
	}
	c.Signups = []model.Signup{}
	if signups != "" {
		if err := json.Unmarshal([]byte(signups), &c.Signups); err != nil {
			return fmt.Errorf("content %d signups: %w: %v", c.ID, model.ErrDataCorruption, err)
		}
	}
	return nil
}
