package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"

	"github.com/Shivanand-hulikatti/content-roster/internal/model"
)

// MemoryStore keeps everything in process. Reads return copies and writes
// store copies, so callers never share state with the store.
type MemoryStore struct {
	mu        sync.RWMutex
	nextID    int64
	contents  map[int64]*model.Content
	templates map[string]json.RawMessage

	// failWrites, when set, makes every write fail with it. Tests use it to
	// simulate a storage outage.
	failWrites error
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		contents:  make(map[int64]*model.Content),
		templates: make(map[string]json.RawMessage),
	}
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }

// FailWrites makes subsequent writes fail with err; nil restores them.
func (s *MemoryStore) FailWrites(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWrites = err
}

// PutTemplateRaw stores a roles payload verbatim, in any legacy shape.
func (s *MemoryStore) PutTemplateRaw(name string, roles json.RawMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.templates[name] = slices.Clone(roles)
}

// CreateContent stores a new content and returns its id.
func (s *MemoryStore) CreateContent(_ context.Context, c model.NewContent) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWrites != nil {
		return 0, storageErr("insert content", s.failWrites)
	}
	s.nextID++
	slots := c.Slots.Clone()
	if slots == nil {
		slots = model.SlotMatrix{}
	}
	s.contents[s.nextID] = &model.Content{
		ID:           s.nextID,
		ExternalRef:  c.ExternalRef,
		ChannelRef:   c.ChannelRef,
		Name:         c.Name,
		TemplateName: c.TemplateName,
		Description:  c.Description,
		Slots:        slots,
		Signups:      []model.Signup{},
		Revision:     newRevision(),
	}
	return s.nextID, nil
}

// GetContent returns a copy of a content.
func (s *MemoryStore) GetContent(_ context.Context, id int64) (*model.Content, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.contents[id]
	if !ok {
		return nil, model.ErrContentNotFound
	}
	return c.Clone(), nil
}

// GetContentByExternalRef returns the newest content with the given handle.
func (s *MemoryStore) GetContentByExternalRef(_ context.Context, externalRef string) (*model.Content, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var found *model.Content
	for _, c := range s.contents {
		if c.ExternalRef == externalRef && (found == nil || c.ID > found.ID) {
			found = c
		}
	}
	if found == nil {
		return nil, model.ErrContentNotFound
	}
	return found.Clone(), nil
}

// ListActiveContents returns a channel's contents, newest first.
func (s *MemoryStore) ListActiveContents(_ context.Context, channelRef string) ([]model.Content, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []model.Content{}
	for _, c := range s.contents {
		if c.ChannelRef == channelRef {
			out = append(out, *c.Clone())
		}
	}
	slices.SortFunc(out, func(a, b model.Content) int { return int(b.ID - a.ID) })
	return out, nil
}

// ReplaceSlotMatrix overwrites the slot matrix.
func (s *MemoryStore) ReplaceSlotMatrix(_ context.Context, id int64, revision string, m model.SlotMatrix) (string, error) {
	return s.write(id, revision, func(c *model.Content) { c.Slots = m.Clone() })
}

// ReplaceSignups overwrites the waitlist.
func (s *MemoryStore) ReplaceSignups(_ context.Context, id int64, revision string, signups []model.Signup) (string, error) {
	return s.write(id, revision, func(c *model.Content) { c.Signups = model.CloneSignups(signups) })
}

// ReplaceRoster overwrites slot matrix and waitlist in one write.
func (s *MemoryStore) ReplaceRoster(_ context.Context, id int64, revision string, m model.SlotMatrix, signups []model.Signup) (string, error) {
	return s.write(id, revision, func(c *model.Content) {
		c.Slots = m.Clone()
		c.Signups = model.CloneSignups(signups)
	})
}

func (s *MemoryStore) write(id int64, revision string, apply func(*model.Content)) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWrites != nil {
		return "", storageErr("update content", s.failWrites)
	}
	c, ok := s.contents[id]
	if !ok {
		return "", model.ErrContentNotFound
	}
	if revision != AnyRevision && revision != c.Revision {
		return "", fmt.Errorf("content %d: %w", id, model.ErrStaleRevision)
	}
	apply(c)
	if c.Signups == nil {
		c.Signups = []model.Signup{}
	}
	c.Revision = newRevision()
	return c.Revision, nil
}

// DeleteContent removes a content.
func (s *MemoryStore) DeleteContent(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWrites != nil {
		return storageErr("delete content", s.failWrites)
	}
	if _, ok := s.contents[id]; !ok {
		return model.ErrContentNotFound
	}
	delete(s.contents, id)
	return nil
}

// GetTemplate returns the stored roles payload of a template.
func (s *MemoryStore) GetTemplate(_ context.Context, name string) (*model.TemplateRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	roles, ok := s.templates[name]
	if !ok {
		return nil, model.ErrTemplateNotFound
	}
	return &model.TemplateRecord{Name: name, Roles: slices.Clone(roles)}, nil
}

// SaveTemplate inserts or replaces a template wholesale.
func (s *MemoryStore) SaveTemplate(_ context.Context, name string, parties [][]string) error {
	roles, err := encodeParties(parties)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWrites != nil {
		return storageErr("save template", s.failWrites)
	}
	s.templates[name] = json.RawMessage(roles)
	return nil
}

// ListTemplateNames returns every template name, sorted.
func (s *MemoryStore) ListTemplateNames(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.templates))
	for name := range s.templates {
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}

// DeleteTemplate removes a template. Contents built from it are untouched.
func (s *MemoryStore) DeleteTemplate(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.templates[name]; !ok {
		return model.ErrTemplateNotFound
	}
	delete(s.templates, name)
	return nil
}
