// Package service implements business logic, validation, and orchestration
// between HTTP handlers, the roster engine and the repository layer.
//
// Every mutation of a content runs as one critical section per content id:
// load, mutate a private copy, persist the copy, refresh the display. A
// failure anywhere before the persist leaves stored state untouched.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Shivanand-hulikatti/content-roster/internal/display"
	"github.com/Shivanand-hulikatti/content-roster/internal/model"
	"github.com/Shivanand-hulikatti/content-roster/internal/repository"
	"github.com/Shivanand-hulikatti/content-roster/internal/roster"
)

// Player sources for PlayerChoices.
const (
	SourceTable    = "table"
	SourceWaitlist = "waitlist"
)

// Outcome is the result of a mutating command.
type Outcome struct {
	// Placement is set by Assign and DirectRegister.
	Placement *roster.Placement `json:"placement,omitempty"`
	// Removed counts slot or waitlist entries removed by Unassign, Cancel
	// and Kick. Zero means the player was not found.
	Removed int            `json:"removed"`
	Content *model.Content `json:"content"`
}

// RosterService orchestrates content instances: creation, slot assignment,
// the waitlist, reference resolution and display refresh.
type RosterService struct {
	store   repository.Store
	display display.Display
	locks   *keyedLock
}

// NewRosterService constructs a RosterService. A nil display disables
// refreshes.
func NewRosterService(store repository.Store, d display.Display) *RosterService {
	return &RosterService{store: store, display: d, locks: newKeyedLock()}
}

// ─── Lookup ───────────────────────────────────────────────────────────────────

// Resolve turns a user-supplied reference into a content, scoped to channelRef.
func (s *RosterService) Resolve(ctx context.Context, ref, channelRef string) (*model.Content, error) {
	return roster.Resolve(ctx, s.store, ref, channelRef)
}

// Get returns a content by id.
func (s *RosterService) Get(ctx context.Context, id int64) (*model.Content, error) {
	return s.store.GetContent(ctx, id)
}

// ByExternalRef returns the content displayed under externalRef.
func (s *RosterService) ByExternalRef(ctx context.Context, externalRef string) (*model.Content, error) {
	if strings.TrimSpace(externalRef) == "" {
		return nil, fmt.Errorf("%w: external ref is required", model.ErrInvalid)
	}
	return s.store.GetContentByExternalRef(ctx, externalRef)
}

// ─── Lifecycle ────────────────────────────────────────────────────────────────

// Create validates the request, pins the slot matrix to the template's
// flattened role count and stores a new content.
func (s *RosterService) Create(ctx context.Context, req model.CreateContentRequest) (*model.Content, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.TemplateName = strings.TrimSpace(req.TemplateName)
	if req.Name == "" {
		return nil, fmt.Errorf("%w: content name is required", model.ErrInvalid)
	}
	if req.TemplateName == "" {
		return nil, fmt.Errorf("%w: template name is required", model.ErrInvalid)
	}

	tpl, err := loadTemplate(ctx, s.store, req.TemplateName)
	if err != nil {
		return nil, err
	}

	id, err := s.store.CreateContent(ctx, model.NewContent{
		Name:         req.Name,
		TemplateName: tpl.Name,
		ChannelRef:   req.ChannelRef,
		ExternalRef:  req.ExternalRef,
		Description:  req.Description,
		Slots:        model.NewSlotMatrix(tpl.RoleCount()),
	})
	if err != nil {
		return nil, fmt.Errorf("create content: %w", err)
	}

	// The id is visible to other callers from here on; load and push
	// under its lock like any mutation.
	unlock, err := s.locks.acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()
	c, err := s.store.GetContent(ctx, id)
	if err != nil {
		return nil, err
	}

	slog.Info("content created",
		slog.Int64("content_id", id),
		slog.String("template", tpl.Name),
		slog.String("channel_ref", c.ChannelRef),
	)
	s.refresh(ctx, c)
	return c, nil
}

// Delete removes a content and drops it from displays that keep state.
func (s *RosterService) Delete(ctx context.Context, id int64) error {
	unlock, err := s.locks.acquire(ctx, id)
	if err != nil {
		return err
	}
	defer unlock()

	if err := s.store.DeleteContent(ctx, id); err != nil {
		return err
	}
	slog.Info("content deleted", slog.Int64("content_id", id))

	if r, ok := s.display.(display.Remover); ok {
		if err := r.Remove(ctx, id); err != nil {
			slog.Warn("display remove failed", slog.Int64("content_id", id), slog.String("error", err.Error()))
		}
	}
	return nil
}

// ─── Slot matrix ──────────────────────────────────────────────────────────────

// Assign edits the table: places player into the first empty slot whose role
// matches query, or with an empty player or "-" clears every matching slot.
// A placed player leaves the waitlist.
func (s *RosterService) Assign(ctx context.Context, id int64, query, player string) (*Outcome, error) {
	return s.place(ctx, id, "assign", query, player, roster.AssignAndGraduate)
}

// DirectRegister adds player to the table with Assign's placement rules and
// no clear path.
func (s *RosterService) DirectRegister(ctx context.Context, id int64, query, player string) (*Outcome, error) {
	return s.place(ctx, id, "register", query, player, roster.RegisterAndGraduate)
}

type placeFunc func(model.SlotMatrix, []model.Signup, []string, string, string) (roster.Placement, []model.Signup, error)

func (s *RosterService) place(ctx context.Context, id int64, op, query, player string, fn placeFunc) (*Outcome, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: role is required", model.ErrInvalid)
	}
	var res roster.Placement
	c, err := s.mutate(ctx, id, op, func(c *model.Content) (change, error) {
		tpl, err := loadTemplate(ctx, s.store, c.TemplateName)
		if err != nil {
			return change{}, err
		}
		res, c.Signups, err = fn(c.Slots, c.Signups, tpl.Flat(), query, player)
		if err != nil {
			return change{}, err
		}
		return change{
			slots:   res.Placed() || res.Cleared > 0,
			signups: res.Graduated > 0,
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return &Outcome{Placement: &res, Content: c}, nil
}

// Unassign removes player from every slot holding them.
func (s *RosterService) Unassign(ctx context.Context, id int64, player string) (*Outcome, error) {
	if strings.TrimSpace(player) == "" {
		return nil, fmt.Errorf("%w: player name is required", model.ErrInvalid)
	}
	var removed int
	c, err := s.mutate(ctx, id, "unassign", func(c *model.Content) (change, error) {
		removed = roster.Unassign(c.Slots, player)
		return change{slots: removed > 0}, nil
	})
	if err != nil {
		return nil, err
	}
	return &Outcome{Removed: removed, Content: c}, nil
}

// ─── Waitlist ─────────────────────────────────────────────────────────────────

// Join appends a waitlist entry.
func (s *RosterService) Join(ctx context.Context, id int64, req model.SignupRequest) (*Outcome, error) {
	c, err := s.mutate(ctx, id, "join", func(c *model.Content) (change, error) {
		var err error
		c.Signups, err = roster.Register(c.Signups, model.Signup{
			UserID:      req.UserID,
			DisplayName: req.Name,
			RoleText:    req.Role,
		})
		return change{signups: err == nil}, err
	})
	if err != nil {
		return nil, err
	}
	return &Outcome{Content: c}, nil
}

// Cancel removes the waitlist entry of userID.
func (s *RosterService) Cancel(ctx context.Context, id, userID int64) (*Outcome, error) {
	if userID == 0 {
		return nil, fmt.Errorf("%w: user id is required", model.ErrInvalid)
	}
	var removed int
	c, err := s.mutate(ctx, id, "cancel", func(c *model.Content) (change, error) {
		c.Signups, removed = roster.Cancel(c.Signups, userID)
		return change{signups: removed > 0}, nil
	})
	if err != nil {
		return nil, err
	}
	return &Outcome{Removed: removed, Content: c}, nil
}

// Kick removes waitlist entries by display name, whoever added them.
func (s *RosterService) Kick(ctx context.Context, id int64, name string) (*Outcome, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: player name is required", model.ErrInvalid)
	}
	var removed int
	c, err := s.mutate(ctx, id, "kick", func(c *model.Content) (change, error) {
		c.Signups, removed = roster.Kick(c.Signups, name)
		return change{signups: removed > 0}, nil
	})
	if err != nil {
		return nil, err
	}
	return &Outcome{Removed: removed, Content: c}, nil
}

// JoinByExternalRef is Join for the content displayed under externalRef.
func (s *RosterService) JoinByExternalRef(ctx context.Context, externalRef string, req model.SignupRequest) (*Outcome, error) {
	c, err := s.ByExternalRef(ctx, externalRef)
	if err != nil {
		return nil, err
	}
	return s.Join(ctx, c.ID, req)
}

// CancelByExternalRef is Cancel for the content displayed under externalRef.
func (s *RosterService) CancelByExternalRef(ctx context.Context, externalRef string, userID int64) (*Outcome, error) {
	c, err := s.ByExternalRef(ctx, externalRef)
	if err != nil {
		return nil, err
	}
	return s.Cancel(ctx, c.ID, userID)
}

// ─── Rendering ────────────────────────────────────────────────────────────────

// View renders a content. A missing or unreadable template degrades the
// body instead of failing.
func (s *RosterService) View(ctx context.Context, id int64) (roster.View, error) {
	c, err := s.store.GetContent(ctx, id)
	if err != nil {
		return roster.View{}, err
	}
	return s.render(ctx, c), nil
}

// RefreshDisplay renders a content and pushes it to the display. It holds
// the content's lock so a concurrent mutation cannot be overwritten by an
// older view, and a deleted content is not pushed back.
func (s *RosterService) RefreshDisplay(ctx context.Context, id int64) error {
	unlock, err := s.locks.acquire(ctx, id)
	if err != nil {
		return err
	}
	defer unlock()

	v, err := s.View(ctx, id)
	if err != nil {
		return err
	}
	if s.display == nil {
		return nil
	}
	return s.display.Refresh(ctx, v)
}

// ResolveID is Resolve returning only the id.
func (s *RosterService) ResolveID(ctx context.Context, ref, channelRef string) (int64, error) {
	return roster.ResolveID(ctx, s.store, ref, channelRef)
}

func (s *RosterService) render(ctx context.Context, c *model.Content) roster.View {
	tpl, err := loadTemplate(ctx, s.store, c.TemplateName)
	if errors.Is(err, model.ErrNotFound) {
		tpl, err = nil, nil
	}
	return roster.RenderContent(c, tpl, err)
}

// refresh is the post-mutation push. Failures are logged, not returned:
// the mutation is already persisted.
func (s *RosterService) refresh(ctx context.Context, c *model.Content) {
	if s.display == nil {
		return
	}
	if err := s.display.Refresh(ctx, s.render(ctx, c)); err != nil {
		slog.Warn("display refresh failed",
			slog.Int64("content_id", c.ID),
			slog.String("error", err.Error()),
		)
	}
}

// ─── Autocomplete ─────────────────────────────────────────────────────────────

// ContentChoices offers the channel's contents as "name - id".
func (s *RosterService) ContentChoices(ctx context.Context, channelRef, current string) ([]model.Choice, error) {
	contents, err := s.store.ListActiveContents(ctx, channelRef)
	if err != nil {
		return nil, err
	}
	return roster.ContentChoices(contents, current), nil
}

// RoleChoices offers the distinct role names of a content's template.
func (s *RosterService) RoleChoices(ctx context.Context, id int64, current string) ([]model.Choice, error) {
	c, err := s.store.GetContent(ctx, id)
	if err != nil {
		return nil, err
	}
	tpl, err := loadTemplate(ctx, s.store, c.TemplateName)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var roles []string
	for _, r := range tpl.Flat() {
		if !seen[r] {
			seen[r] = true
			roles = append(roles, r)
		}
	}
	return roster.FilterChoices(roles, current), nil
}

// PlayerChoices offers the players on the table or on the waitlist.
func (s *RosterService) PlayerChoices(ctx context.Context, id int64, source, current string) ([]model.Choice, error) {
	c, err := s.store.GetContent(ctx, id)
	if err != nil {
		return nil, err
	}
	switch source {
	case "", SourceTable:
		return roster.FilterChoices(roster.TablePlayers(c.Slots), current), nil
	case SourceWaitlist:
		return roster.FilterChoices(roster.WaitlistNames(c.Signups), current), nil
	default:
		return nil, fmt.Errorf("%w: unknown player source %q", model.ErrInvalid, source)
	}
}

// ─── Critical section ─────────────────────────────────────────────────────────

// change says which parts of the aggregate a command modified.
type change struct {
	slots   bool
	signups bool
}

// mutate runs fn on a private copy of content id while holding the id's
// lock, persists what fn changed and refreshes the display. Nothing is
// written when fn fails, when it changes nothing, or when ctx is done.
func (s *RosterService) mutate(ctx context.Context, id int64, op string, fn func(*model.Content) (change, error)) (*model.Content, error) {
	unlock, err := s.locks.acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	cur, err := s.store.GetContent(ctx, id)
	if err != nil {
		return nil, err
	}
	work := cur.Clone()

	ch, err := fn(work)
	if err != nil {
		return nil, err
	}
	if !ch.slots && !ch.signups {
		return work, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rev, err := s.persist(ctx, work, ch)
	if err != nil {
		slog.Error("content update failed",
			slog.Int64("content_id", id),
			slog.String("op", op),
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	work.Revision = rev

	slog.Info("content updated",
		slog.Int64("content_id", id),
		slog.String("op", op),
		slog.Bool("slots", ch.slots),
		slog.Bool("signups", ch.signups),
	)
	s.refresh(ctx, work)
	return work, nil
}

func (s *RosterService) persist(ctx context.Context, c *model.Content, ch change) (string, error) {
	switch {
	case ch.slots && ch.signups:
		return s.store.ReplaceRoster(ctx, c.ID, c.Revision, c.Slots, c.Signups)
	case ch.slots:
		return s.store.ReplaceSlotMatrix(ctx, c.ID, c.Revision, c.Slots)
	default:
		return s.store.ReplaceSignups(ctx, c.ID, c.Revision, c.Signups)
	}
}

func loadTemplate(ctx context.Context, store repository.TemplateStore, name string) (*model.Template, error) {
	rec, err := store.GetTemplate(ctx, name)
	if err != nil {
		return nil, err
	}
	return roster.DecodeTemplate(rec)
}
