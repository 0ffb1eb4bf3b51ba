package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shivanand-hulikatti/content-roster/internal/display"
	"github.com/Shivanand-hulikatti/content-roster/internal/model"
	"github.com/Shivanand-hulikatti/content-roster/internal/repository"
	"github.com/Shivanand-hulikatti/content-roster/internal/roster"
	"github.com/Shivanand-hulikatti/content-roster/internal/service"
)

type fixture struct {
	store *repository.MemoryStore
	board *display.Board
	svc   *service.RosterService
}

func newFixture(t *testing.T, templates map[string][][]string) *fixture {
	t.Helper()
	store := repository.NewMemoryStore()
	for name, parties := range templates {
		require.NoError(t, store.SaveTemplate(context.Background(), name, parties))
	}
	board := display.NewBoard()
	return &fixture{store: store, board: board, svc: service.NewRosterService(store, board)}
}

func (f *fixture) create(t *testing.T, name, tpl string) *model.Content {
	t.Helper()
	c, err := f.svc.Create(context.Background(), model.CreateContentRequest{
		Name:         name,
		TemplateName: tpl,
		ChannelRef:   "chan-1",
		ExternalRef:  "msg-" + name,
	})
	require.NoError(t, err)
	return c
}

func (f *fixture) stored(t *testing.T, id int64) *model.Content {
	t.Helper()
	c, err := f.store.GetContent(context.Background(), id)
	require.NoError(t, err)
	return c
}

var zvz = map[string][][]string{"zvz": {{"Tank", "Healer", "DPS"}}}

type failingDisplay struct{}

func (failingDisplay) Refresh(context.Context, roster.View) error { return errors.New("surface gone") }

func TestCreate(t *testing.T) {
	f := newFixture(t, map[string][][]string{"raid": {{"Tank", "Healer"}, {"DPS", "DPS", "Support"}}})
	ctx := context.Background()

	c := f.create(t, "Castle", "raid")
	assert.Len(t, c.Slots, 5, "matrix pinned to flattened role count")
	assert.Empty(t, c.Signups)

	e, ok := f.board.Get(c.ID)
	require.True(t, ok, "creation refreshes the display")
	assert.Contains(t, e.View.Body, "Party 2")

	_, err := f.svc.Create(ctx, model.CreateContentRequest{Name: "X", TemplateName: "missing"})
	assert.ErrorIs(t, err, model.ErrTemplateNotFound)

	_, err = f.svc.Create(ctx, model.CreateContentRequest{Name: "  ", TemplateName: "raid"})
	assert.ErrorIs(t, err, model.ErrInvalid)
}

func TestAssign_FirstFit(t *testing.T) {
	f := newFixture(t, zvz)
	c := f.create(t, "Castle", "zvz")

	out, err := f.svc.Assign(context.Background(), c.ID, "he", "Alice")
	require.NoError(t, err)
	require.NotNil(t, out.Placement)
	assert.Equal(t, 1, out.Placement.Index)
	assert.Equal(t, "Healer", out.Placement.Role)

	got := f.stored(t, c.ID)
	assert.Equal(t, model.SlotMatrix{{}, {"Alice"}, {}}, got.Slots)
	assert.NotEqual(t, c.Revision, got.Revision)
	assert.Equal(t, got.Revision, out.Content.Revision)

	e, _ := f.board.Get(c.ID)
	assert.Contains(t, e.View.Body, "Alice")
}

func TestAssign_DuplicateGuardPrecedesPlacement(t *testing.T) {
	f := newFixture(t, zvz)
	c := f.create(t, "Castle", "zvz")
	ctx := context.Background()

	_, err := f.svc.Assign(ctx, c.ID, "tank", "Alice")
	require.NoError(t, err)
	before := f.stored(t, c.ID)

	_, err = f.svc.Assign(ctx, c.ID, "dps", "alice")
	assert.ErrorIs(t, err, model.ErrAlreadyAssigned)
	assert.ErrorIs(t, err, model.ErrConflict)
	assert.Equal(t, before, f.stored(t, c.ID), "nothing persisted")

	_, err = f.svc.DirectRegister(ctx, c.ID, "dps", "ALICE")
	assert.ErrorIs(t, err, model.ErrConflict)
}

func TestAssign_SlotsFullAndNoMatch(t *testing.T) {
	f := newFixture(t, zvz)
	c := f.create(t, "Castle", "zvz")
	ctx := context.Background()

	_, err := f.svc.Assign(ctx, c.ID, "tank", "Alice")
	require.NoError(t, err)

	_, err = f.svc.Assign(ctx, c.ID, "tank", "Bob")
	assert.ErrorIs(t, err, model.ErrSlotsFull)

	_, err = f.svc.Assign(ctx, c.ID, "bard", "Bob")
	assert.ErrorIs(t, err, model.ErrNoMatch)
}

func TestAssign_BulkClear(t *testing.T) {
	f := newFixture(t, map[string][][]string{"tanks": {{"Main Tank", "Off Tank", "Healer"}}})
	c := f.create(t, "Keep", "tanks")
	ctx := context.Background()

	_, err := f.svc.Assign(ctx, c.ID, "main", "Alice")
	require.NoError(t, err)
	_, err = f.svc.Assign(ctx, c.ID, "off", "Bob")
	require.NoError(t, err)
	_, err = f.svc.Assign(ctx, c.ID, "healer", "Carol")
	require.NoError(t, err)

	out, err := f.svc.Assign(ctx, c.ID, "tank", roster.ClearSentinel)
	require.NoError(t, err)
	assert.Equal(t, 2, out.Placement.Cleared)
	assert.Equal(t, model.SlotMatrix{{}, {}, {"Carol"}}, f.stored(t, c.ID).Slots)

	rev := f.stored(t, c.ID).Revision
	out, err = f.svc.Assign(ctx, c.ID, "tank", "")
	require.NoError(t, err)
	assert.Zero(t, out.Placement.Cleared)
	assert.Equal(t, rev, f.stored(t, c.ID).Revision, "no-op clear writes nothing")
}

func TestAssign_AutoGraduation(t *testing.T) {
	f := newFixture(t, zvz)
	c := f.create(t, "Castle", "zvz")
	ctx := context.Background()

	_, err := f.svc.Join(ctx, c.ID, model.SignupRequest{UserID: 42, Name: "Bob", Role: "Tank"})
	require.NoError(t, err)
	_, err = f.svc.Join(ctx, c.ID, model.SignupRequest{UserID: 43, Name: "Dave", Role: "DPS"})
	require.NoError(t, err)

	out, err := f.svc.Assign(ctx, c.ID, "tank", "Bob")
	require.NoError(t, err)
	assert.Equal(t, 1, out.Placement.Graduated)

	got := f.stored(t, c.ID)
	assert.Equal(t, model.SlotMatrix{{"Bob"}, {}, {}}, got.Slots)
	require.Len(t, got.Signups, 1)
	assert.Equal(t, int64(43), got.Signups[0].UserID)

	out, err = f.svc.DirectRegister(ctx, c.ID, "dps", "dave")
	require.NoError(t, err)
	assert.Equal(t, 1, out.Placement.Graduated)
	assert.Empty(t, f.stored(t, c.ID).Signups)
}

func TestUnassign(t *testing.T) {
	f := newFixture(t, zvz)
	c := f.create(t, "Castle", "zvz")
	ctx := context.Background()

	_, err := f.store.ReplaceSlotMatrix(ctx, c.ID, repository.AnyRevision, model.SlotMatrix{{"Alice"}, {"Bob", "alice"}, {}})
	require.NoError(t, err)

	out, err := f.svc.Unassign(ctx, c.ID, "ALICE")
	require.NoError(t, err)
	assert.Equal(t, 2, out.Removed)
	assert.Equal(t, model.SlotMatrix{{}, {"Bob"}, {}}, f.stored(t, c.ID).Slots)

	rev := f.stored(t, c.ID).Revision
	out, err = f.svc.Unassign(ctx, c.ID, "Zed")
	require.NoError(t, err)
	assert.Zero(t, out.Removed)
	assert.Equal(t, rev, f.stored(t, c.ID).Revision)
}

func TestWaitlist(t *testing.T) {
	f := newFixture(t, zvz)
	c := f.create(t, "Castle", "zvz")
	ctx := context.Background()

	_, err := f.svc.JoinByExternalRef(ctx, "msg-Castle", model.SignupRequest{UserID: 42, Name: "Bob", Role: "Tank"})
	require.NoError(t, err)
	_, err = f.svc.Join(ctx, c.ID, model.SignupRequest{UserID: 42, Name: "Robert"})
	assert.ErrorIs(t, err, model.ErrAlreadySignedUp)

	_, err = f.svc.Join(ctx, c.ID, model.SignupRequest{Name: "Guest", Role: "any"})
	require.NoError(t, err)
	_, err = f.svc.Join(ctx, c.ID, model.SignupRequest{Name: "guest"})
	assert.ErrorIs(t, err, model.ErrAlreadySignedUp)

	e, _ := f.board.Get(c.ID)
	assert.Contains(t, e.View.Waitlist, "<@42> (Tank)")
	assert.Contains(t, e.View.Waitlist, "Guest (any)")

	out, err := f.svc.Kick(ctx, c.ID, "GUEST")
	require.NoError(t, err)
	assert.Equal(t, 1, out.Removed)

	out, err = f.svc.CancelByExternalRef(ctx, "msg-Castle", 42)
	require.NoError(t, err)
	assert.Equal(t, 1, out.Removed)
	assert.Empty(t, f.stored(t, c.ID).Signups)

	out, err = f.svc.Cancel(ctx, c.ID, 42)
	require.NoError(t, err)
	assert.Zero(t, out.Removed)

	_, err = f.svc.JoinByExternalRef(ctx, "msg-unknown", model.SignupRequest{UserID: 1, Name: "X"})
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestMutation_StorageFailureLeavesStateIntact(t *testing.T) {
	f := newFixture(t, zvz)
	c := f.create(t, "Castle", "zvz")
	ctx := context.Background()
	_, err := f.svc.Join(ctx, c.ID, model.SignupRequest{UserID: 42, Name: "Bob"})
	require.NoError(t, err)
	before := f.stored(t, c.ID)

	f.store.FailWrites(errors.New("disk full"))
	_, err = f.svc.Assign(ctx, c.ID, "tank", "Bob")
	assert.ErrorIs(t, err, model.ErrStorage)
	f.store.FailWrites(nil)

	assert.Equal(t, before, f.stored(t, c.ID))
}

func TestMutation_CancelledContextWritesNothing(t *testing.T) {
	f := newFixture(t, zvz)
	c := f.create(t, "Castle", "zvz")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.svc.Assign(ctx, c.ID, "tank", "Alice")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, c.Revision, f.stored(t, c.ID).Revision)
}

func TestMutation_ConcurrentAssignsAllPersist(t *testing.T) {
	const n = 12
	roles := make([]string, n)
	for i := range roles {
		roles[i] = "Slot"
	}
	f := newFixture(t, map[string][][]string{"wide": {roles}})
	c := f.create(t, "Open World", "wide")

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.svc.Assign(context.Background(), c.ID, "slot", fmt.Sprintf("player-%02d", i))
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}

	got := f.stored(t, c.ID)
	assert.Len(t, roster.TablePlayers(got.Slots), n, "no lost update")
	for _, slot := range got.Slots {
		assert.Len(t, slot, 1)
	}
}

func TestRefreshFailureIsSwallowed(t *testing.T) {
	store := repository.NewMemoryStore()
	require.NoError(t, store.SaveTemplate(context.Background(), "zvz", zvz["zvz"]))
	svc := service.NewRosterService(store, failingDisplay{})
	ctx := context.Background()

	c, err := svc.Create(ctx, model.CreateContentRequest{Name: "Castle", TemplateName: "zvz"})
	require.NoError(t, err)
	_, err = svc.Assign(ctx, c.ID, "tank", "Alice")
	require.NoError(t, err)

	assert.Error(t, svc.RefreshDisplay(ctx, c.ID), "explicit refresh reports the failure")
}

// gatedDisplay holds the first Refresh after arm until release is closed.
type gatedDisplay struct {
	*display.Board
	mu      sync.Mutex
	armed   bool
	entered chan struct{}
	release chan struct{}
}

func newGatedDisplay() *gatedDisplay {
	return &gatedDisplay{Board: display.NewBoard(), entered: make(chan struct{}), release: make(chan struct{})}
}

func (g *gatedDisplay) arm() {
	g.mu.Lock()
	g.armed = true
	g.mu.Unlock()
}

func (g *gatedDisplay) Refresh(ctx context.Context, v roster.View) error {
	g.mu.Lock()
	hold := g.armed
	g.armed = false
	g.mu.Unlock()
	if hold {
		close(g.entered)
		<-g.release
	}
	return g.Board.Refresh(ctx, v)
}

func newGatedService(t *testing.T) (*repository.MemoryStore, *gatedDisplay, *service.RosterService, *model.Content) {
	t.Helper()
	store := repository.NewMemoryStore()
	require.NoError(t, store.SaveTemplate(context.Background(), "zvz", zvz["zvz"]))
	gate := newGatedDisplay()
	svc := service.NewRosterService(store, gate)
	c, err := svc.Create(context.Background(), model.CreateContentRequest{Name: "Castle", TemplateName: "zvz"})
	require.NoError(t, err)
	return store, gate, svc, c
}

func TestRefreshDisplay_DoesNotOverwriteNewerView(t *testing.T) {
	store, gate, svc, c := newGatedService(t)
	ctx := context.Background()

	gate.arm()
	refreshed := make(chan error, 1)
	go func() { refreshed <- svc.RefreshDisplay(ctx, c.ID) }()
	<-gate.entered

	assigned := make(chan error, 1)
	go func() {
		_, err := svc.Assign(ctx, c.ID, "tank", "Alice")
		assigned <- err
	}()
	select {
	case <-assigned:
		t.Fatal("assign finished while a refresh of the same content was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(gate.release)
	require.NoError(t, <-refreshed)
	require.NoError(t, <-assigned)

	e, ok := gate.Get(c.ID)
	require.True(t, ok)
	assert.Contains(t, e.View.Body, "Alice", "board shows the post-assign view")
	got, err := store.GetContent(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SlotMatrix{{"Alice"}, {}, {}}, got.Slots)
}

func TestRefreshDisplay_DoesNotResurrectDeletedContent(t *testing.T) {
	_, gate, svc, c := newGatedService(t)
	ctx := context.Background()

	gate.arm()
	refreshed := make(chan error, 1)
	go func() { refreshed <- svc.RefreshDisplay(ctx, c.ID) }()
	<-gate.entered

	deleted := make(chan error, 1)
	go func() { deleted <- svc.Delete(ctx, c.ID) }()

	close(gate.release)
	require.NoError(t, <-refreshed)
	require.NoError(t, <-deleted)

	_, ok := gate.Get(c.ID)
	assert.False(t, ok, "delete runs after the refresh and clears the board")
	assert.ErrorIs(t, svc.RefreshDisplay(ctx, c.ID), model.ErrContentNotFound)
}

func TestView_DegradesWithoutTemplate(t *testing.T) {
	f := newFixture(t, zvz)
	c := f.create(t, "Castle", "zvz")
	ctx := context.Background()

	require.NoError(t, f.store.DeleteTemplate(ctx, "zvz"))
	v, err := f.svc.View(ctx, c.ID)
	require.NoError(t, err)
	assert.Contains(t, v.Body, "Roster has 3 slots but the template has 0 roles.")

	f.store.PutTemplateRaw("zvz", []byte(`{"broken": true}`))
	v, err = f.svc.View(ctx, c.ID)
	require.NoError(t, err)
	assert.Contains(t, v.Body, "Error: ")

	_, err = f.svc.Assign(ctx, c.ID, "tank", "Alice")
	assert.ErrorIs(t, err, model.ErrDataCorruption)
}

func TestResolve(t *testing.T) {
	f := newFixture(t, zvz)
	castle := f.create(t, "Castle", "zvz")
	ctx := context.Background()

	got, err := f.svc.Resolve(ctx, "Castle", "chan-1")
	require.NoError(t, err)
	assert.Equal(t, castle.ID, got.ID)

	got, err = f.svc.Resolve(ctx, roster.RefLabel(castle), "other-channel")
	require.NoError(t, err)
	assert.Equal(t, castle.ID, got.ID)

	_, err = f.svc.Resolve(ctx, "Nowhere", "chan-1")
	assert.ErrorIs(t, err, model.ErrContentNotFound)

	id, err := f.svc.ResolveID(ctx, " Castle ", "chan-1")
	require.NoError(t, err)
	assert.Equal(t, castle.ID, id)
}

func TestDelete(t *testing.T) {
	f := newFixture(t, zvz)
	c := f.create(t, "Castle", "zvz")
	ctx := context.Background()

	require.NoError(t, f.svc.Delete(ctx, c.ID))
	_, ok := f.board.Get(c.ID)
	assert.False(t, ok)
	assert.ErrorIs(t, f.svc.Delete(ctx, c.ID), model.ErrContentNotFound)
}

func TestChoices(t *testing.T) {
	f := newFixture(t, map[string][][]string{"raid": {{"Tank", "DPS"}, {"DPS", "Healer"}}})
	c := f.create(t, "Castle", "raid")
	f.create(t, "Hideout", "raid")
	ctx := context.Background()

	contents, err := f.svc.ContentChoices(ctx, "chan-1", "cast")
	require.NoError(t, err)
	require.Len(t, contents, 1)
	assert.Equal(t, roster.RefLabel(c), contents[0].Name)

	roles, err := f.svc.RoleChoices(ctx, c.ID, "")
	require.NoError(t, err)
	assert.Equal(t, []model.Choice{
		{Name: "Tank", Value: "Tank"},
		{Name: "DPS", Value: "DPS"},
		{Name: "Healer", Value: "Healer"},
	}, roles)

	_, err = f.svc.Assign(ctx, c.ID, "dps", "Zed")
	require.NoError(t, err)
	_, err = f.svc.Assign(ctx, c.ID, "tank", "Amy")
	require.NoError(t, err)
	_, err = f.svc.Join(ctx, c.ID, model.SignupRequest{Name: "Walt"})
	require.NoError(t, err)

	players, err := f.svc.PlayerChoices(ctx, c.ID, service.SourceTable, "")
	require.NoError(t, err)
	assert.Equal(t, []model.Choice{{Name: "Amy", Value: "Amy"}, {Name: "Zed", Value: "Zed"}}, players)

	waiting, err := f.svc.PlayerChoices(ctx, c.ID, service.SourceWaitlist, "wa")
	require.NoError(t, err)
	assert.Equal(t, []model.Choice{{Name: "Walt", Value: "Walt"}}, waiting)

	_, err = f.svc.PlayerChoices(ctx, c.ID, "bench", "")
	assert.ErrorIs(t, err, model.ErrInvalid)
}
