package list

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"shoplist/internal/logging"
	"shoplist/internal/store"
)

// deleteConcurrency bounds the per-item deletes issued by ConfirmDelete when
// the store has no batch delete.
const deleteConcurrency = 4

// Options configures a Controller.
type Options struct {
	// Store is the remote item backend. Required.
	Store store.ItemStore

	// Gate authenticates the session. Required.
	Gate AuthGate

	// Renderer receives the derived views. Optional.
	Renderer Renderer

	// Now returns the creation timestamp for new items. Defaults to time.Now.
	Now func() time.Time

	// Logger receives debug output. Defaults to a discarding logger.
	Logger log.FieldLogger
}

// Controller owns the in-memory mirror of the remote list for one session.
//
// Local state changes only after the store confirms the corresponding call.
// Callers drive the controller from a single event context; the internal
// mutex only protects against identity pushes from the gate and is never held
// across store or gate calls.
type Controller struct {
	store    store.ItemStore
	gate     AuthGate
	renderer Renderer
	now      func() time.Time
	log      log.FieldLogger

	mu       sync.Mutex
	session  Session
	items    []store.Item
	filter   Filter
	selected map[string]struct{}
}

// DeleteResult reports the outcome of ConfirmDelete.
type DeleteResult struct {
	Requested int
	Deleted   []string
	Failed    []string
	Cancelled bool
}

// New creates a logged-out controller.
func New(opts Options) *Controller {
	if opts.Store == nil {
		panic("list.New: store is nil")
	}
	if opts.Gate == nil {
		panic("list.New: gate is nil")
	}
	c := &Controller{
		store:    opts.Store,
		gate:     opts.Gate,
		renderer: opts.Renderer,
		now:      opts.Now,
		log:      opts.Logger,
		filter:   FilterAll,
		selected: make(map[string]struct{}),
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.log == nil {
		c.log = logging.Discard()
	}
	if n, ok := opts.Gate.(IdentityNotifier); ok {
		n.OnIdentityChanged(c.HandleIdentityChange)
	}
	return c
}

// Mode returns the deployment mode of the controller's gate.
func (c *Controller) Mode() Mode {
	return c.gate.Mode()
}

// Authenticate signs in through the gate and loads the identity's items.
// On a credential mismatch the session stays logged out.
func (c *Controller) Authenticate(ctx context.Context, credential string) error {
	id, err := c.gate.SignIn(ctx, credential)
	if err != nil {
		c.log.WithError(err).Debug("sign-in rejected")
		return err
	}
	c.begin(id)
	return c.LoadItems(ctx)
}

// Restore resumes a persisted session, if the gate has one, and loads items.
// It reports whether a session was restored.
func (c *Controller) Restore(ctx context.Context) (bool, error) {
	id, ok, err := c.gate.Restore(ctx)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	c.begin(id)
	return true, c.LoadItems(ctx)
}

// Logout signs out through the gate and discards all local state.
// Local state is discarded even when the gate fails.
func (c *Controller) Logout(ctx context.Context) error {
	err := c.gate.SignOut(ctx)
	c.mu.Lock()
	c.resetLocked()
	c.mu.Unlock()
	c.render()
	return err
}

// HandleIdentityChange applies an identity pushed by the gate.
// A sign-out discards local state; a new identity starts an empty session
// that the caller must reload.
func (c *Controller) HandleIdentityChange(id Identity, ok bool) {
	c.mu.Lock()
	switch {
	case !ok:
		c.resetLocked()
	case !c.session.Authenticated || c.session.Identity != id:
		c.session = Session{Authenticated: true, Identity: id}
		c.items = nil
		clear(c.selected)
	default:
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()
	c.log.WithField("identity", id.String()).WithField("signed_in", ok).Debug("identity changed")
	c.render()
}

// LoadItems replaces the local collection with the store's items for the
// current identity, newest first. On failure the collection is left empty.
func (c *Controller) LoadItems(ctx context.Context) error {
	session, ok := c.currentSession()
	if !ok {
		return ErrAuthRequired
	}

	items, err := c.store.Query(ctx, session.Identity.Scope(), store.NewestFirst)

	c.mu.Lock()
	if c.session != session {
		c.mu.Unlock()
		return ErrAuthRequired
	}
	if err != nil {
		c.items = nil
		clear(c.selected)
		c.mu.Unlock()
		c.log.WithError(err).Debug("load items failed")
		c.render()
		return &StoreError{Op: "query", Err: err}
	}

	loaded := make([]store.Item, 0, len(items))
	for _, item := range items {
		if !item.Persisted() {
			c.log.WithField("text", item.Text).Warn("skipping item without id")
			continue
		}
		loaded = append(loaded, item)
	}
	store.SortNewestFirst(loaded)
	c.items = loaded
	c.pruneSelectionLocked()
	c.mu.Unlock()

	c.log.WithField("count", len(loaded)).Debug("items loaded")
	c.render()
	return nil
}

// AddItem validates text, persists a new item and prepends it to the
// collection once the store has assigned its ID.
func (c *Controller) AddItem(ctx context.Context, text string) (store.Item, error) {
	session, ok := c.currentSession()
	if !ok {
		return store.Item{}, ErrAuthRequired
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return store.Item{}, &ValidationError{Reason: ReasonEmpty}
	}
	c.mu.Lock()
	dup := c.hasTextLocked(text)
	c.mu.Unlock()
	if dup {
		return store.Item{}, &ValidationError{Reason: ReasonDuplicate, Text: text}
	}

	item := store.Item{
		Text:      text,
		Completed: false,
		CreatedAt: c.now(),
		OwnerTag:  session.Identity.OwnerTag(),
	}
	id, err := c.store.Create(ctx, item)
	if err != nil {
		c.log.WithError(err).WithField("op", "create").Debug("store call failed")
		return store.Item{}, &StoreError{Op: "create", Err: err}
	}
	if id == "" {
		return store.Item{}, &StoreError{Op: "create", Err: errors.New("store assigned no id")}
	}
	item.ID = id

	c.mu.Lock()
	if c.session != session {
		c.mu.Unlock()
		return item, nil
	}
	c.items = append([]store.Item{item}, c.items...)
	c.mu.Unlock()

	c.log.WithField("id", id).Debug("item added")
	c.render()
	return item, nil
}

// ToggleCompletion persists the flipped completion flag of an item and
// applies it locally on success. It returns the new flag value.
func (c *Controller) ToggleCompletion(ctx context.Context, id string) (bool, error) {
	if _, ok := c.currentSession(); !ok {
		return false, ErrAuthRequired
	}

	c.mu.Lock()
	idx := c.indexLocked(id)
	if idx < 0 {
		c.mu.Unlock()
		return false, ErrItemNotFound
	}
	want := !c.items[idx].Completed
	c.mu.Unlock()

	if err := c.store.Update(ctx, id, store.Patch{Completed: &want}); err != nil {
		c.log.WithError(err).WithField("op", "update").WithField("id", id).Debug("store call failed")
		return false, &StoreError{Op: "update", ID: id, Err: err}
	}

	// Last resolving call wins.
	c.mu.Lock()
	if idx := c.indexLocked(id); idx >= 0 {
		c.items[idx].Completed = want
	}
	c.mu.Unlock()

	c.render()
	return want, nil
}

// Select marks an item for deletion.
func (c *Controller) Select(id string) error {
	return c.updateSelection(id, func(bool) bool { return true })
}

// Deselect removes an item from the deletion selection.
func (c *Controller) Deselect(id string) error {
	return c.updateSelection(id, func(bool) bool { return false })
}

// ToggleSelection flips whether an item is marked for deletion.
func (c *Controller) ToggleSelection(id string) error {
	return c.updateSelection(id, func(selected bool) bool { return !selected })
}

func (c *Controller) updateSelection(id string, next func(selected bool) bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.session.Authenticated {
		return ErrAuthRequired
	}
	if c.indexLocked(id) < 0 {
		return ErrItemNotFound
	}
	_, selected := c.selected[id]
	if next(selected) {
		c.selected[id] = struct{}{}
	} else {
		delete(c.selected, id)
	}
	return nil
}

// SelectCompleted replaces the selection with every completed item.
// It returns the number of selected items.
func (c *Controller) SelectCompleted() (int, error) {
	return c.selectWhere(func(item store.Item) bool { return item.Completed })
}

// SelectAll replaces the selection with every item.
func (c *Controller) SelectAll() (int, error) {
	return c.selectWhere(func(store.Item) bool { return true })
}

func (c *Controller) selectWhere(keep func(store.Item) bool) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.session.Authenticated {
		return 0, ErrAuthRequired
	}
	clear(c.selected)
	for _, item := range c.items {
		if keep(item) {
			c.selected[item.ID] = struct{}{}
		}
	}
	return len(c.selected), nil
}

// CancelSelection clears the deletion selection.
func (c *Controller) CancelSelection() {
	c.mu.Lock()
	clear(c.selected)
	c.mu.Unlock()
}

// ConfirmDelete deletes every selected item after confirm approves the IDs.
// A nil confirm never approves. Declining leaves all state unchanged.
//
// Deleted IDs leave the collection and the selection; failed IDs stay in
// both and are reported through a *BatchDeleteError.
func (c *Controller) ConfirmDelete(ctx context.Context, confirm func(ids []string) bool) (DeleteResult, error) {
	if _, ok := c.currentSession(); !ok {
		return DeleteResult{}, ErrAuthRequired
	}
	ids := c.SelectedIDs()
	if len(ids) == 0 {
		return DeleteResult{}, ErrNothingSelected
	}
	result := DeleteResult{Requested: len(ids)}
	if confirm == nil || !confirm(ids) {
		result.Cancelled = true
		return result, nil
	}

	failed := c.deleteAll(ctx, ids)

	c.mu.Lock()
	gone := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, bad := failed[id]; bad {
			result.Failed = append(result.Failed, id)
			continue
		}
		gone[id] = struct{}{}
		result.Deleted = append(result.Deleted, id)
		delete(c.selected, id)
	}
	kept := c.items[:0:0]
	for _, item := range c.items {
		if _, ok := gone[item.ID]; !ok {
			kept = append(kept, item)
		}
	}
	c.items = kept
	c.mu.Unlock()

	c.log.WithField("deleted", len(result.Deleted)).WithField("failed", len(result.Failed)).Debug("bulk delete finished")
	c.render()

	if len(failed) > 0 {
		return result, &BatchDeleteError{Requested: len(ids), Failed: failed}
	}
	return result, nil
}

func (c *Controller) deleteAll(ctx context.Context, ids []string) map[string]error {
	if bd, ok := c.store.(store.BatchDeleter); ok {
		failed := bd.DeleteBatch(ctx, ids)
		if failed == nil {
			failed = make(map[string]error)
		}
		return failed
	}

	errs := make([]error, len(ids))
	var g errgroup.Group
	g.SetLimit(deleteConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			errs[i] = c.store.Delete(ctx, id)
			return nil
		})
	}
	_ = g.Wait()

	failed := make(map[string]error)
	for i, err := range errs {
		if err != nil {
			failed[ids[i]] = err
		}
	}
	return failed
}

// SetFilter changes the current view filter. It never touches the collection.
func (c *Controller) SetFilter(f Filter) error {
	switch f {
	case FilterAll, FilterPending, FilterCompleted:
	default:
		return ErrUnknownFilter
	}
	c.mu.Lock()
	c.filter = f
	c.mu.Unlock()
	c.render()
	return nil
}

// Filter returns the current view filter.
func (c *Controller) Filter() Filter {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filter
}

// Filtered returns a copy of the items visible under the current filter.
func (c *Controller) Filtered() []store.Item {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filteredLocked()
}

// Items returns a copy of the whole collection, newest first.
func (c *Controller) Items() []store.Item {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]store.Item(nil), c.items...)
}

// Stats returns counts over the whole collection.
func (c *Controller) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statsLocked()
}

// Session returns the current session.
func (c *Controller) Session() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// SelectedIDs returns the selected IDs in collection order.
func (c *Controller) SelectedIDs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var ids []string
	for _, item := range c.items {
		if _, ok := c.selected[item.ID]; ok {
			ids = append(ids, item.ID)
		}
	}
	return ids
}

// Selection returns the selected items in collection order.
func (c *Controller) Selection() []store.Item {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []store.Item
	for _, item := range c.items {
		if _, ok := c.selected[item.ID]; ok {
			out = append(out, item)
		}
	}
	return out
}

func (c *Controller) begin(id Identity) {
	c.mu.Lock()
	if c.session.Identity != id {
		c.items = nil
		clear(c.selected)
	}
	c.session = Session{Authenticated: true, Identity: id}
	c.mu.Unlock()
	c.log.WithField("identity", id.String()).Debug("session started")
}

func (c *Controller) currentSession() (Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session, c.session.Authenticated
}

func (c *Controller) resetLocked() {
	c.session = Session{}
	c.items = nil
	clear(c.selected)
}

func (c *Controller) pruneSelectionLocked() {
	for id := range c.selected {
		if c.indexLocked(id) < 0 {
			delete(c.selected, id)
		}
	}
}

func (c *Controller) indexLocked(id string) int {
	if id == "" {
		return -1
	}
	for i, item := range c.items {
		if item.ID == id {
			return i
		}
	}
	return -1
}

func (c *Controller) hasTextLocked(text string) bool {
	for _, item := range c.items {
		if strings.EqualFold(strings.TrimSpace(item.Text), text) {
			return true
		}
	}
	return false
}

func (c *Controller) filteredLocked() []store.Item {
	out := make([]store.Item, 0, len(c.items))
	for _, item := range c.items {
		if c.filter.Keep(item) {
			out = append(out, item)
		}
	}
	return out
}

func (c *Controller) statsLocked() Stats {
	s := Stats{Total: len(c.items)}
	for _, item := range c.items {
		if item.Completed {
			s.Completed++
		} else {
			s.Pending++
		}
	}
	return s
}

func (c *Controller) render() {
	if c.renderer == nil {
		return
	}
	c.mu.Lock()
	items := c.filteredLocked()
	filter := c.filter
	stats := c.statsLocked()
	c.mu.Unlock()

	c.renderer.Render(items, filter)
	c.renderer.RenderStats(stats)
}
