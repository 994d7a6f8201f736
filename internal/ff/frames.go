package ff

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"sync"
)

// ErrFrameNotFound is returned by operations that require an existing frame,
// such as InsertAfter with an unknown anchor.
var ErrFrameNotFound = errors.New("frame not found")

// FrameEventKind names the mutation a FrameEvent reports.
type FrameEventKind string

const (
	FrameAdded           FrameEventKind = "added"
	FrameUpdated         FrameEventKind = "updated"
	FrameRemoved         FrameEventKind = "removed"
	FramesReordered      FrameEventKind = "reordered"
	FramesImported       FrameEventKind = "imported"
	ProjectFramesRemoved FrameEventKind = "project_removed"
)

// FrameEvent is delivered to subscribers after a mutation has been persisted.
// FrameID is empty for project-wide events.
type FrameEvent struct {
	Kind      FrameEventKind
	ProjectID string
	FrameID   string
}

// FrameRepository is the ordered frame collection and the sole authority for
// the dense-order invariant: for each project the frame orders are exactly
// 0..N-1 after every Add, InsertAfter and Remove.
//
// Each mutation builds the next collection, persists all of it through the
// FrameStore and swaps it in only when the save succeeded. Readers always get
// copies, so no partially renumbered state is observable.
type FrameRepository struct {
	mu       sync.Mutex
	store    FrameStore
	idgen    IDGenerator
	frames   []Frame
	selected string

	observers    map[int]func(FrameEvent)
	nextObserver int
}

// NewFrameRepository loads the persisted frames from store.
func NewFrameRepository(store FrameStore, idgen IDGenerator) (*FrameRepository, error) {
	frames, err := store.LoadFrames()
	if err != nil {
		return nil, fmt.Errorf("loading frames: %w", err)
	}
	return &FrameRepository{
		store:     store,
		idgen:     idgen,
		frames:    frames,
		observers: make(map[int]func(FrameEvent)),
	}, nil
}

// List returns the frames of a project sorted by order ascending.
func (r *FrameRepository) List(projectID string) []Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listLocked(projectID)
}

func (r *FrameRepository) listLocked(projectID string) []Frame {
	var out []Frame
	for _, f := range r.frames {
		if f.ProjectID == projectID {
			out = append(out, cloneFrame(f))
		}
	}
	slices.SortStableFunc(out, func(a, b Frame) int { return cmp.Compare(a.Order, b.Order) })
	return out
}

// Count returns the number of frames in a project.
func (r *FrameRepository) Count(projectID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.countLocked(projectID)
}

func (r *FrameRepository) countLocked(projectID string) int {
	n := 0
	for _, f := range r.frames {
		if f.ProjectID == projectID {
			n++
		}
	}
	return n
}

// Get returns the frame with the given id. ok is false when it does not exist.
func (r *FrameRepository) Get(id string) (f Frame, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i := r.indexLocked(id); i >= 0 {
		return cloneFrame(r.frames[i]), true
	}
	return Frame{}, false
}

func (r *FrameRepository) indexLocked(id string) int {
	return slices.IndexFunc(r.frames, func(f Frame) bool { return f.ID == id })
}

// Add appends a new frame at the end of the project.
func (r *FrameRepository) Add(projectID string, attrs FramePatch) (Frame, error) {
	if err := attrs.Validate(); err != nil {
		return Frame{}, err
	}

	r.mu.Lock()
	f := r.newFrame(projectID, r.countLocked(projectID), attrs)
	next := append(r.copyLocked(), f)
	if err := r.commitLocked(next); err != nil {
		r.mu.Unlock()
		return Frame{}, err
	}
	notify := r.observersLocked()
	r.mu.Unlock()

	emit(notify, FrameEvent{Kind: FrameAdded, ProjectID: projectID, FrameID: f.ID})
	return cloneFrame(f), nil
}

// InsertAfter places a new frame directly after the anchor. Every later
// frame of the same project shifts down by one.
func (r *FrameRepository) InsertAfter(anchorID string, attrs FramePatch) (Frame, error) {
	if err := attrs.Validate(); err != nil {
		return Frame{}, err
	}

	r.mu.Lock()
	i := r.indexLocked(anchorID)
	if i < 0 {
		r.mu.Unlock()
		return Frame{}, fmt.Errorf("inserting after %s: %w", anchorID, ErrFrameNotFound)
	}
	anchor := r.frames[i]

	next := r.copyLocked()
	for j := range next {
		if next[j].ProjectID == anchor.ProjectID && next[j].Order > anchor.Order {
			next[j].Order++
		}
	}
	f := r.newFrame(anchor.ProjectID, anchor.Order+1, attrs)
	next = append(next, f)

	if err := r.commitLocked(next); err != nil {
		r.mu.Unlock()
		return Frame{}, err
	}
	notify := r.observersLocked()
	r.mu.Unlock()

	emit(notify, FrameEvent{Kind: FrameAdded, ProjectID: f.ProjectID, FrameID: f.ID})
	return cloneFrame(f), nil
}

// Update merges the patch into an existing frame. Updating a missing frame
// is a silent no-op.
func (r *FrameRepository) Update(id string, patch FramePatch) error {
	if err := patch.Validate(); err != nil {
		return err
	}
	if patch.IsEmpty() {
		return nil
	}

	r.mu.Lock()
	i := r.indexLocked(id)
	if i < 0 {
		r.mu.Unlock()
		return nil
	}
	next := r.copyLocked()
	patch.apply(&next[i])
	projectID := next[i].ProjectID

	if err := r.commitLocked(next); err != nil {
		r.mu.Unlock()
		return err
	}
	notify := r.observersLocked()
	r.mu.Unlock()

	emit(notify, FrameEvent{Kind: FrameUpdated, ProjectID: projectID, FrameID: id})
	return nil
}

// Remove deletes a frame and closes the gap it leaves in its project's order.
// Removing a missing frame is a silent no-op.
func (r *FrameRepository) Remove(id string) error {
	r.mu.Lock()
	i := r.indexLocked(id)
	if i < 0 {
		r.mu.Unlock()
		return nil
	}
	removed := r.frames[i]

	next := make([]Frame, 0, len(r.frames)-1)
	for _, f := range r.frames {
		if f.ID == id {
			continue
		}
		f = cloneFrame(f)
		if f.ProjectID == removed.ProjectID && f.Order > removed.Order {
			f.Order--
		}
		next = append(next, f)
	}

	if err := r.commitLocked(next); err != nil {
		r.mu.Unlock()
		return err
	}
	if r.selected == id {
		r.selected = ""
	}
	notify := r.observersLocked()
	r.mu.Unlock()

	emit(notify, FrameEvent{Kind: FrameRemoved, ProjectID: removed.ProjectID, FrameID: id})
	return nil
}

// RemoveByProject deletes every frame of a project and returns the removed
// frames so the caller can purge their images.
func (r *FrameRepository) RemoveByProject(projectID string) ([]Frame, error) {
	r.mu.Lock()
	var removed []Frame
	next := make([]Frame, 0, len(r.frames))
	for _, f := range r.frames {
		if f.ProjectID == projectID {
			removed = append(removed, cloneFrame(f))
			continue
		}
		next = append(next, cloneFrame(f))
	}
	if len(removed) == 0 {
		r.mu.Unlock()
		return nil, nil
	}

	if err := r.commitLocked(next); err != nil {
		r.mu.Unlock()
		return nil, err
	}
	for _, f := range removed {
		if f.ID == r.selected {
			r.selected = ""
		}
	}
	notify := r.observersLocked()
	r.mu.Unlock()

	emit(notify, FrameEvent{Kind: ProjectFramesRemoved, ProjectID: projectID})
	return removed, nil
}

// Reorder sets each listed frame's order to its index in ids. Frames of the
// project that are not listed keep their order, so callers must pass a full
// permutation to keep the order dense. Ids of other projects are ignored.
func (r *FrameRepository) Reorder(projectID string, ids []string) error {
	position := make(map[string]int, len(ids))
	for i, id := range ids {
		if _, seen := position[id]; !seen {
			position[id] = i
		}
	}

	r.mu.Lock()
	next := r.copyLocked()
	for i := range next {
		if next[i].ProjectID != projectID {
			continue
		}
		if pos, ok := position[next[i].ID]; ok {
			next[i].Order = pos
		}
	}

	if err := r.commitLocked(next); err != nil {
		r.mu.Unlock()
		return err
	}
	notify := r.observersLocked()
	r.mu.Unlock()

	emit(notify, FrameEvent{Kind: FramesReordered, ProjectID: projectID})
	return nil
}

// Import adds the frames whose id is not yet known, keeping their supplied
// order. The caller guarantees the resulting orders are dense. Returns the
// number of frames added.
func (r *FrameRepository) Import(frames []Frame) (int, error) {
	for _, f := range frames {
		if f.ID == "" || f.ProjectID == "" {
			return 0, &ValidationError{Field: "frame", Message: "imported frames need an id and a project id"}
		}
		if f.Order < 0 {
			return 0, &ValidationError{Field: "order", Message: fmt.Sprintf("frame %s has negative order %d", f.ID, f.Order)}
		}
		patch := FramePatch{CameraMovement: &f.CameraMovement, Style: &f.Style, Mood: &f.Mood, Duration: &f.Duration, CreditCost: f.CreditCost}
		if err := patch.Validate(); err != nil {
			return 0, err
		}
	}

	r.mu.Lock()
	known := make(map[string]bool, len(r.frames))
	for _, f := range r.frames {
		known[f.ID] = true
	}
	next := r.copyLocked()
	projects := make(map[string]bool)
	added := 0
	for _, f := range frames {
		if known[f.ID] {
			continue
		}
		known[f.ID] = true
		next = append(next, cloneFrame(f))
		projects[f.ProjectID] = true
		added++
	}
	if added == 0 {
		r.mu.Unlock()
		return 0, nil
	}

	if err := r.commitLocked(next); err != nil {
		r.mu.Unlock()
		return 0, err
	}
	notify := r.observersLocked()
	r.mu.Unlock()

	for projectID := range projects {
		emit(notify, FrameEvent{Kind: FramesImported, ProjectID: projectID})
	}
	return added, nil
}

// Select points the selection at a frame id. An empty id clears it.
func (r *FrameRepository) Select(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.selected = id
}

// Selected returns the selected frame id, if any.
func (r *FrameRepository) Selected() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.selected, r.selected != ""
}

// Subscribe registers fn to be called after every committed mutation.
// Callbacks run outside the repository lock and may read from it.
// The returned func removes the subscription.
func (r *FrameRepository) Subscribe(fn func(FrameEvent)) (unsubscribe func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextObserver
	r.nextObserver++
	r.observers[id] = fn
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.observers, id)
	}
}

func (r *FrameRepository) newFrame(projectID string, order int, attrs FramePatch) Frame {
	f := Frame{
		ID:             r.idgen.New(),
		ProjectID:      projectID,
		Order:          order,
		CameraMovement: DefaultCameraMovement,
		Duration:       DefaultDuration,
		Style:          DefaultStyle,
		Mood:           DefaultMood,
	}
	attrs.apply(&f)
	return f
}

func (r *FrameRepository) copyLocked() []Frame {
	next := make([]Frame, len(r.frames), len(r.frames)+1)
	for i, f := range r.frames {
		next[i] = cloneFrame(f)
	}
	return next
}

func (r *FrameRepository) commitLocked(next []Frame) error {
	if err := r.store.SaveFrames(next); err != nil {
		return fmt.Errorf("saving frames: %w", err)
	}
	r.frames = next
	return nil
}

func (r *FrameRepository) observersLocked() []func(FrameEvent) {
	out := make([]func(FrameEvent), 0, len(r.observers))
	for _, fn := range r.observers {
		out = append(out, fn)
	}
	return out
}

func emit(observers []func(FrameEvent), ev FrameEvent) {
	for _, fn := range observers {
		fn(ev)
	}
}
