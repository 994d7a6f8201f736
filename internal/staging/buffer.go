// Package staging holds frame edits back until the user pauses typing, so a
// burst of keystrokes turns into one repository write.
package staging

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"frameforge/internal/ff"
)

// ErrClosed is returned by Stage after Close.
var ErrClosed = errors.New("edit buffer is closed")

// Committer receives the coalesced patches. *ff.FrameRepository satisfies it.
type Committer interface {
	Update(id string, patch ff.FramePatch) error
}

type pendingEdit struct {
	patch ff.FramePatch
	timer *time.Timer
	gen   uint64
}

// EditBuffer coalesces per-frame patches and commits each frame's merged
// patch once no new edit arrived for the quiet period. Later writes win per
// field. Commits for the buffer are serialized in the order they were taken.
type EditBuffer struct {
	target Committer
	delay  time.Duration
	logger ff.Logger

	commitMu sync.Mutex

	mu      sync.Mutex
	pending map[string]*pendingEdit
	gen     uint64
	closed  bool
	errs    []error
}

// NewEditBuffer creates a buffer committing to target. A zero delay commits
// every Stage synchronously.
func NewEditBuffer(target Committer, delay time.Duration, logger ff.Logger) *EditBuffer {
	return &EditBuffer{
		target:  target,
		delay:   delay,
		logger:  logger,
		pending: make(map[string]*pendingEdit),
	}
}

// Stage merges patch into the frame's pending edit and restarts its quiet
// period. An invalid patch is rejected without touching the pending edit.
func (b *EditBuffer) Stage(frameID string, patch ff.FramePatch) error {
	if err := patch.Validate(); err != nil {
		return err
	}
	if b.delay <= 0 {
		b.mu.Lock()
		closed := b.closed
		b.mu.Unlock()
		if closed {
			return ErrClosed
		}
		return b.commit(frameID, patch)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}

	p, ok := b.pending[frameID]
	if ok {
		p.timer.Stop()
		p.patch = p.patch.Merge(patch)
	} else {
		p = &pendingEdit{patch: patch}
		b.pending[frameID] = p
	}
	b.gen++
	gen := b.gen
	p.gen = gen
	p.timer = time.AfterFunc(b.delay, func() { b.fire(frameID, gen) })
	return nil
}

// fire commits a pending edit whose quiet period elapsed. A timer that lost
// the race against a newer Stage finds a different generation and does nothing.
func (b *EditBuffer) fire(frameID string, gen uint64) {
	b.commitMu.Lock()
	defer b.commitMu.Unlock()

	b.mu.Lock()
	p, ok := b.pending[frameID]
	if !ok || p.gen != gen {
		b.mu.Unlock()
		return
	}
	delete(b.pending, frameID)
	b.mu.Unlock()

	if err := b.target.Update(frameID, p.patch); err != nil {
		b.logger.Error("committing staged edit failed", "frame", frameID, "error", err)
		b.mu.Lock()
		b.errs = append(b.errs, fmt.Errorf("committing edit for frame %s: %w", frameID, err))
		b.mu.Unlock()
		return
	}
	b.logger.Debug("staged edit committed", "frame", frameID)
}

// Flush commits the frame's pending edit now. Without a pending edit it
// does nothing, so calling it twice is safe.
func (b *EditBuffer) Flush(frameID string) error {
	b.commitMu.Lock()
	defer b.commitMu.Unlock()

	b.mu.Lock()
	p, ok := b.pending[frameID]
	if ok {
		p.timer.Stop()
		delete(b.pending, frameID)
	}
	b.mu.Unlock()
	if !ok {
		return nil
	}

	if err := b.target.Update(frameID, p.patch); err != nil {
		return fmt.Errorf("committing edit for frame %s: %w", frameID, err)
	}
	return nil
}

func (b *EditBuffer) commit(frameID string, patch ff.FramePatch) error {
	b.commitMu.Lock()
	defer b.commitMu.Unlock()
	if err := b.target.Update(frameID, patch); err != nil {
		return fmt.Errorf("committing edit for frame %s: %w", frameID, err)
	}
	return nil
}

// Discard drops the frame's pending edit without committing it.
func (b *EditBuffer) Discard(frameID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if p, ok := b.pending[frameID]; ok {
		p.timer.Stop()
		delete(b.pending, frameID)
	}
}

// Pending returns the merged patch waiting for a frame.
func (b *EditBuffer) Pending(frameID string) (ff.FramePatch, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.pending[frameID]
	if !ok {
		return ff.FramePatch{}, false
	}
	return p.patch, true
}

// Live returns f with its pending edit applied, as the user currently sees it.
func (b *EditBuffer) Live(f ff.Frame) ff.Frame {
	patch, ok := b.Pending(f.ID)
	if !ok {
		return f
	}
	return patch.Applied(f)
}

// Close flushes every pending edit and rejects further Stage calls. It
// returns the errors of this flush together with those of earlier
// background commits.
func (b *EditBuffer) Close() error {
	b.mu.Lock()
	b.closed = true
	ids := make([]string, 0, len(b.pending))
	for id := range b.pending {
		ids = append(ids, id)
	}
	b.mu.Unlock()

	var errs []error
	for _, id := range ids {
		if err := b.Flush(id); err != nil {
			errs = append(errs, err)
		}
	}

	b.mu.Lock()
	errs = append(b.errs, errs...)
	b.errs = nil
	b.mu.Unlock()
	return errors.Join(errs...)
}
