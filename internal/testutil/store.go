package testutil

import (
	"errors"
	"slices"
	"sync"

	"frameforge/internal/ff"
)

// ErrInjected is returned by MemoryStore saves while failures are enabled.
var ErrInjected = errors.New("injected failure")

// MemoryStore keeps projects and frames in memory. It implements
// ff.ProjectStore and ff.FrameStore and can be told to fail saves.
type MemoryStore struct {
	mu         sync.Mutex
	projects   []ff.Project
	frames     []ff.Frame
	failSaves  bool
	failFrames bool
	saves      int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// FailSaves makes every following save return ErrInjected until called with false.
func (m *MemoryStore) FailSaves(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failSaves = fail
}

// FailFrameSaves is FailSaves for frame saves only.
func (m *MemoryStore) FailFrameSaves(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failFrames = fail
}

// Saves reports how many saves succeeded.
func (m *MemoryStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

func (m *MemoryStore) LoadProjects() ([]ff.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.projects), nil
}

func (m *MemoryStore) SaveProjects(projects []ff.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSaves {
		return ErrInjected
	}
	m.projects = slices.Clone(projects)
	m.saves++
	return nil
}

func (m *MemoryStore) LoadFrames() ([]ff.Frame, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.frames), nil
}

func (m *MemoryStore) SaveFrames(frames []ff.Frame) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSaves || m.failFrames {
		return ErrInjected
	}
	m.frames = slices.Clone(frames)
	m.saves++
	return nil
}

var (
	_ ff.ProjectStore = (*MemoryStore)(nil)
	_ ff.FrameStore   = (*MemoryStore)(nil)
)
