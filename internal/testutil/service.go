package testutil

import (
	"testing"

	"frameforge/internal/blobstore"
	"frameforge/internal/ff"
)

// Fixture is a Service wired to in-memory stores and stub providers.
type Fixture struct {
	Store     *MemoryStore
	Clock     *StubClock
	IDs       *StubIDGenerator
	Images    *blobstore.ImageStore
	Imager    *StubImageGenerator
	Continuer *StubContinuer
	Service   *ff.Service
}

// NewFixture builds a Fixture on FixedClock and sequential ids.
func NewFixture(t *testing.T) *Fixture {
	t.Helper()

	fx := &Fixture{
		Store:     NewMemoryStore(),
		Clock:     FixedClock(),
		IDs:       NewStubIDGenerator(),
		Images:    NewTestImageStore(),
		Imager:    NewStubImageGenerator(),
		Continuer: &StubContinuer{},
	}
	projects, err := ff.NewProjectRepository(fx.Store, fx.Clock, fx.IDs)
	if err != nil {
		t.Fatalf("NewProjectRepository() error = %v", err)
	}
	frames, err := ff.NewFrameRepository(fx.Store, fx.IDs)
	if err != nil {
		t.Fatalf("NewFrameRepository() error = %v", err)
	}
	fx.Service = ff.NewService(projects, frames, fx.Images, fx.Imager, fx.Continuer, ff.NewNopLogger())
	return fx
}

// AddProject creates a project and fails the test on error.
func (fx *Fixture) AddProject(t *testing.T, name string) ff.Project {
	t.Helper()
	p, err := fx.Service.Projects().Add(name, "")
	if err != nil {
		t.Fatalf("Add(%q) error = %v", name, err)
	}
	return p
}

// AddFrame appends a frame with the given prompt and fails the test on error.
func (fx *Fixture) AddFrame(t *testing.T, projectID, prompt string) ff.Frame {
	t.Helper()
	f, err := fx.Service.Frames().Add(projectID, ff.FramePatch{Prompt: &prompt})
	if err != nil {
		t.Fatalf("Add(%q) error = %v", prompt, err)
	}
	return f
}
