package ff

import (
	"fmt"
	"slices"
	"strings"
	"sync"
)

// ProjectRepository is the project collection. Deleting a project does not
// touch its frames; Service.DeleteProject performs the cascade.
type ProjectRepository struct {
	mu       sync.Mutex
	store    ProjectStore
	clock    Clock
	idgen    IDGenerator
	projects []Project
}

// NewProjectRepository loads the persisted projects from store.
func NewProjectRepository(store ProjectStore, clock Clock, idgen IDGenerator) (*ProjectRepository, error) {
	projects, err := store.LoadProjects()
	if err != nil {
		return nil, fmt.Errorf("loading projects: %w", err)
	}
	return &ProjectRepository{
		store:    store,
		clock:    clock,
		idgen:    idgen,
		projects: projects,
	}, nil
}

// List returns all projects in creation order.
func (r *ProjectRepository) List() []Project {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.projects)
}

// Get returns the project with the given id. ok is false when it does not exist.
func (r *ProjectRepository) Get(id string) (p Project, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i := r.indexLocked(id); i >= 0 {
		return r.projects[i], true
	}
	return Project{}, false
}

// Add creates a project. CreatedAt and UpdatedAt are set to the same instant.
func (r *ProjectRepository) Add(name, description string) (Project, error) {
	if strings.TrimSpace(name) == "" {
		return Project{}, &ValidationError{Field: "name", Message: "project name must not be empty"}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	p := Project{
		ID:          r.idgen.New(),
		Name:        name,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	next := append(slices.Clone(r.projects), p)
	if err := r.commitLocked(next); err != nil {
		return Project{}, err
	}
	return p, nil
}

// Update applies the patch and refreshes UpdatedAt. Updating a missing
// project is a silent no-op.
func (r *ProjectRepository) Update(id string, patch ProjectPatch) error {
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return &ValidationError{Field: "name", Message: "project name must not be empty"}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexLocked(id)
	if i < 0 {
		return nil
	}
	next := slices.Clone(r.projects)
	p := &next[i]
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	p.UpdatedAt = r.clock.Now()
	if p.UpdatedAt.Before(p.CreatedAt) {
		p.UpdatedAt = p.CreatedAt
	}
	return r.commitLocked(next)
}

// Delete removes the project record only. Deleting a missing project is a
// silent no-op.
func (r *ProjectRepository) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexLocked(id)
	if i < 0 {
		return nil
	}
	next := slices.Delete(slices.Clone(r.projects), i, i+1)
	return r.commitLocked(next)
}

// Import adds p as-is when its id is unknown. It reports whether p was added.
func (r *ProjectRepository) Import(p Project) (bool, error) {
	if p.ID == "" {
		return false, &ValidationError{Field: "project", Message: "imported project needs an id"}
	}
	if strings.TrimSpace(p.Name) == "" {
		return false, &ValidationError{Field: "name", Message: "project name must not be empty"}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.indexLocked(p.ID) >= 0 {
		return false, nil
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = r.clock.Now()
	}
	if p.UpdatedAt.Before(p.CreatedAt) {
		p.UpdatedAt = p.CreatedAt
	}
	if err := r.commitLocked(append(slices.Clone(r.projects), p)); err != nil {
		return false, err
	}
	return true, nil
}

func (r *ProjectRepository) indexLocked(id string) int {
	return slices.IndexFunc(r.projects, func(p Project) bool { return p.ID == id })
}

func (r *ProjectRepository) commitLocked(next []Project) error {
	if err := r.store.SaveProjects(next); err != nil {
		return fmt.Errorf("saving projects: %w", err)
	}
	r.projects = next
	return nil
}
