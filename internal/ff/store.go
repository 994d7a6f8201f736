package ff

// ProjectStore persists the project collection. SaveProjects replaces the
// stored collection with the given one atomically.
type ProjectStore interface {
	LoadProjects() ([]Project, error)
	SaveProjects(projects []Project) error
}

// FrameStore persists the frame collection. SaveFrames replaces the stored
// collection with the given one atomically, so a partially renumbered
// project is never written.
type FrameStore interface {
	LoadFrames() ([]Frame, error)
	SaveFrames(frames []Frame) error
}

// ImageStore holds image payloads (data URIs) keyed by frame.
type ImageStore interface {
	// SaveImage stores the payload under ImageKey(frameID), replacing any previous one.
	SaveImage(frameID string, payload string) error

	// LoadImage returns the payload for a frame. ok is false when none is stored.
	LoadImage(frameID string) (payload string, ok bool, err error)

	// DeleteImage removes the payload for a frame. Deleting a missing image is not an error.
	DeleteImage(frameID string) error
}
