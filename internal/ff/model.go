package ff

import (
	"fmt"
	"time"
)

// Project is a named, ordered collection of frames.
type Project struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Frame is one storyboard shot: a scene description plus cinematic attributes
// and optional dialogue.
type Frame struct {
	ID             string         `json:"id"`
	ProjectID      string         `json:"projectId"`
	Order          int            `json:"order"`
	Prompt         string         `json:"prompt"`
	Dialogue       string         `json:"dialogue,omitempty"`
	Speaker        string         `json:"speaker,omitempty"`
	CameraMovement CameraMovement `json:"cameraMovement"`
	Duration       float64        `json:"duration"`
	Style          Style          `json:"style"`
	Mood           Mood           `json:"mood"`
	ImageKey       string         `json:"imageBase64Key,omitempty"` // reference into the image blob store
	CreditCost     *int           `json:"creditCost,omitempty"`     // cost of the last successful generation
}

// Frame defaults applied by Add and InsertAfter for unset fields.
const (
	DefaultCameraMovement = CameraFixed
	DefaultDuration       = 8.0
	DefaultStyle          = StyleCinematic
	DefaultMood           = MoodMoodyDramatic

	MinDuration = 4.0
	MaxDuration = 15.0
)

// ImageKey returns the blob store key holding the image payload for a frame.
func ImageKey(frameID string) string {
	return "image-" + frameID
}

// FramePatch carries a partial frame update. Nil fields are left unchanged.
// Order and ProjectID are deliberately absent: they cannot change through a patch.
type FramePatch struct {
	Prompt         *string
	Dialogue       *string
	Speaker        *string
	CameraMovement *CameraMovement
	Duration       *float64
	Style          *Style
	Mood           *Mood
	ImageKey       *string
	CreditCost     *int

	// ClearImage drops ImageKey and CreditCost together. Applied before
	// ImageKey/CreditCost, so a patch can clear and set in one step.
	ClearImage bool
}

// IsEmpty reports whether the patch changes nothing.
func (p FramePatch) IsEmpty() bool {
	return p.Prompt == nil && p.Dialogue == nil && p.Speaker == nil &&
		p.CameraMovement == nil && p.Duration == nil && p.Style == nil &&
		p.Mood == nil && p.ImageKey == nil && p.CreditCost == nil && !p.ClearImage
}

// Validate checks enum membership and the duration range.
func (p FramePatch) Validate() error {
	if p.CameraMovement != nil && !p.CameraMovement.Valid() {
		return &ValidationError{Field: "cameraMovement", Message: fmt.Sprintf("unknown camera movement %q", *p.CameraMovement)}
	}
	if p.Style != nil && !p.Style.Valid() {
		return &ValidationError{Field: "style", Message: fmt.Sprintf("unknown style %q", *p.Style)}
	}
	if p.Mood != nil && !p.Mood.Valid() {
		return &ValidationError{Field: "mood", Message: fmt.Sprintf("unknown mood %q", *p.Mood)}
	}
	if p.Duration != nil && (*p.Duration < MinDuration || *p.Duration > MaxDuration) {
		return &ValidationError{Field: "duration", Message: fmt.Sprintf("duration %gs out of range [%g, %g]", *p.Duration, MinDuration, MaxDuration)}
	}
	if p.CreditCost != nil && *p.CreditCost < 0 {
		return &ValidationError{Field: "creditCost", Message: "credit cost must not be negative"}
	}
	return nil
}

// Merge returns a patch with the fields of other layered over p.
// Later writes win per field.
func (p FramePatch) Merge(other FramePatch) FramePatch {
	out := p
	if other.Prompt != nil {
		out.Prompt = other.Prompt
	}
	if other.Dialogue != nil {
		out.Dialogue = other.Dialogue
	}
	if other.Speaker != nil {
		out.Speaker = other.Speaker
	}
	if other.CameraMovement != nil {
		out.CameraMovement = other.CameraMovement
	}
	if other.Duration != nil {
		out.Duration = other.Duration
	}
	if other.Style != nil {
		out.Style = other.Style
	}
	if other.Mood != nil {
		out.Mood = other.Mood
	}
	if other.ClearImage {
		out.ClearImage = true
		out.ImageKey = nil
		out.CreditCost = nil
	}
	if other.ImageKey != nil {
		out.ImageKey = other.ImageKey
	}
	if other.CreditCost != nil {
		out.CreditCost = other.CreditCost
	}
	return out
}

// Applied returns a copy of f with the patch written onto it.
func (p FramePatch) Applied(f Frame) Frame {
	out := cloneFrame(f)
	p.apply(&out)
	return out
}

// apply writes the patch onto f.
func (p FramePatch) apply(f *Frame) {
	if p.Prompt != nil {
		f.Prompt = *p.Prompt
	}
	if p.Dialogue != nil {
		f.Dialogue = *p.Dialogue
	}
	if p.Speaker != nil {
		f.Speaker = *p.Speaker
	}
	if p.CameraMovement != nil {
		f.CameraMovement = *p.CameraMovement
	}
	if p.Duration != nil {
		f.Duration = *p.Duration
	}
	if p.Style != nil {
		f.Style = *p.Style
	}
	if p.Mood != nil {
		f.Mood = *p.Mood
	}
	if p.ClearImage {
		f.ImageKey = ""
		f.CreditCost = nil
	}
	if p.ImageKey != nil {
		f.ImageKey = *p.ImageKey
	}
	if p.CreditCost != nil {
		cost := *p.CreditCost
		f.CreditCost = &cost
	}
}

// ProjectPatch carries a partial project update. Nil fields are left unchanged.
type ProjectPatch struct {
	Name        *string
	Description *string
}

// ValidationError reports malformed caller input. It is never retried.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Ptr returns a pointer to v. Handy for building patches.
func Ptr[T any](v T) *T {
	return &v
}

// cloneFrame returns a copy of f that shares no pointers with it.
func cloneFrame(f Frame) Frame {
	if f.CreditCost != nil {
		cost := *f.CreditCost
		f.CreditCost = &cost
	}
	return f
}
