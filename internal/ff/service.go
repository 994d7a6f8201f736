package ff

import (
	"cmp"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"frameforge/internal/gateway"
)

// MaxImageBytes is the largest decoded image AttachImage accepts.
const MaxImageBytes = 10 << 20

// ErrProjectNotFound is returned by operations that require an existing project.
var ErrProjectNotFound = errors.New("project not found")

// ImageGenerator produces images from prompts.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, req gateway.ImageRequest) (*gateway.GeneratedImage, error)
}

// NarrativeContinuer proposes the frame that follows a given one.
type NarrativeContinuer interface {
	ContinueNarrative(ctx context.Context, req gateway.ContinuationRequest) (*gateway.Continuation, error)
}

// Service coordinates the repositories, the image store and the generation
// gateway for operations that span more than one of them.
type Service struct {
	projects  *ProjectRepository
	frames    *FrameRepository
	images    ImageStore
	imager    ImageGenerator
	continuer NarrativeContinuer
	logger    Logger
}

func NewService(projects *ProjectRepository, frames *FrameRepository, images ImageStore, imager ImageGenerator, continuer NarrativeContinuer, logger Logger) *Service {
	return &Service{
		projects:  projects,
		frames:    frames,
		images:    images,
		imager:    imager,
		continuer: continuer,
		logger:    logger,
	}
}

func (s *Service) Projects() *ProjectRepository { return s.projects }

func (s *Service) Frames() *FrameRepository { return s.frames }

// DeleteProject removes all of the project's frames, then the project and
// the frames' images.
// Image deletion failures are reported but do not stop the cascade.
func (s *Service) DeleteProject(id string) error {
	removed, err := s.frames.RemoveByProject(id)
	if err != nil {
		return fmt.Errorf("deleting project frames: %w", err)
	}
	if err := s.projects.Delete(id); err != nil {
		return fmt.Errorf("deleting project: %w", err)
	}

	var errs []error
	for _, f := range removed {
		if err := s.images.DeleteImage(f.ID); err != nil {
			s.logger.Warn("image cleanup failed", "frame", f.ID, "error", err)
			errs = append(errs, fmt.Errorf("deleting image for frame %s: %w", f.ID, err))
		}
	}
	s.logger.Info("project deleted", "project", id, "frames", len(removed))
	return errors.Join(errs...)
}

// DeleteFrame removes a frame and its image.
func (s *Service) DeleteFrame(id string) error {
	if err := s.frames.Remove(id); err != nil {
		return fmt.Errorf("deleting frame: %w", err)
	}
	if err := s.images.DeleteImage(id); err != nil {
		return fmt.Errorf("deleting image for frame %s: %w", id, err)
	}
	s.logger.Debug("frame deleted", "frame", id)
	return nil
}

// GenerateImage renders the frame's prompt and stores the result. When the
// frame is deleted while the provider call is outstanding, the image is
// dropped and GenerateImage returns (nil, nil).
func (s *Service) GenerateImage(ctx context.Context, frameID string, model gateway.Model, ratio gateway.AspectRatio) (*Frame, error) {
	f, ok := s.frames.Get(frameID)
	if !ok {
		return nil, fmt.Errorf("generating image for %s: %w", frameID, ErrFrameNotFound)
	}
	if strings.TrimSpace(f.Prompt) == "" {
		return nil, &ValidationError{Field: "prompt", Message: "fill in the scene description first"}
	}

	img, err := s.imager.GenerateImage(ctx, gateway.ImageRequest{Prompt: f.Prompt, Model: model, AspectRatio: ratio})
	if err != nil {
		return nil, err
	}
	return s.storeGenerated(frameID, img)
}

func (s *Service) storeGenerated(frameID string, img *gateway.GeneratedImage) (*Frame, error) {
	if _, ok := s.frames.Get(frameID); !ok {
		s.logger.Info("frame deleted during generation, image dropped", "frame", frameID)
		return nil, nil
	}
	if err := s.images.SaveImage(frameID, img.Payload); err != nil {
		return nil, fmt.Errorf("saving image: %w", err)
	}
	if err := s.frames.Update(frameID, FramePatch{
		ImageKey:   Ptr(ImageKey(frameID)),
		CreditCost: Ptr(img.CreditCost),
	}); err != nil {
		return nil, fmt.Errorf("recording image: %w", err)
	}

	updated, ok := s.frames.Get(frameID)
	if !ok {
		// Removed between the save and the update.
		if err := s.images.DeleteImage(frameID); err != nil {
			s.logger.Warn("orphan image cleanup failed", "frame", frameID, "error", err)
		}
		return nil, nil
	}
	s.logger.Info("image generated", "frame", frameID, "credits", img.CreditCost)
	return &updated, nil
}

// GenerationResult is the outcome for one frame of a batch.
type GenerationResult struct {
	FrameID string
	Frame   *Frame // nil when skipped, failed or deleted meanwhile
	Err     error
}

// GenerateProjectImages generates images for every frame of a project that
// has a prompt, running at most concurrency provider calls at once. A
// failing frame does not stop the others; per-frame errors are in the
// results, which follow frame order.
func (s *Service) GenerateProjectImages(ctx context.Context, projectID string, model gateway.Model, ratio gateway.AspectRatio, concurrency int) ([]GenerationResult, error) {
	if _, ok := s.projects.Get(projectID); !ok {
		return nil, fmt.Errorf("generating images for %s: %w", projectID, ErrProjectNotFound)
	}
	if concurrency < 1 {
		concurrency = 1
	}

	var targets []Frame
	for _, f := range s.frames.List(projectID) {
		if strings.TrimSpace(f.Prompt) != "" {
			targets = append(targets, f)
		}
	}

	results := make([]GenerationResult, len(targets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, f := range targets {
		results[i].FrameID = f.ID
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}
			out, err := s.GenerateImage(gctx, f.ID, model, ratio)
			results[i].Frame = out
			results[i].Err = err
			if err != nil {
				s.logger.Warn("batch generation failed", "frame", f.ID, "error", err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, ctx.Err()
}

// AttachImage stores a caller-supplied image for a frame. The payload must
// be a base64 image data URI of at most MaxImageBytes decoded bytes.
// The frame's credit cost is left untouched.
func (s *Service) AttachImage(frameID, dataURI string) (*Frame, error) {
	if _, ok := s.frames.Get(frameID); !ok {
		return nil, fmt.Errorf("attaching image to %s: %w", frameID, ErrFrameNotFound)
	}
	if err := validateImageURI(dataURI); err != nil {
		return nil, err
	}
	if err := s.images.SaveImage(frameID, dataURI); err != nil {
		return nil, fmt.Errorf("saving image: %w", err)
	}
	if err := s.frames.Update(frameID, FramePatch{ImageKey: Ptr(ImageKey(frameID))}); err != nil {
		return nil, fmt.Errorf("recording image: %w", err)
	}
	f, ok := s.frames.Get(frameID)
	if !ok {
		return nil, nil
	}
	return &f, nil
}

func validateImageURI(uri string) error {
	if !strings.HasPrefix(uri, "data:image/") {
		return &ValidationError{Field: "image", Message: "payload is not an image data URI"}
	}
	_, data, found := strings.Cut(uri, ";base64,")
	if !found {
		return &ValidationError{Field: "image", Message: "image data URI must be base64 encoded"}
	}
	if base64.StdEncoding.DecodedLen(len(data)) > MaxImageBytes+2 {
		return &ValidationError{Field: "image", Message: "image must not exceed 10MB"}
	}
	decoded, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return &ValidationError{Field: "image", Message: fmt.Sprintf("decoding image: %v", err)}
	}
	if len(decoded) > MaxImageBytes {
		return &ValidationError{Field: "image", Message: "image must not exceed 10MB"}
	}
	return nil
}

// RemoveImage deletes a frame's image and clears its image key and credit cost.
func (s *Service) RemoveImage(frameID string) error {
	if err := s.images.DeleteImage(frameID); err != nil {
		return fmt.Errorf("deleting image: %w", err)
	}
	if err := s.frames.Update(frameID, FramePatch{ClearImage: true}); err != nil {
		return fmt.Errorf("clearing image: %w", err)
	}
	return nil
}

// LoadImage returns the stored payload for a frame.
func (s *Service) LoadImage(frameID string) (string, bool, error) {
	payload, ok, err := s.images.LoadImage(frameID)
	if err != nil {
		return "", false, fmt.Errorf("loading image: %w", err)
	}
	return payload, ok, nil
}

// BundleVersion is the current ProjectBundle format.
const BundleVersion = 1

// ProjectBundle is the portable form of one project.
type ProjectBundle struct {
	Version int               `json:"version"`
	Project Project           `json:"project"`
	Frames  []Frame           `json:"frames"`
	Images  map[string]string `json:"images,omitempty"` // frame id to data URI
}

// ExportProject snapshots a project and its frames, optionally with images.
func (s *Service) ExportProject(projectID string, withImages bool) (*ProjectBundle, error) {
	p, ok := s.projects.Get(projectID)
	if !ok {
		return nil, fmt.Errorf("exporting %s: %w", projectID, ErrProjectNotFound)
	}
	b := &ProjectBundle{Version: BundleVersion, Project: p, Frames: s.frames.List(projectID)}
	if b.Frames == nil {
		b.Frames = []Frame{}
	}
	if !withImages {
		return b, nil
	}

	b.Images = make(map[string]string)
	for _, f := range b.Frames {
		if f.ImageKey == "" {
			continue
		}
		payload, ok, err := s.images.LoadImage(f.ID)
		if err != nil {
			return nil, fmt.Errorf("loading image for frame %s: %w", f.ID, err)
		}
		if ok {
			b.Images[f.ID] = payload
		}
	}
	return b, nil
}

// ImportResult summarizes an ImportProject call.
type ImportResult struct {
	ProjectCreated bool
	FramesAdded    int
	ImagesAdded    int
}

// ImportProject restores a bundle. Frames already known by id are skipped;
// new frames are appended after the project's existing frames in bundle order.
func (s *Service) ImportProject(b *ProjectBundle) (*ImportResult, error) {
	if b.Version != BundleVersion {
		return nil, &ValidationError{Field: "version", Message: fmt.Sprintf("unsupported bundle version %d", b.Version)}
	}
	projectID := b.Project.ID

	incoming := slices.Clone(b.Frames)
	slices.SortStableFunc(incoming, func(x, y Frame) int { return cmp.Compare(x.Order, y.Order) })

	base := s.frames.Count(projectID)
	var fresh []Frame
	seen := make(map[string]bool)
	for _, f := range incoming {
		if _, exists := s.frames.Get(f.ID); exists || seen[f.ID] {
			continue
		}
		seen[f.ID] = true
		f.ProjectID = projectID
		f.Order = base + len(fresh)
		if b.Images[f.ID] != "" {
			f.ImageKey = ImageKey(f.ID)
		} else {
			f.ImageKey = ""
		}
		fresh = append(fresh, f)
	}

	for _, f := range fresh {
		if payload := b.Images[f.ID]; payload != "" {
			if err := validateImageURI(payload); err != nil {
				return nil, fmt.Errorf("importing image for frame %s: %w", f.ID, err)
			}
		}
	}

	// Nothing is written until every image payload has been checked.
	created, err := s.projects.Import(b.Project)
	if err != nil {
		return nil, fmt.Errorf("importing project: %w", err)
	}

	added, err := s.frames.Import(fresh)
	if err != nil {
		return nil, fmt.Errorf("importing frames: %w", err)
	}
	res := &ImportResult{ProjectCreated: created, FramesAdded: added}

	for _, f := range fresh {
		payload := b.Images[f.ID]
		if payload == "" {
			continue
		}
		if err := s.images.SaveImage(f.ID, payload); err != nil {
			return res, fmt.Errorf("saving image for frame %s: %w", f.ID, err)
		}
		res.ImagesAdded++
	}
	s.logger.Info("project imported", "project", projectID, "frames", added, "images", res.ImagesAdded)
	return res, nil
}
