package ff

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"frameforge/internal/gateway"
)

// NextFrameInput carries the live values of the source frame, which may be
// ahead of what the repository holds while edits are pending.
type NextFrameInput struct {
	Prompt   string
	Speaker  string
	Dialogue string
}

// GenerateNextFrame asks the text provider for the frame that follows
// sourceID and inserts it directly after the source. On failure nothing is
// mutated. When the source frame is deleted while the call is outstanding,
// GenerateNextFrame returns (nil, nil).
func (s *Service) GenerateNextFrame(ctx context.Context, sourceID string, in NextFrameInput) (*Frame, error) {
	src, ok := s.frames.Get(sourceID)
	if !ok {
		return nil, fmt.Errorf("continuing %s: %w", sourceID, ErrFrameNotFound)
	}
	if strings.TrimSpace(in.Prompt) == "" {
		return nil, &ValidationError{Field: "prompt", Message: "fill in the scene description first"}
	}
	var desc string
	if p, ok := s.projects.Get(src.ProjectID); ok {
		desc = p.Description
	}

	next, err := s.continuer.ContinueNarrative(ctx, gateway.ContinuationRequest{
		ProjectDescription: desc,
		Prompt:             in.Prompt,
		Speaker:            in.Speaker,
		Dialogue:           in.Dialogue,
	})
	if err != nil {
		return nil, err
	}

	f, err := s.frames.InsertAfter(sourceID, FramePatch{
		Prompt:   Ptr(next.Prompt),
		Dialogue: Ptr(next.Dialogue),
		Speaker:  Ptr(next.Speaker),
	})
	if errors.Is(err, ErrFrameNotFound) {
		s.logger.Info("source frame deleted during continuation, result dropped", "frame", sourceID)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("inserting next frame: %w", err)
	}
	s.logger.Info("next frame generated", "source", sourceID, "frame", f.ID)
	return &f, nil
}
