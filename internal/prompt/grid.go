package prompt

import (
	"errors"
	"fmt"
	"strings"

	"frameforge/internal/ff"
)

// ErrInvalidGridSize is returned for grid sizes other than 9 and 25.
var ErrInvalidGridSize = errors.New("grid size must be 9 or 25")

// Supported grid sizes.
const (
	Grid3x3 = 9
	Grid5x5 = 25
)

// Grid renders frames as one prompt asking for a single composited image of
// size panels. Frames beyond size are ignored; fewer frames leave the grid
// partly described.
func Grid(frames []ff.Frame, size int) (string, error) {
	var cols int
	switch size {
	case Grid3x3:
		cols = 3
	case Grid5x5:
		cols = 5
	default:
		return "", fmt.Errorf("%w: %d", ErrInvalidGridSize, size)
	}
	rows := cols
	total := min(len(frames), size)

	lines := []string{
		fmt.Sprintf("Generate EXACTLY ONE image: a %dx%d grid of %d cinematic storyboard panels.", cols, rows, total),
		fmt.Sprintf("Keep the original scene style consistent across all panels. Shoot a set of %d-panel storyboard photography images. Each panel must be unique with narrative flow and visual continuity.", total),
		"Each panel ratio: 16:9. Panels are tightly adjacent with NO borders, NO gaps, NO white space between them. 4K high-definition quality.",
		"Do NOT add any text, subtitles, numbers, labels, captions, or speech bubbles anywhere in the image. Pure visual only.",
		"",
		fmt.Sprintf("Character Reference: The characters must match the appearance of the person(s) in the uploaded reference photo exactly — same face, hairstyle, body proportions, and clothing. Maintain identical character appearance across all %d panels.", total),
		"",
	}
	for i, f := range frames[:total] {
		lines = append(lines, panelLine(i+1, f))
	}
	lines = append(lines,
		"",
		"Critical rules:",
		fmt.Sprintf("- ONE single composited image, NOT %d separate images.", total),
		"- Each panel must show a clearly different camera angle, distance, or composition.",
		"- Vary between: extreme wide, wide, medium, medium close-up, close-up, extreme close-up, low angle, high angle, over-the-shoulder, bird's eye, dutch angle.",
		"- No two adjacent panels should have the same framing.",
		"- The sequence must feel like keyframes from a continuous video — with narrative progression and emotional arc.",
		"- Absolutely NO text or labels of any kind in the final image.",
	)
	return strings.Join(lines, "\n"), nil
}

func panelLine(n int, f ff.Frame) string {
	speaker := ""
	if f.Speaker != "" {
		speaker = " (" + f.Speaker + ")"
	}
	return fmt.Sprintf("Panel %d: %s%s, %s, %s, %s", n, f.Prompt, speaker, strings.ToLower(string(f.CameraMovement)), f.Style, f.Mood)
}

// FrameGrid renders a 3x3 grid prompt for a single frame.
func FrameGrid(f ff.Frame) string {
	s, _ := Grid([]ff.Frame{f}, Grid3x3)
	return s
}
