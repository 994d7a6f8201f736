// Package prompt compiles frames into the natural-language prompts sent to
// generative models. The output wording is part of the contract with those
// models, so every function here is pure and deterministic.
package prompt

import (
	"strconv"
	"strings"

	"frameforge/internal/ff"
)

// Narrative renders one frame as a single comma-separated sentence:
// scene, dialogue, style, mood, camera movement and duration.
func Narrative(f ff.Frame) string {
	parts := []string{f.Prompt}
	if d := dialogueClause(f.Speaker, f.Dialogue); d != "" {
		parts = append(parts, d)
	}
	parts = append(parts,
		string(f.Style)+" style",
		string(f.Mood)+" atmosphere",
		strings.ToLower(string(f.CameraMovement)),
		formatSeconds(f.Duration),
	)
	return strings.Join(parts, ", ") + "."
}

func dialogueClause(speaker, dialogue string) string {
	switch {
	case dialogue == "":
		return ""
	case speaker != "":
		return speaker + ` says: "` + dialogue + `"`
	default:
		return `Speaking: "` + dialogue + `"`
	}
}

// formatSeconds prints d in its shortest decimal form: 8 -> "8s", 7.5 -> "7.5s".
func formatSeconds(d float64) string {
	return strconv.FormatFloat(d, 'f', -1, 64) + "s"
}
