package gateway

import (
	"context"
	"encoding/json"
	"strings"
	"time"
)

// ContinuationRequest is the context a next frame is derived from.
type ContinuationRequest struct {
	ProjectDescription string
	Prompt             string
	Speaker            string
	Dialogue           string
}

// Continuation is a proposed next frame.
type Continuation struct {
	Prompt   string `json:"prompt"`
	Speaker  string `json:"speaker"`
	Dialogue string `json:"dialogue"`
}

// ContinuationInstruction renders the instruction sent to the text model.
func ContinuationInstruction(req ContinuationRequest) string {
	desc := req.ProjectDescription
	if desc == "" {
		desc = "A cinematic video project."
	}
	return strings.Join([]string{
		"You are a cinematic storyboard assistant. Given the current frame's scene description and dialogue, generate the NEXT frame that continues the narrative.",
		"Project context: " + desc,
		"",
		"Current frame:",
		"- Scene: " + req.Prompt,
		"- Speaker: " + orNA(req.Speaker),
		"- Dialogue: " + orNA(req.Dialogue),
		"",
		"Generate the next frame. Respond in EXACTLY this JSON format, nothing else:",
		`{"prompt":"<English scene description for image generation, cinematic and detailed>","speaker":"<same speaker or new character, in original language>","dialogue":"<dialogue in the same language as the current dialogue>"}`,
	}, "\n")
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

// ContinueNarrative asks the text model for the frame that follows req.
// An empty speaker in the answer falls back to the current speaker.
func (g *Gateway) ContinueNarrative(ctx context.Context, req ContinuationRequest) (c *Continuation, err error) {
	defer recoverInto(&err)

	if !usableKey(g.opts.GoogleAPIKey) {
		return nil, configurationError("GOOGLE_AI_API_KEY is not set")
	}
	if err := g.wait(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	raw, err := g.postJSON(ctx, g.contentURL(g.opts.TextModel, g.opts.GoogleAPIKey), nil, contentRequest{
		Contents:         []content{{Parts: []part{{Text: ContinuationInstruction(req)}}}},
		GenerationConfig: generationConfig{ResponseMimeType: "application/json"},
	})
	if err != nil {
		g.logger.Warn("continuation failed", "kind", KindOf(err), "error", err)
		return nil, err
	}

	var resp contentResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, malformedError("decoding provider response: %v", err)
	}
	parts, err := resp.firstParts()
	if err != nil {
		return nil, err
	}
	text := strings.TrimSpace(parts[0].Text)
	if text == "" {
		return nil, malformedError("provider returned no content")
	}

	var out Continuation
	if err := json.Unmarshal([]byte(stripFence(text)), &out); err != nil {
		return nil, malformedError("parsing continuation: %v", err)
	}
	if out.Speaker == "" {
		out.Speaker = req.Speaker
	}
	g.logger.Info("continuation generated", "model", g.opts.TextModel, "elapsed", time.Since(start))
	return &out, nil
}

// stripFence removes a surrounding markdown code fence, which text models add
// now and then despite the JSON mime type.
func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
