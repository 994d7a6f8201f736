package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

type inlineBackend struct {
	g   *Gateway
	key string
}

type contentRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type generationConfig struct {
	ResponseModalities []string `json:"responseModalities,omitempty"`
	ResponseMimeType   string   `json:"responseMimeType,omitempty"`
}

type contentResponse struct {
	Candidates []struct {
		Content *content `json:"content"`
	} `json:"candidates"`
}

// firstParts returns the parts of the first candidate.
func (r contentResponse) firstParts() ([]part, error) {
	if len(r.Candidates) == 0 || r.Candidates[0].Content == nil {
		return nil, malformedError("provider returned no candidates")
	}
	parts := r.Candidates[0].Content.Parts
	if len(parts) == 0 {
		return nil, malformedError("provider returned no content parts")
	}
	return parts, nil
}

func (g *Gateway) contentURL(model, key string) string {
	return fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", g.opts.InlineBaseURL, model, url.QueryEscape(key))
}

func (b *inlineBackend) generate(ctx context.Context, req ImageRequest) (string, error) {
	body := contentRequest{
		Contents: []content{{Parts: []part{{
			Text: fmt.Sprintf("Generate an image in %s aspect ratio: %s", req.AspectRatio, req.Prompt),
		}}}},
		GenerationConfig: generationConfig{ResponseModalities: []string{"IMAGE", "TEXT"}},
	}
	raw, err := b.g.postJSON(ctx, b.g.contentURL(string(req.Model), b.key), nil, body)
	if err != nil {
		return "", err
	}

	var resp contentResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", malformedError("decoding provider response: %v", err)
	}
	parts, err := resp.firstParts()
	if err != nil {
		return "", err
	}

	var text string
	for _, p := range parts {
		if p.InlineData != nil && p.InlineData.Data != "" {
			mime := p.InlineData.MimeType
			if mime == "" {
				mime = "image/png"
			}
			return "data:" + mime + ";base64," + p.InlineData.Data, nil
		}
		if text == "" && strings.TrimSpace(p.Text) != "" {
			text = p.Text
		}
	}
	if text != "" {
		return "", malformedError("%s", text)
	}
	return "", malformedError("provider returned no image")
}
