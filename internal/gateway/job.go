package gateway

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
)

// jobBackend submits a generation job and downloads the image it points to.
type jobBackend struct {
	g        *Gateway
	key      string
	endpoint string
}

type jobRequest struct {
	Prompt    string `json:"prompt"`
	Num       int    `json:"num"`
	Model     string `json:"model"`
	ImageSize string `json:"image_size"`
}

type jobResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    *struct {
		URL urlList `json:"url"`
	} `json:"data"`
}

// urlList accepts either a single string or a list of strings.
type urlList []string

func (u *urlList) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*u = nil
		return nil
	}
	var one string
	if err := json.Unmarshal(b, &one); err == nil {
		*u = urlList{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(b, &many); err != nil {
		return fmt.Errorf("url must be a string or a list of strings: %w", err)
	}
	*u = many
	return nil
}

func (b *jobBackend) generate(ctx context.Context, req ImageRequest) (string, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+b.key)
	raw, err := b.g.postJSON(ctx, b.endpoint, header, jobRequest{
		Prompt:    req.Prompt,
		Num:       1,
		Model:     string(req.Model),
		ImageSize: string(req.AspectRatio),
	})
	if err != nil {
		return "", err
	}

	var resp jobResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", malformedError("decoding job response: %v", err)
	}
	if resp.Code != 0 {
		return "", &Error{Kind: KindProviderRejection, Message: fmt.Sprintf("job rejected (code %d): %s", resp.Code, truncate(resp.Message, maxErrorBody))}
	}
	if resp.Data == nil || len(resp.Data.URL) == 0 || resp.Data.URL[0] == "" {
		if resp.Message != "" {
			return "", malformedError("%s", resp.Message)
		}
		return "", malformedError("provider returned no image url")
	}

	return b.fetch(ctx, resp.Data.URL[0])
}

func (b *jobBackend) fetch(ctx context.Context, imageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return "", malformedError("invalid image url %q: %v", imageURL, err)
	}
	data, contentType, err := b.g.do(req)
	if err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", malformedError("image download was empty")
	}
	mediaType := "image/png"
	if contentType != "" {
		if mt, _, err := mime.ParseMediaType(contentType); err == nil && mt != "" {
			mediaType = mt
		}
	}
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}
