// Package gateway talks to the remote image and text generation providers.
// Every failure comes back as a *Error carrying a Kind.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// PlaceholderAPIKey is the sample value shipped in .env templates. It is
// treated the same as an unset key.
const PlaceholderAPIKey = "your_api_key_here"

const (
	DefaultInlineBaseURL = "https://generativelanguage.googleapis.com"
	DefaultTextModel     = "gemini-2.5-flash"

	maxResponseBytes = 32 << 20
)

// ProviderKind selects the image generation backend.
type ProviderKind string

const (
	// ProviderInline returns base64 image data directly in the response.
	ProviderInline ProviderKind = "inline"
	// ProviderJob returns a URL that must be fetched to obtain the image.
	ProviderJob ProviderKind = "job"
)

type Options struct {
	ImageProvider ProviderKind
	GoogleAPIKey  string // inline image provider and text provider
	JobAPIKey     string // job image provider
	InlineBaseURL string
	JobURL        string
	TextModel     string

	// RateInterval spaces out provider calls. Zero disables limiting.
	RateInterval time.Duration
	RateBurst    int

	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Gateway is safe for concurrent use.
type Gateway struct {
	opts    Options
	client  *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

func New(opts Options) *Gateway {
	if opts.ImageProvider == "" {
		opts.ImageProvider = ProviderInline
	}
	if opts.InlineBaseURL == "" {
		opts.InlineBaseURL = DefaultInlineBaseURL
	}
	opts.InlineBaseURL = strings.TrimRight(opts.InlineBaseURL, "/")
	if opts.TextModel == "" {
		opts.TextModel = DefaultTextModel
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Minute}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	var limiter *rate.Limiter
	if opts.RateInterval > 0 {
		burst := opts.RateBurst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Every(opts.RateInterval), burst)
	}
	return &Gateway{opts: opts, client: client, limiter: limiter, logger: logger.With("component", "gateway")}
}

// ImageRequest describes one image generation.
type ImageRequest struct {
	Prompt      string
	Model       Model       // DefaultModel when empty
	AspectRatio AspectRatio // DefaultAspectRatio when empty
}

// GeneratedImage is a successful generation.
type GeneratedImage struct {
	Payload    string // data:<mime>;base64,<data>
	CreditCost int
}

type imageBackend interface {
	generate(ctx context.Context, req ImageRequest) (string, error)
}

// GenerateImage produces one image for req. The credential is checked before
// any network traffic.
func (g *Gateway) GenerateImage(ctx context.Context, req ImageRequest) (img *GeneratedImage, err error) {
	defer recoverInto(&err)

	if req.Model == "" {
		req.Model = DefaultModel
	}
	if req.AspectRatio == "" {
		req.AspectRatio = DefaultAspectRatio
	}
	// Only the empty prompt is rejected; whitespace goes to the provider as-is.
	if req.Prompt == "" {
		return nil, validationError("prompt must not be empty")
	}
	if !req.Model.Valid() {
		return nil, validationError("unknown model %q", req.Model)
	}
	if !req.AspectRatio.Valid() {
		return nil, validationError("unknown aspect ratio %q", req.AspectRatio)
	}

	backend, err := g.imageBackend()
	if err != nil {
		return nil, err
	}
	if err := g.wait(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	payload, err := backend.generate(ctx, req)
	if err != nil {
		g.logger.Warn("image generation failed", "provider", g.opts.ImageProvider, "model", req.Model, "kind", KindOf(err), "error", err)
		return nil, err
	}
	g.logger.Info("image generated", "provider", g.opts.ImageProvider, "model", req.Model, "elapsed", time.Since(start))
	return &GeneratedImage{Payload: payload, CreditCost: CreditCost(req.Model)}, nil
}

func (g *Gateway) imageBackend() (imageBackend, error) {
	switch g.opts.ImageProvider {
	case ProviderInline:
		if !usableKey(g.opts.GoogleAPIKey) {
			return nil, configurationError("GOOGLE_AI_API_KEY is not set")
		}
		return &inlineBackend{g: g, key: g.opts.GoogleAPIKey}, nil
	case ProviderJob:
		if !usableKey(g.opts.JobAPIKey) {
			return nil, configurationError("IMAGE_JOB_API_KEY is not set")
		}
		if g.opts.JobURL == "" {
			return nil, configurationError("job provider url is not set")
		}
		return &jobBackend{g: g, key: g.opts.JobAPIKey, endpoint: g.opts.JobURL}, nil
	default:
		return nil, configurationError("unknown image provider %q", g.opts.ImageProvider)
	}
}

func (g *Gateway) wait(ctx context.Context) error {
	if g.limiter == nil {
		return nil
	}
	if err := g.limiter.Wait(ctx); err != nil {
		return networkError(err.Error())
	}
	return nil
}

func usableKey(key string) bool {
	k := strings.TrimSpace(key)
	return k != "" && k != PlaceholderAPIKey
}

// postJSON sends body and returns the response bytes of a 2xx answer.
func (g *Gateway) postJSON(ctx context.Context, endpoint string, header http.Header, body any) ([]byte, error) {
	buf, err := json.Marshal(body)
	if err != nil {
		return nil, validationError("encoding request: %v", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(buf))
	if err != nil {
		return nil, networkError(err.Error())
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Content-Type", "application/json")
	b, _, err := g.do(req)
	return b, err
}

// do performs req and returns the body and content type of a 2xx answer.
func (g *Gateway) do(req *http.Request) ([]byte, string, error) {
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, "", networkError(transportMessage(err))
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, "", networkError(fmt.Sprintf("reading response: %v", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", rejectionError(resp.StatusCode, b)
	}
	return b, resp.Header.Get("Content-Type"), nil
}

// transportMessage drops the request URL from client errors so query-string
// credentials never reach logs.
func transportMessage(err error) string {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return uerr.Err.Error()
	}
	return err.Error()
}

func recoverInto(err *error) {
	if r := recover(); r != nil {
		*err = networkError(fmt.Sprint(r))
	}
}
