package testutil

import (
	"context"
	"sync"

	"frameforge/internal/gateway"
)

// StubImageGenerator records image requests and answers them with a fixed
// result. Hook, when set, runs before the answer and may block or fail.
type StubImageGenerator struct {
	mu       sync.Mutex
	requests []gateway.ImageRequest

	Payload string
	Cost    int
	Err     error
	Hook    func(ctx context.Context, req gateway.ImageRequest) error
}

// NewStubImageGenerator answers every request with a tiny PNG data URI at cost 2.
func NewStubImageGenerator() *StubImageGenerator {
	return &StubImageGenerator{Payload: TinyPNG, Cost: gateway.DefaultCreditCost}
}

func (g *StubImageGenerator) GenerateImage(ctx context.Context, req gateway.ImageRequest) (*gateway.GeneratedImage, error) {
	g.mu.Lock()
	g.requests = append(g.requests, req)
	hook, payload, cost, err := g.Hook, g.Payload, g.Cost, g.Err
	g.mu.Unlock()

	if hook != nil {
		if err := hook(ctx, req); err != nil {
			return nil, err
		}
	}
	if err != nil {
		return nil, err
	}
	return &gateway.GeneratedImage{Payload: payload, CreditCost: cost}, nil
}

// Requests returns the requests seen so far.
func (g *StubImageGenerator) Requests() []gateway.ImageRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]gateway.ImageRequest(nil), g.requests...)
}

// StubContinuer records continuation requests and answers with Result.
type StubContinuer struct {
	mu       sync.Mutex
	requests []gateway.ContinuationRequest

	Result gateway.Continuation
	Err    error
	Hook   func(ctx context.Context, req gateway.ContinuationRequest) error
}

func (c *StubContinuer) ContinueNarrative(ctx context.Context, req gateway.ContinuationRequest) (*gateway.Continuation, error) {
	c.mu.Lock()
	c.requests = append(c.requests, req)
	hook, result, err := c.Hook, c.Result, c.Err
	c.mu.Unlock()

	if hook != nil {
		if err := hook(ctx, req); err != nil {
			return nil, err
		}
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *StubContinuer) Requests() []gateway.ContinuationRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]gateway.ContinuationRequest(nil), c.requests...)
}

// TinyPNG is a valid image data URI small enough for any size limit.
const TinyPNG = "data:image/png;base64,iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg=="
