package llm

import (
	"context"
	"errors"

	"github.com/artisanhub/craft-ai-bridge/types"
)

var ErrNotSupported = errors.New("operation not supported by provider")

// ErrContentBlocked is wrapped by providers when the request or
// response was rejected by the provider's safety filters.
var ErrContentBlocked = errors.New("content blocked by safety policy")

// ErrEmptyResponse is wrapped by providers when the call succeeded but
// produced no usable payload. Callers treat this separately from a
// provider exception so it can be logged and diagnosed on its own.
var ErrEmptyResponse = errors.New("provider returned empty response")

type Capabilities struct {
	Tools            bool
	StructuredOutput bool
	Images           bool
}

type Provider interface {
	Name() string
	Capabilities() Capabilities
	Generate(ctx context.Context, req types.Request) (types.Response, error)
}

// ImageProvider synthesizes images. Providers without image models
// return ErrNotSupported.
type ImageProvider interface {
	GenerateImage(ctx context.Context, req types.ImageRequest) (types.Media, error)
}
