package ports

import (
	"context"

	"extension-mirror/internal/types"
)

// Procedure is one opaque, cancellable unit of publish work. Run must return
// promptly once ctx is done.
type Procedure interface {
	Run(ctx context.Context) error
}

// ProcedureFunc adapts a plain function to Procedure.
type ProcedureFunc func(ctx context.Context) error

func (f ProcedureFunc) Run(ctx context.Context) error {
	return f(ctx)
}

// PublisherPort builds the publish procedure for one resolved package.
type PublisherPort interface {
	NewProcedure(payload types.PublishPayload) Procedure
}
