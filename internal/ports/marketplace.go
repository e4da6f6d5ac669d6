package ports

import (
	"context"

	"extension-mirror/internal/types"
)

// MarketplacePort queries one registry for the latest known state of a
// package. Implementations apply their own retry policy. A nil snapshot with
// a nil error means the registry does not know the package.
type MarketplacePort interface {
	GetExtension(ctx context.Context, id string, flags types.QueryFlags) (*types.MarketplaceSnapshot, error)
}
