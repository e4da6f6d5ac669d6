package app

import (
	"time"

	"extension-mirror/internal/adapters"
	"extension-mirror/internal/ports"
)

// Service wires ports for the sync and validate use cases. Remote ports left
// nil are built from the request.
type Service struct {
	Registry  ports.RegistryPort
	Source    ports.MarketplacePort
	Mirror    ports.MarketplacePort
	Upstream  ports.UpstreamPort
	Publisher ports.PublisherPort
	Workspace ports.WorkspacePort
	Output    ports.ReportWriterPort
	Clock     func() time.Time
}

func NewService() Service {
	return Service{
		Registry: adapters.NewRegistryFileAdapter(),
		Clock:    time.Now,
	}
}

func timeNow(clock func() time.Time) time.Time {
	if clock == nil {
		return time.Now().UTC()
	}
	return clock().UTC()
}
