package app

import (
	"context"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"extension-mirror/internal/adapters"
	"extension-mirror/internal/core"
	"extension-mirror/internal/ports"
	"extension-mirror/internal/types"
)

// Sync loads the registry, runs the orchestrator over the selected packages
// and writes the report and failure list. Only setup and output problems are
// returned as errors; per-package failures live in the report.
func (s Service) Sync(ctx context.Context, req SyncRequest) (SyncResult, error) {
	_, selected, unknown, err := s.loadSelection(req.RegistryPath, req.Extensions)
	if err != nil {
		return SyncResult{}, err
	}
	for _, id := range unknown {
		log.Warn().Str("extension", id).Msg("allow-listed extension is not in the registry")
	}
	if !req.SkipBuild && s.Publisher == nil && strings.TrimSpace(req.PublishCommand) == "" {
		return SyncResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("publish command is required unless builds are skipped")
	}

	wired, err := s.wire(req)
	if err != nil {
		return SyncResult{}, err
	}
	orchestrator := core.NewOrchestrator(wired.Source, wired.Mirror, wired.Upstream, wired.Publisher, wired.Workspace, core.OrchestratorOptions{
		Force:      req.Force,
		SkipBuild:  req.SkipBuild,
		QueryFlags: types.QueryFlags(req.QueryFlags),
	})
	orchestrator.Clock = func() time.Time { return timeNow(s.Clock) }

	log.Info().
		Str("registry", selected.Path).
		Int("extensions", len(selected.Packages)).
		Bool("force", req.Force).
		Bool("skip_build", req.SkipBuild).
		Msg("starting sync")
	report := orchestrator.Run(ctx, selected)

	if err := wired.Output.WriteReport(report); err != nil {
		return SyncResult{}, err
	}
	if err := wired.Output.WriteFailedList(report.Failed); err != nil {
		return SyncResult{}, err
	}
	result := SyncResult{
		Report:   report,
		Selected: len(selected.Packages),
		Unknown:  unknown,
	}
	if files, ok := wired.Output.(adapters.OutputFileAdapter); ok {
		result.ReportPath = files.ReportPath
		result.FailedListPath = files.FailedListPath
	}
	return result, nil
}

type wiredPorts struct {
	Source    ports.MarketplacePort
	Mirror    ports.MarketplacePort
	Upstream  ports.UpstreamPort
	Publisher ports.PublisherPort
	Workspace ports.WorkspacePort
	Output    ports.ReportWriterPort
}

// wire fills every port the service does not already carry with the default
// adapter configured from the request.
func (s Service) wire(req SyncRequest) (wiredPorts, error) {
	options := adapters.NewHTTPOptions(req.HTTPTimeoutSec, req.HTTPRetries, req.HTTPRetryDelayMs)
	wired := wiredPorts{
		Source:    s.Source,
		Mirror:    s.Mirror,
		Upstream:  s.Upstream,
		Publisher: s.Publisher,
		Workspace: s.Workspace,
		Output:    s.Output,
	}
	if wired.Source == nil {
		wired.Source = adapters.NewGalleryMarketplaceAdapter(req.GalleryURL, options)
	}
	if wired.Mirror == nil {
		wired.Mirror = adapters.NewOpenVSXMarketplaceAdapter(req.OpenVSXURL, options)
	}
	if wired.Upstream == nil {
		github, err := adapters.NewGitHubUpstreamAdapter(req.GitHubAPI, req.GitHubToken, req.CacheSize, options)
		if err != nil {
			return wiredPorts{}, err
		}
		wired.Upstream = adapters.NewUpstreamRouterAdapter(github, adapters.NewGitUpstreamAdapter(), req.GitHubHosts...)
	}
	if wired.Publisher == nil {
		wired.Publisher = adapters.NewProcessPublisherAdapter(req.PublishCommand, req.PublishEnv)
	}
	if wired.Workspace == nil {
		wired.Workspace = adapters.NewWorkspaceAdapter(req.WorkDir)
	}
	if wired.Output == nil {
		wired.Output = adapters.NewOutputFileAdapter(req.ReportPath, req.FailedListPath)
	}
	return wired, nil
}
