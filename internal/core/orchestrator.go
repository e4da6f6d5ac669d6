package core

import (
	"context"
	"fmt"
	"time"

	assert "github.com/ZanzyTHEbar/assert-lib"
	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"extension-mirror/internal/policies"
	"extension-mirror/internal/ports"
	"extension-mirror/internal/types"
)

type OrchestratorOptions struct {
	Force      bool
	SkipBuild  bool
	QueryFlags types.QueryFlags
}

// Orchestrator drives the batch one package at a time, in registry order.
// It is the only component holding cross-package state.
type Orchestrator struct {
	Source    ports.MarketplacePort
	Mirror    ports.MarketplacePort
	Resolver  Resolver
	Executor  TaskExecutor
	Publisher ports.PublisherPort
	Workspace ports.WorkspacePort
	Skip      policies.SkipPolicy
	Options   OrchestratorOptions
	Clock     func() time.Time

	timeoutFor func(cfg types.PackageConfig) time.Duration
}

func NewOrchestrator(source ports.MarketplacePort, mirror ports.MarketplacePort, upstream ports.UpstreamPort, publisher ports.PublisherPort, workspace ports.WorkspacePort, options OrchestratorOptions) Orchestrator {
	if options.QueryFlags == types.QueryFlagNone {
		options.QueryFlags = types.DefaultQueryFlags
	}
	return Orchestrator{
		Source:    source,
		Mirror:    mirror,
		Resolver:  NewResolver(upstream),
		Executor:  NewTaskExecutor(),
		Publisher: publisher,
		Workspace: workspace,
		Skip:      policies.NewSkipPolicy(options.Force, CompareVersions),
		Options:   options,
		Clock:     time.Now,
	}
}

// Run processes every package and returns the final report. Per-package
// failures are recorded, never returned.
func (o Orchestrator) Run(ctx context.Context, registry types.Registry) types.RunReport {
	accountant := NewAccountant()
	for i, cfg := range registry.Packages {
		logger := log.With().
			Str("extension", cfg.ID).
			Int("index", i+1).
			Int("total", len(registry.Packages)).
			Logger()
		o.process(ctx, accountant, cfg, logger)
	}
	report := accountant.Report(o.now())
	log.Info().
		Int("up_to_date", report.Summary.UpToDate).
		Int("outdated", report.Summary.Outdated).
		Int("unstable", report.Summary.Unstable).
		Int("not_in_mirror", report.Summary.NotInMirror).
		Int("not_in_source", report.Summary.NotInSource).
		Int("failed", report.Summary.Failed).
		Msg("sync finished")
	return report
}

func (o Orchestrator) process(ctx context.Context, accountant *Accountant, cfg types.PackageConfig, logger zerolog.Logger) {
	err := o.syncPackage(ctx, accountant, cfg, logger)
	if err == nil {
		return
	}
	accountant.MarkFailed(ctx, cfg.ID)
	event := logger.Error()
	message := "extension sync failed"
	if errbuilder.CodeOf(err) == errbuilder.CodeDeadlineExceeded {
		event = logger.Warn()
		message = "publish timed out and was killed"
	}
	event.
		Err(err).
		Str("repository", cfg.Repository).
		Str("pinned_version", cfg.Version).
		Int("timeout_minutes", cfg.TimeoutMinutes()).
		Msg(message)
}

func (o Orchestrator) syncPackage(ctx context.Context, accountant *Accountant, cfg types.PackageConfig, logger zerolog.Logger) error {
	assert.NotEmpty(ctx, cfg.ID, "registry entry must have an id")

	source := o.query(ctx, o.Source, cfg.ID, logger, "source marketplace")
	if source != nil && source.Prerelease {
		logger.Debug().Str("source_version", source.Version).Msg("source has no stable version, treating as absent")
		source = nil
	}
	mirror := o.query(ctx, o.Mirror, cfg.ID, logger, "mirror registry")

	classification := o.classify(ctx, accountant, cfg.ID, source, mirror)
	logger.Debug().
		Str("classification", string(classification)).
		Str("source_version", snapshotVersion(source)).
		Str("mirror_version", snapshotVersion(mirror)).
		Msg("classified")

	if reason := o.Skip.BeforeResolve(classification); reason != policies.SkipNone {
		logger.Info().Str("reason", string(reason)).Msg("skipping")
		return nil
	}

	workDir, err := o.Workspace.Reset()
	if err != nil {
		logger.Warn().Err(err).Str("dir", workDir).Msg("working directory cleanup incomplete")
	}

	resolution, err := o.Resolver.Resolve(ctx, cfg, HintFromSnapshot(source))
	if err != nil {
		return err
	}
	accountant.RecordResolution(ctx, cfg.ID, resolution)
	logger.Info().
		Str("kind", string(resolution.Kind)).
		Str("location", resolution.Location()).
		Str("version", resolution.Version).
		Msg("resolved")

	if reason := o.Skip.AfterResolve(resolution, snapshotVersion(mirror)); reason != policies.SkipNone {
		_, entry := classifySnapshots(source, mirror, o.now())
		accountant.Record(ctx, cfg.ID, types.ClassificationUpToDate, entry)
		logger.Info().Str("reason", string(reason)).Msg("skipping")
		return nil
	}

	if o.Options.SkipBuild {
		logger.Info().Msg("build skipped")
		return nil
	}

	procedure := o.Publisher.NewProcedure(types.PublishPayload{
		Extension:  cfg,
		ID:         cfg.ID,
		Resolution: resolution,
		WorkDir:    workDir,
		Version:    resolution.Version,
		Force:      o.Options.Force,
	})
	outcome := o.Executor.RunBounded(ctx, procedure, o.packageTimeout(cfg))
	switch outcome.Status {
	case types.TaskStatusTimedOut:
		return errbuilder.New().
			WithCode(errbuilder.CodeDeadlineExceeded).
			WithMsg(fmt.Sprintf("publish of %s timed out", cfg.ID)).
			WithCause(outcome.Err)
	case types.TaskStatusFailure:
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("publish of %s failed: %s", cfg.ID, outcome.Reason)).
			WithCause(outcome.Err)
	}
	logger.Info().Dur("duration", outcome.Duration).Msg("published")

	after := o.query(ctx, o.Mirror, cfg.ID, logger, "mirror registry")
	reclassified := o.classify(ctx, accountant, cfg.ID, source, after)
	logger.Info().
		Str("classification", string(reclassified)).
		Str("mirror_version", snapshotVersion(after)).
		Msg("reclassified")
	return nil
}

// query never fails the package: a marketplace error is logged and the
// package proceeds as if the marketplace did not know it.
func (o Orchestrator) query(ctx context.Context, marketplace ports.MarketplacePort, id string, logger zerolog.Logger, name string) *types.MarketplaceSnapshot {
	snapshot, err := marketplace.GetExtension(ctx, id, o.Options.QueryFlags)
	if err != nil {
		queryErr := errbuilder.New().
			WithCode(errbuilder.CodeUnavailable).
			WithMsg(name + " query failed").
			WithCause(err)
		logger.Warn().Err(queryErr).Msg(name + " query failed, treating as absent")
		return nil
	}
	return snapshot
}

func (o Orchestrator) classify(ctx context.Context, accountant *Accountant, id string, source *types.MarketplaceSnapshot, mirror *types.MarketplaceSnapshot) types.Classification {
	classification, entry := classifySnapshots(source, mirror, o.now())
	accountant.Record(ctx, id, classification, entry)
	return classification
}

func (o Orchestrator) packageTimeout(cfg types.PackageConfig) time.Duration {
	if o.timeoutFor != nil {
		return o.timeoutFor(cfg)
	}
	return cfg.TimeoutDuration()
}

func (o Orchestrator) now() time.Time {
	if o.Clock == nil {
		return time.Now().UTC()
	}
	return o.Clock().UTC()
}
