package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"extension-mirror/internal/adapters"
	"extension-mirror/internal/app"
	"extension-mirror/internal/types"
)

type syncOptions struct {
	Registry       string
	Extensions     []string
	Force          bool
	SkipBuild      bool
	PublishCommand string
	PublishEnv     []string
	Report         string
	FailedList     string
	WorkDir        string

	GalleryURL  string
	OpenVSXURL  string
	GitHubAPI   string
	GitHubToken string
	GitHubHosts []string
	CacheSize   int
	QueryFlags  int

	HTTPTimeout      int
	HTTPRetries      int
	HTTPRetryDelayMs int
}

func newSyncCommand() *cobra.Command {
	opts := syncOptions{}
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Republish every extension whose mirror copy is missing or outdated",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSync(cmd.Context(), cmd, opts)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&opts.Registry, "registry", "extensions.json", "Registry definition file (json, yaml or toml)")
	flags.StringSliceVar(&opts.Extensions, "extensions", nil, "Only sync these extension ids (publisher.* wildcards allowed)")
	flags.BoolVar(&opts.Force, "force", false, "Republish even when the mirror is up to date or ahead")
	flags.BoolVar(&opts.SkipBuild, "skip-build", false, "Classify and resolve only, never publish")
	flags.StringVar(&opts.PublishCommand, "publish-command", "", "Shell command that builds and publishes one extension (payload JSON on stdin)")
	flags.StringSliceVar(&opts.PublishEnv, "publish-env", nil, "Extra KEY=VALUE pairs for the publish command")
	flags.StringVar(&opts.Report, "report", adapters.DefaultReportPath, "Report output path")
	flags.StringVar(&opts.FailedList, "failed-list", adapters.DefaultFailedListPath, "Failed extension list output path")
	flags.StringVar(&opts.WorkDir, "work-dir", "", "Shared working directory wiped before each extension")
	flags.StringVar(&opts.GalleryURL, "gallery-url", adapters.DefaultGalleryEndpoint, "Source marketplace gallery endpoint")
	flags.StringVar(&opts.OpenVSXURL, "openvsx-url", adapters.DefaultOpenVSXEndpoint, "Mirror registry endpoint")
	flags.StringVar(&opts.GitHubAPI, "github-api", adapters.DefaultGitHubAPI, "GitHub API base URL")
	flags.StringVar(&opts.GitHubToken, "github-token", "", "GitHub token (or EXTENSION_MIRROR_GITHUB_TOKEN)")
	flags.StringSliceVar(&opts.GitHubHosts, "github-host", []string{"github.com"}, "Hosts served by the GitHub API; other hosts use plain git")
	flags.IntVar(&opts.CacheSize, "cache-size", 512, "Upstream response cache entries")
	flags.IntVar(&opts.QueryFlags, "query-flags", int(types.DefaultQueryFlags), "Gallery extensionquery flags")
	flags.IntVar(&opts.HTTPTimeout, "http-timeout", 60, "HTTP timeout in seconds")
	flags.IntVar(&opts.HTTPRetries, "http-retries", 5, "HTTP retries on transient failures")
	flags.IntVar(&opts.HTTPRetryDelayMs, "http-retry-delay-ms", 200, "Initial HTTP retry delay in milliseconds")
	return cmd
}

func runSync(ctx context.Context, cmd *cobra.Command, opts syncOptions) error {
	service := newAppService()
	result, err := service.Sync(ctx, app.SyncRequest{
		RegistryPath:     resolveString(cmd, opts.Registry, "registry", "registry"),
		Extensions:       resolveStrings(cmd, opts.Extensions, "extensions", "extensions"),
		Force:            resolveBool(cmd, opts.Force, "force", "force"),
		SkipBuild:        resolveBool(cmd, opts.SkipBuild, "skip_build", "skip-build"),
		PublishCommand:   resolveString(cmd, opts.PublishCommand, "publish_command", "publish-command"),
		PublishEnv:       resolveStrings(cmd, opts.PublishEnv, "publish_env", "publish-env"),
		ReportPath:       resolveString(cmd, opts.Report, "report", "report"),
		FailedListPath:   resolveString(cmd, opts.FailedList, "failed_list", "failed-list"),
		WorkDir:          resolveString(cmd, opts.WorkDir, "work_dir", "work-dir"),
		GalleryURL:       resolveString(cmd, opts.GalleryURL, "gallery_url", "gallery-url"),
		OpenVSXURL:       resolveString(cmd, opts.OpenVSXURL, "openvsx_url", "openvsx-url"),
		GitHubAPI:        resolveString(cmd, opts.GitHubAPI, "github_api", "github-api"),
		GitHubToken:      resolveString(cmd, opts.GitHubToken, "github_token", "github-token"),
		GitHubHosts:      resolveStrings(cmd, opts.GitHubHosts, "github_host", "github-host"),
		CacheSize:        resolveInt(cmd, opts.CacheSize, "cache_size", "cache-size"),
		QueryFlags:       resolveInt(cmd, opts.QueryFlags, "query_flags", "query-flags"),
		HTTPTimeoutSec:   resolveInt(cmd, opts.HTTPTimeout, "http_timeout", "http-timeout"),
		HTTPRetries:      resolveInt(cmd, opts.HTTPRetries, "http_retries", "http-retries"),
		HTTPRetryDelayMs: resolveInt(cmd, opts.HTTPRetryDelayMs, "http_retry_delay_ms", "http-retry-delay-ms"),
	})
	if err != nil {
		return err
	}
	summary := result.Report.Summary
	fmt.Printf("synced %d extensions: %d up to date, %d outdated, %d unstable, %d not in mirror, %d not in source, %d failed\n",
		result.Selected, summary.UpToDate, summary.Outdated, summary.Unstable, summary.NotInMirror, summary.NotInSource, summary.Failed)
	if result.ReportPath != "" {
		fmt.Printf("report: %s\n", result.ReportPath)
	}
	if result.FailedListPath != "" && summary.Failed > 0 {
		fmt.Printf("failed list: %s\n", result.FailedListPath)
	}
	return nil
}
