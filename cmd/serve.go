package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/teemow/meetingscheduler/internal/calendar"
	"github.com/teemow/meetingscheduler/internal/config"
	"github.com/teemow/meetingscheduler/internal/google"
	"github.com/teemow/meetingscheduler/internal/instrumentation"
	"github.com/teemow/meetingscheduler/internal/resources"
	"github.com/teemow/meetingscheduler/internal/server"
	"github.com/teemow/meetingscheduler/internal/tools/calendar_tools"
)

func newServeCmd() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the Model Context Protocol (MCP) server on standard input/output.

The server exposes the calendar reader to AI assistants:
  - calendar_busy_intervals: busy schedule of one or more participants
  - calendar_list_events: events of a single calendar
  - scheduler://profile: the operator profile and working hours

The server never runs the interactive authorization flow. Store a credential
first with "meetingscheduler auth".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			return runServe(ctx, cfg)
		},
	}

	opts.addCommonFlags(cmd)
	opts.addMetricsFlag(cmd)
	return cmd
}

func runServe(ctx context.Context, cfg config.Config) error {
	logger := newLogger(cfg)

	// stdout carries the MCP stream.
	instrConfig := instrumentation.DefaultConfig()
	if instrConfig.MetricsExporter == instrumentation.ExporterStdout || instrConfig.TracingExporter == instrumentation.ExporterStdout {
		return fmt.Errorf("stdout exporters cannot be used with the stdio transport")
	}

	provider, shutdown, err := startInstrumentation(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer shutdown()

	serverContext, err := newServerContext(ctx, cfg, provider.Metrics(), logger)
	if err != nil {
		return err
	}
	defer func() {
		_ = serverContext.Shutdown()
	}()

	if !serverContext.CalendarClient().HasToken() {
		logger.Warn("no stored Google credential, calendar tools will fail until \"meetingscheduler auth\" is run",
			"path", cfg.TokenFile)
	}

	mcpSrv, err := newMCPServer(serverContext)
	if err != nil {
		return err
	}
	return runStdioServer(mcpSrv)
}

func newServerContext(ctx context.Context, cfg config.Config, metrics *instrumentation.Metrics, logger *slog.Logger) (*server.ServerContext, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	cal := calendar.NewClient(google.NewFileTokenProvider(cfg.TokenFile),
		calendar.WithLogger(logger),
		calendar.WithMetrics(metrics),
	)
	return server.NewServerContext(ctx, cal,
		server.WithMetrics(metrics),
		server.WithLogger(logger),
		server.WithLocation(loc),
		server.WithProfile(cfg.Profile()),
	), nil
}

// newMCPServer creates the MCP server with every tool registered.
func newMCPServer(sc *server.ServerContext) (*mcpserver.MCPServer, error) {
	mcpSrv := mcpserver.NewMCPServer("meetingscheduler", version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithResourceCapabilities(false, false), // Subscribe and listChanged
	)
	if err := calendar_tools.RegisterCalendarTools(mcpSrv, sc); err != nil {
		return nil, fmt.Errorf("failed to register Calendar tools: %w", err)
	}
	if err := resources.RegisterProfileResources(mcpSrv, sc); err != nil {
		return nil, fmt.Errorf("failed to register profile resources: %w", err)
	}
	return mcpSrv, nil
}

func runStdioServer(mcpSrv *mcpserver.MCPServer) error {
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := mcpserver.ServeStdio(mcpSrv); err != nil {
			serverDone <- err
		}
	}()

	err := <-serverDone
	if err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}
