package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teemow/meetingscheduler/internal/assistant"
	"github.com/teemow/meetingscheduler/internal/calendar"
	"github.com/teemow/meetingscheduler/internal/config"
	"github.com/teemow/meetingscheduler/internal/google"
	"github.com/teemow/meetingscheduler/internal/instrumentation"
	"github.com/teemow/meetingscheduler/internal/scheduler"
	"github.com/teemow/meetingscheduler/internal/shell"
)

func newChatCmd() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start the interactive scheduling shell",
		Long: `Start an interactive shell that turns meeting requests into proposed slots.

Example request:
  Schedule a meeting with me, a@x.com and b@x.com on Tuesday afternoon for 15 minutes

When no credential is stored the Google authorization flow runs before the
shell starts; the credential is saved to the token file.

Configuration:
  OPENAI_API_KEY is required. Other settings come from flags, environment
  variables (MEETINGSCHEDULER_*) or a YAML profile passed with --config.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			if err := cfg.ValidateChat(); err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			return runChat(ctx, cfg, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	opts.addChatFlags(cmd)
	return cmd
}

func runChat(ctx context.Context, cfg config.Config, in io.Reader, out io.Writer) error {
	logger := newLogger(cfg)

	provider, shutdown, err := startInstrumentation(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer shutdown()

	backend := assistant.NewOpenAIBackend(cfg.OpenAIAPIKey)
	authorizer := &google.Authorizer{
		KeyFile:   cfg.CredentialsFile,
		TokenFile: cfg.TokenFile,
		Out:       out,
		Logger:    logger,
		Metrics:   provider.Metrics(),
	}

	if err := ensureAuthorized(ctx, authorizer, logger); err != nil {
		return err
	}

	sched, err := newScheduler(cfg, backend, authorizer, provider.Metrics(), logger)
	if err != nil {
		return err
	}
	return shell.New(sched, in, out, logger).Run(ctx)
}

// ensureAuthorized runs the interactive flow up front when no credential is
// stored, so consent is bounded by the flow's own timeout rather than a run's.
func ensureAuthorized(ctx context.Context, tokens google.TokenProvider, logger *slog.Logger) error {
	if tokens.HasToken() {
		return nil
	}
	logger.Info("no stored Google credential, authorizing before the shell starts")
	if _, err := tokens.TokenSource(ctx); err != nil {
		return fmt.Errorf("failed to authorize Google Calendar access: %w", err)
	}
	return nil
}

// newScheduler wires the session, the calendar reader and the mediator.
func newScheduler(cfg config.Config, backend assistant.Backend, tokens google.TokenProvider, metrics *instrumentation.Metrics, logger *slog.Logger) (*scheduler.Scheduler, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	cal := calendar.NewClient(tokens,
		calendar.WithLogger(logger),
		calendar.WithMetrics(metrics),
	)

	session := assistant.NewSession(backend, assistant.SessionConfig{
		Model:   cfg.Model,
		Profile: cfg.Profile(),
		Logger:  logger,
	})

	mediator := scheduler.NewMediator(backend, cal, scheduler.Config{
		RunTimeout:      cfg.RunTimeout,
		PollInterval:    cfg.PollInterval,
		MaxPollInterval: cfg.MaxPollInterval,
		Location:        loc,
		Logger:          logger,
		Metrics:         metrics,
	})

	return scheduler.New(session, mediator), nil
}
