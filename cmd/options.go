package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/meetingscheduler/internal/config"
	"github.com/teemow/meetingscheduler/internal/instrumentation"
	"github.com/teemow/meetingscheduler/internal/logging"
	"github.com/teemow/meetingscheduler/internal/server"
)

// options holds the command-line overrides. A flag only replaces the loaded
// value when it was set explicitly.
type options struct {
	configFile    string
	credentials   string
	token         string
	timezone      string
	debug         bool
	model         string
	operatorName  string
	operatorEmail string
	workStart     string
	workEnd       string
	runTimeout    time.Duration
	metricsAddr   string
}

// addCommonFlags registers the flags every command understands.
func (o *options) addCommonFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.configFile, "config", "", "Path to a YAML profile")
	cmd.Flags().StringVar(&o.credentials, "credentials", config.DefaultCredentialsFile, "Google client key file (env: "+config.EnvCredentials+")")
	cmd.Flags().StringVar(&o.token, "token", config.DefaultTokenFile, "File holding the stored Google credential (env: "+config.EnvToken+")")
	cmd.Flags().StringVar(&o.timezone, "timezone", "", "IANA time zone of the operator, e.g. Asia/Kolkata (env: "+config.EnvTimezone+")")
	cmd.Flags().BoolVar(&o.debug, "debug", false, "Enable debug logging (env: "+config.EnvDebug+")")
}

// addMetricsFlag registers the metrics listener flag.
func (o *options) addMetricsFlag(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address, e.g. 127.0.0.1:9090 (env: "+config.EnvMetricsAddr+")")
}

// addChatFlags registers the flags of the chat command.
func (o *options) addChatFlags(cmd *cobra.Command) {
	o.addCommonFlags(cmd)
	o.addMetricsFlag(cmd)
	cmd.Flags().StringVar(&o.model, "model", config.DefaultModel, "OpenAI model of the assistant (env: "+config.EnvOpenAIModel+")")
	cmd.Flags().StringVar(&o.operatorName, "operator-name", "", "Name the assistant addresses you by (env: "+config.EnvOperatorName+")")
	cmd.Flags().StringVar(&o.operatorEmail, "operator-email", "", "Your email address, used for \"me\" (env: "+config.EnvOperatorEmail+")")
	cmd.Flags().StringVar(&o.workStart, "work-start", "", "Start of working hours, HH:MM (env: "+config.EnvWorkStart+")")
	cmd.Flags().StringVar(&o.workEnd, "work-end", "", "End of working hours, HH:MM (env: "+config.EnvWorkEnd+")")
	cmd.Flags().DurationVar(&o.runTimeout, "run-timeout", 0, "Maximum time to wait for one answer (env: "+config.EnvRunTimeout+")")
}

// load resolves the configuration: defaults, YAML profile, environment and
// finally the flags that were set on cmd.
func (o *options) load(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(o.configFile)
	if err != nil {
		return config.Config{}, err
	}

	changed := cmd.Flags().Changed
	if changed("credentials") {
		cfg.CredentialsFile = o.credentials
	}
	if changed("token") {
		cfg.TokenFile = o.token
	}
	if changed("timezone") {
		cfg.Operator.Timezone = o.timezone
	}
	if changed("debug") {
		cfg.Debug = o.debug
	}
	if changed("model") {
		cfg.Model = o.model
	}
	if changed("operator-name") {
		cfg.Operator.Name = o.operatorName
	}
	if changed("operator-email") {
		cfg.Operator.Email = o.operatorEmail
	}
	if changed("work-start") {
		cfg.WorkingHours.Start = o.workStart
	}
	if changed("work-end") {
		cfg.WorkingHours.End = o.workEnd
	}
	if changed("run-timeout") {
		cfg.RunTimeout = o.runTimeout
	}
	if changed("metrics-addr") {
		cfg.MetricsAddr = o.metricsAddr
	}
	return cfg, nil
}

// newLogger writes to stderr so it never mixes with the shell or the MCP
// stdio stream.
func newLogger(cfg config.Config) *slog.Logger {
	logger := logging.NewLogger(os.Stderr, cfg.Debug)
	slog.SetDefault(logger)
	return logger
}

// startInstrumentation creates the OpenTelemetry provider and, when a metrics
// address is configured, the Prometheus endpoint. The returned function
// shuts both down.
func startInstrumentation(ctx context.Context, cfg config.Config, logger *slog.Logger) (*instrumentation.Provider, func(), error) {
	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version
	if err := instrConfig.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid instrumentation config: %w", err)
	}

	provider, err := instrumentation.NewProvider(ctx, instrConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create instrumentation provider: %w", err)
	}

	var metricsServer *server.MetricsServer
	if cfg.MetricsAddr != "" {
		metricsServer, err = server.NewMetricsServer(server.MetricsServerConfig{
			Addr:                    cfg.MetricsAddr,
			InstrumentationProvider: provider,
			Logger:                  logger,
		})
		if err != nil {
			_ = provider.Shutdown(ctx)
			return nil, nil, fmt.Errorf("failed to create metrics server: %w", err)
		}
		go func() {
			if err := metricsServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server stopped", logging.Err(err))
			}
		}()
	}

	shutdown := func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), server.DefaultShutdownTimeout)
		defer cancel()

		if metricsServer != nil {
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				logger.Warn("error during metrics server shutdown", logging.Err(err))
			}
		}
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Warn("error during instrumentation shutdown", logging.Err(err))
		}
	}
	return provider, shutdown, nil
}
