package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teemow/meetingscheduler/internal/config"
	"github.com/teemow/meetingscheduler/internal/google"
)

func newAuthCmd() *cobra.Command {
	var (
		opts  options
		force bool
	)

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize read access to Google Calendar",
		Long: `Run the Google authorization flow and store the resulting credential.

The consent URL is printed; after granting access in the browser the
credential is saved to the token file. Later runs reuse it without asking.`,
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

			return runAuth(ctx, cfg, force, cmd.OutOrStdout())
		},
	}

	opts.addCommonFlags(cmd)
	cmd.Flags().BoolVar(&force, "force", false, "Authorize again even if a credential is stored")
	return cmd
}

func runAuth(ctx context.Context, cfg config.Config, force bool, out io.Writer) error {
	logger := newLogger(cfg)

	authorizer := &google.Authorizer{
		KeyFile:   cfg.CredentialsFile,
		TokenFile: cfg.TokenFile,
		Out:       out,
		Logger:    logger,
	}

	if !authorizer.HasToken() {
		if _, err := authorizer.TokenSource(ctx); err != nil {
			return err
		}
		fmt.Fprintf(out, "Credential saved to %s\n", cfg.TokenFile)
		return nil
	}

	if !force {
		fmt.Fprintf(out, "A credential is already stored in %s (use --force to authorize again)\n", cfg.TokenFile)
		return nil
	}

	// The stored credential is only replaced once the new flow succeeded.
	conf, err := google.LoadOAuthConfig(cfg.CredentialsFile)
	if err != nil {
		return err
	}
	token, err := authorizer.Authorize(ctx, conf)
	if err != nil {
		return err
	}
	cred := &google.Credential{
		Type:         google.CredentialType,
		ClientID:     conf.ClientID,
		ClientSecret: conf.ClientSecret,
		RefreshToken: token.RefreshToken,
	}
	if err := google.SaveCredential(cfg.TokenFile, cred); err != nil {
		return err
	}
	fmt.Fprintf(out, "Credential saved to %s\n", cfg.TokenFile)
	return nil
}
