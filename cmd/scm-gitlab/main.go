// Package main is the entry point for the GitLab SCM adapter.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/redhat-data-and-ai/scm-gitlab/internal/config"
	"github.com/redhat-data-and-ai/scm-gitlab/internal/fusebox"
	"github.com/redhat-data-and-ai/scm-gitlab/internal/gitlab"
	"github.com/redhat-data-and-ai/scm-gitlab/internal/logging"
	"github.com/redhat-data-and-ai/scm-gitlab/internal/webhook"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newRootCmd builds the command tree
func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "scm-gitlab",
		Short:         "GitLab source control adapter for the CI orchestrator",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file overlaid on the environment")

	load := func() (*config.Config, error) {
		// .env is optional
		if err := godotenv.Load(); err == nil {
			fmt.Fprintln(os.Stderr, "Loaded environment from .env")
		}

		cfg := config.Load()
		if configPath != "" {
			var err error
			if cfg, err = config.LoadFile(configPath); err != nil {
				return nil, err
			}
		}

		if err := logging.Init(cfg.Logging); err != nil {
			return nil, fmt.Errorf("failed to initialize logging: %w", err)
		}
		return cfg, nil
	}

	rootCmd.AddCommand(newServeCmd(load))
	rootCmd.AddCommand(newParseURLCmd(load))
	rootCmd.AddCommand(newCheckoutCmd(load))

	return rootCmd
}

type configLoader func() (*config.Config, error)

func newServeCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the webhook front door",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			defer logging.Sync()

			client, err := gitlab.NewClient(cfg.GitLab)
			if err != nil {
				return err
			}

			app := webhook.NewApp(cfg, client, fusebox.NewCollector(client.Breaker()))

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				logging.Info("Starting server", zap.String("port", cfg.Server.Port))
				errCh <- app.Listen(":" + cfg.Server.Port)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			logging.Info("Shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return app.ShutdownWithContext(shutdownCtx)
		},
	}
}

func newParseURLCmd(load configLoader) *cobra.Command {
	var token string

	cmd := &cobra.Command{
		Use:   "parse-url <checkoutUrl>",
		Short: "Resolve a checkout URL into a repository identifier",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			defer logging.Sync()

			client, err := gitlab.NewClient(cfg.GitLab)
			if err != nil {
				return err
			}

			id, err := client.ParseURL(cmd.Context(), args[0], token)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}
	cmd.Flags().StringVar(&token, "token", os.Getenv("GITLAB_TOKEN"), "access token of the calling user")

	return cmd
}

func newCheckoutCmd(load configLoader) *cobra.Command {
	var checkout gitlab.CheckoutConfig
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "checkout-command",
		Short: "Print the shell command that checks out a build's source",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			defer logging.Sync()

			client, err := gitlab.NewClient(cfg.GitLab)
			if err != nil {
				return err
			}

			command := client.GetCheckoutCommand(checkout)
			if asJSON {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(command)
			}
			fmt.Fprintln(cmd.OutOrStdout(), command.Command())
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&checkout.Host, "host", config.DefaultGitlabHost, "repository host")
	flags.StringVar(&checkout.Org, "org", "", "repository owner")
	flags.StringVar(&checkout.Repo, "repo", "", "repository name")
	flags.StringVar(&checkout.Branch, "branch", "master", "branch to clone")
	flags.StringVar(&checkout.SHA, "sha", "", "commit to build")
	flags.StringVar(&checkout.PRRef, "pr-ref", "", "merge request ref to fetch and merge")
	flags.BoolVar(&asJSON, "json", false, "print {name, command} as JSON")
	_ = cmd.MarkFlagRequired("org")
	_ = cmd.MarkFlagRequired("repo")
	_ = cmd.MarkFlagRequired("sha")

	return cmd
}
