package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chrisedwards/slack-history/internal/config"
	"github.com/chrisedwards/slack-history/internal/slack"
)

var (
	authSave  bool
	authPrint bool
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authorize with Slack in the browser and obtain a token",
	Long: `Run the OAuth v2 authorization-code flow.

A listener is started on localhost (oauth.port, default 53682) at
/slack/oauth/callback, and the Slack authorize page is opened in your browser.
The redirect URL must be registered in your Slack app. After you approve, the
code is exchanged for a token; a user token is preferred over a bot token.

The token is not persisted unless --save is given. --print writes it to
stdout, e.g. for SLACK_HISTORY_SLACK_ACCESS_TOKEN.`,
	Args: cobra.NoArgs,
	RunE: runAuth,
}

func init() {
	authCmd.Flags().BoolVar(&authSave, "save", false, "store the token in the config file")
	authCmd.Flags().BoolVar(&authPrint, "print", false, "print the token to stdout")
	rootCmd.AddCommand(authCmd)
}

func runAuth(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close(cmd)

	progress := cmd.ErrOrStderr()
	handshake := slack.NewHandshake(a.cfg.HandshakeConfig()).
		WithLogger(a.logger).
		WithOutput(progress).
		WithMetrics(a.telemetry.Metrics)

	token, err := handshake.Run(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintln(progress, "Token acquired.")

	if authPrint {
		fmt.Fprintln(cmd.OutOrStdout(), token)
	}

	if !authSave {
		if !authPrint {
			fmt.Fprintln(progress, "Token NOT persisted. Re-run with --save to store it in the config file.")
		}
		return nil
	}

	path := a.cfg.ConfigFile()
	if path == "" {
		path = config.DefaultConfigPath()
	}
	if err := config.SaveToken(path, token); err != nil {
		return err
	}
	fmt.Fprintf(progress, "Token saved to %s\n", path)
	return nil
}
