package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chrisedwards/slack-history/internal/channels"
)

var (
	listShowIDs  bool
	listFiltered bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List every conversation the token can see",
	Long: `List public channels, private channels, DMs and group DMs, sorted by name.

--filtered applies the include/exclude patterns from the config, showing
exactly what export would select.`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	listCmd.Flags().BoolVar(&listShowIDs, "ids", true, "show conversation IDs (default from show_ids)")
	listCmd.Flags().BoolVar(&listFiltered, "filtered", false, "apply include/exclude patterns")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close(cmd)

	client, err := a.client(cmd)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.ErrOrStderr(), "Fetching conversations (all types)...")
	conversations, err := client.ListConversations(cmd.Context())
	if err != nil {
		return err
	}
	if listFiltered {
		conversations = channels.NewFilter(a.cfg.Include, a.cfg.Exclude).Apply(conversations)
	}

	showIDs := a.cfg.ShowIDs
	if cmd.Flags().Changed("ids") {
		showIDs = listShowIDs
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Found %d conversations:\n\n", len(conversations))
	return channels.WriteList(out, conversations, showIDs)
}
