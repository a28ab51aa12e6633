package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chrisedwards/slack-history/internal/export"
)

var (
	exportOutput      string
	exportMaxMessages int
	exportYes         bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export conversation histories to JSON files",
	Long: `Export the history of every selected conversation to <output>/<name>.json.

Conversations are selected with the include/exclude glob patterns from the
config file (matched against name or ID, case-insensitive). Each file holds
the conversation, the export time (UTC), the message count and the messages,
newest first. A conversation that fails is reported and skipped.`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output directory (default from output_dir)")
	exportCmd.Flags().IntVarP(&exportMaxMessages, "max-messages", "n", 0,
		"max messages per conversation, 0 for unlimited (default from max_messages)")
	exportCmd.Flags().BoolVarP(&exportYes, "yes", "y", false, "skip the confirmation prompt")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close(cmd)

	if cmd.Flags().Changed("output") {
		a.cfg.OutputDir = exportOutput
	}
	if cmd.Flags().Changed("max-messages") {
		a.cfg.MaxMessages = exportMaxMessages
	}
	if err := a.cfg.Validate(); err != nil {
		return err
	}

	client, err := a.client(cmd)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	exporter, err := export.NewExporter(a.cfg, client)
	if err != nil {
		return err
	}
	exporter.WithLogger(a.logger).WithOutput(out).WithMetrics(a.telemetry.Metrics)

	fmt.Fprintln(out, "Fetching conversation list for export...")
	conversations, err := exporter.Plan(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Will export %d conversation histories to '%s'.\n", len(conversations), a.cfg.OutputDir)
	fmt.Fprintf(out, "Include: %s  Exclude: %s\n", formatPatterns(a.cfg.Include), formatPatterns(a.cfg.Exclude))

	if !exportYes {
		ok, err := confirm(cmd.InOrStdin(), out, "Continue? (y/N): ")
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(out, "Aborted by user.")
			return nil
		}
	}

	summary, err := exporter.Export(cmd.Context(), conversations)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "\nExport complete. %d written, %d failed, %d messages.\n",
		len(summary.Written), len(summary.Failed), summary.Messages())
	if len(summary.Failed) > 0 {
		return fmt.Errorf("%d conversation(s) failed to export", len(summary.Failed))
	}
	return nil
}

// confirm asks a yes/no question. Only "y" and "yes" count as yes; EOF is no.
func confirm(in io.Reader, out io.Writer, prompt string) (bool, error) {
	fmt.Fprint(out, prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("reading confirmation: %w", err)
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

// formatPatterns renders a pattern list for display.
func formatPatterns(patterns []string) string {
	if len(patterns) == 0 {
		return "(none)"
	}
	return "[" + strings.Join(patterns, ", ") + "]"
}
