// Package export orchestrates the Slack export workflow: list conversations,
// select them with the configured filters, and write each history to a JSON
// file.
package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chrisedwards/slack-history/internal/channels"
	"github.com/chrisedwards/slack-history/internal/config"
	"github.com/chrisedwards/slack-history/internal/observability"
	"github.com/chrisedwards/slack-history/internal/slack"
)

// Source is the part of the Slack client the exporter needs.
type Source interface {
	ListConversations(ctx context.Context) ([]slack.Conversation, error)
	StreamHistory(ctx context.Context, channelID string, maxMessages int) iter.Seq2[slack.Message, error]
}

// File is the JSON document written for one conversation.
type File struct {
	Conversation slack.Conversation `json:"conversation"`
	ExportedUTC  time.Time          `json:"exported_utc"`
	MessageCount int                `json:"message_count"`
	Messages     []slack.Message    `json:"messages"`
}

// Result describes one conversation written to disk.
type Result struct {
	Conversation slack.Conversation
	Path         string
	Messages     int
}

// Failure describes one conversation that could not be exported.
type Failure struct {
	Conversation slack.Conversation
	Err          error
}

// Summary is the outcome of an export run.
type Summary struct {
	Written []Result
	Failed  []Failure
}

// Messages returns the number of messages written across all files.
func (s *Summary) Messages() int {
	total := 0
	for _, r := range s.Written {
		total += r.Messages
	}
	return total
}

// Exporter orchestrates the export workflow for Slack conversations.
type Exporter struct {
	cfg     *config.Config
	source  Source
	filter  *channels.Filter
	logger  *slog.Logger
	out     io.Writer
	metrics *observability.Metrics
	now     func() time.Time
}

// NewExporter creates an Exporter with the given configuration.
func NewExporter(cfg *config.Config, source Source) (*Exporter, error) {
	if cfg == nil {
		return nil, errors.New("export: config is required")
	}
	if source == nil {
		return nil, errors.New("export: source is required")
	}
	return &Exporter{
		cfg:     cfg,
		source:  source,
		filter:  channels.NewFilter(cfg.Include, cfg.Exclude),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		out:     io.Discard,
		metrics: observability.NoopMetrics(),
		now:     time.Now,
	}, nil
}

// Config returns the exporter's configuration.
func (e *Exporter) Config() *config.Config {
	return e.cfg
}

// WithLogger sets the logger.
func (e *Exporter) WithLogger(logger *slog.Logger) *Exporter {
	e.logger = logger
	return e
}

// WithOutput sets where per-conversation progress is printed.
func (e *Exporter) WithOutput(w io.Writer) *Exporter {
	e.out = w
	return e
}

// WithMetrics sets the metrics recorder.
func (e *Exporter) WithMetrics(m *observability.Metrics) *Exporter {
	e.metrics = m
	return e
}

// Plan lists every conversation and applies the include/exclude filters.
func (e *Exporter) Plan(ctx context.Context) ([]slack.Conversation, error) {
	all, err := e.source.ListConversations(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing conversations: %w", err)
	}

	selected := e.filter.Apply(all)
	e.logger.Info("export plan",
		"conversations", len(all),
		"selected", len(selected),
		"filtered", !e.filter.Empty(),
	)
	return selected, nil
}

// Export writes one file per conversation into the output directory. A
// failure on one conversation is recorded and the run continues; only
// cancellation stops the run early, returning the partial summary.
func (e *Exporter) Export(ctx context.Context, conversations []slack.Conversation) (*Summary, error) {
	if err := os.MkdirAll(e.cfg.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	summary := &Summary{}
	used := make(map[string]bool, len(conversations))

	for _, conv := range conversations {
		if err := ctx.Err(); err != nil {
			return summary, fmt.Errorf("%w: %w", slack.ErrCanceled, err)
		}

		fmt.Fprintf(e.out, "\nExporting: %s  (%s)\n", conv.DisplayName(), conv.TypeLabel())

		path := e.filePath(conv, used)
		n, err := e.exportOne(ctx, conv, path)
		e.metrics.RecordConversationExported(ctx, conv.TypeLabel(), n, err == nil)
		if err != nil {
			if slack.IsCanceled(err) {
				return summary, err
			}
			e.logger.Warn("conversation export failed",
				"conversation_id", conv.ID,
				"name", conv.DisplayName(),
				"error", err,
			)
			fmt.Fprintf(e.out, "  ERROR exporting %s: %v\n", conv.DisplayName(), err)
			summary.Failed = append(summary.Failed, Failure{Conversation: conv, Err: err})
			continue
		}

		e.logger.Debug("conversation exported", "conversation_id", conv.ID, "messages", n, "path", path)
		fmt.Fprintf(e.out, "  -> Wrote %d messages to %s\n", n, path)
		summary.Written = append(summary.Written, Result{Conversation: conv, Path: path, Messages: n})
	}

	e.logger.Info("export complete",
		"written", len(summary.Written),
		"failed", len(summary.Failed),
		"messages", summary.Messages(),
	)
	return summary, nil
}

// filePath picks the output file for conv. A name already used in this run
// gets the conversation ID appended.
func (e *Exporter) filePath(conv slack.Conversation, used map[string]bool) string {
	base := SanitizeFileName(conv.DisplayName())
	if used[strings.ToLower(base)] {
		base = base + "_" + SanitizeFileName(conv.ID)
	}
	used[strings.ToLower(base)] = true
	return filepath.Join(e.cfg.OutputDir, base+".json")
}

func (e *Exporter) exportOne(ctx context.Context, conv slack.Conversation, path string) (int, error) {
	messages := make([]slack.Message, 0)
	for msg, err := range e.source.StreamHistory(ctx, conv.ID, e.cfg.MaxMessages) {
		if err != nil {
			return 0, err
		}
		messages = append(messages, msg)
	}

	doc := File{
		Conversation: conv,
		ExportedUTC:  e.now().UTC(),
		MessageCount: len(messages),
		Messages:     messages,
	}
	if err := writeJSON(path, doc); err != nil {
		return 0, err
	}
	return len(messages), nil
}

// writeJSON writes v as indented JSON through a temp file in the same
// directory, renamed into place.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", filepath.Base(path), err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".export-*.json")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", filepath.Base(path), err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("setting permissions on %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("renaming %s: %w", filepath.Base(path), err)
	}
	return nil
}

// SanitizeFileName replaces characters that are not valid in file names on
// common platforms with '_'.
func SanitizeFileName(name string) string {
	if name == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		if r < 0x20 {
			return '_'
		}
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, name)
}
