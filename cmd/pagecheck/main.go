// Command pagecheck parses an outage page and shows what the bot would see.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"outage_bot/internal/config"
	"outage_bot/internal/fetcher"
	"outage_bot/internal/filter"
	"outage_bot/internal/model"
	"outage_bot/internal/parser"
	"outage_bot/internal/textnorm"
	"outage_bot/internal/version"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "pagecheck",
		Short:         "Inspect the outage announcement page",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newParseCmd())
	return root
}

type parseOptions struct {
	keywords []string
	order    string
	timeout  time.Duration
	retries  int
	verbose  bool
}

func newParseCmd() *cobra.Command {
	opts := &parseOptions{}
	cmd := &cobra.Command{
		Use:   "parse [file|url]",
		Short: "Parse a saved page or a live URL",
		Long: `Parse the outage page and print the last update stamp, the announcement
date, the resolved version key and every section.

Examples:
  pagecheck parse                         # fetch the default page
  pagecheck parse testdata/page.html      # parse a saved copy
  pagecheck parse page.html -k آزادی -k بهار --order byStartHour`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source := config.DefaultPageURL
			if len(args) == 1 {
				source = args[0]
			}
			return runParse(cmd.Context(), cmd.OutOrStdout(), source, opts)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.keywords, "keyword", "k", nil, "keyword to match (repeatable)")
	cmd.Flags().StringVar(&opts.order, "order", string(filter.OrderDocument), "section order: document or byStartHour")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "HTTP timeout per attempt")
	cmd.Flags().IntVar(&opts.retries, "retries", 3, "fetch attempts")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "log fetch attempts to stderr")
	return cmd
}

func runParse(ctx context.Context, out io.Writer, source string, opts *parseOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ordering, err := filter.ParseOrdering(opts.order)
	if err != nil {
		return err
	}

	log := slog.New(slog.DiscardHandler)
	if opts.verbose {
		log = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	markup, err := load(ctx, source, opts, log)
	if err != nil {
		return err
	}
	res, err := parser.Parse(markup)
	if err != nil {
		return fmt.Errorf("parse: %w", err)
	}

	printResult(out, source, res, ordering)

	if len(opts.keywords) == 0 {
		return nil
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Notification preview:")

	key := version.Resolve(res)
	engine := filter.New(nopLedger{}, writerSender{out}, ordering, nil, log)
	n, err := engine.Deliver(ctx, filter.Request{
		Keywords:        opts.keywords,
		Sections:        res.Sections,
		VersionKey:      key.Value,
		AnnounceDisplay: res.AnnounceDisplay,
		Force:           true,
	})
	if err != nil {
		return err
	}
	if n == 0 {
		fmt.Fprintln(out, "(no matches)")
	}
	return nil
}

func load(ctx context.Context, source string, opts *parseOptions, log *slog.Logger) (string, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		f := fetcher.New(&http.Client{Timeout: opts.timeout},
			fetcher.WithRetry(opts.retries, 2*time.Second),
			fetcher.WithTimeout(opts.timeout),
			fetcher.WithLogger(log),
		)
		return f.Fetch(ctx, source)
	}

	data, err := os.ReadFile(source)
	if err != nil {
		return "", fmt.Errorf("read page: %w", err)
	}
	return string(data), nil
}

func printResult(out io.Writer, source string, res *model.CrawlResult, ordering filter.Ordering) {
	key := version.Resolve(res)

	fmt.Fprintf(out, "Source:      %s\n", source)
	fmt.Fprintf(out, "Last update: %s\n", orDash(res.LastUpdate))
	fmt.Fprintf(out, "Announce:    %s\n", orDash(res.AnnounceDisplay))
	fmt.Fprintf(out, "Version key: %s (%s)\n", key.Value, key.Source)
	fmt.Fprintf(out, "Display:     %s\n", key.Display)
	fmt.Fprintf(out, "Sections:    %d\n", len(res.Sections))

	for i, s := range filter.Order(res.Sections, ordering) {
		hr, ok := textnorm.HourRange(s.Title)
		if !ok {
			hr = "-"
		}
		fmt.Fprintf(out, "\n[%d] %s  (%s, %s)\n", i+1, s.Title, hr, version.Fingerprint(s))
		for _, line := range s.Body {
			fmt.Fprintf(out, "    %s\n", line)
		}
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

type nopLedger struct{}

func (nopLedger) HasSent(context.Context, int64, string, string) (bool, error) { return false, nil }
func (nopLedger) MarkSent(context.Context, int64, string, string, string) error { return nil }

type writerSender struct {
	w io.Writer
}

func (s writerSender) SendMessage(_ context.Context, _ int64, text string) error {
	_, err := fmt.Fprintln(s.w, text)
	return err
}
