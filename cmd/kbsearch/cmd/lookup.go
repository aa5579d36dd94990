package cmd

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fixmate/kbsearch/internal/config"
	"github.com/fixmate/kbsearch/internal/output"
	"github.com/fixmate/kbsearch/internal/pipeline"
)

// lookupOptions holds CLI flags for lookup.
type lookupOptions struct {
	limit    int
	urgent   bool
	category string
	format   string // "text", "json"
}

func newLookupCmd() *cobra.Command {
	var opts lookupOptions

	cmd := &cobra.Command{
		Use:   "lookup <question>",
		Short: "Look up repair knowledge for a support question",
		Long: `Look up repair knowledge for a support question.

Queries the internal knowledge base, past repair records, and the web
in parallel, then returns one ranked, deduplicated list.

Examples:
  kbsearch lookup "brake pads squealing when stopping"
  kbsearch lookup "battery replacement cost" --limit 5
  kbsearch lookup "engine won't start" --urgent --category engine
  kbsearch lookup "oil change interval" --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.Join(args, " ")
			return runLookup(cmd.Context(), cmd, question, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 10, "Maximum number of results")
	cmd.Flags().BoolVarP(&opts.urgent, "urgent", "u", false, "Prioritize internal records for an immediate answer")
	cmd.Flags().StringVar(&opts.category, "category", "", "Category hint (e.g. engine, brake, battery)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runLookup(ctx context.Context, cmd *cobra.Command, question string, opts lookupOptions) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	p, cleanup, err := buildPipeline(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	resp, err := p.Lookup(ctx, pipeline.Request{
		Query:        question,
		Urgent:       opts.urgent,
		CategoryHint: opts.category,
		MaxResults:   opts.limit,
	})
	if err != nil {
		return err
	}

	format := output.FormatText
	if opts.format == "json" {
		format = output.FormatJSON
	}
	return output.NewRenderer(cmd.OutOrStdout(), format).Render(resp)
}
