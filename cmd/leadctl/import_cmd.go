package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xavierca1/nivesh-crm/internal/app"
	"github.com/xavierca1/nivesh-crm/internal/entity"
	"github.com/xavierca1/nivesh-crm/internal/importer"
	"github.com/xavierca1/nivesh-crm/internal/usecase"
)

type importOptions struct {
	source   string
	webinar  string
	status   string
	override bool
	layout   string
	parallel int
}

// importSummary is what the import commands print.
type importSummary struct {
	Inserted int                   `json:"inserted"`
	Merged   int                   `json:"merged"`
	Rejected []usecase.RejectedRow `json:"rejected"`
}

func newImportCmd(c *cli) *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import leads through the dedup upsert",
	}

	cmd.PersistentFlags().StringVar(&opts.source, "source", "", "campaign source for rows without one")
	cmd.PersistentFlags().StringVar(&opts.webinar, "webinar", "", "webinar id for rows without one")
	cmd.PersistentFlags().StringVar(&opts.status, "status", "", "lead status for rows without one")
	cmd.PersistentFlags().BoolVar(&opts.override, "override", false, "let incoming values replace admin-set fields")

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if root := cmd.Root(); root.PersistentPreRunE != nil {
			if err := root.PersistentPreRunE(cmd, args); err != nil {
				return err
			}
		}
		if opts.status != "" {
			if _, err := entity.ParseLeadStatus(opts.status); err != nil {
				return fmt.Errorf("invalid --status: %w", err)
			}
		}
		return nil
	}

	csvCmd := &cobra.Command{
		Use:   "csv FILE",
		Short: "Import a CSV export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			var m *importer.Mapping
			switch opts.layout {
			case "sheet":
				sm := importer.SheetMapping
				m = &sm
			case "header":
			default:
				return fmt.Errorf("invalid --layout %q", opts.layout)
			}

			candidates, err := importer.ParseCSV(f, m)
			if err != nil {
				return err
			}
			return c.runImport(cmd.Context(), candidates, opts, cmd.OutOrStdout())
		},
	}
	csvCmd.Flags().StringVar(&opts.layout, "layout", "header", "column layout: header (detect from first row) or sheet")

	pasteCmd := &cobra.Command{
		Use:   "paste [FILE]",
		Short: "Import a pasted list of name and phone lines (stdin when FILE is omitted)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}
			text, err := io.ReadAll(r)
			if err != nil {
				return err
			}
			return c.runImport(cmd.Context(), importer.ParsePaste(string(text)), opts, cmd.OutOrStdout())
		},
	}

	sheetCmd := &cobra.Command{
		Use:   "sheet URL...",
		Short: "Import one or more sheets published to the web as CSV",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := &http.Client{Timeout: 30 * time.Second}
			candidates, err := fetchSheets(cmd.Context(), client, args, opts.parallel)
			if err != nil {
				return err
			}
			return c.runImport(cmd.Context(), candidates, opts, cmd.OutOrStdout())
		},
	}
	sheetCmd.Flags().IntVar(&opts.parallel, "parallel", 4, "sheets fetched at once")

	cmd.AddCommand(csvCmd, pasteCmd, sheetCmd)
	return cmd
}

// fetchSheets downloads every url concurrently and returns the rows in the
// order the urls were given.
func fetchSheets(ctx context.Context, client *http.Client, urls []string, parallel int) ([]entity.Candidate, error) {
	for _, u := range urls {
		if !importer.IsPublishedSheetURL(u) {
			return nil, fmt.Errorf("%s: %w", u, importer.ErrNotPublishedSheet)
		}
	}

	results := make([][]entity.Candidate, len(urls))
	g, gctx := errgroup.WithContext(ctx)
	if parallel > 0 {
		g.SetLimit(parallel)
	}
	for i, u := range urls {
		g.Go(func() error {
			rows, err := importer.FetchSheet(gctx, client, u)
			if err != nil {
				return fmt.Errorf("%s: %w", u, err)
			}
			results[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []entity.Candidate
	for _, rows := range results {
		out = append(out, rows...)
	}
	return out, nil
}

func applyDefaults(candidates []entity.Candidate, opts importOptions) {
	source := strings.TrimSpace(opts.source)
	webinar := strings.TrimSpace(opts.webinar)
	for i := range candidates {
		c := &candidates[i]
		if c.Source == "" {
			c.Source = source
		}
		if c.WebinarID == "" {
			c.WebinarID = webinar
		}
		if c.Status == "" {
			c.Status = opts.status
		}
	}
}

func (c *cli) runImport(ctx context.Context, candidates []entity.Candidate, opts importOptions, out io.Writer) error {
	st, err := c.openStores(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	uc := usecase.NewUpsertLeadsUseCase(st.Leads, app.Normalizer(c.cfg), c.cfg.Leads.MaxBatchSize, c.logger)
	summary, err := importBatches(ctx, uc, candidates, opts)
	if err != nil {
		return err
	}

	c.logger.Info("import finished",
		zap.Int("inserted", summary.Inserted),
		zap.Int("merged", summary.Merged),
		zap.Int("rejected", len(summary.Rejected)),
	)

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}

// importBatches feeds candidates to the upsert in chunks of the use case's
// batch limit. Each chunk commits on its own; rejected row indexes refer to
// the full input.
func importBatches(ctx context.Context, uc *usecase.UpsertLeadsUseCase, candidates []entity.Candidate, opts importOptions) (*importSummary, error) {
	if len(candidates) == 0 {
		return nil, errors.New("no rows to import")
	}
	applyDefaults(candidates, opts)

	summary := &importSummary{Rejected: []usecase.RejectedRow{}}
	size := uc.MaxBatchSize
	for start := 0; start < len(candidates); start += size {
		end := min(start+size, len(candidates))

		res, err := uc.Execute(ctx, usecase.UpsertLeadsInput{
			Candidates: candidates[start:end],
			Override:   opts.override,
		})
		if err != nil {
			return summary, fmt.Errorf("rows %d-%d: %w", start, end-1, err)
		}

		summary.Inserted += res.Inserted
		summary.Merged += res.Merged
		for _, r := range res.Rejected {
			r.Row += start
			summary.Rejected = append(summary.Rejected, r)
		}
	}
	return summary, nil
}
