package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"sitereport/internal/adapters/reports"
	"sitereport/internal/blob"
	"sitereport/internal/core"
)

type renderOptions struct {
	siteID  int
	out     string
	format  string
	archive bool
}

func newRenderCmd(a *app) *cobra.Command {
	var opts renderOptions
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Assemble the analysis document of one site",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.render(cmd, opts)
		},
	}
	cmd.Flags().IntVar(&opts.siteID, "site", 0, "site id to assemble")
	cmd.Flags().StringVar(&opts.out, "out", "", "write the document to this file instead of stdout")
	cmd.Flags().StringVar(&opts.format, "format", "json", "output format: json or csv")
	cmd.Flags().BoolVar(&opts.archive, "archive", false, "also archive the document in the configured blob store")
	_ = cmd.MarkFlagRequired("site")
	return cmd
}

func (a *app) render(cmd *cobra.Command, opts renderOptions) error {
	if opts.siteID <= 0 {
		return fmt.Errorf("invalid site id %d", opts.siteID)
	}
	format, err := reports.ParseFormat(opts.format)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	p, err := a.buildPipeline(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	var (
		result core.Result
		sink   *reports.ArchiveSink
	)
	if opts.archive {
		store, openErr := blob.Open(ctx, a.cfg.Blob.Store())
		if openErr != nil {
			return fmt.Errorf("open blob store: %w", openErr)
		}
		sink = reports.NewArchiveSink(store, opts.siteID, nil)
		result, err = p.analysis.Render(ctx, opts.siteID, sink)
	} else {
		result, err = p.analysis.Assemble(ctx, opts.siteID)
	}
	if err != nil {
		return fmt.Errorf("site %d: %w", opts.siteID, err)
	}

	payload, err := encodeResult(format, result)
	if err != nil {
		return err
	}
	if err := a.writeOutput(opts.out, payload); err != nil {
		return err
	}
	a.logger.Info("site rendered",
		"site_id", result.SiteID,
		"sections", len(result.Root.Sections),
		"duration", result.Duration,
	)
	if sink != nil {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "archived %s\n", sink.Last().Key)
	}
	return nil
}

func encodeResult(format reports.Format, result core.Result) ([]byte, error) {
	if format == reports.FormatCSV {
		return reports.WriteCSV(result.Root)
	}
	payload, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(payload, '\n'), nil
}

func (a *app) writeOutput(path string, payload []byte) error {
	if path == "" {
		_, err := a.stdout.Write(payload)
		return err
	}
	if path == "-" {
		return errors.New("use an empty --out to write to stdout")
	}
	if err := os.WriteFile(path, payload, 0o640); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

