package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/i2y/indexpilot/algolia"
	"github.com/i2y/indexpilot/record"
)

type uploadFlags struct {
	index     string
	batchSize int
	replace   bool
}

func newUploadCmd(flags *GlobalFlags) *cobra.Command {
	uf := &uploadFlags{}
	cmd := &cobra.Command{
		Use:   "upload FILE|GLOB",
		Short: "Upload JSON or CSV records to an index",
		Long: "upload reads records from a JSON or CSV file (or every file matching a glob), " +
			"checks every record against the size limit and writes them to the index in batches. " +
			"Nothing is written when any record is too large.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd, flags, false)
			if err != nil {
				return err
			}
			client, err := e.cfg.AlgoliaClient()
			if err != nil {
				return err
			}
			mode := algolia.ModeAdd
			if uf.replace {
				mode = algolia.ModeReplace
			}
			opts := append(e.cfg.UploadOptions(), algolia.WithLogger(e.logger))
			if !flags.JSON {
				opts = append(opts, algolia.WithProgress(progressPrinter(cmd.ErrOrStderr())))
			}
			return runUpload(cmd.Context(), cmd.OutOrStdout(), e.styles, flags.JSON,
				algolia.NewUploader(client, opts...), args[0], uf.index, mode, uf.batchSize)
		},
	}
	cmd.Flags().StringVarP(&uf.index, "index", "i", "", "target index (required)")
	cmd.Flags().IntVarP(&uf.batchSize, "batch-size", "b", 0, fmt.Sprintf("records per batch, one of %v (default from config)", algolia.BatchSizes))
	cmd.Flags().BoolVar(&uf.replace, "replace", false, "clear the index before uploading")
	_ = cmd.MarkFlagRequired("index")
	return cmd
}

type uploadSummary struct {
	Index     string   `json:"index"`
	Mode      string   `json:"mode"`
	Files     []string `json:"files"`
	Records   int      `json:"records"`
	Batches   int      `json:"batches"`
	BatchSize int      `json:"batchSize"`
	Elapsed   string   `json:"elapsed"`
	Skipped   []string `json:"skipped,omitempty"`
}

// runUpload loads pattern and writes it to index. A positive batchSize
// overrides the uploader's and must be one of algolia.BatchSizes.
func runUpload(ctx context.Context, out io.Writer, st styles, jsonOut bool, u *algolia.Uploader, pattern, index string, mode algolia.Mode, batchSize int) error {
	items, files, err := record.LoadGlob(pattern)
	if err != nil {
		return err
	}
	if batchSize > 0 {
		size, err := algolia.FitBatchSize(batchSize, len(items))
		if err != nil {
			return err
		}
		u = u.With(algolia.WithBatchSize(size))
	}

	report, err := u.Upload(ctx, index, items, mode)
	if err != nil {
		var sizeErr *record.SizeError
		if errors.As(err, &sizeErr) {
			for _, r := range sizeErr.Rejected {
				fmt.Fprintln(out, st.warn(r.String()))
			}
		}
		return err
	}

	summary := uploadSummary{
		Index:     report.Index,
		Mode:      report.Mode.String(),
		Files:     files,
		Records:   report.Records,
		Batches:   report.Batches,
		BatchSize: report.BatchSize,
		Elapsed:   report.Elapsed(),
	}
	for _, s := range report.Skipped {
		summary.Skipped = append(summary.Skipped, s.String())
	}
	if jsonOut {
		return writeJSON(out, summary)
	}

	fmt.Fprintln(out, st.render(st.Success, fmt.Sprintf("Uploaded %d records to %s", summary.Records, summary.Index)))
	fmt.Fprintln(out, st.kv("mode", summary.Mode))
	fmt.Fprintln(out, st.kv("files", strconv.Itoa(len(files))))
	fmt.Fprintln(out, st.kv("batches", fmt.Sprintf("%d x %d", summary.Batches, summary.BatchSize)))
	fmt.Fprintln(out, st.kv("elapsed", summary.Elapsed))
	for _, s := range summary.Skipped {
		fmt.Fprintln(out, "  "+st.warn(s))
	}
	return nil
}

func progressPrinter(w io.Writer) func(algolia.Progress) {
	return func(p algolia.Progress) {
		fmt.Fprintf(w, "batch %d/%d: %d/%d records (%.0f%%)\n", p.Batch, p.Batches, p.Sent, p.Total, p.Fraction()*100)
	}
}
