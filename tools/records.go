package tools

import (
	"context"
	"fmt"

	"github.com/i2y/indexpilot/algolia"
	"github.com/i2y/indexpilot/llm"
	"github.com/i2y/indexpilot/record"
)

// ValidateRecordsInput defines the input for the validate_records tool.
type ValidateRecordsInput struct {
	Pattern string `json:"pattern" jsonschema:"required,description=Data file or glob pattern relative to the data directory"`
}

// ValidateRecordsOutput defines the output of the validate_records tool.
type ValidateRecordsOutput struct {
	Files    []string `json:"files"`
	Records  int      `json:"records"`
	Valid    bool     `json:"valid"`
	Limit    int      `json:"limit"`
	Rejected []string `json:"rejected,omitempty"`
	Skipped  []string `json:"skipped,omitempty"`
}

// ValidateRecords returns the validate_records tool.
func (k *Toolkit) ValidateRecords() (llm.Tool, error) {
	return llm.NewTool(
		"validate_records",
		"Check that every record of a data file fits the per-record size limit. Nothing is uploaded.",
		k.validateRecords,
	)
}

// MustValidateRecords returns the validate_records tool, panicking on error.
func (k *Toolkit) MustValidateRecords() llm.Tool {
	return must(k.ValidateRecords())
}

func (k *Toolkit) validateRecords(ctx context.Context, input ValidateRecordsInput) (ValidateRecordsOutput, error) {
	path, err := k.resolve(input.Pattern)
	if err != nil {
		return ValidateRecordsOutput{}, err
	}
	items, files, err := record.LoadGlob(path)
	if err != nil {
		return ValidateRecordsOutput{}, err
	}

	a := record.Admit(items, k.limit)
	out := ValidateRecordsOutput{
		Files:   files,
		Records: len(items),
		Valid:   a.OK,
		Limit:   a.Limit,
	}
	for _, r := range a.Rejected {
		out.Rejected = append(out.Rejected, r.String())
	}
	for _, s := range a.Skipped {
		out.Skipped = append(out.Skipped, s.String())
	}
	return out, nil
}

// UploadRecordsInput defines the input for the upload_records tool.
type UploadRecordsInput struct {
	Pattern   string `json:"pattern" jsonschema:"required,description=Data file or glob pattern relative to the data directory"`
	IndexName string `json:"indexName" jsonschema:"required,description=Target index"`
	Replace   bool   `json:"replace,omitempty" jsonschema:"description=Clear the index before uploading"`
	BatchSize int    `json:"batchSize,omitempty" jsonschema:"description=Records per batch request,enum=100,enum=500,enum=1000,enum=10000"`
}

// UploadRecordsOutput defines the output of the upload_records tool.
type UploadRecordsOutput struct {
	IndexName string   `json:"indexName"`
	Mode      string   `json:"mode"`
	Records   int      `json:"records"`
	Batches   int      `json:"batches"`
	Elapsed   string   `json:"elapsed"`
	Skipped   []string `json:"skipped,omitempty"`
}

// UploadRecords returns the upload_records tool.
func (k *Toolkit) UploadRecords() (llm.Tool, error) {
	return llm.NewTool(
		"upload_records",
		"Upload the records of a data file to an index in batches. Fails without writing anything when a record is too large.",
		k.uploadRecords,
	)
}

// MustUploadRecords returns the upload_records tool, panicking on error.
func (k *Toolkit) MustUploadRecords() llm.Tool {
	return must(k.UploadRecords())
}

func (k *Toolkit) uploadRecords(ctx context.Context, input UploadRecordsInput) (UploadRecordsOutput, error) {
	if k.client == nil {
		return UploadRecordsOutput{}, fmt.Errorf("no Algolia client configured")
	}
	path, err := k.resolve(input.Pattern)
	if err != nil {
		return UploadRecordsOutput{}, err
	}
	items, _, err := record.LoadGlob(path)
	if err != nil {
		return UploadRecordsOutput{}, err
	}

	opts := append([]algolia.UploadOption{algolia.WithLimit(k.limit), algolia.WithLogger(k.logger)}, k.uploadOpts...)
	if input.BatchSize > 0 {
		opts = append(opts, algolia.WithBatchSize(input.BatchSize))
	}
	mode := algolia.ModeAdd
	if input.Replace {
		mode = algolia.ModeReplace
	}

	report, err := algolia.NewUploader(k.client, opts...).Upload(ctx, input.IndexName, items, mode)
	if err != nil {
		return UploadRecordsOutput{}, err
	}

	out := UploadRecordsOutput{
		IndexName: report.Index,
		Mode:      report.Mode.String(),
		Records:   report.Records,
		Batches:   report.Batches,
		Elapsed:   report.Elapsed(),
	}
	for _, s := range report.Skipped {
		out.Skipped = append(out.Skipped, s.String())
	}
	return out, nil
}
