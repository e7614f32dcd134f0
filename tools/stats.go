package tools

import (
	"context"

	"github.com/i2y/indexpilot/llm"
)

// IndexStatsInput defines the input for the index_stats tool.
type IndexStatsInput struct {
	IndexName string `json:"indexName" jsonschema:"required,description=Index to count records of"`
}

// IndexStatsOutput defines the output of the index_stats tool.
type IndexStatsOutput struct {
	IndexName string `json:"indexName"`
	Exists    bool   `json:"exists"`
	Records   int    `json:"records"`
}

// IndexStats returns the index_stats tool.
func (k *Toolkit) IndexStats() (llm.Tool, error) {
	return llm.NewTool(
		"index_stats",
		"Count the records of an index. Reports whether the index exists.",
		k.indexStats,
	)
}

// MustIndexStats returns the index_stats tool, panicking on error.
func (k *Toolkit) MustIndexStats() llm.Tool {
	return must(k.IndexStats())
}

func (k *Toolkit) indexStats(ctx context.Context, input IndexStatsInput) (IndexStatsOutput, error) {
	n, err := k.client.Count(ctx, input.IndexName)
	if err != nil {
		return IndexStatsOutput{}, err
	}
	out := IndexStatsOutput{IndexName: input.IndexName, Exists: n >= 0}
	if out.Exists {
		out.Records = n
	}
	return out, nil
}
