package tools

import (
	"context"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/i2y/indexpilot/llm"
	"github.com/i2y/indexpilot/record"
)

// FindDataFilesInput defines the input for the find_data_files tool.
type FindDataFilesInput struct {
	Pattern string `json:"pattern,omitempty" jsonschema:"description=Glob pattern relative to the data directory (default: **/*). Supports ** for recursive matching."`
}

// FindDataFilesOutput defines the output of the find_data_files tool.
type FindDataFilesOutput struct {
	Files []string `json:"files"`
	Count int      `json:"count"`
}

// FindDataFiles returns the find_data_files tool.
func (k *Toolkit) FindDataFiles() (llm.Tool, error) {
	return llm.NewTool(
		"find_data_files",
		"Find JSON and CSV data files that can be uploaded to an index.",
		k.findDataFiles,
	)
}

// MustFindDataFiles returns the find_data_files tool, panicking on error.
func (k *Toolkit) MustFindDataFiles() llm.Tool {
	return must(k.FindDataFiles())
}

func (k *Toolkit) findDataFiles(ctx context.Context, input FindDataFilesInput) (FindDataFilesOutput, error) {
	pattern := input.Pattern
	if pattern == "" {
		pattern = "**/*"
	}
	if _, err := k.resolve(pattern); err != nil {
		return FindDataFilesOutput{}, err
	}

	fsys := os.DirFS(k.root)
	matches, err := doublestar.Glob(fsys, filepath.ToSlash(pattern), doublestar.WithFilesOnly())
	if err != nil {
		return FindDataFilesOutput{}, err
	}

	files := make([]string, 0, len(matches))
	for _, m := range matches {
		if _, err := record.FormatOf(m); err != nil {
			continue
		}
		files = append(files, m)
	}
	return FindDataFilesOutput{Files: files, Count: len(files)}, nil
}
