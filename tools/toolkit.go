// Package tools provides local operations offered to the assistant next to
// the remote catalog: index statistics, data file discovery, record
// validation and batched upload.
package tools

import (
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/i2y/indexpilot/algolia"
	"github.com/i2y/indexpilot/llm"
	"github.com/i2y/indexpilot/record"
)

// Toolkit builds local tools bound to one Algolia application and one data
// directory.
type Toolkit struct {
	client     *algolia.Client
	root       string
	limit      int
	uploadOpts []algolia.UploadOption
	logger     zerolog.Logger
}

// Option configures a Toolkit.
type Option func(*Toolkit)

// WithRoot sets the directory data file patterns are resolved against.
func WithRoot(dir string) Option {
	return func(k *Toolkit) {
		k.root = dir
	}
}

// WithLimit sets the per-record size ceiling used for validation.
func WithLimit(n int) Option {
	return func(k *Toolkit) {
		k.limit = n
	}
}

// WithUploadOptions sets options for every uploader the toolkit creates.
func WithUploadOptions(opts ...algolia.UploadOption) Option {
	return func(k *Toolkit) {
		k.uploadOpts = append(k.uploadOpts, opts...)
	}
}

// WithLogger sets the toolkit logger.
func WithLogger(l zerolog.Logger) Option {
	return func(k *Toolkit) {
		k.logger = l
	}
}

// New creates a toolkit. client may be nil, in which case only the
// file tools are offered.
func New(client *algolia.Client, opts ...Option) *Toolkit {
	k := &Toolkit{
		client: client,
		root:   ".",
		limit:  record.DefaultLimit,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// Tools returns every local tool the toolkit can offer.
func (k *Toolkit) Tools() []llm.Tool {
	tools := []llm.Tool{
		k.MustFindDataFiles(),
		k.MustValidateRecords(),
	}
	if k.client != nil {
		tools = append(tools, k.MustIndexStats(), k.MustUploadRecords())
	}
	return tools
}

// FileTools returns the tools that only read local files.
func (k *Toolkit) FileTools() []llm.Tool {
	return []llm.Tool{
		k.MustFindDataFiles(),
		k.MustValidateRecords(),
	}
}

// resolve joins a pattern to the toolkit root. Patterns must stay inside
// the root.
func (k *Toolkit) resolve(pattern string) (string, error) {
	if pattern == "" {
		return "", fmt.Errorf("pattern is required")
	}
	if !filepath.IsLocal(pattern) {
		return "", fmt.Errorf("pattern %q must be relative to the data directory", pattern)
	}
	return filepath.Join(k.root, pattern), nil
}

func must(tool llm.Tool, err error) llm.Tool {
	if err != nil {
		panic(err)
	}
	return tool
}
