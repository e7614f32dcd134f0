package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i2y/indexpilot/algolia"
	"github.com/i2y/indexpilot/chat"
	"github.com/i2y/indexpilot/llm"
	"github.com/i2y/indexpilot/mcp"
	"github.com/i2y/indexpilot/record"
)

// plain is the style set used for non-terminal output.
var plain = newStyles(&bytes.Buffer{}, false)

type fakeIndex struct {
	mu      sync.Mutex
	records map[string][]map[string]any
	cleared []string
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{records: map[string][]map[string]any{}}
}

func (f *fakeIndex) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/1/indexes/"), "/")
		switch {
		case r.URL.Path == "/1/indexes":
			_, _ = io.WriteString(w, `{"items":[{"name":"products","entries":42,"updatedAt":"2026-10-01T10:00:00Z"}]}`)
		case len(parts) == 2 && parts[1] == "query":
			recs, ok := f.records[parts[0]]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				_, _ = io.WriteString(w, `{"message":"Index does not exist"}`)
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"nbHits": len(recs)})
		case len(parts) == 2 && parts[1] == "clear":
			f.cleared = append(f.cleared, parts[0])
			f.records[parts[0]] = nil
			_, _ = io.WriteString(w, `{"taskID":1}`)
		case len(parts) == 2 && parts[1] == "batch":
			var body struct {
				Requests []algolia.BatchRequest `json:"requests"`
			}
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			for _, req := range body.Requests {
				f.records[parts[0]] = append(f.records[parts[0]], req.Body)
			}
			_, _ = io.WriteString(w, `{"taskID":2}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

func newFakeClient(t *testing.T) (*algolia.Client, *fakeIndex) {
	t.Helper()
	f := newFakeIndex()
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)
	c, err := algolia.NewClient("APP1", "key", algolia.WithBaseURL(srv.URL))
	require.NoError(t, err)
	return c, f
}

func TestNewRootCmd(t *testing.T) {
	root := NewRootCmd()

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"chat", "upload", "indices", "stats", "tools", "apps"}, names)

	root.SetArgs([]string{"upload", "data.json"})
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	err := root.Execute()
	assert.ErrorContains(t, err, `"index" not set`)
}

func TestRunUpload(t *testing.T) {
	client, f := newFakeClient(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "products.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"objectID":"1","name":"a"},{"name":"b"},{"objectID":"3","name":"c"}]`), 0o644))

	u := algolia.NewUploader(client, algolia.WithBatchSize(2), algolia.WithPause(0), algolia.WithClearWait(0))

	var out bytes.Buffer
	err := runUpload(context.Background(), &out, plain, false, u, path, "products", algolia.ModeReplace, 0)
	require.NoError(t, err)

	assert.Len(t, f.records["products"], 3)
	assert.Equal(t, []string{"products"}, f.cleared)
	assert.Contains(t, out.String(), "Uploaded 3 records to products")
	assert.Contains(t, out.String(), "2 x 2")
	assert.Contains(t, out.String(), "replace")
	assert.NotEmpty(t, f.records["products"][1][record.IDField], "missing ids are generated")
}

func TestRunUpload_JSONAndOversized(t *testing.T) {
	client, f := newFakeClient(t)
	dir := t.TempDir()
	u := algolia.NewUploader(client, algolia.WithPause(0), algolia.WithLimit(50))

	small := filepath.Join(dir, "small.json")
	require.NoError(t, os.WriteFile(small, []byte(`[{"objectID":"1"}]`), 0o644))

	var out bytes.Buffer
	require.NoError(t, runUpload(context.Background(), &out, plain, true, u, small, "small", algolia.ModeAdd, 0))

	var summary uploadSummary
	require.NoError(t, json.Unmarshal(out.Bytes(), &summary))
	assert.Equal(t, "add/update", summary.Mode)
	assert.Equal(t, 1, summary.Records)
	assert.Equal(t, []string{small}, summary.Files)

	big := filepath.Join(dir, "big.json")
	require.NoError(t, os.WriteFile(big, []byte(`[{"objectID":"2","text":"`+strings.Repeat("x", 100)+`"}]`), 0o644))

	out.Reset()
	err := runUpload(context.Background(), &out, plain, false, u, big, "big", algolia.ModeAdd, 0)
	var sizeErr *record.SizeError
	require.True(t, errors.As(err, &sizeErr))
	assert.Contains(t, out.String(), "WARNING:")
	assert.Empty(t, f.records["big"], "nothing is written")
}

func TestRunUpload_BatchSizeFlag(t *testing.T) {
	client, f := newFakeClient(t)
	path := filepath.Join(t.TempDir(), "many.json")
	recs := make([]map[string]any, 150)
	for i := range recs {
		recs[i] = map[string]any{"n": i}
	}
	data, err := json.Marshal(recs)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	u := algolia.NewUploader(client, algolia.WithPause(0))

	var out bytes.Buffer
	err = runUpload(context.Background(), &out, plain, false, u, path, "many", algolia.ModeAdd, 250)
	assert.ErrorContains(t, err, "batch size 250 is not one of")
	assert.Empty(t, f.records["many"])

	out.Reset()
	require.NoError(t, runUpload(context.Background(), &out, plain, true, u, path, "many", algolia.ModeAdd, 1000))
	var summary uploadSummary
	require.NoError(t, json.Unmarshal(out.Bytes(), &summary))
	assert.Equal(t, 100, summary.BatchSize, "lowered to the largest size offered for 150 records")
	assert.Equal(t, 2, summary.Batches)
	assert.Len(t, f.records["many"], 150)
}

func TestRunIndicesAndStats(t *testing.T) {
	client, f := newFakeClient(t)
	f.records["products"] = []map[string]any{{"objectID": "1"}, {"objectID": "2"}}

	var out bytes.Buffer
	require.NoError(t, runIndices(context.Background(), &out, plain, false, client))
	assert.Contains(t, out.String(), "Indices of APP1")
	assert.Contains(t, out.String(), "42 records")

	out.Reset()
	require.NoError(t, runStats(context.Background(), &out, plain, true, client, "products"))
	var stats indexStats
	require.NoError(t, json.Unmarshal(out.Bytes(), &stats))
	assert.Equal(t, indexStats{Index: "products", Exists: true, Records: 2}, stats)

	out.Reset()
	require.NoError(t, runStats(context.Background(), &out, plain, false, client, "ghost"))
	assert.Contains(t, out.String(), "index ghost does not exist")
}

func TestRunTools(t *testing.T) {
	type in struct {
		IndexName string `json:"indexName" jsonschema:"required"`
	}
	catalog := llm.NewToolRegistry(
		llm.MustNewTool("index_stats", "Count records\nof an index", func(ctx context.Context, _ in) (int, error) { return 0, nil }),
	)

	var out bytes.Buffer
	require.NoError(t, runTools(context.Background(), &out, plain, false, catalog))
	assert.Contains(t, out.String(), "1 tools")
	assert.Contains(t, out.String(), "index_stats\n  Count records\n")
	assert.Contains(t, out.String(), "indexName")

	out.Reset()
	require.NoError(t, runTools(context.Background(), &out, plain, true, catalog))
	var specs []map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &specs))
	require.Len(t, specs, 1)
	assert.Equal(t, "function", specs[0]["type"])
}

func TestPrintApps(t *testing.T) {
	apps := []mcp.Application{{Name: "Prod", ID: "APP1"}, {Name: "garbled..."}}

	var out bytes.Buffer
	require.NoError(t, printApps(&out, plain, false, apps))
	assert.Contains(t, out.String(), "APP1:")
	assert.Contains(t, out.String(), "Prod")
	assert.Contains(t, out.String(), "garbled...")

	out.Reset()
	require.NoError(t, printApps(&out, plain, true, apps))
	assert.JSONEq(t, `[{"name":"Prod","id":"APP1"},{"name":"garbled...","id":""}]`, out.String())

	out.Reset()
	require.NoError(t, printApps(&out, plain, false, nil))
	assert.Equal(t, "No applications found\n", out.String())
}

func TestStyles_Invocation(t *testing.T) {
	ts := time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC)

	ok := plain.invocation(chat.Invocation{
		Name:      "getSettings",
		Arguments: map[string]any{"indexName": "products"},
		Success:   true,
		Warnings:  []string{"filled default"},
		Timestamp: ts,
		Duration:  1500 * time.Microsecond,
	})
	assert.Contains(t, ok, "✓ getSettings (2026-10-17 09:30:00, 2ms)")
	assert.Contains(t, ok, `{"indexName":"products"}`)
	assert.Contains(t, ok, "WARNING: filled default")

	failed := plain.invocation(chat.Invocation{
		Name:      "getSettings",
		Error:     "❌ getSettings: Missing required fields: [indexName]\n• detail",
		Timestamp: ts,
	})
	assert.Contains(t, failed, "✗ getSettings")
	assert.Contains(t, failed, "Missing required fields: [indexName]")
	assert.NotContains(t, failed, "detail")
}

type fakeTurner struct {
	messages []string
	resets   int
	err      error
}

func (f *fakeTurner) Turn(ctx context.Context, message string) (chat.TurnResult, error) {
	f.messages = append(f.messages, message)
	if f.err != nil {
		return chat.TurnResult{Reply: chat.ErrorReply(f.err)}, f.err
	}
	return chat.TurnResult{
		Reply:       "echo: " + message,
		Invocations: []chat.Invocation{{Name: "listIndices", Success: true}},
	}, nil
}

func (f *fakeTurner) Reset() { f.resets++ }

func TestRepl(t *testing.T) {
	f := &fakeTurner{}
	in := strings.NewReader("list my indices\n\n/reset\nshow settings\nexit\nnever sent\n")

	var out bytes.Buffer
	require.NoError(t, repl(context.Background(), in, &out, f, plain))

	assert.Equal(t, []string{"list my indices", "show settings"}, f.messages)
	assert.Equal(t, 1, f.resets)
	assert.Contains(t, out.String(), "assistant> echo: list my indices")
	assert.Contains(t, out.String(), "✓ listIndices")
	assert.Contains(t, out.String(), "Conversation cleared.")
}

func TestRepl_ErrorReplyContinues(t *testing.T) {
	f := &fakeTurner{err: errors.New("upstream 503")}

	var out bytes.Buffer
	require.NoError(t, repl(context.Background(), strings.NewReader("a\nb\n"), &out, f, plain))

	assert.Len(t, f.messages, 2)
	assert.Contains(t, out.String(), "I apologize, but I encountered an error: upstream 503")
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "warn")
	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")

	buf.Reset()
	defLogger := newLogger(&buf, "bogus")
	defLogger.Info().Msg("info by default")
	assert.Contains(t, buf.String(), "info by default")
}
