package tools

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i2y/indexpilot/algolia"
	"github.com/i2y/indexpilot/llm"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newDataDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, "products.json", `[{"objectID":"1","name":"Lamp"},{"name":"Desk"}]`)
	writeFile(t, dir, "sub/customers.csv", "name,age\nAda,36\nLin,41\n")
	writeFile(t, dir, "notes.txt", "ignored")
	writeFile(t, dir, "big.json", `{"objectID":"x","text":"`+strings.Repeat("y", 200)+`"}`)
	return dir
}

func newAlgoliaServer(t *testing.T) (*algolia.Client, *[]string) {
	t.Helper()
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		switch {
		case strings.HasSuffix(r.URL.Path, "/missing/query"):
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"message":"Index does not exist"}`)
		case strings.HasSuffix(r.URL.Path, "/query"):
			_, _ = io.WriteString(w, `{"nbHits":7}`)
		default:
			_, _ = io.WriteString(w, `{"taskID":1}`)
		}
	}))
	t.Cleanup(srv.Close)

	c, err := algolia.NewClient("APP1", "admin", algolia.WithBaseURL(srv.URL))
	require.NoError(t, err)
	return c, &paths
}

func TestFindDataFiles(t *testing.T) {
	k := New(nil, WithRoot(newDataDir(t)))
	tool := k.MustFindDataFiles()
	ctx := context.Background()

	t.Run("default pattern is recursive", func(t *testing.T) {
		result, err := tool.Execute(ctx, json.RawMessage(`{}`))
		require.NoError(t, err)
		out := result.(FindDataFilesOutput)
		assert.Equal(t, 3, out.Count)
		assert.ElementsMatch(t, []string{"big.json", "products.json", "sub/customers.csv"}, out.Files)
	})

	t.Run("explicit pattern", func(t *testing.T) {
		result, err := tool.Execute(ctx, json.RawMessage(`{"pattern":"**/*.csv"}`))
		require.NoError(t, err)
		assert.Equal(t, []string{"sub/customers.csv"}, result.(FindDataFilesOutput).Files)
	})

	t.Run("escaping the root is refused", func(t *testing.T) {
		_, err := tool.Execute(ctx, json.RawMessage(`{"pattern":"../*.json"}`))
		assert.ErrorContains(t, err, "relative to the data directory")
	})
}

func TestValidateRecords(t *testing.T) {
	k := New(nil, WithRoot(newDataDir(t)), WithLimit(100))
	tool := k.MustValidateRecords()
	ctx := context.Background()

	result, err := tool.Execute(ctx, json.RawMessage(`{"pattern":"products.json"}`))
	require.NoError(t, err)
	out := result.(ValidateRecordsOutput)
	assert.True(t, out.Valid)
	assert.Equal(t, 2, out.Records)
	assert.Equal(t, 100, out.Limit)

	result, err = tool.Execute(ctx, json.RawMessage(`{"pattern":"*.json"}`))
	require.NoError(t, err)
	out = result.(ValidateRecordsOutput)
	assert.False(t, out.Valid)
	require.Len(t, out.Rejected, 1)
	assert.Contains(t, out.Rejected[0], "record 1:")

	_, err = tool.Execute(ctx, json.RawMessage(`{"pattern":"nothing/*.json"}`))
	assert.Error(t, err)
}

func TestIndexStats(t *testing.T) {
	c, _ := newAlgoliaServer(t)
	tool := New(c).MustIndexStats()

	result, err := tool.Execute(context.Background(), json.RawMessage(`{"indexName":"products"}`))
	require.NoError(t, err)
	assert.Equal(t, IndexStatsOutput{IndexName: "products", Exists: true, Records: 7}, result)

	result, err = tool.Execute(context.Background(), json.RawMessage(`{"indexName":"missing"}`))
	require.NoError(t, err)
	assert.Equal(t, IndexStatsOutput{IndexName: "missing"}, result)
}

func TestUploadRecords(t *testing.T) {
	c, paths := newAlgoliaServer(t)
	k := New(c, WithRoot(newDataDir(t)), WithUploadOptions(algolia.WithPause(time.Millisecond), algolia.WithClearWait(time.Millisecond)))
	tool := k.MustUploadRecords()

	result, err := tool.Execute(context.Background(), json.RawMessage(`{"pattern":"**/*.csv","indexName":"customers","replace":true,"batchSize":1}`))
	require.NoError(t, err)

	out := result.(UploadRecordsOutput)
	assert.Equal(t, "customers", out.IndexName)
	assert.Equal(t, "replace", out.Mode)
	assert.Equal(t, 2, out.Records)
	assert.Equal(t, 2, out.Batches)
	assert.Contains(t, out.Elapsed, "seconds")
	assert.Equal(t, []string{"/1/indexes/customers/clear", "/1/indexes/customers/batch", "/1/indexes/customers/batch"}, *paths)
}

func TestUploadRecords_TooLarge(t *testing.T) {
	c, paths := newAlgoliaServer(t)
	k := New(c, WithRoot(newDataDir(t)), WithLimit(100))

	_, err := k.MustUploadRecords().Execute(context.Background(), json.RawMessage(`{"pattern":"big.json","indexName":"x"}`))
	assert.ErrorContains(t, err, "exceed the 100 byte limit")
	assert.Empty(t, *paths)
}

func TestToolkit_Tools(t *testing.T) {
	names := func(tools []llm.Tool) []string {
		var out []string
		for _, tool := range tools {
			out = append(out, tool.Name())
		}
		return out
	}

	assert.Equal(t, []string{"find_data_files", "validate_records"}, names(New(nil).Tools()))
	assert.Equal(t, []string{"find_data_files", "validate_records"}, names(New(nil).FileTools()))

	c, _ := newAlgoliaServer(t)
	all := New(c).Tools()
	assert.Equal(t, []string{"find_data_files", "validate_records", "index_stats", "upload_records"}, names(all))

	for _, tool := range all {
		assert.NotEmpty(t, tool.Description())
		var params map[string]any
		require.NoError(t, json.Unmarshal(tool.Parameters(), &params), tool.Name())
		assert.Equal(t, "object", params["type"])
	}
}
