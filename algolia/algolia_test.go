package algolia

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i2y/indexpilot/record"
)

type fakeAlgolia struct {
	mu       sync.Mutex
	paths    []string
	batches  [][]BatchRequest
	failOn   int
	missing  map[string]bool
	clearErr bool
}

func (f *fakeAlgolia) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		assert.Equal(t, "APP1", r.Header.Get("X-Algolia-Application-Id"))
		assert.Equal(t, "admin", r.Header.Get("X-Algolia-API-Key"))
		f.paths = append(f.paths, r.Method+" "+r.URL.Path)

		switch {
		case r.URL.Path == "/1/indexes":
			_, _ = io.WriteString(w, `{"items":[{"name":"products","entries":1200,"createdAt":"2025-01-01T00:00:00Z","updatedAt":"2025-02-01T00:00:00Z"}],"nbPages":1}`)
		case strings.HasSuffix(r.URL.Path, "/query"):
			name := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/1/indexes/"), "/query")
			if f.missing[name] {
				w.WriteHeader(http.StatusNotFound)
				_, _ = io.WriteString(w, `{"message":"Index does not exist","status":404}`)
				return
			}
			var body map[string]any
			_ = json.NewDecoder(r.Body).Decode(&body)
			assert.Equal(t, float64(0), body["hitsPerPage"])
			_, _ = io.WriteString(w, `{"nbHits":42,"hits":[]}`)
		case strings.HasSuffix(r.URL.Path, "/clear"):
			if f.clearErr {
				w.WriteHeader(http.StatusForbidden)
				_, _ = io.WriteString(w, `{"message":"Method not allowed with this API key"}`)
				return
			}
			_, _ = io.WriteString(w, `{"taskID":1}`)
		case strings.HasSuffix(r.URL.Path, "/batch"):
			var body struct {
				Requests []BatchRequest `json:"requests"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)
			f.batches = append(f.batches, body.Requests)
			if f.failOn > 0 && len(f.batches) == f.failOn {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = io.WriteString(w, "bad batch")
				return
			}
			w.WriteHeader(http.StatusCreated)
			_, _ = io.WriteString(w, `{"taskID":7,"objectIDs":[]}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

func newTestClient(t *testing.T, f *fakeAlgolia) *Client {
	t.Helper()
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)

	c, err := NewClient("APP1", "admin", WithBaseURL(srv.URL))
	require.NoError(t, err)
	return c
}

func noSleep(ctx context.Context, d time.Duration) error { return ctx.Err() }

func TestNewClient(t *testing.T) {
	_, err := NewClient("", "k")
	assert.Error(t, err)
	_, err = NewClient("APP", "")
	assert.Error(t, err)

	c, err := NewClient("APP", "k")
	require.NoError(t, err)
	assert.Equal(t, "APP", c.AppID())
	assert.Equal(t, "https://APP-dsn.algolia.net/1/indexes/my%20index/batch", c.indexURL("my index", "batch"))
}

func TestClient_ListIndices(t *testing.T) {
	c := newTestClient(t, &fakeAlgolia{})

	indices, err := c.ListIndices(context.Background())
	require.NoError(t, err)
	require.Len(t, indices, 1)
	assert.Equal(t, "products", indices[0].Name)
	assert.Equal(t, 1200, indices[0].Entries)
	assert.Equal(t, "2025-02-01T00:00:00Z", indices[0].UpdatedAt)
}

func TestClient_Count(t *testing.T) {
	c := newTestClient(t, &fakeAlgolia{missing: map[string]bool{"ghost": true}})

	n, err := c.Count(context.Background(), "products")
	require.NoError(t, err)
	assert.Equal(t, 42, n)

	n, err = c.Count(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Equal(t, -1, n)
}

func TestClient_APIError(t *testing.T) {
	c := newTestClient(t, &fakeAlgolia{clearErr: true})

	err := c.Clear(context.Background(), "products")
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.Equal(t, "Method not allowed with this API key", apiErr.Message)
	assert.Contains(t, err.Error(), "HTTP 403")
}

func items(n int) []any {
	out := make([]any, n)
	for i := range out {
		out[i] = map[string]any{"objectID": string(rune('a' + i%26)), "n": i}
	}
	return out
}

func TestUploader_Batches(t *testing.T) {
	f := &fakeAlgolia{}
	c := newTestClient(t, f)

	var progress []Progress
	var pauses []time.Duration
	u := NewUploader(c, WithBatchSize(2), WithProgress(func(p Progress) { progress = append(progress, p) }))
	u.sleep = func(ctx context.Context, d time.Duration) error {
		pauses = append(pauses, d)
		return nil
	}

	report, err := u.Upload(context.Background(), "products", items(5), ModeAdd)
	require.NoError(t, err)

	assert.Equal(t, 5, report.Records)
	assert.Equal(t, 3, report.Batches)
	assert.Equal(t, 2, report.BatchSize)
	require.Len(t, f.batches, 3)
	assert.Len(t, f.batches[2], 1)
	assert.Equal(t, ActionAddObject, f.batches[0][0].Action)

	assert.Equal(t, []time.Duration{DefaultPause, DefaultPause}, pauses, "no pause after the last batch")
	require.Len(t, progress, 3)
	assert.Equal(t, Progress{Batch: 3, Batches: 3, Sent: 5, Total: 5}, progress[2])
	assert.Equal(t, 1.0, progress[2].Fraction())
	assert.NotContains(t, f.paths, "POST /1/indexes/products/clear")
}

func TestUploader_Replace(t *testing.T) {
	f := &fakeAlgolia{}
	c := newTestClient(t, f)

	var pauses []time.Duration
	u := NewUploader(c, WithClearWait(3*time.Second))
	u.sleep = func(ctx context.Context, d time.Duration) error {
		pauses = append(pauses, d)
		return nil
	}

	report, err := u.Upload(context.Background(), "products", items(3), ModeReplace)
	require.NoError(t, err)

	assert.Equal(t, "POST /1/indexes/products/clear", f.paths[0])
	assert.Equal(t, []time.Duration{3 * time.Second}, pauses)
	assert.Equal(t, 3, report.BatchSize, "batch size is clipped to the record count")
	assert.Equal(t, ModeReplace, report.Mode)
}

func TestUploader_RejectsOversizedBatch(t *testing.T) {
	f := &fakeAlgolia{}
	c := newTestClient(t, f)
	u := NewUploader(c, WithLimit(40))
	u.sleep = noSleep

	in := []any{
		map[string]any{"objectID": "1"},
		map[string]any{"objectID": "2", "text": strings.Repeat("x", 100)},
		"not a record",
	}
	_, err := u.Upload(context.Background(), "products", in, ModeReplace)
	require.Error(t, err)

	var sizeErr *record.SizeError
	require.True(t, errors.As(err, &sizeErr))
	require.Len(t, sizeErr.Rejected, 1)
	assert.Equal(t, 1, sizeErr.Rejected[0].Index)
	assert.ErrorIs(t, err, record.ErrRejected)

	assert.Empty(t, f.paths, "nothing is cleared or written")
}

func TestUploader_StopsOnFailedBatch(t *testing.T) {
	f := &fakeAlgolia{failOn: 2}
	c := newTestClient(t, f)
	u := NewUploader(c, WithBatchSize(1))
	u.sleep = noSleep

	report, err := u.Upload(context.Background(), "products", items(4), ModeAdd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "batch 2/4")
	assert.Contains(t, err.Error(), "bad batch")
	assert.Equal(t, 1, report.Batches)
	assert.Len(t, f.batches, 2)
}

func TestUploader_Cancelled(t *testing.T) {
	c := newTestClient(t, &fakeAlgolia{})
	u := NewUploader(c, WithBatchSize(1), WithPause(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	u.progress = func(Progress) { cancel() }

	_, err := u.Upload(ctx, "products", items(2), ModeAdd)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{1234 * time.Millisecond, "1.2 seconds"},
		{59 * time.Second, "59.0 seconds"},
		{125 * time.Second, "2m 5.0s"},
		{61500 * time.Millisecond, "1m 1.5s"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatDuration(tt.d))
		})
	}
}

func TestBatchOptions(t *testing.T) {
	assert.Equal(t, []int{100, 500}, BatchOptions(750))
	assert.Equal(t, []int{100, 500, 1000, 10000}, BatchOptions(20000))
	assert.Equal(t, []int{42}, BatchOptions(42))
}

func TestFitBatchSize(t *testing.T) {
	tests := []struct {
		name    string
		n       int
		records int
		want    int
		wantErr bool
	}{
		{name: "fits", n: 500, records: 750, want: 500},
		{name: "lowered to largest option", n: 10000, records: 750, want: 500},
		{name: "fewer records than smallest size", n: 100, records: 42, want: 42},
		{name: "no records", n: 1000, records: 0, want: 1000},
		{name: "not offered", n: 250, records: 750, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FitBatchSize(tt.n, tt.records)
			if tt.wantErr {
				assert.ErrorContains(t, err, "not one of [100 500 1000 10000]")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMode_String(t *testing.T) {
	assert.Equal(t, "add/update", ModeAdd.String())
	assert.Equal(t, "replace", ModeReplace.String())
}
