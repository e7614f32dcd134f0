package algolia

import (
	"context"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/rs/zerolog"

	"github.com/i2y/indexpilot/record"
)

// Upload defaults.
const (
	DefaultBatchSize = 1000
	DefaultPause     = 500 * time.Millisecond
	DefaultClearWait = 2 * time.Second

	// LargeUploadThreshold is the record count above which a large upload
	// warning is issued.
	LargeUploadThreshold = 500
)

// BatchSizes are the offered batch sizes.
var BatchSizes = []int{100, 500, 1000, 10000}

// BatchOptions returns the batch sizes not larger than n. When every size
// is larger, n itself is the only option.
func BatchOptions(n int) []int {
	var opts []int
	for _, b := range BatchSizes {
		if b <= n {
			opts = append(opts, b)
		}
	}
	if len(opts) == 0 {
		return []int{n}
	}
	return opts
}

// FitBatchSize checks that n is one of BatchSizes and lowers it to the
// largest of BatchOptions(records).
func FitBatchSize(n, records int) (int, error) {
	if !slices.Contains(BatchSizes, n) {
		return 0, fmt.Errorf("batch size %d is not one of %v", n, BatchSizes)
	}
	if records <= 0 {
		return n, nil
	}
	opts := BatchOptions(records)
	return min(n, opts[len(opts)-1]), nil
}

// Mode selects how an upload treats existing records.
type Mode int

const (
	// ModeAdd adds new records and updates records with the same objectID.
	ModeAdd Mode = iota
	// ModeReplace clears the index before uploading.
	ModeReplace
)

func (m Mode) String() string {
	if m == ModeReplace {
		return "replace"
	}
	return "add/update"
}

// Progress is reported after every batch.
type Progress struct {
	Batch   int
	Batches int
	// Sent is the number of records written so far.
	Sent  int
	Total int
}

// Fraction returns the completed share in [0, 1].
func (p Progress) Fraction() float64 {
	if p.Total == 0 {
		return 1
	}
	return math.Min(1, float64(p.Sent)/float64(p.Total))
}

// Report summarizes a finished upload.
type Report struct {
	Index     string
	Mode      Mode
	Records   int
	Batches   int
	BatchSize int
	Skipped   []record.Skip
	Duration  time.Duration
}

// Elapsed formats the upload duration.
func (r *Report) Elapsed() string {
	return FormatDuration(r.Duration)
}

// FormatDuration renders d as "12.3 seconds" below a minute and as
// "2m 5.0s" otherwise.
func FormatDuration(d time.Duration) string {
	secs := d.Seconds()
	if secs < 60 {
		return fmt.Sprintf("%.1f seconds", secs)
	}
	minutes := int(secs / 60)
	return fmt.Sprintf("%dm %.1fs", minutes, math.Mod(secs, 60))
}

// Uploader writes admitted records to an index in batches.
type Uploader struct {
	client    *Client
	batchSize int
	pause     time.Duration
	clearWait time.Duration
	limit     int
	logger    zerolog.Logger
	progress  func(Progress)
	sleep     func(ctx context.Context, d time.Duration) error
}

// UploadOption configures an Uploader.
type UploadOption func(*Uploader)

// WithBatchSize sets the number of records per batch request.
func WithBatchSize(n int) UploadOption {
	return func(u *Uploader) {
		u.batchSize = n
	}
}

// WithPause sets the pause between batches.
func WithPause(d time.Duration) UploadOption {
	return func(u *Uploader) {
		u.pause = d
	}
}

// WithClearWait sets how long to wait after clearing an index.
func WithClearWait(d time.Duration) UploadOption {
	return func(u *Uploader) {
		u.clearWait = d
	}
}

// WithLimit sets the per-record size ceiling in bytes.
func WithLimit(n int) UploadOption {
	return func(u *Uploader) {
		u.limit = n
	}
}

// WithLogger sets the uploader logger.
func WithLogger(l zerolog.Logger) UploadOption {
	return func(u *Uploader) {
		u.logger = l
	}
}

// WithProgress registers a callback invoked after every batch.
func WithProgress(fn func(Progress)) UploadOption {
	return func(u *Uploader) {
		u.progress = fn
	}
}

// NewUploader creates an uploader writing through c.
func NewUploader(c *Client, opts ...UploadOption) *Uploader {
	u := &Uploader{
		client:    c,
		batchSize: DefaultBatchSize,
		pause:     DefaultPause,
		clearWait: DefaultClearWait,
		limit:     record.DefaultLimit,
		logger:    zerolog.Nop(),
		sleep:     sleepContext,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// With returns a copy of u with opts applied.
func (u *Uploader) With(opts ...UploadOption) *Uploader {
	c := *u
	for _, opt := range opts {
		opt(&c)
	}
	return &c
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Upload admits items and writes them to index. When any record exceeds
// the size limit nothing is written and the *record.SizeError listing every
// oversized record is returned. The first failing batch stops the upload.
func (u *Uploader) Upload(ctx context.Context, index string, items []any, mode Mode) (*Report, error) {
	start := time.Now()
	log := u.logger.With().Str("index", index).Str("mode", mode.String()).Logger()

	admission := record.Admit(items, u.limit)
	for _, s := range admission.Skipped {
		log.Warn().Int("record", s.Index+1).Str("reason", s.Reason).Msg("algolia: skipping record")
	}
	if err := admission.Err(); err != nil {
		for _, r := range admission.Rejected {
			log.Error().Int("record", r.Index+1).Int("size", r.Size).Int("limit", admission.Limit).Msg("algolia: record too large")
		}
		return nil, err
	}

	records := admission.Records
	if len(records) > LargeUploadThreshold {
		log.Warn().Int("records", len(records)).Msg("algolia: large upload, consider a smaller batch size")
	}

	size := u.batchSize
	if size <= 0 {
		size = DefaultBatchSize
	}
	if size > len(records) && len(records) > 0 {
		size = len(records)
	}

	if mode == ModeReplace {
		if err := u.client.Clear(ctx, index); err != nil {
			return nil, err
		}
		log.Info().Msg("algolia: index cleared")
		if err := u.sleep(ctx, u.clearWait); err != nil {
			return nil, err
		}
	}

	report := &Report{
		Index:     index,
		Mode:      mode,
		Records:   len(records),
		BatchSize: size,
		Skipped:   admission.Skipped,
	}
	total := (len(records) + size - 1) / size

	for i := 0; i < len(records); i += size {
		end := min(i+size, len(records))
		batchNum := i/size + 1

		requests := make([]BatchRequest, 0, end-i)
		for _, r := range records[i:end] {
			requests = append(requests, BatchRequest{Action: ActionAddObject, Body: r})
		}
		if _, err := u.client.Batch(ctx, index, requests); err != nil {
			return report, fmt.Errorf("batch %d/%d: %w", batchNum, total, err)
		}
		report.Batches++
		log.Debug().Int("batch", batchNum).Int("batches", total).Int("records", end-i).Msg("algolia: batch uploaded")

		if u.progress != nil {
			u.progress(Progress{Batch: batchNum, Batches: total, Sent: end, Total: len(records)})
		}
		if batchNum < total {
			if err := u.sleep(ctx, u.pause); err != nil {
				return report, err
			}
		}
	}

	report.Duration = time.Since(start)
	log.Info().Int("records", report.Records).Int("batches", report.Batches).Str("elapsed", report.Elapsed()).Msg("algolia: upload completed")
	return report, nil
}
