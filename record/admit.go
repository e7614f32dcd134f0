package record

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultLimit is the per-record size ceiling of the index service, in bytes.
const DefaultLimit = 10000

// ErrRejected is wrapped by the error of a failed admission.
var ErrRejected = errors.New("records exceed the per-record size limit")

// Rejection identifies one oversized record.
type Rejection struct {
	// Index is the zero-based position in the input.
	Index int
	Size  int
}

func (r Rejection) String() string {
	return fmt.Sprintf("record %d: %d bytes", r.Index+1, r.Size)
}

// Skip identifies an input item that was not a well-formed record.
type Skip struct {
	Index  int
	Reason string
}

func (s Skip) String() string {
	return fmt.Sprintf("record %d skipped: %s", s.Index+1, s.Reason)
}

// Admission is the outcome of admitting a batch.
type Admission struct {
	// Records holds every sanitized record when OK, and nothing otherwise.
	Records  []Record
	OK       bool
	Limit    int
	Rejected []Rejection
	Skipped  []Skip
}

// Err returns a *SizeError when the batch was rejected, or nil.
func (a *Admission) Err() error {
	if a.OK {
		return nil
	}
	return &SizeError{Limit: a.Limit, Rejected: a.Rejected}
}

// SizeError enumerates every record over the limit.
type SizeError struct {
	Limit    int
	Rejected []Rejection
}

func (e *SizeError) Error() string {
	parts := make([]string, len(e.Rejected))
	for i, r := range e.Rejected {
		parts[i] = r.String()
	}
	return fmt.Sprintf("%d record(s) exceed the %d byte limit: %s",
		len(e.Rejected), e.Limit, strings.Join(parts, "; "))
}

func (e *SizeError) Unwrap() error {
	return ErrRejected
}

// Admit sanitizes and measures every item against limit.
// Items that are not records are skipped and reported. If any record is
// larger than limit the whole batch is refused: Records is empty, OK is
// false and every oversized record is listed. Nothing is truncated.
// A non-positive limit selects DefaultLimit.
func Admit(items []any, limit int) *Admission {
	if limit <= 0 {
		limit = DefaultLimit
	}
	a := &Admission{Limit: limit}
	admitted := make([]Record, 0, len(items))

	for i, item := range items {
		r, ok := item.(map[string]any)
		if !ok {
			a.Skipped = append(a.Skipped, Skip{Index: i, Reason: fmt.Sprintf("expected an object, got %T", item)})
			continue
		}

		clean := Sanitize(r)
		size, err := Size(clean)
		if err != nil {
			a.Skipped = append(a.Skipped, Skip{Index: i, Reason: err.Error()})
			continue
		}
		if size > limit {
			a.Rejected = append(a.Rejected, Rejection{Index: i, Size: size})
			continue
		}
		admitted = append(admitted, clean)
	}

	if len(a.Rejected) > 0 {
		a.Records = []Record{}
		return a
	}
	a.Records = admitted
	a.OK = true
	return a
}

// AdmitRecords is Admit for an already typed batch.
func AdmitRecords(records []Record, limit int) *Admission {
	items := make([]any, len(records))
	for i, r := range records {
		items[i] = r
	}
	return Admit(items, limit)
}
