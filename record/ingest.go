package record

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"
)

// ErrUnsupportedFormat is returned for files that are neither JSON nor CSV.
var ErrUnsupportedFormat = errors.New("unsupported file type: only .json and .csv are accepted")

// Format is an ingestible file format.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// FormatOf returns the format implied by the file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".csv":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("%s: %w", path, ErrUnsupportedFormat)
	}
}

// Parse decodes data in the given format into candidate records.
// Items that are not objects are kept so that admission can report them.
// Every object without an objectID is assigned a fresh UUID.
func Parse(data []byte, format Format) ([]any, error) {
	var (
		items []any
		err   error
	)
	switch format {
	case FormatJSON:
		items, err = parseJSON(data)
	case FormatCSV:
		items, err = parseCSV(data)
	default:
		return nil, ErrUnsupportedFormat
	}
	if err != nil {
		return nil, err
	}
	AssignIDs(items)
	return items, nil
}

// AssignIDs sets a generated objectID on every record that lacks one.
func AssignIDs(items []any) {
	for _, item := range items {
		r, ok := item.(map[string]any)
		if !ok || r == nil {
			continue
		}
		if _, has := r[IDField]; !has {
			r[IDField] = uuid.NewString()
		}
	}
}

func parseJSON(data []byte) ([]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decoding JSON: %w", err)
	}

	switch val := v.(type) {
	case []any:
		return val, nil
	case map[string]any:
		return []any{val}, nil
	default:
		return nil, errors.New("JSON file must contain an object or array of objects")
	}
}

// parseCSV treats the first row as field names. Empty cells become nil and
// numeric or boolean cells are typed.
func parseCSV(data []byte) ([]any, error) {
	rd := csv.NewReader(bytes.NewReader(data))
	rd.FieldsPerRecord = -1

	header, err := rd.Read()
	if err == io.EOF {
		return []any{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	items := []any{}
	for line := 2; ; line++ {
		row, err := rd.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV line %d: %w", line, err)
		}
		r := make(Record, len(header))
		for i, name := range header {
			var cell string
			if i < len(row) {
				cell = row[i]
			}
			r[name] = csvValue(cell)
		}
		items = append(items, r)
	}
	return items, nil
}

func csvValue(cell string) any {
	s := strings.TrimSpace(cell)
	if s == "" {
		return nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	switch s {
	case "true", "True", "TRUE":
		return true
	case "false", "False", "FALSE":
		return false
	}
	return cell
}

// ReadFile parses one JSON or CSV file.
func ReadFile(path string) ([]any, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	items, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return items, nil
}

// LoadGlob parses every JSON or CSV file matching pattern, in path order.
// The pattern supports ** for recursive matching. A pattern naming a
// single file is accepted as is.
func LoadGlob(pattern string) ([]any, []string, error) {
	matches, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	sort.Strings(matches)

	var (
		items []any
		files []string
	)
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		if _, err := FormatOf(path); err != nil {
			continue
		}
		got, err := ReadFile(path)
		if err != nil {
			return nil, nil, err
		}
		items = append(items, got...)
		files = append(files, path)
	}
	if len(files) == 0 {
		return nil, nil, fmt.Errorf("no .json or .csv files match %q", pattern)
	}
	return items, files, nil
}
