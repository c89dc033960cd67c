// Package record holds the field mapping applied to every row before it is
// written to the SharePoint list.
package record

import (
	"fmt"
	"time"
)

const (
	TitleField   = "Title"
	ProcessField = "PROCESSO"

	dateLayout      = "2006-01-02"
	timestampLayout = "2006-01-02T15:04:05Z"
)

// Record maps SharePoint field names to values for a single list item.
type Record map[string]string

// Clone returns a shallow copy of r.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// FormatDates rewrites every listed field holding a YYYY-MM-DD date as a UTC
// midnight timestamp. Missing or empty fields are skipped.
func FormatDates(r Record, fields []string) error {
	for _, field := range fields {
		value, ok := r[field]
		if !ok || value == "" {
			continue
		}
		parsed, err := time.Parse(dateLayout, value)
		if err != nil {
			return fmt.Errorf("field %s: invalid date %q: %w", field, value, err)
		}
		r[field] = parsed.UTC().Format(timestampLayout)
	}
	return nil
}

// EnsureTitle backfills Title from PROCESSO. The list requires Title.
func EnsureTitle(r Record) {
	if _, ok := r[TitleField]; ok {
		return
	}
	if process, ok := r[ProcessField]; ok {
		r[TitleField] = process
	}
}

// Format returns the record as it should be sent. On failure the original
// record is returned unchanged along with the error. The input is never mutated.
func Format(in Record, dateFields []string) (Record, error) {
	out := in.Clone()
	if err := FormatDates(out, dateFields); err != nil {
		return in, err
	}
	EnsureTitle(out)
	return out, nil
}
