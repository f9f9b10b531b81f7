package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"

	"servicecheck/features/services"

	"github.com/spf13/cast"
)

var ErrMalformedCatalog = errors.New("malformed catalog response")

// ServiceIDFields lists the entry fields that may carry the provider's service
// identifier, highest priority first.
var ServiceIDFields = []string{"service", "ID", "id", "service_id"}

// Entry is one element of a provider catalog.
type Entry struct {
	ServiceID string
	Resolved  bool
	Bounds    services.Bounds
	Fields    map[string]any
}

// ResolveServiceID returns the first present, non-null identifier field of
// fields coerced to a string. ok is false when no candidate yields an identifier.
func ResolveServiceID(fields map[string]any) (id string, ok bool) {
	for _, key := range ServiceIDFields {
		v, present := fields[key]
		if !present || v == nil {
			continue
		}
		return coerceID(v)
	}
	return "", false
}

func coerceID(v any) (string, bool) {
	var s string
	switch t := v.(type) {
	case string:
		s = t
	case json.Number:
		if n, err := t.Int64(); err == nil {
			s = strconv.FormatInt(n, 10)
		} else if f, err := t.Float64(); err == nil {
			s = strconv.FormatFloat(f, 'f', -1, 64)
		} else {
			s = t.String()
		}
	case bool:
		if !t {
			return "", false
		}
		s = "1"
	default:
		return "", false
	}

	s = strings.TrimSpace(s)
	return s, s != ""
}

// toBound converts a min/max value to an integer, truncating fractions.
// Anything that is not a number or numeric string counts as 0.
func toBound(v any) int64 {
	if v == nil {
		return 0
	}
	f, err := cast.ToFloat64E(v)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	if f > math.MaxInt64 || f < math.MinInt64 {
		return 0
	}
	return int64(f)
}

// ParseEntries decodes a catalog body. The body must be a JSON array; elements
// that are not objects or carry no identifier come back with Resolved unset.
func ParseEntries(body []byte) ([]Entry, error) {
	trimmed := bytes.TrimSpace(bytes.TrimPrefix(body, []byte("\xef\xbb\xbf")))
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, ErrMalformedCatalog
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, errors.Join(ErrMalformedCatalog, err)
	}

	entries := make([]Entry, 0, len(raw))
	for _, item := range raw {
		entries = append(entries, parseEntry(item))
	}
	return entries, nil
}

func parseEntry(item json.RawMessage) Entry {
	dec := json.NewDecoder(bytes.NewReader(item))
	dec.UseNumber()

	var fields map[string]any
	if err := dec.Decode(&fields); err != nil || fields == nil {
		return Entry{}
	}

	id, ok := ResolveServiceID(fields)
	return Entry{
		ServiceID: id,
		Resolved:  ok,
		Bounds: services.Bounds{
			Min: toBound(fields["min"]),
			Max: toBound(fields["max"]),
		},
		Fields: fields,
	}
}
