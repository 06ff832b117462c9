package tsdb

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/ecp-air/airquality-backend/internal/apperr"
)

var (
	identPattern    = regexp.MustCompile(`^[A-Za-z0-9_.]+$`)
	tagValuePattern = regexp.MustCompile(`^[A-Za-z0-9_\-. :]+$`)
)

// QuerySpec is a declarative range-query description. Handlers never build
// Flux text themselves; every identifier and tag value is validated before
// it is embedded, so untrusted path parameters cannot alter query structure.
type QuerySpec struct {
	Measurement string
	// Fields is a disjunction: any record whose _field is in the set matches.
	Fields []string
	// Tags maps a tag key to its allowed values. Keys combine with AND,
	// values within a key with OR.
	Tags map[string][]string
	// Start and Stop bound the range. Stop zero means "now". Both are
	// rendered in UTC.
	Start time.Time
	Stop  time.Time
	// Every requests aggregateWindow(every, mean, createEmpty: false).
	Every time.Duration
	// SortByTime appends an ascending sort on _time.
	SortByTime bool
	// TimeOnly keeps only the _time column and drops grouping, for
	// distinct-timestamp scans.
	TimeOnly bool
	// LastPerField keeps only the most recent record of each field.
	LastPerField bool
	Limit        int
}

// Validate checks every identifier and tag value against its grammar.
func (s QuerySpec) Validate() error {
	if s.Measurement == "" {
		return apperr.New(apperr.Validation, "measurement is required")
	}
	if !identPattern.MatchString(s.Measurement) {
		return apperr.Newf(apperr.Validation, "invalid measurement name: %q", s.Measurement)
	}
	for _, f := range s.Fields {
		if !identPattern.MatchString(f) {
			return apperr.Newf(apperr.Validation, "invalid field name: %q", f)
		}
	}
	for key, values := range s.Tags {
		if !identPattern.MatchString(key) {
			return apperr.Newf(apperr.Validation, "invalid tag key: %q", key)
		}
		if len(values) == 0 {
			return apperr.Newf(apperr.Validation, "tag %q has no values", key)
		}
		for _, v := range values {
			if !tagValuePattern.MatchString(v) {
				return apperr.Newf(apperr.Validation, "invalid value for tag %q: %q", key, v)
			}
		}
	}
	if !s.Stop.IsZero() && !s.Start.Before(s.Stop) {
		return apperr.New(apperr.Validation, "query range start must be before stop")
	}
	return nil
}

// Flux renders the spec as a Flux pipeline against the given bucket.
// Output is deterministic for the same spec.
func (s QuerySpec) Flux(bucket string) (string, error) {
	if err := s.Validate(); err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "from(bucket: %q)\n", bucket)
	if s.Stop.IsZero() {
		fmt.Fprintf(&b, "  |> range(start: %s)\n", s.Start.UTC().Format(time.RFC3339))
	} else {
		fmt.Fprintf(&b, "  |> range(start: %s, stop: %s)\n",
			s.Start.UTC().Format(time.RFC3339), s.Stop.UTC().Format(time.RFC3339))
	}
	fmt.Fprintf(&b, "  |> filter(fn: (r) => r._measurement == %q)\n", s.Measurement)

	keys := make([]string, 0, len(s.Tags))
	for key := range s.Tags {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		clauses := make([]string, 0, len(s.Tags[key]))
		for _, v := range s.Tags[key] {
			clauses = append(clauses, fmt.Sprintf("r[%q] == %q", key, v))
		}
		fmt.Fprintf(&b, "  |> filter(fn: (r) => %s)\n", strings.Join(clauses, " or "))
	}

	if len(s.Fields) > 0 {
		clauses := make([]string, 0, len(s.Fields))
		for _, f := range s.Fields {
			clauses = append(clauses, fmt.Sprintf("r._field == %q", f))
		}
		fmt.Fprintf(&b, "  |> filter(fn: (r) => %s)\n", strings.Join(clauses, " or "))
	}

	if s.TimeOnly {
		b.WriteString("  |> keep(columns: [\"_time\"])\n")
		b.WriteString("  |> group()\n")
	}
	if s.Every > 0 {
		fmt.Fprintf(&b, "  |> aggregateWindow(every: %s, fn: mean, createEmpty: false)\n", fluxDuration(s.Every))
	}
	if s.LastPerField {
		b.WriteString("  |> last()\n")
	}
	if s.SortByTime {
		b.WriteString("  |> sort(columns: [\"_time\"])\n")
	}
	if s.Limit > 0 {
		fmt.Fprintf(&b, "  |> limit(n: %d)\n", s.Limit)
	}

	return b.String(), nil
}

// fluxDuration renders a duration in Flux's unit notation, preferring the
// coarsest whole unit so 24h becomes 1d and 60m becomes 1h.
func fluxDuration(d time.Duration) string {
	switch {
	case d%(24*time.Hour) == 0:
		return fmt.Sprintf("%dd", d/(24*time.Hour))
	case d%time.Hour == 0:
		return fmt.Sprintf("%dh", d/time.Hour)
	case d%time.Minute == 0:
		return fmt.Sprintf("%dm", d/time.Minute)
	default:
		return fmt.Sprintf("%ds", d/time.Second)
	}
}
