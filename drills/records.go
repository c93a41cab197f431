package drills

import (
	"fmt"
	"regexp"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Record is a single row of loosely typed data, keyed by column name.
type Record map[string]any

// FlattenJSON decodes a JSON object and flattens nested objects into dotted keys:
// {"address": {"city": "NYC"}} becomes {"address.city": "NYC"}. Arrays are kept as is.
func FlattenJSON(data []byte) (Record, error) {
	var obj map[string]any

	err := json.Unmarshal(data, &obj)
	if err != nil {
		return nil, errors.Wrap(err, "decoding object")
	}

	flat := make(Record)
	flattenInto(flat, "", obj)

	return flat, nil
}

func flattenInto(flat Record, prefix string, obj map[string]any) {
	for k, v := range obj {
		if prefix != "" {
			k = prefix + "." + k
		}

		if nested, ok := v.(map[string]any); ok {
			flattenInto(flat, k, nested)
			continue
		}

		flat[k] = v
	}
}

// GroupBy turns rows of a query result into records and groups them by the value of the
// column key. Grouped records carry every column except key. Group keys are the
// formatted column values.
func GroupBy(rows [][]any, columns []string, key string) ([]Record, map[string][]Record, error) {
	keyIdx := -1
	for i, c := range columns {
		if c == key {
			keyIdx = i
			break
		}
	}

	if keyIdx < 0 {
		return nil, nil, errors.Errorf("unknown column %q", key)
	}

	records := make([]Record, 0, len(rows))
	grouped := make(map[string][]Record)

	for n, row := range rows {
		if len(row) != len(columns) {
			return nil, nil, errors.Errorf("row %d: want %d columns, have %d", n, len(columns), len(row))
		}

		full := make(Record, len(columns))
		rest := make(Record, len(columns)-1)

		for i, c := range columns {
			full[c] = row[i]
			if i != keyIdx {
				rest[c] = row[i]
			}
		}

		records = append(records, full)

		g := fmt.Sprint(row[keyIdx])
		grouped[g] = append(grouped[g], rest)
	}

	return records, grouped, nil
}

var emailPattern = regexp.MustCompile(`^[\w.-]+@[\w.-]+\.\w+$`)

// ValidationReport lists offending record indices per check, ascending.
type ValidationReport struct {
	Missing      map[string][]int // required field -> records without it
	InvalidEmail []int            // missing or malformed email
	InvalidAge   []int            // age outside [0, 120] or not a number
}

// Valid reports whether no check failed.
func (r ValidationReport) Valid() bool {
	return len(r.Missing) == 0 && len(r.InvalidEmail) == 0 && len(r.InvalidAge) == 0
}

var requiredFields = []string{"name", "email"}

func missing(v any) bool {
	if v == nil {
		return true
	}

	s, ok := v.(string)

	return ok && s == ""
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case jsoniter.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// ValidateRecords checks records for missing name or email, malformed email addresses
// and implausible ages. Records without an age are not checked for it.
func ValidateRecords(records []Record) ValidationReport {
	report := ValidationReport{
		Missing: make(map[string][]int),
	}

	for idx, r := range records {
		for _, f := range requiredFields {
			if missing(r[f]) {
				report.Missing[f] = append(report.Missing[f], idx)
			}
		}

		email, _ := r["email"].(string)
		if !emailPattern.MatchString(email) {
			report.InvalidEmail = append(report.InvalidEmail, idx)
		}

		age, ok := r["age"]
		if !ok || age == nil {
			continue
		}

		if f, ok := toFloat(age); !ok || f < 0 || f > 120 {
			report.InvalidAge = append(report.InvalidAge, idx)
		}
	}

	return report
}
