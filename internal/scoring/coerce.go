package scoring

import (
	"math"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/sakif/challenge-tracker/internal/model"
)

// MaxCount is the largest count a single metric accepts in one submission.
// Larger inputs are clamped to it. With nine metrics and no weight above 20,
// a month of capped submissions stays far below math.MaxInt64.
const MaxCount int64 = 1_000_000_000

// FromValues builds a TaskMetrics from loosely typed input, usually a decoded
// JSON object. Unknown keys are ignored.
//
// Coercion never fails. A value becomes 0 when it is missing, null, a bool,
// a non-numeric string, NaN/Inf or negative. Fractions truncate toward zero
// and values above MaxCount clamp to MaxCount.
// Both 3 and "3" count as three.
func FromValues(values map[string]any) model.TaskMetrics {
	var m model.TaskMetrics
	for _, mt := range Schema {
		*mt.Field(&m) = Coerce(values[mt.Name])
	}
	return m
}

// Coerce converts one loosely typed value to a non-negative count.
func Coerce(v any) int64 {
	var f float64
	switch val := v.(type) {
	case nil:
		return 0
	case float64:
		f = val
	case float32:
		f = float64(val)
	case int:
		f = float64(val)
	case int64:
		f = float64(val)
	case json.Number:
		parsed, err := val.Float64()
		if err != nil {
			return 0
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}

	if math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return 0
	}
	if f >= float64(MaxCount) {
		return MaxCount
	}
	return int64(f)
}
