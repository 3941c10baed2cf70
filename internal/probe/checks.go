package probe

import (
	"fmt"
	"math"
	"strings"

	"github.com/okian/dietlens/internal/domain/nutrition"
)

// checkResponse verifies the invariants of one analysis response.
func checkResponse(name string, r *Response, sampleLimit int) []Check {
	var checks []Check
	add := func(what string, ok bool, format string, args ...any) {
		c := Check{Name: name + ": " + what, Passed: ok}
		if !ok {
			c.Detail = fmt.Sprintf(format, args...)
		}
		checks = append(checks, c)
	}

	add("success flag", r.Success, "success=false")
	add("execution time", strings.HasSuffix(r.ExecutionTime, "ms"), "executionTime=%q", r.ExecutionTime)

	total := 0
	for _, n := range r.Distribution.RecipeCounts {
		total += n
	}
	add("distribution sums to record count", total <= r.RecordCount,
		"sum=%d recordCount=%d", total, r.RecordCount)

	limit := min(sampleLimit, r.RecordCount)
	add("scatter bounded", len(r.ScatterData) <= limit, "len=%d limit=%d", len(r.ScatterData), limit)

	badPoint := -1
	for i, p := range r.ScatterData {
		if p.X.IsNaN() || p.Y.IsNaN() || p.Label == "" {
			badPoint = i
			break
		}
	}
	add("scatter points complete", badPoint < 0, "point %d has a missing value", badPoint)

	if v, ok := r.Correlations[nutrition.ProteinCarbsKey]; ok && !v.IsNaN() {
		add("correlation in range", math.Abs(float64(v)) <= 1, "r=%v", float64(v))
	}

	n := len(r.Macronutrients.DietTypes)
	for _, series := range [][]nutrition.Number{r.Macronutrients.Protein, r.Macronutrients.Carbs, r.Macronutrients.Fat} {
		if len(series) != 0 && len(series) != n {
			add("macro series aligned", false, "len=%d dietTypes=%d", len(series), n)
		}
	}
	return checks
}

// checkFiltered adds the single-category invariant for a filtered response.
func checkFiltered(diet string, r *Response) Check {
	ok := len(r.Distribution.DietTypes) == 1 && strings.EqualFold(r.Distribution.DietTypes[0], diet)
	c := Check{Name: diet + ": single category", Passed: ok}
	if !ok {
		c.Detail = fmt.Sprintf("dietTypes=%v", r.Distribution.DietTypes)
	}
	return c
}
