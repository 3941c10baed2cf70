// Package nutrition turns a recipe dataset into the summary views served by
// the analysis endpoint: macro means per diet, diet distribution, a scatter
// sample and the protein/carbs correlation.
package nutrition

import (
	"context"
	"math"
	"math/rand/v2"
	"sort"
	"strings"

	"github.com/montanaflynn/stats"
)

// Default analysis configuration constants.
const (
	AllDiets           = "all"
	DefaultSampleLimit = 100
	meanPrecision      = 2
)

// IsAll reports whether filter selects every row.
func IsAll(filter string) bool {
	return strings.EqualFold(strings.TrimSpace(filter), AllDiets)
}

// Analyzer computes Results from Tables. It holds no per-request state and
// is safe for concurrent use.
type Analyzer struct {
	sampleLimit int
	perm        func(n int) []int
}

// NewAnalyzer creates an Analyzer with configuration options.
func NewAnalyzer(opts ...Option) *Analyzer {
	a := &Analyzer{
		sampleLimit: DefaultSampleLimit,
		perm:        rand.Perm,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// SampleLimit returns the scatter sample cap.
func (a *Analyzer) SampleLimit() int { return a.sampleLimit }

// Analyze filters t by diet and computes every view.
// A filter matching no rows yields a *NotFoundError.
func (a *Analyzer) Analyze(ctx context.Context, t *Table, diet string) (*Result, error) {
	selected, err := a.Select(ctx, t, diet)
	if err != nil {
		return nil, err
	}
	return a.Summarize(ctx, selected, diet)
}

// Select returns the rows of t that diet selects. "all" keeps every row.
func (a *Analyzer) Select(ctx context.Context, t *Table, diet string) (*Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if IsAll(diet) {
		return t, nil
	}
	return t.FilterCategory(diet)
}

// Summarize computes every view over an already selected table.
func (a *Analyzer) Summarize(ctx context.Context, t *Table, diet string) (*Result, error) {
	const op = "nutrition.analyze"
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if t.Len() == 0 {
		return nil, &NotFoundError{Filter: diet}
	}
	if !t.HasColumn(CategoryColumn) {
		return nil, Errorf(op, ErrParseFailure, "dataset has no %s column", CategoryColumn)
	}

	res := &Result{
		RecordCount:      t.Len(),
		Filter:           diet,
		Macronutrients:   macroMeans(t),
		Distribution:     distribution(t),
		ScatterData:      a.scatter(t),
		Correlations:     map[string]Number{},
		AvailableColumns: t.Columns(),
	}
	if r, ok := proteinCarbsCorrelation(t); ok {
		res.Correlations[ProteinCarbsKey] = Number(r)
	}
	return res, nil
}

// groupRows indexes rows by category, keys in ascending order.
// Rows with a missing category belong to no group.
func groupRows(t *Table) ([]string, map[string][]int) {
	cats, missing := t.texts(CategoryColumn)
	groups := make(map[string][]int)
	var keys []string
	for i, c := range cats {
		if missing[i] {
			continue
		}
		if _, ok := groups[c]; !ok {
			keys = append(keys, c)
		}
		groups[c] = append(groups[c], i)
	}
	sort.Strings(keys)
	return keys, groups
}

func macroMeans(t *Table) MacroSummary {
	keys, groups := groupRows(t)
	summary := MacroSummary{
		DietTypes: keys,
		Protein:   []Number{},
		Carbs:     []Number{},
		Fat:       []Number{},
	}
	if summary.DietTypes == nil {
		summary.DietTypes = []string{}
	}

	macros := t.Macros()
	for _, macro := range Macros {
		if !macros.Has(macro) {
			continue
		}
		values := t.numbers(string(macro))
		means := make([]Number, len(keys))
		for i, k := range keys {
			means[i] = Number(roundedMean(values, groups[k]))
		}
		summary.set(macro, means)
	}
	return summary
}

// roundedMean averages the non-missing values at rows. NaN when none exist.
func roundedMean(values []float64, rows []int) float64 {
	data := make(stats.Float64Data, 0, len(rows))
	for _, i := range rows {
		if !math.IsNaN(values[i]) {
			data = append(data, values[i])
		}
	}
	mean, err := stats.Mean(data)
	if err != nil {
		return math.NaN()
	}
	return roundHalfEven(mean, meanPrecision)
}

// roundHalfEven rounds v to places decimals, ties going to the even digit.
func roundHalfEven(v float64, places int) float64 {
	scale := math.Pow10(places)
	return math.RoundToEven(v*scale) / scale
}

func distribution(t *Table) Distribution {
	cats, missing := t.texts(CategoryColumn)
	counts := make(map[string]int)
	var order []string
	for i, c := range cats {
		if missing[i] {
			continue
		}
		if _, ok := counts[c]; !ok {
			order = append(order, c)
		}
		counts[c]++
	}
	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})

	d := Distribution{
		DietTypes:    make([]string, 0, len(order)),
		RecipeCounts: make([]int, 0, len(order)),
	}
	for _, c := range order {
		d.DietTypes = append(d.DietTypes, c)
		d.RecipeCounts = append(d.RecipeCounts, counts[c])
	}
	return d
}

func (a *Analyzer) scatter(t *Table) []ScatterPoint {
	points := []ScatterPoint{}
	macros := t.Macros()
	if !macros.Has(Protein) || !macros.Has(Carbs) {
		return points
	}

	n := t.Len()
	k := min(a.sampleLimit, n)
	protein := t.numbers(string(Protein))
	carbs := t.numbers(string(Carbs))

	var labels []string
	var noLabel []bool
	hasLabels := t.HasColumn(RecipeColumn)
	if hasLabels {
		labels, noLabel = t.texts(RecipeColumn)
	}

	for _, i := range a.perm(n)[:k] {
		x, y := protein[i], carbs[i]
		if math.IsNaN(x) || math.IsNaN(y) {
			continue
		}
		label := UnknownLabel
		if hasLabels && !noLabel[i] {
			label = labels[i]
		}
		points = append(points, ScatterPoint{X: Number(x), Y: Number(y), Label: label})
	}
	return points
}

// proteinCarbsCorrelation returns Pearson's r over rows where both values
// are present. ok is false when either column is unresolved; r is NaN when
// the coefficient is undefined.
func proteinCarbsCorrelation(t *Table) (r float64, ok bool) {
	macros := t.Macros()
	if !macros.Has(Protein) || !macros.Has(Carbs) {
		return 0, false
	}

	protein := t.numbers(string(Protein))
	carbs := t.numbers(string(Carbs))
	xs := make(stats.Float64Data, 0, len(protein))
	ys := make(stats.Float64Data, 0, len(carbs))
	for i := range protein {
		if math.IsNaN(protein[i]) || math.IsNaN(carbs[i]) {
			continue
		}
		xs = append(xs, protein[i])
		ys = append(ys, carbs[i])
	}
	if len(xs) < 2 {
		return math.NaN(), true
	}

	sx, err := stats.StandardDeviationPopulation(xs)
	if err != nil || sx == 0 {
		return math.NaN(), true
	}
	sy, err := stats.StandardDeviationPopulation(ys)
	if err != nil || sy == 0 {
		return math.NaN(), true
	}

	r, err = stats.Pearson(xs, ys)
	if err != nil || math.IsNaN(r) {
		return math.NaN(), true
	}
	return math.Max(-1, math.Min(1, r)), true
}
