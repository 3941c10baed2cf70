package nutrition

import (
	"math"
	"strconv"
)

// ProteinCarbsKey names the protein/carbs coefficient in Result.Correlations.
const ProteinCarbsKey = "protein_carbs"

// UnknownLabel is used for scatter points without a recipe name.
const UnknownLabel = "Unknown"

// Result holds the derived views of one analysis.
type Result struct {
	RecordCount      int               `json:"recordCount"`
	Filter           string            `json:"filter"`
	Macronutrients   MacroSummary      `json:"macronutrients"`
	Distribution     Distribution      `json:"distribution"`
	ScatterData      []ScatterPoint    `json:"scatterData"`
	Correlations     map[string]Number `json:"correlations"`
	AvailableColumns []string          `json:"availableColumns"`
}

// MacroSummary holds per-diet macro means as parallel sequences.
type MacroSummary struct {
	DietTypes []string `json:"dietTypes"`
	Protein   []Number `json:"protein"`
	Carbs     []Number `json:"carbs"`
	Fat       []Number `json:"fat"`
}

func (s *MacroSummary) set(macro Macro, means []Number) {
	switch macro {
	case Protein:
		s.Protein = means
	case Carbs:
		s.Carbs = means
	case Fat:
		s.Fat = means
	}
}

// Distribution holds recipe counts per diet, most frequent first.
type Distribution struct {
	DietTypes    []string `json:"dietTypes"`
	RecipeCounts []int    `json:"recipeCounts"`
}

// ScatterPoint is one sampled (protein, carbs) pair.
type ScatterPoint struct {
	X     Number `json:"x"`
	Y     Number `json:"y"`
	Label string `json:"label"`
}

// Number is a float that encodes NaN and infinities as JSON null.
type Number float64

// MarshalJSON implements json.Marshaler.
func (n Number) MarshalJSON() ([]byte, error) {
	f := float64(n)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, f, 'f', -1, 64), nil
}

// UnmarshalJSON implements json.Unmarshaler; null decodes to NaN.
func (n *Number) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*n = Number(math.NaN())
		return nil
	}
	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return err
	}
	*n = Number(f)
	return nil
}

// IsNaN reports whether n is not a number.
func (n Number) IsNaN() bool { return math.IsNaN(float64(n)) }
