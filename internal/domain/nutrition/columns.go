package nutrition

import "strings"

// Well-known dataset columns.
const (
	CategoryColumn = "Diet_type"
	RecipeColumn   = "Recipe_name"
)

// Macro is the canonical name of a macronutrient column.
type Macro string

const (
	Protein Macro = "Protein(g)"
	Carbs   Macro = "Carbs(g)"
	Fat     Macro = "Fat(g)"
)

// Macros lists the canonical macros in output order.
var Macros = []Macro{Protein, Carbs, Fat}

// fallbackNeedles maps a lowercase substring to the macro it aliases.
var fallbackNeedles = []struct {
	needle string
	macro  Macro
}{
	{"protein", Protein},
	{"carb", Carbs},
	{"fat", Fat},
}

// MacroColumns maps each resolved macro to the dataset column holding it.
type MacroColumns struct {
	sources  map[Macro]string
	order    []Macro // first-assignment order of fallback aliases
	fallback bool
}

// ResolveMacroColumns matches canonical macro names against columns.
//
// Exact names win. Only when none of the three exists does substring
// matching kick in, and then for every column: a later column overrides an
// earlier one, and a single column may feed several macros.
func ResolveMacroColumns(columns []string) MacroColumns {
	m := MacroColumns{sources: make(map[Macro]string, len(Macros))}
	present := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		present[c] = struct{}{}
	}
	for _, macro := range Macros {
		if _, ok := present[string(macro)]; ok {
			m.sources[macro] = string(macro)
		}
	}
	if len(m.sources) > 0 {
		return m
	}

	for _, c := range columns {
		lower := strings.ToLower(c)
		for _, n := range fallbackNeedles {
			if strings.Contains(lower, n.needle) {
				if _, seen := m.sources[n.macro]; !seen {
					m.order = append(m.order, n.macro)
				}
				m.sources[n.macro] = c
				m.fallback = true
			}
		}
	}
	return m
}

// Source returns the column backing macro.
func (m MacroColumns) Source(macro Macro) (string, bool) {
	c, ok := m.sources[macro]
	return c, ok
}

// Has reports whether macro resolved to a column.
func (m MacroColumns) Has(macro Macro) bool {
	_, ok := m.sources[macro]
	return ok
}

// Fallback reports whether substring matching produced the mapping.
func (m MacroColumns) Fallback() bool { return m.fallback }

// Aliases returns macros whose source column differs from the canonical
// name, in the order the header first assigned them.
func (m MacroColumns) Aliases() []Macro {
	var out []Macro
	for _, macro := range m.order {
		if c, ok := m.sources[macro]; ok && c != string(macro) {
			out = append(out, macro)
		}
	}
	return out
}

// Len returns the number of resolved macros.
func (m MacroColumns) Len() int { return len(m.sources) }
