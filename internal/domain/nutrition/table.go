package nutrition

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// missingValues are the cell spellings treated as absent.
var missingValues = []string{
	"", "NA", "N/A", "n/a", "NaN", "nan", "null", "NULL", "None", "#N/A", "<NA>",
}

// Table is a parsed dataset owned by a single request.
type Table struct {
	frame   dataframe.DataFrame
	columns []string
	macros  MacroColumns
	rows    int
}

// ParseCSV reads a header-first CSV document into a Table.
//
// Header names are trimmed. Short rows are padded with missing cells, rows
// wider than the header are rejected. Macro columns are resolved here and,
// when fallback matching applies, copied under their canonical names.
func ParseCSV(r io.Reader) (*Table, error) {
	const op = "nutrition.parse_csv"

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, Wrap(op, ErrParseFailure, fmt.Errorf("read csv: %w", err))
	}
	if len(records) == 0 {
		return nil, Errorf(op, ErrParseFailure, "no columns to parse from file")
	}

	header := records[0]
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	header[0] = strings.TrimSpace(strings.TrimPrefix(header[0], "\ufeff"))
	header = uniqueNames(header)
	records[0] = header

	ncol := len(header)
	for i := 1; i < len(records); i++ {
		rec := records[i]
		switch {
		case len(rec) > ncol:
			return nil, Errorf(op, ErrParseFailure, "expected %d fields in record %d, saw %d", ncol, i, len(rec))
		case len(rec) < ncol:
			padded := make([]string, ncol)
			copy(padded, rec)
			records[i] = padded
		}
	}

	macros := ResolveMacroColumns(header)
	trimNumericCells(records, header, macros)
	t := &Table{macros: macros, rows: len(records) - 1}
	if t.rows == 0 {
		t.columns = append(append([]string(nil), header...), aliasNames(macros)...)
		return t, nil
	}

	types := map[string]series.Type{}
	for _, c := range header {
		switch c {
		case CategoryColumn, RecipeColumn:
			types[c] = series.String
		}
	}
	for _, macro := range Macros {
		if src, ok := macros.Source(macro); ok {
			types[src] = series.Float
		}
	}

	frame := dataframe.LoadRecords(records,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(true),
		dataframe.DefaultType(series.String),
		dataframe.WithTypes(types),
		dataframe.NaNValues(missingValues),
	)
	if frame.Err != nil {
		return nil, Wrap(op, ErrParseFailure, frame.Err)
	}
	for name := range types {
		if col := frame.Col(name); col.Err != nil {
			return nil, Wrap(op, ErrParseFailure, col.Err)
		}
	}

	for _, macro := range macros.Aliases() {
		src, _ := macros.Source(macro)
		alias := frame.Col(src).Copy()
		alias.Name = string(macro)
		frame = frame.Mutate(alias)
		if frame.Err != nil {
			return nil, Wrap(op, ErrParseFailure, frame.Err)
		}
	}

	t.frame = frame
	t.columns = frame.Names()
	return t, nil
}

// uniqueNames names blank headers "Unnamed: i" and suffixes repeats with
// ".1", ".2", skipping suffixes already taken by another column.
func uniqueNames(header []string) []string {
	out := make([]string, len(header))
	counts := make(map[string]int, len(header))
	for i, name := range header {
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		n := counts[name]
		for n > 0 {
			counts[name] = n + 1
			name = fmt.Sprintf("%s.%d", name, n)
			n = counts[name]
		}
		out[i] = name
		counts[name] = n + 1
	}
	return out
}

// trimNumericCells strips surrounding blanks from cells of macro source
// columns so " 20 " parses as a number.
func trimNumericCells(records [][]string, header []string, m MacroColumns) {
	var idx []int
	for i, name := range header {
		for _, macro := range Macros {
			if src, ok := m.Source(macro); ok && src == name {
				idx = append(idx, i)
				break
			}
		}
	}
	for _, rec := range records[1:] {
		for _, i := range idx {
			rec[i] = strings.TrimSpace(rec[i])
		}
	}
}

func aliasNames(m MacroColumns) []string {
	var out []string
	for _, macro := range m.Aliases() {
		out = append(out, string(macro))
	}
	return out
}

// Len returns the number of data rows.
func (t *Table) Len() int { return t.rows }

// Columns returns the column names, fallback aliases included.
func (t *Table) Columns() []string {
	return append([]string(nil), t.columns...)
}

// Macros returns the macro column resolution for this table.
func (t *Table) Macros() MacroColumns { return t.macros }

// HasColumn reports whether name is a column of t.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.columns {
		if c == name {
			return true
		}
	}
	return false
}

// FilterCategory keeps rows whose Diet_type equals diet, ignoring case.
func (t *Table) FilterCategory(diet string) (*Table, error) {
	const op = "nutrition.filter"
	if !t.HasColumn(CategoryColumn) {
		return nil, Errorf(op, ErrParseFailure, "dataset has no %s column", CategoryColumn)
	}

	values, missing := t.texts(CategoryColumn)
	var keep []int
	for i, v := range values {
		if !missing[i] && strings.EqualFold(v, diet) {
			keep = append(keep, i)
		}
	}
	if len(keep) == 0 {
		return nil, &NotFoundError{Filter: diet}
	}

	frame := t.frame.Subset(keep)
	if frame.Err != nil {
		return nil, Wrap(op, ErrParseFailure, frame.Err)
	}
	return &Table{frame: frame, columns: t.columns, macros: t.macros, rows: len(keep)}, nil
}

// texts returns a column's cells as text plus a missing-cell mask.
func (t *Table) texts(name string) ([]string, []bool) {
	if t.rows == 0 {
		return nil, nil
	}
	col := t.frame.Col(name)
	if col.Err != nil || col.Len() != t.rows {
		missing := make([]bool, t.rows)
		for i := range missing {
			missing[i] = true
		}
		return make([]string, t.rows), missing
	}
	return col.Records(), col.IsNaN()
}

// numbers returns a column's cells as numbers, NaN where missing or
// non-numeric. An unknown column reads as all NaN.
func (t *Table) numbers(name string) []float64 {
	if t.rows == 0 {
		return nil
	}
	col := t.frame.Col(name)
	if col.Err != nil || col.Len() != t.rows {
		out := make([]float64, t.rows)
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}
	return col.Float()
}
