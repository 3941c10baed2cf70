package nutrition_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	gojson "github.com/goccy/go-json"
	"github.com/okian/dietlens/internal/domain/nutrition"
	. "github.com/smartystreets/goconvey/convey"
)

const sampleDataset = `Diet_type,Recipe_name,Cuisine_type,Protein(g),Carbs(g),Fat(g)
keto,Bacon Eggs,american,20,5,30
keto,Salmon Bowl,japanese,30,3,20
vegan,Lentil Stew,indian,10,40,4
`

func mustParse(doc string) *nutrition.Table {
	table, err := nutrition.ParseCSV(strings.NewReader(doc))
	if err != nil {
		panic(err)
	}
	return table
}

func numbers(ns []nutrition.Number) []float64 {
	out := make([]float64, len(ns))
	for i, n := range ns {
		out[i] = float64(n)
	}
	return out
}

func TestAnalyzer_Analyze(t *testing.T) {
	Convey("Given an analyzer and a small dataset", t, func() {
		ctx := context.Background()
		analyzer := nutrition.NewAnalyzer(nutrition.WithSeed(42))
		table := mustParse(sampleDataset)

		Convey("When analyzing every diet", func() {
			res, err := analyzer.Analyze(ctx, table, "all")

			Convey("Then the record count is the full dataset", func() {
				So(err, ShouldBeNil)
				So(res.RecordCount, ShouldEqual, 3)
				So(res.Filter, ShouldEqual, "all")
			})

			Convey("And means are grouped per diet in ascending order", func() {
				So(res.Macronutrients.DietTypes, ShouldResemble, []string{"keto", "vegan"})
				So(numbers(res.Macronutrients.Protein), ShouldResemble, []float64{25, 10})
				So(numbers(res.Macronutrients.Carbs), ShouldResemble, []float64{4, 40})
				So(numbers(res.Macronutrients.Fat), ShouldResemble, []float64{25, 4})
			})

			Convey("And the distribution is ordered by count", func() {
				So(res.Distribution.DietTypes, ShouldResemble, []string{"keto", "vegan"})
				So(res.Distribution.RecipeCounts, ShouldResemble, []int{2, 1})
			})

			Convey("And every row appears in the scatter sample", func() {
				So(len(res.ScatterData), ShouldEqual, 3)
				labels := map[string]bool{}
				for _, p := range res.ScatterData {
					labels[p.Label] = true
				}
				So(labels, ShouldResemble, map[string]bool{"Bacon Eggs": true, "Salmon Bowl": true, "Lentil Stew": true})
			})

			Convey("And the correlation lies in [-1, 1]", func() {
				r, ok := res.Correlations[nutrition.ProteinCarbsKey]
				So(ok, ShouldBeTrue)
				So(float64(r), ShouldBeBetweenOrEqual, -1, 1)
			})

			Convey("And available columns follow the header", func() {
				So(res.AvailableColumns, ShouldResemble, []string{"Diet_type", "Recipe_name", "Cuisine_type", "Protein(g)", "Carbs(g)", "Fat(g)"})
			})
		})

		Convey("When filtering by keto", func() {
			res, err := analyzer.Analyze(ctx, table, "keto")

			Convey("Then only keto rows are summarized", func() {
				So(err, ShouldBeNil)
				So(res.RecordCount, ShouldEqual, 2)
				So(res.Macronutrients.DietTypes, ShouldResemble, []string{"keto"})
				So(numbers(res.Macronutrients.Protein), ShouldResemble, []float64{25})
				So(numbers(res.Macronutrients.Carbs), ShouldResemble, []float64{4})
				So(res.Distribution.DietTypes, ShouldResemble, []string{"keto"})
				So(res.Distribution.RecipeCounts, ShouldResemble, []int{2})
			})

			Convey("And the keto pair is perfectly anti-correlated", func() {
				So(float64(res.Correlations[nutrition.ProteinCarbsKey]), ShouldAlmostEqual, -1, 1e-9)
			})
		})

		Convey("When filtering with a different case", func() {
			res, err := analyzer.Analyze(ctx, table, "VEGAN")

			Convey("Then the filter is echoed as received", func() {
				So(err, ShouldBeNil)
				So(res.RecordCount, ShouldEqual, 1)
				So(res.Filter, ShouldEqual, "VEGAN")
			})

			Convey("And a single pair has no defined correlation", func() {
				So(res.Correlations[nutrition.ProteinCarbsKey].IsNaN(), ShouldBeTrue)
			})
		})

		Convey("When filtering by an unknown diet", func() {
			res, err := analyzer.Analyze(ctx, table, "paleo")

			Convey("Then it reports not found", func() {
				So(res, ShouldBeNil)
				So(nutrition.KindOf(err), ShouldEqual, nutrition.KindNotFound)
				So(err.Error(), ShouldContainSubstring, "paleo")
			})
		})

		Convey("When the context is already cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := analyzer.Analyze(cctx, table, "all")

			Convey("Then the analysis is abandoned", func() {
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
			})
		})
	})
}

func TestAnalyzer_Edges(t *testing.T) {
	Convey("Given edge-case datasets", t, func() {
		ctx := context.Background()
		analyzer := nutrition.NewAnalyzer(nutrition.WithSeed(7))

		Convey("When the dataset has no macro-like columns", func() {
			table := mustParse("Diet_type,Recipe_name\nketo,Egg\nvegan,Tofu\n")
			res, err := analyzer.Analyze(ctx, table, "all")

			Convey("Then macro sequences are empty and no correlation is reported", func() {
				So(err, ShouldBeNil)
				So(res.Macronutrients.DietTypes, ShouldResemble, []string{"keto", "vegan"})
				So(res.Macronutrients.Protein, ShouldBeEmpty)
				So(res.Macronutrients.Carbs, ShouldBeEmpty)
				So(res.Macronutrients.Fat, ShouldBeEmpty)
				So(res.ScatterData, ShouldBeEmpty)
				So(res.Correlations, ShouldBeEmpty)
			})
		})

		Convey("When only the protein column is present", func() {
			table := mustParse("Diet_type,Protein(g),carbs\nketo,20,5\n")
			res, err := analyzer.Analyze(ctx, table, "all")

			Convey("Then fallback does not fill in carbs", func() {
				So(err, ShouldBeNil)
				So(numbers(res.Macronutrients.Protein), ShouldResemble, []float64{20})
				So(res.Macronutrients.Carbs, ShouldBeEmpty)
				So(res.ScatterData, ShouldBeEmpty)
				So(res.Correlations, ShouldBeEmpty)
			})
		})

		Convey("When macro columns are found by fallback", func() {
			table := mustParse("Diet_type,protein_grams,carbs_grams,fat_grams\nketo,20,5,30\nketo,30,3,20\n")
			res, err := analyzer.Analyze(ctx, table, "all")

			Convey("Then they are summarized under canonical names", func() {
				So(err, ShouldBeNil)
				So(numbers(res.Macronutrients.Protein), ShouldResemble, []float64{25})
				So(numbers(res.Macronutrients.Fat), ShouldResemble, []float64{25})
				So(res.AvailableColumns, ShouldContain, "Protein(g)")
				So(res.AvailableColumns, ShouldContain, "protein_grams")
			})
		})

		Convey("When some macro cells are missing", func() {
			doc := "Diet_type,Recipe_name,Protein(g),Carbs(g)\nketo,A,20,\nketo,,30,3\nketo,C,,4\nketo,D,40,1\n"
			res, err := analyzer.Analyze(ctx, mustParse(doc), "all")

			Convey("Then means skip them and the scatter excludes them", func() {
				So(err, ShouldBeNil)
				So(numbers(res.Macronutrients.Protein), ShouldResemble, []float64{30})
				So(numbers(res.Macronutrients.Carbs), ShouldResemble, []float64{2.67})
				So(len(res.ScatterData), ShouldEqual, 2)
				for _, p := range res.ScatterData {
					So(p.X.IsNaN(), ShouldBeFalse)
					So(p.Y.IsNaN(), ShouldBeFalse)
				}
			})

			Convey("And a missing recipe name is labelled Unknown", func() {
				labels := []string{}
				for _, p := range res.ScatterData {
					labels = append(labels, p.Label)
				}
				So(labels, ShouldContain, nutrition.UnknownLabel)
				So(labels, ShouldContain, "D")
			})
		})

		Convey("When there is no recipe name column", func() {
			res, err := analyzer.Analyze(ctx, mustParse("Diet_type,Protein(g),Carbs(g)\nketo,1,2\n"), "all")

			Convey("Then every point is labelled Unknown", func() {
				So(err, ShouldBeNil)
				So(res.ScatterData, ShouldHaveLength, 1)
				So(res.ScatterData[0].Label, ShouldEqual, nutrition.UnknownLabel)
			})
		})

		Convey("When protein has zero variance", func() {
			res, err := analyzer.Analyze(ctx, mustParse("Diet_type,Protein(g),Carbs(g)\nketo,10,1\nketo,10,2\nketo,10,3\n"), "all")

			Convey("Then the correlation is not a number", func() {
				So(err, ShouldBeNil)
				So(res.Correlations[nutrition.ProteinCarbsKey].IsNaN(), ShouldBeTrue)
			})
		})

		Convey("When the dataset is larger than the sample limit", func() {
			var b strings.Builder
			b.WriteString("Diet_type,Recipe_name,Protein(g),Carbs(g)\n")
			for i := 0; i < 250; i++ {
				fmt.Fprintf(&b, "keto,r%d,%d,%d\n", i, i, 250-i)
			}
			table := mustParse(b.String())

			res, err := analyzer.Analyze(ctx, table, "all")

			Convey("Then the scatter is capped at 100 distinct rows", func() {
				So(err, ShouldBeNil)
				So(res.RecordCount, ShouldEqual, 250)
				So(res.ScatterData, ShouldHaveLength, nutrition.DefaultSampleLimit)
				seen := map[string]bool{}
				for _, p := range res.ScatterData {
					So(seen[p.Label], ShouldBeFalse)
					seen[p.Label] = true
				}
			})

			Convey("And the correlation uses every row", func() {
				So(float64(res.Correlations[nutrition.ProteinCarbsKey]), ShouldAlmostEqual, -1, 1e-9)
			})

			Convey("And a smaller configured limit is honoured", func() {
				small := nutrition.NewAnalyzer(nutrition.WithSampleLimit(10))
				res, err := small.Analyze(ctx, table, "all")
				So(err, ShouldBeNil)
				So(res.ScatterData, ShouldHaveLength, 10)
			})
		})

		Convey("When an empty dataset is analyzed without a filter", func() {
			_, err := analyzer.Analyze(ctx, mustParse("Diet_type,Protein(g)\n"), "all")

			Convey("Then it reports not found for all", func() {
				So(nutrition.KindOf(err), ShouldEqual, nutrition.KindNotFound)
				So(err.Error(), ShouldEqual, "No data found for diet type: all")
			})
		})

		Convey("When the category column is missing", func() {
			_, err := analyzer.Analyze(ctx, mustParse("Recipe_name,Protein(g)\nEgg,3\n"), "all")

			Convey("Then grouping fails as a parse failure", func() {
				So(nutrition.KindOf(err), ShouldEqual, nutrition.KindParseFailure)
			})
		})

		Convey("When rows have no category", func() {
			res, err := analyzer.Analyze(ctx, mustParse("Diet_type,Protein(g)\nketo,10\n,20\nketo,30\npaleo,5\n"), "all")

			Convey("Then they count toward records but not groups", func() {
				So(err, ShouldBeNil)
				So(res.RecordCount, ShouldEqual, 4)
				So(res.Distribution.DietTypes, ShouldResemble, []string{"keto", "paleo"})
				So(res.Distribution.RecipeCounts, ShouldResemble, []int{2, 1})
			})
		})
	})
}

func TestAnalyzer_Rounding(t *testing.T) {
	Convey("Given group means that land exactly on a half", t, func() {
		doc := "Diet_type,Protein(g),Carbs(g),Fat(g)\nketo,2.125,0.135,1.005\nketo,2.125,0.135,1.005\nvegan,2.135,1,1\n"
		res, err := nutrition.NewAnalyzer().Analyze(context.Background(), mustParse(doc), "all")

		Convey("Then ties round to the even digit", func() {
			So(err, ShouldBeNil)
			So(numbers(res.Macronutrients.Protein)[0], ShouldEqual, 2.12)
		})
	})
}

func TestAnalyzer_RepeatedColumns(t *testing.T) {
	Convey("Given a dataset whose header repeats a macro column", t, func() {
		doc := "Diet_type,Protein(g),Protein(g),Carbs(g)\nketo,1,2,3\nketo,4,5,7\n"
		res, err := nutrition.NewAnalyzer().Analyze(context.Background(), mustParse(doc), "all")

		Convey("Then the first occurrence feeds the analysis", func() {
			So(err, ShouldBeNil)
			So(numbers(res.Macronutrients.Protein), ShouldResemble, []float64{2.5})
			So(numbers(res.Macronutrients.Carbs), ShouldResemble, []float64{5})
			So(res.ScatterData, ShouldHaveLength, 2)
			So(res.AvailableColumns, ShouldContain, "Protein(g).1")
		})
	})

	Convey("Given a dataset whose header repeats the category column", t, func() {
		doc := "Diet_type,Diet_type,Protein(g)\nketo,vegan,20\nketo,vegan,30\n"
		res, err := nutrition.NewAnalyzer().Analyze(context.Background(), mustParse(doc), "keto")

		Convey("Then filtering uses the first occurrence", func() {
			So(err, ShouldBeNil)
			So(res.RecordCount, ShouldEqual, 2)
			So(res.Distribution.DietTypes, ShouldResemble, []string{"keto"})
		})
	})
}

func TestNumber_JSON(t *testing.T) {
	Convey("Given numbers destined for JSON", t, func() {
		Convey("When encoding NaN, infinity and finite values", func() {
			b, err := gojson.Marshal([]nutrition.Number{
				nutrition.Number(math.NaN()),
				nutrition.Number(math.Inf(1)),
				nutrition.Number(2.5),
			})

			Convey("Then undefined values become null", func() {
				So(err, ShouldBeNil)
				So(string(b), ShouldEqual, "[null,null,2.5]")
			})
		})

		Convey("When decoding null", func() {
			var n nutrition.Number
			err := gojson.Unmarshal([]byte("null"), &n)

			Convey("Then it becomes NaN", func() {
				So(err, ShouldBeNil)
				So(n.IsNaN(), ShouldBeTrue)
			})
		})
	})
}
