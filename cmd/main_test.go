package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	gojson "github.com/goccy/go-json"
	"github.com/shirou/gopsutil/v3/process"
	"github.com/smartystreets/goconvey/convey"

	app "github.com/okian/dietlens/internal/app"
	"github.com/okian/dietlens/internal/config"
	"github.com/okian/dietlens/internal/domain/nutrition"
)

const sample = `Diet_type,Recipe_name,Protein(g),Carbs(g),Fat(g)
keto,Bacon Eggs,20,5,30
keto,Salmon Bowl,30,3,20
vegan,Lentil Stew,10,40,4
`

func TestRootCommand(t *testing.T) {
	convey.Convey("Given the root command", t, func() {
		root := newRootCmd()

		convey.Convey("Then serve and analyze are registered", func() {
			names := []string{}
			for _, c := range root.Commands() {
				names = append(names, c.Name())
			}
			convey.So(names, convey.ShouldContain, "serve")
			convey.So(names, convey.ShouldContain, "analyze")
		})
	})
}

func TestAnalyzeCommand(t *testing.T) {
	convey.Convey("Given a local dataset", t, func() {
		ctx := context.Background()
		path := filepath.Join(t.TempDir(), "diets.csv")
		convey.So(os.WriteFile(path, []byte(sample), 0o600), convey.ShouldBeNil)

		convey.Convey("When analyzing it for keto", func() {
			var out bytes.Buffer
			err := runAnalyze(ctx, strings.NewReader(""), &out, analyzeFlags{file: path, diet: "keto", seed: 1})

			convey.Convey("Then the response envelope is printed", func() {
				convey.So(err, convey.ShouldBeNil)
				body := map[string]any{}
				convey.So(gojson.Unmarshal(out.Bytes(), &body), convey.ShouldBeNil)
				convey.So(body["success"], convey.ShouldEqual, true)
				convey.So(body["recordCount"], convey.ShouldEqual, float64(2))
				convey.So(body["executionTime"], convey.ShouldEndWith, "ms")
			})
		})

		convey.Convey("When reading from stdin", func() {
			var out bytes.Buffer
			err := runAnalyze(ctx, strings.NewReader(sample), &out, analyzeFlags{file: stdinFile, diet: "all"})

			convey.Convey("Then every row is analyzed", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out.String(), convey.ShouldContainSubstring, `"recordCount":3`)
			})
		})

		convey.Convey("When the diet is unknown", func() {
			var out bytes.Buffer
			err := runAnalyze(ctx, strings.NewReader(""), &out, analyzeFlags{file: path, diet: "paleo", indent: true})

			convey.Convey("Then the error body is printed and returned", func() {
				convey.So(nutrition.KindOf(err), convey.ShouldEqual, nutrition.KindNotFound)
				convey.So(out.String(), convey.ShouldContainSubstring, "No data found for diet type: paleo")
			})
		})
	})
}

func TestHandler(t *testing.T) {
	convey.Convey("Given the full route table", t, func() {
		ctx := context.Background()
		cfg := config.New(ctx)
		svc := newService(cfg, nil)
		h := newHandler(ctx, svc)

		for _, route := range []string{"/health", "/metrics", "/openapi.yaml", "/api-docs", "/", "/assets/dashboard.js"} {
			req := httptest.NewRequest(http.MethodGet, route, http.NoBody)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			convey.SoMsg(route, w.Code, convey.ShouldEqual, http.StatusOK)
		}

		convey.Convey("When analysis runs without a source", func() {
			req := httptest.NewRequest(http.MethodGet, "/analyzenutrition", http.NoBody)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			convey.Convey("Then it is a configuration failure", func() {
				convey.So(w.Code, convey.ShouldEqual, http.StatusInternalServerError)
				convey.So(w.Body.String(), convey.ShouldContainSubstring, `"code":"configuration"`)
			})
		})

		convey.Convey("And the service reads the default location", func() {
			convey.So(svc.Location(), convey.ShouldResemble, nutrition.Location{Container: app.DefaultContainer, Object: app.DefaultObject})
		})
	})
}

func TestUpdateSystemMetrics(t *testing.T) {
	convey.Convey("Given the system metrics updater", t, func() {
		convey.So(func() { updateSystemMetrics(context.Background(), nil) }, convey.ShouldNotPanic)

		proc, err := process.NewProcess(int32(os.Getpid()))
		convey.So(err, convey.ShouldBeNil)
		convey.So(func() { updateSystemMetrics(context.Background(), proc) }, convey.ShouldNotPanic)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		convey.So(func() { startSystemMetricsUpdater(ctx) }, convey.ShouldNotPanic)
	})
}
