package probe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/okian/dietlens/internal/adapters/http/api"
	"github.com/okian/dietlens/internal/adapters/storage"
	service "github.com/okian/dietlens/internal/app"
	"github.com/okian/dietlens/internal/domain/nutrition"
	"github.com/okian/dietlens/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func writeDataset(t *testing.T, rows int) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, service.DefaultContainer), 0o755); err != nil {
		t.Fatal(err)
	}
	diets := []string{"keto", "vegan", "paleo", "dash"}
	var b strings.Builder
	b.WriteString("Diet_type,Recipe_name,Cuisine_type,Protein(g),Carbs(g),Fat(g)\n")
	for i := range rows {
		fmt.Fprintf(&b, "%s,Recipe %d,mixed,%d.5,%d,%d\n", diets[i%len(diets)], i, 10+i%17, 50-i%23, 5+i%11)
	}
	path := filepath.Join(dir, service.DefaultContainer, service.DefaultObject)
	if err := os.WriteFile(path, []byte(b.String()), 0o600); err != nil {
		t.Fatal(err)
	}
	return dir
}

func newTestServer(dir string) *httptest.Server {
	svc := service.New(service.WithSource(storage.NewFile(storage.WithDataDir(dir)), "file"))
	mux := http.NewServeMux()
	api.NewServer(svc).Register(context.Background(), mux)
	return httptest.NewServer(mux)
}

func TestRun(t *testing.T) {
	Convey("Given a running server over a file dataset", t, func() {
		srv := newTestServer(writeDataset(t, 240))
		defer srv.Close()

		Convey("When the probe runs", func() {
			report, err := Run(context.Background(), Config{BaseURL: srv.URL + "/", Workers: 2, Verbose: true})

			Convey("Then every check passes", func() {
				So(err, ShouldBeNil)
				So(report.Failed(), ShouldBeEmpty)
				So(report.Diets, ShouldHaveLength, 4)
				So(len(report.Checks), ShouldBeGreaterThan, 20)
				So(report.RunID, ShouldStartWith, "probe-")
			})
		})
	})

	Convey("Given a server without a dataset", t, func() {
		srv := newTestServer(t.TempDir())
		defer srv.Close()

		Convey("When the probe runs", func() {
			_, err := Run(context.Background(), Config{BaseURL: srv.URL})

			Convey("Then the unfiltered request is reported", func() {
				So(errors.Is(err, ErrUnexpected), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "status 500")
			})
		})
	})

	Convey("Given a server that breaks the invariants", t, func() {
		mux := http.NewServeMux()
		mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"status":"healthy"}`))
		})
		mux.HandleFunc("/analyzenutrition", func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
			switch r.URL.Query().Get("dietType") {
			case "all":
				_, _ = w.Write([]byte(`{"success":true,"executionTime":"1ms","recordCount":2,` +
					`"distribution":{"dietTypes":["keto"],"recipeCounts":[2]},` +
					`"scatterData":[{"x":null,"y":1,"label":"a"}],"correlations":{"protein_carbs":1.5}}`))
			case "keto":
				_, _ = w.Write([]byte(`{"success":true,"executionTime":"1ms","recordCount":1,` +
					`"distribution":{"dietTypes":["keto"],"recipeCounts":[1]}}`))
			default:
				w.WriteHeader(http.StatusNotFound)
				_, _ = w.Write([]byte(`{"success":false,"error":"nope"}`))
			}
		})
		srv := httptest.NewServer(mux)
		defer srv.Close()

		Convey("When the probe runs", func() {
			report, err := Run(context.Background(), Config{BaseURL: srv.URL})

			Convey("Then the failures are listed", func() {
				So(errors.Is(err, ErrChecksFailed), ShouldBeTrue)
				names := make([]string, 0)
				for _, c := range report.Failed() {
					names = append(names, c.Name)
				}
				So(names, ShouldContain, "all: scatter points complete")
				So(names, ShouldContain, "all: correlation in range")
				So(names, ShouldContain, "all: cors header")
				So(names, ShouldContain, "keto: record count matches distribution")
				So(names, ShouldContain, "unknown diet: not found")
				So(names, ShouldContain, "preflight")
			})
		})
	})

	Convey("Given an unreachable server", t, func() {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		Convey("When the probe runs", func() {
			_, err := Run(context.Background(), Config{BaseURL: url})

			Convey("Then the transport error aborts the run", func() {
				So(err, ShouldNotBeNil)
				So(errors.Is(err, ErrChecksFailed), ShouldBeFalse)
			})
		})
	})
}

func TestCheckResponse(t *testing.T) {
	Convey("Given a response with more points than allowed", t, func() {
		r := &Response{Success: true, ExecutionTime: "3ms"}
		r.RecordCount = 5
		r.ScatterData = make([]nutrition.ScatterPoint, 3)
		for i := range r.ScatterData {
			r.ScatterData[i] = nutrition.ScatterPoint{X: 1, Y: 2, Label: "x"}
		}

		Convey("When the cap is below the sample", func() {
			checks := checkResponse("all", r, 2)

			Convey("Then only the bound check fails", func() {
				var failed []string
				for _, c := range checks {
					if !c.Passed {
						failed = append(failed, c.Name)
					}
				}
				So(failed, ShouldResemble, []string{"all: scatter bounded"})
			})
		})
	})

	Convey("Given a filtered response with mixed categories", t, func() {
		r := &Response{}
		r.Distribution.DietTypes = []string{"keto", "vegan"}

		So(checkFiltered("keto", r).Passed, ShouldBeFalse)
		r.Distribution.DietTypes = []string{"Keto"}
		So(checkFiltered("keto", r).Passed, ShouldBeTrue)
	})
}
