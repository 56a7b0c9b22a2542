package dashboard

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/exchangelabs/permutest/internal/models"
	"github.com/exchangelabs/permutest/internal/reporting"
)

// markdown renders report markdown; the reports use GFM tables.
var markdown = goldmark.New(goldmark.WithExtensions(extension.Table))

// resultEntry is one saved outcome file, as listed on the index page and in
// the JSON API.
type resultEntry struct {
	Name     string  `json:"name"`
	File     string  `json:"file"`
	Study    string  `json:"study"`
	PValue   float64 `json:"p_value"`
	Evidence string  `json:"evidence"`
}

var indexTemplate = template.Must(template.New("index").Parse(`<!doctype html>
<html><head><title>permutest results</title></head><body>
<h1>permutest results</h1>
{{if not .}}<p>No result files found.</p>{{end}}
<ul>
{{range .}}<li><a href="/results/{{.Name}}">{{.Study}}</a> — p={{printf "%.6f" .PValue}} — {{.Evidence}}</li>
{{end}}</ul>
</body></html>`))

var reportTemplate = template.Must(template.New("report").Parse(`<!doctype html>
<html><head><title>{{.Title}}</title></head><body>
{{.Body}}
<p><a href="/">back to index</a></p>
</body></html>`))

// registerRoutes sets up the index, per-result, and API routes.
func registerRoutes(mux *http.ServeMux, cfg Config) {
	mux.HandleFunc("GET /api/health", handleHealth)
	mux.HandleFunc("GET /api/results", func(w http.ResponseWriter, r *http.Request) {
		handleAPIResults(w, r, cfg.ResultsDir)
	})
	mux.HandleFunc("GET /results/{name}", func(w http.ResponseWriter, r *http.Request) {
		handleResult(w, r, cfg.ResultsDir)
	})
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		handleIndex(w, r, cfg.ResultsDir)
	})
}

// handleHealth returns a simple health check response.
func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"}) //nolint:errcheck
}

func handleIndex(w http.ResponseWriter, _ *http.Request, resultsDir string) {
	entries, err := listResults(resultsDir)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	indexTemplate.Execute(w, entries) //nolint:errcheck
}

func handleAPIResults(w http.ResponseWriter, _ *http.Request, resultsDir string) {
	entries, err := listResults(resultsDir)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entries) //nolint:errcheck
}

// handleResult renders one saved outcome's markdown report through goldmark.
func handleResult(w http.ResponseWriter, r *http.Request, resultsDir string) {
	name := r.PathValue("name")
	if strings.ContainsAny(name, `/\`) || !strings.HasSuffix(name, ".json") {
		http.NotFound(w, r)
		return
	}

	outcome, err := models.LoadOutcome(filepath.Join(resultsDir, name))
	if err != nil {
		http.NotFound(w, r)
		return
	}

	var buf bytes.Buffer
	if err := markdown.Convert([]byte(reporting.FormatMarkdown(outcome)), &buf); err != nil {
		http.Error(w, fmt.Sprintf("rendering report: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	reportTemplate.Execute(w, struct { //nolint:errcheck
		Title string
		Body  template.HTML
	}{
		Title: outcome.Study,
		Body:  template.HTML(buf.String()), //nolint:gosec // goldmark output from our own report
	})
}

// listResults scans the results directory for outcome JSON files.
func listResults(dir string) ([]resultEntry, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading results directory: %w", err)
	}

	var entries []resultEntry
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".json") {
			continue
		}
		outcome, err := models.LoadOutcome(filepath.Join(dir, f.Name()))
		if err != nil {
			// Unparseable files are skipped, not fatal: the results dir may
			// hold unrelated JSON.
			continue
		}
		entries = append(entries, resultEntry{
			Name:     f.Name(),
			File:     filepath.Join(dir, f.Name()),
			Study:    outcome.Study,
			PValue:   outcome.PValue,
			Evidence: outcome.Evidence,
		})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}
