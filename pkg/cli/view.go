package cli

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/mchmarny/creditrisk/pkg/explore"
	"github.com/mchmarny/creditrisk/pkg/store"
)

var templateFuncs = template.FuncMap{
	"num":  formatFloat,
	"when": func(t time.Time) string { return t.Local().Format(time.DateTime) },
}

func (s *server) homeViewHandler(w http.ResponseWriter, r *http.Request) {
	sum, err := s.summary()
	if err != nil {
		slog.Error("failed to summarize dataset", "error", err)
	}

	d := map[string]any{
		"version":    version,
		"commit":     commit,
		"build_date": date,
		"input":      s.explorer.Config().Input,
		"charts":     s.explorer.Config().Files(),
		"summary":    sum,
		"err":        r.URL.Query().Get("err"),
	}
	if err != nil {
		d["err"] = err.Error()
	}
	if last := s.latestRun(r); last != nil {
		d["latest"] = last
	}

	if err := s.tmpl.ExecuteTemplate(w, "home", d); err != nil {
		slog.Error("template render failed", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

// latestRun returns the most recent stored run, nil when history is off or empty.
func (s *server) latestRun(r *http.Request) *store.Run {
	if s.store == nil {
		return nil
	}
	run, err := s.store.LatestRun(r.Context())
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			slog.Error("failed to read latest run", "error", err)
		}
		return nil
	}
	return run
}

// chartHandler renders the chart saved under {name} from the loaded dataset.
func (s *server) chartHandler(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	f, err := s.explorer.Chart(s.table, name)
	if err != nil {
		if errors.Is(err, explore.ErrUnknownChart) {
			http.NotFound(w, r)
			return
		}
		slog.Error("failed to render chart", "name", name, "error", err)
		http.Error(w, "failed to render chart", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf, "png"); err != nil {
		slog.Error("failed to encode chart", "name", name, "error", err)
		http.Error(w, "failed to render chart", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", fmt.Sprint(buf.Len()))
	if _, err := buf.WriteTo(w); err != nil {
		slog.Error("failed to write chart", "name", name, "error", err)
	}
}
