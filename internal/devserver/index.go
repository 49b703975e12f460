package devserver

import (
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

var indexTmpl = template.Must(template.New("index").Parse(`<!doctype html>
<html>
<head><meta charset="utf-8"><title>botchat dev server</title></head>
<body>
<h1>Bots</h1>
<div id="bots">
{{- range .}}
  <div class="bot" botID="{{.ID}}">
    {{- if .Image}}<img src="{{.Image}}" alt="">{{end -}}
    <span class="name">{{.Name}}</span>
  </div>
{{- else}}
  <p>No bots yet.</p>
{{- end}}
</div>
</body>
</html>
`))

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTmpl.Execute(w, s.Bots()); err != nil {
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

// handlePortrait serves a generated placeholder for a portrait path.
func (s *Server) handlePortrait(w http.ResponseWriter, r *http.Request) {
	file := chi.URLParam(r, "file")
	id := strings.TrimSuffix(file, ".svg")
	if id == file || id == "" {
		http.NotFound(w, r)
		return
	}
	hue := 0
	for _, c := range id {
		hue = (hue*31 + int(c)) % 360
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	fmt.Fprintf(w, `<svg xmlns="http://www.w3.org/2000/svg" width="64" height="64">`+
		`<rect width="64" height="64" fill="hsl(%d,60%%,60%%)"/>`+
		`<text x="32" y="40" font-size="24" text-anchor="middle">%s</text></svg>`,
		hue, template.HTMLEscapeString(id))
}
