package server

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/rs/zerolog/log"
)

//go:embed templates/*.html
var templateFiles embed.FS

// pages holds every embedded page, keyed by file name.
var pages = template.Must(template.ParseFS(templateFiles, "templates/*.html"))

// renderPage writes the named page with status. The page is executed into the response
// directly, so a failed execution can only be logged.
func renderPage(w http.ResponseWriter, status int, name string, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pages.ExecuteTemplate(w, name, data); err != nil {
		log.Err(err).Str("page", name).Msg("Failed to render page")
	}
}
