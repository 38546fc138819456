// ABOUTME: Template loading and rendering for the dashboard UI.
// ABOUTME: Embeds HTML templates and provides page and partial render helpers.

package admin

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	cerrors "github.com/cockroachdb/errors"

	"github.com/2389/xylen/internal/resource"
)

//go:embed templates/*.html templates/partials/*.html
var templateFS embed.FS

var (
	layoutTmpl   *template.Template
	pageTmpls    map[string]*template.Template
	partialTmpls *template.Template
)

// partialPaths defines the templates used for htmx partial rendering
var partialPaths = []string{
	"templates/partials/table_view.html",
}

// pageDefinitions maps page names to their template files
func getPageDefinitions() map[string]string {
	return map[string]string{
		"landing":  "templates/landing.html",
		"signin":   "templates/signin.html",
		"signup":   "templates/signup.html",
		"tables":   "templates/tables.html",
		"activity": "templates/activity.html",
	}
}

var funcs = template.FuncMap{
	"title":    resource.Humanize,
	"upper":    strings.ToUpper,
	"ago":      ago,
	"duration": func(ms int) string { return fmt.Sprintf("%dms", ms) },
}

func parsePartialTemplates() *template.Template {
	return template.Must(template.New("partials").Funcs(funcs).ParseFS(templateFS, partialPaths...))
}

// parsePageTemplates creates a map of page templates, each with layout and partials
func parsePageTemplates() map[string]*template.Template {
	templates := make(map[string]*template.Template)
	for name, path := range getPageDefinitions() {
		tmpl := template.Must(layoutTmpl.Clone())
		tmpl = template.Must(tmpl.ParseFS(templateFS, path))
		tmpl = template.Must(tmpl.ParseFS(templateFS, partialPaths...))
		templates[name] = tmpl
	}
	return templates
}

func init() {
	layoutTmpl = template.Must(template.New("layout.html").Funcs(funcs).ParseFS(templateFS, "templates/layout.html"))
	partialTmpls = parsePartialTemplates()
	pageTmpls = parsePageTemplates()
}

func renderPage(w io.Writer, page string, data any) error {
	tmpl, ok := pageTmpls[page]
	if !ok {
		return cerrors.Newf("unknown page %q", page)
	}
	return tmpl.ExecuteTemplate(w, "layout", data)
}

func renderPartial(w io.Writer, name string, data any) error {
	return partialTmpls.ExecuteTemplate(w, name, data)
}

// ago formats a timestamp relative to now for the activity page.
func ago(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	d := time.Since(t).Round(time.Second)
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return t.Format("2006-01-02 15:04")
	}
}
