// Package web renders the server-side pages and serves their static assets.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/url"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jonathan/resumind/internal/format"
	"github.com/jonathan/resumind/internal/scoring"
	"github.com/jonathan/resumind/internal/types"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Page names.
const (
	PageHome   = "home"
	PageUpload = "upload"
	PageResume = "resume"
	PageWipe   = "wipe"
	PageAuth   = "auth"
	PageError  = "error"
)

var pages = []string{PageHome, PageUpload, PageResume, PageWipe, PageAuth, PageError}

// Layout is the data shared by every page.
type Layout struct {
	Title string
	User  *types.User
}

// Authenticated reports whether a user is signed in.
func (l Layout) Authenticated() bool {
	return l.User != nil
}

// HomePage lists the user's resumes.
type HomePage struct {
	Layout
	Resumes []types.Resume
}

// UploadPage is the upload wizard. Status is the last status text of a failed run.
type UploadPage struct {
	Layout
	Status         string
	CompanyName    string
	JobTitle       string
	JobDescription string
	MaxUploadBytes int64
}

// ResumePage shows the feedback of one resume.
type ResumePage struct {
	Layout
	Resume *types.Resume
}

// WipePage lists stored files and offers to delete all app data.
type WipePage struct {
	Layout
	Files   []types.FSItem
	Message string
}

// AuthPage offers login, registration and guest access.
type AuthPage struct {
	Layout
	Next  string
	Error string
}

// ErrorPage shows a failure.
type ErrorPage struct {
	Layout
	Status  int
	Message string
}

// Renderer executes the embedded page templates.
type Renderer struct {
	pages map[string]*template.Template
}

// NewRenderer parses every page template.
func NewRenderer() (*Renderer, error) {
	r := &Renderer{pages: make(map[string]*template.Template, len(pages))}
	for _, name := range pages {
		tpl, err := template.New(name).Funcs(Funcs()).ParseFS(templateFS,
			"templates/layout.html",
			"templates/components.html",
			"templates/"+name+".html",
		)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s template: %w", name, err)
		}
		r.pages[name] = tpl
	}
	return r, nil
}

// Render writes page to w. The page is rendered to a buffer first so a failing template
// never leaves a half-written response.
func (r *Renderer) Render(w io.Writer, page string, data any) error {
	tpl, ok := r.pages[page]
	if !ok {
		return fmt.Errorf("unknown page %q", page)
	}
	var buf bytes.Buffer
	if err := tpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		return fmt.Errorf("failed to render %s: %w", page, err)
	}
	_, err := buf.WriteTo(w)
	return err
}

// Static returns the static assets rooted at their URL paths ("/icons/...", "/css/...").
func Static() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

// Funcs returns the template helpers.
func Funcs() template.FuncMap {
	return template.FuncMap{
		"badge":      scoring.BadgeFor,
		"atsLevel":   scoring.ATSLevelFor,
		"circle":     scoring.CircleFor,
		"tipIcon":    scoring.TipIconFor,
		"score":      scoring.Display,
		"formatSize": func(n int64) string { return format.FormatSize(float64(n)) },
		"ago":        ago,
		"fileURL":    FileURL,
		"fixed":      func(f float64) string { return fmt.Sprintf("%.2f", f) },
	}
}

// FileURL returns the URL serving a stored file.
func FileURL(p string) string {
	return "/files/" + (&url.URL{Path: p}).EscapedPath()
}

func ago(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return humanize.Time(t)
}
