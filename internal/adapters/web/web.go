package web

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"path"
	"sync"

	"github.com/antinea2359/app-tarot/internal/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

// shell lists the assets served at the site root, with their content types.
var shell = map[string]string{
	"app.js":        "text/javascript; charset=utf-8",
	"sw.js":         "text/javascript; charset=utf-8",
	"manifest.json": "application/manifest+json",
}

// Renderer draws the page and the card fragment from a session View.
type Renderer struct {
	once sync.Once
	tmpl *template.Template
	err  error
}

func NewRenderer() *Renderer {
	return &Renderer{}
}

func (r *Renderer) init() {
	r.tmpl, r.err = template.New("").Funcs(template.FuncMap{
		"drawLabel": drawLabel,
	}).ParseFS(templateFS, "templates/*.html")
	if r.err != nil {
		r.err = fmt.Errorf("parse templates: %w", r.err)
	}
}

// Page renders the full document.
func (r *Renderer) Page(w io.Writer, v domain.View) error {
	return r.execute(w, "page", v)
}

// Card renders only the swappable card fragment.
func (r *Renderer) Card(w io.Writer, v domain.View) error {
	return r.execute(w, "card", v)
}

func (r *Renderer) execute(w io.Writer, name string, v domain.View) error {
	r.once.Do(r.init)
	if r.err != nil {
		return r.err
	}
	return r.tmpl.ExecuteTemplate(w, name, pageData{View: v, ImageURL: template.URL(v.Image)})
}

// Asset returns an embedded shell file and its content type.
func Asset(name string) ([]byte, string, bool) {
	ct, ok := shell[name]
	if !ok {
		return nil, "", false
	}
	raw, err := staticFS.ReadFile(path.Join("static", name))
	if err != nil {
		return nil, "", false
	}
	return raw, ct, true
}

type pageData struct {
	domain.View
	// ImageURL is the data URI marked safe for the img src attribute.
	ImageURL template.URL
}

func drawLabel(v domain.View) string {
	switch {
	case v.IsLoading:
		return "🔮 Divination en cours..."
	case v.Mode == domain.ModeIdle:
		return "Tirer une Carte"
	default:
		return "Nouveau Tirage"
	}
}
