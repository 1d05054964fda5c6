// Package view resolves logical view names to rendered HTML.
package view

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"strconv"

	"gopkg.in/guregu/null.v3"

	"github.com/vyrodovalexey/itemservice/internal/model"
)

// View names.
const (
	Items    = "items"
	Item     = "item"
	AddForm  = "addForm"
	EditForm = "editForm"
	Error    = "error"
)

//go:embed templates/*.html
var templateFS embed.FS

// Renderer renders the named view with the given data.
type Renderer interface {
	Render(w io.Writer, name string, data any) error
}

// ItemsPage is the data for the Items view.
type ItemsPage struct {
	Items []model.Item
}

// ItemPage is the data for the Item view.
type ItemPage struct {
	Item  model.Item
	Saved bool
}

// FormPage is the data for the AddForm and EditForm views.
// Submitted holds the raw form values of a rejected submission.
type FormPage struct {
	Item      model.Item
	Action    string
	Errors    map[string]string
	Submitted map[string]string
}

// Input returns the value shown in the named field: the raw submission when
// the field was rejected, otherwise current.
func (p FormPage) Input(field, current string) string {
	if _, rejected := p.Errors[field]; rejected {
		if raw, ok := p.Submitted[field]; ok {
			return raw
		}
	}
	return current
}

// ErrorPage is the data for the Error view.
type ErrorPage struct {
	Status  int
	Title   string
	Message string
}

// TemplateRenderer renders views from the embedded html/template files.
type TemplateRenderer struct {
	templates map[string]*template.Template
}

// NewTemplateRenderer parses every view once.
func NewTemplateRenderer() (*TemplateRenderer, error) {
	base, err := template.New("layout").
		Funcs(template.FuncMap{"optional": optional}).
		ParseFS(templateFS, "templates/layout.html")
	if err != nil {
		return nil, fmt.Errorf("parsing layout: %w", err)
	}

	r := &TemplateRenderer{templates: make(map[string]*template.Template)}
	for _, name := range []string{Items, Item, AddForm, EditForm, Error} {
		t, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("cloning layout for %s: %w", name, err)
		}
		if _, err := t.ParseFS(templateFS, "templates/"+name+".html"); err != nil {
			return nil, fmt.Errorf("parsing view %s: %w", name, err)
		}
		r.templates[name] = t
	}

	return r, nil
}

// Render executes the named view inside the shared layout.
func (r *TemplateRenderer) Render(w io.Writer, name string, data any) error {
	t, ok := r.templates[name]
	if !ok {
		return fmt.Errorf("unknown view %q", name)
	}

	if err := t.ExecuteTemplate(w, "layout", data); err != nil {
		return fmt.Errorf("rendering view %s: %w", name, err)
	}

	return nil
}

// optional formats a nullable integer, leaving unset values blank.
func optional(n null.Int) string {
	if !n.Valid {
		return ""
	}
	return strconv.FormatInt(n.Int64, 10)
}
