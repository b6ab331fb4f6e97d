package internal

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"

	"golang.org/x/text/message"
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed static
var staticFS embed.FS

var pageTemplates = map[Route]string{
	RouteSearch:   "templates/search.html",
	RouteTimeline: "templates/timeline.html",
	RoutePopular:  "templates/popular.html",
	RouteDetail:   "templates/detail.html",
}

// views holds one parsed template set per route.
type views struct {
	templates map[Route]*template.Template
}

// viewData is the root value every page template is executed with.
type viewData struct {
	Lang     string
	MainPage bool
	Page     any
}

func newViews() (*views, error) {
	v := &views{templates: make(map[Route]*template.Template, len(pageTemplates))}
	for route, file := range pageTemplates {
		// t is bound per request in render, this placeholder only satisfies the parser.
		t, err := template.New("layout").
			Funcs(template.FuncMap{"t": func(key string) string { return key }}).
			ParseFS(templatesFS, "templates/layout.html", file)
		if err != nil {
			return nil, fmt.Errorf("failed to template.ParseFS %s: %w", file, err)
		}
		v.templates[route] = t
	}
	return v, nil
}

// render executes the route's page with the printer's translations.
func (v *views) render(route Route, printer *message.Printer, lang string, page any) ([]byte, error) {
	base, ok := v.templates[route]
	if !ok {
		return nil, fmt.Errorf("no template for route %s", route)
	}

	t, err := base.Clone()
	if err != nil {
		return nil, fmt.Errorf("failed to template.Template.Clone: %w", err)
	}
	t.Funcs(template.FuncMap{"t": func(key string) string { return printer.Sprintf(key) }})

	buf := new(bytes.Buffer)
	err = t.ExecuteTemplate(buf, "layout", viewData{
		Lang:     lang,
		MainPage: route == RouteSearch,
		Page:     page,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to template.Template.ExecuteTemplate: %w", err)
	}

	return buf.Bytes(), nil
}

func staticFiles() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(fmt.Sprintf("failed to fs.Sub: %v", err))
	}
	return sub
}
