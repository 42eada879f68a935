package web

import (
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/labstack/echo/v4"
)

const pageTemplate = "index.html"

//go:embed templates/*.html
var templatesFS embed.FS

type page struct {
	URL     string
	Summary string
	Error   string
}

type pageRenderer struct {
	templates *template.Template
}

func newPageRenderer() (*pageRenderer, error) {
	t, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	return &pageRenderer{templates: t}, nil
}

func (r *pageRenderer) Render(w io.Writer, name string, data any, _ echo.Context) error {
	return r.templates.ExecuteTemplate(w, name, data)
}
