// Package web provides the HTML frontend of the application: embedded
// templates and static assets, the page renderer, and the HTTP handlers
// for sign-in, profile display, mail send, and event creation.
package web

import (
	"embed"
	"html/template"
	"io"
	"io/fs"
	"net/http"

	"github.com/labstack/echo/v4"
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed assets/*
var assetsFS embed.FS

//go:embed email_template.html
var emailTemplateFS embed.FS

// RegisterAssets serves the embedded static files at /assets/*.
func RegisterAssets(e *echo.Echo) {
	sub, err := fs.Sub(assetsFS, "assets")
	if err != nil {
		panic(err)
	}
	e.GET("/assets/*", echo.WrapHandler(http.StripPrefix("/assets/", http.FileServer(http.FS(sub)))))
}

// EmailTemplate returns the fixed HTML body for outgoing mail.
func EmailTemplate() string {
	data, err := emailTemplateFS.ReadFile("email_template.html")
	if err != nil {
		panic(err)
	}
	return string(data)
}

// Renderer adapts the embedded templates to echo's Renderer interface.
type Renderer struct {
	templates *template.Template
}

// NewRenderer parses the embedded page templates.
func NewRenderer() *Renderer {
	return &Renderer{
		templates: template.Must(template.ParseFS(templatesFS, "templates/*.html")),
	}
}

// Render implements echo.Renderer.
func (r *Renderer) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	return r.templates.ExecuteTemplate(w, name, data)
}
