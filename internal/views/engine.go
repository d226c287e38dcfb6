// Package views holds the embedded page templates, the stylesheet and the
// template helpers. Pages are named by their path under templates/ without
// the extension ("auth/login"); layouts place the page with {{embed}}.
package views

import (
	"embed"
	"io/fs"
	"net/http"
	"time"

	"github.com/gofiber/template/html/v2"
)

//go:embed templates
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// New returns the page engine over the embedded templates. Dates are shown
// in loc.
func New(loc *time.Location) *html.Engine {
	return NewFS(mustSub(templateFS, "templates"), loc)
}

// NewFS returns a page engine over fsys.
func NewFS(fsys fs.FS, loc *time.Location) *html.Engine {
	engine := html.NewFileSystem(http.FS(fsys), ".html")
	engine.AddFuncMap(Funcs(loc))
	return engine
}

// Static returns the embedded stylesheet tree.
func Static() fs.FS {
	return mustSub(staticFS, "static")
}

func mustSub(fsys fs.FS, dir string) fs.FS {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		panic(err)
	}
	return sub
}
