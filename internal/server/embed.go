package server

import (
	"io/fs"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/seliom/hostpulse/webui"
)

// registerStaticFiles mounts the embedded dashboard on the Gin engine.
// API routes registered before this take precedence; every other path
// falls back to index.html.
func registerStaticFiles(r *gin.Engine) {
	webRoot, err := fs.Sub(webui.FS, "web")
	if err != nil {
		panic("embed: web sub-fs failed: " + err.Error())
	}
	staticFS := http.FS(webRoot)

	r.StaticFileFS("/app.js", "app.js", staticFS)
	r.StaticFileFS("/style.css", "style.css", staticFS)

	r.NoRoute(func(c *gin.Context) {
		f, err := staticFS.Open("index.html")
		if err != nil {
			c.String(http.StatusNotFound, "embedded UI missing")
			return
		}
		defer f.Close()
		stat, _ := f.Stat()
		c.DataFromReader(http.StatusOK, stat.Size(), "text/html; charset=utf-8", f, nil)
	})
}
