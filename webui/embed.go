// Package webui exposes the embedded frontend filesystem.
// It lives at the module root so go:embed can reach the sibling "web/"
// directory; internal/server imports it to serve static files.
package webui

import "embed"

// FS is the embedded web directory tree containing the polling dashboard.
//
//go:embed web
var FS embed.FS
