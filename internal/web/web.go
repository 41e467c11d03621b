// Package web embeds the static front page served at /.
package web

import (
	"embed"
	"io/fs"
)

//go:embed dist/*
var dist embed.FS

// Dist is the embedded dist directory rooted at index.html.
func Dist() (fs.FS, error) {
	return fs.Sub(dist, "dist")
}
