// Package web 内嵌的首页、404 页面和样式表
package web

import (
	"embed"
	"html/template"
	"io/fs"
)

//go:embed views/*.html
var views embed.FS

//go:embed public
var public embed.FS

// Templates index.html / 404.html
func Templates() *template.Template {
	return template.Must(template.ParseFS(views, "views/*.html"))
}

// Static 以 public 为根，如 css/style.css
func Static() fs.FS {
	sub, err := fs.Sub(public, "public")
	if err != nil {
		panic(err)
	}
	return sub
}
