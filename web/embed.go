// Package web embeds the HTML templates and static assets served by the
// web server.
package web

import "embed"

// TemplatesFS holds templates/layout.html, templates/partials and
// templates/pages.
//
//go:embed templates
var TemplatesFS embed.FS

// StaticFS holds the css and js served under /static/.
//
//go:embed static
var StaticFS embed.FS
