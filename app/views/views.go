// Package views embeds the HTML templates.
package views

import "embed"

// Layout is the shared page skeleton; every page template defines "content".
const Layout = "templates/layout.html"

//go:embed templates
var Files embed.FS
