package web

import "embed"

// Templates embeds HTML templates.
//
//go:embed all:templates
var Templates embed.FS

// Static embeds static assets.
//
//go:embed all:static
var Static embed.FS
