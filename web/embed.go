// Package web embeds the browser console served at the site root.
package web

import "embed"

// Static holds index.html and app.js under "static/".
//
//go:embed static
var Static embed.FS
