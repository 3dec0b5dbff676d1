package penmark

import "embed"

// EmbeddedAssets contains the static assets the engine ships with:
// the default stylesheet and the client-side search script.
//
//go:embed embedded/*
var EmbeddedAssets embed.FS
