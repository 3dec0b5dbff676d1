// Package scaffold provides the embedded starter files that `penmark new`
// copies into a fresh site directory.
package scaffold

import "embed"

// Templates contains all scaffold template files.
// Files use Go text/template syntax and have a .tmpl suffix; dotfiles
// are stored under plain names (dotenv, gitignore) and renamed on copy.
//
//go:embed all:templates
var Templates embed.FS
