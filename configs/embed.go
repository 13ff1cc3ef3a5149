// Package configs embeds the configuration template written by
// `docrag config init`.
//
// Precedence when loading, lowest first (see internal/config Load):
//  1. Built-in defaults
//  2. User config (~/.config/docrag/config.yaml)
//  3. Project config (.docrag.yaml in the working directory)
//  4. .env in the working directory
//  5. DOCRAG_* environment variables
package configs

import _ "embed"

// UserConfigTemplate is the commented user configuration.
//
//go:embed config.example.yaml
var UserConfigTemplate string
