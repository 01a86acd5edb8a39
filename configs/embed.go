// Package configs provides the embedded configuration template for gpsearch.
//
// The template is embedded at build time so `gpsearch config init` works in
// every distribution. Edit config.example.yaml and rebuild to change it.
package configs

import _ "embed"

// ConfigTemplate is written by `gpsearch config init`, to the user config
// path or with --project to .gpsearch.yaml in the working directory.
//
//go:embed config.example.yaml
var ConfigTemplate string
