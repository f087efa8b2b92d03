// Package openapi embeds the API contract.
package openapi

import "embed"

// FS holds the OpenAPI document served at /api/openapi.yaml.
//
//go:embed openapi.yaml
var FS embed.FS
