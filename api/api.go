// Package api хранит OpenAPI-описание публичного API шлюза.
package api

import _ "embed"

//go:embed openapi.json
var OpenAPISpec []byte
