package swagger

import _ "embed"

// Document is the roundwatch HTTP API description served at /openapi.yaml.
//
//go:embed openapi.yaml
var Document []byte
