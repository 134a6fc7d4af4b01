// Package schemas embeds the JSON Schemas for the files the CLI writes.
package schemas

import _ "embed"

// BatchReport is the schema for the JSON run report
//
//go:embed batch_report.schema.json
var BatchReport []byte
