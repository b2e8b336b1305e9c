// Package schemas holds the JSON Schema documents for structured data that
// crosses a trust boundary, embedded at compile time.
package schemas

import "embed"

// FS contains every *.schema.json file in this directory.
//
//go:embed *.schema.json
var FS embed.FS

// GeneratedTasks is the file name of the generator response schema.
const GeneratedTasks = "generated_tasks.schema.json"
