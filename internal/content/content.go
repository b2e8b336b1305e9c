// Package content normalizes the lesson content representations stored over
// time (plain text, versioned step lists, legacy block lists) into plain text
// suitable as generation input.
package content

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Content is one of PlainText, StepContent or BlockContent.
type Content interface {
	isContent()
}

// PlainText is lesson content stored as a bare string.
type PlainText string

// StepContent is the versioned step list format (version 2).
type StepContent struct {
	Version int    `json:"version"`
	Steps   []Step `json:"steps"`
}

// Step is one step of a StepContent lesson.
type Step struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// BlockContent is the legacy block list format.
type BlockContent struct {
	Blocks []Block `json:"blocks"`
}

// Block is one block of a BlockContent lesson. Only "text" blocks carry
// extractable content.
type Block struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

func (PlainText) isContent()    {}
func (StepContent) isContent()  {}
func (BlockContent) isContent() {}

// stepsVersion is the only versioned format recognized.
const stepsVersion = 2

const paragraphSep = "\n\n"

// Decode interprets raw lesson content. It returns nil for null, empty or
// unrecognized content.
func Decode(raw json.RawMessage) Content {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil
	}

	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil
		}
		return PlainText(s)
	case '{':
		return decodeObject(raw)
	default:
		return nil
	}
}

// decodeObject probes the object keys first so a malformed element in one
// list does not hide a well-formed alternative.
func decodeObject(raw json.RawMessage) Content {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil
	}

	if steps, ok := probe["steps"]; ok && isArray(steps) {
		// Compared as a number so 2.0 matches 2.
		var version float64
		if v, ok := probe["version"]; ok {
			_ = json.Unmarshal(v, &version)
		}
		if version == stepsVersion {
			return StepContent{Version: stepsVersion, Steps: decodeSteps(steps)}
		}
	}

	if blocks, ok := probe["blocks"]; ok && isArray(blocks) {
		return BlockContent{Blocks: decodeBlocks(blocks)}
	}

	return nil
}

func decodeSteps(raw json.RawMessage) []Step {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	steps := make([]Step, 0, len(items))
	for _, item := range items {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(item, &fields); err != nil {
			steps = append(steps, Step{})
			continue
		}
		steps = append(steps, Step{
			Title:   stringField(fields, "title"),
			Content: stringField(fields, "content"),
		})
	}
	return steps
}

func decodeBlocks(raw json.RawMessage) []Block {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	blocks := make([]Block, 0, len(items))
	for _, item := range items {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(item, &fields); err != nil {
			continue
		}
		blocks = append(blocks, Block{
			Type:    stringField(fields, "type"),
			Content: stringField(fields, "content"),
		})
	}
	return blocks
}

// stringField returns a string-valued field, or "" when absent or not a string.
func stringField(fields map[string]json.RawMessage, key string) string {
	raw, ok := fields[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

func isArray(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '['
}

// ExtractText flattens content into plain text. Unknown or nil content yields "".
func ExtractText(c Content) string {
	switch v := c.(type) {
	case PlainText:
		return string(v)
	case StepContent:
		parts := make([]string, 0, len(v.Steps))
		for _, s := range v.Steps {
			parts = append(parts, s.Title+"\n"+s.Content)
		}
		return strings.Join(parts, paragraphSep)
	case BlockContent:
		var parts []string
		for _, b := range v.Blocks {
			if b.Type == "text" {
				parts = append(parts, b.Content)
			}
		}
		return strings.Join(parts, paragraphSep)
	default:
		return ""
	}
}

// ExtractRaw decodes raw lesson content and flattens it to plain text.
func ExtractRaw(raw json.RawMessage) string {
	return ExtractText(Decode(raw))
}
