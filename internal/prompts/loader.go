// Package prompts holds the LLM prompt templates embedded in the binary.
// Each JSON file maps a prompt key to a text/template body; a file is parsed
// once, on first use, and every template in it must parse.
package prompts

import (
	"embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"text/template"
)

//go:embed *.json
var promptFiles embed.FS

// Set is the parsed contents of one prompt file.
type Set struct {
	file   string
	bodies map[string]string
	tmpl   *template.Template
}

var (
	sets   = make(map[string]*Set)
	setsMu sync.Mutex
)

// Load returns the parsed prompt file, reading it on first use.
func Load(filename string) (*Set, error) {
	setsMu.Lock()
	defer setsMu.Unlock()

	if set, ok := sets[filename]; ok {
		return set, nil
	}
	set, err := parseFile(filename)
	if err != nil {
		return nil, err
	}
	sets[filename] = set
	return set, nil
}

func parseFile(filename string) (*Set, error) {
	data, err := promptFiles.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt file %s: %w", filename, err)
	}

	var bodies map[string]string
	if err := json.Unmarshal(data, &bodies); err != nil {
		return nil, fmt.Errorf("failed to parse prompt file %s: %w", filename, err)
	}

	root := template.New(filename).Option("missingkey=error")
	for key, body := range bodies {
		if _, err := root.New(key).Parse(body); err != nil {
			return nil, fmt.Errorf("failed to parse prompt %s/%s: %w", filename, key, err)
		}
	}
	return &Set{file: filename, bodies: bodies, tmpl: root}, nil
}

// Text returns the raw body of key.
func (s *Set) Text(key string) (string, error) {
	body, ok := s.bodies[key]
	if !ok {
		return "", fmt.Errorf("prompt key %q not found in %s", key, s.file)
	}
	return body, nil
}

// Render executes key with data. Missing fields are an error rather than
// "<no value>".
func (s *Set) Render(key string, data any) (string, error) {
	if _, ok := s.bodies[key]; !ok {
		return "", fmt.Errorf("prompt key %q not found in %s", key, s.file)
	}
	var sb strings.Builder
	if err := s.tmpl.ExecuteTemplate(&sb, key, data); err != nil {
		return "", fmt.Errorf("failed to render prompt %s/%s: %w", s.file, key, err)
	}
	return sb.String(), nil
}

// Keys returns the prompt keys, sorted.
func (s *Set) Keys() []string {
	keys := make([]string, 0, len(s.bodies))
	for key := range s.bodies {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Get retrieves a raw prompt body by file name (e.g. "generation.json") and key.
func Get(filename, key string) (string, error) {
	set, err := Load(filename)
	if err != nil {
		return "", err
	}
	return set.Text(key)
}

// Render loads filename and renders key with data.
func Render(filename, key string, data any) (string, error) {
	set, err := Load(filename)
	if err != nil {
		return "", err
	}
	return set.Render(key, data)
}

// ClearCache forgets every loaded prompt file.
func ClearCache() {
	setsMu.Lock()
	sets = make(map[string]*Set)
	setsMu.Unlock()
}
