// Package template renders operation results for the command line, either in
// a structured format or through a user supplied text/template file.
package template

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"text/template"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/stackvity/fsaccess/internal/fileref"
	"github.com/stackvity/fsaccess/internal/filesystem"
)

// Output formats understood by Render.
const (
	FormatText = "text"
	FormatYAML = "yaml"
	FormatTOML = "toml"
	FormatJSON = "json"
)

// Formats lists every valid format name.
var Formats = []string{FormatText, FormatYAML, FormatTOML, FormatJSON}

// Record describes one file in a result.
type Record struct {
	Path         string    `json:"path" yaml:"path" toml:"path"`
	Name         string    `json:"name" yaml:"name" toml:"name"`
	Type         string    `json:"type" yaml:"type" toml:"type"`
	Size         int64     `json:"size" yaml:"size" toml:"size"`
	LastModified time.Time `json:"lastModified,omitzero" yaml:"lastModified,omitempty" toml:"lastModified,omitempty"`
	HasHandle    bool      `json:"hasHandle" yaml:"hasHandle" toml:"hasHandle"`
	Content      string    `json:"-" yaml:"-" toml:"-"`
}

// Result is the value handed to templates and structured encoders.
type Result struct {
	Operation string   `json:"operation" yaml:"operation" toml:"operation"`
	Backend   string   `json:"backend" yaml:"backend" toml:"backend"`
	Directory string   `json:"directory,omitempty" yaml:"directory,omitempty" toml:"directory,omitempty"`
	Files     []Record `json:"files" yaml:"files" toml:"files"`
}

// Records converts file references into records. Content is only filled in
// for templates, which may print it.
func Records(files []*fileref.File) []Record {
	out := make([]Record, 0, len(files))
	for _, f := range files {
		out = append(out, Record{
			Path:         f.Path(),
			Name:         f.Name,
			Type:         f.Type(),
			Size:         f.Size(),
			LastModified: f.LastModified,
			HasHandle:    f.Handle != nil,
			Content:      string(f.Bytes()),
		})
	}
	return out
}

// Executor handles parsing and executing a custom template file.
type Executor struct {
	template *template.Template
	filePath string
}

// NewExecutor parses the template at templateFilePath. It returns nil, nil
// when the path is empty so callers fall back to a built-in format.
func NewExecutor(templateFilePath string, fs filesystem.FileSystem) (*Executor, error) {
	if templateFilePath == "" {
		return nil, nil
	}

	templateContent, err := fs.ReadFile(templateFilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read template file '%s': %w", templateFilePath, err)
	}

	tmpl, err := template.New(templateFilePath).Parse(string(templateContent))
	if err != nil {
		return nil, fmt.Errorf("failed to parse template file '%s': %w", templateFilePath, err)
	}

	return &Executor{template: tmpl, filePath: templateFilePath}, nil
}

// Execute applies the template to data.
func (e *Executor) Execute(data any) (string, error) {
	var rendered bytes.Buffer
	if err := e.template.Execute(&rendered, data); err != nil {
		return "", fmt.Errorf("failed to execute template '%s': %w", e.filePath, err)
	}
	return rendered.String(), nil
}

// Render writes res to w. A non-nil executor wins over format.
func Render(w io.Writer, format string, exec *Executor, res Result) error {
	if exec != nil {
		out, err := exec.Execute(res)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, out)
		return err
	}

	switch format {
	case FormatText, "":
		return renderText(w, res)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(res); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		return enc.Close()
	case FormatTOML:
		if err := toml.NewEncoder(w).Encode(res); err != nil {
			return fmt.Errorf("failed to encode toml: %w", err)
		}
		return nil
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return fmt.Errorf("failed to encode json: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unknown output format '%s'", format)
	}
}

var textTemplate = template.Must(template.New("text").Parse(
	`{{if .Directory}}{{.Directory}}/
{{end}}{{range .Files}}{{.Path}}	{{if .Type}}{{.Type}}{{else}}-{{end}}	{{.Size}}
{{end}}`))

func renderText(w io.Writer, res Result) error {
	if err := textTemplate.Execute(w, res); err != nil {
		return fmt.Errorf("failed to render text: %w", err)
	}
	return nil
}
