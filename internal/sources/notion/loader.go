package notion

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Loader reads the optional YAML property schema.
type Loader struct {
	filePath string
}

// NewLoader creates a schema loader. An empty path means "use defaults".
func NewLoader(filePath string) *Loader {
	return &Loader{
		filePath: filePath,
	}
}

// Path returns the file the loader reads.
func (l *Loader) Path() string {
	return l.filePath
}

// Load reads and parses the schema file, filling unset properties with defaults.
func (l *Loader) Load() (Schema, error) {
	if l.filePath == "" {
		return DefaultSchema(), nil
	}

	data, err := os.ReadFile(l.filePath)
	if err != nil {
		return Schema{}, fmt.Errorf("failed to read schema file: %w", err)
	}

	return parseSchema(data)
}

func parseSchema(data []byte) (Schema, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var schema Schema
	if err := dec.Decode(&schema); err != nil && !errors.Is(err, io.EOF) {
		return Schema{}, fmt.Errorf("failed to parse schema yaml: %w", err)
	}

	schema = schema.WithDefaults()
	if err := schema.Validate(); err != nil {
		return Schema{}, fmt.Errorf("invalid schema: %w", err)
	}
	return schema, nil
}
