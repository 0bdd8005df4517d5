package output

import (
	"encoding/json"
	"io"

	"gopkg.in/yaml.v3"
)

// FormatterFunc adapts a function to Formatter.
type FormatterFunc func(w io.Writer, data any) error

func (f FormatterFunc) Format(w io.Writer, data any) error { return f(w, data) }

// encodeJSON writes data as two-space indented JSON.
func encodeJSON(w io.Writer, data any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// encodeYAML writes data using its yaml tags.
func encodeYAML(w io.Writer, data any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(data); err != nil {
		return err
	}
	return enc.Close()
}
