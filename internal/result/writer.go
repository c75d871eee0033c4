// Package result serializes the token result back to the invoking host.
package result

import (
	"encoding/json"
	"fmt"
	"os"

	"sigs.k8s.io/yaml"
)

// Output formats accepted by the writer
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatRaw  = "raw"
)

// TokenResult is the single success value handed back to the host.
// The token is a secret; callers must keep it out of logs.
type TokenResult struct {
	Token string `json:"token"`
}

// WriterOptions configures the writer
type WriterOptions struct {
	OutputFile string
	Format     string // json (default), yaml or raw
}

// Writer writes the token result to the configured output
type Writer struct {
	opts WriterOptions
}

// NewWriter creates a new writer
func NewWriter(opts WriterOptions) *Writer {
	if opts.Format == "" {
		opts.Format = FormatJSON
	}
	return &Writer{opts: opts}
}

// Write renders the result in the configured format and writes it to the
// output file, or stdout when no file is set. Files are created 0600 since
// they hold a credential.
func (w *Writer) Write(res TokenResult) error {
	data, err := w.marshal(res)
	if err != nil {
		return err
	}

	if w.opts.OutputFile != "" {
		if err := os.WriteFile(w.opts.OutputFile, data, 0600); err != nil {
			return fmt.Errorf("failed to write %s: %w", w.opts.OutputFile, err)
		}
		return nil
	}

	_, err = os.Stdout.Write(data)
	return err
}

func (w *Writer) marshal(res TokenResult) ([]byte, error) {
	switch w.opts.Format {
	case FormatJSON:
		data, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal result: %w", err)
		}
		return append(data, '\n'), nil
	case FormatYAML:
		data, err := yaml.Marshal(res)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal result: %w", err)
		}
		return data, nil
	case FormatRaw:
		return []byte(res.Token + "\n"), nil
	default:
		return nil, fmt.Errorf("unknown output format %q", w.opts.Format)
	}
}
