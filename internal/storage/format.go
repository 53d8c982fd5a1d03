package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Veraticus/txmatch/internal/common"
)

// Format is the encoding of a document on disk.
type Format string

// Supported document formats.
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the document format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %s", common.ErrUnsupportedFormat, path)
	}
}

func decode(data []byte, format Format, out any) error {
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		return dec.Decode(out)
	case FormatYAML:
		return yaml.Unmarshal(data, out)
	default:
		return fmt.Errorf("%w: %s", common.ErrUnsupportedFormat, format)
	}
}

func encode(format Format, v any) ([]byte, error) {
	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	case FormatYAML:
		return yaml.Marshal(v)
	default:
		return nil, fmt.Errorf("%w: %s", common.ErrUnsupportedFormat, format)
	}
}

// readDocument returns the file contents, or nil when the file does not exist
// or holds only whitespace.
func readDocument(path string) ([]byte, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from configuration
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	return data, nil
}

// writeDocument replaces path atomically by renaming a sibling temp file.
func writeDocument(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

// identifier accepts account numbers written as strings or bare numbers.
type identifier string

func (i *identifier) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*i = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*i = identifier(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("account number must be a string or number: %w", err)
	}
	*i = identifier(n.String())
	return nil
}

func (i *identifier) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: account number must be a scalar", node.Line)
	}
	if node.Tag == "!!null" {
		*i = ""
		return nil
	}
	*i = identifier(strings.TrimSpace(node.Value))
	return nil
}
