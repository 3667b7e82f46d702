package helpers

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// -----------------------------------------------------------------------------
// JSON document helpers. The engine consumes and persists a handful of
// external JSON documents (settings, protocol wrappers, seed books); all of
// them go through these.
// -----------------------------------------------------------------------------

// ReadJSON reads and parses a required document.
func ReadJSON(file string, out interface{}) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return NewConfigurationError(fmt.Sprintf("read %s", file), err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return NewConfigurationError(fmt.Sprintf("%s invalid JSON", file), err)
	}
	return nil
}

// ReadJSONTree parses a document into a generic tree, or nil if the file is
// missing or unparsable. Optional documents go through this.
func ReadJSONTree(file string) interface{} {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil
	}
	var tree interface{}
	if err := json.Unmarshal(data, &tree); err != nil {
		return nil
	}
	return tree
}

// Exists reports whether the path exists.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// WriteJSONPretty persists a document indented, creating parent directories.
func WriteJSONPretty(file string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		return err
	}
	return os.WriteFile(file, append(data, '\n'), 0o644)
}

// WriteText persists raw text, creating parent directories.
func WriteText(file string, text string) error {
	if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		return err
	}
	return os.WriteFile(file, []byte(text), 0o644)
}
