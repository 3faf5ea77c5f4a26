package inference

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/san-kum/hoversim/internal/dynamo"
	"gopkg.in/yaml.v3"
)

// Load reads a model artifact. The format is picked from the file
// extension: .json, or .yaml/.yml.
func Load(path string) (*Network, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &dynamo.ConfigError{Field: "learned.model", Reason: err.Error()}
	}

	var spec Spec
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		err = json.Unmarshal(data, &spec)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &spec)
	default:
		return nil, &dynamo.ConfigError{Field: "learned.model", Reason: fmt.Sprintf("unsupported artifact extension %q", ext)}
	}
	if err != nil {
		return nil, &dynamo.ConfigError{Field: "learned.model", Reason: fmt.Sprintf("malformed artifact: %v", err)}
	}
	if spec.Name == "" {
		spec.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return Build(spec)
}

// Save writes spec in the format implied by the extension of path.
func Save(path string, spec Spec) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		data, err = json.MarshalIndent(spec, "", "  ")
	default:
		data, err = yaml.Marshal(spec)
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
