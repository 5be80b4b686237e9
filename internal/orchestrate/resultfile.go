// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package orchestrate

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/meshintel/litsearch/pkg/types"
)

// ResultFile is the on-disk representation of one search run. The
// researcher can save a search to a file and reload it later without
// re-querying the source APIs.
type ResultFile struct {
	SavedAt time.Time          `yaml:"saved_at"`
	Result  types.SearchResult `yaml:"result"`
}

// WriteResultFile saves a search result to a YAML file.
func WriteResultFile(path string, result *types.SearchResult) error {
	rf := ResultFile{
		SavedAt: time.Now().UTC(),
		Result:  *result,
	}
	data, err := yaml.Marshal(&rf)
	if err != nil {
		return fmt.Errorf("marshaling result file: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadResultFile loads a previously saved search result from disk.
func ReadResultFile(path string) (*ResultFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading result file: %w", err)
	}
	var rf ResultFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parsing result file: %w", err)
	}
	return &rf, nil
}
