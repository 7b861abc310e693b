package lecture

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/spherical/lecturecast/internal/domain"
)

// writeJSON writes v indented to path, replacing any previous file atomically.
func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return domain.IOError("failed to encode "+filepath.Base(path), err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return domain.IOError("failed to write "+filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return domain.IOError("failed to write "+filepath.Base(path), err)
	}
	return nil
}

// LoadResult reads a lecture.json written by a completed run and checks its alignment.
func LoadResult(path string) (*domain.PipelineResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.SourceNotFoundError("no result at "+path, err)
		}
		return nil, domain.IOError("failed to read result", err)
	}

	var result domain.PipelineResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, domain.IOError("failed to decode result", err)
	}

	if err := result.Verify(); err != nil {
		return nil, err
	}
	return &result, nil
}
