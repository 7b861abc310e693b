package narration

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spherical/lecturecast/internal/domain"
)

// FileName returns the audio file name for a page.
func FileName(pageNumber int) string {
	return fmt.Sprintf("slide_%d.mp3", pageNumber)
}

// FileStore persists audio files so that readers never see a partial file.
type FileStore struct{}

// Save writes data to dir/slide_<n>.mp3 through a temp file and rename, overwriting any previous file.
func (FileStore) Save(dir string, pageNumber int, data []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", domain.IOError("failed to create audio directory", err)
	}

	tmp, err := os.CreateTemp(dir, ".slide-*.part")
	if err != nil {
		return "", domain.IOError("failed to create temp audio file", err).ForPage(pageNumber)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", domain.IOError("failed to write audio", err).ForPage(pageNumber)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", domain.IOError("failed to close audio file", err).ForPage(pageNumber)
	}

	final := filepath.Join(dir, FileName(pageNumber))
	if err := os.Rename(tmpName, final); err != nil {
		os.Remove(tmpName)
		return "", domain.IOError("failed to move audio into place", err).ForPage(pageNumber)
	}

	return final, nil
}
