// Package document turns slide decks and PDFs into page-aligned text and rendered images.
package document

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spherical/lecturecast/internal/domain"
	"github.com/spherical/lecturecast/internal/observability"
)

const largeFileBytes = 100 * 1024 * 1024

// DetectFormat classifies a path by its lower-cased extension.
func DetectFormat(path string) (domain.Format, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".pdf":
		return domain.FormatPDF, nil
	case ".pptx":
		return domain.FormatSlides, nil
	default:
		if ext == "" {
			ext = "(none)"
		}
		return "", domain.UnsupportedFormatError(fmt.Sprintf("unsupported file extension %s, use .pptx or .pdf", ext), nil)
	}
}

// Validator provides input validation for source documents
type Validator struct {
	logger *observability.Logger
}

// NewValidator creates a new validator instance
func NewValidator(logger *observability.Logger) *Validator {
	if logger == nil {
		logger = observability.Nop()
	}
	return &Validator{logger: logger}
}

// ValidateSource checks that path names a readable file of a supported format.
// Existence is checked before the extension so a deleted upload reports SourceNotFound.
func (v *Validator) ValidateSource(path string) (domain.Format, error) {
	if strings.TrimSpace(path) == "" {
		return "", domain.ValidationError("file path cannot be empty", nil)
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", domain.SourceNotFoundError(fmt.Sprintf("file does not exist: %s", path), err)
		}
		return "", domain.IOError(fmt.Sprintf("cannot access file: %s", path), err)
	}

	if info.IsDir() {
		return "", domain.ValidationError(fmt.Sprintf("path is a directory, not a file: %s", path), nil)
	}

	format, err := DetectFormat(path)
	if err != nil {
		return "", err
	}

	if info.Size() > largeFileBytes {
		v.logger.Warn().
			Str("path", path).
			Int64("size_mb", info.Size()/(1024*1024)).
			Msg("source file is very large, processing may take a while")
	}

	file, err := os.Open(path)
	if err != nil {
		return "", domain.IOError(fmt.Sprintf("cannot open file: %s", path), err)
	}
	file.Close()

	return format, nil
}
