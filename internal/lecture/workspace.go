package lecture

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spherical/lecturecast/internal/domain"
)

var unsafeNamespaceChars = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// SanitizeNamespace derives a filesystem and URL safe namespace from a file name.
func SanitizeNamespace(name string) string {
	stem := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	ns := strings.Trim(unsafeNamespaceChars.ReplaceAllString(stem, "-"), "-")
	if ns == "" {
		ns = "lecture"
	}
	return strings.ToLower(ns)
}

// ValidNamespace reports whether ns is usable as a directory name, URL segment and cache key
// as-is: letters, digits, '-' and '_' only.
func ValidNamespace(ns string) bool {
	return ns != "" && !unsafeNamespaceChars.MatchString(ns)
}

// Workspace lays out the directories of one namespace.
//
//	<work>/<ns>/{parsed,scripts,converted}   cleared at the start of every run
//	<public>/<ns>/{images,audio}             overwritten per page, never cleared
type Workspace struct {
	WorkDir         string
	PublicDir       string
	PublicURLPrefix string
	Namespace       string
}

func (w Workspace) workRoot() string   { return filepath.Join(w.WorkDir, w.Namespace) }
func (w Workspace) publicRoot() string { return filepath.Join(w.PublicDir, w.Namespace) }

// ParsedDir holds the extraction snapshot.
func (w Workspace) ParsedDir() string { return filepath.Join(w.workRoot(), "parsed") }

// ScriptsDir holds the narration snapshot.
func (w Workspace) ScriptsDir() string { return filepath.Join(w.workRoot(), "scripts") }

// ConvertDir holds PDFs converted from slide decks.
func (w Workspace) ConvertDir() string { return filepath.Join(w.workRoot(), "converted") }

// ImageDir holds rendered pages.
func (w Workspace) ImageDir() string { return filepath.Join(w.publicRoot(), "images") }

// AudioDir holds narration audio.
func (w Workspace) AudioDir() string { return filepath.Join(w.publicRoot(), "audio") }

// ResultPath is where the finished PipelineResult is written.
func (w Workspace) ResultPath() string { return filepath.Join(w.publicRoot(), "lecture.json") }

// URL returns the public URL of a file under the namespace's public directory.
func (w Workspace) URL(parts ...string) string {
	prefix := strings.TrimRight(w.PublicURLPrefix, "/")
	return prefix + "/" + strings.Join(append([]string{w.Namespace}, parts...), "/")
}

// Reset clears the per-run working directories and makes sure every directory exists.
func (w Workspace) Reset() error {
	if !ValidNamespace(w.Namespace) {
		return domain.ValidationError(fmt.Sprintf("invalid namespace %q", w.Namespace), nil)
	}

	for _, dir := range []string{w.ParsedDir(), w.ScriptsDir(), w.ConvertDir()} {
		if err := os.RemoveAll(dir); err != nil {
			return domain.IOError(fmt.Sprintf("failed to clear %s", dir), err)
		}
	}

	for _, dir := range []string{w.ParsedDir(), w.ScriptsDir(), w.ConvertDir(), w.ImageDir(), w.AudioDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return domain.IOError(fmt.Sprintf("failed to create %s", dir), err)
		}
	}

	return nil
}
