package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/spherical/lecturecast/internal/domain"
	"github.com/spherical/lecturecast/internal/observability"
)

const stderrTail = 512

// Converter turns slide decks into PDFs with a headless office suite.
type Converter struct {
	binary  string
	timeout time.Duration
	logger  *observability.Logger
}

// NewConverter creates a converter that runs binary (libreoffice or soffice).
func NewConverter(binary string, timeout time.Duration, logger *observability.Logger) *Converter {
	if binary == "" {
		binary = "libreoffice"
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	if logger == nil {
		logger = observability.Nop()
	}
	return &Converter{binary: binary, timeout: timeout, logger: logger.WithComponent("converter")}
}

// ToPDF converts src into outDir and returns the path of the produced PDF.
func (c *Converter) ToPDF(parent context.Context, src, outDir string) (string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", domain.IOError("failed to create conversion directory", err)
	}

	ctx, cancel := context.WithTimeout(parent, c.timeout)
	defer cancel()

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.binary, "--headless", "--convert-to", "pdf", "--outdir", outDir, src)
	cmd.Stderr = &stderr
	cmd.WaitDelay = 5 * time.Second

	start := time.Now()
	err := cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) && parent.Err() == nil {
			return "", domain.ConversionError(fmt.Sprintf("conversion timed out after %s", c.timeout), ctxErr)
		}
		return "", domain.ConversionError("conversion cancelled", ctxErr)
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", domain.ConversionError(fmt.Sprintf("converter exited with code %d: %s", exitErr.ExitCode(), tail(stderr.String())), err)
		}
		return "", domain.ConversionError(fmt.Sprintf("failed to run converter %q", c.binary), err)
	}

	stem := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	out := filepath.Join(outDir, stem+".pdf")
	if _, err := os.Stat(out); err != nil {
		return "", domain.ConversionError(fmt.Sprintf("converter produced no output for %s: %s", filepath.Base(src), tail(stderr.String())), err)
	}

	c.logger.Info().
		Str("source", filepath.Base(src)).
		Dur("duration", time.Since(start)).
		Msg("converted slide deck to PDF")

	return out, nil
}

func tail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > stderrTail {
		s = s[len(s)-stderrTail:]
	}
	return s
}
