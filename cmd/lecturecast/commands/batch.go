package commands

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/spherical/lecturecast/cmd/lecturecast/ui"
	"github.com/spherical/lecturecast/internal/document"
	"github.com/spherical/lecturecast/internal/domain"
	"github.com/spherical/lecturecast/internal/lecture"
)

var batchCmd = &cobra.Command{
	Use:   "batch <dir>",
	Short: "Generate lectures for every .pptx and .pdf in a directory",
	Long: `batch runs the pipeline once per document, in name order. A failed document
is reported and the batch moves on to the next one.`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)
}

// batchFailure is one document that did not produce a lecture.
type batchFailure struct {
	file string
	err  error
}

func runBatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := ui.New(false, noColor, verbose)

	files, err := batchSources(args[0])
	if err != nil {
		return err
	}
	if len(files) == 0 {
		out.Warning("No .pptx or .pdf files in %s", args[0])
		return nil
	}

	a, err := loadApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	out.Section("Batch")
	out.Info("%d documents", len(files))

	bar := ui.NewProgressBar(int64(len(files)), "starting")
	start := time.Now()
	var failures []batchFailure
	var pages int

	for _, file := range files {
		if ctx.Err() != nil {
			break
		}
		bar.Describe(filepath.Base(file))

		result, _, err := a.Process(ctx, lecture.RunRequest{SourcePath: file})
		if err != nil {
			failures = append(failures, batchFailure{file: file, err: err})
		} else {
			pages += result.PageCount()
		}
		bar.Add(1)
	}
	bar.Finish()

	done := len(files) - len(failures)
	out.Success("%d of %d documents done, %d pages in %s", done, len(files), pages, ui.FormatDuration(time.Since(start)))

	if len(failures) == 0 {
		return ctx.Err()
	}

	rows := make([][]string, 0, len(failures))
	for _, f := range failures {
		rows = append(rows, []string{filepath.Base(f.file), string(domain.KindOf(f.err)), ui.Truncate(f.err.Error(), 60)})
	}
	out.Section("Failures")
	out.Table([]string{"File", "Kind", "Error"}, rows)

	return fmt.Errorf("%d of %d documents failed", len(failures), len(files))
}

// batchSources lists the supported documents directly inside dir, sorted by name.
func batchSources(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, domain.SourceNotFoundError("cannot read "+dir, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, err := document.DetectFormat(e.Name()); err == nil {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}
