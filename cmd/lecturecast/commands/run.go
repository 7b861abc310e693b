package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/spherical/lecturecast/cmd/lecturecast/ui"
	"github.com/spherical/lecturecast/internal/domain"
	"github.com/spherical/lecturecast/internal/lecture"
)

var (
	runNamespace string
	runJSON      bool
)

var runCmd = &cobra.Command{
	Use:   "run <file>",
	Short: "Generate a narrated lecture from one .pptx or .pdf",
	Args:  cobra.ExactArgs(1),
	RunE:  runRun,
}

func init() {
	runCmd.Flags().StringVarP(&runNamespace, "namespace", "n", "", "output namespace (default: sanitized file name)")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "print the result payload as JSON")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := ui.New(runJSON, noColor, verbose)

	if err := checkNamespace(runNamespace); err != nil {
		return err
	}

	a, err := loadApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	events := make(chan domain.StreamEvent, 256)
	progress := out.NewPipelineProgress()
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		progress.Consume(events)
	}()

	start := time.Now()
	result, payload, err := a.Process(ctx, lecture.RunRequest{
		SourcePath: args[0],
		Namespace:  runNamespace,
		Events:     events,
	})
	close(events)
	wg.Wait()
	progress.Close()

	if err != nil {
		out.Error("%s", err)
		return fmt.Errorf("run failed (%s)", domain.KindOf(err))
	}

	if runJSON {
		enc := json.NewEncoder(out.Out())
		enc.SetIndent("", "  ")
		return enc.Encode(payload)
	}

	printSummary(out, a.Workspace(result.Namespace).ResultPath(), result, time.Since(start))
	return nil
}

func printSummary(out *ui.UI, resultPath string, result *domain.PipelineResult, elapsed time.Duration) {
	out.Success("Lecture ready: %d pages in %s", result.PageCount(), ui.FormatDuration(elapsed))
	out.Section("Summary")
	out.KeyValue("Run", result.RunID)
	out.KeyValue("Namespace", result.Namespace)
	out.KeyValue("Result", resultPath)
	out.Newline()

	rows := make([][]string, 0, result.PageCount())
	for i, page := range result.Pages {
		audio := result.Audio[i]
		status := ui.FormatBytes(audio.Bytes)
		if audio.Skipped {
			status = "skipped"
		}
		rows = append(rows, []string{
			strconv.Itoa(page.PageNumber),
			ui.Truncate(result.LecturePages[i].LectureText, 48),
			status,
		})
	}
	out.Table([]string{"Page", "Narration", "Audio"}, rows)
}

// runContext bounds a command that does not run the pipeline.
func runContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), time.Minute)
}

// checkNamespace rejects a namespace that would need escaping on disk, in URLs or in cache keys.
func checkNamespace(ns string) error {
	if ns == "" || lecture.ValidNamespace(ns) {
		return nil
	}
	return domain.ValidationError(fmt.Sprintf(
		"invalid namespace %q: use letters, digits, '-' or '_' (e.g. %q)", ns, lecture.SanitizeNamespace(ns)), nil)
}
