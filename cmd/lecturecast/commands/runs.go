package commands

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/spherical/lecturecast/cmd/lecturecast/ui"
	"github.com/spherical/lecturecast/internal/storage"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent runs from the run ledger",
	Args:  cobra.NoArgs,
	RunE:  runRuns,
}

func init() {
	runsCmd.Flags().IntVarP(&runsLimit, "limit", "l", 20, "maximum number of runs to show")
	rootCmd.AddCommand(runsCmd)
}

func runRuns(cmd *cobra.Command, args []string) error {
	ctx, cancel := runContext(cmd)
	defer cancel()

	out := ui.New(false, noColor, verbose)

	a, err := loadApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	runs, err := a.Runs.List(ctx, runsLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		out.Info("No runs recorded yet")
		return nil
	}

	out.Table([]string{"Run", "Namespace", "File", "State", "Pages", "Updated", "Error"}, runRows(runs))
	return nil
}

func runRows(runs []storage.Run) [][]string {
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, []string{
			r.ID,
			r.Namespace,
			ui.Truncate(r.Filename, 32),
			string(r.State),
			strconv.Itoa(r.PageCount),
			r.UpdatedAt.Local().Format("2006-01-02 15:04:05"),
			string(r.ErrorKind),
		})
	}
	return rows
}
