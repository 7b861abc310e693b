package commands

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/spherical/lecturecast/cmd/lecturecast/ui"
	"github.com/spherical/lecturecast/internal/domain"
)

var handoutOutput string

var handoutCmd = &cobra.Command{
	Use:   "handout <namespace>",
	Short: "Render the latest lecture of a namespace as a PDF handout",
	Args:  cobra.ExactArgs(1),
	RunE:  runHandout,
}

func init() {
	handoutCmd.Flags().StringVarP(&handoutOutput, "output", "o", "", "output file (default: <namespace>-handout.pdf)")
	rootCmd.AddCommand(handoutCmd)
}

func runHandout(cmd *cobra.Command, args []string) error {
	ctx, cancel := runContext(cmd)
	defer cancel()

	out := ui.New(false, noColor, verbose)
	namespace := args[0]
	if namespace == "" {
		return domain.ValidationError("namespace is required", nil)
	}
	if err := checkNamespace(namespace); err != nil {
		return err
	}

	a, err := loadApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.LoadResult(namespace)
	if err != nil {
		return err
	}

	data, err := a.Handouts.Render(result)
	if err != nil {
		return err
	}

	path := handoutOutput
	if path == "" {
		path = namespace + "-handout.pdf"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return domain.IOError("failed to create "+dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return domain.IOError("failed to write handout", err)
	}

	out.Success("Handout for %s (%d pages) written to %s", result.Filename, result.PageCount(), path)
	return nil
}
