package commands

import (
	"encoding/json"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/spherical/lecturecast/cmd/lecturecast/ui"
	"github.com/spherical/lecturecast/internal/config"
	"github.com/spherical/lecturecast/internal/document"
	"github.com/spherical/lecturecast/internal/domain"
	"github.com/spherical/lecturecast/internal/observability"
)

var extractOutput string

var extractCmd = &cobra.Command{
	Use:   "extract <file>",
	Short: "Extract page text and images without generating narration",
	Long: `extract runs only the first pipeline stage. It writes pages.json and one PNG per
page to the output directory and needs no API keys.`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().StringVarP(&extractOutput, "output", "o", "", "output directory (default: <input-name>-pages)")
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := ui.New(false, noColor, verbose)
	source := args[0]

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	dir := extractOutput
	if dir == "" {
		base := filepath.Base(source)
		dir = strings.TrimSuffix(base, filepath.Ext(base)) + "-pages"
	}

	logger := observability.Nop()
	if verbose {
		logger = observability.NewLogger(observability.LogConfig{Level: "debug", Format: "console", Output: os.Stderr})
	}
	extractor := document.NewExtractor(
		document.NewConverter(cfg.Extraction.ConverterBinary, cfg.Extraction.ConversionTimeout, logger),
		document.NewRasterizer(cfg.Extraction.RenderScale),
		logger,
	)

	convertDir, err := os.MkdirTemp("", "lecturecast-convert-")
	if err != nil {
		return domain.IOError("failed to create temp dir", err)
	}
	defer os.RemoveAll(convertDir)

	spin := ui.NewSpinner("Extracting " + filepath.Base(source) + "...")
	if out.Interactive() {
		spin.Start()
	}
	start := time.Now()
	pages, images, err := extractor.Extract(ctx, source, domain.ExtractDirs{
		ConvertDir: convertDir,
		ImageDir:   filepath.Join(dir, "images"),
	})
	if out.Interactive() {
		spin.Stop()
	}
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(pages, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, "pages.json"), data, 0o644); err != nil {
		return domain.IOError("failed to write pages.json", err)
	}

	out.Success("Extracted %d pages in %s", len(pages), ui.FormatDuration(time.Since(start)))
	rows := make([][]string, 0, len(pages))
	for i, p := range pages {
		text := ui.Truncate(p.Content, 48)
		if text == "" {
			text = "(blank)"
		}
		rows = append(rows, []string{
			strconv.Itoa(p.PageNumber),
			text,
			strconv.Itoa(images[i].Width) + "x" + strconv.Itoa(images[i].Height),
		})
	}
	out.Table([]string{"Page", "Text", "Image"}, rows)
	out.KeyValue("Output", dir)
	return nil
}
