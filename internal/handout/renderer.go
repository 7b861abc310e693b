// Package handout renders a finished lecture as a printable PDF, one page per slide.
package handout

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/spherical/lecturecast/internal/domain"
)

const (
	margin         = 15.0
	contentWidth   = 210.0 - 2*margin
	maxImageHeight = 297.0 - 2*margin - 60
)

// Renderer renders PipelineResults as PDF handouts.
type Renderer struct{}

// NewRenderer creates a Renderer.
func NewRenderer() *Renderer {
	return &Renderer{}
}

// Render returns a PDF with the rendered slide image and its narration on each page.
// Missing image files are skipped rather than failing the handout.
func (r *Renderer) Render(result *domain.PipelineResult) ([]byte, error) {
	if err := result.Verify(); err != nil {
		return nil, err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(true, margin)
	pdf.SetTitle(result.Filename, true)
	pdf.SetCreator("lecturecast", true)
	pdf.AliasNbPages("")
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(120, 120, 120)
		pdf.CellFormat(0, 5, fmt.Sprintf("%s  |  %d / {nb}", tr(result.Filename), pdf.PageNo()), "", 0, "C", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
	})

	for i, page := range result.Pages {
		pdf.AddPage()

		pdf.SetFont("Helvetica", "B", 14)
		pdf.CellFormat(0, 8, fmt.Sprintf("Slide %d", page.PageNumber), "", 1, "L", false, 0, "")
		pdf.Ln(2)

		if img := result.Images[i]; img.FilePath != "" {
			if _, err := os.Stat(img.FilePath); err == nil {
				placeImage(pdf, img.FilePath)
			}
		}

		narration := strings.TrimSpace(result.LecturePages[i].LectureText)
		if narration == "" {
			pdf.SetFont("Helvetica", "I", 10)
			pdf.SetTextColor(120, 120, 120)
			pdf.MultiCell(0, 5, "No narration for this slide.", "", "L", false)
			pdf.SetTextColor(0, 0, 0)
			continue
		}

		pdf.SetFont("Helvetica", "", 11)
		for _, para := range strings.Split(narration, "\n") {
			if strings.TrimSpace(para) == "" {
				pdf.Ln(2)
				continue
			}
			pdf.MultiCell(0, 5.5, tr(para), "", "L", false)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, domain.IOError("failed to render handout", err)
	}
	return buf.Bytes(), nil
}

// placeImage draws a slide at full content width, shrinking it when a portrait page
// would leave no room for the narration.
func placeImage(pdf *gofpdf.Fpdf, path string) {
	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	info := pdf.RegisterImageOptions(path, opts)
	if info == nil || info.Width() == 0 {
		return
	}

	w := contentWidth
	h := w * info.Height() / info.Width()
	if h > maxImageHeight {
		h = maxImageHeight
		w = h * info.Width() / info.Height()
	}

	x := margin + (contentWidth-w)/2
	y := pdf.GetY()
	pdf.ImageOptions(path, x, y, w, h, false, opts, 0, "")
	pdf.SetY(y + h + 4)
}
