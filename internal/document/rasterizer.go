package document

import (
	"context"
	"fmt"
	"image/png"
	"os"
	"path/filepath"

	"github.com/gen2brain/go-fitz"

	"github.com/spherical/lecturecast/internal/domain"
)

const baseDPI = 72.0

// Rasterizer renders PDF pages to PNG using go-fitz
type Rasterizer struct {
	scale float64
}

// NewRasterizer creates a rasterizer with a linear scale over 72 DPI.
func NewRasterizer(scale float64) *Rasterizer {
	if scale <= 0 {
		scale = 2
	}
	return &Rasterizer{scale: scale}
}

// Open opens a PDF for rendering and text extraction. The caller closes it.
func Open(pdfPath string) (*fitz.Document, error) {
	doc, err := fitz.New(pdfPath)
	if err != nil {
		return nil, domain.OpenError(fmt.Sprintf("failed to open %s", filepath.Base(pdfPath)), err)
	}
	return doc, nil
}

// Render writes page_<n>.png for every page of doc into imageDir.
func (r *Rasterizer) Render(ctx context.Context, doc *fitz.Document, imageDir string) ([]domain.PageImage, error) {
	if err := os.MkdirAll(imageDir, 0o755); err != nil {
		return nil, domain.IOError("failed to create image directory", err)
	}

	pageCount := doc.NumPage()
	images := make([]domain.PageImage, 0, pageCount)

	for pageNum := 0; pageNum < pageCount; pageNum++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		img, err := doc.ImageDPI(pageNum, baseDPI*r.scale)
		if err != nil {
			return nil, domain.ConversionError("failed to render page", err).ForPage(pageNum + 1)
		}

		outputPath := filepath.Join(imageDir, fmt.Sprintf("page_%d.png", pageNum+1))
		outputFile, err := os.Create(outputPath)
		if err != nil {
			return nil, domain.IOError("failed to create image file", err).ForPage(pageNum + 1)
		}

		err = png.Encode(outputFile, img)
		outputFile.Close()
		if err != nil {
			return nil, domain.IOError("failed to encode page as PNG", err).ForPage(pageNum + 1)
		}

		bounds := img.Bounds()
		images = append(images, domain.PageImage{
			PageNumber: pageNum + 1,
			FilePath:   outputPath,
			Width:      bounds.Dx(),
			Height:     bounds.Dy(),
		})
	}

	return images, nil
}
