package document

import (
	"context"
	"fmt"
	"time"

	"github.com/spherical/lecturecast/internal/domain"
	"github.com/spherical/lecturecast/internal/observability"
)

// Extractor implements domain.PageExtractor for .pptx and .pdf sources.
type Extractor struct {
	validator  *Validator
	converter  *Converter
	rasterizer *Rasterizer
	logger     *observability.Logger
}

// NewExtractor wires an extractor from its parts.
func NewExtractor(converter *Converter, rasterizer *Rasterizer, logger *observability.Logger) *Extractor {
	if logger == nil {
		logger = observability.Nop()
	}
	return &Extractor{
		validator:  NewValidator(logger),
		converter:  converter,
		rasterizer: rasterizer,
		logger:     logger.WithComponent("extractor"),
	}
}

// Extract returns page texts and rendered images for sourcePath, both numbered 1..N.
func (e *Extractor) Extract(ctx context.Context, sourcePath string, dirs domain.ExtractDirs) ([]domain.Page, []domain.PageImage, error) {
	start := time.Now()

	format, err := e.validator.ValidateSource(sourcePath)
	if err != nil {
		return nil, nil, err
	}

	pdfPath := sourcePath
	var pages []domain.Page

	if format == domain.FormatSlides {
		if pages, err = SlideText(sourcePath); err != nil {
			return nil, nil, err
		}
		if pdfPath, err = e.converter.ToPDF(ctx, sourcePath, dirs.ConvertDir); err != nil {
			return nil, nil, err
		}
	}

	doc, err := Open(pdfPath)
	if err != nil {
		return nil, nil, err
	}
	defer doc.Close()

	if format == domain.FormatPDF {
		if pages, err = PDFText(doc); err != nil {
			return nil, nil, err
		}
	}

	images, err := e.rasterizer.Render(ctx, doc, dirs.ImageDir)
	if err != nil {
		return nil, nil, err
	}

	if len(pages) != len(images) {
		return nil, nil, domain.ConversionError(fmt.Sprintf(
			"page count mismatch: %d text pages, %d rendered pages", len(pages), len(images)), nil)
	}

	e.logger.Info().
		Str("format", string(format)).
		Int("pages", len(pages)).
		Dur("duration", time.Since(start)).
		Msg("extraction complete")

	return pages, images, nil
}
