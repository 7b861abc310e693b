// Package script expands extracted page text into per-page lecture narration.
package script

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/spherical/lecturecast/internal/domain"
	"github.com/spherical/lecturecast/internal/observability"
)

// ProgressFunc is called once per page after its narration is ready.
type ProgressFunc func(pageNumber int)

// Generator turns Pages into LecturePages through a TextExpander.
type Generator struct {
	expander    domain.TextExpander
	concurrency int
	logger      *observability.Logger
}

// NewGenerator creates a generator running at most concurrency expansions at a time.
func NewGenerator(expander domain.TextExpander, concurrency int, logger *observability.Logger) *Generator {
	if concurrency < 1 {
		concurrency = 1
	}
	if logger == nil {
		logger = observability.Nop()
	}
	return &Generator{
		expander:    expander,
		concurrency: concurrency,
		logger:      logger.WithComponent("script"),
	}
}

// Expand returns one LecturePage per input page, in input order.
// Blank pages get empty narration without calling the expander.
// The first failing page fails the whole call.
func (g *Generator) Expand(ctx context.Context, pages []domain.Page, progress ProgressFunc) ([]domain.LecturePage, error) {
	result := make([]domain.LecturePage, len(pages))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.concurrency)

	for i, page := range pages {
		i, page := i, page
		eg.Go(func() error {
			text, err := g.expandPage(egCtx, page)
			if err != nil {
				return err
			}
			result[i] = domain.LecturePage{PageNumber: page.PageNumber, LectureText: text}
			if progress != nil {
				progress(page.PageNumber)
			}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	return result, nil
}

func (g *Generator) expandPage(ctx context.Context, page domain.Page) (string, error) {
	if strings.TrimSpace(page.Content) == "" {
		g.logger.Debug().Int("page_number", page.PageNumber).Msg("blank page, skipping expansion")
		return "", nil
	}

	start := time.Now()
	text, err := g.expander.Complete(ctx, BuildPrompt(page.Content))
	if err != nil {
		err = pageError(err, page.PageNumber)
		g.logger.Error().Int("page_number", page.PageNumber).Err(err).Msg("expansion failed")
		return "", err
	}

	g.logger.Info().
		Int("page_number", page.PageNumber).
		Int("chars", len(text)).
		Dur("duration", time.Since(start)).
		Msg("page narrated")

	return text, nil
}

func pageError(err error, pageNumber int) error {
	var de *domain.DomainError
	if errors.As(err, &de) {
		return domain.AsTimeout(de.ForPage(pageNumber), "text expansion timed out")
	}
	return domain.AsTimeout(domain.ExpansionError("text expansion failed", err).ForPage(pageNumber), "text expansion timed out")
}
