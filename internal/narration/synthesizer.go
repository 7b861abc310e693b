// Package narration synthesizes lecture narration into per-page audio files.
package narration

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/spherical/lecturecast/internal/domain"
	"github.com/spherical/lecturecast/internal/observability"
)

const chunkBuffer = 16

// Target says where audio goes on disk and under which public URL it is served.
type Target struct {
	Dir       string
	URLPrefix string // e.g. /static/<namespace>/audio
}

// ProgressFunc is called once per page after its audio is persisted or skipped.
type ProgressFunc func(pageNumber int)

// Synthesizer turns LecturePages into AudioArtifacts through a SpeechStreamer.
type Synthesizer struct {
	streamer    domain.SpeechStreamer
	store       FileStore
	concurrency int
	logger      *observability.Logger
}

// NewSynthesizer creates a synthesizer running at most concurrency requests at a time.
func NewSynthesizer(streamer domain.SpeechStreamer, concurrency int, logger *observability.Logger) *Synthesizer {
	if concurrency < 1 {
		concurrency = 1
	}
	if logger == nil {
		logger = observability.Nop()
	}
	return &Synthesizer{
		streamer:    streamer,
		concurrency: concurrency,
		logger:      logger.WithComponent("narration"),
	}
}

// Synthesize returns one AudioArtifact per lecture page, in input order.
// Pages with empty narration are marked Skipped and produce no file.
func (s *Synthesizer) Synthesize(ctx context.Context, pages []domain.LecturePage, target Target, progress ProgressFunc) ([]domain.AudioArtifact, error) {
	result := make([]domain.AudioArtifact, len(pages))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(s.concurrency)

	for i, page := range pages {
		i, page := i, page
		eg.Go(func() error {
			artifact, err := s.synthesizePage(egCtx, page, target)
			if err != nil {
				return err
			}
			result[i] = artifact
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

func (s *Synthesizer) synthesizePage(ctx context.Context, page domain.LecturePage, target Target) (domain.AudioArtifact, error) {
	if strings.TrimSpace(page.LectureText) == "" {
		s.logger.Debug().Int("page_number", page.PageNumber).Msg("empty narration, skipping synthesis")
		return domain.AudioArtifact{PageNumber: page.PageNumber, Skipped: true}, nil
	}

	start := time.Now()
	audio, err := s.drain(ctx, page.LectureText)
	if err != nil {
		err = pageError(err, page.PageNumber)
		s.logger.Error().Int("page_number", page.PageNumber).Err(err).Msg("synthesis failed")
		return domain.AudioArtifact{}, err
	}

	if len(audio) == 0 {
		return domain.AudioArtifact{}, domain.SynthesisError("synthesis returned no audio", nil).ForPage(page.PageNumber)
	}

	storagePath, err := s.store.Save(target.Dir, page.PageNumber, audio)
	if err != nil {
		return domain.AudioArtifact{}, err
	}

	s.logger.Info().
		Int("page_number", page.PageNumber).
		Int("bytes", len(audio)).
		Dur("duration", time.Since(start)).
		Msg("audio saved")

	return domain.AudioArtifact{
		PageNumber:  page.PageNumber,
		StoragePath: storagePath,
		PublicURL:   publicURL(target.URLPrefix, page.PageNumber),
		Bytes:       int64(len(audio)),
	}, nil
}

// drain collects every chunk the streamer sends into one contiguous block.
func (s *Synthesizer) drain(ctx context.Context, text string) ([]byte, error) {
	chunks := make(chan []byte, chunkBuffer)
	collected := make(chan []byte, 1)

	go func() {
		var buf bytes.Buffer
		for chunk := range chunks {
			buf.Write(chunk)
		}
		collected <- buf.Bytes()
	}()

	err := s.streamer.Stream(ctx, text, chunks)
	close(chunks)
	audio := <-collected

	if err != nil {
		return nil, err
	}
	return audio, nil
}

func publicURL(prefix string, pageNumber int) string {
	if prefix == "" {
		return ""
	}
	return strings.TrimRight(prefix, "/") + "/" + FileName(pageNumber)
}

func pageError(err error, pageNumber int) error {
	var de *domain.DomainError
	if errors.As(err, &de) {
		return domain.AsTimeout(de.ForPage(pageNumber), "speech synthesis timed out")
	}
	return domain.AsTimeout(domain.SynthesisError("speech synthesis failed", err).ForPage(pageNumber), "speech synthesis timed out")
}
