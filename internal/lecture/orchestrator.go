// Package lecture runs the extract, script and synthesize stages for one uploaded document.
package lecture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/spherical/lecturecast/internal/document"
	"github.com/spherical/lecturecast/internal/domain"
	"github.com/spherical/lecturecast/internal/narration"
	"github.com/spherical/lecturecast/internal/observability"
	"github.com/spherical/lecturecast/internal/script"
)

// ScriptGenerator expands pages into narration.
type ScriptGenerator interface {
	Expand(ctx context.Context, pages []domain.Page, progress script.ProgressFunc) ([]domain.LecturePage, error)
}

// NarrationSynthesizer turns narration into audio artifacts.
type NarrationSynthesizer interface {
	Synthesize(ctx context.Context, pages []domain.LecturePage, target narration.Target, progress narration.ProgressFunc) ([]domain.AudioArtifact, error)
}

// Config holds orchestrator settings.
type Config struct {
	WorkDir         string
	PublicDir       string
	PublicURLPrefix string
	RunTimeout      time.Duration
}

// RunRequest describes one pipeline invocation.
type RunRequest struct {
	SourcePath string
	Namespace  string // defaults to a sanitized file stem
	Filename   string // original upload name, defaults to the source base name
	RunID      string // defaults to a new UUID
	Events     chan<- domain.StreamEvent
}

// Orchestrator sequences the pipeline stages and owns every output directory of a run.
type Orchestrator struct {
	cfg         Config
	extractor   domain.PageExtractor
	generator   ScriptGenerator
	synthesizer NarrationSynthesizer
	recorder    domain.RunRecorder
	logger      *observability.Logger
}

// New creates an orchestrator. recorder may be nil.
func New(cfg Config, extractor domain.PageExtractor, generator ScriptGenerator, synthesizer NarrationSynthesizer, recorder domain.RunRecorder, logger *observability.Logger) *Orchestrator {
	if logger == nil {
		logger = observability.Nop()
	}
	return &Orchestrator{
		cfg:         cfg,
		extractor:   extractor,
		generator:   generator,
		synthesizer: synthesizer,
		recorder:    recorder,
		logger:      logger.WithComponent("orchestrator"),
	}
}

// run carries the mutable state of one invocation.
type run struct {
	o         *Orchestrator
	req       RunRequest
	sm        *StateMachine
	ws        Workspace
	logger    *observability.Logger
	pageCount int
}

// Run executes the pipeline and returns an aligned result, or the first error with its kind.
// Nothing on disk is touched until the source has been found and its format accepted.
func (o *Orchestrator) Run(ctx context.Context, req RunRequest) (*domain.PipelineResult, error) {
	if req.RunID == "" {
		req.RunID = uuid.NewString()
	}
	if req.Filename == "" {
		req.Filename = filepath.Base(req.SourcePath)
	}
	if req.Namespace == "" {
		req.Namespace = SanitizeNamespace(req.Filename)
	}

	r := &run{
		o:   o,
		req: req,
		sm:  NewStateMachine(),
		ws: Workspace{
			WorkDir:         o.cfg.WorkDir,
			PublicDir:       o.cfg.PublicDir,
			PublicURLPrefix: o.cfg.PublicURLPrefix,
			Namespace:       req.Namespace,
		},
		logger: o.logger.WithRun(req.RunID),
	}

	started := time.Now().UTC()
	r.record(ctx, nil)
	r.emit(domain.StreamEvent{Type: domain.EventStart, Payload: req.Filename})

	if _, err := os.Stat(req.SourcePath); err != nil {
		return nil, r.fail(ctx, domain.SourceNotFoundError(fmt.Sprintf("source %s not found", req.SourcePath), err))
	}
	if _, err := document.DetectFormat(req.SourcePath); err != nil {
		return nil, r.fail(ctx, err)
	}
	if !ValidNamespace(req.Namespace) {
		return nil, r.fail(ctx, domain.ValidationError(fmt.Sprintf("invalid namespace %q", req.Namespace), nil))
	}

	if o.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.RunTimeout)
		defer cancel()
	}

	if err := r.ws.Reset(); err != nil {
		return nil, r.fail(ctx, err)
	}

	result := &domain.PipelineResult{
		RunID:     req.RunID,
		Namespace: req.Namespace,
		Filename:  req.Filename,
		StartedAt: started,
	}

	// extract
	if err := r.advance(ctx, domain.StateExtracting); err != nil {
		return nil, r.fail(ctx, err)
	}
	pages, images, err := o.extractor.Extract(ctx, req.SourcePath, domain.ExtractDirs{
		ConvertDir: r.ws.ConvertDir(),
		ImageDir:   r.ws.ImageDir(),
	})
	if err != nil {
		return nil, r.fail(ctx, err)
	}
	if err := checkPages(pages, images); err != nil {
		return nil, r.fail(ctx, err)
	}
	for i := range images {
		images[i].PublicURL = r.ws.URL("images", filepath.Base(images[i].FilePath))
	}
	result.Pages, result.Images = pages, images
	r.pageCount = len(pages)

	if err := writeJSON(filepath.Join(r.ws.ParsedDir(), "parsed.json"), pages); err != nil {
		return nil, r.fail(ctx, err)
	}

	// script
	if err := r.advance(ctx, domain.StateScripting); err != nil {
		return nil, r.fail(ctx, err)
	}
	lecturePages, err := o.generator.Expand(ctx, pages, r.pageDone(domain.StateScripting))
	if err != nil {
		return nil, r.fail(ctx, err)
	}
	result.LecturePages = lecturePages

	if err := writeJSON(filepath.Join(r.ws.ScriptsDir(), "lecture_script.json"), lecturePages); err != nil {
		return nil, r.fail(ctx, err)
	}

	// synthesize
	if err := r.advance(ctx, domain.StateSynthesizing); err != nil {
		return nil, r.fail(ctx, err)
	}
	audio, err := o.synthesizer.Synthesize(ctx, lecturePages, narration.Target{
		Dir:       r.ws.AudioDir(),
		URLPrefix: r.ws.URL("audio"),
	}, r.pageDone(domain.StateSynthesizing))
	if err != nil {
		return nil, r.fail(ctx, err)
	}
	result.Audio = audio
	result.CompletedAt = time.Now().UTC()

	if err := result.Verify(); err != nil {
		return nil, r.fail(ctx, err)
	}
	if err := writeJSON(r.ws.ResultPath(), result); err != nil {
		return nil, r.fail(ctx, err)
	}

	if err := r.advance(ctx, domain.StateComplete); err != nil {
		return nil, r.fail(ctx, err)
	}
	r.emit(domain.StreamEvent{Type: domain.EventComplete, TotalPages: r.pageCount})

	r.logger.Info().
		Str("namespace", req.Namespace).
		Int("pages", r.pageCount).
		Dur("duration", time.Since(started)).
		Msg("run complete")

	return result, nil
}

func checkPages(pages []domain.Page, images []domain.PageImage) error {
	if len(pages) != len(images) {
		return domain.ConversionError(fmt.Sprintf("extractor returned %d pages and %d images", len(pages), len(images)), nil)
	}
	nums := make([]int, len(pages))
	for i, p := range pages {
		nums[i] = p.PageNumber
	}
	if err := domain.CheckSequence(nums); err != nil {
		return err
	}
	for i, img := range images {
		nums[i] = img.PageNumber
	}
	return domain.CheckSequence(nums)
}

func (r *run) advance(ctx context.Context, next domain.RunState) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := r.sm.Transition(next); err != nil {
		return err
	}
	r.logger.Info().Str("state", string(next)).Msg("run state changed")
	r.record(ctx, nil)
	r.emit(domain.StreamEvent{Type: domain.EventStateChange, TotalPages: r.pageCount})
	return nil
}

func (r *run) fail(ctx context.Context, err error) error {
	// Stage kinds survive unless the run deadline itself expired.
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		err = domain.AsTimeout(err, "run exceeded its deadline")
	}

	if !r.sm.Current().Terminal() {
		_ = r.sm.Transition(domain.StateFailed)
	}

	r.logger.Error().
		Str("error_kind", string(domain.KindOf(err))).
		Err(err).
		Msg("run failed")

	r.record(context.WithoutCancel(ctx), err)
	r.emit(domain.StreamEvent{Type: domain.EventError, Payload: err.Error()})
	return err
}

func (r *run) record(ctx context.Context, runErr error) {
	if r.o.recorder == nil {
		return
	}
	t := domain.RunTransition{
		RunID:     r.req.RunID,
		Namespace: r.req.Namespace,
		Filename:  r.req.Filename,
		State:     r.sm.Current(),
		PageCount: r.pageCount,
	}
	if runErr != nil {
		t.ErrorKind = domain.KindOf(runErr)
		t.ErrorMessage = runErr.Error()
	}
	if err := r.o.recorder.RecordTransition(ctx, t); err != nil {
		r.logger.Warn().Err(err).Str("state", string(t.State)).Msg("failed to record run transition")
	}
}

func (r *run) pageDone(state domain.RunState) func(int) {
	return func(pageNumber int) {
		r.emit(domain.StreamEvent{
			Type:       domain.EventPageComplete,
			State:      state,
			PageNumber: pageNumber,
			TotalPages: r.pageCount,
		})
	}
}

// emit delivers an event without ever blocking the run; slow consumers lose events.
func (r *run) emit(evt domain.StreamEvent) {
	if r.req.Events == nil {
		return
	}
	evt.RunID = r.req.RunID
	if evt.State == "" {
		evt.State = r.sm.Current()
	}
	evt.Timestamp = time.Now().UTC()

	select {
	case r.req.Events <- evt:
	default:
		r.logger.Debug().Str("event", string(evt.Type)).Msg("event channel full, dropping event")
	}
}
