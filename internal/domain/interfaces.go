package domain

import "context"

// TextExpander turns a prompt into generated text (the generative-text capability).
type TextExpander interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// SpeechStreamer converts text to speech, delivering the audio as one or more byte chunks.
// Implementations must not close chunks; the caller owns it.
type SpeechStreamer interface {
	Stream(ctx context.Context, text string, chunks chan<- []byte) error
}

// PageExtractor turns a source document into aligned pages and rendered images.
type PageExtractor interface {
	Extract(ctx context.Context, sourcePath string, dirs ExtractDirs) ([]Page, []PageImage, error)
}

// ExtractDirs tells the extractor where intermediate and rendered files go.
type ExtractDirs struct {
	ConvertDir string // intermediate PDFs produced from slide decks
	ImageDir   string // rendered page rasters
}

// RunRecorder persists run lifecycle transitions.
type RunRecorder interface {
	RecordTransition(ctx context.Context, t RunTransition) error
}

// RunTransition describes a single state change of a run.
type RunTransition struct {
	RunID        string
	Namespace    string
	Filename     string
	State        RunState
	PageCount    int
	ErrorKind    ErrorType
	ErrorMessage string
}
