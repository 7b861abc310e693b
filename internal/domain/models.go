package domain

import (
	"fmt"
	"time"
)

// Format is a supported source document format.
type Format string

const (
	FormatPDF    Format = "pdf"
	FormatSlides Format = "pptx"
)

// Page is the extracted text of one slide or PDF page.
type Page struct {
	PageNumber int    `json:"page_number"`
	Content    string `json:"content"`
}

// PageImage represents a single rendered page
type PageImage struct {
	PageNumber int    `json:"page_number"`
	FilePath   string `json:"file_path"`
	PublicURL  string `json:"public_url,omitempty"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
}

// LecturePage is the narration generated for one Page.
type LecturePage struct {
	PageNumber  int    `json:"page_number"`
	LectureText string `json:"lecture_text"`
}

// AudioArtifact is the synthesized narration for one LecturePage.
// Skipped artifacts have no file: their narration was empty.
type AudioArtifact struct {
	PageNumber  int    `json:"page_number"`
	StoragePath string `json:"storage_path,omitempty"`
	PublicURL   string `json:"public_url,omitempty"`
	Bytes       int64  `json:"bytes"`
	Skipped     bool   `json:"skipped,omitempty"`
}

// PipelineResult aggregates the page-aligned outputs of one run.
type PipelineResult struct {
	RunID        string          `json:"run_id"`
	Namespace    string          `json:"namespace"`
	Filename     string          `json:"filename"`
	Pages        []Page          `json:"pages"`
	Images       []PageImage     `json:"images"`
	LecturePages []LecturePage   `json:"lecture_pages"`
	Audio        []AudioArtifact `json:"audio"`
	StartedAt    time.Time       `json:"started_at"`
	CompletedAt  time.Time       `json:"completed_at"`
}

// PageCount returns the number of pages in the run.
func (r *PipelineResult) PageCount() int {
	return len(r.Pages)
}

// Verify checks that all four lists have the same length and run 1..N in order.
func (r *PipelineResult) Verify() error {
	n := len(r.Pages)
	if len(r.Images) != n || len(r.LecturePages) != n || len(r.Audio) != n {
		return InternalError(fmt.Sprintf(
			"misaligned result: pages=%d images=%d lecture_pages=%d audio=%d",
			n, len(r.Images), len(r.LecturePages), len(r.Audio)), nil)
	}
	for i := 0; i < n; i++ {
		want := i + 1
		if r.Pages[i].PageNumber != want ||
			r.Images[i].PageNumber != want ||
			r.LecturePages[i].PageNumber != want ||
			r.Audio[i].PageNumber != want {
			return InternalError(fmt.Sprintf("page number mismatch at position %d", want), nil)
		}
	}
	return nil
}

// CheckSequence verifies that numbers run 1..N with no gaps or duplicates.
func CheckSequence(numbers []int) error {
	for i, n := range numbers {
		if n != i+1 {
			return InternalError(fmt.Sprintf("expected page %d at position %d, got %d", i+1, i, n), nil)
		}
	}
	return nil
}

// RunState is a pipeline run lifecycle state.
type RunState string

const (
	StateReceived     RunState = "received"
	StateExtracting   RunState = "extracting"
	StateScripting    RunState = "scripting"
	StateSynthesizing RunState = "synthesizing"
	StateComplete     RunState = "complete"
	StateFailed       RunState = "failed"
)

// Terminal reports whether no further transitions are allowed.
func (s RunState) Terminal() bool {
	return s == StateComplete || s == StateFailed
}

// EventType represents the type of stream event
type EventType string

const (
	EventStart        EventType = "start"
	EventStateChange  EventType = "state_change"
	EventPageComplete EventType = "page_complete"
	EventError        EventType = "error"
	EventComplete     EventType = "complete"
)

// StreamEvent represents an event emitted during processing
type StreamEvent struct {
	Type       EventType   `json:"type"`
	RunID      string      `json:"run_id,omitempty"`
	State      RunState    `json:"state,omitempty"`
	PageNumber int         `json:"page_number,omitempty"`
	TotalPages int         `json:"total_pages,omitempty"`
	Payload    interface{} `json:"payload,omitempty"` // status message or error text
	Timestamp  time.Time   `json:"timestamp"`
}
