package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func alignedResult(n int) *PipelineResult {
	r := &PipelineResult{}
	for i := 1; i <= n; i++ {
		r.Pages = append(r.Pages, Page{PageNumber: i})
		r.Images = append(r.Images, PageImage{PageNumber: i})
		r.LecturePages = append(r.LecturePages, LecturePage{PageNumber: i})
		r.Audio = append(r.Audio, AudioArtifact{PageNumber: i})
	}
	return r
}

func TestPipelineResult_Verify(t *testing.T) {
	t.Run("aligned", func(t *testing.T) {
		r := alignedResult(3)
		assert.NoError(t, r.Verify())
		assert.Equal(t, 3, r.PageCount())
	})

	t.Run("empty is aligned", func(t *testing.T) {
		assert.NoError(t, (&PipelineResult{}).Verify())
	})

	t.Run("length mismatch", func(t *testing.T) {
		r := alignedResult(3)
		r.Audio = r.Audio[:2]
		err := r.Verify()
		require.Error(t, err)
		assert.True(t, IsKind(err, ErrorTypeInternal))
		assert.False(t, IsClientError(err))
	})

	t.Run("number mismatch", func(t *testing.T) {
		r := alignedResult(3)
		r.LecturePages[1].PageNumber = 3
		assert.Error(t, r.Verify())
	})
}

func TestCheckSequence(t *testing.T) {
	assert.NoError(t, CheckSequence([]int{1, 2, 3}))
	assert.NoError(t, CheckSequence(nil))
	assert.Error(t, CheckSequence([]int{1, 3}))
	assert.Error(t, CheckSequence([]int{1, 1, 2}))
	assert.Error(t, CheckSequence([]int{0, 1}))
	assert.True(t, IsKind(CheckSequence([]int{2}), ErrorTypeInternal))
}

func TestRunState_Terminal(t *testing.T) {
	assert.True(t, StateComplete.Terminal())
	assert.True(t, StateFailed.Terminal())
	assert.False(t, StateReceived.Terminal())
	assert.False(t, StateSynthesizing.Terminal())
}

func TestDomainError(t *testing.T) {
	cause := errors.New("boom")
	err := ExpansionError("generation failed", cause).ForPage(2)

	assert.Equal(t, "[expansion_failed] page 2: generation failed: boom", err.Error())
	assert.ErrorIs(t, err, cause)

	wrapped := fmt.Errorf("scripting: %w", err)
	assert.Equal(t, ErrorTypeExpansionFailed, KindOf(wrapped))
	assert.Equal(t, ErrorType(""), KindOf(cause))
}

func TestIsClientError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"unsupported format", UnsupportedFormatError("bad ext", nil), true},
		{"source not found", SourceNotFoundError("missing", nil), true},
		{"validation", ValidationError("empty path", nil), true},
		{"synthesis", SynthesisError("tts down", nil), false},
		{"timeout", TimeoutError("slow", nil), false},
		{"internal", InternalError("misaligned", nil), false},
		{"plain", errors.New("x"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsClientError(tt.err))
		})
	}
}

func TestAsTimeout(t *testing.T) {
	assert.NoError(t, AsTimeout(nil, "x"))

	plain := errors.New("other")
	assert.Same(t, plain, AsTimeout(plain, "x"))

	deadline := SynthesisError("request failed", context.DeadlineExceeded).ForPage(4)
	err := AsTimeout(deadline, "synthesis timed out")
	assert.True(t, IsKind(err, ErrorTypeTimeout))
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	var de *DomainError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, 4, de.PageNumber)
}
