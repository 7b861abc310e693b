package narration

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical/lecturecast/internal/domain"
)

// chunkedStreamer sends the text's bytes split into parts chunks.
type chunkedStreamer struct {
	parts int
	calls int32
	fail  string
}

func (s *chunkedStreamer) Stream(ctx context.Context, text string, chunks chan<- []byte) error {
	atomic.AddInt32(&s.calls, 1)
	data := []byte(strings.Repeat(text, 100))
	size := len(data) / s.parts
	for i := 0; i < s.parts; i++ {
		end := (i + 1) * size
		if i == s.parts-1 {
			end = len(data)
		}
		chunks <- data[i*size : end]
		if s.fail != "" && strings.Contains(text, s.fail) {
			return domain.SynthesisError("stream reset", nil)
		}
	}
	return nil
}

func TestFileStore_Save(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "audio")

	path, err := FileStore{}.Save(dir, 3, []byte("first"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "slide_3.mp3"), path)

	// overwrite on re-run
	_, err = FileStore{}.Save(dir, 3, []byte("second"))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestSynthesize_DrainsAllChunks(t *testing.T) {
	streamer := &chunkedStreamer{parts: 7}
	s := NewSynthesizer(streamer, 2, nil)
	dir := filepath.Join(t.TempDir(), "audio")

	pages := []domain.LecturePage{
		{PageNumber: 1, LectureText: "Welcome to thermodynamics."},
		{PageNumber: 2, LectureText: ""},
		{PageNumber: 3, LectureText: "Entropy always increases."},
	}

	artifacts, err := s.Synthesize(context.Background(), pages, Target{Dir: dir, URLPrefix: "/static/ns-1/audio"}, nil)
	require.NoError(t, err)
	require.Len(t, artifacts, 3)

	for _, i := range []int{0, 2} {
		a := artifacts[i]
		want := strings.Repeat(pages[i].LectureText, 100)
		data, err := os.ReadFile(a.StoragePath)
		require.NoError(t, err)
		assert.Equal(t, want, string(data))
		assert.Equal(t, int64(len(want)), a.Bytes)
		assert.False(t, a.Skipped)
	}

	assert.Equal(t, "/static/ns-1/audio/slide_1.mp3", artifacts[0].PublicURL)
	assert.Equal(t, domain.AudioArtifact{PageNumber: 2, Skipped: true}, artifacts[1])
	assert.NoFileExists(t, filepath.Join(dir, "slide_2.mp3"))
	assert.Equal(t, int32(2), atomic.LoadInt32(&streamer.calls))
}

func TestSynthesize_FailureLeavesNoPartialFile(t *testing.T) {
	s := NewSynthesizer(&chunkedStreamer{parts: 4, fail: "bad"}, 1, nil)
	dir := filepath.Join(t.TempDir(), "audio")

	_, err := s.Synthesize(context.Background(), []domain.LecturePage{
		{PageNumber: 1, LectureText: "good"},
		{PageNumber: 2, LectureText: "bad page"},
	}, Target{Dir: dir}, nil)

	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.ErrorTypeSynthesisFailed))
	var de *domain.DomainError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, 2, de.PageNumber)
	assert.NoFileExists(t, filepath.Join(dir, "slide_2.mp3"))
}

type silentStreamer struct{}

func (silentStreamer) Stream(context.Context, string, chan<- []byte) error { return nil }

func TestSynthesize_NoAudioIsError(t *testing.T) {
	_, err := NewSynthesizer(silentStreamer{}, 1, nil).Synthesize(context.Background(),
		[]domain.LecturePage{{PageNumber: 1, LectureText: "hello"}}, Target{Dir: t.TempDir()}, nil)
	assert.True(t, domain.IsKind(err, domain.ErrorTypeSynthesisFailed))
}

type plainErrStreamer struct{}

func (plainErrStreamer) Stream(context.Context, string, chan<- []byte) error {
	return context.DeadlineExceeded
}

func TestSynthesize_DeadlineIsTimeout(t *testing.T) {
	_, err := NewSynthesizer(plainErrStreamer{}, 1, nil).Synthesize(context.Background(),
		[]domain.LecturePage{{PageNumber: 4, LectureText: "hello"}}, Target{Dir: t.TempDir()}, nil)
	assert.True(t, domain.IsKind(err, domain.ErrorTypeTimeout))
}

func TestPublicURL(t *testing.T) {
	assert.Equal(t, "", publicURL("", 1))
	assert.Equal(t, "/static/x/audio/slide_2.mp3", publicURL("/static/x/audio/", 2))
	assert.Equal(t, "https://cdn.example.com/x/audio/slide_9.mp3", publicURL("https://cdn.example.com/x/audio", 9))
}

func TestSynthesize_Progress(t *testing.T) {
	var seen bytes.Buffer
	_, err := NewSynthesizer(&chunkedStreamer{parts: 1}, 1, nil).Synthesize(context.Background(),
		[]domain.LecturePage{{PageNumber: 1, LectureText: "a"}, {PageNumber: 2}},
		Target{Dir: t.TempDir()}, func(n int) { seen.WriteByte(byte('0' + n)) })
	require.NoError(t, err)
	assert.Equal(t, "12", seen.String())
}
