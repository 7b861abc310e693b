package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical/lecturecast/internal/domain"
	"github.com/spherical/lecturecast/internal/lecture"
	"github.com/spherical/lecturecast/internal/observability"
	"github.com/spherical/lecturecast/internal/storage"
)

type fakeService struct {
	reqs []lecture.RunRequest
	err  error
}

func (f *fakeService) Process(ctx context.Context, req lecture.RunRequest) (*domain.PipelineResult, domain.ResultPayload, error) {
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return nil, domain.ResultPayload{}, f.err
	}
	return nil, domain.ResultPayload{
		RunID:      "run-1",
		Namespace:  req.Namespace,
		Filename:   req.Filename,
		PageCount:  2,
		SlideCount: 2,
		AudioURLs:  []string{"/static/" + req.Namespace + "/audio/slide_1.mp3", ""},
	}, nil
}

func multipartBody(t *testing.T, field, name, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, name)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func upload(t *testing.T, h *LectureHandler, field, name, content string) *httptest.ResponseRecorder {
	t.Helper()
	body, ct := multipartBody(t, field, name, content)
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	h.Upload(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorDTO {
	t.Helper()
	var dto ErrorDTO
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&dto))
	return dto
}

func TestUpload_StoresAndRuns(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")
	svc := &fakeService{}
	h := NewLectureHandler(observability.Nop(), svc, dir, 1<<20)

	rec := upload(t, h, "file", "../../Week 1.pdf", "%PDF-1.4 fake")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	require.Len(t, svc.reqs, 1)
	req := svc.reqs[0]
	assert.Equal(t, "Week 1.pdf", req.Filename)
	assert.Equal(t, filepath.Join(dir, req.Namespace+"_Week 1.pdf"), req.SourcePath)

	data, err := os.ReadFile(req.SourcePath)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 fake", string(data))

	var payload domain.ResultPayload
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&payload))
	assert.Equal(t, req.Namespace, payload.Namespace)
	assert.Equal(t, 2, payload.SlideCount)
	assert.Equal(t, "", payload.AudioURLs[1])
}

func TestUpload_RejectsBeforePersisting(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")
	svc := &fakeService{}
	h := NewLectureHandler(observability.Nop(), svc, dir, 1<<20)

	rec := upload(t, h, "file", "notes.docx", "PK")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(domain.ErrorTypeUnsupportedFormat), decodeError(t, rec).Kind)

	assert.Empty(t, svc.reqs)
	_, err := os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
}

func TestUpload_MissingFileField(t *testing.T) {
	h := NewLectureHandler(observability.Nop(), &fakeService{}, t.TempDir(), 1<<20)
	rec := upload(t, h, "document", "deck.pdf", "x")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpload_TooLarge(t *testing.T) {
	svc := &fakeService{}
	h := NewLectureHandler(observability.Nop(), svc, t.TempDir(), 64)
	rec := upload(t, h, "file", "deck.pdf", strings.Repeat("x", 4096))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, svc.reqs)
}

func TestUpload_ErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"expansion", domain.ExpansionError("openrouter returned 401: bad key", nil), http.StatusInternalServerError, "lecture generation failed"},
		{"timeout", domain.TimeoutError("run exceeded its deadline", context.DeadlineExceeded), http.StatusGatewayTimeout, "run exceeded its deadline"},
		{"source gone", domain.SourceNotFoundError("source missing", nil), http.StatusNotFound, "source missing"},
		{"plain", errors.New("boom"), http.StatusInternalServerError, "lecture generation failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewLectureHandler(observability.Nop(), &fakeService{err: tt.err}, t.TempDir(), 1<<20)
			rec := upload(t, h, "file", "deck.pptx", "PK")

			assert.Equal(t, tt.status, rec.Code)
			dto := decodeError(t, rec)
			assert.Contains(t, dto.Message, tt.message)
			assert.NotContains(t, dto.Message, "bad key")
		})
	}
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, StatusFor(domain.ValidationError("x", nil)))
	assert.Equal(t, http.StatusBadRequest, StatusFor(domain.UnsupportedFormatError("x", nil)))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(domain.ConversionError("x", nil)))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(domain.SynthesisError("x", nil)))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(domain.InternalError("misaligned result", nil)))
}

type fakeLedger struct {
	runs map[string]storage.Run
}

func (f fakeLedger) Get(ctx context.Context, id string) (*storage.Run, error) {
	r, ok := f.runs[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &r, nil
}

func (f fakeLedger) List(ctx context.Context, limit int) ([]storage.Run, error) {
	var out []storage.Run
	for _, r := range f.runs {
		out = append(out, r)
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeResults struct{}

func (fakeResults) RunPayload(ctx context.Context, runID string) (*domain.ResultPayload, error) {
	if runID != "run-1" {
		return nil, domain.SourceNotFoundError("unknown run "+runID, nil)
	}
	return &domain.ResultPayload{RunID: runID, PageCount: 1}, nil
}

func (fakeResults) RunResult(ctx context.Context, runID string) (*domain.PipelineResult, error) {
	if runID != "run-1" {
		return nil, domain.SourceNotFoundError("unknown run "+runID, nil)
	}
	return &domain.PipelineResult{RunID: runID}, nil
}

type fakeRenderer struct{}

func (fakeRenderer) Render(*domain.PipelineResult) ([]byte, error) {
	return []byte("%PDF-1.3 fake"), nil
}

func runRouter() http.Handler {
	ledger := fakeLedger{runs: map[string]storage.Run{
		"run-1": {ID: "run-1", Namespace: "ns", State: domain.StateComplete, PageCount: 1, CreatedAt: time.Unix(0, 0).UTC()},
		"run-2": {ID: "run-2", Namespace: "ns", State: domain.StateFailed, ErrorKind: domain.ErrorTypeTimeout},
	}}
	h := NewRunHandler(observability.Nop(), ledger, fakeResults{}, fakeRenderer{})

	r := chi.NewRouter()
	r.Get("/runs", h.List)
	r.Get("/runs/{runId}", h.Get)
	r.Get("/runs/{runId}/result", h.Result)
	r.Get("/runs/{runId}/handout.pdf", h.Handout)
	return r
}

func get(h http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestRunHandler(t *testing.T) {
	h := runRouter()

	rec := get(h, "/runs")
	require.Equal(t, http.StatusOK, rec.Code)
	var list RunListDTO
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&list))
	assert.Equal(t, 2, list.Count)

	rec = get(h, "/runs?limit=1")
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&list))
	assert.Equal(t, 1, list.Count)

	assert.Equal(t, http.StatusBadRequest, get(h, "/runs?limit=zero").Code)

	rec = get(h, "/runs/run-2")
	require.Equal(t, http.StatusOK, rec.Code)
	var run storage.Run
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&run))
	assert.Equal(t, domain.StateFailed, run.State)
	assert.Equal(t, domain.ErrorTypeTimeout, run.ErrorKind)

	assert.Equal(t, http.StatusNotFound, get(h, "/runs/missing").Code)

	rec = get(h, "/runs/run-1/result")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"run_id":"run-1"`)
	assert.Equal(t, http.StatusNotFound, get(h, "/runs/missing/result").Code)

	rec = get(h, "/runs/run-1/handout.pdf")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "%PDF"))
}
