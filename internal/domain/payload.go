package domain

// ResultPayload is the client-facing view of a completed run.
// Every list is aligned by page number; skipped audio has an empty URL.
type ResultPayload struct {
	RunID        string          `json:"run_id"`
	Namespace    string          `json:"namespace"`
	Filename     string          `json:"filename"`
	PageCount    int             `json:"page_count"`
	SlideCount   int             `json:"slide_count"`
	Pages        []Page          `json:"pages"`
	ImageURLs    []string        `json:"image_urls"`
	LecturePages []LecturePage   `json:"lecture_pages"`
	AudioURLs    []string        `json:"audio_urls"`
	Audio        []AudioArtifact `json:"audio"`
}

// NewResultPayload flattens a PipelineResult for API responses.
func NewResultPayload(r *PipelineResult) ResultPayload {
	n := r.PageCount()
	p := ResultPayload{
		RunID:        r.RunID,
		Namespace:    r.Namespace,
		Filename:     r.Filename,
		PageCount:    n,
		SlideCount:   n,
		Pages:        r.Pages,
		ImageURLs:    make([]string, 0, len(r.Images)),
		LecturePages: r.LecturePages,
		AudioURLs:    make([]string, 0, len(r.Audio)),
		Audio:        r.Audio,
	}
	for _, img := range r.Images {
		p.ImageURLs = append(p.ImageURLs, img.PublicURL)
	}
	for _, a := range r.Audio {
		p.AudioURLs = append(p.AudioURLs, a.PublicURL)
	}
	return p
}
