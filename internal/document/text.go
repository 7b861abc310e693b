package document

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/gen2brain/go-fitz"

	"github.com/spherical/lecturecast/internal/domain"
)

const (
	nsDrawingML  = "http://schemas.openxmlformats.org/drawingml/2006/main"
	relTypeSlide = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/slide"
)

// PDFText returns one Page per page of doc, in order.
func PDFText(doc *fitz.Document) ([]domain.Page, error) {
	pageCount := doc.NumPage()
	pages := make([]domain.Page, 0, pageCount)

	for pageNum := 0; pageNum < pageCount; pageNum++ {
		text, err := doc.Text(pageNum)
		if err != nil {
			return nil, domain.OpenError("failed to read page text", err).ForPage(pageNum + 1)
		}
		pages = append(pages, domain.Page{
			PageNumber: pageNum + 1,
			Content:    joinFragments(strings.Split(text, "\n")),
		})
	}

	return pages, nil
}

// joinFragments trims each fragment, drops empty ones and joins the rest with newlines.
func joinFragments(fragments []string) string {
	kept := make([]string, 0, len(fragments))
	for _, f := range fragments {
		if f = strings.TrimSpace(f); f != "" {
			kept = append(kept, f)
		}
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

type presentationXML struct {
	SlideIDs []struct {
		RID string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships id,attr"`
	} `xml:"sldIdLst>sldId"`
}

type relationshipsXML struct {
	Relationships []struct {
		ID     string `xml:"Id,attr"`
		Type   string `xml:"Type,attr"`
		Target string `xml:"Target,attr"`
	} `xml:"Relationship"`
}

// SlideText reads the text of every visible slide in a .pptx, in presentation order.
// Each top-level text shape is one fragment.
func SlideText(pptxPath string) ([]domain.Page, error) {
	zr, err := zip.OpenReader(pptxPath)
	if err != nil {
		return nil, domain.OpenError("failed to open slide deck", err)
	}
	defer zr.Close()

	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		files[f.Name] = f
	}

	var pres presentationXML
	if err := decodeZipXML(files, "ppt/presentation.xml", &pres); err != nil {
		return nil, err
	}

	var rels relationshipsXML
	if err := decodeZipXML(files, "ppt/_rels/presentation.xml.rels", &rels); err != nil {
		return nil, err
	}

	targets := make(map[string]string, len(rels.Relationships))
	for _, r := range rels.Relationships {
		if r.Type != relTypeSlide {
			continue
		}
		if strings.HasPrefix(r.Target, "/") {
			targets[r.ID] = strings.TrimPrefix(r.Target, "/")
		} else {
			targets[r.ID] = path.Clean(path.Join("ppt", r.Target))
		}
	}

	var pages []domain.Page
	for _, id := range pres.SlideIDs {
		name, ok := targets[id.RID]
		if !ok {
			return nil, domain.OpenError(fmt.Sprintf("slide relationship %s not found", id.RID), nil)
		}

		f, ok := files[name]
		if !ok {
			return nil, domain.OpenError(fmt.Sprintf("slide part %s missing", name), nil)
		}

		rc, err := f.Open()
		if err != nil {
			return nil, domain.OpenError(fmt.Sprintf("failed to read %s", name), err)
		}
		fragments, hidden, err := slideFragments(rc)
		rc.Close()
		if err != nil {
			return nil, domain.OpenError(fmt.Sprintf("failed to parse %s", name), err)
		}

		// the converter does not export hidden slides, so neither do we
		if hidden {
			continue
		}

		pages = append(pages, domain.Page{
			PageNumber: len(pages) + 1,
			Content:    joinFragments(fragments),
		})
	}

	return pages, nil
}

func decodeZipXML(files map[string]*zip.File, name string, v interface{}) error {
	f, ok := files[name]
	if !ok {
		return domain.OpenError(fmt.Sprintf("not a slide deck: %s missing", name), nil)
	}
	rc, err := f.Open()
	if err != nil {
		return domain.OpenError(fmt.Sprintf("failed to read %s", name), err)
	}
	defer rc.Close()

	if err := xml.NewDecoder(rc).Decode(v); err != nil {
		return domain.OpenError(fmt.Sprintf("failed to parse %s", name), err)
	}
	return nil
}

// slideFragments walks a slide part and returns the text of each top-level shape.
// Shapes inside groups, pictures and graphic frames carry no text of their own.
func slideFragments(r io.Reader) (fragments []string, hidden bool, err error) {
	dec := xml.NewDecoder(r)

	var (
		groupDepth int
		inShape    bool
		inText     bool
		paragraphs []string
		current    strings.Builder
	)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return fragments, hidden, nil
		}
		if err != nil {
			return nil, false, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch {
			case t.Name.Local == "sld":
				for _, a := range t.Attr {
					if a.Name.Local == "show" && (a.Value == "0" || a.Value == "false") {
						hidden = true
					}
				}
			case t.Name.Local == "grpSp":
				groupDepth++
			case t.Name.Local == "sp" && groupDepth == 0:
				inShape = true
				paragraphs = paragraphs[:0]
			case inShape && t.Name.Space == nsDrawingML && t.Name.Local == "p":
				current.Reset()
			case inShape && t.Name.Space == nsDrawingML && t.Name.Local == "t":
				inText = true
			case inShape && t.Name.Space == nsDrawingML && t.Name.Local == "br":
				current.WriteString("\n")
			}
		case xml.CharData:
			if inText {
				current.Write(t)
			}
		case xml.EndElement:
			switch {
			case t.Name.Local == "grpSp":
				groupDepth--
			case t.Name.Local == "sp" && inShape && groupDepth == 0:
				inShape = false
				if text := strings.TrimSpace(strings.Join(paragraphs, "\n")); text != "" {
					fragments = append(fragments, text)
				}
			case inShape && t.Name.Space == nsDrawingML && t.Name.Local == "p":
				paragraphs = append(paragraphs, current.String())
			case t.Name.Space == nsDrawingML && t.Name.Local == "t":
				inText = false
			}
		}
	}
}
