package document

import (
	"archive/zip"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jung-kurt/gofpdf"
	"github.com/stretchr/testify/require"
)

// writePDF writes a PDF with one page per entry; empty entries give blank pages.
func writePDF(t *testing.T, path string, pages []string) {
	t.Helper()
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Helvetica", "", 16)
	for _, text := range pages {
		pdf.AddPage()
		for i, line := range strings.Split(text, "\n") {
			pdf.Text(20, float64(30+12*i), line)
		}
	}
	require.NoError(t, pdf.OutputFileAndClose(path))
}

type slideFixture struct {
	shapes [][]string // paragraphs per shape
	hidden bool
}

// writePPTX writes a minimal deck. Slide parts are stored in reverse so order must come from sldIdLst.
func writePPTX(t *testing.T, path string, slides []slideFixture) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	add := func(name, body string) {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}

	var ids, rels strings.Builder
	for i := range slides {
		fmt.Fprintf(&ids, `<p:sldId id="%d" r:id="rId%d"/>`, 256+i, i+10)
		fmt.Fprintf(&rels, `<Relationship Id="rId%d" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slide" Target="slides/slide%d.xml"/>`, i+10, len(slides)-i)
	}

	add("[Content_Types].xml", `<?xml version="1.0" encoding="UTF-8"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"/>`)
	add("ppt/presentation.xml", `<?xml version="1.0" encoding="UTF-8"?>`+
		`<p:presentation xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" `+
		`xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" `+
		`xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main">`+
		`<p:sldIdLst>`+ids.String()+`</p:sldIdLst></p:presentation>`)
	add("ppt/_rels/presentation.xml.rels", `<?xml version="1.0" encoding="UTF-8"?>`+
		`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`+
		`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideMaster" Target="slideMasters/slideMaster1.xml"/>`+
		rels.String()+`</Relationships>`)

	for i := len(slides) - 1; i >= 0; i-- {
		s := slides[i]
		var tree strings.Builder
		for _, shape := range s.shapes {
			tree.WriteString(`<p:sp><p:nvSpPr><p:cNvPr id="2" name="Text"/></p:nvSpPr><p:txBody><a:bodyPr/>`)
			for _, para := range shape {
				fmt.Fprintf(&tree, `<a:p><a:r><a:rPr lang="en-US"/><a:t>%s</a:t></a:r></a:p>`, para)
			}
			tree.WriteString(`</p:txBody></p:sp>`)
		}
		// grouped text is not a top-level shape
		tree.WriteString(`<p:grpSp><p:sp><p:txBody><a:p><a:r><a:t>grouped</a:t></a:r></a:p></p:txBody></p:sp></p:grpSp>`)

		show := ""
		if s.hidden {
			show = ` show="0"`
		}
		add(fmt.Sprintf("ppt/slides/slide%d.xml", len(slides)-i), `<?xml version="1.0" encoding="UTF-8"?>`+
			`<p:sld xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" `+
			`xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" `+
			`xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"`+show+`>`+
			`<p:cSld><p:spTree>`+tree.String()+`</p:spTree></p:cSld></p:sld>`)
	}

	require.NoError(t, zw.Close())
}

// fakeConverter writes a script that behaves like `libreoffice --convert-to pdf` by copying fixture.
func fakeConverter(t *testing.T, fixture string) string {
	t.Helper()
	script := filepath.Join(t.TempDir(), "fake-soffice")
	body := fmt.Sprintf("#!/bin/sh\nstem=$(basename \"$6\")\ncp %q \"$5/${stem%%.*}.pdf\"\n", fixture)
	require.NoError(t, os.WriteFile(script, []byte(body), 0o755))
	return script
}
