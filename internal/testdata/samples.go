// Package testdata writes the sample documents and demo meeting used by the
// samples command, the demo run and tests.
package testdata

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// SampleTable is the content of sample.xlsx and sample.csv.
var SampleTable = [][]string{
	{"Data", "Owner"},
	{"Hello", "Ana"},
	{"Budget review", "Ben"},
	{"Hiring plan", "Chi"},
	{"Launch checklist", "Dev"},
	{"Test Data", "Eve"},
}

// SampleSlides is the text of each slide in q1_slides.pptx.
var SampleSlides = []string{
	"Q1 Results Revenue up 12%",
	"Priorities Ship the beta",
	"",
	"Questions?",
}

// SampleText is the body of sample.txt, sample.docx and sample.pdf.
const SampleText = "This is a test document for the meeting assistant."

// WriteSamples writes every sample document into dir and returns their paths.
func WriteSamples(dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	writers := []struct {
		name  string
		write func(path string) error
	}{
		{"sample.xlsx", writeXLSX},
		{"sample.csv", writeCSV},
		{"q1_slides.pptx", writePPTX},
		{"sample.docx", writeDOCX},
		{"sample.txt", func(p string) error { return os.WriteFile(p, []byte(SampleText+"\n"), 0o644) }},
		{"sample.pdf", writePDF},
	}
	var out []string
	for _, w := range writers {
		path := filepath.Join(dir, w.name)
		if err := w.write(path); err != nil {
			return out, fmt.Errorf("write %s: %w", w.name, err)
		}
		out = append(out, path)
	}
	return out, nil
}

func writeXLSX(path string) error {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, row := range SampleTable {
		cells := make([]any, len(row))
		for j, v := range row {
			cells[j] = v
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
			return err
		}
	}
	return f.SaveAs(path)
}

func writeCSV(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(SampleTable); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

const pptxContentTypes = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/ppt/presentation.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.presentation.main+xml"/>
%s</Types>`

const pptxSlide = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:sld xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main">
<p:cSld><p:spTree>%s</p:spTree></p:cSld>
</p:sld>`

func writePPTX(path string) error {
	var overrides strings.Builder
	files := map[string]string{
		"_rels/.rels": `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="ppt/presentation.xml"/>
</Relationships>`,
		"ppt/presentation.xml": `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:presentation xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"/>`,
	}
	for i, text := range SampleSlides {
		var shapes strings.Builder
		if text != "" {
			// title shape holds the first word group, body the rest
			title, body, _ := strings.Cut(text, " ")
			for _, s := range []string{title, body} {
				if s == "" {
					continue
				}
				fmt.Fprintf(&shapes, `<p:sp><p:txBody><a:p><a:r><a:t>%s</a:t></a:r></a:p></p:txBody></p:sp>`, xmlEscape(s))
			}
		}
		name := fmt.Sprintf("ppt/slides/slide%d.xml", i+1)
		files[name] = fmt.Sprintf(pptxSlide, shapes.String())
		fmt.Fprintf(&overrides, `<Override PartName="/%s" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slide+xml"/>`+"\n", name)
	}
	files["[Content_Types].xml"] = fmt.Sprintf(pptxContentTypes, overrides.String())
	return writeZip(path, files)
}

func writeDOCX(path string) error {
	files := map[string]string{
		"[Content_Types].xml": `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`,
		"_rels/.rels": `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`,
		"word/document.xml": fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>
<w:p><w:r><w:t>%s</w:t></w:r></w:p>
<w:p><w:r><w:t xml:space="preserve">Action items: </w:t></w:r><w:r><w:t>confirm venue.</w:t></w:r></w:p>
</w:body></w:document>`, xmlEscape(SampleText)),
	}
	return writeZip(path, files)
}

func writeZip(path string, files map[string]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	zw := zip.NewWriter(f)
	// content types first, as Office expects
	order := []string{"[Content_Types].xml"}
	for name := range files {
		if name != "[Content_Types].xml" {
			order = append(order, name)
		}
	}
	for _, name := range order {
		w, err := zw.Create(name)
		if err != nil {
			_ = f.Close()
			return err
		}
		if _, err := w.Write([]byte(files[name])); err != nil {
			_ = f.Close()
			return err
		}
	}
	if err := zw.Close(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// writePDF writes a single-page PDF with one line of Helvetica text.
func writePDF(path string) error {
	stream := fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", pdfEscape(SampleText))
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R /Resources << /Font << /F1 5 0 R >> >> >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

func pdfEscape(s string) string {
	return strings.NewReplacer(`\`, `\\`, "(", `\(`, ")", `\)`).Replace(s)
}

func xmlEscape(s string) string {
	return strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;").Replace(s)
}
