package documents

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var slideName = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

// Slides returns the text of each slide in deck order. Shapes on a slide are
// joined with a space; a slide without text yields an empty string.
func Slides(path string) ([]string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	type slide struct {
		n int
		f *zip.File
	}
	var found []slide
	for _, f := range zr.File {
		m := slideName.FindStringSubmatch(f.Name)
		if m == nil {
			continue
		}
		n, _ := strconv.Atoi(m[1])
		found = append(found, slide{n: n, f: f})
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("no slides in %s", path)
	}
	sort.Slice(found, func(i, j int) bool { return found[i].n < found[j].n })

	out := make([]string, 0, len(found))
	for _, s := range found {
		paras, err := zipText(s.f, "p", "t")
		if err != nil {
			return nil, fmt.Errorf("slide %d: %w", s.n, err)
		}
		out = append(out, strings.Join(paras, " "))
	}
	return out, nil
}

func readDOCX(path string) (string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return "", err
	}
	defer zr.Close()
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			paras, err := zipText(f, "p", "t")
			if err != nil {
				return "", err
			}
			return strings.Join(paras, " "), nil
		}
	}
	return "", fmt.Errorf("word/document.xml missing")
}

// zipText streams an Office XML part and returns the non-empty text of each
// paragraph element, matching on local names so the namespace prefix does
// not matter.
func zipText(f *zip.File, para, text string) ([]string, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	dec := xml.NewDecoder(rc)
	var (
		out    []string
		cur    strings.Builder
		inText bool
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == text {
				inText = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case text:
				inText = false
			case para:
				if s := strings.TrimSpace(cur.String()); s != "" {
					out = append(out, s)
				}
				cur.Reset()
			}
		case xml.CharData:
			if inText {
				cur.Write(t)
			}
		}
	}
	if s := strings.TrimSpace(cur.String()); s != "" {
		out = append(out, s)
	}
	return out, nil
}
