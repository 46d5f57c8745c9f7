// Package documents extracts text from the file types the reader handles.
package documents

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"

	"github.com/jask/teammate/internal/speech"
)

// ErrUnsupported is returned for file types that cannot be read.
var ErrUnsupported = errors.New("unsupported file type")

// File types.
const (
	TypeXLSX = "xlsx"
	TypeCSV  = "csv"
	TypeDOCX = "docx"
	TypePPTX = "pptx"
	TypePDF  = "pdf"
	TypeTXT  = "txt"
	TypeMP3  = "mp3"
	TypeWAV  = "wav"
)

// Result is the extracted content of one file.
type Result struct {
	Path    string
	Type    string
	Content string
	// Table holds the header and data rows for spreadsheet types.
	Table [][]string
}

// Reader reads documents. Transcriber is optional; without it audio files
// are unsupported.
type Reader struct {
	Transcriber speech.Transcriber
}

// TypeOf returns the lower-case extension of path without the dot.
func TypeOf(path string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
}

// Read extracts text from path according to its extension.
func (r *Reader) Read(ctx context.Context, path string) (Result, error) {
	res := Result{Path: path, Type: TypeOf(path)}
	var err error
	switch res.Type {
	case TypeXLSX:
		res.Table, err = readXLSX(path)
		res.Content = RenderTable(res.Table)
	case TypeCSV:
		res.Table, err = readCSV(path)
		res.Content = RenderTable(res.Table)
	case TypeDOCX:
		res.Content, err = readDOCX(path)
	case TypePPTX:
		var slides []string
		slides, err = Slides(path)
		res.Content = strings.Join(slides, " ")
	case TypePDF:
		res.Content, err = readPDF(path)
	case TypeTXT:
		var raw []byte
		raw, err = os.ReadFile(path)
		res.Content = string(raw)
	case TypeMP3, TypeWAV:
		if r == nil || r.Transcriber == nil {
			return res, ErrUnsupported
		}
		if _, err = os.Stat(path); err == nil {
			res.Content, err = r.Transcriber.Transcribe(ctx, path)
		}
	default:
		return res, ErrUnsupported
	}
	if err != nil {
		return res, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	return res, nil
}

func readXLSX(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	return f.GetRows(sheet)
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	return r.ReadAll()
}

func readPDF(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	text, err := r.GetPlainText()
	if err != nil {
		return "", err
	}
	var b strings.Builder
	if _, err := io.Copy(&b, text); err != nil {
		return "", err
	}
	return strings.TrimSpace(b.String()), nil
}

// RenderTable renders a header row followed by numbered data rows:
//
//	Data | Owner
//	Row 1: Hello | Ana
func RenderTable(rows [][]string) string {
	if len(rows) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(strings.Join(rows[0], " | "))
	for i, row := range rows[1:] {
		fmt.Fprintf(&b, "\nRow %d: %s", i+1, strings.Join(row, " | "))
	}
	return b.String()
}

// Row returns data row n (1-based, header excluded) rendered as in
// RenderTable, and false when the table has no such row.
func Row(table [][]string, n int) (string, bool) {
	if n < 1 || n >= len(table) {
		return "", false
	}
	return fmt.Sprintf("Row %d: %s", n, strings.Join(table[n], " | ")), true
}
