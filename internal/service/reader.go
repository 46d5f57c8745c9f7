package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jask/teammate/internal/database/repository"
	"github.com/jask/teammate/internal/documents"
	"github.com/jask/teammate/internal/router"
)

const previewRunes = 100

var (
	fileNamePattern = regexp.MustCompile(`(?i)[\w\-.]+\.(xlsx|csv|pdf|docx|pptx|txt|mp3|wav)\b`)
	rowPattern      = regexp.MustCompile(`(?i)\brow\s+(\d+)\b`)
)

// documentHints maps words in a command to the sample file they refer to.
// The first matching hint wins.
var documentHints = []struct {
	words []string
	file  string
}{
	{[]string{"excel", "xlsx", "spreadsheet"}, "sample.xlsx"},
	{[]string{"csv"}, "sample.csv"},
	{[]string{"pdf"}, "sample.pdf"},
	{[]string{"word", "docx"}, "sample.docx"},
	{[]string{"slides", "pptx", "powerpoint"}, "q1_slides.pptx"},
	{[]string{"text file", "txt"}, "sample.txt"},
}

// ReaderService reads a document from the data directory, stores it and
// answers questions about it.
type ReaderService struct {
	WakeWord  string
	DataDir   string
	Reader    *documents.Reader
	Documents *repository.DocumentRepo
	Answerer  Answerer
	Logger    *zap.Logger
}

func (s *ReaderService) Handle(ctx context.Context, st *router.CommandState) {
	log := named(s.Logger, "reader")
	cmd := command(s.WakeWord, st.Input())
	log.Info("processing document command", zap.String("command", cmd))

	path, ok := s.pathFor(cmd)
	if !ok {
		st.Response = "Please specify a document type (e.g., 'read the Excel file')."
		return
	}

	res, err := s.Reader.Read(ctx, path)
	if err != nil {
		log.Warn("read document", zap.String("path", path), zap.Error(err))
		if errors.Is(err, documents.ErrUnsupported) {
			st.Response = "Unsupported file type."
		} else {
			st.Response = fmt.Sprintf("Error reading file: %v", err)
		}
		return
	}

	doc := repository.Document{ID: uuid.NewString(), Path: res.Path, Type: res.Type, Content: res.Content}
	if err := s.Documents.Insert(ctx, doc); err != nil {
		log.Error("store document", zap.Error(err))
		st.Response = fmt.Sprintf("Failed to store document: %v", err)
		return
	}
	log.Info("stored document", zap.String("document_id", doc.ID), zap.String("type", doc.Type))

	if !strings.Contains(cmd, "?") {
		st.Response = fmt.Sprintf("Read document ID %s. Content: %s...", doc.ID, truncateRunes(res.Content, previewRunes))
		return
	}
	st.Response = fmt.Sprintf("Document ID %s: %s", doc.ID, s.answer(ctx, cmd, res))
}

func (s *ReaderService) pathFor(cmd string) (string, bool) {
	if name := fileNamePattern.FindString(cmd); name != "" {
		return filepath.Join(s.DataDir, filepath.Base(name)), true
	}
	lower := strings.ToLower(cmd)
	for _, h := range documentHints {
		for _, w := range h.words {
			if strings.Contains(lower, w) {
				return filepath.Join(s.DataDir, h.file), true
			}
		}
	}
	return "", false
}

// answer looks up "row N" questions in the table directly and hands
// anything else to the answerer.
func (s *ReaderService) answer(ctx context.Context, question string, res documents.Result) string {
	if m := rowPattern.FindStringSubmatch(question); m != nil && len(res.Table) > 0 {
		n, _ := strconv.Atoi(m[1])
		if row, ok := documents.Row(res.Table, n); ok {
			return row
		}
		return fmt.Sprintf("Row %d not found; the table has %d rows.", n, len(res.Table)-1)
	}
	if s.Answerer == nil {
		return "No question answering model configured."
	}
	ans, err := s.Answerer.Answer(ctx, question, res.Content)
	if err != nil {
		return fmt.Sprintf("Error answering question: %v", err)
	}
	return ans
}
