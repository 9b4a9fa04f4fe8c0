// Package parser extracts text documents from uploaded files.
package parser

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

var (
	// ErrUnsupportedType indicates a file extension with no parser.
	ErrUnsupportedType = errors.New("unsupported file type")

	// ErrEmptyDocument indicates a file yielding no text.
	ErrEmptyDocument = errors.New("document contains no text")
)

// Document is one unit of parsed text. PDFs yield one document per page,
// text files a single document.
type Document struct {
	Text     string
	Metadata map[string]interface{}
}

// Parse extracts documents from the file at path. The source name recorded
// in metadata is the file's base name.
func Parse(path string) ([]Document, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	switch ext {
	case "txt":
		return parseText(path)
	case "pdf":
		return parsePDF(path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, ext)
	}
}

func parseText(path string) ([]Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	text := strings.TrimSpace(string(data))
	if text == "" {
		return nil, ErrEmptyDocument
	}

	return []Document{{
		Text:     text,
		Metadata: map[string]interface{}{"source": filepath.Base(path)},
	}}, nil
}

func parsePDF(path string) ([]Document, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("stating %s: %w", path, err)
	}

	reader, err := pdf.NewReader(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("reading pdf %s: %w", path, err)
	}

	source := filepath.Base(path)
	var docs []Document
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("extracting text from page %d of %s: %w", i, source, err)
		}
		content = strings.TrimSpace(content)
		if content == "" {
			continue
		}
		docs = append(docs, Document{
			Text: content,
			Metadata: map[string]interface{}{
				"source": source,
				"page":   i,
			},
		})
	}

	if len(docs) == 0 {
		return nil, ErrEmptyDocument
	}
	return docs, nil
}
