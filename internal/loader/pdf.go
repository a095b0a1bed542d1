package loader

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/ooocheckitout/llm-knowledge-base/internal/knowledge"
)

// PDF extracts text from a downloaded PDF, one document per page, matching
// how page-level provenance is kept. The source is the original filename so
// re-uploading a file replaces its chunks.
func PDF(path, filename string) ([]knowledge.Document, error) {
	file, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}
	defer file.Close()

	if filename == "" {
		filename = filepath.Base(path)
	}

	var docs []knowledge.Document
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to extract page %d: %w", pageNum, err)
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		docs = append(docs, knowledge.NewDocument(text, map[string]string{
			knowledge.MetaSource:     filename,
			knowledge.MetaSourceType: knowledge.SourceTypeFile,
			"page":                   fmt.Sprintf("%d", pageNum),
		}))
	}
	return docs, nil
}
