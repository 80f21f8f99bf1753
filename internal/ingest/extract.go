package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"
	"go.uber.org/zap"
)

// SupportedExtension reports whether ExtractText can read files with ext.
func SupportedExtension(ext string) bool {
	switch strings.ToLower(ext) {
	case ".md", ".markdown", ".txt", ".pdf":
		return true
	}
	return false
}

// ExtractText returns the plain text of a corpus file. Markdown and text
// files are read as is; PDFs go through MuPDF page by page.
func ExtractText(path string, logger *zap.Logger) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if !SupportedExtension(ext) {
		return "", fmt.Errorf("unsupported file format: %s (supported: md, markdown, txt, pdf)", ext)
	}

	if ext != ".pdf" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}

	text, err := extractPDF(path, logger)
	if err != nil {
		return "", fmt.Errorf("failed to extract text from PDF: %w", err)
	}
	return text, nil
}

func extractPDF(path string, logger *zap.Logger) (string, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	var b strings.Builder
	for i := 0; i < doc.NumPage(); i++ {
		pageText, err := doc.Text(i)
		if err != nil {
			logger.Warn("Failed to extract text from page",
				zap.Int("page", i+1),
				zap.String("file", path),
				zap.Error(err),
			)
			continue
		}
		if pageText != "" {
			b.WriteString(pageText)
			b.WriteString("\n\n")
		}
	}

	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", fmt.Errorf("no text found in PDF")
	}

	logger.Info("PDF text extracted",
		zap.String("file", path),
		zap.Int("pages", doc.NumPage()),
		zap.Int("text_length", len(text)),
	)
	return text, nil
}
