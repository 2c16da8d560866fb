package pdfrenderer

import (
	"fmt"

	"github.com/ledongthuc/pdf"
)

// PageText extracts the plain text of a 1-based page.
func PageText(filename string, page int) (string, error) {
	pdfFile, reader, err := pdf.Open(filename)
	if err != nil {
		return "", fmt.Errorf("unable to open PDF %s: %w", filename, err)
	}
	defer pdfFile.Close()

	if err := checkPage(page, reader.NumPage()); err != nil {
		return "", err
	}
	p := reader.Page(page)
	if p.V.IsNull() {
		return "", nil
	}
	text, err := p.GetPlainText(nil)
	if err != nil {
		Logger.Warn("Unable to extract page text", "file", filename, "page", page, "error", err)
		return "", fmt.Errorf("unable to extract text from page %d: %w", page, err)
	}
	return text, nil
}
