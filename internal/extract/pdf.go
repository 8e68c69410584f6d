package extract

import (
	"strings"

	"github.com/ledongthuc/pdf"
)

// extractPDF returns the text of every page joined with blank lines. Pages
// whose text cannot be decoded contribute an empty string rather than failing
// the whole document.
func extractPDF(path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	pages := make([]string, 0, reader.NumPage())
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			text = ""
		}
		pages = append(pages, text)
	}
	return strings.Join(pages, "\n\n"), nil
}
