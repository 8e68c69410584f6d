package extract

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"
)

// maxCharsPerRow bounds the text generated for a single spreadsheet row.
const maxCharsPerRow = 2000

// rowText renders one data row as "col: val | col: val", capped at
// maxCharsPerRow characters.
func rowText(header, row []string) string {
	parts := make([]string, 0, len(row))
	for i, cell := range row {
		col := fmt.Sprintf("col%d", i)
		if i < len(header) && header[i] != "" {
			col = header[i]
		}
		parts = append(parts, col+": "+cell)
	}
	text := strings.Join(parts, " | ")
	if len(text) > maxCharsPerRow {
		text = text[:maxCharsPerRow] + "..."
	}
	return text
}

func extractCSV(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return "", err
	}
	if len(records) == 0 {
		return "", nil
	}
	header := records[0]
	lines := make([]string, 0, len(records)-1)
	for i, row := range records[1:] {
		lines = append(lines, fmt.Sprintf("Row %d: %s", i, rowText(header, row)))
	}
	return strings.Join(lines, "\n"), nil
}

func extractXLSX(path string) (string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var lines []string
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", err
		}
		if len(rows) == 0 {
			continue
		}
		header := rows[0]
		for i, row := range rows[1:] {
			lines = append(lines, fmt.Sprintf("Row %d: %s", i, rowText(header, row)))
		}
	}
	return strings.Join(lines, "\n"), nil
}
