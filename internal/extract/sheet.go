package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/tealeg/xlsx"
	"github.com/xuri/excelize/v2"
)

// extractXLSX serializes every sheet as tab-delimited rows, preserving row
// order, with a header line per sheet.
func extractXLSX(data []byte) (Result, error) {
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return Result{}, extractionErr(FormatXLSX, "unreadable xlsx", err)
	}

	var res Result
	var sheets []string
	for _, sheet := range f.Sheets {
		res.Metadata.SheetNames = append(res.Metadata.SheetNames, sheet.Name)
		var text strings.Builder
		text.WriteString(fmt.Sprintf("Sheet: %s\n", sheet.Name))
		for _, row := range sheet.Rows {
			cells := make([]string, 0, len(row.Cells))
			for _, cell := range row.Cells {
				cells = append(cells, cell.String())
			}
			text.WriteString(strings.Join(cells, "\t"))
			text.WriteString("\n")
		}
		sheets = append(sheets, strings.TrimRight(text.String(), "\n"))
	}
	res.Text = strings.Join(sheets, "\n\n")
	return res, nil
}

// extractODS handles OpenDocument spreadsheets with the same serialization
// as extractXLSX.
func extractODS(data []byte) (Result, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return Result{}, extractionErr(FormatODS, "unreadable spreadsheet", err)
	}
	defer f.Close()

	var res Result
	var sheets []string
	for _, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			continue
		}
		res.Metadata.SheetNames = append(res.Metadata.SheetNames, sheetName)
		var text strings.Builder
		text.WriteString(fmt.Sprintf("Sheet: %s\n", sheetName))
		for _, row := range rows {
			text.WriteString(strings.Join(row, "\t"))
			text.WriteString("\n")
		}
		sheets = append(sheets, strings.TrimRight(text.String(), "\n"))
	}
	res.Text = strings.Join(sheets, "\n\n")
	return res, nil
}
