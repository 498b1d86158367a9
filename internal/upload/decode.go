package upload

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatXLS  Format = "xls"
)

var mimeFormats = map[string]Format{
	"text/csv":                 FormatCSV,
	"application/csv":          FormatCSV,
	"text/x-csv":               FormatCSV,
	"application/vnd.ms-excel": FormatXLS,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": FormatXLSX,
}

// DetectFormat resolves the decoder by file extension first, then by MIME type.
func DetectFormat(name, mimeType string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return FormatCSV, true
	case ".xlsx":
		return FormatXLSX, true
	case ".xls":
		return FormatXLS, true
	}
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	f, ok := mimeFormats[mt]
	return f, ok
}

// Table is a decoded upload: the header row and the non-blank data rows in
// file order. Cells are trimmed text; missing trailing cells are simply absent.
type Table struct {
	Headers []string
	Rows    [][]string
}

// Decode reads the first sheet (or the CSV body) of data. strictCSV makes every
// CSV row carry exactly as many fields as the header row.
func Decode(data []byte, name, mimeType string, strictCSV bool) (*Table, error) {
	format, ok := DetectFormat(name, mimeType)
	if !ok {
		return nil, UnsupportedFileType(name, mimeType)
	}
	var (
		rows [][]string
		err  error
	)
	switch format {
	case FormatCSV:
		rows, err = decodeCSV(data, strictCSV)
	case FormatXLSX:
		rows, err = decodeXLSX(data)
	case FormatXLS:
		rows, err = decodeXLS(data)
	}
	if err != nil {
		return nil, FileParseError(err)
	}

	var t *Table
	for _, row := range rows {
		for i := range row {
			row[i] = strings.TrimSpace(row[i])
		}
		if isBlankRow(row) {
			continue
		}
		if t == nil {
			row[0] = strings.TrimPrefix(row[0], "\ufeff")
			t = &Table{Headers: row}
			continue
		}
		t.Rows = append(t.Rows, row)
	}
	if t == nil || len(t.Rows) == 0 {
		return nil, EmptyFile()
	}
	return t, nil
}

func decodeCSV(data []byte, strict bool) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, []byte("\ufeff"))))
	r.TrimLeadingSpace = true
	if !strict {
		r.FieldsPerRecord = -1
		r.LazyQuotes = true
	}
	return r.ReadAll()
}

func decodeXLSX(data []byte) ([][]string, error) {
	xl, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer xl.Close()

	sheetName := xl.GetSheetName(0)
	if sheetName == "" {
		return nil, errors.New("workbook has no sheets")
	}
	return xl.GetRows(sheetName)
}

// decodeXLS reads legacy BIFF workbooks. The reader panics on some malformed
// files and on sparse row indexes, so both are turned into errors.
func decodeXLS(data []byte) (rows [][]string, err error) {
	defer func() {
		if r := recover(); r != nil {
			rows, err = nil, fmt.Errorf("corrupt xls file: %v", r)
		}
	}()
	book, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, err
	}
	sheet := book.GetSheet(0)
	if sheet == nil {
		return nil, errors.New("no sheets found")
	}
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := xlsRow(sheet, i)
		if row == nil {
			continue
		}
		cells := make([]string, 0, row.LastCol()+1)
		for j := 0; j <= row.LastCol(); j++ {
			cells = append(cells, row.Col(j))
		}
		rows = append(rows, trimTrailing(cells))
	}
	return rows, nil
}

func xlsRow(sheet *xls.WorkSheet, i int) (row *xls.Row) {
	defer func() {
		if recover() != nil {
			row = nil
		}
	}()
	return sheet.Row(i)
}

func trimTrailing(cells []string) []string {
	n := len(cells)
	for n > 0 && strings.TrimSpace(cells[n-1]) == "" {
		n--
	}
	return cells[:n]
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if cell != "" {
			return false
		}
	}
	return true
}
