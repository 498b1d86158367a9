package upload

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name, mime string
		want       Format
		ok         bool
	}{
		{"prices.CSV", "", FormatCSV, true},
		{"prices.xlsx", "text/plain", FormatXLSX, true},
		{"legacy.xls", "", FormatXLS, true},
		{"upload", "text/csv; charset=utf-8", FormatCSV, true},
		{"upload", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", FormatXLSX, true},
		{"notes.txt", "text/plain", "", false},
	}
	for _, tt := range tests {
		got, ok := DetectFormat(tt.name, tt.mime)
		assert.Equal(t, tt.ok, ok, tt.name)
		assert.Equal(t, tt.want, got, tt.name)
	}
}

func TestDecodeCSVTrimsAndSkipsBlankLines(t *testing.T) {
	data := []byte("\ufeffPart Number, CMC Price ,NCMC Price\n PN-1 ,10, 20\n\n,,\nPN-2,30,40\n")
	table, err := Decode(data, "prices.csv", "", true)
	require.NoError(t, err)

	assert.Equal(t, []string{"Part Number", "CMC Price", "NCMC Price"}, table.Headers)
	assert.Equal(t, [][]string{{"PN-1", "10", "20"}, {"PN-2", "30", "40"}}, table.Rows)
}

func TestDecodeCSVStrictRowShape(t *testing.T) {
	data := []byte("Catalog,Code Group,Prod Group,Name\nC1,G1,P1\n")

	_, err := Decode(data, "problems.csv", "", true)
	require.Error(t, err)
	assert.Equal(t, KindFileParse, AsError(err).Kind)

	table, err := Decode(data, "problems.csv", "", false)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"C1", "G1", "P1"}}, table.Rows)
}

func TestDecodeRejectsUnsupportedType(t *testing.T) {
	_, err := Decode([]byte("a,b\n1,2\n"), "data.json", "application/json", false)
	require.Error(t, err)
	assert.Equal(t, KindUnsupportedFileType, AsError(err).Kind)
}

func TestDecodeEmptyFile(t *testing.T) {
	for _, data := range [][]byte{nil, []byte("Part Number,CMC Price\n"), []byte("\n\n")} {
		_, err := Decode(data, "prices.csv", "", false)
		require.Error(t, err)
		assert.Equal(t, KindEmptyFile, AsError(err).Kind)
	}
}

func TestDecodeXLSX(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"Part Number", "Desc", "CMC Price", "NCMC Price"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{"PN-1", "Probe", 1200.5, 1500}))
	require.NoError(t, f.SetSheetRow(sheet, "A4", &[]interface{}{"PN-2", nil, 10, 20}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	table, err := Decode(buf.Bytes(), "prices.xlsx", "", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"Part Number", "Desc", "CMC Price", "NCMC Price"}, table.Headers)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, []string{"PN-1", "Probe", "1200.5", "1500"}, table.Rows[0])
	assert.Equal(t, "PN-2", table.Rows[1][0])
	assert.Equal(t, "", table.Rows[1][1])
}

func TestDecodeCorruptSpreadsheet(t *testing.T) {
	for _, name := range []string{"broken.xlsx", "broken.xls"} {
		_, err := Decode([]byte("definitely not a workbook"), name, "", false)
		require.Error(t, err, name)
		assert.Equal(t, KindFileParse, AsError(err).Kind, name)
	}
}
