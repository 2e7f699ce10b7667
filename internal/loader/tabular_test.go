package loader

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestDecodeCSV(t *testing.T) {
	in := "Time,Amplitude\n0.000,0.1\n0.004,0.2\n0.008,-0.3\n"

	sig, err := decodeCSV(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.2, -0.3}, sig.Samples)
	assert.InDelta(t, 250, sig.FS, 1e-9)
}

func TestDecodeCSV_ColumnOrderAndExtras(t *testing.T) {
	in := "\ufeffLead, Amplitude ,Time\nII,1.5,10\nII,2.5,10.5\n\n"

	sig, err := decodeCSV(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5, 2.5}, sig.Samples)
	assert.InDelta(t, 2, sig.FS, 1e-9)
}

func TestDecodeCSV_Errors(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantErr string
	}{
		{"empty", "", "no header row"},
		{"missing time", "t,Amplitude\n0,1\n1,2\n", `missing column "Time"`},
		{"missing amplitude", "Time,amp\n0,1\n1,2\n", `missing column "Amplitude"`},
		{"single row", "Time,Amplitude\n0,1\n", "at least two rows"},
		{"descending", "Time,Amplitude\n1,1\n0,2\n", "ascending"},
		{"repeated time", "Time,Amplitude\n1,1\n1,2\n", "ascending"},
		{"bad number", "Time,Amplitude\n0,1\n0.1,abc\n", `row 3, column "Amplitude"`},
		{"short row", "Time,Amplitude\n0,1\n0.1\n", "missing value"},
		{"nan time", "Time,Amplitude\nNaN,1\n0.1,2\n", "non-finite"},
		{"inf amplitude", "Time,Amplitude\n0,1\n0.1,+Inf\n", "non-finite"},
		{"infinite step", "Time,Amplitude\n-1e308,1\n1e308,2\n", "no usable sampling rate"},
		{"denormal step", "Time,Amplitude\n0,1\n5e-324,2\n", "no usable sampling rate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeCSV(strings.NewReader(tt.in))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func xlsxFixture(t *testing.T, rows [][]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for r, row := range rows {
		for c, v := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue(sheet, cell, v))
		}
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestDecodeXLSX(t *testing.T) {
	data := xlsxFixture(t, [][]any{
		{"Time", "Amplitude"},
		{0.0, 0.5},
		{0.01, 1.5},
		{0.02, -0.5},
	})

	sig, err := decodeXLSX(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, 1.5, -0.5}, sig.Samples)
	assert.InDelta(t, 100, sig.FS, 1e-6)
}

func TestDecodeXLSX_Errors(t *testing.T) {
	_, err := decodeXLSX(bytes.NewReader([]byte("not a zip")))
	assert.Error(t, err)

	data := xlsxFixture(t, [][]any{{"Time", "Voltage"}, {0, 1}, {1, 2}})
	_, err = decodeXLSX(bytes.NewReader(data))
	assert.ErrorContains(t, err, `missing column "Amplitude"`)
}
