package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"wisefido-ecg/internal/models"

	"github.com/xuri/excelize/v2"
)

const (
	columnTime      = "Time"
	columnAmplitude = "Amplitude"
)

func decodeCSV(r io.Reader) (models.Signal, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	rows, err := cr.ReadAll()
	if err != nil {
		return models.Signal{}, fmt.Errorf("failed to parse csv: %w", err)
	}
	return decodeTable(rows)
}

func decodeXLSX(r io.Reader) (models.Signal, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return models.Signal{}, fmt.Errorf("failed to parse Excel file: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return models.Signal{}, errors.New("excel file has no sheets")
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return models.Signal{}, fmt.Errorf("failed to read rows: %w", err)
	}
	return decodeTable(rows)
}

// decodeTable reads the Time and Amplitude columns. fs comes from the first
// two time stamps.
func decodeTable(rows [][]string) (models.Signal, error) {
	if len(rows) == 0 {
		return models.Signal{}, errors.New("no header row")
	}

	headerMap := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		headerMap[h] = i
	}
	timeCol, ok := headerMap[columnTime]
	if !ok {
		return models.Signal{}, fmt.Errorf("missing column %q", columnTime)
	}
	ampCol, ok := headerMap[columnAmplitude]
	if !ok {
		return models.Signal{}, fmt.Errorf("missing column %q", columnAmplitude)
	}

	times := make([]float64, 0, len(rows)-1)
	samples := make([]float64, 0, len(rows)-1)
	for rowIdx := 1; rowIdx < len(rows); rowIdx++ {
		row := rows[rowIdx]
		if blank(row) {
			continue
		}
		t, err := cell(row, timeCol)
		if err != nil {
			return models.Signal{}, fmt.Errorf("row %d, column %q: %w", rowIdx+1, columnTime, err)
		}
		v, err := cell(row, ampCol)
		if err != nil {
			return models.Signal{}, fmt.Errorf("row %d, column %q: %w", rowIdx+1, columnAmplitude, err)
		}
		times = append(times, t)
		samples = append(samples, v)
	}

	if len(times) < 2 {
		return models.Signal{}, fmt.Errorf("need at least two rows to derive the sampling rate, got %d", len(times))
	}
	dt := times[1] - times[0]
	if !(dt > 0) {
		return models.Signal{}, fmt.Errorf("time column must be ascending: %g then %g", times[0], times[1])
	}
	fs := 1 / dt
	if math.IsInf(dt, 0) || math.IsInf(fs, 0) {
		return models.Signal{}, fmt.Errorf("time step %g gives no usable sampling rate", dt)
	}

	return models.Signal{Samples: samples, FS: fs}, nil
}

func cell(row []string, col int) (float64, error) {
	if col >= len(row) {
		return 0, errors.New("missing value")
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(row[col]), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite value %q", row[col])
	}
	return v, nil
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
