package loader

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"math/bits"
	"strings"
)

// matVariable the array holding the ECG samples.
const matVariable = "val"

// Level 5 data types.
const (
	miINT8       = 1
	miUINT8      = 2
	miINT16      = 3
	miUINT16     = 4
	miINT32      = 5
	miUINT32     = 6
	miSINGLE     = 7
	miDOUBLE     = 9
	miINT64      = 12
	miUINT64     = 13
	miMATRIX     = 14
	miCOMPRESSED = 15
)

// Level 5 numeric array classes (mxDOUBLE_CLASS .. mxUINT64_CLASS).
const (
	mxDOUBLE = 6
	mxUINT64 = 15
)

const mat5HeaderLen = 128

var errVariableNotFound = errors.New("variable not found")

// decodeMAT extracts the named numeric array from a level 4 or level 5 MAT
// file. Multi-row arrays yield their first row.
func decodeMAT(data []byte, name string) ([]float64, error) {
	if len(data) >= 10 && strings.HasPrefix(string(data[:10]), "MATLAB 7.3") {
		return nil, errors.New("HDF5-based MAT files (v7.3) are not supported")
	}
	if isMAT5(data) {
		return decodeMAT5(data, name)
	}
	return decodeMAT4(data, name)
}

func isMAT5(data []byte) bool {
	if len(data) < mat5HeaderLen {
		return false
	}
	endian := string(data[126:128])
	return strings.HasPrefix(string(data[:6]), "MATLAB") && (endian == "IM" || endian == "MI")
}

// ---- level 5 ----

func decodeMAT5(data []byte, name string) ([]float64, error) {
	var order binary.ByteOrder = binary.LittleEndian
	if string(data[126:128]) == "MI" {
		order = binary.BigEndian
	}

	vals, err := findMatrix5(order, data[mat5HeaderLen:], name)
	if err != nil {
		return nil, fmt.Errorf("%q: %w", name, err)
	}
	return vals, nil
}

func findMatrix5(order binary.ByteOrder, b []byte, name string) ([]float64, error) {
	for len(b) > 0 {
		typ, payload, rest, err := readElement(order, b)
		if err != nil {
			return nil, err
		}
		b = rest

		switch typ {
		case miCOMPRESSED:
			zr, err := zlib.NewReader(bytes.NewReader(payload))
			if err != nil {
				return nil, fmt.Errorf("failed to open compressed element: %w", err)
			}
			inner, err := io.ReadAll(zr)
			zr.Close()
			if err != nil {
				return nil, fmt.Errorf("failed to inflate compressed element: %w", err)
			}
			vals, err := findMatrix5(order, inner, name)
			if errors.Is(err, errVariableNotFound) {
				continue
			}
			return vals, err
		case miMATRIX:
			varName, vals, err := parseMatrix5(order, payload)
			if varName != name {
				continue
			}
			return vals, err
		}
	}
	return nil, errVariableNotFound
}

// readElement splits off one tagged data element. Small elements pack type
// and size into the first four bytes.
func readElement(order binary.ByteOrder, b []byte) (typ uint32, payload, rest []byte, err error) {
	if len(b) < 8 {
		return 0, nil, nil, fmt.Errorf("truncated element tag (%d bytes)", len(b))
	}
	first := order.Uint32(b[0:4])
	if size := first >> 16; size != 0 {
		if size > 4 {
			return 0, nil, nil, fmt.Errorf("invalid small element size %d", size)
		}
		return first & 0xffff, b[4 : 4+size], b[8:], nil
	}

	typ = first
	size := uint64(order.Uint32(b[4:8]))
	if 8+size > uint64(len(b)) {
		return 0, nil, nil, fmt.Errorf("element of %d bytes exceeds remaining %d", size, len(b)-8)
	}
	end := 8 + size
	if typ != miCOMPRESSED {
		end = (end + 7) &^ 7
		if end > uint64(len(b)) {
			end = uint64(len(b))
		}
	}
	return typ, b[8 : 8+size], b[end:], nil
}

// parseMatrix5 returns the array name and, for numeric arrays, the samples.
func parseMatrix5(order binary.ByteOrder, b []byte) (string, []float64, error) {
	typ, flags, b, err := readElement(order, b)
	if err != nil {
		return "", nil, err
	}
	if typ != miUINT32 || len(flags) < 4 {
		return "", nil, errors.New("malformed array flags")
	}
	class := order.Uint32(flags[0:4]) & 0xff

	typ, dimBytes, b, err := readElement(order, b)
	if err != nil {
		return "", nil, err
	}
	if typ != miINT32 {
		return "", nil, errors.New("malformed dimensions")
	}
	dims := make([]int, len(dimBytes)/4)
	for i := range dims {
		dims[i] = int(int32(order.Uint32(dimBytes[4*i:])))
	}

	_, nameBytes, b, err := readElement(order, b)
	if err != nil {
		return "", nil, err
	}
	varName := string(bytes.TrimRight(nameBytes, "\x00"))

	if class < mxDOUBLE || class > mxUINT64 {
		return varName, nil, fmt.Errorf("array class %d is not numeric", class)
	}

	typ, re, _, err := readElement(order, b)
	if err != nil {
		return varName, nil, err
	}
	vals, err := numbers(order, typ, re)
	if err != nil {
		return varName, nil, err
	}
	vals, err = firstRow(vals, dims)
	return varName, vals, err
}

func numbers(order binary.ByteOrder, typ uint32, b []byte) ([]float64, error) {
	var size int
	switch typ {
	case miINT8, miUINT8:
		size = 1
	case miINT16, miUINT16:
		size = 2
	case miINT32, miUINT32, miSINGLE:
		size = 4
	case miDOUBLE, miINT64, miUINT64:
		size = 8
	default:
		return nil, fmt.Errorf("unsupported numeric data type %d", typ)
	}
	if len(b)%size != 0 {
		return nil, fmt.Errorf("data length %d is not a multiple of %d", len(b), size)
	}

	out := make([]float64, len(b)/size)
	for i := range out {
		p := b[i*size:]
		switch typ {
		case miINT8:
			out[i] = float64(int8(p[0]))
		case miUINT8:
			out[i] = float64(p[0])
		case miINT16:
			out[i] = float64(int16(order.Uint16(p)))
		case miUINT16:
			out[i] = float64(order.Uint16(p))
		case miINT32:
			out[i] = float64(int32(order.Uint32(p)))
		case miUINT32:
			out[i] = float64(order.Uint32(p))
		case miSINGLE:
			out[i] = float64(math.Float32frombits(order.Uint32(p)))
		case miDOUBLE:
			out[i] = math.Float64frombits(order.Uint64(p))
		case miINT64:
			out[i] = float64(int64(order.Uint64(p)))
		case miUINT64:
			out[i] = float64(order.Uint64(p))
		}
	}
	return out, nil
}

// firstRow squeezes a vector and takes row 0 of a column-major matrix.
func firstRow(vals []float64, dims []int) ([]float64, error) {
	if len(dims) < 2 {
		return vals, nil
	}
	mismatch := fmt.Errorf("dimensions %v do not match %d values", dims, len(vals))
	rows := dims[0]
	if rows < 0 {
		return nil, mismatch
	}
	// n never exceeds len(vals), so the product cannot overflow
	n := rows
	for _, d := range dims[1:] {
		if d < 0 || (d != 0 && n > len(vals)/d) {
			return nil, mismatch
		}
		n *= d
	}
	if n != len(vals) {
		return nil, mismatch
	}
	if rows <= 1 {
		return vals, nil
	}
	cols := n / rows
	if cols <= 1 {
		return vals, nil
	}
	out := make([]float64, cols)
	for j := range out {
		out[j] = vals[j*rows]
	}
	return out, nil
}

// ---- level 4 ----

// mat4 precision digit -> (level 5 type, byte size)
var mat4Precision = [...]struct {
	typ  uint32
	size int
}{
	{miDOUBLE, 8},
	{miSINGLE, 4},
	{miINT32, 4},
	{miINT16, 2},
	{miUINT16, 2},
	{miUINT8, 1},
}

func decodeMAT4(data []byte, name string) ([]float64, error) {
	b := data
	for len(b) > 0 {
		if len(b) < 20 {
			return nil, fmt.Errorf("truncated level 4 header (%d bytes)", len(b))
		}

		var order binary.ByteOrder = binary.LittleEndian
		mopt := order.Uint32(b[0:4])
		if mopt > 9999 {
			order = binary.BigEndian
			mopt = order.Uint32(b[0:4])
		}
		m, o, p, t := mopt/1000, mopt/100%10, mopt/10%10, mopt%10
		if m > 1 || o != 0 || int(p) >= len(mat4Precision) || t > 2 {
			return nil, fmt.Errorf("not a MAT file (type code %d)", mopt)
		}
		if (m == 1) != (order == binary.BigEndian) {
			return nil, fmt.Errorf("byte order mismatch in type code %d", mopt)
		}

		rows := uint64(order.Uint32(b[4:8]))
		cols := uint64(order.Uint32(b[8:12]))
		imag := order.Uint32(b[12:16])
		nameLen := uint64(order.Uint32(b[16:20]))
		b = b[20:]

		if nameLen > uint64(len(b)) {
			return nil, errors.New("truncated level 4 variable name")
		}
		varName := string(bytes.TrimRight(b[:nameLen], "\x00"))
		b = b[nameLen:]

		prec := mat4Precision[p]
		n, ok := mulSize(rows, cols)
		realLen, ok2 := mulSize(n, uint64(prec.size))
		total, ok3 := realLen, true
		if imag != 0 {
			total, ok3 = mulSize(realLen, 2)
		}
		if !ok || !ok2 || !ok3 {
			return nil, fmt.Errorf("level 4 variable %q is too large (%dx%d)", varName, rows, cols)
		}
		if total > uint64(len(b)) {
			return nil, fmt.Errorf("level 4 variable %q is truncated", varName)
		}
		body := b[:realLen]
		b = b[total:]

		if varName != name {
			continue
		}
		if t != 0 {
			return nil, fmt.Errorf("%q: level 4 variable is not a full numeric matrix", name)
		}
		vals, err := numbers(order, prec.typ, body)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", name, err)
		}
		return firstRow(vals, []int{int(rows), int(cols)})
	}
	return nil, fmt.Errorf("%q: %w", name, errVariableNotFound)
}

// mulSize multiplies two sizes, reporting false on overflow.
func mulSize(a, b uint64) (uint64, bool) {
	hi, lo := bits.Mul64(a, b)
	return lo, hi == 0
}
