// Package loader decodes recording containers (.mat, .csv, .xlsx, .json)
// into a models.Signal.
package loader

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"wisefido-ecg/internal/models"

	"go.uber.org/zap"
)

// DefaultMatFS sampling rate assumed for .mat recordings, which carry none.
const DefaultMatFS = 360.0

// Options loader settings.
type Options struct {
	MatFS float64
}

// DefaultOptions returns the MIT-BIH sampling rate.
func DefaultOptions() Options {
	return Options{MatFS: DefaultMatFS}
}

// Loader decodes containers. Safe for concurrent use.
type Loader struct {
	opts   Options
	logger *zap.Logger
}

// New creates a loader.
func New(opts Options, logger *zap.Logger) *Loader {
	if opts.MatFS <= 0 {
		opts.MatFS = DefaultMatFS
	}
	return &Loader{opts: opts, logger: logger}
}

// FormatFor picks the container format from a file name's extension.
func FormatFor(name string) (models.Format, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	switch models.Format(ext) {
	case models.FormatMAT, models.FormatCSV, models.FormatXLSX, models.FormatJSON:
		return models.Format(ext), nil
	}
	return "", models.NewFormatError(name, fmt.Sprintf("unsupported file extension %q", filepath.Ext(name)), nil)
}

// LoadFile opens and decodes the file at path.
func (l *Loader) LoadFile(path string) (models.Recording, error) {
	format, err := FormatFor(path)
	if err != nil {
		return models.Recording{}, err
	}

	f, err := os.Open(path)
	if err != nil {
		return models.Recording{}, models.NewFormatError(path, "failed to open recording", err)
	}
	defer f.Close()

	return l.DecodeFormat(path, format, f)
}

// Decode reads a container whose format follows from name.
func (l *Loader) Decode(name string, r io.Reader) (models.Recording, error) {
	format, err := FormatFor(name)
	if err != nil {
		return models.Recording{}, err
	}
	return l.DecodeFormat(name, format, r)
}

// DecodeFormat reads a container of an explicit format.
func (l *Loader) DecodeFormat(name string, format models.Format, r io.Reader) (models.Recording, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return models.Recording{}, models.NewFormatError(name, "failed to read content", err)
	}
	return l.DecodeBytes(name, format, data)
}

// DecodeBytes decodes an in-memory container.
func (l *Loader) DecodeBytes(name string, format models.Format, data []byte) (models.Recording, error) {
	var (
		sig models.Signal
		err error
	)

	switch format {
	case models.FormatMAT:
		var samples []float64
		samples, err = decodeMAT(data, matVariable)
		sig = models.Signal{Samples: samples, FS: l.opts.MatFS}
	case models.FormatCSV:
		sig, err = decodeCSV(bytes.NewReader(data))
	case models.FormatXLSX:
		sig, err = decodeXLSX(bytes.NewReader(data))
	case models.FormatJSON:
		sig, err = decodeJSON(data)
	default:
		return models.Recording{}, models.NewFormatError(name, fmt.Sprintf("unsupported format %q", format), nil)
	}
	if err != nil {
		return models.Recording{}, models.NewFormatError(name, "failed to decode "+string(format), err)
	}
	if len(sig.Samples) == 0 {
		return models.Recording{}, models.NewFormatError(name, "recording has no samples", nil)
	}

	l.logger.Info("Recording decoded",
		zap.String("recording", filepath.Base(name)),
		zap.String("format", string(format)),
		zap.Int("sample_count", len(sig.Samples)),
		zap.Float64("fs", sig.FS),
	)

	return models.Recording{
		Name:   filepath.Base(name),
		Format: format,
		Signal: sig,
	}, nil
}

func decodeJSON(data []byte) (models.Signal, error) {
	var sig models.Signal
	if err := json.Unmarshal(data, &sig); err != nil {
		return models.Signal{}, err
	}
	if sig.FS <= 0 {
		return models.Signal{}, fmt.Errorf("fs must be positive, got %g", sig.FS)
	}
	return sig, nil
}
