package source

import (
	"context"
	"fmt"
	"mime"
	"net/url"
	"path"
	"time"

	"wisefido-ecg/internal/loader"
	"wisefido-ecg/internal/models"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// HTTPOptions client tuning.
type HTTPOptions struct {
	Timeout   time.Duration
	Retries   int
	RetryWait time.Duration
}

// HTTPSource downloads recording containers.
type HTTPSource struct {
	httpClient *resty.Client
	loader     *loader.Loader
	logger     *zap.Logger
}

const xlsxMediaType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func formatForMediaType(mt string) (models.Format, bool) {
	switch mt {
	case "text/csv", "application/csv":
		return models.FormatCSV, true
	case "application/json":
		return models.FormatJSON, true
	case xlsxMediaType:
		return models.FormatXLSX, true
	case "application/x-matlab-data":
		return models.FormatMAT, true
	}
	return "", false
}

// NewHTTPSource creates an HTTP source. 5xx responses are retried.
func NewHTTPSource(opts HTTPOptions, l *loader.Loader, logger *zap.Logger) *HTTPSource {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.RetryWait <= 0 {
		opts.RetryWait = time.Second
	}

	client := resty.New().
		SetTimeout(opts.Timeout).
		SetRetryCount(opts.Retries).
		SetRetryWaitTime(opts.RetryWait).
		SetRetryMaxWaitTime(5 * opts.RetryWait).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= 500
		})

	return &HTTPSource{
		httpClient: client,
		loader:     l,
		logger:     logger,
	}
}

// Fetch downloads ref and decodes it. The format comes from the URL path
// extension, falling back to the Content-Type header.
func (s *HTTPSource) Fetch(ctx context.Context, ref string) (models.Recording, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return models.Recording{}, models.NewConfigurationError("invalid recording URL %q", ref)
	}

	resp, err := s.httpClient.R().
		SetContext(ctx).
		Get(ref)
	if err != nil {
		s.logger.Error("Recording download failed",
			zap.String("url", ref),
			zap.Error(err),
		)
		return models.Recording{}, fmt.Errorf("failed to download recording: %w", err)
	}
	if resp.IsError() {
		return models.Recording{}, fmt.Errorf("failed to download recording: %s returned %d", ref, resp.StatusCode())
	}

	name := path.Base(u.Path)
	if name == "." || name == "/" {
		name = u.Host
	}
	format, err := loader.FormatFor(name)
	if err != nil {
		mt, _, perr := mime.ParseMediaType(resp.Header().Get("Content-Type"))
		f, ok := formatForMediaType(mt)
		if perr != nil || !ok {
			return models.Recording{}, err
		}
		format = f
	}

	s.logger.Info("Recording downloaded",
		zap.String("url", ref),
		zap.Int("status_code", resp.StatusCode()),
		zap.Int("bytes", len(resp.Body())),
	)
	return s.loader.DecodeBytes(name, format, resp.Body())
}
