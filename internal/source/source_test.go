package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"wisefido-ecg/internal/loader"
	"wisefido-ecg/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const csvBody = "Time,Amplitude\n0,0.1\n0.004,0.9\n0.008,0.2\n"

func newTestLoader() *loader.Loader {
	return loader.New(loader.DefaultOptions(), zap.NewNop())
}

func newTestHTTPSource() *HTTPSource {
	return NewHTTPSource(HTTPOptions{Timeout: 2 * time.Second, Retries: 2, RetryWait: time.Millisecond},
		newTestLoader(), zap.NewNop())
}

func TestHTTPSource_FetchByExtension(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/recordings/ecg.csv", r.URL.Path)
		_, _ = w.Write([]byte(csvBody))
	}))
	defer srv.Close()

	rec, err := newTestHTTPSource().Fetch(context.Background(), srv.URL+"/recordings/ecg.csv")
	require.NoError(t, err)
	assert.Equal(t, "ecg.csv", rec.Name)
	assert.Equal(t, models.FormatCSV, rec.Format)
	assert.InDelta(t, 250, rec.Signal.FS, 1e-9)
	assert.Len(t, rec.Signal.Samples, 3)
}

func TestHTTPSource_FetchByContentType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_, _ = w.Write([]byte(`{"fs":360,"samples":[0,1,0]}`))
	}))
	defer srv.Close()

	rec, err := newTestHTTPSource().Fetch(context.Background(), srv.URL+"/api/recordings/42")
	require.NoError(t, err)
	assert.Equal(t, models.FormatJSON, rec.Format)
	assert.Equal(t, 360.0, rec.Signal.FS)
}

func TestHTTPSource_RetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(csvBody))
	}))
	defer srv.Close()

	_, err := newTestHTTPSource().Fetch(context.Background(), srv.URL+"/ecg.csv")
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestHTTPSource_ClientError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := newTestHTTPSource().Fetch(context.Background(), srv.URL+"/missing.csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestHTTPSource_UnknownFormat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write([]byte{1, 2, 3})
	}))
	defer srv.Close()

	_, err := newTestHTTPSource().Fetch(context.Background(), srv.URL+"/blob")
	var fmtErr *models.FormatError
	assert.ErrorAs(t, err, &fmtErr)
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ecg.csv")
	require.NoError(t, os.WriteFile(path, []byte(csvBody), 0o600))

	rec, err := NewFileSource(newTestLoader()).Fetch(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "ecg.csv", rec.Name)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewFileSource(newTestLoader()).Fetch(ctx, path)
	assert.ErrorIs(t, err, context.Canceled)
}

type stubSource struct {
	refs []string
}

func (s *stubSource) Fetch(_ context.Context, ref string) (models.Recording, error) {
	s.refs = append(s.refs, ref)
	if ref == "fail" {
		return models.Recording{}, errors.New("stub failure")
	}
	return models.Recording{ID: ref}, nil
}

func TestResolver(t *testing.T) {
	file, web, cache, db := &stubSource{}, &stubSource{}, &stubSource{}, &stubSource{}
	r := NewResolver(file, web)
	r.Register("cache", cache)
	r.Register("db", db)
	ctx := context.Background()

	_, err := r.Fetch(ctx, "/data/100m.mat")
	require.NoError(t, err)
	_, err = r.Fetch(ctx, "file:///data/ecg.csv")
	require.NoError(t, err)
	_, err = r.Fetch(ctx, "https://example.org/ecg.csv")
	require.NoError(t, err)
	rec, err := r.Fetch(ctx, "cache://rec-1")
	require.NoError(t, err)
	assert.Equal(t, "rec-1", rec.ID)
	_, err = r.Fetch(ctx, "db://rec-2")
	require.NoError(t, err)

	assert.Equal(t, []string{"/data/100m.mat", "/data/ecg.csv"}, file.refs)
	assert.Equal(t, []string{"https://example.org/ecg.csv"}, web.refs)
	assert.Equal(t, []string{"rec-1"}, cache.refs)
	assert.Equal(t, []string{"rec-2"}, db.refs)

	var cfgErr *models.ConfigurationError
	_, err = r.Fetch(ctx, "s3://bucket/ecg.csv")
	assert.ErrorAs(t, err, &cfgErr)
	_, err = r.Fetch(ctx, "cache://")
	assert.ErrorAs(t, err, &cfgErr)

	_, err = NewResolver(file, nil).Fetch(ctx, "http://example.org/ecg.csv")
	assert.ErrorAs(t, err, &cfgErr)
}
