package consumer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"wisefido-ecg/internal/models"
	mqttcommon "wisefido-ecg/pkg/mqtt"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeSubscriber records the handler so tests can inject messages.
type fakeSubscriber struct {
	mu           sync.Mutex
	handlers     map[string]mqttcommon.MessageHandler
	unsubscribed []string
	subscribeErr error
}

func newFakeSubscriber() *fakeSubscriber {
	return &fakeSubscriber{handlers: make(map[string]mqttcommon.MessageHandler)}
}

func (f *fakeSubscriber) Subscribe(topic string, qos byte, handler mqttcommon.MessageHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subscribeErr != nil {
		return f.subscribeErr
	}
	f.handlers[topic] = handler
	return nil
}

func (f *fakeSubscriber) Unsubscribe(topics ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unsubscribed = append(f.unsubscribed, topics...)
	return nil
}

type fakeFetcher map[string]models.Recording

func (f fakeFetcher) Fetch(_ context.Context, id string) (models.Recording, error) {
	rec, ok := f[id]
	if !ok {
		return models.Recording{}, ErrRecordingNotFound
	}
	return rec, nil
}

type loaded struct {
	rec  models.Recording
	mode models.AnalysisMode
}

func newTestConsumer(fetcher RecordingFetcher) (*MQTTConsumer, *[]loaded) {
	var got []loaded
	load := func(_ context.Context, rec models.Recording, mode models.AnalysisMode) error {
		got = append(got, loaded{rec, mode})
		return nil
	}
	return NewMQTTConsumer(newFakeSubscriber(), "ecg/+/recording", 1, fetcher, load, nil, zap.NewNop()), &got
}

func TestMQTTConsumer_InlineRecording(t *testing.T) {
	c, got := newTestConsumer(nil)

	err := c.handleMessage("ecg/bed-12/recording", []byte(`{"name":"bedside","mode":"rate","fs":250,"samples":[0,1,0]}`))
	require.NoError(t, err)

	require.Len(t, *got, 1)
	assert.Equal(t, "bedside", (*got)[0].rec.Name)
	assert.Equal(t, models.FormatJSON, (*got)[0].rec.Format)
	assert.Equal(t, 250.0, (*got)[0].rec.Signal.FS)
	assert.Equal(t, models.ModeRate, (*got)[0].mode)
}

func TestMQTTConsumer_DefaultNameAndMode(t *testing.T) {
	c, got := newTestConsumer(nil)

	require.NoError(t, c.handleMessage("ecg/bed-12/recording", []byte(`{"fs":250,"samples":[0,1,0]}`)))
	require.Len(t, *got, 1)
	assert.Equal(t, "bed-12", (*got)[0].rec.Name)
	assert.Equal(t, models.AnalysisMode(""), (*got)[0].mode)
}

func TestMQTTConsumer_RecordingByID(t *testing.T) {
	rec := models.Recording{ID: "rec-9", Name: "100m.mat", Format: models.FormatMAT,
		Signal: models.Signal{Samples: []float64{1, 2}, FS: 360}}
	c, got := newTestConsumer(fakeFetcher{"rec-9": rec})

	require.NoError(t, c.handleMessage("ecg/bed-3/recording", []byte(`{"recording_id":"rec-9","mode":"variability"}`)))
	require.Len(t, *got, 1)
	assert.Equal(t, rec, (*got)[0].rec)
	assert.Equal(t, models.ModeVariability, (*got)[0].mode)

	err := c.handleMessage("ecg/bed-3/recording", []byte(`{"recording_id":"rec-404"}`))
	assert.ErrorIs(t, err, ErrRecordingNotFound)
}

func TestMQTTConsumer_Rejects(t *testing.T) {
	c, got := newTestConsumer(nil)

	tests := []struct {
		name    string
		topic   string
		payload string
	}{
		{"short topic", "ecg", `{}`},
		{"bad json", "ecg/a/recording", `{`},
		{"bad mode", "ecg/a/recording", `{"mode":"spectral","fs":1,"samples":[1]}`},
		{"no samples", "ecg/a/recording", `{"fs":250}`},
		{"no fs", "ecg/a/recording", `{"samples":[1,2]}`},
		{"id without store", "ecg/a/recording", `{"recording_id":"rec-1"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, c.handleMessage(tt.topic, []byte(tt.payload)))
		})
	}
	assert.Empty(t, *got)
}

type failingFetcher struct {
	err error
}

func (f failingFetcher) Fetch(context.Context, string) (models.Recording, error) {
	return models.Recording{}, f.err
}

func TestMQTTConsumer_ReportsFailuresBeforeLoad(t *testing.T) {
	var reported []error
	report := func(_ context.Context, err error) { reported = append(reported, err) }

	loadErr := errors.New("window larger than signal")
	loads := 0
	load := func(context.Context, models.Recording, models.AnalysisMode) error {
		loads++
		return loadErr
	}

	fetchErr := models.NewFormatError("cache://rec-7", "invalid cached recording", errors.New("unexpected end of JSON input"))
	c := NewMQTTConsumer(newFakeSubscriber(), "ecg/+/recording", 1, failingFetcher{err: fetchErr}, load, report, zap.NewNop())

	err := c.handleMessage("ecg/bed-1/recording", []byte(`{"recording_id":"cache://rec-7"}`))
	var fmtErr *models.FormatError
	require.ErrorAs(t, err, &fmtErr)
	require.Len(t, reported, 1)
	assert.ErrorAs(t, reported[0], &fmtErr)
	assert.Equal(t, "cache://rec-7", fmtErr.Source)

	require.Error(t, c.handleMessage("ecg/bed-1/recording", []byte(`{`)))
	require.Error(t, c.handleMessage("ecg/bed-1/recording", []byte(`{"mode":"spectral","fs":1,"samples":[1]}`)))
	require.Error(t, c.handleMessage("ecg/bed-1/recording", []byte(`{"fs":250}`)))
	assert.Len(t, reported, 4)
	assert.Zero(t, loads)

	// the monitor reports its own load failures
	err = c.handleMessage("ecg/bed-1/recording", []byte(`{"fs":250,"samples":[0,1,0]}`))
	assert.ErrorIs(t, err, loadErr)
	assert.Equal(t, 1, loads)
	assert.Len(t, reported, 4)
}

func TestMQTTConsumer_StartStop(t *testing.T) {
	sub := newFakeSubscriber()
	c := NewMQTTConsumer(sub, "ecg/+/recording", 1, nil,
		func(context.Context, models.Recording, models.AnalysisMode) error { return nil }, nil, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()

	require.Eventually(t, func() bool {
		sub.mu.Lock()
		defer sub.mu.Unlock()
		return sub.handlers["ecg/+/recording"] != nil
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop")
	}
	assert.Equal(t, []string{"ecg/+/recording"}, sub.unsubscribed)
}

func TestMQTTConsumer_SubscribeError(t *testing.T) {
	sub := newFakeSubscriber()
	sub.subscribeErr = errors.New("not connected")
	c := NewMQTTConsumer(sub, "ecg/+/recording", 1, nil, nil, nil, zap.NewNop())

	err := c.Start(context.Background())
	assert.ErrorContains(t, err, "not connected")
}
