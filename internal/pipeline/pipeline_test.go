package pipeline

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"
	"time"

	"github.com/Caia-Tech/caia-ocr/internal/gate"
	"github.com/Caia-Tech/caia-ocr/pkg/extractor"
	"github.com/Caia-Tech/caia-ocr/pkg/extractor/extractortest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 1, 2, 3, 4, 5, 6000000, time.UTC)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 8, 8))
	img.SetGray(1, 1, color.Gray{Y: 200})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func pngRequest(t *testing.T, id uint64) Request {
	data := pngBytes(t)
	return Request{
		ID:   id,
		File: gate.File{Name: "hello.png", Type: "image/png", Size: int64(len(data)), Data: data},
	}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []*Event
}

func (r *recordingPublisher) Publish(event *Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingPublisher) types() []EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

func TestRunSuccess(t *testing.T) {
	factory := extractortest.NewFactory(extractortest.Script{
		Text:       "Hello   World\n",
		Confidence: 0.87,
		Steps:      []float64{0, 0.254, 0.5, 1},
		Startup: []extractor.Progress{
			{Status: extractor.StatusLoadingCore, Fraction: 1},
			{Status: extractor.StatusLoadingLanguage, Fraction: 0.5},
		},
	})
	pub := &recordingPublisher{}
	p := New(factory.New, WithPublisher(pub), WithClock(func() time.Time { return fixedNow }))

	var progress []int
	result, err := p.Run(context.Background(), pngRequest(t, 7), func(pct int) {
		progress = append(progress, pct)
	})
	require.NoError(t, err)

	assert.Equal(t, "Hello   World", result.Text)
	assert.Equal(t, 87, result.Confidence)
	assert.Equal(t, 2, result.WordCount)
	assert.Equal(t, "hello.png", result.FileName)
	assert.Equal(t, "image/png", result.FileType)
	assert.Equal(t, "2025-01-02T03:04:05.006Z", result.Timestamp)

	// Start-up statuses are not forwarded
	assert.Equal(t, []int{0, 25, 50, 100}, progress)

	assert.Equal(t, int32(1), factory.Created.Load())
	assert.Equal(t, int32(1), factory.Closed.Load())
	assert.Equal(t, []string{extractor.DefaultLanguage}, factory.Languages)

	types := pub.types()
	require.NotEmpty(t, types)
	assert.Equal(t, EventRecognitionStarted, types[0])
	assert.Equal(t, EventRecognitionCompleted, types[len(types)-1])
	assert.Contains(t, types, EventRecognitionProgress)
}

func TestRunRecognizeFailureReleasesEngine(t *testing.T) {
	boom := errors.New("tesseract exploded")
	factory := extractortest.NewFactory(extractortest.Script{RecognizeErr: boom})
	pub := &recordingPublisher{}
	p := New(factory.New, WithPublisher(pub))

	result, err := p.Run(context.Background(), pngRequest(t, 1), nil)
	assert.Nil(t, result)

	var recErr *RecognitionError
	require.ErrorAs(t, err, &recErr)
	assert.Equal(t, uint64(1), recErr.RequestID)
	assert.ErrorIs(t, err, boom)

	assert.Equal(t, int32(1), factory.Closed.Load())
	types := pub.types()
	assert.Equal(t, EventRecognitionFailed, types[len(types)-1])
}

func TestRunInitFailure(t *testing.T) {
	factory := extractortest.NewFactory(extractortest.Script{InitErr: errors.New("traineddata download failed")})
	p := New(factory.New)

	_, err := p.Run(context.Background(), pngRequest(t, 2), nil)
	var recErr *RecognitionError
	require.ErrorAs(t, err, &recErr)
	assert.Equal(t, int32(0), factory.Created.Load())
	assert.Equal(t, int32(0), factory.Closed.Load())
}

func TestRunMalformedImageNeverAcquiresEngine(t *testing.T) {
	factory := extractortest.NewFactory()
	p := New(factory.New)

	// Signature and chunk header present, IHDR cut short
	truncated := pngBytes(t)[:20]
	req := Request{ID: 3, File: gate.File{Name: "broken.png", Type: "image/png", Data: truncated}}
	_, err := p.Run(context.Background(), req, nil)
	assert.ErrorIs(t, err, gate.ErrMalformedImage)
	assert.Equal(t, int32(0), factory.Created.Load())
}

// bmpHeader builds the file and info headers of an uncompressed or RLE
// bitmap; pixel data is zero filled
func bmpHeader(bpp, compression uint16) []byte {
	const width, height = 4, 4
	rowSize := (width*int(bpp) + 31) / 32 * 4
	pixels := rowSize * height

	buf := make([]byte, 54+pixels)
	le := func(off int, v uint32) {
		buf[off] = byte(v)
		buf[off+1] = byte(v >> 8)
		buf[off+2] = byte(v >> 16)
		buf[off+3] = byte(v >> 24)
	}
	buf[0], buf[1] = 'B', 'M'
	le(2, uint32(len(buf)))
	le(10, 54)
	le(14, 40)
	le(18, width)
	le(22, height)
	buf[26] = 1
	buf[28] = byte(bpp)
	le(30, uint32(compression))
	le(34, uint32(pixels))
	return buf
}

func TestRunUndecodedBitmapReachesEngine(t *testing.T) {
	for name, data := range map[string][]byte{
		"16bpp": bmpHeader(16, 0),
		"rle8":  bmpHeader(8, 1),
	} {
		factory := extractortest.NewFactory(extractortest.Script{Text: "bitmap text", Confidence: 0.7})
		p := New(factory.New)

		req := Request{ID: 9, File: gate.File{Name: "scan.bmp", Type: "image/bmp", Data: data}}
		result, err := p.Run(context.Background(), req, nil)
		require.NoError(t, err, name)
		assert.Equal(t, "bitmap text", result.Text, name)
		assert.Equal(t, 70, result.Confidence, name)
		assert.Equal(t, int32(1), factory.Created.Load(), name)
		assert.Equal(t, int32(1), factory.Closed.Load(), name)
	}
}

func TestRunCancellationReleasesEngine(t *testing.T) {
	factory := extractortest.NewFactory(extractortest.Script{Gate: make(chan struct{})})
	p := New(factory.New)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := p.Run(ctx, pngRequest(t, 4), nil)
		done <- err
	}()

	require.Eventually(t, func() bool { return factory.Created.Load() == 1 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("run did not return after cancellation")
	}
	assert.Equal(t, int32(1), factory.Closed.Load())
}

func TestRunTimeout(t *testing.T) {
	factory := extractortest.NewFactory(extractortest.Script{Gate: make(chan struct{})})
	p := New(factory.New, WithTimeout(20*time.Millisecond))

	_, err := p.Run(context.Background(), pngRequest(t, 5), nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int32(1), factory.Closed.Load())
}

type panickyEngine struct{ closed int }

func (e *panickyEngine) Recognize(ctx context.Context, image []byte, progress extractor.ProgressFunc) (extractor.Recognition, error) {
	panic("segfault in cgo land")
}

func (e *panickyEngine) Close() error {
	e.closed++
	return nil
}

func TestRunEnginePanicIsFailure(t *testing.T) {
	engine := &panickyEngine{}
	factory := func(ctx context.Context, language string, progress extractor.ProgressFunc) (extractor.Engine, error) {
		return engine, nil
	}
	p := New(factory)

	_, err := p.Run(context.Background(), pngRequest(t, 6), nil)
	var recErr *RecognitionError
	require.ErrorAs(t, err, &recErr)
	assert.Contains(t, err.Error(), "engine panic")
	assert.Equal(t, 1, engine.closed)
}

func TestWithLanguage(t *testing.T) {
	factory := extractortest.NewFactory(extractortest.Script{Text: "x"})
	p := New(factory.New, WithLanguage("deu"))
	_, err := p.Run(context.Background(), pngRequest(t, 8), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"deu"}, factory.Languages)
}
