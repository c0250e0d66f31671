package receipt

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// Minimal valid magic numbers for content sniffing.
var (
	pngHeader  = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	jpegHeader = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F'}
)

type fakeRecognizer struct {
	text  string
	err   error
	calls int32

	mu       sync.Mutex
	inFlight int
	peak     int
	delay    time.Duration
}

func (f *fakeRecognizer) Recognize(ctx context.Context, image []byte) (string, error) {
	atomic.AddInt32(&f.calls, 1)
	f.mu.Lock()
	f.inFlight++
	if f.inFlight > f.peak {
		f.peak = f.inFlight
	}
	f.mu.Unlock()
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	f.inFlight--
	f.mu.Unlock()
	return f.text, f.err
}

func TestScanner_Scan(t *testing.T) {
	rec := &fakeRecognizer{text: "WARUNG MAKAN\nNasi 15.000\nTeh 5.000\nTOTAL Rp 20.000"}
	s := NewScanner(rec, DefaultScannerConfig(), nil)

	res, err := s.Scan(context.Background(), pngHeader)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if !res.Found {
		t.Fatalf("expected a total to be found")
	}
	if res.AmountField != "20000" {
		t.Fatalf("unexpected amount field %q", res.AmountField)
	}
	if res.Formatted != "Rp20.000" {
		t.Fatalf("unexpected formatted amount %q", res.Formatted)
	}
	if res.Text != rec.text {
		t.Fatalf("expected raw text to be returned")
	}
}

func TestScanner_NotFoundIsNotAnError(t *testing.T) {
	rec := &fakeRecognizer{text: "TERIMA KASIH"}
	s := NewScanner(rec, DefaultScannerConfig(), nil)

	res, err := s.Scan(context.Background(), jpegHeader)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if res.Found || res.AmountField != "" || !res.Amount.IsZero() {
		t.Fatalf("expected empty result, got %+v", res)
	}
}

func TestScanner_ValidateImage(t *testing.T) {
	s := NewScanner(&fakeRecognizer{}, ScannerConfig{MaxImageBytes: 32}, nil)

	tests := []struct {
		name  string
		image []byte
		err   error
	}{
		{name: "empty", image: nil, err: ErrEmptyImage},
		{name: "too large", image: append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0}, 64)...), err: ErrImageTooLarge},
		{name: "text", image: []byte("hello, this is not an image"), err: ErrUnsupportedImage},
		{name: "png", image: pngHeader, err: nil},
		{name: "jpeg", image: jpegHeader, err: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.ValidateImage(tt.image)
			if tt.err == nil {
				if err != nil {
					t.Fatalf("expected ok, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.err) {
				t.Fatalf("expected %v, got %v", tt.err, err)
			}
		})
	}
}

func TestScanner_InvalidImageSkipsRecognizer(t *testing.T) {
	rec := &fakeRecognizer{text: "TOTAL 1.000"}
	s := NewScanner(rec, DefaultScannerConfig(), nil)

	if _, err := s.Scan(context.Background(), []byte("plain text")); !errors.Is(err, ErrUnsupportedImage) {
		t.Fatalf("expected ErrUnsupportedImage, got %v", err)
	}
	if atomic.LoadInt32(&rec.calls) != 0 {
		t.Fatalf("recognizer should not be called for invalid images")
	}
}

func TestScanner_RecognizerFailure(t *testing.T) {
	rec := &fakeRecognizer{err: errors.New("quota exceeded")}
	s := NewScanner(rec, DefaultScannerConfig(), nil)

	_, err := s.Scan(context.Background(), pngHeader)
	if !errors.Is(err, ErrRecognition) {
		t.Fatalf("expected ErrRecognition, got %v", err)
	}
}

func TestScanner_BoundsConcurrency(t *testing.T) {
	rec := &fakeRecognizer{text: "TOTAL 1.000", delay: 20 * time.Millisecond}
	s := NewScanner(rec, ScannerConfig{MaxConcurrent: 2}, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Scan(context.Background(), pngHeader); err != nil {
				t.Errorf("scan: %v", err)
			}
		}()
	}
	wg.Wait()

	if rec.peak > 2 {
		t.Fatalf("expected at most 2 concurrent recognitions, saw %d", rec.peak)
	}
	if atomic.LoadInt32(&rec.calls) != 8 {
		t.Fatalf("expected 8 calls, got %d", rec.calls)
	}
}

func TestScanner_CancelledWhileWaiting(t *testing.T) {
	rec := &fakeRecognizer{text: "TOTAL 1.000"}
	s := NewScanner(rec, ScannerConfig{MaxConcurrent: 1}, nil)

	// Hold the only slot.
	if err := s.sem.Acquire(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
	defer s.sem.Release(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Scan(ctx, pngHeader); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
