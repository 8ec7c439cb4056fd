package host

import (
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/openvcam/vcamd/internal/format"
	"github.com/openvcam/vcamd/internal/pool"
)

func TestMemorySinkQueueOrderAndSequence(t *testing.T) {
	q := NewMemorySinkQueue(4)

	for i := 0; i < 3; i++ {
		seq, err := q.Submit(make([]byte, 16), 4, 2, format.PixelFormatYUYV, time.Duration(i)*time.Millisecond, false)
		if err != nil {
			t.Fatalf("Submit %d failed: %v", i, err)
		}
		if seq != uint64(i+1) {
			t.Errorf("Submit %d returned sequence %d, want %d", i, seq, i+1)
		}
	}

	if q.Depth() != 3 {
		t.Errorf("Depth = %d, want 3", q.Depth())
	}

	f, ok := q.Dequeue()
	if !ok {
		t.Fatal("Dequeue returned no frame")
	}
	if f.Sequence != 1 {
		t.Errorf("dequeued sequence %d, want 1 (FIFO)", f.Sequence)
	}
}

func TestMemorySinkQueueFull(t *testing.T) {
	q := NewMemorySinkQueue(1)

	if _, err := q.Submit(nil, 4, 2, format.PixelFormatYUYV, 0, false); err != nil {
		t.Fatalf("first Submit failed: %v", err)
	}
	if _, err := q.Submit(nil, 4, 2, format.PixelFormatYUYV, 0, false); !errors.Is(err, ErrQueueFull) {
		t.Errorf("second Submit error = %v, want ErrQueueFull", err)
	}
}

func TestMemorySinkQueueDequeueEmpty(t *testing.T) {
	q := NewMemorySinkQueue(4)
	if _, ok := q.Dequeue(); ok {
		t.Error("Dequeue on empty queue returned a frame")
	}
}

func TestMemorySinkQueueServiced(t *testing.T) {
	q := NewMemorySinkQueue(4)
	q.NotifyServiced(5)
	q.NotifyServiced(6)

	count, last := q.ServicedCount()
	if count != 2 || last != 6 {
		t.Errorf("ServicedCount = (%d, %d), want (2, 6)", count, last)
	}
}

func TestFanoutDeliversCopies(t *testing.T) {
	f := NewFanout(2, slog.Default())
	ch, id := f.Subscribe()
	defer f.Unsubscribe(id)

	frame := &pool.Frame{Data: []byte{1, 2, 3}, Width: 1, Height: 1, PixelFormat: format.PixelFormatYUYV}
	if err := f.Deliver(frame, FrameTiming{PTS: 42}); err != nil {
		t.Fatalf("Deliver failed: %v", err)
	}

	// Mutating the source after delivery must not affect the consumer.
	frame.Data[0] = 99

	d := <-ch
	if d.Data[0] != 1 {
		t.Error("delivery shares memory with the pooled frame")
	}
	if d.Timing.PTS != 42 {
		t.Errorf("delivered PTS = %v, want 42", d.Timing.PTS)
	}
}

func TestFanoutDropsForSlowConsumer(t *testing.T) {
	f := NewFanout(1, slog.Default())
	_, id := f.Subscribe()
	defer f.Unsubscribe(id)

	frame := &pool.Frame{Data: []byte{0}, Width: 1, Height: 1, PixelFormat: format.PixelFormatYUYV}
	_ = f.Deliver(frame, FrameTiming{})
	_ = f.Deliver(frame, FrameTiming{}) // buffer full, must not block

	if _, dropped := f.Stats(); dropped != 1 {
		t.Errorf("dropped = %d, want 1", dropped)
	}
}

func TestParseIdentifiers(t *testing.T) {
	ids, err := ParseIdentifiers(
		"7f9fca7e-4f2f-4b8f-9c0a-12d37a3be1f8",
		"9f8a54ce-0000-4000-8000-000000000001",
		"9f8a54ce-0000-4000-8000-000000000002",
	)
	if err != nil {
		t.Fatalf("ParseIdentifiers failed: %v", err)
	}
	if ids.Device.String() != "7f9fca7e-4f2f-4b8f-9c0a-12d37a3be1f8" {
		t.Errorf("device id round-trip mismatch: %s", ids.Device)
	}

	if _, err := ParseIdentifiers("not-a-uuid", "9f8a54ce-0000-4000-8000-000000000001", "9f8a54ce-0000-4000-8000-000000000002"); err == nil {
		t.Error("malformed device identifier should be rejected")
	}
	if _, err := ParseIdentifiers("7f9fca7e-4f2f-4b8f-9c0a-12d37a3be1f8", "", "9f8a54ce-0000-4000-8000-000000000002"); err == nil {
		t.Error("missing source stream identifier should be rejected")
	}
}
