package session

import (
	"context"
	"sync"
	"testing"
	"time"
)

type recordingConn struct {
	mu     sync.Mutex
	writes [][]byte
}

func (r *recordingConn) Write(b []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := append([]byte(nil), b...)
	r.writes = append(r.writes, cp)
	return len(b), nil
}
func (r *recordingConn) Read(b []byte) (int, error) { return 0, nil }
func (r *recordingConn) Close() error                { return nil }

func (r *recordingConn) snapshot() [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]byte(nil), r.writes...)
}

func TestBatcherFlushesOnFrameCount(t *testing.T) {
	conn := &recordingConn{}
	b := NewBatcher(conn, 2, DefaultBatchMaxBytes, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()

	f1 := Frame{Type: FrameData, SessionID: 1, Sequence: 1, Payload: []byte("a")}.Encode()
	f2 := Frame{Type: FrameData, SessionID: 1, Sequence: 2, Payload: []byte("b")}.Encode()
	b.Enqueue(f1)
	b.Enqueue(f2)

	deadline := time.After(time.Second)
	for b.FlushCount() == 0 {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for flush")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	cancel()
	<-done

	writes := conn.snapshot()
	if len(writes) == 0 {
		t.Fatal("expected at least one write")
	}
	if len(writes[0]) != len(f1)+len(f2) {
		t.Errorf("first write length = %d, want %d (two frames concatenated)", len(writes[0]), len(f1)+len(f2))
	}
}

func TestBatcherFlushesOnTimer(t *testing.T) {
	conn := &recordingConn{}
	b := NewBatcher(conn, 32, DefaultBatchMaxBytes, 2*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()

	f := Frame{Type: FrameData, SessionID: 1, Sequence: 1, Payload: []byte("a")}.Encode()
	b.Enqueue(f)

	deadline := time.After(time.Second)
	for b.FlushCount() == 0 {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for timer-driven flush")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	cancel()
	<-done
}
