package dcc

import (
	"bytes"
	"io"
	"sync"
	"testing"
	"time"
)

func TestSpeedSamplerAverages(t *testing.T) {
	s := NewSpeedSampler()
	s.record(100)
	s.record(250)
	s.record(300)
	if got := s.Current(); got != 50 {
		t.Fatalf("expected current sample 50, got %d", got)
	}
	if got := s.Average(); got != 100 {
		t.Fatalf("expected average 100, got %d", got)
	}
}

func TestManagerSendByPort(t *testing.T) {
	m := NewManager()
	obs := &captureSendObserver{}
	src := bytes.NewReader([]byte("hello world"))
	send := NewUpload("file.txt", 11, false, readerAtOf(src), obs)
	m.AddSend(send, 5000)

	found, ok := m.SendByPort(5000)
	if !ok || found.ID != send.ID {
		t.Fatal("expected to find send by port")
	}

	m.RemoveSend(send.ID)
	if _, ok := m.SendByPort(5000); ok {
		t.Fatal("expected send removed from port index")
	}
}

type readerAtBytes struct{ b []byte }

func (r readerAtBytes) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(r.b)) {
		return 0, io.EOF
	}
	n := copy(p, r.b[off:])
	if off+int64(n) >= int64(len(r.b)) {
		return n, io.EOF
	}
	return n, nil
}

func readerAtOf(br *bytes.Reader) readerAtBytes {
	buf := make([]byte, br.Len())
	br.Read(buf)
	return readerAtBytes{b: buf}
}

type captureSendObserver struct {
	mu sync.Mutex
	states []SendState
	errs []error
}

func (c *captureSendObserver) SendStateChanged(s *Send, state SendState) {
	c.mu.Lock()
	c.states = append(c.states, state)
	c.mu.Unlock()
}
func (c *captureSendObserver) SendProgress(s *Send, transferred int64) {}
func (c *captureSendObserver) SendError(s *Send, err error) {
	c.mu.Lock()
	c.errs = append(c.errs, err)
	c.mu.Unlock()
}

func TestUploadDownloadLoopback(t *testing.T) {
	payload := []byte("the quick brown fox jumps over the lazy dog")
	uploadObs := &captureSendObserver{}
	upload := NewUpload("fox.txt", int64(len(payload)), false, readerAtOf(bytes.NewReader(payload)), uploadObs)

	addr, port, err := upload.Listen(PortRange{Base: 28900, Span: 50}, false)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	dest := &memWriterAt{}
	downloadObs := &captureSendObserver{}
	download := NewDownload("fox.txt", int64(len(payload)), dest, downloadObs)

	if err := download.Connect(addr, port); err != nil {
		t.Fatalf("connect: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for upload.State() != SendComplete || download.State() != SendComplete {
		select {
		case <-deadline:
			t.Fatalf("timed out: upload=%v download=%v errs=%v/%v", upload.State(), download.State(), uploadObs.errs, downloadObs.errs)
		case <-time.After(10 * time.Millisecond):
		}
	}

	dest.mu.Lock()
	got := append([]byte(nil), dest.buf...)
	dest.mu.Unlock()
	if string(got) != string(payload) {
		t.Fatalf("expected received payload to match, got %q", got)
	}
}

type memWriterAt struct {
	mu sync.Mutex
	buf []byte
}

func (w *memWriterAt) WriteAt(p []byte, off int64) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	end := off + int64(len(p))
	if int64(len(w.buf)) < end {
		grown := make([]byte, end)
		copy(grown, w.buf)
		w.buf = grown
	}
	copy(w.buf[off:end], p)
	return len(p), nil
}
