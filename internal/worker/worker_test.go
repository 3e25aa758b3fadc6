package worker

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"math"
	"os"
	"testing"
	"time"

	"github.com/andresmejia3/posturewatch/internal/posture"
	"github.com/andresmejia3/posturewatch/internal/types"
)

// MockCloser wraps a bytes.Buffer to satisfy io.ReadCloser and io.WriteCloser interfaces.
// This allows us to use in-memory buffers as if they were OS Pipes.
type MockCloser struct {
	*bytes.Buffer
}

func (m *MockCloser) Close() error { return nil }

func newMockWorker() (*PoseWorker, *MockCloser, *MockCloser) {
	stdinMock := &MockCloser{Buffer: new(bytes.Buffer)}
	dataPipeMock := &MockCloser{Buffer: new(bytes.Buffer)}
	w := &PoseWorker{
		ID:       1,
		Stdin:    stdinMock,
		DataPipe: dataPipeMock,
		// Cmd is nil because we aren't testing process management, just the protocol
	}
	return w, stdinMock, dataPipeMock
}

// respond queues one framed response from "Python".
func respond(pipe *MockCloser, payload []byte) {
	binary.Write(pipe, binary.BigEndian, uint32(len(payload)))
	pipe.Write(payload)
}

func okPayload(t *testing.T, raw types.RawLandmarks) []byte {
	t.Helper()
	body, err := json.Marshal(raw)
	if err != nil {
		t.Fatal(err)
	}
	return append([]byte{statusOK}, body...)
}

func TestProcessFrame(t *testing.T) {
	w, stdinMock, dataPipeMock := newMockWorker()

	raw := make(types.RawLandmarks, posture.LandmarkCount)
	for i := range raw {
		raw[i] = []float64{0.1, 0.2, -0.3}
	}
	raw[posture.Nose] = []float64{0.5, 0.25, -0.1}
	respond(dataPipeMock, okPayload(t, raw))

	inputFrame := []byte{0xFF, 0xD8, 0xBE, 0xEF, 0xFF, 0xD9}
	lm, err := w.ProcessFrame(inputFrame)
	if err != nil {
		t.Fatalf("ProcessFrame failed: %v", err)
	}

	// Verify Go sent the correct data TO Python
	sent := stdinMock.Bytes()
	if len(sent) != 4+len(inputFrame) {
		t.Fatalf("Expected %d bytes sent, got %d", 4+len(inputFrame), len(sent))
	}
	if binary.BigEndian.Uint32(sent[:4]) != uint32(len(inputFrame)) {
		t.Errorf("Length header mismatch: %v", sent[:4])
	}

	if len(lm) != posture.LandmarkCount {
		t.Fatalf("Expected %d landmarks, got %d", posture.LandmarkCount, len(lm))
	}
	nose, ok := lm.At(posture.Nose)
	if !ok || math.Abs(nose.Y-0.25) > 1e-9 {
		t.Errorf("Expected nose y 0.25, got %+v", nose)
	}
}

func TestProcessFrame_NoPerson(t *testing.T) {
	w, _, dataPipeMock := newMockWorker()
	respond(dataPipeMock, okPayload(t, types.RawLandmarks{}))

	lm, err := w.ProcessFrame([]byte("frame"))
	if err != nil {
		t.Fatalf("ProcessFrame failed: %v", err)
	}
	if lm.Present() {
		t.Errorf("Expected empty landmarks, got %d", len(lm))
	}
}

func TestProcessFrame_Partial(t *testing.T) {
	w, _, dataPipeMock := newMockWorker()
	respond(dataPipeMock, okPayload(t, types.RawLandmarks{{0.1, 0.2, 0.3}}))

	_, err := w.ProcessFrame([]byte("frame"))
	if !errors.Is(err, types.ErrPartialLandmarks) {
		t.Errorf("Expected ErrPartialLandmarks, got %v", err)
	}
}

func TestProcessFrame_Error(t *testing.T) {
	w, _, dataPipeMock := newMockWorker()

	// Protocol: [Status:1] [MsgLen] [Msg]
	payload := new(bytes.Buffer)
	payload.WriteByte(statusError)

	errMsg := "Python Exception: Import Error"
	binary.Write(payload, binary.BigEndian, uint32(len(errMsg)))
	payload.WriteString(errMsg)
	respond(dataPipeMock, payload.Bytes())

	_, err := w.ProcessFrame([]byte("frame"))
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	if err.Error() != "python worker error: "+errMsg {
		t.Errorf("Expected error message '%s', got '%v'", "python worker error: "+errMsg, err)
	}
	if !errors.Is(err, ErrFrameRejected) {
		t.Errorf("Expected ErrFrameRejected, got %v", err)
	}
}

func TestProcessFrame_Crash(t *testing.T) {
	w, _, _ := newMockWorker()

	// Nothing queued: the read hits EOF like a dead process.
	_, err := w.ProcessFrame([]byte("frame"))
	if err == nil {
		t.Fatal("Expected error from empty data pipe")
	}
	if errors.Is(err, ErrFrameRejected) {
		t.Error("A dead process must not look like a rejected frame")
	}
}

func TestProcessFrame_Garbage(t *testing.T) {
	w, _, dataPipeMock := newMockWorker()
	respond(dataPipeMock, []byte{statusOK, '{', 'x'})

	if _, err := w.ProcessFrame([]byte("frame")); err == nil {
		t.Fatal("Expected JSON error, got nil")
	}
}

func TestProcessFrame_Timeout(t *testing.T) {
	// A real pipe supports read deadlines; nothing is ever written to it,
	// like a worker stuck inside the model.
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	defer w.Close()

	worker := &PoseWorker{
		ID:       1,
		Stdin:    &MockCloser{Buffer: new(bytes.Buffer)},
		DataPipe: r,
		timeout:  50 * time.Millisecond,
	}

	start := time.Now()
	_, err = worker.ProcessFrame([]byte("frame"))
	if !errors.Is(err, ErrWorkerTimeout) {
		t.Fatalf("Expected ErrWorkerTimeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("Timeout took %s, deadline was not applied", elapsed)
	}
	if errors.Is(err, ErrFrameRejected) {
		t.Error("A timeout must not look like a rejected frame")
	}
}
