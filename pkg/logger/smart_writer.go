package logger

import (
	"bufio"
	"bytes"
	"io"
	"sync"
	"time"
)

// Lines at these levels are never left sitting in the buffer: if the
// process dies right after logging one, the line must already be on disk.
var flushNow = [][]byte{
	[]byte(`"level":"error"`),
	[]byte(`"level":"fatal"`),
	[]byte(`"level":"panic"`),
}

// SmartWriter batches log writes behind a bufio.Writer and drains it on an
// interval, on buffer pressure, immediately for error-and-above lines, and
// on Sync/Close.
type SmartWriter struct {
	mu       sync.Mutex
	buf      *bufio.Writer
	interval time.Duration
	stop     chan struct{}
	done     chan struct{}
}

func NewSmartWriter(w io.Writer, interval time.Duration) *SmartWriter {
	sw := &SmartWriter{
		buf:      bufio.NewWriterSize(w, 256*1024),
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go sw.flushLoop()
	return sw
}

// Write implements io.Writer for zerolog's JSON output.
func (sw *SmartWriter) Write(p []byte) (int, error) {
	urgent := false
	for _, marker := range flushNow {
		if bytes.Contains(p, marker) {
			urgent = true
			break
		}
	}

	sw.mu.Lock()
	defer sw.mu.Unlock()

	n, err := sw.buf.Write(p)
	if urgent {
		_ = sw.buf.Flush()
	}
	return n, err
}

// Sync drains the buffer to the underlying writer.
func (sw *SmartWriter) Sync() error {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	return sw.buf.Flush()
}

// Close stops the flush loop and drains whatever is left.
func (sw *SmartWriter) Close() error {
	close(sw.stop)
	<-sw.done
	return sw.Sync()
}

func (sw *SmartWriter) flushLoop() {
	defer close(sw.done)
	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			sw.Sync()
		case <-sw.stop:
			return
		}
	}
}
