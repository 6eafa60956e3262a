package logging

import (
	"os"
	"sync"
	"sync/atomic"
)

// AsyncWriter hands lines to a background goroutine so logging never blocks
// the gateway handlers. Lines are dropped when the buffer is full.
type AsyncWriter struct {
	buffer    chan []byte
	file      *os.File
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
	dropped   atomic.Uint64
}

func NewAsyncWriter(path string, bufferSize int) (*AsyncWriter, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}

	aw := &AsyncWriter{
		buffer: make(chan []byte, bufferSize),
		file:   file,
		done:   make(chan struct{}),
	}

	aw.wg.Add(1)
	go aw.writeLoop()

	return aw, nil
}

// Write copies p; zerolog reuses its buffers after Write returns.
func (aw *AsyncWriter) Write(p []byte) (int, error) {
	data := make([]byte, len(p))
	copy(data, p)

	select {
	case aw.buffer <- data:
	default:
		aw.dropped.Add(1)
	}
	return len(p), nil
}

// Dropped counts lines discarded because the buffer was full.
func (aw *AsyncWriter) Dropped() uint64 {
	return aw.dropped.Load()
}

func (aw *AsyncWriter) writeLoop() {
	defer aw.wg.Done()
	for {
		select {
		case data := <-aw.buffer:
			aw.file.Write(data)
		case <-aw.done:
			for len(aw.buffer) > 0 {
				data := <-aw.buffer
				aw.file.Write(data)
			}
			return
		}
	}
}

func (aw *AsyncWriter) Close() error {
	var err error
	aw.closeOnce.Do(func() {
		close(aw.done)
		aw.wg.Wait()
		err = aw.file.Close()
	})
	return err
}
