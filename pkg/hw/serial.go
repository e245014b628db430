package hw

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	"go.bug.st/serial"
)

const (
	// DefaultReadTimeout is the per-call read timeout of an opened port. It
	// covers the longest gap between frames in active mode (2.3s).
	DefaultReadTimeout = 4 * time.Second

	pollTimeout = 5 * time.Millisecond
	pollSize    = 256
)

// Conn is the subset of serial.Port used by SerialPort.
type Conn interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	ResetInputBuffer() error
	SetReadTimeout(t time.Duration) error
	Close() error
}

// SerialPort adapts a serial port to pms5003.Port. Bytes pulled in while
// answering InWaiting are kept and served by later reads.
type SerialPort struct {
	conn        Conn
	readTimeout time.Duration
	timeout     time.Duration
	pending     bytes.Buffer
	scratch     []byte
	lock        sync.Mutex
}

// OpenPort opens name as an 8N1 port at baud.
func OpenPort(name string, baud int, readTimeout time.Duration) (*SerialPort, error) {
	conn, err := serial.Open(name, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	p, err := NewSerialPort(conn, readTimeout)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	return p, nil
}

// NewSerialPort wraps an opened connection.
func NewSerialPort(conn Conn, readTimeout time.Duration) (*SerialPort, error) {
	if readTimeout <= 0 {
		readTimeout = DefaultReadTimeout
	}
	p := &SerialPort{conn: conn, readTimeout: readTimeout, scratch: make([]byte, pollSize)}
	if err := p.setTimeout(readTimeout); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *SerialPort) setTimeout(t time.Duration) error {
	if p.timeout == t {
		return nil
	}
	if err := p.conn.SetReadTimeout(t); err != nil {
		return err
	}
	p.timeout = t
	return nil
}

// Read implements io.Reader. It returns 0 bytes when the read timeout
// expires without data.
func (p *SerialPort) Read(b []byte) (int, error) {
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.pending.Len() > 0 {
		return p.pending.Read(b)
	}
	if err := p.setTimeout(p.readTimeout); err != nil {
		return 0, err
	}
	return p.conn.Read(b)
}

// Write implements io.Writer.
func (p *SerialPort) Write(b []byte) (int, error) {
	return p.conn.Write(b)
}

// ResetInputBuffer drops everything received so far.
func (p *SerialPort) ResetInputBuffer() error {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.pending.Reset()
	return p.conn.ResetInputBuffer()
}

// InWaiting returns the number of bytes received and not yet read.
func (p *SerialPort) InWaiting() (int, error) {
	p.lock.Lock()
	defer p.lock.Unlock()
	if err := p.setTimeout(pollTimeout); err != nil {
		return p.pending.Len(), err
	}
	for {
		n, err := p.conn.Read(p.scratch)
		p.pending.Write(p.scratch[:n])
		if err != nil {
			return p.pending.Len(), err
		}
		if n < len(p.scratch) {
			return p.pending.Len(), nil
		}
	}
}

// Close closes the underlying port.
func (p *SerialPort) Close() error {
	return p.conn.Close()
}
