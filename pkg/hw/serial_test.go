package hw

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	in       bytes.Buffer
	out      bytes.Buffer
	timeouts []time.Duration
	flushes  int
	closed   bool
}

func (c *fakeConn) Read(p []byte) (int, error) {
	n, _ := c.in.Read(p)
	return n, nil
}

func (c *fakeConn) Write(p []byte) (int, error) { return c.out.Write(p) }

func (c *fakeConn) ResetInputBuffer() error {
	c.flushes++
	c.in.Reset()
	return nil
}

func (c *fakeConn) SetReadTimeout(t time.Duration) error {
	if t < 0 {
		return errors.New("invalid timeout")
	}
	c.timeouts = append(c.timeouts, t)
	return nil
}

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}

func TestSerialPortInWaiting(t *testing.T) {
	conn := &fakeConn{}
	port, err := NewSerialPort(conn, 0)
	require.NoError(t, err)
	require.Equal(t, []time.Duration{DefaultReadTimeout}, conn.timeouts)

	n, err := port.InWaiting()
	require.NoError(t, err)
	require.Zero(t, n)

	data := bytes.Repeat([]byte{0x42, 0x4d}, 200)
	conn.in.Write(data)
	n, err = port.InWaiting()
	require.NoError(t, err)
	require.Equal(t, len(data), n)

	buf := make([]byte, len(data))
	n, err = port.Read(buf)
	require.NoError(t, err)
	require.Equal(t, data, buf[:n])
	require.Equal(t, []time.Duration{DefaultReadTimeout, pollTimeout}, conn.timeouts)

	conn.in.Write([]byte{1, 2, 3})
	n, err = port.Read(buf)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, buf[:n])
	require.Equal(t, []time.Duration{DefaultReadTimeout, pollTimeout, DefaultReadTimeout}, conn.timeouts)
}

func TestSerialPortResetInputBuffer(t *testing.T) {
	conn := &fakeConn{}
	port, err := NewSerialPort(conn, time.Second)
	require.NoError(t, err)
	conn.in.Write([]byte{1, 2, 3, 4})
	_, err = port.InWaiting()
	require.NoError(t, err)
	conn.in.Write([]byte{5})

	require.NoError(t, port.ResetInputBuffer())
	require.Equal(t, 1, conn.flushes)
	n, err := port.InWaiting()
	require.NoError(t, err)
	require.Zero(t, n)

	_, err = port.Write([]byte{0x42, 0x4d})
	require.NoError(t, err)
	require.Equal(t, []byte{0x42, 0x4d}, conn.out.Bytes())
	require.NoError(t, port.Close())
	require.True(t, conn.closed)
}

func TestPinEmptyName(t *testing.T) {
	pin, err := Pin("")
	require.NoError(t, err)
	require.Nil(t, pin)
}
