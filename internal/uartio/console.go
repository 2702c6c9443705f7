// Package uartio adapts a host terminal to a simulated uart.Uart8250, the
// way internal/tty adapts one to the teacher's keyboard and display
// devices: raw terminal mode, a background reader goroutine, and a
// cancellation path that also recognizes the escape sequence an operator
// uses to stop the simulator from the keyboard.
package uartio

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"
	"golang.org/x/term"

	"github.com/rvvsim/rvvsim/internal/log"
	"github.com/rvvsim/rvvsim/internal/uart"
)

// ErrNoTTY is returned if standard input is not a terminal, in which case
// Console cannot put it into raw mode for character-at-a-time delivery.
var ErrNoTTY = errors.New("uartio: not a TTY")

// ErrStopRequested is the cause a Console's context is cancelled with when
// the operator types the Ctrl-A, 'x' escape at the console, mirroring the
// "Keyboard stop" exception raised by Uart8250::monitorStdin.
var ErrStopRequested = errors.New("uartio: stop requested from console")

const escapePrefix = 0x01 // Ctrl-A

// Console pumps bytes between the host terminal and a uart.Uart8250.
type Console struct {
	in    *os.File
	fd    int
	state *term.State

	dev *uart.Uart8250

	log *log.Logger
}

// NewConsole puts sin into raw, non-echoing mode and returns a Console that
// will feed dev from it. Callers must call Restore when done, after Run
// has returned.
func NewConsole(sin *os.File, dev *uart.Uart8250) (*Console, error) {
	fd := int(sin.Fd())

	if !term.IsTerminal(fd) {
		return nil, ErrNoTTY
	}

	saved, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoTTY, err)
	}

	c := &Console{
		in:    sin,
		fd:    fd,
		state: saved,
		dev:   dev,
		log:   log.DefaultLogger(),
	}

	if err := c.setTerminalParams(1, 0); err != nil {
		_ = term.Restore(fd, saved)
		return nil, err
	}

	return c, nil
}

// WithLogger attaches a logger used for console lifecycle events.
func (c *Console) WithLogger(l *log.Logger) *Console {
	c.log = l
	return c
}

// Restore returns the terminal to its initial state.
func (c *Console) Restore() {
	_ = c.in.SetReadDeadline(time.Now())
	_ = term.Restore(c.fd, c.state)
}

func (c *Console) setTerminalParams(vmin, vtime byte) error {
	_ = syscall.SetNonblock(c.fd, true)

	termIO, err := unix.IoctlGetTermios(c.fd, getTermiosIoctl)
	if err != nil {
		return err
	}

	termIO.Cc[unix.VMIN] = vmin
	termIO.Cc[unix.VTIME] = vtime

	if err := unix.IoctlSetTermios(c.fd, setTermiosIoctl, termIO); err != nil {
		return err
	}

	return c.in.SetReadDeadline(time.Time{})
}

// Run reads from the console until ctx is cancelled, pushing each byte into
// the bound uart.Uart8250's receive FIFO. It returns ErrStopRequested if the
// operator typed the Ctrl-A, 'x' stop escape, the read error otherwise, or
// nil if ctx was cancelled for an unrelated reason.
func (c *Console) Run(ctx context.Context) error {
	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return c.readInput(ctx)
	})

	return group.Wait()
}

func (c *Console) readInput(ctx context.Context) error {
	reader := bufio.NewReader(c.in)

	_ = syscall.SetNonblock(c.fd, false)

	var prev byte

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		b, err := reader.ReadByte()
		if err != nil {
			return err
		}

		if prev == escapePrefix && b == 'x' {
			c.log.Info("console stop escape received")
			return ErrStopRequested
		}

		prev = b

		c.dev.PushInput(b)
	}
}
