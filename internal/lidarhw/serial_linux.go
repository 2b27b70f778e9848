//go:build linux

package lidarhw

import (
	"fmt"
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// serialPort is a blocking, raw-mode serial connection to a LiDAR attached
// over USB-serial or UART.
type serialPort struct {
	file *os.File
}

// openSerial opens device at the given baud rate in 8N1, raw mode.
func openSerial(device string, baud int) (*serialPort, error) {
	file, err := os.OpenFile(device, os.O_RDWR|syscall.O_NOCTTY, 0)
	if err != nil {
		return nil, fmt.Errorf("open serial device %s: %w", device, err)
	}

	termios, err := unix.IoctlGetTermios(int(file.Fd()), unix.TCGETS)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("get termios: %w", err)
	}

	speed := baudRateConstant(baud)
	termios.Cflag &^= unix.CBAUD
	if speed != 0 {
		termios.Cflag |= speed
		termios.Ispeed, termios.Ospeed = speed, speed
	} else {
		termios.Cflag |= unix.BOTHER
		termios.Ispeed, termios.Ospeed = uint32(baud), uint32(baud)
	}

	termios.Cflag &^= unix.CSIZE | unix.PARENB | unix.CSTOPB
	termios.Cflag |= unix.CS8 | unix.CREAD | unix.CLOCAL
	termios.Lflag &^= unix.ICANON | unix.ECHO | unix.ECHOE | unix.ISIG
	termios.Cc[unix.VMIN] = 0
	termios.Cc[unix.VTIME] = 1

	if err := unix.IoctlSetTermios(int(file.Fd()), unix.TCSETS, termios); err != nil {
		file.Close()
		return nil, fmt.Errorf("set termios: %w", err)
	}

	return &serialPort{file: file}, nil
}

func (s *serialPort) Read(p []byte) (int, error) {
	n, err := s.file.Read(p)
	if err != nil && n == 0 {
		return 0, nil
	}
	return n, err
}

func (s *serialPort) Write(p []byte) (int, error) { return s.file.Write(p) }
func (s *serialPort) Close() error                { return s.file.Close() }

func baudRateConstant(baud int) uint32 {
	switch baud {
	case 9600:
		return unix.B9600
	case 19200:
		return unix.B19200
	case 38400:
		return unix.B38400
	case 57600:
		return unix.B57600
	case 115200:
		return unix.B115200
	case 230400:
		return unix.B230400
	case 460800:
		return unix.B460800
	case 921600:
		return unix.B921600
	default:
		return 0
	}
}
