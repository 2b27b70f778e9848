//go:build !linux

package lidarhw

import (
	"errors"
	"io"
)

type serialPort struct{}

func openSerial(device string, baud int) (*serialPort, error) {
	return nil, errors.New("lidarhw: serial LiDAR is only supported on linux")
}

func (s *serialPort) Read(p []byte) (int, error)  { return 0, io.EOF }
func (s *serialPort) Write(p []byte) (int, error) { return 0, io.EOF }
func (s *serialPort) Close() error                { return nil }
