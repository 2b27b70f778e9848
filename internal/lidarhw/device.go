package lidarhw

import "io"

// Device is an opened serial LiDAR ready to be wrapped in an LD06 decoder.
type Device struct {
	io.ReadWriteCloser
}

// Open opens the serial port at device (e.g. /dev/ttyUSB0) at baud bits/s.
func Open(device string, baud int) (*Device, error) {
	port, err := openSerial(device, baud)
	if err != nil {
		return nil, err
	}
	return &Device{port}, nil
}
