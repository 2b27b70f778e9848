// Package lidarhw decodes the LD06 LiDAR's streaming serial protocol into
// scanio frames. It talks to a real spinning LiDAR over a serial port, for
// use in place of the synthetic scan generator when one is attached.
package lidarhw

import (
	"context"
	"encoding/binary"
	"io"
	"math"
	"time"

	"github.com/hyva-rover/roverbrain/internal/scanio"
)

// packetHeader is the LD06 frame marker byte.
const packetHeader = 0x54

// LD06 streams measurement packets continuously; a rotation is complete
// once the end angle wraps back past the start of the next packet.
type LD06 struct {
	port io.ReadWriter

	buf      []byte
	points   []scanio.Point
	lastEnd  float64
	started  bool
}

// NewLD06 wraps an already-open serial port.
func NewLD06(port io.ReadWriter) *LD06 {
	return &LD06{port: port, buf: make([]byte, 0, 4096)}
}

// Run reads from the port until ctx is done, calling onFrame once per
// completed rotation. It blocks; callers should run it in its own
// goroutine.
func (d *LD06) Run(ctx context.Context, onFrame func(scanio.Frame)) error {
	tmp := make([]byte, 1024)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n, err := d.port.Read(tmp)
		if n > 0 {
			d.buf = append(d.buf, tmp[:n]...)
			for {
				consumed, frame, ok := d.consumeOnePacket()
				if consumed == 0 {
					break
				}
				d.buf = d.buf[consumed:]
				if ok {
					onFrame(frame)
				}
			}
		}
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
	}
}

// consumeOnePacket parses and removes one LD06 packet from the head of the
// buffer. It returns the number of bytes consumed (0 means "wait for more
// data"), the frame if a rotation completed with this packet, and whether
// that frame is valid.
func (d *LD06) consumeOnePacket() (int, scanio.Frame, bool) {
	i := 0
	for i < len(d.buf) && d.buf[i] != packetHeader {
		i++
	}
	if i > 0 {
		return i, scanio.Frame{}, false
	}
	if len(d.buf) < 2 {
		return 0, scanio.Frame{}, false
	}

	dataLen := int(d.buf[1])
	if dataLen == 0 || dataLen > 255 {
		return 1, scanio.Frame{}, false
	}

	packetLen := 6 + 3*dataLen + 2 + 2 + 1
	if len(d.buf) < packetLen {
		return 0, scanio.Frame{}, false
	}
	packet := d.buf[:packetLen]

	if crc8(packet[:packetLen-1]) != packet[packetLen-1] {
		return 1, scanio.Frame{}, false
	}

	startAngle := normalizeAngle(float64(binary.LittleEndian.Uint16(packet[4:6])) * 0.01)
	endAngle := normalizeAngle(float64(binary.LittleEndian.Uint16(packet[6+3*dataLen:6+3*dataLen+2])) * 0.01)

	rotationComplete := false
	if d.started {
		diff := endAngle - d.lastEnd
		if diff < -180 || startAngle > endAngle+180 {
			rotationComplete = true
		}
	} else {
		d.started = true
	}

	angleSpan := endAngle - startAngle
	if angleSpan < -180 {
		angleSpan += 360
	}
	angleStep := angleSpan / float64(dataLen)

	for i := 0; i < dataLen; i++ {
		offset := 6 + 3*i
		distMm := uint16(packet[offset]) | uint16(packet[offset+1])<<8
		angle := normalizeAngle(startAngle + angleStep*float64(i))
		if distMm == 0 {
			continue // no return at this angle
		}
		d.points = append(d.points, scanio.NewPoint(float32(angle), float32(distMm)/1000.0))
	}
	d.lastEnd = endAngle

	if !rotationComplete {
		return packetLen, scanio.Frame{}, false
	}

	frame := scanio.Frame{
		Timestamp: float64(time.Now().UnixNano()) / 1e9,
		Points:    d.points,
	}
	d.points = nil
	return packetLen, frame, true
}

func normalizeAngle(deg float64) float64 {
	deg = math.Mod(deg, 360.0)
	if deg < 0 {
		deg += 360.0
	}
	return deg
}

// crc8 is the LD06 protocol's CRC-8-CCITT (polynomial 0x31) check.
func crc8(b []byte) uint8 {
	var crc uint8
	for _, v := range b {
		crc ^= v
		for i := 0; i < 8; i++ {
			if crc&0x80 != 0 {
				crc = (crc << 1) ^ 0x31
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
