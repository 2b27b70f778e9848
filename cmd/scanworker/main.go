// Command scanworker is the isolated child process spawned by the parent
// Scan Source (internal/scansource). It owns whatever talks to the
// physical LiDAR and speaks the framed scanio protocol over its stdout.
// With --serial it decodes a real LD06 over its serial port
// (internal/lidarhw); otherwise it drives a synthetic rotating-rangefinder
// generator so the rest of the pipeline can be exercised without hardware.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/hyva-rover/roverbrain/internal/geom"
	"github.com/hyva-rover/roverbrain/internal/lidarhw"
	"github.com/hyva-rover/roverbrain/internal/scanio"
)

func main() {
	pointCount := flag.Int("points", 360, "points per rotation (synthetic mode only)")
	frequency := flag.Float64("frequency", 8.0, "rotations per second (synthetic mode only)")
	minRange := flag.Float64("min-range", 0.12, "minimum valid range, meters")
	maxRange := flag.Float64("max-range", 8.0, "maximum valid range, meters")
	serialPort := flag.String("serial", "", "serial device of a real LD06 LiDAR (empty = synthetic generator)")
	baudRate := flag.Int("baud", 230400, "LD06 serial baud rate")
	flag.Parse()

	log := zerolog.New(os.Stderr).With().Timestamp().Str("component", "scanworker").Logger()

	// Only the parent's Stop() may end this process; ignore interactive
	// interrupts the way the reference worker isolates itself from the
	// controlling terminal.
	signal.Ignore(syscall.SIGINT)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	if err := scanio.WriteMessage(os.Stdout, scanio.Message{Type: scanio.MsgStarted}); err != nil {
		log.Error().Err(err).Msg("write started handshake")
		os.Exit(1)
	}
	log.Info().Msg("scanworker started")

	if *serialPort != "" {
		runHardware(ctx, log, *serialPort, *baudRate, float32(*minRange), float32(*maxRange))
		return
	}
	runSynthetic(ctx, log, *pointCount, *frequency, float32(*minRange), float32(*maxRange))
}

// runHardware decodes a real LD06 LiDAR attached over a serial port.
func runHardware(ctx context.Context, log zerolog.Logger, port string, baud int, minRange, maxRange float32) {
	dev, err := lidarhw.Open(port, baud)
	if err != nil {
		_ = scanio.WriteMessage(os.Stdout, scanio.Message{Type: scanio.MsgError, Error: fmt.Sprintf("open serial: %v", err)})
		log.Error().Err(err).Str("port", port).Msg("open serial")
		return
	}
	defer dev.Close()

	t0 := time.Now()
	decoder := lidarhw.NewLD06(dev)
	err = decoder.Run(ctx, func(raw scanio.Frame) {
		raw.Timestamp = time.Since(t0).Seconds()
		frame, ok := scanio.Filter(raw.Timestamp, raw.Points, minRange, maxRange)
		if !ok {
			return
		}
		if err := scanio.WriteMessage(os.Stdout, scanio.Message{Type: scanio.MsgScan, Scan: &frame}); err != nil {
			log.Error().Err(err).Msg("write scan")
		}
	})
	if err != nil && ctx.Err() == nil {
		_ = scanio.WriteMessage(os.Stdout, scanio.Message{Type: scanio.MsgError, Error: fmt.Sprintf("lidar decode: %v", err)})
		log.Error().Err(err).Msg("lidar decode")
	}
	log.Info().Msg("scanworker stopping")
}

// runSynthetic drives the rotating-rangefinder stand-in for hardware-free
// development and tests.
func runSynthetic(ctx context.Context, log zerolog.Logger, pointCount int, frequency float64, minRange, maxRange float32) {
	period := time.Duration(float64(time.Second) / frequency)
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	rng := rand.New(rand.NewSource(1))
	t0 := time.Now()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("scanworker stopping")
			return
		case now := <-ticker.C:
			frame, ok := scanio.Filter(now.Sub(t0).Seconds(),
				syntheticRotation(pointCount, rng), minRange, maxRange)
			if !ok {
				continue
			}
			if err := scanio.WriteMessage(os.Stdout, scanio.Message{Type: scanio.MsgScan, Scan: &frame}); err != nil {
				_ = scanio.WriteMessage(os.Stdout, scanio.Message{Type: scanio.MsgError, Error: fmt.Sprintf("write scan: %v", err)})
				log.Error().Err(err).Msg("write scan")
				return
			}
		}
	}
}

// syntheticRotation generates one revolution's worth of readings for a
// robot sitting in a roughly 4m x 4m room, used in place of a real SDK
// callback.
func syntheticRotation(pointCount int, rng *rand.Rand) []scanio.Point {
	points := make([]scanio.Point, 0, pointCount)
	for i := 0; i < pointCount; i++ {
		angleDeg := float32(i)*360/float32(pointCount) - 180
		rad := angleDeg * geom.Pi32 / 180
		// Distance to the nearest wall of an axis-aligned 4m room centered
		// on the origin, along the heading-convention direction.
		dx, dy := geom.Heading(rad)
		dist := wallDistance(2.0, dx, dy)
		dist += (rng.Float32() - 0.5) * 0.02 // small sensor noise
		points = append(points, scanio.NewPoint(angleDeg, dist))
	}
	return points
}

// wallDistance returns the distance from the origin to the boundary of a
// square room of half-size half along direction (dx, dy).
func wallDistance(half, dx, dy float32) float32 {
	best := float32(1e9)
	if dx > 1e-6 {
		if d := half / dx; d < best {
			best = d
		}
	} else if dx < -1e-6 {
		if d := -half / dx; d < best {
			best = d
		}
	}
	if dy > 1e-6 {
		if d := half / dy; d < best {
			best = d
		}
	} else if dy < -1e-6 {
		if d := -half / dy; d < best {
			best = d
		}
	}
	return best
}
