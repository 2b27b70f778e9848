// Package roverconfig loads and validates the autonomy stack's runtime
// configuration: the physical constants of the platform, the LiDAR's
// connection parameters, and the planner/safety tunables.
package roverconfig

import (
	"flag"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the authoritative set of tunable constants for the autonomy
// stack. Field names match the illustrative names of the external
// interface; values below are reasonable defaults for a small indoor robot.
type Config struct {
	WheelBase  float32 `yaml:"wheel_base"`
	MaxSpeedMS float32 `yaml:"max_speed_mps"`

	GridResolution float32 `yaml:"grid_resolution"`
	GridSizeM      float32 `yaml:"grid_size_m"`

	LidarPort          string  `yaml:"lidar_port"`
	LidarBaudRate      int     `yaml:"lidar_baudrate"`
	LidarMinRange      float32 `yaml:"lidar_min_range"`
	LidarMaxRange      float32 `yaml:"lidar_max_range"`
	LidarScanFrequency float32 `yaml:"lidar_scan_frequency"`

	NavSpeed             int     `yaml:"nav_speed"`
	NavObstacleThreshold float32 `yaml:"nav_obstacle_threshold"`
	NavSectorCount       int     `yaml:"nav_sector_count"`
	NavFrontSectorHalf   int     `yaml:"nav_front_sector_half"`

	ExploreSpeed            int     `yaml:"explore_speed"`
	ExploreFrontierMinDist  float32 `yaml:"explore_frontier_min_dist"`
	ExploreCompletePct      float32 `yaml:"explore_complete_pct"`
	PoseCorrectionMinScore  int     `yaml:"pose_correction_min_score"`

	ActionSpeed int `yaml:"action_speed"`

	SafetyTimeoutSec float32 `yaml:"safety_timeout_sec"`

	MapsDir string `yaml:"maps_dir"`
	NATSURL string `yaml:"nats_url"`
}

// Default returns a Config populated with values suitable for local
// development and tests.
func Default() Config {
	return Config{
		WheelBase:  0.18,
		MaxSpeedMS: 0.6,

		GridResolution: 0.05,
		GridSizeM:      10.0,

		LidarPort:          "", // empty selects the synthetic scan generator
		LidarBaudRate:      230400,
		LidarMinRange:      0.12,
		LidarMaxRange:      8.0,
		LidarScanFrequency: 8.0,

		NavSpeed:             60,
		NavObstacleThreshold: 0.35,
		NavSectorCount:       16,
		NavFrontSectorHalf:   2,

		ExploreSpeed:           50,
		ExploreFrontierMinDist: 0.3,
		ExploreCompletePct:     90.0,
		PoseCorrectionMinScore: 10,

		ActionSpeed: 60,

		SafetyTimeoutSec: 0.8,

		MapsDir: "./maps",
		NATSURL: "nats://127.0.0.1:4222",
	}
}

// Validate checks that the configuration describes a physically sane robot.
func (c *Config) Validate() error {
	if c.WheelBase <= 0 {
		return fmt.Errorf("wheel_base must be positive")
	}
	if c.MaxSpeedMS <= 0 {
		return fmt.Errorf("max_speed_mps must be positive")
	}
	if c.GridResolution <= 0 {
		return fmt.Errorf("grid_resolution must be positive")
	}
	if c.GridSizeM <= 0 {
		return fmt.Errorf("grid_size_m must be positive")
	}
	if c.LidarMinRange <= 0 || c.LidarMaxRange <= c.LidarMinRange {
		return fmt.Errorf("lidar range bounds invalid")
	}
	if c.NavSectorCount <= 0 || c.NavSectorCount%2 != 0 {
		return fmt.Errorf("nav_sector_count must be a positive even number")
	}
	if c.NavFrontSectorHalf < 0 || c.NavFrontSectorHalf >= c.NavSectorCount/2 {
		return fmt.Errorf("nav_front_sector_half out of range")
	}
	if c.SafetyTimeoutSec <= 0 {
		return fmt.Errorf("safety_timeout_sec must be positive")
	}
	if c.MapsDir == "" {
		return fmt.Errorf("maps_dir required")
	}
	return nil
}

// Cells returns the occupancy grid's side length in cells.
func (c *Config) Cells() int {
	return int(c.GridSizeM/c.GridResolution + 0.5)
}

// Load reads a YAML config file, falling back to Default() for any field
// left unset in the file by starting from the defaults and unmarshaling
// on top.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// ParseFlags overlays command-line flags onto cfg and returns the result.
// Mirrors the --config/--urls style flags of the reference repo's cmd/nats
// tool.
func ParseFlags(args []string, cfg Config) (Config, error) {
	fs := flag.NewFlagSet("roverd", flag.ContinueOnError)
	mapsDir := fs.String("maps-dir", cfg.MapsDir, "directory to store saved maps")
	natsURL := fs.String("nats-url", cfg.NATSURL, "NATS server URL")
	lidarPort := fs.String("lidar-port", cfg.LidarPort, "serial port for the LiDAR worker")
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	cfg.MapsDir = *mapsDir
	cfg.NATSURL = *natsURL
	cfg.LidarPort = *lidarPort
	return cfg, nil
}
