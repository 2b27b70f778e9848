// Command roverd is the autonomy stack's supervising process: it wires
// together the scan source, pose estimator, occupancy grid, planners,
// actuator mapper, and map store behind the event bus, and runs until
// signalled to stop.
package main

import (
	"context"
	"flag"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/hyva-rover/roverbrain/internal/action"
	"github.com/hyva-rover/roverbrain/internal/actuator"
	"github.com/hyva-rover/roverbrain/internal/events"
	"github.com/hyva-rover/roverbrain/internal/eventbus"
	"github.com/hyva-rover/roverbrain/internal/explore"
	"github.com/hyva-rover/roverbrain/internal/mapstore"
	"github.com/hyva-rover/roverbrain/internal/occupancy"
	"github.com/hyva-rover/roverbrain/internal/pose"
	"github.com/hyva-rover/roverbrain/internal/reactive"
	"github.com/hyva-rover/roverbrain/internal/roverconfig"
	"github.com/hyva-rover/roverbrain/internal/scansource"
	"github.com/hyva-rover/roverbrain/internal/supervisor"
	"github.com/hyva-rover/roverbrain/internal/telemetry"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (optional, defaults otherwise)")
	scanWorker := flag.String("scan-worker", "scanworker", "path to the scan worker binary")
	pretty := flag.Bool("pretty", false, "human-readable console logging instead of JSON")
	flag.Parse()

	log := telemetry.New(*pretty, zerolog.InfoLevel)

	cfg, err := roverconfig.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	cfg, err = roverconfig.ParseFlags(flag.Args(), cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("parse flags")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bus, err := eventbus.Dial(cfg.NATSURL)
	if err != nil {
		log.Fatal().Err(err).Str("url", cfg.NATSURL).Msg("connect to event bus")
	}
	defer bus.Close()

	maps, err := mapstore.New(cfg.MapsDir)
	if err != nil {
		log.Fatal().Err(err).Msg("open map store")
	}

	scanArgs := []string{*scanWorker,
		"--min-range", fmt.Sprintf("%f", cfg.LidarMinRange),
		"--max-range", fmt.Sprintf("%f", cfg.LidarMaxRange),
		"--frequency", fmt.Sprintf("%f", cfg.LidarScanFrequency),
	}
	if cfg.LidarPort != "" {
		scanArgs = append(scanArgs, "--serial", cfg.LidarPort, "--baud", fmt.Sprintf("%d", cfg.LidarBaudRate))
	}
	scan := scansource.New(scanArgs, telemetry.Component(log, "scansource"))
	if !scan.Start(ctx) {
		log.Fatal().Msg("scan worker failed to start")
	}
	defer scan.Stop()

	poseEstimator := pose.New(cfg.WheelBase, cfg.MaxSpeedMS)
	grid := occupancy.New(cfg.GridSizeM, cfg.GridResolution)
	reactivePlanner := reactive.New(cfg.NavSectorCount, cfg.NavObstacleThreshold, cfg.NavSpeed, cfg.NavFrontSectorHalf)
	explorePlanner := explore.New(cfg.ExploreSpeed, cfg.ExploreFrontierMinDist, cfg.ExploreCompletePct, reactivePlanner)
	mapper := actuator.New(actuator.NewLogDriver(telemetry.Component(log, "actuator")))

	sup := supervisor.New(
		telemetry.Component(log, "supervisor"),
		bus,
		scan,
		poseEstimator,
		grid,
		reactivePlanner,
		explorePlanner,
		mapper,
		maps,
		cfg.PoseCorrectionMinScore,
		cfg.ActionSpeed,
	)

	unsubs := subscribeInbound(sup, bus, log)
	defer func() {
		for _, u := range unsubs {
			u()
		}
	}()

	watchdogTimeout := time.Duration(cfg.SafetyTimeoutSec * float32(time.Second))
	go sup.RunWatchdog(ctx, watchdogTimeout)

	log.Info().Str("nats_url", cfg.NATSURL).Str("maps_dir", cfg.MapsDir).Msg("roverd started")
	<-ctx.Done()
	sup.EmergencyStop()
	log.Info().Msg("roverd stopping")
}

// subscribeInbound wires every rover.in.* event to the supervisor method
// that handles it, logging and dropping malformed payloads rather than
// taking the process down.
func subscribeInbound(sup *supervisor.Supervisor, bus eventbus.Bus, log zerolog.Logger) []eventbus.Unsubscribe {
	var unsubs []eventbus.Unsubscribe
	sub := func(subject string, u eventbus.Unsubscribe, err error) {
		if err != nil {
			log.Error().Err(err).Str("subject", subject).Msg("subscribe failed")
			return
		}
		unsubs = append(unsubs, u)
	}

	sub(events.SubjectInJoystick, eventbus.SubscribeJSON(bus, events.SubjectInJoystick, func(m events.Joystick) {
		if err := sup.HandleJoystick(m.X, m.Y); err != nil {
			log.Warn().Err(err).Msg("joystick apply failed")
		}
	}))
	sub(events.SubjectInEmergencyStop, eventbus.SubscribeJSON(bus, events.SubjectInEmergencyStop, func(events.EmergencyStop) {
		sup.EmergencyStop()
	}))
	sub(events.SubjectInStartAction, eventbus.SubscribeJSON(bus, events.SubjectInStartAction, func(m events.StartAction) {
		sup.StartAction(action.Type(m.Type))
	}))
	sub(events.SubjectInStopAction, eventbus.SubscribeJSON(bus, events.SubjectInStopAction, func(events.StopAction) {
		sup.StopAction()
	}))
	sub(events.SubjectInStartMapping, eventbus.SubscribeJSON(bus, events.SubjectInStartMapping, func(events.StartMapping) {
		sup.StartMapping()
	}))
	sub(events.SubjectInStopMapping, eventbus.SubscribeJSON(bus, events.SubjectInStopMapping, func(events.StopMapping) {
		sup.StopMapping()
	}))
	sub(events.SubjectInStartNavigation, eventbus.SubscribeJSON(bus, events.SubjectInStartNavigation, func(events.StartNavigation) {
		sup.StartNavigation()
	}))
	sub(events.SubjectInStopNavigation, eventbus.SubscribeJSON(bus, events.SubjectInStopNavigation, func(events.StopNavigation) {
		sup.StopNavigation()
	}))
	sub(events.SubjectInStartExploration, eventbus.SubscribeJSON(bus, events.SubjectInStartExploration, func(m events.StartExploration) {
		sup.StartExploration(explore.Mode(m.Mode))
	}))
	sub(events.SubjectInStopExploration, eventbus.SubscribeJSON(bus, events.SubjectInStopExploration, func(events.StopExploration) {
		sup.StopExploration()
	}))
	sub(events.SubjectInSetExploreMode, eventbus.SubscribeJSON(bus, events.SubjectInSetExploreMode, func(m events.SetExploreMode) {
		sup.SetExploreMode(explore.Mode(m.Mode))
	}))
	sub(events.SubjectInReturnToStart, eventbus.SubscribeJSON(bus, events.SubjectInReturnToStart, func(events.ReturnToStart) {
		sup.ReturnToStart()
	}))
	sub(events.SubjectInSaveMap, eventbus.SubscribeJSON(bus, events.SubjectInSaveMap, func(m events.SaveMap) {
		sup.SaveMap(m.Name)
	}))
	sub(events.SubjectInLoadMap, eventbus.SubscribeJSON(bus, events.SubjectInLoadMap, func(m events.LoadMap) {
		sup.LoadMap(m.Name)
	}))
	sub(events.SubjectInDeleteMap, eventbus.SubscribeJSON(bus, events.SubjectInDeleteMap, func(m events.DeleteMap) {
		sup.DeleteMap(m.Name)
	}))
	sub(events.SubjectInListMaps, eventbus.SubscribeJSON(bus, events.SubjectInListMaps, func(events.ListMaps) {
		sup.ListMaps()
	}))

	return unsubs
}
