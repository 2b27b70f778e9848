// Package supervisor owns mode arbitration, the per-mode control loop,
// safety watchdog, and publish cadence — the single place that ties every
// other component together (C7).
package supervisor

import (
	"context"
	"sync"
	"sync/atomic"
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
	"github.com/hyva-rover/roverbrain/internal/scanio"
)

// Mode is the supervisor's exclusive operating state.
type Mode string

const (
	ModeManual      Mode = "MANUAL"
	ModeMapping     Mode = "MAPPING"
	ModeNavigation  Mode = "NAVIGATION"
	ModeExploration Mode = "EXPLORATION"
	ModeIdle        Mode = "IDLE"
)

// loopCadence is the per-mode control loop tick period.
const loopCadence = 150 * time.Millisecond

// periodicTickEvery is N in the spec's "publish every Nth tick" scheme,
// chosen so a 150ms cadence yields a roughly 2s periodic publish.
const periodicTickEvery = 13

// ScanSource is the subset of *scansource.Source the supervisor needs.
type ScanSource interface {
	LatestFrame() (scanio.Frame, bool)
	Err() error
}

// Supervisor wires every other component together and is the sole owner of
// the active mode and the active loop's lifecycle.
type Supervisor struct {
	log   zerolog.Logger
	bus   eventbus.Bus
	scan  ScanSource
	pose  *pose.Estimator
	grid  *occupancy.Grid
	react *reactive.Planner
	expl  *explore.Planner
	mpr   *actuator.Mapper
	maps  *mapstore.Store

	poseCorrectionMinScore int
	actionSpeed            int

	mode atomic.Value // Mode

	mu         sync.Mutex
	loopCancel context.CancelFunc
	loopDone   chan struct{}

	watchdogMu      sync.Mutex
	lastJoystickAt  time.Time
	watchdogApplied bool

	startMu sync.Mutex
	start   explore.Waypoint

	actionMu     sync.Mutex
	actionCancel context.CancelFunc
	actionDone   chan struct{}

	actuationMu     sync.Mutex
	lastActuationAt time.Time
}

// New builds a Supervisor in ModeIdle.
func New(
	log zerolog.Logger,
	bus eventbus.Bus,
	scan ScanSource,
	poseEstimator *pose.Estimator,
	grid *occupancy.Grid,
	reactivePlanner *reactive.Planner,
	explorePlanner *explore.Planner,
	mapper *actuator.Mapper,
	maps *mapstore.Store,
	poseCorrectionMinScore int,
	actionSpeed int,
) *Supervisor {
	s := &Supervisor{
		log:                    log,
		bus:                    bus,
		scan:                   scan,
		pose:                   poseEstimator,
		grid:                   grid,
		react:                  reactivePlanner,
		expl:                   explorePlanner,
		mpr:                    mapper,
		maps:                   maps,
		poseCorrectionMinScore: poseCorrectionMinScore,
		actionSpeed:            actionSpeed,
	}
	s.mode.Store(ModeIdle)
	return s
}

// Mode returns the current mode.
func (s *Supervisor) Mode() Mode {
	return s.mode.Load().(Mode)
}

func (s *Supervisor) setMode(m Mode) {
	s.mode.Store(m)
	_ = eventbus.PublishJSON(s.bus, events.SubjectOutLidarState, events.LidarState{
		Mapping:    m == ModeMapping,
		Navigating: m == ModeNavigation,
		Exploring:  m == ModeExploration,
		Available:  s.scan.Err() == nil,
	})
}

// HandleJoystick applies manual joystick intent and always records the
// arrival time for the watchdog. Idle transitions to MANUAL on first
// joystick input. MAPPING also accepts the stick, since the operator
// drives the robot by hand while the mapping loop integrates scans on its
// own thread; NAVIGATION and EXPLORATION ignore it, since those modes
// drive themselves.
func (s *Supervisor) HandleJoystick(x, y int) error {
	now := time.Now()
	s.watchdogMu.Lock()
	s.lastJoystickAt = now
	s.watchdogApplied = false
	s.watchdogMu.Unlock()

	if s.Mode() == ModeIdle {
		s.setMode(ModeManual)
	}
	mode := s.Mode()
	if mode != ModeManual && mode != ModeMapping {
		return nil
	}

	s.integratePoseFromJoystick(x, y, now)
	return s.applyMotors(x, y)
}

// applyMotors drives the actuator and publishes the resulting motor state.
// Every path that commands the motors (manual, autonomous loops, canned
// actions, emergency/watchdog stop) must go through this, not s.mpr
// directly, so motor_status stays in sync with what was actually applied.
func (s *Supervisor) applyMotors(x, y int) error {
	err := s.mpr.Apply(x, y)
	left, right := actuator.Mix(x, y)
	s.publishMotorStatus(left, right)
	return err
}

// stopMotors zeros the actuator via applyMotors, mirroring actuator.Mapper's
// own Stop-is-Apply(0,0) definition.
func (s *Supervisor) stopMotors() error {
	return s.applyMotors(0, 0)
}

func (s *Supervisor) publishMotorStatus(left, right int) {
	_ = eventbus.PublishJSON(s.bus, events.SubjectOutMotorStatus, events.MotorStatus{
		MotorA: motorSideStatus(left),
		MotorB: motorSideStatus(right),
	})
}

func motorSideStatus(signed int) events.MotorSideStatus {
	return events.MotorSideStatus{Direction: motorDirection(signed), Speed: absInt(signed)}
}

func motorDirection(signed int) string {
	switch {
	case signed > 0:
		return "forward"
	case signed < 0:
		return "backward"
	default:
		return "stop"
	}
}

// integratePoseFromJoystick advances dead reckoning from the commanded
// stick axes over the time since the previous joystick command, mirroring
// the actuation-thread integration the autonomous loops perform inline.
func (s *Supervisor) integratePoseFromJoystick(x, y int, now time.Time) {
	s.actuationMu.Lock()
	prev := s.lastActuationAt
	s.lastActuationAt = now
	s.actuationMu.Unlock()

	if prev.IsZero() {
		return
	}
	dt := float32(now.Sub(prev).Seconds())
	left, right := actuator.Mix(x, y)
	s.pose.Update(float32(absInt(left)), left >= 0, float32(absInt(right)), right >= 0, dt)
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// RunWatchdog polls the time since the last manual joystick command and, if
// it exceeds timeout while in MANUAL mode, applies (0, 0) exactly once.
// Blocks until ctx is cancelled.
func (s *Supervisor) RunWatchdog(ctx context.Context, timeout time.Duration) {
	ticker := time.NewTicker(loopCadence)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.checkWatchdog(timeout)
		}
	}
}

func (s *Supervisor) checkWatchdog(timeout time.Duration) {
	if s.Mode() != ModeManual {
		return
	}
	s.watchdogMu.Lock()
	defer s.watchdogMu.Unlock()
	if s.watchdogApplied || s.lastJoystickAt.IsZero() {
		return
	}
	if time.Since(s.lastJoystickAt) < timeout {
		return
	}
	if err := s.stopMotors(); err != nil {
		s.log.Warn().Err(err).Msg("watchdog stop failed")
	}
	s.watchdogApplied = true
}

// EmergencyStop transitions to IDLE from any mode, stops the active loop and
// any running canned maneuver, zeros the actuators, and broadcasts state.
func (s *Supervisor) EmergencyStop() {
	s.stopActiveLoop()
	s.StopAction()
	_ = s.stopMotors()
	s.setMode(ModeIdle)
}

// StartMapping begins the MAPPING loop. A no-op (returns false) if any loop
// is already active.
func (s *Supervisor) StartMapping() bool { return s.startLoop(ModeMapping) }

// StopMapping stops the active loop if it is MAPPING.
func (s *Supervisor) StopMapping() { s.stopIfMode(ModeMapping) }

// StartNavigation begins the NAVIGATION loop.
func (s *Supervisor) StartNavigation() bool { return s.startLoop(ModeNavigation) }

// StopNavigation stops the active loop if it is NAVIGATION.
func (s *Supervisor) StopNavigation() { s.stopIfMode(ModeNavigation) }

// StartExploration begins the EXPLORATION loop in the given waypoint mode.
func (s *Supervisor) StartExploration(mode explore.Mode) bool {
	s.expl.SetMode(mode)
	return s.startLoop(ModeExploration)
}

// StopExploration stops the active loop if it is EXPLORATION.
func (s *Supervisor) StopExploration() { s.stopIfMode(ModeExploration) }

// SetExploreMode switches the exploration waypoint strategy without
// affecting whether a loop is running.
func (s *Supervisor) SetExploreMode(mode explore.Mode) {
	s.expl.SetMode(mode)
}

// ReturnToStart switches exploration to ModeReturn and ensures the
// exploration loop is running.
func (s *Supervisor) ReturnToStart() {
	s.expl.SetMode(explore.ModeReturn)
	if s.Mode() != ModeExploration {
		s.startLoop(ModeExploration)
	}
}

// StartAction begins a canned maneuver (spin_left, spin_right, wiggle,
// spin_360, spin_180). A no-op (returns false) if another maneuver is
// already running or an autonomous mode is active; MANUAL and IDLE are
// the only modes a maneuver may run from.
func (s *Supervisor) StartAction(t action.Type) bool {
	steps := action.Sequence(t, s.actionSpeed)
	if steps == nil {
		return false
	}
	if m := s.Mode(); m != ModeIdle && m != ModeManual {
		return false
	}

	s.actionMu.Lock()
	if s.actionCancel != nil {
		s.actionMu.Unlock()
		return false
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.actionCancel = cancel
	s.actionDone = done
	s.actionMu.Unlock()

	go s.runAction(ctx, done, steps)
	return true
}

// StopAction cancels a running maneuver, if any, and zeros the actuator.
func (s *Supervisor) StopAction() {
	s.actionMu.Lock()
	cancel := s.actionCancel
	done := s.actionDone
	s.actionMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	_ = s.stopMotors()
}

func (s *Supervisor) runAction(ctx context.Context, done chan struct{}, steps []action.Step) {
	defer close(done)
	defer func() {
		s.actionMu.Lock()
		s.actionCancel = nil
		s.actionDone = nil
		s.actionMu.Unlock()
	}()

	for _, step := range steps {
		if err := s.applyMotors(step.X, step.Y); err != nil {
			s.log.Warn().Err(err).Msg("action apply failed")
		}
		timer := time.NewTimer(step.Duration)
		select {
		case <-ctx.Done():
			timer.Stop()
			_ = s.stopMotors()
			return
		case <-timer.C:
		}
	}
	_ = s.stopMotors()
}

// SaveMap writes the current grid under name and publishes the result.
func (s *Supervisor) SaveMap(name string) {
	meta, err := s.maps.Save(s.grid, name)
	out := events.MapSaved{Name: meta.Name}
	if err != nil {
		out.Name, out.Error = name, err.Error()
	}
	_ = eventbus.PublishJSON(s.bus, events.SubjectOutMapSaved, out)
}

// LoadMap replaces the live grid with a saved one and publishes the result.
func (s *Supervisor) LoadMap(name string) {
	grid, err := s.maps.Load(name)
	out := events.MapLoaded{Name: name}
	if err != nil {
		out.Error = err.Error()
		_ = eventbus.PublishJSON(s.bus, events.SubjectOutMapLoaded, out)
		return
	}
	s.grid.ReplaceWith(grid)
	_ = eventbus.PublishJSON(s.bus, events.SubjectOutMapLoaded, out)
}

// DeleteMap removes a saved map and publishes the result.
func (s *Supervisor) DeleteMap(name string) {
	deleted, err := s.maps.Delete(name)
	out := events.MapDeleted{Name: name, Deleted: deleted}
	if err != nil {
		out.Error = err.Error()
	}
	_ = eventbus.PublishJSON(s.bus, events.SubjectOutMapDeleted, out)
}

// ListMaps publishes every saved map's metadata.
func (s *Supervisor) ListMaps() {
	metas, err := s.maps.List()
	out := events.MapsList{}
	if err != nil {
		out.Error = err.Error()
	} else {
		out.Maps = make([]events.MapMeta, len(metas))
		for i, m := range metas {
			out.Maps[i] = events.MapMeta{Name: m.Name, Filename: m.Filename, Saved: m.Saved}
		}
	}
	_ = eventbus.PublishJSON(s.bus, events.SubjectOutMapsList, out)
}

func (s *Supervisor) stopIfMode(m Mode) {
	if s.Mode() == m {
		s.stopActiveLoop()
		s.setMode(ModeIdle)
	}
}

// startLoop is a no-op (returns false, current state unchanged) if any mode
// loop is already active; any mode other than IDLE/MANUAL counts as busy.
func (s *Supervisor) startLoop(mode Mode) bool {
	s.mu.Lock()
	if s.loopCancel != nil {
		s.mu.Unlock()
		return false
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.loopCancel = cancel
	s.loopDone = done
	s.mu.Unlock()

	px, py, _ := s.pose.Pose()
	s.startMu.Lock()
	s.start = explore.Waypoint{X: px, Y: py}
	s.startMu.Unlock()

	s.setMode(mode)
	go s.runLoop(ctx, done, mode)
	return true
}

func (s *Supervisor) stopActiveLoop() {
	s.mu.Lock()
	cancel := s.loopCancel
	done := s.loopDone
	s.loopCancel = nil
	s.loopDone = nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// runLoop is the single control loop body for MAPPING/NAVIGATION/
// EXPLORATION: read frame -> correct pose -> update grid -> (plan ->
// actuate) -> publish, serialized per tick, cancellable between ticks.
func (s *Supervisor) runLoop(ctx context.Context, done chan struct{}, mode Mode) {
	defer close(done)

	ticker := time.NewTicker(loopCadence)
	defer ticker.Stop()

	var tick uint64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if err := s.scan.Err(); err != nil {
			s.log.Error().Err(err).Str("mode", string(mode)).Msg("scan source failed, returning to idle")
			_ = s.stopMotors()
			go s.stopIfMode(mode)
			return
		}

		frame, ok := s.scan.LatestFrame()
		if !ok {
			continue
		}

		scanPts := make([]occupancy.ScanPoint, len(frame.Points))
		poseScanPts := make([]pose.ScanPoint, len(frame.Points))
		for i, pt := range frame.Points {
			scanPts[i] = occupancy.ScanPoint{AngleDeg: pt.AngleDeg, Distance: pt.Distance}
			poseScanPts[i] = pose.ScanPoint{AngleDeg: pt.AngleDeg, Distance: pt.Distance}
		}

		s.pose.CorrectFromScan(s.grid, poseScanPts, s.poseCorrectionMinScore)
		px, py, ph := s.pose.Pose()
		s.grid.UpdateFromScan(px, py, ph, scanPts)
		p := pose.Sample{X: px, Y: py, Heading: ph}

		tick++

		switch mode {
		case ModeMapping:
			s.publishScan(frame)
			if tick%periodicTickEvery == 0 {
				s.publishGridUpdate(p)
			}
		case ModeNavigation:
			cmd := s.react.PlanStep(frame.Points)
			x, y := reactive.ToJoystick(cmd)
			s.actuateAndIntegrate(x, y)
			s.publishNavStatus(cmd)
			s.publishScan(frame)
			if tick%periodicTickEvery == 0 {
				s.publishGridUpdate(p)
			}
		case ModeExploration:
			s.startMu.Lock()
			start := s.start
			s.startMu.Unlock()

			cmd := s.expl.Step(s.grid, px, py, ph, frame.Points, start)
			x, y := reactive.ToJoystick(cmd)
			s.actuateAndIntegrate(x, y)
			s.publishExploreStatus()
			s.publishScan(frame)
			if tick%periodicTickEvery == 0 {
				s.publishGridUpdate(p)
			}
			if s.expl.Complete() {
				_ = s.stopMotors()
				s.publishExploreStatus()
				go s.StopExploration()
				return
			}
		}
	}
}

// actuateAndIntegrate applies a planner's joystick-style command and
// advances dead reckoning by one loop cadence, the autonomous-mode analog
// of integratePoseFromJoystick.
func (s *Supervisor) actuateAndIntegrate(x, y int) {
	if err := s.applyMotors(x, y); err != nil {
		s.log.Warn().Err(err).Msg("actuator apply failed")
	}
	left, right := actuator.Mix(x, y)
	s.pose.Update(float32(absInt(left)), left >= 0, float32(absInt(right)), right >= 0, float32(loopCadence.Seconds()))

	s.actuationMu.Lock()
	s.lastActuationAt = time.Now()
	s.actuationMu.Unlock()
}

func (s *Supervisor) publishScan(frame scanio.Frame) {
	points := frame.Points
	if len(points) > events.MaxMapDataPoints {
		points = downsample(points, events.MaxMapDataPoints)
	}
	out := make([]events.MapPoint, len(points))
	for i, p := range points {
		out[i] = events.MapPoint{X: p.X, Y: p.Y}
	}
	_ = eventbus.PublishJSON(s.bus, events.SubjectOutMapData, events.MapData{
		Points:     out,
		PointCount: len(out),
		Timestamp:  frame.Timestamp,
	})
}

func downsample(points []scanio.Point, target int) []scanio.Point {
	if target <= 0 || len(points) <= target {
		return points
	}
	out := make([]scanio.Point, 0, target)
	stride := float64(len(points)) / float64(target)
	for i := 0; i < target; i++ {
		out = append(out, points[int(float64(i)*stride)])
	}
	return out
}

func (s *Supervisor) publishGridUpdate(p pose.Sample) {
	stats := s.grid.Stats()
	hist := s.pose.Path()
	path := make([]events.PoseSample, len(hist))
	for i, sample := range hist {
		path[i] = events.PoseSample{X: sample.X, Y: sample.Y, Heading: sample.Heading}
	}

	_ = eventbus.PublishJSON(s.bus, events.SubjectOutGridUpdate, events.GridUpdate{
		Resolution: s.grid.Resolution(),
		SizeM:      s.grid.SizeM(),
		Origin:     s.grid.Origin(),
		Stats: events.GridStats{
			TotalCells:  stats.TotalCells,
			Free:        stats.Free,
			Occupied:    stats.Occupied,
			Unknown:     stats.Unknown,
			ExploredPct: stats.ExploredPct,
			ScanCount:   stats.ScanCount,
		},
		Pose: events.PoseSample{X: p.X, Y: p.Y, Heading: p.Heading},
		Path: path,
	})
}

func (s *Supervisor) publishNavStatus(cmd reactive.Command) {
	_ = eventbus.PublishJSON(s.bus, events.SubjectOutNavStatus, events.NavStatus{
		Action:          string(cmd.Action),
		Speed:           cmd.Speed,
		Steering:        cmd.Steering,
		SectorDistances: cmd.SectorDistances,
		BestSector:      cmd.BestSector,
	})
}

func (s *Supervisor) publishExploreStatus() {
	status := s.expl.StatusOf()
	stats := s.grid.Stats()
	_ = eventbus.PublishJSON(s.bus, events.SubjectOutExploreStatus, events.ExploreStatus{
		Mode:           string(status.Mode),
		Complete:       status.Complete,
		ExploredPct:    stats.ExploredPct,
		ScanCount:      stats.ScanCount,
		WaypointsTotal: status.WaypointsTotal,
		WaypointsDone:  status.WaypointsDone,
		WallCount:      stats.WallCount,
		CornerCount:    stats.CornerCount,
	})
}
