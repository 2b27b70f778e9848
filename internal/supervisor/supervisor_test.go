package supervisor

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

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

// fakeScan is a ScanSource test double with a fixed, swappable frame.
type fakeScan struct {
	frame scanio.Frame
	ok    bool
	err   error
}

func (f *fakeScan) LatestFrame() (scanio.Frame, bool) { return f.frame, f.ok }
func (f *fakeScan) Err() error                        { return f.err }

func clearFrame() scanio.Frame {
	var pts []scanio.Point
	for a := -175; a <= 180; a += 10 {
		pts = append(pts, scanio.Point{AngleDeg: float32(a), Distance: 3.0})
	}
	return scanio.Frame{Timestamp: 1.0, Points: pts}
}

func newTestSupervisor(t *testing.T) (*Supervisor, *actuator.Mock, *fakeScan) {
	mock := &actuator.Mock{}
	scan := &fakeScan{frame: clearFrame(), ok: true}
	store, err := mapstore.New(t.TempDir())
	require.NoError(t, err)
	s := New(
		zerolog.Nop(),
		eventbus.NewInProc(),
		scan,
		pose.New(0.2, 1.0),
		occupancy.New(10, 0.1),
		reactive.New(8, 0.3, 50, 1),
		explore.New(50, 0.3, 95.0, reactive.New(8, 0.3, 50, 1)),
		actuator.New(mock),
		store,
		5,
		60,
	)
	return s, mock, scan
}

func TestSupervisor_StartsInIdle(t *testing.T) {
	s, _, _ := newTestSupervisor(t)
	assert.Equal(t, ModeIdle, s.Mode())
}

func TestSupervisor_HandleJoystick_TransitionsIdleToManual(t *testing.T) {
	s, mock, _ := newTestSupervisor(t)
	require.NoError(t, s.HandleJoystick(10, 50))
	assert.Equal(t, ModeManual, s.Mode())
	require.NotEmpty(t, mock.Calls)
}

func TestSupervisor_HandleJoystick_AcceptedDuringMapping(t *testing.T) {
	s, mock, _ := newTestSupervisor(t)
	require.True(t, s.StartMapping())
	defer s.StopMapping()

	mock.Calls = nil
	require.NoError(t, s.HandleJoystick(10, 50))
	assert.Equal(t, ModeMapping, s.Mode())
	assert.NotEmpty(t, mock.Calls)
}

func TestSupervisor_HandleJoystick_IgnoredDuringNavigation(t *testing.T) {
	s, mock, _ := newTestSupervisor(t)
	require.True(t, s.StartNavigation())
	defer s.StopNavigation()

	mock.Calls = nil
	require.NoError(t, s.HandleJoystick(10, 50))
	assert.Equal(t, ModeNavigation, s.Mode())
	assert.Empty(t, mock.Calls)
}

func TestSupervisor_StartMapping_SecondCallIsNoOp(t *testing.T) {
	s, _, _ := newTestSupervisor(t)
	require.True(t, s.StartMapping())
	defer s.StopMapping()
	assert.False(t, s.StartMapping())
	assert.False(t, s.StartNavigation())
}

func TestSupervisor_StopMapping_OnlyStopsMatchingMode(t *testing.T) {
	s, _, _ := newTestSupervisor(t)
	require.True(t, s.StartMapping())
	s.StopNavigation() // wrong mode, must not touch the active loop
	assert.Equal(t, ModeMapping, s.Mode())
	s.StopMapping()
	assert.Equal(t, ModeIdle, s.Mode())
}

func TestSupervisor_EmergencyStop_ReturnsToIdleAndZerosActuator(t *testing.T) {
	s, mock, _ := newTestSupervisor(t)
	require.NoError(t, s.HandleJoystick(50, 50))
	require.Equal(t, ModeManual, s.Mode())

	mock.Calls = nil
	s.EmergencyStop()
	assert.Equal(t, ModeIdle, s.Mode())
	require.Len(t, mock.Calls, 2)
	for _, c := range mock.Calls {
		assert.Equal(t, 0, c.Speed)
	}
}

func TestSupervisor_EmergencyStop_StopsActiveLoop(t *testing.T) {
	s, _, _ := newTestSupervisor(t)
	require.True(t, s.StartNavigation())
	s.EmergencyStop()
	assert.Equal(t, ModeIdle, s.Mode())
	// Starting a fresh loop must succeed now that the old one is torn down.
	assert.True(t, s.StartMapping())
	s.StopMapping()
}

func TestSupervisor_Watchdog_StopsOnceAfterTimeout(t *testing.T) {
	s, mock, _ := newTestSupervisor(t)
	require.NoError(t, s.HandleJoystick(50, 50))

	mock.Calls = nil
	s.checkWatchdog(time.Hour) // well within timeout, must not fire yet
	assert.Empty(t, mock.Calls)

	time.Sleep(5 * time.Millisecond)
	s.checkWatchdog(1 * time.Millisecond)
	require.Len(t, mock.Calls, 2) // one Stop() == two SetSpeed calls

	mock.Calls = nil
	s.checkWatchdog(1 * time.Millisecond) // already applied, must not repeat
	assert.Empty(t, mock.Calls)
}

func TestSupervisor_Watchdog_IgnoredOutsideManualMode(t *testing.T) {
	s, mock, _ := newTestSupervisor(t)
	s.checkWatchdog(0)
	assert.Empty(t, mock.Calls)
}

func TestSupervisor_RunWatchdog_StopsOnContextCancel(t *testing.T) {
	s, _, _ := newTestSupervisor(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.RunWatchdog(ctx, time.Hour)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunWatchdog did not return after context cancellation")
	}
}

func TestSupervisor_StartExploration_SetsModeAndRunsLoop(t *testing.T) {
	s, _, _ := newTestSupervisor(t)
	require.True(t, s.StartExploration(explore.ModeExplore))
	assert.Equal(t, ModeExploration, s.Mode())
	s.StopExploration()
	assert.Equal(t, ModeIdle, s.Mode())
}

func TestSupervisor_ReturnToStart_StartsExplorationIfIdle(t *testing.T) {
	s, _, _ := newTestSupervisor(t)
	s.ReturnToStart()
	assert.Equal(t, ModeExploration, s.Mode())
	s.StopExploration()
}

func TestSupervisor_StartAction_RunsAndReturnsToIdle(t *testing.T) {
	s, mock, _ := newTestSupervisor(t)
	require.True(t, s.StartAction(action.SpinLeft))
	// Busy-check: a second maneuver must not start while one is in flight.
	assert.False(t, s.StartAction(action.SpinRight))
	s.StopAction()
	require.NotEmpty(t, mock.Calls)
	assert.Equal(t, ModeIdle, s.Mode())
}

func TestSupervisor_StartAction_RejectedDuringAutonomousMode(t *testing.T) {
	s, _, _ := newTestSupervisor(t)
	require.True(t, s.StartMapping())
	defer s.StopMapping()
	assert.False(t, s.StartAction(action.Wiggle))
}

func TestSupervisor_StartAction_UnknownTypeRejected(t *testing.T) {
	s, _, _ := newTestSupervisor(t)
	assert.False(t, s.StartAction(action.Type("not_a_real_action")))
}

func TestSupervisor_StopAction_ZerosActuator(t *testing.T) {
	s, mock, _ := newTestSupervisor(t)
	require.True(t, s.StartAction(action.Spin360))
	mock.Calls = nil
	s.StopAction()
	require.NotEmpty(t, mock.Calls)
	last := mock.Calls[len(mock.Calls)-1]
	assert.Equal(t, 0, last.Speed)
}

func TestSupervisor_MapRoundTrip_SaveListLoadDelete(t *testing.T) {
	s, _, _ := newTestSupervisor(t)

	saved := make(chan events.MapSaved, 1)
	unsub1, err := eventbus.SubscribeJSON(s.bus, events.SubjectOutMapSaved, func(m events.MapSaved) {
		saved <- m
	})
	require.NoError(t, err)
	defer unsub1()

	s.SaveMap("My Room")
	select {
	case m := <-saved:
		assert.Empty(t, m.Error)
	case <-time.After(time.Second):
		t.Fatal("expected a map_saved publish")
	}
	assert.True(t, s.maps.Exists("My Room"))

	listed := make(chan events.MapsList, 1)
	unsub2, err := eventbus.SubscribeJSON(s.bus, events.SubjectOutMapsList, func(m events.MapsList) {
		listed <- m
	})
	require.NoError(t, err)
	defer unsub2()

	s.ListMaps()
	select {
	case m := <-listed:
		require.Len(t, m.Maps, 1)
		assert.Equal(t, "my_room", m.Maps[0].Filename[:len(m.Maps[0].Filename)-len(".json")])
	case <-time.After(time.Second):
		t.Fatal("expected a maps_list publish")
	}

	loaded := make(chan events.MapLoaded, 1)
	unsub3, err := eventbus.SubscribeJSON(s.bus, events.SubjectOutMapLoaded, func(m events.MapLoaded) {
		loaded <- m
	})
	require.NoError(t, err)
	defer unsub3()

	s.LoadMap("My Room")
	select {
	case m := <-loaded:
		assert.Empty(t, m.Error)
	case <-time.After(time.Second):
		t.Fatal("expected a map_loaded publish")
	}

	deleted := make(chan events.MapDeleted, 1)
	unsub4, err := eventbus.SubscribeJSON(s.bus, events.SubjectOutMapDeleted, func(m events.MapDeleted) {
		deleted <- m
	})
	require.NoError(t, err)
	defer unsub4()

	s.DeleteMap("My Room")
	select {
	case m := <-deleted:
		assert.True(t, m.Deleted)
	case <-time.After(time.Second):
		t.Fatal("expected a map_deleted publish")
	}
	assert.False(t, s.maps.Exists("My Room"))
}

func TestSupervisor_LoadMap_MissingPublishesError(t *testing.T) {
	s, _, _ := newTestSupervisor(t)

	loaded := make(chan events.MapLoaded, 1)
	unsub, err := eventbus.SubscribeJSON(s.bus, events.SubjectOutMapLoaded, func(m events.MapLoaded) {
		loaded <- m
	})
	require.NoError(t, err)
	defer unsub()

	s.LoadMap("does_not_exist")
	select {
	case m := <-loaded:
		assert.NotEmpty(t, m.Error)
	case <-time.After(time.Second):
		t.Fatal("expected a map_loaded publish")
	}
}

func TestSupervisor_HandleJoystick_PublishesMotorStatus(t *testing.T) {
	s, _, _ := newTestSupervisor(t)

	status := make(chan events.MotorStatus, 1)
	unsub, err := eventbus.SubscribeJSON(s.bus, events.SubjectOutMotorStatus, func(m events.MotorStatus) {
		status <- m
	})
	require.NoError(t, err)
	defer unsub()

	require.NoError(t, s.HandleJoystick(0, 100))
	select {
	case m := <-status:
		assert.Equal(t, "forward", m.MotorA.Direction)
		assert.Equal(t, "forward", m.MotorB.Direction)
		assert.Equal(t, 100, m.MotorA.Speed)
		assert.Equal(t, 100, m.MotorB.Speed)
	case <-time.After(time.Second):
		t.Fatal("expected a motor_status publish from HandleJoystick")
	}
}

func TestSupervisor_EmergencyStop_PublishesZeroedMotorStatus(t *testing.T) {
	s, _, _ := newTestSupervisor(t)
	require.NoError(t, s.HandleJoystick(50, 50))

	status := make(chan events.MotorStatus, 1)
	unsub, err := eventbus.SubscribeJSON(s.bus, events.SubjectOutMotorStatus, func(m events.MotorStatus) {
		status <- m
	})
	require.NoError(t, err)
	defer unsub()

	s.EmergencyStop()
	select {
	case m := <-status:
		assert.Equal(t, "stop", m.MotorA.Direction)
		assert.Equal(t, "stop", m.MotorB.Direction)
		assert.Equal(t, 0, m.MotorA.Speed)
		assert.Equal(t, 0, m.MotorB.Speed)
	case <-time.After(time.Second):
		t.Fatal("expected a motor_status publish from EmergencyStop")
	}
}

func TestSupervisor_ControlLoop_PublishesNavStatus(t *testing.T) {
	s, _, _ := newTestSupervisor(t)
	bus := eventbus.NewInProc()
	s.bus = bus

	received := make(chan struct{}, 1)
	unsub, err := bus.Subscribe("rover.out.nav_status", func([]byte) {
		select {
		case received <- struct{}{}:
		default:
		}
	})
	require.NoError(t, err)
	defer unsub()

	require.True(t, s.StartNavigation())
	defer s.StopNavigation()

	select {
	case <-received:
	case <-time.After(2 * time.Second):
		t.Fatal("expected a nav_status publish from the running control loop")
	}
}
