package internal

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/sweeney/phasecut/internal/command"
	"github.com/sweeney/phasecut/internal/gpio"
	"github.com/sweeney/phasecut/internal/mqtt"
	"github.com/sweeney/phasecut/internal/phase"
	"github.com/sweeney/phasecut/internal/timer"
)

// system is the whole daemon on fakes, driven from a single goroutine.
// Commands are applied synchronously as the transport delivers them.
type system struct {
	t         *testing.T
	cal       phase.Calibration
	out       *gpio.FakeOutputs
	tmr       *timer.FakeTimer
	zc        *gpio.FakeZeroCross
	ctrl      *phase.Controller
	transport *mqtt.FakeTransport
	mgr       *mqtt.Manager
	tel       *mqtt.Telemetry
	topics    mqtt.Topics
	edges     int
	wall      time.Time
}

func newSystem(t *testing.T) *system {
	t.Helper()
	cal := phase.DefaultCalibration
	tmr := timer.NewFakeTimer(cal.TickPeriod)
	out := gpio.NewFakeOutputs(4)
	out.Now = tmr.Now
	duty := &phase.DutyStore{}
	ctrl := phase.NewController(cal, duty, out, tmr)
	tmr.Handler = ctrl.Expire

	handler := command.NewHandler(duty, "pwr", phase.MaxDuty)
	onMessage := func(topic string, payload []byte) {
		handler.Handle(command.Message{Topic: topic, Payload: payload})
	}

	topics := mqtt.TopicsFor("pwr")
	transport := mqtt.NewFakeTransport()
	mgr := mqtt.NewManager(transport, topics, ctrl, onMessage)
	return &system{
		t:         t,
		cal:       cal,
		out:       out,
		tmr:       tmr,
		zc:        gpio.NewFakeZeroCross(ctrl.ZeroCross),
		ctrl:      ctrl,
		transport: transport,
		mgr:       mgr,
		tel:       mqtt.NewTelemetry(transport, mgr, topics, ctrl),
		topics:    topics,
		wall:      time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

// second runs one telemetry period: 100 half-cycles at 50Hz, then the
// mainline tick.
func (s *system) second() {
	for i := 0; i < 100; i++ {
		s.tmr.AdvanceTo(time.Duration(s.edges) * s.cal.HalfCycle)
		s.edges++
		s.zc.Edge()
	}
	s.tmr.AdvanceTo(time.Duration(s.edges) * s.cal.HalfCycle)
	s.wall = s.wall.Add(time.Second)
	s.mgr.Step(s.wall)
	s.tel.Tick(s.wall)
}

func (s *system) command(payload string) {
	s.t.Helper()
	if !s.transport.Deliver("cmnd/pwr/power", []byte(payload)) {
		s.t.Fatal("command topic not subscribed")
	}
}

func (s *system) lastPower() mqtt.Record {
	s.t.Helper()
	pubs := s.transport.PublishedTo(s.topics.Power)
	if len(pubs) == 0 {
		s.t.Fatal("no power records")
	}
	var r mqtt.Record
	if err := json.Unmarshal(pubs[len(pubs)-1].Payload, &r); err != nil {
		s.t.Fatalf("decode power record: %v", err)
	}
	return r
}

// windows returns the on-time of every completed window since the last Reset.
func (s *system) windows() []time.Duration {
	var out []time.Duration
	var start time.Duration
	for _, w := range s.out.Writes {
		if w.On {
			start = w.At
		} else {
			out = append(out, w.At-start)
		}
	}
	return out
}

// TestIntegrationFullFlow drives a duty ramp through the broker and checks
// the output windows and the telemetry that reports them.
func TestIntegrationFullFlow(t *testing.T) {
	s := newSystem(t)

	s.mgr.Step(s.wall)
	if !s.mgr.IsConnected() {
		t.Fatal("expected connection on first step")
	}

	// Duty 0: outputs never asserted, loops do not advance.
	s.second()
	if s.out.Asserts() != 0 {
		t.Errorf("duty 0: got %d asserts", s.out.Asserts())
	}
	if r := s.lastPower(); r.Duty != 0 || *r.Loops != 0 {
		t.Errorf("duty 0 record: got duty %d loops %d", r.Duty, *r.Loops)
	}

	steps := []struct {
		payload string
		duty    uint32
		window  time.Duration
	}{
		{`{"duty":250}`, 250, 2500 * time.Microsecond},
		{`{"duty":1}`, 1, 10 * time.Microsecond},
		{`{"duty":999}`, 999, 9990 * time.Microsecond},
		{`{"duty":1000}`, 1000, 10 * time.Millisecond},
	}

	loops := uint32(0)
	for _, st := range steps {
		s.command(st.payload)
		s.out.Reset()
		s.second()
		loops += 100

		ws := s.windows()
		if len(ws) != 100 {
			t.Fatalf("duty %d: got %d windows, want 100", st.duty, len(ws))
		}
		for i, w := range ws {
			if w != st.window {
				t.Fatalf("duty %d window %d: got %v, want %v", st.duty, i, w, st.window)
			}
		}

		r := s.lastPower()
		if r.Duty != st.duty {
			t.Errorf("record duty: got %d, want %d", r.Duty, st.duty)
		}
		if *r.Loops != loops {
			t.Errorf("record loops: got %d, want %d", *r.Loops, loops)
		}
	}

	// Rejected command leaves the engine alone.
	s.command(`{"duty":1001}`)
	s.second()
	if r := s.lastPower(); r.Duty != phase.MaxDuty {
		t.Errorf("rejected command changed duty to %d", r.Duty)
	}

	// Back to zero stops the outputs.
	s.command(`{"duty":0}`)
	s.out.Reset()
	s.second()
	if s.out.Asserts() != 0 {
		t.Errorf("duty 0 after full: got %d asserts", s.out.Asserts())
	}
	if on, _ := s.out.State(); on {
		t.Error("outputs left asserted")
	}
	if s.ctrl.Overruns() != 0 || s.ctrl.Faults() != 0 {
		t.Errorf("overruns %d faults %d, want none", s.ctrl.Overruns(), s.ctrl.Faults())
	}

	if n := len(s.transport.PublishedTo(s.topics.Init)); n != 1 {
		t.Errorf("expected 1 init record, got %d", n)
	}
}

// TestIntegrationLateTimerNeverStuckOn checks that a timer firing past the
// next edge cannot leave the outputs on into the following half-cycle.
func TestIntegrationLateTimerNeverStuckOn(t *testing.T) {
	s := newSystem(t)
	s.mgr.Step(s.wall)

	s.command(`{"duty":1000}`)
	s.tmr.Latency = 50 * time.Microsecond
	s.second()

	// Every window but the last is cut short by the edge that follows it.
	if got := s.ctrl.Overruns(); got != 99 {
		t.Errorf("overruns: got %d, want 99", got)
	}
	for i, w := range s.out.Writes {
		if !w.On && w.At%s.cal.HalfCycle != 0 {
			t.Fatalf("write %d: de-asserted at %v, not at an edge", i, w.At)
		}
	}
	if len(s.tmr.Fired) != 0 {
		t.Errorf("late expiries should never be delivered, got %d", len(s.tmr.Fired))
	}
	if r := s.lastPower(); *r.Loops != 99 {
		// The last window is still armed when the tick samples loops.
		t.Errorf("loops: got %d, want 99", *r.Loops)
	}
}

// TestIntegrationBrokerOutage checks that the engine keeps running while the
// broker is away and telemetry resumes without replaying missed records.
func TestIntegrationBrokerOutage(t *testing.T) {
	s := newSystem(t)
	s.mgr.Step(s.wall)
	s.command(`{"duty":500}`)

	s.second()
	before := len(s.transport.PublishedTo(s.topics.Power))

	s.transport.ConnectErrors = make([]error, s.transport.Connects)
	s.transport.ConnectErrors = append(s.transport.ConnectErrors, errRefused{})
	s.transport.Drop()
	for i := 0; i < 8; i++ {
		s.second()
	}

	if got := s.ctrl.Loops(); got != 900 {
		t.Errorf("engine stalled during outage: %d loops, want 900", got)
	}
	after := len(s.transport.PublishedTo(s.topics.Power))
	if after-before >= 8 {
		t.Errorf("expected gaps in telemetry during outage, got %d new records", after-before)
	}
	if !s.mgr.IsConnected() {
		t.Fatalf("expected reconnection, state %v", s.mgr.State())
	}
	if n := len(s.transport.PublishedTo(s.topics.Init)); n != 2 {
		t.Errorf("expected an init record per connection, got %d", n)
	}

	// Commands still arrive after the reconnect.
	s.command(`{"duty":100}`)
	s.second()
	if r := s.lastPower(); r.Duty != 100 {
		t.Errorf("duty after reconnect: got %d, want 100", r.Duty)
	}
}

type errRefused struct{}

func (errRefused) Error() string { return "connection refused" }
