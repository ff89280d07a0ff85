// Command phasecut drives a TRIAC/SSR gate with phase-cut control from the
// AC zero-cross and takes its duty cycle from MQTT.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sweeney/phasecut/internal/command"
	"github.com/sweeney/phasecut/internal/config"
	"github.com/sweeney/phasecut/internal/gpio"
	"github.com/sweeney/phasecut/internal/mqtt"
	"github.com/sweeney/phasecut/internal/phase"
	"github.com/sweeney/phasecut/internal/status"
	"github.com/sweeney/phasecut/internal/timer"
	"github.com/sweeney/phasecut/internal/web"
)

func main() {
	cfg, err := config.Load(os.Args[0], os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}

	if err := run(cfg); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(cfg config.Config) error {
	loc, err := cfg.Location()
	if err != nil {
		log.Printf("warning: time zone %q: %v, using UTC", cfg.Timezone, err)
		loc = time.UTC
	}
	cal := cfg.Calibration()

	// Hardware setup order matters: everything the edge handler touches must
	// exist before the zero-cross line is requested.
	outputs, err := gpio.NewRealOutputs(cfg.Chip, cfg.OutputPins)
	if err != nil {
		return fmt.Errorf("init outputs: %w", err)
	}
	defer outputs.Close()

	tmr, err := timer.NewRealTimer(cal.TickPeriod)
	if err != nil {
		return fmt.Errorf("init timer: %w", err)
	}
	defer tmr.Close()

	duty := &phase.DutyStore{}
	ctrl := phase.NewController(cal, duty, outputs, tmr)
	tmr.Run(ctrl.Expire)

	zc, err := gpio.NewRealZeroCross(cfg.Chip, cfg.ZeroCrossPin, ctrl.ZeroCross)
	if err != nil {
		return fmt.Errorf("init zero-cross: %w", err)
	}
	defer func() {
		if err := zc.Close(); err != nil {
			log.Printf("close zero-cross: %v", err)
		}
		if err := ctrl.Stop(); err != nil {
			log.Printf("deassert outputs: %v", err)
		}
	}()

	// Initialize MQTT
	topics := mqtt.TopicsFor(cfg.Device)
	transport := mqtt.NewRealTransport(cfg.Broker, cfg.Device, topics)
	defer transport.Close()

	msgs := make(chan command.Message, 16)
	mgr := mqtt.NewManager(transport, topics, ctrl, forwardCommands(msgs))

	tracker := status.NewTracker(time.Now(), statusConfig(cfg))

	// The status page is optional; failing to bind it does not stop power control.
	if cfg.HTTPAddr != "" {
		srv, err := web.Listen(cfg.HTTPAddr, tracker)
		if err != nil {
			log.Printf("warning: status page disabled: %v", err)
		} else {
			go func() {
				if err := srv.Serve(); err != nil && err != http.ErrServerClosed {
					log.Printf("http server error: %v", err)
				}
			}()
			defer srv.Shutdown(context.Background())
			log.Printf("http status server listening on %s", srv.Addr())
		}
	}

	log.Printf("started: device=%s broker=%s zero-cross=%d outputs=%v half-cycle=%v tick=%v",
		cfg.Device, cfg.Broker, cfg.ZeroCrossPin, cfg.OutputPins, cal.HalfCycle, cal.TickPeriod)

	ticker := time.NewTicker(mqtt.TelemetryInterval)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	d := daemon{
		ctrl:    ctrl,
		mgr:     mgr,
		tel:     mqtt.NewTelemetry(transport, mgr, topics, ctrl),
		cmds:    command.NewHandler(duty, cfg.Device, phase.MaxDuty),
		tracker: tracker,
	}
	now := func() time.Time { return time.Now().In(loc) }

	return runLoop(d, now, ticker.C, msgs, sigCh)
}

// daemon is the mainline side of the system. Everything in it is only
// touched from runLoop's goroutine, except ctrl whose accessors are atomic.
type daemon struct {
	ctrl    *phase.Controller
	mgr     *mqtt.Manager
	tel     *mqtt.Telemetry
	cmds    *command.Handler
	tracker *status.Tracker
}

func runLoop(d daemon, now func() time.Time, tick <-chan time.Time, msgs <-chan command.Message, sig <-chan os.Signal) error {
	// Connect straight away rather than a tick after startup.
	d.mgr.Step(now())
	d.updateStatus()

	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			d.mgr.Shutdown()
			return nil

		case msg := <-msgs:
			err := d.cmds.Handle(msg)
			if d.tracker != nil {
				d.tracker.CountCommand(err == nil)
			}

		case <-tick:
			t := now()
			d.mgr.Step(t)
			d.tel.Tick(t)
			d.updateStatus()
		}
	}
}

// updateStatus refreshes the tracker for HTTP consumers.
func (d daemon) updateStatus() {
	if d.tracker == nil {
		return
	}
	d.tracker.UpdateEngine(status.Engine{
		Duty:     d.ctrl.Duty(),
		Loops:    d.ctrl.Loops(),
		Overruns: d.ctrl.Overruns(),
		Faults:   d.ctrl.Faults(),
	})
	d.tracker.UpdateMQTT(status.MQTT{
		State:     d.mgr.State().String(),
		Connected: d.mgr.IsConnected(),
		Connects:  d.mgr.Connects(),
		Backoffs:  d.mgr.Backoffs(),
		Sent:      d.tel.Sent(),
	})
}

// forwardCommands hands inbound messages from the transport's goroutine to
// runLoop. If runLoop is behind, the message is dropped.
func forwardCommands(msgs chan<- command.Message) func(topic string, payload []byte) {
	return func(topic string, payload []byte) {
		select {
		case msgs <- command.Message{Topic: topic, Payload: payload}:
		default:
			log.Printf("command: queue full, dropping %s", topic)
		}
	}
}

func statusConfig(cfg config.Config) status.Config {
	return status.Config{
		Device:       cfg.Device,
		Broker:       cfg.Broker,
		TimeServer:   cfg.TimeServer,
		Timezone:     cfg.Timezone,
		ZeroCrossPin: cfg.ZeroCrossPin,
		OutputPins:   cfg.OutputPins,
		HalfCycleUs:  cfg.HalfCycle.Microseconds(),
		TickNs:       cfg.TickPeriod.Nanoseconds(),
		HTTPAddr:     cfg.HTTPAddr,
	}
}
