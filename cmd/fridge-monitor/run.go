package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sweeney/fridge-monitor/internal/clock"
	"github.com/sweeney/fridge-monitor/internal/config"
	"github.com/sweeney/fridge-monitor/internal/dispatch"
	"github.com/sweeney/fridge-monitor/internal/edge"
	"github.com/sweeney/fridge-monitor/internal/gpio"
	"github.com/sweeney/fridge-monitor/internal/logger"
	"github.com/sweeney/fridge-monitor/internal/logic"
	"github.com/sweeney/fridge-monitor/internal/metrics"
	"github.com/sweeney/fridge-monitor/internal/mqtt"
	"github.com/sweeney/fridge-monitor/internal/sensor"
	"github.com/sweeney/fridge-monitor/internal/status"
	"github.com/sweeney/fridge-monitor/internal/store"
	"github.com/sweeney/fridge-monitor/internal/web"
)

const shutdownTimeout = 5 * time.Second

func runE(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	printState, _ := cmd.Flags().GetBool("print-state")
	return run(cmd.Context(), cfg, printState)
}

func run(ctx context.Context, cfg *config.Config, printState bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = logger.WithName(ctx, "fridge-monitor")

	gpioReader, err := gpio.NewRealReader(cfg.GPIO.Chip, cfg.GPIO.DoorPin, cfg.GPIO.PowerPin)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer gpioReader.Close()

	probes := sensor.NewFileReader(cfg.Sensors.VaccinePath, cfg.Sensors.AmbientPath, sensor.Millidegrees)
	defer probes.Close()

	if printState {
		return printCurrentState(ctx, gpioReader, probes)
	}

	metrics.Init()

	var repo store.Repository
	if cfg.DatabaseDSN != "" {
		db, err := store.Open(ctx, cfg.DatabaseDSN)
		if err != nil {
			return err
		}
		defer db.Close()
		pg := store.NewPostgres(db, cfg.DeviceID)
		if err := pg.EnsureSchema(ctx); err != nil {
			return err
		}
		repo = pg
	}

	publisher, err := mqtt.NewRealPublisher(mqtt.Options{
		Broker:     cfg.Broker,
		ClientID:   cfg.ClientID,
		DeviceID:   cfg.DeviceID,
		Prefix:     cfg.TopicPrefix,
		BufferSize: cfg.OfflineBuffer,
	})
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer publisher.Close()

	// The tracker exists before STARTUP so the event carries a full snapshot.
	tracker := status.NewTracker(time.Now(), status.Config{
		DeviceID:     cfg.DeviceID,
		PollMs:       cfg.Poll.Std().Milliseconds(),
		DebounceMs:   cfg.Debounce.Std().Milliseconds(),
		SampleMs:     cfg.SampleInterval.Std().Milliseconds(),
		HeartbeatMs:  cfg.Heartbeat.Std().Milliseconds(),
		Broker:       cfg.Broker,
		TopicPrefix:  cfg.TopicPrefix,
		HTTPPort:     cfg.HTTPAddr,
		StoreEnabled: repo != nil,
	})
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	snap := tracker.Snapshot()
	startup := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      mqtt.EventStartup,
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, mqtt.EventStartup, ""),
	}
	if err := publisher.PublishSystem(startup); err != nil {
		logger.WarnKV(ctx, "failed to publish startup event", "error", err)
	} else {
		logger.Info(ctx, "published startup event")
	}

	if cfg.HTTPAddr != "" {
		var webOpts []web.Option
		if repo != nil {
			webOpts = append(webOpts, web.WithRepository(repo))
		}
		srv := web.New(cfg.HTTPAddr, tracker, webOpts...)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.ErrorKV(ctx, "http server error", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
		logger.InfoKV(ctx, "http status server listening", "addr", cfg.HTTPAddr)
	}

	dispatchOpts := []dispatch.Option{
		dispatch.WithMailboxSize(cfg.MailboxSize),
		dispatch.WithRecordSink("mqtt", mqtt.RecordSink(publisher)),
		dispatch.WithAlarmSink("mqtt", mqtt.AlarmSink(publisher)),
		dispatch.WithObserver(tracker.Observe),
	}
	if repo != nil {
		dispatchOpts = append(dispatchOpts, dispatch.WithRecordSink("store", store.Sink(repo)))
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := make(chan struct{})
	started := false
	start := func(init dispatch.Initial) submitFunc {
		started = true
		d := dispatch.New(init, dispatchOpts...)
		go func() {
			defer close(done)
			d.Run(runCtx)
		}()
		return d.Submit
	}

	logger.InfoKV(ctx, "started",
		"device", cfg.DeviceID,
		"poll", cfg.Poll.Std(),
		"debounce", cfg.Debounce.Std(),
		"sample", cfg.SampleInterval.Std(),
		"broker", cfg.Broker,
		"heartbeat", cfg.Heartbeat.Std(),
		"store", repo != nil)

	pollTicker := time.NewTicker(cfg.Poll.Std())
	defer pollTicker.Stop()
	sampleTicker := time.NewTicker(cfg.SampleInterval.Std())
	defer sampleTicker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	err = runLoop(runCtx, loopConfig{
		gpio:       gpioReader,
		probes:     probes,
		publisher:  publisher,
		mqttStatus: publisher,
		tracker:    tracker,
		start:      start,
		debounce:   cfg.Debounce.Std(),
		heartbeat:  cfg.Heartbeat.Std(),
		now:        time.Now,
		tick:       pollTicker.C,
		sampleTick: sampleTicker.C,
		sig:        sigCh,
	})

	cancel()
	if started {
		select {
		case <-done:
		case <-time.After(shutdownTimeout):
			logger.Warnf(ctx, "dispatcher did not stop within %v", shutdownTimeout)
		}
	}
	return err
}

// submitFunc hands one message to the dispatcher.
type submitFunc func(context.Context, dispatch.Message) error

// loopConfig carries runLoop's collaborators. Channels and the clock are
// injected so tests can drive the loop deterministically.
type loopConfig struct {
	gpio       gpio.Reader
	probes     sensor.Reader
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus
	tracker    *status.Tracker

	// start creates the dispatcher once both inputs have a debounced
	// baseline and returns the function used to feed it.
	start func(dispatch.Initial) submitFunc

	debounce  time.Duration
	heartbeat time.Duration
	now       func() time.Time

	tick       <-chan time.Time
	sampleTick <-chan time.Time
	sig        <-chan os.Signal
}

// bufferStatus is implemented by publishers that hold messages offline.
type bufferStatus interface {
	Buffered() int
}

func runLoop(ctx context.Context, lc loopConfig) error {
	startTime := lc.now()
	detector := edge.NewDetector(lc.debounce, startTime)

	var (
		submit   submitFunc
		lastSent logic.Timestamp
		sample   logic.TemperatureSample
		haveRead bool
	)

	send := func(msg dispatch.Message) {
		if submit == nil {
			return
		}
		if err := submit(ctx, msg); err != nil {
			logger.WarnKV(ctx, "dispatch failed", "kind", msg.Kind.String(), "ts", uint32(msg.Time), "error", err)
			return
		}
		lastSent = msg.Time
	}

	stamp := func(t time.Time) (logic.Timestamp, bool) {
		ts, err := clock.ToTimestamp(t)
		if err != nil {
			logger.WarnKV(ctx, "wall clock outside device range", "time", t, "error", err)
			return 0, false
		}
		return ts, true
	}

	refreshMQTT := func() {
		if lc.tracker == nil || lc.mqttStatus == nil {
			return
		}
		buffered := 0
		if b, ok := lc.mqttStatus.(bufferStatus); ok {
			buffered = b.Buffered()
		}
		lc.tracker.SetMQTTConnected(lc.mqttStatus.IsConnected(), buffered)
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case s := <-lc.sig:
			logger.InfoKV(ctx, "shutting down", "signal", s.String())
			reason := "UNKNOWN"
			switch s {
			case syscall.SIGINT:
				reason = "SIGINT"
			case syscall.SIGTERM:
				reason = "SIGTERM"
			}
			event := mqtt.SystemEvent{
				Timestamp: lc.now(),
				Event:     mqtt.EventShutdown,
				Reason:    reason,
				Retained:  true,
			}
			if lc.tracker != nil {
				refreshMQTT()
				event.RawPayload = status.FormatStatusEvent(lc.tracker.Snapshot(), mqtt.EventShutdown, reason)
			}
			if err := lc.publisher.PublishSystem(event); err != nil {
				logger.WarnKV(ctx, "failed to publish shutdown event", "error", err)
			} else {
				logger.Info(ctx, "published shutdown event")
			}
			return nil

		case <-lc.sampleTick:
			sample = lc.probes.Read(ctx)
			haveRead = true
			if v := sample.Vaccine; v != nil {
				metrics.SetTemperature("vaccine", *v)
			}
			if v := sample.Ambient; v != nil {
				metrics.SetTemperature("ambient", *v)
			}
			if ts, ok := stamp(lc.now()); ok {
				send(dispatch.Sample(sample, ts))
			}

		case <-lc.tick:
			t := lc.now()
			doorOpen, powerOn, err := lc.gpio.Read()
			if err != nil {
				logger.WarnKV(ctx, "gpio read error", "error", err)
				continue
			}

			wasBaselined := detector.IsBaselined()
			events := detector.Process(edge.Input{DoorOpen: doorOpen, PowerOn: powerOn, Time: t})

			ts, ok := stamp(t)
			if !ok {
				continue
			}

			if !wasBaselined && detector.IsBaselined() {
				if !haveRead {
					sample = lc.probes.Read(ctx)
					haveRead = true
				}
				submit = lc.start(dispatch.Initial{
					DoorOpen: detector.DoorOpen(),
					PowerOn:  detector.PowerOn(),
					Sample:   sample,
					Time:     ts,
				})
				lastSent = ts
				logger.InfoKV(ctx, "inputs baselined",
					"door_open", detector.DoorOpen(), "power_on", detector.PowerOn())
			}

			for _, ev := range events {
				logger.InfoKV(ctx, "event", "type", string(ev.Type),
					"door", string(ev.DoorState), "power", string(ev.PowerState))
				if msg, ok := dispatch.FromEdge(ev, ts); ok {
					send(msg)
				}
			}

			if !detector.IsBaselined() {
				continue
			}

			// Once a second is enough to move the windows and alarms along.
			if ts > lastSent {
				send(dispatch.Tick(ts))
			}

			if hb := detector.CheckHeartbeat(t, lc.heartbeat); hb != nil {
				logger.InfoKV(ctx, "heartbeat",
					"uptime", hb.Uptime,
					"door_opened", hb.Counts.DoorOpened, "door_closed", hb.Counts.DoorClosed,
					"power_on", hb.Counts.PowerOn, "power_off", hb.Counts.PowerOff)

				hbEvent := mqtt.SystemEvent{
					Timestamp: hb.Timestamp,
					Event:     mqtt.EventHeartbeat,
				}
				if lc.tracker != nil {
					refreshMQTT()
					if net := readNetworkInfo(); net != nil {
						lc.tracker.SetNetwork(net)
					}
					lc.tracker.UpdateInputs(detector.IsBaselined(), detector.Counts())
					hbEvent.RawPayload = status.FormatStatusEvent(lc.tracker.Snapshot(), mqtt.EventHeartbeat, "")
				}
				if err := lc.publisher.PublishSystem(hbEvent); err != nil {
					logger.WarnKV(ctx, "heartbeat publish error", "error", err)
				}
			}

			if lc.tracker != nil {
				lc.tracker.UpdateInputs(detector.IsBaselined(), detector.Counts())
				refreshMQTT()
			}
		}
	}
}

func printCurrentState(ctx context.Context, gpioReader gpio.Reader, probes sensor.Reader) error {
	doorOpen, powerOn, err := gpioReader.Read()
	if err != nil {
		return fmt.Errorf("read gpio: %w", err)
	}
	s := probes.Read(ctx)
	fmt.Printf("Door: %s, Power: %s, Vaccine: %s, Ambient: %s\n",
		doorString(doorOpen), powerString(powerOn), probeString(s.Vaccine), probeString(s.Ambient))
	return nil
}

func doorString(open bool) string {
	if open {
		return "OPEN"
	}
	return "CLOSED"
}

func powerString(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}

func probeString(v *float32) string {
	if v == nil {
		return "fault"
	}
	return fmt.Sprintf("%.2fC", *v)
}
