package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sweeney/fridge-monitor/internal/dispatch"
	"github.com/sweeney/fridge-monitor/internal/logger"
	"github.com/sweeney/fridge-monitor/internal/logic"
	"github.com/sweeney/fridge-monitor/internal/mqtt"
)

var replayDevice string

var replayCmd = &cobra.Command{
	Use:   "replay <file>",
	Short: "Feed a recorded message log through the aggregator.",
	Long: `Reads one JSON message per line and runs it through a fresh dispatcher,
printing every finalized record and alarm transition as the JSON payload
that would be published to MQTT.

Each line has a kind (init, tick, door, power or sample) and a device
timestamp in seconds since 2000-03-01:

  {"kind":"init","ts":0,"door_open":false,"power_on":true,"vaccine":5.0,"ambient":21.5}
  {"kind":"door","ts":1000,"type":"DOOR_OPENED"}
  {"kind":"sample","ts":1010,"vaccine":5.5,"ambient":null}
  {"kind":"tick","ts":28800}

An init line may only appear first. Without one the trackers start with the
door closed, power on and both probes faulted at the first message's time.
Blank lines and lines starting with # are ignored. Use - to read stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in := cmd.InOrStdin()
		if args[0] != "-" {
			f, err := os.Open(filepath.Clean(args[0]))
			if err != nil {
				return fmt.Errorf("open replay file: %w", err)
			}
			defer f.Close()
			in = f
		}
		stats, err := replay(cmd.Context(), in, cmd.OutOrStdout(), replayDevice)
		if err != nil {
			return err
		}
		logger.InfoKV(cmd.Context(), "replay finished",
			"lines", stats.Lines, "processed", stats.Processed, "rejected", stats.Rejected,
			"records", stats.Records, "alarms", stats.Alarms)
		return nil
	},
}

func init() {
	replayCmd.Flags().StringVar(&replayDevice, "device", "replay", "device id written into payloads")
}

var errInitNotFirst = errors.New("init must be the first message")

// replayLine is one line of a replay log.
type replayLine struct {
	Kind     string   `json:"kind"`
	TS       uint32   `json:"ts"`
	Type     string   `json:"type,omitempty"`
	DoorOpen bool     `json:"door_open,omitempty"`
	PowerOn  *bool    `json:"power_on,omitempty"`
	Vaccine  *float32 `json:"vaccine"`
	Ambient  *float32 `json:"ambient"`
}

// replayStats summarizes a replay run.
type replayStats struct {
	Lines     int
	Processed uint64
	Rejected  uint64
	Records   int
	Alarms    int
}

func parseReplayLine(line string) (replayLine, error) {
	var rl replayLine
	dec := json.NewDecoder(strings.NewReader(line))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&rl); err != nil {
		return replayLine{}, fmt.Errorf("decode: %w", err)
	}
	return rl, nil
}

func (rl replayLine) initial() dispatch.Initial {
	init := dispatch.Initial{
		DoorOpen: rl.DoorOpen,
		PowerOn:  true,
		Sample:   logic.TemperatureSample{Vaccine: rl.Vaccine, Ambient: rl.Ambient},
		Time:     logic.Timestamp(rl.TS),
	}
	if rl.PowerOn != nil {
		init.PowerOn = *rl.PowerOn
	}
	return init
}

func (rl replayLine) message() (dispatch.Message, error) {
	ts := logic.Timestamp(rl.TS)
	switch rl.Kind {
	case "tick":
		return dispatch.Tick(ts), nil
	case "door":
		switch typ := logic.DoorEventType(rl.Type); typ {
		case logic.DoorOpened, logic.DoorClosed:
			return dispatch.Door(typ, ts), nil
		}
		return dispatch.Message{}, fmt.Errorf("unknown door event %q", rl.Type)
	case "power":
		switch typ := logic.PowerEventType(rl.Type); typ {
		case logic.PowerOn, logic.PowerOff:
			return dispatch.Power(typ, ts), nil
		}
		return dispatch.Message{}, fmt.Errorf("unknown power event %q", rl.Type)
	case "sample":
		return dispatch.Sample(logic.TemperatureSample{Vaccine: rl.Vaccine, Ambient: rl.Ambient}, ts), nil
	case "init":
		return dispatch.Message{}, errInitNotFirst
	default:
		return dispatch.Message{}, fmt.Errorf("unknown kind %q", rl.Kind)
	}
}

// replay runs every message in r through a new dispatcher and writes record
// and alarm payloads to w. Malformed lines stop the replay; messages the
// dispatcher rejects are logged and skipped.
func replay(ctx context.Context, r io.Reader, w io.Writer, deviceID string) (replayStats, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = logger.WithName(ctx, "replay")

	var (
		stats replayStats
		d     *dispatch.Dispatcher
	)

	writeLine := func(data []byte) error {
		_, err := fmt.Fprintf(w, "%s\n", data)
		return err
	}
	opts := []dispatch.Option{
		dispatch.WithRecordSink("stdout", dispatch.RecordSinkFunc(func(_ context.Context, rec logic.AggregationRecord) error {
			data, err := mqtt.FormatRecordPayload(deviceID, rec)
			if err != nil {
				return err
			}
			stats.Records++
			return writeLine(data)
		})),
		dispatch.WithAlarmSink("stdout", dispatch.AlarmSinkFunc(func(_ context.Context, e dispatch.AlarmEdge) error {
			data, err := mqtt.FormatAlarmPayload(deviceID, e)
			if err != nil {
				return err
			}
			stats.Alarms++
			return writeLine(data)
		})),
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		stats.Lines++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		rl, err := parseReplayLine(line)
		if err != nil {
			return stats, fmt.Errorf("line %d: %w", stats.Lines, err)
		}

		if d == nil {
			if rl.Kind == "init" {
				d = dispatch.New(rl.initial(), opts...)
				continue
			}
			d = dispatch.New(dispatch.Initial{PowerOn: true, Time: logic.Timestamp(rl.TS)}, opts...)
		}

		msg, err := rl.message()
		if err != nil {
			return stats, fmt.Errorf("line %d: %w", stats.Lines, err)
		}
		if err := d.Step(ctx, msg); err != nil {
			logger.WarnKV(ctx, "message rejected", "line", stats.Lines, "error", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("read replay: %w", err)
	}

	if d != nil {
		stats.Processed, stats.Rejected = d.Stats()
	}
	return stats, nil
}
