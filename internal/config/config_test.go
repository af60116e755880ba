package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestValidateAppliesDefaults(t *testing.T) {
	t.Parallel()

	cfg := new(Config)
	require.NoError(t, Validate(cfg))

	require.Equal(t, DefaultBroker, cfg.Broker)
	require.Equal(t, DefaultClientID, cfg.DeviceID)
	require.Equal(t, DefaultPoll, cfg.Poll)
	require.Equal(t, DefaultSampleInterval, cfg.SampleInterval)
	require.Equal(t, DefaultDoorPin, cfg.GPIO.DoorPin)
	require.Equal(t, DefaultPowerPin, cfg.GPIO.PowerPin)
	require.Equal(t, DefaultMailboxSize, cfg.MailboxSize)
	require.Equal(t, "info", cfg.LogLevel)
}

func TestValidateRejects(t *testing.T) {
	t.Parallel()

	cases := map[string]*Config{
		"bad broker":     {Broker: "not a url"},
		"same pins":      {GPIO: GPIO{DoorPin: 5, PowerPin: 5}},
		"negative pin":   {GPIO: GPIO{DoorPin: -1, PowerPin: 3}},
		"negative poll":  {Poll: Duration(-time.Second)},
		"negative queue": {MailboxSize: -1},
		"log level":      {LogLevel: "chatty"},
	}
	for name, cfg := range cases {
		require.Error(t, Validate(cfg), name)
	}

	require.Error(t, Validate(nil))
}

func TestLoadISODurations(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")
	contents := `
broker: tcp://10.0.0.2:1883
device_id: clinic-7
poll: PT1S
debounce: PT2S
sample_interval: PT30S
heartbeat: PT1H
gpio:
  chip: gpiochip1
  door_pin: 17
  power_pin: 27
sensors:
  vaccine_path: /sys/bus/w1/devices/28-01/temperature
mailbox_size: 16
log_level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "clinic-7", cfg.DeviceID)
	require.Equal(t, time.Second, cfg.Poll.Std())
	require.Equal(t, 2*time.Second, cfg.Debounce.Std())
	require.Equal(t, 30*time.Second, cfg.SampleInterval.Std())
	require.Equal(t, time.Hour, cfg.Heartbeat.Std())
	require.Equal(t, "gpiochip1", cfg.GPIO.Chip)
	require.Equal(t, 17, cfg.GPIO.DoorPin)
	require.Equal(t, 16, cfg.MailboxSize)
	require.Empty(t, cfg.Sensors.AmbientPath)
}

func TestLoadKeepsExplicitZeroDurations(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("debounce: PT0S\nheartbeat: PT0S\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Zero(t, cfg.Debounce)
	require.Zero(t, cfg.Heartbeat)
}

func TestLoadDefaultsMissingDurations(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("device_id: clinic-7\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, DefaultDebounce, cfg.Debounce)
	require.Equal(t, DefaultHeartbeat, cfg.Heartbeat)
	require.Equal(t, DefaultPoll, cfg.Poll)
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("poll: 10s\n"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
}

func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.yaml")

	cfg := Default()
	cfg.Broker = "tcp://broker.local:1883"
	cfg.Heartbeat = Duration(5 * time.Minute)
	cfg.Poll = Duration(time.Second)
	cfg.Debounce = Duration(2 * time.Second)

	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg, loaded)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(raw), "heartbeat: PT5M")
}

func TestSaveNil(t *testing.T) {
	t.Parallel()

	require.Error(t, Save(filepath.Join(t.TempDir(), "x.yaml"), nil))
}
