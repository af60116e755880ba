// Package sensor reads the vaccine and ambient temperature probes.
// A probe that cannot be read yields a nil value in the sample; the
// aggregator treats that as a missing reading.
package sensor

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sweeney/fridge-monitor/internal/logger"
	"github.com/sweeney/fridge-monitor/internal/logic"
)

// Reader reads one temperature sample.
type Reader interface {
	Read(ctx context.Context) logic.TemperatureSample
	Close() error
}

// Format selects how a probe file is decoded.
type Format int

const (
	// Millidegrees is a decimal integer in thousandths of a degree, as
	// written by the w1_therm and hwmon drivers.
	Millidegrees Format = iota
	// Register is the probe's raw two-byte big-endian register.
	Register
)

// RegisterLSB is the value of one register count in degrees Celsius.
const RegisterLSB = 0.0078125

var errEmptyProbe = errors.New("sensor: empty probe file")

// FromRegister converts a raw big-endian register value to degrees Celsius.
func FromRegister(raw [2]byte) float32 {
	return float32(int16(binary.BigEndian.Uint16(raw[:]))) * RegisterLSB
}

// FromMillidegrees parses a millidegree reading.
func FromMillidegrees(s string) (float32, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errEmptyProbe
	}
	v, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("sensor: parse millidegrees: %w", err)
	}
	return float32(v) / 1000, nil
}

// FileReader reads probes exposed as files.
type FileReader struct {
	vaccinePath string
	ambientPath string
	format      Format
}

// NewFileReader returns a reader for the given probe files. An empty path
// disables that channel.
func NewFileReader(vaccinePath, ambientPath string, format Format) *FileReader {
	return &FileReader{
		vaccinePath: vaccinePath,
		ambientPath: ambientPath,
		format:      format,
	}
}

// Read reads both probes. Failures are logged and reported as faults.
func (r *FileReader) Read(ctx context.Context) logic.TemperatureSample {
	return logic.TemperatureSample{
		Vaccine: r.readProbe(ctx, "vaccine", r.vaccinePath),
		Ambient: r.readProbe(ctx, "ambient", r.ambientPath),
	}
}

func (r *FileReader) readProbe(ctx context.Context, name, path string) *float32 {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		logger.WarnKV(ctx, "temperature probe read failed", "probe", name, "error", err)
		return nil
	}

	var v float32
	switch r.format {
	case Register:
		if len(data) < 2 {
			logger.WarnKV(ctx, "temperature probe short read", "probe", name, "bytes", len(data))
			return nil
		}
		v = FromRegister([2]byte{data[0], data[1]})
	default:
		v, err = FromMillidegrees(string(data))
		if err != nil {
			logger.WarnKV(ctx, "temperature probe decode failed", "probe", name, "error", err)
			return nil
		}
	}
	return logic.Celsius(v)
}

// Close is a no-op; files are opened per read.
func (r *FileReader) Close() error {
	return nil
}
