//go:build linux

package gpio

import (
	"errors"
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealReader reads the inputs from a GPIO chip.
type RealReader struct {
	chip      *gpiocdev.Chip
	doorLine  *gpiocdev.Line
	powerLine *gpiocdev.Line
}

// NewRealReader requests the door and power lines as pulled-down inputs.
func NewRealReader(chipName string, pinDoor, pinPower int) (*RealReader, error) {
	if chipName == "" {
		chipName = DefaultChip
	}
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", chipName, err)
	}

	doorLine, err := chip.RequestLine(pinDoor, gpiocdev.AsInput, gpiocdev.WithPullDown)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request door pin %d: %w", pinDoor, err)
	}

	powerLine, err := chip.RequestLine(pinPower, gpiocdev.AsInput, gpiocdev.WithPullDown)
	if err != nil {
		doorLine.Close()
		chip.Close()
		return nil, fmt.Errorf("request power pin %d: %w", pinPower, err)
	}

	return &RealReader{chip: chip, doorLine: doorLine, powerLine: powerLine}, nil
}

// Read returns (doorOpen, powerOn). The reed switch pulls the door line high
// while the door is open. The mains optocoupler pulls the power line low
// while mains is present.
func (r *RealReader) Read() (bool, bool, error) {
	doorRaw, err := r.doorLine.Value()
	if err != nil {
		return false, false, fmt.Errorf("read door pin: %w", err)
	}
	powerRaw, err := r.powerLine.Value()
	if err != nil {
		return false, false, fmt.Errorf("read power pin: %w", err)
	}
	return doorRaw == 1, powerRaw == 0, nil
}

// Close restores the boot default (input, pull-down) and releases the lines.
func (r *RealReader) Close() error {
	var errs []error
	for name, line := range map[string]*gpiocdev.Line{"door": r.doorLine, "power": r.powerLine} {
		if line == nil {
			continue
		}
		if err := line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure %s pin: %w", name, err))
		}
		if err := line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s pin: %w", name, err))
		}
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}
	return errors.Join(errs...)
}
