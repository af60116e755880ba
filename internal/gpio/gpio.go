// Package gpio reads the door switch and mains-sense inputs.
// The real implementation uses the Linux GPIO character device; the fake
// replays scripted samples for tests.
package gpio

// Reader reads the door and power inputs.
type Reader interface {
	// Read returns the logical input states (doorOpen, powerOn, error).
	Read() (bool, bool, error)

	// Close releases GPIO resources.
	Close() error
}

// Default line assignment (BCM numbering).
const (
	DefaultChip     = "gpiochip0"
	DefaultPinDoor  = 26
	DefaultPinPower = 16
)
