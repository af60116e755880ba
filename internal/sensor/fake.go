package sensor

import (
	"context"

	"github.com/sweeney/fridge-monitor/internal/logic"
)

// FakeReader returns scripted samples. Once exhausted it repeats the last one.
type FakeReader struct {
	Samples []logic.TemperatureSample
	Closed  bool

	index int
}

// NewFakeReader creates a FakeReader with the given samples.
func NewFakeReader(samples ...logic.TemperatureSample) *FakeReader {
	return &FakeReader{Samples: samples}
}

// Read returns the next scripted sample, or a double fault if none are set.
func (f *FakeReader) Read(context.Context) logic.TemperatureSample {
	if len(f.Samples) == 0 {
		return logic.TemperatureSample{}
	}
	s := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}
	return s
}

// Close marks the reader as closed.
func (f *FakeReader) Close() error {
	f.Closed = true
	return nil
}
