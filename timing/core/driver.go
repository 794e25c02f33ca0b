package core

import (
	"fmt"

	"github.com/sarchlab/akita/v4/sim"
)

// Driver ticks a Simulator from an akita event engine at a fixed
// frequency, one pipeline cycle per component tick, until the pipeline
// drains.
type Driver struct {
	*sim.TickingComponent

	simulator *Simulator
	maxCycles uint64
	ticks     uint64
	err       error
}

// DriverBuilder builds Drivers.
type DriverBuilder struct {
	engine    sim.Engine
	freq      sim.Freq
	maxCycles uint64
}

// MakeDriverBuilder returns a builder with a 1 GHz clock and no cycle limit.
func MakeDriverBuilder() DriverBuilder {
	return DriverBuilder{
		freq: 1 * sim.GHz,
	}
}

// WithEngine sets the event engine.
func (b DriverBuilder) WithEngine(engine sim.Engine) DriverBuilder {
	b.engine = engine
	return b
}

// WithFreq sets the clock frequency.
func (b DriverBuilder) WithFreq(freq sim.Freq) DriverBuilder {
	b.freq = freq
	return b
}

// WithMaxCycles stops the driver after the given number of ticks.
func (b DriverBuilder) WithMaxCycles(n uint64) DriverBuilder {
	b.maxCycles = n
	return b
}

// Build creates a Driver for the simulator.
func (b DriverBuilder) Build(name string, simulator *Simulator) *Driver {
	if b.engine == nil {
		b.engine = sim.NewSerialEngine()
	}

	d := &Driver{
		simulator: simulator,
		maxCycles: b.maxCycles,
	}
	d.TickingComponent = sim.NewTickingComponent(name, b.engine, b.freq, d)

	return d
}

// Tick runs one simulator cycle. It returns false once the pipeline has
// drained, which stops the component from scheduling further ticks.
func (d *Driver) Tick() bool {
	if d.maxCycles > 0 && d.ticks >= d.maxCycles {
		if !d.simulator.Drained() {
			d.err = fmt.Errorf("pipeline did not drain within %d cycles", d.maxCycles)
		}
		return false
	}

	d.ticks++
	return d.simulator.Tick().Advanced
}

// Ticks returns the number of component ticks so far.
func (d *Driver) Ticks() uint64 {
	return d.ticks
}

// Err returns the error that stopped the driver, if any.
func (d *Driver) Err() error {
	return d.err
}

// RunToCompletion ticks the simulator from a fresh serial engine until it
// drains and returns the simulated time elapsed.
func RunToCompletion(simulator *Simulator, freq sim.Freq, maxCycles uint64) (sim.VTimeInSec, error) {
	engine := sim.NewSerialEngine()
	driver := MakeDriverBuilder().
		WithEngine(engine).
		WithFreq(freq).
		WithMaxCycles(maxCycles).
		Build("Driver", simulator)

	driver.TickLater()

	if err := engine.Run(); err != nil {
		return 0, fmt.Errorf("event engine failed: %w", err)
	}

	if driver.Err() != nil {
		return engine.CurrentTime(), driver.Err()
	}

	return engine.CurrentTime(), nil
}
