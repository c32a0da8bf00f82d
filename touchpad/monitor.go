package touchpad

import (
	"errors"
	"fmt"
	"time"

	"github.com/antongulenko/touch/mpr121"
	log "github.com/sirupsen/logrus"
)

// Sensor is the part of the Touchpad used by the Monitor.
type Sensor interface {
	Touched() (uint16, error)
	Filtered(c mpr121.Channel) (uint16, error)
	Baseline(c mpr121.Channel) (byte, error)
	OverCurrent() (bool, error)
}

var _ Sensor = new(Touchpad)

// TouchEvent is emitted when a channel changes between touched and released.
type TouchEvent struct {
	Channel mpr121.Channel
	Touched bool
	Time    time.Time
}

func (e TouchEvent) String() string {
	state := "released"
	if e.Touched {
		state = "touched"
	}
	return fmt.Sprintf("Channel %v %v", e.Channel, state)
}

// Snapshot holds the electrode data of all channels at one point in time.
type Snapshot struct {
	Time        time.Time
	Touched     uint16
	OverCurrent bool
	Filtered    [mpr121.NumChannels]uint16
	Baseline    [mpr121.NumChannels]byte

	// Bit n is set if Baseline[n] holds a value
	BaselineValid uint16
}

var DefaultMonitor = Monitor{
	Interval: 20 * time.Millisecond,
}

// Monitor polls the touch status and reports changes as TouchEvents. With an Irq,
// the status is only read while the IRQ line is asserted.
type Monitor struct {
	Sensor    Sensor
	Interval  time.Duration
	Irq       IrqSource
	Snapshots bool
	Metrics   *Metrics

	OnEvent    func(TouchEvent)
	OnSnapshot func(Snapshot)

	now       func() time.Time
	last      uint16
	polled    bool
	lastError error
}

func (m *Monitor) time() time.Time {
	if m.now != nil {
		return m.now()
	}
	return time.Now()
}

// Poll reads the touch status once and returns an event for every changed channel,
// in ascending channel order. All channels start out released. With an Irq, nothing is
// read while the IRQ line is not asserted.
func (m *Monitor) Poll() ([]TouchEvent, error) {
	events, touched, read, err := m.pollTouched()
	if err == nil && read && m.Snapshots {
		var snapshot Snapshot
		snapshot, err = m.snapshot(touched)
		if err == nil {
			m.Metrics.ObserveSnapshot(snapshot)
			if m.OnSnapshot != nil {
				m.OnSnapshot(snapshot)
			}
		}
	}
	if err != nil {
		m.Metrics.ObserveError()
	}
	return events, err
}

// pollTouched returns false if the touch status was not read because the IRQ line is not asserted.
func (m *Monitor) pollTouched() ([]TouchEvent, uint16, bool, error) {
	if m.Irq != nil && m.polled {
		asserted, err := m.Irq.Asserted()
		if err != nil {
			return nil, 0, false, err
		}
		if !asserted {
			return nil, 0, false, nil
		}
	}
	touched, err := m.Sensor.Touched()
	if err != nil {
		return nil, 0, false, err
	}
	now := m.time()
	changed := touched ^ m.last
	var events []TouchEvent
	for _, c := range mpr121.Channels() {
		if changed&c.BitMask() != 0 {
			event := TouchEvent{Channel: c, Touched: touched&c.BitMask() != 0, Time: now}
			events = append(events, event)
			m.Metrics.ObserveEvent(event)
			if m.OnEvent != nil {
				m.OnEvent(event)
			}
		}
	}
	m.last = touched
	m.polled = true
	m.Metrics.ObserveTouched(touched)
	return events, touched, true, nil
}

// snapshot reads the electrode data of all channels. The touch status is passed in, reading it
// again would acknowledge the IRQ without reporting changes. Baselines that do not fit into
// 8 bit are left out of BaselineValid.
func (m *Monitor) snapshot(touched uint16) (Snapshot, error) {
	var err error
	s := Snapshot{Time: m.time(), Touched: touched}
	if s.OverCurrent, err = m.Sensor.OverCurrent(); err != nil {
		return s, err
	}
	for _, c := range mpr121.Channels() {
		if s.Filtered[c], err = m.Sensor.Filtered(c); err != nil {
			return s, err
		}
		baseline, err := m.Sensor.Baseline(c)
		var convErr *mpr121.DataConversionError
		switch {
		case err == nil:
			s.Baseline[c] = baseline
			s.BaselineValid |= c.BitMask()
		case errors.As(err, &convErr):
			log.Debugf("Skipping baseline of channel %v: %v", c, err)
		default:
			return s, err
		}
	}
	return s, nil
}

// Touched returns the touch status of the last successful poll.
func (m *Monitor) Touched() uint16 {
	return m.last
}

// Run polls every Interval until stop is closed. Errors are logged once until the next successful poll.
func (m *Monitor) Run(stop <-chan struct{}) {
	ticker := time.NewTicker(m.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}
		_, err := m.Poll()
		if err != nil {
			if m.lastError == nil || m.lastError.Error() != err.Error() {
				log.Errorln("Failed to poll touch status:", err)
			}
		} else if m.lastError != nil {
			log.Println("Polling touch status works again")
		}
		m.lastError = err
	}
}
