package mpr121

import (
	log "github.com/sirupsen/logrus"
)

// SetThresholds writes the touch and release threshold of all channels in ascending order.
// Usually the touch threshold is a little larger than the release threshold, see application note AN3892.
// The first failing write aborts; thresholds written before are kept.
func (d *Device) SetThresholds(touch, release uint8) error {
	log.Debugf("MPR121 %v: setting thresholds touch=%v release=%v", d.addr, touch, release)
	for _, c := range Channels() {
		if err := d.write(c.TouchThresholdRegister(), touch); err != nil {
			return err
		}
		if err := d.write(c.ReleaseThresholdRegister(), release); err != nil {
			return err
		}
	}
	return nil
}

// SetDebounce sets the number of consecutive samples required to detect a touch and a release (datasheet section 5.7).
// Values above MaxDebounce are clamped.
func (d *Device) SetDebounce(trigger, release DebounceNumber) error {
	bits := byte(clampDebounce(release))<<4 | byte(clampDebounce(trigger))
	return d.write(RegDebounce, bits)
}

func clampDebounce(n DebounceNumber) DebounceNumber {
	if n > MaxDebounce {
		log.Warnf("Invalid MPR121 debounce count %v, using maximum %v", n, MaxDebounce)
		return MaxDebounce
	}
	return n
}
