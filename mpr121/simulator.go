package mpr121

import (
	"encoding/binary"

	"github.com/antongulenko/touch/i2csim"
	log "github.com/sirupsen/logrus"
)

const ecrElectrodeBits = byte(0x3F)

// NewSimulator returns a simulated MPR121 holding the documented register defaults. Like the chip,
// it performs a soft reset when SoftResetValue is written to RegSoftReset and ignores writes to
// registers requiring stop mode while electrodes are enabled in the ECR.
func NewSimulator() *i2csim.Device {
	defaults := make(map[byte]byte)
	for _, reg := range Registers() {
		if val := reg.DefaultValue(); val != 0 {
			defaults[byte(reg)] = val
		}
	}
	dev := i2csim.NewDevice(defaults)
	dev.OnWrite = func(d *i2csim.Device, register, value byte) bool {
		reg := Register(register)
		switch {
		case reg == RegSoftReset:
			if value == SoftResetValue {
				d.Reset()
			}
			return false
		case reg.RequiresStop() && d.Get(byte(RegEcr))&ecrElectrodeBits != 0:
			log.Warnf("Simulated MPR121: ignoring write of 0x%02x to %v in run mode", value, reg)
			return false
		}
		return true
	}
	return dev
}

// SimulateTouch sets the touch status bits of a simulated MPR121, keeping the over-current flag.
func SimulateTouch(d *i2csim.Device, touched uint16) {
	touched &= touchStatusMask
	d.Set(byte(RegTouchStatus0_7), byte(touched))
	d.Set(byte(RegTouchStatus8_11), byte(touched>>8)|d.Get(byte(RegTouchStatus8_11))&overCurrentFlag)
}

// SimulateFiltered stores filtered data of a channel in a simulated MPR121.
func SimulateFiltered(d *i2csim.Device, c Channel, value uint16) {
	var data [2]byte
	binary.LittleEndian.PutUint16(data[:], value)
	reg := byte(c.FilteredDataRegister())
	d.Set(reg, data[0])
	d.Set(reg+1, data[1])
}
