package mpr121

import (
	"encoding/binary"

	log "github.com/sirupsen/logrus"
)

// Bus is the part of an I2C bus used by the driver. Both operations must be atomic on the bus:
// I2cWriteRead issues a repeated start between writing out and reading in.
// ft260.I2cBus, linuxi2c.Bus, TxBus and i2csim.Bus implement it.
type Bus interface {
	I2cWrite(addr byte, data ...byte) error
	I2cWriteRead(addr byte, out, in []byte) error
}

func (d *Device) read8(reg Register) (byte, error) {
	var val [1]byte
	if err := d.bus.I2cWriteRead(byte(d.addr), []byte{byte(reg)}, val[:]); err != nil {
		return 0, &ReadError{Register: reg, Err: err}
	}
	return val[0], nil
}

func (d *Device) read16(reg Register) (uint16, error) {
	var val [2]byte
	if err := d.bus.I2cWriteRead(byte(d.addr), []byte{byte(reg)}, val[:]); err != nil {
		return 0, &ReadError{Register: reg, Err: err}
	}
	return binary.LittleEndian.Uint16(val[:]), nil
}

func (d *Device) writeDirect(reg Register, value byte) error {
	if err := d.bus.I2cWrite(byte(d.addr), byte(reg), value); err != nil {
		return &WriteError{Register: reg, Err: err}
	}
	return nil
}

// write stores the value in the register. Registers that require stop mode are written
// between switching the chip to stop mode and restoring the previous ECR value.
// Nothing else may access the bus until write returns.
func (d *Device) write(reg Register, value byte) error {
	if !reg.RequiresStop() {
		return d.writeDirect(reg, value)
	}
	ecr, err := d.read8(RegEcr)
	if err != nil {
		return err
	}
	log.Debugf("MPR121 %v: writing 0x%02x to %v (ECR 0x%02x)", d.addr, value, reg, ecr)
	if err := d.writeDirect(RegEcr, 0); err != nil {
		return err
	}
	if err := d.writeDirect(reg, value); err != nil {
		return err
	}
	return d.writeDirect(RegEcr, ecr)
}
