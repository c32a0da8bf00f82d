package mpr121

import "tinygo.org/x/drivers"

// TxBus runs the driver on a tinygo.org/x/drivers I2C bus, e.g. machine.I2C0 on a microcontroller.
type TxBus struct {
	drivers.I2C
}

var _ Bus = TxBus{}

func (b TxBus) I2cWrite(addr byte, data ...byte) error {
	return b.Tx(uint16(addr), data, nil)
}

func (b TxBus) I2cWriteRead(addr byte, out, in []byte) error {
	return b.Tx(uint16(addr), out, in)
}
