package mpr121

import (
	"testing"
	"time"

	"github.com/antongulenko/touch/i2csim"
	"github.com/stretchr/testify/assert"
	"tinygo.org/x/drivers"
)

type txAdapter struct {
	bus *i2csim.Bus
}

var _ drivers.I2C = txAdapter{}

func (a txAdapter) Tx(addr uint16, w, r []byte) error {
	return a.bus.I2cWriteRead(byte(addr), w, r)
}

func TestTxBus(t *testing.T) {
	a := assert.New(t)
	bus := i2csim.NewBus()
	chip := NewSimulator()
	bus.Attach(byte(AddressVdd), chip)

	cfg := DefaultConfig
	cfg.Address = AddressVdd
	cfg.Delay = func(time.Duration) {}
	dev, err := New(TxBus{txAdapter{bus}}, cfg)
	if !a.NoError(err) {
		return
	}
	a.Equal(byte(0x8C), chip.Get(byte(RegEcr)))

	SimulateTouch(chip, 0x0004)
	touched, err := dev.GetSensorTouch(2)
	a.NoError(err)
	a.True(touched)
}
