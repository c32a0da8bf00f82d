package linuxi2c

import (
	"errors"
	"testing"

	"github.com/antongulenko/touch/i2csim"
	"github.com/kidoman/embd"
	"github.com/stretchr/testify/assert"
)

// Routes the embd calls used by Bus to a simulated bus
type simBus struct {
	embd.I2CBus
	sim *i2csim.Bus
}

func (s simBus) WriteBytes(addr byte, value []byte) error {
	return s.sim.I2cWrite(addr, value...)
}

func (s simBus) ReadBytes(addr byte, num int) ([]byte, error) {
	data := make([]byte, num)
	err := s.sim.I2cRead(addr, data)
	return data, err
}

func (s simBus) ReadFromReg(addr, reg byte, value []byte) error {
	return s.sim.I2cWriteRead(addr, []byte{reg}, value)
}

func TestBus(t *testing.T) {
	a := assert.New(t)
	sim := i2csim.NewBus()
	dev := i2csim.NewDevice(nil)
	sim.Attach(0x5A, dev)
	bus := &Bus{I2CBus: simBus{sim: sim}, Number: 1}

	a.NoError(bus.I2cWrite(0x5A, 0x10, 1, 2))
	a.Equal(byte(2), dev.Get(0x11))

	in := make([]byte, 2)
	a.NoError(bus.I2cWriteRead(0x5A, []byte{0x10}, in))
	a.Equal([]byte{1, 2}, in)

	data, err := bus.I2cGet(0x5A, 0x11, 1)
	a.NoError(err)
	a.Equal([]byte{2}, data)

	// No register byte: continue at the register pointer
	a.NoError(bus.I2cWriteRead(0x5A, nil, in[:1]))
	a.Equal(byte(0), in[0])

	a.NoError(bus.I2cWriteRead(0x5A, []byte{0x20}, nil))
	a.Error(bus.I2cWriteRead(0x5A, []byte{0x20, 0x21}, in))

	err = bus.I2cRead(0x33, in)
	a.True(errors.Is(err, i2csim.ErrNack))
}
