package i2csim

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegisterAccess(t *testing.T) {
	a := assert.New(t)
	bus := NewBus()
	dev := NewDevice(map[byte]byte{0x10: 0xAA})
	bus.Attach(0x20, dev)

	a.NoError(bus.I2cWrite(0x20, 0x01, 1, 2, 3))
	a.Equal([]byte{1, 2, 3}, []byte{dev.Get(1), dev.Get(2), dev.Get(3)})

	data, err := bus.I2cGet(0x20, 0x0F, 3)
	a.NoError(err)
	a.Equal([]byte{0, 0xAA, 0}, data)

	// The pointer continues after the last access
	in := make([]byte, 1)
	a.NoError(bus.I2cRead(0x20, in))
	a.Equal([]byte{0}, in)

	dev.Reset()
	a.Equal(byte(0), dev.Get(1))
	a.Equal(byte(0xAA), dev.Get(0x10))
}

func TestMissingDevice(t *testing.T) {
	a := assert.New(t)
	bus := NewBus()
	a.Equal(ErrNack, bus.I2cWrite(0x33, 1, 2))
	trans := bus.Transactions()
	if a.Len(trans, 1) {
		a.Equal(Transaction{Addr: 0x33, Out: []byte{1, 2}, Err: ErrNack}, trans[0])
	}
	a.Nil(bus.Device(0x33))
}

func TestFaults(t *testing.T) {
	a := assert.New(t)
	bus := NewBus()
	dev := NewDevice(nil)
	bus.Attach(0x20, dev)
	failure := errors.New("failure")
	dev.InjectFault(Fault{Register: 5, Op: OpWrite, Skip: 1, Err: failure})
	dev.InjectFault(Fault{Register: 6, Op: OpRead, Err: failure})

	a.NoError(bus.I2cWrite(0x20, 5, 1))
	a.Equal(failure, bus.I2cWrite(0x20, 5, 2))
	a.Equal(byte(1), dev.Get(5))

	_, err := bus.I2cGet(0x20, 5, 1)
	a.NoError(err)
	_, err = bus.I2cGet(0x20, 6, 1)
	a.Equal(failure, err)

	dev.ClearFaults()
	a.NoError(bus.I2cWrite(0x20, 5, 3))
	a.Equal(byte(3), dev.Get(5))
}

func TestOnWrite(t *testing.T) {
	a := assert.New(t)
	bus := NewBus()
	dev := NewDevice(nil)
	dev.OnWrite = func(d *Device, register, value byte) bool {
		return register != 7
	}
	bus.Attach(0x20, dev)
	a.NoError(bus.I2cWrite(0x20, 6, 1, 1, 1))
	a.Equal([]byte{1, 0, 1}, []byte{dev.Get(6), dev.Get(7), dev.Get(8)})
}

func TestRegisterWrites(t *testing.T) {
	a := assert.New(t)
	bus := NewBus()
	bus.Attach(0x20, NewDevice(nil))
	a.NoError(bus.I2cWrite(0x20, 1, 2))
	a.NoError(bus.I2cWrite(0x20, 3, 4, 5))
	_, err := bus.I2cGet(0x20, 1, 1)
	a.NoError(err)
	a.Error(bus.I2cWrite(0x21, 6, 7))
	a.Equal([]RegisterWrite{{Register: 1, Value: 2}}, bus.RegisterWrites(0x20))

	bus.ClearLog()
	a.Empty(bus.Transactions())
}
