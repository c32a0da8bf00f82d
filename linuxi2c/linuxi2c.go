// Package linuxi2c accesses an I2C bus through the Linux i2c-dev interface (/dev/i2c-N),
// for example on a Raspberry Pi.
package linuxi2c

import (
	"fmt"

	"github.com/antongulenko/touch/ft260"
	"github.com/kidoman/embd"
	_ "github.com/kidoman/embd/host/all"
	log "github.com/sirupsen/logrus"
)

// Bus implements ft260.I2cBus on top of an embd I2C bus.
type Bus struct {
	embd.I2CBus
	Number byte
}

var _ ft260.I2cBus = new(Bus)

// Open initializes the embd I2C driver and opens bus number n.
func Open(n byte) (*Bus, error) {
	if err := embd.InitI2C(); err != nil {
		return nil, fmt.Errorf("Failed to initialize I2C: %v", err)
	}
	log.Printf("Opening Linux I2C bus %v", n)
	return &Bus{
		I2CBus: embd.NewI2CBus(n),
		Number: n,
	}, nil
}

func (b *Bus) I2cWrite(addr byte, data ...byte) error {
	return b.WriteBytes(addr, data)
}

func (b *Bus) I2cRead(addr byte, data []byte) error {
	in, err := b.ReadBytes(addr, len(data))
	if err != nil {
		return err
	}
	if len(in) != len(data) {
		return fmt.Errorf("Short I2C read from %02x (%v instead of %v byte)", addr, len(in), len(data))
	}
	copy(data, in)
	return nil
}

// I2cWriteRead supports writing at most one byte, the register address. It is sent in the
// same combined transaction as the read.
func (b *Bus) I2cWriteRead(addr byte, out, in []byte) error {
	switch len(out) {
	case 0:
		return b.I2cRead(addr, in)
	case 1:
		if len(in) == 0 {
			return b.I2cWrite(addr, out...)
		}
		return b.ReadFromReg(addr, out[0], in)
	default:
		return fmt.Errorf("Linux I2C bus %v: cannot write %v byte before a repeated start", b.Number, len(out))
	}
}

func (b *Bus) I2cGet(addr byte, register byte, size int) ([]byte, error) {
	data := make([]byte, size)
	err := b.ReadFromReg(addr, register, data)
	return data, err
}

func (b *Bus) Close() error {
	err := b.I2CBus.Close()
	if closeErr := embd.CloseI2C(); err == nil {
		err = closeErr
	}
	return err
}
