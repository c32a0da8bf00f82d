// Package i2csim simulates an I2C bus with register-file devices attached to it.
// It implements ft260.I2cBus and records every transaction, so drivers can be tested
// and run without hardware.
package i2csim

import (
	"errors"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"
)

var ErrNack = errors.New("i2csim: no acknowledge from slave")

const (
	OpRead = iota + 1
	OpWrite
)

// Fault makes accesses to a register fail. The first Skip matching accesses still succeed,
// all following ones fail with Err.
type Fault struct {
	Register byte
	Op       int // OpRead or OpWrite
	Skip     int
	Err      error
}

// Device is a slave with 256 byte-wide registers and an auto-incrementing register pointer.
type Device struct {
	registers [256]byte
	defaults  [256]byte
	pointer   byte
	faults    []*Fault

	// Called before a register is written. If it returns false, the value is not stored.
	OnWrite func(d *Device, register, value byte) bool
}

func NewDevice(defaults map[byte]byte) *Device {
	d := new(Device)
	for reg, val := range defaults {
		d.defaults[reg] = val
	}
	d.Reset()
	return d
}

// Reset sets all registers back to their defaults.
func (d *Device) Reset() {
	d.registers = d.defaults
	d.pointer = 0
}

// Set stores a register value without invoking OnWrite.
func (d *Device) Set(register, value byte) {
	d.registers[register] = value
}

func (d *Device) Get(register byte) byte {
	return d.registers[register]
}

func (d *Device) InjectFault(f Fault) {
	d.faults = append(d.faults, &f)
}

func (d *Device) ClearFaults() {
	d.faults = nil
}

func (d *Device) checkFault(register byte, op int) error {
	for _, f := range d.faults {
		if f.Register == register && f.Op == op {
			if f.Skip > 0 {
				f.Skip--
				continue
			}
			return f.Err
		}
	}
	return nil
}

func (d *Device) write(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	d.pointer = data[0]
	for _, val := range data[1:] {
		if err := d.checkFault(d.pointer, OpWrite); err != nil {
			return err
		}
		if d.OnWrite == nil || d.OnWrite(d, d.pointer, val) {
			d.registers[d.pointer] = val
		}
		d.pointer++
	}
	return nil
}

func (d *Device) read(data []byte) error {
	for i := range data {
		if err := d.checkFault(d.pointer, OpRead); err != nil {
			return err
		}
		data[i] = d.registers[d.pointer]
		d.pointer++
	}
	return nil
}

// Transaction is one recorded bus operation. For reads, In holds the data returned to the master.
type Transaction struct {
	Addr byte
	Out  []byte
	In   []byte
	Err  error
}

func (t Transaction) String() string {
	return fmt.Sprintf("%#02x: out %#02x in %#02x err %v", t.Addr, t.Out, t.In, t.Err)
}

// RegisterWrite is a transaction writing a single register.
type RegisterWrite struct {
	Register byte
	Value    byte
}

// Bus implements ft260.I2cBus on top of simulated devices. It is safe for concurrent use,
// every transaction is atomic.
type Bus struct {
	lock         sync.Mutex
	devices      map[byte]*Device
	transactions []Transaction
}

func NewBus() *Bus {
	return &Bus{devices: make(map[byte]*Device)}
}

func (b *Bus) Attach(addr byte, d *Device) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.devices[addr] = d
}

func (b *Bus) Device(addr byte) *Device {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.devices[addr]
}

func (b *Bus) transaction(addr byte, out []byte, in []byte) (err error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	defer func() {
		t := Transaction{Addr: addr, Out: append([]byte(nil), out...), Err: err}
		if in != nil {
			t.In = append([]byte(nil), in...)
		}
		b.transactions = append(b.transactions, t)
		log.Debugf("Simulated I2C transaction %v", t)
	}()
	dev, ok := b.devices[addr]
	if !ok {
		return ErrNack
	}
	if err := dev.write(out); err != nil {
		return err
	}
	return dev.read(in)
}

func (b *Bus) I2cWrite(addr byte, data ...byte) error {
	return b.transaction(addr, data, nil)
}

func (b *Bus) I2cRead(addr byte, data []byte) error {
	return b.transaction(addr, nil, data)
}

func (b *Bus) I2cWriteRead(addr byte, out, in []byte) error {
	return b.transaction(addr, out, in)
}

func (b *Bus) I2cGet(addr byte, register byte, size int) ([]byte, error) {
	data := make([]byte, size)
	err := b.transaction(addr, []byte{register}, data)
	return data, err
}

// Transactions returns a copy of all transactions recorded since the last ClearLog.
func (b *Bus) Transactions() []Transaction {
	b.lock.Lock()
	defer b.lock.Unlock()
	return append([]Transaction(nil), b.transactions...)
}

// RegisterWrites returns the successful single-register writes to the given address, in order.
func (b *Bus) RegisterWrites(addr byte) []RegisterWrite {
	var result []RegisterWrite
	for _, t := range b.Transactions() {
		if t.Addr == addr && t.Err == nil && len(t.Out) == 2 && len(t.In) == 0 {
			result = append(result, RegisterWrite{Register: t.Out[0], Value: t.Out[1]})
		}
	}
	return result
}

func (b *Bus) ClearLog() {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.transactions = nil
}
