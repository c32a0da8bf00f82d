package mpr121

import (
	"errors"
	"fmt"
)

var (
	ErrChannelExceed  = errors.New("MPR121: channel index exceeds 0..11")
	ErrInvalidAddress = errors.New("MPR121: invalid I2C address")
	ErrSupplyVoltage  = errors.New("MPR121: supply voltage out of range")
)

// ReadError is returned when a bus transaction reading a register failed.
type ReadError struct {
	Register Register
	Err      error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("MPR121: failed to read register %v: %v", e.Register, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

// WriteError is returned when a bus transaction writing a register failed.
// If the register requires stop mode, the chip may be left in stop mode.
type WriteError struct {
	Register Register
	Err      error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("MPR121: failed to write register %v: %v", e.Register, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// DataConversionError is returned when a value read from a register does not fit its documented width.
type DataConversionError struct {
	Register Register
	Value    uint16
}

func (e *DataConversionError) Error() string {
	return fmt.Sprintf("MPR121: value %#04x read from register %v does not fit into 8 bit", e.Value, e.Register)
}

// ResetFailedError is returned when the soft reset sequence failed.
type ResetFailedError struct {
	WasRead  bool
	Register Register
	Err      error
}

func (e *ResetFailedError) Error() string {
	op := "write"
	if e.WasRead {
		op = "read"
	}
	return fmt.Sprintf("MPR121: reset failed (%v of register %v): %v", op, e.Register, e.Err)
}

func (e *ResetFailedError) Unwrap() error {
	return e.Err
}

// InitFailedError is returned when the configuration registers do not hold their default values
// after entering stop mode. OverCurrentProtection tells whether the chip reports an over-current
// condition on the electrodes (e.g. a short circuit), as opposed to a wiring fault.
type InitFailedError struct {
	OverCurrentProtection bool
}

func (e *InitFailedError) Error() string {
	if e.OverCurrentProtection {
		return "MPR121: initialization failed, over-current protection is active (check the electrodes for short circuits)"
	}
	return "MPR121: initialization failed, configuration registers do not hold their default values"
}

// WrongDeviceError is returned when a register read back after reset does not hold its documented default.
// Either there is no MPR121 at the address, or the wiring is faulty.
type WrongDeviceError struct {
	Register Register
	Expected byte
	Actual   byte
}

func (e *WrongDeviceError) Error() string {
	return fmt.Sprintf("MPR121: unexpected value 0x%02x in register %v after reset (expected 0x%02x)", e.Actual, e.Register, e.Expected)
}

// asResetError converts read and write errors of the reset sequence into a ResetFailedError.
func asResetError(err error) error {
	var readErr *ReadError
	var writeErr *WriteError
	switch {
	case errors.As(err, &readErr):
		return &ResetFailedError{WasRead: true, Register: readErr.Register, Err: readErr.Err}
	case errors.As(err, &writeErr):
		return &ResetFailedError{WasRead: false, Register: writeErr.Register, Err: writeErr.Err}
	default:
		return err
	}
}
