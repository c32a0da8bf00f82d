package mpr121

import (
	"errors"

	"github.com/antongulenko/touch/i2csim"
)

func (s *testSuite) TestGuardedWrite() {
	s.chip.Set(byte(RegEcr), 0x8C)
	s.NoError(s.dev.write(RegDebounce, 0x21))
	s.Equal([]i2csim.RegisterWrite{
		{Register: byte(RegEcr), Value: 0},
		{Register: byte(RegDebounce), Value: 0x21},
		{Register: byte(RegEcr), Value: 0x8C},
	}, s.bus.RegisterWrites(byte(AddressDefault)))
	s.Equal(byte(0x21), s.reg(RegDebounce))
	s.Equal(byte(0x8C), s.reg(RegEcr))
}

func (s *testSuite) TestUnguardedWrite() {
	s.chip.Set(byte(RegEcr), 0x8C)
	s.NoError(s.dev.write(RegGpioSet, 0x0F))
	s.Len(s.bus.Transactions(), 1)
	s.Equal(byte(0x0F), s.reg(RegGpioSet))
}

func (s *testSuite) TestGuardedWriteEcrReadFailure() {
	s.chip.InjectFault(i2csim.Fault{Register: byte(RegEcr), Op: i2csim.OpRead, Err: i2csim.ErrNack})
	err := s.dev.write(RegDebounce, 0x21)
	var readErr *ReadError
	s.True(errors.As(err, &readErr), "unexpected error %v", err)
	s.Equal(RegEcr, readErr.Register)
	s.Empty(s.bus.RegisterWrites(byte(AddressDefault)))
}

func (s *testSuite) TestGuardedWriteRestoreFailure() {
	s.chip.Set(byte(RegEcr), 0x8C)
	s.chip.InjectFault(i2csim.Fault{Register: byte(RegEcr), Op: i2csim.OpWrite, Skip: 1, Err: i2csim.ErrNack})
	err := s.dev.write(RegDebounce, 0x21)
	var writeErr *WriteError
	s.True(errors.As(err, &writeErr), "unexpected error %v", err)
	s.Equal(RegEcr, writeErr.Register)
	s.Equal(byte(0x21), s.reg(RegDebounce))
	s.Equal(byte(0), s.reg(RegEcr), "chip stays in stop mode")
}

func (s *testSuite) TestGuardedWriteStopFailure() {
	s.chip.Set(byte(RegEcr), 0x8C)
	s.chip.Set(byte(RegDebounce), 0x11)
	s.chip.InjectFault(i2csim.Fault{Register: byte(RegEcr), Op: i2csim.OpWrite, Err: i2csim.ErrNack})
	err := s.dev.write(RegDebounce, 0x21)
	var writeErr *WriteError
	s.True(errors.As(err, &writeErr), "unexpected error %v", err)
	s.Equal(RegEcr, writeErr.Register)
	s.Empty(s.bus.RegisterWrites(byte(AddressDefault)), "the target register must not be written")
	s.Equal(byte(0x11), s.reg(RegDebounce))
	s.Equal(byte(0x8C), s.reg(RegEcr))
}

func (s *testSuite) TestRead16LittleEndian() {
	s.chip.Set(0x10, 0x34)
	s.chip.Set(0x11, 0x12)
	val, err := s.dev.read16(Register(0x10))
	s.NoError(err)
	s.Equal(uint16(0x1234), val)
}
