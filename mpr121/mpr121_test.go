package mpr121

import (
	"errors"
	"testing"
	"time"

	"github.com/antongulenko/touch/i2csim"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type testSuite struct {
	t *testing.T
	*require.Assertions

	bus  *i2csim.Bus
	chip *i2csim.Device
	dev  *Device
}

func (suite *testSuite) T() *testing.T {
	return suite.t
}

func (suite *testSuite) SetT(t *testing.T) {
	suite.t = t
	suite.Assertions = require.New(t)
}

func (suite *testSuite) SetupTest() {
	suite.bus = i2csim.NewBus()
	suite.chip = NewSimulator()
	suite.bus.Attach(byte(AddressDefault), suite.chip)
	suite.dev = &Device{bus: suite.bus, addr: AddressDefault}
}

func TestAll(t *testing.T) {
	suite.Run(t, new(testSuite))
}

func testConfig() Config {
	cfg := DefaultConfig
	cfg.Delay = func(time.Duration) {}
	return cfg
}

func (s *testSuite) reg(r Register) byte {
	return s.chip.Get(byte(r))
}

// Writes except the ECR writes of guarded write sequences
func (s *testSuite) payloadWrites() []i2csim.RegisterWrite {
	var result []i2csim.RegisterWrite
	for _, w := range s.bus.RegisterWrites(byte(AddressDefault)) {
		if Register(w.Register) != RegEcr {
			result = append(result, w)
		}
	}
	return result
}

func (s *testSuite) TestBringUp() {
	var delays []time.Duration
	cfg := testConfig()
	cfg.Delay = func(d time.Duration) {
		delays = append(delays, d)
	}
	dev, err := New(s.bus, cfg)
	s.NoError(err)
	s.Equal(AddressDefault, dev.Address())
	s.Equal([]time.Duration{ResetSettleTime}, delays)

	s.Equal(byte(0x8C), s.reg(RegEcr), "calibration lock and 12 electrodes")
	s.Equal(byte(0x20), s.reg(RegCdtConfig))
	s.Equal(byte(0x10), s.reg(RegCdcConfig))
	for _, c := range Channels() {
		s.Equal(byte(DefaultTouchThreshold), s.reg(c.TouchThresholdRegister()), "touch threshold of channel %v", c)
		s.Equal(byte(DefaultReleaseThreshold), s.reg(c.ReleaseThresholdRegister()), "release threshold of channel %v", c)
	}

	touched, err := dev.GetTouched()
	s.NoError(err)
	s.Equal(uint16(0), touched)
}

func (s *testSuite) TestBringUpOrder() {
	_, err := New(s.bus, testConfig())
	s.NoError(err)

	var expected []i2csim.RegisterWrite
	w := func(r Register, val byte) {
		expected = append(expected, i2csim.RegisterWrite{Register: byte(r), Value: val})
	}
	w(RegSoftReset, SoftResetValue)
	for _, c := range Channels() {
		w(c.TouchThresholdRegister(), DefaultTouchThreshold)
		w(c.ReleaseThresholdRegister(), DefaultReleaseThreshold)
	}
	for _, setting := range filterSettings {
		w(setting.reg, setting.val)
	}
	w(RegDebounce, 0)
	w(RegCdcConfig, 0x10)
	w(RegCdtConfig, 0x20)
	s.Equal(expected, s.payloadWrites())

	all := s.bus.RegisterWrites(byte(AddressDefault))
	s.Equal(i2csim.RegisterWrite{Register: byte(RegEcr), Value: 0x8C}, all[len(all)-1], "enabling the electrodes must be the last write")
}

func (s *testSuite) TestBringUpAutoConfig() {
	cfg := testConfig()
	cfg.UseAutoConfig = true
	_, err := New(s.bus, cfg)
	s.NoError(err)
	s.Equal(byte(0x0B), s.reg(RegAutoConfig0))
	s.Equal(byte(201), s.reg(RegUpSideLimit))
	s.Equal(byte(181), s.reg(RegTargetLevel))
	s.Equal(byte(131), s.reg(RegLowSideLimit))
	s.Equal(byte(0x8C), s.reg(RegEcr))
}

func (s *testSuite) TestInvalidConfig() {
	cfg := testConfig()
	cfg.UseAutoConfig = true
	cfg.SupplyVoltage = 5
	_, err := New(s.bus, cfg)
	s.True(errors.Is(err, ErrSupplyVoltage), "unexpected error %v", err)

	cfg = testConfig()
	cfg.Address = Address(0x20)
	_, err = New(s.bus, cfg)
	s.True(errors.Is(err, ErrInvalidAddress), "unexpected error %v", err)

	s.Empty(s.bus.Transactions())
}

// Overwrite a register right after every soft reset of the simulator
func (s *testSuite) corruptAfterReset(r Register, val byte) {
	reset := s.chip.OnWrite
	s.chip.OnWrite = func(d *i2csim.Device, register, value byte) bool {
		store := reset(d, register, value)
		if Register(register) == RegSoftReset {
			d.Set(byte(r), val)
		}
		return store
	}
}

func (s *testSuite) TestWrongDevice() {
	s.corruptAfterReset(RegCdtConfig, 0x00)
	_, err := New(s.bus, testConfig())
	var wrongDevice *WrongDeviceError
	s.True(errors.As(err, &wrongDevice), "unexpected error %v", err)
	s.Equal(WrongDeviceError{Register: RegCdtConfig, Expected: 0x24, Actual: 0x00}, *wrongDevice)
}

func (s *testSuite) TestWrongDeviceFirstRegister() {
	s.corruptAfterReset(RegCdcConfig, 0x11)
	_, err := New(s.bus, testConfig())
	var wrongDevice *WrongDeviceError
	s.True(errors.As(err, &wrongDevice), "unexpected error %v", err)
	s.Equal(WrongDeviceError{Register: RegCdcConfig, Expected: 0x10, Actual: 0x11}, *wrongDevice)
}

func (s *testSuite) TestSkipVerification() {
	s.corruptAfterReset(RegCdtConfig, 0x00)
	cfg := testConfig()
	cfg.VerifyReset = false
	_, err := New(s.bus, cfg)
	s.NoError(err)
}

// Corrupt the CDT configuration when the chip is put into stop mode after the reset
func (s *testSuite) corruptOnStop(overCurrent bool) {
	reset := s.chip.OnWrite
	ecrWritesAfterReset := -1
	s.chip.OnWrite = func(d *i2csim.Device, register, value byte) bool {
		store := reset(d, register, value)
		switch Register(register) {
		case RegSoftReset:
			ecrWritesAfterReset = 0
		case RegEcr:
			if ecrWritesAfterReset >= 0 {
				ecrWritesAfterReset++
				// The first ECR write after the reset restores the previous mode
				if ecrWritesAfterReset == 2 {
					d.Set(byte(RegCdtConfig), 0)
					if overCurrent {
						d.Set(byte(RegTouchStatus8_11), 0x80)
					}
				}
			}
		}
		return store
	}
}

func (s *testSuite) TestInitFailed() {
	s.corruptOnStop(false)
	_, err := New(s.bus, testConfig())
	var initFailed *InitFailedError
	s.True(errors.As(err, &initFailed), "unexpected error %v", err)
	s.False(initFailed.OverCurrentProtection)
}

func (s *testSuite) TestInitFailedOverCurrent() {
	s.corruptOnStop(true)
	_, err := New(s.bus, testConfig())
	var initFailed *InitFailedError
	s.True(errors.As(err, &initFailed), "unexpected error %v", err)
	s.True(initFailed.OverCurrentProtection)
}

func (s *testSuite) TestNoDevice() {
	bus := i2csim.NewBus()
	_, err := NewDefault(bus)
	var resetErr *ResetFailedError
	s.True(errors.As(err, &resetErr), "unexpected error %v", err)
	s.True(resetErr.WasRead)
	s.Equal(RegEcr, resetErr.Register)
	s.True(errors.Is(err, i2csim.ErrNack))
}

func (s *testSuite) TestResetWriteFailure() {
	failure := errors.New("bus error")
	s.chip.InjectFault(i2csim.Fault{Register: byte(RegSoftReset), Op: i2csim.OpWrite, Err: failure})
	err := s.dev.Reset()
	var resetErr *ResetFailedError
	s.True(errors.As(err, &resetErr), "unexpected error %v", err)
	s.Equal(ResetFailedError{WasRead: false, Register: RegSoftReset, Err: failure}, *resetErr)
}

func (s *testSuite) TestResetRestoresMode() {
	s.chip.Set(byte(RegEcr), 0x8C)
	s.chip.Set(byte(RegDebounce), 0x11)
	s.NoError(s.dev.Reset())
	s.Equal(byte(0), s.reg(RegDebounce))
	s.Equal(byte(0x8C), s.reg(RegEcr))
}

func (s *testSuite) TestSetThresholds() {
	_, err := New(s.bus, testConfig())
	s.NoError(err)
	s.NoError(s.dev.SetThresholds(40, 20))
	for _, c := range Channels() {
		s.Equal(byte(40), s.reg(c.TouchThresholdRegister()))
		s.Equal(byte(20), s.reg(c.ReleaseThresholdRegister()))
	}
	s.Equal(byte(0x8C), s.reg(RegEcr), "run mode must be restored")
}

func (s *testSuite) TestSetThresholdsAbort() {
	failing := Channel(3).ReleaseThresholdRegister()
	s.chip.InjectFault(i2csim.Fault{Register: byte(failing), Op: i2csim.OpWrite, Err: errors.New("nack")})
	err := s.dev.SetThresholds(40, 20)
	var writeErr *WriteError
	s.True(errors.As(err, &writeErr), "unexpected error %v", err)
	s.Equal(failing, writeErr.Register)

	for c := Channel(0); c < 3; c++ {
		s.Equal(byte(40), s.reg(c.TouchThresholdRegister()))
		s.Equal(byte(20), s.reg(c.ReleaseThresholdRegister()))
	}
	s.Equal(byte(40), s.reg(Channel(3).TouchThresholdRegister()))
	s.Equal(byte(0), s.reg(Channel(4).TouchThresholdRegister()), "no writes after the failure")
}

func (s *testSuite) TestSetDebounce() {
	s.NoError(s.dev.SetDebounce(DebounceThree, DebounceFive))
	s.Contains(s.bus.RegisterWrites(byte(AddressDefault)), i2csim.RegisterWrite{Register: byte(RegDebounce), Value: 0x53})
	s.Equal(byte(0x53), s.reg(RegDebounce))
}

func (s *testSuite) TestSetDebounceClamped() {
	s.NoError(s.dev.SetDebounce(DebounceNumber(9), DebounceNumber(200)))
	s.Equal(byte(0x77), s.reg(RegDebounce))
}
