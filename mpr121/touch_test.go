package mpr121

import (
	"errors"

	"github.com/antongulenko/touch/i2csim"
)

func (s *testSuite) TestTouched() {
	s.chip.Set(byte(RegTouchStatus0_7), 0x23)
	s.chip.Set(byte(RegTouchStatus8_11), 0xF1)
	touched, err := s.dev.GetTouched()
	s.NoError(err)
	s.Equal(uint16(0x0123), touched)
}

func (s *testSuite) TestSensorTouch() {
	SimulateTouch(s.chip, 0x0801)
	for _, c := range Channels() {
		touched, err := s.dev.GetSensorTouch(c)
		s.NoError(err)
		s.Equal(c == 0 || c == 11, touched, "channel %v", c)
	}
}

func (s *testSuite) TestInvalidChannel() {
	_, err := s.dev.GetSensorTouch(12)
	s.Equal(ErrChannelExceed, err)
	_, err = s.dev.GetFiltered(12)
	s.Equal(ErrChannelExceed, err)
	_, err = s.dev.GetBaseline(200)
	s.Equal(ErrChannelExceed, err)
	s.Empty(s.bus.Transactions())
}

func (s *testSuite) TestFiltered() {
	SimulateFiltered(s.chip, 4, 0xABCD)
	val, err := s.dev.GetFiltered(4)
	s.NoError(err)
	s.Equal(uint16(0xABCD), val, "filtered data is not masked")

	val, err = s.dev.GetFiltered(5)
	s.NoError(err)
	s.Equal(uint16(0), val)
}

func (s *testSuite) setBaseline(c Channel, val uint16) {
	s.chip.Set(byte(c.BaselineRegister()), byte(val))
	s.chip.Set(byte(c.BaselineRegister())+1, byte(val>>8))
}

func (s *testSuite) TestBaseline() {
	s.setBaseline(2, 0x0020)
	val, err := s.dev.GetBaseline(2)
	s.NoError(err)
	s.Equal(byte(128), val)

	test := func(raw uint16, converted uint16) {
		s.setBaseline(2, raw)
		_, err := s.dev.GetBaseline(2)
		var convErr *DataConversionError
		s.True(errors.As(err, &convErr), "unexpected error %v", err)
		s.Equal(DataConversionError{Register: RegBaseline2, Value: converted}, *convErr)
	}
	test(0x0155, 0x550)
	test(0x0044, 0x110)
}

func (s *testSuite) TestOverCurrent() {
	set, err := s.dev.IsOverCurrentSet()
	s.NoError(err)
	s.False(set)

	s.chip.Set(byte(RegTouchStatus8_11), 0x80)
	set, err = s.dev.IsOverCurrentSet()
	s.NoError(err)
	s.True(set)

	SimulateTouch(s.chip, 0x0FFF)
	set, err = s.dev.IsOverCurrentSet()
	s.NoError(err)
	s.True(set, "touch updates keep the over-current flag")
	touched, err := s.dev.GetTouched()
	s.NoError(err)
	s.Equal(uint16(0x0FFF), touched)
}

func (s *testSuite) TestReadFailure() {
	failure := errors.New("arbitration lost")
	s.chip.InjectFault(i2csim.Fault{Register: byte(RegTouchStatus0_7), Op: i2csim.OpRead, Err: failure})
	_, err := s.dev.GetTouched()
	var readErr *ReadError
	s.True(errors.As(err, &readErr), "unexpected error %v", err)
	s.Equal(ReadError{Register: RegTouchStatus0_7, Err: failure}, *readErr)
}
