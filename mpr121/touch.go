package mpr121

const (
	touchStatusMask  = uint16(0x0FFF)
	overCurrentFlag  = byte(1 << 7)
	baselineMsbMask  = uint16(0x03FC)
	baselineMaxValue = uint16(0xFF)
)

// GetTouched returns the touch state of all channels, bit n is set if channel n is touched.
// Every call reads the chip.
func (d *Device) GetTouched() (uint16, error) {
	status, err := d.read16(RegTouchStatus0_7)
	if err != nil {
		return 0, err
	}
	return status & touchStatusMask, nil
}

// GetSensorTouch returns true if the channel is touched.
func (d *Device) GetSensorTouch(c Channel) (bool, error) {
	if !c.Valid() {
		return false, ErrChannelExceed
	}
	touched, err := d.GetTouched()
	if err != nil {
		return false, err
	}
	return touched&c.BitMask() != 0, nil
}

// GetFiltered returns the filtered electrode data of the channel (datasheet section 5.3).
// Only the lower 10 bit are used by the chip.
func (d *Device) GetFiltered(c Channel) (uint16, error) {
	if !c.Valid() {
		return 0, ErrChannelExceed
	}
	return d.read16(c.FilteredDataRegister())
}

// GetBaseline returns the baseline value of the channel.
//
// The chip only exposes the upper 8 of the 10 baseline bits. Reading 8 bit and shifting would lose the
// 2 most significant bits, so 16 bit are read and masked before shifting. Values that do not fit into 8 bit
// afterwards are reported as DataConversionError.
func (d *Device) GetBaseline(c Channel) (byte, error) {
	if !c.Valid() {
		return 0, ErrChannelExceed
	}
	reg := c.BaselineRegister()
	val, err := d.read16(reg)
	if err != nil {
		return 0, err
	}
	shifted := (val & baselineMsbMask) << 2
	if shifted > baselineMaxValue {
		return 0, &DataConversionError{Register: reg, Value: shifted}
	}
	return byte(shifted), nil
}

// IsOverCurrentSet returns true if the chip detected an over-current on the REXT pin.
// In that case all electrodes are disabled and the circuit should be checked.
func (d *Device) IsOverCurrentSet() (bool, error) {
	status, err := d.read8(RegTouchStatus8_11)
	if err != nil {
		return false, err
	}
	return status&overCurrentFlag != 0, nil
}
