// Package mpr121 drives the NXP MPR121 12-channel capacitive touch controller over I2C.
//
// Datasheet: https://www.nxp.com/docs/en/data-sheet/MPR121.pdf
package mpr121

import "fmt"

// Register is the address of one register of the MPR121.
// Only the constants declared below are valid registers.
type Register byte

const (
	// Touch status, bit n is electrode n. Bit 7 of RegTouchStatus8_11 is the over-current flag.
	RegTouchStatus0_7  = Register(0x00)
	RegTouchStatus8_11 = Register(0x01)

	// Out-of-range status, set when auto-configuration failed for an electrode
	RegOorStatus0_7  = Register(0x02)
	RegOorStatus8_11 = Register(0x03)

	// Filtered electrode data, 10 bit, low byte first. One register pair per electrode.
	RegFilteredData0  = Register(0x04)
	RegFilteredData1  = Register(0x06)
	RegFilteredData2  = Register(0x08)
	RegFilteredData3  = Register(0x0A)
	RegFilteredData4  = Register(0x0C)
	RegFilteredData5  = Register(0x0E)
	RegFilteredData6  = Register(0x10)
	RegFilteredData7  = Register(0x12)
	RegFilteredData8  = Register(0x14)
	RegFilteredData9  = Register(0x16)
	RegFilteredData10 = Register(0x18)
	RegFilteredData11 = Register(0x1A)

	// Upper 8 bit of the 10 bit baseline value, one per electrode
	RegBaseline0  = Register(0x1E)
	RegBaseline1  = Register(0x1F)
	RegBaseline2  = Register(0x20)
	RegBaseline3  = Register(0x21)
	RegBaseline4  = Register(0x22)
	RegBaseline5  = Register(0x23)
	RegBaseline6  = Register(0x24)
	RegBaseline7  = Register(0x25)
	RegBaseline8  = Register(0x26)
	RegBaseline9  = Register(0x27)
	RegBaseline10 = Register(0x28)
	RegBaseline11 = Register(0x29)

	// Baseline filter control (datasheet section 5.5).
	// MHD: maximum half delta, NHD: noise half delta, NCL: noise count limit, FDL: filter delay count limit.
	// Suffix R: rising, F: falling, T: touched.
	RegMhdRising  = Register(0x2B)
	RegNhdRising  = Register(0x2C)
	RegNclRising  = Register(0x2D)
	RegFdlRising  = Register(0x2E)
	RegMhdFalling = Register(0x2F)
	RegNhdFalling = Register(0x30)
	RegNclFalling = Register(0x31)
	RegFdlFalling = Register(0x32)
	RegNhdTouched = Register(0x33)
	RegNclTouched = Register(0x34)
	RegFdlTouched = Register(0x35)

	// Touch and release thresholds alternate, starting with electrode 0
	RegTouchThreshold0    = Register(0x41)
	RegReleaseThreshold0  = Register(0x42)
	RegTouchThreshold1    = Register(0x43)
	RegReleaseThreshold1  = Register(0x44)
	RegTouchThreshold2    = Register(0x45)
	RegReleaseThreshold2  = Register(0x46)
	RegTouchThreshold3    = Register(0x47)
	RegReleaseThreshold3  = Register(0x48)
	RegTouchThreshold4    = Register(0x49)
	RegReleaseThreshold4  = Register(0x4A)
	RegTouchThreshold5    = Register(0x4B)
	RegReleaseThreshold5  = Register(0x4C)
	RegTouchThreshold6    = Register(0x4D)
	RegReleaseThreshold6  = Register(0x4E)
	RegTouchThreshold7    = Register(0x4F)
	RegReleaseThreshold7  = Register(0x50)
	RegTouchThreshold8    = Register(0x51)
	RegReleaseThreshold8  = Register(0x52)
	RegTouchThreshold9    = Register(0x53)
	RegReleaseThreshold9  = Register(0x54)
	RegTouchThreshold10   = Register(0x55)
	RegReleaseThreshold10 = Register(0x56)
	RegTouchThreshold11   = Register(0x57)
	RegReleaseThreshold11 = Register(0x58)

	// Bits 0-2: touch debounce, bits 4-6: release debounce
	RegDebounce = Register(0x5B)

	// Filter and global charge/discharge current configuration (AFE configuration 1). Default: 0x10
	RegCdcConfig = Register(0x5C)
	// Filter and global charge/discharge time configuration (AFE configuration 2). Default: 0x24
	RegCdtConfig = Register(0x5D)

	// Electrode configuration register. 0 puts the chip into stop mode.
	// Bits 7-6: calibration lock, bits 5-4: proximity enable, bits 3-0: number of enabled electrodes.
	RegEcr = Register(0x5E)

	// Per-electrode charge current, overriding the global value when not zero
	RegChargeCurrent0  = Register(0x5F)
	RegChargeCurrent1  = Register(0x60)
	RegChargeCurrent2  = Register(0x61)
	RegChargeCurrent3  = Register(0x62)
	RegChargeCurrent4  = Register(0x63)
	RegChargeCurrent5  = Register(0x64)
	RegChargeCurrent6  = Register(0x65)
	RegChargeCurrent7  = Register(0x66)
	RegChargeCurrent8  = Register(0x67)
	RegChargeCurrent9  = Register(0x68)
	RegChargeCurrent10 = Register(0x69)
	RegChargeCurrent11 = Register(0x6A)

	// Per-electrode charge time, two electrodes per register (low nibble: even electrode)
	RegChargeTime0_1   = Register(0x6C)
	RegChargeTime2_3   = Register(0x6D)
	RegChargeTime4_5   = Register(0x6E)
	RegChargeTime6_7   = Register(0x6F)
	RegChargeTime8_9   = Register(0x70)
	RegChargeTime10_11 = Register(0x71)

	// GPIO block (electrodes 4-11 can be used as GPIO when not enabled as touch inputs).
	// These can be written in run mode.
	RegGpioControl0  = Register(0x73)
	RegGpioControl1  = Register(0x74)
	RegGpioData      = Register(0x75)
	RegGpioDirection = Register(0x76)
	RegGpioEnable    = Register(0x77)
	RegGpioSet       = Register(0x78)
	RegGpioClear     = Register(0x79)
	RegGpioToggle    = Register(0x7A)

	// Auto-configuration
	RegAutoConfig0  = Register(0x7B)
	RegAutoConfig1  = Register(0x7C)
	RegUpSideLimit  = Register(0x7D)
	RegLowSideLimit = Register(0x7E)
	RegTargetLevel  = Register(0x7F)

	// Writing SoftResetValue resets all registers to their defaults
	RegSoftReset = Register(0x80)
)

const (
	// Default value of RegCdcConfig after reset: 16uA charge current, 6 samples for the first filter
	DefaultCdcConfig = byte(0x10)
	// Default value of RegCdtConfig after reset: 0.5us charge time, 4 samples for the second filter, 16ms period
	DefaultCdtConfig = byte(0x24)

	SoftResetValue = byte(0x63)
)

var registerNames = map[Register]string{
	RegTouchStatus0_7:  "TouchStatus0_7",
	RegTouchStatus8_11: "TouchStatus8_11",
	RegOorStatus0_7:    "OorStatus0_7",
	RegOorStatus8_11:   "OorStatus8_11",
	RegMhdRising:       "MhdRising",
	RegNhdRising:       "NhdRising",
	RegNclRising:       "NclRising",
	RegFdlRising:       "FdlRising",
	RegMhdFalling:      "MhdFalling",
	RegNhdFalling:      "NhdFalling",
	RegNclFalling:      "NclFalling",
	RegFdlFalling:      "FdlFalling",
	RegNhdTouched:      "NhdTouched",
	RegNclTouched:      "NclTouched",
	RegFdlTouched:      "FdlTouched",
	RegDebounce:        "Debounce",
	RegCdcConfig:       "CdcConfig",
	RegCdtConfig:       "CdtConfig",
	RegEcr:             "Ecr",
	RegChargeTime0_1:   "ChargeTime0_1",
	RegChargeTime2_3:   "ChargeTime2_3",
	RegChargeTime4_5:   "ChargeTime4_5",
	RegChargeTime6_7:   "ChargeTime6_7",
	RegChargeTime8_9:   "ChargeTime8_9",
	RegChargeTime10_11: "ChargeTime10_11",
	RegGpioControl0:    "GpioControl0",
	RegGpioControl1:    "GpioControl1",
	RegGpioData:        "GpioData",
	RegGpioDirection:   "GpioDirection",
	RegGpioEnable:      "GpioEnable",
	RegGpioSet:         "GpioSet",
	RegGpioClear:       "GpioClear",
	RegGpioToggle:      "GpioToggle",
	RegAutoConfig0:     "AutoConfig0",
	RegAutoConfig1:     "AutoConfig1",
	RegUpSideLimit:     "UpSideLimit",
	RegLowSideLimit:    "LowSideLimit",
	RegTargetLevel:     "TargetLevel",
	RegSoftReset:       "SoftReset",
}

func init() {
	for _, c := range Channels() {
		registerNames[c.FilteredDataRegister()] = fmt.Sprintf("FilteredData%v", c)
		registerNames[c.BaselineRegister()] = fmt.Sprintf("Baseline%v", c)
		registerNames[c.TouchThresholdRegister()] = fmt.Sprintf("TouchThreshold%v", c)
		registerNames[c.ReleaseThresholdRegister()] = fmt.Sprintf("ReleaseThreshold%v", c)
		registerNames[c.ChargeCurrentRegister()] = fmt.Sprintf("ChargeCurrent%v", c)
	}
}

// Valid returns true for the registers declared in this package.
func (r Register) Valid() bool {
	_, ok := registerNames[r]
	return ok
}

func (r Register) String() string {
	if name, ok := registerNames[r]; ok {
		return fmt.Sprintf("%v(0x%02x)", name, byte(r))
	}
	return fmt.Sprintf("Unknown(0x%02x)", byte(r))
}

// RequiresStop returns true if the chip only accepts writes to this register while in stop mode.
// Only the ECR itself and the GPIO block can be written in run mode.
func (r Register) RequiresStop() bool {
	if r == RegEcr {
		return false
	}
	return r < RegGpioControl0 || r > RegGpioToggle
}

// DefaultValue returns the documented value of the register after a reset.
func (r Register) DefaultValue() byte {
	switch r {
	case RegCdcConfig:
		return DefaultCdcConfig
	case RegCdtConfig:
		return DefaultCdtConfig
	default:
		return 0
	}
}

// Registers returns all valid registers in ascending address order.
func Registers() []Register {
	result := make([]Register, 0, len(registerNames))
	for r := 0; r <= int(RegSoftReset); r++ {
		if Register(r).Valid() {
			result = append(result, Register(r))
		}
	}
	return result
}

// ==================== Channels

const NumChannels = 12

// Channel is the index of one of the 12 electrodes, 0..11.
type Channel uint8

// NewChannel returns ErrChannelExceed if the index is outside 0..11.
func NewChannel(index int) (Channel, error) {
	if index < 0 || index >= NumChannels {
		return 0, ErrChannelExceed
	}
	return Channel(index), nil
}

// Channels returns all 12 channels in ascending order.
func Channels() []Channel {
	result := make([]Channel, NumChannels)
	for i := range result {
		result[i] = Channel(i)
	}
	return result
}

func (c Channel) Valid() bool {
	return c < NumChannels
}

// The register derivations below wrap invalid channels into 0..11, so they never address
// a register of a different kind. Device methods reject invalid channels before getting here.

func (c Channel) index() byte {
	return byte(c % NumChannels)
}

func (c Channel) TouchThresholdRegister() Register {
	return RegTouchThreshold0 + Register(2*c.index())
}

func (c Channel) ReleaseThresholdRegister() Register {
	return RegReleaseThreshold0 + Register(2*c.index())
}

// FilteredDataRegister returns the first (low byte) register of the 16 bit filtered data pair.
func (c Channel) FilteredDataRegister() Register {
	return RegFilteredData0 + Register(2*c.index())
}

func (c Channel) BaselineRegister() Register {
	return RegBaseline0 + Register(c.index())
}

func (c Channel) ChargeCurrentRegister() Register {
	return RegChargeCurrent0 + Register(c.index())
}

// BitMask returns the bit of this channel in the touch status value.
func (c Channel) BitMask() uint16 {
	return 1 << c.index()
}

// ==================== Addresses

// Address is the I2C address of the chip, selected by wiring the ADDR pin.
type Address byte

const (
	AddressDefault = Address(0x5A) // ADDR connected to VSS or floating
	AddressVdd     = Address(0x5B) // ADDR connected to VDD
	AddressSda     = Address(0x5C) // ADDR connected to SDA
	AddressScl     = Address(0x5D) // ADDR connected to SCL
)

// ParseAddress returns ErrInvalidAddress for anything but the 4 selectable addresses.
func ParseAddress(addr uint) (Address, error) {
	a := Address(addr)
	if addr > 0xFF || !a.Valid() {
		return 0, fmt.Errorf("%w: 0x%02x (must be one of %v)", ErrInvalidAddress, addr, []Address{AddressDefault, AddressVdd, AddressSda, AddressScl})
	}
	return a, nil
}

func (a Address) Valid() bool {
	return a >= AddressDefault && a <= AddressScl
}

func (a Address) String() string {
	return fmt.Sprintf("0x%02x", byte(a))
}

// ==================== Debounce

// DebounceNumber is the number of additional consecutive samples required to detect a touch or release, 0..7.
type DebounceNumber uint8

const (
	DebounceZero = DebounceNumber(iota)
	DebounceOne
	DebounceTwo
	DebounceThree
	DebounceFour
	DebounceFive
	DebounceSix
	DebounceSeven

	MaxDebounce = DebounceSeven
)
