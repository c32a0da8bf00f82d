package mpr121

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	DefaultTouchThreshold   = 12
	DefaultReleaseThreshold = 6

	// The chip does not respond immediately after a soft reset
	ResetSettleTime = 100 * time.Microsecond

	// Supported supply voltage range (datasheet section 6.2)
	MinSupplyVoltage = 1.71
	MaxSupplyVoltage = 3.6

	// ECR bits 7-6 = 10: baseline tracking enabled, initial baseline loaded from the first 5 bits of the electrode data
	ecrCalibrationLock = byte(0x80)

	autoConfigEnable = byte(0x0B) // Retry 2 times, baseline value adjustment, auto-configuration and auto-reconfiguration enabled
	runCdtConfig     = byte(0x20) // 0.5us charge time, 4 samples for the second filter, 1ms period
)

// Config holds the settings applied when bringing up the chip.
type Config struct {
	Address Address

	// Run the chip's auto-configuration of charge current and time whenever it enters run mode.
	UseAutoConfig bool
	// Supply voltage of the chip, used to derive the auto-configuration limits.
	SupplyVoltage float64

	// Read back configuration registers after reset to make sure an MPR121 is responding.
	// Some circuits are too slow for this check, which is why it can be disabled.
	VerifyReset bool

	TouchThreshold   uint8
	ReleaseThreshold uint8

	// Used to wait for the chip after reset. time.Sleep if nil.
	Delay func(time.Duration)
}

var DefaultConfig = Config{
	Address:          AddressDefault,
	UseAutoConfig:    false,
	SupplyVoltage:    3.3,
	VerifyReset:      true,
	TouchThreshold:   DefaultTouchThreshold,
	ReleaseThreshold: DefaultReleaseThreshold,
}

func (c *Config) validate() error {
	if !c.Address.Valid() {
		return fmt.Errorf("%w: %v", ErrInvalidAddress, c.Address)
	}
	if c.UseAutoConfig && (c.SupplyVoltage < MinSupplyVoltage || c.SupplyVoltage > MaxSupplyVoltage) {
		return fmt.Errorf("%w: %vV (must be %v..%vV)", ErrSupplyVoltage, c.SupplyVoltage, MinSupplyVoltage, MaxSupplyVoltage)
	}
	return nil
}

// AutoConfigLimits computes the up-side limit, target level and low-side limit for the auto-configuration
// from the supply voltage (datasheet section 5.12 and application note AN3889).
func AutoConfigLimits(vdd float64) (upSide, target, lowSide byte) {
	up := (vdd - 0.7) / vdd * 256
	return byte(up), byte(up * 0.9), byte(up * 0.65)
}

// Device is an MPR121 on an I2C bus. It does not lock the bus: all calls on one bus must be serialized by the caller.
type Device struct {
	bus  Bus
	addr Address
}

// New resets the chip, verifies it (see Config.VerifyReset), configures all registers and
// enables the 12 electrodes. Any previous configuration of the chip is lost.
func New(bus Bus, cfg Config) (*Device, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	delay := cfg.Delay
	if delay == nil {
		delay = time.Sleep
	}
	d := &Device{bus: bus, addr: cfg.Address}

	log.Printf("Initializing MPR121 touch controller at %v...", d.addr)
	if err := d.Reset(); err != nil {
		return nil, err
	}
	delay(ResetSettleTime)
	if cfg.VerifyReset {
		if err := d.verify(); err != nil {
			return nil, err
		}
	}

	// Stop mode
	if err := d.write(RegEcr, 0); err != nil {
		return nil, err
	}
	if cfg.VerifyReset {
		if err := d.checkStopped(); err != nil {
			return nil, err
		}
	}

	if err := d.SetThresholds(cfg.TouchThreshold, cfg.ReleaseThreshold); err != nil {
		return nil, err
	}
	if err := d.initialiseRegisters(cfg); err != nil {
		return nil, err
	}
	log.Printf("MPR121 at %v running with %v electrodes", d.addr, NumChannels)
	return d, nil
}

// NewDefault initializes the chip at the default address 0x5A without auto-configuration.
func NewDefault(bus Bus) (*Device, error) {
	return New(bus, DefaultConfig)
}

func (d *Device) Address() Address {
	return d.addr
}

// Reset issues a soft reset, putting all registers back to their defaults.
// The chip needs ResetSettleTime before it can be accessed again.
func (d *Device) Reset() error {
	if err := d.write(RegSoftReset, SoftResetValue); err != nil {
		return asResetError(err)
	}
	return nil
}

// verify reads back the two configuration registers with non-zero defaults.
func (d *Device) verify() error {
	for _, reg := range []Register{RegCdcConfig, RegCdtConfig} {
		val, err := d.read8(reg)
		if err != nil {
			return err
		}
		if expected := reg.DefaultValue(); val != expected {
			return &WrongDeviceError{Register: reg, Expected: expected, Actual: val}
		}
	}
	return nil
}

// checkStopped makes sure the configuration survived entering stop mode. If not, the over-current
// flag tells whether the electrodes are in a fault condition.
func (d *Device) checkStopped() error {
	val, err := d.read8(RegCdtConfig)
	if err != nil {
		return err
	}
	if val != RegCdtConfig.DefaultValue() {
		overCurrent, err := d.IsOverCurrentSet()
		if err != nil {
			return err
		}
		return &InitFailedError{OverCurrentProtection: overCurrent}
	}
	return nil
}

// The same filter settings as the Adafruit driver (datasheet section 5.5)
var filterSettings = []struct {
	reg Register
	val byte
}{
	{RegMhdRising, 0x01},
	{RegNhdRising, 0x01},
	{RegNclRising, 0x0E},
	{RegFdlRising, 0x00},

	{RegMhdFalling, 0x01},
	{RegNhdFalling, 0x05},
	{RegNclFalling, 0x01},
	{RegFdlFalling, 0x00},

	{RegNhdTouched, 0x00},
	{RegNclTouched, 0x00},
	{RegFdlTouched, 0x00},
}

func (d *Device) initialiseRegisters(cfg Config) error {
	for _, setting := range filterSettings {
		if err := d.write(setting.reg, setting.val); err != nil {
			return err
		}
	}
	if err := d.write(RegDebounce, byte(DebounceZero)); err != nil {
		return err
	}
	if err := d.write(RegCdcConfig, RegCdcConfig.DefaultValue()); err != nil {
		return err
	}
	if err := d.write(RegCdtConfig, runCdtConfig); err != nil {
		return err
	}

	if cfg.UseAutoConfig {
		up, target, low := AutoConfigLimits(cfg.SupplyVoltage)
		log.Debugf("MPR121 %v: auto-configuration limits for %vV: up %v, target %v, low %v", d.addr, cfg.SupplyVoltage, up, target, low)
		if err := d.write(RegAutoConfig0, autoConfigEnable); err != nil {
			return err
		}
		if err := d.write(RegUpSideLimit, up); err != nil {
			return err
		}
		if err := d.write(RegTargetLevel, target); err != nil {
			return err
		}
		if err := d.write(RegLowSideLimit, low); err != nil {
			return err
		}
	}

	// Must be last: locks calibration, enables all electrodes and enters run mode (datasheet section 5.11)
	return d.write(RegEcr, ecrCalibrationLock|NumChannels)
}
