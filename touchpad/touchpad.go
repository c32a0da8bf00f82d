// Package touchpad ties an MPR121 touch controller to the I2C transport it is connected through
// and serializes all access to it.
package touchpad

import (
	"flag"
	"fmt"
	"strconv"
	"sync"

	"github.com/antongulenko/golib"
	"github.com/antongulenko/hid"
	"github.com/antongulenko/touch/ft260"
	"github.com/antongulenko/touch/i2csim"
	"github.com/antongulenko/touch/linuxi2c"
	"github.com/antongulenko/touch/mpr121"
	log "github.com/sirupsen/logrus"
)

const (
	TransportFt260 = "ft260"
	TransportLinux = "linux"
	TransportDummy = "dummy"
)

var DefaultTouchpad = Touchpad{
	Transport:       TransportFt260,
	UsbDevice:       "",
	I2cFreq:         uint(400),
	I2cRequestQueue: 20,
	LinuxBus:        1,
	Address:         uint(mpr121.AddressDefault),
	Sensor:          mpr121.DefaultConfig,
	IrqPin:          -1,
	IrqFt260Gpio:    -1,
}

type Touchpad struct {
	Transport       string
	UsbDevice       string
	I2cFreq         uint
	I2cRequestQueue int
	NoI2cSequencer  bool
	LinuxBus        uint
	Address         uint
	Sensor          mpr121.Config

	// BCM number of the Raspberry Pi pin connected to the IRQ line, negative to disable
	IrqPin int
	// Number (0-5) of the FT260 GPIO pin connected to the IRQ line, negative to disable
	IrqFt260Gpio int

	usb       *ft260.Ft260
	linux     *linuxi2c.Bus
	sim       *i2csim.Bus
	simChip   *i2csim.Device
	sequencer *sequencedI2cBus
	irq       IrqSource

	hidInit bool

	lock   sync.Mutex
	device *mpr121.Device
}

func (t *Touchpad) RegisterFlags() {
	flag.StringVar(&t.Transport, "transport", t.Transport, fmt.Sprintf("I2C transport, one of: %v, %v, %v", TransportFt260, TransportLinux, TransportDummy))
	flag.StringVar(&t.UsbDevice, "dev", t.UsbDevice, "Specify a USB path for FT260")
	flag.UintVar(&t.I2cFreq, "freq", t.I2cFreq, "The I2C bus frequency of the FT260 in kHz (60 - 3400)")
	flag.IntVar(&t.I2cRequestQueue, "i2c-queue", t.I2cRequestQueue, "Size of the I2C request queue")
	flag.BoolVar(&t.NoI2cSequencer, "no-i2c-sequencer", t.NoI2cSequencer, "Disable the extra goroutine for sequencing I2C commands")
	flag.UintVar(&t.LinuxBus, "linux-bus", t.LinuxBus, "Number of the Linux I2C bus (/dev/i2c-N)")
	flag.UintVar(&t.Address, "addr", t.Address, "I2C address of the MPR121 (0x5a - 0x5d)")
	flag.BoolVar(&t.Sensor.UseAutoConfig, "autoconfig", t.Sensor.UseAutoConfig, "Enable the auto-configuration of the MPR121")
	flag.Float64Var(&t.Sensor.SupplyVoltage, "vdd", t.Sensor.SupplyVoltage, "Supply voltage of the MPR121, used for auto-configuration")
	flag.BoolVar(&t.Sensor.VerifyReset, "verify", t.Sensor.VerifyReset, "Verify the MPR121 configuration registers after reset")
	flag.Var((*uint8Value)(&t.Sensor.TouchThreshold), "touch-threshold", "Touch threshold of all channels")
	flag.Var((*uint8Value)(&t.Sensor.ReleaseThreshold), "release-threshold", "Release threshold of all channels")
	flag.IntVar(&t.IrqPin, "irq-pin", t.IrqPin, "BCM number of the Raspberry Pi pin connected to the MPR121 IRQ line (negative: disabled)")
	flag.IntVar(&t.IrqFt260Gpio, "irq-ft260-gpio", t.IrqFt260Gpio, "FT260 GPIO (0-5) connected to the MPR121 IRQ line (negative: disabled)")
}

type uint8Value uint8

func (v *uint8Value) String() string {
	return strconv.Itoa(int(*v))
}

func (v *uint8Value) Set(s string) error {
	val, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return err
	}
	*v = uint8Value(val)
	return nil
}

// Setup opens the configured transport and initializes the MPR121. Everything opened so far
// is released again if any step fails.
func (t *Touchpad) Setup() (err error) {
	addr, err := mpr121.ParseAddress(t.Address)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			t.Cleanup()
		}
	}()
	t.Sensor.Address = addr

	var raw ft260.I2cBus
	switch t.Transport {
	case TransportFt260:
		if err := t.openFt260(); err != nil {
			return err
		}
		raw = t.usb
	case TransportLinux:
		if t.LinuxBus > 0xFF {
			return fmt.Errorf("Invalid Linux I2C bus number %v", t.LinuxBus)
		}
		bus, err := linuxi2c.Open(byte(t.LinuxBus))
		if err != nil {
			return err
		}
		t.linux = bus
		raw = bus
	case TransportDummy:
		log.Println("Dummy touchpad: using a simulated MPR121 instead of USB/I2C peripherals")
		t.sim = i2csim.NewBus()
		t.simChip = mpr121.NewSimulator()
		t.sim.Attach(byte(addr), t.simChip)
		raw = t.sim
	default:
		return fmt.Errorf("Unknown I2C transport %q", t.Transport)
	}

	if !t.NoI2cSequencer {
		t.sequencer = newSequencedI2cBus(raw, t.I2cRequestQueue)
		t.sequencer.start()
	}
	if err := t.Reinitialize(); err != nil {
		return err
	}
	if err := t.setupIrq(); err != nil {
		return err
	}
	log.Println("Successfully initialized touchpad")
	return nil
}

func (t *Touchpad) openFt260() error {
	if err := hid.Init(); err != nil {
		return err
	}
	t.hidInit = true
	usb, err := ft260.OpenPath(t.UsbDevice)
	if err != nil {
		return err
	}
	t.usb = usb
	if t.I2cFreq > 0xFFFF {
		return fmt.Errorf("Invalid FT260 I2C frequency %v", t.I2cFreq)
	}
	freq := uint16(t.I2cFreq)
	if err := usb.ValidateChipCode(); err != nil {
		return err
	}
	if err := usb.Configure(freq); err != nil {
		return err
	}
	return usb.Validate(freq)
}

func (t *Touchpad) setupIrq() error {
	switch {
	case t.IrqPin >= 0:
		irq, err := NewRpioIrq(t.IrqPin)
		if err != nil {
			return err
		}
		t.irq = irq
	case t.IrqFt260Gpio >= 0:
		if t.usb == nil {
			return fmt.Errorf("The FT260 IRQ pin requires the %v transport", TransportFt260)
		}
		irq, err := NewFt260Irq(lockedGpio{t}, t.IrqFt260Gpio)
		if err != nil {
			return err
		}
		t.irq = irq
	}
	return nil
}

// Bus returns the I2C bus the MPR121 is attached to. Transactions through the returned bus
// may interleave with operations of the Touchpad.
func (t *Touchpad) Bus() ft260.I2cBus {
	switch {
	case t.sequencer != nil:
		return t.sequencer
	case t.usb != nil:
		return t.usb
	case t.linux != nil:
		return t.linux
	default:
		return t.sim
	}
}

// Irq returns the IRQ source configured by the flags, or nil.
func (t *Touchpad) Irq() IrqSource {
	return t.irq
}

// Simulator returns the simulated MPR121 of the dummy transport, or nil.
func (t *Touchpad) Simulator() *i2csim.Device {
	return t.simChip
}

func (t *Touchpad) Cleanup() {
	if t.irq != nil {
		golib.Printerr(t.irq.Close())
	}
	if t.sequencer != nil {
		t.sequencer.stop()
	}
	if t.usb != nil {
		golib.Printerr(t.usb.Close())
	}
	if t.hidInit {
		golib.Printerr(hid.Shutdown())
	}
	if t.linux != nil {
		golib.Printerr(t.linux.Close())
	}
	t.irq, t.sequencer, t.usb, t.linux = nil, nil, nil, nil
	t.sim, t.simChip, t.device = nil, nil, nil
	t.hidInit = false
}

// Reinitialize runs the complete bring-up sequence of the MPR121 again.
func (t *Touchpad) Reinitialize() error {
	t.lock.Lock()
	defer t.lock.Unlock()
	dev, err := mpr121.New(t.Bus(), t.Sensor)
	if err != nil {
		return fmt.Errorf("Failed to initialize MPR121 at %v: %w", t.Sensor.Address, err)
	}
	t.device = dev
	return nil
}

func (t *Touchpad) Touched() (uint16, error) {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.device.GetTouched()
}

func (t *Touchpad) SensorTouch(c mpr121.Channel) (bool, error) {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.device.GetSensorTouch(c)
}

func (t *Touchpad) Filtered(c mpr121.Channel) (uint16, error) {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.device.GetFiltered(c)
}

func (t *Touchpad) Baseline(c mpr121.Channel) (byte, error) {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.device.GetBaseline(c)
}

func (t *Touchpad) OverCurrent() (bool, error) {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.device.IsOverCurrentSet()
}

func (t *Touchpad) SetThresholds(touch, release uint8) error {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.device.SetThresholds(touch, release)
}

func (t *Touchpad) SetDebounce(trigger, release mpr121.DebounceNumber) error {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.device.SetDebounce(trigger, release)
}

type RegisterValue struct {
	Register mpr121.Register
	Value    byte
}

// Registers reads all registers of the MPR121 in one transaction.
func (t *Touchpad) Registers() ([]RegisterValue, error) {
	t.lock.Lock()
	defer t.lock.Unlock()
	regs := mpr121.Registers()
	last := regs[len(regs)-1]
	data, err := t.Bus().I2cGet(byte(t.device.Address()), 0, int(last)+1)
	if err != nil {
		return nil, err
	}
	result := make([]RegisterValue, len(regs))
	for i, reg := range regs {
		result[i] = RegisterValue{Register: reg, Value: data[reg]}
	}
	return result, nil
}

// Serializes FT260 GPIO reports with the I2C traffic of the Touchpad
type lockedGpio struct {
	t *Touchpad
}

func (g lockedGpio) ReadGpio() (ft260.ReportGpio, error) {
	g.t.lock.Lock()
	defer g.t.lock.Unlock()
	return g.t.usb.ReadGpio()
}

func (g lockedGpio) SetGpioInput(pins byte) error {
	g.t.lock.Lock()
	defer g.t.lock.Unlock()
	return g.t.usb.SetGpioInput(pins)
}
