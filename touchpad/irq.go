package touchpad

import (
	"fmt"

	"github.com/antongulenko/touch/ft260"
	log "github.com/sirupsen/logrus"
	"github.com/stianeikeland/go-rpio/v4"
)

// IrqSource reports the state of the MPR121 IRQ line. The chip pulls the line low
// when the touch status changes, until the status registers are read.
type IrqSource interface {
	Asserted() (bool, error)
	Close() error
}

// RpioIrq watches a Raspberry Pi GPIO pin through /dev/gpiomem.
type RpioIrq struct {
	pin rpio.Pin
}

func NewRpioIrq(bcmPin int) (*RpioIrq, error) {
	if bcmPin < 0 || bcmPin > 53 {
		return nil, fmt.Errorf("Invalid BCM pin number %v", bcmPin)
	}
	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("Failed to open GPIO memory: %w", err)
	}
	pin := rpio.Pin(bcmPin)
	pin.Input()
	pin.PullUp()
	pin.Detect(rpio.FallEdge)
	log.Printf("Watching MPR121 IRQ line on BCM pin %v", bcmPin)
	return &RpioIrq{pin: pin}, nil
}

// Asserted returns true if the line is low or went low since the last call.
func (i *RpioIrq) Asserted() (bool, error) {
	edge := i.pin.EdgeDetected()
	return edge || i.pin.Read() == rpio.Low, nil
}

func (i *RpioIrq) Close() error {
	i.pin.Detect(rpio.NoEdge)
	return rpio.Close()
}

// GpioReader gives access to the GPIO pins of an FT260.
type GpioReader interface {
	ReadGpio() (ft260.ReportGpio, error)
	SetGpioInput(pins byte) error
}

// Ft260Irq reads the IRQ line from one of the GPIO 0-5 pins of an FT260.
type Ft260Irq struct {
	gpio GpioReader
	mask byte
}

func NewFt260Irq(gpio GpioReader, pin int) (*Ft260Irq, error) {
	if pin < 0 || pin > 5 {
		return nil, fmt.Errorf("Invalid FT260 GPIO pin %v (expected 0-5)", pin)
	}
	mask := byte(1 << uint(pin))
	if err := gpio.SetGpioInput(mask); err != nil {
		return nil, err
	}
	log.Printf("Watching MPR121 IRQ line on FT260 GPIO %v", pin)
	return &Ft260Irq{gpio: gpio, mask: mask}, nil
}

func (i *Ft260Irq) Asserted() (bool, error) {
	report, err := i.gpio.ReadGpio()
	if err != nil {
		return false, err
	}
	return report.Value&i.mask == 0, nil
}

func (i *Ft260Irq) Close() error {
	return nil
}
