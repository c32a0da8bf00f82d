package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/antongulenko/golib"
	"github.com/antongulenko/touch/ft260"
	"github.com/antongulenko/touch/mpr121"
	"github.com/antongulenko/touch/touchpad"
	log "github.com/sirupsen/logrus"
)

type commandFunc func() error

var (
	pad              = touchpad.DefaultTouchpad
	monitor          = touchpad.DefaultMonitor
	command          = "touched"
	channel          = -1
	touchThreshold   = uint(mpr121.DefaultTouchThreshold)
	releaseThreshold = uint(mpr121.DefaultReleaseThreshold)
	debounceTrigger  = uint(0)
	debounceRelease  = uint(0)
	watchTime        = time.Duration(0)
	commands         = map[string]commandFunc{
		"none":        func() error { return nil },
		"scan":        scan,
		"touched":     printTouched,
		"watch":       watch,
		"filtered":    printFiltered,
		"baseline":    printBaseline,
		"thresholds":  setThresholds,
		"debounce":    setDebounce,
		"overcurrent": printOverCurrent,
		"reset":       reset,
		"registers":   printRegisters,
	}
)

func main() {
	pad.RegisterFlags()
	flag.StringVar(&command, "c", command, fmt.Sprintf("Command to execute, one of: %v", commandNames()))
	flag.IntVar(&channel, "channel", channel, "Channel (0-11) for the touched, filtered and baseline commands (negative: all channels)")
	flag.UintVar(&touchThreshold, "touch", touchThreshold, "Touch threshold (thresholds command)")
	flag.UintVar(&releaseThreshold, "release", releaseThreshold, "Release threshold (thresholds command)")
	flag.UintVar(&debounceTrigger, "debounce-touch", debounceTrigger, "Debounce count for touch detection, 0-7 (debounce command)")
	flag.UintVar(&debounceRelease, "debounce-release", debounceRelease, "Debounce count for release detection, 0-7 (debounce command)")
	flag.DurationVar(&monitor.Interval, "interval", monitor.Interval, "Poll interval (watch command)")
	flag.DurationVar(&watchTime, "time", watchTime, "Stop watching after the given time, 0 for no limit (watch command)")
	flag.BoolVar(&monitor.Snapshots, "snapshots", monitor.Snapshots, "Print filtered and baseline data on every poll (watch command)")
	golib.RegisterLogFlags()
	flag.Parse()
	golib.ConfigureLogging()
	golib.Checkerr(doMain())
}

func commandNames() []string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func doMain() error {
	commandFunc, ok := commands[command]
	if !ok {
		return fmt.Errorf("Unknown command %v, available commands: %v", command, commandNames())
	}
	if err := pad.Setup(); err != nil {
		return err
	}
	defer pad.Cleanup()
	return commandFunc()
}

func selectedChannels() ([]mpr121.Channel, error) {
	if channel < 0 {
		return mpr121.Channels(), nil
	}
	c, err := mpr121.NewChannel(channel)
	if err != nil {
		return nil, err
	}
	return []mpr121.Channel{c}, nil
}

func scan() error {
	slaves, err := ft260.I2cScan(pad.Bus())
	if err != nil {
		return err
	}
	log.Printf("Scanned slaves: %#02v", slaves)
	return nil
}

func printTouched() error {
	channels, err := selectedChannels()
	if err != nil {
		return err
	}
	touched, err := pad.Touched()
	if err != nil {
		return err
	}
	log.Printf("Touch status: %012b", touched)
	for _, c := range channels {
		if touched&c.BitMask() != 0 {
			log.Printf("Channel %v touched", c)
		}
	}
	return nil
}

func watch() error {
	monitor.Sensor = &pad
	monitor.Irq = pad.Irq()
	monitor.OnEvent = func(e touchpad.TouchEvent) {
		log.Println(e)
	}
	monitor.OnSnapshot = func(s touchpad.Snapshot) {
		log.Printf("Filtered %v, baseline %v", s.Filtered, s.Baseline)
	}

	stop := make(chan struct{})
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		if watchTime > 0 {
			select {
			case <-c:
			case <-time.After(watchTime):
			}
		} else {
			<-c
		}
		close(stop)
	}()
	log.Println("Watching touch events, press Ctrl-C to stop")
	monitor.Run(stop)
	return nil
}

func printFiltered() error {
	channels, err := selectedChannels()
	if err != nil {
		return err
	}
	for _, c := range channels {
		val, err := pad.Filtered(c)
		if err != nil {
			return err
		}
		log.Printf("Channel %v filtered data: %v", c, val)
	}
	return nil
}

func printBaseline() error {
	channels, err := selectedChannels()
	if err != nil {
		return err
	}
	for _, c := range channels {
		val, err := pad.Baseline(c)
		if err != nil {
			return err
		}
		log.Printf("Channel %v baseline: %v", c, val)
	}
	return nil
}

func setThresholds() error {
	if touchThreshold > 0xFF || releaseThreshold > 0xFF {
		return fmt.Errorf("Thresholds must be in 0..255 (touch %v, release %v)", touchThreshold, releaseThreshold)
	}
	if err := pad.SetThresholds(uint8(touchThreshold), uint8(releaseThreshold)); err != nil {
		return err
	}
	log.Printf("Set thresholds of all channels: touch %v, release %v", touchThreshold, releaseThreshold)
	return nil
}

func setDebounce() error {
	if debounceTrigger > 0xFF || debounceRelease > 0xFF {
		return fmt.Errorf("Invalid debounce counts (touch %v, release %v)", debounceTrigger, debounceRelease)
	}
	trigger, release := mpr121.DebounceNumber(debounceTrigger), mpr121.DebounceNumber(debounceRelease)
	if err := pad.SetDebounce(trigger, release); err != nil {
		return err
	}
	log.Printf("Set debounce counts: touch %v, release %v", trigger, release)
	return nil
}

func printOverCurrent() error {
	over, err := pad.OverCurrent()
	if err != nil {
		return err
	}
	if over {
		log.Warnln("Over-current detected on the REXT pin, all electrodes are disabled")
	} else {
		log.Println("No over-current detected")
	}
	return nil
}

func reset() error {
	return pad.Reinitialize()
}

func printRegisters() error {
	values, err := pad.Registers()
	if err != nil {
		return err
	}
	for _, val := range values {
		fmt.Printf("%-22v 0x%02x\n", val.Register, val.Value)
	}
	return nil
}
