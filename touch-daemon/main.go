package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/antongulenko/golib"
	"github.com/antongulenko/touch/touchpad"
	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/takama/daemon"
)

const (
	name        = "touch-daemon"
	description = "MPR121 capacitive touch monitor"
	usage       = "Usage: " + name + " [flags] install | remove | start | stop | status"
)

// Service has embedded daemon
type Service struct {
	daemon.Daemon

	pad            touchpad.Touchpad
	monitor        touchpad.Monitor
	metricsAddr    string
	statusInterval time.Duration

	started    time.Time
	lock       sync.Mutex
	events     uint64
	lastEvent  time.Time
	lastChange touchpad.TouchEvent
	touched    uint16
}

func main() {
	srv, err := daemon.New(name, description, daemon.SystemDaemon)
	golib.Checkerr(err)
	service := &Service{
		Daemon:         srv,
		pad:            touchpad.DefaultTouchpad,
		monitor:        touchpad.DefaultMonitor,
		metricsAddr:    ":9121",
		statusInterval: time.Minute,
	}
	service.registerFlags()
	golib.RegisterFlags(golib.FlagsAll)
	flag.Parse()
	golib.ConfigureLogging()

	status, err := service.Manage()
	if err != nil {
		golib.Checkerr(fmt.Errorf("%v: %w", status, err))
	}
	fmt.Println(status)
}

func (s *Service) registerFlags() {
	s.pad.RegisterFlags()
	flag.DurationVar(&s.monitor.Interval, "interval", s.monitor.Interval, "Poll interval of the touch status")
	flag.BoolVar(&s.monitor.Snapshots, "snapshots", s.monitor.Snapshots, "Export filtered and baseline data of all channels on every poll")
	flag.StringVar(&s.metricsAddr, "metrics", s.metricsAddr, "Listen address for the Prometheus /metrics endpoint (empty to disable)")
	flag.DurationVar(&s.statusInterval, "status-interval", s.statusInterval, "Interval for logging a status line (0 to disable)")
}

// Manage by daemon commands or run the daemon
func (s *Service) Manage() (string, error) {
	if flag.NArg() > 0 {
		switch flag.Arg(0) {
		case "install":
			// Run the installed service with the same flags
			return s.Install(os.Args[1 : len(os.Args)-flag.NArg()]...)
		case "remove":
			return s.Remove()
		case "start":
			return s.Start()
		case "stop":
			return s.Stop()
		case "status":
			return s.Status()
		default:
			return usage, nil
		}
	}
	return s.run()
}

func (s *Service) run() (string, error) {
	if err := s.pad.Setup(); err != nil {
		return "Failed to set up touchpad", err
	}
	defer s.pad.Cleanup()

	metrics, err := touchpad.NewMetrics(prometheus.DefaultRegisterer)
	if err != nil {
		return "Failed to register metrics", err
	}
	s.monitor.Sensor = &s.pad
	s.monitor.Irq = s.pad.Irq()
	s.monitor.Metrics = metrics
	s.monitor.OnEvent = s.handleEvent
	s.started = time.Now()

	if s.metricsAddr != "" {
		http.Handle("/metrics", promhttp.Handler())
		go func() {
			log.Printf("Serving metrics on %v/metrics", s.metricsAddr)
			if err := http.ListenAndServe(s.metricsAddr, nil); err != nil {
				log.Errorln("Metrics server failed:", err)
			}
		}()
	}

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.monitor.Run(stop)
	}()
	if s.statusInterval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.logStatusLoop(stop)
		}()
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, syscall.SIGINT, syscall.SIGTERM)
	killSignal := <-interrupt
	log.Println("Got signal:", killSignal)
	close(stop)
	wg.Wait()
	if killSignal == os.Interrupt {
		return "Daemon was interrupted by system signal", nil
	}
	return "Daemon was killed", nil
}

func (s *Service) handleEvent(e touchpad.TouchEvent) {
	log.Println(e)
	s.lock.Lock()
	defer s.lock.Unlock()
	s.events++
	s.lastEvent = e.Time
	s.lastChange = e
	if e.Touched {
		s.touched |= e.Channel.BitMask()
	} else {
		s.touched &^= e.Channel.BitMask()
	}
}

func (s *Service) logStatusLoop(stop <-chan struct{}) {
	ticker := time.NewTicker(s.statusInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			log.Println(s.statusLine(time.Now()))
		}
	}
}

func (s *Service) statusLine(now time.Time) string {
	s.lock.Lock()
	defer s.lock.Unlock()
	line := fmt.Sprintf("Running since %v, %v touch events", humanize.RelTime(s.started, now, "ago", "from now"), humanize.Comma(int64(s.events)))
	if s.events > 0 {
		line += fmt.Sprintf(", last: %v %v", s.lastChange, humanize.RelTime(s.lastEvent, now, "ago", "from now"))
	}
	return line + fmt.Sprintf(", touched %012b", s.touched)
}
