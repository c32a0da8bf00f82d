package touchpad

import (
	"strconv"

	"github.com/antongulenko/touch/mpr121"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exports the Monitor state. A nil *Metrics ignores all observations.
type Metrics struct {
	Events      *prometheus.CounterVec
	Touched     *prometheus.GaugeVec
	Filtered    *prometheus.GaugeVec
	Baseline    *prometheus.GaugeVec
	OverCurrent prometheus.Gauge
	ReadErrors  prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "touch_events_total",
			Help: "Touch and release events per channel.",
		}, []string{"channel", "state"}),
		Touched: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "touch_touched",
			Help: "1 if the channel is currently touched.",
		}, []string{"channel"}),
		Filtered: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "touch_filtered_data",
			Help: "Filtered electrode data per channel.",
		}, []string{"channel"}),
		Baseline: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "touch_baseline",
			Help: "Baseline value per channel.",
		}, []string{"channel"}),
		OverCurrent: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "touch_over_current",
			Help: "1 if the over-current protection disabled the electrodes.",
		}),
		ReadErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "touch_read_errors_total",
			Help: "Failed polls of the touch controller.",
		}),
	}
	for _, c := range []prometheus.Collector{m.Events, m.Touched, m.Filtered, m.Baseline, m.OverCurrent, m.ReadErrors} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func channelLabel(c mpr121.Channel) string {
	return strconv.Itoa(int(c))
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func (m *Metrics) ObserveEvent(e TouchEvent) {
	if m == nil {
		return
	}
	state := "release"
	if e.Touched {
		state = "touch"
	}
	m.Events.WithLabelValues(channelLabel(e.Channel), state).Inc()
}

func (m *Metrics) ObserveTouched(touched uint16) {
	if m == nil {
		return
	}
	for _, c := range mpr121.Channels() {
		m.Touched.WithLabelValues(channelLabel(c)).Set(boolValue(touched&c.BitMask() != 0))
	}
}

func (m *Metrics) ObserveSnapshot(s Snapshot) {
	if m == nil {
		return
	}
	m.ObserveTouched(s.Touched)
	m.OverCurrent.Set(boolValue(s.OverCurrent))
	for _, c := range mpr121.Channels() {
		m.Filtered.WithLabelValues(channelLabel(c)).Set(float64(s.Filtered[c]))
		if s.BaselineValid&c.BitMask() != 0 {
			m.Baseline.WithLabelValues(channelLabel(c)).Set(float64(s.Baseline[c]))
		} else {
			m.Baseline.DeleteLabelValues(channelLabel(c))
		}
	}
}

func (m *Metrics) ObserveError() {
	if m == nil {
		return
	}
	m.ReadErrors.Inc()
}
