package ft260

const (
	ReportID_GPIO = 0xB0 // Feature
)

// GPIO 0-5 bits in ReportGpio.Value and ReportGpio.Dir
const (
	GPIO0 = byte(1 << iota)
	GPIO1
	GPIO2
	GPIO3
	GPIO4
	GPIO5
)

// ReportID_GPIO Feature In and Out
type ReportGpio struct {
	Value   byte // GPIO 0-5 bits
	Dir     byte // GPIO 0-5 direction bits, set for output
	ValueEx byte // GPIO A-H bits
	DirEx   byte // GPIO A-H direction bits
}

func (r *ReportGpio) ReportID() byte {
	return ReportID_GPIO
}

func (r *ReportGpio) ReportLen() int {
	return 4
}

func (r *ReportGpio) Marshall(b []byte) error {
	b[0] = r.Value
	b[1] = r.Dir
	b[2] = r.ValueEx
	b[3] = r.DirEx
	return nil
}

func (r *ReportGpio) Unmarshall(b []byte) error {
	r.Value = b[0]
	r.Dir = b[1]
	r.ValueEx = b[2]
	r.DirEx = b[3]
	return nil
}

func (f *Ft260) ReadGpio() (ReportGpio, error) {
	var report ReportGpio
	err := f.Read(&report)
	return report, err
}

// SetGpioInput configures the given GPIO 0-5 bits as inputs, leaving the other pins unchanged.
func (f *Ft260) SetGpioInput(pins byte) error {
	report, err := f.ReadGpio()
	if err != nil {
		return err
	}
	report.Dir &^= pins
	return f.Write(&report)
}
