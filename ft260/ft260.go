// Package ft260 talks to the FTDI FT260 USB-HID to I2C bridge through HID reports.
package ft260

import (
	"errors"
	"fmt"

	"github.com/antongulenko/hid"
	log "github.com/sirupsen/logrus"
)

const (
	FTDIVendorId   = 0x0403
	FT260ProductId = 0x6030
)

type Ft260Driver struct {
	Vendor  uint16
	Product uint16

	// If set, only the device with the given USB path is opened
	Path string
}

func (d *Ft260Driver) ids() (uint16, uint16) {
	vendor, product := d.Vendor, d.Product
	if vendor == 0 {
		vendor = FTDIVendorId
	}
	if product == 0 {
		product = FT260ProductId
	}
	return vendor, product
}

func (d *Ft260Driver) Open() (*Ft260, error) {
	if !hid.Supported() {
		return nil, errors.New("The library github.com/antongulenko/hid is not supported on this platform")
	}
	vendor, product := d.ids()
	devices := hid.Enumerate(vendor, product)
	if d.Path != "" {
		var matching []hid.DeviceInfo
		for _, info := range devices {
			if info.Path == d.Path {
				matching = append(matching, info)
			}
		}
		devices = matching
	}
	if len(devices) == 0 {
		if d.Path != "" {
			return nil, fmt.Errorf("No USB HID device found at %v with vendorID=%04x productID=%04x", d.Path, vendor, product)
		}
		return nil, fmt.Errorf("No USB HID device found with vendorID=%04x productID=%04x", vendor, product)
	}
	if len(devices) > 1 {
		log.Warnf("Multiple devices connected with vendorID=%04x productID=%04x, using first", vendor, product)
	}
	info := devices[0]
	log.Printf("Opening USB HID device %v (USB %v): %v (%04x) from %v (%04x), Release %v",
		info.Path, info.Interface, info.Product, info.ProductID, info.Manufacturer, info.VendorID, info.Release)
	dev, err := info.Open()
	if err != nil {
		return nil, err
	}
	return &Ft260{
		Device: dev,
	}, nil
}

func Open() (*Ft260, error) {
	return (&Ft260Driver{}).Open()
}

// OpenPath opens the FT260 at the given USB path. An empty path opens the first FT260 found.
func OpenPath(path string) (*Ft260, error) {
	return (&Ft260Driver{Path: path}).Open()
}

type Ft260 struct {
	*hid.Device
}

// ReportIn is decoded from the bytes following the report ID.
type ReportIn interface {
	Unmarshall(data []byte) error
	ReportID() byte
	ReportLen() int
}

// ReportOut is encoded into the bytes following the report ID.
type ReportOut interface {
	Marshall(data []byte) error
	ReportID() byte
	ReportLen() int
}

// Reports shorter than ReportLen(), like I2C input reports
type variableSizeReport interface {
	IsVariableSize() bool
}

// Reports arriving with one of several report IDs
type variableIDReport interface {
	IsVariableReportID() bool
}

func encodeReport(input interface{}) ([]byte, error) {
	switch v := input.(type) {
	case []byte:
		return v, nil
	case ReportOut:
		data := make([]byte, v.ReportLen()+1)
		if err := v.Marshall(data[1:]); err != nil {
			return nil, err
		}
		data[0] = v.ReportID()
		return data, nil
	default:
		return nil, fmt.Errorf("Unexpected type for writing to FT260: %T", input)
	}
}

func decodeReport(report ReportIn, data []byte) error {
	if len(data) == 0 {
		return errors.New("ft260: empty report")
	}
	if v, ok := report.(variableIDReport); !ok || !v.IsVariableReportID() {
		if data[0] != report.ReportID() {
			return fmt.Errorf("Unexpected report id (expected %02x, received %02x)", report.ReportID(), data[0])
		}
	}
	if v, ok := report.(variableSizeReport); !ok || !v.IsVariableSize() {
		if len(data) != report.ReportLen()+1 {
			return fmt.Errorf("ft260: wrong read len (%v instead of %v)", len(data), report.ReportLen()+1)
		}
	}
	return report.Unmarshall(data[1:])
}

func (f *Ft260) Write(input interface{}) error {
	data, err := encodeReport(input)
	if err != nil {
		return err
	}
	n, err := f.Device.Write(data)
	if err == nil && n != len(data) {
		err = fmt.Errorf("ft260: wrong write len (%v instead of %v)", n, len(data))
	}
	return err
}

func (f *Ft260) Read(report ReportIn) error {
	data := make([]byte, report.ReportLen()+1)
	data[0] = report.ReportID()
	n, err := f.Device.Read(data)
	if err != nil {
		return err
	}
	return decodeReport(report, data[:n])
}

func _readBool(b []byte, index int, e *error) bool {
	if *e == nil {
		val := b[index]
		if val == 0 {
			return false
		} else if val == 1 {
			return true
		} else {
			*e = fmt.Errorf("Expected 0 or 1 for byte at index %v, but got %02x", index, val)
		}
	}
	return false
}
