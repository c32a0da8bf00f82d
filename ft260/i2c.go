package ft260

import (
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	ReportID_I2CStatus    = 0xC0 // Feature In
	ReportID_I2CRead      = 0xC2 // Output
	ReportID_I2CInOut     = 0xD0 // 0xD0 - 0xDE, Input, Output
	ReportID_I2CInOut_Max = 0xDE
	// Max size of I2C write payload: (1 + Report ID - 0xD0) * 4 byte

	I2CMaxPayload = (1 + ReportID_I2CInOut_Max - ReportID_I2CInOut) * 4

	// Max data length of one I2C read request
	I2CMaxRead = 0xFFFF

	I2CStatusPolls       = 50
	I2CStatusPollTimeout = 200 * time.Microsecond
)

const (
	I2C_StatusControllerBusy = byte(1 << iota)
	I2C_StatusError
	I2C_StatusNoSlaveAck
	I2C_StatusNoDataAck
	I2C_StatusArbitrationLost
	I2C_StatusControllerIdle
	I2C_StatusBusBusy
)

const (
	I2C_MasterNone      = 0x0
	I2C_MasterStart     = 0x2
	I2C_MasterRepStart  = 0x3
	I2C_MasterStop      = 0x4
	I2C_MasterStartStop = 0x6
)

func I2cMasterCodeString(code byte) string {
	switch code {
	case I2C_MasterNone:
		return "Nothing"
	case I2C_MasterStart:
		return "Start"
	case I2C_MasterRepStart:
		return "Repeated Start"
	case I2C_MasterStop:
		return "Stop"
	case I2C_MasterStartStop:
		return "Start + Stop"
	default:
		return fmt.Sprintf("Unknown I2C Master code %v", code)
	}
}

// I2cBus is an I2C master. Every call is one complete bus transaction.
type I2cBus interface {
	I2cWrite(addr byte, data ...byte) error
	I2cRead(addr byte, data []byte) error
	I2cWriteRead(addr byte, out, in []byte) error
	I2cGet(addr byte, register byte, size int) ([]byte, error)
}

var _ I2cBus = new(Ft260)

// I2cStatusError is returned when the controller reports a failed transaction.
type I2cStatusError struct {
	Addr   byte
	Status byte
}

func (e *I2cStatusError) Error() string {
	var flags []string
	add := func(bit byte, name string) {
		if e.Status&bit != 0 {
			flags = append(flags, name)
		}
	}
	add(I2C_StatusError, "error")
	add(I2C_StatusNoSlaveAck, "no slave ack")
	add(I2C_StatusNoDataAck, "no data ack")
	add(I2C_StatusArbitrationLost, "arbitration lost")
	add(I2C_StatusBusBusy, "bus busy")
	return fmt.Sprintf("I2C transaction with slave %02x failed (status %02x: %v)", e.Addr, e.Status, strings.Join(flags, ", "))
}

// NoSlaveAck returns true if no device answered at the address.
func (e *I2cStatusError) NoSlaveAck() bool {
	return e.Status&I2C_StatusNoSlaveAck != 0
}

// Result of ReportID_I2CStatus Feature In
type ReportI2cStatus struct {
	BusStatus byte   // Bitmask of I2C_Status...
	BusSpeed  uint16 // 2 byte: LSB+MSB
	// 1 reserved
}

func (r *ReportI2cStatus) ReportID() byte {
	return ReportID_I2CStatus
}

func (r *ReportI2cStatus) ReportLen() int {
	return 4
}

func (r *ReportI2cStatus) Unmarshall(b []byte) error {
	r.BusStatus = b[0]
	r.BusSpeed = uint16(b[1]) + uint16(b[2])<<8
	return nil
}

// Data of ReportID_I2CRead Interrupt Out
type OperationI2cRead struct {
	SlaveAddr byte   // 0..127
	Condition byte   // I2C_Master...
	Len       uint16 // data length (little endian)
}

func (r *OperationI2cRead) ReportID() byte {
	return ReportID_I2CRead
}

func (r *OperationI2cRead) ReportLen() int {
	return 4
}

func (r *OperationI2cRead) Marshall(b []byte) error {
	if r.SlaveAddr&0x80 != 0 {
		return fmt.Errorf("Invalid I2C slave address: %02x", r.SlaveAddr)
	}
	b[0] = r.SlaveAddr
	b[1] = r.Condition
	b[2], b[3] = byte(r.Len), byte(r.Len>>8)
	return nil
}

// Data of ReportID_I2CInOut Interrupt Out
type OperationI2cWrite struct {
	SlaveAddr byte // 0..127
	Condition byte // I2C_Master...
	// 1 byte payload len
	Payload []byte
}

func (r *OperationI2cWrite) ReportID() byte {
	return ReportID_I2CInOut + byte((len(r.Payload)-1)/4)
}

func (r *OperationI2cWrite) ReportLen() int {
	return len(r.Payload) + 3
}

func (r *OperationI2cWrite) Marshall(b []byte) error {
	if len(r.Payload) > I2CMaxPayload {
		return fmt.Errorf("Payload len %v exceeds maximum size of %v", len(r.Payload), I2CMaxPayload)
	}
	if r.SlaveAddr&0x80 != 0 {
		return fmt.Errorf("Invalid I2C slave address: %02x", r.SlaveAddr)
	}
	b[0] = r.SlaveAddr
	b[1] = r.Condition
	b[2] = byte(len(r.Payload))
	copy(b[3:], r.Payload)
	return nil
}

// Data of ReportID_I2CInOut Interrupt In
type OperationI2cInput struct {
	// 1 byte payload length
	Data []byte

	// Number of bytes copied into Data
	Received int
}

func (r *OperationI2cInput) IsVariableSize() bool {
	return true
}

func (r *OperationI2cInput) IsVariableReportID() bool {
	return true
}

func (r *OperationI2cInput) ReportID() byte {
	return ReportID_I2CInOut
}

func (r *OperationI2cInput) ReportLen() int {
	return I2CMaxPayload + 1 // Max possible report length
}

func (r *OperationI2cInput) Unmarshall(d []byte) error {
	if len(d) == 0 {
		return fmt.Errorf("Empty I2C input report")
	}
	l := int(d[0])
	if len(d) < l+1 {
		return fmt.Errorf("Short I2C read (%v, needed at least %v)", len(d), l+1)
	}
	if l > len(r.Data) {
		return fmt.Errorf("Received %v byte of I2C data, expected at most %v", l, len(r.Data))
	}
	r.Received = copy(r.Data, d[1:1+l])
	return nil
}

// i2cSplitTransaction splits data into payloads of at most I2CMaxPayload byte. The returned
// conditions start the transaction with the first payload and, if stop is set, end it with the last one.
func i2cSplitTransaction(stop bool, data []byte) ([][]byte, []byte) {
	if len(data) == 0 {
		return nil, nil
	}
	var payloads [][]byte
	for len(data) > I2CMaxPayload {
		payloads = append(payloads, data[:I2CMaxPayload])
		data = data[I2CMaxPayload:]
	}
	payloads = append(payloads, data)

	conditions := make([]byte, len(payloads))
	for i := range conditions {
		conditions[i] = I2C_MasterNone
	}
	conditions[0] = I2C_MasterStart
	if stop {
		if len(payloads) == 1 {
			conditions[0] = I2C_MasterStartStop
		} else {
			conditions[len(conditions)-1] = I2C_MasterStop
		}
	}
	return payloads, conditions
}

func (f *Ft260) i2cWrite(addr byte, stop bool, data []byte) error {
	payloads, conditions := i2cSplitTransaction(stop, data)
	for i, payload := range payloads {
		log.Debugf("FT260: writing %v byte to I2C slave %02x (%v)", len(payload), addr, I2cMasterCodeString(conditions[i]))
		err := f.Write(&OperationI2cWrite{
			SlaveAddr: addr,
			Condition: conditions[i],
			Payload:   payload,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (f *Ft260) i2cRead(addr byte, condition byte, data []byte) error {
	if len(data) > I2CMaxRead {
		return fmt.Errorf("I2C read of %v byte exceeds maximum size of %v", len(data), I2CMaxRead)
	}
	err := f.Write(&OperationI2cRead{
		SlaveAddr: addr,
		Condition: condition,
		Len:       uint16(len(data)),
	})
	if err != nil {
		return err
	}
	for received := 0; received < len(data); {
		input := OperationI2cInput{Data: data[received:]}
		if err := f.Read(&input); err != nil {
			return err
		}
		received += input.Received
	}
	return nil
}

// waitI2cIdle polls the controller status until the last transaction is finished.
func (f *Ft260) waitI2cIdle(addr byte) error {
	var status ReportI2cStatus
	for i := 0; i < I2CStatusPolls; i++ {
		if err := f.Read(&status); err != nil {
			return err
		}
		if status.BusStatus&I2C_StatusControllerBusy == 0 {
			if status.BusStatus&(I2C_StatusError|I2C_StatusNoSlaveAck|I2C_StatusNoDataAck|I2C_StatusArbitrationLost) != 0 {
				return &I2cStatusError{Addr: addr, Status: status.BusStatus}
			}
			return nil
		}
		time.Sleep(I2CStatusPollTimeout)
	}
	return fmt.Errorf("I2C controller still busy after transaction with slave %02x (status %02x)", addr, status.BusStatus)
}

func (f *Ft260) I2cWrite(addr byte, data ...byte) error {
	if err := f.i2cWrite(addr, true, data); err != nil {
		return err
	}
	return f.waitI2cIdle(addr)
}

func (f *Ft260) I2cRead(addr byte, data []byte) error {
	if err := f.i2cRead(addr, I2C_MasterStartStop, data); err != nil {
		return err
	}
	return f.waitI2cIdle(addr)
}

// I2cWriteRead writes out and reads in, separated by a repeated start condition.
func (f *Ft260) I2cWriteRead(addr byte, out, in []byte) error {
	if err := f.i2cWrite(addr, false, out); err != nil {
		return err
	}
	if err := f.i2cRead(addr, I2C_MasterRepStart|I2C_MasterStop, in); err != nil {
		return err
	}
	return f.waitI2cIdle(addr)
}

func (f *Ft260) I2cGet(addr byte, register byte, size int) ([]byte, error) {
	data := make([]byte, size)
	err := f.I2cWriteRead(addr, []byte{register}, data)
	return data, err
}

const (
	i2cScanFirst = 0x08
	i2cScanLast  = 0x77
)

// I2cScan returns the addresses of all slaves answering a one byte read.
func I2cScan(bus I2cBus) ([]byte, error) {
	var result []byte
	var buf [1]byte
	for addr := byte(i2cScanFirst); addr <= i2cScanLast; addr++ {
		if err := bus.I2cRead(addr, buf[:]); err != nil {
			log.Debugf("I2C scan: no answer from %02x: %v", addr, err)
			continue
		}
		result = append(result, addr)
	}
	return result, nil
}
