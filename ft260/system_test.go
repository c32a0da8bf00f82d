package ft260

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSystemSettings(t *testing.T) {
	a := assert.New(t)
	test := func(request byte, value interface{}, expected []byte) {
		data, err := encodeReport(&SetSystemStatus{Request: request, Value: value})
		a.NoError(err)
		a.Equal(expected, data)
	}
	test(SetSystemSetting_Clock, Clock48MHz, []byte{ReportID_SystemSetting, SetSystemSetting_Clock, Clock48MHz})
	test(SetSystemSetting_I2CReset, nil, []byte{ReportID_SystemSetting, SetSystemSetting_I2CReset})
	test(SetSystemSetting_I2CSetClock, uint16(400), []byte{ReportID_SystemSetting, SetSystemSetting_I2CSetClock, 0x90, 0x01})
	test(SetSystemSetting_EnableWakeupInt, true, []byte{ReportID_SystemSetting, SetSystemSetting_EnableWakeupInt, 1})
	test(SetSystemSetting_Interrupt, [2]byte{InterruptTriggerFallingEdge, InterruptLevelDuration1ms},
		[]byte{ReportID_SystemSetting, SetSystemSetting_Interrupt, InterruptTriggerFallingEdge, InterruptLevelDuration1ms})

	_, err := encodeReport(&SetSystemStatus{Request: SetSystemSetting_Clock, Value: true})
	a.Error(err)
	_, err = encodeReport(&SetSystemStatus{Request: 0x77})
	a.Error(err)
}

func TestChipCode(t *testing.T) {
	a := assert.New(t)
	var code ReportChipCode
	data := make([]byte, 13)
	copy(data, []byte{ReportID_ChipCode, 0x02, 0x60, 0x02, 0x00})
	a.NoError(decodeReport(&code, data))
	a.Equal(FT260_CHIP_CODE, code.ChipCode)
}

func TestSystemStatus(t *testing.T) {
	a := assert.New(t)
	data := make([]byte, 25)
	data[0] = ReportID_SystemSetting
	payload := data[1:]
	payload[0] = 0x01       // chip mode
	payload[1] = Clock48MHz // clock
	payload[3] = 1          // power status
	payload[4] = 1          // I2C enable
	payload[12] = InterruptTriggerFallingEdge | InterruptLevelDuration5ms<<2

	var status ReportSystemStatus
	a.NoError(decodeReport(&status, data))
	a.True(status.PowerStatus)
	a.True(status.I2CEnable)
	a.False(status.Suspended)
	a.Equal(InterruptTriggerFallingEdge, status.InterruptTriggerCondition())
	a.Equal(InterruptLevelDuration5ms, status.InterruptLevelDuration())
	a.NoError(status.validate())

	status.Suspended = true
	a.Error(status.validate())

	payload[2] = 7
	a.Error(decodeReport(&status, data), "invalid bool value")
}

func TestGpioReport(t *testing.T) {
	a := assert.New(t)
	var report ReportGpio
	a.NoError(decodeReport(&report, []byte{ReportID_GPIO, GPIO3, GPIO0 | GPIO3, 0, 0}))
	a.Equal(GPIO3, report.Value)
	report.Dir &^= GPIO3
	data, err := encodeReport(&report)
	a.NoError(err)
	a.Equal([]byte{ReportID_GPIO, GPIO3, GPIO0, 0, 0}, data)
}
