// Package protocol encodes requests for and decodes responses from the
// FX5204PS watt monitor. Response lengths are fixed by the hardware and are
// carried in the array types, so every decoder is total over its input.
package protocol

import (
	"encoding/binary"
	"fmt"
)

// USB identity of the FX5204PS.
const (
	VendorFujitsuComponent  uint16 = 0x0430
	ProductFujitsuFX5204PS uint16 = 0x0423
)

// RequestTypeVendorIn is bmRequestType for a device-to-host vendor request
// addressed to the device.
const RequestTypeVendorIn uint8 = 0x80 | 0x40 | 0x00

// Vendor request opcodes.
const (
	CmdStart       uint8 = 0x01
	CmdValue       uint8 = 0x20
	CmdGetFirmware uint8 = 0xC0
	CmdGetSerial   uint8 = 0xC1
	CmdGetVoltage  uint8 = 0xB0
	CmdGetTemp     uint8 = 0xB4
	CmdGetFreq     uint8 = 0xA1
	CmdGetUnknown  uint8 = 0xA2
)

// Measurement modes accepted by CmdValue.
const (
	ModeWattage uint8 = 0x10
	ModeCurrent uint8 = 0x30
)

// FrameLength is the size of one wattage frame read from the IN endpoint.
const FrameLength = 16

// Channels is the number of monitored power rails.
const Channels = 4

// Fixed-point scales of the raw values.
const (
	WattScale        = 100
	TemperatureScale = 100
	FrequencyScale   = 1_000_000
)

const frequencyClock = 2_000_000 * 1_000_000

// Request is a vendor control-IN request with its fixed response length.
type Request struct {
	Name   string
	Opcode uint8
	Length int
}

func (r Request) String() string {
	return fmt.Sprintf("%s(0x%02X)", r.Name, r.Opcode)
}

var (
	FirmwareRequest    = Request{Name: "firmware", Opcode: CmdGetFirmware, Length: 2}
	SerialRequest      = Request{Name: "serial", Opcode: CmdGetSerial, Length: 3}
	VoltageRequest     = Request{Name: "voltage", Opcode: CmdGetVoltage, Length: 1}
	TemperatureRequest = Request{Name: "temperature", Opcode: CmdGetTemp, Length: 2}
	FrequencyRequest   = Request{Name: "frequency", Opcode: CmdGetFreq, Length: 8}
)

// Firmware is a decoded firmware version.
type Firmware struct {
	Major int
	Minor int
}

// Wattage holds one frame of per-channel readings in hundredths of a watt.
type Wattage [Channels]uint16

// DecodeBCD decodes one packed binary-coded-decimal byte.
func DecodeBCD(b byte) int {
	return int(b>>4)*10 + int(b&0x0F)
}

// EncodeBCD packs v, which must be in [0,99], into one byte.
func EncodeBCD(v int) byte {
	return byte(v/10)<<4 | byte(v%10)
}

func DecodeFirmware(b [2]byte) Firmware {
	return Firmware{Major: DecodeBCD(b[0]), Minor: DecodeBCD(b[1])}
}

func EncodeFirmware(fw Firmware) [2]byte {
	return [2]byte{EncodeBCD(fw.Major), EncodeBCD(fw.Minor)}
}

func DecodeSerial(b [3]byte) int {
	return DecodeBCD(b[0])*10000 + DecodeBCD(b[1])*100 + DecodeBCD(b[2])
}

func EncodeSerial(serial int) [3]byte {
	return [3]byte{
		EncodeBCD(serial / 10000 % 100),
		EncodeBCD(serial / 100 % 100),
		EncodeBCD(serial % 100),
	}
}

// DecodeWattage ignores the 8 status bytes and returns the four big-endian
// channel values that follow.
func DecodeWattage(frame [FrameLength]byte) Wattage {
	var w Wattage
	for i := range w {
		w[i] = binary.BigEndian.Uint16(frame[8+2*i:])
	}

	return w
}

func EncodeWattage(w Wattage) [FrameLength]byte {
	var frame [FrameLength]byte
	for i, v := range w {
		binary.BigEndian.PutUint16(frame[8+2*i:], v)
	}

	return frame
}

// DecodeFrequency returns the line frequency in micro-hertz. Zero status
// bytes mean no signal. A zero period is reported as 0 rather than divided.
func DecodeFrequency(b [8]byte) uint64 {
	if b[6] == 0 && b[7] == 0 {
		return 0
	}

	period := uint64(binary.LittleEndian.Uint16(b[0:2]))
	if period == 0 {
		return 0
	}

	return frequencyClock / period
}

// EncodeFrequency builds a response carrying the given period counter with
// the status bytes set, or cleared when period is 0.
func EncodeFrequency(period uint16) [8]byte {
	var b [8]byte
	binary.LittleEndian.PutUint16(b[0:2], period)
	if period != 0 {
		b[6] = 0x01
	}

	return b
}

// PeriodForFrequency returns the period counter that encodes hz.
func PeriodForFrequency(hz float64) uint16 {
	if hz <= 0 {
		return 0
	}

	return uint16(frequencyClock / (hz * FrequencyScale))
}

func DecodeVoltage(b byte) int {
	return int(b)
}

// DecodeTemperature returns hundredths of a degree Celsius.
func DecodeTemperature(b [2]byte) int {
	return int(binary.BigEndian.Uint16(b[:]))
}

func EncodeTemperature(hundredths int) [2]byte {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], uint16(hundredths))

	return b
}
