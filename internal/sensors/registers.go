// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"

	"periph.io/x/conn/v3/i2c"
)

// BitField describes part of a register.
type BitField struct {
	Bits        string `json:"bits"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Values      string `json:"values,omitempty"`
}

// RegisterInfo is datasheet metadata for one register.
type RegisterInfo struct {
	Address     byte       `json:"address"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Access      string     `json:"access"` // "R", "W", "RW"
	Default     byte       `json:"default"`
	BitFields   []BitField `json:"bit_fields,omitempty"`
}

// RegisterValue is a register read back from a device.
type RegisterValue struct {
	RegisterInfo
	Value byte `json:"value"`
}

// MPU6050Registers lists the registers the monitor touches or that help
// when bringing up a board.
func MPU6050Registers() []RegisterInfo {
	return []RegisterInfo{
		{Address: 0x19, Name: "SMPLRT_DIV", Description: "Sample Rate Divider", Access: "RW",
			BitFields: []BitField{
				{Bits: "7:0", Name: "SMPLRT_DIV", Description: "Sample Rate = Gyro_Output_Rate / (1 + SMPLRT_DIV)", Values: "0-255"},
			}},
		{Address: 0x1A, Name: "CONFIG", Description: "Configuration (DLPF)", Access: "RW",
			BitFields: []BitField{
				{Bits: "5:3", Name: "EXT_SYNC_SET", Description: "External FSYNC pin sampling", Values: "0=Disabled"},
				{Bits: "2:0", Name: "DLPF_CFG", Description: "Digital Low Pass Filter", Values: "0=260Hz, 1=184Hz, 2=94Hz, 3=44Hz, 4=21Hz, 5=10Hz, 6=5Hz"},
			}},
		{Address: 0x1B, Name: "GYRO_CONFIG", Description: "Gyroscope Configuration", Access: "RW",
			BitFields: []BitField{
				{Bits: "4:3", Name: "FS_SEL", Description: "Gyro Full Scale Range", Values: "0=±250°/s, 1=±500°/s, 2=±1000°/s, 3=±2000°/s"},
			}},
		{Address: 0x1C, Name: "ACCEL_CONFIG", Description: "Accelerometer Configuration", Access: "RW",
			BitFields: []BitField{
				{Bits: "4:3", Name: "AFS_SEL", Description: "Accel Full Scale Range", Values: "0=±2g, 1=±4g, 2=±8g, 3=±16g"},
			}},
		{Address: 0x3A, Name: "INT_STATUS", Description: "Interrupt Status", Access: "R",
			BitFields: []BitField{
				{Bits: "0", Name: "DATA_RDY_INT", Description: "Data ready", Values: "1=New sample available"},
			}},
		{Address: 0x3B, Name: "ACCEL_XOUT_H", Description: "Accelerometer X high byte", Access: "R"},
		{Address: 0x3D, Name: "ACCEL_YOUT_H", Description: "Accelerometer Y high byte", Access: "R"},
		{Address: 0x3F, Name: "ACCEL_ZOUT_H", Description: "Accelerometer Z high byte", Access: "R"},
		{Address: 0x41, Name: "TEMP_OUT_H", Description: "Temperature high byte", Access: "R"},
		{Address: 0x43, Name: "GYRO_XOUT_H", Description: "Gyroscope X high byte", Access: "R"},
		{Address: 0x6B, Name: "PWR_MGMT_1", Description: "Power Management 1", Access: "RW", Default: 0x40,
			BitFields: []BitField{
				{Bits: "7", Name: "DEVICE_RESET", Description: "Reset all registers", Values: "1=Reset"},
				{Bits: "6", Name: "SLEEP", Description: "Sleep mode", Values: "0=Awake, 1=Sleep"},
				{Bits: "2:0", Name: "CLKSEL", Description: "Clock source", Values: "0=Internal 8MHz, 1=PLL gyro X"},
			}},
		{Address: 0x75, Name: "WHO_AM_I", Description: "Device identity", Access: "R", Default: 0x68},
	}
}

// MAX30102Registers is the pulse oximeter's configuration and FIFO map.
func MAX30102Registers() []RegisterInfo {
	return []RegisterInfo{
		{Address: 0x00, Name: "INTR_STATUS_1", Description: "Interrupt Status 1", Access: "R",
			BitFields: []BitField{
				{Bits: "7", Name: "A_FULL", Description: "FIFO almost full"},
				{Bits: "6", Name: "PPG_RDY", Description: "New FIFO data ready"},
				{Bits: "0", Name: "PWR_RDY", Description: "Power ready"},
			}},
		{Address: 0x04, Name: "FIFO_WR_PTR", Description: "FIFO Write Pointer", Access: "RW",
			BitFields: []BitField{
				{Bits: "4:0", Name: "FIFO_WR_PTR", Description: "Next sample slot to be written", Values: "0-31"},
			}},
		{Address: 0x05, Name: "OVF_COUNTER", Description: "Overflow Counter", Access: "RW",
			BitFields: []BitField{
				{Bits: "4:0", Name: "OVF_COUNTER", Description: "Samples lost while the FIFO was full", Values: "0-31"},
			}},
		{Address: 0x06, Name: "FIFO_RD_PTR", Description: "FIFO Read Pointer", Access: "RW",
			BitFields: []BitField{
				{Bits: "4:0", Name: "FIFO_RD_PTR", Description: "Next sample slot to be read", Values: "0-31"},
			}},
		{Address: 0x08, Name: "FIFO_CONFIG", Description: "FIFO Configuration", Access: "RW",
			BitFields: []BitField{
				{Bits: "7:5", Name: "SMP_AVE", Description: "Sample averaging", Values: "0=1, 1=2, 2=4, 3=8, 4=16, 5=32"},
				{Bits: "4", Name: "FIFO_ROLLOVER_EN", Description: "FIFO rolls over when full", Values: "0=Stop, 1=Roll over"},
				{Bits: "3:0", Name: "FIFO_A_FULL", Description: "Almost-full threshold (free slots)", Values: "0-15"},
			}},
		{Address: 0x09, Name: "MODE_CONFIG", Description: "Mode Configuration", Access: "RW",
			BitFields: []BitField{
				{Bits: "7", Name: "SHDN", Description: "Shutdown", Values: "0=Active, 1=Power save"},
				{Bits: "6", Name: "RESET", Description: "Reset", Values: "1=Reset all registers"},
				{Bits: "2:0", Name: "MODE", Description: "Operating mode", Values: "2=Heart rate (red), 3=SpO2 (red+IR), 7=Multi-LED"},
			}},
		{Address: 0x0A, Name: "SPO2_CONFIG", Description: "SpO2 Configuration", Access: "RW",
			BitFields: []BitField{
				{Bits: "6:5", Name: "SPO2_ADC_RGE", Description: "ADC full scale", Values: "0=2048nA, 1=4096nA, 2=8192nA, 3=16384nA"},
				{Bits: "4:2", Name: "SPO2_SR", Description: "Sample rate", Values: "0=50, 1=100, 2=200, 3=400 sps"},
				{Bits: "1:0", Name: "LED_PW", Description: "LED pulse width", Values: "0=69us, 1=118us, 2=215us, 3=411us"},
			}},
		{Address: 0x0C, Name: "LED1_PA", Description: "Red LED pulse amplitude", Access: "RW", Default: 0x00},
		{Address: 0x0D, Name: "LED2_PA", Description: "IR LED pulse amplitude", Access: "RW", Default: 0x00},
		{Address: 0x10, Name: "PILOT_PA", Description: "Proximity mode LED amplitude", Access: "RW", Default: 0x00},
		{Address: 0x1F, Name: "TEMP_INTR", Description: "Die temperature integer part", Access: "R"},
		{Address: 0xFE, Name: "REV_ID", Description: "Revision ID", Access: "R"},
		{Address: 0xFF, Name: "PART_ID", Description: "Part ID", Access: "R", Default: 0x15},
	}
}

// DumpRegisters reads every register in regs from the device at addr.
func DumpRegisters(bus i2c.Bus, addr uint16, regs []RegisterInfo) ([]RegisterValue, error) {
	dev := &i2c.Dev{Bus: bus, Addr: addr}
	out := make([]RegisterValue, 0, len(regs))
	for _, r := range regs {
		var b [1]byte
		if err := readReg(dev, r.Address, b[:]); err != nil {
			return out, fmt.Errorf("read %s (0x%02X): %w", r.Name, r.Address, err)
		}
		out = append(out, RegisterValue{RegisterInfo: r, Value: b[0]})
	}
	return out, nil
}

// KnownDevices names the addresses found on the collar's bus.
var KnownDevices = map[uint16]string{
	0x3C: "SSD1306 Display",
	0x57: "MAX30102 Pulse Oximeter",
	0x68: "MPU6050 Accelerometer",
	0x70: "TCA9548A Multiplexer",
}

// Scan probes the 7-bit address range with a one-byte read and returns
// the addresses that acknowledged.
func Scan(bus i2c.Bus) []uint16 {
	var found []uint16
	for addr := uint16(0x08); addr < 0x78; addr++ {
		var b [1]byte
		if err := bus.Tx(addr, nil, b[:]); err == nil {
			found = append(found, addr)
		}
	}
	return found
}
