package mcu

import (
	"bytes"
	"compress/zlib"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/Ailikez/rt-soldering-pen/host/serial"
	"github.com/Ailikez/rt-soldering-pen/protocol"
)

// MCU represents a connection to the soldering-pen controller's firmware.
type MCU struct {
	transport *protocol.HostTransport
	port      serial.Port

	dictionary     *Dictionary
	dictionaryData []byte

	statusHandler func(Status)
	connected     bool
}

// Dictionary represents the parsed MCU dictionary.
type Dictionary struct {
	Version       string                    `json:"version"`
	BuildVersions string                    `json:"build_versions"`
	Config        map[string]string         `json:"config"`
	Commands      map[string]int            `json:"commands"`
	Responses     map[string]int            `json:"responses"`
	Enumerations  map[string]map[string]int `json:"enumerations,omitempty"`
}

// Status mirrors core.SendHeatingStatus's wire layout on the host side.
type Status struct {
	State                    uint32
	RequestedPowerMW         int32
	PowerMW                  int32
	EnergyMWh                int32
	SteadyMS                 int32
	PenResistanceMO          int32
	CPUVoltageMVHeat         int32
	CPUVoltageMVIdle         int32
	SupplyVoltageMVHeat      int32
	SupplyVoltageMVIdle      int32
	SupplyVoltageMVDrop      int32
	PenCurrentMAHeat         int32
	PenCurrentMAIdle         int32
	CPUTemperatureMC         int32
	PenTemperatureMC         int32
	RealPenTemperatureMC     int32
	HeatingElementStatus     uint32
	PenSensorStatus          uint32
	SelectedPreset           uint32
	EditedPreset             int32
	IsStandby                uint32
	PresetTemperature        int32
}

// NewMCU creates a new MCU instance (not yet connected).
func NewMCU() *MCU {
	return &MCU{connected: false}
}

// Connect connects to an MCU via serial port.
func (m *MCU) Connect(device string) error {
	return m.ConnectWithConfig(serial.DefaultConfig(device))
}

// ConnectWithConfig connects to an MCU with a custom serial config.
func (m *MCU) ConnectWithConfig(cfg *serial.Config) error {
	port, err := serial.Open(cfg)
	if err != nil {
		return fmt.Errorf("failed to open serial port: %w", err)
	}

	m.port = port
	m.transport = protocol.NewHostTransport(port)
	m.connected = true

	m.transport.SetResponseHandler(m.handleResponse)

	// Give the MCU time to finish booting before the first identify.
	time.Sleep(100 * time.Millisecond)

	return nil
}

// Close closes the connection to the MCU.
func (m *MCU) Close() error {
	if m.transport != nil {
		if err := m.transport.Close(); err != nil {
			return err
		}
	}
	m.connected = false
	return nil
}

// RetrieveDictionary retrieves the complete dictionary from the MCU.
func (m *MCU) RetrieveDictionary() error {
	if !m.connected {
		return fmt.Errorf("not connected to MCU")
	}

	var dictBuffer bytes.Buffer
	offset := uint32(0)
	chunkSize := uint8(40)
	const maxIterations = 1000

	for i := 0; i < maxIterations; i++ {
		chunk, err := m.sendIdentify(offset, chunkSize)
		if err != nil {
			return fmt.Errorf("failed to retrieve dictionary chunk at offset %d: %w", offset, err)
		}
		if len(chunk) == 0 {
			break
		}

		dictBuffer.Write(chunk)
		offset += uint32(len(chunk))

		if len(chunk) < int(chunkSize) {
			break
		}
	}

	m.dictionaryData = dictBuffer.Bytes()

	if err := m.parseDictionary(); err != nil {
		return fmt.Errorf("failed to parse dictionary: %w", err)
	}

	return nil
}

func (m *MCU) sendIdentify(offset uint32, count uint8) ([]byte, error) {
	err := m.transport.SendCommand(1, func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, offset)
		protocol.EncodeVLQUint(output, uint32(count))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to send identify command: %w", err)
	}

	resp, err := m.transport.ReceiveResponse(1 * time.Second)
	if err != nil {
		return nil, fmt.Errorf("failed to receive identify response: %w", err)
	}

	payload := resp.Payload

	cmdID, err := protocol.DecodeVLQUint(&payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode response command ID: %w", err)
	}
	if cmdID != 0 {
		return nil, fmt.Errorf("unexpected response command ID: %d (expected 0)", cmdID)
	}

	respOffset, err := protocol.DecodeVLQUint(&payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode response offset: %w", err)
	}
	if respOffset != offset {
		return nil, fmt.Errorf("offset mismatch: expected %d, got %d", offset, respOffset)
	}

	data, err := protocol.DecodeVLQBytes(&payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode response data: %w", err)
	}

	return data, nil
}

func (m *MCU) parseDictionary() error {
	data := m.dictionaryData
	// The firmware serves its dictionary zlib-wrapped (header byte 0x78).
	if len(data) > 0 && data[0] == 0x78 {
		zr, err := zlib.NewReader(bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("failed to open compressed dictionary: %w", err)
		}
		defer zr.Close()
		if data, err = io.ReadAll(zr); err != nil {
			return fmt.Errorf("failed to decompress dictionary: %w", err)
		}
	}
	dict := &Dictionary{}
	if err := json.Unmarshal(data, dict); err != nil {
		return fmt.Errorf("failed to unmarshal JSON: %w", err)
	}
	m.dictionary = dict
	return nil
}

// SetStatusHandler registers a callback invoked whenever a heating_status
// response arrives asynchronously (e.g. pushed once per completed period).
func (m *MCU) SetStatusHandler(h func(Status)) {
	m.statusHandler = h
}

func (m *MCU) handleResponse(cmdID uint16, data *[]byte) error {
	if m.dictionary == nil || m.statusHandler == nil {
		return nil
	}
	if id, ok := m.dictionary.Responses["heating_status"]; !ok || uint16(id) != cmdID {
		return nil
	}

	status, err := decodeStatus(data)
	if err != nil {
		return err
	}
	m.statusHandler(status)
	return nil
}

func decodeStatus(data *[]byte) (Status, error) {
	var s Status
	fields := []*int32{
		nil, &s.RequestedPowerMW, &s.PowerMW, &s.EnergyMWh, &s.SteadyMS,
		&s.PenResistanceMO, &s.CPUVoltageMVHeat, &s.CPUVoltageMVIdle,
		&s.SupplyVoltageMVHeat, &s.SupplyVoltageMVIdle, &s.SupplyVoltageMVDrop,
		&s.PenCurrentMAHeat, &s.PenCurrentMAIdle, &s.CPUTemperatureMC,
		&s.PenTemperatureMC, &s.RealPenTemperatureMC,
	}

	state, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return s, err
	}
	s.State = state

	for i := 1; i < len(fields); i++ {
		v, err := protocol.DecodeVLQInt(data)
		if err != nil {
			return s, err
		}
		*fields[i] = v
	}

	heatingElementStatus, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return s, err
	}
	s.HeatingElementStatus = heatingElementStatus

	penSensorStatus, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return s, err
	}
	s.PenSensorStatus = penSensorStatus

	selected, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return s, err
	}
	s.SelectedPreset = selected

	edited, err := protocol.DecodeVLQInt(data)
	if err != nil {
		return s, err
	}
	s.EditedPreset = edited

	standby, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return s, err
	}
	s.IsStandby = standby

	presetTemp, err := protocol.DecodeVLQInt(data)
	if err != nil {
		return s, err
	}
	s.PresetTemperature = presetTemp

	return s, nil
}

// GetDictionary returns the parsed dictionary.
func (m *MCU) GetDictionary() *Dictionary {
	return m.dictionary
}

// GetDictionaryRaw returns the raw dictionary data.
func (m *MCU) GetDictionaryRaw() []byte {
	return m.dictionaryData
}

// SendCommand sends a generic named command to the MCU.
func (m *MCU) SendCommand(name string, args func(output protocol.OutputBuffer)) error {
	if !m.connected {
		return fmt.Errorf("not connected to MCU")
	}
	if m.dictionary == nil {
		return fmt.Errorf("dictionary not loaded")
	}

	cmdID, ok := m.dictionary.Commands[name]
	if !ok {
		return fmt.Errorf("unknown command: %s", name)
	}

	return m.transport.SendCommand(uint16(cmdID), args)
}

// SelectPreset sends select_preset for the given preset index.
func (m *MCU) SelectPreset(preset int) error {
	return m.SendCommand("select_preset", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, uint32(preset))
	})
}

// EditPresetSelect begins editing a preset's temperature.
func (m *MCU) EditPresetSelect(preset int) error {
	return m.SendCommand("edit_preset_select", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, uint32(preset))
	})
}

// EditPresetAdd nudges the preset currently under edit by delta milli-°C.
func (m *MCU) EditPresetAdd(delta int) error {
	return m.SendCommand("edit_preset_add", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQInt(output, int32(delta))
	})
}

// EditPresetEnd commits the preset under edit.
func (m *MCU) EditPresetEnd() error {
	return m.SendCommand("edit_preset_end", nil)
}

// QueryHeatingStatus requests an immediate heating_status response.
func (m *MCU) QueryHeatingStatus() error {
	return m.SendCommand("query_heating_status", nil)
}

// IsConnected returns whether the MCU is connected.
func (m *MCU) IsConnected() bool {
	return m.connected
}
