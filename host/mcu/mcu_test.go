package mcu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ailikez/rt-soldering-pen/protocol"
)

func TestDecodeStatusRoundTrip(t *testing.T) {
	output := protocol.NewScratchOutput()

	protocol.EncodeVLQUint(output, 2) // state = HEATING
	protocol.EncodeVLQInt(output, 32000)
	protocol.EncodeVLQInt(output, 31500)
	protocol.EncodeVLQInt(output, 12)
	protocol.EncodeVLQInt(output, 4200)
	protocol.EncodeVLQInt(output, 1680)
	protocol.EncodeVLQInt(output, 3300)
	protocol.EncodeVLQInt(output, 3295)
	protocol.EncodeVLQInt(output, 5000)
	protocol.EncodeVLQInt(output, 5010)
	protocol.EncodeVLQInt(output, -10)
	protocol.EncodeVLQInt(output, 2950)
	protocol.EncodeVLQInt(output, 0)
	protocol.EncodeVLQInt(output, 2000)
	protocol.EncodeVLQInt(output, 23000)
	protocol.EncodeVLQInt(output, 25000)
	protocol.EncodeVLQUint(output, 1) // heating element status = OK
	protocol.EncodeVLQUint(output, 1) // pen sensor status = OK
	protocol.EncodeVLQUint(output, 0) // selected preset
	protocol.EncodeVLQInt(output, -1) // edited preset (NO_EDIT)
	protocol.EncodeVLQUint(output, 0) // not standby
	protocol.EncodeVLQInt(output, 300000)

	data := output.Result()
	status, err := decodeStatus(&data)
	require.NoError(t, err)

	assert.EqualValues(t, 2, status.State)
	assert.EqualValues(t, 32000, status.RequestedPowerMW)
	assert.EqualValues(t, 1680, status.PenResistanceMO)
	assert.EqualValues(t, 25000, status.RealPenTemperatureMC)
	assert.EqualValues(t, 1, status.HeatingElementStatus)
	assert.EqualValues(t, -1, status.EditedPreset)
	assert.EqualValues(t, 300000, status.PresetTemperature)
	assert.Empty(t, data)
}

func TestDecodeStatusTruncatedPayload(t *testing.T) {
	output := protocol.NewScratchOutput()
	protocol.EncodeVLQUint(output, 0)
	data := output.Result()

	_, err := decodeStatus(&data)
	assert.Error(t, err)
}
