package device_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pyobs/pyobs-sbig/device"
	"github.com/pyobs/pyobs-sbig/sbigudrv"
)

func TestParseCFWModel(t *testing.T) {
	m, err := device.ParseCFWModel("CFW-L8")
	require.NoError(t, err)
	assert.Equal(t, sbigudrv.CFWL8, m)

	m, err = device.ParseCFWModel("fw8-8300")
	require.NoError(t, err)
	assert.Equal(t, sbigudrv.FW88300, m)

	m, err = device.ParseCFWModel("")
	require.NoError(t, err)
	assert.Equal(t, sbigudrv.CFWUnknown, m)

	_, err = device.ParseCFWModel("CFW-9000")
	assert.Error(t, err)
}

func TestFilterOpsWithoutWheel(t *testing.T) {
	dev, _ := rig(t, device.STF6303E())
	_, err := dev.GetFilter()
	assert.ErrorIs(t, err, device.ErrNoFilterWheel)
	err = dev.SetFilter("R")
	assert.ErrorIs(t, err, device.ErrNoFilterWheel)
	_, err = dev.ListFilters()
	assert.ErrorIs(t, err, device.ErrNoFilterWheel)
}

func TestFilterNamesDefaultToPositions(t *testing.T) {
	cfg := device.STF6303E()
	cfg.FilterWheel = sbigudrv.CFWL8
	cfg.FilterNames = []string{"L", "R", "G", "B"}
	dev, _ := rig(t, cfg)

	names, err := dev.ListFilters()
	require.NoError(t, err)
	assert.Equal(t, []string{"L", "R", "G", "B", "5", "6", "7", "8"}, names)
}

func TestFilterRoundTrip(t *testing.T) {
	cfg := device.STF6303E()
	cfg.FilterWheel = sbigudrv.CFWL8
	cfg.FilterNames = []string{"L", "R", "G", "B"}
	dev, _ := rig(t, cfg)

	require.NoError(t, dev.SetFilter("G"))
	name, err := dev.GetFilter()
	require.NoError(t, err)
	assert.Equal(t, "G", name)

	err = dev.SetFilter("H-alpha")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, device.ErrNoFilterWheel)
}
