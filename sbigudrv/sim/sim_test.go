package sim_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pyobs/pyobs-sbig/sbigudrv"
	"github.com/pyobs/pyobs-sbig/sbigudrv/sim"
)

func link(t *testing.T, d *sim.Driver) {
	t.Helper()
	require.NoError(t, d.OpenDriver())
	require.NoError(t, d.OpenDevice(sbigudrv.DeviceUSB))
	_, err := d.EstablishLink()
	require.NoError(t, err)
}

func TestLifecycleEnforced(t *testing.T) {
	d := sim.New()
	err := d.OpenDevice(sbigudrv.DeviceUSB)
	assert.EqualError(t, err, "20 - CE_DRIVER_NOT_OPEN")

	require.NoError(t, d.OpenDriver())
	_, err = d.EstablishLink()
	assert.EqualError(t, err, "28 - CE_DEVICE_NOT_OPEN")

	require.NoError(t, d.OpenDevice(sbigudrv.DeviceUSB))
	_, err = d.EstablishLink()
	assert.NoError(t, err)

	info, err := d.GetCCDInfo(sbigudrv.CCDImaging)
	require.NoError(t, err)
	assert.Equal(t, uint16(3072), info.Width)
	assert.Equal(t, uint16(2048), info.Height)
}

func TestEndExposureWhenIdle(t *testing.T) {
	d := sim.New()
	link(t, d)
	err := d.EndExposure(sbigudrv.CCDImaging)
	assert.EqualError(t, err, "3 - CE_NO_EXPOSURE_IN_PROGRESS")
}

func TestExposureCompletesAfterConfiguredPolls(t *testing.T) {
	d := sim.New()
	d.PollsUntilComplete = 2
	link(t, d)

	p := sbigudrv.StartExposureParams{CCD: sbigudrv.CCDImaging, OpenShutter: sbigudrv.ShutterOpen}
	require.NoError(t, d.StartExposure(p))

	s, err := d.QueryCommandStatus(sbigudrv.CCStartExposure)
	require.NoError(t, err)
	assert.Equal(t, sbigudrv.StatusInProgress, s)

	s, err = d.QueryCommandStatus(sbigudrv.CCStartExposure)
	require.NoError(t, err)
	assert.Equal(t, sbigudrv.StatusComplete, s)

	require.NoError(t, d.EndExposure(sbigudrv.CCDImaging))
}

func TestFaultInjection(t *testing.T) {
	d := sim.New()
	d.Fail["OpenDriver"] = 19 // CE_DRIVER_NOT_FOUND
	err := d.OpenDriver()
	assert.EqualError(t, err, "19 - CE_DRIVER_NOT_FOUND")
	assert.Equal(t, []string{"OpenDriver"}, d.Calls)
}

func TestReadoutLineLengthMustMatch(t *testing.T) {
	d := sim.New()
	link(t, d)
	p := sbigudrv.StartExposureParams{CCD: sbigudrv.CCDImaging, OpenShutter: sbigudrv.ShutterOpen}
	require.NoError(t, d.StartExposure(p))
	for {
		s, err := d.QueryCommandStatus(sbigudrv.CCStartExposure)
		require.NoError(t, err)
		if s == sbigudrv.StatusComplete {
			break
		}
	}
	require.NoError(t, d.EndExposure(sbigudrv.CCDImaging))

	rp := sbigudrv.ReadoutParams{CCD: sbigudrv.CCDImaging, Width: 16, Height: 4}
	require.NoError(t, d.StartReadout(rp))

	lp := sbigudrv.ReadoutLineParams{CCD: sbigudrv.CCDImaging, PixelStart: 0, PixelLength: 16}
	err := d.ReadoutLine(lp, make([]uint16, 8))
	assert.EqualError(t, err, "6 - CE_BAD_PARAMETER")

	dst := make([]uint16, 16)
	require.NoError(t, d.ReadoutLine(lp, dst))
	for i, v := range dst {
		assert.Equal(t, sim.Pixel(uint16(i), 0, 1, true), v)
	}
	require.NoError(t, d.EndReadout(sbigudrv.CCDImaging))
}

func TestDarkFramesAreFlat(t *testing.T) {
	assert.Equal(t, uint16(100), sim.Pixel(500, 600, 3, false))
	assert.NotEqual(t, sim.Pixel(0, 0, 1, true), sim.Pixel(0, 0, 2, true), "frame counter must salt light frames")
}

func TestCoolingLoop(t *testing.T) {
	d := sim.New()
	link(t, d)

	ts, err := d.QueryTemperatureStatus()
	require.NoError(t, err)
	assert.False(t, ts.Enabled)
	assert.Equal(t, sim.Ambient, ts.Temperature)

	stp := sbigudrv.SetTemperatureParams{Regulation: sbigudrv.RegulationOn, Setpoint: -10}
	require.NoError(t, d.SetTemperatureRegulation(stp))
	ts, err = d.QueryTemperatureStatus()
	require.NoError(t, err)
	assert.True(t, ts.Enabled)
	assert.Equal(t, -10.0, ts.Setpoint)
	assert.InDelta(t, -10.0, ts.Temperature, 1.0)
}

func TestCFWGotoRequiresOpen(t *testing.T) {
	d := sim.New()
	link(t, d)

	_, err := d.CFW(sbigudrv.CFWParams{Command: sbigudrv.CFWGoto, Position: 3})
	assert.EqualError(t, err, "35 - CE_CFW_ERROR")

	_, err = d.CFW(sbigudrv.CFWParams{Model: sbigudrv.CFWL8, Command: sbigudrv.CFWOpenDevice})
	require.NoError(t, err)
	res, err := d.CFW(sbigudrv.CFWParams{Model: sbigudrv.CFWL8, Command: sbigudrv.CFWGoto, Position: 3})
	require.NoError(t, err)
	assert.Equal(t, sbigudrv.CFWPosition(3), res.Position)
	assert.Equal(t, sbigudrv.CFWStatusIdle, res.Status)
}
