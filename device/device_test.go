package device_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pyobs/pyobs-sbig/device"
	"github.com/pyobs/pyobs-sbig/sbig"
	"github.com/pyobs/pyobs-sbig/sbigudrv"
	"github.com/pyobs/pyobs-sbig/sbigudrv/sim"
)

// rig builds a connected device over a fresh simulator.
func rig(t *testing.T, cfg device.Config) (*device.Camera, *sim.Driver) {
	t.Helper()
	drv := sim.New()
	cam := sbig.NewCamera(drv)
	cam.SetPollInterval(time.Millisecond)
	dev := device.New(cam, cfg, zerolog.Nop())
	require.NoError(t, dev.Connect())
	t.Cleanup(func() { dev.Disconnect() })
	return dev, drv
}

func card(t *testing.T, frame *device.Frame, name string) interface{} {
	t.Helper()
	for _, c := range frame.Cards {
		if c.Name == name {
			return c.Value
		}
	}
	t.Fatalf("no %s card in header", name)
	return nil
}

func TestConnectAppliesSetpoint(t *testing.T) {
	cfg := device.STF6303E()
	sp := -10.0
	cfg.Setpoint = &sp
	dev, _ := rig(t, cfg)

	cs, err := dev.GetCooling()
	require.NoError(t, err)
	assert.True(t, cs.Enabled)
	assert.Equal(t, -10.0, cs.Setpoint)
}

func TestStatusSequence(t *testing.T) {
	dev, _ := rig(t, device.STF6303E())
	assert.Equal(t, device.StatusIdle, dev.Status())

	dev.SetExposureTime(0)
	_, err := dev.Expose(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, device.StatusIdle, dev.Status(), "camera must return to idle")
}

func TestExposeBuildsHeader(t *testing.T) {
	dev, _ := rig(t, device.STF6303E())
	dev.SetExposureTime(20 * time.Millisecond)
	require.NoError(t, dev.SetBinning(sbig.Binning{X: 2, Y: 2}))

	frame, err := dev.Expose(context.Background(), true)
	require.NoError(t, err)

	assert.Equal(t, 3072/2, frame.Image.Width())
	assert.Equal(t, 2048/2, frame.Image.Height())

	assert.InDelta(t, 0.02, card(t, frame, "EXPTIME"), 1e-9)
	assert.Equal(t, "LIGHT", card(t, frame, "IMAGETYP"))
	assert.Equal(t, "SBIG STF-6303E", card(t, frame, "INSTRUME"))
	assert.Equal(t, 2, card(t, frame, "XBINNING"))
	assert.Equal(t, 2, card(t, frame, "YBINNING"))
	assert.Equal(t, 2, card(t, frame, "DET-BIN1"))
	assert.Equal(t, 0, card(t, frame, "XORGSUBF"))
	assert.Equal(t, sim.Ambient, card(t, frame, "DET-TEMP"))

	dateObs, ok := card(t, frame, "DATE-OBS").(string)
	require.True(t, ok)
	_, err = time.Parse("2006-01-02T15:04:05.000", dateObs)
	assert.NoError(t, err)

	min := card(t, frame, "DATAMIN").(float64)
	max := card(t, frame, "DATAMAX").(float64)
	mean := card(t, frame, "DATAMEAN").(float64)
	assert.LessOrEqual(t, min, mean)
	assert.LessOrEqual(t, mean, max)
}

func TestExposeDarkHeader(t *testing.T) {
	dev, _ := rig(t, device.STF6303E())
	frame, err := dev.Expose(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, "DARK", card(t, frame, "IMAGETYP"))
	assert.Equal(t, 100.0, card(t, frame, "DATAMAX"))
}

func TestConnectInitializesFilterWheel(t *testing.T) {
	cfg := device.STF6303E()
	cfg.FilterWheel = sbigudrv.CFWL8
	dev, drv := rig(t, cfg)

	assert.Contains(t, drv.Calls, "CFW")
	_, err := dev.GetFilter()
	assert.NoError(t, err)
}

func TestGeometryWarningDoesNotFailConnect(t *testing.T) {
	cfg := device.STF6303E()
	cfg.Width = 1024
	cfg.Height = 1024
	dev, _ := rig(t, cfg)
	full, err := dev.GetFullFrame()
	require.NoError(t, err)
	assert.Equal(t, 3072, full.Width)
}
