package sbig_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pyobs/pyobs-sbig/sbig"
	"github.com/pyobs/pyobs-sbig/sbigudrv"
	"github.com/pyobs/pyobs-sbig/sbigudrv/sim"
)

// linked returns a camera with an established link over a fresh simulator.
func linked(t *testing.T) (*sbig.Camera, *sim.Driver) {
	t.Helper()
	drv := sim.New()
	cam := sbig.NewCamera(drv)
	require.NoError(t, cam.EstablishLink())
	drv.Calls = nil
	return cam, drv
}

func TestOperationsRequireLink(t *testing.T) {
	cam := sbig.NewCamera(sim.New())
	_, err := cam.FullFrame()
	assert.ErrorIs(t, err, sbig.ErrNotLinked)
	err = cam.Expose(context.Background(), sbig.NewImage(0, 0), true)
	assert.ErrorIs(t, err, sbig.ErrNotLinked)
	err = cam.Readout(sbig.NewImage(0, 0), true)
	assert.ErrorIs(t, err, sbig.ErrNotLinked)
}

func TestEstablishLinkCachesGeometry(t *testing.T) {
	cam, _ := linked(t)
	full, err := cam.FullFrame()
	require.NoError(t, err)
	assert.Equal(t, sbig.Window{Width: 3072, Height: 2048}, full)
	assert.Equal(t, full, cam.Window())
	assert.Equal(t, sbig.Binning{X: 1, Y: 1}, cam.Binning())
}

func TestEstablishLinkUnwindsOnFailure(t *testing.T) {
	drv := sim.New()
	drv.Fail["EstablishLink"] = 1 // CE_CAMERA_NOT_FOUND
	cam := sbig.NewCamera(drv)
	err := cam.EstablishLink()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CE_CAMERA_NOT_FOUND")
	// device and driver were released again
	assert.Equal(t, []string{"OpenDriver", "OpenDevice", "EstablishLink", "CloseDevice", "CloseDriver"}, drv.Calls)
}

func TestSetBinningRejectsWithoutDriverCall(t *testing.T) {
	cam, drv := linked(t)
	require.NoError(t, cam.SetBinning(sbig.Binning{X: 2, Y: 2}))
	drv.Calls = nil

	bad := []sbig.Binning{
		{X: 2, Y: 3},
		{X: 0, Y: 0},
		{X: 4, Y: 4},
		{X: -1, Y: -1},
	}
	for _, b := range bad {
		err := cam.SetBinning(b)
		assert.ErrorIs(t, err, sbig.ErrInvalidBinning, "binning %+v", b)
	}
	assert.Empty(t, drv.Calls, "rejection must happen before any driver call")
	assert.Equal(t, sbig.Binning{X: 2, Y: 2}, cam.Binning(), "failed set must not change state")
}

func TestWindowRoundTrip(t *testing.T) {
	cam, _ := linked(t)
	w := sbig.Window{Left: 100, Top: 200, Width: 640, Height: 480}
	cam.SetWindow(w)
	assert.Equal(t, w, cam.Window())
}

func TestExposeCallOrderAndPacing(t *testing.T) {
	cam, drv := linked(t)
	interval := 20 * time.Millisecond
	cam.SetPollInterval(interval)
	cam.SetExposureTime(0)

	start := time.Now()
	img := sbig.NewImage(0, 0)
	require.NoError(t, cam.Expose(context.Background(), img, true))
	elapsed := time.Since(start)

	want := []string{
		"EndExposure", // defensive clear
		"StartExposure",
		"QueryCommandStatus",
		"QueryCommandStatus",
		"QueryCommandStatus",
		"EndExposure",
	}
	assert.Equal(t, want, drv.Calls)
	// three polls, each preceded by a full interval
	assert.GreaterOrEqual(t, elapsed, 3*interval)
	assert.Less(t, elapsed, 20*3*interval, "polling cadence far off")
	assert.False(t, img.CanClose)
	assert.False(t, img.Dark)
}

func TestExposeDarkFrame(t *testing.T) {
	cam, _ := linked(t)
	cam.SetPollInterval(time.Millisecond)
	img := sbig.NewImage(0, 0)
	require.NoError(t, cam.Expose(context.Background(), img, false))
	require.NoError(t, cam.Readout(img, false))
	assert.True(t, img.Dark)
	assert.Equal(t, uint16(100), img.At(17, 23))
}

func TestExposeSurfacesDriverError(t *testing.T) {
	cam, drv := linked(t)
	drv.Fail["StartExposure"] = 6 // CE_BAD_PARAMETER
	err := cam.Expose(context.Background(), sbig.NewImage(0, 0), true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CE_BAD_PARAMETER")
}

func TestExposeTimeout(t *testing.T) {
	cam, drv := linked(t)
	drv.PollsUntilComplete = 1 << 30
	cam.SetPollInterval(time.Millisecond)
	cam.SetTimeout(10 * time.Millisecond)
	cam.SetExposureTime(0)

	err := cam.Expose(context.Background(), sbig.NewImage(0, 0), true)
	assert.ErrorIs(t, err, sbig.ErrExposureTimeout)
	assert.Equal(t, "EndExposure", drv.Calls[len(drv.Calls)-1], "dangling exposure must be ended")
}

func TestExposeHonorsCancellation(t *testing.T) {
	cam, drv := linked(t)
	drv.PollsUntilComplete = 1 << 30
	cam.SetPollInterval(5 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(15 * time.Millisecond)
		cancel()
	}()
	err := cam.Expose(ctx, sbig.NewImage(0, 0), true)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, "EndExposure", drv.Calls[len(drv.Calls)-1], "dangling exposure must be ended")
}

func TestReadoutShapeFollowsWindowAndBinning(t *testing.T) {
	cam, _ := linked(t)
	cam.SetPollInterval(time.Millisecond)
	require.NoError(t, cam.SetBinning(sbig.Binning{X: 2, Y: 2}))

	img := sbig.NewImage(0, 0)
	require.NoError(t, cam.Expose(context.Background(), img, true))
	require.NoError(t, cam.Readout(img, true))

	assert.Equal(t, 3072/2, img.Width())
	assert.Equal(t, 2048/2, img.Height())
	assert.Len(t, img.Pix(), 3072/2*2048/2)
	assert.Equal(t, sbig.Binning{X: 2, Y: 2}, img.Binning)
	assert.Equal(t, sbig.Window{Width: 3072, Height: 2048}, img.Subframe)
	assert.True(t, img.CanClose)

	// pixel content matches the simulator's generator for frame 1
	for _, pt := range [][2]int{{0, 0}, {11, 7}, {1535, 1023}} {
		want := sim.Pixel(uint16(pt[0]), uint16(pt[1]), 1, true)
		assert.Equal(t, want, img.At(pt[0], pt[1]), "pixel (%d,%d)", pt[0], pt[1])
	}
}

func TestReadoutSubframe(t *testing.T) {
	cam, _ := linked(t)
	cam.SetPollInterval(time.Millisecond)
	cam.SetWindow(sbig.Window{Left: 64, Top: 32, Width: 256, Height: 128})

	img := sbig.NewImage(0, 0)
	require.NoError(t, cam.Expose(context.Background(), img, true))
	require.NoError(t, cam.Readout(img, true))

	assert.Equal(t, 256, img.Width())
	assert.Equal(t, 128, img.Height())
	assert.Equal(t, sim.Pixel(64, 32, 1, true), img.At(0, 0))
}

func TestCoolingRoundTrip(t *testing.T) {
	cam, _ := linked(t)
	require.NoError(t, cam.SetCooling(true, -10.0))
	cs, err := cam.Cooling()
	require.NoError(t, err)
	assert.True(t, cs.Enabled)
	assert.Equal(t, -10.0, cs.Setpoint)
	assert.InDelta(t, -10.0, cs.Temperature, 1.0)
	assert.Greater(t, cs.Power, 0.0)

	require.NoError(t, cam.SetCooling(false, 0))
	cs, err = cam.Cooling()
	require.NoError(t, err)
	assert.False(t, cs.Enabled)
	assert.Equal(t, sim.Ambient, cs.Temperature)
}

func TestFilterWheelRoundTrip(t *testing.T) {
	cam, _ := linked(t)
	require.NoError(t, cam.SetFilterWheel(sbigudrv.CFWL8))
	require.NoError(t, cam.GoToFilter(5))
	pos, status, err := cam.FilterPositionAndStatus()
	require.NoError(t, err)
	assert.Equal(t, sbigudrv.CFWPosition(5), pos)
	assert.Equal(t, sbigudrv.CFWStatusIdle, status)
}

func TestCloseReleasesSession(t *testing.T) {
	cam, drv := linked(t)
	require.NoError(t, cam.Close())
	assert.Equal(t, []string{"CloseDevice", "CloseDriver"}, drv.Calls)
	_, err := cam.FullFrame()
	assert.ErrorIs(t, err, sbig.ErrNotLinked)
	// Close again is a no-op
	drv.Calls = nil
	require.NoError(t, cam.Close())
	assert.Empty(t, drv.Calls)
}
