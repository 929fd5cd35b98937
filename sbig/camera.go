/*
Package sbig adapts the raw sbigudrv driver surface into a camera control
object and an image buffer.

Camera owns one driver session (one hardware link) and serializes every
operation on an internal mutex; the vendor library is not safe for
concurrent access.  Expose blocks for the full integration time, polling
completion on a fixed cadence, and honors context cancellation and a
configurable timeout instead of waiting forever on unresponsive hardware.
*/
package sbig

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/pyobs/pyobs-sbig/sbigudrv"
)

// Binning is the on-chip pixel addition in each axis.
type Binning struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Window is a subframe in unbinned pixel units.  Left and top are 0-based.
type Window struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// CoolingStatus is the cooling subsystem state.
type CoolingStatus struct {
	Enabled     bool    `json:"enabled"`
	Temperature float64 `json:"temperature"`
	Setpoint    float64 `json:"setpoint"`
	Power       float64 `json:"power"`
}

var (
	// ErrInvalidBinning is returned for non-square binning or factors
	// outside 1..3
	ErrInvalidBinning = errors.New("binning must be square with a factor of 1, 2 or 3")

	// ErrExposureTimeout is returned when the hardware does not report
	// exposure completion before the deadline
	ErrExposureTimeout = errors.New("exposure did not complete before the timeout")

	// ErrNotLinked is returned for operations that need an established link
	ErrNotLinked = errors.New("camera link not established")
)

const (
	// DefaultPollInterval is the cadence of exposure-completion checks
	DefaultPollInterval = 100 * time.Millisecond

	// DefaultTimeout is the slack allowed beyond the exposure time before
	// Expose gives up on the hardware
	DefaultTimeout = 30 * time.Second
)

// ValidateBinning rejects binning values the hardware cannot do.  Only
// square binning with a factor of 1, 2 or 3 maps to a readout mode.
func ValidateBinning(b Binning) error {
	if b.X != b.Y || b.X < 1 || b.X > 3 {
		return fmt.Errorf("%dx%d: %w", b.X, b.Y, ErrInvalidBinning)
	}
	return nil
}

// readoutMode maps validated square binning onto the driver's mode enum.
func readoutMode(b Binning) sbigudrv.ReadoutMode {
	return sbigudrv.ReadoutMode(b.X - 1)
}

// Camera is the control adapter over one driver session.
type Camera struct {
	mu  sync.Mutex
	drv sbigudrv.Driver

	linked  bool
	full    Window
	window  Window
	binning Binning
	expTime time.Duration

	cfwModel sbigudrv.CFWModel

	pollInterval time.Duration
	timeout      time.Duration
}

// NewCamera wraps a driver.  The link is not established until
// EstablishLink is called.
func NewCamera(drv sbigudrv.Driver) *Camera {
	return &Camera{
		drv:          drv,
		binning:      Binning{X: 1, Y: 1},
		pollInterval: DefaultPollInterval,
		timeout:      DefaultTimeout,
	}
}

// SetPollInterval overrides the exposure polling cadence.
func (c *Camera) SetPollInterval(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if d > 0 {
		c.pollInterval = d
	}
}

// SetTimeout overrides the slack allowed beyond the exposure time.
func (c *Camera) SetTimeout(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if d > 0 {
		c.timeout = d
	}
}

// EstablishLink opens the driver and device and handshakes with the
// camera.  On success the full frame geometry is cached and the window
// reset to it.
func (c *Camera) EstablishLink() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.drv.OpenDriver(); err != nil {
		return fmt.Errorf("opening driver: %w", err)
	}
	if err := c.drv.OpenDevice(sbigudrv.DeviceUSB); err != nil {
		c.drv.CloseDriver()
		return fmt.Errorf("opening device: %w", err)
	}
	if _, err := c.drv.EstablishLink(); err != nil {
		c.drv.CloseDevice()
		c.drv.CloseDriver()
		return fmt.Errorf("establishing link: %w", err)
	}
	info, err := c.drv.GetCCDInfo(sbigudrv.CCDImaging)
	if err != nil {
		return fmt.Errorf("querying CCD info: %w", err)
	}
	c.full = Window{Width: int(info.Width), Height: int(info.Height)}
	c.window = c.full
	c.binning = Binning{X: 1, Y: 1}
	c.linked = true
	return nil
}

// Close releases the device and driver.  The camera may be relinked with
// EstablishLink afterwards.
func (c *Camera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.linked {
		return nil
	}
	c.linked = false
	errDev := c.drv.CloseDevice()
	errDrv := c.drv.CloseDriver()
	if errDev != nil {
		return fmt.Errorf("closing device: %w", errDev)
	}
	if errDrv != nil {
		return fmt.Errorf("closing driver: %w", errDrv)
	}
	return nil
}

// FullFrame is the unbinned sensor geometry learned at link time.
func (c *Camera) FullFrame() (Window, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.linked {
		return Window{}, ErrNotLinked
	}
	return c.full, nil
}

// Binning returns the current binning.
func (c *Camera) Binning() Binning {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.binning
}

// SetBinning validates and stores the binning.  Invalid values are
// rejected before any driver call and leave the prior state unchanged.
func (c *Camera) SetBinning(b Binning) error {
	if err := ValidateBinning(b); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.binning = b
	return nil
}

// Window returns the current subframe.
func (c *Camera) Window() Window {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.window
}

// SetWindow stores the subframe in unbinned pixels.  Bounds are not
// checked locally; the hardware rejects impossible subframes at readout.
func (c *Camera) SetWindow(w Window) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.window = w
}

// ExposureTime returns the programmed integration time.
func (c *Camera) ExposureTime() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.expTime
}

// SetExposureTime programs the integration time.  No local bounds check;
// the driver clamps to what the shutter can do.
func (c *Camera) SetExposureTime(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.expTime = d
}

// SetCooling enables or disables the TEC and assigns its setpoint in
// Celsius.
func (c *Camera) SetCooling(enable bool, setpoint float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	reg := sbigudrv.RegulationOff
	if enable {
		reg = sbigudrv.RegulationOn
	}
	p := sbigudrv.SetTemperatureParams{Regulation: reg, Setpoint: setpoint}
	if err := c.drv.SetTemperatureRegulation(p); err != nil {
		return fmt.Errorf("setting temperature regulation: %w", err)
	}
	return nil
}

// Cooling queries the cooling subsystem.
func (c *Camera) Cooling() (CoolingStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cooling()
}

func (c *Camera) cooling() (CoolingStatus, error) {
	ts, err := c.drv.QueryTemperatureStatus()
	if err != nil {
		return CoolingStatus{}, fmt.Errorf("querying temperature status: %w", err)
	}
	cs := CoolingStatus{
		Enabled:     ts.Enabled,
		Temperature: ts.Temperature,
		Setpoint:    ts.Setpoint,
		Power:       ts.Power,
	}
	return cs, nil
}

// hundredths converts a duration to the driver's exposure unit, clamping
// nonzero times to the 0.01 s floor.
func hundredths(d time.Duration) uint32 {
	h := uint32(d / (10 * time.Millisecond))
	if h == 0 && d > 0 {
		h = 1
	}
	return h
}

// Expose runs one integration: mark the image in flight, end any dangling
// exposure, start, poll completion on the configured cadence, end.  It
// blocks until the hardware reports completion, the deadline passes
// (ErrExposureTimeout), or ctx is cancelled; in the latter two cases the
// exposure is ended before returning.
func (c *Camera) Expose(ctx context.Context, img *Image, openShutter bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.linked {
		return ErrNotLinked
	}

	img.CanClose = false
	img.ExposureTime = c.expTime
	img.Dark = !openShutter

	shutter := sbigudrv.ShutterClose
	if openShutter {
		shutter = sbigudrv.ShutterOpen
	}

	// clear any dangling exposure; CE_NO_EXPOSURE_IN_PROGRESS is the
	// normal answer here
	c.drv.EndExposure(sbigudrv.CCDImaging)

	p := sbigudrv.StartExposureParams{
		CCD:          sbigudrv.CCDImaging,
		ExposureTime: hundredths(c.expTime),
		ABGState:     sbigudrv.ABGLow,
		OpenShutter:  shutter,
	}
	if err := c.drv.StartExposure(p); err != nil {
		return fmt.Errorf("starting exposure: %w", err)
	}

	limiter := rate.NewLimiter(rate.Every(c.pollInterval), 1)
	limiter.Allow() // spend the initial token; the first poll waits a full interval
	deadline := time.Now().Add(c.expTime + c.timeout)
	for {
		if err := limiter.Wait(ctx); err != nil {
			c.drv.EndExposure(sbigudrv.CCDImaging)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		status, err := c.drv.QueryCommandStatus(sbigudrv.CCStartExposure)
		if err != nil {
			c.drv.EndExposure(sbigudrv.CCDImaging)
			return fmt.Errorf("querying exposure status: %w", err)
		}
		if status == sbigudrv.StatusComplete {
			break
		}
		if time.Now().After(deadline) {
			c.drv.EndExposure(sbigudrv.CCDImaging)
			return ErrExposureTimeout
		}
	}
	if err := c.drv.EndExposure(sbigudrv.CCDImaging); err != nil {
		return fmt.Errorf("ending exposure: %w", err)
	}
	return nil
}

// Readout drains the sensor into img, resizing it to the configured
// window and binning.  The shutter flag follows the light/dark selection
// made at expose time.
func (c *Camera) Readout(img *Image, openShutter bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.linked {
		return ErrNotLinked
	}

	bin := c.binning.X
	mode := readoutMode(c.binning)
	width := c.window.Width / bin
	height := c.window.Height / bin
	top := c.window.Top / bin
	left := c.window.Left / bin

	img.Resize(width, height)

	p := sbigudrv.ReadoutParams{
		CCD:         sbigudrv.CCDImaging,
		ReadoutMode: mode,
		Top:         uint16(top),
		Left:        uint16(left),
		Height:      uint16(height),
		Width:       uint16(width),
	}
	if err := c.drv.StartReadout(p); err != nil {
		return fmt.Errorf("starting readout: %w", err)
	}
	lp := sbigudrv.ReadoutLineParams{
		CCD:         sbigudrv.CCDImaging,
		ReadoutMode: mode,
		PixelStart:  uint16(left),
		PixelLength: uint16(width),
	}
	for y := 0; y < height; y++ {
		if err := c.drv.ReadoutLine(lp, img.Row(y)); err != nil {
			return fmt.Errorf("reading out line %d: %w", y, err)
		}
	}
	if err := c.drv.EndReadout(sbigudrv.CCDImaging); err != nil {
		return fmt.Errorf("ending readout: %w", err)
	}

	img.Binning = c.binning
	img.Subframe = c.window
	img.Dark = !openShutter
	if cs, err := c.cooling(); err == nil {
		img.Temperature = cs.Temperature
	}
	return nil
}

// SetFilterWheel selects and initializes the filter wheel model.
func (c *Camera) SetFilterWheel(model sbigudrv.CFWModel) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := sbigudrv.CFWParams{Model: model, Command: sbigudrv.CFWOpenDevice}
	if _, err := c.drv.CFW(p); err != nil {
		return fmt.Errorf("opening filter wheel: %w", err)
	}
	c.cfwModel = model
	return nil
}

// GoToFilter moves the wheel to the 1-based position.
func (c *Camera) GoToFilter(pos sbigudrv.CFWPosition) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := sbigudrv.CFWParams{Model: c.cfwModel, Command: sbigudrv.CFWGoto, Position: pos}
	if _, err := c.drv.CFW(p); err != nil {
		return fmt.Errorf("moving filter wheel: %w", err)
	}
	return nil
}

// FilterPositionAndStatus reports the wheel's position and motion state.
func (c *Camera) FilterPositionAndStatus() (sbigudrv.CFWPosition, sbigudrv.CFWStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := sbigudrv.CFWParams{Model: c.cfwModel, Command: sbigudrv.CFWQuery}
	res, err := c.drv.CFW(p)
	if err != nil {
		return 0, sbigudrv.CFWStatusUnknown, fmt.Errorf("querying filter wheel: %w", err)
	}
	return res.Position, res.Status, nil
}
