/*
Package sim provides a software implementation of the sbigudrv.Driver
surface for development and testing without a camera attached.

The simulator enforces the driver's session lifecycle (driver open ->
device open -> link established), synthesizes deterministic frames, models
the cooling loop, and supports fault injection: set Fail["StartExposure"]
to a status code and that call will return the corresponding vendor error.
Every driver call is appended to Calls so tests can assert on call order.
*/
package sim

import (
	"sync"

	"github.com/pyobs/pyobs-sbig/sbigudrv"
)

// Ambient is the sensor temperature in Celsius with regulation off.
const Ambient = 20.0

// darkLevel is the pixel value of synthesized dark frames.
const darkLevel = 100

type readout struct {
	mode  sbigudrv.ReadoutMode
	top   uint16
	left  uint16
	fill  uint16 // width of a line
	rows  uint16
	row   uint16
	frame uint64
	light bool
}

// Driver is a simulated SBIG universal driver.  The zero value is not
// usable; construct with New.
type Driver struct {
	mu sync.Mutex

	// Width and Height are the unbinned sensor geometry reported by
	// GetCCDInfo.  Assign before opening the driver.
	Width, Height uint16

	// PollsUntilComplete is how many QueryCommandStatus calls an exposure
	// stays in progress before reporting complete.
	PollsUntilComplete int

	// Fail maps a method name ("StartExposure", "ReadoutLine", ...) to the
	// status code that call should fail with.
	Fail map[string]sbigudrv.Status

	// Calls records every driver call in order, by method name.
	Calls []string

	driverOpen bool
	deviceOpen bool
	linked     bool

	exposing    bool
	polls       int
	frame       uint64
	shutterOpen bool
	rd          *readout

	regulation bool
	setpoint   float64

	cfwModel    sbigudrv.CFWModel
	cfwPosition sbigudrv.CFWPosition
}

var _ sbigudrv.Driver = (*Driver)(nil)

// New returns a simulator with STF-6303E-like geometry and a three-poll
// exposure.
func New() *Driver {
	return &Driver{
		Width:              3072,
		Height:             2048,
		PollsUntilComplete: 3,
		Fail:               map[string]sbigudrv.Status{},
		setpoint:           Ambient,
	}
}

// call records the invocation and returns the injected error, if any.
func (d *Driver) call(name string) error {
	d.Calls = append(d.Calls, name)
	if code, ok := d.Fail[name]; ok {
		return sbigudrv.Error(code)
	}
	return nil
}

// OpenDriver marks the driver session open
func (d *Driver) OpenDriver() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.call("OpenDriver"); err != nil {
		return err
	}
	d.driverOpen = true
	return nil
}

// CloseDriver ends the driver session
func (d *Driver) CloseDriver() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.call("CloseDriver"); err != nil {
		return err
	}
	if !d.driverOpen {
		return sbigudrv.Error(20) // CE_DRIVER_NOT_OPEN
	}
	d.driverOpen = false
	d.deviceOpen = false
	d.linked = false
	return nil
}

// OpenDevice opens the simulated device
func (d *Driver) OpenDevice(sbigudrv.DeviceType) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.call("OpenDevice"); err != nil {
		return err
	}
	if !d.driverOpen {
		return sbigudrv.Error(20) // CE_DRIVER_NOT_OPEN
	}
	d.deviceOpen = true
	return nil
}

// CloseDevice closes the simulated device
func (d *Driver) CloseDevice() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.call("CloseDevice"); err != nil {
		return err
	}
	if !d.deviceOpen {
		return sbigudrv.Error(28) // CE_DEVICE_NOT_OPEN
	}
	d.deviceOpen = false
	d.linked = false
	return nil
}

// EstablishLink handshakes with the simulated camera
func (d *Driver) EstablishLink() (sbigudrv.EstablishLinkResults, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.call("EstablishLink"); err != nil {
		return sbigudrv.EstablishLinkResults{}, err
	}
	if !d.deviceOpen {
		return sbigudrv.EstablishLinkResults{}, sbigudrv.Error(28)
	}
	d.linked = true
	return sbigudrv.EstablishLinkResults{CameraType: 0x11}, nil
}

// GetDriverInfo reports the simulator build
func (d *Driver) GetDriverInfo() (sbigudrv.DriverInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.call("GetDriverInfo"); err != nil {
		return sbigudrv.DriverInfo{}, err
	}
	return sbigudrv.DriverInfo{Version: "4.99", Name: "SBIG simulated driver"}, nil
}

// GetCCDInfo reports the configured geometry
func (d *Driver) GetCCDInfo(sbigudrv.CCD) (sbigudrv.CCDInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.call("GetCCDInfo"); err != nil {
		return sbigudrv.CCDInfo{}, err
	}
	if !d.linked {
		return sbigudrv.CCDInfo{}, sbigudrv.Error(1) // CE_CAMERA_NOT_FOUND
	}
	info := sbigudrv.CCDInfo{
		Name:            "SBIG Simulated Camera",
		FirmwareVersion: "2.41",
		Width:           d.Width,
		Height:          d.Height,
	}
	return info, nil
}

// StartExposure begins a simulated integration
func (d *Driver) StartExposure(p sbigudrv.StartExposureParams) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.call("StartExposure"); err != nil {
		return err
	}
	if !d.linked {
		return sbigudrv.Error(1)
	}
	if d.exposing {
		return sbigudrv.Error(2) // CE_EXPOSURE_IN_PROGRESS
	}
	d.exposing = true
	d.polls = 0
	d.shutterOpen = p.OpenShutter == sbigudrv.ShutterOpen
	return nil
}

// EndExposure finishes or aborts the integration
func (d *Driver) EndExposure(sbigudrv.CCD) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.call("EndExposure"); err != nil {
		return err
	}
	if !d.exposing {
		return sbigudrv.Error(3) // CE_NO_EXPOSURE_IN_PROGRESS
	}
	d.exposing = false
	return nil
}

// QueryCommandStatus reports integration progress
func (d *Driver) QueryCommandStatus(sbigudrv.Command) (sbigudrv.CommandStatus, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.call("QueryCommandStatus"); err != nil {
		return 0, err
	}
	if !d.exposing {
		return sbigudrv.StatusIdle, nil
	}
	d.polls++
	if d.polls >= d.PollsUntilComplete {
		return sbigudrv.StatusComplete, nil
	}
	return sbigudrv.StatusInProgress, nil
}

// StartReadout latches the current frame for digitization
func (d *Driver) StartReadout(p sbigudrv.ReadoutParams) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.call("StartReadout"); err != nil {
		return err
	}
	if !d.linked {
		return sbigudrv.Error(1)
	}
	d.frame++
	d.rd = &readout{
		mode:  p.ReadoutMode,
		top:   p.Top,
		left:  p.Left,
		fill:  p.Width,
		rows:  p.Height,
		frame: d.frame,
		light: d.shutterOpen,
	}
	return nil
}

// ReadoutLine synthesizes one row of pixels into dst
func (d *Driver) ReadoutLine(p sbigudrv.ReadoutLineParams, dst []uint16) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.call("ReadoutLine"); err != nil {
		return err
	}
	if d.rd == nil {
		return sbigudrv.Error(5) // CE_BAD_CAMERA_COMMAND
	}
	if int(p.PixelLength) != len(dst) {
		return sbigudrv.Error(6) // CE_BAD_PARAMETER
	}
	if d.rd.row >= d.rd.rows {
		return sbigudrv.Error(6)
	}
	y := d.rd.top + d.rd.row
	for i := range dst {
		x := p.PixelStart + uint16(i)
		dst[i] = Pixel(x, y, d.rd.frame, d.rd.light)
	}
	d.rd.row++
	return nil
}

// EndReadout idles the simulated sensor
func (d *Driver) EndReadout(sbigudrv.CCD) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.call("EndReadout"); err != nil {
		return err
	}
	d.rd = nil
	return nil
}

// QueryTemperatureStatus reads the simulated cooling loop.  With
// regulation on the sensor sits a fixed 0.3 C above the setpoint.
func (d *Driver) QueryTemperatureStatus() (sbigudrv.TemperatureStatus, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.call("QueryTemperatureStatus"); err != nil {
		return sbigudrv.TemperatureStatus{}, err
	}
	ts := sbigudrv.TemperatureStatus{
		Enabled:     d.regulation,
		Setpoint:    d.setpoint,
		Temperature: Ambient,
	}
	if d.regulation {
		ts.Temperature = d.setpoint + 0.3
		ts.Power = 60
	}
	return ts, nil
}

// SetTemperatureRegulation programs the simulated TEC
func (d *Driver) SetTemperatureRegulation(p sbigudrv.SetTemperatureParams) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.call("SetTemperatureRegulation"); err != nil {
		return err
	}
	d.regulation = p.Regulation == sbigudrv.RegulationOn
	d.setpoint = p.Setpoint
	return nil
}

// CFW services filter wheel commands.  Moves complete instantly.
func (d *Driver) CFW(p sbigudrv.CFWParams) (sbigudrv.CFWResults, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.call("CFW"); err != nil {
		return sbigudrv.CFWResults{}, err
	}
	switch p.Command {
	case sbigudrv.CFWOpenDevice:
		d.cfwModel = p.Model
		if d.cfwPosition == 0 {
			d.cfwPosition = 1
		}
	case sbigudrv.CFWCloseDevice:
		d.cfwModel = sbigudrv.CFWUnknown
	case sbigudrv.CFWInit:
		d.cfwPosition = 1
	case sbigudrv.CFWGoto:
		if d.cfwModel == sbigudrv.CFWUnknown {
			return sbigudrv.CFWResults{}, sbigudrv.Error(35) // CE_CFW_ERROR
		}
		d.cfwPosition = p.Position
	}
	res := sbigudrv.CFWResults{
		Model:    d.cfwModel,
		Position: d.cfwPosition,
		Status:   sbigudrv.CFWStatusIdle,
	}
	return res, nil
}

// Pixel is the deterministic sample generator.  Light frames are a tilted
// gradient salted by the frame counter; dark frames are flat at darkLevel.
func Pixel(x, y uint16, frame uint64, light bool) uint16 {
	if !light {
		return darkLevel
	}
	return uint16((uint64(x)*7 + uint64(y)*13 + frame*31) & 0x0FFF)
}
