/*
Package sbigudrv exposes the SBIG Universal Driver in Go.

This package declares the slice of the driver's command surface needed to run
SBIG CCD cameras in an observatory context: driver and device open/close,
link establishment, exposure start/stop/poll, sensor readout, temperature
regulation, and color filter wheel control.  It is purely a driver interface
with some gussied up in and output types; it contains no recipes.  Users are
encouraged to write packages that build on this interface, an example of
which is in the same repository, package sbig.

The real binding (build tag "sbig") forwards every call to
SBIGUnivDrvCommand in the vendor's shared library.  Package sbigudrv/sim
provides a software implementation of the same interface for development and
testing without hardware.
*/
package sbigudrv

// Driver is the function-call surface of the universal driver.  One value
// represents one driver session; the SBIG library is not safe for
// concurrent use, callers must serialize access themselves.
type Driver interface {
	// OpenDriver loads the driver.  It must be the first call of a session.
	OpenDriver() error

	// CloseDriver unloads the driver, releasing any device first.
	CloseDriver() error

	// OpenDevice opens the physical device (USB, LPT, ethernet...).
	OpenDevice(DeviceType) error

	// CloseDevice closes the physical device.
	CloseDevice() error

	// EstablishLink handshakes with the camera over the open device and
	// reports the camera type found.
	EstablishLink() (EstablishLinkResults, error)

	// GetDriverInfo reports the driver version information.
	GetDriverInfo() (DriverInfo, error)

	// GetCCDInfo reports the geometry and identity of the requested CCD.
	GetCCDInfo(CCD) (CCDInfo, error)

	// StartExposure begins integrating charge on the sensor.
	StartExposure(StartExposureParams) error

	// EndExposure terminates an exposure, closing the shutter if needed.
	// It is also the defensive "clear any dangling exposure" call.
	EndExposure(CCD) error

	// QueryCommandStatus polls the progress of a previously issued command.
	QueryCommandStatus(Command) (CommandStatus, error)

	// StartReadout freezes the image and prepares the sensor for digitization.
	StartReadout(ReadoutParams) error

	// ReadoutLine digitizes one row of the subframe into dst.  len(dst)
	// must equal PixelLength.
	ReadoutLine(rlp ReadoutLineParams, dst []uint16) error

	// EndReadout idles the sensor after the last line has been drained.
	EndReadout(CCD) error

	// QueryTemperatureStatus reads the cooling subsystem state.
	QueryTemperatureStatus() (TemperatureStatus, error)

	// SetTemperatureRegulation enables or disables the TEC and assigns its
	// setpoint.
	SetTemperatureRegulation(SetTemperatureParams) error

	// CFW issues a color filter wheel command.
	CFW(CFWParams) (CFWResults, error)
}

// DeviceType selects the physical connection to open.
type DeviceType uint16

// Device types from the OPEN_DEVICE_PARAMS block.
const (
	DeviceNone DeviceType = iota
	DeviceLPT1
	DeviceLPT2
	DeviceLPT3
	DeviceUSB DeviceType = 0x7F00
	DeviceEthernet
	DeviceUSB1
	DeviceUSB2
	DeviceUSB3
	DeviceUSB4
)

// CCD selects which detector a command addresses.
type CCD uint16

const (
	// CCDImaging is the main imaging sensor
	CCDImaging CCD = iota

	// CCDTracking is the autoguiding sensor, when fitted
	CCDTracking
)

// Command identifies a driver command for QueryCommandStatus.
type Command uint16

// Command codes for the operations wrapped by this package.
const (
	CCStartExposure Command = iota + 1
	CCEndExposure
	CCReadoutLine
	CCDumpLines
	CCSetTemperatureRegulation
	CCQueryTemperatureStatus
	CCActivateRelay
	CCPulseOut
	CCEstablishLink
	CCGetDriverInfo
	CCGetCCDInfo
	CCQueryCommandStatus
	CCMiscellaneousControl
	CCReadSubtractLine
	CCUpdateClock
	CCReadOffset
	CCOpenDriver
	CCCloseDriver
	CCTXSerialBytes
	CCGetSerialStatus
	CCOpenDevice
	CCCloseDevice
	CCStartReadout
	CCEndReadout
	CCCFW                       Command = 43
	CCSetTemperatureRegulation2 Command = 48
)

// CommandStatus is the driver's report of a command's progress.  For
// CCStartExposure, the low two bits encode integration state.
type CommandStatus uint16

const (
	// StatusIdle means no command is in flight
	StatusIdle CommandStatus = 0

	// StatusInProgress means the command is still executing
	StatusInProgress CommandStatus = 2

	// StatusComplete means integration has finished and the image is ready
	// for readout
	StatusComplete CommandStatus = 3
)

// ReadoutMode selects on-chip binning during readout.
type ReadoutMode uint16

// Readout modes.  Higher modes exist in the driver (NxN, vertical binning)
// but are not used by this wrapper.
const (
	Readout1x1 ReadoutMode = iota
	Readout2x2
	Readout3x3
)

// ShutterCommand controls the mechanical shutter during an exposure.
type ShutterCommand uint16

const (
	// ShutterLeave leaves the shutter in its current position
	ShutterLeave ShutterCommand = iota

	// ShutterOpen opens the shutter for a light frame
	ShutterOpen

	// ShutterClose keeps the shutter closed for a dark frame
	ShutterClose
)

// ABGState controls the anti-blooming gate clocking during integration.
type ABGState uint16

const (
	// ABGLow keeps the ABG shut off for maximum sensitivity
	ABGLow ABGState = iota

	// ABGClockLow clocks the ABG at the low rate
	ABGClockLow

	// ABGClockMedium clocks the ABG at the medium rate
	ABGClockMedium

	// ABGClockHigh clocks the ABG at the high rate
	ABGClockHigh
)

// TemperatureRegulation enables or disables the TEC.
type TemperatureRegulation uint16

const (
	// RegulationOff disables the cooler
	RegulationOff TemperatureRegulation = iota

	// RegulationOn enables closed-loop cooling to the setpoint
	RegulationOn
)

// StartExposureParams are the inputs to StartExposure.
type StartExposureParams struct {
	// CCD is the target detector
	CCD CCD

	// ExposureTime is the integration time in hundredths of a second
	ExposureTime uint32

	// ABGState is the anti-blooming gate clocking during the exposure
	ABGState ABGState

	// OpenShutter selects a light or dark frame
	OpenShutter ShutterCommand
}

// ReadoutParams are the inputs to StartReadout.  The subframe is expressed
// in binned pixel units.
type ReadoutParams struct {
	CCD         CCD
	ReadoutMode ReadoutMode
	Top         uint16
	Left        uint16
	Height      uint16
	Width       uint16
}

// ReadoutLineParams are the inputs to ReadoutLine.
type ReadoutLineParams struct {
	CCD         CCD
	ReadoutMode ReadoutMode

	// PixelStart is the first binned pixel of the row to digitize
	PixelStart uint16

	// PixelLength is the number of binned pixels to digitize
	PixelLength uint16
}

// SetTemperatureParams are the inputs to SetTemperatureRegulation.
type SetTemperatureParams struct {
	Regulation TemperatureRegulation

	// Setpoint is the target CCD temperature in Celsius
	Setpoint float64
}

// TemperatureStatus is the cooling subsystem state from
// QueryTemperatureStatus.
type TemperatureStatus struct {
	// Enabled reports whether closed-loop regulation is active
	Enabled bool

	// Temperature is the CCD temperature in Celsius
	Temperature float64

	// Setpoint is the regulation target in Celsius
	Setpoint float64

	// Power is the TEC drive level in percent, 0-100
	Power float64
}

// EstablishLinkResults reports the camera found by EstablishLink.
type EstablishLinkResults struct {
	// CameraType is the vendor's camera type code
	CameraType uint16
}

// CCDInfo describes one detector, in readout mode 0 (unbinned) units.
type CCDInfo struct {
	// Name is the camera name string from firmware
	Name string

	// FirmwareVersion is the camera firmware version, e.g. "2.41"
	FirmwareVersion string

	// Width is the unbinned width of the sensor in pixels
	Width uint16

	// Height is the unbinned height of the sensor in pixels
	Height uint16
}

// DriverInfo reports the driver build from GetDriverInfo.
type DriverInfo struct {
	Version string
	Name    string
}

// CFWModel identifies a color filter wheel product.
type CFWModel uint16

// Filter wheel models from the CFW_MODEL_SELECT enum.
const (
	CFWUnknown CFWModel = iota
	CFW2
	CFW5
	CFW8
	CFWL
	CFW402
	CFWAuto
	CFW6A
	CFW10
	CFW10Serial
	CFW9
	CFWL8
	CFWL8G
	CFW1603
	FW5STX
	FW58300
	FW88300
	FW7STX
	FW8STT
	FW5STF
)

// CFWCommand is a filter wheel operation.
type CFWCommand uint16

const (
	// CFWQuery reads the current position and motion status
	CFWQuery CFWCommand = iota

	// CFWInit re-homes the wheel
	CFWInit

	// CFWGoto moves the wheel to the position in CFWParams.Position
	CFWGoto

	// CFWOpenDevice selects and initializes the wheel model
	CFWOpenDevice

	// CFWCloseDevice releases the wheel
	CFWCloseDevice
)

// CFWStatus is the wheel's motion state.
type CFWStatus uint16

const (
	// CFWStatusUnknown means the wheel cannot report its state
	CFWStatusUnknown CFWStatus = iota

	// CFWStatusIdle means the wheel is stopped on a position
	CFWStatusIdle

	// CFWStatusBusy means the wheel is moving
	CFWStatusBusy
)

// CFWPosition is a filter slot.  Position 0 means unknown; real slots are
// 1-based.
type CFWPosition uint16

// CFWParams are the inputs to CFW.
type CFWParams struct {
	Model   CFWModel
	Command CFWCommand

	// Position is the target slot for CFWGoto, ignored otherwise
	Position CFWPosition
}

// CFWResults are the outputs of CFW.
type CFWResults struct {
	Model    CFWModel
	Position CFWPosition
	Status   CFWStatus
}
