//go:build sbig

package sbigudrv

/*
#cgo LDFLAGS: -lsbigudrv
#include <stdlib.h>
#include <string.h>
#include <sbigudrv.h>
*/
import "C"
import (
	"fmt"
	"unsafe"
)

// UnivDriver forwards every Driver call to SBIGUnivDrvCommand in the
// vendor's shared library.
type UnivDriver struct{}

var _ Driver = (*UnivDriver)(nil)

// Open returns a Driver backed by the vendor library.
func Open() (Driver, error) {
	return &UnivDriver{}, nil
}

func command(cc Command, params, results unsafe.Pointer) error {
	code := Status(C.SBIGUnivDrvCommand(C.short(cc), params, results))
	return Error(code)
}

// OpenDriver loads the universal driver
func (d *UnivDriver) OpenDriver() error {
	return command(CCOpenDriver, nil, nil)
}

// CloseDriver unloads the universal driver
func (d *UnivDriver) CloseDriver() error {
	return command(CCCloseDriver, nil, nil)
}

// OpenDevice opens the physical device
func (d *UnivDriver) OpenDevice(dev DeviceType) error {
	var p C.OpenDeviceParams
	p.deviceType = C.ushort(dev)
	return command(CCOpenDevice, unsafe.Pointer(&p), nil)
}

// CloseDevice closes the physical device
func (d *UnivDriver) CloseDevice() error {
	return command(CCCloseDevice, nil, nil)
}

// EstablishLink handshakes with the camera
func (d *UnivDriver) EstablishLink() (EstablishLinkResults, error) {
	var (
		p C.EstablishLinkParams
		r C.EstablishLinkResults
	)
	err := command(CCEstablishLink, unsafe.Pointer(&p), unsafe.Pointer(&r))
	return EstablishLinkResults{CameraType: uint16(r.cameraType)}, err
}

// GetDriverInfo reports the driver build
func (d *UnivDriver) GetDriverInfo() (DriverInfo, error) {
	var (
		p C.GetDriverInfoParams
		r C.GetDriverInfoResults0
	)
	p.request = C.DRIVER_STD
	err := command(CCGetDriverInfo, unsafe.Pointer(&p), unsafe.Pointer(&r))
	info := DriverInfo{
		Version: bcdVersion(uint16(r.version)),
		Name:    C.GoString(&r.name[0]),
	}
	return info, err
}

// GetCCDInfo reports detector geometry in readout mode 0 units
func (d *UnivDriver) GetCCDInfo(ccd CCD) (CCDInfo, error) {
	var (
		p C.GetCCDInfoParams
		r C.GetCCDInfoResults0
	)
	if ccd == CCDTracking {
		p.request = C.CCD_INFO_TRACKING
	} else {
		p.request = C.CCD_INFO_IMAGING
	}
	err := command(CCGetCCDInfo, unsafe.Pointer(&p), unsafe.Pointer(&r))
	if err != nil {
		return CCDInfo{}, err
	}
	info := CCDInfo{
		Name:            C.GoString(&r.name[0]),
		FirmwareVersion: bcdVersion(uint16(r.firmwareVersion)),
	}
	if r.readoutModes > 0 {
		info.Width = uint16(r.readoutInfo[0].width)
		info.Height = uint16(r.readoutInfo[0].height)
	}
	return info, nil
}

// StartExposure begins integrating
func (d *UnivDriver) StartExposure(sep StartExposureParams) error {
	var p C.StartExposureParams2
	p.ccd = C.ushort(sep.CCD)
	p.exposureTime = C.ulong(sep.ExposureTime)
	p.abgState = C.ushort(sep.ABGState)
	p.openShutter = C.ushort(sep.OpenShutter)
	return command(CCStartExposure, unsafe.Pointer(&p), nil)
}

// EndExposure terminates an exposure
func (d *UnivDriver) EndExposure(ccd CCD) error {
	var p C.EndExposureParams
	p.ccd = C.ushort(ccd)
	return command(CCEndExposure, unsafe.Pointer(&p), nil)
}

// QueryCommandStatus polls command progress
func (d *UnivDriver) QueryCommandStatus(cc Command) (CommandStatus, error) {
	var (
		p C.QueryCommandStatusParams
		r C.QueryCommandStatusResults
	)
	p.command = C.ushort(cc)
	err := command(CCQueryCommandStatus, unsafe.Pointer(&p), unsafe.Pointer(&r))
	// the low two bits carry the integration state for CC_START_EXPOSURE
	return CommandStatus(uint16(r.status) & 0x3), err
}

// StartReadout freezes the image and prepares digitization
func (d *UnivDriver) StartReadout(rp ReadoutParams) error {
	var p C.StartReadoutParams
	p.ccd = C.ushort(rp.CCD)
	p.readoutMode = C.ushort(rp.ReadoutMode)
	p.top = C.ushort(rp.Top)
	p.left = C.ushort(rp.Left)
	p.height = C.ushort(rp.Height)
	p.width = C.ushort(rp.Width)
	return command(CCStartReadout, unsafe.Pointer(&p), nil)
}

// ReadoutLine digitizes one row into dst
func (d *UnivDriver) ReadoutLine(rlp ReadoutLineParams, dst []uint16) error {
	if int(rlp.PixelLength) != len(dst) {
		return fmt.Errorf("sbigudrv: readout destination holds %d pixels, line has %d", len(dst), rlp.PixelLength)
	}
	var p C.ReadoutLineParams
	p.ccd = C.ushort(rlp.CCD)
	p.readoutMode = C.ushort(rlp.ReadoutMode)
	p.pixelStart = C.ushort(rlp.PixelStart)
	p.pixelLength = C.ushort(rlp.PixelLength)
	return command(CCReadoutLine, unsafe.Pointer(&p), unsafe.Pointer(&dst[0]))
}

// EndReadout idles the sensor
func (d *UnivDriver) EndReadout(ccd CCD) error {
	var p C.EndReadoutParams
	p.ccd = C.ushort(ccd)
	return command(CCEndReadout, unsafe.Pointer(&p), nil)
}

// QueryTemperatureStatus reads the cooling subsystem state
func (d *UnivDriver) QueryTemperatureStatus() (TemperatureStatus, error) {
	var (
		p C.QueryTemperatureStatusParams
		r C.QueryTemperatureStatusResults2
	)
	p.request = C.TEMP_STATUS_ADVANCED2
	err := command(CCQueryTemperatureStatus, unsafe.Pointer(&p), unsafe.Pointer(&r))
	ts := TemperatureStatus{
		Enabled:     r.coolingEnabled != 0,
		Temperature: float64(r.imagingCCDTemperature),
		Setpoint:    float64(r.ccdSetpoint),
		Power:       float64(r.imagingCCDPower),
	}
	return ts, err
}

// SetTemperatureRegulation programs the TEC
func (d *UnivDriver) SetTemperatureRegulation(stp SetTemperatureParams) error {
	var p C.SetTemperatureRegulationParams2
	p.regulation = C.ushort(stp.Regulation)
	p.ccdSetpoint = C.double(stp.Setpoint)
	return command(CCSetTemperatureRegulation2, unsafe.Pointer(&p), nil)
}

// CFW issues a filter wheel command
func (d *UnivDriver) CFW(cp CFWParams) (CFWResults, error) {
	var (
		p C.CFWParams
		r C.CFWResults
	)
	p.cfwModel = C.ushort(cp.Model)
	p.cfwCommand = C.ushort(cp.Command)
	p.cfwParam1 = C.ulong(cp.Position)
	err := command(CCCFW, unsafe.Pointer(&p), unsafe.Pointer(&r))
	res := CFWResults{
		Model:    CFWModel(r.cfwModel),
		Position: CFWPosition(r.cfwPosition),
		Status:   CFWStatus(r.cfwStatus),
	}
	return res, err
}

// bcdVersion renders the driver's BCD version words, e.g. 0x0241 -> "2.41"
func bcdVersion(v uint16) string {
	return fmt.Sprintf("%x.%02x", v>>8, v&0xFF)
}
