package sbigudrv

import "fmt"

// Status is a driver status code.  Non-zero values are errors.
type Status uint16

// ErrCodes is a map of status codes to their string values, transcribed
// from the PAR_ERROR enum in sbigudrv.h.
var ErrCodes = map[Status]string{
	0:  "CE_NO_ERROR",
	1:  "CE_CAMERA_NOT_FOUND",
	2:  "CE_EXPOSURE_IN_PROGRESS",
	3:  "CE_NO_EXPOSURE_IN_PROGRESS",
	4:  "CE_UNKNOWN_COMMAND",
	5:  "CE_BAD_CAMERA_COMMAND",
	6:  "CE_BAD_PARAMETER",
	7:  "CE_TX_TIMEOUT",
	8:  "CE_RX_TIMEOUT",
	9:  "CE_NAK_RECEIVED",
	10: "CE_CAN_RECEIVED",
	11: "CE_UNKNOWN_RESPONSE",
	12: "CE_BAD_LENGTH",
	13: "CE_AD_TIMEOUT",
	14: "CE_KBD_ESC",
	15: "CE_CHECKSUM_ERROR",
	16: "CE_EEPROM_ERROR",
	17: "CE_SHUTTER_ERROR",
	18: "CE_UNKNOWN_CAMERA",
	19: "CE_DRIVER_NOT_FOUND",
	20: "CE_DRIVER_NOT_OPEN",
	21: "CE_DRIVER_NOT_CLOSED",
	22: "CE_SHARE_ERROR",
	23: "CE_TCE_NOT_FOUND",
	24: "CE_AO_ERROR",
	25: "CE_ECP_ERROR",
	26: "CE_MEMORY_ERROR",
	27: "CE_DEVICE_NOT_FOUND",
	28: "CE_DEVICE_NOT_OPEN",
	29: "CE_DEVICE_NOT_CLOSED",
	30: "CE_DEVICE_NOT_IMPLEMENTED",
	31: "CE_DEVICE_DISABLED",
	32: "CE_OS_ERROR",
	33: "CE_SOCK_ERROR",
	34: "CE_SERVER_NOT_FOUND",
	35: "CE_CFW_ERROR",
	36: "CE_MF_ERROR",
	37: "CE_FIRMWARE_ERROR",
	38: "CE_DIFF_GUIDER_ERROR",
	39: "CE_RIPPLE_CORRECTION_ERROR",
	40: "CE_EZUSB_RESET",
	41: "CE_INCOMPATIBLE_FIRMWARE",
	42: "CE_INVALID_HANDLE",
}

// StatusNoError is the lone non-error status.
const StatusNoError Status = 0

func (s Status) Error() string {
	if str, ok := ErrCodes[s]; ok {
		return fmt.Sprintf("%d - %s", uint16(s), str)
	}
	return fmt.Sprintf("%d - UNKNOWN_ERROR_CODE", uint16(s))
}

// Error returns nil for CE_NO_ERROR, otherwise an object which prints the
// status code and its string value.
func Error(code Status) error {
	if code == StatusNoError {
		return nil
	}
	return code
}
