//go:build !sbig

package sbigudrv

import "errors"

// ErrNoDriver is returned by Open when the binary was built without the
// sbig build tag and cannot link the vendor library.
var ErrNoDriver = errors.New("sbigudrv: built without sbig tag, vendor driver unavailable")

// Open returns ErrNoDriver.  Build with -tags sbig and the vendor library
// installed to talk to real hardware; use sbigudrv/sim otherwise.
func Open() (Driver, error) {
	return nil, ErrNoDriver
}
