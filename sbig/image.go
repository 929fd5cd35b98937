package sbig

import "time"

// Image is a single-owner frame buffer populated by Camera.Readout.  The
// pixel store is a row-major uint16 slice; Row and Pix expose it without
// copying.  The scalar fields mirror FITS header keys one to one and are
// filled in during readout.
type Image struct {
	width  int
	height int
	pix    []uint16

	// CanClose marks the buffer-lifetime handoff: false while the camera
	// owns the buffer during an exposure, true once the data has been
	// handed to the caller and the buffer may be reclaimed.
	CanClose bool

	// ExposureTime is the integration time of this frame
	ExposureTime time.Duration

	// Temperature is the CCD temperature at readout, Celsius
	Temperature float64

	// Binning is the on-chip binning used for this frame
	Binning Binning

	// Subframe is the window this frame was read from, unbinned pixels
	Subframe Window

	// Dark is true when the frame was taken with the shutter closed
	Dark bool

	// FilterName is the filter in the beam, when a wheel is fitted
	FilterName string

	// Observer and Note are free-form annotation fields
	Observer string
	Note     string
}

// NewImage allocates an image with the given geometry.  Zero by zero is
// valid; Readout resizes to the configured subframe.
func NewImage(width, height int) *Image {
	im := &Image{CanClose: true}
	im.Resize(width, height)
	return im
}

// Width is the frame width in (binned) pixels.
func (im *Image) Width() int { return im.width }

// Height is the frame height in (binned) pixels.
func (im *Image) Height() int { return im.height }

// Pix returns the row-major pixel buffer, strided by Width.  The slice
// aliases the image's storage.
func (im *Image) Pix() []uint16 { return im.pix }

// Row returns the y-th row as a view into the pixel buffer.
func (im *Image) Row(y int) []uint16 {
	return im.pix[y*im.width : (y+1)*im.width]
}

// At returns the sample at column x, row y.
func (im *Image) At(x, y int) uint16 {
	return im.pix[y*im.width+x]
}

// SetAt assigns the sample at column x, row y.
func (im *Image) SetAt(x, y int, v uint16) {
	im.pix[y*im.width+x] = v
}

// Resize reshapes the buffer to width x height, reusing the existing
// allocation when it is large enough.
func (im *Image) Resize(width, height int) {
	n := width * height
	if cap(im.pix) >= n {
		im.pix = im.pix[:n]
	} else {
		im.pix = make([]uint16, n)
	}
	im.width = width
	im.height = height
}
