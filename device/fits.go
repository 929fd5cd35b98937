package device

import (
	"io"

	"github.com/astrogo/fitsio"
)

// WriteFits streams a frame to w as a 16-bit FITS file.  Pixels are
// written as offset int16 with BZERO 32768, the convention for unsigned
// CCD data.
func WriteFits(w io.Writer, frame *Frame) error {
	f, err := fitsio.Create(w)
	if err != nil {
		return err
	}
	defer f.Close()

	img := frame.Image
	im := fitsio.NewImage(16, []int{img.Width(), img.Height()})
	defer im.Close()

	cards := append([]fitsio.Card{
		{Name: "BZERO", Value: 32768},
		{Name: "BSCALE", Value: 1.0},
	}, frame.Cards...)
	if err := im.Header().Append(cards...); err != nil {
		return err
	}

	pix := img.Pix()
	buf := make([]int16, len(pix))
	for i := 0; i < len(pix); i++ {
		buf[i] = int16(pix[i] - 32768)
	}
	if err := im.Write(buf); err != nil {
		return err
	}
	return f.Write(im)
}
