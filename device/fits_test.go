package device_test

import (
	"bytes"
	"testing"

	"github.com/astrogo/fitsio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pyobs/pyobs-sbig/device"
	"github.com/pyobs/pyobs-sbig/sbig"
)

func TestWriteFitsRoundTrip(t *testing.T) {
	img := sbig.NewImage(4, 2)
	img.SetAt(0, 0, 0)
	img.SetAt(1, 0, 100)
	img.SetAt(2, 0, 32768)
	img.SetAt(3, 0, 65535)

	frame := &device.Frame{
		Image: img,
		Cards: []fitsio.Card{{Name: "INSTRUME", Value: "unit test"}},
	}

	buf := &bytes.Buffer{}
	require.NoError(t, device.WriteFits(buf, frame))

	f, err := fitsio.Open(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	hdu := f.HDU(0)
	hdr := hdu.Header()
	assert.Equal(t, []int{4, 2}, hdr.Axes())
	require.NotNil(t, hdr.Get("BZERO"))
	assert.EqualValues(t, 32768, hdr.Get("BZERO").Value)
	require.NotNil(t, hdr.Get("INSTRUME"))
	assert.Equal(t, "unit test", hdr.Get("INSTRUME").Value)
}
