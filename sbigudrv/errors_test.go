package sbigudrv_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pyobs/pyobs-sbig/sbigudrv"
)

func TestErrorNilForNoError(t *testing.T) {
	assert.NoError(t, sbigudrv.Error(sbigudrv.StatusNoError))
}

func TestErrorStrings(t *testing.T) {
	cases := map[sbigudrv.Status]string{
		1:  "1 - CE_CAMERA_NOT_FOUND",
		3:  "3 - CE_NO_EXPOSURE_IN_PROGRESS",
		6:  "6 - CE_BAD_PARAMETER",
		42: "42 - CE_INVALID_HANDLE",
	}
	for code, want := range cases {
		err := sbigudrv.Error(code)
		assert.EqualError(t, err, want)
	}
}

func TestErrorUnknownCode(t *testing.T) {
	err := sbigudrv.Error(200)
	assert.EqualError(t, err, "200 - UNKNOWN_ERROR_CODE")
}
