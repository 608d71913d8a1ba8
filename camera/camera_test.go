package camera

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGrayscaleValidate(t *testing.T) {
	ok := Grayscale{Width: 4, Height: 3, Pixels: make([]byte, 12)}
	assert.NoError(t, ok.Validate())

	short := Grayscale{Width: 4, Height: 3, Pixels: make([]byte, 11)}
	assert.Error(t, short.Validate())

	empty := Grayscale{}
	assert.Error(t, empty.Validate())

	negative := Grayscale{Width: -1, Height: 3}
	assert.Error(t, negative.Validate())
}

func TestGrayscaleMatRejectsBadBuffer(t *testing.T) {
	bad := Grayscale{Width: 10, Height: 10, Pixels: make([]byte, 5)}
	_, err := bad.Mat()
	assert.Error(t, err)
}

func TestGrayscaleMatRoundTrip(t *testing.T) {
	pixels := []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}
	g := Grayscale{Width: 4, Height: 3, Pixels: pixels}

	mat, err := g.Mat()
	require.NoError(t, err)
	defer mat.Close()

	assert.Equal(t, 3, mat.Rows())
	assert.Equal(t, 4, mat.Cols())
	assert.Equal(t, pixels, mat.ToBytes())
}
