package qrcode

import (
	"bytes"
	"errors"
	"testing"

	goqrcode "github.com/skip2/go-qrcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mockEncoderSuccess(content string, level goqrcode.RecoveryLevel, size int) ([]byte, error) {
	return []byte("qr:" + content), nil
}

func mockEncoderFailure(content string, level goqrcode.RecoveryLevel, size int) ([]byte, error) {
	return nil, errors.New("QR code generation failed")
}

func TestPNGWith_Success(t *testing.T) {
	data, err := PNGWith(mockEncoderSuccess, "utdesignday://event/abc", 200)

	assert.NoError(t, err)
	assert.Equal(t, "qr:utdesignday://event/abc", string(data))
}

func TestPNGWith_InvalidInput(t *testing.T) {
	_, err := PNGWith(mockEncoderSuccess, "", 200)
	assert.ErrorIs(t, err, ErrEmptyContent)

	_, err = PNGWith(mockEncoderSuccess, "x", -1)
	assert.ErrorIs(t, err, ErrInvalidSize)

	_, err = PNGWith(mockEncoderSuccess, "x", MaxSize+1)
	assert.ErrorIs(t, err, ErrInvalidSize)
}

func TestPNGWith_EncoderFails(t *testing.T) {
	data, err := PNGWith(mockEncoderFailure, "x", 200)

	assert.Error(t, err)
	assert.Nil(t, data)
}

func TestPNG_RealEncoderProducesPNG(t *testing.T) {
	data, err := PNG("utdesignday://event/abc", 128)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")))
}
