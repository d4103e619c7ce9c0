package qrcode

import (
	"errors"

	goqrcode "github.com/skip2/go-qrcode"
)

const (
	// DefaultSize is the PNG edge length used when the caller does not ask for one.
	DefaultSize = 256
	// MaxSize caps the rendered PNG edge length.
	MaxSize = 1024
)

var (
	ErrEmptyContent = errors.New("qr content is empty")
	ErrInvalidSize  = errors.New("invalid size: must be between 1 and 1024")
)

// Encoder renders content into a PNG QR code. It matches goqrcode.Encode so tests can swap it.
type Encoder func(content string, level goqrcode.RecoveryLevel, size int) ([]byte, error)

// PNG renders content as a square PNG QR code using the default encoder.
func PNG(content string, size int) ([]byte, error) {
	return PNGWith(goqrcode.Encode, content, size)
}

// PNGWith renders content with the given encoder.
func PNGWith(encode Encoder, content string, size int) ([]byte, error) {
	if content == "" {
		return nil, ErrEmptyContent
	}
	if size <= 0 || size > MaxSize {
		return nil, ErrInvalidSize
	}
	return encode(content, goqrcode.Medium, size)
}
