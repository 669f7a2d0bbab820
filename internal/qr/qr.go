// Package qr renders share links as scannable QR codes.
package qr

import (
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

// DefaultSize is the PNG edge length in pixels.
const DefaultSize = 180

// Renderer turns text into a PNG image.
type Renderer interface {
	PNG(text string) ([]byte, error)
}

// Encoder renders with the lowest error correction level, which maximizes
// the payload a symbol can carry.
type Encoder struct {
	Size int
}

func NewEncoder(size int) Encoder {
	if size <= 0 {
		size = DefaultSize
	}
	return Encoder{Size: size}
}

func (e Encoder) PNG(text string) ([]byte, error) {
	png, err := qrcode.Encode(text, qrcode.Low, e.Size)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return png, nil
}

// Terminal renders text as block characters for printing to a terminal.
func Terminal(text string) (string, error) {
	q, err := qrcode.New(text, qrcode.Low)
	if err != nil {
		return "", fmt.Errorf("encode qr: %w", err)
	}
	return q.ToSmallString(false), nil
}
