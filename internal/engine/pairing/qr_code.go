package pairing

import (
	"encoding/base64"
	"errors"

	"github.com/skip2/go-qrcode"
)

const defaultQRSize = 512

// GenerateQRCode renders url as a PNG.
func GenerateQRCode(url string, size int) ([]byte, error) {
	if size == 0 {
		size = defaultQRSize
	}
	if size < 128 || size > 2048 {
		return nil, errors.New("invalid size: must be between 128 and 2048")
	}

	qr, err := qrcode.New(url, qrcode.Medium)
	if err != nil {
		return nil, err
	}
	return qr.PNG(size)
}

// QRDataURL renders url as an inline "data:image/png;base64,..." image so an
// admin screen can display it without another request.
func QRDataURL(url string) (string, error) {
	png, err := GenerateQRCode(url, defaultQRSize)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
