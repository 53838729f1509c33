package png

import "github.com/skip2/go-qrcode"

// Qr renders a verification URL as a 300x300 PNG.
func Qr(content string) ([]byte, error) {
	return qrcode.Encode(content, qrcode.Medium, 300)
}
