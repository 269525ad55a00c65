package api

import (
	"fmt"

	"github.com/skip2/go-qrcode"
)

// qrSize is the edge length of generated QR images in pixels
const qrSize = 256

// SeedShareURL returns the link that reproduces the world built from seed
func SeedShareURL(base string, seed int64) string {
	return fmt.Sprintf("%s?seed=%d", base, seed)
}

// SeedQRCode renders the share link of seed as a PNG QR code
func SeedQRCode(base string, seed int64) ([]byte, error) {
	png, err := qrcode.Encode(SeedShareURL(base, seed), qrcode.Medium, qrSize)
	if err != nil {
		return nil, fmt.Errorf("failed to encode QR code: %w", err)
	}
	return png, nil
}
