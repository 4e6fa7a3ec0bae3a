package decode

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"strings"

	// Register decoders for the default supported photo formats.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
)

// ErrNoMarker is returned when an image was read successfully but contains no
// decodable marker. Any other error means the file itself was unreadable.
var ErrNoMarker = errors.New("no marker found")

// Decoder extracts an embedded marker payload from an image file. It must not
// mutate the file. Implementations distinguish "no marker" (ErrNoMarker) from
// a file that cannot be opened or decoded.
type Decoder interface {
	Decode(ctx context.Context, path string) (string, error)
}

// QRDecoder reads QR codes photographed off a screen using the zxing port.
type QRDecoder struct{}

// NewQRDecoder returns the default marker decoder.
func NewQRDecoder() QRDecoder {
	return QRDecoder{}
}

// Decode opens the image, scans it for a QR code, and returns the payload.
func (QRDecoder) Decode(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open image: %w", err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}

	source := gozxing.NewLuminanceSourceFromImage(img)
	bitmap, err := gozxing.NewBinaryBitmap(gozxing.NewHybridBinarizer(source))
	if err != nil {
		return "", fmt.Errorf("binarize image: %w", err)
	}

	result, err := qrcode.NewQRCodeReader().Decode(bitmap, nil)
	if err != nil {
		// Reader exceptions (not found, bad format, bad checksum) mean the
		// image is a perfectly readable photo without a usable marker.
		if _, ok := err.(gozxing.ReaderException); ok {
			return "", ErrNoMarker
		}
		return "", fmt.Errorf("scan image: %w", err)
	}

	return result.GetText(), nil
}

// ParsePatientID extracts the patient identifier from a decoded payload.
// Payloads carrying the configured prefix are stripped to the bare id; other
// payloads are used trimmed as-is. An empty result means no usable id.
func ParsePatientID(payload, prefix string) string {
	payload = strings.TrimSpace(payload)
	if prefix != "" && strings.HasPrefix(payload, prefix) {
		payload = strings.TrimSpace(strings.TrimPrefix(payload, prefix))
	}
	return payload
}
