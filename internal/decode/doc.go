// Package decode wraps the QR marker reading capability behind a small
// Decoder interface.
//
// The default QRDecoder uses the pure-Go zxing port; the interface exists so
// the classifier and pipeline can be tested without real marker images. The
// package also owns patient id parsing for decoded payloads.
package decode
