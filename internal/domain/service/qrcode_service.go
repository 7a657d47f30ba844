package service

// QRCodeService renders content (e.g. an otpauth enrollment URI) as a QR
// code image for authenticator-app scanning.
type QRCodeService interface {
	// GeneratePNG encodes the content into a PNG image.
	GeneratePNG(content string) ([]byte, error)
}
