// Package qrcode renders enrollment URIs as QR code images.
package qrcode

import (
	"strings"

	qrcodegen "github.com/skip2/go-qrcode"

	"sitewatch/config"
	"sitewatch/internal/domain/service"
	"sitewatch/internal/errors"
)

const defaultSize = 256

type qrCodeService struct {
	size  int
	level qrcodegen.RecoveryLevel
}

// New builds the QR code renderer from config, with sane defaults.
func New(cfg *config.Config) service.QRCodeService {
	size := defaultSize
	level := qrcodegen.Medium

	if cfg.QRCode != nil {
		if cfg.QRCode.Size > 0 {
			size = cfg.QRCode.Size
		}
		level = parseRecoveryLevel(cfg.QRCode.ErrorCorrectionLevel)
	}

	return &qrCodeService{size: size, level: level}
}

func (s *qrCodeService) GeneratePNG(content string) ([]byte, error) {
	if content == "" {
		return nil, errors.New("qr content must not be empty")
	}

	png, err := qrcodegen.Encode(content, s.level, s.size)
	if err != nil {
		return nil, errors.Wrap(err, "encode qr code")
	}

	return png, nil
}

func parseRecoveryLevel(level string) qrcodegen.RecoveryLevel {
	switch strings.ToUpper(level) {
	case "L", "LOW":
		return qrcodegen.Low
	case "Q", "HIGH":
		return qrcodegen.High
	case "H", "HIGHEST":
		return qrcodegen.Highest
	default:
		return qrcodegen.Medium
	}
}
