package qrcodes

import (
	"errors"
	"fmt"
	"io"
	"strings"

	skip2 "github.com/skip2/go-qrcode"
	yeqown "github.com/yeqown/go-qrcode"
)

const (
	StyleSquare  = "square"
	StyleRounded = "rounded"

	// standard quiet zone, the only non-zero border the square encoder draws
	defaultBorder = 4
)

// Encoder renders content as a PNG QR code.
type Encoder interface {
	Encode(w io.Writer, content string) error
}

type EncodeOptions struct {
	Version         int    // 0 picks the smallest version that fits
	BoxSize         int    // pixels per module
	Border          int    // quiet zone, in modules
	ErrorCorrection string // L, M, Q or H
	Style           string // square or rounded
}

// NewEncoder returns the encoder for opts.Style.
func NewEncoder(opts EncodeOptions) (Encoder, error) {
	if opts.BoxSize < 1 || opts.BoxSize > 255 {
		return nil, fmt.Errorf("box size must be between 1 and 255, got %d", opts.BoxSize)
	}
	if opts.Version < 0 || opts.Version > 40 {
		return nil, fmt.Errorf("version must be between 0 and 40, got %d", opts.Version)
	}
	if opts.Border < 0 {
		return nil, errors.New("border must not be negative")
	}

	level := strings.ToUpper(opts.ErrorCorrection)

	switch strings.ToLower(opts.Style) {
	case StyleSquare, "":
		recovery, ok := squareLevels[level]
		if !ok {
			return nil, fmt.Errorf("unknown error correction level %q", opts.ErrorCorrection)
		}
		return &squareEncoder{opts: opts, level: recovery}, nil
	case StyleRounded:
		config, ok := roundedConfigs[level]
		if !ok {
			return nil, fmt.Errorf("unknown error correction level %q", opts.ErrorCorrection)
		}
		return &roundedEncoder{opts: opts, config: config}, nil
	default:
		return nil, fmt.Errorf("unknown module style %q", opts.Style)
	}
}

var squareLevels = map[string]skip2.RecoveryLevel{
	"L": skip2.Low,
	"M": skip2.Medium,
	"Q": skip2.High,
	"H": skip2.Highest,
}

type squareEncoder struct {
	opts  EncodeOptions
	level skip2.RecoveryLevel
}

func (e *squareEncoder) Encode(w io.Writer, content string) error {
	qr, err := e.build(content)
	if err != nil {
		return err
	}

	qr.DisableBorder = e.opts.Border == 0

	// A negative size asks for a fixed number of pixels per module.
	return qr.Write(-e.opts.BoxSize, w)
}

func (e *squareEncoder) build(content string) (*skip2.QRCode, error) {
	if e.opts.Version > 0 {
		qr, err := skip2.NewWithForcedVersion(content, e.opts.Version, e.level)
		if err == nil {
			return qr, nil
		}
		// content does not fit the preferred version, let the library grow it
	}
	return skip2.New(content, e.level)
}

var roundedConfigs = map[string]yeqown.Config{
	"L": {EncMode: yeqown.EncModeByte, EcLevel: yeqown.ErrorCorrectionLow},
	"M": {EncMode: yeqown.EncModeByte, EcLevel: yeqown.ErrorCorrectionMedium},
	"Q": {EncMode: yeqown.EncModeByte, EcLevel: yeqown.ErrorCorrectionQuart},
	"H": {EncMode: yeqown.EncModeByte, EcLevel: yeqown.ErrorCorrectionHighest},
}

// roundedEncoder draws circular modules. The library always picks the
// smallest version that fits, so Version is not applied here.
type roundedEncoder struct {
	opts   EncodeOptions
	config yeqown.Config
}

func (e *roundedEncoder) Encode(w io.Writer, content string) error {
	config := e.config
	qr, err := yeqown.NewWithConfig(content, &config,
		yeqown.WithQRWidth(uint8(e.opts.BoxSize)),
		// border width is in pixels here, Border counts modules
		yeqown.WithBorderWidth(e.opts.Border*e.opts.BoxSize),
		yeqown.WithCircleShape(),
		yeqown.WithBuiltinImageEncoder(yeqown.PNG_FORMAT),
	)
	if err != nil {
		return err
	}
	return qr.SaveTo(w)
}
