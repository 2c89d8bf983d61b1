package qrcodes

import (
	"bytes"
	"image/png"
	"testing"
)

func TestNewEncoder(t *testing.T) {
	tests := []struct {
		name    string
		opts    EncodeOptions
		wantErr bool
	}{
		{
			name: "Square",
			opts: EncodeOptions{Version: 3, BoxSize: 10, Border: 4, ErrorCorrection: "H", Style: "square"},
		},
		{
			name: "Rounded Lowercase Level",
			opts: EncodeOptions{Version: 3, BoxSize: 10, Border: 4, ErrorCorrection: "m", Style: "rounded"},
		},
		{
			name:    "Unknown Style",
			opts:    EncodeOptions{BoxSize: 10, ErrorCorrection: "H", Style: "dotted"},
			wantErr: true,
		},
		{
			name:    "Unknown Level",
			opts:    EncodeOptions{BoxSize: 10, ErrorCorrection: "X", Style: "square"},
			wantErr: true,
		},
		{
			name:    "Box Size Too Large",
			opts:    EncodeOptions{BoxSize: 300, ErrorCorrection: "H", Style: "rounded"},
			wantErr: true,
		},
		{
			name:    "Version Too Large",
			opts:    EncodeOptions{Version: 41, BoxSize: 10, ErrorCorrection: "H", Style: "square"},
			wantErr: true,
		},
		{
			name:    "Negative Border",
			opts:    EncodeOptions{BoxSize: 10, Border: -1, ErrorCorrection: "H", Style: "square"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewEncoder(tt.opts)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewEncoder() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEncoder_ProducesPNG(t *testing.T) {
	tests := []struct {
		name    string
		opts    EncodeOptions
		content string
	}{
		{
			name:    "Square",
			opts:    EncodeOptions{Version: 3, BoxSize: 4, Border: 4, ErrorCorrection: "M", Style: StyleSquare},
			content: "https://example.com",
		},
		{
			name:    "Square Without Border",
			opts:    EncodeOptions{BoxSize: 2, Border: 0, ErrorCorrection: "L", Style: StyleSquare},
			content: "https://example.com",
		},
		{
			name:    "Square Content Outgrows Version",
			opts:    EncodeOptions{Version: 1, BoxSize: 2, Border: 4, ErrorCorrection: "H", Style: StyleSquare},
			content: "https://example.com/a/rather/long/path/that/cannot/fit/in/a/version/one/symbol",
		},
		{
			name:    "Rounded",
			opts:    EncodeOptions{Version: 3, BoxSize: 4, Border: 2, ErrorCorrection: "H", Style: StyleRounded},
			content: "https://example.com",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc, err := NewEncoder(tt.opts)
			if err != nil {
				t.Fatalf("NewEncoder() error = %v", err)
			}

			var buf bytes.Buffer
			if err := enc.Encode(&buf, tt.content); err != nil {
				t.Fatalf("Encode() error = %v", err)
			}

			img, err := png.Decode(&buf)
			if err != nil {
				t.Fatalf("Encode() did not produce a PNG: %v", err)
			}
			if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
				t.Errorf("Encode() produced an empty image")
			}
		})
	}
}

func TestSquareEncoder_BoxSizeScalesImage(t *testing.T) {
	width := func(box int) int {
		enc, err := NewEncoder(EncodeOptions{Version: 2, BoxSize: box, Border: 4, ErrorCorrection: "M", Style: StyleSquare})
		if err != nil {
			t.Fatalf("NewEncoder() error = %v", err)
		}
		var buf bytes.Buffer
		if err := enc.Encode(&buf, "hello"); err != nil {
			t.Fatalf("Encode() error = %v", err)
		}
		img, err := png.Decode(&buf)
		if err != nil {
			t.Fatalf("png.Decode() error = %v", err)
		}
		return img.Bounds().Dx()
	}

	small, large := width(2), width(6)
	if large != small*3 {
		t.Errorf("expected box size 6 to be 3x box size 2, got %d and %d", large, small)
	}
}

func TestRoundedEncoder_BorderIsMeasuredInModules(t *testing.T) {
	width := func(border int) int {
		enc, err := NewEncoder(EncodeOptions{BoxSize: 10, Border: border, ErrorCorrection: "M", Style: StyleRounded})
		if err != nil {
			t.Fatalf("NewEncoder() error = %v", err)
		}
		var buf bytes.Buffer
		if err := enc.Encode(&buf, "hi"); err != nil {
			t.Fatalf("Encode() error = %v", err)
		}
		img, err := png.Decode(&buf)
		if err != nil {
			t.Fatalf("png.Decode() error = %v", err)
		}
		return img.Bounds().Dx()
	}

	bare, framed := width(0), width(4)
	if framed-bare != 2*4*10 {
		t.Errorf("expected a 4 module quiet zone on each side (80px), got %dpx", framed-bare)
	}
	// "hi" fits a 21 module symbol
	if framed != (21+2*4)*10 {
		t.Errorf("expected rounded width %d, got %d", (21+2*4)*10, framed)
	}
}
