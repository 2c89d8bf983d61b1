package history

// Entry records one generated QR image.
type Entry struct {
	Filename  string `json:"filename"`
	Link      string `json:"link"`
	Path      string `json:"path"`      // public path, e.g. /static/qrcodes/a.png
	Timestamp int64  `json:"timestamp"` // unix seconds
}
