package api

import (
	"net/http"
	"os"
	"strings"
)

// imageFS serves stored images only. Directory listings and dot files
// (in-progress .qr-*.tmp writes among them) are reported as missing.
type imageFS struct {
	root http.FileSystem
}

func (fs imageFS) Open(name string) (http.File, error) {
	for _, part := range strings.Split(name, "/") {
		if strings.HasPrefix(part, ".") {
			return nil, os.ErrNotExist
		}
	}

	f, err := fs.root.Open(name)
	if err != nil {
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if info.IsDir() {
		f.Close()
		return nil, os.ErrNotExist
	}
	return f, nil
}
