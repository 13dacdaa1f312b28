package convert

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"
	"golang.org/x/net/html/charset"
)

// isArchiveFile sniffs file content to see if it is a zip archive. Extension
// is not trusted, mail templates get shipped under all kinds of names.
func isArchiveFile(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	head := make([]byte, 262)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return false, err
	}
	return filetype.Is(head[:n], "zip"), nil
}

// isHTMLFile recognizes input documents by extension.
func isHTMLFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return true
	}
	return false
}

// documentReader wraps the source with a decoder translating whatever
// encoding the document declares (BOM, meta tag) to UTF-8.
func documentReader(r io.Reader) (io.Reader, error) {
	cr, err := charset.NewReader(r, "text/html")
	if err != nil {
		return nil, fmt.Errorf("unable to detect document encoding: %w", err)
	}
	return cr, nil
}
