package convert

import (
	"archive/zip"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestIsArchiveFile(t *testing.T) {
	tmpDir := t.TempDir()

	t.Run("plain text", func(t *testing.T) {
		filePath := filepath.Join(tmpDir, "test.txt")
		if err := os.WriteFile(filePath, []byte("not a zip"), 0644); err != nil {
			t.Fatalf("Failed to create test file: %v", err)
		}
		got, err := isArchiveFile(filePath)
		if err != nil {
			t.Errorf("isArchiveFile() error = %v", err)
		}
		if got {
			t.Errorf("isArchiveFile() = true, want false")
		}
	})

	t.Run("zip extension but invalid content", func(t *testing.T) {
		filePath := filepath.Join(tmpDir, "fake.zip")
		if err := os.WriteFile(filePath, []byte("not a real zip file"), 0644); err != nil {
			t.Fatalf("Failed to create test file: %v", err)
		}
		got, err := isArchiveFile(filePath)
		if err != nil {
			t.Errorf("isArchiveFile() error = %v", err)
		}
		if got {
			t.Errorf("isArchiveFile() = true, want false")
		}
	})

	t.Run("real zip with html extension", func(t *testing.T) {
		// content matters, name does not
		filePath := filepath.Join(tmpDir, "archive.html")
		zipFile, err := os.Create(filePath)
		if err != nil {
			t.Fatalf("Failed to create zip file: %v", err)
		}
		w := zip.NewWriter(zipFile)
		f, err := w.Create("mail.html")
		if err != nil {
			t.Fatalf("Failed to create file in zip: %v", err)
		}
		f.Write([]byte("<div>hello</div>"))
		w.Close()
		zipFile.Close()

		got, err := isArchiveFile(filePath)
		if err != nil {
			t.Errorf("isArchiveFile() error = %v", err)
		}
		if !got {
			t.Errorf("isArchiveFile() = false, want true")
		}
	})

	t.Run("empty file", func(t *testing.T) {
		filePath := filepath.Join(tmpDir, "empty.zip")
		if err := os.WriteFile(filePath, nil, 0644); err != nil {
			t.Fatalf("Failed to create test file: %v", err)
		}
		got, err := isArchiveFile(filePath)
		if err != nil {
			t.Errorf("isArchiveFile() error = %v", err)
		}
		if got {
			t.Errorf("isArchiveFile() = true, want false")
		}
	})
}

func TestIsArchiveFile_NonExistent(t *testing.T) {
	if _, err := isArchiveFile(filepath.Join(t.TempDir(), "nonexistent.zip")); err == nil {
		t.Error("Expected error for non-existent file, got nil")
	}
}

func TestIsHTMLFile(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"mail.html", true},
		{"mail.htm", true},
		{"MAIL.HTML", true},
		{"dir/mail.Htm", true},
		{"mail.txt", false},
		{"mail.html.bak", false},
		{"html", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := isHTMLFile(tt.path); got != tt.want {
			t.Errorf("isHTMLFile(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestDocumentReader(t *testing.T) {
	t.Run("utf-8", func(t *testing.T) {
		got := decodeDocument(t, []byte("<div>привет</div>"))
		if got != "<div>привет</div>" {
			t.Errorf("decoded = %q", got)
		}
	})

	t.Run("utf-8 with BOM", func(t *testing.T) {
		src := append([]byte{0xEF, 0xBB, 0xBF}, []byte("<div>hello</div>")...)
		got := decodeDocument(t, src)
		if got != "<div>hello</div>" {
			t.Errorf("decoded = %q", got)
		}
	})

	t.Run("utf-16le with BOM", func(t *testing.T) {
		var src bytes.Buffer
		src.Write([]byte{0xFF, 0xFE})
		for _, r := range "<p>hi</p>" {
			src.WriteByte(byte(r))
			src.WriteByte(0)
		}
		got := decodeDocument(t, src.Bytes())
		if got != "<p>hi</p>" {
			t.Errorf("decoded = %q", got)
		}
	})

	t.Run("declared legacy charset", func(t *testing.T) {
		src := []byte("<html><head><meta charset=\"iso-8859-1\"></head><body>caf\xe9</body></html>")
		got := decodeDocument(t, src)
		if !strings.Contains(got, "café") {
			t.Errorf("decoded = %q, want café inside", got)
		}
	})
}

func decodeDocument(t *testing.T, data []byte) string {
	t.Helper()
	r, err := documentReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("documentReader() error = %v", err)
	}
	decoded, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read decoded document: %v", err)
	}
	return string(decoded)
}
