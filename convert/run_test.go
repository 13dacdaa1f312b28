package convert

import (
	"archive/zip"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"bec/config"
	"bec/state"
)

const sampleDocument = `<html>
<head><title>Greetings</title></head>
<body class="bg-light">
  <div class="container">
    <h1 class="text-center">Hello</h1>
    <a class="btn btn-primary" href="https://example.com">Click me</a>
  </div>
</body>
</html>`

// setupTestEnv creates a test environment with proper context and logger
func setupTestEnv(t *testing.T) (context.Context, *state.LocalEnv) {
	t.Helper()
	logger := zaptest.NewLogger(t, zaptest.WrapOptions(zap.AddCaller(), zap.AddCallerSkip(1)))
	cfg, err := config.LoadConfiguration("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	ctx := state.ContextWithEnv(context.Background())
	env := state.EnvFromContext(ctx)
	env.Log = logger
	env.Cfg = cfg
	return ctx, env
}

func writeSample(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(sampleDocument), 0644); err != nil {
		t.Fatalf("write sample: %v", err)
	}
	return path
}

func assertCompiled(t *testing.T, path string) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read result %s: %v", path, err)
	}
	if !strings.HasPrefix(string(data), "<!DOCTYPE html PUBLIC") {
		t.Errorf("result %s does not start with doctype: %.60q", path, string(data))
	}
}

func TestProcess_NonExistentPath(t *testing.T) {
	ctx, env := setupTestEnv(t)

	err := process(ctx, filepath.Join(t.TempDir(), "nope", "file.html"), t.TempDir(), env.Log)
	if err == nil {
		t.Fatal("Expected error for non-existent path, got nil")
	}
	if !strings.Contains(err.Error(), "input source was not found") {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestProcess_CancelledContext(t *testing.T) {
	ctx, env := setupTestEnv(t)
	cancelCtx, cancel := context.WithCancel(ctx)
	cancel()

	tmpDir := t.TempDir()
	if err := process(cancelCtx, tmpDir, tmpDir, env.Log); err != context.Canceled {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestProcess_SingleFile(t *testing.T) {
	ctx, env := setupTestEnv(t)

	srcDir, dstDir := t.TempDir(), t.TempDir()
	path := writeSample(t, srcDir, "welcome.html")

	if err := process(ctx, path, dstDir, env.Log); err != nil {
		t.Fatalf("process() error = %v", err)
	}
	assertCompiled(t, filepath.Join(dstDir, "welcome.html"))
}

func TestProcess_NotHTML(t *testing.T) {
	ctx, env := setupTestEnv(t)

	srcDir := t.TempDir()
	path := filepath.Join(srcDir, "notes.txt")
	if err := os.WriteFile(path, []byte("plain text"), 0644); err != nil {
		t.Fatalf("write sample: %v", err)
	}

	err := process(ctx, path, t.TempDir(), env.Log)
	if err == nil {
		t.Fatal("Expected error for non-html input, got nil")
	}
	if !strings.Contains(err.Error(), "not recognized as HTML document") {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestProcess_Directory(t *testing.T) {
	ctx, env := setupTestEnv(t)

	srcDir, dstDir := t.TempDir(), t.TempDir()
	writeSample(t, srcDir, "mail2.html")
	writeSample(t, srcDir, "mail10.htm")
	if err := os.WriteFile(filepath.Join(srcDir, "notes.txt"), []byte("skip me"), 0644); err != nil {
		t.Fatalf("write sample: %v", err)
	}

	if err := process(ctx, srcDir, dstDir, env.Log); err != nil {
		t.Fatalf("process() error = %v", err)
	}

	assertCompiled(t, filepath.Join(dstDir, "mail2.html"))
	assertCompiled(t, filepath.Join(dstDir, "mail10.html"))
	if _, err := os.Stat(filepath.Join(dstDir, "notes.html")); !os.IsNotExist(err) {
		t.Error("Unexpected output for non-html input")
	}
}

func makeArchive(t *testing.T, dir string, names ...string) string {
	t.Helper()
	path := filepath.Join(dir, "templates.zip")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create archive: %v", err)
	}
	w := zip.NewWriter(f)
	for _, name := range names {
		fw, err := w.Create(name)
		if err != nil {
			t.Fatalf("create archive entry: %v", err)
		}
		if _, err := fw.Write([]byte(sampleDocument)); err != nil {
			t.Fatalf("write archive entry: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close archive: %v", err)
	}
	f.Close()
	return path
}

func TestProcess_Archive(t *testing.T) {
	ctx, env := setupTestEnv(t)

	dstDir := t.TempDir()
	path := makeArchive(t, t.TempDir(), "inner/a.html", "b.html", "readme.txt")

	if err := process(ctx, path, dstDir, env.Log); err != nil {
		t.Fatalf("process() error = %v", err)
	}

	assertCompiled(t, filepath.Join(dstDir, "inner", "a.html"))
	assertCompiled(t, filepath.Join(dstDir, "b.html"))
}

func TestProcess_PathInsideArchive(t *testing.T) {
	ctx, env := setupTestEnv(t)

	dstDir := t.TempDir()
	path := makeArchive(t, t.TempDir(), "inner/a.html", "b.html")

	if err := process(ctx, filepath.Join(path, "inner"), dstDir, env.Log); err != nil {
		t.Fatalf("process() error = %v", err)
	}

	assertCompiled(t, filepath.Join(dstDir, "inner", "a.html"))
	if _, err := os.Stat(filepath.Join(dstDir, "b.html")); !os.IsNotExist(err) {
		t.Error("Entry outside requested archive path was processed")
	}
}

func TestProcessDocument_Overwrite(t *testing.T) {
	ctx, env := setupTestEnv(t)

	dstDir := t.TempDir()

	if err := processDocument(ctx, strings.NewReader(sampleDocument), "welcome.html", dstDir, env.Log); err != nil {
		t.Fatalf("processDocument() error = %v", err)
	}

	err := processDocument(ctx, strings.NewReader(sampleDocument), "welcome.html", dstDir, env.Log)
	if err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("Expected already exists error, got %v", err)
	}

	env.Overwrite = true
	if err := processDocument(ctx, strings.NewReader(sampleDocument), "welcome.html", dstDir, env.Log); err != nil {
		t.Fatalf("processDocument() with overwrite error = %v", err)
	}
	assertCompiled(t, filepath.Join(dstDir, "welcome.html"))
}

func TestProcessDocument_Report(t *testing.T) {
	ctx, env := setupTestEnv(t)

	reportPath := filepath.Join(t.TempDir(), "report.zip")
	env.Cfg.Reporting.Destination = reportPath

	var err error
	if env.Rpt, err = env.Cfg.Reporting.Prepare(); err != nil {
		t.Fatalf("prepare reporter: %v", err)
	}

	if err := processDocument(ctx, strings.NewReader(sampleDocument), "welcome.html", t.TempDir(), env.Log); err != nil {
		t.Fatalf("processDocument() error = %v", err)
	}
	if err := env.Rpt.Close(); err != nil {
		t.Fatalf("close reporter: %v", err)
	}

	zr, err := zip.OpenReader(reportPath)
	if err != nil {
		t.Fatalf("open report: %v", err)
	}
	defer zr.Close()

	var names bytes.Buffer
	for _, f := range zr.File {
		names.WriteString(f.Name)
		names.WriteByte('\n')
	}
	for _, want := range []string{
		"sources/welcome.html",
		"stages/welcome.html/structure.html",
		"stages/welcome.html/inline.html",
		"stages/welcome.html/configure.html",
		"results/welcome.html",
	} {
		if !strings.Contains(names.String(), want) {
			t.Errorf("report is missing %q, has:\n%s", want, names.String())
		}
	}
}
