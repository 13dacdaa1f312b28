package convert

import (
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"bec/config"
	"bec/state"
)

func setupTestEnvForOutputPath(t *testing.T, noDirs, transliterate bool, template string) *state.LocalEnv {
	t.Helper()
	logger := zaptest.NewLogger(t, zaptest.WrapOptions(zap.AddCaller(), zap.AddCallerSkip(1)))
	cfg, err := config.LoadConfiguration("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	cfg.Document.FileNameTransliterate = transliterate
	cfg.Document.OutputNameTemplate = template

	return &state.LocalEnv{
		Log:    logger,
		Cfg:    cfg,
		NoDirs: noDirs,
	}
}

func TestBuildOutputPath_SimpleCase_NoDirs(t *testing.T) {
	env := setupTestEnvForOutputPath(t, true, false, "")

	result := buildOutputPath(filepath.Join("mail", "campaign", "welcome.htm"), "/output", env)
	expected := filepath.Join("/output", "welcome.html")

	if result != expected {
		t.Errorf("buildOutputPath() = %q, want %q", result, expected)
	}
}

func TestBuildOutputPath_SimpleCase_WithDirs(t *testing.T) {
	env := setupTestEnvForOutputPath(t, false, false, "")

	result := buildOutputPath(filepath.Join("mail", "campaign", "welcome.html"), "/output", env)
	expected := filepath.Join("/output", "mail", "campaign", "welcome.html")

	if result != expected {
		t.Errorf("buildOutputPath() = %q, want %q", result, expected)
	}
}

func TestBuildOutputPath_Transliterate(t *testing.T) {
	env := setupTestEnvForOutputPath(t, true, true, "")

	result := buildOutputPath(filepath.Join("mail", "Добро пожаловать.html"), "/output", env)
	expected := filepath.Join("/output", "dobro-pozhalovat.html")

	if result != expected {
		t.Errorf("buildOutputPath() = %q, want %q", result, expected)
	}
}

func TestBuildOutputPath_Template(t *testing.T) {
	env := setupTestEnvForOutputPath(t, true, false, "{{.SourceFile}}-email")

	result := buildOutputPath(filepath.Join("mail", "welcome.html"), "/output", env)
	expected := filepath.Join("/output", "welcome-email.html")

	if result != expected {
		t.Errorf("buildOutputPath() = %q, want %q", result, expected)
	}
}

func TestBuildOutputPath_TemplateWithSubdirs(t *testing.T) {
	env := setupTestEnvForOutputPath(t, true, false, "compiled/{{.SourceDir}}/{{.SourceFile}}")

	result := buildOutputPath(filepath.Join("campaign", "welcome.html"), "/output", env)
	expected := filepath.Join("/output", "compiled", "campaign", "welcome.html")

	if result != expected {
		t.Errorf("buildOutputPath() = %q, want %q", result, expected)
	}
}

func TestBuildOutputPath_BadTemplateFallsBack(t *testing.T) {
	tests := []struct {
		name     string
		template string
	}{
		{"unparsable", "{{.SourceFile"},
		{"unknown field", "{{.NoSuchField}}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestEnvForOutputPath(t, true, false, tt.template)

			result := buildOutputPath(filepath.Join("mail", "welcome.html"), "/output", env)
			expected := filepath.Join("/output", "welcome.html")

			if result != expected {
				t.Errorf("buildOutputPath() = %q, want %q", result, expected)
			}
		})
	}
}

func TestExpandOutputNameTemplate_Values(t *testing.T) {
	env := setupTestEnvForOutputPath(t, false, false, "{{.SourceDir}}|{{.SourceFile}}|{{.Context}}")

	got := expandOutputNameTemplate(filepath.Join("a", "b", "mail.html"), env)
	want := "a/b|mail|" + string(config.OutputNameTemplateFieldName)

	if filepath.ToSlash(got) != want {
		t.Errorf("expandOutputNameTemplate() = %q, want %q", got, want)
	}
}
