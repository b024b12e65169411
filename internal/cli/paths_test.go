package cli

import (
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/graphsink/graphsink/pkg/errors"
)

func TestValidatePathsEmpty(t *testing.T) {
	err := validatePaths(nil)
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("validatePaths(nil) code = %v, want %v", errors.GetCode(err), errors.ErrCodeInvalidInput)
	}
}

func TestValidatePathsMissing(t *testing.T) {
	err := validatePaths([]string{filepath.Join(t.TempDir(), "missing")})
	if !errors.Is(err, errors.ErrCodeInvalidPath) {
		t.Errorf("code = %v, want %v", errors.GetCode(err), errors.ErrCodeInvalidPath)
	}
}

func TestValidatePathsCommonRoot(t *testing.T) {
	dir := t.TempDir()
	sub1 := filepath.Join(dir, "a")
	sub2 := filepath.Join(dir, "b")
	for _, d := range []string{sub1, sub2} {
		if err := os.MkdirAll(d, 0755); err != nil {
			t.Fatal(err)
		}
	}
	if err := validatePaths([]string{sub1, sub2}); err != nil {
		t.Errorf("validatePaths() error = %v for siblings under one root", err)
	}
}

func TestValidatePathsHiddenComponent(t *testing.T) {
	dir := t.TempDir()
	hidden := filepath.Join(dir, ".secrets")
	if err := os.MkdirAll(hidden, 0755); err != nil {
		t.Fatal(err)
	}
	err := validatePaths([]string{hidden})
	if !errors.Is(err, errors.ErrCodeInvalidPath) {
		t.Errorf("code = %v, want %v", errors.GetCode(err), errors.ErrCodeInvalidPath)
	}
}

func TestHiddenComponent(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/home/dev/project", ""},
		{"/home/dev/.config/app", ".config"},
		{"/home/dev/project/file.go", ""},
	}
	for _, tt := range tests {
		if got := hiddenComponent(tt.path); got != tt.want {
			t.Errorf("hiddenComponent(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestLoadIncludes(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "paths.txt")
	content := "# project sources\nsrc/app\n\n/abs/path\n  relative/tool  \n"
	if err := os.WriteFile(file, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := loadIncludes(file)
	if err != nil {
		t.Fatalf("loadIncludes() error = %v", err)
	}
	want := []string{
		filepath.Join(dir, "src/app"),
		"/abs/path",
		filepath.Join(dir, "relative/tool"),
	}
	if !slices.Equal(got, want) {
		t.Errorf("loadIncludes() = %v, want %v", got, want)
	}
}

func TestLoadIncludesMissingFile(t *testing.T) {
	_, err := loadIncludes(filepath.Join(t.TempDir(), "absent.txt"))
	if !errors.Is(err, errors.ErrCodeInvalidPath) {
		t.Errorf("code = %v, want %v", errors.GetCode(err), errors.ErrCodeInvalidPath)
	}
}
