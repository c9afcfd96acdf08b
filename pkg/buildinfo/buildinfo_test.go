package buildinfo

import (
	"runtime"
	"runtime/debug"
	"testing"
)

func TestBinaryVersion(t *testing.T) {
	if BinaryVersion != "dev" {
		t.Errorf("Expected BinaryVersion to be 'dev', got '%s'", BinaryVersion)
	}
}

func TestModuleVersionIntegration(t *testing.T) {
	expected := ""
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		expected = info.Main.Version
	}

	if actual := ModuleVersion(); expected != actual {
		t.Errorf("ModuleVersion() = '%s', expected '%s'", actual, expected)
	}
}

func TestCurrent(t *testing.T) {
	old := Commit
	Commit = "abc123"
	defer func() { Commit = old }()

	info := Current()
	if info.Version != BinaryVersion {
		t.Errorf("Version = %q", info.Version)
	}
	if info.Commit != "abc123" {
		t.Errorf("ldflags commit should win, got %q", info.Commit)
	}
	if info.GoVersion != runtime.Version() {
		t.Errorf("GoVersion = %q", info.GoVersion)
	}
	if info.Platform != runtime.GOOS+"/"+runtime.GOARCH {
		t.Errorf("Platform = %q", info.Platform)
	}
}
