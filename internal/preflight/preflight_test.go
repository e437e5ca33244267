package preflight

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func lookupFor(available ...string) func(string) (string, error) {
	return func(name string) (string, error) {
		for _, candidate := range available {
			if candidate == name {
				return "/usr/bin/" + name, nil
			}
		}
		return "", fmt.Errorf("%s: not found", name)
	}
}

func writeOSRelease(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "os-release")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write os-release: %v", err)
	}
	return path
}

func TestCheckLinux(t *testing.T) {
	path := writeOSRelease(t, "NAME=\"Debian GNU/Linux\"\nID=debian\nVERSION_ID=\"12\"\n")
	plat, err := check("linux", path, lookupFor("apt-get", "git"))
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if plat.Distro != "debian" {
		t.Fatalf("distro = %q, want debian", plat.Distro)
	}
	if plat.PackageManager != "apt-get" {
		t.Fatalf("package manager = %q, want apt-get", plat.PackageManager)
	}
}

func TestCheckUnsupportedOS(t *testing.T) {
	_, err := check("windows", "", lookupFor("git"))
	var perr *PlatformError
	if !errors.As(err, &perr) {
		t.Fatalf("expected PlatformError, got %v", err)
	}
	if !strings.Contains(perr.Error(), "unsupported platform") {
		t.Fatalf("unexpected message: %v", perr)
	}
}

func TestCheckUndetectableDistro(t *testing.T) {
	_, err := check("linux", filepath.Join(t.TempDir(), "missing"), lookupFor("apt-get", "git"))
	var perr *PlatformError
	if !errors.As(err, &perr) {
		t.Fatalf("expected PlatformError, got %v", err)
	}
}

func TestCheckMissingPackageManager(t *testing.T) {
	path := writeOSRelease(t, "ID=arch\n")
	_, err := check("linux", path, lookupFor("git"))
	var perr *PlatformError
	if !errors.As(err, &perr) {
		t.Fatalf("expected PlatformError, got %v", err)
	}
	if !strings.Contains(perr.Error(), "package manager") {
		t.Fatalf("unexpected message: %v", perr)
	}
}

func TestCheckMissingGit(t *testing.T) {
	path := writeOSRelease(t, "ID=fedora\n")
	_, err := check("linux", path, lookupFor("dnf"))
	var perr *PlatformError
	if !errors.As(err, &perr) {
		t.Fatalf("expected PlatformError, got %v", err)
	}
	if !strings.Contains(perr.Error(), "git") {
		t.Fatalf("unexpected message: %v", perr)
	}
}

func TestParseOSReleaseID(t *testing.T) {
	content := `# comment
NAME="Ubuntu"
ID=ubuntu
ID_LIKE=debian
`
	if got := parseOSReleaseID(strings.NewReader(content)); got != "ubuntu" {
		t.Fatalf("parsed ID = %q, want ubuntu", got)
	}
	if got := parseOSReleaseID(strings.NewReader("NAME=thing\n")); got != "" {
		t.Fatalf("parsed ID = %q, want empty", got)
	}
}
