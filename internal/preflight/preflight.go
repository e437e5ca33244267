// Package preflight verifies the host can run installation modules at all:
// a supported platform, a known package manager, and git on PATH. Everything
// here is a one-shot check performed before any catalog or selection work.
package preflight

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// Platform describes the detected host environment.
type Platform struct {
	OS             string // runtime.GOOS
	Distro         string // os-release ID on linux, "macos" on darwin
	PackageManager string
}

// PlatformError indicates the host is unsupported or undetectable. Fatal:
// the orchestrator aborts before synchronizing or presenting anything.
type PlatformError struct {
	Reason string
}

func (e *PlatformError) Error() string {
	return "preflight: " + e.Reason
}

// Package managers probed on linux hosts, in preference order.
var linuxPackageManagers = []string{"apt-get", "dnf", "yum", "pacman", "zypper", "apk"}

// Check detects the host platform and required tooling.
func Check() (Platform, error) {
	return check(runtime.GOOS, "/etc/os-release", exec.LookPath)
}

// check is the testable core of Check with the environment injected.
func check(goos, osReleasePath string, look func(string) (string, error)) (Platform, error) {
	plat := Platform{OS: goos}

	switch goos {
	case "linux":
		plat.Distro = detectDistro(osReleasePath)
		if plat.Distro == "" {
			return Platform{}, &PlatformError{Reason: "could not detect the linux distribution (missing or unreadable os-release)"}
		}
		for _, pm := range linuxPackageManagers {
			if _, err := look(pm); err == nil {
				plat.PackageManager = pm
				break
			}
		}
		if plat.PackageManager == "" {
			return Platform{}, &PlatformError{Reason: fmt.Sprintf("no supported package manager found (looked for %s)", strings.Join(linuxPackageManagers, ", "))}
		}
	case "darwin":
		plat.Distro = "macos"
		if _, err := look("brew"); err != nil {
			return Platform{}, &PlatformError{Reason: "homebrew is required on macOS but was not found on PATH"}
		}
		plat.PackageManager = "brew"
	default:
		return Platform{}, &PlatformError{Reason: fmt.Sprintf("unsupported platform %s", goos)}
	}

	if _, err := look("git"); err != nil {
		return Platform{}, &PlatformError{Reason: "git is required but was not found on PATH"}
	}
	return plat, nil
}

func detectDistro(osReleasePath string) string {
	file, err := os.Open(osReleasePath)
	if err != nil {
		return ""
	}
	defer file.Close()
	return parseOSReleaseID(file)
}

// parseOSReleaseID extracts the ID field from os-release style content.
func parseOSReleaseID(r io.Reader) string {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, found := strings.Cut(line, "=")
		if !found || strings.TrimSpace(key) != "ID" {
			continue
		}
		return strings.Trim(strings.TrimSpace(value), `"'`)
	}
	return ""
}
