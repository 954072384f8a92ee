// Package deps checks that the programs and files a transition relies on are
// installed before the daemon starts.
package deps

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"strings"

	"github.com/ray10k/raspberry-wifi-conf/internal/config"
)

// ErrMissing matches any *MissingError.
var ErrMissing = errors.New("missing dependencies")

// Hint is printed next to a dependency failure.
const Hint = "install them with: sudo apt install dnsmasq hostapd iw wireless-tools wpasupplicant net-tools"

// Requirements lists what must be present.
type Requirements struct {
	Binaries []string
	Files    []string
}

// ForConfig returns the requirements of a daemon running with cfg.
func ForConfig(cfg *config.Config) Requirements {
	req := Requirements{
		Binaries: []string{"dnsmasq", "hostapd", "iw", "wpa_cli", "ifconfig", "iwconfig", "systemctl"},
		Files:    []string{cfg.Paths.DNSMasq},
	}
	if cfg.Sudo() {
		req.Binaries = append(req.Binaries, "sudo")
	}
	return req
}

// MissingError lists every dependency that was not found.
type MissingError struct {
	Binaries []string
	Files    []string
}

func (e *MissingError) Error() string {
	var parts []string
	if len(e.Binaries) > 0 {
		parts = append(parts, "binaries not in PATH: "+strings.Join(e.Binaries, ", "))
	}
	if len(e.Files) > 0 {
		parts = append(parts, "files not found: "+strings.Join(e.Files, ", "))
	}
	return fmt.Sprintf("%v: %s", ErrMissing, strings.Join(parts, "; "))
}

// Is reports whether target is ErrMissing.
func (e *MissingError) Is(target error) bool { return target == ErrMissing }

// Checker looks dependencies up. The zero value uses exec.LookPath and os.Stat.
type Checker struct {
	LookPath func(file string) (string, error)
	Stat     func(name string) (fs.FileInfo, error)
}

// Check returns a *MissingError naming everything in req that is absent.
func (c Checker) Check(req Requirements) error {
	lookPath := c.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	stat := c.Stat
	if stat == nil {
		stat = os.Stat
	}

	missing := &MissingError{}
	for _, bin := range req.Binaries {
		if _, err := lookPath(bin); err != nil {
			missing.Binaries = append(missing.Binaries, bin)
		}
	}
	for _, f := range req.Files {
		if _, err := stat(f); err != nil {
			missing.Files = append(missing.Files, f)
		}
	}

	if len(missing.Binaries) == 0 && len(missing.Files) == 0 {
		return nil
	}
	return missing
}

// Check runs the default Checker.
func Check(req Requirements) error {
	return Checker{}.Check(req)
}
