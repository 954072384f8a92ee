// Package templates renders the dhcpcd, dnsmasq and hostapd configuration
// files written during mode transitions.
//
// Templates use {{ key }} placeholders. The built-in set is embedded in the
// binary; an override directory can replace it file by file.
package templates

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/ray10k/raspberry-wifi-conf/internal/atomicfile"
)

//go:embed assets/*.template
var assets embed.FS

// ErrConfigIO wraps every failure to read, render or write a config file.
var ErrConfigIO = errors.New("config file i/o failed")

// Template names.
const (
	DHCPCDAccessPoint  = "dhcpcd.ap.template"
	DHCPCDStation      = "dhcpcd.station.template"
	DNSMasqAccessPoint = "dnsmasq.ap.template"
	DNSMasqStation     = "dnsmasq.station.template"
	HostapdAccessPoint = "hostapd.ap.template"
	HostapdStation     = "hostapd.station.template"
)

var placeholder = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_]+)\s*\}\}`)

// Renderer renders templates from a file system.
type Renderer struct {
	fsys     fs.FS
	fallback fs.FS
}

// New returns a renderer over the embedded templates. When overrideDir is
// set, files found there take precedence over the embedded ones.
func New(overrideDir string) *Renderer {
	builtin, err := fs.Sub(assets, "assets")
	if err != nil {
		panic("templates: embedded assets missing: " + err.Error())
	}
	if overrideDir == "" {
		return &Renderer{fsys: builtin}
	}
	return &Renderer{fsys: os.DirFS(overrideDir), fallback: builtin}
}

// NewFS returns a renderer reading only from fsys.
func NewFS(fsys fs.FS) *Renderer {
	return &Renderer{fsys: fsys}
}

func (r *Renderer) read(name string) ([]byte, error) {
	data, err := fs.ReadFile(r.fsys, name)
	if err != nil && r.fallback != nil && errors.Is(err, fs.ErrNotExist) {
		data, err = fs.ReadFile(r.fallback, name)
	}
	return data, err
}

// Render substitutes every placeholder in the named template. A placeholder
// without a value in data is an error.
func (r *Renderer) Render(name string, data map[string]string) (string, error) {
	raw, err := r.read(name)
	if err != nil {
		return "", fmt.Errorf("%w: read template %s: %v", ErrConfigIO, name, err)
	}

	missing := map[string]struct{}{}
	out := placeholder.ReplaceAllStringFunc(string(raw), func(m string) string {
		key := placeholder.FindStringSubmatch(m)[1]
		v, ok := data[key]
		if !ok {
			missing[key] = struct{}{}
			return m
		}
		return v
	})
	if len(missing) > 0 {
		keys := make([]string, 0, len(missing))
		for k := range missing {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return "", fmt.Errorf("%w: template %s: missing values for %s", ErrConfigIO, name, strings.Join(keys, ", "))
	}
	return out, nil
}

// WriteFile renders name and atomically replaces dest with the result.
func (r *Renderer) WriteFile(name, dest string, data map[string]string) error {
	out, err := r.Render(name, data)
	if err != nil {
		return err
	}
	if err := atomicfile.Write(dest, []byte(out), 0644); err != nil {
		return fmt.Errorf("%w: %v", ErrConfigIO, err)
	}
	return nil
}

// Diff returns a unified diff from the current contents of dest to the
// rendered template. An empty string means dest is already up to date.
// A missing dest diffs against an empty file.
func (r *Renderer) Diff(name, dest string, data map[string]string) (string, error) {
	rendered, err := r.Render(name, data)
	if err != nil {
		return "", err
	}

	current, err := os.ReadFile(dest)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: read %s: %v", ErrConfigIO, dest, err)
	}
	if string(current) == rendered {
		return "", nil
	}

	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(current)),
		B:        difflib.SplitLines(rendered),
		FromFile: dest,
		ToFile:   name,
		Context:  3,
	}
	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return "", fmt.Errorf("%w: diff %s: %v", ErrConfigIO, dest, err)
	}
	return text, nil
}
