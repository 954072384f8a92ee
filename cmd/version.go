package cmd

import (
	"fmt"
	"io"
	"runtime"

	"github.com/ray10k/raspberry-wifi-conf/internal/brand"
	"github.com/ray10k/raspberry-wifi-conf/internal/config"
)

// RunVersion prints build information.
func RunVersion(w io.Writer) {
	fmt.Fprintf(w, "%s %s (commit %s, built %s, %s/%s)\n",
		brand.Name, brand.Version, brand.GitCommit, brand.BuildTime, runtime.GOOS, runtime.GOARCH)
	fmt.Fprintln(w, brand.Repository)
}

// RunShowConfig prints the effective configuration, defaults and
// environment overrides included, as HCL.
func RunShowConfig(configFile string, w io.Writer) error {
	cfg, err := config.LoadFileOrDefault(configFile)
	if err != nil {
		return fmt.Errorf("configuration invalid: %w", err)
	}
	_, err = w.Write(config.GenerateHCL(cfg))
	return err
}
