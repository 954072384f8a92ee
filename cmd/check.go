package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/ray10k/raspberry-wifi-conf/internal/brand"
	"github.com/ray10k/raspberry-wifi-conf/internal/config"
	"github.com/ray10k/raspberry-wifi-conf/internal/i18n"
	"github.com/ray10k/raspberry-wifi-conf/internal/network"
	"github.com/ray10k/raspberry-wifi-conf/internal/wifi"
)

// RunCheck validates the configuration file. With verbose it also prints
// the commands each transition would run, using a dry-run executor and
// scratch copies of every file it would write.
func RunCheck(configFile string, verbose bool, w io.Writer) error {
	if len(configFile) == 0 {
		return fmt.Errorf("%w: %s check [-v] -config <file>", ErrUsage, brand.BinaryName)
	}

	cfg, err := config.LoadFile(configFile)
	if err != nil {
		return fmt.Errorf("configuration invalid: %w", err)
	}

	fmt.Fprintln(w, Printer.Sprintf(i18n.MsgConfigValid, configFile))
	printSummary(w, cfg)

	if !verbose {
		return nil
	}
	return printPlan(w, cfg)
}

func printSummary(w io.Writer, cfg *config.Config) {
	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	ap := cfg.AccessPoint
	security := "open"
	if ap.Passphrase != "" {
		security = "wpa2"
	}
	fmt.Fprintf(tw, "Interface:\t%s\n", cfg.WifiInterface)
	fmt.Fprintf(tw, "Access point:\t%s (%s, channel %d)\n", ap.SSID, security, ap.Channel)
	fmt.Fprintf(tw, "AP address:\t%s/%s\n", ap.IPAddr, ap.Netmask)
	fmt.Fprintf(tw, "DHCP range:\t%s - %s\n", ap.SubnetRangeStart, ap.SubnetRangeEnd)
	fmt.Fprintf(tw, "Credentials:\t%s\n", cfg.Supplicant.Path)
	fmt.Fprintf(tw, "On failure:\t%s\n", cfg.Services.OnFailure)
	fmt.Fprintf(tw, "Listen:\t%s\n", cfg.Server.Listen)
	tw.Flush()
}

// printPlan runs both transitions against a dry-run executor.
func printPlan(w io.Writer, cfg *config.Config) error {
	dir, err := os.MkdirTemp("", brand.LowerName+"-dryrun")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)

	plan := *cfg
	paths := *cfg.Paths
	paths.DHCPCD = filepath.Join(dir, "dhcpcd.conf")
	paths.DNSMasq = filepath.Join(dir, "dnsmasq.conf")
	paths.Hostapd = filepath.Join(dir, "hostapd.conf")
	plan.Paths = &paths
	sup := *cfg.Supplicant
	sup.Path = filepath.Join(dir, "wpa_supplicant.conf")
	plan.Supplicant = &sup

	exec := network.NewDryRunExecutor()
	rt, err := NewRuntime(&plan, RuntimeOptions{
		Executor:  exec,
		Netlinker: &network.DryRunNetlinker{},
		Logger:    quietLogger(),
		NoAudit:   true,
	})
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx := context.Background()
	transitions := []struct {
		title string
		run   func() (*wifi.Report, error)
	}{
		{"access point", func() (*wifi.Report, error) { return rt.Manager.EnableAccessPoint(ctx) }},
		{"station", func() (*wifi.Report, error) { return rt.Manager.EnableStation(ctx, wifi.ConnectionRequest{}) }},
	}

	fmt.Fprintln(w, "\n[DRY RUN] Generated Operations:")
	for _, t := range transitions {
		exec.Reset()
		fmt.Fprintf(w, "\n--- %s ---\n", t.title)
		if _, err := t.run(); err != nil {
			return fmt.Errorf("%s plan: %w", t.title, err)
		}
		for _, c := range exec.Commands {
			fmt.Fprintln(w, c)
		}
	}
	return nil
}
