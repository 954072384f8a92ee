package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/ray10k/raspberry-wifi-conf/internal/audit"
	"github.com/ray10k/raspberry-wifi-conf/internal/i18n"
	"github.com/ray10k/raspberry-wifi-conf/internal/network"
	"github.com/ray10k/raspberry-wifi-conf/internal/wifi"
)

// ErrUsage is returned for a malformed command line.
var ErrUsage = errors.New("invalid usage")

// RunStatus prints the mode and probe results of the managed interface.
func RunStatus(ctx context.Context, rt *Runtime, w io.Writer, asJSON bool) error {
	mode, status, err := rt.Manager.Mode(ctx)
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Mode string `json:"mode"`
			network.InterfaceStatus
		}{mode.String(), status})
	}

	fmt.Fprintln(w, Printer.Sprintf(i18n.MsgCurrentMode, mode))
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Interface:\t%s\n", rt.Config.WifiInterface)
	fmt.Fprintf(tw, "HW address:\t%s\n", status.HWAddr)
	fmt.Fprintf(tw, "IP address:\t%s\n", status.InetAddr)
	fmt.Fprintf(tw, "Access point:\t%s\n", status.APAddr)
	fmt.Fprintf(tw, "SSID:\t%s\n", status.APSSID)
	return tw.Flush()
}

// RunAccessPoint switches to access point mode.
func RunAccessPoint(ctx context.Context, rt *Runtime, w io.Writer) error {
	report, err := rt.Manager.EnableAccessPoint(ctx)
	printReport(w, report)
	return err
}

// RunConnect switches to station mode, saving req's network first. When the
// switch fails and fallback is set, the access point is brought back.
func RunConnect(ctx context.Context, rt *Runtime, w io.Writer, req wifi.ConnectionRequest, fallback bool) error {
	report, err := rt.Manager.EnableStation(ctx, req)
	printReport(w, report)
	if err == nil || !fallback || errors.Is(err, wifi.ErrValidation) {
		return err
	}

	rt.Logger.Warn("station mode failed, restoring access point", "error", err)
	apReport, apErr := rt.Manager.EnableAccessPoint(context.WithoutCancel(ctx))
	printReport(w, apReport)
	if apErr != nil {
		return fmt.Errorf("%s: %w", Printer.Sprintf(i18n.MsgFallbackFailed), errors.Join(err, apErr))
	}
	return fmt.Errorf("%s: %w", Printer.Sprintf(i18n.MsgStationFallback), err)
}

// RunDisable takes the managed interface down.
func RunDisable(ctx context.Context, rt *Runtime, w io.Writer) error {
	report, err := rt.Manager.Shutdown(ctx, rt.Config.WifiInterface)
	printReport(w, report)
	return err
}

// RunReboot cycles the managed interface.
func RunReboot(ctx context.Context, rt *Runtime, w io.Writer, assignStatic bool) error {
	report, err := rt.Manager.Reboot(ctx, rt.Config.WifiInterface, assignStatic)
	printReport(w, report)
	return err
}

// RunNetworks manages saved networks: list, forget, or reorder <ssid>...
func RunNetworks(ctx context.Context, rt *Runtime, w io.Writer, args []string) error {
	if len(args) == 0 {
		args = []string{"list"}
	}

	switch args[0] {
	case "list":
		ssids, err := rt.Manager.ListSaved(ctx)
		if err != nil {
			return err
		}
		printNetworks(w, ssids)
		return nil

	case "forget":
		return rt.Manager.ForgetSaved(ctx)

	case "reorder":
		if len(args) < 2 {
			return fmt.Errorf("%w: networks reorder <ssid>...", ErrUsage)
		}
		ssids, err := rt.Manager.ReorderSaved(ctx, args[1:])
		if err != nil {
			return err
		}
		printNetworks(w, ssids)
		return nil
	}
	return fmt.Errorf("%w: unknown networks command %q", ErrUsage, args[0])
}

func printNetworks(w io.Writer, ssids []string) {
	if len(ssids) == 0 {
		fmt.Fprintln(w, Printer.Sprintf(i18n.MsgNoNetworks))
		return
	}
	for i, ssid := range ssids {
		fmt.Fprintf(w, "%2d  %s\n", i+1, ssid)
	}
}

// RunDiff prints what switching to mode ("ap" or "station") would change in
// the rendered config files. It returns true when any file differs.
func RunDiff(ctx context.Context, rt *Runtime, w io.Writer, mode string) (bool, error) {
	m, err := network.ParseMode(mode)
	if err != nil || m == network.ModeDisabled {
		return false, fmt.Errorf("%w: diff ap|station", ErrUsage)
	}

	diffs, err := rt.Manager.Diff(ctx, m)
	if err != nil {
		return false, err
	}
	changed := false
	for _, d := range diffs {
		if d.Diff == "" {
			fmt.Fprintln(w, Printer.Sprintf(i18n.MsgUpToDate, d.Path))
			continue
		}
		changed = true
		fmt.Fprint(w, d.Diff)
	}
	return changed, nil
}

func printReport(w io.Writer, report *wifi.Report) {
	if report == nil {
		return
	}
	fmt.Fprintf(w, "%s: %s (%s)\n", report.Operation, report.Outcome, report.Duration.Round(time.Millisecond))
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, s := range report.Steps {
		line := "  " + s.Name + "\t" + s.Outcome
		if s.Outcome != audit.OutcomeSuccess && s.Error != "" {
			line += "\t" + strings.TrimSpace(s.Error)
		}
		fmt.Fprintln(tw, line)
	}
	tw.Flush()
	if report.Error != "" {
		fmt.Fprintf(w, "error: %s\n", report.Error)
	}
}
