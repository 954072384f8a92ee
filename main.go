package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ray10k/raspberry-wifi-conf/cmd"
	"github.com/ray10k/raspberry-wifi-conf/internal/brand"
	"github.com/ray10k/raspberry-wifi-conf/internal/i18n"
	"github.com/ray10k/raspberry-wifi-conf/internal/wifi"
)

var printer = cmd.Printer

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1], os.Args[2:])
	stop()
	os.Exit(code)
}

// newFlagSet returns a flag set with the shared -config/-c option.
func newFlagSet(name string) (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	configFile := fs.String("config", brand.DefaultConfigPath(), "Configuration file")
	fs.StringVar(configFile, "c", brand.DefaultConfigPath(), "Configuration file (short)")
	return fs, configFile
}

// withRuntime opens the configured runtime for one-shot commands.
func withRuntime(configFile string, fn func(rt *cmd.Runtime) error) error {
	rt, err := cmd.Open(configFile, os.Stderr)
	if err != nil {
		return err
	}
	defer rt.Close()
	return fn(rt)
}

func run(ctx context.Context, name string, args []string) int {
	var err error

	switch name {
	case "serve":
		fs, configFile := newFlagSet("serve")
		fs.Parse(args)
		err = cmd.RunServe(ctx, *configFile)

	case "check":
		fs, configFile := newFlagSet("check")
		verbose := fs.Bool("verbose", false, "Print the dry-run command plan")
		fs.BoolVar(verbose, "v", false, "Print the dry-run command plan (short)")
		fs.Parse(args)
		if fs.NArg() > 0 {
			*configFile = fs.Arg(0)
		}
		err = cmd.RunCheck(*configFile, *verbose, os.Stdout)

	case "config":
		fs, configFile := newFlagSet("config")
		fs.Parse(args)
		err = cmd.RunShowConfig(*configFile, os.Stdout)

	case "status":
		fs, configFile := newFlagSet("status")
		asJSON := fs.Bool("json", false, "Print JSON")
		fs.Parse(args)
		err = withRuntime(*configFile, func(rt *cmd.Runtime) error {
			return cmd.RunStatus(ctx, rt, os.Stdout, *asJSON)
		})

	case "ap":
		fs, configFile := newFlagSet("ap")
		fs.Parse(args)
		err = withRuntime(*configFile, func(rt *cmd.Runtime) error {
			return cmd.RunAccessPoint(ctx, rt, os.Stdout)
		})

	case "connect":
		fs, configFile := newFlagSet("connect")
		ssid := fs.String("ssid", "", "Network to add or update before connecting")
		passcode := fs.String("passcode", "", "Passphrase (empty for an open network)")
		force := fs.Bool("force", false, "Reconfigure even when already connected")
		noFallback := fs.Bool("no-fallback", false, "Do not restore the access point on failure")
		fs.Parse(args)
		req := wifi.ConnectionRequest{SSID: *ssid, Passcode: *passcode, Force: *force}
		err = withRuntime(*configFile, func(rt *cmd.Runtime) error {
			return cmd.RunConnect(ctx, rt, os.Stdout, req, !*noFallback)
		})

	case "disable":
		fs, configFile := newFlagSet("disable")
		fs.Parse(args)
		err = withRuntime(*configFile, func(rt *cmd.Runtime) error {
			return cmd.RunDisable(ctx, rt, os.Stdout)
		})

	case "reboot":
		fs, configFile := newFlagSet("reboot")
		static := fs.Bool("static", false, "Assign the access point address on the way up")
		fs.Parse(args)
		err = withRuntime(*configFile, func(rt *cmd.Runtime) error {
			return cmd.RunReboot(ctx, rt, os.Stdout, *static)
		})

	case "networks":
		fs, configFile := newFlagSet("networks")
		fs.Parse(args)
		err = withRuntime(*configFile, func(rt *cmd.Runtime) error {
			return cmd.RunNetworks(ctx, rt, os.Stdout, fs.Args())
		})

	case "diff":
		fs, configFile := newFlagSet("diff")
		fs.Parse(args)
		changed := false
		err = withRuntime(*configFile, func(rt *cmd.Runtime) error {
			var derr error
			changed, derr = cmd.RunDiff(ctx, rt, os.Stdout, fs.Arg(0))
			return derr
		})
		if err == nil && changed {
			return 1
		}

	case "version":
		cmd.RunVersion(os.Stdout)

	case "help", "-h", "--help":
		printUsage()

	default:
		printer.Printf("Unknown command: %s\n\n", name)
		printUsage()
		return 1
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, printer.Sprintf(i18n.MsgCommandFailed, name, err))
		if errors.Is(err, cmd.ErrUsage) {
			return 2
		}
		return 1
	}
	return 0
}

func printUsage() {
	printer.Printf(`%s - %s

Usage:
  %s <command> [options]

Daemon:
  serve      Run the HTTP API (brings the access point up when not connected)

Mode transitions:
  ap         Switch to access point mode
  connect    Switch to station mode
             Options: -ssid <name>, -passcode <secret>, -force, -no-fallback
  disable    Take the wireless interface down
  reboot     Cycle the wireless interface
             Options: -static

Saved networks:
  networks   list | forget | reorder <ssid>...

Utility:
  status     Show the current mode (-json)
  check      Validate the configuration (-v prints the dry-run plan)
  diff       Show pending config file changes: diff ap|station
  config     Print the effective configuration as HCL
  version    Print version information

Every command accepts -config (-c) <file>, default %s.

Examples:
  %s check -v -config /etc/wificonf/wificonf.hcl
  %s connect -ssid Home -passcode secret123
  %s networks reorder Office Home
`,
		brand.Name, brand.Description,
		brand.BinaryName,
		brand.DefaultConfigPath(),
		brand.BinaryName, brand.BinaryName, brand.BinaryName)
}
