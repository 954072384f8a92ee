// Package network probes and classifies the state of the wireless interface.
//
// # Overview
//
// Everything that touches the operating system goes through a [CommandExecutor],
// so the mode controller can be exercised against a [DryRunExecutor] or a
// [MockCommandExecutor] instead of a real device.
//
// # Key Components
//
//   - [RealCommandExecutor]: os/exec backed executor with optional sudo and timeout
//   - [Prober]: runs ifconfig/iwconfig and extracts an [InterfaceStatus]
//   - [Detect]: derives AP / station / disabled mode from a status
//   - [InterfaceExists]: netlink lookup of the managed interface
//
// # Example
//
//	prober := network.NewProber(&network.RealCommandExecutor{Sudo: true})
//	status, err := prober.Probe(ctx, "wlan0")
//	if err != nil {
//	    return err
//	}
//	if ip := network.IsStationEnabled(status, "rpi-config-ap"); ip != "" {
//	    fmt.Println("connected as", ip)
//	}
package network
