package network

import (
	"context"
)

// StaticAddr is an IPv4 address assigned when bringing a link up.
type StaticAddr struct {
	IP      string
	Netmask string
}

// Controller issues the link, service and supplicant commands used by mode
// transitions. Every command goes through the CommandExecutor.
type Controller struct {
	cmd CommandExecutor
}

// NewController creates a controller that runs its commands through cmd.
func NewController(cmd CommandExecutor) *Controller {
	return &Controller{cmd: cmd}
}

// LinkDown runs "ifconfig <iface> down".
func (c *Controller) LinkDown(ctx context.Context, iface string) error {
	_, err := c.cmd.RunCommand(ctx, "ifconfig", iface, "down")
	return err
}

// LinkUp runs "ifconfig <iface> up", or
// "ifconfig <iface> <ip> netmask <mask> up" when addr is set.
func (c *Controller) LinkUp(ctx context.Context, iface string, addr *StaticAddr) error {
	args := []string{iface}
	if addr != nil {
		args = append(args, addr.IP, "netmask", addr.Netmask)
	}
	args = append(args, "up")
	_, err := c.cmd.RunCommand(ctx, "ifconfig", args...)
	return err
}

// RestartService runs "systemctl restart <name>".
func (c *Controller) RestartService(ctx context.Context, name string) error {
	_, err := c.cmd.RunCommand(ctx, "systemctl", "restart", name)
	return err
}

// StopService runs "systemctl stop <name>".
func (c *Controller) StopService(ctx context.Context, name string) error {
	_, err := c.cmd.RunCommand(ctx, "systemctl", "stop", name)
	return err
}

// ReconfigureSupplicant asks wpa_supplicant to reread its config file.
func (c *Controller) ReconfigureSupplicant(ctx context.Context, iface string) error {
	_, err := c.cmd.RunCommand(ctx, "wpa_cli", "-i", iface, "reconfigure")
	return err
}
