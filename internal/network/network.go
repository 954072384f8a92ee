package network

import (
	"context"

	"github.com/vishvananda/netlink"
)

// CommandExecutor is an interface that abstracts executing external commands.
// Every OS interaction of the mode controller goes through it, so tests can
// substitute a DryRunExecutor or MockCommandExecutor.
type CommandExecutor interface {
	// RunCommand runs name with arg and returns its stdout.
	// A failure is reported as a *CommandError.
	RunCommand(ctx context.Context, name string, arg ...string) (string, error)
}

// Netlinker is an interface that abstracts netlink interactions.
type Netlinker interface {
	LinkByName(name string) (netlink.Link, error)
	LinkList() ([]netlink.Link, error)
}
