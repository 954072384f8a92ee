package network

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/vishvananda/netlink"
)

// dryRunResponse is a scripted reply for one command line.
type dryRunResponse struct {
	output string
	err    error
}

// DryRunExecutor implements CommandExecutor but only records commands.
// Replies can be scripted per command line, which makes it usable as an
// in-memory device in tests.
type DryRunExecutor struct {
	mu        sync.Mutex
	Commands  []string
	responses map[string]dryRunResponse
}

// NewDryRunExecutor creates a new dry run executor.
func NewDryRunExecutor() *DryRunExecutor {
	return &DryRunExecutor{
		Commands:  make([]string, 0),
		responses: make(map[string]dryRunResponse),
	}
}

// Respond scripts the stdout returned for cmdline, e.g. "iwconfig wlan0".
func (e *DryRunExecutor) Respond(cmdline, output string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.responses[cmdline] = dryRunResponse{output: output}
}

// Fail scripts a non-zero exit for cmdline. A negative exitCode simulates
// a command that could not be launched.
func (e *DryRunExecutor) Fail(cmdline string, exitCode int, stderr string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fields := strings.Fields(cmdline)
	cerr := &CommandError{ExitCode: exitCode, Stderr: stderr, Err: fmt.Errorf("exit status %d", exitCode)}
	if len(fields) > 0 {
		cerr.Name = fields[0]
		cerr.Args = fields[1:]
	}
	e.responses[cmdline] = dryRunResponse{err: cerr}
}

// RunCommand logs the command instead of executing it.
func (e *DryRunExecutor) RunCommand(ctx context.Context, name string, arg ...string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	cmd := strings.TrimSpace(fmt.Sprintf("%s %s", name, strings.Join(arg, " ")))
	e.Commands = append(e.Commands, cmd)
	if resp, ok := e.responses[cmd]; ok {
		return resp.output, resp.err
	}
	return "", nil
}

// Count returns how many recorded commands start with prefix.
func (e *DryRunExecutor) Count(prefix string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, c := range e.Commands {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

// Reset forgets recorded commands but keeps scripted responses.
func (e *DryRunExecutor) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Commands = e.Commands[:0]
}

// DryRunNetlinker reports every requested link as present.
type DryRunNetlinker struct{}

func (n *DryRunNetlinker) LinkByName(name string) (netlink.Link, error) {
	return &netlink.Device{LinkAttrs: netlink.LinkAttrs{Name: name}}, nil
}

func (n *DryRunNetlinker) LinkList() ([]netlink.Link, error) { return nil, nil }
