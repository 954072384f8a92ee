package network

import (
	"errors"
	"fmt"
	"sort"
)

// ErrLinkNotFound is returned by Netlinker implementations for a missing link.
var ErrLinkNotFound = errors.New("link not found")

// InterfaceExists reports whether the named interface is known to the kernel.
func InterfaceExists(nl Netlinker, name string) (bool, error) {
	if _, err := nl.LinkByName(name); err != nil {
		if errors.Is(err, ErrLinkNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to look up interface %s: %w", name, err)
	}
	return true, nil
}

// ListInterfaces returns the sorted names of all links.
func ListInterfaces(nl Netlinker) ([]string, error) {
	links, err := nl.LinkList()
	if err != nil {
		return nil, fmt.Errorf("failed to list interfaces: %w", err)
	}
	names := make([]string, 0, len(links))
	for _, l := range links {
		names = append(names, l.Attrs().Name)
	}
	sort.Strings(names)
	return names, nil
}
