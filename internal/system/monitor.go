package system

import (
	"fmt"
	"runtime"
	"sort"
	"strings"

	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/process"
)

// dnsCacheDaemons are the local resolver caches a hosts change may be
// shadowed by until they are flushed.
var dnsCacheDaemons = []string{
	"systemd-resolved",
	"nscd",
	"dnsmasq",
	"mDNSResponder",
	"Dnscache",
}

type Monitor struct {
	processNames func() ([]string, error)
}

func NewMonitor() *Monitor {
	return &Monitor{processNames: runningProcessNames}
}

func runningProcessNames() ([]string, error) {
	procs, err := process.Processes()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(procs))
	for _, p := range procs {
		name, err := p.Name()
		if err != nil {
			continue
		}
		names = append(names, name)
	}
	return names, nil
}

type HostInfo struct {
	Hostname string
	OS       string
	Platform string
	Version  string
	Arch     string
	Uptime   uint64
}

func (h HostInfo) String() string {
	platform := h.Platform
	if h.Version != "" {
		platform += " " + h.Version
	}
	return fmt.Sprintf("%s (%s/%s, %s)", h.Hostname, h.OS, h.Arch, strings.TrimSpace(platform))
}

// HostInfo returns basic information about the machine.
func (m *Monitor) HostInfo() (HostInfo, error) {
	info, err := host.Info()
	if err != nil {
		return HostInfo{OS: runtime.GOOS, Arch: runtime.GOARCH}, fmt.Errorf("failed to get host info: %w", err)
	}
	return HostInfo{
		Hostname: info.Hostname,
		OS:       info.OS,
		Platform: info.Platform,
		Version:  info.PlatformVersion,
		Arch:     info.KernelArch,
		Uptime:   info.Uptime,
	}, nil
}

// DNSCaches lists the local DNS cache daemons currently running. Errors
// are treated as "none found".
func (m *Monitor) DNSCaches() []string {
	names, err := m.processNames()
	if err != nil {
		return nil
	}
	seen := make(map[string]bool)
	for _, name := range names {
		name = strings.TrimSuffix(name, ".exe")
		for _, d := range dnsCacheDaemons {
			if strings.EqualFold(name, d) {
				seen[d] = true
			}
		}
	}
	found := make([]string, 0, len(seen))
	for d := range seen {
		found = append(found, d)
	}
	sort.Strings(found)
	return found
}
