package service

import (
	"fmt"
	"os"

	"github.com/kardianos/service"
)

const (
	ServiceName = "hostsbypass"
)

type Manager struct {
	service service.Service
}

// NewManager registers daemon with the platform service manager. The
// installed unit runs "<exe> [--config path] service run".
func NewManager(daemon *Daemon, configPath string) (*Manager, error) {
	execPath, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable path: %w", err)
	}

	args := []string{"service", "run"}
	if len(configPath) > 0 {
		args = append([]string{"--config", configPath}, args...)
	}

	svcConfig := &service.Config{
		Name:        ServiceName,
		DisplayName: "Hosts Bypass Refresher",
		Description: "Keeps the installed hosts bypass in sync with its remote source",
		Executable:  execPath,
		Arguments:   args,
		Option: service.KeyValue{
			"RunAtLoad": true,
			"KeepAlive": true,
		},
	}

	svc, err := service.New(daemon, svcConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create service: %w", err)
	}
	return &Manager{service: svc}, nil
}

func (m *Manager) Install() error {
	if err := m.service.Install(); err != nil {
		return fmt.Errorf("failed to install service: %w", err)
	}
	return nil
}

func (m *Manager) Uninstall() error {
	if err := m.service.Uninstall(); err != nil {
		return fmt.Errorf("failed to uninstall service: %w", err)
	}
	return nil
}

func (m *Manager) Start() error {
	return m.service.Start()
}

func (m *Manager) Stop() error {
	return m.service.Stop()
}

func (m *Manager) Restart() error {
	return m.service.Restart()
}

func (m *Manager) Status() (string, error) {
	st, err := m.service.Status()
	if err != nil {
		return "Unknown", err
	}
	return statusString(st), nil
}

func statusString(st service.Status) string {
	switch st {
	case service.StatusRunning:
		return "Running"
	case service.StatusStopped:
		return "Stopped"
	case service.StatusUnknown:
		return "Unknown"
	default:
		return fmt.Sprintf("Status(%d)", int(st))
	}
}

// Run blocks, driving the daemon from the service manager or the console.
func (m *Manager) Run() error {
	return m.service.Run()
}

// Interactive reports whether the process runs outside a service manager.
func Interactive() bool {
	return service.Interactive()
}

// ConfigPath returns the platform-specific service definition location.
func ConfigPath() string {
	switch service.Platform() {
	case "linux-systemd":
		return "/etc/systemd/system/" + ServiceName + ".service"
	case "darwin-launchd":
		return "/Library/LaunchDaemons/" + ServiceName + ".plist"
	case "windows-service":
		return "Registry: HKEY_LOCAL_MACHINE\\SYSTEM\\CurrentControlSet\\Services\\" + ServiceName
	default:
		return "Unknown platform"
	}
}
