package platform

import (
	"fmt"
	"strings"
)

// HelperScript renders the PowerShell script that installs src as dst and
// resets the Windows resolver state. It runs elevated.
func HelperScript(src, dst string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "$source = %s\n", psQuote(src))
	fmt.Fprintf(&b, "$dest = %s\n", psQuote(dst))
	b.WriteString("Copy-Item -Path $source -Destination $dest -Force -ErrorAction Stop\n")
	b.WriteString("Clear-DnsClientCache\n")
	b.WriteString("ipconfig /flushdns\n")
	b.WriteString("ipconfig /release\n")
	b.WriteString("ipconfig /renew\n")
	b.WriteString("netsh winsock reset\n")
	return b.String()
}

// ElevateCommand is the -Command argument that runs script through the UAC
// consent prompt, waits for it, and propagates its exit code.
func ElevateCommand(script string) string {
	args := "-NoProfile -ExecutionPolicy Bypass -File \"" + script + "\""
	return "$p = Start-Process powershell -Verb runAs -WindowStyle Hidden -Wait -PassThru -ArgumentList " +
		psQuote(args) + "; exit $p.ExitCode"
}

func psQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
