// Package hosts reads and composes the hosts file content managed by hostsbypass.
package hosts

import (
	"os"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// UpdatePhrase prefixes the date on the version marker line.
	UpdatePhrase = "Последнее обновление:"
	// DefaultBypassMarker is present in any hosts file carrying the bypass.
	DefaultBypassMarker = "dns.malw.link"

	additionalVersionTag = "# additional_hosts_version"
)

var (
	localAddVersionRe  = regexp.MustCompile(`# additional_hosts_version\s+(\S+)`)
	remoteAddVersionRe = regexp.MustCompile(`version_add\s*=\s*["']([^"']+)["']`)
	remoteAddContentRe = regexp.MustCompile(`(?s)hosts_add\s*=\s*"""(.*?)"""`)
)

// Additional is the separately versioned block appended to the base hosts content.
type Additional struct {
	Version string
	Hosts   string
}

// Empty reports whether the block is absent.
func (a Additional) Empty() bool {
	return a.Hosts == ""
}

// Path returns the system hosts file path for the running platform.
func Path() string {
	return systemPath()
}

// Decode converts raw bytes to text, dropping invalid UTF-8.
func Decode(b []byte) string {
	return strings.ToValidUTF8(string(b), "")
}

// ExtractUpdateLine returns the version marker line (the second line) and the
// date that follows UpdatePhrase. Both are empty when the marker is missing.
func ExtractUpdateLine(content []byte) (line, date string) {
	lines := splitLines(Decode(content))
	if len(lines) < 2 {
		return "", ""
	}
	line = strings.TrimSpace(lines[1])
	_, after, found := strings.Cut(line, UpdatePhrase)
	if !found {
		return "", ""
	}
	return line, strings.TrimSpace(after)
}

// ExtractAdditionalVersion returns the version tag written by Compose, or "".
func ExtractAdditionalVersion(text string) string {
	m := localAddVersionRe.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return m[1]
}

// ParseAdditional extracts the version and content of a remote additional
// hosts resource. A partially matched resource is treated as absent.
func ParseAdditional(text string) Additional {
	ver := remoteAddVersionRe.FindStringSubmatch(text)
	content := remoteAddContentRe.FindStringSubmatch(text)
	if ver == nil || content == nil {
		return Additional{}
	}
	block := strings.TrimSpace(dedent(content[1]))
	if block == "" {
		return Additional{}
	}
	return Additional{Version: ver[1], Hosts: block}
}

// Compose appends the additional block, tagged with its version, to base.
func Compose(base string, add Additional) string {
	if add.Empty() {
		return base
	}
	var b strings.Builder
	b.Grow(len(base) + len(add.Hosts) + 64)
	b.WriteString(base)
	b.WriteString("\n")
	b.WriteString(additionalVersionTag)
	b.WriteString(" ")
	b.WriteString(add.Version)
	b.WriteString("\n")
	b.WriteString(strings.TrimSpace(add.Hosts))
	b.WriteString("\n")
	return b.String()
}

// IsInstalled reports whether the file at path exists and contains marker.
func IsInstalled(path, marker string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	return strings.Contains(Decode(data), marker)
}

// dedent removes the common leading whitespace of all non-blank lines.
func dedent(s string) string {
	lines := strings.Split(s, "\n")
	margin := ""
	first := true
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		indent := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
		if first {
			margin = indent
			first = false
			continue
		}
		margin = commonPrefix(margin, indent)
	}
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			lines[i] = ""
			continue
		}
		lines[i] = strings.TrimPrefix(line, margin)
	}
	return strings.Join(lines, "\n")
}

func commonPrefix(a, b string) string {
	n := min(len(a), len(b))
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return a[:i]
}

// splitLines breaks s at every line boundary: \n, \r, \r\n, and the
// vertical tab, form feed, separator and Unicode line break characters.
// A trailing boundary does not produce an empty last line.
func splitLines(s string) []string {
	var lines []string
	start := 0
	for i, r := range s {
		if start > i {
			continue
		}
		switch r {
		case '\n', '\r', '\v', '\f', '\x1c', '\x1d', '\x1e', '\u0085', '\u2028', '\u2029':
		default:
			continue
		}
		lines = append(lines, s[start:i])
		start = i + utf8.RuneLen(r)
		if r == '\r' && strings.HasPrefix(s[start:], "\n") {
			start++
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}
