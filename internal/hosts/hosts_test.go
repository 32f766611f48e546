package hosts

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractUpdateLine(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		content  string
		wantLine string
		wantDate string
	}{
		{
			name:     "marker on second line",
			content:  "# dns.malw.link hosts\n# Последнее обновление: 2024-01-01\n1.2.3.4 example.com\n",
			wantLine: "# Последнее обновление: 2024-01-01",
			wantDate: "2024-01-01",
		},
		{
			name:     "crlf line endings",
			content:  "# header\r\n# Последнее обновление: 2024-02-03 10:00\r\n",
			wantLine: "# Последнее обновление: 2024-02-03 10:00",
			wantDate: "2024-02-03 10:00",
		},
		{
			name:     "cr only line endings",
			content:  "# header\r# Последнее обновление: 2024-03-04\r1.2.3.4 a\r",
			wantLine: "# Последнее обновление: 2024-03-04",
			wantDate: "2024-03-04",
		},
		{
			name:     "unicode line separator",
			content:  "# header\u2028# Последнее обновление: 2024-03-05",
			wantLine: "# Последнее обновление: 2024-03-05",
			wantDate: "2024-03-05",
		},
		{
			name:    "form feed splits before the marker",
			content: "# header\f\n# Последнее обновление: 2024-01-01\n",
		},
		{
			name:    "marker on third line is ignored",
			content: "# header\n# something\n# Последнее обновление: 2024-01-01\n",
		},
		{
			name:    "single line",
			content: "# Последнее обновление: 2024-01-01",
		},
		{
			name: "empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line, date := ExtractUpdateLine([]byte(tt.content))
			assert.Equal(t, tt.wantLine, line)
			assert.Equal(t, tt.wantDate, date)
		})
	}
}

func TestExtractUpdateLineDropsInvalidUTF8(t *testing.T) {
	t.Parallel()

	content := []byte("# h\n# Последнее обновление: \xff2024-05-05\n")
	line, date := ExtractUpdateLine(content)
	assert.Equal(t, "# Последнее обновление: 2024-05-05", line)
	assert.Equal(t, "2024-05-05", date)
}

func TestExtractAdditionalVersion(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "1.4", ExtractAdditionalVersion("a\n# additional_hosts_version 1.4\nb"))
	assert.Equal(t, "", ExtractAdditionalVersion("no tag here"))
}

func TestParseAdditional(t *testing.T) {
	t.Parallel()

	src := "version_add = '2.1'\nhosts_add = \"\"\"\n    1.1.1.1 a.example\n    2.2.2.2 b.example\n\"\"\"\n"
	add := ParseAdditional(src)
	assert.Equal(t, "2.1", add.Version)
	assert.Equal(t, "1.1.1.1 a.example\n2.2.2.2 b.example", add.Hosts)
	assert.False(t, add.Empty())
}

func TestParseAdditionalPartialMatchIsAbsent(t *testing.T) {
	t.Parallel()

	onlyVersion := ParseAdditional(`version_add = "3"`)
	assert.Equal(t, Additional{}, onlyVersion)

	onlyContent := ParseAdditional("hosts_add = \"\"\"1.1.1.1 a\"\"\"")
	assert.Equal(t, Additional{}, onlyContent)

	emptyContent := ParseAdditional("version_add = \"3\"\nhosts_add = \"\"\"  \n \"\"\"")
	assert.Equal(t, Additional{}, emptyContent)
}

func TestComposeRoundTripsAdditionalVersion(t *testing.T) {
	t.Parallel()

	base := "# dns.malw.link\n# Последнее обновление: 2024-01-01\n"
	out := Compose(base, Additional{Version: "7", Hosts: "  3.3.3.3 c.example  "})

	assert.True(t, strings.HasPrefix(out, base))
	assert.Equal(t, "7", ExtractAdditionalVersion(out))
	assert.True(t, strings.HasSuffix(out, "\n3.3.3.3 c.example\n"))

	assert.Equal(t, base, Compose(base, Additional{}))
}

func TestIsInstalled(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "hosts")

	assert.False(t, IsInstalled(path, DefaultBypassMarker))

	require.NoError(t, os.WriteFile(path, []byte(unixTemplate), 0o644))
	assert.False(t, IsInstalled(path, DefaultBypassMarker))

	require.NoError(t, os.WriteFile(path, []byte("# dns.malw.link\n"), 0o644))
	assert.True(t, IsInstalled(path, DefaultBypassMarker))
}

func TestDefaultTemplatesLackMarker(t *testing.T) {
	t.Parallel()

	for _, goos := range []string{"linux", "darwin", "windows"} {
		tpl := DefaultTemplate(goos)
		assert.NotEmpty(t, tpl)
		assert.NotContains(t, tpl, DefaultBypassMarker)
	}
}

func TestSplitLines(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"a", "b", "c", "d"}, splitLines("a\r\nb\rc\nd\n"))
	assert.Equal(t, []string{"a", "", "b"}, splitLines("a\n\nb"))
	assert.Equal(t, []string{"a", "b"}, splitLines("a\x1eb"))
	assert.Nil(t, splitLines(""))
}

func TestWindowsTemplateLiteral(t *testing.T) {
	t.Parallel()

	tpl := DefaultTemplate("windows")
	assert.True(t, strings.HasPrefix(tpl, "# Copyright (c) 1993-2009 Microsoft Corp.\n#\n"))
	assert.Contains(t, tpl, `denoted by a "#" symbol.`)
	assert.True(t, strings.HasSuffix(tpl, "#   127.0.0.1       localhost\n#   ::1             localhost"))
	assert.NotContains(t, tpl, "\t")
}
