package pluginupdater

import (
	"fmt"
	"io"
	"net/url"
	"path"
	"regexp"
	"strings"
)

const (
	DefaultRequiresPlatform = "6.0"
	DefaultRequiresRuntime  = "8.2"

	// only the beginning of a plugin file is searched for header fields
	headerReadLimit = 8 * 1024
)

// Manifest holds the header fields of a plugin main file.
type Manifest struct {
	// PluginFile is the plugin main file relative to the plugins root,
	// e.g. widget/widget.php.
	PluginFile string

	Name             string
	PluginURI        string
	UpdateURI        string
	Version          string
	TestedUpTo       string
	Branch           string
	UpdateMethod     string
	Author           string
	AuthorURI        string
	Description      string
	RequiresPlatform string
	RequiresRuntime  string

	Icon1xURI   string
	Icon2xURI   string
	Banner1xURI string
	Banner2xURI string
}

var headerFields = []struct {
	header string
	field  func(*Manifest) *string
}{
	{"Plugin Name", func(m *Manifest) *string { return &m.Name }},
	{"Plugin URI", func(m *Manifest) *string { return &m.PluginURI }},
	{"Update URI", func(m *Manifest) *string { return &m.UpdateURI }},
	{"Version", func(m *Manifest) *string { return &m.Version }},
	{"Tested up to", func(m *Manifest) *string { return &m.TestedUpTo }},
	{"Branch Name", func(m *Manifest) *string { return &m.Branch }},
	{"Update Method", func(m *Manifest) *string { return &m.UpdateMethod }},
	{"Author", func(m *Manifest) *string { return &m.Author }},
	{"Author URI", func(m *Manifest) *string { return &m.AuthorURI }},
	{"Description", func(m *Manifest) *string { return &m.Description }},
	{"Requires at least", func(m *Manifest) *string { return &m.RequiresPlatform }},
	{"Requires PHP", func(m *Manifest) *string { return &m.RequiresRuntime }},
	{"Icon URI", func(m *Manifest) *string { return &m.Icon1xURI }},
	{"Icon 2x URI", func(m *Manifest) *string { return &m.Icon2xURI }},
	{"Banner URI", func(m *Manifest) *string { return &m.Banner1xURI }},
	{"Banner 2x URI", func(m *Manifest) *string { return &m.Banner2xURI }},
}

var headerCommentEnd = regexp.MustCompile(`\s*(?:\*/|\?>).*`)

var headerPatterns = make([]*regexp.Regexp, len(headerFields))

func init() {
	for i, f := range headerFields {
		headerPatterns[i] = regexp.MustCompile(`(?mi)^(?:[ \t]*<\?php)?[ \t/*#@]*` + regexp.QuoteMeta(f.header) + `:(.*)$`)
	}
}

// ParseManifestHeader reads the header fields from the comment block at the
// top of a plugin main file. Field names are matched case-insensitively.
func ParseManifestHeader(r io.Reader) (Manifest, error) {
	data, err := io.ReadAll(io.LimitReader(r, headerReadLimit))
	if err != nil {
		return Manifest{}, fmt.Errorf("failed to read plugin header: %w", err)
	}
	contents := strings.ReplaceAll(string(data), "\r", "\n")

	m := Manifest{}
	for i, f := range headerFields {
		submatches := headerPatterns[i].FindStringSubmatch(contents)
		if len(submatches) < 2 {
			continue
		}
		value := headerCommentEnd.ReplaceAllString(strings.TrimSpace(submatches[1]), "")
		*f.field(&m) = strings.TrimSpace(value)
	}
	return m, nil
}

// Missing lists the required fields that are empty. PluginFile is not a
// header field but is required as well, it names the file read from the
// branch.
func (m Manifest) Missing() []string {
	var missing []string
	if m.Name == "" {
		missing = append(missing, "Plugin Name")
	}
	if m.PluginURI == "" {
		missing = append(missing, "Plugin URI")
	}
	if m.Version == "" {
		missing = append(missing, "Version")
	}
	if m.UpdateURI == "" {
		missing = append(missing, "Update URI")
	}
	if _, filename := m.pluginDirAndFilename(); filename == "" {
		missing = append(missing, "Plugin File")
	}
	return missing
}

func (m Manifest) withDefaults() Manifest {
	if m.RequiresPlatform == "" {
		m.RequiresPlatform = DefaultRequiresPlatform
	}
	if m.RequiresRuntime == "" {
		m.RequiresRuntime = DefaultRequiresRuntime
	}
	return m
}

// pluginDirAndFilename splits widget/widget.php into widget and widget.php.
func (m Manifest) pluginDirAndFilename() (string, string) {
	dir, filename := path.Split(strings.Trim(m.PluginFile, "/"))
	return strings.TrimSuffix(dir, "/"), filename
}

// Icons returns the configured icon sizes. Relative paths are resolved
// against assetsBaseURL.
func (m Manifest) Icons(assetsBaseURL string) map[string]string {
	return assetURLs(assetsBaseURL, map[string]string{"1x": m.Icon1xURI, "2x": m.Icon2xURI})
}

// Banners returns the configured banner sizes. Relative paths are resolved
// against assetsBaseURL.
func (m Manifest) Banners(assetsBaseURL string) map[string]string {
	return assetURLs(assetsBaseURL, map[string]string{"low": m.Banner1xURI, "high": m.Banner2xURI})
}

func assetURLs(assetsBaseURL string, sizes map[string]string) map[string]string {
	var assets map[string]string
	for size, uri := range sizes {
		if uri == "" {
			continue
		}
		if assets == nil {
			assets = make(map[string]string)
		}
		assets[size] = assetURL(assetsBaseURL, uri)
	}
	return assets
}

func assetURL(assetsBaseURL, uri string) string {
	if strings.HasPrefix(uri, "http") || assetsBaseURL == "" {
		return uri
	}
	base, err := url.Parse(strings.TrimRight(assetsBaseURL, "/") + "/")
	if err != nil {
		return uri
	}
	ref, err := url.Parse(strings.TrimLeft(uri, "/"))
	if err != nil {
		return uri
	}
	return base.ResolveReference(ref).String()
}
