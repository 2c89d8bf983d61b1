package parser

import "strings"

type match struct {
	needle string
	name   string
}

// Order matters: Edge and Chrome both mention "safari", Chrome on Android
// mentions "linux".
var (
	tools = []match{
		{"qrctl", "qrctl"},
		{"curl/", "curl"},
		{"wget/", "Wget"},
		{"go-http-client", "Go HTTP client"},
		{"python-requests", "Python requests"},
	}
	browsers = []match{
		{"edg", "Edge"},
		{"firefox", "Firefox"},
		{"chrome", "Chrome"},
		{"safari", "Safari"},
	}
	systems = []match{
		{"android", "Android"},
		{"iphone", "iOS"},
		{"ipad", "iOS"},
		{"windows", "Windows"},
		{"mac os", "macOS"},
		{"linux", "Linux"},
	}
)

// ParseUserAgent reduces a User-Agent header to the browser (or tool) and
// operating system. Unrecognized parts come back as "Unknown".
func ParseUserAgent(ua string) (os, browser string) {
	uaLower := strings.ToLower(ua)

	if name, ok := lookup(tools, uaLower); ok {
		return "Unknown", name
	}

	browser, _ = lookup(browsers, uaLower)
	os, _ = lookup(systems, uaLower)
	return os, browser
}

// Describe renders ParseUserAgent as a short label for audit listings, e.g.
// "Firefox on Linux".
func Describe(ua string) string {
	os, browser := ParseUserAgent(ua)
	switch {
	case browser == "Unknown" && os == "Unknown":
		return "Unknown"
	case os == "Unknown":
		return browser
	case browser == "Unknown":
		return "Unknown on " + os
	}
	return browser + " on " + os
}

func lookup(table []match, ua string) (string, bool) {
	for _, m := range table {
		if strings.Contains(ua, m.needle) {
			return m.name, true
		}
	}
	return "Unknown", false
}
