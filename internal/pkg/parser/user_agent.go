package parser

import "strings"

// ParseUserAgent returns a coarse platform and browser for a kiosk client.
func ParseUserAgent(ua string) (platform, browser string) {
	uaLower := strings.ToLower(ua)

	// iPadOS and Android both also match desktop tokens, so check them first.
	switch {
	case strings.Contains(uaLower, "ipad"):
		platform = "iPad"
	case strings.Contains(uaLower, "iphone"):
		platform = "iPhone"
	case strings.Contains(uaLower, "android"):
		platform = "Android"
	case strings.Contains(uaLower, "windows"):
		platform = "Windows"
	case strings.Contains(uaLower, "mac os"):
		platform = "macOS"
	case strings.Contains(uaLower, "cros"):
		platform = "ChromeOS"
	case strings.Contains(uaLower, "linux"):
		platform = "Linux"
	default:
		platform = "Unknown"
	}

	switch {
	case strings.Contains(uaLower, "edg"):
		browser = "Edge"
	case strings.Contains(uaLower, "firefox") || strings.Contains(uaLower, "fxios"):
		browser = "Firefox"
	case strings.Contains(uaLower, "chrome") || strings.Contains(uaLower, "crios"):
		browser = "Chrome"
	case strings.Contains(uaLower, "safari"):
		browser = "Safari"
	default:
		browser = "Unknown"
	}

	return platform, browser
}

// ClientLabel is a short human label such as "iPad Safari".
func ClientLabel(ua string) string {
	platform, browser := ParseUserAgent(ua)
	if platform == "Unknown" && browser == "Unknown" {
		return "Unknown client"
	}
	return platform + " " + browser
}
