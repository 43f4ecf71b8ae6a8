package service

import (
	"strings"

	"github.com/dafedescribe/wey/internal/models"
)

// Classification is a first-match walk over ordered rule tables. Order
// matters: chrome user agents also contain "safari".
type uaRule struct {
	token string
	label string
}

var deviceRules = []uaRule{
	{"mobile", models.DeviceMobile},
	{"android", models.DeviceMobile},
	{"iphone", models.DeviceMobile},
	{"tablet", models.DeviceTablet},
	{"ipad", models.DeviceTablet},
}

var browserRules = []uaRule{
	{"chrome", "chrome"},
	{"firefox", "firefox"},
	{"safari", "safari"},
	{"edge", "edge"},
}

// DetectDevice maps a raw user-agent to mobile, tablet or desktop.
func DetectDevice(userAgent string) string {
	ua := strings.ToLower(userAgent)
	for _, rule := range deviceRules {
		if strings.Contains(ua, rule.token) {
			return rule.label
		}
	}
	return models.DeviceDesktop
}

// DetectBrowser maps a raw user-agent to a browser family.
func DetectBrowser(userAgent string) string {
	ua := strings.ToLower(userAgent)
	for _, rule := range browserRules {
		if strings.Contains(ua, rule.token) {
			return rule.label
		}
	}
	return "unknown"
}
