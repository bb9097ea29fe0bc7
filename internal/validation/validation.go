package validation

import (
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"
)

var broadcastTypeRe = regexp.MustCompile(`^[A-Z][A-Z0-9_]{0,63}$`)

func NormalizeTitle(title string) string {
	return strings.TrimSpace(title)
}

func MaxTitleLength() int {
	maxStr := os.Getenv("NOTIFICATION_MAX_TITLE")
	if maxStr == "" {
		return 120
	}
	max, err := strconv.Atoi(maxStr)
	if err != nil || max < 1 {
		return 120
	}
	return max
}

func MaxBodyLength() int {
	maxStr := os.Getenv("NOTIFICATION_MAX_BODY")
	if maxStr == "" {
		return 1000
	}
	max, err := strconv.Atoi(maxStr)
	if err != nil || max < 1 {
		return 1000
	}
	return max
}

func ValidateTitle(title string) bool {
	title = NormalizeTitle(title)
	return title != "" && len(title) <= MaxTitleLength()
}

func ValidateBody(body string) bool {
	return len(body) <= MaxBodyLength()
}

// ValidateTargetURL accepts app-relative paths and absolute http(s) URLs.
// Anything else (javascript:, data:, schemeless garbage) is rejected.
func ValidateTargetURL(target string) bool {
	target = strings.TrimSpace(target)
	if target == "" {
		return false
	}
	if strings.HasPrefix(target, "/") && !strings.HasPrefix(target, "//") {
		return true
	}
	u, err := url.Parse(target)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// ValidateBroadcastType accepts the SCREAMING_SNAKE type names used on the
// channel, plus the wildcard.
func ValidateBroadcastType(msgType string) bool {
	if msgType == "*" {
		return true
	}
	return broadcastTypeRe.MatchString(msgType)
}
