package browser

import (
	"fmt"
)

// StealthConfig controls the fingerprint a headless browser presents.
type StealthConfig struct {
	UserAgent  string
	WindowSize string
	Language   string
	Platform   string
}

// DefaultStealthConfig mimics a desktop Chrome on Windows.
func DefaultStealthConfig() *StealthConfig {
	return &StealthConfig{
		UserAgent:  "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		WindowSize: "1920,1080",
		Language:   "en-US",
		Platform:   "Win32",
	}
}

// StealthJS returns the script injected into every document before the
// page's own scripts run.
func (sc *StealthConfig) StealthJS() string {
	return fmt.Sprintf(`
Object.defineProperty(navigator, 'webdriver', { get: () => undefined });
Object.defineProperty(navigator, 'platform', { get: () => '%s' });
Object.defineProperty(navigator, 'language', { get: () => '%s' });
Object.defineProperty(navigator, 'languages', { get: () => ['%s', 'en'] });
window.chrome = window.chrome || { runtime: {} };
`, sc.Platform, sc.Language, sc.Language)
}
