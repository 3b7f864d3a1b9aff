// File: internal/browser/allocator.go
package browser

import (
	"fmt"
	"strings"

	"github.com/chromedp/chromedp"
	"github.com/xkilldash9x/guestpass/internal/config"
)

type allocatorFlag struct {
	name  string
	value interface{}
}

// allocatorFlags lists the command line switches derived from cfg, in the
// order they are applied. Later switches override earlier ones.
func allocatorFlags(cfg config.BrowserConfig) []allocatorFlag {
	flags := []allocatorFlag{{"headless", cfg.Headless}}
	if cfg.Headless {
		flags = append(flags, allocatorFlag{"hide-scrollbars", true}, allocatorFlag{"mute-audio", true})
	}
	if cfg.NoSandbox {
		flags = append(flags, allocatorFlag{"no-sandbox", true})
	}
	if cfg.DisableDevShm {
		flags = append(flags, allocatorFlag{"disable-dev-shm-usage", true})
	}
	if cfg.IgnoreTLSErrors {
		flags = append(flags,
			allocatorFlag{"ignore-certificate-errors", true},
			allocatorFlag{"allow-insecure-localhost", true})
	}
	if w, h := cfg.Viewport["width"], cfg.Viewport["height"]; w > 0 && h > 0 {
		flags = append(flags, allocatorFlag{"window-size", fmt.Sprintf("%d,%d", w, h)})
	}
	if cfg.UserAgent != "" {
		flags = append(flags, allocatorFlag{"user-agent", cfg.UserAgent})
	}
	for _, arg := range cfg.Args {
		if f, ok := parseArg(arg); ok {
			flags = append(flags, f)
		}
	}
	return flags
}

// parseArg turns "--name=value" or "--name" into a flag.
func parseArg(arg string) (allocatorFlag, bool) {
	arg = strings.TrimLeft(strings.TrimSpace(arg), "-")
	if arg == "" {
		return allocatorFlag{}, false
	}
	if name, value, ok := strings.Cut(arg, "="); ok {
		return allocatorFlag{name, value}, true
	}
	return allocatorFlag{arg, true}, true
}

// AllocatorOptions builds the exec allocator options for one Chromium process.
func AllocatorOptions(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption(nil), chromedp.DefaultExecAllocatorOptions[:]...)
	for _, f := range allocatorFlags(cfg) {
		opts = append(opts, chromedp.Flag(f.name, f.value))
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	return opts
}
