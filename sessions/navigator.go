package sessions

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
)

// Navigator moves the user agent to a URL. Login navigates to the provider,
// Logout navigates back to the application entry point.
type Navigator interface {
	Navigate(ctx context.Context, url string) error
}

// SideChannel loads a URL in the user agent without leaving the current page. Navigators
// that can do this are used to end the provider's cookie session, which only the user agent
// can reach.
type SideChannel interface {
	Load(ctx context.Context, url string) error
}

// NavigatorFunc adapts a function to a Navigator.
type NavigatorFunc func(ctx context.Context, url string) error

func (f NavigatorFunc) Navigate(ctx context.Context, url string) error {
	return f(ctx, url)
}

// NoopNavigator goes nowhere.
var NoopNavigator Navigator = NavigatorFunc(func(context.Context, string) error { return nil })

// BrowserNavigator opens URLs in the system's default browser. Side-channel loads open
// in a new browser tab, which carries the browser's cookies.
type BrowserNavigator struct{}

func (b BrowserNavigator) Load(ctx context.Context, url string) error {
	return b.Navigate(ctx, url)
}

func (BrowserNavigator) Navigate(_ context.Context, url string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	// The browser keeps running after we return.
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	go func() { _ = cmd.Wait() }()
	return nil
}
