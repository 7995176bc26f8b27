//go:build !darwin

package platform

// IsAppActive is always true where focus cannot be queried
func IsAppActive() bool { return true }

// ActivateApp does nothing outside macOS
func ActivateApp() {}

// HideDockIcon does nothing outside macOS
func HideDockIcon() {}
