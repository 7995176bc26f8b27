//go:build darwin

package platform

/*
#cgo CFLAGS: -x objective-c
#cgo LDFLAGS: -framework Cocoa
#import <Cocoa/Cocoa.h>

static int isActive(void) {
	return [NSApp isActive] ? 1 : 0;
}

static void activate(void) {
	[NSApp activateIgnoringOtherApps:YES];
}

static void menuBarOnly(void) {
	[NSApp setActivationPolicy:NSApplicationActivationPolicyAccessory];
}
*/
import "C"

// IsAppActive reports whether the app has keyboard focus
func IsAppActive() bool {
	return C.isActive() == 1
}

// ActivateApp pulls the app in front of whatever the user switched to
func ActivateApp() {
	C.activate()
}

// HideDockIcon leaves the app in the menu bar only. Call it once the fyne
// event loop runs.
func HideDockIcon() {
	C.menuBarOnly()
}
