// ABOUTME: Version and product identification constants
// ABOUTME: Reported in the remote hello and the startup log
package version

import "fmt"

const (
	Version      = "0.1.0"
	Product      = "Noise Pomodoro"
	Manufacturer = "harperreed"
)

// String identifies the build in logs
func String() string {
	return fmt.Sprintf("%s %s (%s)", Product, Version, Manufacturer)
}
