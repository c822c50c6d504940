//go:build !linux

package config

import "fmt"

// totalSystemRAM is unsupported on this platform.
func totalSystemRAM() (uint64, error) {
	return 0, fmt.Errorf("config: unsupported platform for RAM detection")
}
