//go:build !linux
// +build !linux

package env

import (
	"fmt"
	"runtime"

	"github.com/robotalks/sh2bridge/pkg/hal/bus"
)

func newHardwareBackend(c *Config) (bus.Master, bus.InterruptLine, error) {
	return nil, nil, fmt.Errorf("backend %q not supported on %s", BackendI2CDev, runtime.GOOS)
}
