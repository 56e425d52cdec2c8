//go:build linux
// +build linux

package env

import (
	"github.com/robotalks/sh2bridge/pkg/hal/bus"
	"github.com/robotalks/sh2bridge/pkg/hal/bus/gpio"
	"github.com/robotalks/sh2bridge/pkg/hal/bus/i2cdev"
)

func newHardwareBackend(c *Config) (bus.Master, bus.InterruptLine, error) {
	return i2cdev.New(c.I2CBus), gpio.New(c.IntGPIO), nil
}
