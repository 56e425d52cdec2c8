package env

import (
	"os"

	"github.com/denisbrodbeck/machineid"
)

// MachineID retrieves the unique ID identifying the machine. The hostname is
// used where no machine ID is available.
func MachineID() string {
	if id, err := machineid.ID(); err == nil && id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil {
		return host
	}
	return "sh2bridge"
}
