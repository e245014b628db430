package env

import (
	"github.com/denisbrodbeck/machineid"
)

// MachineID retrieves an ID identifying the station. It is derived from
// the machine ID so it is stable without exposing it.
func MachineID() string {
	id, err := machineid.ProtectedID("pms")
	if err != nil {
		return ""
	}
	return id[:12]
}
