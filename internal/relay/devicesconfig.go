package relay

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/relaymesh/relaymesh/internal/obs/errs"
)

// deviceFileEntry is one on-disk entry of the devices table, keyed by
// pylon deviceId.
type deviceFileEntry struct {
	Name       string   `yaml:"name"`
	Icon       string   `yaml:"icon,omitempty"`
	Role       string   `yaml:"role,omitempty"`
	AllowedIPs []string `yaml:"allowedIps,omitempty"`
}

// devicesFile is the on-disk shape: a top-level devices map from
// deviceId to entry.
type devicesFile struct {
	Devices map[int]deviceFileEntry `yaml:"devices"`
}

// LoadDevicesFile reads and parses a devices.yaml file into a Devices
// table.
func LoadDevicesFile(path string) (Devices, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Validation(fmt.Sprintf("read devices config %q", path), err)
	}
	return ParseDevices(raw)
}

// ParseDevices validates raw YAML bytes against the devices table
// shape.
func ParseDevices(raw []byte) (Devices, error) {
	var f devicesFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, errs.Validation("parse devices config", err)
	}

	out := make(Devices, len(f.Devices))
	for id, entry := range f.Devices {
		if entry.Name == "" {
			return nil, errs.Validation(fmt.Sprintf("device %d: missing name", id), nil)
		}
		out[id] = DeviceRecord{Name: entry.Name, Icon: entry.Icon, Role: entry.Role, AllowedIPs: entry.AllowedIPs}
	}
	return out, nil
}
