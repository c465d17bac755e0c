package identifier

import "fmt"

// DeviceType identifies the class of a relay-connected client.
type DeviceType string

const (
	DeviceTypePylon  DeviceType = "pylon"
	DeviceTypeApp    DeviceType = "app"
	DeviceTypeViewer DeviceType = "viewer"
)

func (t DeviceType) valid() bool {
	switch t {
	case DeviceTypePylon, DeviceTypeApp, DeviceTypeViewer:
		return true
	default:
		return false
	}
}

func (t DeviceType) code() uint32 {
	switch t {
	case DeviceTypePylon:
		return 0
	case DeviceTypeApp:
		return 1
	case DeviceTypeViewer:
		return 2
	default:
		return 3
	}
}

func deviceTypeFromCode(c uint32) DeviceType {
	switch c {
	case 0:
		return DeviceTypePylon
	case 1:
		return DeviceTypeApp
	case 2:
		return DeviceTypeViewer
	default:
		return DeviceType("")
	}
}

const (
	deviceEnvBits   = 2
	deviceTypeBits  = 2
	deviceIndexBits = 4

	deviceTypeShift  = deviceIndexBits
	deviceEnvShift   = deviceIndexBits + deviceTypeBits

	deviceEnvMask   = (1 << deviceEnvBits) - 1
	deviceTypeMask  = (1 << deviceTypeBits) - 1
	deviceIndexMask = (1 << deviceIndexBits) - 1

	MinClientIndex = 0
	MaxClientIndex = 15
)

// DeviceId is the small integer the relay uses to address a connected
// client: envId (2 bits) | deviceType (2 bits) | deviceIndex (4 bits).
type DeviceId uint32

// EncodeDevice packs an environment id, device type, and pool-allocated
// index into a DeviceId.
func EncodeDevice(envID int, deviceType DeviceType, deviceIndex int) (DeviceId, error) {
	if envID < 0 || envID > deviceEnvMask {
		return 0, fmt.Errorf("identifier: envId %d out of range [0,%d]", envID, deviceEnvMask)
	}
	if !deviceType.valid() {
		return 0, fmt.Errorf("identifier: unknown deviceType %q", deviceType)
	}
	if deviceIndex < MinClientIndex || deviceIndex > MaxClientIndex {
		return 0, fmt.Errorf("identifier: deviceIndex %d out of range [%d,%d]", deviceIndex, MinClientIndex, MaxClientIndex)
	}
	v := uint32(envID&deviceEnvMask)<<deviceEnvShift |
		deviceType.code()<<deviceTypeShift |
		uint32(deviceIndex&deviceIndexMask)
	return DeviceId(v), nil
}

// Decode unpacks the DeviceId into its components. Decode is total.
func (d DeviceId) Decode() (envID int, deviceType DeviceType, deviceIndex int) {
	v := uint32(d)
	envID = int((v >> deviceEnvShift) & deviceEnvMask)
	deviceType = deviceTypeFromCode((v >> deviceTypeShift) & deviceTypeMask)
	deviceIndex = int(v & deviceIndexMask)
	return
}

// Type returns the device type component.
func (d DeviceId) Type() DeviceType {
	_, t, _ := d.Decode()
	return t
}

// Index returns the pool-allocated index component.
func (d DeviceId) Index() int {
	_, _, idx := d.Decode()
	return idx
}
