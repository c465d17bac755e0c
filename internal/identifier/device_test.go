package identifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeviceIdRoundTrip(t *testing.T) {
	tests := []struct {
		name       string
		envID      int
		deviceType DeviceType
		index      int
	}{
		{"pylon env0", 0, DeviceTypePylon, 0},
		{"app max index", 1, DeviceTypeApp, MaxClientIndex},
		{"viewer env3", 3, DeviceTypeViewer, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := EncodeDevice(tt.envID, tt.deviceType, tt.index)
			require.NoError(t, err)
			gotEnv, gotType, gotIdx := id.Decode()
			assert.Equal(t, tt.envID, gotEnv)
			assert.Equal(t, tt.deviceType, gotType)
			assert.Equal(t, tt.index, gotIdx)
		})
	}
}

func TestDeviceIdValidation(t *testing.T) {
	_, err := EncodeDevice(0, DeviceType("bogus"), 0)
	assert.Error(t, err)

	_, err = EncodeDevice(0, DeviceTypeApp, MaxClientIndex+1)
	assert.Error(t, err)

	_, err = EncodeDevice(0, DeviceTypeApp, -1)
	assert.Error(t, err)
}
