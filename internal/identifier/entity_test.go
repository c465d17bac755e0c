package identifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	for p := MinPylonID; p <= MaxPylonID; p++ {
		for w := 0; w <= MaxWorkspaceID; w += 17 {
			for c := 0; c <= MaxConversationID; c += 131 {
				id, err := Encode(p, w, c)
				require.NoError(t, err)
				gotP, gotW, gotC := id.Decode()
				assert.Equal(t, p, gotP)
				assert.Equal(t, w, gotW)
				assert.Equal(t, c, gotC)
				assert.Equal(t, LevelConversation, id.Level())
			}
		}
	}
}

func TestEncodeLevelInference(t *testing.T) {
	pylonOnly := MustEncode(5, 0, 0)
	assert.Equal(t, LevelPylon, pylonOnly.Level())

	workspaceOnly := MustEncode(5, 12, 0)
	assert.Equal(t, LevelWorkspace, workspaceOnly.Level())

	conversation := MustEncode(5, 12, 7)
	assert.Equal(t, LevelConversation, conversation.Level())
}

func TestEncodeValidation(t *testing.T) {
	tests := []struct {
		name                                  string
		pylonID, workspaceID, conversationID int
	}{
		{"pylon too low", 0, 1, 1},
		{"pylon too high", 11, 1, 1},
		{"workspace too high", 1, 128, 1},
		{"conversation too high", 1, 1, 1024},
		{"workspace negative", 1, -1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Encode(tt.pylonID, tt.workspaceID, tt.conversationID)
			assert.Error(t, err)
		})
	}
}

func TestS1IdentifierEncoding(t *testing.T) {
	id, err := Encode(1, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, EntityId(133123), id)
	assert.Equal(t, "1:2:3", id.String())
	assert.Equal(t, LevelConversation, id.Level())
}

func TestParseRoundTrip(t *testing.T) {
	id := MustEncode(3, 42, 900)
	parsed, err := Parse(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)
}

func TestParseMalformed(t *testing.T) {
	_, err := Parse("not-an-id")
	assert.Error(t, err)

	_, err = Parse("1:2")
	assert.Error(t, err)

	_, err = Parse("1:2:3:4")
	assert.Error(t, err)
}

func TestEntityIdJSON(t *testing.T) {
	id := MustEncode(1, 2, 3)
	data, err := id.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"1:2:3"`, string(data))

	var decoded EntityId
	require.NoError(t, decoded.UnmarshalJSON(data))
	assert.Equal(t, id, decoded)
}
