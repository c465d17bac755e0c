package permission

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/relaymesh/relaymesh/internal/wire"
)

func TestCheckAutoAllowSetIgnoresMode(t *testing.T) {
	for _, tool := range []string{"Read", "Glob", "Grep", "WebSearch", "WebFetch", "TodoWrite"} {
		assert.Equal(t, Allow, Check(tool, nil, wire.ModeDefault))
		assert.Equal(t, Allow, Check(tool, nil, wire.ModeBypassPermissions))
	}
}

func TestCheckAutoDenyOverridesBypassPermissions(t *testing.T) {
	input := map[string]any{"file_path": "/home/user/.env"}
	assert.Equal(t, Deny, Check("Edit", input, wire.ModeBypassPermissions))
	assert.Equal(t, Deny, Check("Write", input, wire.ModeAcceptEdits))
}

func TestCheckAutoDenyDestructiveBash(t *testing.T) {
	cases := []string{"rm -rf /", "sudo reboot", "mkfs.ext4 /dev/sda1", "shutdown -h now"}
	for _, cmd := range cases {
		input := map[string]any{"command": cmd}
		assert.Equal(t, Deny, Check("Bash", input, wire.ModeBypassPermissions))
	}
}

func TestCheckAcceptEditsAllowsEditTools(t *testing.T) {
	for _, tool := range []string{"Edit", "Write", "Bash", "NotebookEdit"} {
		assert.Equal(t, Allow, Check(tool, map[string]any{"command": "ls"}, wire.ModeAcceptEdits))
	}
	assert.Equal(t, Ask, Check("Edit", nil, wire.ModeDefault))
}

func TestCheckBypassPermissionsAllowsEverythingExceptAskUserQuestion(t *testing.T) {
	assert.Equal(t, Allow, Check("CustomTool", nil, wire.ModeBypassPermissions))
	assert.Equal(t, Ask, Check("AskUserQuestion", nil, wire.ModeBypassPermissions))
}

func TestCheckDefaultModeFallsThroughToAsk(t *testing.T) {
	assert.Equal(t, Ask, Check("CustomTool", nil, wire.ModeDefault))
	assert.Equal(t, Ask, Check("Bash", map[string]any{"command": "ls -la"}, wire.ModeDefault))
}

func TestCheckIsTotalOverNilInput(t *testing.T) {
	assert.NotPanics(t, func() {
		Check("Edit", nil, wire.ModeDefault)
	})
}
