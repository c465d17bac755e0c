package session

import (
	"github.com/relaymesh/relaymesh/internal/workstation/adapter"
	"github.com/relaymesh/relaymesh/internal/workstation/toolmap"
)

func toolmapRaw(tu *adapter.ToolUse) toolmap.RawToolUse {
	return toolmap.RawToolUse{Type: "tool_use", Id: tu.Id, Name: tu.Name, Input: tu.Input}
}
