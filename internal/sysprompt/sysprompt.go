// Package sysprompt injects a conversation's custom system prompt
// ahead of the user's turn, tagged so the injected block can be
// stripped back out of anything that echoes the full prompt.
package sysprompt

import "regexp"

const (
	// TagStart marks the beginning of system-injected content.
	TagStart = "<relaymesh-system>"
	// TagEnd marks the end of system-injected content.
	TagEnd = "</relaymesh-system>"
)

var systemTagRegex = regexp.MustCompile(`<relaymesh-system>[\s\S]*?</relaymesh-system>\s*`)

// StripSystemContent removes every <relaymesh-system>...</relaymesh-system>
// block from text.
func StripSystemContent(text string) string {
	return systemTagRegex.ReplaceAllString(text, "")
}

// Wrap wraps content in system tags to mark it as injected rather than
// user-authored.
func Wrap(content string) string {
	return TagStart + content + TagEnd
}

// Inject prepends customPrompt, wrapped in system tags, to prompt.
// An empty customPrompt returns prompt unchanged.
func Inject(customPrompt, prompt string) string {
	if customPrompt == "" {
		return prompt
	}
	return Wrap(customPrompt) + "\n\n" + prompt
}
