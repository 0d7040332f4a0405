package history

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const promptHashLen = 16

// PromptFingerprint returns a short stable digest of a prompt so identical
// prompts can be matched across runs. Surrounding whitespace is ignored.
func PromptFingerprint(prompt string) string {
	hash := sha256.Sum256([]byte(strings.TrimSpace(prompt)))
	return hex.EncodeToString(hash[:])[:promptHashLen]
}
