package agent

import (
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

const fallbackEncoding = "cl100k_base"

var (
	encodingMu    sync.Mutex
	encodingCache = map[string]*tiktoken.Tiktoken{}
)

// CountTokens counts text tokens with the model's tiktoken encoding. Unknown
// models use cl100k_base; if no encoding loads, ApproxTokenCount is used.
func CountTokens(model, text string) int {
	if encoding := encodingFor(model); encoding != nil {
		return len(encoding.Encode(text, nil, nil))
	}
	return ApproxTokenCount(text)
}

// ApproxTokenCount estimates token usage by dividing character count by four.
func ApproxTokenCount(text string) int {
	return len(text) / 4
}

func encodingFor(model string) *tiktoken.Tiktoken {
	key := model
	if idx := strings.LastIndex(key, "/"); idx >= 0 {
		key = key[idx+1:]
	}
	encodingMu.Lock()
	defer encodingMu.Unlock()
	if encoding, ok := encodingCache[key]; ok {
		return encoding
	}
	encoding, err := tiktoken.EncodingForModel(key)
	if err != nil {
		encoding, err = tiktoken.GetEncoding(fallbackEncoding)
	}
	if err != nil {
		encoding = nil
	}
	encodingCache[key] = encoding
	return encoding
}
