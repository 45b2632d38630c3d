package core

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// digestLines hashes newline-joined lines into "sha256:<hex>".
func digestLines(lines []string) string {
	sum := sha256.Sum256([]byte(strings.Join(lines, "\n")))
	return "sha256:" + hex.EncodeToString(sum[:])
}
