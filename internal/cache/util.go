package cache

import (
	"crypto/md5"
	"encoding/hex"
)

// selectorHashOf derives a SelectorRecord's identity: hash(selector)
// (spec.md §3.1).
func selectorHashOf(selector string) string {
	sum := md5.Sum([]byte(selector))
	return hex.EncodeToString(sum[:])
}
