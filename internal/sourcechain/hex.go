package sourcechain

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

func hexDecode(s string) ([]byte, error) {
	return hex.DecodeString(strings.TrimPrefix(s, "0x"))
}

func parseHexUint32(s string) (uint32, error) {
	n, err := strconv.ParseUint(strings.TrimPrefix(s, "0x"), 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid hex uint32 %q: %w", s, err)
	}
	return uint32(n), nil
}
