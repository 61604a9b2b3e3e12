package spaceeye

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// parseByteSize reads sizes such as "512k", "64mb" or "1.5g". Units are
// powers of 1024; a bare number is bytes.
func parseByteSize(s string) (int64, error) {
	v := strings.TrimSpace(strings.ToLower(s))
	if v == "" {
		return 0, errors.New("empty size")
	}
	v = strings.TrimSuffix(v, "b")

	mult := float64(1)
	for suffix, m := range map[string]float64{"k": 1 << 10, "m": 1 << 20, "g": 1 << 30} {
		if rest, ok := strings.CutSuffix(v, suffix); ok {
			v, mult = rest, m
			break
		}
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, fmt.Errorf("size %q: %w", s, err)
	}
	if f < 0 {
		return 0, fmt.Errorf("size %q: negative", s)
	}
	n := f * mult
	if !(n < math.MaxInt64) {
		return 0, fmt.Errorf("size %q: out of range", s)
	}
	return int64(n), nil
}
