package logger

import (
	"strconv"
	"strings"
	"sync"
)

// ratioSampler lets num out of every den calls through. A zero ratio lets
// everything through.
type ratioSampler struct {
	mu  sync.Mutex
	num int
	den int
	n   uint64
}

func newRatioSampler(num, den int) *ratioSampler {
	s := &ratioSampler{}
	s.Set(num, den)
	return s
}

// Set replaces the ratio and restarts the cycle.
func (s *ratioSampler) Set(num, den int) {
	if num <= 0 || den <= 0 {
		num, den = 0, 0
	}
	if num > den {
		num = den
	}
	s.mu.Lock()
	s.num, s.den, s.n = num, den, 0
	s.mu.Unlock()
}

// Allow reports whether the current call passes.
func (s *ratioSampler) Allow() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.den == 0 {
		return true
	}
	ok := int(s.n%uint64(s.den)) < s.num
	s.n++
	return ok
}

// parseRatioSpec reads "n/d" or "d" (one in d). Invalid input yields 0, 0.
func parseRatioSpec(spec string) (int, int) {
	numStr, denStr, found := strings.Cut(strings.TrimSpace(spec), "/")
	if !found {
		numStr, denStr = "1", numStr
	}
	num, err := strconv.Atoi(strings.TrimSpace(numStr))
	if err != nil {
		return 0, 0
	}
	den, err := strconv.Atoi(strings.TrimSpace(denStr))
	if err != nil || num <= 0 || den <= 0 {
		return 0, 0
	}
	return num, den
}
