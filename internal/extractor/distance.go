package extractor

import (
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/mfelsche/tremor-runtime/pkg/value"
)

// compileDistance parses "N:target" and matches inputs within N edits of
// target, yielding the Levenshtein distance.
func compileDistance(body string) (matchFn, error) {
	limit, target, ok := strings.Cut(body, ":")
	if !ok {
		return nil, invalidf("distance %q: want N:target", body)
	}
	maxEdits, err := strconv.Atoi(strings.TrimSpace(limit))
	if err != nil || maxEdits < 0 {
		return nil, invalidf("distance %q: %q is not a non-negative integer", body, limit)
	}

	return func(input string) Result {
		d := fuzzy.LevenshteinDistance(input, target)
		if d > maxEdits {
			return NoMatch
		}
		return matched(value.Int(d))
	}, nil
}

func compileJumpHash(body string) (matchFn, error) {
	buckets, err := strconv.ParseInt(strings.TrimSpace(body), 10, 32)
	if err != nil || buckets <= 0 {
		return nil, invalidf("jumphash %q: want a positive bucket count", body)
	}
	return func(input string) Result {
		return matched(value.Int(JumpHash(input, int32(buckets))))
	}, nil
}

// JumpHash assigns key to one of buckets using Jump Consistent Hash over the
// xxhash64 digest of key. Growing buckets from n to n+1 moves only about
// 1/(n+1) of the keys.
func JumpHash(key string, buckets int32) int32 {
	if buckets <= 0 {
		return 0
	}
	h := xxhash.Sum64String(key)
	var b, j int64 = -1, 0
	for j < int64(buckets) {
		b = j
		h = h*2862933555777941757 + 1
		j = int64(float64(b+1) * (float64(int64(1)<<31) / float64((h>>33)+1)))
	}
	return int32(b)
}
