package extractor

import (
	"strings"

	"github.com/mfelsche/tremor-runtime/pkg/value"
)

func compileJSON(body string) (matchFn, error) {
	if strings.TrimSpace(body) != "" {
		return nil, invalidf("json takes no body, got %q", body)
	}
	return func(input string) Result {
		v, err := value.FromJSON([]byte(input))
		if err != nil {
			return NoMatch
		}
		return matched(v)
	}, nil
}

// compileKV splits inputs like "a=1 b=2". The body may override the pair
// and key/value separators as "pairsep:kvsep".
func compileKV(body string) (matchFn, error) {
	pairSep, kvSep := " ", "="
	if body != "" {
		var ok bool
		pairSep, kvSep, ok = strings.Cut(body, ":")
		if !ok || pairSep == "" || kvSep == "" {
			return nil, invalidf("kv %q: want pairsep:kvsep", body)
		}
	}

	return func(input string) Result {
		out := value.NewObject(0)
		for _, pair := range strings.Split(input, pairSep) {
			if pair == "" {
				continue
			}
			key, val, ok := strings.Cut(pair, kvSep)
			if !ok || key == "" {
				return NoMatch
			}
			out.Set(key, value.String(val))
		}
		if out.Len() == 0 {
			return NoMatch
		}
		return matched(out)
	}, nil
}
