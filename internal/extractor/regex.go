package extractor

import (
	"encoding/base64"
	"regexp"
	"strings"

	"github.com/mfelsche/tremor-runtime/pkg/value"
)

// compileRegex matches anywhere in the input and yields the named groups
// that took part in the match.
func compileRegex(body string) (matchFn, error) {
	re, err := regexp.Compile(body)
	if err != nil {
		return nil, invalidf("regex %q: %v", body, err)
	}
	names := re.SubexpNames()

	return func(input string) Result {
		loc := re.FindStringSubmatchIndex(input)
		if loc == nil {
			return NoMatch
		}
		out := value.NewObject(len(names))
		for i, name := range names {
			if name == "" || loc[2*i] < 0 {
				continue
			}
			out.Set(name, value.String(input[loc[2*i]:loc[2*i+1]]))
		}
		return matched(out)
	}, nil
}

var base64Encodings = map[string]*base64.Encoding{
	"":       base64.StdEncoding,
	"std":    base64.StdEncoding,
	"url":    base64.URLEncoding,
	"raw":    base64.RawStdEncoding,
	"rawurl": base64.RawURLEncoding,
}

func compileBase64(body string) (matchFn, error) {
	enc, ok := base64Encodings[strings.TrimSpace(body)]
	if !ok {
		return nil, invalidf("base64 encoding %q (want std, url, raw or rawurl)", body)
	}
	return func(input string) Result {
		decoded, err := enc.DecodeString(input)
		if err != nil {
			return NoMatch
		}
		return matched(value.String(decoded))
	}, nil
}
