package job

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

const kwargMarker = "__kwarg__"

var (
	jidPattern        = regexp.MustCompile(`^[2-9][0-9]{19}$`)
	embeddedJIDRegexp = regexp.MustCompile(`\b[2-9][0-9]{3}[01][0-9][0-3][0-9][0-2][0-9][0-5][0-9][0-5][0-9][0-9]{6}\b`)
	identifierPattern = regexp.MustCompile(`(?i)^[a-z_][a-z0-9_]*(?:[.][a-z0-9_]+)*$`)
)

// IsJID determines if s looks like a job id.
func IsJID(s string) bool {
	return jidPattern.MatchString(s)
}

// DecodeArguments formats the raw arguments of a job the way they
// would be typed on the command line. The result has a leading space
// for every argument.
func DecodeArguments(raw interface{}) string {
	if raw == nil {
		return ""
	}

	args, ok := raw.([]interface{})
	if !ok {
		return " " + decodeArgument(raw)
	}

	var sb strings.Builder
	for _, arg := range args {
		kwargs, ok := arg.(map[string]interface{})
		if !ok {
			sb.WriteString(" " + decodeArgument(arg))
			continue
		}
		if _, isKwargs := kwargs[kwargMarker]; !isKwargs {
			sb.WriteString(" " + decodeArgument(arg))
			continue
		}

		keys := make([]string, 0, len(kwargs))
		for k := range kwargs {
			if k == kwargMarker {
				continue
			}
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			sb.WriteString(" " + k + "=" + decodeArgument(kwargs[k]))
		}
	}
	return sb.String()
}

func decodeArgument(v interface{}) string {
	s, ok := v.(string)
	if ok && (IsJID(s) || identifierPattern.MatchString(s)) {
		return s
	}

	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
