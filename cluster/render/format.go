package render

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// FormatReturn formats a minion return value as display text.
func FormatReturn(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return "(none)"
	case string:
		if val == "" {
			return "(empty)"
		}
		return val
	case bool, float64, int, int64:
		return fmt.Sprint(val)
	}

	b, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return strings.TrimRight(string(b), "\n")
}
