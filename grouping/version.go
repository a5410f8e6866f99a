package grouping

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is a parsed dotted-integer strategy version such as "1.10".
type Version []int

// ParseVersion parses s into its integer components. Components are plain
// decimal digits without leading zeros, so every version has one spelling.
func ParseVersion(s string) (Version, error) {
	if s == "" {
		return nil, fmt.Errorf("%w: empty version", ErrMalformedVersion)
	}
	parts := strings.Split(s, ".")
	v := make(Version, 0, len(parts))
	for _, p := range parts {
		if !isCanonicalNumber(p) {
			return nil, fmt.Errorf("%w: %q", ErrMalformedVersion, s)
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrMalformedVersion, s)
		}
		v = append(v, n)
	}
	return v, nil
}

// Compare orders v against o component-wise. Versions with a different number
// of components are not comparable.
func (v Version) Compare(o Version) (int, error) {
	if len(v) != len(o) {
		return 0, fmt.Errorf("%w: %s vs %s", ErrVersionShape, v, o)
	}
	for i := range v {
		switch {
		case v[i] < o[i]:
			return -1, nil
		case v[i] > o[i]:
			return 1, nil
		}
	}
	return 0, nil
}

func (v Version) String() string {
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ".")
}

func isCanonicalNumber(p string) bool {
	if p == "" || (len(p) > 1 && p[0] == '0') {
		return false
	}
	for i := 0; i < len(p); i++ {
		if p[i] < '0' || p[i] > '9' {
			return false
		}
	}
	return true
}
