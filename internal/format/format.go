package format

import (
	"fmt"
	"strconv"
	"strings"
)

// Value renders a single contributed scalar canonically. Plain strings are
// quoted and plain ints are bare; every other type carries its Go type name, so
// "1", 1, int32(1) and float64(1) never render the same.
func Value(v any) string {
	switch x := v.(type) {
	case nil:
		return "nil"
	case string:
		return fmt.Sprintf(`"%s"`, escapeString(x))
	case []byte:
		return formatBytesLiteral(x)
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case float32:
		return "float32(" + strconv.FormatFloat(float64(x), 'g', -1, 32) + ")"
	case float64:
		return "float64(" + strconv.FormatFloat(x, 'g', -1, 64) + ")"
	case int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, uintptr:
		return fmt.Sprintf("%T(%d)", v, v)
	case fmt.Stringer:
		return fmt.Sprintf(`%T("%s")`, v, escapeString(x.String()))
	default:
		return fmt.Sprintf("%T(%v)", v, v)
	}
}

// Values renders a run of scalars as a comma separated list.
func Values(vs []any) string {
	parts := make([]string, 0, len(vs))
	for _, v := range vs {
		parts = append(parts, Value(v))
	}
	return strings.Join(parts, ", ")
}
