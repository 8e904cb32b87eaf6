package integrity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"sort"
	"strconv"
	"strings"
)

// Canonicalize returns a deterministic text form of a JSON-like value.
//
// Objects are emitted with their keys sorted lexicographically, arrays keep
// their element order, and numbers are normalized so that 1, 1.0 and 1e0
// produce the same text. Values that are not JSON-like (structs, typed slices)
// are first round-tripped through encoding/json.
func Canonicalize(v any) (string, error) {
	var sb strings.Builder
	if err := writeCanonical(&sb, v); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// writeCanonical appends the canonical form of v to sb.
func writeCanonical(sb *strings.Builder, v any) error {
	switch val := v.(type) {
	case nil:
		sb.WriteString("null")
	case bool:
		if val {
			sb.WriteString("true")
		} else {
			sb.WriteString("false")
		}
	case string:
		return writeString(sb, val)
	case json.Number:
		if lit, ok := integerLiteral(val.String()); ok {
			sb.WriteString(lit)
			return nil
		}
		f, err := val.Float64()
		if err != nil {
			return fmt.Errorf("invalid number %q: %w", val.String(), err)
		}
		sb.WriteString(formatNumber(f))
	case float64:
		sb.WriteString(formatNumber(val))
	case float32:
		sb.WriteString(formatNumber(float64(val)))
	case int:
		sb.WriteString(strconv.FormatInt(int64(val), 10))
	case int32:
		sb.WriteString(strconv.FormatInt(int64(val), 10))
	case int64:
		sb.WriteString(strconv.FormatInt(val, 10))
	case uint:
		sb.WriteString(strconv.FormatUint(uint64(val), 10))
	case uint32:
		sb.WriteString(strconv.FormatUint(uint64(val), 10))
	case uint64:
		sb.WriteString(strconv.FormatUint(val, 10))
	case []any:
		sb.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				sb.WriteByte(',')
			}
			if err := writeCanonical(sb, elem); err != nil {
				return err
			}
		}
		sb.WriteByte(']')
	case []map[string]any:
		sb.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				sb.WriteByte(',')
			}
			if err := writeObject(sb, elem); err != nil {
				return err
			}
		}
		sb.WriteByte(']')
	case map[string]any:
		return writeObject(sb, val)
	default:
		normalized, err := normalize(val)
		if err != nil {
			return err
		}
		return writeCanonical(sb, normalized)
	}
	return nil
}

// writeObject writes a map with sorted keys.
func writeObject(sb *strings.Builder, m map[string]any) error {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	sb.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte(',')
		}
		if err := writeString(sb, k); err != nil {
			return err
		}
		sb.WriteByte(':')
		if err := writeCanonical(sb, m[k]); err != nil {
			return err
		}
	}
	sb.WriteByte('}')
	return nil
}

// writeString writes a JSON string literal without HTML escaping.
func writeString(sb *strings.Builder, s string) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	// Encode appends a newline.
	sb.Write(bytes.TrimRight(buf.Bytes(), "\n"))
	return nil
}

// formatNumber renders f the way ECMAScript Number::toString does: plain
// decimal notation for 1e-6 <= |f| < 1e21 and the shortest round-trip digits
// with an unpadded exponent ("1e-7", "1.5e+21") outside that range.
func formatNumber(f float64) string {
	if f == 0 {
		return "0" // also folds negative zero
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "null"
	}

	sign := ""
	if f < 0 {
		sign = "-"
		f = -f
	}

	// Shortest digits as d.ddde±XX.
	sci := strconv.FormatFloat(f, 'e', -1, 64)
	mant, expText, _ := strings.Cut(sci, "e")
	exp, _ := strconv.Atoi(expText)
	digits := strings.Replace(mant, ".", "", 1)
	k := len(digits)
	n := exp + 1 // position of the decimal point relative to digits

	switch {
	case k <= n && n <= 21:
		return sign + digits + strings.Repeat("0", n-k)
	case 0 < n && n <= 21:
		return sign + digits[:n] + "." + digits[n:]
	case -6 < n && n <= 0:
		return sign + "0." + strings.Repeat("0", -n) + digits
	}

	expSign := "+"
	if n-1 < 0 {
		expSign = "-"
	}
	e := expSign + strconv.Itoa(abs(n-1))
	if k == 1 {
		return sign + digits + "e" + e
	}
	return sign + digits[:1] + "." + digits[1:] + "e" + e
}

// integerLiteral returns the decimal text of a JSON integer literal whose
// magnitude exceeds the exactly representable float64 range, so distinct
// large identifiers never collapse onto the same value.
func integerLiteral(s string) (string, bool) {
	if strings.ContainsAny(s, ".eE") {
		return "", false
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil && n > -maxExactInt && n < maxExactInt {
		return "", false
	}
	var z big.Int
	if _, ok := z.SetString(s, 10); !ok {
		return "", false
	}
	return z.String(), true
}

// maxExactInt is 2^53; every integer below it survives a float64 round trip.
const maxExactInt = 1 << 53

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// normalize converts an arbitrary Go value into the generic JSON shapes
// understood by writeCanonical.
func normalize(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("value of type %T is not JSON-like: %w", v, err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}
