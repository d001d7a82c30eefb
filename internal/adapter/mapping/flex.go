package mapping

import (
	"bytes"
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

// The legacy backend is loose about JSON types: numbers arrive as strings,
// booleans as "1"/"0", lists as comma separated strings or objects. The Flex
// types accept all of those and decode anything unusable to the zero value.

// FlexInt decodes numbers, numeric strings, booleans and null.
type FlexInt int64

func (v *FlexInt) UnmarshalJSON(data []byte) error {
	*v = FlexInt(parseInt(decodeScalar(data)))
	return nil
}

// FlexFloat decodes numbers and numeric strings.
type FlexFloat float64

func (v *FlexFloat) UnmarshalJSON(data []byte) error {
	*v = 0
	switch s := decodeScalar(data).(type) {
	case json.Number:
		if f, err := s.Float64(); err == nil {
			*v = FlexFloat(f)
		}
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			*v = FlexFloat(f)
		}
	}
	return nil
}

// FlexBool decodes booleans, 0/1 and the usual truthy strings.
type FlexBool bool

func (v *FlexBool) UnmarshalJSON(data []byte) error {
	switch s := decodeScalar(data).(type) {
	case bool:
		*v = FlexBool(s)
	case json.Number:
		*v = s.String() != "0" && s.String() != "0.0"
	case string:
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "1", "true", "yes", "on":
			*v = true
		default:
			*v = false
		}
	default:
		*v = false
	}
	return nil
}

// FlexString decodes strings and stringifies numbers and booleans.
type FlexString string

func (v *FlexString) UnmarshalJSON(data []byte) error {
	switch s := decodeScalar(data).(type) {
	case string:
		*v = FlexString(strings.TrimSpace(s))
	case json.Number:
		*v = FlexString(s.String())
	case bool:
		*v = FlexString(strconv.FormatBool(s))
	default:
		*v = ""
	}
	return nil
}

// FlexIDs decodes id lists given as arrays, objects (values are used),
// comma separated strings or a single scalar. Non-positive and duplicate
// ids are dropped.
type FlexIDs []int64

func (v *FlexIDs) UnmarshalJSON(data []byte) error {
	var raw any
	if err := decodeAny(data, &raw); err != nil {
		*v = FlexIDs{}
		return nil
	}
	var items []any
	switch t := raw.(type) {
	case []any:
		items = t
	case map[string]any:
		keys := lo.Keys(t)
		sort.Slice(keys, func(i, j int) bool { return parseInt(keys[i]) < parseInt(keys[j]) })
		for _, k := range keys {
			items = append(items, t[k])
		}
	case string:
		for _, part := range strings.Split(t, ",") {
			items = append(items, part)
		}
	case nil:
	default:
		items = []any{t}
	}
	ids := make([]int64, 0, len(items))
	seen := make(map[int64]struct{}, len(items))
	for _, item := range items {
		id := parseInt(item)
		if id <= 0 {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	*v = ids
	return nil
}

// FlexStrings decodes string lists given as arrays or a single string.
type FlexStrings []string

func (v *FlexStrings) UnmarshalJSON(data []byte) error {
	var raw any
	if err := decodeAny(data, &raw); err != nil {
		*v = FlexStrings{}
		return nil
	}
	out := FlexStrings{}
	add := func(item any) {
		switch s := item.(type) {
		case string:
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		case json.Number:
			out = append(out, s.String())
		}
	}
	switch t := raw.(type) {
	case []any:
		for _, item := range t {
			add(item)
		}
	default:
		add(t)
	}
	*v = out
	return nil
}

func decodeAny(data []byte, out *any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(out)
}

func decodeScalar(data []byte) any {
	var raw any
	if err := decodeAny(data, &raw); err != nil {
		return nil
	}
	return raw
}

func parseInt(v any) int64 {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return int64(f)
		}
	case string:
		if i, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64); err == nil {
			return i
		}
	case bool:
		if t {
			return 1
		}
	}
	return 0
}

func formatID(id int64) string { return strconv.FormatInt(id, 10) }

// FlexList decodes lists given as arrays or as objects, taking object values
// in key order. Other values decode to an empty list and null leaves the
// list untouched. Elements that fail to decode are skipped.
type FlexList[T any] []T

func (v *FlexList[T]) UnmarshalJSON(data []byte) error {
	if isNull(data) {
		return nil
	}
	items := rawItems(data)
	out := make(FlexList[T], 0, len(items))
	for _, raw := range items {
		var item T
		if err := json.Unmarshal(raw, &item); err == nil {
			out = append(out, item)
		}
	}
	*v = out
	return nil
}

// FlexMap decodes string-keyed objects. Arrays are keyed by index, so an
// empty PHP array decodes to an empty map. Other values decode to an empty
// map and null leaves the map untouched. Values that fail to decode are
// skipped.
type FlexMap[T any] map[string]T

func (v *FlexMap[T]) UnmarshalJSON(data []byte) error {
	if isNull(data) {
		return nil
	}
	out := FlexMap[T]{}
	add := func(key string, raw json.RawMessage) {
		var item T
		if err := json.Unmarshal(raw, &item); err == nil {
			out[key] = item
		}
	}
	switch firstByte(data) {
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(data, &obj); err == nil {
			for key, raw := range obj {
				add(key, raw)
			}
		}
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err == nil {
			for i, raw := range items {
				add(strconv.Itoa(i), raw)
			}
		}
	}
	*v = out
	return nil
}

// rawItems splits an array or object into its elements.
func rawItems(data []byte) []json.RawMessage {
	switch firstByte(data) {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err == nil {
			return items
		}
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(data, &obj); err == nil {
			keys := lo.Keys(obj)
			sort.Slice(keys, func(i, j int) bool { return lessKey(keys[i], keys[j]) })
			return lo.Map(keys, func(k string, _ int) json.RawMessage { return obj[k] })
		}
	}
	return nil
}

// lessKey orders numeric keys numerically and before any other key.
func lessKey(a, b string) bool {
	ai, aerr := strconv.ParseInt(a, 10, 64)
	bi, berr := strconv.ParseInt(b, 10, 64)
	switch {
	case aerr == nil && berr == nil:
		return ai < bi
	case aerr == nil || berr == nil:
		return aerr == nil
	default:
		return a < b
	}
}

// decodeObject decodes data into out only when it is a JSON object, so an
// empty PHP array or false leaves out at its zero value.
func decodeObject(data []byte, out any) error {
	if firstByte(data) != '{' {
		return nil
	}
	return json.Unmarshal(data, out)
}

func firstByte(data []byte) byte {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return 0
	}
	return data[0]
}

func isNull(data []byte) bool {
	return string(bytes.TrimSpace(data)) == "null"
}
