package value

import (
	"fmt"
	"log/slog"
	"time"
)

// Of imports Go-native data, as produced by encoding/json, yaml or jq.
// Unsupported Go types are logged and mapped to None.
func Of(x any) Value {
	switch x := x.(type) {
	case nil:
		return None()
	case Value:
		return x
	case bool:
		return Bool(x)
	case int:
		return Int(int64(x))
	case int8:
		return Int(int64(x))
	case int16:
		return Int(int64(x))
	case int32:
		return Int(int64(x))
	case int64:
		return Int(x)
	case uint:
		return Int(int64(x))
	case uint8:
		return Int(int64(x))
	case uint16:
		return Int(int64(x))
	case uint32:
		return Int(int64(x))
	case uint64:
		return Int(int64(x))
	case float32:
		return Float(float64(x))
	case float64:
		return Float(x)
	case string:
		return Str(x)
	case []byte:
		return Str(string(x))
	case []any:
		items := make([]Value, len(x))
		for i, e := range x {
			items[i] = Of(e)
		}
		return List(items...)
	case []string:
		items := make([]Value, len(x))
		for i, e := range x {
			items[i] = Str(e)
		}
		return List(items...)
	case map[string]any:
		m := make(map[string]Value, len(x))
		for k, e := range x {
			m[k] = Of(e)
		}
		return Dict(m)
	case map[any]any:
		m := make(map[string]Value, len(x))
		for k, e := range x {
			m[fmt.Sprint(k)] = Of(e)
		}
		return Dict(m)
	case Date:
		return DateOf(x)
	case Time:
		return TimeOf(x)
	case DateTime:
		return DateTimeOf(x)
	case time.Time:
		return DateTimeOf(DateTimeFromTime(x))
	case *HostObjectRef:
		return Host(x)
	case HostObject:
		return HostObjectOf(x)
	case ForeignHandle:
		return Foreign(x)
	default:
		slog.Warn("value: cannot convert Go value, using None", "type", fmt.Sprintf("%T", x))
		return None()
	}
}

// Native exports v as Go-native data suitable for encoding/json, yaml and
// jq. Dates and times become ISO 8601 strings; handles become their string
// rendering.
func (v Value) Native() any {
	switch v.tag {
	case TagNone:
		return nil
	case TagInteger:
		return v.Int()
	case TagFloating:
		return v.Float()
	case TagBoolean:
		return v.Bool()
	case TagString:
		return v.Str()
	case TagList:
		items := v.Items()
		out := make([]any, len(items))
		for i, x := range items {
			out[i] = x.Native()
		}
		return out
	case TagDict:
		m := v.Map()
		out := make(map[string]any, len(m))
		for k, x := range m {
			out[k] = x.Native()
		}
		return out
	case TagDate, TagTime, TagDateTime, TagForeign, TagHost:
		return v.String()
	}
	return nil
}
