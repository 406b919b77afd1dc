package value

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/vmihailenco/msgpack/v5"
)

// Values are encoded as a two element msgpack array [tag, payload]. Dates
// and times encode their fields as an integer array. Handles refer to live
// objects and cannot be persisted; they encode as None.

var (
	_ msgpack.CustomEncoder = Value{}
	_ msgpack.CustomDecoder = (*Value)(nil)
)

// EncodeMsgpack implements msgpack.CustomEncoder.
func (v Value) EncodeMsgpack(enc *msgpack.Encoder) error {
	tag := v.tag
	if tag == TagForeign || tag == TagHost {
		slog.Warn("value: handle is not serializable, encoding None", "tag", tag)
		tag = TagNone
	}
	if err := enc.EncodeArrayLen(2); err != nil {
		return err
	}
	if err := enc.EncodeInt(int64(tag)); err != nil {
		return err
	}
	switch tag {
	case TagNone:
		return enc.EncodeNil()
	case TagInteger:
		return enc.EncodeInt(v.Int())
	case TagFloating:
		return enc.EncodeFloat64(v.Float())
	case TagBoolean:
		return enc.EncodeBool(v.Bool())
	case TagString:
		return enc.EncodeString(v.Str())
	case TagList:
		items := v.Items()
		if err := enc.EncodeArrayLen(len(items)); err != nil {
			return err
		}
		for _, x := range items {
			if err := x.EncodeMsgpack(enc); err != nil {
				return err
			}
		}
		return nil
	case TagDict:
		m := v.Map()
		if err := enc.EncodeMapLen(len(m)); err != nil {
			return err
		}
		for _, k := range slices.Sorted(maps.Keys(m)) {
			if err := enc.EncodeString(k); err != nil {
				return err
			}
			if err := m[k].EncodeMsgpack(enc); err != nil {
				return err
			}
		}
		return nil
	case TagDate:
		d := v.Date()
		return encodeInts(enc, d.Year, d.Month, d.Day)
	case TagTime:
		t := v.Time()
		return encodeInts(enc, t.Hour, t.Minute, t.Second, t.Millisecond)
	case TagDateTime:
		dt := v.DateTime()
		return encodeInts(enc, dt.Year, dt.Month, dt.Day, dt.Hour, dt.Minute, dt.Second, dt.Millisecond)
	}
	return fmt.Errorf("value: cannot encode tag %v", tag)
}

// DecodeMsgpack implements msgpack.CustomDecoder.
func (v *Value) DecodeMsgpack(dec *msgpack.Decoder) error {
	n, err := dec.DecodeArrayLen()
	if err != nil {
		return err
	}
	if n != 2 {
		return fmt.Errorf("value: expected [tag, payload], got %d elements", n)
	}
	t, err := dec.DecodeInt()
	if err != nil {
		return err
	}
	switch tag := Tag(t); tag {
	case TagNone:
		*v = None()
		return dec.DecodeNil()
	case TagInteger:
		i, err := dec.DecodeInt64()
		*v = Int(i)
		return err
	case TagFloating:
		f, err := dec.DecodeFloat64()
		*v = Float(f)
		return err
	case TagBoolean:
		b, err := dec.DecodeBool()
		*v = Bool(b)
		return err
	case TagString:
		s, err := dec.DecodeString()
		*v = Str(s)
		return err
	case TagList:
		n, err := dec.DecodeArrayLen()
		if err != nil {
			return err
		}
		items := make([]Value, max(n, 0))
		for i := range items {
			if err := items[i].DecodeMsgpack(dec); err != nil {
				return err
			}
		}
		*v = List(items...)
		return nil
	case TagDict:
		n, err := dec.DecodeMapLen()
		if err != nil {
			return err
		}
		m := make(map[string]Value, max(n, 0))
		for range n {
			k, err := dec.DecodeString()
			if err != nil {
				return err
			}
			var x Value
			if err := x.DecodeMsgpack(dec); err != nil {
				return err
			}
			m[k] = x
		}
		*v = Dict(m)
		return nil
	case TagDate:
		f, err := decodeInts(dec, 3)
		if err != nil {
			return err
		}
		*v = DateOf(Date{Year: f[0], Month: f[1], Day: f[2]})
		return nil
	case TagTime:
		f, err := decodeInts(dec, 4)
		if err != nil {
			return err
		}
		*v = TimeOf(Time{Hour: f[0], Minute: f[1], Second: f[2], Millisecond: f[3]})
		return nil
	case TagDateTime:
		f, err := decodeInts(dec, 7)
		if err != nil {
			return err
		}
		*v = DateTimeOf(DateTime{
			Date: Date{Year: f[0], Month: f[1], Day: f[2]},
			Time: Time{Hour: f[3], Minute: f[4], Second: f[5], Millisecond: f[6]},
		})
		return nil
	default:
		return fmt.Errorf("value: cannot decode tag %v", tag)
	}
}

// Marshal encodes v with msgpack.
func Marshal(v Value) ([]byte, error) {
	return msgpack.Marshal(v)
}

// Unmarshal decodes a msgpack encoded Value.
func Unmarshal(data []byte) (Value, error) {
	var v Value
	err := msgpack.Unmarshal(data, &v)
	return v, err
}

func encodeInts(enc *msgpack.Encoder, fields ...int) error {
	if err := enc.EncodeArrayLen(len(fields)); err != nil {
		return err
	}
	for _, f := range fields {
		if err := enc.EncodeInt(int64(f)); err != nil {
			return err
		}
	}
	return nil
}

func decodeInts(dec *msgpack.Decoder, want int) ([]int, error) {
	n, err := dec.DecodeArrayLen()
	if err != nil {
		return nil, err
	}
	if n != want {
		return nil, fmt.Errorf("value: expected %d fields, got %d", want, n)
	}
	out := make([]int, n)
	for i := range out {
		if out[i], err = dec.DecodeInt(); err != nil {
			return nil, err
		}
	}
	return out, nil
}
