package extract

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// looseString accepts a JSON string, number or {"text": "..."} object.
// Any other shape decodes to "".
type looseString string

func (s *looseString) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()

	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return err
	}

	switch x := v.(type) {
	case string:
		*s = looseString(x)
	case json.Number:
		*s = looseString(x.String())
	case map[string]interface{}:
		if text, ok := x["text"].(string); ok {
			*s = looseString(text)
		}
	default:
		*s = ""
	}
	return nil
}

func (s looseString) String() string {
	return strings.TrimSpace(string(s))
}

// looseInt accepts a JSON number or numeric string; anything else is 0
type looseInt int

func (n *looseInt) UnmarshalJSON(b []byte) error {
	var num json.Number
	if err := json.Unmarshal(b, &num); err != nil {
		*n = 0
		return nil
	}
	i, err := num.Int64()
	if err != nil {
		f, ferr := num.Float64()
		if ferr != nil {
			*n = 0
			return nil
		}
		i = int64(f)
	}
	*n = looseInt(i)
	return nil
}

// looseBool accepts a JSON bool, a string such as "true" or "0", or a
// number (non-zero is true). Anything else is false.
type looseBool bool

func (v *looseBool) UnmarshalJSON(b []byte) error {
	*v = false
	var x interface{}
	if err := json.Unmarshal(b, &x); err != nil {
		return nil
	}
	switch t := x.(type) {
	case bool:
		*v = looseBool(t)
	case float64:
		*v = t != 0
	case string:
		if parsed, err := strconv.ParseBool(strings.TrimSpace(t)); err == nil {
			*v = looseBool(parsed)
		}
	}
	return nil
}

// looseFloat accepts a JSON number or numeric string. Other shapes leave it
// unset, which is distinct from zero.
type looseFloat struct {
	value float64
	set   bool
}

func (f *looseFloat) UnmarshalJSON(b []byte) error {
	*f = looseFloat{}
	var x interface{}
	if err := json.Unmarshal(b, &x); err != nil {
		return nil
	}
	switch t := x.(type) {
	case float64:
		*f = looseFloat{value: t, set: true}
	case string:
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil {
			*f = looseFloat{value: parsed, set: true}
		}
	}
	return nil
}

// ptr returns nil when no number was decoded
func (f looseFloat) ptr() *float64 {
	if !f.set {
		return nil
	}
	v := f.value
	return &v
}

// lenient decodes a nested object into T. A value of the wrong shape, or
// null, leaves it unset instead of failing the enclosing record.
type lenient[T any] struct {
	val T
	ok  bool
}

func (l *lenient[T]) UnmarshalJSON(b []byte) error {
	var zero T
	l.val, l.ok = zero, false
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		return nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return nil
	}
	l.val, l.ok = v, true
	return nil
}

func (l lenient[T]) get() (T, bool) {
	return l.val, l.ok
}

// imageRef accepts an image given as a URL string, an {"url": ...} object or
// an array of either (first entry wins).
type imageRef struct {
	URL string
}

func (r *imageRef) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		r.URL = s
		return nil
	}

	var obj struct {
		URL looseString `json:"url"`
	}
	if err := json.Unmarshal(b, &obj); err == nil {
		r.URL = obj.URL.String()
		return nil
	}

	var list []json.RawMessage
	if err := json.Unmarshal(b, &list); err == nil && len(list) > 0 {
		return r.UnmarshalJSON(list[0])
	}
	return nil
}

func (r *imageRef) url() string {
	if r == nil {
		return ""
	}
	return strings.TrimSpace(r.URL)
}

// firstNonEmpty returns the first argument that is not blank
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
