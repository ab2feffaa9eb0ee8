package courses

import (
	"bytes"
	"cmp"
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"slices"
	"strconv"
)

// JSON keys of the typed course fields.
const (
	fieldID       = "id"
	fieldCategory = "category"
	fieldSeqNo    = "seqNo"
)

// Course is one record of the managed collection.
//
// Fields holds every attribute the store does not inspect (description,
// iconUrl, lessonsCount and so on). On the wire a course is a flat JSON
// object; numeric values in Fields decode as [json.Number].
type Course struct {
	// ID uniquely identifies the course and never changes.
	ID string

	// Category groups courses (e.g. "BEGINNER", "ADVANCED").
	Category string

	// SeqNo orders courses within a category.
	SeqNo int

	// Fields contains the opaque additional attributes.
	Fields map[string]any
}

// Envelope is the response of the fetch-all call.
type Envelope struct {
	Payload []Course `json:"payload"`
}

// Changes is a partial course used by [Store.Save].
//
// "category" must be a string and "seqNo" an integral number. "id" is never
// applied locally. Every other key is shallow-merged into [Course.Fields].
type Changes map[string]any

// MarshalJSON encodes the course as a flat JSON object.
func (c Course) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(c.Fields)+3)
	for k, v := range c.Fields {
		m[k] = v
	}
	m[fieldID] = c.ID
	m[fieldCategory] = c.Category
	m[fieldSeqNo] = c.SeqNo
	return json.Marshal(m)
}

// UnmarshalJSON decodes a flat JSON object. A numeric id is accepted and
// stored as its decimal string.
func (c *Course) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return err
	}

	var out Course
	switch v := raw[fieldID].(type) {
	case string:
		out.ID = v
	case json.Number:
		out.ID = v.String()
	case nil:
		return fmt.Errorf("course: missing %q", fieldID)
	default:
		return fmt.Errorf("course: %q must be a string or number, got %T", fieldID, v)
	}

	if v, ok := raw[fieldCategory]; ok && v != nil {
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("course %s: %q must be a string, got %T", out.ID, fieldCategory, v)
		}
		out.Category = s
	}

	if v, ok := raw[fieldSeqNo]; ok && v != nil {
		n, ok := toInt(v)
		if !ok {
			return fmt.Errorf("course %s: %q must be an integer, got %v", out.ID, fieldSeqNo, v)
		}
		out.SeqNo = n
	}

	delete(raw, fieldID)
	delete(raw, fieldCategory)
	delete(raw, fieldSeqNo)
	if len(raw) > 0 {
		out.Fields = raw
	}

	*c = out
	return nil
}

// Apply returns a new course with changes shallow-merged over c. c itself
// is not modified.
func (c Course) Apply(changes Changes) (Course, error) {
	if err := changes.Validate(); err != nil {
		return Course{}, err
	}

	out := c
	out.Fields = maps.Clone(c.Fields)
	for k, v := range changes {
		switch k {
		case fieldID:
			// immutable
		case fieldCategory:
			out.Category = v.(string)
		case fieldSeqNo:
			out.SeqNo, _ = toInt(v)
		default:
			if out.Fields == nil {
				out.Fields = make(map[string]any, len(changes))
			}
			out.Fields[k] = v
		}
	}
	return out, nil
}

// Validate checks the types of the typed fields.
func (ch Changes) Validate() error {
	if v, ok := ch[fieldCategory]; ok {
		if _, isString := v.(string); !isString {
			return fmt.Errorf("%w: %q must be a string, got %T", ErrInvalidChanges, fieldCategory, v)
		}
	}
	if v, ok := ch[fieldSeqNo]; ok {
		if _, isInt := toInt(v); !isInt {
			return fmt.Errorf("%w: %q must be an integer, got %v", ErrInvalidChanges, fieldSeqNo, v)
		}
	}
	return nil
}

// InCategory returns the courses whose category equals category, ordered by
// SeqNo. Courses with equal SeqNo keep their relative order.
func InCategory(courses []Course, category string) []Course {
	out := make([]Course, 0, len(courses))
	for _, c := range courses {
		if c.Category == category {
			out = append(out, c)
		}
	}
	slices.SortStableFunc(out, func(a, b Course) int {
		return cmp.Compare(a.SeqNo, b.SeqNo)
	})
	return out
}

// toInt converts the numeric representations produced by JSON decoding and
// Go callers to an int. Non-integral values and values outside the int range
// are rejected; 2.0 and 1e2 count as integers.
func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		return floatToInt(n)
	case json.Number:
		if i, err := strconv.ParseInt(n.String(), 10, 64); err == nil {
			return int(i), true
		}
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return floatToInt(f)
	default:
		return 0, false
	}
}

// floatToInt accepts integral floats that fit in an int.
func floatToInt(f float64) (int, bool) {
	if f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	// -2^63 is exact; 2^63 is the first value past MaxInt64
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int(f), true
}
