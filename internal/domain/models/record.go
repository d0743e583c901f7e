package models

import "time"

// SObject represents a generic record: an opaque key-value map whose shape is
// defined by its object's field metadata. Only Id is special to the engine.
type SObject map[string]interface{}

func (s SObject) GetString(key string) string {
	if val, ok := s[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}

func (s SObject) GetBool(key string) bool {
	if val, ok := s[key]; ok {
		if b, ok := val.(bool); ok {
			return b
		}
	}
	return false
}

func (s SObject) GetTime(key string) time.Time {
	if val, ok := s[key]; ok {
		if t, ok := val.(time.Time); ok {
			return t
		}
		if tStr, ok := val.(string); ok {
			parsed, _ := time.Parse(time.RFC3339, tStr)
			return parsed
		}
	}
	return time.Time{}
}

// Clone returns a shallow copy of the record
func (s SObject) Clone() SObject {
	out := make(SObject, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Merge overlays the given fields onto a copy of the record. Used before
// validation so formulas see the full post-update shape, not just the patch.
func (s SObject) Merge(updates SObject) SObject {
	out := s.Clone()
	for k, v := range updates {
		out[k] = v
	}
	return out
}
