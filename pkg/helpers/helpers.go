package helpers

import (
	"strconv"
	"time"
)

// FindByPath walks a decoded JSON object along the given key path and
// returns the value at the end of it. Index settings come back as nested
// maps with string leaf values, so callers usually combine this with the
// ParseSetting* helpers below.
func FindByPath(obj interface{}, keys []string) (interface{}, bool) {
	mobj, ok := obj.(map[string]interface{})
	if !ok {
		return nil, false
	}
	for i := 0; i < len(keys)-1; i++ {
		currentVal, found := mobj[keys[i]]
		if !found {
			return nil, false
		}
		subPath, ok := currentVal.(map[string]interface{})
		if !ok {
			return nil, false
		}
		mobj = subPath
	}
	val, ok := mobj[keys[len(keys)-1]]
	return val, ok
}

// ParseSettingInt64 reads an integer index setting, which the engine
// returns as a JSON string.
func ParseSettingInt64(obj interface{}, keys []string, fallback int64) int64 {
	val, ok := FindByPath(obj, keys)
	if !ok {
		return fallback
	}
	s, ok := val.(string)
	if !ok {
		return fallback
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

// ParseSettingBool reads a boolean index setting ("true"/"false" strings).
func ParseSettingBool(obj interface{}, keys []string) bool {
	val, ok := FindByPath(obj, keys)
	if !ok {
		return false
	}
	switch v := val.(type) {
	case bool:
		return v
	case string:
		b, err := strconv.ParseBool(v)
		return err == nil && b
	default:
		return false
	}
}

// ParseSettingTime reads an epoch-milliseconds setting such as
// index.creation_date.
func ParseSettingTime(obj interface{}, keys []string) (time.Time, bool) {
	millis := ParseSettingInt64(obj, keys, -1)
	if millis < 0 {
		return time.Time{}, false
	}
	return time.UnixMilli(millis).UTC(), true
}

// ContainsString reports whether s is present in the slice.
func ContainsString(slice []string, s string) bool {
	for _, item := range slice {
		if item == s {
			return true
		}
	}
	return false
}
