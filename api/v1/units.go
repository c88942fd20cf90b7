package v1

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Duration is a time span expressed with OpenSearch-style units ("7d",
// "12h", "30m", "45s", "500ms"). It marshals to and from its string form.
type Duration time.Duration

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func (d Duration) String() string {
	v := time.Duration(d)
	switch {
	case v >= 24*time.Hour && v%(24*time.Hour) == 0:
		return fmt.Sprintf("%dd", v/(24*time.Hour))
	case v >= time.Hour && v%time.Hour == 0:
		return fmt.Sprintf("%dh", v/time.Hour)
	case v >= time.Minute && v%time.Minute == 0:
		return fmt.Sprintf("%dm", v/time.Minute)
	case v >= time.Second && v%time.Second == 0:
		return fmt.Sprintf("%ds", v/time.Second)
	default:
		return fmt.Sprintf("%dms", v/time.Millisecond)
	}
}

func ParseDuration(s string) (Duration, error) {
	orig := s
	s = strings.TrimSpace(strings.ToLower(s))
	unit := time.Millisecond
	switch {
	case strings.HasSuffix(s, "ms"):
		s = strings.TrimSuffix(s, "ms")
	case strings.HasSuffix(s, "s"):
		unit = time.Second
		s = strings.TrimSuffix(s, "s")
	case strings.HasSuffix(s, "m"):
		unit = time.Minute
		s = strings.TrimSuffix(s, "m")
	case strings.HasSuffix(s, "h"):
		unit = time.Hour
		s = strings.TrimSuffix(s, "h")
	case strings.HasSuffix(s, "d"):
		unit = 24 * time.Hour
		s = strings.TrimSuffix(s, "d")
	default:
		return 0, fmt.Errorf("duration %q has no unit (expected d, h, m, s or ms)", orig)
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", orig, err)
	}
	return Duration(time.Duration(n) * unit), nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseDuration(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ByteSize is a storage size expressed with OpenSearch-style units ("50gb",
// "512mb"). Units are powers of 1024.
type ByteSize int64

const (
	KB ByteSize = 1 << (10 * (iota + 1))
	MB
	GB
	TB
)

func (b ByteSize) String() string {
	switch {
	case b >= TB && b%TB == 0:
		return fmt.Sprintf("%dtb", b/TB)
	case b >= GB && b%GB == 0:
		return fmt.Sprintf("%dgb", b/GB)
	case b >= MB && b%MB == 0:
		return fmt.Sprintf("%dmb", b/MB)
	case b >= KB && b%KB == 0:
		return fmt.Sprintf("%dkb", b/KB)
	default:
		return fmt.Sprintf("%db", int64(b))
	}
}

func ParseByteSize(s string) (ByteSize, error) {
	orig := s
	s = strings.TrimSpace(strings.ToLower(s))
	unit := ByteSize(1)
	switch {
	case strings.HasSuffix(s, "tb"):
		unit = TB
		s = strings.TrimSuffix(s, "tb")
	case strings.HasSuffix(s, "gb"):
		unit = GB
		s = strings.TrimSuffix(s, "gb")
	case strings.HasSuffix(s, "mb"):
		unit = MB
		s = strings.TrimSuffix(s, "mb")
	case strings.HasSuffix(s, "kb"):
		unit = KB
		s = strings.TrimSuffix(s, "kb")
	case strings.HasSuffix(s, "b"):
		s = strings.TrimSuffix(s, "b")
	default:
		return 0, fmt.Errorf("byte size %q has no unit (expected b, kb, mb, gb or tb)", orig)
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid byte size %q: %w", orig, err)
	}
	return ByteSize(n) * unit, nil
}

func (b ByteSize) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.String())
}

func (b *ByteSize) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseByteSize(s)
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}
