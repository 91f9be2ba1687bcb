package store

import "bytes"

// Range is a key range in etcd's notation.
// An empty End selects exactly the key Start, an End of "\x00" selects all keys
// >= Start and any other End selects the half-open range [Start, End).
type Range struct {
	Start []byte
	End   []byte
}

// PrefixRange returns the range of all keys that start with prefix.
// etcd expresses a prefix by setting the range end to the prefix with its last
// byte incremented. The increment wraps for 0xFF and is not special-cased:
// for a longer prefix the end falls below the start (an empty range), for the
// one-byte prefix 0xFF the end becomes "\x00", which selects all keys >= 0xFF.
// An empty prefix yields an empty End, i.e. the single empty key.
func PrefixRange(prefix []byte) Range {
	start := append([]byte(nil), prefix...)
	end := append([]byte(nil), prefix...)
	if n := len(end); n > 0 {
		end[n-1]++
	}
	return Range{Start: start, End: end}
}

// Contains reports whether key lies in the range
func (r Range) Contains(key []byte) bool {
	switch {
	case len(r.End) == 0:
		return bytes.Equal(key, r.Start)
	case len(r.End) == 1 && r.End[0] == 0:
		return bytes.Compare(key, r.Start) >= 0
	default:
		return bytes.Compare(key, r.Start) >= 0 && bytes.Compare(key, r.End) < 0
	}
}
