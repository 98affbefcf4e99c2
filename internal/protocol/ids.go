package protocol

import "regexp"

// hexID24 matches the wire identifier format from spec.md §6: exactly 24
// lowercase hex characters (a MongoDB ObjectID's hex representation).
var hexID24 = regexp.MustCompile(`^[0-9a-f]{24}$`)

// Cookie is the opaque session cookie a client attaches to authenticated
// requests. Its value equals the owning user's id, but it is kept as a
// distinct type so handler code can't accidentally treat a cookie as some
// other kind of identifier (spec.md §9 design note).
type Cookie string

// ValidID reports whether id looks like a 24-character lowercase hex string.
func ValidID(id string) bool { return hexID24.MatchString(id) }

// String lets Cookie satisfy fmt.Stringer for logging.
func (c Cookie) String() string { return string(c) }
