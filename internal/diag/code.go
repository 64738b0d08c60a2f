package diag

import (
	"strconv"
)

// Code is the compiler's numeric error identifier as printed in the listing.
type Code uint16

// UnknownCode marks a listing code that did not fit into Code.
const UnknownCode Code = 0

// ParseCode converts the decimal digits of a listing marker into a Code.
// Values outside the uint16 range yield UnknownCode and false.
func ParseCode(s string) (Code, bool) {
	v, err := strconv.ParseUint(s, 10, 16)
	if err != nil || v == 0 {
		return UnknownCode, false
	}
	return Code(v), true
}

// ID returns the short form used in listings and editor UIs, e.g. "$140".
func (c Code) ID() string {
	if c == UnknownCode {
		return "$?"
	}
	return "$" + strconv.FormatUint(uint64(c), 10)
}

func (c Code) String() string {
	return strconv.FormatUint(uint64(c), 10)
}
