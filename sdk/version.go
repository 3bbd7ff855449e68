package sdk

import (
	"fmt"
	"strconv"
	"strings"
)

// SDKVersion is the release of this client library. It is sent in the default
// User-Agent header.
const SDKVersion = "1.4.0"

// ClientInterface is the server interface number this SDK was built against.
// A server advertising version "current:revision:age" supports it when
// current-age <= ClientInterface <= current.
const ClientInterface = 6

// Version is a libtool-style "current:revision:age" triple advertised by the
// payment backend in its configuration payload.
//
// Current is the newest interface the server implements, Revision counts
// implementation changes of that interface, and Age tells how many interfaces
// before Current are still served.
type Version struct {
	Current  int
	Revision int
	Age      int
}

// String formats the triple back into its wire form.
func (v Version) String() string {
	return fmt.Sprintf("%d:%d:%d", v.Current, v.Revision, v.Age)
}

// Supports reports whether a client built against clientCurrent can talk to a
// server advertising v.
func (v Version) Supports(clientCurrent int) bool {
	return IsCompatible(v.Current, v.Age, clientCurrent)
}

// ParseVersion parses "current:revision:age". It returns false, not an error,
// for anything that is not exactly three colon-separated non-negative decimal
// integers. Malformed versions are expected from older servers.
//
// Example:
//
//	v, ok := sdk.ParseVersion("6:3:2")
//	// v == sdk.Version{Current: 6, Revision: 3, Age: 2}, ok == true
//
//	_, ok = sdk.ParseVersion("6.3.2")
//	// ok == false
func ParseVersion(s string) (Version, bool) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return Version{}, false
	}

	var nums [3]int
	for i, part := range parts {
		n, ok := parseUint(part)
		if !ok {
			return Version{}, false
		}
		nums[i] = n
	}

	return Version{Current: nums[0], Revision: nums[1], Age: nums[2]}, true
}

// parseUint accepts digits only: no sign, no spaces, no empty segments.
func parseUint(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

// IsCompatible reports whether a server that implements interfaces
// serverCurrent-serverAge through serverCurrent (inclusive) accepts a client
// built against clientCurrent.
//
//	sdk.IsCompatible(6, 2, 6) // true
//	sdk.IsCompatible(6, 2, 4) // true
//	sdk.IsCompatible(6, 2, 3) // false
//	sdk.IsCompatible(5, 1, 3) // false
func IsCompatible(serverCurrent, serverAge, clientCurrent int) bool {
	return clientCurrent <= serverCurrent && clientCurrent >= serverCurrent-serverAge
}

// CheckServerVersion compares the server's advertised version with
// ClientInterface. An incompatible server produces exactly one warning on
// logger and the function returns false; the caller carries on regardless.
//
// A version string that does not parse is treated as compatible and nothing is
// logged.
func CheckServerVersion(logger Logger, serverVersion string) bool {
	v, ok := ParseVersion(serverVersion)
	if !ok {
		return true
	}
	if v.Supports(ClientInterface) {
		return true
	}
	if logger != nil {
		warnf(logger, "server API version %s does not support client interface %d (supported range %d..%d); requests may fail",
			v, ClientInterface, v.Current-v.Age, v.Current)
	}
	return false
}
