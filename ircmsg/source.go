// written by Daniel Oaks <daniel@danieloaks.net>
// released under the ISC license

package ircmsg

import (
	"errors"
	"strings"
)

var (
	// ErrorNUHIsEmpty indicates that the given NUH was empty.
	ErrorNUHIsEmpty = errors.New("NUH is empty")

	// ErrorNUHContainsBadChar indicates that the NUH contained invalid characters
	ErrorNUHContainsBadChar = errors.New("NUH contains invalid characters")
)

// NUH represents a message prefix that originates from a user, arranged as
// nick[!user][@host]. User and Host may be empty.
type NUH struct {
	Nick string
	User string
	Host string
}

// ParseNUH splits a prefix into its nickname, username and hostname parts.
func ParseNUH(in string) (out NUH, err error) {
	if len(in) == 0 {
		return out, ErrorNUHIsEmpty
	}
	if strings.ContainsAny(in, " \x00\r\n") {
		return out, ErrorNUHContainsBadChar
	}

	if hostStart := strings.IndexByte(in, '@'); hostStart != -1 {
		out.Host = in[hostStart+1:]
		in = in[:hostStart]
	}
	if userStart := strings.IndexByte(in, '!'); userStart != -1 {
		out.User = in[userStart+1:]
		in = in[:userStart]
	}
	out.Nick = in

	return
}

// Canonical returns the canonical string representation of the nuh.
func (nuh *NUH) Canonical() string {
	out := nuh.Nick
	if nuh.User != "" {
		out += "!" + nuh.User
	}
	if nuh.Host != "" {
		out += "@" + nuh.Host
	}
	return out
}

// IsServerName reports whether a prefix names a server rather than a user:
// it has no user or host part and its name contains a dot.
func IsServerName(prefix string) bool {
	return !strings.ContainsAny(prefix, "!@") && strings.IndexByte(prefix, '.') != -1
}
