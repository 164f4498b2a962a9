package ircstate

import (
	"strings"

	"github.com/goshuirc/ircclient/ircmsg"
)

// Target is the recipient of a message: a *Channel, a *User or a *TargetMask.
type Target interface {
	TargetName() string
}

// MaskType distinguishes server masks ($) from host masks (#).
type MaskType int

const (
	ServerMask MaskType = iota
	HostMask
)

// TargetMask is a broadcast target such as "$*.example.org".
type TargetMask struct {
	Type MaskType
	Mask string
}

// TargetName returns the mask including its type character.
func (tm *TargetMask) TargetName() string {
	if tm.Type == ServerMask {
		return "$" + tm.Mask
	}
	return "#" + tm.Mask
}

// ResolveTarget interprets a message target as a channel name, a nick, a
// user@host or a $/# mask, in that order.
func (s *Store) ResolveTarget(name string) (Target, error) {
	if name == "" {
		return nil, ErrTargetInvalid
	}
	if s.Features.IsChannelName(name) && !isHostMask(name) {
		ch, _ := s.GetOrCreateChannel(name)
		return ch, nil
	}

	switch name[0] {
	case '$':
		return &TargetMask{Type: ServerMask, Mask: name[1:]}, nil
	case '#':
		return &TargetMask{Type: HostMask, Mask: name[1:]}, nil
	}

	if userName, _, found := strings.Cut(name, "@"); found && !strings.Contains(name, "!") {
		if users := s.GetUsersByUserName(userName); len(users) == 1 {
			return users[0], nil
		}
		return nil, ErrTargetInvalid
	}
	nuh, err := ircmsg.ParseNUH(name)
	if err != nil || nuh.Nick == "" {
		return nil, ErrTargetInvalid
	}
	u, _ := s.GetOrCreateUserFromNUH(nuh)
	return u, nil
}

// isHostMask reports whether a #-prefixed name is a wildcard host mask
// rather than a channel.
func isHostMask(name string) bool {
	return name[0] == '#' && strings.ContainsAny(name, "*?") && strings.Contains(name, ".")
}
