package ircstate

import (
	"sort"
	"sync"
)

// ChannelType is the visibility of a channel as reported by RPL_NAMREPLY.
type ChannelType int

const (
	ChannelUnspecified ChannelType = iota
	ChannelPublic
	ChannelPrivate
	ChannelSecret
)

// ChannelTypeFromSymbol maps a RPL_NAMREPLY channel symbol to a ChannelType.
func ChannelTypeFromSymbol(symbol string) ChannelType {
	switch symbol {
	case "=":
		return ChannelPublic
	case "*":
		return ChannelPrivate
	case "@":
		return ChannelSecret
	}
	return ChannelUnspecified
}

func (ct ChannelType) String() string {
	switch ct {
	case ChannelPublic:
		return "public"
	case ChannelPrivate:
		return "private"
	case ChannelSecret:
		return "secret"
	}
	return "unspecified"
}

// ChannelUser is the membership of a User in a Channel.
type ChannelUser struct {
	Channel *Channel
	User    *User
	// Modes holds membership modes such as 'o' and 'v'.
	Modes *ModeSet
}

// Channel is a channel the local user has seen.
type Channel struct {
	name  string
	Modes *ModeSet

	stateMutex sync.RWMutex
	topic      string
	topicSetBy string
	chanType   ChannelType

	membersMutex sync.RWMutex
	members      map[*User]*ChannelUser
}

func newChannel(name string) *Channel {
	return &Channel{
		name:    name,
		Modes:   NewModeSet(""),
		members: make(map[*User]*ChannelUser),
	}
}

// Name returns the channel name as it was first seen.
func (ch *Channel) Name() string {
	return ch.name
}

// TargetName returns the channel name.
func (ch *Channel) TargetName() string {
	return ch.name
}

// Topic returns the current topic and who set it, if known.
func (ch *Channel) Topic() (topic, setBy string) {
	ch.stateMutex.RLock()
	defer ch.stateMutex.RUnlock()
	return ch.topic, ch.topicSetBy
}

// SetTopic records the channel topic.
func (ch *Channel) SetTopic(topic, setBy string) {
	ch.stateMutex.Lock()
	defer ch.stateMutex.Unlock()
	ch.topic = topic
	if setBy != "" {
		ch.topicSetBy = setBy
	}
}

// Type returns the channel visibility.
func (ch *Channel) Type() ChannelType {
	ch.stateMutex.RLock()
	defer ch.stateMutex.RUnlock()
	return ch.chanType
}

// SetType records the channel visibility.
func (ch *Channel) SetType(chanType ChannelType) {
	ch.stateMutex.Lock()
	defer ch.stateMutex.Unlock()
	ch.chanType = chanType
}

// AddUser adds u to the channel, returning the membership and whether it
// was newly created.
func (ch *Channel) AddUser(u *User) (*ChannelUser, bool) {
	ch.membersMutex.Lock()
	defer ch.membersMutex.Unlock()
	if cu, ok := ch.members[u]; ok {
		return cu, false
	}
	cu := &ChannelUser{Channel: ch, User: u, Modes: NewModeSet("")}
	ch.members[u] = cu
	return cu, true
}

// RemoveUser removes u from the channel, reporting whether it was a member.
func (ch *Channel) RemoveUser(u *User) bool {
	ch.membersMutex.Lock()
	defer ch.membersMutex.Unlock()
	_, ok := ch.members[u]
	delete(ch.members, u)
	return ok
}

// Member returns the membership of u, or nil.
func (ch *Channel) Member(u *User) *ChannelUser {
	ch.membersMutex.RLock()
	defer ch.membersMutex.RUnlock()
	return ch.members[u]
}

// Members returns the channel's memberships sorted by nickname.
func (ch *Channel) Members() []*ChannelUser {
	ch.membersMutex.RLock()
	result := make([]*ChannelUser, 0, len(ch.members))
	for _, cu := range ch.members {
		result = append(result, cu)
	}
	ch.membersMutex.RUnlock()
	sort.Slice(result, func(i, j int) bool { return result[i].User.Nick() < result[j].User.Nick() })
	return result
}

func (ch *Channel) clearMembers() {
	ch.membersMutex.Lock()
	defer ch.membersMutex.Unlock()
	ch.members = make(map[*User]*ChannelUser)
}

// Server is a server on the network, identified by host name.
type Server struct {
	hostName string
}

// HostName returns the server's host name.
func (s *Server) HostName() string {
	return s.hostName
}

// SourceName returns the server's host name.
func (s *Server) SourceName() string {
	return s.hostName
}
