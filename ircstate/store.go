// Package ircstate holds a client's view of an IRC network: users,
// channels and servers keyed by the server's casemapping, plus the
// features the server advertised with RPL_ISUPPORT.
package ircstate

import (
	"errors"
	"strings"
	"sync"

	"github.com/goshuirc/ircclient/ircmap"
	"github.com/goshuirc/ircclient/ircmsg"
)

var (
	// ErrSourceNotUser is returned when a message that must come from a user
	// has a server, or no, prefix.
	ErrSourceNotUser = errors.New("message source is not a user")
	// ErrTargetInvalid is returned for a target name that cannot be resolved.
	ErrTargetInvalid = errors.New("invalid message target")
)

// Source is the originator of a message: a *User or a *Server.
type Source interface {
	SourceName() string
}

// Store is the client's view of the network: users, channels and servers,
// keyed by casefolded name. Each collection has its own lock.
type Store struct {
	Features *Features

	usersMutex sync.RWMutex
	users      map[string]*User

	channelsMutex sync.RWMutex
	channels      map[string]*Channel

	serversMutex sync.RWMutex
	servers      map[string]*Server

	localMutex sync.RWMutex
	local      *LocalIdentity
}

// NewStore returns an empty Store using the default features.
func NewStore() *Store {
	s := &Store{Features: NewFeatures()}
	s.reset()
	return s
}

func (s *Store) reset() {
	s.usersMutex.Lock()
	s.users = make(map[string]*User)
	s.usersMutex.Unlock()

	s.channelsMutex.Lock()
	s.channels = make(map[string]*Channel)
	s.channelsMutex.Unlock()

	s.serversMutex.Lock()
	s.servers = make(map[string]*Server)
	s.serversMutex.Unlock()

	s.localMutex.Lock()
	s.local = nil
	s.localMutex.Unlock()
}

// Reset forgets everything, including server features.
func (s *Store) Reset() {
	s.Features.Reset()
	s.reset()
}

// Fold casefolds name with the server's current casemapping.
func (s *Store) Fold(name string) string {
	return ircmap.Fold(s.Features.Casemapping(), name)
}

// Rekey rebuilds the collection keys, for use after CASEMAPPING changes.
// Names that collide under the new mapping keep the last entry seen.
func (s *Store) Rekey() {
	s.usersMutex.Lock()
	users := make(map[string]*User, len(s.users))
	for _, u := range s.users {
		users[s.Fold(u.Nick())] = u
	}
	s.users = users
	s.usersMutex.Unlock()

	s.channelsMutex.Lock()
	channels := make(map[string]*Channel, len(s.channels))
	for _, ch := range s.channels {
		channels[s.Fold(ch.name)] = ch
	}
	s.channels = channels
	s.channelsMutex.Unlock()
}

// GetOrCreateUser returns the user with the given nick, creating it if
// needed. created reports whether a new user was made.
func (s *Store) GetOrCreateUser(nick string) (u *User, created bool) {
	key := s.Fold(nick)
	s.usersMutex.Lock()
	defer s.usersMutex.Unlock()
	if u = s.users[key]; u != nil {
		return u, false
	}
	u = newUser(nick)
	s.users[key] = u
	return u, true
}

// GetOrCreateUserFromNUH is like GetOrCreateUser, and additionally records
// the user and host names from a nick!user@host.
func (s *Store) GetOrCreateUserFromNUH(nuh ircmsg.NUH) (*User, bool) {
	u, created := s.GetOrCreateUser(nuh.Nick)
	if nuh.User != "" || nuh.Host != "" {
		u.Update(func(info *UserInfo) {
			if nuh.User != "" {
				info.UserName = nuh.User
			}
			if nuh.Host != "" {
				info.HostName = nuh.Host
			}
		})
	}
	return u, created
}

// GetUser returns the user with the given nick, or nil.
func (s *Store) GetUser(nick string) *User {
	key := s.Fold(nick)
	s.usersMutex.RLock()
	defer s.usersMutex.RUnlock()
	return s.users[key]
}

// GetUsersByUserName returns every known user with the given user name.
func (s *Store) GetUsersByUserName(userName string) (result []*User) {
	s.usersMutex.RLock()
	defer s.usersMutex.RUnlock()
	for _, u := range s.users {
		if u.Info().UserName == userName {
			result = append(result, u)
		}
	}
	return
}

// RenameUser changes a user's nick, rebinding its key.
func (s *Store) RenameUser(u *User, newNick string) {
	s.usersMutex.Lock()
	defer s.usersMutex.Unlock()
	delete(s.users, s.Fold(u.Nick()))
	u.setNick(newNick)
	s.users[s.Fold(newNick)] = u
}

// RemoveUser forgets a user and drops it from every channel.
func (s *Store) RemoveUser(u *User) {
	s.usersMutex.Lock()
	if s.users[s.Fold(u.Nick())] == u {
		delete(s.users, s.Fold(u.Nick()))
	}
	s.usersMutex.Unlock()

	for _, ch := range s.Channels() {
		ch.RemoveUser(u)
	}
	u.Update(func(info *UserInfo) {
		info.IsOnline = false
	})
}

// Users returns every known user.
func (s *Store) Users() []*User {
	s.usersMutex.RLock()
	defer s.usersMutex.RUnlock()
	result := make([]*User, 0, len(s.users))
	for _, u := range s.users {
		result = append(result, u)
	}
	return result
}

// GetOrCreateChannel returns the channel with the given name, creating it
// if needed.
func (s *Store) GetOrCreateChannel(name string) (ch *Channel, created bool) {
	key := s.Fold(name)
	s.channelsMutex.Lock()
	defer s.channelsMutex.Unlock()
	if ch = s.channels[key]; ch != nil {
		return ch, false
	}
	ch = newChannel(name)
	s.channels[key] = ch
	return ch, true
}

// GetChannel returns the channel with the given name, or nil.
func (s *Store) GetChannel(name string) *Channel {
	key := s.Fold(name)
	s.channelsMutex.RLock()
	defer s.channelsMutex.RUnlock()
	return s.channels[key]
}

// RemoveChannel forgets a channel and its memberships.
func (s *Store) RemoveChannel(ch *Channel) {
	s.channelsMutex.Lock()
	if s.channels[s.Fold(ch.name)] == ch {
		delete(s.channels, s.Fold(ch.name))
	}
	s.channelsMutex.Unlock()
	ch.clearMembers()
}

// Channels returns every known channel.
func (s *Store) Channels() []*Channel {
	s.channelsMutex.RLock()
	defer s.channelsMutex.RUnlock()
	result := make([]*Channel, 0, len(s.channels))
	for _, ch := range s.channels {
		result = append(result, ch)
	}
	return result
}

// ChannelsOf returns the channels u is known to be in.
func (s *Store) ChannelsOf(u *User) (result []*Channel) {
	for _, ch := range s.Channels() {
		if ch.Member(u) != nil {
			result = append(result, ch)
		}
	}
	return
}

// GetOrCreateServer returns the server with the given host name, creating
// it if needed.
func (s *Store) GetOrCreateServer(hostName string) (srv *Server, created bool) {
	key := strings.ToLower(hostName)
	s.serversMutex.Lock()
	defer s.serversMutex.Unlock()
	if srv = s.servers[key]; srv != nil {
		return srv, false
	}
	srv = &Server{hostName: hostName}
	s.servers[key] = srv
	return srv, true
}

// Servers returns every known server.
func (s *Store) Servers() []*Server {
	s.serversMutex.RLock()
	defer s.serversMutex.RUnlock()
	result := make([]*Server, 0, len(s.servers))
	for _, srv := range s.servers {
		result = append(result, srv)
	}
	return result
}

// SetLocal registers the local identity, creating its user.
func (s *Store) SetLocal(nick string, identity *LocalIdentity) *User {
	u, _ := s.GetOrCreateUser(nick)
	if identity.Modes == nil {
		identity.Modes = NewModeSet("")
	}
	identity.User = u
	s.localMutex.Lock()
	s.local = identity
	s.localMutex.Unlock()
	return u
}

// Local returns the local identity, or nil before registration starts.
func (s *Store) Local() *LocalIdentity {
	s.localMutex.RLock()
	defer s.localMutex.RUnlock()
	return s.local
}

// LocalUser returns the local user, or nil.
func (s *Store) LocalUser() *User {
	if local := s.Local(); local != nil {
		return local.User
	}
	return nil
}

// IsLocal reports whether u is the local user.
func (s *Store) IsLocal(u *User) bool {
	return u != nil && u == s.LocalUser()
}

// SourceFromPrefix resolves a message prefix to a *User or *Server. An
// empty prefix resolves to nil.
func (s *Store) SourceFromPrefix(prefix string) (Source, error) {
	if prefix == "" {
		return nil, nil
	}
	if ircmsg.IsServerName(prefix) {
		srv, _ := s.GetOrCreateServer(prefix)
		return srv, nil
	}
	nuh, err := ircmsg.ParseNUH(prefix)
	if err != nil {
		return nil, err
	}
	if nuh.Nick == "" {
		return nil, ErrSourceNotUser
	}
	u, _ := s.GetOrCreateUserFromNUH(nuh)
	return u, nil
}

// UserFromPrefix is SourceFromPrefix for messages that must come from a user.
func (s *Store) UserFromPrefix(prefix string) (*User, error) {
	source, err := s.SourceFromPrefix(prefix)
	if err != nil {
		return nil, err
	}
	u, ok := source.(*User)
	if !ok {
		return nil, ErrSourceNotUser
	}
	return u, nil
}
