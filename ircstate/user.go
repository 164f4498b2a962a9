package ircstate

import (
	"sync"
	"time"
)

// UserInfo is a snapshot of what is known about a user.
type UserInfo struct {
	Nick         string
	UserName     string
	RealName     string
	HostName     string
	ServerName   string
	ServerInfo   string
	IsOperator   bool
	IsAway       bool
	AwayMessage  string
	IdleDuration time.Duration
	HopCount     int
	IsOnline     bool
}

// User is a user on the network, local or remote. A User stays the same
// object across nick changes, so it may be compared by pointer.
type User struct {
	sync.RWMutex
	info UserInfo
}

func newUser(nick string) *User {
	return &User{info: UserInfo{Nick: nick, IsOnline: true}}
}

// Nick returns the user's current nickname.
func (u *User) Nick() string {
	u.RLock()
	defer u.RUnlock()
	return u.info.Nick
}

// SourceName returns the user's nickname.
func (u *User) SourceName() string {
	return u.Nick()
}

// TargetName returns the user's nickname.
func (u *User) TargetName() string {
	return u.Nick()
}

// Info returns a snapshot of the user's fields.
func (u *User) Info() UserInfo {
	u.RLock()
	defer u.RUnlock()
	return u.info
}

// Update modifies the user's fields under its lock. The nickname is keyed
// by the Store, so it may only be changed through Store.RenameUser; any
// change to Nick made by fn is discarded.
func (u *User) Update(fn func(info *UserInfo)) {
	u.Lock()
	defer u.Unlock()
	nick := u.info.Nick
	fn(&u.info)
	u.info.Nick = nick
}

func (u *User) setNick(nick string) {
	u.Lock()
	defer u.Unlock()
	u.info.Nick = nick
}

// LocalIdentity holds what only applies to the connection's own user.
type LocalIdentity struct {
	User  *User
	Modes *ModeSet

	IsService           bool
	ServiceDistribution string
	ServiceDescription  string
}
