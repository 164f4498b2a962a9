// Copyright 2009 Thomas Jager <mail@jager.no>  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ircevent

import (
	"context"
	"crypto/tls"
	"fmt"
	"log"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/goshuirc/eventmgr"
	"golang.org/x/text/encoding"

	"github.com/goshuirc/ircclient/ircflood"
	"github.com/goshuirc/ircclient/ircstate"
)

type empty struct{}

// State is a step of the connection's registration state machine.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateTransportConnected
	StateAwaitingRegistration
	StateRegistered
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateTransportConnected:
		return "transport connected"
	case StateAwaitingRegistration:
		return "awaiting registration"
	case StateRegistered:
		return "registered"
	}
	return "disconnected"
}

// RegistrationInfo is what the client registers with: a *UserRegistration
// or a *ServiceRegistration.
type RegistrationInfo interface {
	// Validate reports whether the required fields are present.
	Validate() error
	nickname() string
	password() string
}

// UserRegistration registers a normal user with NICK and USER.
type UserRegistration struct {
	Nick     string
	UserName string
	RealName string
	// UserModes may contain 'i' and 'w', sent as the USER mode bitmask.
	UserModes string
	Password  string
}

func (r *UserRegistration) Validate() error {
	if r.Nick == "" || r.UserName == "" {
		return fmt.Errorf("%w: nick and user name are required", ErrInvalidRegistration)
	}
	if strings.ContainsAny(r.Nick+r.UserName, " \x00\r\n") {
		return fmt.Errorf("%w: nick and user name must not contain spaces", ErrInvalidRegistration)
	}
	return nil
}

func (r *UserRegistration) nickname() string { return r.Nick }
func (r *UserRegistration) password() string { return r.Password }

// modeMask returns the USER mode parameter (RFC 2812 section 3.1.3).
func (r *UserRegistration) modeMask() string {
	mask := 0
	if strings.ContainsRune(r.UserModes, 'w') {
		mask |= 4
	}
	if strings.ContainsRune(r.UserModes, 'i') {
		mask |= 8
	}
	return fmt.Sprintf("%d", mask)
}

// ServiceRegistration registers a service with SERVICE.
type ServiceRegistration struct {
	Nick         string
	Distribution string
	Description  string
	Password     string
}

func (r *ServiceRegistration) Validate() error {
	if r.Nick == "" || r.Description == "" {
		return fmt.Errorf("%w: nick and description are required", ErrInvalidRegistration)
	}
	return nil
}

func (r *ServiceRegistration) nickname() string { return r.Nick }
func (r *ServiceRegistration) password() string { return r.Password }

// Connection is a client connection to one IRC server. Fill in the exported
// configuration fields, attach handlers with On, then call Connect.
type Connection struct {
	Server    string
	UseTLS    bool
	TLSConfig *tls.Config
	// ValidateCertificate, if set, decides whether to accept the server's
	// certificate. verifyErr is the result of normal chain verification.
	ValidateCertificate func(state tls.ConnectionState, verifyErr error) bool
	DialContext         func(ctx context.Context, network, addr string) (net.Conn, error)
	// Timeout bounds dialing, the TLS handshake and each socket write.
	Timeout time.Duration

	Registration RegistrationInfo
	RequestCaps  []string

	// FloodPreventer paces outgoing lines; nil means no limit.
	FloodPreventer ircflood.FloodPreventer
	// Encoding is applied to lines in both directions; nil means UTF-8
	// passed through as-is.
	Encoding          encoding.Encoding
	ReceiveBufferSize int
	// MinSendWait is the shortest interval between send queue drains.
	MinSendWait time.Duration
	// QuitTimeout is used by Quit when it is given no timeout.
	QuitTimeout time.Duration
	Version     string

	Debug   bool
	Log     *log.Logger
	Metrics *Metrics

	initOnce sync.Once
	store    *ircstate.Store

	eventsMutex sync.RWMutex
	events      eventmgr.EventManager

	stateMutex   sync.Mutex // protects the fields below
	state        State
	socket       net.Conn
	end          chan empty
	disconnected chan struct{}
	cancelDial   context.CancelFunc
	wg           sync.WaitGroup
	lastError    error
	quitting     bool
	nickCounter  int

	welcomeMessage       string
	yourHostMessage      string
	serverCreatedMessage string
	clientInfoReceived   bool
	serverInfo           ServerInfo
	motd                 string

	sendMutex sync.Mutex
	sendQueue []queuedLine

	capsMutex     sync.Mutex
	capsAvailable map[string]string
	capsEnabled   map[string]bool

	// accumulated replies; only touched by the read loop
	replies replyState
}

// ServerInfo is what RPL_MYINFO reports about the server.
type ServerInfo struct {
	Name         string
	Version      string
	UserModes    string
	ChannelModes string
}
