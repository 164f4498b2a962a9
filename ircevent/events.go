package ircevent

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goshuirc/eventmgr"

	"github.com/goshuirc/ircclient/ircmsg"
)

// Event names. Every event's InfoMap carries "connection" (*Connection).
const (
	EventConnected      = "connected"
	EventDisconnected   = "disconnected"
	EventRegistered     = "registered"
	EventError          = "error"
	EventRawSent        = "raw sent"
	EventRawReceived    = "raw received"
	EventProtocolError  = "protocol error"
	EventMotd           = "motd"
	EventWhois          = "whois"
	EventWhowas         = "whowas"
	EventList           = "list"
	EventLinks          = "links"
	EventStats          = "stats"
	EventNickChanged    = "nick changed"
	EventModeChanged    = "mode changed"
	EventTopicChanged   = "topic changed"
	EventUserJoined     = "user joined"
	EventUserLeft       = "user left"
	EventUserKicked     = "user kicked"
	EventUserQuit       = "user quit"
	EventUserInvited    = "user invited"
	EventMessage        = "message"
	EventNotice         = "notice"
	EventPreviewMessage = "preview message"
	EventPreviewNotice  = "preview notice"
	EventBounce         = "bounce"
	EventISupport       = "isupport"
	EventClientInfo     = "client info"
	EventCaps           = "caps"
	EventPing           = "ping"
	EventPong           = "pong"
	EventNames          = "names"
	EventWho            = "who"
	EventAway           = "away"
	EventChannelModes   = "channel modes"
	EventUserModes      = "user modes"
	EventLusers         = "lusers"
	EventServerTime     = "server time"
	EventServerVersion  = "server version"
)

var (
	ErrInvalidCommandDefinition = errors.New("invalid command definition")
	ErrInvalidRegistration      = errors.New("invalid registration info")
	ErrAlreadyConnected         = errors.New("connection is already open")
	ErrNotEnoughParameters      = errors.New("not enough parameters")
	ErrServerError              = errors.New("error from server")
	ErrCertificateRejected      = errors.New("server certificate rejected")

	ClientDisconnected = errors.New("Could not send because client is disconnected")
	ServerDidNotQuit   = errors.New("server did not respond to QUIT")
)

// ProtocolError is a numeric error reply (400-599) from the server.
type ProtocolError struct {
	Code int
	// Params holds every parameter except the message.
	Params  []string
	Message string
}

func (pe *ProtocolError) Error() string {
	return fmt.Sprintf("%03d %s: %s", pe.Code, strings.Join(pe.Params, " "), pe.Message)
}

// ProtocolViolation is a message the client could not process because it
// did not match what the protocol requires.
type ProtocolViolation struct {
	Message ircmsg.Message
	Err     error
}

func (pv *ProtocolViolation) Error() string {
	return fmt.Sprintf("protocol violation in %s: %v", pv.Message.Command, pv.Err)
}

func (pv *ProtocolViolation) Unwrap() error {
	return pv.Err
}

// On attaches a handler to the named event. Handlers run in ascending
// priority order, on the goroutine that produced the event; they must not
// block for long.
func (irc *Connection) On(event string, handler eventmgr.HandlerFn, priority int) {
	irc.eventsMutex.Lock()
	defer irc.eventsMutex.Unlock()
	irc.events.Attach(event, handler, priority)
}

func (irc *Connection) handlers(event string) eventmgr.Handlers {
	irc.eventsMutex.RLock()
	defer irc.eventsMutex.RUnlock()
	// copy, since Attach may sort the shared slice in place
	return eventmgr.Handlers{Handlers: append([]eventmgr.EventHandler(nil), irc.events.Events[event].Handlers...)}
}

// emit dispatches an event; info may be nil.
func (irc *Connection) emit(event string, info eventmgr.InfoMap) eventmgr.InfoMap {
	if info == nil {
		info = eventmgr.NewInfoMap()
	}
	info["connection"] = irc
	irc.handlers(event).Dispatch(event, info)
	return info
}

// emitPreviewed dispatches the preview event first; a preview handler
// suppresses the main event by setting info["handled"] to true.
func (irc *Connection) emitPreviewed(preview, event string, info eventmgr.InfoMap) {
	info = irc.emit(preview, info)
	if handled, _ := info["handled"].(bool); handled {
		return
	}
	irc.emit(event, info)
}

func (irc *Connection) emitError(err error) {
	irc.emit(EventError, eventmgr.InfoMap{"error": err})
}
