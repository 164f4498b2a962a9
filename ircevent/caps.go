package ircevent

import (
	"sort"
	"strings"

	"github.com/goshuirc/eventmgr"

	"github.com/goshuirc/ircclient/ircmsg"
)

func (irc *Connection) resetCaps() {
	irc.capsMutex.Lock()
	defer irc.capsMutex.Unlock()
	irc.capsAvailable = make(map[string]string)
	irc.capsEnabled = make(map[string]bool)
}

// AvailableCaps returns the capabilities offered by the server with their
// values, if any.
func (irc *Connection) AvailableCaps() map[string]string {
	irc.capsMutex.Lock()
	defer irc.capsMutex.Unlock()
	result := make(map[string]string, len(irc.capsAvailable))
	for name, value := range irc.capsAvailable {
		result[name] = value
	}
	return result
}

// EnabledCaps returns the capabilities active on the connection, sorted.
func (irc *Connection) EnabledCaps() []string {
	irc.capsMutex.Lock()
	defer irc.capsMutex.Unlock()
	result := make([]string, 0, len(irc.capsEnabled))
	for name := range irc.capsEnabled {
		result = append(result, name)
	}
	sort.Strings(result)
	return result
}

// CapEnabled reports whether a capability is active.
func (irc *Connection) CapEnabled(name string) bool {
	irc.capsMutex.Lock()
	defer irc.capsMutex.Unlock()
	return irc.capsEnabled[name]
}

func splitCAPToken(token string) (name, value string) {
	name, value, _ = strings.Cut(token, "=")
	return
}

// capsToRequest returns the wanted capabilities that are offered but not
// yet enabled.
func (irc *Connection) capsToRequest() []string {
	irc.capsMutex.Lock()
	defer irc.capsMutex.Unlock()
	var result []string
	for _, name := range irc.RequestCaps {
		if _, offered := irc.capsAvailable[name]; offered && !irc.capsEnabled[name] {
			result = append(result, name)
		}
	}
	return result
}

// CAP <nick | *> <subcommand> [*] :<caps>
func (irc *Connection) handleCAP(msg ircmsg.Message) error {
	if err := needParams(msg, 3); err != nil {
		return err
	}
	subcommand := strings.ToUpper(msg.Params[1])
	tokens := strings.Fields(msg.Params[len(msg.Params)-1])
	// multiline replies carry a "*" before the final parameter
	final := len(msg.Params) == 3
	registering := irc.State() != StateRegistered

	switch subcommand {
	case "LS", "NEW":
		irc.capsMutex.Lock()
		for _, token := range tokens {
			name, value := splitCAPToken(token)
			irc.capsAvailable[name] = value
		}
		irc.capsMutex.Unlock()

		if final {
			if wanted := irc.capsToRequest(); len(wanted) > 0 {
				irc.Send("CAP", "REQ", strings.Join(wanted, " "))
			} else if registering && subcommand == "LS" {
				irc.Send("CAP", "END")
			}
		}
	case "LIST":
		irc.capsMutex.Lock()
		for _, token := range tokens {
			name, _ := splitCAPToken(token)
			irc.capsEnabled[name] = true
		}
		irc.capsMutex.Unlock()
	case "DEL":
		irc.capsMutex.Lock()
		for _, token := range tokens {
			name, _ := splitCAPToken(token)
			delete(irc.capsAvailable, name)
			delete(irc.capsEnabled, name)
		}
		irc.capsMutex.Unlock()
	case "ACK":
		irc.capsMutex.Lock()
		for _, token := range tokens {
			if strings.HasPrefix(token, "-") {
				delete(irc.capsEnabled, token[1:])
			} else {
				irc.capsEnabled[token] = true
			}
		}
		irc.capsMutex.Unlock()
		fallthrough
	case "NAK":
		if registering {
			irc.Send("CAP", "END")
		}
	default:
		if irc.Debug {
			irc.Log.Printf("unknown CAP subcommand %s\n", subcommand)
		}
		return nil
	}

	irc.emit(EventCaps, eventmgr.InfoMap{"subcommand": subcommand, "caps": tokens})
	return nil
}
