package ircevent

import (
	"fmt"
	"runtime/debug"
	"strconv"
	"strings"
	"sync"

	"github.com/goshuirc/ircclient/ircmsg"
)

// handlerFunc processes one message from the server. A returned error is
// reported as a ProtocolViolation; it never ends the connection.
type handlerFunc func(irc *Connection, msg ircmsg.Message) error

// commandDefinition binds a handler to a command name, a three-digit
// numeric, or an inclusive numeric range "start-end".
type commandDefinition struct {
	spec    string
	handler handlerFunc
}

type numericRange struct {
	start, end int
	handler    handlerFunc
}

// dispatchTable looks up handlers by literal name first, then by numeric
// code, then by numeric range in definition order.
type dispatchTable struct {
	names    map[string]handlerFunc
	numerics map[int]handlerFunc
	ranges   []numericRange
}

func newDispatchTable(definitions []commandDefinition) (*dispatchTable, error) {
	table := &dispatchTable{
		names:    make(map[string]handlerFunc),
		numerics: make(map[int]handlerFunc),
	}
	for _, def := range definitions {
		if def.handler == nil || def.spec == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidCommandDefinition, def.spec)
		}

		if startStr, endStr, isRange := strings.Cut(def.spec, "-"); isRange {
			start, err1 := parseNumeric(startStr)
			end, err2 := parseNumeric(endStr)
			if err1 != nil || err2 != nil || end < start {
				return nil, fmt.Errorf("%w: bad numeric range %q", ErrInvalidCommandDefinition, def.spec)
			}
			table.ranges = append(table.ranges, numericRange{start: start, end: end, handler: def.handler})
			continue
		}

		if def.spec[0] >= '0' && def.spec[0] <= '9' {
			code, err := parseNumeric(def.spec)
			if err != nil {
				return nil, fmt.Errorf("%w: bad numeric %q", ErrInvalidCommandDefinition, def.spec)
			}
			table.numerics[code] = def.handler
			continue
		}

		for _, r := range def.spec {
			if !(r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z') {
				return nil, fmt.Errorf("%w: bad command name %q", ErrInvalidCommandDefinition, def.spec)
			}
		}
		table.names[strings.ToUpper(def.spec)] = def.handler
	}
	return table, nil
}

func parseNumeric(s string) (int, error) {
	if len(s) != 3 {
		return 0, strconv.ErrSyntax
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, strconv.ErrSyntax
		}
	}
	return strconv.Atoi(s)
}

func (dt *dispatchTable) lookup(command string) handlerFunc {
	if handler, ok := dt.names[strings.ToUpper(command)]; ok {
		return handler
	}
	code, err := strconv.Atoi(command)
	if err != nil {
		return nil
	}
	if handler, ok := dt.numerics[code]; ok {
		return handler
	}
	for _, r := range dt.ranges {
		if r.start <= code && code <= r.end {
			return r.handler
		}
	}
	return nil
}

var (
	commandTableOnce sync.Once
	commandTable     *dispatchTable
	commandTableErr  error
)

// getCommandTable builds the client's dispatch table on first use.
func getCommandTable() (*dispatchTable, error) {
	commandTableOnce.Do(func() {
		commandTable, commandTableErr = newDispatchTable(commandDefinitions())
	})
	return commandTable, commandTableErr
}

// dispatch runs the handler for msg. Messages with no handler are dropped.
func (irc *Connection) dispatch(msg ircmsg.Message) {
	table, err := getCommandTable()
	if err != nil {
		irc.Log.Printf("no dispatch table: %v\n", err)
		return
	}

	handler := table.lookup(msg.Command)
	if handler == nil {
		if irc.Debug {
			irc.Log.Printf("unhandled message: %s\n", msg.Command)
		}
		return
	}

	defer func() {
		if r := recover(); r != nil {
			irc.Log.Printf("Caught panic in handler for %s: %v\n%s", msg.Command, r, debug.Stack())
			irc.reportViolation(msg, fmt.Errorf("handler panic: %v", r))
		}
	}()

	if err := handler(irc, msg); err != nil {
		irc.reportViolation(msg, err)
	}
}

func (irc *Connection) reportViolation(msg ircmsg.Message, err error) {
	irc.Log.Printf("protocol violation in %s: %v\n", msg.Command, err)
	irc.Metrics.protocolViolation(msg.Command)
	irc.emitError(&ProtocolViolation{Message: msg, Err: err})
}

// needParams checks that msg has at least n parameters.
func needParams(msg ircmsg.Message, n int) error {
	if len(msg.Params) < n {
		return fmt.Errorf("%w: %s has %d, needs %d", ErrNotEnoughParameters, msg.Command, len(msg.Params), n)
	}
	return nil
}
