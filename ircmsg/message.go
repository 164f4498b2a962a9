// written by Daniel Oaks <daniel@danieloaks.net>
// released under the ISC license

package ircmsg

import (
	"errors"
	"strings"
)

// MaxParams is the maximum number of parameters a single IRC message may carry.
const MaxParams = 15

var (
	// ErrorLineIsEmpty indicates that the given IRC line was empty.
	ErrorLineIsEmpty = errors.New("Line is empty")

	// ErrorInvalidCommand indicates that an outgoing command was empty or
	// contained a space, NUL, CR or LF.
	ErrorInvalidCommand = errors.New("irc: command is empty or contains invalid characters")

	// ErrorTooManyParameters indicates that an outgoing message had more than
	// MaxParams parameters.
	ErrorTooManyParameters = errors.New("irc: message has too many parameters")

	// ErrorInvalidMiddleParameter indicates that a parameter other than the
	// last one was empty, contained a space, started with ':' or contained
	// NUL, CR or LF.
	ErrorInvalidMiddleParameter = errors.New("irc: cannot have an empty param, a param with spaces, or a param that starts with ':' before the last parameter")

	// ErrorInvalidTrailingParameter indicates that the last parameter of an
	// outgoing message contained NUL, CR or LF.
	ErrorInvalidTrailingParameter = errors.New("irc: trailing parameter contains invalid characters")
)

// Message represents an IRC message as defined by RFC 1459 and RFC 2812:
//
//	[":" prefix SP] command *( SP middle ) [SP ":" trailing]
//
// Params only holds the parameters that are present on the line. Positions
// beyond len(Params) are absent, see Param.
type Message struct {
	Prefix  string
	Command string
	Params  []string
}

// ParseLine creates and returns a Message from the given IRC line.
//
// The line terminator is stripped if present. Runs of spaces between
// middle parameters are collapsed. Once MaxParams-1 middle parameters have
// been read, the rest of the line becomes the final parameter, spaces
// included.
func ParseLine(line string) (Message, error) {
	line = strings.Trim(line, "\r\n")
	var ircmsg Message

	line = strings.TrimLeft(line, " ")
	if len(line) < 1 {
		return ircmsg, ErrorLineIsEmpty
	}

	// prefix
	if line[0] == ':' {
		splitLine := strings.SplitN(line, " ", 2)
		if len(splitLine) < 2 {
			return ircmsg, ErrorLineIsEmpty
		}
		ircmsg.Prefix = splitLine[0][1:]
		line = strings.TrimLeft(splitLine[1], " ")
	}

	if len(line) < 1 {
		return ircmsg, ErrorLineIsEmpty
	}

	// command
	splitLine := strings.SplitN(line, " ", 2)
	ircmsg.Command = strings.ToUpper(splitLine[0])
	if len(splitLine) < 2 {
		return ircmsg, nil
	}
	line = strings.TrimLeft(splitLine[1], " ")

	// parameters
	for len(line) > 0 {
		if line[0] == ':' || len(ircmsg.Params) == MaxParams-1 {
			ircmsg.Params = append(ircmsg.Params, strings.TrimPrefix(line, ":"))
			break
		}

		splitLine := strings.SplitN(line, " ", 2)
		ircmsg.Params = append(ircmsg.Params, splitLine[0])
		if len(splitLine) < 2 {
			break
		}
		line = strings.TrimLeft(splitLine[1], " ")
	}

	return ircmsg, nil
}

// MakeMessage provides a simple way to create a new Message.
func MakeMessage(prefix string, command string, params ...string) Message {
	return Message{
		Prefix:  prefix,
		Command: command,
		Params:  params,
	}
}

// Param returns the parameter at index i, and whether that slot is present.
func (ircmsg *Message) Param(i int) (string, bool) {
	if i < 0 || i >= len(ircmsg.Params) || i >= MaxParams {
		return "", false
	}
	return ircmsg.Params[i], true
}

// Trailing returns the last parameter, or "" if there are none.
func (ircmsg *Message) Trailing() string {
	if len(ircmsg.Params) == 0 {
		return ""
	}
	return ircmsg.Params[len(ircmsg.Params)-1]
}

// Nick returns the nickname part of the prefix, or the whole prefix if it
// is not a user mask.
func (ircmsg *Message) Nick() string {
	nuh, err := ParseNUH(ircmsg.Prefix)
	if err != nil {
		return ""
	}
	return nuh.Nick
}

// Line returns a sendable line, CRLF included, created from a Message.
//
// The command is upper-cased and the final parameter is always sent in
// its trailing form.
func (ircmsg *Message) Line() (string, error) {
	if len(ircmsg.Command) < 1 || strings.ContainsAny(ircmsg.Command, " \x00\r\n") {
		return "", ErrorInvalidCommand
	}
	if len(ircmsg.Params) > MaxParams {
		return "", ErrorTooManyParameters
	}
	if strings.ContainsAny(ircmsg.Prefix, " \x00\r\n") {
		return "", ErrorInvalidMiddleParameter
	}

	var line strings.Builder
	if len(ircmsg.Prefix) > 0 {
		line.WriteByte(':')
		line.WriteString(ircmsg.Prefix)
		line.WriteByte(' ')
	}
	line.WriteString(strings.ToUpper(ircmsg.Command))

	for i, param := range ircmsg.Params {
		line.WriteByte(' ')
		if i == len(ircmsg.Params)-1 {
			if strings.ContainsAny(param, "\x00\r\n") {
				return "", ErrorInvalidTrailingParameter
			}
			line.WriteByte(':')
		} else if len(param) < 1 || param[0] == ':' || strings.ContainsAny(param, " \x00\r\n") {
			return "", ErrorInvalidMiddleParameter
		}
		line.WriteString(param)
	}

	line.WriteString("\r\n")
	return line.String(), nil
}
