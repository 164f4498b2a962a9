package ircevent

import (
	"fmt"
	"strings"
)

// Send (private) message to a target (channel or nickname).
// RFC 1459 details: https://tools.ietf.org/html/rfc1459#section-4.4.1
func (irc *Connection) Privmsg(target, message string) error {
	return irc.Send("PRIVMSG", target, message)
}

// Send formated string to specified target (channel or nickname).
func (irc *Connection) Privmsgf(target, format string, a ...interface{}) error {
	return irc.Privmsg(target, fmt.Sprintf(format, a...))
}

// Send a notification to a nickname. This is similar to Privmsg but must not receive replies.
// RFC 1459 details: https://tools.ietf.org/html/rfc1459#section-4.4.2
func (irc *Connection) Notice(target, message string) error {
	return irc.Send("NOTICE", target, message)
}

// Use the connection to join the given channels, with optional keys.
// RFC 1459 details: https://tools.ietf.org/html/rfc1459#section-4.2.1
func (irc *Connection) Join(channels []string, keys ...string) error {
	if len(keys) > 0 {
		return irc.Send("JOIN", strings.Join(channels, ","), strings.Join(keys, ","))
	}
	return irc.Send("JOIN", strings.Join(channels, ","))
}

// Leave the given channels.
// RFC 1459 details: https://tools.ietf.org/html/rfc1459#section-4.2.2
func (irc *Connection) Part(channels []string, comment string) error {
	if comment != "" {
		return irc.Send("PART", strings.Join(channels, ","), comment)
	}
	return irc.Send("PART", strings.Join(channels, ","))
}

// Set (new) nickname.
// RFC 1459 details: https://tools.ietf.org/html/rfc1459#section-4.1.2
func (irc *Connection) SetNick(nick string) error {
	return irc.Send("NICK", nick)
}

// SetTopic sets a channel topic; an empty topic clears it.
func (irc *Connection) SetTopic(channel, topic string) error {
	return irc.Send("TOPIC", channel, topic)
}

// Kick removes a user from a channel.
func (irc *Connection) Kick(channel, nick, comment string) error {
	if comment != "" {
		return irc.Send("KICK", channel, nick, comment)
	}
	return irc.Send("KICK", channel, nick)
}

// Invite asks a user to join a channel.
func (irc *Connection) Invite(nick, channel string) error {
	return irc.Send("INVITE", nick, channel)
}

// Mode queries or changes the modes of a channel or user.
func (irc *Connection) Mode(target string, modes ...string) error {
	return irc.Send("MODE", append([]string{target}, modes...)...)
}

// Who lists users matching mask; opsOnly restricts it to operators.
func (irc *Connection) Who(mask string, opsOnly bool) error {
	if opsOnly {
		return irc.Send("WHO", mask, "o")
	}
	return irc.Send("WHO", mask)
}

// Whois requests information about users.
func (irc *Connection) Whois(nicks ...string) error {
	return irc.Send("WHOIS", strings.Join(nicks, ","))
}

// Whowas requests information about a nick that no longer exists.
func (irc *Connection) Whowas(nick string) error {
	return irc.Send("WHOWAS", nick)
}

// List requests the channel list, optionally restricted to channels.
func (irc *Connection) List(channels ...string) error {
	if len(channels) > 0 {
		return irc.Send("LIST", strings.Join(channels, ","))
	}
	return irc.Send("LIST")
}

// Names requests the members of channels.
func (irc *Connection) Names(channels ...string) error {
	if len(channels) > 0 {
		return irc.Send("NAMES", strings.Join(channels, ","))
	}
	return irc.Send("NAMES")
}

// Motd requests the message of the day.
func (irc *Connection) Motd() error {
	return irc.Send("MOTD")
}

// Stats requests a server statistics report.
func (irc *Connection) Stats(query string) error {
	return irc.Send("STATS", query)
}

// Links lists the servers known to the network.
func (irc *Connection) Links() error {
	return irc.Send("LINKS")
}

// Time requests the server's local time.
func (irc *Connection) Time() error {
	return irc.Send("TIME")
}

// ServerVersion requests the server's version.
func (irc *Connection) ServerVersion() error {
	return irc.Send("VERSION")
}

// Lusers requests network size statistics.
func (irc *Connection) Lusers() error {
	return irc.Send("LUSERS")
}

// Userhost requests user and host names of up to five nicks.
func (irc *Connection) Userhost(nicks ...string) error {
	return irc.Send("USERHOST", nicks...)
}

// Ison asks which of the nicks are online.
func (irc *Connection) Ison(nicks ...string) error {
	return irc.Send("ISON", strings.Join(nicks, " "))
}

// Away marks the client away; an empty message marks it back.
func (irc *Connection) Away(message string) error {
	if message == "" {
		return irc.Send("AWAY")
	}
	return irc.Send("AWAY", message)
}

// Ping sends a PING to the server.
func (irc *Connection) Ping(token string) error {
	return irc.Send("PING", token)
}

// Oper requests operator privileges.
func (irc *Connection) Oper(name, password string) error {
	return irc.Send("OPER", name, password)
}
