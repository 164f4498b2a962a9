// written by Daniel Oaks <daniel@danieloaks.net>
// released under the ISC license

/*
Package ircclient is an IRC client protocol engine, split into packages
that can be used on their own:

  - ircmsg parses and assembles IRC lines and message prefixes.
  - ircreader frames lines out of a byte stream, decoding them with a
    configurable text encoding.
  - ircmap folds nicks and channel names with a server's casemapping.
  - ircflood paces outgoing messages.
  - ircstate tracks the users, channels and servers a client sees.
  - ircevent runs a connection: registration, dispatch of server messages
    to handlers, and events for applications.

An example bot lives in cmd/ircbot.
*/
package ircclient
