package ircevent

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/goshuirc/eventmgr"

	"github.com/goshuirc/ircclient/ircmsg"
	"github.com/goshuirc/ircclient/ircstate"
)

// commandDefinitions is the client's static dispatch table.
func commandDefinitions() []commandDefinition {
	definitions := []commandDefinition{
		{"PING", (*Connection).handlePing},
		{"PONG", (*Connection).handlePong},
		{"ERROR", (*Connection).handleError},
		{"CAP", (*Connection).handleCAP},
		{"NICK", (*Connection).handleNick},
		{"JOIN", (*Connection).handleJoin},
		{"PART", (*Connection).handlePart},
		{"KICK", (*Connection).handleKick},
		{"QUIT", (*Connection).handleQuit},
		{"INVITE", (*Connection).handleInvite},
		{"MODE", (*Connection).handleMode},
		{"TOPIC", (*Connection).handleTopic},
		{"PRIVMSG", (*Connection).handlePrivmsg},
		{"NOTICE", (*Connection).handleNotice},

		{RPL_WELCOME, (*Connection).handleWelcome},
		{RPL_YOURHOST, (*Connection).handleYourHost},
		{RPL_CREATED, (*Connection).handleCreated},
		{RPL_MYINFO, (*Connection).handleMyInfo},
		{RPL_ISUPPORT, (*Connection).handleISupportOrBounce},
		{RPL_BOUNCE, (*Connection).handleBounce},
		{ERR_NICKNAMEINUSE, (*Connection).handleUnavailableNick},
		{ERR_UNAVAILRESOURCE, (*Connection).handleUnavailableNick},

		{RPL_MOTDSTART, (*Connection).handleMotdStart},
		{RPL_MOTD, (*Connection).handleMotd},
		{RPL_ENDOFMOTD, (*Connection).handleEndOfMotd},
		{ERR_NOMOTD, (*Connection).handleNoMotd},
		{RPL_WHOISUSER, (*Connection).handleWhoisUser},
		{RPL_WHOISSERVER, (*Connection).handleWhoisServer},
		{RPL_WHOISOPERATOR, (*Connection).handleWhoisOperator},
		{RPL_WHOISIDLE, (*Connection).handleWhoisIdle},
		{RPL_WHOISCHANNELS, (*Connection).handleWhoisChannels},
		{RPL_ENDOFWHOIS, (*Connection).handleEndOfWhois},
		{RPL_WHOWASUSER, (*Connection).handleWhowasUser},
		{RPL_ENDOFWHOWAS, (*Connection).handleEndOfWhowas},
		{RPL_LISTSTART, (*Connection).handleListStart},
		{RPL_LIST, (*Connection).handleList},
		{RPL_LISTEND, (*Connection).handleListEnd},
		{RPL_LINKS, (*Connection).handleLinks},
		{RPL_ENDOFLINKS, (*Connection).handleEndOfLinks},
		{RPL_ENDOFSTATS, (*Connection).handleEndOfStats},
		{RPL_NAMREPLY, (*Connection).handleNamesReply},
		{RPL_ENDOFNAMES, (*Connection).handleEndOfNames},
		{RPL_WHOREPLY, (*Connection).handleWhoReply},
		{RPL_ENDOFWHO, (*Connection).handleEndOfWho},
		{RPL_LUSERCLIENT, (*Connection).handleLusers},
		{RPL_LUSEROP, (*Connection).handleLusers},
		{RPL_LUSERUNKNOWN, (*Connection).handleLusers},
		{RPL_LUSERCHANNELS, (*Connection).handleLusers},
		{RPL_LUSERME, (*Connection).handleLusers},
		{RPL_LOCALUSERS, (*Connection).handleLusers},
		{RPL_GLOBALUSERS, (*Connection).handleLusers},
		{RPL_TIME, (*Connection).handleTime},
		{RPL_VERSION, (*Connection).handleVersion},
		{RPL_USERHOST, (*Connection).handleUserhost},
		{RPL_ISON, (*Connection).handleIson},
		{RPL_AWAY, (*Connection).handleAway},
		{RPL_UNAWAY, (*Connection).handleUnaway},
		{RPL_NOWAWAY, (*Connection).handleNowAway},
		{RPL_UMODEIS, (*Connection).handleUserModeIs},
		{RPL_CHANNELMODEIS, (*Connection).handleChannelModeIs},
		{RPL_NOTOPIC, (*Connection).handleNoTopic},
		{RPL_TOPIC, (*Connection).handleTopicReply},
		{RPL_TOPICWHOTIME, (*Connection).handleTopicWhoTime},
		{RPL_INVITING, (*Connection).handleInviting},
		{RPL_YOUREOPER, (*Connection).handleYoureOper},
		{RPL_YOURESERVICE, (*Connection).handleYoureService},

		{errorNumericRange, (*Connection).handleProtocolError},
	}
	for _, code := range statsNumerics {
		definitions = append(definitions, commandDefinition{code, (*Connection).handleStatsEntry})
	}
	return definitions
}

func splitList(param string) []string {
	return strings.FieldsFunc(param, func(r rune) bool { return r == ',' })
}

// PING: we must respond with the correct PONG
func (irc *Connection) handlePing(msg ircmsg.Message) error {
	irc.Send("PONG", msg.Params...)
	irc.emit(EventPing, eventmgr.InfoMap{"server": msg.Trailing()})
	return nil
}

func (irc *Connection) handlePong(msg ircmsg.Message) error {
	if err := needParams(msg, 1); err != nil {
		return err
	}
	irc.emit(EventPong, eventmgr.InfoMap{"server": msg.Params[0], "text": msg.Trailing()})
	return nil
}

func (irc *Connection) handleError(msg ircmsg.Message) error {
	if irc.isQuitting() {
		return nil
	}
	irc.Log.Printf("ERROR received from server: %s", strings.Join(msg.Params, " "))
	irc.emitError(fmt.Errorf("%w: %s", ErrServerError, msg.Trailing()))
	return nil
}

func (irc *Connection) handleNick(msg ircmsg.Message) error {
	if err := needParams(msg, 1); err != nil {
		return err
	}
	store := irc.Store()
	user, err := store.UserFromPrefix(msg.Prefix)
	if err != nil {
		return err
	}
	oldNick := user.Nick()
	store.RenameUser(user, msg.Params[0])
	irc.emit(EventNickChanged, eventmgr.InfoMap{"user": user, "old nick": oldNick})
	return nil
}

// JOIN <channels> [<account> :<realname>]
func (irc *Connection) handleJoin(msg ircmsg.Message) error {
	if err := needParams(msg, 1); err != nil {
		return err
	}
	store := irc.Store()
	user, err := store.UserFromPrefix(msg.Prefix)
	if err != nil {
		return err
	}
	if len(msg.Params) >= 3 {
		user.Update(func(info *ircstate.UserInfo) {
			info.RealName = msg.Params[2]
		})
	}

	for _, name := range splitList(msg.Params[0]) {
		channel, _ := store.GetOrCreateChannel(name)
		if _, added := channel.AddUser(user); !added {
			if irc.Debug {
				irc.Log.Printf("ignoring duplicate JOIN of %s to %s\n", user.Nick(), name)
			}
			continue
		}
		irc.emit(EventUserJoined, eventmgr.InfoMap{"channel": channel, "user": user})
	}
	return nil
}

// PART <channels> [:<comment>]
func (irc *Connection) handlePart(msg ircmsg.Message) error {
	if err := needParams(msg, 1); err != nil {
		return err
	}
	store := irc.Store()
	user, err := store.UserFromPrefix(msg.Prefix)
	if err != nil {
		return err
	}
	comment, _ := msg.Param(1)

	for _, name := range splitList(msg.Params[0]) {
		channel := store.GetChannel(name)
		if channel == nil {
			continue
		}
		channel.RemoveUser(user)
		if store.IsLocal(user) {
			store.RemoveChannel(channel)
		}
		irc.emit(EventUserLeft, eventmgr.InfoMap{"channel": channel, "user": user, "comment": comment})
	}
	return nil
}

// KICK <channels> <users> [:<comment>]
func (irc *Connection) handleKick(msg ircmsg.Message) error {
	if err := needParams(msg, 2); err != nil {
		return err
	}
	store := irc.Store()
	source, err := store.SourceFromPrefix(msg.Prefix)
	if err != nil {
		return err
	}
	comment, _ := msg.Param(2)
	channels := splitList(msg.Params[0])
	nicks := splitList(msg.Params[1])
	if len(channels) != 1 && len(channels) != len(nicks) {
		return fmt.Errorf("%w: KICK channel and user lists differ in length", ErrNotEnoughParameters)
	}

	for i, nick := range nicks {
		name := channels[0]
		if len(channels) > 1 {
			name = channels[i]
		}
		channel := store.GetChannel(name)
		user := store.GetUser(nick)
		if channel == nil || user == nil {
			continue
		}
		channel.RemoveUser(user)
		if store.IsLocal(user) {
			store.RemoveChannel(channel)
		}
		irc.emit(EventUserKicked, eventmgr.InfoMap{"channel": channel, "user": user, "source": source, "comment": comment})
	}
	return nil
}

func (irc *Connection) handleQuit(msg ircmsg.Message) error {
	store := irc.Store()
	user, err := store.UserFromPrefix(msg.Prefix)
	if err != nil {
		return err
	}
	if store.IsLocal(user) {
		return nil
	}
	comment, _ := msg.Param(0)
	channels := store.ChannelsOf(user)
	store.RemoveUser(user)
	irc.emit(EventUserQuit, eventmgr.InfoMap{"user": user, "comment": comment, "channels": channels})
	return nil
}

// INVITE <nick> <channel>
func (irc *Connection) handleInvite(msg ircmsg.Message) error {
	if err := needParams(msg, 2); err != nil {
		return err
	}
	store := irc.Store()
	source, err := store.UserFromPrefix(msg.Prefix)
	if err != nil {
		return err
	}
	invited, _ := store.GetOrCreateUser(msg.Params[0])
	channel, _ := store.GetOrCreateChannel(msg.Params[1])
	irc.emit(EventUserInvited, eventmgr.InfoMap{"channel": channel, "user": invited, "source": source})
	return nil
}

// MODE <target> <modes> [<params>...]
func (irc *Connection) handleMode(msg ircmsg.Message) error {
	if err := needParams(msg, 2); err != nil {
		return err
	}
	store := irc.Store()
	source, err := store.SourceFromPrefix(msg.Prefix)
	if err != nil {
		return err
	}
	modes, params := msg.Params[1], msg.Params[2:]

	var target ircstate.Target
	if store.Features.IsChannelName(msg.Params[0]) {
		channel, _ := store.GetOrCreateChannel(msg.Params[0])
		err = irc.applyChannelModes(channel, modes, params)
		target = channel
	} else {
		user, _ := store.GetOrCreateUser(msg.Params[0])
		if store.IsLocal(user) {
			err = ircstate.UpdateModes(store.Local().Modes, modes, params, nil, nil)
		}
		target = user
	}

	irc.emit(EventModeChanged, eventmgr.InfoMap{"target": target, "source": source, "modes": modes, "params": params})
	return err
}

// applyChannelModes updates channel modes and, through PREFIX, the
// membership modes of the users named in params.
func (irc *Connection) applyChannelModes(channel *ircstate.Channel, modes string, params []string) error {
	store := irc.Store()
	features := store.Features
	return ircstate.UpdateModes(channel.Modes, modes, params, features.ChannelModeTakesParam, func(adding bool, mode rune, param string) {
		if features.IsPrefixMode(mode) {
			user := store.GetUser(param)
			var member *ircstate.ChannelUser
			if user != nil {
				member = channel.Member(user)
			}
			if member == nil {
				irc.Log.Printf("mode %c for %s, who is not in %s\n", mode, param, channel.Name())
				return
			}
			if adding {
				member.Modes.Add(mode)
			} else {
				member.Modes.Remove(mode)
			}
			return
		}
		if features.IsListMode(mode) {
			return
		}
		if adding {
			channel.Modes.Add(mode)
		} else {
			channel.Modes.Remove(mode)
		}
	})
}

// TOPIC <channel> :<topic>
func (irc *Connection) handleTopic(msg ircmsg.Message) error {
	if err := needParams(msg, 2); err != nil {
		return err
	}
	store := irc.Store()
	source, err := store.SourceFromPrefix(msg.Prefix)
	if err != nil {
		return err
	}
	channel, _ := store.GetOrCreateChannel(msg.Params[0])
	setBy := ""
	if source != nil {
		setBy = source.SourceName()
	}
	channel.SetTopic(msg.Params[1], setBy)
	irc.emit(EventTopicChanged, eventmgr.InfoMap{"channel": channel, "source": source, "topic": msg.Params[1]})
	return nil
}

func (irc *Connection) handlePrivmsg(msg ircmsg.Message) error {
	return irc.handleTextMessage(msg, EventPreviewMessage, EventMessage)
}

func (irc *Connection) handleNotice(msg ircmsg.Message) error {
	return irc.handleTextMessage(msg, EventPreviewNotice, EventNotice)
}

// PRIVMSG/NOTICE <targets> :<text>
func (irc *Connection) handleTextMessage(msg ircmsg.Message, preview, event string) error {
	if err := needParams(msg, 2); err != nil {
		return err
	}
	store := irc.Store()
	source, err := store.SourceFromPrefix(msg.Prefix)
	if err != nil {
		return err
	}

	for _, name := range splitList(msg.Params[0]) {
		var target ircstate.Target
		if name == "*" {
			// notices sent before registration
			if local := store.LocalUser(); local != nil {
				target = local
			}
		} else if target, err = store.ResolveTarget(name); err != nil {
			return err
		}
		irc.emitPreviewed(preview, event, eventmgr.InfoMap{"source": source, "target": target, "text": msg.Params[1]})
	}
	return nil
}

// 001: RPL_WELCOME "Welcome to the Internet Relay Network <nick>!<user>@<host>"
func (irc *Connection) handleWelcome(msg ircmsg.Message) error {
	if err := needParams(msg, 2); err != nil {
		return err
	}
	// set the nickname we actually received from the server
	store := irc.Store()
	if local := store.LocalUser(); local != nil && local.Nick() != msg.Params[0] {
		store.RenameUser(local, msg.Params[0])
	}

	irc.stateMutex.Lock()
	irc.welcomeMessage = msg.Trailing()
	irc.stateMutex.Unlock()
	irc.setState(StateRegistered)

	irc.emit(EventRegistered, eventmgr.InfoMap{"message": msg.Trailing()})
	return nil
}

func (irc *Connection) handleYourHost(msg ircmsg.Message) error {
	irc.stateMutex.Lock()
	defer irc.stateMutex.Unlock()
	irc.yourHostMessage = msg.Trailing()
	return nil
}

func (irc *Connection) handleCreated(msg ircmsg.Message) error {
	irc.stateMutex.Lock()
	defer irc.stateMutex.Unlock()
	irc.serverCreatedMessage = msg.Trailing()
	return nil
}

// 004: RPL_MYINFO "<servername> <version> <user modes> <channel modes>"
func (irc *Connection) handleMyInfo(msg ircmsg.Message) error {
	if err := needParams(msg, 3); err != nil {
		return err
	}
	info := ServerInfo{Name: msg.Params[1], Version: msg.Params[2]}
	info.UserModes, _ = msg.Param(3)
	info.ChannelModes, _ = msg.Param(4)
	irc.Store().GetOrCreateServer(info.Name)

	irc.stateMutex.Lock()
	irc.serverInfo = info
	irc.clientInfoReceived = true
	irc.stateMutex.Unlock()

	irc.emit(EventClientInfo, eventmgr.InfoMap{"server": info})
	return nil
}

// 005 is RPL_ISUPPORT, unless it starts with "Try server" (RFC 2812 RPL_BOUNCE)
func (irc *Connection) handleISupportOrBounce(msg ircmsg.Message) error {
	if err := needParams(msg, 2); err != nil {
		return err
	}
	if strings.HasPrefix(msg.Params[1], "Try server") {
		return irc.handleTryServer(msg.Params[1])
	}
	if len(msg.Params) < 3 {
		return nil
	}

	store := irc.Store()
	casemapping := store.Features.Casemapping()
	tokens := msg.Params[1 : len(msg.Params)-1]
	err := store.Features.Parse(tokens...)
	if store.Features.Casemapping() != casemapping {
		store.Rekey()
	}
	irc.emit(EventISupport, eventmgr.InfoMap{"tokens": tokens})
	return err
}

// "Try server <server name>, port <port number>"
func (irc *Connection) handleTryServer(text string) error {
	rest := strings.TrimPrefix(text, "Try server")
	server, portText, _ := strings.Cut(rest, ",")
	portText = strings.TrimPrefix(strings.TrimSpace(portText), "port")
	port, err := strconv.Atoi(strings.TrimSpace(portText))
	if err != nil {
		return fmt.Errorf("invalid bounce port in %q", text)
	}
	irc.emit(EventBounce, eventmgr.InfoMap{"server": strings.TrimSpace(server), "port": port, "text": text})
	return nil
}

// 010: RPL_BOUNCE "<hostname> <port> :<info>"
func (irc *Connection) handleBounce(msg ircmsg.Message) error {
	if err := needParams(msg, 3); err != nil {
		return err
	}
	port, err := strconv.Atoi(msg.Params[2])
	if err != nil {
		return fmt.Errorf("invalid bounce port %q", msg.Params[2])
	}
	irc.emit(EventBounce, eventmgr.InfoMap{"server": msg.Params[1], "port": port, "text": msg.Trailing()})
	return nil
}

// 433: ERR_NICKNAMEINUSE "<nick> :Nickname is already in use"
// 437: ERR_UNAVAILRESOURCE "<nick/channel> :Nick/channel is temporarily unavailable"
func (irc *Connection) handleUnavailableNick(msg ircmsg.Message) error {
	irc.handleProtocolError(msg)

	// only try another nick while registering; afterwards the
	// application decides
	var nickToTry string
	irc.stateMutex.Lock()
	if irc.state == StateAwaitingRegistration {
		irc.nickCounter++
		nickToTry = fmt.Sprintf("%s_%d", irc.Registration.nickname(), irc.nickCounter)
	}
	irc.stateMutex.Unlock()

	if nickToTry != "" {
		store := irc.Store()
		if local := store.LocalUser(); local != nil {
			store.RenameUser(local, nickToTry)
		}
		irc.Send("NICK", nickToTry)
	}
	return nil
}

// 400-599: "<context>... :<message>"
func (irc *Connection) handleProtocolError(msg ircmsg.Message) error {
	code, _ := strconv.Atoi(msg.Command)
	protocolErr := &ProtocolError{Code: code}
	if len(msg.Params) > 0 {
		protocolErr.Params = append([]string(nil), msg.Params[:len(msg.Params)-1]...)
		protocolErr.Message = msg.Params[len(msg.Params)-1]
	}
	irc.Metrics.protocolError(msg.Command)
	irc.emit(EventProtocolError, eventmgr.InfoMap{"error": protocolErr})
	return nil
}
