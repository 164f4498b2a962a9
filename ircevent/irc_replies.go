package ircevent

import (
	"strconv"
	"strings"
	"time"

	"github.com/goshuirc/eventmgr"

	"github.com/goshuirc/ircclient/ircmsg"
	"github.com/goshuirc/ircclient/ircstate"
)

// ChannelInfo is one entry of a LIST reply.
type ChannelInfo struct {
	Name         string
	VisibleUsers int
	Topic        string
}

// ServerLink is one entry of a LINKS reply.
type ServerLink struct {
	Mask     string
	Server   string
	HopCount int
	Info     string
}

// StatsEntry is one RPL_STATS* line, without the leading nick.
type StatsEntry struct {
	Code   string
	Params []string
}

// LusersInfo collects the LUSERS replies.
type LusersInfo struct {
	ClientInfo         string
	Operators          int
	UnknownConnections int
	Channels           int
	LocalInfo          string
	LocalUsers         int
	MaxLocalUsers      int
	GlobalUsers        int
	MaxGlobalUsers     int
}

// replyState holds multi-line replies until their end numeric arrives.
type replyState struct {
	motd      []string
	whoisUser *ircstate.User
	whowas    *ircstate.UserInfo
	list      []ChannelInfo
	links     []ServerLink
	stats     []StatsEntry
	lusers    LusersInfo
}

func (irc *Connection) handleMotdStart(msg ircmsg.Message) error {
	irc.replies.motd = nil
	return nil
}

func (irc *Connection) handleMotd(msg ircmsg.Message) error {
	irc.replies.motd = append(irc.replies.motd, strings.TrimPrefix(msg.Trailing(), "- "))
	return nil
}

func (irc *Connection) handleEndOfMotd(msg ircmsg.Message) error {
	text := strings.Join(irc.replies.motd, "\n")
	irc.replies.motd = nil

	irc.stateMutex.Lock()
	irc.motd = text
	irc.stateMutex.Unlock()

	irc.emit(EventMotd, eventmgr.InfoMap{"text": text})
	return nil
}

// 422: ERR_NOMOTD ends the MOTD exchange with an empty text
func (irc *Connection) handleNoMotd(msg ircmsg.Message) error {
	irc.handleProtocolError(msg)
	irc.replies.motd = nil
	return irc.handleEndOfMotd(msg)
}

// 311: RPL_WHOISUSER "<nick> <user> <host> * :<real name>"
func (irc *Connection) handleWhoisUser(msg ircmsg.Message) error {
	if err := needParams(msg, 6); err != nil {
		return err
	}
	user, _ := irc.Store().GetOrCreateUser(msg.Params[1])
	user.Update(func(info *ircstate.UserInfo) {
		info.UserName = msg.Params[2]
		info.HostName = msg.Params[3]
		info.RealName = msg.Params[5]
		info.IsOnline = true
	})
	irc.replies.whoisUser = user
	return nil
}

// 312: RPL_WHOISSERVER "<nick> <server> :<server info>", also part of WHOWAS
func (irc *Connection) handleWhoisServer(msg ircmsg.Message) error {
	if err := needParams(msg, 4); err != nil {
		return err
	}
	store := irc.Store()
	store.GetOrCreateServer(msg.Params[2])
	if whowas := irc.replies.whowas; whowas != nil && store.Fold(whowas.Nick) == store.Fold(msg.Params[1]) {
		whowas.ServerName = msg.Params[2]
		whowas.ServerInfo = msg.Params[3]
		return nil
	}
	if user := store.GetUser(msg.Params[1]); user != nil {
		user.Update(func(info *ircstate.UserInfo) {
			info.ServerName = msg.Params[2]
			info.ServerInfo = msg.Params[3]
		})
	}
	return nil
}

// 313: RPL_WHOISOPERATOR "<nick> :is an IRC operator"
func (irc *Connection) handleWhoisOperator(msg ircmsg.Message) error {
	if err := needParams(msg, 2); err != nil {
		return err
	}
	if user := irc.Store().GetUser(msg.Params[1]); user != nil {
		user.Update(func(info *ircstate.UserInfo) {
			info.IsOperator = true
		})
	}
	return nil
}

// 317: RPL_WHOISIDLE "<nick> <integer> :seconds idle"
func (irc *Connection) handleWhoisIdle(msg ircmsg.Message) error {
	if err := needParams(msg, 3); err != nil {
		return err
	}
	seconds, err := strconv.Atoi(msg.Params[2])
	if err != nil {
		return err
	}
	if user := irc.Store().GetUser(msg.Params[1]); user != nil {
		user.Update(func(info *ircstate.UserInfo) {
			info.IdleDuration = time.Duration(seconds) * time.Second
		})
	}
	return nil
}

// 319: RPL_WHOISCHANNELS "<nick> :*( ( "@" / "+" ) <channel> " " )"
func (irc *Connection) handleWhoisChannels(msg ircmsg.Message) error {
	if err := needParams(msg, 3); err != nil {
		return err
	}
	store := irc.Store()
	user := store.GetUser(msg.Params[1])
	if user == nil {
		return nil
	}
	for _, entry := range strings.Fields(msg.Params[2]) {
		modes, name := store.Features.SplitPrefixes(entry)
		// only channels we already track
		channel := store.GetChannel(name)
		if channel == nil {
			continue
		}
		member, _ := channel.AddUser(user)
		for _, mode := range modes {
			member.Modes.Add(mode)
		}
	}
	return nil
}

// 318: RPL_ENDOFWHOIS "<nick> :End of WHOIS list"
func (irc *Connection) handleEndOfWhois(msg ircmsg.Message) error {
	if err := needParams(msg, 2); err != nil {
		return err
	}
	user := irc.replies.whoisUser
	irc.replies.whoisUser = nil
	if user == nil {
		user = irc.Store().GetUser(msg.Params[1])
	}
	if user != nil {
		irc.emit(EventWhois, eventmgr.InfoMap{"user": user})
	}
	return nil
}

// 314: RPL_WHOWASUSER "<nick> <user> <host> * :<real name>"
func (irc *Connection) handleWhowasUser(msg ircmsg.Message) error {
	if err := needParams(msg, 6); err != nil {
		return err
	}
	irc.replies.whowas = &ircstate.UserInfo{
		Nick:     msg.Params[1],
		UserName: msg.Params[2],
		HostName: msg.Params[3],
		RealName: msg.Params[5],
	}
	return nil
}

// 369: RPL_ENDOFWHOWAS "<nick> :End of WHOWAS"
func (irc *Connection) handleEndOfWhowas(msg ircmsg.Message) error {
	whowas := irc.replies.whowas
	irc.replies.whowas = nil
	if whowas != nil {
		irc.emit(EventWhowas, eventmgr.InfoMap{"user": *whowas})
	}
	return nil
}

func (irc *Connection) handleListStart(msg ircmsg.Message) error {
	irc.replies.list = nil
	return nil
}

// 322: RPL_LIST "<channel> <# visible> :<topic>"
func (irc *Connection) handleList(msg ircmsg.Message) error {
	if err := needParams(msg, 4); err != nil {
		return err
	}
	visible, err := strconv.Atoi(msg.Params[2])
	if err != nil {
		return err
	}
	irc.replies.list = append(irc.replies.list, ChannelInfo{Name: msg.Params[1], VisibleUsers: visible, Topic: msg.Params[3]})
	return nil
}

func (irc *Connection) handleListEnd(msg ircmsg.Message) error {
	channels := irc.replies.list
	irc.replies.list = nil
	irc.emit(EventList, eventmgr.InfoMap{"channels": channels})
	return nil
}

// 364: RPL_LINKS "<mask> <server> :<hopcount> <server info>"
func (irc *Connection) handleLinks(msg ircmsg.Message) error {
	if err := needParams(msg, 4); err != nil {
		return err
	}
	hopText, info, _ := strings.Cut(msg.Params[3], " ")
	hops, err := strconv.Atoi(hopText)
	if err != nil {
		return err
	}
	irc.Store().GetOrCreateServer(msg.Params[2])
	irc.replies.links = append(irc.replies.links, ServerLink{Mask: msg.Params[1], Server: msg.Params[2], HopCount: hops, Info: info})
	return nil
}

func (irc *Connection) handleEndOfLinks(msg ircmsg.Message) error {
	links := irc.replies.links
	irc.replies.links = nil
	irc.emit(EventLinks, eventmgr.InfoMap{"links": links})
	return nil
}

// 211-244: RPL_STATS* entries
func (irc *Connection) handleStatsEntry(msg ircmsg.Message) error {
	if err := needParams(msg, 1); err != nil {
		return err
	}
	irc.replies.stats = append(irc.replies.stats, StatsEntry{Code: msg.Command, Params: append([]string(nil), msg.Params[1:]...)})
	return nil
}

// 219: RPL_ENDOFSTATS "<stats letter> :End of STATS report"
func (irc *Connection) handleEndOfStats(msg ircmsg.Message) error {
	if err := needParams(msg, 2); err != nil {
		return err
	}
	entries := irc.replies.stats
	irc.replies.stats = nil
	irc.emit(EventStats, eventmgr.InfoMap{"entries": entries, "type": msg.Params[1]})
	return nil
}

// 353: RPL_NAMREPLY "( "=" / "*" / "@" ) <channel> :[ "@" / "+" ] <nick> *( " " [ "@" / "+" ] <nick> )"
func (irc *Connection) handleNamesReply(msg ircmsg.Message) error {
	if err := needParams(msg, 4); err != nil {
		return err
	}
	store := irc.Store()
	channel, _ := store.GetOrCreateChannel(msg.Params[2])
	channel.SetType(ircstate.ChannelTypeFromSymbol(msg.Params[1]))

	for _, entry := range strings.Fields(msg.Params[3]) {
		modes, name := store.Features.SplitPrefixes(entry)
		nuh, err := ircmsg.ParseNUH(name)
		if err != nil || nuh.Nick == "" {
			irc.Log.Printf("ignoring malformed NAMES entry %q in %s\n", entry, channel.Name())
			continue
		}
		user, _ := store.GetOrCreateUserFromNUH(nuh)
		member, _ := channel.AddUser(user)
		for _, mode := range modes {
			member.Modes.Add(mode)
		}
	}
	return nil
}

// 366: RPL_ENDOFNAMES "<channel> :End of NAMES list"
func (irc *Connection) handleEndOfNames(msg ircmsg.Message) error {
	if err := needParams(msg, 2); err != nil {
		return err
	}
	if channel := irc.Store().GetChannel(msg.Params[1]); channel != nil {
		irc.emit(EventNames, eventmgr.InfoMap{"channel": channel})
	}
	return nil
}

// 352: RPL_WHOREPLY "<channel> <user> <host> <server> <nick> ( "H" / "G" ) ["*"] [ ( "@" / "+" ) ] :<hopcount> <real name>"
func (irc *Connection) handleWhoReply(msg ircmsg.Message) error {
	if err := needParams(msg, 8); err != nil {
		return err
	}
	store := irc.Store()
	flags := msg.Params[6]
	if flags == "" || (flags[0] != 'H' && flags[0] != 'G') {
		irc.Log.Printf("ignoring malformed WHO entry for %s: flags %q\n", msg.Params[5], flags)
		return nil
	}
	hopText, realName, _ := strings.Cut(msg.Params[7], " ")
	hops, _ := strconv.Atoi(hopText)

	user, _ := store.GetOrCreateUser(msg.Params[5])
	user.Update(func(info *ircstate.UserInfo) {
		info.UserName = msg.Params[2]
		info.HostName = msg.Params[3]
		info.ServerName = msg.Params[4]
		info.RealName = realName
		info.HopCount = hops
		info.IsAway = flags[0] == 'G'
		info.IsOperator = strings.IndexByte(flags, '*') != -1
		info.IsOnline = true
	})
	store.GetOrCreateServer(msg.Params[4])

	if channel := store.GetChannel(msg.Params[1]); channel != nil {
		member, _ := channel.AddUser(user)
		for _, symbol := range flags[1:] {
			if mode, ok := store.Features.ModeForSymbol(symbol); ok {
				member.Modes.Add(mode)
			}
		}
	}
	return nil
}

// 315: RPL_ENDOFWHO "<name> :End of WHO list"
func (irc *Connection) handleEndOfWho(msg ircmsg.Message) error {
	if err := needParams(msg, 2); err != nil {
		return err
	}
	irc.emit(EventWho, eventmgr.InfoMap{"mask": msg.Params[1]})
	return nil
}

// 251-255, 265, 266
func (irc *Connection) handleLusers(msg ircmsg.Message) error {
	if err := needParams(msg, 2); err != nil {
		return err
	}
	lusers := &irc.replies.lusers
	count := func() int {
		n, _ := strconv.Atoi(msg.Params[1])
		return n
	}
	switch msg.Command {
	case RPL_LUSERCLIENT:
		lusers.ClientInfo = msg.Trailing()
	case RPL_LUSEROP:
		lusers.Operators = count()
	case RPL_LUSERUNKNOWN:
		lusers.UnknownConnections = count()
	case RPL_LUSERCHANNELS:
		lusers.Channels = count()
	case RPL_LUSERME:
		lusers.LocalInfo = msg.Trailing()
	case RPL_LOCALUSERS, RPL_GLOBALUSERS:
		// "<nick> [<current> <max>] :Current users: ..."
		var current, maximum int
		if len(msg.Params) >= 4 {
			current, _ = strconv.Atoi(msg.Params[1])
			maximum, _ = strconv.Atoi(msg.Params[2])
		}
		if msg.Command == RPL_LOCALUSERS {
			lusers.LocalUsers, lusers.MaxLocalUsers = current, maximum
		} else {
			lusers.GlobalUsers, lusers.MaxGlobalUsers = current, maximum
		}
	}
	irc.emit(EventLusers, eventmgr.InfoMap{"lusers": *lusers})
	return nil
}

// 391: RPL_TIME "<server> :<string showing server's local time>"
func (irc *Connection) handleTime(msg ircmsg.Message) error {
	if err := needParams(msg, 3); err != nil {
		return err
	}
	irc.emit(EventServerTime, eventmgr.InfoMap{"server": msg.Params[1], "text": msg.Trailing()})
	return nil
}

// 351: RPL_VERSION "<version>.<debuglevel> <server> :<comments>"
func (irc *Connection) handleVersion(msg ircmsg.Message) error {
	if err := needParams(msg, 3); err != nil {
		return err
	}
	comments, _ := msg.Param(3)
	irc.emit(EventServerVersion, eventmgr.InfoMap{"version": msg.Params[1], "server": msg.Params[2], "comments": comments})
	return nil
}

// 302: RPL_USERHOST ":*1<reply> *( " " <reply> )", reply = nickname [ "*" ] "=" ( "+" / "-" ) hostname
func (irc *Connection) handleUserhost(msg ircmsg.Message) error {
	if err := needParams(msg, 2); err != nil {
		return err
	}
	store := irc.Store()
	for _, reply := range strings.Fields(msg.Params[1]) {
		nick, host, found := strings.Cut(reply, "=")
		if !found || len(host) < 1 {
			irc.Log.Printf("ignoring malformed USERHOST reply %q\n", reply)
			continue
		}
		isOperator := strings.HasSuffix(nick, "*")
		nick = strings.TrimSuffix(nick, "*")
		isAway := host[0] == '-'
		userName, hostName, _ := strings.Cut(host[1:], "@")

		user, _ := store.GetOrCreateUser(nick)
		user.Update(func(info *ircstate.UserInfo) {
			info.IsOperator = isOperator
			info.IsAway = isAway
			info.UserName = userName
			info.HostName = hostName
			info.IsOnline = true
		})
	}
	return nil
}

// 303: RPL_ISON ":*1<nick> *( " " <nick> )"
func (irc *Connection) handleIson(msg ircmsg.Message) error {
	if err := needParams(msg, 2); err != nil {
		return err
	}
	store := irc.Store()
	for _, nick := range strings.Fields(msg.Params[1]) {
		user, _ := store.GetOrCreateUser(nick)
		user.Update(func(info *ircstate.UserInfo) {
			info.IsOnline = true
		})
	}
	return nil
}

// 301: RPL_AWAY "<nick> :<away message>"
func (irc *Connection) handleAway(msg ircmsg.Message) error {
	if err := needParams(msg, 3); err != nil {
		return err
	}
	user, _ := irc.Store().GetOrCreateUser(msg.Params[1])
	user.Update(func(info *ircstate.UserInfo) {
		info.IsAway = true
		info.AwayMessage = msg.Params[2]
	})
	irc.emit(EventAway, eventmgr.InfoMap{"user": user, "text": msg.Params[2]})
	return nil
}

func (irc *Connection) setLocalAway(away bool) {
	local := irc.Store().LocalUser()
	if local == nil {
		return
	}
	local.Update(func(info *ircstate.UserInfo) {
		info.IsAway = away
		if !away {
			info.AwayMessage = ""
		}
	})
	irc.emit(EventAway, eventmgr.InfoMap{"user": local, "text": local.Info().AwayMessage})
}

// 305: RPL_UNAWAY
func (irc *Connection) handleUnaway(msg ircmsg.Message) error {
	irc.setLocalAway(false)
	return nil
}

// 306: RPL_NOWAWAY
func (irc *Connection) handleNowAway(msg ircmsg.Message) error {
	irc.setLocalAway(true)
	return nil
}

// 221: RPL_UMODEIS "<user mode string>"
func (irc *Connection) handleUserModeIs(msg ircmsg.Message) error {
	if err := needParams(msg, 2); err != nil {
		return err
	}
	local := irc.Store().Local()
	if local == nil {
		return nil
	}
	local.Modes.Clear()
	if err := ircstate.UpdateModes(local.Modes, msg.Params[1], nil, nil, nil); err != nil {
		return err
	}
	irc.emit(EventUserModes, eventmgr.InfoMap{"user": local.User, "modes": local.Modes.String()})
	return nil
}

// 324: RPL_CHANNELMODEIS "<channel> <mode> <mode params>"
func (irc *Connection) handleChannelModeIs(msg ircmsg.Message) error {
	if err := needParams(msg, 3); err != nil {
		return err
	}
	channel, _ := irc.Store().GetOrCreateChannel(msg.Params[1])
	channel.Modes.Clear()
	if err := irc.applyChannelModes(channel, msg.Params[2], msg.Params[3:]); err != nil {
		return err
	}
	irc.emit(EventChannelModes, eventmgr.InfoMap{"channel": channel, "modes": channel.Modes.String()})
	return nil
}

// 331: RPL_NOTOPIC "<channel> :No topic is set"
func (irc *Connection) handleNoTopic(msg ircmsg.Message) error {
	if err := needParams(msg, 2); err != nil {
		return err
	}
	channel, _ := irc.Store().GetOrCreateChannel(msg.Params[1])
	channel.SetTopic("", "")
	irc.emit(EventTopicChanged, eventmgr.InfoMap{"channel": channel, "topic": ""})
	return nil
}

// 332: RPL_TOPIC "<channel> :<topic>"
func (irc *Connection) handleTopicReply(msg ircmsg.Message) error {
	if err := needParams(msg, 3); err != nil {
		return err
	}
	channel, _ := irc.Store().GetOrCreateChannel(msg.Params[1])
	channel.SetTopic(msg.Params[2], "")
	irc.emit(EventTopicChanged, eventmgr.InfoMap{"channel": channel, "topic": msg.Params[2]})
	return nil
}

// 333: RPL_TOPICWHOTIME "<channel> <setter> <time>"
func (irc *Connection) handleTopicWhoTime(msg ircmsg.Message) error {
	if err := needParams(msg, 3); err != nil {
		return err
	}
	if channel := irc.Store().GetChannel(msg.Params[1]); channel != nil {
		topic, _ := channel.Topic()
		channel.SetTopic(topic, msg.Params[2])
	}
	return nil
}

// 341: RPL_INVITING "<nick> <channel>"
func (irc *Connection) handleInviting(msg ircmsg.Message) error {
	if err := needParams(msg, 3); err != nil {
		return err
	}
	store := irc.Store()
	invited, _ := store.GetOrCreateUser(msg.Params[1])
	channel, _ := store.GetOrCreateChannel(msg.Params[2])
	irc.emit(EventUserInvited, eventmgr.InfoMap{"channel": channel, "user": invited, "source": store.LocalUser()})
	return nil
}

// 381: RPL_YOUREOPER
func (irc *Connection) handleYoureOper(msg ircmsg.Message) error {
	if local := irc.Store().LocalUser(); local != nil {
		local.Update(func(info *ircstate.UserInfo) {
			info.IsOperator = true
		})
	}
	return nil
}

// 383: RPL_YOURESERVICE "You are service <servicename>", which completes
// service registration
func (irc *Connection) handleYoureService(msg ircmsg.Message) error {
	if local := irc.Store().Local(); local != nil {
		local.IsService = true
	}
	if irc.State() == StateRegistered {
		return nil
	}

	irc.stateMutex.Lock()
	irc.welcomeMessage = msg.Trailing()
	irc.stateMutex.Unlock()
	irc.setState(StateRegistered)

	irc.emit(EventRegistered, eventmgr.InfoMap{"message": msg.Trailing()})
	return nil
}
