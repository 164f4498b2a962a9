package ircevent

import (
	"errors"
	"io"
	"log"
	"strconv"
	"strings"
	"testing"

	"github.com/goshuirc/eventmgr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goshuirc/ircclient/ircstate"
)

// newTestConnection returns a Connection that is registering as alice,
// without a transport. Queued lines stay in sendQueue.
func newTestConnection() *Connection {
	irc := &Connection{
		Registration: &UserRegistration{Nick: "alice", UserName: "alice"},
		Log:          log.New(io.Discard, "", 0),
	}
	irc.Store().SetLocal("alice", &ircstate.LocalIdentity{})
	irc.resetCaps()
	irc.state = StateAwaitingRegistration
	return irc
}

// record collects the InfoMaps of an event.
func record(irc *Connection, event string) *[]eventmgr.InfoMap {
	var result []eventmgr.InfoMap
	irc.On(event, func(name string, info eventmgr.InfoMap) {
		result = append(result, info)
	}, 0)
	return &result
}

func (irc *Connection) queuedLines() (lines []string) {
	irc.sendMutex.Lock()
	defer irc.sendMutex.Unlock()
	for _, item := range irc.sendQueue {
		lines = append(lines, item.line)
	}
	return
}

func TestPrivmsgToChannel(t *testing.T) {
	irc := newTestConnection()
	messages := record(irc, EventMessage)

	irc.handleLine(":nick!user@host PRIVMSG #chan :hello there")

	require.Len(t, *messages, 1)
	info := (*messages)[0]
	assert.Equal(t, "hello there", info["text"])
	channel, ok := info["target"].(*ircstate.Channel)
	require.True(t, ok)
	assert.Equal(t, "#chan", channel.Name())
	assert.Same(t, channel, irc.Store().GetChannel("#chan"))
	source := info["source"].(*ircstate.User)
	assert.Equal(t, "nick", source.Nick())
	assert.Equal(t, "user", source.Info().UserName)
	assert.Same(t, irc, info["connection"])
}

func TestPreviewSuppressesMessage(t *testing.T) {
	irc := newTestConnection()
	notices := record(irc, EventNotice)
	irc.On(EventPreviewNotice, func(name string, info eventmgr.InfoMap) {
		if strings.HasPrefix(info["text"].(string), "***") {
			info["handled"] = true
		}
	}, 0)

	irc.handleLine(":irc.example NOTICE * :*** Looking up your hostname")
	irc.handleLine(":bob!b@h NOTICE alice :hi")

	require.Len(t, *notices, 1)
	assert.Equal(t, "hi", (*notices)[0]["text"])
	assert.Same(t, irc.Store().LocalUser(), (*notices)[0]["target"])
}

func TestWelcomeRegisters(t *testing.T) {
	irc := newTestConnection()
	registered := record(irc, EventRegistered)

	irc.handleLine(":irc.example 001 alice :Welcome to the network")

	assert.True(t, irc.Registered())
	assert.Equal(t, "Welcome to the network", irc.WelcomeMessage())
	assert.Len(t, *registered, 1)
}

func TestWelcomeAdoptsServerNick(t *testing.T) {
	irc := newTestConnection()
	irc.handleLine(":irc.example 001 alice_ :Welcome")
	assert.Equal(t, "alice_", irc.CurrentNick())
	assert.Nil(t, irc.Store().GetUser("alice"))
}

func TestMyInfoAndISupport(t *testing.T) {
	irc := newTestConnection()
	irc.handleLine(":irc.example 004 alice irc.example ircd-1.0 iow imnpst")
	info, received := irc.ServerInfo()
	assert.True(t, received)
	assert.Equal(t, "ircd-1.0", info.Version)
	assert.Equal(t, "imnpst", info.ChannelModes)

	irc.handleLine(":irc.example 005 alice PREFIX=(qov)~@+ NETWORK=Example CASEMAPPING=ascii :are supported by this server")
	assert.Equal(t, "Example", irc.ISupport()["NETWORK"])
	mode, ok := irc.Store().Features.ModeForSymbol('~')
	assert.True(t, ok)
	assert.Equal(t, 'q', mode)
	assert.Same(t, irc.Store().LocalUser(), irc.Store().GetUser("ALICE"))
}

func TestBounce(t *testing.T) {
	irc := newTestConnection()
	bounces := record(irc, EventBounce)
	irc.handleLine(":irc.example 005 alice :Try server irc2.example, port 6667")
	require.Len(t, *bounces, 1)
	assert.Equal(t, "irc2.example", (*bounces)[0]["server"])
	assert.Equal(t, 6667, (*bounces)[0]["port"])
}

func TestInvalidPrefixIsViolation(t *testing.T) {
	irc := newTestConnection()
	errs := record(irc, EventError)
	irc.handleLine(":irc.example 005 alice PREFIX=(ov)@ :are supported by this server")
	require.Len(t, *errs, 1)
	err := (*errs)[0]["error"].(error)
	assert.ErrorIs(t, err, ircstate.ErrIsupportPrefixInvalid)
	var violation *ProtocolViolation
	assert.True(t, errors.As(err, &violation))
}

func TestHandlerErrorBecomesViolation(t *testing.T) {
	irc := newTestConnection()
	errs := record(irc, EventError)

	irc.handleLine(":bob!b@h NICK")
	irc.handleLine(":irc.example JOIN #go")

	require.Len(t, *errs, 2)
	assert.ErrorIs(t, (*errs)[0]["error"].(error), ErrNotEnoughParameters)
	assert.ErrorIs(t, (*errs)[1]["error"].(error), ircstate.ErrSourceNotUser)
}

func TestProtocolErrorNumeric(t *testing.T) {
	irc := newTestConnection()
	protocolErrors := record(irc, EventProtocolError)

	irc.handleLine(":irc.example 401 alice bob :No such nick/channel")

	require.Len(t, *protocolErrors, 1)
	protocolErr := (*protocolErrors)[0]["error"].(*ProtocolError)
	assert.Equal(t, 401, protocolErr.Code)
	assert.Equal(t, []string{"alice", "bob"}, protocolErr.Params)
	assert.Equal(t, "No such nick/channel", protocolErr.Message)
}

func TestNickFallback(t *testing.T) {
	irc := newTestConnection()
	protocolErrors := record(irc, EventProtocolError)

	irc.handleLine(":irc.example 433 * alice :Nickname is already in use")
	irc.handleLine(":irc.example 433 * alice_1 :Nickname is already in use")

	assert.Equal(t, []string{"NICK :alice_1", "NICK :alice_2"}, irc.queuedLines())
	assert.Equal(t, "alice_2", irc.CurrentNick())
	assert.Len(t, *protocolErrors, 2)

	// no fallback once registered
	irc.handleLine(":irc.example 001 alice_2 :Welcome")
	irc.handleLine(":irc.example 433 alice_2 bob :Nickname is already in use")
	assert.Len(t, irc.queuedLines(), 2)
}

func TestPingPong(t *testing.T) {
	irc := newTestConnection()
	pongs := record(irc, EventPong)
	irc.handleLine("PING :irc.example")
	irc.handleLine(":irc.example PONG irc.example :token")
	assert.Equal(t, []string{"PONG :irc.example"}, irc.queuedLines())
	require.Len(t, *pongs, 1)
	assert.Equal(t, "token", (*pongs)[0]["text"])
}

func TestMembership(t *testing.T) {
	irc := newTestConnection()
	store := irc.Store()
	joins := record(irc, EventUserJoined)
	kicks := record(irc, EventUserKicked)
	quits := record(irc, EventUserQuit)

	irc.handleLine(":alice!a@h JOIN #go")
	irc.handleLine(":bob!b@h JOIN #go")
	irc.handleLine(":bob!b@h JOIN #go")
	irc.handleLine(":carol!c@h JOIN #go,#rust")
	assert.Len(t, *joins, 4, "duplicate joins are ignored")

	channel := store.GetChannel("#go")
	require.NotNil(t, channel)
	assert.Len(t, channel.Members(), 3)

	irc.handleLine(":bob!b@h PART #go :bye")
	assert.Nil(t, channel.Member(store.GetUser("bob")))
	assert.NotNil(t, store.GetUser("bob"), "parting users are kept")

	irc.handleLine(":alice!a@h KICK #go carol :out")
	require.Len(t, *kicks, 1)
	assert.Equal(t, "out", (*kicks)[0]["comment"])
	assert.Len(t, channel.Members(), 1)

	irc.handleLine(":carol!c@h QUIT :gone")
	require.Len(t, *quits, 1)
	assert.Nil(t, store.GetUser("carol"))
	assert.Empty(t, store.GetChannel("#rust").Members())

	irc.handleLine(":alice!a@h PART #go")
	assert.Nil(t, store.GetChannel("#go"), "channels are forgotten when we leave")
}

func TestNickChange(t *testing.T) {
	irc := newTestConnection()
	changes := record(irc, EventNickChanged)
	irc.handleLine(":bob!b@h JOIN #go")
	bob := irc.Store().GetUser("bob")

	irc.handleLine(":bob!b@h NICK robert")

	require.Len(t, *changes, 1)
	assert.Equal(t, "bob", (*changes)[0]["old nick"])
	assert.Same(t, bob, irc.Store().GetUser("robert"))
	assert.NotNil(t, irc.Store().GetChannel("#go").Member(bob))
}

func TestChannelModes(t *testing.T) {
	irc := newTestConnection()
	store := irc.Store()
	modeChanges := record(irc, EventModeChanged)
	irc.handleLine(":alice!a@h JOIN #go")
	irc.handleLine(":bob!b@h JOIN #go")

	irc.handleLine(":alice!a@h MODE #go +ntk-s+ov secret bob bob")

	require.Len(t, *modeChanges, 1)
	channel := store.GetChannel("#go")
	assert.Equal(t, "knt", channel.Modes.String())
	member := channel.Member(store.GetUser("bob"))
	assert.True(t, member.Modes.Has('o'))
	assert.True(t, member.Modes.Has('v'))

	irc.handleLine(":alice!a@h MODE #go -o+b bob *!*@spam")
	assert.False(t, member.Modes.Has('o'))
	assert.False(t, channel.Modes.Has('b'), "list modes are not stored")

	errs := record(irc, EventError)
	irc.handleLine(":alice!a@h MODE #go +o")
	require.Len(t, *errs, 1)
	assert.ErrorIs(t, (*errs)[0]["error"].(error), ircstate.ErrNotEnoughModeParameters)
}

func TestUserModes(t *testing.T) {
	irc := newTestConnection()
	irc.handleLine(":alice MODE alice :+iw")
	assert.Equal(t, "iw", irc.Store().Local().Modes.String())
	irc.handleLine(":irc.example 221 alice +r")
	assert.Equal(t, "r", irc.Store().Local().Modes.String())
}

func TestTopic(t *testing.T) {
	irc := newTestConnection()
	topics := record(irc, EventTopicChanged)
	irc.handleLine(":irc.example 332 alice #go :first topic")
	irc.handleLine(":irc.example 333 alice #go bob 1700000000")
	channel := irc.Store().GetChannel("#go")
	topic, setBy := channel.Topic()
	assert.Equal(t, "first topic", topic)
	assert.Equal(t, "bob", setBy)

	irc.handleLine(":carol!c@h TOPIC #go :second")
	topic, setBy = channel.Topic()
	assert.Equal(t, "second", topic)
	assert.Equal(t, "carol", setBy)
	assert.Len(t, *topics, 2)
}

func TestNamesReply(t *testing.T) {
	irc := newTestConnection()
	names := record(irc, EventNames)

	irc.handleLine(":irc.example 353 alice @ #go :@alice +bob carol!c@example.org @ ")
	irc.handleLine(":irc.example 366 alice #go :End of /NAMES list.")

	require.Len(t, *names, 1)
	store := irc.Store()
	channel := store.GetChannel("#go")
	assert.Equal(t, ircstate.ChannelSecret, channel.Type())
	assert.Len(t, channel.Members(), 3, "the malformed entry is skipped")
	assert.True(t, channel.Member(store.LocalUser()).Modes.Has('o'))
	assert.True(t, channel.Member(store.GetUser("bob")).Modes.Has('v'))
	assert.Equal(t, "example.org", store.GetUser("carol").Info().HostName)
}

func TestWhoReply(t *testing.T) {
	irc := newTestConnection()
	whos := record(irc, EventWho)
	irc.handleLine(":alice!a@h JOIN #go")
	irc.handleLine(":irc.example 352 alice #go bob bob.example irc.example bob G*@ :2 Bob Smith")
	irc.handleLine(":irc.example 315 alice #go :End of WHO list")

	require.Len(t, *whos, 1)
	bob := irc.Store().GetUser("bob")
	info := bob.Info()
	assert.True(t, info.IsAway)
	assert.True(t, info.IsOperator)
	assert.Equal(t, 2, info.HopCount)
	assert.Equal(t, "Bob Smith", info.RealName)
	assert.True(t, irc.Store().GetChannel("#go").Member(bob).Modes.Has('o'))
}

func TestWhois(t *testing.T) {
	irc := newTestConnection()
	whois := record(irc, EventWhois)
	irc.handleLine(":irc.example 311 alice bob b bob.example * :Bob")
	irc.handleLine(":irc.example 312 alice bob irc.example :Example server")
	irc.handleLine(":irc.example 313 alice bob :is an IRC operator")
	irc.handleLine(":irc.example 317 alice bob 60 1700000000 :seconds idle, signon time")
	irc.handleLine(":irc.example 318 alice bob :End of /WHOIS list.")

	require.Len(t, *whois, 1)
	bob := (*whois)[0]["user"].(*ircstate.User)
	info := bob.Info()
	assert.Equal(t, "bob.example", info.HostName)
	assert.Equal(t, "irc.example", info.ServerName)
	assert.True(t, info.IsOperator)
	assert.Equal(t, float64(60), info.IdleDuration.Seconds())
}

func TestWhowas(t *testing.T) {
	irc := newTestConnection()
	whowas := record(irc, EventWhowas)
	irc.handleLine(":irc.example 314 alice dave d dave.example * :Dave")
	irc.handleLine(":irc.example 312 alice dave irc.example :Sun Jan 1 2023")
	irc.handleLine(":irc.example 369 alice dave :End of WHOWAS")

	require.Len(t, *whowas, 1)
	info := (*whowas)[0]["user"].(ircstate.UserInfo)
	assert.Equal(t, "dave.example", info.HostName)
	assert.Equal(t, "irc.example", info.ServerName)
	assert.Nil(t, irc.Store().GetUser("dave"))
}

func TestMotd(t *testing.T) {
	irc := newTestConnection()
	motds := record(irc, EventMotd)
	irc.handleLine(":irc.example 375 alice :- irc.example Message of the day -")
	irc.handleLine(":irc.example 372 alice :- line one")
	irc.handleLine(":irc.example 372 alice :- line two")
	irc.handleLine(":irc.example 376 alice :End of /MOTD command.")

	require.Len(t, *motds, 1)
	assert.Equal(t, "line one\nline two", (*motds)[0]["text"])
	assert.Equal(t, "line one\nline two", irc.MessageOfTheDay())
}

func TestNoMotd(t *testing.T) {
	irc := newTestConnection()
	motds := record(irc, EventMotd)
	protocolErrors := record(irc, EventProtocolError)
	irc.handleLine(":irc.example 422 alice :MOTD File is missing")
	require.Len(t, *motds, 1)
	assert.Equal(t, "", (*motds)[0]["text"])
	assert.Len(t, *protocolErrors, 1)
}

func TestListLinksStats(t *testing.T) {
	irc := newTestConnection()
	lists := record(irc, EventList)
	links := record(irc, EventLinks)
	stats := record(irc, EventStats)

	irc.handleLine(":irc.example 321 alice Channel :Users  Name")
	irc.handleLine(":irc.example 322 alice #go 42 :Go talk")
	irc.handleLine(":irc.example 323 alice :End of /LIST")
	require.Len(t, *lists, 1)
	assert.Equal(t, []ChannelInfo{{Name: "#go", VisibleUsers: 42, Topic: "Go talk"}}, (*lists)[0]["channels"])

	irc.handleLine(":irc.example 364 alice * irc.example :0 Example hub")
	irc.handleLine(":irc.example 365 alice * :End of /LINKS list.")
	require.Len(t, *links, 1)
	assert.Equal(t, []ServerLink{{Mask: "*", Server: "irc.example", HopCount: 0, Info: "Example hub"}}, (*links)[0]["links"])

	irc.handleLine(":irc.example 242 alice :Server Up 1 days 2:03:04")
	irc.handleLine(":irc.example 219 alice u :End of /STATS report")
	require.Len(t, *stats, 1)
	assert.Equal(t, "u", (*stats)[0]["type"])
	assert.Equal(t, []StatsEntry{{Code: "242", Params: []string{"Server Up 1 days 2:03:04"}}}, (*stats)[0]["entries"])
}

func TestStatsCollectsOnlyStatsNumerics(t *testing.T) {
	irc := newTestConnection()
	stats := record(irc, EventStats)

	irc.handleLine(":irc.example 243 alice O *@* * oper 0 1")
	irc.handleLine(":irc.example 234 alice NickServ * * 0 0 :Nickname services")
	irc.handleLine(":irc.example 231 alice :ignored")
	irc.handleLine(":irc.example 244 alice H hub.example * leaf.example")
	irc.handleLine(":irc.example 219 alice o :End of /STATS report")

	require.Len(t, *stats, 1)
	entries := (*stats)[0]["entries"].([]StatsEntry)
	require.Len(t, entries, 2)
	assert.Equal(t, RPL_STATSOLINE, entries[0].Code)
	assert.Equal(t, RPL_STATSHLINE, entries[1].Code)

	table, err := getCommandTable()
	require.NoError(t, err)
	for code := 231; code <= 235; code++ {
		assert.Nil(t, table.lookup(strconv.Itoa(code)), code)
	}
}

func TestLusers(t *testing.T) {
	irc := newTestConnection()
	lusers := record(irc, EventLusers)
	irc.handleLine(":irc.example 252 alice 3 :IRC Operators online")
	irc.handleLine(":irc.example 266 alice 10 20 :Current global users 10, max 20")
	require.Len(t, *lusers, 2)
	last := (*lusers)[1]["lusers"].(LusersInfo)
	assert.Equal(t, 3, last.Operators)
	assert.Equal(t, 10, last.GlobalUsers)
	assert.Equal(t, 20, last.MaxGlobalUsers)
}

func TestAwayReplies(t *testing.T) {
	irc := newTestConnection()
	irc.handleLine(":irc.example 306 alice :You have been marked as being away")
	assert.True(t, irc.Store().LocalUser().Info().IsAway)
	irc.handleLine(":irc.example 305 alice :You are no longer marked as being away")
	assert.False(t, irc.Store().LocalUser().Info().IsAway)

	irc.handleLine(":irc.example 302 alice :bob*=-b@bob.example")
	info := irc.Store().GetUser("bob").Info()
	assert.True(t, info.IsOperator)
	assert.True(t, info.IsAway)
	assert.Equal(t, "bob.example", info.HostName)
}

func TestCapNegotiation(t *testing.T) {
	irc := newTestConnection()
	irc.RequestCaps = []string{"multi-prefix", "sasl"}
	caps := record(irc, EventCaps)

	irc.handleLine(":irc.example CAP * LS * :multi-prefix away-notify")
	assert.Empty(t, irc.queuedLines(), "no request before the final LS line")
	irc.handleLine(":irc.example CAP * LS :server-time")
	assert.Equal(t, []string{"CAP REQ :multi-prefix"}, irc.queuedLines())

	irc.handleLine(":irc.example CAP * ACK :multi-prefix")
	assert.Equal(t, []string{"CAP REQ :multi-prefix", "CAP :END"}, irc.queuedLines())
	assert.True(t, irc.CapEnabled("multi-prefix"))
	assert.Equal(t, []string{"multi-prefix"}, irc.EnabledCaps())
	assert.Contains(t, irc.AvailableCaps(), "away-notify")
	assert.Len(t, *caps, 3)
}

func TestCapNakEndsNegotiation(t *testing.T) {
	irc := newTestConnection()
	irc.handleLine(":irc.example CAP * NAK :sasl")
	assert.Equal(t, []string{"CAP :END"}, irc.queuedLines())
}

func TestHandlerPanicIsRecovered(t *testing.T) {
	irc := newTestConnection()
	errs := record(irc, EventError)
	irc.On(EventMessage, func(name string, info eventmgr.InfoMap) {
		panic("boom")
	}, 0)

	assert.NotPanics(t, func() {
		irc.handleLine(":bob!b@h PRIVMSG alice :hi")
	})
	require.Len(t, *errs, 1)
	var violation *ProtocolViolation
	assert.True(t, errors.As((*errs)[0]["error"].(error), &violation))
}

func TestUnhandledCommandIsDropped(t *testing.T) {
	irc := newTestConnection()
	errs := record(irc, EventError)
	raw := record(irc, EventRawReceived)
	irc.handleLine(":irc.example WALLOPS :hello")
	assert.Empty(t, *errs)
	assert.Len(t, *raw, 1)
}

func TestRegistrationValidation(t *testing.T) {
	assert.ErrorIs(t, (&UserRegistration{Nick: "alice"}).Validate(), ErrInvalidRegistration)
	assert.ErrorIs(t, (&UserRegistration{Nick: "al ice", UserName: "a"}).Validate(), ErrInvalidRegistration)
	assert.NoError(t, (&UserRegistration{Nick: "alice", UserName: "a"}).Validate())
	assert.ErrorIs(t, (&ServiceRegistration{Nick: "svc"}).Validate(), ErrInvalidRegistration)
	assert.NoError(t, (&ServiceRegistration{Nick: "svc", Description: "a service"}).Validate())

	assert.Equal(t, "12", (&UserRegistration{UserModes: "iw"}).modeMask())
	assert.Equal(t, "0", (&UserRegistration{}).modeMask())
}
