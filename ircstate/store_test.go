package ircstate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrCreate(t *testing.T) {
	s := NewStore()
	u, created := s.GetOrCreateUser("Alice")
	assert.True(t, created)
	again, created := s.GetOrCreateUser("ALICE")
	assert.False(t, created)
	assert.Same(t, u, again)

	ch, created := s.GetOrCreateChannel("#Go[]")
	assert.True(t, created)
	assert.Same(t, ch, s.GetChannel("#go{}"))
	assert.Equal(t, "#Go[]", ch.Name())

	srv, created := s.GetOrCreateServer("irc.example.org")
	assert.True(t, created)
	again2, _ := s.GetOrCreateServer("IRC.example.org")
	assert.Same(t, srv, again2)
}

func TestRenameUser(t *testing.T) {
	s := NewStore()
	u, _ := s.GetOrCreateUser("alice")
	ch, _ := s.GetOrCreateChannel("#go")
	ch.AddUser(u)

	s.RenameUser(u, "alicia")
	assert.Nil(t, s.GetUser("alice"))
	assert.Same(t, u, s.GetUser("alicia"))
	assert.NotNil(t, ch.Member(u), "membership survives a nick change")
}

func TestUpdateKeepsNick(t *testing.T) {
	u := newUser("alice")
	u.Update(func(info *UserInfo) {
		info.Nick = "mallory"
		info.RealName = "Alice"
	})
	assert.Equal(t, "alice", u.Nick())
	assert.Equal(t, "Alice", u.Info().RealName)
}

func TestRemoveUser(t *testing.T) {
	s := NewStore()
	u, _ := s.GetOrCreateUser("bob")
	ch1, _ := s.GetOrCreateChannel("#a")
	ch2, _ := s.GetOrCreateChannel("#b")
	ch1.AddUser(u)
	ch2.AddUser(u)
	assert.Len(t, s.ChannelsOf(u), 2)

	s.RemoveUser(u)
	assert.Nil(t, s.GetUser("bob"))
	assert.Empty(t, s.ChannelsOf(u))
	assert.False(t, u.Info().IsOnline)
	assert.Len(t, s.Channels(), 2, "channels are kept")
}

func TestChannelMembership(t *testing.T) {
	s := NewStore()
	u, _ := s.GetOrCreateUser("carol")
	ch, _ := s.GetOrCreateChannel("#go")

	cu, created := ch.AddUser(u)
	assert.True(t, created)
	_, created = ch.AddUser(u)
	assert.False(t, created)
	cu.Modes.Add('o')
	assert.True(t, ch.Member(u).Modes.Has('o'))

	assert.True(t, ch.RemoveUser(u))
	assert.False(t, ch.RemoveUser(u))

	ch.SetTopic("hello", "carol")
	topic, setBy := ch.Topic()
	assert.Equal(t, "hello", topic)
	assert.Equal(t, "carol", setBy)
	ch.SetType(ChannelTypeFromSymbol("@"))
	assert.Equal(t, ChannelSecret, ch.Type())

	s.RemoveChannel(ch)
	assert.Nil(t, s.GetChannel("#go"))
}

func TestRekey(t *testing.T) {
	s := NewStore()
	u, _ := s.GetOrCreateUser("a[b]")
	assert.Same(t, u, s.GetUser("a{b}"))

	require.NoError(t, s.Features.Parse("CASEMAPPING=ascii"))
	s.Rekey()
	assert.Nil(t, s.GetUser("a{b}"))
	assert.Same(t, u, s.GetUser("A[B]"))
}

func TestLocalIdentity(t *testing.T) {
	s := NewStore()
	assert.Nil(t, s.LocalUser())
	u := s.SetLocal("me", &LocalIdentity{})
	assert.True(t, s.IsLocal(u))
	other, _ := s.GetOrCreateUser("you")
	assert.False(t, s.IsLocal(other))
	assert.NotNil(t, s.Local().Modes)

	s.Reset()
	assert.Nil(t, s.LocalUser())
	assert.Empty(t, s.Users())
}

func TestSourceFromPrefix(t *testing.T) {
	s := NewStore()
	source, err := s.SourceFromPrefix("irc.example.org")
	require.NoError(t, err)
	assert.IsType(t, &Server{}, source)

	source, err = s.SourceFromPrefix("dan!d@localhost")
	require.NoError(t, err)
	u, ok := source.(*User)
	require.True(t, ok)
	assert.Equal(t, "d", u.Info().UserName)
	assert.Equal(t, "localhost", u.Info().HostName)

	source, err = s.SourceFromPrefix("")
	assert.NoError(t, err)
	assert.Nil(t, source)

	_, err = s.UserFromPrefix("irc.example.org")
	assert.ErrorIs(t, err, ErrSourceNotUser)
}

func TestResolveTarget(t *testing.T) {
	s := NewStore()
	target, err := s.ResolveTarget("#go")
	require.NoError(t, err)
	assert.IsType(t, &Channel{}, target)

	target, err = s.ResolveTarget("alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", target.TargetName())

	alice := target.(*User)
	alice.Update(func(info *UserInfo) { info.UserName = "al" })
	target, err = s.ResolveTarget("al@example.org")
	require.NoError(t, err)
	assert.Same(t, alice, target)

	target, err = s.ResolveTarget("$*.example.org")
	require.NoError(t, err)
	assert.Equal(t, &TargetMask{Type: ServerMask, Mask: "*.example.org"}, target)

	target, err = s.ResolveTarget("#*.edu")
	require.NoError(t, err)
	assert.Equal(t, &TargetMask{Type: HostMask, Mask: "*.edu"}, target)

	_, err = s.ResolveTarget("")
	assert.ErrorIs(t, err, ErrTargetInvalid)
}
