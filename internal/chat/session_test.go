package chat

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func openSession(t *testing.T, relay *Relay, name string) (*Session, *fakeChannel) {
	t.Helper()

	ch := &fakeChannel{}
	session, err := relay.OnOpen(context.Background(), ch, name)
	require.NoError(t, err)
	require.Equal(t, StateOpen, session.State())
	return session, ch
}

func TestSessionOpenRegisters(t *testing.T) {
	relay := NewRelay(Config{})

	session, ch := openSession(t, relay, "alice")

	got, err := relay.Registry().Get("alice")
	require.NoError(t, err)
	require.Same(t, ch, got)
	require.Equal(t, "alice", session.Username())
	require.NotEqual(t, uuid.Nil, session.ID())
}

func TestSessionOpenRequiresUsername(t *testing.T) {
	relay := NewRelay(Config{})

	_, err := relay.OnOpen(context.Background(), &fakeChannel{}, "")
	require.Error(t, err)
	require.Zero(t, relay.Registry().Len())
}

func TestSessionMessageRoutes(t *testing.T) {
	relay := NewRelay(Config{})
	alice, aliceCh := openSession(t, relay, "alice")
	_, bobCh := openSession(t, relay, "bob")

	ctx := context.Background()
	require.NoError(t, alice.OnMessage(ctx, "alice entered the room"))
	require.NoError(t, alice.OnMessage(ctx, "alice@bob: psst"))

	require.Equal(t, []string{"alice entered the room"}, aliceCh.messages())
	require.Equal(t, []string{"alice entered the room", "@@alice: psst"}, bobCh.messages())
}

func TestSessionCloseDefaultReason(t *testing.T) {
	relay := NewRelay(Config{})
	alice, aliceCh := openSession(t, relay, "alice")
	_, bobCh := openSession(t, relay, "bob")
	_, carolCh := openSession(t, relay, "carol")

	alice.OnClose(1000, "")

	_, err := relay.Registry().Get("alice")
	require.ErrorIs(t, err, ErrNotFound)
	require.Equal(t, []string{DefaultDepartureReason}, bobCh.messages())
	require.Equal(t, []string{DefaultDepartureReason}, carolCh.messages())
	require.Empty(t, aliceCh.messages())
	require.Equal(t, StateClosed, alice.State())
}

func TestSessionCloseIsTerminal(t *testing.T) {
	relay := NewRelay(Config{})
	alice, _ := openSession(t, relay, "alice")
	_, bobCh := openSession(t, relay, "bob")

	alice.OnClose(1000, "alice left the room")
	alice.OnClose(1006, "")

	require.ErrorIs(t, alice.OnMessage(context.Background(), "hello?"), ErrSessionClosed)
	require.Equal(t, []string{"alice left the room"}, bobCh.messages())
}

func TestSessionDirectedToDepartedUser(t *testing.T) {
	relay := NewRelay(Config{})
	alice, _ := openSession(t, relay, "alice")
	bob, _ := openSession(t, relay, "bob")

	bob.OnClose(1001, "")

	err := alice.OnMessage(context.Background(), "alice@bob: still there?")
	require.ErrorIs(t, err, ErrRecipientNotFound)
}

func TestSessionOverwrittenCloseKeepsNewer(t *testing.T) {
	relay := NewRelay(Config{})
	first, _ := openSession(t, relay, "alice")
	_, second := openSession(t, relay, "alice")

	first.OnClose(1000, "")

	got, err := relay.Registry().Get("alice")
	require.NoError(t, err)
	require.Same(t, second, got)
	require.Equal(t, []string{DefaultDepartureReason}, second.messages())
}

func TestSessionReplaysHistory(t *testing.T) {
	history := &fakeLog{}
	relay := NewRelay(Config{History: history})
	alice, _ := openSession(t, relay, "alice")

	ctx := context.Background()
	require.NoError(t, alice.OnMessage(ctx, "first"))
	require.NoError(t, alice.OnMessage(ctx, "second"))

	_, bobCh := openSession(t, relay, "bob")
	require.Equal(t, []string{"first", "second"}, bobCh.messages())
}

func TestSessionNotifySender(t *testing.T) {
	relay := NewRelay(Config{NotifySender: true})
	alice, aliceCh := openSession(t, relay, "alice")

	err := alice.OnMessage(context.Background(), "alice@nobody: hi")
	require.ErrorIs(t, err, ErrRecipientNotFound)

	msgs := aliceCh.messages()
	require.Len(t, msgs, 1)
	require.Contains(t, msgs[0], "@@server:")
}

func TestSessionSilentByDefault(t *testing.T) {
	relay := NewRelay(Config{})
	alice, aliceCh := openSession(t, relay, "alice")

	require.Error(t, alice.OnMessage(context.Background(), "alice@nobody: hi"))
	require.Empty(t, aliceCh.messages())
}

func TestSessionTakeoverWithUncomparableChannel(t *testing.T) {
	relay := NewRelay(Config{})
	ctx := context.Background()

	var first, second *Session
	require.NotPanics(t, func() {
		var err error
		first, err = relay.OnOpen(ctx, queueChannel{}, "alice")
		require.NoError(t, err)
		second, err = relay.OnOpen(ctx, queueChannel{}, "alice")
		require.NoError(t, err)

		first.OnClose(1000, "")
	})

	require.Equal(t, []string{"alice"}, relay.Registry().Names())

	second.OnClose(1000, "")
	require.Zero(t, relay.Registry().Len())
}
