package papagaio

import (
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeliverChunks_DirectMessage(t *testing.T) {
	sender := newFakeSessionHandler()

	sent, err := deliverChunks(
		sender,
		"dm-channel",
		[]string{"part one", "part two"},
		nil,
		DefaultDeliveryErrorNotice,
		slog.Default(),
	)
	require.NoError(t, err)
	assert.Equal(t, 2, sent)

	// plain sends, no reply-chaining in a DM
	require.Len(t, sender.messagesSent, 2)
	assert.Empty(t, sender.repliesSent)
	assert.Equal(t, "part one", sender.messagesSent[0].Content)
	assert.Equal(t, "part two", sender.messagesSent[1].Content)

	// typing before each chunk
	assert.Equal(t, []string{"dm-channel", "dm-channel"}, sender.typingChannels)
}

func TestDeliverChunks_GroupChannelReplyChain(t *testing.T) {
	sender := newFakeSessionHandler()
	trigger := &discordgo.MessageReference{
		MessageID: "trigger-msg",
		ChannelID: "c1",
		GuildID:   "g1",
	}

	chunks := SplitMessage(strings.Repeat("a", 5000), 1900)
	require.Len(t, chunks, 3)

	sent, err := deliverChunks(
		sender, "c1", chunks, trigger, DefaultDeliveryErrorNotice, slog.Default(),
	)
	require.NoError(t, err)
	assert.Equal(t, 3, sent)
	assert.Empty(t, sender.messagesSent)
	require.Len(t, sender.repliesSent, 3)

	// first chunk replies to the trigger; each later chunk replies to the
	// previously sent message
	assert.Equal(t, "trigger-msg", sender.repliesSent[0].Reference.MessageID)
	assert.Equal(t, "sent-1", sender.repliesSent[1].Reference.MessageID)
	assert.Equal(t, "sent-2", sender.repliesSent[2].Reference.MessageID)
}

func TestDeliverChunks_TypingFailureIsNonFatal(t *testing.T) {
	sender := newFakeSessionHandler()
	sender.typingErr = errors.New("typing broke")

	sent, err := deliverChunks(
		sender,
		"dm-channel",
		[]string{"only chunk"},
		nil,
		DefaultDeliveryErrorNotice,
		slog.Default(),
	)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	require.Len(t, sender.messagesSent, 1)
}

func TestDeliverChunks_SendFailureAbortsAndNotifies(t *testing.T) {
	sender := newFakeSessionHandler()
	sendErr := errors.New("send failed")
	trigger := &discordgo.MessageReference{MessageID: "trigger-msg", ChannelID: "c1"}

	// first reply succeeds, the second content send fails; the fallback
	// notice afterwards also hits the failure and is dropped after logging
	sender.sendErrAfter = 1
	sender.sendErr = sendErr

	sent, err := deliverChunks(
		sender,
		"c1",
		[]string{"one", "two", "three"},
		trigger,
		DefaultDeliveryErrorNotice,
		slog.Default(),
	)
	require.ErrorIs(t, err, sendErr)
	assert.Equal(t, 1, sent)
	require.Len(t, sender.repliesSent, 1)
	assert.Equal(t, "one", sender.repliesSent[0].Content)
}

func TestDeliverChunks_FallbackNoticeSent(t *testing.T) {
	sender := newFakeSessionHandler()
	sendErr := errors.New("send failed")
	trigger := &discordgo.MessageReference{MessageID: "trigger-msg", ChannelID: "c1"}

	// replies always fail, plain sends succeed, so the fallback notice
	// goes through
	failing := &replyFailingSession{fakeSessionHandler: sender, err: sendErr}

	sent, err := deliverChunks(
		failing,
		"c1",
		[]string{"one", "two"},
		trigger,
		DefaultDeliveryErrorNotice,
		slog.Default(),
	)
	require.ErrorIs(t, err, sendErr)
	assert.Equal(t, 0, sent)
	require.Len(t, sender.messagesSent, 1)
	assert.Equal(t, DefaultDeliveryErrorNotice, sender.messagesSent[0].Content)
}

func TestDeliverChunks_NoChunks(t *testing.T) {
	sender := newFakeSessionHandler()
	sent, err := deliverChunks(
		sender, "c1", nil, nil, DefaultDeliveryErrorNotice, slog.Default(),
	)
	require.NoError(t, err)
	assert.Zero(t, sent)
	assert.Empty(t, sender.typingChannels)
	assert.Empty(t, sender.messagesSent)
}

type replyFailingSession struct {
	*fakeSessionHandler
	err error
}

func (r *replyFailingSession) ChannelMessageSendReply(
	string,
	string,
	*discordgo.MessageReference,
	...discordgo.RequestOption,
) (*discordgo.Message, error) {
	return nil, r.err
}
