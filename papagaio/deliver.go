package papagaio

import (
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/lmittmann/tint"
)

// chunkSender is the part of the discord session the delivery sequencer
// needs. Kept narrow so tests can fake it.
type chunkSender interface {
	ChannelTyping(channelID string, options ...discordgo.RequestOption) error
	ChannelMessageSend(
		channelID string,
		content string,
		options ...discordgo.RequestOption,
	) (*discordgo.Message, error)
	ChannelMessageSendReply(
		channelID string,
		content string,
		reference *discordgo.MessageReference,
		options ...discordgo.RequestOption,
	) (*discordgo.Message, error)
}

// deliverChunks sends each chunk as a distinct outbound message, strictly in
// order: a chunk is dispatched only after the previous one was acknowledged
// by the transport.
//
// When replyTo is set (group-channel context), the first chunk is sent as a
// reply to the triggering message and every subsequent chunk replies to the
// previously sent one, so multi-part answers render as a visible linear
// chain. When replyTo is nil (direct messages), every chunk is a plain send:
// a DM channel is already a single implicit thread.
//
// A typing signal is emitted before each send; its failure is logged and
// otherwise ignored. A failed content send aborts the rest of the chain,
// attempts a single fallback notice, and returns the original error.
func deliverChunks(
	sender chunkSender,
	channelID string,
	chunks []string,
	replyTo *discordgo.MessageReference,
	fallbackNotice string,
	logger *slog.Logger,
) (sent int, err error) {
	parent := replyTo
	for i, chunk := range chunks {
		if typingErr := sender.ChannelTyping(channelID); typingErr != nil {
			logger.Debug(
				"typing indicator failed",
				tint.Err(typingErr),
				"channel_id", channelID,
				"chunk", i,
			)
		}

		var msg *discordgo.Message
		var sendErr error
		if parent == nil {
			msg, sendErr = sender.ChannelMessageSend(channelID, chunk)
		} else {
			msg, sendErr = sender.ChannelMessageSendReply(channelID, chunk, parent)
		}
		if sendErr != nil {
			logger.Error(
				"error sending reply chunk",
				tint.Err(sendErr),
				"channel_id", channelID,
				"chunk", i,
				"chunks_total", len(chunks),
			)
			if fallbackNotice != "" {
				if _, noticeErr := sender.ChannelMessageSend(
					channelID, fallbackNotice,
				); noticeErr != nil {
					logger.Error(
						"error sending delivery fallback notice",
						tint.Err(noticeErr),
						"channel_id", channelID,
					)
				}
			}
			return sent, sendErr
		}

		sent++
		// Thread the parent handle forward only when chaining replies.
		if replyTo != nil && msg != nil {
			parent = &discordgo.MessageReference{
				MessageID: msg.ID,
				ChannelID: channelID,
				GuildID:   msg.GuildID,
			}
		}
	}
	return sent, nil
}
