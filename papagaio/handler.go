package papagaio

import (
	"context"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"github.com/lmittmann/tint"
)

// handlerMessageCreate wires the conversation pipeline to gateway message
// events. discordgo already invokes handlers on their own goroutines, so
// independent requests proceed concurrently; same-user turn ordering is
// serialized inside the session store.
func (b *Bot) handlerMessageCreate() func(
	s *discordgo.Session,
	m *discordgo.MessageCreate,
) {
	return func(_ *discordgo.Session, m *discordgo.MessageCreate) {
		b.handleMessage(context.Background(), m.Message)
	}
}

// handleMessage runs one inbound message through the pipeline:
// filter → clean → append requester turn → assemble prompt → model call →
// append assistant turn → chunk → deliver.
//
// Upstream failures never propagate: the user gets a single apology message
// and the request is abandoned, with no assistant turn stored.
func (b *Bot) handleMessage(ctx context.Context, m *discordgo.Message) {
	if fromBot(m) {
		return
	}
	selfID := b.discord.selfID()
	if selfID == "" || m.Author.ID == selfID {
		return
	}

	directMessage := isDirectMessage(m)
	if directMessage {
		if !b.policies.DMEligible() {
			return
		}
	} else if !eligible(m, selfID, b.policies.Get(m.GuildID)) {
		return
	}

	text := CleanContent(m.Content, selfID)
	if text == "" {
		return
	}

	logger := b.logger.With(
		"request_id", uuid.NewString(),
		"user_id", m.Author.ID,
		"channel_id", m.ChannelID,
		"guild_id", m.GuildID,
		"dm", directMessage,
	)
	logger.Info("message accepted", "content_len", len(text))
	b.metricMessagesHandled.Add(1)

	b.sessions.Append(m.Author.ID, Turn{Role: TurnRoleRequester, Text: text})
	prompt := AssemblePrompt(b.sessions.Render(m.Author.ID))

	reply, err := b.llm.Generate(ctx, prompt)
	if err != nil {
		b.metricModelErrors.Add(1)
		logger.Error("model call failed", tint.Err(err))
		b.sendApology(m, directMessage, logger)
		return
	}

	reply = normalizeReply(reply, b.config.Chat.EmptyReplyMessage)
	b.sessions.Append(m.Author.ID, Turn{Role: TurnRoleAssistant, Text: reply})

	chunks := SplitMessage(reply, b.config.Chat.ChunkSize)

	// DM channels are an implicit single thread; reply-chaining only makes
	// sense in group channels.
	var replyTo *discordgo.MessageReference
	if !directMessage {
		replyTo = m.Reference()
	}

	sent, deliverErr := deliverChunks(
		b.discord.session,
		m.ChannelID,
		chunks,
		replyTo,
		b.config.Chat.DeliveryErrorNotice,
		logger,
	)
	if deliverErr != nil {
		logger.Error(
			"delivery incomplete",
			tint.Err(deliverErr),
			"chunks_sent", sent,
			"chunks_total", len(chunks),
		)
		return
	}
	b.metricRepliesSent.Add(1)
	logger.Info("reply delivered", "chunks", len(chunks))
}

// sendApology sends the single fixed model-failure apology. In a group
// channel it replies to the triggering message; in a DM it's a plain send.
// If the apology itself fails there's nothing left to do but log.
func (b *Bot) sendApology(
	m *discordgo.Message,
	directMessage bool,
	logger *slog.Logger,
) {
	var err error
	if directMessage {
		_, err = b.discord.session.ChannelMessageSend(
			m.ChannelID, b.config.Chat.ErrorMessage,
		)
	} else {
		_, err = b.discord.session.ChannelMessageSendReply(
			m.ChannelID, b.config.Chat.ErrorMessage, m.Reference(),
		)
	}
	if err != nil {
		logger.Error("error sending apology message", tint.Err(err))
	}
}
