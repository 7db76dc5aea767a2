package papagaio

import (
	"strings"

	"github.com/bwmarrin/discordgo"
)

// CleanContent removes every occurrence of the bot's mention token, in both
// the canonical and the nickname form, then trims surrounding whitespace.
// Pure: same content and bot ID always yield the same result.
//
// An empty result means the message carried nothing but the mention, and the
// event should be dropped silently.
func CleanContent(content string, botUserID string) string {
	content = strings.ReplaceAll(content, "<@"+botUserID+">", "")
	content = strings.ReplaceAll(content, "<@!"+botUserID+">", "")
	return strings.TrimSpace(content)
}

// messageMentionsUser checks whether the message mentions the given user ID
// via @. The mention set is checked first; the raw token forms are checked as
// a fallback, since discordgo doesn't populate Mentions for every event
// variant.
func messageMentionsUser(m *discordgo.Message, userID string) bool {
	if m == nil {
		return false
	}
	for _, mention := range m.Mentions {
		if mention != nil && mention.ID == userID {
			return true
		}
	}
	return strings.Contains(m.Content, "<@"+userID+">") ||
		strings.Contains(m.Content, "<@!"+userID+">")
}

// fromBot reports whether the message originates from a non-human actor.
// Such events are discarded before any other processing.
func fromBot(m *discordgo.Message) bool {
	return m == nil || m.Author == nil || m.Author.Bot
}

// isDirectMessage reports whether the message arrived outside any guild.
func isDirectMessage(m *discordgo.Message) bool {
	return m != nil && m.GuildID == ""
}

// eligible decides whether a guild-channel message qualifies for processing
// under the given policy: the channel restriction must match (empty =
// unrestricted), and either the bot must be mentioned or the policy must
// accept any message.
func eligible(m *discordgo.Message, botUserID string, policy GuildPolicy) bool {
	if policy.AllowedChannelID != "" && policy.AllowedChannelID != m.ChannelID {
		return false
	}
	switch policy.ActivationMode {
	case ActivationOnAnyMessage:
		return true
	default:
		return messageMentionsUser(m, botUserID)
	}
}
