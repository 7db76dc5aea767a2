package papagaio

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
)

const testBotID = "111222333"

func TestCleanContent(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "canonical mention stripped",
			input:    "<@111222333> oi bot",
			expected: "oi bot",
		},
		{
			name:     "nickname mention stripped",
			input:    "<@!111222333> oi bot",
			expected: "oi bot",
		},
		{
			name:     "both forms and repeats stripped",
			input:    "<@111222333> oi <@!111222333> bot <@111222333>",
			expected: "oi  bot",
		},
		{
			name:     "no mention is a no-op aside from trimming",
			input:    "  oi bot  ",
			expected: "oi bot",
		},
		{
			name:     "mention of another user untouched",
			input:    "<@999> oi",
			expected: "<@999> oi",
		},
		{
			name:     "only a mention yields empty",
			input:    "<@111222333>",
			expected: "",
		},
		{
			name:     "mention plus whitespace yields empty",
			input:    "  <@!111222333>   ",
			expected: "",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := CleanContent(tc.input, testBotID)
			assert.Equal(t, tc.expected, got)
			// pure: a second call with the same input gives the same answer
			assert.Equal(t, got, CleanContent(tc.input, testBotID))
		})
	}
}

func TestMessageMentionsUser(t *testing.T) {
	assert.False(t, messageMentionsUser(nil, testBotID))

	assert.True(t, messageMentionsUser(&discordgo.Message{
		Mentions: []*discordgo.User{{ID: testBotID}},
	}, testBotID))

	assert.True(t, messageMentionsUser(&discordgo.Message{
		Content: "<@111222333> oi",
	}, testBotID))

	assert.True(t, messageMentionsUser(&discordgo.Message{
		Content: "<@!111222333> oi",
	}, testBotID))

	assert.False(t, messageMentionsUser(&discordgo.Message{
		Content:  "oi",
		Mentions: []*discordgo.User{{ID: "999"}},
	}, testBotID))
}

func TestEligible(t *testing.T) {
	mention := "<@" + testBotID + "> oi"

	testCases := []struct {
		name     string
		message  *discordgo.Message
		policy   GuildPolicy
		expected bool
	}{
		{
			name:     "mention required and present",
			message:  &discordgo.Message{ChannelID: "c1", Content: mention},
			policy:   defaultGuildPolicy("g1"),
			expected: true,
		},
		{
			name:     "mention required and absent",
			message:  &discordgo.Message{ChannelID: "c1", Content: "oi"},
			policy:   defaultGuildPolicy("g1"),
			expected: false,
		},
		{
			name:    "any-message mode accepts without mention",
			message: &discordgo.Message{ChannelID: "c1", Content: "oi"},
			policy: GuildPolicy{
				GuildID:        "g1",
				ActivationMode: ActivationOnAnyMessage,
			},
			expected: true,
		},
		{
			name:    "wrong channel rejected even with mention",
			message: &discordgo.Message{ChannelID: "c2", Content: mention},
			policy: GuildPolicy{
				GuildID:          "g1",
				AllowedChannelID: "c1",
				ActivationMode:   ActivationOnMention,
			},
			expected: false,
		},
		{
			name:    "allowed channel accepted",
			message: &discordgo.Message{ChannelID: "c1", Content: mention},
			policy: GuildPolicy{
				GuildID:          "g1",
				AllowedChannelID: "c1",
				ActivationMode:   ActivationOnMention,
			},
			expected: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, eligible(tc.message, testBotID, tc.policy))
		})
	}
}

func TestFromBot(t *testing.T) {
	assert.True(t, fromBot(nil))
	assert.True(t, fromBot(&discordgo.Message{}))
	assert.True(t, fromBot(&discordgo.Message{Author: &discordgo.User{Bot: true}}))
	assert.False(t, fromBot(&discordgo.Message{Author: &discordgo.User{ID: "u1"}}))
}
