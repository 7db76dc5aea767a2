package papagaio

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/lmittmann/tint"
)

const (
	commandConfigureChannel  = "configurar-canal"
	commandEnablePV          = "ativar-pv"
	commandDisablePV         = "desativar-pv"
	commandSetActivationMode = "modo-ativacao"
	commandPVStatus          = "status-pv"
	commandConfigStatus      = "status-config"
	commandPVGlobal          = "pv-global"
	commandClearHistory      = "limpar"

	commandOptionChannel = "canal"
	commandOptionMode    = "modo"
	commandOptionEnabled = "ativado"

	modeChoiceMention = "mencao"
	modeChoiceAll     = "todas"

	replyNotAdmin      = "🚫 Apenas administradores podem usar esse comando."
	replyGuildOnly     = "Esse comando só funciona dentro de um servidor."
	replyConfigFailed  = "Não consegui salvar a configuração. Tente de novo."
	replyHistoryClear  = "🧹 Prontinho! Esqueci nossa conversa."
	activationLabelPT  = "menção"
	activationLabelAll = "qualquer mensagem"
)

// slashCommands returns the application command set sent to the bulk
// overwrite endpoint. Configuration commands are marked admin-only via
// default member permissions; the handler re-checks the permission anyway,
// since guild admins can reassign command permissions.
func slashCommands() []*discordgo.ApplicationCommand {
	adminPerm := int64(discordgo.PermissionAdministrator)
	dmDenied := false

	adminCommand := func(name string, description string) *discordgo.ApplicationCommand {
		return &discordgo.ApplicationCommand{
			Name:                     name,
			Description:              description,
			Type:                     discordgo.ChatApplicationCommand,
			DefaultMemberPermissions: &adminPerm,
			DMPermission:             &dmDenied,
		}
	}

	configureChannel := adminCommand(
		commandConfigureChannel,
		"Restringe o bot a um canal (sem canal = liberado em todos)",
	)
	configureChannel.Options = []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionChannel,
			Name:        commandOptionChannel,
			Description: "Canal permitido",
			Required:    false,
		},
	}

	setMode := adminCommand(
		commandSetActivationMode,
		"Define quando o bot responde no servidor",
	)
	setMode.Options = []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        commandOptionMode,
			Description: "Modo de ativação",
			Required:    true,
			Choices: []*discordgo.ApplicationCommandOptionChoice{
				{Name: "Responder só quando mencionado", Value: modeChoiceMention},
				{Name: "Responder a qualquer mensagem", Value: modeChoiceAll},
			},
		},
	}

	pvGlobal := adminCommand(
		commandPVGlobal,
		"Liga ou desliga o PV do bot para todo mundo",
	)
	pvGlobal.Options = []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionBoolean,
			Name:        commandOptionEnabled,
			Required:    true,
			Description: "true para ligar, false para desligar",
		},
	}

	dmAllowed := true
	clearHistory := &discordgo.ApplicationCommand{
		Name:         commandClearHistory,
		Description:  "Apaga o seu histórico de conversa com o bot",
		Type:         discordgo.ChatApplicationCommand,
		DMPermission: &dmAllowed,
	}

	return []*discordgo.ApplicationCommand{
		configureChannel,
		adminCommand(commandEnablePV, "Habilita o uso do bot por mensagem privada neste servidor"),
		adminCommand(commandDisablePV, "Desabilita o uso do bot por mensagem privada neste servidor"),
		setMode,
		adminCommand(commandPVStatus, "Mostra a configuração de PV deste servidor"),
		adminCommand(commandConfigStatus, "Mostra a configuração completa deste servidor"),
		pvGlobal,
		clearHistory,
	}
}

// isAdmin reports whether the invoking member holds administrator
// capability. DM interactions have no member and never pass.
func isAdmin(i *discordgo.InteractionCreate) bool {
	return i.Member != nil &&
		i.Member.Permissions&discordgo.PermissionAdministrator != 0
}

// respondEphemeral acknowledges the interaction with a caller-only-visible
// message.
func (b *Bot) respondEphemeral(i *discordgo.InteractionCreate, content string) {
	err := b.discord.session.InteractionRespond(
		i.Interaction,
		&discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{
				Content: content,
				Flags:   discordgo.MessageFlagsEphemeral,
			},
		},
	)
	if err != nil {
		b.logger.Error("error responding to interaction", tint.Err(err))
	}
}

// handlerInteractionCreate dispatches slash command invocations. Every
// configuration command is admin-gated: a non-administrator invocation gets
// an ephemeral rejection and causes no state change.
func (b *Bot) handlerInteractionCreate() func(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
) {
	return func(_ *discordgo.Session, i *discordgo.InteractionCreate) {
		if i.Type != discordgo.InteractionApplicationCommand {
			return
		}
		data := i.ApplicationCommandData()
		ctx := context.Background()

		if data.Name == commandClearHistory {
			b.runClearCommand(i)
			return
		}

		if i.GuildID == "" {
			b.respondEphemeral(i, replyGuildOnly)
			return
		}
		if !isAdmin(i) {
			b.logger.Warn(
				"admin command rejected",
				"command", data.Name,
				"guild_id", i.GuildID,
			)
			b.respondEphemeral(i, replyNotAdmin)
			return
		}

		switch data.Name {
		case commandConfigureChannel:
			b.runConfigureChannel(ctx, i, data)
		case commandEnablePV:
			b.runSetPV(ctx, i, true)
		case commandDisablePV:
			b.runSetPV(ctx, i, false)
		case commandSetActivationMode:
			b.runSetActivationMode(ctx, i, data)
		case commandPVStatus:
			b.runPVStatus(i)
		case commandConfigStatus:
			b.runConfigStatus(i)
		case commandPVGlobal:
			b.runPVGlobal(ctx, i, data)
		default:
			b.logger.Warn("unknown command", "command", data.Name)
		}
	}
}

func (b *Bot) runClearCommand(i *discordgo.InteractionCreate) {
	user := getDiscordUser(i)
	if user == nil {
		return
	}
	b.sessions.Clear(user.ID)
	b.logger.Info("history cleared", "user_id", user.ID)
	b.respondEphemeral(i, replyHistoryClear)
}

func (b *Bot) runConfigureChannel(
	ctx context.Context,
	i *discordgo.InteractionCreate,
	data discordgo.ApplicationCommandInteractionData,
) {
	var channelID string
	var label string
	for _, opt := range data.Options {
		if opt.Name == commandOptionChannel {
			ch := opt.ChannelValue(nil)
			if ch != nil {
				channelID = ch.ID
			}
		}
	}

	if err := b.policies.SetAllowedChannel(ctx, i.GuildID, channelID); err != nil {
		b.logger.Error("error setting allowed channel", tint.Err(err))
		b.respondEphemeral(i, replyConfigFailed)
		return
	}
	if channelID == "" {
		label = "✅ Canal liberado: vou responder em qualquer canal."
	} else {
		label = fmt.Sprintf("✅ Agora só respondo no canal <#%s>.", channelID)
	}
	b.respondEphemeral(i, label)
}

func (b *Bot) runSetPV(
	ctx context.Context,
	i *discordgo.InteractionCreate,
	enabled bool,
) {
	if err := b.policies.SetPVEnabled(ctx, i.GuildID, enabled); err != nil {
		b.logger.Error("error setting pv flag", tint.Err(err))
		b.respondEphemeral(i, replyConfigFailed)
		return
	}
	settings := b.policies.Settings()
	if enabled {
		b.respondEphemeral(i, fmt.Sprintf(
			"✅ PV habilitado para este servidor.\nQuem libera o PV de verdade é o `/%s` (no momento: %s).",
			commandPVGlobal,
			enabledLabel(settings.PVGlobalEnabled),
		))
	} else {
		b.respondEphemeral(i, "✅ PV desabilitado para este servidor.")
	}
}

func (b *Bot) runSetActivationMode(
	ctx context.Context,
	i *discordgo.InteractionCreate,
	data discordgo.ApplicationCommandInteractionData,
) {
	mode := ActivationOnMention
	for _, opt := range data.Options {
		if opt.Name == commandOptionMode && opt.StringValue() == modeChoiceAll {
			mode = ActivationOnAnyMessage
		}
	}

	if err := b.policies.SetActivationMode(ctx, i.GuildID, mode); err != nil {
		b.logger.Error("error setting activation mode", tint.Err(err))
		b.respondEphemeral(i, replyConfigFailed)
		return
	}
	b.respondEphemeral(i, fmt.Sprintf(
		"✅ Modo de ativação: %s.", activationLabel(mode),
	))
}

func (b *Bot) runPVStatus(i *discordgo.InteractionCreate) {
	policy := b.policies.Get(i.GuildID)
	settings := b.policies.Settings()
	b.respondEphemeral(i, fmt.Sprintf(
		"PV neste servidor: %s\nPV global: %s",
		enabledLabel(policy.PVEnabled),
		enabledLabel(settings.PVGlobalEnabled),
	))
}

func (b *Bot) runConfigStatus(i *discordgo.InteractionCreate) {
	policy := b.policies.Get(i.GuildID)

	channel := "todos os canais"
	if policy.AllowedChannelID != "" {
		channel = fmt.Sprintf("<#%s>", policy.AllowedChannelID)
	}

	var sb strings.Builder
	sb.WriteString("**Configuração do servidor**\n")
	fmt.Fprintf(&sb, "Canal permitido: %s\n", channel)
	fmt.Fprintf(&sb, "Modo de ativação: %s\n", activationLabel(policy.ActivationMode))
	fmt.Fprintf(&sb, "PV: %s", enabledLabel(policy.PVEnabled))
	b.respondEphemeral(i, sb.String())
}

func (b *Bot) runPVGlobal(
	ctx context.Context,
	i *discordgo.InteractionCreate,
	data discordgo.ApplicationCommandInteractionData,
) {
	enabled := false
	for _, opt := range data.Options {
		if opt.Name == commandOptionEnabled {
			enabled = opt.BoolValue()
		}
	}

	if err := b.policies.SetPVGlobal(ctx, enabled); err != nil {
		b.logger.Error("error setting global pv flag", tint.Err(err))
		b.respondEphemeral(i, replyConfigFailed)
		return
	}
	b.respondEphemeral(i, fmt.Sprintf(
		"✅ PV global: %s.", enabledLabel(enabled),
	))
}

func activationLabel(mode ActivationMode) string {
	if mode == ActivationOnAnyMessage {
		return activationLabelAll
	}
	return activationLabelPT
}

func enabledLabel(enabled bool) string {
	if enabled {
		return "habilitado"
	}
	return "desabilitado"
}
