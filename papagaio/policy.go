package papagaio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"gorm.io/gorm"
)

// ActivationMode determines whether a group-channel message needs an
// explicit bot mention to trigger processing.
type ActivationMode string

const (
	ActivationOnMention    ActivationMode = "mention"
	ActivationOnAnyMessage ActivationMode = "all"
)

// ModelUnixTime is an embeddable model with Unix millisecond timestamps.
type ModelUnixTime struct {
	CreatedAt int64 `gorm:"autoCreateTime:milli" json:"created_at,omitempty"`
	UpdatedAt int64 `gorm:"autoUpdateTime:milli" json:"updated_at,omitempty"`
}

// GuildPolicy is the per-guild configuration consulted before the pipeline
// runs. Rows are created lazily on the first admin configuration action for
// a guild, mutated only through admin commands, and never deleted.
type GuildPolicy struct {
	ID uint `gorm:"primarykey" json:"id"`
	ModelUnixTime

	GuildID string `gorm:"uniqueIndex" json:"guild_id"`

	// AllowedChannelID restricts processing to one channel. Empty means
	// unrestricted.
	AllowedChannelID string `json:"allowed_channel_id"`

	ActivationMode ActivationMode `json:"activation_mode"`

	// PVEnabled marks this guild as having opted in to private-message use.
	PVEnabled bool `json:"pv_enabled"`
}

// defaultGuildPolicy is the policy applied to guilds with no stored row:
// unrestricted channel, mention activation, PV disabled.
func defaultGuildPolicy(guildID string) GuildPolicy {
	return GuildPolicy{
		GuildID:        guildID,
		ActivationMode: ActivationOnMention,
	}
}

// BotSettings is a single-row table of bot-wide runtime settings.
type BotSettings struct {
	ID uint `gorm:"primarykey" json:"id"`
	ModelUnixTime

	// PVGlobalEnabled gates direct-message eligibility bot-wide. Enabled by
	// default so the bot answers DMs out of the box.
	PVGlobalEnabled bool `json:"pv_global_enabled"`

	CustomStatus string `json:"custom_status"`
}

// PolicyStore owns guild policies and bot-wide settings. Reads come from an
// in-memory cache; writes go through the database first (write-through), so
// the cache never gets ahead of durable state.
type PolicyStore struct {
	db     *gorm.DB
	logger *slog.Logger

	mu       sync.RWMutex
	policies map[string]GuildPolicy
	settings BotSettings
}

// NewPolicyStore loads all stored guild policies and the settings row,
// creating the settings row if absent.
func NewPolicyStore(
	ctx context.Context,
	db *gorm.DB,
	defaultStatus string,
	logger *slog.Logger,
) (*PolicyStore, error) {
	p := &PolicyStore{
		db:       db,
		logger:   logger,
		policies: map[string]GuildPolicy{},
	}

	var rows []GuildPolicy
	if err := db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("error loading guild policies: %w", err)
	}
	for _, row := range rows {
		p.policies[row.GuildID] = row
	}

	var settings BotSettings
	err := db.WithContext(ctx).First(&settings).Error
	switch {
	case err == nil:
		//
	case errors.Is(err, gorm.ErrRecordNotFound):
		settings = BotSettings{
			PVGlobalEnabled: true,
			CustomStatus:    defaultStatus,
		}
		if createErr := db.WithContext(ctx).Create(&settings).Error; createErr != nil {
			return nil, fmt.Errorf("error creating bot settings: %w", createErr)
		}
	default:
		return nil, fmt.Errorf("error loading bot settings: %w", err)
	}
	p.settings = settings

	logger.Info(
		"policy store loaded",
		"guild_policies", len(rows),
		"pv_global_enabled", settings.PVGlobalEnabled,
	)
	return p, nil
}

// Get returns the stored policy for the guild, or the default when the
// guild was never configured.
func (p *PolicyStore) Get(guildID string) GuildPolicy {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if policy, ok := p.policies[guildID]; ok {
		return policy
	}
	return defaultGuildPolicy(guildID)
}

// Settings returns the current bot-wide settings.
func (p *PolicyStore) Settings() BotSettings {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.settings
}

// DMEligible reports whether direct messages qualify for processing.
func (p *PolicyStore) DMEligible() bool {
	return p.Settings().PVGlobalEnabled
}

// GuildCount reports how many guilds have a stored policy row.
func (p *PolicyStore) GuildCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.policies)
}

// update loads or lazily creates the guild's row, applies fn, persists, and
// refreshes the cache.
func (p *PolicyStore) update(
	ctx context.Context,
	guildID string,
	fn func(*GuildPolicy),
) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	policy, ok := p.policies[guildID]
	if !ok {
		policy = defaultGuildPolicy(guildID)
	}
	fn(&policy)

	if err := p.db.WithContext(ctx).Save(&policy).Error; err != nil {
		return fmt.Errorf("error saving guild policy: %w", err)
	}
	p.policies[guildID] = policy
	return nil
}

// SetAllowedChannel restricts (or, with an empty ID, unrestricts) the
// channel the bot answers in for this guild.
func (p *PolicyStore) SetAllowedChannel(
	ctx context.Context,
	guildID string,
	channelID string,
) error {
	return p.update(ctx, guildID, func(policy *GuildPolicy) {
		policy.AllowedChannelID = channelID
	})
}

// SetActivationMode sets whether this guild requires a mention or accepts
// any message.
func (p *PolicyStore) SetActivationMode(
	ctx context.Context,
	guildID string,
	mode ActivationMode,
) error {
	switch mode {
	case ActivationOnMention, ActivationOnAnyMessage:
		//
	default:
		return fmt.Errorf("invalid activation mode: %s", mode)
	}
	return p.update(ctx, guildID, func(policy *GuildPolicy) {
		policy.ActivationMode = mode
	})
}

// SetPVEnabled toggles this guild's private-message opt-in flag.
func (p *PolicyStore) SetPVEnabled(
	ctx context.Context,
	guildID string,
	enabled bool,
) error {
	return p.update(ctx, guildID, func(policy *GuildPolicy) {
		policy.PVEnabled = enabled
	})
}

// SetPVGlobal sets the bot-wide DM gate and mirrors the flag onto every
// stored guild policy.
func (p *PolicyStore) SetPVGlobal(ctx context.Context, enabled bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	settings := p.settings
	settings.PVGlobalEnabled = enabled
	if err := p.db.WithContext(ctx).Save(&settings).Error; err != nil {
		return fmt.Errorf("error saving bot settings: %w", err)
	}
	p.settings = settings

	for guildID, policy := range p.policies {
		policy.PVEnabled = enabled
		if err := p.db.WithContext(ctx).Save(&policy).Error; err != nil {
			return fmt.Errorf("error saving guild policy: %w", err)
		}
		p.policies[guildID] = policy
	}
	return nil
}
