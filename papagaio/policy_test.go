package papagaio

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicyStore_Defaults(t *testing.T) {
	store := testPolicyStore(t, testDB(t))

	policy := store.Get("never-configured")
	assert.Empty(t, policy.AllowedChannelID)
	assert.Equal(t, ActivationOnMention, policy.ActivationMode)
	assert.False(t, policy.PVEnabled)
	assert.Zero(t, policy.ID)
	assert.Equal(t, 0, store.GuildCount())

	// DMs work out of the box
	assert.True(t, store.DMEligible())
}

func TestPolicyStore_LazyCreationAndUpdates(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	store := testPolicyStore(t, db)

	require.NoError(t, store.SetAllowedChannel(ctx, "g1", "c1"))
	policy := store.Get("g1")
	assert.Equal(t, "c1", policy.AllowedChannelID)
	assert.Equal(t, ActivationOnMention, policy.ActivationMode)
	assert.NotZero(t, policy.ID)
	assert.Equal(t, 1, store.GuildCount())

	require.NoError(t, store.SetActivationMode(ctx, "g1", ActivationOnAnyMessage))
	require.NoError(t, store.SetPVEnabled(ctx, "g1", true))

	policy = store.Get("g1")
	assert.Equal(t, "c1", policy.AllowedChannelID)
	assert.Equal(t, ActivationOnAnyMessage, policy.ActivationMode)
	assert.True(t, policy.PVEnabled)

	// clearing the channel restriction keeps the rest
	require.NoError(t, store.SetAllowedChannel(ctx, "g1", ""))
	policy = store.Get("g1")
	assert.Empty(t, policy.AllowedChannelID)
	assert.Equal(t, ActivationOnAnyMessage, policy.ActivationMode)
}

func TestPolicyStore_InvalidActivationMode(t *testing.T) {
	store := testPolicyStore(t, testDB(t))
	err := store.SetActivationMode(context.Background(), "g1", "whenever")
	require.Error(t, err)
	assert.Equal(t, 0, store.GuildCount())
}

func TestPolicyStore_WriteThrough(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)

	store := testPolicyStore(t, db)
	require.NoError(t, store.SetAllowedChannel(ctx, "g1", "c1"))
	require.NoError(t, store.SetPVEnabled(ctx, "g2", true))
	require.NoError(t, store.SetPVGlobal(ctx, false))

	// a second store over the same database sees everything
	reloaded := testPolicyStore(t, db)
	assert.Equal(t, "c1", reloaded.Get("g1").AllowedChannelID)
	assert.Equal(t, 2, reloaded.GuildCount())
	assert.False(t, reloaded.DMEligible())
}

func TestPolicyStore_SetPVGlobalMirrorsGuilds(t *testing.T) {
	ctx := context.Background()
	store := testPolicyStore(t, testDB(t))

	require.NoError(t, store.SetPVEnabled(ctx, "g1", false))
	require.NoError(t, store.SetPVEnabled(ctx, "g2", false))

	require.NoError(t, store.SetPVGlobal(ctx, true))
	assert.True(t, store.DMEligible())
	assert.True(t, store.Get("g1").PVEnabled)
	assert.True(t, store.Get("g2").PVEnabled)

	require.NoError(t, store.SetPVGlobal(ctx, false))
	assert.False(t, store.DMEligible())
	assert.False(t, store.Get("g1").PVEnabled)
}

func TestPolicyStore_SettingsRowCreatedOnce(t *testing.T) {
	db := testDB(t)
	first := testPolicyStore(t, db)
	require.NoError(t, first.SetPVGlobal(context.Background(), false))

	second := testPolicyStore(t, db)
	assert.False(t, second.DMEligible())

	var count int64
	require.NoError(t, db.Model(&BotSettings{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
