package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectPrefersChannelMatch(t *testing.T) {
	configs := []Config{
		{Channels: 6, MinRate: 48000, MaxRate: 48000, Format: FormatF32},
		{Channels: 2, MinRate: 44100, MaxRate: 44100, Format: FormatI16},
	}
	cfg, ok := Select(configs, 2, 44100)
	require.True(t, ok)
	assert.Equal(t, 2, cfg.Channels)
}

func TestSelectFollowsRatePreferenceOrder(t *testing.T) {
	configs := []Config{
		{Channels: 2, MinRate: 96000, MaxRate: 96000, Format: FormatF32},
		{Channels: 2, MinRate: 44100, MaxRate: 44100, Format: FormatF32},
		{Channels: 2, MinRate: 48000, MaxRate: 48000, Format: FormatF32},
	}
	cfg, ok := Select(configs, 2, 0)
	require.True(t, ok)
	assert.Equal(t, 48000, cfg.MinRate)
}

func TestSelectFollowsFormatPriorityOnTie(t *testing.T) {
	configs := []Config{
		{Channels: 2, MinRate: 44100, MaxRate: 44100, Format: FormatU8},
		{Channels: 2, MinRate: 44100, MaxRate: 44100, Format: FormatI16},
		{Channels: 2, MinRate: 44100, MaxRate: 44100, Format: FormatF32},
	}
	cfg, ok := Select(configs, 2, 0)
	require.True(t, ok)
	assert.Equal(t, FormatF32, cfg.Format)
}

func TestSelectRejectsUnsupportedFormats(t *testing.T) {
	configs := []Config{
		{Channels: 2, MinRate: 44100, MaxRate: 44100, Format: FormatI64},
		{Channels: 2, MinRate: 44100, MaxRate: 44100, Format: FormatU64},
	}
	_, ok := Select(configs, 2, 0)
	assert.False(t, ok)
}

func TestSelectFallsBackWhenNoChannelMatch(t *testing.T) {
	configs := []Config{
		{Channels: 6, MinRate: 48000, MaxRate: 48000, Format: FormatF32},
	}
	cfg, ok := Select(configs, 2, 0)
	require.True(t, ok)
	assert.Equal(t, 6, cfg.Channels)
}

func TestSelectEmptyIsFalse(t *testing.T) {
	_, ok := Select(nil, 2, 44100)
	assert.False(t, ok)
}

// A config's range covering a preferred rate should win even when
// another config matches a later-preferred rate exactly.
func TestSelectPrefersRangeCoveringOverExactLowerPriorityRate(t *testing.T) {
	configs := []Config{
		{Channels: 2, MinRate: 44100, MaxRate: 44100, Format: FormatF32},
		{Channels: 2, MinRate: 44100, MaxRate: 96000, Format: FormatF32},
	}
	cfg, ok := Select(configs, 2, 0)
	require.True(t, ok)
	assert.Equal(t, 44100, cfg.MinRate)
	assert.Equal(t, 96000, cfg.MaxRate, "the wider range covers 48000 too and should win over the fixed-44100 config")
}

// When no candidate covers any preferred rate, Select should maximize
// max-rate rather than pick arbitrarily.
func TestSelectMaximizesRateWhenNoPreferredRateCovered(t *testing.T) {
	configs := []Config{
		{Channels: 2, MinRate: 32000, MaxRate: 32000, Format: FormatF32},
		{Channels: 2, MinRate: 192000, MaxRate: 192000, Format: FormatF32},
		{Channels: 2, MinRate: 22050, MaxRate: 22050, Format: FormatF32},
	}
	cfg, ok := Select(configs, 2, 0)
	require.True(t, ok)
	assert.Equal(t, 192000, cfg.MaxRate)
}

// When no config matches the preferred channel count, Select should
// maximize channel count among the remaining candidates rather than
// just taking whatever it finds first.
func TestSelectMaximizesChannelsWhenNoExactMatch(t *testing.T) {
	configs := []Config{
		{Channels: 1, MinRate: 44100, MaxRate: 44100, Format: FormatF32},
		{Channels: 8, MinRate: 44100, MaxRate: 44100, Format: FormatF32},
		{Channels: 6, MinRate: 44100, MaxRate: 44100, Format: FormatF32},
	}
	cfg, ok := Select(configs, 2, 0)
	require.True(t, ok)
	assert.Equal(t, 8, cfg.Channels)
}
