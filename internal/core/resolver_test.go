package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveExcludedAppShortCircuits(t *testing.T) {
	s := NewDefaultSettings()
	s.ExcludedApps = []string{"notepad"}
	s.reindex()

	res := s.Resolve("Notepad")
	assert.True(t, res.Excluded)
}

func TestResolveFallsBackToGlobalDefaults(t *testing.T) {
	s := NewDefaultSettings()
	res := s.Resolve("chrome.exe")

	assert.False(t, res.Excluded)
	assert.Equal(t, s.ScrollProfile, res.Effective)
	assert.Equal(t, "global", res.ProfileKey)
}

func TestResolveUsesBoundProfile(t *testing.T) {
	s := NewDefaultSettings()
	s.Profiles = append(s.Profiles, NamedProfile{
		Name:          "Gaming",
		ScrollProfile: ScrollProfile{StepSizePx: 20, AnimationTimeMs: 180, AccelerationDeltaMs: 40, AccelerationMax: 8, TailToHeadRatio: 3},
	})
	s.AppProfiles = []AppProfileBinding{{AppName: "game.exe", ProfileName: "gaming"}}
	s.reindex()

	res := s.Resolve("Game.EXE")
	assert.False(t, res.Excluded)
	assert.Equal(t, 20, res.Effective.StepSizePx)
	assert.Equal(t, "profile:gaming", res.ProfileKey)
}

func TestResolveFallsBackWhenBoundProfileMissing(t *testing.T) {
	s := NewDefaultSettings()
	s.AppProfiles = []AppProfileBinding{{AppName: "game.exe", ProfileName: "ghost-profile"}}
	s.reindex()

	res := s.Resolve("game.exe")
	assert.False(t, res.Excluded)
	assert.Equal(t, s.ScrollProfile, res.Effective)
	assert.Equal(t, "global", res.ProfileKey)
}

func TestResolveProfileKeyStableAcrossCalls(t *testing.T) {
	s := NewDefaultSettings()
	a := s.Resolve("chrome.exe")
	b := s.Resolve("chrome.exe")
	assert.Equal(t, a.ProfileKey, b.ProfileKey)
}
