package core

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultSettingsMatchesWindowsClassicPreset(t *testing.T) {
	s := NewDefaultSettings()
	assert.True(t, s.Enabled)
	assert.True(t, s.ShiftKeyHorizontal)
	assert.Equal(t, 12, s.StepSizePx)
	assert.Equal(t, 250, s.AnimationTimeMs)
	assert.Equal(t, 60, s.AccelerationDeltaMs)
	assert.Equal(t, 6, s.AccelerationMax)
	assert.Equal(t, 2, s.TailToHeadRatio)
	assert.True(t, s.AnimationEasing)
	assert.True(t, s.HorizontalSmoothness)
	assert.False(t, s.ReverseWheelDirection)
	require.Len(t, s.Profiles, 1)
	assert.Equal(t, DefaultProfileName, s.Profiles[0].Name)
}

func TestValidateInsertsMissingDefaultProfile(t *testing.T) {
	s := NewDefaultSettings()
	s.Profiles = []NamedProfile{{Name: "Gaming", ScrollProfile: DefaultProfile}}

	require.NoError(t, s.Validate())

	require.NotEmpty(t, s.Profiles)
	assert.Equal(t, DefaultProfileName, s.Profiles[0].Name)
}

func TestValidateMovesDefaultProfileFirst(t *testing.T) {
	s := NewDefaultSettings()
	s.Profiles = []NamedProfile{
		{Name: "Gaming", ScrollProfile: DefaultProfile},
		{Name: "default", ScrollProfile: DefaultProfile}, // case-insensitive match
	}

	require.NoError(t, s.Validate())
	assert.Equal(t, "default", s.Profiles[0].Name)
}

func TestValidateRejectsDuplicateProfileNames(t *testing.T) {
	s := NewDefaultSettings()
	s.Profiles = []NamedProfile{
		{Name: DefaultProfileName, ScrollProfile: DefaultProfile},
		{Name: "gaming", ScrollProfile: DefaultProfile},
		{Name: "Gaming", ScrollProfile: DefaultProfile},
	}

	err := s.Validate()
	require.Error(t, err)
}

func TestRemoveProfileRefusesDefault(t *testing.T) {
	s := NewDefaultSettings()
	err := s.RemoveProfile("default")
	require.Error(t, err)
}

func TestRemoveProfileUnknownReturnsProfileNotFound(t *testing.T) {
	s := NewDefaultSettings()
	err := s.RemoveProfile("does-not-exist")
	require.ErrorIs(t, err, ErrProfileNotFound)
}

func TestIsExcludedCaseInsensitive(t *testing.T) {
	s := NewDefaultSettings()
	s.ExcludedApps = []string{"Notepad.exe"}
	s.reindex()

	assert.True(t, s.IsExcluded("notepad.exe"))
	assert.True(t, s.IsExcluded("NOTEPAD.EXE"))
	assert.False(t, s.IsExcluded("chrome.exe"))
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	dir := t.TempDir()

	s := NewDefaultSettings()
	s.ExcludedApps = []string{"notepad"}
	s.Profiles = append(s.Profiles, NamedProfile{
		Name:          "Gaming",
		ScrollProfile: ScrollProfile{StepSizePx: 20, AnimationTimeMs: 180, AccelerationDeltaMs: 40, AccelerationMax: 8, TailToHeadRatio: 3, AnimationEasing: true, HorizontalSmoothness: true},
	})
	s.AppProfiles = []AppProfileBinding{{AppName: "game.exe", ProfileName: "Gaming"}}
	require.NoError(t, s.Validate())

	require.NoError(t, SaveSettings(dir, s))

	loaded, err := LoadSettings(dir)
	require.NoError(t, err)

	assert.Equal(t, s.Enabled, loaded.Enabled)
	assert.Equal(t, s.ExcludedApps, loaded.ExcludedApps)
	assert.Equal(t, s.AppProfiles, loaded.AppProfiles)
	require.Len(t, loaded.Profiles, 2)
	assert.Equal(t, "Gaming", loaded.Profiles[1].Name)
}

func TestLoadSettingsFallsBackToDefaultsOnMalformedFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, SettingsFileName), []byte("{not valid json"), 0o644))

	loaded, err := LoadSettings(dir)
	require.ErrorIs(t, err, ErrSettingsLoadFailed)
	assert.Equal(t, NewDefaultSettings().StepSizePx, loaded.StepSizePx)
}

func TestLoadSettingsIgnoresUnknownFields(t *testing.T) {
	dir := t.TempDir()
	raw := []byte(`{"enabled": true, "totally_unknown_field": 42, "profiles": [{"name": "Default", "step_size_px": 12, "animation_time_ms": 250, "acceleration_delta_ms": 60, "acceleration_max": 6, "tail_to_head_ratio": 2}]}`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, SettingsFileName), raw, 0o644))

	_, err := LoadSettings(dir)
	require.NoError(t, err)
}

func TestSaveSettingsIsValidJSON(t *testing.T) {
	dir := t.TempDir()
	s := NewDefaultSettings()
	require.NoError(t, SaveSettings(dir, s))

	raw, err := os.ReadFile(filepath.Join(dir, SettingsFileName))
	require.NoError(t, err)

	var anyJSON map[string]any
	require.NoError(t, json.Unmarshal(raw, &anyJSON))
}
