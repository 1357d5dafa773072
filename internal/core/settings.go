package core

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/exp/slices"
)

// SettingsFileName is the portable settings file, kept beside the
// running executable per spec §6.
const SettingsFileName = "settings.json"

// NewDefaultSettings builds the compiled-in AppSettings used whenever
// no settings file exists or the one on disk is malformed.
func NewDefaultSettings() *AppSettings {
	s := &AppSettings{
		Enabled:            true,
		ShiftKeyHorizontal: true,
		ScrollProfile:      DefaultProfile,
		ExcludedApps:       nil,
		Profiles: []NamedProfile{
			{Name: DefaultProfileName, ScrollProfile: DefaultProfile},
		},
		AppProfiles: nil,
	}
	s.reindex()
	return s
}

// reindex rebuilds the unexported lookup maps used by Resolve. It must
// run after every load, every settings-surface mutation, and before the
// snapshot is published, so that Resolve itself never rebuilds them.
func (s *AppSettings) reindex() {
	s.excludedSet = make(map[string]struct{}, len(s.ExcludedApps))
	for _, app := range s.ExcludedApps {
		s.excludedSet[strings.ToLower(app)] = struct{}{}
	}

	s.profileByName = make(map[string]*NamedProfile, len(s.Profiles))
	for i := range s.Profiles {
		p := &s.Profiles[i]
		p.Clamp()
		s.profileByName[strings.ToLower(p.Name)] = p
	}

	s.profileForApp = make(map[string]string, len(s.AppProfiles))
	for _, b := range s.AppProfiles {
		s.profileForApp[strings.ToLower(b.AppName)] = b.ProfileName
	}
}

// Validate enforces the data-model invariants from spec §3: profile
// names case-insensitively unique, "Default" present and first, and
// Profiles non-empty. It mutates in place to repair what it safely can
// (inserting a missing Default, clamping out-of-range fields) and only
// returns an error when repair isn't possible.
func (s *AppSettings) Validate() error {
	s.ScrollProfile.Clamp()

	if len(s.Profiles) == 0 {
		s.Profiles = []NamedProfile{{Name: DefaultProfileName, ScrollProfile: DefaultProfile}}
	}

	seen := make(map[string]int, len(s.Profiles))
	for i, p := range s.Profiles {
		key := strings.ToLower(p.Name)
		if first, dup := seen[key]; dup {
			return fmt.Errorf("swiftscroll: duplicate profile name %q (positions %d and %d)", p.Name, first, i)
		}
		seen[key] = i
	}

	defaultIdx := slices.IndexFunc(s.Profiles, func(p NamedProfile) bool {
		return strings.EqualFold(p.Name, DefaultProfileName)
	})
	if defaultIdx < 0 {
		s.Profiles = append([]NamedProfile{{Name: DefaultProfileName, ScrollProfile: s.ScrollProfile}}, s.Profiles...)
	} else if defaultIdx != 0 {
		def := s.Profiles[defaultIdx]
		rest := slices.Delete(slices.Clone(s.Profiles), defaultIdx, defaultIdx+1)
		s.Profiles = append([]NamedProfile{def}, rest...)
	}

	s.reindex()
	return nil
}

// RemoveProfile deletes a profile by name, refusing to remove "Default"
// per the invariant that it always exists — encoded here at the data
// layer rather than left to the (out-of-scope) settings UI to enforce.
func (s *AppSettings) RemoveProfile(name string) error {
	if strings.EqualFold(name, DefaultProfileName) {
		return fmt.Errorf("swiftscroll: the %q profile cannot be removed", DefaultProfileName)
	}
	idx := slices.IndexFunc(s.Profiles, func(p NamedProfile) bool {
		return strings.EqualFold(p.Name, name)
	})
	if idx < 0 {
		return fmt.Errorf("%w: %q", ErrProfileNotFound, name)
	}
	s.Profiles = slices.Delete(s.Profiles, idx, idx+1)
	s.reindex()
	return nil
}

// IsExcluded reports whether a process name (case-insensitive) is in
// excluded_apps.
func (s *AppSettings) IsExcluded(processName string) bool {
	_, ok := s.excludedSet[strings.ToLower(processName)]
	return ok
}

// ProfileByName looks up a profile case-insensitively.
func (s *AppSettings) ProfileByName(name string) (*NamedProfile, bool) {
	p, ok := s.profileByName[strings.ToLower(name)]
	return p, ok
}

// ProfileNameForApp returns the profile name bound to a process, if any.
func (s *AppSettings) ProfileNameForApp(processName string) (string, bool) {
	name, ok := s.profileForApp[strings.ToLower(processName)]
	return name, ok
}

// Clone deep-copies an AppSettings snapshot, including rebuilding its
// indices, so a caller can mutate the copy (e.g. the settings surface)
// without racing a concurrently-published original.
func (s *AppSettings) Clone() *AppSettings {
	out := &AppSettings{
		Enabled:            s.Enabled,
		ShiftKeyHorizontal: s.ShiftKeyHorizontal,
		ScrollProfile:      s.ScrollProfile,
		ExcludedApps:       slices.Clone(s.ExcludedApps),
		Profiles:           slices.Clone(s.Profiles),
		AppProfiles:        slices.Clone(s.AppProfiles),
	}
	out.reindex()
	return out
}

// LoadSettings reads settings.json from dir, falling back to
// NewDefaultSettings on any read or parse failure — per §7,
// SettingsLoadFailed never errors the process. The returned error (when
// non-nil) is informational only; callers should log it and continue
// with the returned (always non-nil, always valid) settings.
func LoadSettings(dir string) (*AppSettings, error) {
	path := filepath.Join(dir, SettingsFileName)

	if err := migrateLegacySettings(path); err != nil {
		// Migration is best-effort; a failure here does not block
		// startup, it just means defaults are used below.
		_ = err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return NewDefaultSettings(), fmt.Errorf("%w: %v", ErrSettingsLoadFailed, err)
	}

	settings := NewDefaultSettings()
	if err := json.Unmarshal(raw, settings); err != nil {
		return NewDefaultSettings(), fmt.Errorf("%w: %v", ErrSettingsLoadFailed, err)
	}
	if err := settings.Validate(); err != nil {
		return NewDefaultSettings(), fmt.Errorf("%w: %v", ErrSettingsLoadFailed, err)
	}
	return settings, nil
}

// SaveSettings writes settings atomically (write to a temp file, then
// rename) so a crash mid-write never corrupts the live file that the
// next LoadSettings (or the fsnotify watcher) will read.
func SaveSettings(dir string, settings *AppSettings) error {
	path := filepath.Join(dir, SettingsFileName)
	tmp := path + ".tmp"

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSettingsSaveFailed, err)
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("%w: %v", ErrSettingsSaveFailed, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("%w: %v", ErrSettingsSaveFailed, err)
	}
	return nil
}

// migrateLegacySettings copies a settings file from the older per-user
// location into the portable path beside the executable, per §6, if
// the portable path doesn't exist yet.
func migrateLegacySettings(portablePath string) error {
	if _, err := os.Stat(portablePath); err == nil {
		return nil // portable file already present, nothing to migrate
	}

	legacyDir, err := os.UserConfigDir()
	if err != nil {
		return nil
	}
	legacyPath := filepath.Join(legacyDir, "SwiftScroll", SettingsFileName)

	data, err := os.ReadFile(legacyPath)
	if err != nil {
		return nil // no legacy file, nothing to do
	}

	return os.WriteFile(portablePath, data, 0o644)
}
