package core

import "strings"

// Resolution is the result of resolving a process name against the
// current settings snapshot: whether it's excluded, the effective
// profile to animate with, and a cache key that changes exactly when
// the effective profile would change, per §4.2.
type Resolution struct {
	Excluded   bool
	Effective  ScrollProfile
	ProfileKey string
}

// Resolve implements the Effective Parameter Resolver from spec §4.2:
// excluded apps short-circuit first, then an explicit app_profiles
// binding wins, falling back to the global ScrollProfile when the
// process has no binding or the bound profile no longer exists.
//
// The hook callback calls this synchronously per notch. Lookups go only
// through s's prebuilt indices, but it is not allocation-free: building
// ProfileKey for an excluded or profile-bound process concatenates a
// string on every call, and a process name containing upper-case
// letters is lower-cased into a new string.
func (s *AppSettings) Resolve(processName string) Resolution {
	key := strings.ToLower(processName)

	if _, excluded := s.excludedSet[key]; excluded {
		return Resolution{Excluded: true, ProfileKey: "excluded:" + key}
	}

	if profileName, bound := s.profileForApp[key]; bound {
		if p, ok := s.profileByName[strings.ToLower(profileName)]; ok {
			return Resolution{
				Effective:  p.ScrollProfile,
				ProfileKey: "profile:" + strings.ToLower(p.Name),
			}
		}
		// ErrProfileNotFound case: binding points at a profile that no
		// longer exists. Fall through to the global default rather than
		// erroring the hot path.
	}

	return Resolution{
		Effective:  s.ScrollProfile,
		ProfileKey: "global",
	}
}
