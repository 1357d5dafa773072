package core

import "errors"

// Error taxonomy from spec §7. Every member is non-fatal at this layer:
// callers degrade per the rule named in its comment rather than
// propagating a crash toward the hook callback boundary.
var (
	// ErrHookInstallFailed: the OS refused to register the low-level
	// mouse hook. Caller logs once and runs without smooth scrolling.
	ErrHookInstallFailed = errors.New("swiftscroll: hook install failed")

	// ErrWindowLookupFailed: the cursor's destination window could not
	// be resolved. The notch is dropped silently.
	ErrWindowLookupFailed = errors.New("swiftscroll: window lookup failed")

	// ErrInjectionFailed: SendInput (or equivalent) failed for a tick's
	// emission. That tick's pixels are skipped; they remain owed in the
	// axis's residual carry and are emitted again on a later tick.
	ErrInjectionFailed = errors.New("swiftscroll: synthetic wheel injection failed")

	// ErrSettingsLoadFailed: settings.json was missing, unreadable, or
	// malformed. Falls back to compiled defaults without erroring the
	// process.
	ErrSettingsLoadFailed = errors.New("swiftscroll: settings load failed")

	// ErrSettingsSaveFailed: writing settings.json failed.
	ErrSettingsSaveFailed = errors.New("swiftscroll: settings save failed")

	// ErrProfileNotFound: an app_profiles binding names a profile that
	// no longer exists. Falls back to global defaults.
	ErrProfileNotFound = errors.New("swiftscroll: profile not found")
)
