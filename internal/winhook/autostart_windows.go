//go:build windows

// Copyright 2026 workturnedplay
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package winhook

import (
	"fmt"
	"os"

	"golang.org/x/sys/windows/registry"
)

const (
	autostartKeyPath  = `Software\Microsoft\Windows\CurrentVersion\Run`
	autostartValueKey = "SwiftScroll"
)

// SetAutostart toggles SwiftScroll's entry in the current user's Run
// key. Disabling deletes the value if present; a missing value is
// treated as already-off, not an error.
func SetAutostart(enabled bool) error {
	key, err := registry.OpenKey(registry.CURRENT_USER, autostartKeyPath, registry.SET_VALUE)
	if err != nil {
		return fmt.Errorf("swiftscroll: opening autostart registry key: %w", err)
	}
	defer key.Close()

	if !enabled {
		if err := key.DeleteValue(autostartValueKey); err != nil && err != registry.ErrNotExist {
			return fmt.Errorf("swiftscroll: removing autostart entry: %w", err)
		}
		return nil
	}

	exePath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("swiftscroll: resolving executable path: %w", err)
	}

	if err := key.SetStringValue(autostartValueKey, fmt.Sprintf("%q", exePath)); err != nil {
		return fmt.Errorf("swiftscroll: writing autostart entry: %w", err)
	}
	return nil
}

// Autostart reports whether the Run-key entry currently exists.
func Autostart() (bool, error) {
	key, err := registry.OpenKey(registry.CURRENT_USER, autostartKeyPath, registry.QUERY_VALUE)
	if err != nil {
		return false, fmt.Errorf("swiftscroll: opening autostart registry key: %w", err)
	}
	defer key.Close()

	_, _, err = key.GetStringValue(autostartValueKey)
	if err == registry.ErrNotExist {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("swiftscroll: reading autostart entry: %w", err)
	}
	return true, nil
}
