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

package main

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/knchmpgn/swiftscroll/internal/core"
	"github.com/knchmpgn/swiftscroll/internal/winhook"
)

// settingsDebounce coalesces an editor's multi-event save sequence
// (write + rename + chmod, often all for one logical save) into a
// single reload.
const settingsDebounce = 250 * time.Millisecond

// Orchestrator wires the hook, the resolver-backed settings snapshot,
// and the engine together, per spec §4.4. AppSettings is held behind a
// mutex that guards only the pointer swap, never field access — the
// same "lock protects the pointer, not the fields" design note §9
// calls out.
type Orchestrator struct {
	mu       sync.RWMutex
	settings *core.AppSettings
	dir      string

	hook   *winhook.Hook
	engine *core.Engine

	engineCancel context.CancelFunc
	logf         func(format string, args ...any)
}

// NewOrchestrator loads settings.json from dir (falling back to
// compiled defaults on any failure) and wires the hook and engine
// against it.
func NewOrchestrator(dir string, logf func(format string, args ...any)) *Orchestrator {
	settings, err := core.LoadSettings(dir)
	if err != nil {
		logf("settings load: %v (using defaults)", err)
	}

	o := &Orchestrator{
		settings: settings,
		dir:      dir,
		logf:     logf,
	}
	o.engine = o.newEngine()
	o.hook = &winhook.Hook{
		Engine:   o.currentEngine,
		Settings: o.Current,
		LogF:     logf,
	}
	return o
}

// currentEngine returns the live Engine, mirroring Current()'s "lock
// protects the pointer, not the fields" discipline: applyEnabled swaps
// o.engine under the same lock on every enable, and the hook callback
// must never read a stale pointer left over from a prior enable cycle.
func (o *Orchestrator) currentEngine() *core.Engine {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.engine
}

// newEngine builds a fresh, unstarted Engine. Called once at
// construction and again on every disable→enable transition, so a
// re-enable never resumes an axisRunner carrying stale animations,
// residual carries, or acceleration state from before the disable.
func (o *Orchestrator) newEngine() *core.Engine {
	return core.NewEngine(winhook.Injector{}, func(err error) {
		o.logf("engine: %v", err)
	})
}

// Current returns the live AppSettings snapshot. Safe to call from the
// hook callback: the read lock is held only long enough to copy the
// pointer.
func (o *Orchestrator) Current() *core.AppSettings {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.settings
}

// Replace atomically publishes a new settings snapshot and applies the
// master-enable transition, installing or uninstalling the hook and
// starting or stopping the engine to match, per §5's cancellation
// rule. Shift-horizontal and per-profile parameters need no separate
// propagation step: every hook callback re-reads Current() directly.
func (o *Orchestrator) Replace(ctx context.Context, next *core.AppSettings) {
	o.mu.Lock()
	prevEnabled := o.settings.Enabled
	o.settings = next
	o.mu.Unlock()

	if next.Enabled != prevEnabled {
		o.applyEnabled(ctx, next.Enabled)
	}
}

func (o *Orchestrator) applyEnabled(ctx context.Context, enabled bool) {
	if enabled {
		if err := o.hook.Install(); err != nil {
			o.logf("%v", err)
		}
		// A fresh Engine, never the one from a prior enable: reusing a
		// stopped engine's axisRunners would resume them carrying
		// pre-disable animations whose elapsed time has long since
		// blown past their duration, dumping a full stale budget on
		// the first tick instead of discarding it per §5.
		engine := o.newEngine()
		o.mu.Lock()
		o.engine = engine
		o.mu.Unlock()
		engineCtx, cancel := context.WithCancel(ctx)
		o.engineCancel = cancel
		engine.Start(engineCtx)
		return
	}

	o.hook.Uninstall()
	if o.engineCancel != nil {
		o.engineCancel() // in-flight animations are discarded, not drained, per §5
		o.engineCancel = nil
	}
}

// Start launches the hook's message-loop thread and, if enabled,
// installs the hook and starts the engine; it also launches the
// settings-file watcher. It returns once everything is running;
// shutdown happens when ctx is cancelled.
func (o *Orchestrator) Start(ctx context.Context) {
	go o.hook.Run(ctx)
	o.applyEnabled(ctx, o.Current().Enabled)
	go o.watchSettings(ctx)
}

// watchSettings observes settings.json for external writes (from the
// out-of-scope settings UI) and republishes a reloaded snapshot,
// debounced so one editor save doesn't trigger several reloads.
func (o *Orchestrator) watchSettings(ctx context.Context) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		o.logf("settings watcher: %v (hot reload disabled)", err)
		return
	}
	defer watcher.Close()

	if err := watcher.Add(o.dir); err != nil {
		o.logf("settings watcher: watching %s: %v", o.dir, err)
		return
	}

	settingsPath := filepath.Join(o.dir, core.SettingsFileName)
	var debounce *time.Timer

	reload := func() {
		settings, err := core.LoadSettings(o.dir)
		if err != nil {
			o.logf("settings reload: %v", err)
		}
		o.Replace(ctx, settings)
		o.logf("settings reloaded")
	}

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return

		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != settingsPath {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(settingsDebounce, reload)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			o.logf("settings watcher error: %v", err)
		}
	}
}

// Stop uninstalls the hook and stops the engine; the message-loop
// goroutine spawned by Start exits on its own once ctx is cancelled.
func (o *Orchestrator) Stop() {
	o.hook.Uninstall()
	if o.engineCancel != nil {
		o.engineCancel()
		o.engineCancel = nil
	}
}
