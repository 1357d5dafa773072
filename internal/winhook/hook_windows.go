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
	"context"
	"fmt"
	"runtime"
	"runtime/debug"
	"sync/atomic"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/knchmpgn/swiftscroll/internal/core"
)

const (
	taskbarCacheTTL = 2 * time.Second
	shiftCacheTTL   = 50 * time.Millisecond

	// stutterBudget is the "well under 1ms" fast-path budget from
	// spec §4.1; crossing it is logged, not acted on.
	stutterBudget = time.Millisecond
)

// Injector adapts postWheelMessage to core.Injector. target is the
// HWND resolved and captured at the owning notch's arrival time;
// posting straight to it (rather than SendInput's cursor-relative
// routing) is what keeps a mid-animation cursor move or window switch
// from redirecting events meant for an earlier window. SwiftScroll
// treats 1 pixel of engine output as 1 unit of wheel delta — the
// "amplified" feel comes from step_size_px and acceleration stacking
// upstream in internal/core, not from a second scale factor here.
type Injector struct{}

func (Injector) InjectWheel(target core.WindowHandle, axis core.Axis, deltaPx int, screenX, screenY int32) error {
	if target == 0 {
		return nil
	}
	return postWheelMessage(windows.Handle(target), axis == core.AxisHorizontal, int32(deltaPx), screenX, screenY)
}

// Hook owns the installed low-level mouse hook and the per-callback
// caches from spec §4.1. All of its mutable fields (taskbar/shift
// caches) are touched only from the hook callback, which always runs
// on the same OS thread, so none of it needs synchronization — the
// same discipline spec §5 calls out for AxisRunnerState.
type Hook struct {
	Engine      func() *core.Engine
	Settings    func() *core.AppSettings
	LogF        func(format string, args ...any)

	handle   windows.Handle
	callback uintptr
	threadID uint32

	taskbar1, taskbar2 windows.Handle
	taskbarCheckedAt   time.Time

	shiftState     bool
	shiftSampledAt time.Time

	droppedOverload atomic.Uint64
}

// Install registers the low-level mouse hook. It is idempotent: a
// second call on an already-installed Hook is a no-op.
func (h *Hook) Install() error {
	if h.handle != 0 {
		return nil
	}
	h.callback = windows.NewCallback(h.mouseProc)
	ret, _, err := procSetWindowsHookEx.Call(whMouseLL, h.callback, 0, 0)
	if ret == 0 {
		return fmt.Errorf("%w: SetWindowsHookExW: %v", core.ErrHookInstallFailed, err)
	}
	h.handle = windows.Handle(ret)
	return nil
}

// Uninstall revokes the hook. Idempotent: safe to call when no hook is
// installed.
func (h *Hook) Uninstall() {
	if h.handle == 0 {
		return
	}
	procUnhookWindowsHookEx.Call(uintptr(h.handle))
	h.handle = 0
}

// Run locks the calling goroutine to its OS thread (a Win32 hook
// requirement) and drives the thread's private message loop until ctx
// is cancelled, mirroring the teacher's hookWorker layout.
func (h *Hook) Run(ctx context.Context) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	defer func() {
		if r := recover(); r != nil {
			h.logf("hook worker crashed: %v\n%s", r, debug.Stack())
		}
	}()

	h.threadID = windows.GetCurrentThreadId()

	initDPIAwareness()

	if err := h.Install(); err != nil {
		h.logf("%v", err)
		// Degrade to "no smooth scrolling" rather than exit the process;
		// the message loop below just idles until ctx is cancelled.
	}
	defer h.Uninstall()

	go func() {
		<-ctx.Done()
		procPostThreadMessage.Call(uintptr(h.threadID), wmQuit, 0, 0)
	}()

	var m msg
	for {
		ret, _, _ := procGetMessage.Call(uintptr(unsafe.Pointer(&m)), 0, 0, 0)
		if ret == 0 || ret == ^uintptr(0) {
			return
		}
		procTranslateMessage.Call(uintptr(unsafe.Pointer(&m)))
		procDispatchMessage.Call(uintptr(unsafe.Pointer(&m)))
	}
}

func (h *Hook) logf(format string, args ...any) {
	if h.LogF != nil {
		h.LogF(format, args...)
	}
}

// mouseProc is the WH_MOUSE_LL callback. It implements the filtering
// order from spec §4.1 step by step, short-circuiting on the first
// reason to forward the event unchanged, and must never let a panic
// escape into the OS message pump — the deferred recover forwards the
// event up the chain exactly as if nothing had gone wrong.
func (h *Hook) mouseProc(nCode int, wParam, lParam uintptr) (ret uintptr) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			h.logf("mouseProc recovered: %v", r)
			ret, _, _ = procCallNextHookEx.Call(0, uintptr(nCode), wParam, lParam)
		}
		if d := time.Since(start); d > stutterBudget {
			h.logf("hook stutter: %v", d)
		}
	}()

	forward := func() uintptr {
		r, _, _ := procCallNextHookEx.Call(0, uintptr(nCode), wParam, lParam)
		return r
	}

	if nCode < 0 {
		return forward()
	}
	if wParam != wmMouseWheel && wParam != wmMouseHWheel {
		return forward()
	}

	info := (*mslLHookStruct)(unsafe.Pointer(lParam))
	if info.Flags&(llmhfInjected|llmhfLowerILInjected) != 0 {
		return forward()
	}

	settings := h.Settings()
	if settings == nil || !settings.Enabled {
		return forward()
	}

	targetHwnd := windowFromPoint(info.Pt)
	if targetHwnd != 0 && h.isTaskbar(targetHwnd) {
		return forward()
	}

	rawDelta := int(int16(info.MouseData >> 16))
	notches := rawDelta / wheelDeltaUnit
	if notches == 0 && rawDelta != 0 {
		// Sub-notch rotation (rare, some precision wheels/trackpads):
		// still register as a single notch in the configured direction
		// rather than silently dropping it.
		notches = 1
		if rawDelta < 0 {
			notches = -1
		}
	}
	wheelMsg := core.WheelMessage{
		Horizontal: wParam == wmMouseHWheel,
		Delta:      notches,
		Injected:   false,
	}
	axis, publish := core.RouteWheelEvent(wheelMsg, false, h.shiftHeld(), settings.ShiftKeyHorizontal)
	if !publish {
		return forward()
	}

	processName := h.processNameFor(targetHwnd)
	res := settings.Resolve(processName)
	if res.Excluded {
		return forward()
	}

	notch := core.BuildNotch(notches, axis, time.Now(), core.WindowHandle(targetHwnd), info.Pt.X, info.Pt.Y, res)
	h.Engine().Submit(notch)

	return 1 // swallow: tell the OS chain this event is handled
}

func (h *Hook) processNameFor(hwnd windows.Handle) string {
	if hwnd == 0 {
		return ""
	}
	pid := getWindowPID(hwnd)
	name, err := processImageBaseName(pid)
	if err != nil {
		return ""
	}
	return name
}

// isTaskbar compares against the cached primary/secondary shell-tray
// handles. The refresh (two FindWindowW lookups) runs inside the hook
// callback itself, at most once every 2s; every other call only reads
// the cache.
func (h *Hook) isTaskbar(hwnd windows.Handle) bool {
	if time.Since(h.taskbarCheckedAt) > taskbarCacheTTL {
		h.taskbar1 = findTaskbar("Shell_TrayWnd")
		h.taskbar2 = findTaskbar("Shell_SecondaryTrayWnd")
		h.taskbarCheckedAt = time.Now()
	}
	return hwnd == h.taskbar1 || hwnd == h.taskbar2
}

// shiftHeld samples VK_SHIFT at most every 50ms; repeated
// GetAsyncKeyState calls are the dominant cost once wheel events start
// arriving in a burst.
func (h *Hook) shiftHeld() bool {
	if time.Since(h.shiftSampledAt) > shiftCacheTTL {
		h.shiftState = keyDown(vkShift)
		h.shiftSampledAt = time.Now()
	}
	return h.shiftState
}
