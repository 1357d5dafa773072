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

// Package winhook holds every Win32 surface SwiftScroll touches: the
// low-level mouse hook, synthetic wheel injection, window/process
// identification, and the autostart registry entry. Nothing in
// internal/core imports this package; it is wired the other way, from
// main, so the core engine and resolver stay buildable on any GOOS.
package winhook

import (
	"fmt"
	"path/filepath"
	"strings"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/knchmpgn/swiftscroll/internal/core"
)

var (
	user32   = windows.NewLazySystemDLL("user32.dll")
	kernel32 = windows.NewLazySystemDLL("kernel32.dll")
	shcore   = windows.NewLazySystemDLL("shcore.dll")

	procSetWindowsHookEx    = user32.NewProc("SetWindowsHookExW")
	procCallNextHookEx      = user32.NewProc("CallNextHookEx")
	procUnhookWindowsHookEx = user32.NewProc("UnhookWindowsHookEx")
	procGetMessage          = user32.NewProc("GetMessageW")
	procTranslateMessage    = user32.NewProc("TranslateMessage")
	procDispatchMessage     = user32.NewProc("DispatchMessageW")
	procPostThreadMessage   = user32.NewProc("PostThreadMessageW")

	procGetAsyncKeyState = user32.NewProc("GetAsyncKeyState")
	procWindowFromPoint  = user32.NewProc("WindowFromPoint")
	procGetAncestor      = user32.NewProc("GetAncestor")
	procFindWindow       = user32.NewProc("FindWindowW")

	procGetWindowThreadProcessId = user32.NewProc("GetWindowThreadProcessId")

	procPostMessage = user32.NewProc("PostMessageW")

	procSetProcessDpiAwarenessContext = user32.NewProc("SetProcessDpiAwarenessContext")
	procSetProcessDpiAwareness        = shcore.NewProc("SetProcessDpiAwareness")

	_ = kernel32 // kept for parity with the teacher's DLL table even though no proc is pulled from it yet
)

const (
	whMouseLL = 14

	llmhfInjected        = 0x00000001
	llmhfLowerILInjected = 0x00000002

	gaRoot = 2

	vkShift = 0x10

	wmQuit        = 0x0012
	wmMouseWheel  = 0x020A
	wmMouseHWheel = 0x020E

	// wheelDeltaUnit is WHEEL_DELTA: one notch of "standard" rotation.
	// The hook layer normalizes MSLLHOOKSTRUCT.MouseData's raw high word
	// into a notch count before it ever reaches the engine, so engine
	// budgets match the literal step_size_px formula instead of being
	// inflated by this factor; see the Delta field of core.WheelMessage.
	wheelDeltaUnit = 120

	dpiAwarenessContextPerMonitorAwareV2 = ^uintptr(3) // DPI_AWARENESS_CONTEXT_PER_MONITOR_AWARE_V2, -4 as uintptr
	processPerMonitorDPIAware            = 2
)

type point struct {
	X, Y int32
}

// mslLHookStruct mirrors Win32's MSLLHOOKSTRUCT exactly; field order and
// width matter since the hook callback reads it straight out of lParam.
type mslLHookStruct struct {
	Pt          point
	MouseData   uint32
	Flags       uint32
	Time        uint32
	DwExtraInfo uintptr
}

type msg struct {
	Hwnd    uintptr
	Message uint32
	WParam  uintptr
	LParam  uintptr
	Time    uint32
	Pt      point
}

// initDPIAwareness mirrors the teacher's own fallback chain: try the
// modern per-monitor-v2 context first, fall back to the 8.1 API when
// the newer one isn't exported on this Windows build.
func initDPIAwareness() {
	if procSetProcessDpiAwarenessContext.Find() == nil {
		r, _, _ := procSetProcessDpiAwarenessContext.Call(dpiAwarenessContextPerMonitorAwareV2)
		if r != 0 {
			return
		}
	}
	if procSetProcessDpiAwareness.Find() == nil {
		procSetProcessDpiAwareness.Call(processPerMonitorDPIAware)
	}
}

// windowFromPoint resolves the root ancestor of whatever window lies
// under pt, same two-step (WindowFromPoint then GetAncestor(GA_ROOT))
// the teacher uses for its own drag-target resolution.
func windowFromPoint(pt point) windows.Handle {
	ret, _, _ := procWindowFromPoint.Call(*(*uintptr)(unsafe.Pointer(&pt)))
	if ret == 0 {
		return 0
	}
	root, _, _ := procGetAncestor.Call(ret, gaRoot)
	return windows.Handle(root)
}

func getWindowPID(hwnd windows.Handle) uint32 {
	var pid uint32
	procGetWindowThreadProcessId.Call(uintptr(hwnd), uintptr(unsafe.Pointer(&pid)))
	return pid
}

// processImageBaseName resolves a process's executable base name
// without its extension, the "app name" contract from spec §6. Grounded
// on the PROCESS_QUERY_LIMITED_INFORMATION + QueryFullProcessImageName
// pattern used for the same task elsewhere in the retrieval pack.
func processImageBaseName(pid uint32) (string, error) {
	h, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, pid)
	if err != nil {
		return "", fmt.Errorf("%w: OpenProcess: %v", core.ErrWindowLookupFailed, err)
	}
	defer windows.CloseHandle(h)

	const maxPath = 32767
	buf := make([]uint16, maxPath)
	size := uint32(len(buf))
	if err := windows.QueryFullProcessImageName(h, 0, &buf[0], &size); err != nil {
		return "", fmt.Errorf("%w: QueryFullProcessImageName: %v", core.ErrWindowLookupFailed, err)
	}
	full := windows.UTF16ToString(buf[:size])
	base := strings.ToLower(filepath.Base(full))
	return strings.TrimSuffix(base, filepath.Ext(base)), nil
}

// keyDown samples live (non-cached) key state; callers needing the
// hook's 50ms-debounced Shift read go through Hook.shiftHeld instead.
func keyDown(vk uintptr) bool {
	ret, _, _ := procGetAsyncKeyState.Call(vk)
	return ret&0x8000 != 0
}

// findTaskbar looks up a shell tray window by class name. A miss
// (handle 0) is expected on machines without that secondary tray.
func findTaskbar(className string) windows.Handle {
	name, err := windows.UTF16PtrFromString(className)
	if err != nil {
		return 0
	}
	ret, _, _ := procFindWindow.Call(uintptr(unsafe.Pointer(name)), 0)
	return windows.Handle(ret)
}

// makeWParam packs a WM_MOUSEWHEEL/WM_MOUSEHWHEEL wParam: the low word
// carries virtual-key modifier flags (SwiftScroll never sets any — it
// isn't emulating a held Ctrl/Shift, just the wheel rotation itself),
// the high word the signed wheel delta, clamped to fit.
func makeWParam(deltaUnits int32) uintptr {
	if deltaUnits > 32767 {
		deltaUnits = 32767
	} else if deltaUnits < -32768 {
		deltaUnits = -32768
	}
	return uintptr(uint32(uint16(int16(deltaUnits))) << 16)
}

// makeLParam packs the screen-coordinate pair WM_MOUSEWHEEL expects.
func makeLParam(x, y int32) uintptr {
	return uintptr(uint32(uint16(y))<<16 | uint32(uint16(x)))
}

// postWheelMessage posts a synthetic WM_MOUSEWHEEL or WM_MOUSEHWHEEL
// straight to target — the window resolved and captured at notch
// arrival — rather than relying on SendInput's cursor-relative routing,
// so a moved cursor can never redirect an in-flight animation's
// emissions to the wrong window. deltaUnits is the engine's own pixel
// unit, passed straight through as the message's wheel-delta field (see
// Injector's doc comment for why no further ×WHEEL_DELTA scaling is
// applied here); x/y are the screen coordinates captured alongside
// target.
func postWheelMessage(target windows.Handle, horizontal bool, deltaUnits int32, x, y int32) error {
	message := uintptr(wmMouseWheel)
	if horizontal {
		message = wmMouseHWheel
	}

	ret, _, err := procPostMessage.Call(uintptr(target), message, makeWParam(deltaUnits), makeLParam(x, y))
	if ret == 0 {
		return fmt.Errorf("%w: PostMessageW: %v", core.ErrInjectionFailed, err)
	}
	return nil
}
