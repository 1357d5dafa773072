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
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/knchmpgn/swiftscroll/internal/winhook"
)

// exitStatus is panicked by exitf to carry an intentional exit code
// through primary_defer without losing the message that caused it.
type exitStatus struct {
	Code    int
	Message string
}

func exitf(code int, format string, a ...any) {
	panic(exitStatus{Code: code, Message: fmt.Sprintf(format, a...)})
}

var currentExitCode int

// primary_defer turns any panic (intentional exitf or a genuine crash)
// into a clean, logged process exit. It always cancels ctx first so
// the hook and engine get a chance to unwind even after a crash.
func primary_defer(cancel context.CancelFunc) {
	if r := recover(); r != nil {
		if status, ok := r.(exitStatus); ok {
			currentExitCode = status.Code
			logf("exiting with code %d: %s", status.Code, status.Message)
		} else {
			currentExitCode = 1
			logf("CRASH: %v\n%s", r, debug.Stack())
		}
	}

	cancel()
	releaseSingleInstance()

	logf("shutdown complete")
	closeAndFlushLog()
	os.Exit(currentExitCode)
}

// secondary_defer only runs if primary_defer itself panicked — a
// defect in shutdown, not in the application logic it was cleaning up
// after.
func secondary_defer() {
	if r := recover(); r != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL: primary_defer panicked: %v\n%s\n", r, debug.Stack())
		os.Exit(120)
	}
}

var mutexHandle uintptr

var (
	modkernel32      = windows.NewLazySystemDLL("kernel32.dll")
	procCreateMutex  = modkernel32.NewProc("CreateMutexW")
	procReleaseMutex = modkernel32.NewProc("ReleaseMutex")
	procCloseHandle  = modkernel32.NewProc("CloseHandle")
)

// ensureSingleInstance uses a session-scoped named mutex ("Local\") so
// SwiftScroll runs once per logged-in session, matching the teacher's
// own MutexScopeSession choice: different users on the same machine
// are independent, but a user can't accidentally start two copies.
func ensureSingleInstance(name string) {
	namePtr, err := windows.UTF16PtrFromString(`Local\` + name)
	if err != nil {
		exitf(3, "UTF16PtrFromString failed: %v", err)
	}

	ret, _, callErr := procCreateMutex.Call(0, 1, uintptr(unsafe.Pointer(namePtr)))
	if ret == 0 {
		exitf(2, "CreateMutex failed: %v", callErr)
	}
	if errors.Is(callErr, windows.ERROR_ALREADY_EXISTS) {
		exitf(5, "SwiftScroll is already running.")
	}
	mutexHandle = ret
}

func releaseSingleInstance() {
	if mutexHandle == 0 {
		return
	}
	procReleaseMutex.Call(mutexHandle)
	procCloseHandle.Call(mutexHandle)
	mutexHandle = 0
}

const (
	ctrlCEvent        = 0
	ctrlBreakEvent     = 1
	ctrlCloseEvent     = 2
	ctrlLogoffEvent    = 5
	ctrlShutdownEvent  = 6
)

var procSetConsoleCtrlHandler = modkernel32.NewProc("SetConsoleCtrlHandler")

// installCtrlHandler registers a console control handler that cancels
// ctx instead of tearing anything down itself — Win32 forbids most
// window/thread operations from the control-handler's own thread, so
// all it does here is signal the goroutines that own real cleanup.
func installCtrlHandler(cancel context.CancelFunc) {
	handler := windows.NewCallback(func(ctrlType uint32) uintptr {
		switch ctrlType {
		case ctrlCEvent, ctrlBreakEvent, ctrlCloseEvent, ctrlLogoffEvent, ctrlShutdownEvent:
			cancel()
			return 1
		}
		return 0
	})
	procSetConsoleCtrlHandler.Call(handler, 1)
}

// handleAutostartFlag services -autostart=enable|disable|status and
// reports whether it did (in which case main should exit immediately
// rather than start the service). It runs before the single-instance
// mutex is acquired so it works even while the real service is running.
func handleAutostartFlag() (handled bool) {
	mode := flag.String("autostart", "", "manage the Run-key entry: enable, disable, or status; runs the service if omitted")
	flag.Parse()

	switch *mode {
	case "":
		return false
	case "enable":
		if err := winhook.SetAutostart(true); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Println("autostart enabled")
	case "disable":
		if err := winhook.SetAutostart(false); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Println("autostart disabled")
	case "status":
		on, err := winhook.Autostart()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Printf("autostart: %v\n", on)
	default:
		fmt.Fprintf(os.Stderr, "unknown -autostart value %q (want enable, disable, or status)\n", *mode)
		os.Exit(2)
	}
	return true
}

func main() {
	if handleAutostartFlag() {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())

	defer secondary_defer()
	defer primary_defer(cancel)

	runtime.GOMAXPROCS(4) // hook thread, engine tick, log worker, settings watcher each want a scheduler slot

	go logWorker()

	ensureSingleInstance("swiftscroll_single_instance")
	installCtrlHandler(cancel)

	exePath, err := os.Executable()
	if err != nil {
		exitf(1, "os.Executable failed: %v", err)
	}
	settingsDir := filepath.Dir(exePath)

	orch := NewOrchestrator(settingsDir, logf)
	orch.Start(ctx)

	logf("SwiftScroll started, settings dir: %s", settingsDir)

	<-ctx.Done()
	logf("shutdown signal received")
}
