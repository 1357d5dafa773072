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
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"golang.org/x/term"
)

// logChanSize bounds how many formatted lines can queue before logf
// starts dropping them. Wheel events can arrive in bursts faster than
// a file write completes, so this must stay off the hook's critical
// path no matter how deep the backlog gets.
const logChanSize = 4096

var (
	logChan       = make(chan string, logChanSize)
	logStop       = make(chan struct{})
	logWorkerDone = make(chan struct{})

	droppedLogEvents    atomic.Uint64
	peakLogChannelDepth  atomic.Uint64

	logFile   *os.File
	useStderr bool
)

func init() {
	useStderr = term.IsTerminal(int(os.Stdout.Fd()))
}

// logf formats and non-blockingly enqueues one log line. It must never
// block: a full channel drops the message and counts it rather than
// stalling whatever goroutine called it, which on the hook thread would
// blow the <1ms fast-path budget from spec §4.1.
func logf(format string, args ...any) {
	now := time.Now().Format("2006-01-02T15:04:05.000Z07:00")
	line := fmt.Sprintf("[%s] %s\n", now, fmt.Sprintf(format, args...))

	if depth := uint64(len(logChan)); depth > peakLogChannelDepth.Load() {
		peakLogChannelDepth.Store(depth)
	}

	select {
	case logChan <- line:
	default:
		droppedLogEvents.Add(1)
	}
}

// logWorker drains logChan to either stderr (console builds) or a log
// file beside the executable, keeping every blocking write off the
// hook and engine goroutines. It never closes logChan itself — callers
// (hook, engine, settings watcher) may still be mid-teardown and
// calling logf concurrently with shutdown, and a send on a closed
// channel would panic. Instead it stops on logStop and drains whatever
// is already buffered before exiting.
func logWorker() {
	defer close(logWorkerDone)
	defer func() {
		if r := recover(); r != nil {
			writeDirect(fmt.Sprintf("[CRITICAL] logWorker panic: %v\n", r))
		}
	}()

	for {
		select {
		case line := <-logChan:
			writeDirect(line)
		case <-logStop:
			for {
				select {
				case line := <-logChan:
					writeDirect(line)
				default:
					if d := droppedLogEvents.Load(); d > 0 {
						writeDirect(fmt.Sprintf("[%s] dropped %d log lines under load\n", time.Now().Format(time.RFC3339), d))
					}
					return
				}
			}
		}
	}
}

func writeDirect(line string) {
	if useStderr {
		fmt.Fprint(os.Stderr, line)
		return
	}
	if logFile == nil {
		path := "swiftscroll.log"
		if exe, err := os.Executable(); err == nil {
			path = filepath.Join(filepath.Dir(exe), path)
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return
		}
		logFile = f
	}
	fmt.Fprint(logFile, line)
	logFile.Sync()
}

func closeAndFlushLog() {
	close(logStop)
	<-logWorkerDone
}
