package core

import "time"

// WheelMessage is the platform-independent shape of one raw wheel
// callback, already extracted from the Win32 hook payload by
// internal/winhook so this decision logic can be unit-tested without a
// Windows build tag.
type WheelMessage struct {
	Horizontal bool // true for WM_MOUSEHWHEEL, false for WM_MOUSEWHEEL
	Delta      int  // signed, in multiples of the platform's notch unit
	Injected   bool // true if LLMHF_INJECTED or LLMHF_LOWER_IL_INJECTED was set
}

// RouteWheelEvent implements the filtering order from §4.1 steps 3-5,
// minus the marshal/nCode checks that only make sense against a raw
// Win32 payload (those stay in internal/winhook). It returns whether
// the event should be published to the engine at all, and if so which
// axis it belongs to.
//
// overTaskbar and shiftHeld are caller-supplied because both come from
// timed caches (2s taskbar lookup, 50ms Shift-state sample) that are
// themselves platform state; this function only combines already-
// sampled booleans.
func RouteWheelEvent(msg WheelMessage, overTaskbar, shiftHeld, shiftKeyHorizontal bool) (axis Axis, publish bool) {
	if msg.Injected {
		return 0, false
	}
	if overTaskbar {
		return 0, false
	}
	if msg.Horizontal {
		return AxisHorizontal, true
	}
	if shiftKeyHorizontal && shiftHeld {
		return AxisHorizontal, true
	}
	return AxisVertical, true
}

// BuildNotch assembles the NotchEvent the engine will absorb, applying
// the resolved effective profile's reverse_wheel_direction flag to the
// raw signed delta. The profile, target window, and cursor position are
// all captured into the event by value at arrival time, so a later
// settings change or cursor movement can never retro-warp an animation
// already built from this notch (§4.3 signature; §9 open question #3).
func BuildNotch(delta int, axis Axis, arrival time.Time, target WindowHandle, screenX, screenY int32, res Resolution) NotchEvent {
	if res.Effective.ReverseWheelDirection {
		delta = -delta
	}
	return NotchEvent{
		Delta:     delta,
		Axis:      axis,
		Arrival:   arrival,
		Target:    target,
		ScreenX:   screenX,
		ScreenY:   screenY,
		Effective: res.Effective,
	}
}
