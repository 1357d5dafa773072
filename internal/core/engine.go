package core

import (
	"context"
	"sync/atomic"
	"time"
)

// tickInterval is the engine's fixed animation cadence. 10ms sits
// inside the 8-16ms band spec §4.3 allows and divides the common
// 250ms default animation_time_ms cleanly.
const tickInterval = 10 * time.Millisecond

// Injector is how the engine emits synthetic wheel motion. It is an
// interface (rather than a direct Win32 call) so this package stays
// pure Go and unit-testable without a Windows build tag; internal/winhook
// supplies the real implementation, posting to target — the window
// captured at notch-arrival time, never wherever the cursor has since
// moved to. screenX/screenY are the cursor position captured alongside
// target, carried along so the posted message's coordinates stay
// consistent with that same arrival-time snapshot.
type Injector interface {
	InjectWheel(target WindowHandle, axis Axis, deltaPx int, screenX, screenY int32) error
}

// smoothstep is the cubic 3t²-2t³ ease curve used for both the head and
// tail phases of an animation. It has zero slope at both t=0 and t=1,
// which is what makes stitching a head phase and a tail phase together
// at an arbitrary split point C¹-continuous: each phase's local
// smoothstep already has zero velocity at the shared boundary.
func smoothstep(t float64) float64 {
	if t <= 0 {
		return 0
	}
	if t >= 1 {
		return 1
	}
	return t * t * (3 - 2*t)
}

// animation is one absorbed notch's in-flight pixel allocation. Its
// fields are captured at creation time from the notch's own Effective
// profile, so a settings change mid-flight never retro-warps an
// animation already running, per spec §4.3.
type animation struct {
	start       time.Time
	duration    time.Duration
	headDur     time.Duration
	tailDur     time.Duration
	headFrac    float64 // Ph: fraction of total pixels paid out by the end of the head phase
	easing      bool
	totalPixels float64 // signed: direction already folded in
	emittedFrac float64 // cumulative fraction of totalPixels already handed out
	target      WindowHandle
	screenX     int32
	screenY     int32
}

// cumulativeFraction returns, for elapsed time since the animation
// started, what fraction of totalPixels should have been paid out by
// now. It is monotonic, 0 at elapsed<=0, and 1 at elapsed>=duration.
func (a *animation) cumulativeFraction(elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	if elapsed >= a.duration {
		return 1
	}
	if !a.easing {
		return float64(elapsed) / float64(a.duration)
	}
	if elapsed < a.headDur {
		x := float64(elapsed) / float64(a.headDur)
		return a.headFrac * smoothstep(x)
	}
	x := float64(elapsed-a.headDur) / float64(a.tailDur)
	return a.headFrac + (1-a.headFrac)*smoothstep(x)
}

// done reports whether the animation has paid out its full allocation.
func (a *animation) done() bool {
	return a.emittedFrac >= 1
}

func newAnimation(notch NotchEvent, pixels float64, now time.Time) *animation {
	p := notch.Effective
	duration := time.Duration(p.AnimationTimeMs) * time.Millisecond
	headDur := duration / time.Duration(p.TailToHeadRatio+1)
	if headDur <= 0 {
		headDur = time.Millisecond
	}
	tailDur := duration - headDur
	if tailDur <= 0 {
		tailDur = time.Millisecond
	}
	return &animation{
		start:       now,
		duration:    duration,
		headDur:     headDur,
		tailDur:     tailDur,
		headFrac:    float64(headDur) / float64(duration),
		easing:      p.AnimationEasing,
		totalPixels: pixels,
		target:      notch.Target,
		screenX:     notch.ScreenX,
		screenY:     notch.ScreenY,
	}
}

// axisTelemetry exposes counters a caller (e.g. the CLI or a status
// surface) can read without touching the runner's internals.
type axisTelemetry struct {
	accelLevel      atomic.Int64
	activeAnimCount atomic.Int64
	injectFailures  atomic.Int64
	droppedNotches  atomic.Int64
}

// axisRunner owns every mutable field touched by one axis's animation
// state. It is a single-owner goroutine: nothing outside run() ever
// reads or writes its animations slice, residual carries, or
// acceleration bookkeeping, so none of it needs a mutex.
type axisRunner struct {
	axis      Axis
	notches   chan NotchEvent
	injector  Injector
	telemetry axisTelemetry
	onError   func(err error)

	animations []*animation

	lastArrival time.Time
	accelLevel  int

	residualPos float64
	residualNeg float64
}

func newAxisRunner(axis Axis, injector Injector, onError func(err error)) *axisRunner {
	return &axisRunner{
		axis:     axis,
		notches:  make(chan NotchEvent, 64),
		injector: injector,
		onError:  onError,
	}
}

// absorb applies the acceleration-stacking rule from spec §4.3: a
// notch arriving within AccelerationDeltaMs of the previous one on the
// same axis bumps the per-notch pixel budget up to AccelerationMax
// times step_size_px; a longer gap resets the stack to 1x.
func (r *axisRunner) absorb(notch NotchEvent, now time.Time) {
	p := notch.Effective

	if !r.lastArrival.IsZero() {
		gap := now.Sub(r.lastArrival)
		if gap <= time.Duration(p.AccelerationDeltaMs)*time.Millisecond {
			if r.accelLevel < p.AccelerationMax {
				r.accelLevel++
			}
		} else {
			r.accelLevel = 1
		}
	} else {
		r.accelLevel = 1
	}
	r.lastArrival = now
	r.telemetry.accelLevel.Store(int64(r.accelLevel))

	sign := 1.0
	if notch.Delta < 0 {
		sign = -1.0
	}
	magnitude := notch.Delta
	if magnitude < 0 {
		magnitude = -magnitude
	}
	pixels := sign * float64(magnitude*p.StepSizePx*r.accelLevel)

	if r.axis == AxisHorizontal && !p.HorizontalSmoothness {
		// Bypass: deliver the whole step in one synthetic event instead
		// of animating it, per the horizontal_smoothness=false rule.
		r.emit(notch.Target, notch.ScreenX, notch.ScreenY, int(pixels))
		return
	}

	r.animations = append(r.animations, newAnimation(notch, pixels, now))
	r.telemetry.activeAnimCount.Store(int64(len(r.animations)))
}

// tick advances every in-flight animation by one frame, sums their
// instantaneous contributions split by sign (so a direction reversal
// within one axis still produces two distinct events rather than a
// cancelled-out net), and emits up to one synthetic event per sign.
func (r *axisRunner) tick(now time.Time) {
	if len(r.animations) == 0 {
		return
	}

	target, screenX, screenY := r.currentTarget()

	var sumPos, sumNeg float64
	live := r.animations[:0]
	for _, a := range r.animations {
		frac := a.cumulativeFraction(now.Sub(a.start))
		delta := a.totalPixels * (frac - a.emittedFrac)
		a.emittedFrac = frac
		if delta > 0 {
			sumPos += delta
		} else {
			sumNeg += -delta
		}
		if !a.done() {
			live = append(live, a)
		}
	}
	r.animations = live
	r.telemetry.activeAnimCount.Store(int64(len(r.animations)))

	r.residualPos += sumPos
	if whole := int(r.residualPos); whole >= 1 && r.emit(target, screenX, screenY, whole) {
		r.residualPos -= float64(whole)
	}
	r.residualNeg += sumNeg
	if whole := int(r.residualNeg); whole >= 1 && r.emit(target, screenX, screenY, -whole) {
		r.residualNeg -= float64(whole)
	}
}

// currentTarget returns the window — and the cursor position captured
// alongside it — that the most recently created animation targets, the
// window that was under the cursor at that notch's arrival time. A tick
// sends the summed pixels of every live animation to this one window, so
// once a newer notch arrives, older still-running animations on the same
// axis are emitted toward the newer notch's window as well.
func (r *axisRunner) currentTarget() (target WindowHandle, screenX, screenY int32) {
	if len(r.animations) == 0 {
		return 0, 0, 0
	}
	a := r.animations[len(r.animations)-1]
	return a.target, a.screenX, a.screenY
}

// emit reports false only when the injector fails, so tick can keep
// those pixels in its residual carry and retry them on a later tick.
func (r *axisRunner) emit(target WindowHandle, screenX, screenY int32, deltaPx int) bool {
	if deltaPx == 0 || target == 0 {
		return true
	}
	if err := r.injector.InjectWheel(target, r.axis, deltaPx, screenX, screenY); err != nil {
		r.telemetry.injectFailures.Add(1)
		if r.onError != nil {
			r.onError(err)
		}
		return false
	}
	return true
}

func (r *axisRunner) run(ctx context.Context) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case notch := <-r.notches:
			r.absorb(notch, time.Now())
		case now := <-ticker.C:
			r.tick(now)
		}
	}
}

// Engine is the Smooth Scroll Engine from spec §4.3: two independent
// axis runners, each a single-owner goroutine, fed by notches from the
// hook layer and emitting synthetic wheel motion through an Injector.
type Engine struct {
	vertical   *axisRunner
	horizontal *axisRunner
}

// NewEngine wires up both axis runners. onError (optional) is called
// from whichever axis goroutine hits an injection failure; callers
// typically forward it to the logging worker.
func NewEngine(injector Injector, onError func(err error)) *Engine {
	return &Engine{
		vertical:   newAxisRunner(AxisVertical, injector, onError),
		horizontal: newAxisRunner(AxisHorizontal, injector, onError),
	}
}

// Start launches both axis runners. They stop when ctx is cancelled.
func (e *Engine) Start(ctx context.Context) {
	go e.vertical.run(ctx)
	go e.horizontal.run(ctx)
}

// Submit hands one absorbed notch to its axis's runner. It never
// blocks the hook callback: a full channel drops the notch and counts
// it, rather than stalling the <1ms hook budget from spec §4.1.
func (e *Engine) Submit(notch NotchEvent) {
	r := e.runnerFor(notch.Axis)
	select {
	case r.notches <- notch:
	default:
		r.telemetry.droppedNotches.Add(1)
	}
}

func (e *Engine) runnerFor(axis Axis) *axisRunner {
	if axis == AxisHorizontal {
		return e.horizontal
	}
	return e.vertical
}

// Telemetry snapshots are read-only copies safe to expose to a status
// surface (e.g. cmd/swiftscrollctl) without synchronizing with the
// runner goroutines.
type Telemetry struct {
	AccelLevel      int64
	ActiveAnimCount int64
	InjectFailures  int64
	DroppedNotches  int64
}

// Telemetry returns a snapshot for the requested axis.
func (e *Engine) Telemetry(axis Axis) Telemetry {
	r := e.runnerFor(axis)
	return Telemetry{
		AccelLevel:      r.telemetry.accelLevel.Load(),
		ActiveAnimCount: r.telemetry.activeAnimCount.Load(),
		InjectFailures:  r.telemetry.injectFailures.Load(),
		DroppedNotches:  r.telemetry.droppedNotches.Load(),
	}
}
