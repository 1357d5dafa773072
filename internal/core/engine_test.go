package core

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedInjection struct {
	target          WindowHandle
	axis            Axis
	deltaPx         int
	screenX, screenY int32
}

type fakeInjector struct {
	mu    sync.Mutex
	calls []recordedInjection
}

func (f *fakeInjector) InjectWheel(target WindowHandle, axis Axis, deltaPx int, screenX, screenY int32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, recordedInjection{target, axis, deltaPx, screenX, screenY})
	return nil
}

func (f *fakeInjector) sum() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, c := range f.calls {
		total += c.deltaPx
	}
	return total
}

func runTicks(r *axisRunner, start time.Time, n int, step time.Duration) {
	for i := 1; i <= n; i++ {
		r.tick(start.Add(time.Duration(i) * step))
	}
}

func TestSingleNotchMotionConservation(t *testing.T) {
	injector := &fakeInjector{}
	r := newAxisRunner(AxisVertical, injector, nil)

	start := time.Now()
	notch := NotchEvent{Delta: 1, Axis: AxisVertical, Arrival: start, Target: 1, Effective: DefaultProfile}
	r.absorb(notch, start)

	ticks := int(DefaultProfile.AnimationTimeMs/10) + 2
	runTicks(r, start, ticks, 10*time.Millisecond)

	expectedTotal := float64(DefaultProfile.StepSizePx) // 1 notch, accel 1x
	emitted := float64(injector.sum())
	owed := emitted + r.residualPos - r.residualNeg

	assert.InDelta(t, expectedTotal, owed, 1.0)
	assert.Empty(t, r.animations, "animation should be pruned once its lifetime elapses")
}

func TestAccelerationResetsAfterLongGap(t *testing.T) {
	injector := &fakeInjector{}
	r := newAxisRunner(AxisVertical, injector, nil)

	start := time.Now()
	r.absorb(NotchEvent{Delta: 1, Axis: AxisVertical, Target: 1, Effective: DefaultProfile}, start)
	assert.Equal(t, 1, r.accelLevel)

	later := start.Add(time.Duration(DefaultProfile.AccelerationDeltaMs+1) * time.Millisecond)
	r.absorb(NotchEvent{Delta: 1, Axis: AxisVertical, Target: 1, Effective: DefaultProfile}, later)
	assert.Equal(t, 1, r.accelLevel, "a gap longer than acceleration_delta_ms must reset to 1x")
}

func TestAccelerationStacksWithinDelta(t *testing.T) {
	injector := &fakeInjector{}
	r := newAxisRunner(AxisVertical, injector, nil)

	start := time.Now()
	r.absorb(NotchEvent{Delta: 1, Axis: AxisVertical, Target: 1, Effective: DefaultProfile}, start)
	r.absorb(NotchEvent{Delta: 1, Axis: AxisVertical, Target: 1, Effective: DefaultProfile}, start.Add(30*time.Millisecond))
	r.absorb(NotchEvent{Delta: 1, Axis: AxisVertical, Target: 1, Effective: DefaultProfile}, start.Add(55*time.Millisecond))

	assert.Equal(t, 3, r.accelLevel)
	require.Len(t, r.animations, 3)

	var totalBudget float64
	for _, a := range r.animations {
		totalBudget += a.totalPixels
	}
	assert.Equal(t, float64((1+2+3)*DefaultProfile.StepSizePx), totalBudget)
}

func TestAccelerationCapsAtMax(t *testing.T) {
	injector := &fakeInjector{}
	r := newAxisRunner(AxisVertical, injector, nil)

	start := time.Now()
	for i := 0; i < DefaultProfile.AccelerationMax+5; i++ {
		r.absorb(NotchEvent{Delta: 1, Axis: AxisVertical, Target: 1, Effective: DefaultProfile}, start.Add(time.Duration(i)*10*time.Millisecond))
	}
	assert.Equal(t, DefaultProfile.AccelerationMax, r.accelLevel)
}

func TestHorizontalSmoothnessFalseBypassesAnimation(t *testing.T) {
	injector := &fakeInjector{}
	r := newAxisRunner(AxisHorizontal, injector, nil)

	profile := DefaultProfile
	profile.HorizontalSmoothness = false

	start := time.Now()
	r.absorb(NotchEvent{Delta: 1, Axis: AxisHorizontal, Target: 1, Effective: profile}, start)

	assert.Empty(t, r.animations, "bypassed notches never become animations")
	require.Len(t, injector.calls, 1)
	assert.Equal(t, profile.StepSizePx, injector.calls[0].deltaPx)
}

func TestProfileSwitchBetweenNotchesDoesNotRetroWarp(t *testing.T) {
	injector := &fakeInjector{}
	r := newAxisRunner(AxisVertical, injector, nil)

	profileA := DefaultProfile
	profileA.StepSizePx = 8
	profileB := DefaultProfile
	profileB.StepSizePx = 16

	start := time.Now()
	r.absorb(NotchEvent{Delta: 1, Axis: AxisVertical, Target: 1, Effective: profileA}, start)
	require.Len(t, r.animations, 1)
	assert.Equal(t, float64(8), r.animations[0].totalPixels)

	later := start.Add(300 * time.Millisecond) // profileA's animation has already finished
	r.tick(later)

	r.absorb(NotchEvent{Delta: 1, Axis: AxisVertical, Target: 1, Effective: profileB}, later)
	require.Len(t, r.animations, 1)
	assert.Equal(t, float64(16), r.animations[0].totalPixels)
}

func TestReverseWheelDirectionFlipsSign(t *testing.T) {
	res := Resolution{Effective: func() ScrollProfile {
		p := DefaultProfile
		p.ReverseWheelDirection = true
		return p
	}()}
	notch := BuildNotch(1, AxisVertical, time.Now(), WindowHandle(1), 0, 0, res)
	assert.Equal(t, -1, notch.Delta)
}

func TestCumulativeFractionMonotonicAndBounded(t *testing.T) {
	a := newAnimation(NotchEvent{Effective: DefaultProfile}, 100, time.Now())

	var prev float64
	duration := time.Duration(DefaultProfile.AnimationTimeMs) * time.Millisecond
	for i := 0; i <= 10; i++ {
		elapsed := duration * time.Duration(i) / 10
		frac := a.cumulativeFraction(elapsed)
		assert.GreaterOrEqual(t, frac, prev)
		assert.LessOrEqual(t, frac, 1.0)
		prev = frac
	}
	assert.Equal(t, 1.0, a.cumulativeFraction(duration))
}

func TestEngineSubmitRoutesToCorrectAxis(t *testing.T) {
	injector := &fakeInjector{}
	engine := NewEngine(injector, nil)

	engine.Submit(NotchEvent{Delta: 1, Axis: AxisHorizontal, Target: 1, Effective: DefaultProfile})

	select {
	case notch := <-engine.horizontal.notches:
		assert.Equal(t, AxisHorizontal, notch.Axis)
	default:
		t.Fatal("expected notch queued on the horizontal axis runner")
	}

	select {
	case <-engine.vertical.notches:
		t.Fatal("vertical axis should not have received the horizontal notch")
	default:
	}
}
