package model

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/kamishibai/pkg/formats"
	"github.com/Faultbox/kamishibai/pkg/math"
)

// defaultTicksPerSecond is used for clips that do not store a tick rate.
const defaultTicksPerSecond = 25

// Keyframe is one animation key. TimePos is in ticks.
type Keyframe struct {
	Translation math.Vec3
	Scale       math.Vec3
	Rotation    math.Quat
	TimePos     float32
}

// Track is the keyframe list of one animation channel.
type Track struct {
	Keyframes []Keyframe
}

// Clip is a named animation. Track i drives the nodes whose channel is i.
type Clip struct {
	Name           string
	Duration       float32 // ticks
	TicksPerSecond float32
	Tracks         []Track
	TotalFrames    int
}

func newClip(kc *formats.KSMClip) Clip {
	c := Clip{
		Name:           kc.Name,
		Duration:       kc.Duration,
		TicksPerSecond: kc.TicksPerSecond,
		TotalFrames:    int(kc.TotalFrames),
		Tracks:         make([]Track, len(kc.Tracks)),
	}
	for i, kt := range kc.Tracks {
		keys := make([]Keyframe, len(kt.Keyframes))
		for k, kf := range kt.Keyframes {
			keys[k] = Keyframe{
				Translation: math.V3(kf.Translation),
				Scale:       math.V3(kf.Scale),
				Rotation:    math.QuatFromArray(kf.Rotation),
				TimePos:     kf.TimePos,
			}
		}
		c.Tracks[i].Keyframes = keys
	}
	return c
}

// Interpolate returns the local transform of the track at time t (ticks).
// Times before the first key or after the last clamp to those keys.
func (tr Track) Interpolate(t float32) math.Mat4 {
	keys := tr.Keyframes
	if len(keys) == 0 {
		return math.Identity()
	}
	if len(keys) == 1 || t <= keys[0].TimePos {
		return keyMatrix(keys[0])
	}

	// Find surrounding keyframes (assuming keys are sorted by time)
	var prev, next int
	for i := range keys {
		if keys[i].TimePos > t {
			next = i
			break
		}
		prev = i
		next = i
	}

	// If at or past last key, hold it
	if prev == next {
		return keyMatrix(keys[prev])
	}

	k0 := keys[prev]
	k1 := keys[next]
	f := float32(0)
	if k1.TimePos != k0.TimePos {
		f = (t - k0.TimePos) / (k1.TimePos - k0.TimePos)
	}

	return math.Compose(
		k0.Translation.Lerp(k1.Translation, f),
		k0.Rotation.Slerp(k1.Rotation, f),
		k0.Scale.Lerp(k1.Scale, f),
	)
}

func keyMatrix(k Keyframe) math.Mat4 {
	return math.Compose(k.Translation, k.Rotation, k.Scale)
}

// Sample returns one local transform per track at time t (ticks).
func (c *Clip) Sample(t float32) []math.Mat4 {
	out := make([]math.Mat4, len(c.Tracks))
	for i := range c.Tracks {
		out[i] = c.Tracks[i].Interpolate(t)
	}
	return out
}

// Animator plays a clip in seconds.
type Animator struct {
	Clip *Clip
	Loop bool

	ticks float32
}

// NewAnimator returns a looping animator positioned at the start of clip.
func NewAnimator(clip *Clip) *Animator {
	return &Animator{Clip: clip, Loop: true}
}

// Advance moves playback forward by dt seconds.
func (a *Animator) Advance(dt float32) {
	if a.Clip == nil {
		return
	}
	tps := a.Clip.TicksPerSecond
	if tps <= 0 {
		tps = defaultTicksPerSecond
	}
	a.ticks += dt * tps

	if d := a.Clip.Duration; d > 0 && a.ticks > d {
		if a.Loop {
			a.ticks = math32.Mod(a.ticks, d)
		} else {
			a.ticks = d
		}
	}
}

// Reset rewinds to the start of the clip.
func (a *Animator) Reset() {
	a.ticks = 0
}

// Time returns the playback position in ticks.
func (a *Animator) Time() float32 {
	return a.ticks
}

// Transforms returns the channel transforms for the current position, ready
// for Model.Draw or Model.UpdateTransforms.
func (a *Animator) Transforms() []math.Mat4 {
	if a.Clip == nil {
		return nil
	}
	return a.Clip.Sample(a.ticks)
}
