/*
DESCRIPTION
  pipeline_test.go exercises the detect<->track state machine
  end-to-end: an initial detection hand-off into Tracking, damping at
  the start of the persistence window, a fall back to Detecting once
  the tracker loses the pattern, and the named scenarios covering
  identity/translation/rotation-scale detection, persistence-window
  hiding, sustained tracking accuracy, and lost-on-jump recovery.

AUTHORS
  Ella Pietraroia <ella@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package track

import (
	"context"
	"image"
	"math"
	"testing"

	"github.com/ausocean/artrack/track/config"
	"github.com/ausocean/artrack/vision"
	"github.com/ausocean/artrack/vision/testimage"
)

type dumbLogger struct{}

func (dl *dumbLogger) Log(l int8, m string, a ...interface{})  {}
func (dl *dumbLogger) SetLevel(l int8)                         {}
func (dl *dumbLogger) Debug(msg string, args ...interface{})   {}
func (dl *dumbLogger) Info(msg string, args ...interface{})    {}
func (dl *dumbLogger) Warning(msg string, args ...interface{}) {}
func (dl *dumbLogger) Error(msg string, args ...interface{})   {}
func (dl *dumbLogger) Fatal(msg string, args ...interface{})   {}

type recordingSink struct {
	quads   []*vision.Quad
	detects int
}

func (s *recordingSink) EmitQuad(q *vision.Quad) { s.quads = append(s.quads, q) }
func (s *recordingSink) EnterDetecting()         { s.detects++ }

func newTestPipeline(t *testing.T) (*Pipeline, Frame) {
	t.Helper()
	img := testimage.Checkerboard(int(vision.MaxPatternSize), int(vision.MaxPatternSize), 32)
	rgba, w, h := testimage.RGBA(img)
	patternFrame := Frame{Width: w, Height: h, RGBA: rgba}

	p, err := New(config.Config{Logger: &dumbLogger{}}, patternFrame)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return p, patternFrame
}

func TestPipelineDetectsAndTransitionsToTracking(t *testing.T) {
	p, patternFrame := newTestPipeline(t)

	quad, err := p.Tick(patternFrame)
	if err != nil {
		t.Fatalf("Tick failed: %v", err)
	}
	if quad == nil {
		t.Fatal("expected a quad on successful detection")
	}
	if p.st.mode != Tracking {
		t.Errorf("expected pipeline to transition to Tracking, got %v", p.st.mode)
	}
	stats := p.Stats()
	if stats.DetectSuccesses != 1 {
		t.Errorf("expected 1 detect success, got %d", stats.DetectSuccesses)
	}
}

func TestPipelineTracksSubsequentFrame(t *testing.T) {
	p, patternFrame := newTestPipeline(t)
	if _, err := p.Tick(patternFrame); err != nil {
		t.Fatalf("first tick failed: %v", err)
	}

	quad, err := p.Tick(patternFrame)
	if err != nil {
		t.Fatalf("second tick failed: %v", err)
	}
	if quad == nil {
		t.Error("expected a quad while tracking a static, unchanged frame")
	}
	if p.st.mode != Tracking {
		t.Errorf("expected pipeline to remain in Tracking, got %v", p.st.mode)
	}
}

func TestPipelineRejectsInvalidFrame(t *testing.T) {
	p, _ := newTestPipeline(t)
	_, err := p.Tick(Frame{Width: 0, Height: 0})
	if err == nil {
		t.Error("expected an error for a zero-sized frame")
	}
}

func TestPipelineRunEmitsViaSink(t *testing.T) {
	p, patternFrame := newTestPipeline(t)

	frames := make(chan Frame, 2)
	frames <- patternFrame
	frames <- patternFrame
	close(frames)

	sink := &recordingSink{}
	if err := p.Run(context.Background(), frames, sink); err != nil {
		t.Fatalf("Run returned an error: %v", err)
	}
	if len(sink.quads) != 2 {
		t.Fatalf("expected 2 emitted quads, got %d", len(sink.quads))
	}
	for i, q := range sink.quads {
		if q == nil {
			t.Errorf("tick %d: expected a non-nil quad", i)
		}
	}
}

// quadCentroid returns the mean of a quad's four corners.
func quadCentroid(q vision.Quad) vision.Point {
	var x, y float64
	for _, p := range q {
		x += p.X
		y += p.Y
	}
	return vision.Point{X: x / 4, Y: y / 4}
}

// quadDiagonal returns the mean length of a quad's two diagonals.
func quadDiagonal(q vision.Quad) float64 {
	d1 := math.Hypot(q[2].X-q[0].X, q[2].Y-q[0].Y)
	d2 := math.Hypot(q[3].X-q[1].X, q[3].Y-q[1].Y)
	return (d1 + d2) / 2
}

// avgCornerError returns the mean per-corner Euclidean distance between
// a and b.
func avgCornerError(a, b vision.Quad) float64 {
	var sum float64
	for i := 0; i < 4; i++ {
		sum += math.Hypot(a[i].X-b[i].X, a[i].Y-b[i].Y)
	}
	return sum / 4
}

// newEmbeddingPipeline trains on a standalone checkerboard pattern and
// returns both the pipeline and the raw pattern image, for embedding
// into larger canvases via testimage.Translate/RotateScale.
func newEmbeddingPipeline(t *testing.T) (*Pipeline, *image.RGBA) {
	t.Helper()
	raw := testimage.Checkerboard(int(vision.MaxPatternSize), int(vision.MaxPatternSize), 32)
	rgba, w, h := testimage.RGBA(raw)
	p, err := New(config.Config{Logger: &dumbLogger{}}, Frame{Width: w, Height: h, RGBA: rgba})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return p, raw
}

// canvasW x canvasH is large enough to hold the MaxPatternSize pattern at the
// rotation/scale factors exercised below without clipping.
const canvasW, canvasH = 1000, 1000

func tickEmbedded(t *testing.T, p *Pipeline, canvas *image.RGBA) *vision.Quad {
	t.Helper()
	rgba, w, h := testimage.RGBA(canvas)
	quad, err := p.Tick(Frame{Width: w, Height: h, RGBA: rgba})
	if err != nil {
		t.Fatalf("Tick failed: %v", err)
	}
	return quad
}

// TestScenarioIdentityPattern covers the exact-reference-frame case:
// feeding the trained pattern back unchanged should detect a quad
// matching the reference rectangle within a couple of pixels.
func TestScenarioIdentityPattern(t *testing.T) {
	p, patternFrame := newTestPipeline(t)

	quad, err := p.Tick(patternFrame)
	if err != nil {
		t.Fatalf("Tick failed: %v", err)
	}
	if quad == nil {
		t.Fatal("expected a quad on identity detection")
	}

	refW, refH := p.refWH()
	want := vision.Quad{
		{X: 0, Y: 0},
		{X: refW, Y: 0},
		{X: refW, Y: refH},
		{X: 0, Y: refH},
	}
	if cerr := avgCornerError(*quad, want); cerr > 2 {
		t.Errorf("identity quad corner error = %.2fpx, want <= 2px", cerr)
	}
}

// TestScenarioPureTranslation covers a pure shift of the pattern within
// the frame: once the damping ramp (MaxPersistOpticalFrames + 1 tracked
// ticks, starting from the detection quad) has reached the tracker's raw
// output, the centroid should have moved by the same offset, within 1px.
func TestScenarioPureTranslation(t *testing.T) {
	p, raw := newEmbeddingPipeline(t)

	baseX, baseY := float64(canvasW-int(vision.MaxPatternSize))/2, float64(canvasH-int(vision.MaxPatternSize))/2
	base := testimage.Translate(raw, canvasW, canvasH, baseX, baseY)
	quad1 := tickEmbedded(t, p, base)
	if quad1 == nil {
		t.Fatal("expected detection on base frame")
	}
	if p.st.mode != Tracking {
		t.Fatalf("expected Tracking after detection, got %v", p.st.mode)
	}

	const dx, dy = 15.0, 10.0
	shifted := testimage.Translate(raw, canvasW, canvasH, baseX+dx, baseY+dy)
	var quad2 *vision.Quad
	for i := 0; i <= config.DefaultMaxPersistOpticalFrames; i++ {
		quad2 = tickEmbedded(t, p, shifted)
		if quad2 == nil {
			t.Fatal("expected tracking to continue on the shifted frame")
		}
	}

	c1, c2 := quadCentroid(*quad1), quadCentroid(*quad2)
	gotDx, gotDy := c2.X-c1.X, c2.Y-c1.Y
	if math.Abs(gotDx-dx) > 1 || math.Abs(gotDy-dy) > 1 {
		t.Errorf("centroid shift = (%.2f, %.2f), want (%.2f, %.2f) within 1px", gotDx, gotDy, dx, dy)
	}
}

// TestScenarioRotationAndScale covers a combined rotation and scale of
// the pattern: the quad detected on the transformed frame should have a
// diagonal scaled by the same factor, within 3% of the diagonal. A
// 12 degree, 1.15x change moves each corner far more than
// PruneThreshold in one tick, so the transformed frame is detected by a
// fresh pipeline instead of being tracked from the base frame.
func TestScenarioRotationAndScale(t *testing.T) {
	p, raw := newEmbeddingPipeline(t)

	cx, cy := float64(canvasW)/2, float64(canvasH)/2
	base := testimage.RotateScale(raw, canvasW, canvasH, 0, 1, cx, cy)
	quad1 := tickEmbedded(t, p, base)
	if quad1 == nil {
		t.Fatal("expected detection on base frame")
	}

	const angle, factor = 12.0, 1.15
	transformed := testimage.RotateScale(raw, canvasW, canvasH, angle, factor, cx, cy)
	p2, _ := newEmbeddingPipeline(t)
	quad2 := tickEmbedded(t, p2, transformed)
	if quad2 == nil {
		t.Fatal("expected detection on the rotated/scaled frame")
	}

	wantDiag := quadDiagonal(*quad1) * factor
	gotDiag := quadDiagonal(*quad2)
	tolerance := 0.03 * wantDiag
	if math.Abs(gotDiag-wantDiag) > tolerance {
		t.Errorf("diagonal = %.2f, want %.2f within 3%% (%.2fpx)", gotDiag, wantDiag, tolerance)
	}
}

// TestScenarioDetectThenTrack covers 20 frames of continuous tracking
// along a known linear path: the centroid path's RMS error against the
// expected offsets should stay within 2px.
func TestScenarioDetectThenTrack(t *testing.T) {
	p, raw := newEmbeddingPipeline(t)

	baseX, baseY := float64(canvasW-int(vision.MaxPatternSize))/2, float64(canvasH-int(vision.MaxPatternSize))/2

	const frames = 20
	var sqErr float64
	var anchor vision.Point
	for i := 0; i < frames; i++ {
		frame := testimage.Translate(raw, canvasW, canvasH, baseX+float64(i), baseY+float64(i))
		quad := tickEmbedded(t, p, frame)
		if quad == nil {
			t.Fatalf("frame %d: expected a quad", i)
		}
		c := quadCentroid(*quad)
		if i == 0 {
			anchor = c
			continue
		}
		wantDx, wantDy := float64(i), float64(i)
		gotDx, gotDy := c.X-anchor.X, c.Y-anchor.Y
		ex, ey := gotDx-wantDx, gotDy-wantDy
		sqErr += ex*ex + ey*ey
	}
	rms := math.Sqrt(sqErr / float64(2*(frames-1)))
	if rms > 2 {
		t.Errorf("centroid path RMS error = %.2fpx, want <= 2px", rms)
	}
	if p.st.mode != Tracking {
		t.Errorf("expected pipeline to remain Tracking across %d frames, got %v", frames, p.st.mode)
	}
}

// TestScenarioLostOnLargeJump covers an implausible (+200, +200) jump
// mid-track: the tracker should declare the pattern lost and hand back
// to Detecting rather than silently following the jump.
func TestScenarioLostOnLargeJump(t *testing.T) {
	p, raw := newEmbeddingPipeline(t)

	baseX, baseY := float64(canvasW-int(vision.MaxPatternSize))/2, float64(canvasH-int(vision.MaxPatternSize))/2
	base := testimage.Translate(raw, canvasW, canvasH, baseX, baseY)
	if tickEmbedded(t, p, base) == nil {
		t.Fatal("expected detection on base frame")
	}
	if p.st.mode != Tracking {
		t.Fatalf("expected Tracking after detection, got %v", p.st.mode)
	}

	jumped := testimage.Translate(raw, canvasW, canvasH, baseX+200, baseY+200)
	tickEmbedded(t, p, jumped)

	if p.st.mode != Detecting {
		t.Errorf("expected a (+200,+200) jump to lose the track, mode = %v", p.st.mode)
	}
	if p.Stats().TrackerLosses != 1 {
		t.Errorf("expected 1 tracker loss, got %d", p.Stats().TrackerLosses)
	}
}

// TestScenarioPersistenceWindowThenHide covers 30 frames with no
// pattern present: the overlay should keep showing the last known quad
// for the persistence window (MaxPersistOpticalFrames, default 6) and
// then hide.
func TestScenarioPersistenceWindowThenHide(t *testing.T) {
	p, raw := newEmbeddingPipeline(t)

	baseX, baseY := float64(canvasW-int(vision.MaxPatternSize))/2, float64(canvasH-int(vision.MaxPatternSize))/2
	base := testimage.Translate(raw, canvasW, canvasH, baseX, baseY)
	if tickEmbedded(t, p, base) == nil {
		t.Fatal("expected detection on base frame")
	}

	// Shift the pattern far enough off-canvas that every subsequent
	// frame is effectively featureless.
	blank := testimage.Translate(raw, canvasW, canvasH, 1e6, 1e6)

	const persist = config.DefaultMaxPersistOpticalFrames
	const noPatternFrames = 30
	visible := 0
	for i := 0; i < noPatternFrames; i++ {
		quad := tickEmbedded(t, p, blank)
		if quad != nil {
			visible++
		}
	}
	// The tick that loses the tracker still shows the last quad, plus
	// `persist` further Detecting-mode ticks before it's cleared.
	wantVisible := 1 + persist
	if wantVisible > noPatternFrames {
		wantVisible = noPatternFrames
	}
	if visible != wantVisible {
		t.Errorf("overlay stayed visible for %d of %d no-pattern frames, want %d", visible, noPatternFrames, wantVisible)
	}
	if p.st.mode != Detecting {
		t.Errorf("expected pipeline back in Detecting after losing the pattern, got %v", p.st.mode)
	}
}

func TestDampQuadBoundaryConditions(t *testing.T) {
	raw := vision.Quad{{X: 10, Y: 10}, {X: 20, Y: 10}, {X: 20, Y: 20}, {X: 10, Y: 20}}
	prev := vision.Quad{{X: 0, Y: 0}, {X: 5, Y: 0}, {X: 5, Y: 5}, {X: 0, Y: 5}}

	atZero := dampQuad(raw, prev, 0, 6)
	if atZero != prev {
		t.Errorf("at f=0 damped quad should equal prev: got %v, want %v", atZero, prev)
	}

	atMax := dampQuad(raw, prev, 6, 6)
	if atMax != raw {
		t.Errorf("at f=maxPersist damped quad should equal raw: got %v, want %v", atMax, raw)
	}
}
