/*
NAME
  pipeline.go

DESCRIPTION
  pipeline.go implements the detect<->track state machine, temporal
  damping of the emitted quad, and the single cooperative per-frame
  tick that drives the whole core: a config, a running state machine, a
  Run loop, and read-only accessors for diagnostics.

AUTHORS
  Ella Pietraroia <ella@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package track provides Pipeline, the detect/track orchestrator that
// locates a trained pattern in a live frame stream and emits a damped
// quadrilateral to an OverlaySink.
package track

import (
	"context"

	"github.com/pkg/errors"

	"github.com/ausocean/artrack/track/config"
	"github.com/ausocean/artrack/vision"
	"github.com/ausocean/artrack/vision/corner"
	"github.com/ausocean/artrack/vision/geom"
	"github.com/ausocean/artrack/vision/imgproc"
	"github.com/ausocean/artrack/vision/optflow"
	"github.com/ausocean/artrack/vision/pattern"
)

// Mode is the orchestrator's state.
type Mode int

const (
	Detecting Mode = iota
	Tracking
)

func (m Mode) String() string {
	if m == Tracking {
		return "Tracking"
	}
	return "Detecting"
}

// Stats are read-only per-pipeline diagnostics, readable by the
// embedder between ticks (no mutable state is exposed during a tick).
type Stats struct {
	FramesProcessed uint64
	DetectAttempts  uint64
	DetectSuccesses uint64
	TrackerLosses   uint64
	Mode            Mode
}

// state is the orchestrator's single mutable per-tick state, read and
// written exactly once per tick.
type state struct {
	mode           Mode
	lastQuad       *vision.Quad
	opticalPersist uint

	// interpolationConstant is updated but never read in the covered
	// paths; reserved for future sub-frame smoothing.
	interpolationConstant float64
}

// Pipeline is the detect/track orchestrator. It owns the trained
// pattern, the optical-flow tracker, and all per-frame scratch
// buffers; a Pipeline processes exactly one frame to completion before
// the next tick begins.
type Pipeline struct {
	cfg       config.Config
	pattern   vision.PatternModel
	tracker   *optflow.Tracker
	det       detector
	gray      vision.Plane
	pyr       []vision.Plane
	st        state
	stats     Stats
	transform geom.Transform
}

// buildPyramid fills p.pyr with an n-level pyramid rooted at src,
// reusing backing planes across ticks.
func (p *Pipeline) buildPyramid(src vision.Plane, n int) []vision.Plane {
	if cap(p.pyr) < n {
		p.pyr = make([]vision.Plane, n)
	}
	p.pyr = p.pyr[:n]
	p.pyr[0].Resize(src.W, src.H)
	copy(p.pyr[0].Pix, src.Pix)
	for i := 1; i < n; i++ {
		imgproc.PyramidDown(&p.pyr[i], p.pyr[i-1])
	}
	return p.pyr
}

// New trains a Pipeline on the given reference pattern image and
// returns it ready to process frames. cfg.Validate is called
// internally; cfg.Logger must be set.
func New(cfg config.Config, patternFrame Frame) (*Pipeline, error) {
	if cfg.Logger == nil {
		return nil, errors.New("track: config.Logger must be set")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "track: invalid config")
	}
	if patternFrame.Width <= 0 || patternFrame.Height <= 0 {
		return nil, errors.New("track: invalid pattern frame")
	}

	tp := pattern.TrainParams{
		NumTrainLevels: cfg.NumTrainLevels,
		MaxPatternSize: cfg.MaxPatternSize,
		BlurSize:       cfg.BlurSize,
		LapThreshold:   cfg.LapThreshold,
		EigenThreshold: cfg.EigenThreshold,
		MaxPerLevel:    cfg.MaxPerLevel,
		GridDistance:   cfg.GridDistance,
	}
	model, err := pattern.Train(patternFrame.RGBA, patternFrame.Width, patternFrame.Height, tp)
	if err != nil {
		return nil, errors.Wrap(err, "track: pattern training failed")
	}
	if model.Fallback {
		cfg.Logger.Warning("pattern training used synthetic-feature fallback")
	}

	op := optflow.DefaultParams()
	op.PointThreshold = int(cfg.PointThreshold)
	op.PruneThreshold = cfg.PruneThreshold
	op.GoodMatchThresh = int(cfg.GoodMatchThreshold)
	op.DensityThreshold = cfg.DensityThreshold
	op.PyramidLevels = int(cfg.PyramidLevels)
	op.MaxQuadAngle = float64(cfg.MaxQuadAngleAllowed)

	p := &Pipeline{
		cfg:     cfg,
		pattern: model,
		det: detector{
			blurSize: cfg.BlurSize,
			corner: corner.Params{
				Border:   vision.DefaultBorder,
				LapThr:   float32(cfg.LapThreshold),
				EigenThr: float32(cfg.EigenThreshold),
				MaxN:     int(cfg.MaxCorners),
			},
			matchThreshold: int(cfg.MatchThreshold),
		},
		tracker:   optflow.New(op),
		transform: geom.IdentityTransform(),
		st:        state{mode: Detecting},
	}
	return p, nil
}

// SetTransform sets the normalized offset/scale variant transform
// applied to the pattern's corner rectangle.
func (p *Pipeline) SetTransform(t VariantTransform) {
	p.transform = geom.Transform{
		OffsetX: t.Offset[0],
		OffsetY: t.Offset[1],
		ScaleX:  t.Scale[0],
		ScaleY:  t.Scale[1],
	}
}

// Stats returns a copy of the pipeline's current diagnostics.
func (p *Pipeline) Stats() Stats {
	s := p.stats
	s.Mode = p.st.mode
	return s
}

// Run drives the pipeline from frames, calling sink for every tick that
// succeeds (a tick that returns an error is logged and skipped), until
// ctx is done or frames is closed. sink.EnterDetecting is called
// whenever a tick causes the pipeline to (re-)enter Detecting mode.
func (p *Pipeline) Run(ctx context.Context, frames <-chan Frame, sink OverlaySink) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case f, ok := <-frames:
			if !ok {
				return nil
			}
			before := p.st.mode
			quad, err := p.Tick(f)
			if err != nil {
				p.cfg.Logger.Warning("tick failed", "error", err.Error())
				continue
			}
			if before != Detecting && p.st.mode == Detecting {
				sink.EnterDetecting()
			}
			sink.EmitQuad(quad)
		}
	}
}

// refWH returns the reference rectangle dimensions in lev0 pixel units
// (preview doubled).
func (p *Pipeline) refWH() (float64, float64) {
	return float64(p.pattern.Preview.W * 2), float64(p.pattern.Preview.H * 2)
}

// Tick processes exactly one frame to completion, returning the quad
// to emit (nil to hide the overlay) per the detect/track state machine
// and its temporal damping of the emitted quad.
func (p *Pipeline) Tick(f Frame) (*vision.Quad, error) {
	if f.Width <= 0 || f.Height <= 0 || len(f.RGBA) < f.Width*f.Height*4 {
		return nil, errors.New("track: invalid input frame")
	}
	p.stats.FramesProcessed++

	imgproc.Grayscale(&p.gray, f.RGBA, f.Width, f.Height)

	switch p.st.mode {
	case Detecting:
		return p.tickDetecting(f), nil
	default:
		return p.tickTracking(f), nil
	}
}

func (p *Pipeline) tickDetecting(f Frame) *vision.Quad {
	p.stats.DetectAttempts++
	res := p.det.detect(p.gray, &p.pattern, int(p.cfg.GoodMatchThreshold))

	if res.Found {
		p.stats.DetectSuccesses++
		refW, refH := p.refWH()
		pyr := p.buildPyramid(p.gray, int(p.cfg.PyramidLevels))
		p.tracker.Init(res.H, res.FramePts, pyr, refW, refH, p.transform)

		quad, ok := geom.CornerQuad(res.H, refW, refH, p.transform)
		if ok && geom.ValidQuad(quad, float64(p.cfg.MaxQuadAngleAllowed)) {
			p.st.lastQuad = &quad
		}
		p.st.opticalPersist = 0
		p.st.mode = Tracking
		return p.st.lastQuad
	}

	// Detection failure: ride out the persistence window on the last
	// known quad, else hide the overlay.
	if p.st.lastQuad != nil && p.st.opticalPersist < p.cfg.MaxPersistOpticalFrames {
		p.st.opticalPersist++
		return p.st.lastQuad
	}
	p.st.lastQuad = nil
	return nil
}

func (p *Pipeline) tickTracking(f Frame) *vision.Quad {
	damped := p.st.opticalPersist <= p.cfg.MaxPersistOpticalFrames

	result := p.tracker.Track(f.RGBA, f.Width, f.Height)
	if result.Lost {
		p.stats.TrackerLosses++
		p.st.mode = Detecting
		p.st.opticalPersist = 0
		return p.st.lastQuad
	}

	quad := result.Quad
	if damped && p.st.lastQuad != nil {
		quad = dampQuad(quad, *p.st.lastQuad, p.st.opticalPersist, p.cfg.MaxPersistOpticalFrames)
	}
	p.st.lastQuad = &quad
	p.st.interpolationConstant = float64(p.st.opticalPersist) / float64(p.cfg.MaxPersistOpticalFrames)
	if p.st.opticalPersist < p.cfg.MaxPersistOpticalFrames {
		p.st.opticalPersist++
	}
	return &quad
}

// dampQuad blends raw (the tracker's fresh output) with prev (the
// stored last corner quad): at f=0 the result equals prev; at
// f=maxPersist it equals raw.
func dampQuad(raw, prev vision.Quad, f, maxPersist uint) vision.Quad {
	var out vision.Quad
	ff := float64(f)
	mm := float64(maxPersist)
	for i := 0; i < 4; i++ {
		out[i] = vision.Point{
			X: (raw[i].X*ff + prev[i].X*(mm-ff)) / mm,
			Y: (raw[i].Y*ff + prev[i].Y*(mm-ff)) / mm,
		}
	}
	return out
}
