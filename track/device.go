/*
DESCRIPTION
  device.go provides the narrow external-collaborator interfaces the
  core consumes: a frame source, a pattern source, an overlay sink, and
  the per-frame variant transform — small interfaces plus a lifecycle
  contract that the orchestrator depends on but never implements.

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

	"github.com/ausocean/artrack/vision"
)

// Frame is a single decoded RGBA video frame, as produced by a
// FrameSource or PatternSource. Width/height may change between
// frames; the pipeline resizes scratch buffers lazily when they do.
type Frame struct {
	Width, Height int
	RGBA          []byte
}

// FrameSource supplies the live video frame stream. Camera capture and
// frame decoding are external collaborators, out of the core's scope —
// FrameSource is the narrow contract the core consumes instead.
type FrameSource interface {
	NextFrame(ctx context.Context) (Frame, error)
}

// PatternSource supplies the reference pattern image, consumed once
// during initialization.
type PatternSource interface {
	LoadPattern(ctx context.Context) (Frame, error)
}

// OverlaySink receives the pipeline's per-frame output: either a quad
// to render, or nil to hide the overlay. It is also told when the
// pipeline re-enters Detecting so it can pause overlay playback.
type OverlaySink interface {
	EmitQuad(quad *vision.Quad)
	EnterDetecting()
}

// VariantTransform is the normalized offset/scale transform applied to
// the pattern's corner rectangle before homography projection. Z
// components are unused by the core and passed through unexamined for
// the embedder's own use.
type VariantTransform struct {
	Offset [3]float64
	Scale  [3]float64
}
