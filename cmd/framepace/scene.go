package main

import (
	"log/slog"
	"math"
	"time"
)

// sceneRenderer animates a spinning triangle purely in memory. It stands
// in for a real GPU pipeline so the demo exercises pacing, counters, and
// acknowledgments without needing a display.
type sceneRenderer struct {
	logger *slog.Logger

	// RenderCost simulates the time a real draw call would take.
	renderCost time.Duration

	angle    float64 // degrees
	vertices [3][2]float64
	width    int32
	height   int32
	frames   uint64
}

// degreesPerSecond is the triangle's rotation speed.
const degreesPerSecond = 60.0

func newSceneRenderer(renderCost time.Duration, logger *slog.Logger) *sceneRenderer {
	return &sceneRenderer{logger: logger, renderCost: renderCost}
}

// DrawFrame advances the animation by the elapsed time and recomputes the
// triangle's screen-space vertices.
func (r *sceneRenderer) DrawFrame(width, height int32, delta time.Duration) error {
	r.width = width
	r.height = height
	r.angle = math.Mod(r.angle+degreesPerSecond*delta.Seconds(), 360)

	cx := float64(width) / 2
	cy := float64(height) / 2
	radius := math.Min(cx, cy) * 0.8

	for i := 0; i < 3; i++ {
		theta := (r.angle + float64(i)*120) * math.Pi / 180
		r.vertices[i][0] = cx + radius*math.Cos(theta)
		r.vertices[i][1] = cy + radius*math.Sin(theta)
	}

	if r.renderCost > 0 {
		time.Sleep(r.renderCost)
	}
	return nil
}

// Present makes the frame visible. The demo just counts it.
func (r *sceneRenderer) Present() error {
	r.frames++
	if r.frames%120 == 0 {
		r.logger.Debug("scene progress",
			"frames", r.frames,
			"angle", r.angle,
			"size", [2]int32{r.width, r.height})
	}
	return nil
}
