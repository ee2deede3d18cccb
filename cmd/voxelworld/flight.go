package main

import (
	"context"
	"fmt"
	"log/slog"

	"voxelworld/internal/engine"
	"voxelworld/internal/physics"
	"voxelworld/internal/world"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	cruiseHeight = 3.5 // above the ground, inside dig reach
	eyeHalfWidth = 0.3
	eyeHeight    = 1.8
)

// flightPlan drives the focus point along +X over the terrain.
type flightPlan struct {
	Frames   int
	Speed    float32 // blocks per second
	Dt       float64
	DigEvery int // frames between digs, 0 disables digging
}

var lookAhead = mgl32.Vec3{1, -0.35, 0}

func camera(eye mgl32.Vec3) mgl32.Mat4 {
	proj := mgl32.Perspective(mgl32.DegToRad(70), 16.0/9.0, 0.1, 1000)
	return proj.Mul4(mgl32.LookAtV(eye, eye.Add(lookAhead), mgl32.Vec3{0, 1, 0}))
}

// settle puts the focus at cruise height above the ground under it and
// nudges it up out of any terrain.
func settle(eng *engine.Engine, focus mgl32.Vec3) mgl32.Vec3 {
	if g, ok := physics.GroundLevel(focus.X(), focus.Z(), eyeHalfWidth, world.WorldHeight-1, eng); ok {
		focus[1] = g + cruiseHeight
	}
	for physics.Collides(focus, eyeHalfWidth, eyeHeight, eng) && focus.Y() < world.WorldHeight {
		focus[1]++
	}
	return focus
}

// dig breaks the block under the focus and drops sand into the hole, so the
// edit journal, remeshing and the falling-block simulation all see traffic.
func dig(eng *engine.Engine, focus mgl32.Vec3) (bool, error) {
	hit := eng.Raycast(focus, mgl32.Vec3{0, -1, 0})
	if !hit.Hit {
		return false, nil
	}
	x, y, z := hit.HitPosition[0], hit.HitPosition[1], hit.HitPosition[2]
	if !world.Props(eng.GetVoxel(x, y, z)).Breakable {
		return false, nil
	}
	if err := eng.SetVoxel(x, y, z, world.BlockTypeAir); err != nil {
		return false, fmt.Errorf("dig (%d,%d,%d): %w", x, y, z, err)
	}
	if eng.IsAir(x, y+2, z) {
		if err := eng.SetVoxel(x, y+2, z, world.BlockTypeSand); err != nil {
			return true, fmt.Errorf("drop sand (%d,%d,%d): %w", x, y+2, z, err)
		}
	}
	return true, nil
}

func fly(ctx context.Context, eng *engine.Engine, plan flightPlan, log *slog.Logger) error {
	focus := mgl32.Vec3{0.5, world.WorldHeight - 1, 0.5}
	// First frame streams the spawn area so the ground can be found
	if _, err := eng.Update(focus, camera(focus), 0); err != nil {
		return err
	}
	focus = settle(eng, focus)
	log.Info("spawned", "x", focus.X(), "y", focus.Y(), "z", focus.Z())

	digs := 0
	for i := 1; i <= plan.Frames; i++ {
		select {
		case <-ctx.Done():
			log.Info("flight interrupted", "frame", i)
			return nil
		default:
		}

		focus[0] += plan.Speed * float32(plan.Dt)
		focus = settle(eng, focus)
		stats, err := eng.Update(focus, camera(focus), plan.Dt)
		if err != nil {
			return err
		}

		if plan.DigEvery > 0 && i%plan.DigEvery == 0 {
			ok, err := dig(eng, focus)
			if err != nil {
				return err
			}
			if ok {
				digs++
			}
		}

		log.Debug("frame",
			"frame", stats.Frame,
			"loaded", stats.Stream.Loaded,
			"unloaded", stats.Stream.Unloaded,
			"meshed", stats.Stream.Meshed,
			"pending", stats.Stream.Pending,
			"visible", stats.Visible,
			"visited", stats.Visited,
			"fallers", stats.LiveFallers,
			"duration", stats.Duration)
		if i%60 == 0 {
			log.Info("progress", "frame", i, "x", focus.X(), "columns", eng.Store().Len(), "visible", stats.Visible, "digs", digs)
		}
	}
	log.Info("flight finished", "frames", plan.Frames, "digs", digs)
	return nil
}
