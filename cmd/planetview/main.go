// planetview is an interactive viewer for the terrain pipeline: it hosts
// the render proxies on raylib models, orbits a camera around the planet
// and shows streaming statistics.
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"runtime"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/go-gl/mathgl/mgl64"

	"planetgen/internal/planet"
	"planetgen/internal/profiling"
)

func init() {
	runtime.LockOSThread()
}

const (
	screenWidth  = 1280
	screenHeight = 720
)

// orbitObserver is the streaming reference point: a camera orbiting the
// planet center at yaw/pitch/distance.
type orbitObserver struct {
	center   mgl64.Vec3
	yaw      float64
	pitch    float64
	distance float64
	minDist  float64
	maxDist  float64
}

func (o *orbitObserver) Position() mgl64.Vec3 {
	cp := math.Cos(o.pitch)
	return o.center.Add(mgl64.Vec3{
		cp * math.Cos(o.yaw),
		math.Sin(o.pitch),
		cp * math.Sin(o.yaw),
	}.Mul(o.distance))
}

func (o *orbitObserver) handleInput() {
	if rl.IsMouseButtonDown(rl.MouseButtonLeft) {
		d := rl.GetMouseDelta()
		o.yaw += float64(d.X) * 0.005
		o.pitch += float64(d.Y) * 0.005
		limit := math.Pi/2 - 0.05
		if o.pitch > limit {
			o.pitch = limit
		}
		if o.pitch < -limit {
			o.pitch = -limit
		}
	}
	if wheel := rl.GetMouseWheelMove(); wheel != 0 {
		o.distance *= 1 - float64(wheel)*0.08
		if o.distance < o.minDist {
			o.distance = o.minDist
		}
		if o.distance > o.maxDist {
			o.distance = o.maxDist
		}
	}
}

func main() {
	radius := flag.Float64("radius", 2000, "planet radius in world units")
	seed := flag.Uint64("seed", 1337, "world seed")
	caves := flag.Bool("caves", false, "carve cave systems")
	flag.Parse()

	cfg := planet.DefaultConfig(*radius, *seed)
	// The density defaults are tuned for radius 50000; scale them so any
	// radius gets comparable relief.
	scale := *radius / 50000
	cfg.Density.Amplitude *= scale
	cfg.Density.Frequency /= scale
	cfg.Density.VoxelSize *= scale
	cfg.Density.CaveFrequency /= scale
	cfg.Density.EnableCaves = *caves

	rl.InitWindow(screenWidth, screenHeight, "planetview")
	defer rl.CloseWindow()
	rl.SetTargetFPS(60)

	host := newMeshHost()
	impostor := &impostorProxy{radius: float32(*radius)}

	p, err := planet.New(cfg, host, impostor)
	if err != nil {
		log.Fatalf("planetview: %v", err)
	}
	defer p.Shutdown()

	observer := &orbitObserver{
		distance: *radius * 1.6,
		minDist:  *radius * 1.02,
		maxDist:  *radius * 6,
	}

	// Warm the first chunk set so the planet is there on frame one.
	p.PrepareChunkSet(observer, 600)

	camera := rl.Camera3D{
		Up:         rl.NewVector3(0, 1, 0),
		Fovy:       60,
		Projection: rl.CameraPerspective,
	}

	wireframe := false
	showHUD := true
	lastStatsLog := time.Now()

	for !rl.WindowShouldClose() {
		profiling.ResetFrame()

		if rl.IsKeyPressed(rl.KeyF) {
			wireframe = !wireframe
		}
		if rl.IsKeyPressed(rl.KeyV) {
			showHUD = !showHUD
		}

		observer.handleInput()
		func() { defer profiling.Track("planet.Update")(); p.Update(observer) }()

		pos := observer.Position()
		camera.Position = rl.NewVector3(float32(pos[0]), float32(pos[1]), float32(pos[2]))
		camera.Target = rl.NewVector3(0, 0, 0)

		rl.BeginDrawing()
		rl.ClearBackground(rl.NewColor(8, 8, 20, 255))

		rl.BeginMode3D(camera)
		drawn := host.draw(wireframe)
		impostor.draw()
		rl.EndMode3D()

		if showHUD {
			s := p.Stats()
			rl.DrawFPS(10, 10)
			rl.DrawText(fmt.Sprintf("chunks drawn: %d  loaded: %d  generating: %d", drawn, s.Loaded, s.Generating), 10, 34, 18, rl.RayWhite)
			rl.DrawText(fmt.Sprintf("mesh memory: %.1f MB", float64(p.EstimateBytes())/(1024*1024)), 10, 56, 18, rl.RayWhite)
			rl.DrawText("hot: "+profiling.TopN(3), 10, 78, 18, rl.RayWhite)
			rl.DrawText("drag: orbit  wheel: zoom  F: wireframe  V: hud", 10, screenHeight-26, 18, rl.Gray)
		}

		rl.EndDrawing()

		if time.Since(lastStatsLog) > 10*time.Second {
			p.LogStats()
			lastStatsLog = time.Now()
		}
	}
}
