package main

import (
	"fmt"

	"github.com/faiface/mainthread"
	"github.com/go-gl/gl/v3.3-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/humboldt-xie/tinyterrain/render"
	"github.com/humboldt-xie/tinyterrain/terrain"
)

type Game struct {
	win *glfw.Window

	camera   *Camera
	lx, ly   float64
	prevtime float64

	terrainRender *render.TerrainRender
	streamer      *terrain.Streamer
	fps           FPS

	exclusiveMouse bool
	closed         bool
}

func NewGame(w, h int, cfg terrain.Config) (*Game, error) {
	var err error
	game := new(Game)

	mainthread.Call(func() {
		win := initGL(w, h)
		win.SetMouseButtonCallback(game.onMouseButtonCallback)
		win.SetCursorPosCallback(game.onCursorPosCallback)
		win.SetFramebufferSizeCallback(game.onFrameBufferSizeCallback)
		win.SetKeyCallback(game.onKeyCallback)
		game.win = win
	})
	game.terrainRender, err = render.NewTerrainRender(game.win, cfg)
	if err != nil {
		return nil, err
	}
	game.streamer, err = terrain.NewStreamer(cfg, game.terrainRender.Uploader())
	if err != nil {
		return nil, err
	}

	ground, err := cfg.HeightAt(0, 0)
	if err != nil {
		return nil, err
	}
	game.camera = NewCamera(mgl32.Vec3{0, float32(ground + cfg.HeightScale), 0})
	return game, nil
}

func (g *Game) setExclusiveMouse(exclusive bool) {
	if exclusive {
		g.win.SetInputMode(glfw.CursorMode, glfw.CursorDisabled)
	} else {
		g.win.SetInputMode(glfw.CursorMode, glfw.CursorNormal)
	}
	g.exclusiveMouse = exclusive
}

func (g *Game) onMouseButtonCallback(win *glfw.Window, button glfw.MouseButton, action glfw.Action, mod glfw.ModifierKey) {
	if !g.exclusiveMouse {
		g.setExclusiveMouse(true)
	}
}

func (g *Game) onFrameBufferSizeCallback(window *glfw.Window, width, height int) {
	gl.Viewport(0, 0, int32(width), int32(height))
}

func (g *Game) onCursorPosCallback(win *glfw.Window, xpos float64, ypos float64) {
	if !g.exclusiveMouse {
		return
	}
	if g.lx == 0 && g.ly == 0 {
		g.lx, g.ly = xpos, ypos
		return
	}
	dx, dy := xpos-g.lx, g.ly-ypos
	g.lx, g.ly = xpos, ypos
	g.camera.ChangeAngle(float32(dx), float32(dy))
}

func (g *Game) onKeyCallback(win *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	if action != glfw.Press {
		return
	}
	switch key {
	case glfw.KeyTab:
		g.camera.FlipFast()
	case glfw.KeyQ:
		g.win.SetShouldClose(true)
	}
}

func (g *Game) handleKeyInput(dt float64) {
	speed := float32(dt * 30)
	if g.win.GetKey(glfw.KeyEscape) == glfw.Press {
		g.setExclusiveMouse(false)
	}
	if g.win.GetKey(glfw.KeyW) == glfw.Press {
		g.camera.Move(MoveForward, speed)
	}
	if g.win.GetKey(glfw.KeyS) == glfw.Press {
		g.camera.Move(MoveBackward, speed)
	}
	if g.win.GetKey(glfw.KeyA) == glfw.Press {
		g.camera.Move(MoveLeft, speed)
	}
	if g.win.GetKey(glfw.KeyD) == glfw.Press {
		g.camera.Move(MoveRight, speed)
	}
	if g.win.GetKey(glfw.KeySpace) == glfw.Press {
		g.camera.Move(MoveUp, speed)
	}
	if g.win.GetKey(glfw.KeyLeftShift) == glfw.Press {
		g.camera.Move(MoveDown, speed)
	}
}

func (g *Game) ShouldClose() bool {
	return g.closed
}

func (g *Game) renderStat() {
	g.fps.Update()
	p := g.camera.Pos()
	cfg := g.streamer.Config()
	cid := terrain.CoordOf(p, cfg.ChunkExtent())
	stat := g.terrainRender.Stat()
	sstat := g.streamer.Stat()
	title := fmt.Sprintf("[%.2f %.2f %.2f] %v [%d/%d %d] pending %d evicted %d fps %d", p.X(), p.Y(), p.Z(),
		cid, stat.RendingChunks, stat.CacheChunks, stat.Indices/3, sstat.PendingTasks, sstat.Evicted, g.fps.Fps())
	g.win.SetTitle(title)
}

func (g *Game) Update() {
	mainthread.Call(func() {
		var dt float64
		now := glfw.GetTime()
		dt = now - g.prevtime
		g.prevtime = now
		if dt > 0.05 {
			dt = 0.05
		}

		g.handleKeyInput(dt)

		g.streamer.OnFrameTick(g.camera.Pos())
		g.streamer.DrainCompletions()

		gl.ClearColor(0.57, 0.71, 0.77, 1)
		gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)

		g.terrainRender.Draw(g.camera.Matrix(), g.camera.Pos(), g.streamer.ActiveChunks())
		g.renderStat()

		g.win.SwapBuffers()
		glfw.PollEvents()
		g.closed = g.win.ShouldClose()
	})
}

// Close stops generation and frees the chunk buffers on the GL thread.
func (g *Game) Close() error {
	var err error
	mainthread.Call(func() {
		err = g.streamer.Close()
		g.win.Destroy()
		glfw.Terminate()
	})
	return err
}
