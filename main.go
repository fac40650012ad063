package main

import (
	"flag"
	"log"
	"time"

	"net/http"
	_ "net/http/pprof"

	"github.com/faiface/mainthread"
	"github.com/go-gl/gl/v3.3-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/humboldt-xie/tinyterrain/terrain"
)

var (
	configPath   = flag.String("c", "", "terrain config file (yaml)")
	viewDistance = flag.Float64("r", 0, "view distance in world units, overrides the config")
	dbPath       = flag.String("db", "", "mesh cache file, overrides the config")
	previewPath  = flag.String("preview", "", "write a heightmap png of the start area and exit")
	pprofPort    = flag.String("pprof", "", "http pprof port")

	game *Game
)

func initGL(w, h int) *glfw.Window {
	err := glfw.Init()
	if err != nil {
		log.Fatal(err)
	}

	glfw.WindowHint(glfw.ContextVersionMajor, 3)
	glfw.WindowHint(glfw.ContextVersionMinor, 3)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, gl.TRUE)

	win, err := glfw.CreateWindow(w, h, "tinyterrain", nil, nil)
	if err != nil {
		log.Fatal(err)
	}
	win.MakeContextCurrent()
	err = gl.Init()
	if err != nil {
		log.Fatal(err)
	}
	glfw.SwapInterval(1) // enable vsync
	gl.Enable(gl.DEPTH_TEST)
	gl.Enable(gl.CULL_FACE)
	return win
}

type FPS struct {
	lastUpdate time.Time
	cnt        int
	fps        int
}

func (f *FPS) Update() {
	f.cnt++
	now := time.Now()
	p := now.Sub(f.lastUpdate)
	if p >= time.Second {
		f.fps = int(float64(f.cnt) / p.Seconds())
		f.cnt = 0
		f.lastUpdate = now
	}
}

func (f *FPS) Fps() int {
	return f.fps
}

func loadConfig() (terrain.Config, error) {
	cfg, err := terrain.LoadConfig(*configPath)
	if err != nil {
		return cfg, err
	}
	if *viewDistance > 0 {
		cfg.ViewDistance = *viewDistance
	}
	if *dbPath != "" {
		cfg.CachePath = *dbPath
	}
	return cfg, cfg.Validate()
}

func run() {
	cfg, err := loadConfig()
	if err != nil {
		log.Fatal(err)
	}

	if *previewPath != "" {
		start := time.Now()
		err = terrain.SavePreview(*previewPath, cfg, terrain.Coord{}, cfg.Radius(), 1024)
		if err != nil {
			log.Fatal(err)
		}
		log.Printf("preview %s spend %fs", *previewPath, float64(time.Since(start))/float64(time.Second))
		return
	}

	game, err = NewGame(800, 600, cfg)
	if err != nil {
		log.Panic(err)
	}
	defer game.Close()

	md := time.Second / 120
	d := md
	timer := time.NewTimer(d)
	for !game.ShouldClose() {
		<-timer.C
		start := time.Now()
		game.Update()
		d = md - time.Since(start)
		if d < 0 {
			d = 1
		}
		timer.Reset(d)
	}
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	flag.Parse()
	go func() {
		if *pprofPort != "" {
			log.Fatal(http.ListenAndServe(*pprofPort, nil))
		}
	}()
	mainthread.Run(run)
}
