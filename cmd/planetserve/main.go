// planetserve is a debug mesh-streaming server: it runs the terrain
// pipeline headless and pushes chunk meshes to websocket clients as JSON.
// Clients steer streaming by sending observer positions back.
package main

import (
	"flag"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/gorilla/websocket"

	"planetgen/internal/chunk"
	"planetgen/internal/planet"
	"planetgen/internal/render"
)

type chunkMessage struct {
	Type      string     `json:"type"`
	Face      uint8      `json:"face"`
	X         int32      `json:"x"`
	Y         int32      `json:"y"`
	LOD       int32      `json:"lod"`
	Origin    [3]float64 `json:"origin"`
	Positions []float32  `json:"positions,omitempty"`
	Normals   []float32  `json:"normals,omitempty"`
	Indices   []uint32   `json:"indices,omitempty"`
}

type impostorMessage struct {
	Type    string  `json:"type"`
	Visible bool    `json:"visible"`
	Radius  float64 `json:"radius"`
}

type clientMessage struct {
	Observer *[3]float64 `json:"observer,omitempty"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// server hosts the render proxies and the websocket clients. The tick
// goroutine owns the planet; the clients map is shared with the HTTP
// handlers and locked accordingly.
type server struct {
	planet *planet.Planet
	radius float64

	clientsMu sync.RWMutex
	clients   map[*websocket.Conn]*sync.Mutex

	proxiesMu sync.Mutex
	proxies   map[chunk.ID]*wsProxy

	observerMu sync.Mutex
	observer   mgl64.Vec3

	impostorVisible bool
}

func (s *server) Position() mgl64.Vec3 {
	s.observerMu.Lock()
	defer s.observerMu.Unlock()
	return s.observer
}

func (s *server) AcquireProxy(id chunk.ID) (render.Proxy, error) {
	p := &wsProxy{server: s, id: id}
	s.proxiesMu.Lock()
	s.proxies[id] = p
	s.proxiesMu.Unlock()
	return p, nil
}

// wsProxy broadcasts its mesh on upload and a removal note on release.
type wsProxy struct {
	server  *server
	id      chunk.ID
	msg     chunkMessage
	visible bool
}

func (p *wsProxy) UploadMesh(m *chunk.MeshData, worldOffset mgl64.Vec3) error {
	msg := chunkMessage{
		Type:   "chunk",
		Face:   p.id.Face,
		X:      p.id.X,
		Y:      p.id.Y,
		LOD:    p.id.LOD,
		Origin: [3]float64{worldOffset[0], worldOffset[1], worldOffset[2]},
	}
	if m != nil {
		msg.Positions = make([]float32, 0, len(m.Positions)*3)
		msg.Normals = make([]float32, 0, len(m.Normals)*3)
		for i := range m.Positions {
			msg.Positions = append(msg.Positions, m.Positions[i][0], m.Positions[i][1], m.Positions[i][2])
			msg.Normals = append(msg.Normals, m.Normals[i][0], m.Normals[i][1], m.Normals[i][2])
		}
		msg.Indices = append(msg.Indices, m.Indices...)
	}
	// Snapshot replay reads these from HTTP goroutines.
	p.server.proxiesMu.Lock()
	p.msg = msg
	p.server.proxiesMu.Unlock()

	p.server.broadcast(msg)
	return nil
}

func (p *wsProxy) SetVisible(v bool) {
	p.server.proxiesMu.Lock()
	p.visible = v
	p.server.proxiesMu.Unlock()
}

func (p *wsProxy) SetCollisionEnabled(bool) {}

func (p *wsProxy) Release() {
	s := p.server
	s.proxiesMu.Lock()
	delete(s.proxies, p.id)
	s.proxiesMu.Unlock()
	s.broadcast(chunkMessage{
		Type: "chunk_removed",
		Face: p.id.Face,
		X:    p.id.X,
		Y:    p.id.Y,
		LOD:  p.id.LOD,
	})
}

// impostorRelay forwards impostor visibility to all clients.
type impostorRelay struct {
	server *server
}

func (r *impostorRelay) UploadMesh(*chunk.MeshData, mgl64.Vec3) error { return nil }
func (r *impostorRelay) SetCollisionEnabled(bool)                    {}
func (r *impostorRelay) Release()                                    {}

func (r *impostorRelay) SetVisible(v bool) {
	r.server.proxiesMu.Lock()
	r.server.impostorVisible = v
	r.server.proxiesMu.Unlock()
	r.server.broadcast(impostorMessage{Type: "impostor", Visible: v, Radius: r.server.radius})
}

func (s *server) broadcast(msg any) {
	s.clientsMu.RLock()
	var failed []*websocket.Conn
	for conn, mu := range s.clients {
		mu.Lock()
		err := conn.WriteJSON(msg)
		mu.Unlock()
		if err != nil {
			log.Printf("planetserve: write failed: %v", err)
			conn.Close()
			failed = append(failed, conn)
		}
	}
	s.clientsMu.RUnlock()

	if len(failed) > 0 {
		s.clientsMu.Lock()
		for _, conn := range failed {
			delete(s.clients, conn)
		}
		s.clientsMu.Unlock()
	}
}

func (s *server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("planetserve: upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	connMu := &sync.Mutex{}
	s.clientsMu.Lock()
	s.clients[conn] = connMu
	s.clientsMu.Unlock()
	defer func() {
		s.clientsMu.Lock()
		delete(s.clients, conn)
		s.clientsMu.Unlock()
	}()

	s.sendSnapshot(conn, connMu)

	for {
		var msg clientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			log.Printf("planetserve: read failed: %v", err)
			return
		}
		if msg.Observer != nil {
			s.observerMu.Lock()
			s.observer = mgl64.Vec3{msg.Observer[0], msg.Observer[1], msg.Observer[2]}
			s.observerMu.Unlock()
		}
	}
}

// sendSnapshot replays the current chunk set to a new client.
func (s *server) sendSnapshot(conn *websocket.Conn, connMu *sync.Mutex) {
	s.proxiesMu.Lock()
	msgs := make([]chunkMessage, 0, len(s.proxies))
	for _, p := range s.proxies {
		if p.visible && p.msg.Type != "" {
			msgs = append(msgs, p.msg)
		}
	}
	impostor := impostorMessage{Type: "impostor", Visible: s.impostorVisible, Radius: s.radius}
	s.proxiesMu.Unlock()

	connMu.Lock()
	defer connMu.Unlock()
	if err := conn.WriteJSON(impostor); err != nil {
		return
	}
	for _, msg := range msgs {
		if err := conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

func (s *server) tickLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	lastLog := time.Now()
	for range ticker.C {
		s.planet.Update(s)
		if time.Since(lastLog) > 10*time.Second {
			s.planet.LogStats()
			lastLog = time.Now()
		}
	}
}

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	radius := flag.Float64("radius", 2000, "planet radius in world units")
	seed := flag.Uint64("seed", 1337, "world seed")
	tick := flag.Duration("tick", 100*time.Millisecond, "streaming tick interval")
	flag.Parse()

	cfg := planet.DefaultConfig(*radius, *seed)
	scale := *radius / 50000
	cfg.Density.Amplitude *= scale
	cfg.Density.Frequency /= scale
	cfg.Density.VoxelSize *= scale
	cfg.Density.CaveFrequency /= scale

	s := &server{
		radius:   *radius,
		clients:  make(map[*websocket.Conn]*sync.Mutex),
		proxies:  make(map[chunk.ID]*wsProxy),
		observer: mgl64.Vec3{*radius * 1.5, 0, 0},
	}

	p, err := planet.New(cfg, s, &impostorRelay{server: s})
	if err != nil {
		log.Fatalf("planetserve: %v", err)
	}
	s.planet = p
	defer p.Shutdown()

	go s.tickLoop(*tick)

	http.HandleFunc("/ws", s.handleWebSocket)
	log.Printf("planetserve: listening on %s (radius %g, seed %d)", *addr, *radius, *seed)
	log.Fatal(http.ListenAndServe(*addr, nil))
}
