// Package streaming decides which chunks exist, generates them on a
// worker pool, and drives each through its lifecycle. One goroutine owns
// the controller; workers only ever receive immutable job values and send
// results back over a channel drained by Update.
package streaming

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/go-gl/mathgl/mgl64"

	"planetgen/internal/chunk"
	"planetgen/internal/mesher"
	"planetgen/internal/profiling"
	"planetgen/internal/render"
)

// LODEntry maps an observer distance bound to a voxel resolution. Entries
// are ordered by ascending Distance; the first entry whose Distance
// exceeds the chunk distance wins.
type LODEntry struct {
	Distance   float64
	Resolution int
}

// Config tunes the controller. Zero values are rejected by Validate.
type Config struct {
	// LODs is the ascending distance table. The last entry's distance is
	// the chunk render distance; cells beyond it are unloaded.
	LODs []LODEntry

	// HysteresisFactor widens the downgrade band: a chunk drops to a
	// coarser LOD only when its distance exceeds the current threshold
	// times this factor. Must be greater than 1.
	HysteresisFactor float64

	// CollisionDistance enables collision on proxies closer than this.
	// Zero disables collision entirely.
	CollisionDistance float64

	// ImpostorDistance: the whole-planet impostor shows when the observer
	// is farther than this from the planet center. GridDistance: chunks
	// spawn only when the observer is closer than this. ImpostorDistance
	// below GridDistance leaves an overlap band where both are visible,
	// hiding the swap.
	ImpostorDistance float64
	GridDistance     float64

	// SpawnBudget and UploadBudget bound per-update work. MaxConcurrent
	// caps in-flight generation jobs.
	SpawnBudget   int
	UploadBudget  int
	MaxConcurrent int

	// Workers is the generation goroutine count.
	Workers int

	// Mesher is the per-chunk extraction config; Resolution is overridden
	// per LOD.
	Mesher mesher.Config
}

// DefaultConfig mirrors the streaming defaults the system was tuned with.
func DefaultConfig(planetRadius float64) Config {
	return Config{
		LODs: []LODEntry{
			{Distance: planetRadius * 0.25, Resolution: 32},
			{Distance: planetRadius * 0.75, Resolution: 16},
			{Distance: planetRadius * 2.0, Resolution: 8},
		},
		HysteresisFactor:  1.15,
		CollisionDistance: planetRadius * 0.1,
		ImpostorDistance:  planetRadius * 2.5,
		GridDistance:      planetRadius * 3.0,
		SpawnBudget:       8,
		UploadBudget:      8,
		MaxConcurrent:     32,
		Workers:           4,
		Mesher:            mesher.DefaultConfig(),
	}
}

// Validate reports the first invalid parameter.
func (c Config) Validate() error {
	if len(c.LODs) == 0 {
		return fmt.Errorf("streaming config: LOD table is empty")
	}
	prev := 0.0
	for i, e := range c.LODs {
		if e.Distance <= prev {
			return fmt.Errorf("streaming config: LOD distances must be strictly ascending, entry %d has %g after %g", i, e.Distance, prev)
		}
		if e.Resolution < 2 {
			return fmt.Errorf("streaming config: LOD %d resolution %d below 2", i, e.Resolution)
		}
		prev = e.Distance
	}
	if c.HysteresisFactor <= 1.0 {
		return fmt.Errorf("streaming config: hysteresis factor must exceed 1.0, got %g", c.HysteresisFactor)
	}
	if c.SpawnBudget < 1 || c.UploadBudget < 1 {
		return fmt.Errorf("streaming config: budgets must be at least 1 (spawn %d, upload %d)", c.SpawnBudget, c.UploadBudget)
	}
	if c.MaxConcurrent < 1 {
		return fmt.Errorf("streaming config: concurrency cap must be at least 1, got %d", c.MaxConcurrent)
	}
	if c.Workers < 1 {
		return fmt.Errorf("streaming config: worker count must be at least 1, got %d", c.Workers)
	}
	if c.ImpostorDistance > 0 && c.GridDistance > 0 && c.ImpostorDistance >= c.GridDistance {
		return fmt.Errorf("streaming config: impostor distance %g must stay below grid distance %g for the overlap band", c.ImpostorDistance, c.GridDistance)
	}
	if err := c.Mesher.Validate(); err != nil {
		return err
	}
	return nil
}

// Stats are cumulative controller counters.
type Stats struct {
	ChunksCreated   int
	ChunksDestroyed int
	MeshesUploaded  int
	StaleDropped    int
	PanicsRecovered int
	Generating      int
	Visible         int
	Loaded          int
}

// cellKey addresses a face grid cell independent of LOD.
type cellKey struct {
	Face uint8
	X, Y int32
}

// descriptor is one precomputed spawnable cell.
type descriptor struct {
	key    cellKey
	origin mgl64.Vec3
}

type job struct {
	id           chunk.ID
	generationID uint32
	transform    chunk.Transform
	cfg          mesher.Config
}

type result struct {
	id           chunk.ID
	generationID uint32
	mesh         *chunk.MeshData
	err          error
}

// Controller owns the chunk set. All exported methods must be called from
// one goroutine.
type Controller struct {
	cfg      Config
	field    mesher.Field
	params   chunk.PlanetParams
	provider render.ProxyProvider

	// impostor is the optional whole-planet stand-in proxy.
	impostor        render.Proxy
	impostorVisible bool

	chunks      map[chunk.ID]*chunk.Chunk
	active      map[cellKey]chunk.ID // pipeline or visible chunk per cell
	descriptors []descriptor

	spawnQueue  []chunk.ID
	uploadQueue []chunk.ID

	jobs     chan job
	results  chan result
	inFlight int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	stats Stats
}

// New validates the config, precomputes the cell descriptor list and
// starts the worker pool.
func New(cfg Config, field mesher.Field, params chunk.PlanetParams, provider render.ProxyProvider, impostor render.Proxy) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if params.ChunksPerFace < 1 {
		return nil, fmt.Errorf("streaming: chunks per face must be at least 1, got %d", params.ChunksPerFace)
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		cfg:      cfg,
		field:    field,
		params:   params,
		provider: provider,
		impostor: impostor,
		chunks:   make(map[chunk.ID]*chunk.Chunk),
		active:   make(map[cellKey]chunk.ID),
		jobs:     make(chan job, cfg.MaxConcurrent),
		results:  make(chan result, cfg.MaxConcurrent),
		ctx:      ctx,
		cancel:   cancel,
	}

	n := params.ChunksPerFace
	c.descriptors = make([]descriptor, 0, 6*int(n)*int(n))
	for face := uint8(0); face < 6; face++ {
		for y := int32(0); y < n; y++ {
			for x := int32(0); x < n; x++ {
				id := chunk.ID{Face: face, X: x, Y: y}
				tr := chunk.NewTransform(id, params)
				c.descriptors = append(c.descriptors, descriptor{
					key:    cellKey{Face: face, X: x, Y: y},
					origin: tr.Origin,
				})
			}
		}
	}

	for i := 0; i < cfg.Workers; i++ {
		c.wg.Add(1)
		go c.worker()
	}
	return c, nil
}

func (c *Controller) worker() {
	defer c.wg.Done()
	for {
		select {
		case j, ok := <-c.jobs:
			if !ok {
				return
			}
			res := c.runJob(j)
			select {
			case c.results <- res:
			case <-c.ctx.Done():
				return
			}
		case <-c.ctx.Done():
			return
		}
	}
}

// runJob generates one chunk mesh, converting worker panics into errors
// so a bad chunk never takes the pool down.
func (c *Controller) runJob(j job) (res result) {
	res = result{id: j.id, generationID: j.generationID}
	defer func() {
		if r := recover(); r != nil {
			res.mesh = nil
			res.err = fmt.Errorf("generation panic for %s: %v", j.id, r)
		}
	}()
	mesh, err := mesher.Generate(c.field, j.transform, c.params, j.cfg)
	res.mesh = mesh
	res.err = err
	return res
}

// Update runs one streaming tick: drain worker results, reconcile the
// desired chunk set, spawn and upload within budgets, unload what fell
// out of range.
func (c *Controller) Update(observer render.Observer) {
	defer profiling.Track("streaming.Update")()

	pos := observer.Position()
	c.drainResults()
	c.updateImpostor(pos)
	desired := c.reconcile(pos)
	c.spawn(pos, desired)
	c.upload(pos)
	c.refreshCollision(pos)
	c.unload(desired)
}

// refreshCollision keeps proxy collision flags in step with the moving
// observer.
func (c *Controller) refreshCollision(pos mgl64.Vec3) {
	if c.cfg.CollisionDistance <= 0 {
		return
	}
	for _, ch := range c.chunks {
		if ch.State != chunk.StateVisible {
			continue
		}
		if p, ok := ch.Proxy.(render.Proxy); ok && p != nil {
			p.SetCollisionEnabled(pos.Sub(ch.Transform.Origin).Len() <= c.cfg.CollisionDistance)
		}
	}
}

func (c *Controller) drainResults() {
	for {
		select {
		case res := <-c.results:
			c.inFlight--
			c.applyResult(res)
		default:
			return
		}
	}
}

func (c *Controller) applyResult(res result) {
	ch, ok := c.chunks[res.id]
	if !ok || ch.GenerationID != res.generationID || ch.State != chunk.StateGenerating {
		// Superseded request; the chunk moved on without this result.
		c.stats.StaleDropped++
		return
	}
	if res.err != nil {
		c.stats.PanicsRecovered++
		log.Printf("streaming: generation failed for %s: %v", res.id, res.err)
		ch.TransitionTo(chunk.StateUnloaded)
		c.forget(ch)
		return
	}
	ch.SetMesh(res.mesh)
	ch.TransitionTo(chunk.StateReady)
	c.uploadQueue = append(c.uploadQueue, res.id)
}

func (c *Controller) updateImpostor(pos mgl64.Vec3) {
	if c.impostor == nil || c.cfg.ImpostorDistance <= 0 {
		return
	}
	show := pos.Sub(c.params.Center).Len() > c.cfg.ImpostorDistance
	if show != c.impostorVisible {
		c.impostor.SetVisible(show)
		c.impostorVisible = show
	}
}

// lodFor returns the raw LOD for a distance, or -1 beyond the table.
func (c *Controller) lodFor(dist float64) int {
	for i, e := range c.cfg.LODs {
		if dist <= e.Distance {
			return i
		}
	}
	return -1
}

// desiredLOD applies hysteresis around the raw thresholds given the LOD
// the cell currently runs at (-1 when none).
func (c *Controller) desiredLOD(dist float64, current int) int {
	raw := c.lodFor(dist)
	if current < 0 {
		return raw
	}
	if raw == current {
		return current
	}
	if raw >= 0 && raw < current {
		// Finer LOD wanted; raw crossing is enough to upgrade.
		return raw
	}
	// Coarser (or out of range): hold the current LOD until the distance
	// clears the widened band.
	if dist > c.cfg.LODs[current].Distance*c.cfg.HysteresisFactor {
		return raw
	}
	return current
}

// reconcile computes the desired chunk set and fills the spawn queue with
// cells that need work.
func (c *Controller) reconcile(pos mgl64.Vec3) map[chunk.ID]bool {
	desired := make(map[chunk.ID]bool)

	if c.cfg.GridDistance > 0 && pos.Sub(c.params.Center).Len() > c.cfg.GridDistance {
		return desired
	}

	c.spawnQueue = c.spawnQueue[:0]
	for _, d := range c.descriptors {
		dist := pos.Sub(d.origin).Len()

		current := -1
		if activeID, ok := c.active[d.key]; ok {
			current = int(activeID.LOD)
		}

		lod := c.desiredLOD(dist, current)
		if lod < 0 {
			continue
		}

		id := chunk.ID{Face: d.key.Face, X: d.key.X, Y: d.key.Y, LOD: int32(lod)}
		desired[id] = true

		if ch, ok := c.chunks[id]; ok && ch.State != chunk.StateUnloaded {
			continue // already in the pipeline at the right LOD
		}
		c.spawnQueue = append(c.spawnQueue, id)
	}
	return desired
}

// pendingReplacement reports whether another LOD of the same cell is
// desired but not yet on screen. A visible chunk holds on until its
// replacement is, so LOD swaps never leave a hole.
func (c *Controller) pendingReplacement(id chunk.ID, desired map[chunk.ID]bool) bool {
	for lod := range c.cfg.LODs {
		rid := chunk.ID{Face: id.Face, X: id.X, Y: id.Y, LOD: int32(lod)}
		if rid == id || !desired[rid] {
			continue
		}
		rc, ok := c.chunks[rid]
		if !ok || rc.State != chunk.StateVisible {
			return true
		}
	}
	return false
}

// spawn starts generation for queued cells, bounded by the per-tick spawn
// budget and the in-flight cap. Distances are re-validated at submit time
// because the queue may outlive the observer position it was built from.
func (c *Controller) spawn(pos mgl64.Vec3, desired map[chunk.ID]bool) {
	spawned := 0
	for _, id := range c.spawnQueue {
		if spawned >= c.cfg.SpawnBudget || c.inFlight >= c.cfg.MaxConcurrent {
			return
		}
		if !desired[id] {
			continue
		}

		tr := chunk.NewTransform(id, c.params)
		if dist := pos.Sub(tr.Origin).Len(); c.lodFor(dist) < 0 {
			continue
		}

		ch, ok := c.chunks[id]
		if !ok {
			ch = chunk.New(id, tr)
			c.chunks[id] = ch
			c.stats.ChunksCreated++
		}
		if ch.State != chunk.StateUnloaded {
			continue
		}

		if !ch.TransitionTo(chunk.StateRequested) {
			continue
		}
		ch.GenerationID++

		mcfg := c.cfg.Mesher
		mcfg.Resolution = c.cfg.LODs[id.LOD].Resolution

		j := job{id: id, generationID: ch.GenerationID, transform: tr, cfg: mcfg}
		select {
		case c.jobs <- j:
			ch.TransitionTo(chunk.StateGenerating)
			c.inFlight++
			c.active[cellKey{Face: id.Face, X: id.X, Y: id.Y}] = id
			spawned++
		default:
			// Queue full; roll back and retry next tick.
			ch.TransitionTo(chunk.StateUnloaded)
		}
	}
}

// upload attaches proxies for ready chunks, bounded by the upload budget.
func (c *Controller) upload(pos mgl64.Vec3) {
	uploaded := 0
	for len(c.uploadQueue) > 0 && uploaded < c.cfg.UploadBudget {
		id := c.uploadQueue[0]
		c.uploadQueue = c.uploadQueue[1:]

		ch, ok := c.chunks[id]
		if !ok || !ch.IsReadyForRendering() {
			continue
		}

		proxy, err := c.provider.AcquireProxy(id)
		if err != nil {
			log.Printf("streaming: proxy acquisition failed for %s: %v", id, err)
			continue
		}
		if err := proxy.UploadMesh(ch.Mesh, ch.Transform.Origin); err != nil {
			log.Printf("streaming: mesh upload failed for %s: %v", id, err)
			proxy.Release()
			continue
		}
		proxy.SetVisible(true)
		dist := pos.Sub(ch.Transform.Origin).Len()
		proxy.SetCollisionEnabled(c.cfg.CollisionDistance > 0 && dist <= c.cfg.CollisionDistance)

		ch.Proxy = proxy
		ch.TransitionTo(chunk.StateVisible)
		c.stats.MeshesUploaded++
		uploaded++

		// The fresh LOD is on screen; anything older in this cell can go.
		c.active[cellKey{Face: id.Face, X: id.X, Y: id.Y}] = id
	}
}

// unload retires chunks that are no longer desired.
func (c *Controller) unload(desired map[chunk.ID]bool) {
	for id, ch := range c.chunks {
		if desired[id] {
			continue
		}

		switch ch.State {
		case chunk.StateRequested:
			ch.TransitionTo(chunk.StateUnloaded)
			c.forget(ch)
		case chunk.StateGenerating:
			// Cancel: invalidate the in-flight result and drop the slot.
			ch.GenerationID++
			ch.TransitionTo(chunk.StateUnloaded)
			c.forget(ch)
		case chunk.StateReady:
			ch.TransitionTo(chunk.StateUnloading)
			c.release(ch)
		case chunk.StateVisible:
			if c.pendingReplacement(id, desired) {
				continue
			}
			ch.TransitionTo(chunk.StateUnloading)
			c.release(ch)
		}
	}
}

// release frees the proxy and completes the Unloading -> Unloaded step.
func (c *Controller) release(ch *chunk.Chunk) {
	if p, ok := ch.Proxy.(render.Proxy); ok && p != nil {
		p.SetVisible(false)
		p.Release()
	}
	ch.Proxy = nil
	ch.ClearMesh()
	ch.TransitionTo(chunk.StateUnloaded)
	c.forget(ch)
}

// forget removes an unloaded chunk from the maps.
func (c *Controller) forget(ch *chunk.Chunk) {
	delete(c.chunks, ch.ID)
	key := cellKey{Face: ch.ID.Face, X: ch.ID.X, Y: ch.ID.Y}
	if c.active[key] == ch.ID {
		delete(c.active, key)
	}
	c.stats.ChunksDestroyed++
}

// Stats returns a snapshot of the counters plus live gauges.
func (c *Controller) Stats() Stats {
	s := c.stats
	s.Generating = c.inFlight
	for _, ch := range c.chunks {
		if ch.State == chunk.StateVisible {
			s.Visible++
		}
		if ch.IsLoaded() {
			s.Loaded++
		}
	}
	return s
}

// LogStats prints a one-line summary of the controller state.
func (c *Controller) LogStats() {
	s := c.Stats()
	log.Printf("streaming: loaded=%d visible=%d generating=%d created=%d destroyed=%d uploaded=%d stale=%d panics=%d",
		s.Loaded, s.Visible, s.Generating, s.ChunksCreated, s.ChunksDestroyed, s.MeshesUploaded, s.StaleDropped, s.PanicsRecovered)
}

// EstimateBytes sums the memory held by loaded chunks.
func (c *Controller) EstimateBytes() int {
	total := 0
	for _, ch := range c.chunks {
		total += ch.EstimateBytes()
	}
	return total
}

// Shutdown stops the workers and releases every proxy. The controller
// must not be used afterwards.
func (c *Controller) Shutdown() {
	c.cancel()
	c.wg.Wait()

	for _, ch := range c.chunks {
		if p, ok := ch.Proxy.(render.Proxy); ok && p != nil {
			p.SetVisible(false)
			p.Release()
		}
		ch.Proxy = nil
	}
	c.chunks = make(map[chunk.ID]*chunk.Chunk)
	c.active = make(map[cellKey]chunk.ID)

	if c.impostor != nil && c.impostorVisible {
		c.impostor.SetVisible(false)
		c.impostorVisible = false
	}
}
