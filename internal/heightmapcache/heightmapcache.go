// Package heightmapcache resolves a patch's scaled position template
// against the external heightmap sampler and materials store, de-duplicating
// concurrent requests for the same patch the way an in-flight tile fetch
// cache de-duplicates concurrent tile downloads.
package heightmapcache

import (
	"context"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/aresrpg/voxel-lod-mesher/internal/async"
	"github.com/aresrpg/voxel-lod-mesher/internal/heightmap"
	"github.com/aresrpg/voxel-lod-mesher/internal/materials"
	"github.com/aresrpg/voxel-lod-mesher/internal/tilegeom"
	"github.com/aresrpg/voxel-lod-mesher/pkg/patchid"
)

// Entry is a patch's resolved geometry inputs: world-space positions (the
// template scaled and translated to the patch's world box, with altitudes
// baked into Y) and per-vertex colours resolved from the materials store.
type Entry struct {
	Positions []float32
	Colors    []float32
}

const (
	maxAttempts  = 3
	retryBackoff = 50 * time.Millisecond
)

// Cache resolves patch ids to Entry values, retrying transient sampler
// failures and sharing in-flight work across concurrent callers asking
// for the same patch.
type Cache struct {
	store         *tilegeom.Store
	sampler       heightmap.Sampler
	materials     materials.Store
	basePatchSize int
	logger        *zap.Logger

	mu    sync.Mutex
	tasks *lru.Cache[string, *async.Task[*Entry]]
}

// New builds a Cache bounded to maxEntries in-flight/resolved patches.
func New(store *tilegeom.Store, sampler heightmap.Sampler, mats materials.Store, basePatchSize int, logger *zap.Logger, maxEntries int) (*Cache, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	tasks, err := lru.New[string, *async.Task[*Entry]](maxEntries)
	if err != nil {
		return nil, fmt.Errorf("heightmapcache: building task cache: %w", err)
	}
	return &Cache{
		store:         store,
		sampler:       sampler,
		materials:     mats,
		basePatchSize: basePatchSize,
		logger:        logger,
		tasks:         tasks,
	}, nil
}

// Resolve returns id's resolved geometry inputs, starting the resolution
// job the first time it's asked for and sharing the same in-flight task
// with any other concurrent caller asking for the same id.
func (c *Cache) Resolve(ctx context.Context, id patchid.ID) (*Entry, error) {
	key := id.Key()

	c.mu.Lock()
	task, ok := c.tasks.Get(key)
	if !ok {
		task = async.NewTask(func(ctx context.Context) (*Entry, error) {
			return c.resolve(ctx, id)
		})
		c.tasks.Add(key, task)
	}
	c.mu.Unlock()

	return task.AwaitResult(ctx)
}

// Forget drops id's cached task, forcing the next Resolve to re-run.
func (c *Cache) Forget(id patchid.ID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tasks.Remove(id.Key())
}

func (c *Cache) resolve(ctx context.Context, id patchid.ID) (*Entry, error) {
	n := c.store.N()
	side := patchid.Side(c.basePatchSize, id.Level)
	step := side / float64(n)
	originX, originZ := id.Origin(c.basePatchSize)

	var samples []heightmap.Sample
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		samples, err = c.sampler.Sample(ctx, heightmap.Request{
			OriginX: originX,
			OriginZ: originZ,
			Step:    step,
			CountX:  n + 1,
			CountZ:  n + 1,
		})
		if err == nil {
			break
		}
		c.logger.Warn("heightmap sample failed, retrying",
			zap.String("patch", id.Key()),
			zap.Int("attempt", attempt),
			zap.Error(err))
		if attempt < maxAttempts {
			select {
			case <-time.After(retryBackoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	if err != nil {
		return nil, fmt.Errorf("heightmapcache: sampling patch %s: %w", id.Key(), err)
	}
	if len(samples) != (n+1)*(n+1) {
		return nil, fmt.Errorf("heightmapcache: sampler returned %d samples, want %d", len(samples), (n+1)*(n+1))
	}

	positions := c.store.ClonePositionsBuffer()
	colors := make([]float32, len(positions))

	for i, s := range samples {
		// Samples run row-major from the origin (x fastest, z increasing);
		// the positions template is Z-flipped, so map each sample to the
		// template vertex at the same grid point.
		gx, gz := i%(n+1), i/(n+1)
		vi := gx + (n-gz)*(n+1)

		positions[vi*3+0] = positions[vi*3+0]*float32(step) + float32(originX)
		positions[vi*3+1] = float32(s.Altitude)
		positions[vi*3+2] = positions[vi*3+2]*float32(step) + float32(originZ)

		col, cerr := c.materials.VoxelMaterial(s.MaterialID)
		if cerr != nil {
			return nil, fmt.Errorf("heightmapcache: resolving material for patch %s: %w", id.Key(), cerr)
		}
		colors[vi*3+0] = col.R
		colors[vi*3+1] = col.G
		colors[vi*3+2] = col.B
	}

	return &Entry{Positions: positions, Colors: colors}, nil
}
