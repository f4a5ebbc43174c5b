// Command lodinspect wires a synthetic heightmap sampler and a static
// material store to a Viewer, sweeps the focus across the pyramid, and
// prints the resulting statistics snapshot at each step. It stands in for
// a windowed GPU viewer, minus the GLFW/WebGPU surface
// this module has no use for.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/aresrpg/voxel-lod-mesher/internal/heightmap"
	"github.com/aresrpg/voxel-lod-mesher/internal/lodconfig"
	"github.com/aresrpg/voxel-lod-mesher/internal/logging"
	"github.com/aresrpg/voxel-lod-mesher/internal/materials"
	"github.com/aresrpg/voxel-lod-mesher/internal/statsserver"
	"github.com/aresrpg/voxel-lod-mesher/internal/viewer"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "path to a JSON lodconfig.Options file (defaults built in if omitted)")
	terrain := flag.String("terrain", "ramp", "synthetic terrain: flat | ramp")
	steps := flag.Int("steps", 20, "number of focus-sweep ticks to run")
	statsPort := flag.Int("stats-port", 0, "if > 0, also serve live stats at this HTTP port")
	flag.Parse()

	opts := lodconfig.Default()
	if *configPath != "" {
		loaded, err := lodconfig.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "lodinspect: %v\n", err)
			os.Exit(1)
		}
		opts = loaded
	}
	opts.ClampHideDistance()
	if *statsPort > 0 {
		opts.Observability.StatsServePort = *statsPort
	}

	logger, err := logging.New(logging.Options{Development: opts.Observability.Development, FilePath: opts.Observability.LogFilePath})
	if err != nil {
		fmt.Fprintf(os.Stderr, "lodinspect: building logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	var sampler heightmap.Sampler
	switch *terrain {
	case "flat":
		sampler = heightmap.Flat{Altitude: 0, MaterialID: 1}
	case "ramp":
		sampler = heightmap.Ramp{Slope: 0.05, MaterialID: 1, Min: -256, Max: 256}
	default:
		fmt.Fprintf(os.Stderr, "lodinspect: unknown -terrain %q (want flat or ramp)\n", *terrain)
		os.Exit(1)
	}
	mats := materials.NewStaticStore(map[uint16]materials.Color{
		1: {R: 0.4, G: 0.7, B: 0.3}, // grass
		2: {R: 0.5, G: 0.5, B: 0.5}, // rock
	}, materials.Color{R: 1, G: 0, B: 1}) // unknown material shows up as magenta

	v, err := viewer.New(opts, sampler, mats, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "lodinspect: building viewer: %v\n", err)
		os.Exit(1)
	}

	if opts.Observability.StatsServePort > 0 {
		srv := statsserver.New(v, opts.Observability.StatsServePort, logger)
		go func() {
			if err := srv.Start(); err != nil {
				logger.Error("stats server stopped", zap.Error(err))
			}
		}()
		defer srv.Stop()
	}

	ctx := context.Background()
	for i := 0; i < *steps; i++ {
		x := float64(i) * float64(opts.Pyramid.BasePatchSize)
		v.SetFocus(x, 0)
		if err := v.Tick(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "lodinspect: tick %d: %v\n", i, err)
			os.Exit(1)
		}
		time.Sleep(50 * time.Millisecond)
		fmt.Printf("step %2d  focus=(%.0f, 0)  %+v\n", i, x, v.Statistics())
	}
}
