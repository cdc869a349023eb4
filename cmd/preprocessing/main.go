package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/pprof"
	"strings"
	"sync"
	"syscall"

	"github.com/lintang-b-s/navigatorx-ch/pkg/config"
	"github.com/lintang-b-s/navigatorx-ch/pkg/contractor"
	"github.com/lintang-b-s/navigatorx-ch/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-ch/pkg/kv"
	"github.com/lintang-b-s/navigatorx-ch/pkg/metrics"
	"github.com/lintang-b-s/navigatorx-ch/pkg/osmparser"
	"github.com/lintang-b-s/navigatorx-ch/pkg/util"
	"github.com/paulmach/osm"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/exp/slog"
)

var (
	configFile = flag.String("config", "", "yaml config file")
	mapFile    = flag.String("f", "", "openstreetmap file (.osm or .osm.pbf) buat road network graphnya")
	outputFile = flag.String("o", "", "output file for the contraction order and shortcuts")
	orderFile  = flag.String("order", "", "contract in the order of this contraction info file instead of computing one")
	kvDir      = flag.String("kvdir", "", "key-value db directory, empty string disables it")
	kvEngine   = flag.String("kvengine", "", "key-value db engine: badger or pebble")
	debug      = flag.Bool("debug", false, "log per iteration score tables for small graphs")
	logLevel   = flag.String("loglevel", "", "debug, info, warn or error")
	twoWay     = flag.Bool("twoway", false, "add reverse edges for ways that are not oneway")
	endpoints  = flag.Bool("endpoints", false, "way endpoints are vertices, not only nodes tagged vertex")
	roadsOnly  = flag.Bool("roads", false, "skip ways that are not roads")
	split      = flag.Bool("split", true, "split ways at junctions shared by two roads")
	isolated   = flag.Bool("drop-isolated", true, "drop ways that touch no junction")
	bbox       = flag.String("bbox", "", "only vertices inside minlat,minlon,maxlat,maxlon")
	largestSCC = flag.Bool("largest-scc", false, "contract only the largest strongly connected component")
	metricsOut = flag.String("metrics", "", "write prometheus metrics to this file when done")
	cpuprofile = flag.String("cpuprofile", "", "write cpu profile to file")
	memprofile = flag.String("memprofile", "", "write memory profile to this file")
)

func main() {
	flag.Parse()

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	level, _ := config.ParseLogLevel(cfg.LogLevel)
	logger := util.NewLogger(os.Stderr, level)
	slog.SetDefault(logger)

	stopProfile := func() {}
	if *cpuprofile != "" {
		// https://go.dev/blog/pprof
		// ./bin/navigatorx-preprocessing -cpuprofile=navigatorxcpu.prof -memprofile=navigatorxmem.mprof
		stop, err := startCPUProfile(*cpuprofile)
		if err != nil {
			logger.Error("failed to start cpu profile", "error", err)
			os.Exit(1)
		}
		stopProfile = stop
	}
	defer stopProfile()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("preprocessing failed", "error", err)
		stopProfile()
		os.Exit(1)
	}
}

// loadConfig reads the config file, if any, and applies the flags that were set on top of it.
func loadConfig() (config.Config, error) {
	cfg := config.Default()
	if *configFile != "" {
		var err error
		if cfg, err = config.ReadConfig(*configFile); err != nil {
			return cfg, err
		}
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "f":
			cfg.Input = *mapFile
		case "o":
			cfg.Output = *outputFile
		case "kvdir":
			cfg.KVDir = *kvDir
		case "kvengine":
			cfg.KVEngine = *kvEngine
		case "debug":
			cfg.Contraction.Debug = *debug
		case "loglevel":
			cfg.LogLevel = *logLevel
		}
	})

	if cfg.Input == "" {
		return cfg, fmt.Errorf("no input file, use -f or the input key of the config file")
	}
	return cfg, cfg.Validate()
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	box, err := osmparser.ParseBoundingBox(*bbox)
	if err != nil {
		return err
	}
	parser := osmparser.NewOSMParser(osmparser.Options{
		Format:              osmparser.FormatFromPath(cfg.Input),
		EndpointsAsVertices: *endpoints,
		SplitAtJunctions:    *split,
		DropIsolatedRoads:   *isolated,
		TwoWay:              *twoWay,
		AcceptWay:           acceptWay(),
		BoundingBox:         box,
		SimplifyThreshold:   7.0,
	}, logger)
	graph, err := parser.ParseFile(ctx, cfg.Input)
	if err != nil {
		return err
	}
	if *largestSCC {
		graph = contractor.LargestComponent(graph, logger)
	}
	recordMemProfile(memprofile, "parsing_osm_data")

	var kvDB *kv.KVDB
	if cfg.KVDir != "" {
		store, err := kv.OpenStore(cfg.KVEngine, cfg.KVDir)
		if err != nil {
			return err
		}
		kvDB = kv.NewKVDB(store, logger)
		defer kvDB.Close()
	}
	name := strings.TrimSuffix(filepath.Base(cfg.Input), filepath.Ext(cfg.Input))

	var (
		wg       sync.WaitGroup
		cellsErr error
	)
	if kvDB != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cellsErr = kvDB.SaveVertexCells(ctx, name, graph.Vertices())
		}()
	}

	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg)
	indexer := datastructure.CreateFromRawGraph(graph, logger)
	if !*largestSCC {
		components := contractor.StronglyConnectedComponents(indexer)
		if len(components) > 0 {
			logger.Info("Strongly Connected Components", "count", len(components), "largest", len(components[0]))
		}
	}
	processor := contractor.NewContractionProcessor(indexer, cfg.Contraction, logger, m)

	var info *contractor.ContractionInfo
	if *orderFile != "" {
		previous, err := contractor.LoadContractionInfo(*orderFile)
		if err != nil {
			return err
		}
		info, err = processor.Contract(ctx, previous.OrderedVertexIDs)
		if err != nil {
			return err
		}
	} else {
		info, err = processor.ContractGraph(ctx)
		if err != nil {
			return err
		}
	}
	recordMemProfile(memprofile, "finish_contracting_graph")

	if err := info.Validate(graph); err != nil {
		return err
	}

	logger.Info("Saving contraction info to a file", "file", cfg.Output)
	if err := info.SaveToFile(cfg.Output); err != nil {
		return err
	}

	if kvDB != nil {
		if err := kvDB.SaveContractionInfo(ctx, name, info); err != nil {
			return err
		}
	}
	wg.Wait()
	if cellsErr != nil {
		return fmt.Errorf("error building h3 index: %w", cellsErr)
	}

	if *metricsOut != "" {
		if err := prometheus.WriteToTextfile(*metricsOut, reg); err != nil {
			return err
		}
	}

	logger.Info("Contraction Hierarchies preprocessing ready", "vertices", len(info.OrderedVertexIDs),
		"shortcuts", len(info.Shortcuts))
	return nil
}

func acceptWay() func(*osm.Way) bool {
	if !*roadsOnly {
		return nil
	}
	return osmparser.IsValidRoad
}

// startCPUProfile profiles into path until the returned stop is called.
func startCPUProfile(path string) (func(), error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		f.Close()
		return nil, err
	}
	return func() {
		pprof.StopCPUProfile()
		f.Close()
	}, nil
}

func memProfilePath(memprofile, name string) string {
	return strings.Replace(memprofile, ".mprof", fmt.Sprintf("%s.mprof", name), -1)
}

func writeHeapProfile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return pprof.WriteHeapProfile(f)
}

func recordMemProfile(memprofile *string, name string) {
	if *memprofile != "" {
		if err := writeHeapProfile(memProfilePath(*memprofile, name)); err != nil {
			slog.Error("failed to write memory profile", "error", err, "name", name)
		}
	}
}
