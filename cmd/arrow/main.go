// A single-process BPMN engine that reads events from stdin and
// writes what happens to stdout.
//
// BPMN files given as arguments are deployed first.  Then each line
// of input is an op (see Runner.Do).  For example:
//
//	arrow -g shop order.bpmn
//	message order.created {amount: 12}
//	error PAYMENT
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/Comcast/arrow/bpmn"
	"github.com/Comcast/arrow/config"
	"github.com/Comcast/arrow/interpreters"
	"github.com/Comcast/arrow/registry"
	"github.com/Comcast/arrow/storage"
	"github.com/Comcast/arrow/storage/bolt"
	"github.com/Comcast/arrow/tools"

	"go.uber.org/zap"
)

func main() {

	var (
		configFile = flag.String("c", "", "configuration file (YAML)")
		storeFile  = flag.String("d", "", "bbolt storage filename (overrides config)")
		group      = flag.String("g", "", "group (overrides config)")
		logLevel   = flag.String("l", "", "log level (overrides config)")
	)

	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatal(err)
	}
	if *storeFile != "" {
		cfg.StoreFile = *storeFile
	}
	if *group != "" {
		cfg.Group = *group
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	logger, err := cfg.Logger()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r, closer, err := NewRunner(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("setup failed", zap.Error(err))
	}
	defer closer()

	for _, filename := range flag.Args() {
		src, err := tools.ReadFileWithInlines(filename)
		if err != nil {
			logger.Fatal("can't read", zap.String("file", filename), zap.Error(err))
		}
		if err := r.Deploy(ctx, src); err != nil {
			logger.Fatal("deploy failed", zap.String("file", filename), zap.Error(err))
		}
	}

	if err := r.Listen(ctx, os.Stdin); err != nil {
		logger.Error("listener failed", zap.Error(err))
	}
}

// NewRunner assembles the engine described by the configuration.
// The returned function closes the store.  The logger can be nil.
func NewRunner(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Runner, func(), error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	scripts, err := interpreters.NewFactory(cfg.ScriptCacheSize, logger)
	if err != nil {
		return nil, nil, err
	}
	parser := bpmn.NewParser(scripts, logger)

	var (
		delegate storage.ProcessStore
		closer   = func() {}
	)
	if cfg.StoreFile == "" {
		delegate = storage.NewMemoryStore()
	} else {
		s, err := bolt.NewStore(cfg.StoreFile, parser.ParseProcess, logger)
		if err != nil {
			return nil, nil, err
		}
		if err := s.Open(ctx); err != nil {
			return nil, nil, err
		}
		delegate = s
		closer = func() {
			if err := s.Close(ctx); err != nil {
				logger.Warn("close failed", zap.Error(err))
			}
		}
	}

	store, err := storage.NewCachingStore(delegate, cfg.ProcessCacheSize, cfg.StateCacheSize, logger)
	if err != nil {
		closer()
		return nil, nil, err
	}

	reg := registry.New(logger)
	return &Runner{
		Group:    cfg.Group,
		Store:    store,
		Registry: reg,
		Deployer: bpmn.NewDeployer(store, reg, parser, logger),
		Logger:   logger,
		Out:      os.Stdout,
	}, closer, nil
}
