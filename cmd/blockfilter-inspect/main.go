// Command blockfilter-inspect builds, lists and queries the filters of arrow
// IPC data files.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kingpin/v2"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/thanos-io/objstore"
	"github.com/thanos-io/objstore/providers/filesystem"
	"gopkg.in/yaml.v3"

	"github.com/grafana/blockfilter/pkg/index"
)

// globalFlags are shared by every command.
type globalFlags struct {
	configFile string
	bucketDir  string
	logLevel   string
}

func main() {
	app := kingpin.New("blockfilter-inspect", "A command-line tool to build and inspect data file filters.")
	app.HelpFlag.Short('h')

	g := &globalFlags{}
	app.Flag("config.file", "YAML file holding the filter configuration.").StringVar(&g.configFile)
	app.Flag("bucket.dir", "Directory of the filesystem bucket filters are stored in.").Default(".").StringVar(&g.bucketDir)
	app.Flag("log.level", "Only log messages with the given severity or above.").Default("info").EnumVar(&g.logLevel, "debug", "info", "warn", "error")

	addBuildCommand(app, g)
	addInspectCommand(app, g)
	addCheckCommand(app, g)

	kingpin.MustParse(app.Parse(os.Args[1:]))
}

func (g *globalFlags) logger() log.Logger {
	var option level.Option
	switch g.logLevel {
	case "debug":
		option = level.AllowDebug()
	case "warn":
		option = level.AllowWarn()
	case "error":
		option = level.AllowError()
	default:
		option = level.AllowInfo()
	}

	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	logger = level.NewFilter(logger, option)
	return log.With(logger, "ts", log.DefaultTimestampUTC)
}

// config returns the default configuration overridden by the YAML file
// given with --config.file.
func (g *globalFlags) config() (index.Config, error) {
	var cfg index.Config
	cfg.RegisterFlags(flag.NewFlagSet("defaults", flag.ContinueOnError))

	if g.configFile != "" {
		buf, err := os.ReadFile(g.configFile)
		if err != nil {
			return cfg, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(buf, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config file %s: %w", g.configFile, err)
		}
	}
	return cfg, cfg.Validate()
}

// store opens the filter store rooted at --bucket.dir.
func (g *globalFlags) store(logger log.Logger) (*index.Store, objstore.Bucket, error) {
	cfg, err := g.config()
	if err != nil {
		return nil, nil, err
	}

	bucket, err := filesystem.NewBucket(g.bucketDir)
	if err != nil {
		return nil, nil, fmt.Errorf("opening bucket: %w", err)
	}

	store, err := index.NewStore(cfg, bucket, logger, nil)
	if err != nil {
		_ = bucket.Close()
		return nil, nil, err
	}
	return store, bucket, nil
}

// objectName returns the name data file name is known by in the store.
func objectName(name string) string {
	return strings.TrimPrefix(filepath.ToSlash(filepath.Clean(name)), "/")
}

func exitWithErr(err error) {
	fmt.Fprintln(os.Stderr, err.Error())
	os.Exit(1)
}
