package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog/log"
	flag "github.com/spf13/pflag"
)

func initFlags(ko *koanf.Koanf) {
	f := flag.NewFlagSet("config", flag.ContinueOnError)
	f.Usage = func() {
		fmt.Println(f.FlagUsages())
		os.Exit(0)
	}

	f.StringSlice("config", nil, "path to one or more config files (will be merged in order)")
	f.String("port", "8080", "port to host the introspection server on")
	f.String("log-level", "info", "zerolog level (trace, debug, info, warn, error)")
	f.Bool("version", false, "show current version of the build")
	f.Float64("producer.cadence_ms", 10, "pause between produced values, in milliseconds")
	f.Float64("producer.time_limit_s", 0, "producer runtime limit in seconds, 0 for unlimited")
	f.Int("producer.max_queue_size", 0, "producer queue limit, 0 keeps the default")
	f.Int("filter.factor", 2, "multiplication factor applied by the filter")
	f.Float64("consumer.sleep_ms", 0, "pause after each consumed value, in milliseconds")

	if err := f.Parse(os.Args[1:]); err != nil {
		log.Fatal().Msgf("error loading flags: %v", err)
	}

	configs, _ := f.GetStringSlice("config")
	for _, path := range configs {
		log.Debug().Msgf("Reading config from %s", path)
		var parser koanf.Parser
		switch path[strings.LastIndex(path, ".")+1:] {
		case "yaml", "yml":
			parser = yaml.Parser()
		case "json":
			parser = json.Parser()
		default:
			log.Fatal().Msgf("unsupported config extension in %s", path)
		}
		if err := ko.Load(file.Provider(path), parser); err != nil {
			log.Fatal().Msgf("error reading config: %v", err)
		}
	}

	if err := ko.Load(posflag.Provider(f, ".", ko), nil); err != nil {
		log.Fatal().Msgf("error reading flag config: %v", err)
	}
}
