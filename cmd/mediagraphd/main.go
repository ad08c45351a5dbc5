package main

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jpilet/mediagraph"
	"github.com/jpilet/mediagraph/metric"
	"github.com/jpilet/mediagraph/nodes"
	"github.com/jpilet/mediagraph/server"
	"github.com/jpilet/mediagraph/timestamp"
)

var (
	buildString = "unknown"
	ko          = koanf.New(".")
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()

	initFlags(ko)

	if ko.Bool("version") {
		fmt.Println(buildString)
		os.Exit(0)
	}
	log.Info().Str("build", buildString).Msg("Starting mediagraphd")

	if level, err := zerolog.ParseLevel(ko.String("log-level")); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	if err := metric.RegisterDefault(); err != nil {
		log.Err(err).Msg("Error when registering metrics")
	}

	graph, err := buildGraph(ko)
	if err != nil {
		log.Fatal().Err(err).Msg("Error when building the graph")
	}

	// Run the introspection server.
	go func(ko *koanf.Koanf) {
		log.Info().Msg("Starting the introspection server...")
		server.Init(ko)
		server.Run(graph, ko)
	}(ko)

	if !graph.Start() {
		log.Fatal().Msg("The graph refused to start")
	}
	log.Info().Int("nodes", graph.NumNodes()).Msg("Graph is running")

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt)
	<-done

	log.Info().Msg("Received interrupt signal; stopping the graph")
	graph.Stop()
	graph.WaitUntilStopped()
	graph.Clear()
}

// buildGraph assembles the demo pipeline: a counter producer, a filter
// multiplying by filter.factor (2 by default), and a counting consumer.
func buildGraph(ko *koanf.Koanf) (*mediagraph.Graph, error) {
	graph := mediagraph.NewGraph()

	producer := nodes.NewCounterProducer(
		timestamp.MilliSeconds(ko.Float64("producer.cadence_ms")),
		timestamp.Seconds(ko.Float64("producer.time_limit_s")))
	filter := nodes.NewMap(func(v int) int { return v * ko.Int("filter.factor") })
	consumer := nodes.NewCountingConsumer[int](
		timestamp.MilliSeconds(ko.Float64("consumer.sleep_ms")))

	if !graph.AddNode("producer", producer) ||
		!graph.AddNode("filter", filter) ||
		!graph.AddNode("consumer", consumer) {
		return nil, fmt.Errorf("duplicate node name")
	}

	if size := ko.Int("producer.max_queue_size"); size > 0 {
		producer.Out().SetMaxQueueSize(size)
	}

	if !graph.ConnectByName("producer", "out", "filter", "in") ||
		!graph.ConnectByName("filter", "out", "consumer", "in") {
		return nil, fmt.Errorf("graph connection failed")
	}
	return graph, nil
}
