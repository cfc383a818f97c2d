// Command sparsdr-reconstruct reads a compressed SparSDR capture and
// reconstructs one or more narrowband IQ streams from it, per config.yaml.
package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cwsl/sparsdr-reconstruct/internal/config"
	"github.com/cwsl/sparsdr-reconstruct/internal/metrics"
	"github.com/cwsl/sparsdr-reconstruct/internal/parser"
	"github.com/cwsl/sparsdr-reconstruct/internal/reconstruct"
	"github.com/cwsl/sparsdr-reconstruct/internal/sink"
	"github.com/cwsl/sparsdr-reconstruct/internal/source"
)

func main() {
	configFile := flag.String("config", "config.yaml", "Path to configuration file")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	if debugEnv := os.Getenv("DEBUG"); debugEnv != "" {
		*debug = debugEnv == "true" || debugEnv == "1" || debugEnv == "yes"
	}
	if *debug {
		log.Println("Debug mode enabled")
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	m := metrics.New()

	wsSink := sink.NewWebSocketSink()
	if cfg.Websocket.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/stream", wsSink)
		go func() {
			log.Printf("sparsdr-reconstruct: websocket sink listening on %s", cfg.Websocket.Listen)
			if err := http.ListenAndServe(cfg.Websocket.Listen, mux); err != nil {
				log.Printf("ERROR: websocket listener exited: %v", err)
			}
		}()
	}

	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		go func() {
			log.Printf("sparsdr-reconstruct: metrics listening on %s", cfg.Metrics.Listen)
			if err := http.ListenAndServe(cfg.Metrics.Listen, mux); err != nil {
				log.Printf("ERROR: metrics listener exited: %v", err)
			}
		}()
	}

	bandSpecs, err := buildBands(cfg, wsSink, m)
	if err != nil {
		log.Fatalf("Invalid band configuration: %v", err)
	}

	p, err := buildParser(cfg.Source.Format, cfg.Source.CompressionFFTSize)
	if err != nil {
		log.Fatalf("Invalid source configuration: %v", err)
	}

	overlapMode := reconstruct.OverlapMode{FlushTrailingZeroSamples: cfg.Reconstruct.FlushTrailingZeroSamples}
	if cfg.Reconstruct.Overlap == "gaps" {
		overlapMode.Kind = reconstruct.OverlapGaps
	}

	pipeline, err := reconstruct.Start(reconstruct.DecompressSetup{
		Parser:             p,
		CompressionFFTSize: cfg.Source.CompressionFFTSize,
		TimestampBits:      cfg.Source.TimestampBits,
		ChannelCapacity:    cfg.Reconstruct.ChannelCapacity,
		OverlapMode:        overlapMode,
		Bands:              bandSpecs,
		Metrics:            m,
	})
	if err != nil {
		log.Fatalf("Failed to start reconstruction pipeline: %v", err)
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
		log.Println("sparsdr-reconstruct: shutting down")
		pipeline.Shutdown()
		os.Exit(0)
	}()

	var src source.ByteSource
	if cfg.Source.Path == "" {
		src = source.Stdin()
	} else {
		src, err = source.OpenFile(cfg.Source.Path)
		if err != nil {
			log.Fatalf("Failed to open capture: %v", err)
		}
	}
	defer src.Close()

	sampleBytes := p.SampleBytes()
	buf := make([]byte, sampleBytes*4096)
	for {
		n, err := src.Read(buf)
		if n > 0 {
			usable := n - (n % sampleBytes)
			if usable > 0 {
				if procErr := pipeline.ProcessSamples(buf[:usable]); procErr != nil {
					log.Printf("ERROR: %v", procErr)
				}
			}
		}
		if err != nil {
			break
		}
	}

	pipeline.Shutdown()
}

func buildParser(format string, fftSize int) (parser.Parser, error) {
	switch format {
	case "v1-n210":
		return parser.NewV1N210(fftSize), nil
	case "v1-pluto":
		return parser.NewV1Pluto(fftSize), nil
	case "v2":
		return parser.NewV2(fftSize), nil
	default:
		return nil, fmt.Errorf("unknown source format %q", format)
	}
}

func buildBands(cfg *config.Config, wsSink reconstruct.SampleSink, m *metrics.Metrics) ([]reconstruct.BandSpec, error) {
	specs := make([]reconstruct.BandSpec, 0, len(cfg.Bands))
	for _, b := range cfg.Bands {
		var dest reconstruct.SampleSink
		switch b.Sink {
		case "discard":
			dest = sink.DiscardSink{}
		default:
			dest = wsSink
		}

		builder := reconstruct.NewBandSetupBuilder(dest, b.CaptureBandwidthHz, cfg.Source.CompressionFFTSize, b.ReconstructionBins).
			CenterFrequency(b.CenterFrequencyHz).
			Timeout(cfg.Reconstruct.Timeout())

		spec, err := builder.Build()
		if err != nil {
			return nil, err
		}

		name := b.Name
		spec.OnWindowEmitted = func(timestamp uint64, sampleCount int) {
			m.RecordSamplesEmitted(name, sampleCount)
		}

		specs = append(specs, spec)
	}
	return specs, nil
}
