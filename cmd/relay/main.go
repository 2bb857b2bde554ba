// Command relay runs a demo AudioSocket bridge: it answers one call at a
// time and echoes the caller's audio back, with optional transcoding and a
// Prometheus endpoint.
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"audiosocket-relay/internal/config"
	"audiosocket-relay/internal/metrics"
	"audiosocket-relay/internal/relay"
	"audiosocket-relay/pkg/logger"
)

const defaultConfigPath = "config.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Logging.Level)

	appMetrics := metrics.New()
	if cfg.Metrics.Enabled {
		go serveMetrics(cfg.Metrics.Address)
	}

	opts := relay.Options{
		RxQueueSize:   cfg.Server.RxQueueSize,
		TxQueueSize:   cfg.Server.TxQueueSize,
		ReadTimeout:   cfg.Server.ReadTimeout(),
		AcceptTimeout: cfg.Server.AcceptTimeout(),
		HangupGrace:   cfg.Server.HangupGrace(),
		Metrics:       appMetrics,
	}

	listener, err := relay.Listen(cfg.Server.BindAddress, cfg.Server.Port, opts)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to bind listener")
	}
	defer listener.Close()
	log.Info().Int("port", listener.Port()).Msg("Listening for AudioSocket connections")

	for {
		conn, err := listener.Accept()
		if err != nil {
			log.Fatal().Err(err).Msg("Accept failed")
		}
		go handleCall(conn, cfg)
	}
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	log.Info().Str("address", addr).Msg("Serving Prometheus metrics")
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error().Err(err).Msg("Metrics endpoint failed")
	}
}

// handleCall echoes the caller's audio back until the peer disconnects.
func handleCall(conn *relay.Conn, cfg *config.Config) {
	defer conn.Close()

	if cfg.Audio.Input.Enabled {
		if err := conn.ConfigureInput(cfg.Audio.Input.Format()); err != nil {
			log.Error().Err(err).Msg("Failed to configure input transcoding")
			return
		}
	}
	if cfg.Audio.Output.Enabled {
		if err := conn.ConfigureOutput(cfg.Audio.Output.Format()); err != nil {
			log.Error().Err(err).Msg("Failed to configure output transcoding")
			return
		}
	}

	go drainEvents(conn)

	for conn.Connected() {
		audio := conn.Read()
		if err := conn.Write(audio); err != nil {
			log.Warn().Err(err).Msg("Echo write failed")
		}
	}

	if id, ok := conn.CallID(); ok {
		log.Info().Str("call_id", id.String()).Msg("Call finished")
	}
}

func drainEvents(conn *relay.Conn) {
	for {
		select {
		case ev := <-conn.Events():
			log.Debug().Int("kind", int(ev.Kind)).Str("queue", ev.Queue).
				Str("code", ev.Code.String()).Msg("Connection event")
		case <-time.After(time.Second):
			if !conn.Connected() {
				return
			}
		}
	}
}
