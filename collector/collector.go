// Package collector feeds sensor readings published over MQTT into the same
// ingestion pipeline the HTTP API uses.
package collector

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"water-quality-api/config"
	"water-quality-api/models"
	"water-quality-api/services"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	ingestTimeout   = 10 * time.Second
	disconnectQuiet = 250
)

var ErrMalformed = errors.New("malformed payload")

var (
	msgsReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "waterquality_collector_messages_received_total",
		Help: "Total number of MQTT messages received by collector.",
	})
	msgsStored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "waterquality_collector_messages_stored_total",
		Help: "Total number of MQTT readings successfully ingested.",
	})
	msgsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "waterquality_collector_messages_failed_total",
		Help: "Total number of MQTT messages rejected or failed to store, by error kind.",
	}, []string{"kind"})
)

type Ingester interface {
	Ingest(ctx context.Context, payload map[string]any) (*models.Reading, error)
}

type Collector struct {
	ingest Ingester
	cfg    config.MQTTConfig
}

func New(ingest Ingester, cfg config.MQTTConfig) *Collector {
	return &Collector{ingest: ingest, cfg: cfg}
}

// HandleMessage ingests one MQTT payload. Failures are counted and returned
// but never retried; the broker does not see them.
func (c *Collector) HandleMessage(ctx context.Context, topic string, payload []byte) error {
	msgsReceived.Inc()

	obj, err := services.DecodePayload(bytes.NewReader(payload))
	if err != nil {
		msgsFailed.WithLabelValues(string(services.KindValidation)).Inc()
		slog.Warn("invalid payload", "topic", topic, "error", err)
		return fmt.Errorf("%w on %s: %w", ErrMalformed, topic, err)
	}

	ctx, cancel := context.WithTimeout(ctx, ingestTimeout)
	defer cancel()

	r, err := c.ingest.Ingest(ctx, obj)
	if err != nil {
		kind := services.KindOf(err)
		msgsFailed.WithLabelValues(string(kind)).Inc()
		slog.Warn("reading not stored", "topic", topic, "kind", kind, "error", err)
		return err
	}

	msgsStored.Inc()
	slog.Debug("reading stored", "topic", topic, "final_status", r.FinalStatus)
	return nil
}

func (c *Collector) clientOptions(ctx context.Context) *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(c.cfg.URL)
	opts.SetClientID(c.cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetDefaultPublishHandler(func(client mqtt.Client, message mqtt.Message) {
		_ = c.HandleMessage(ctx, message.Topic(), message.Payload())
	})
	opts.OnConnect = func(client mqtt.Client) {
		token := client.Subscribe(c.cfg.Topic, byte(c.cfg.QoS), nil)
		token.Wait()
		if token.Error() != nil {
			slog.Error("mqtt subscribe error", "topic", c.cfg.Topic, "error", token.Error())
			return
		}
		slog.Info("collector subscribed", "topic", c.cfg.Topic, "qos", c.cfg.QoS)
	}
	opts.OnConnectionLost = func(client mqtt.Client, err error) {
		slog.Warn("mqtt connection lost", "error", err)
	}
	return opts
}

// Run connects to the broker and blocks until ctx is done.
func (c *Collector) Run(ctx context.Context) error {
	client := mqtt.NewClient(c.clientOptions(ctx))
	token := client.Connect()
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("mqtt connection failed: %w", err)
		}
	case <-ctx.Done():
		client.Disconnect(disconnectQuiet)
		return nil
	}

	slog.Info("collector running", "mqtt", c.cfg.URL)
	<-ctx.Done()
	slog.Info("collector shutting down")
	client.Disconnect(disconnectQuiet)
	return nil
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// MetricsHandler serves /metrics and a /health probe backed by the store.
func MetricsHandler(store Pinger) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := store.Ping(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("store unreachable"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}
