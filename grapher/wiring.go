package main

import (
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/itohio/golivegraph/pkg/config"
	"github.com/itohio/golivegraph/pkg/device"
	"github.com/itohio/golivegraph/pkg/export"
	"github.com/itohio/golivegraph/pkg/metrics"
)

// buildTransport returns the mock generator or the configured serial port.
func buildTransport(cfg *config.Config, mock bool) device.Transport {
	if mock {
		log.Print("Using mocked device")
		return device.NewMock(&cfg.Mock, cfg.Channels.Count)
	}
	return device.NewSerial(cfg.Serial.Port, cfg.Serial.BaudRate, cfg.Serial.ReadTimeout)
}

// buildUploader returns the export target chain described by cfg and a
// function releasing its resources.
func buildUploader(cfg *config.Config) (export.Uploader, func() error, error) {
	nop := func() error { return nil }
	if !cfg.Export.Enabled {
		return export.Nop{}, nop, nil
	}

	var (
		target  export.Uploader
		closers []func() error
	)
	if cfg.Export.MQTT.Broker != "" {
		m := cfg.Export.MQTT
		client, err := export.NewMQTT(export.MQTTOptions{
			Broker:      m.Broker,
			TopicPrefix: m.TopicPrefix,
			Username:    m.Username,
			Password:    m.Password,
			QoS:         m.QoS,
			Timeout:     m.Timeout,
		})
		if err != nil {
			return nil, nil, err
		}
		target = client
		closers = append(closers, client.Close)
	} else {
		folder, err := export.NewFolder(cfg.Export.Directory, cfg.Export.FolderLink)
		if err != nil {
			return nil, nil, err
		}
		target = folder
	}

	if cfg.Export.Compress {
		compressed, err := export.NewCompressed(target)
		if err != nil {
			closeAll(closers)
			return nil, nil, err
		}
		target = compressed
		closers = append(closers, compressed.Close)
	}

	return target, func() error { return closeAll(closers) }, nil
}

func closeAll(closers []func() error) error {
	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		errs = append(errs, closers[i]())
	}
	return errors.Join(errs...)
}

// serveMetrics exposes m on addr until the returned stop function is called.
// An empty addr disables the endpoint.
func serveMetrics(addr string, m *metrics.Metrics) (func(), error) {
	if addr == "" {
		return func() {}, nil
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics endpoint: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Metrics endpoint stopped: %v", err)
		}
	}()
	log.Printf("Serving metrics on http://%s/metrics", ln.Addr())

	return func() { srv.Close() }, nil
}
