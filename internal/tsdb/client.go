// Package tsdb mirrors recorded sensor readings into InfluxDB.
//
// The relational store stays the system of record; the mirror is
// write-only and best effort. Writes are non-blocking and batched by the
// InfluxDB client; asynchronous failures are reported through the logger.
package tsdb

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/septivank/device-registry/internal/config"
	"github.com/septivank/device-registry/internal/db"
	"go.uber.org/zap"
)

const (
	defaultConnectTimeout = 10 * time.Second

	// Measurement is the InfluxDB measurement readings are written to
	Measurement = "sensor_readings"
)

var (
	// ErrDisabled indicates the mirror is not configured
	ErrDisabled = errors.New("tsdb: disabled in configuration")

	// ErrConnectionFailed indicates the initial ping failed
	ErrConnectionFailed = errors.New("tsdb: connection failed")
)

// Client writes readings to InfluxDB.
//
// Safe for concurrent use.
type Client struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI
	logger   *zap.Logger

	mu        sync.RWMutex
	connected bool
	done      chan struct{}
}

// Connect creates the client and verifies the server answers a ping
func Connect(ctx context.Context, cfg config.InfluxDBConfig, logger *zap.Logger) (*Client, error) {
	if !cfg.Enabled() {
		return nil, ErrDisabled
	}

	client := influxdb2.NewClient(cfg.URL, cfg.Token)

	pingCtx, cancel := context.WithTimeout(ctx, defaultConnectTimeout)
	defer cancel()

	healthy, err := client.Ping(pingCtx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: ping failed: %w", ErrConnectionFailed, err)
	}
	if !healthy {
		client.Close()
		return nil, fmt.Errorf("%w: server not healthy", ErrConnectionFailed)
	}

	c := &Client{
		client:    client,
		writeAPI:  client.WriteAPI(cfg.Org, cfg.Bucket),
		logger:    logger,
		connected: true,
		done:      make(chan struct{}),
	}
	go c.handleWriteErrors(c.writeAPI.Errors())

	return c, nil
}

func (c *Client) handleWriteErrors(errorsCh <-chan error) {
	for {
		select {
		case err := <-errorsCh:
			c.logger.Warn("influxdb async write failed", zap.Error(err))
		case <-c.done:
			return
		}
	}
}

// WriteReading queues a reading for the mirror. It never blocks on the network.
func (c *Client) WriteReading(reading db.SensorReading) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.connected {
		return
	}
	c.writeAPI.WritePoint(NewReadingPoint(reading))
}

// Close flushes pending points and releases the client
func (c *Client) Close() error {
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return nil
	}
	c.connected = false
	c.mu.Unlock()

	c.writeAPI.Flush()
	close(c.done)
	c.client.Close()
	return nil
}

// NewReadingPoint converts a reading to a point tagged with its device
func NewReadingPoint(reading db.SensorReading) *write.Point {
	tags := map[string]string{}
	if reading.DeviceID != nil {
		tags["device_id"] = *reading.DeviceID
	}

	return write.NewPoint(
		Measurement,
		tags,
		map[string]interface{}{
			"temperature": reading.Temperature,
			"humidity":    reading.Humidity,
			"pressure":    reading.Pressure,
			"light":       reading.Light,
			"moisture":    reading.Moisture,
		},
		reading.DateAdded,
	)
}

// NopMirror discards readings when InfluxDB is not configured
type NopMirror struct{}

// WriteReading does nothing
func (NopMirror) WriteReading(db.SensorReading) {}
