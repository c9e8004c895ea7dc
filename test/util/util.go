// Package util provides helper functions shared across integration tests.
//
// StartMosquitto launches a disposable Mosquitto broker in a Docker container
// for MQTT-based tests. It returns the broker URL and a cleanup function.
//
// WaitForMetric polls a Prometheus metrics endpoint until the desired metric
// appears in the output.
//
// Subscribe collects the messages published on an MQTT topic filter.
package util

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	// Default timeouts for helper operations
	MosquittoReadyTimeout = 5 * time.Second
	MetricTimeout         = 5 * time.Second
	MessageTimeout        = 30 * time.Second

	pollInterval = 50 * time.Millisecond
)

// WaitForMetric polls the given metrics URL until the provided substring is
// found in the output or the context is done.
func WaitForMetric(ctx context.Context, metricsURL, substr string) error {
	for {
		req, _ := http.NewRequestWithContext(ctx, http.MethodGet, metricsURL, nil)
		resp, err := http.DefaultClient.Do(req)
		if err == nil {
			body, rerr := io.ReadAll(resp.Body)
			_ = resp.Body.Close()
			if rerr != nil {
				return fmt.Errorf("read metrics body: %w", rerr)
			}
			if strings.Contains(string(body), substr) {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("metric %q not found: %w", substr, ctx.Err())
		case <-time.After(pollInterval):
		}
	}
}

// mosquittoConf allows anonymous clients and keeps nothing on disk.
const mosquittoConf = `listener 1883
allow_anonymous true
persistence false
log_dest stdout
log_type error
log_type warning
`

// StartMosquitto launches a temporary Mosquitto broker inside a Docker
// container and returns its broker URL along with a cleanup function. The
// broker is ready to accept connections when it returns.
func StartMosquitto(ctx context.Context) (string, func(), error) {
	req := tc.ContainerRequest{
		Image:        "eclipse-mosquitto:2.0",
		ExposedPorts: []string{"1883/tcp"},
		WaitingFor:   wait.ForListeningPort("1883/tcp"),
		Files: []tc.ContainerFile{{
			Reader:            strings.NewReader(mosquittoConf),
			ContainerFilePath: "/mosquitto/config/mosquitto.conf",
			FileMode:          0o644,
		}},
	}
	cont, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		return "", nil, fmt.Errorf("start mosquitto: %w", err)
	}
	cleanup := func() { _ = cont.Terminate(context.Background()) }

	endpoint, err := cont.PortEndpoint(ctx, "1883/tcp", "tcp")
	if err != nil {
		cleanup()
		return "", nil, fmt.Errorf("mosquitto endpoint: %w", err)
	}
	waitCtx, cancel := context.WithTimeout(ctx, MosquittoReadyTimeout)
	defer cancel()
	if err := waitForMQTTReady(waitCtx, endpoint); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("mosquitto not ready: %w", err)
	}
	return endpoint, cleanup, nil
}

// waitForMQTTReady retries a probe connection until it succeeds.
func waitForMQTTReady(ctx context.Context, broker string) error {
	for {
		cli, err := connect(broker, "probe")
		if err == nil {
			cli.Disconnect(100)
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

func connect(broker, role string) (paho.Client, error) {
	opts := paho.NewClientOptions().AddBroker(broker).SetClientID(role + "-" + uuid.NewString())
	cli := paho.NewClient(opts)
	if token := cli.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	return cli, nil
}

// Messages accumulates the payloads received by Subscribe.
type Messages struct {
	mu      sync.Mutex
	byTopic map[string][][]byte
}

// Topics returns the topics that received at least one message.
func (m *Messages) Topics() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.byTopic))
	for t := range m.byTopic {
		out = append(out, t)
	}
	return out
}

// Count returns the number of messages received on topics containing substr.
func (m *Messages) Count(substr string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for t, msgs := range m.byTopic {
		if strings.Contains(t, substr) {
			n += len(msgs)
		}
	}
	return n
}

// Subscribe connects a probe client to broker and records every message
// matching filter until the returned cleanup is called.
func Subscribe(broker, filter string) (*Messages, func(), error) {
	m := &Messages{byTopic: map[string][][]byte{}}
	cli, err := connect(broker, "sub")
	if err != nil {
		return nil, nil, err
	}
	handler := func(_ paho.Client, msg paho.Message) {
		m.mu.Lock()
		m.byTopic[msg.Topic()] = append(m.byTopic[msg.Topic()], msg.Payload())
		m.mu.Unlock()
	}
	if token := cli.Subscribe(filter, 1, handler); token.Wait() && token.Error() != nil {
		cli.Disconnect(100)
		return nil, nil, token.Error()
	}
	return m, func() { cli.Disconnect(100) }, nil
}

// Publish sends a single message to broker with a throwaway client.
func Publish(broker, topic string, payload []byte) error {
	cli, err := connect(broker, "pub")
	if err != nil {
		return err
	}
	defer cli.Disconnect(100)
	token := cli.Publish(topic, 1, false, payload)
	token.Wait()
	return token.Error()
}
