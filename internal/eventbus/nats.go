// Package eventbus forwards orchestrator run events to external systems.
package eventbus

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/TheHaywire/solid-fortnight/internal/orchestrator"
)

// publisher is the subset of *nats.Conn the sink uses.
type publisher interface {
	Publish(subject string, data []byte) error
}

// NATSSink publishes each event as JSON on <subject>.<run id>.<event>.
type NATSSink struct {
	pub     publisher
	conn    *nats.Conn
	subject string
	logger  *slog.Logger
}

// DialNATS connects to url and returns a sink publishing under subject.
func DialNATS(url, subject string, logger *slog.Logger) (*NATSSink, error) {
	if logger == nil {
		logger = slog.Default()
	}
	nc, err := nats.Connect(url,
		nats.Name("solid-fortnight-orchestrator"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "err", err)
			}
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", url, err)
	}
	s := newNATSSink(nc, subject, logger)
	s.conn = nc
	return s, nil
}

func newNATSSink(pub publisher, subject string, logger *slog.Logger) *NATSSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &NATSSink{pub: pub, subject: strings.TrimSuffix(subject, "."), logger: logger}
}

func (s *NATSSink) Publish(runID string, ev orchestrator.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		s.logger.Warn("encoding event failed", "event", ev.Event, "err", err)
		return
	}
	subj := s.subject + "." + runID + "." + ev.Event
	if err := s.pub.Publish(subj, data); err != nil {
		s.logger.Warn("publishing event failed", "subject", subj, "err", err)
	}
}

// Close flushes pending messages and closes the connection.
func (s *NATSSink) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Drain()
}
