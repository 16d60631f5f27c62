package natsutil

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/carverauto/netdiscovery/pkg/logger"
	"github.com/carverauto/netdiscovery/pkg/models"
)

const (
	DefaultStream        = "discovery"
	DefaultSubjectPrefix = "discovery.events"

	eventSource = "netdiscovery/engine"
	eventType   = "com.carverauto.netdiscovery.poll"

	defaultConnectTimeout = 5 * time.Second
)

// streamPublisher is the part of jetstream.JetStream the publisher needs.
type streamPublisher interface {
	Publish(ctx context.Context, subject string, data []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// EventPublisher publishes discovery events as CloudEvents to NATS JetStream.
// The subject is <prefix>.<outcome>, so consumers can filter on outcome.
type EventPublisher struct {
	js     streamPublisher
	stream string
	prefix string
	logger logger.Logger
}

// NewEventPublisher creates a new EventPublisher for the specified stream.
func NewEventPublisher(js jetstream.JetStream, streamName, prefix string, log logger.Logger) *EventPublisher {
	return newEventPublisher(js, streamName, prefix, log)
}

func newEventPublisher(js streamPublisher, streamName, prefix string, log logger.Logger) *EventPublisher {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}

	return &EventPublisher{
		js:     js,
		stream: streamName,
		prefix: strings.TrimSuffix(prefix, "."),
		logger: log,
	}
}

// Subject returns the subject an event with the given outcome is published on.
func (p *EventPublisher) Subject(outcome models.PollOutcome) string {
	return p.prefix + "." + string(outcome)
}

// Publish implements the engine's publisher contract.
func (p *EventPublisher) Publish(ctx context.Context, ev *models.DiscoveryEvent) error {
	ts := ev.FinishedAt
	subject := p.Subject(ev.Outcome)

	event := models.CloudEvent{
		SpecVersion:     "1.0",
		ID:              uuid.New().String(),
		Source:          eventSource,
		Type:            eventType,
		DataContentType: "application/json",
		Subject:         subject,
		Time:            &ts,
		Data:            ev,
	}

	eventBytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal discovery event: %w", err)
	}

	ack, err := p.js.Publish(ctx, subject, eventBytes)
	if err != nil {
		return fmt.Errorf("failed to publish discovery event: %w", err)
	}

	p.logger.Debug().
		Str("event_id", event.ID).
		Str("subject", subject).
		Uint64("seq", ack.Sequence).
		Msg("Published discovery event")

	return nil
}

// Connect opens a NATS connection for cfg. Connection state changes are
// logged rather than printed.
func Connect(cfg *models.NATSConfig, log logger.Logger, extraOpts ...nats.Option) (*nats.Conn, error) {
	timeout := cfg.Timeout.Std()
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}

	opts := []nats.Option{
		nats.Name("netdiscovery"),
		nats.Timeout(timeout),
		nats.MaxReconnects(-1),
	}

	if cfg.CredsFile != "" {
		opts = append(opts, nats.UserCredentials(cfg.CredsFile))
	}

	if cfg.TLS != nil {
		tlsConf, err := TLSConfig(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to build NATS TLS config: %w", err)
		}

		opts = append(opts, nats.Secure(tlsConf))
	}

	opts = append(opts,
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
		nats.ConnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("Connected to NATS")
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	)

	opts = append(opts, extraOpts...)

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return nc, nil
}

// CreateEventPublisher makes sure the stream exists and captures the event
// subjects, then returns a publisher bound to it.
func CreateEventPublisher(ctx context.Context, nc *nats.Conn, streamName, prefix string, log logger.Logger) (*EventPublisher, error) {
	if streamName == "" {
		streamName = DefaultStream
	}

	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}

	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	wildcard := strings.TrimSuffix(prefix, ".") + ".>"

	stream, err := js.Stream(ctx, streamName)

	switch {
	case err == nil:
		subjects := stream.CachedInfo().Config.Subjects
		merged := ensureSubjectList(append([]string(nil), subjects...), wildcard)

		if len(merged) != len(subjects) {
			cfg := stream.CachedInfo().Config
			cfg.Subjects = merged

			if _, err = js.UpdateStream(ctx, cfg); err != nil {
				return nil, fmt.Errorf("failed to add subjects to stream %s: %w", streamName, err)
			}

			log.Info().Str("stream", streamName).Strs("subjects", merged).Msg("Updated NATS JetStream stream subjects")
		}
	case isStreamMissingErr(err):
		_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
			Name:     streamName,
			Subjects: []string{wildcard},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create stream %s: %w", streamName, err)
		}

		log.Info().Str("stream", streamName).Msg("Created NATS JetStream stream")
	default:
		return nil, fmt.Errorf("failed to look up stream %s: %w", streamName, err)
	}

	return NewEventPublisher(js, streamName, prefix, log), nil
}

// ensureSubjectList appends subject unless one of the patterns already
// matches it.
func ensureSubjectList(subjects []string, subject string) []string {
	for _, s := range subjects {
		if matchesSubject(s, subject) {
			return subjects
		}
	}

	return append(subjects, subject)
}

// matchesSubject reports whether pattern covers subject using NATS token
// wildcards. A pattern equal to subject matches, wildcards included.
func matchesSubject(pattern, subject string) bool {
	if pattern == subject {
		return true
	}

	pt := strings.Split(pattern, ".")
	st := strings.Split(subject, ".")

	for i, tok := range pt {
		switch {
		case tok == ">":
			return len(st) > i
		case i >= len(st):
			return false
		case tok == "*", tok == st[i]:
			continue
		default:
			return false
		}
	}

	return len(pt) == len(st)
}

func isStreamMissingErr(err error) bool {
	return errors.Is(err, jetstream.ErrStreamNotFound) ||
		errors.Is(err, jetstream.ErrNoStreamResponse) ||
		errors.Is(err, nats.ErrStreamNotFound) ||
		errors.Is(err, nats.ErrNoStreamResponse) ||
		errors.Is(err, nats.ErrNoResponders)
}
