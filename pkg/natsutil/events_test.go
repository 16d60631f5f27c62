package natsutil

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/netdiscovery/pkg/logger"
	"github.com/carverauto/netdiscovery/pkg/models"
)

var errTestFixture = errors.New("fixture error")

func TestEnsureSubjectList(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		subjects []string
		subject  string
		want     []string
	}{
		{
			name:     "adds subject when list empty",
			subjects: nil,
			subject:  "discovery.events.>",
			want:     []string{"discovery.events.>"},
		},
		{
			name:     "keeps list when greater wildcard matches",
			subjects: []string{"discovery.>"},
			subject:  "discovery.events.success",
			want:     []string{"discovery.>"},
		},
		{
			name:     "keeps list when identical wildcard present",
			subjects: []string{"discovery.events.>"},
			subject:  "discovery.events.>",
			want:     []string{"discovery.events.>"},
		},
		{
			name:     "appends when unmatched",
			subjects: []string{"events.poller.*"},
			subject:  "discovery.events.>",
			want:     []string{"events.poller.*", "discovery.events.>"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			result := ensureSubjectList(append([]string(nil), tc.subjects...), tc.subject)

			if len(result) != len(tc.want) {
				t.Fatalf("expected %d subjects, got %d", len(tc.want), len(result))
			}

			for i := range tc.want {
				if tc.want[i] != result[i] {
					t.Fatalf("result[%d] = %q, want %q", i, result[i], tc.want[i])
				}
			}
		})
	}
}

func TestMatchesSubject(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		pattern  string
		subject  string
		expected bool
	}{
		{"exact match", "discovery.events.failed", "discovery.events.failed", true},
		{"single wildcard", "discovery.*.failed", "discovery.events.failed", true},
		{"greater wildcard", "discovery.>", "discovery.events.failed", true},
		{"greater wildcard needs a token", "discovery.events.>", "discovery.events", false},
		{"no match length", "discovery.*", "discovery.events.failed", false},
		{"no match tokens", "events.poller.*", "discovery.events.failed", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := matchesSubject(tc.pattern, tc.subject); got != tc.expected {
				t.Fatalf("matchesSubject(%q, %q) = %t, want %t", tc.pattern, tc.subject, got, tc.expected)
			}
		})
	}
}

func TestIsStreamMissingErr(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"jetstream no stream response", jetstream.ErrNoStreamResponse, true},
		{"jetstream stream not found", jetstream.ErrStreamNotFound, true},
		{"nats no stream response", nats.ErrNoStreamResponse, true},
		{"nats stream not found", nats.ErrStreamNotFound, true},
		{"nats no responders", nats.ErrNoResponders, true},
		{"other error", errTestFixture, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := isStreamMissingErr(tc.err); got != tc.expected {
				t.Fatalf("isStreamMissingErr(%v) = %t, want %t", tc.err, got, tc.expected)
			}
		})
	}
}

type recordedPublish struct {
	subject string
	data    []byte
}

type fakeStream struct {
	published []recordedPublish
	err       error
}

func (f *fakeStream) Publish(_ context.Context, subject string, data []byte, _ ...jetstream.PublishOpt) (*jetstream.PubAck, error) {
	if f.err != nil {
		return nil, f.err
	}

	f.published = append(f.published, recordedPublish{subject: subject, data: data})

	return &jetstream.PubAck{Stream: "discovery", Sequence: uint64(len(f.published))}, nil
}

func TestEventPublisherWrapsCloudEvent(t *testing.T) {
	t.Parallel()

	js := &fakeStream{}
	p := newEventPublisher(js, "discovery", "", logger.NewTestLogger())

	finished := time.Date(2025, 4, 2, 9, 0, 5, 0, time.UTC)
	ev := &models.DiscoveryEvent{
		DeviceID:   "dev-1",
		Address:    "10.0.0.1",
		Status:     models.DeviceStatusUp,
		Outcome:    models.OutcomePartial,
		Warnings:   []string{"fdb: timeout"},
		FinishedAt: finished,
	}

	require.NoError(t, p.Publish(context.Background(), ev))
	require.Len(t, js.published, 1)
	assert.Equal(t, "discovery.events.partial", js.published[0].subject)

	var got struct {
		models.CloudEvent
		Data models.DiscoveryEvent `json:"data"`
	}

	require.NoError(t, json.Unmarshal(js.published[0].data, &got))
	assert.Equal(t, "1.0", got.SpecVersion)
	assert.Equal(t, eventType, got.Type)
	assert.Equal(t, "discovery.events.partial", got.Subject)
	assert.NotEmpty(t, got.ID)
	require.NotNil(t, got.Time)
	assert.True(t, got.Time.Equal(finished))
	assert.Equal(t, "dev-1", got.Data.DeviceID)
	assert.Equal(t, []string{"fdb: timeout"}, got.Data.Warnings)
}

func TestEventPublisherReturnsPublishError(t *testing.T) {
	t.Parallel()

	p := newEventPublisher(&fakeStream{err: errTestFixture}, "discovery", "custom.prefix.", logger.NewTestLogger())

	assert.Equal(t, "custom.prefix.failed", p.Subject(models.OutcomeFailed))
	require.ErrorIs(t, p.Publish(context.Background(), &models.DiscoveryEvent{Outcome: models.OutcomeFailed}), errTestFixture)
}

func TestCreateEventPublisherAgainstJetStream(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	srv := runJetStreamServer(t)
	log := logger.NewTestLogger()

	nc, err := Connect(&models.NATSConfig{URL: srv.ClientURL()}, log)
	require.NoError(t, err)
	t.Cleanup(nc.Close)

	p, err := CreateEventPublisher(ctx, nc, "", "", log)
	require.NoError(t, err)

	// a second call finds the stream and leaves its subjects alone
	_, err = CreateEventPublisher(ctx, nc, "", "", log)
	require.NoError(t, err)

	require.NoError(t, p.Publish(ctx, &models.DiscoveryEvent{Address: "10.0.0.1", Outcome: models.OutcomeSuccess}))

	js, err := jetstream.New(nc)
	require.NoError(t, err)

	stream, err := js.Stream(ctx, DefaultStream)
	require.NoError(t, err)

	info, err := stream.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"discovery.events.>"}, info.Config.Subjects)
	assert.Equal(t, uint64(1), info.State.Msgs)

	msg, err := stream.GetLastMsgForSubject(ctx, "discovery.events.success")
	require.NoError(t, err)
	assert.Contains(t, string(msg.Data), `"address":"10.0.0.1"`)
}

func runJetStreamServer(t *testing.T) *server.Server {
	t.Helper()

	opts := &server.Options{
		Host:      "127.0.0.1",
		Port:      -1,
		JetStream: true,
		StoreDir:  t.TempDir(),
	}

	srv, err := server.NewServer(opts)
	require.NoError(t, err)

	go srv.Start()

	if !srv.ReadyForConnections(10 * time.Second) {
		srv.Shutdown()
		t.Fatalf("embedded NATS server not ready for connections")
	}

	require.Eventually(t, func() bool {
		return srv.JetStreamEnabled()
	}, 5*time.Second, 50*time.Millisecond, "embedded NATS server not ready for JetStream")

	t.Cleanup(srv.Shutdown)

	return srv
}
