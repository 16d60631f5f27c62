package natsutil

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/carverauto/netdiscovery/pkg/logger"
	"github.com/carverauto/netdiscovery/pkg/scheduler"
)

const (
	DefaultProbeSubject = "discovery.probe"

	probeQueueGroup     = "netdiscovery"
	defaultProbeTimeout = 10 * time.Second
)

var errEmptyProbeRequest = errors.New("probe request names no device")

// ProbeRequester queues a manual probe of a device id or address.
type ProbeRequester interface {
	ProbeNow(ctx context.Context, deviceIDOrAddress string) (scheduler.Job, error)
}

// ProbeRequest is the body of a probe request. A bare address or device id
// is accepted as well.
type ProbeRequest struct {
	Device string `json:"device"`
}

// ProbeReply answers a probe request.
type ProbeReply struct {
	Queued      bool      `json:"queued"`
	Address     string    `json:"address,omitempty"`
	ScheduledAt time.Time `json:"scheduled_at,omitempty"`
	Error       string    `json:"error,omitempty"`
}

// ProbeResponder serves manual probe requests on a NATS subject.
type ProbeResponder struct {
	nc      *nats.Conn
	subject string
	engine  ProbeRequester
	timeout time.Duration
	logger  logger.Logger
}

// NewProbeResponder creates a responder for subject, or DefaultProbeSubject
// when subject is empty.
func NewProbeResponder(nc *nats.Conn, subject string, engine ProbeRequester, log logger.Logger) *ProbeResponder {
	if subject == "" {
		subject = DefaultProbeSubject
	}

	return &ProbeResponder{
		nc:      nc,
		subject: subject,
		engine:  engine,
		timeout: defaultProbeTimeout,
		logger:  log,
	}
}

// Run serves requests until ctx is done. Several instances share the load
// through a queue group.
func (r *ProbeResponder) Run(ctx context.Context) error {
	sub, err := r.nc.QueueSubscribe(r.subject, probeQueueGroup, func(msg *nats.Msg) {
		reqCtx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()

		body := r.handle(reqCtx, msg.Data)

		if msg.Reply == "" {
			return
		}

		if err := msg.Respond(body); err != nil {
			r.logger.Warn().Err(err).Str("subject", r.subject).Msg("Failed to answer probe request")
		}
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", r.subject, err)
	}

	r.logger.Info().Str("subject", r.subject).Msg("Serving probe requests")

	<-ctx.Done()

	if err := sub.Drain(); err != nil {
		r.logger.Warn().Err(err).Msg("Failed to drain probe subscription")
	}

	return nil
}

func (r *ProbeResponder) handle(ctx context.Context, data []byte) []byte {
	var reply ProbeReply

	device, err := parseProbeRequest(data)
	if err == nil {
		var job scheduler.Job

		job, err = r.engine.ProbeNow(ctx, device)
		if err == nil {
			reply = ProbeReply{Queued: true, Address: job.DeviceID, ScheduledAt: job.ScheduledAt}
		}
	}

	if err != nil {
		r.logger.Info().Err(err).Str("device", device).Msg("Probe request rejected")
		reply.Error = err.Error()
	}

	out, _ := json.Marshal(reply)

	return out
}

func parseProbeRequest(data []byte) (string, error) {
	raw := strings.TrimSpace(string(data))

	if strings.HasPrefix(raw, "{") {
		var req ProbeRequest
		if err := json.Unmarshal([]byte(raw), &req); err != nil {
			return "", fmt.Errorf("invalid probe request: %w", err)
		}

		raw = strings.TrimSpace(req.Device)
	}

	if raw == "" {
		return "", errEmptyProbeRequest
	}

	return raw, nil
}
