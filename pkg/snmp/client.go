/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package snmp is the transport client and message decoder used by the
// discovery engine: request/retry handling, walks over table subtrees and
// decoding of vendor-variable bindings into a closed value type.
package snmp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/gosnmp/gosnmp"

	"github.com/carverauto/netdiscovery/pkg/logger"
)

// Transport is what the prober needs from an SNMP client.
type Transport interface {
	Get(ctx context.Context, target Target, oids []OID) ([]VarBind, error)
	Walk(ctx context.Context, target Target, root OID, fn WalkFunc) error
}

// WalkFunc receives each binding inside the walked subtree, in agent order.
// Returning an error stops the walk and is passed back to the caller.
type WalkFunc func(vb VarBind) error

const (
	defaultTimeout        = 5 * time.Second
	defaultMaxRepetitions = 10
	defaultBackoffInitial = 500 * time.Millisecond
	defaultBackoffMax     = 10 * time.Second
	defaultBackoffFactor  = 2.0
)

// Backoff is an exponential delay schedule.
type Backoff struct {
	Initial    time.Duration
	Multiplier float64
	Max        time.Duration
}

// Next returns the delay that follows d.
func (b Backoff) Next(d time.Duration) time.Duration {
	next := time.Duration(float64(d) * b.Multiplier)
	if next > b.Max || next <= 0 {
		return b.Max
	}

	return next
}

// ClientConfig tunes request behavior.
type ClientConfig struct {
	Timeout        time.Duration
	Retries        int
	Backoff        Backoff
	MaxRepetitions uint32
}

// Client implements Transport. It holds no per-target state; every Get or
// Walk opens its own session and the walk cursor lives on that call's stack.
type Client struct {
	dialer  Dialer
	decoder *Decoder
	cfg     ClientConfig
	logger  logger.Logger
	sleep   func(ctx context.Context, d time.Duration) error
}

// NewClient creates a Client. A nil dialer uses UDPDialer.
func NewClient(cfg ClientConfig, dialer Dialer, log logger.Logger) *Client {
	if dialer == nil {
		dialer = UDPDialer{}
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	if cfg.MaxRepetitions == 0 {
		cfg.MaxRepetitions = defaultMaxRepetitions
	}

	if cfg.Backoff.Initial <= 0 {
		cfg.Backoff.Initial = defaultBackoffInitial
	}

	if cfg.Backoff.Max <= 0 {
		cfg.Backoff.Max = defaultBackoffMax
	}

	if cfg.Backoff.Multiplier < 1 {
		cfg.Backoff.Multiplier = defaultBackoffFactor
	}

	return &Client{
		dialer:  dialer,
		decoder: NewDecoder(log),
		cfg:     cfg,
		logger:  log,
		sleep:   sleepContext,
	}
}

// Get fetches the given scalars. Missing objects come back as exception values.
func (c *Client) Get(ctx context.Context, target Target, oids []OID) ([]VarBind, error) {
	sess, err := c.dial(ctx, target)
	if err != nil {
		return nil, err
	}
	defer c.closeSession(sess, target)

	out := make([]VarBind, 0, len(oids))

	for start := 0; start < len(oids); start += gosnmp.MaxOids {
		end := start + gosnmp.MaxOids
		if end > len(oids) {
			end = len(oids)
		}

		vbs, err := c.getChunk(ctx, sess, target, oids[start:end])
		out = append(out, vbs...)

		if err != nil {
			return out, err
		}
	}

	return out, nil
}

// getChunk issues one GET. A v1 agent rejects the whole request with
// noSuchName when any object is missing, so the offending object is recorded
// as NoSuchObject and the request is repeated without it.
func (c *Client) getChunk(ctx context.Context, sess Session, target Target, oids []OID) ([]VarBind, error) {
	pending := append([]OID(nil), oids...)

	var out []VarBind

	for len(pending) > 0 {
		names := make([]string, 0, len(pending))
		for _, oid := range pending {
			names = append(names, oid.String())
		}

		pkt, err := c.request(ctx, target, "get", func() (*gosnmp.SnmpPacket, error) {
			return sess.Get(names)
		})
		if err != nil {
			return out, err
		}

		if pkt.Error == gosnmp.NoSuchName && pkt.ErrorIndex > 0 && int(pkt.ErrorIndex) <= len(pending) {
			idx := int(pkt.ErrorIndex) - 1
			out = append(out, VarBind{OID: pending[idx], Value: NoSuchObjectValue()})
			pending = append(pending[:idx:idx], pending[idx+1:]...)

			continue
		}

		if pkt.Error != gosnmp.NoError {
			return out, malformed("agent error-status %v for get", pkt.Error)
		}

		vbs, err := c.decoder.DecodePacket(pkt)
		if err != nil {
			return out, err
		}

		return append(out, vbs...), nil
	}

	return out, nil
}

// Walk retrieves every binding under root. v1 targets use GETNEXT, later
// versions GETBULK. The walk ends at the first identifier outside root, at
// EndOfMibView, at a v1 noSuchName, or at an identifier that does not
// follow the previous one; rows delivered before that are kept. Cancellation of ctx is honored only
// between requests.
func (c *Client) Walk(ctx context.Context, target Target, root OID, fn WalkFunc) error {
	sess, err := c.dial(ctx, target)
	if err != nil {
		return err
	}
	defer c.closeSession(sess, target)

	bulk := target.Credentials.Version != Version1
	cursor := root

	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w at %s: %w", ErrInterrupted, cursor, err)
		}

		name := []string{cursor.String()}

		pkt, err := c.request(ctx, target, "walk", func() (*gosnmp.SnmpPacket, error) {
			if bulk {
				return sess.GetBulk(name, 0, c.cfg.MaxRepetitions)
			}

			return sess.GetNext(name)
		})
		if err != nil {
			return err
		}

		switch pkt.Error {
		case gosnmp.NoError:
		case gosnmp.NoSuchName:
			return nil
		default:
			return malformed("agent error-status %v during walk of %s", pkt.Error, root)
		}

		vbs, err := c.decoder.DecodePacket(pkt)
		if err != nil {
			return err
		}

		next, done, err := c.consume(root, cursor, vbs, fn)
		if err != nil || done {
			return err
		}

		cursor = next
	}
}

// consume feeds one response page to fn and returns the new cursor. An agent
// that stops advancing ends the walk with the rows already delivered.
func (c *Client) consume(root, cursor OID, vbs []VarBind, fn WalkFunc) (OID, bool, error) {
	if len(vbs) == 0 {
		return cursor, true, nil
	}

	for _, vb := range vbs {
		if vb.Value.IsException() || !root.Contains(vb.OID) {
			return cursor, true, nil
		}

		if vb.OID.Compare(cursor) <= 0 {
			c.logger.Warn().
				Str("root", root.String()).
				Str("oid", vb.OID.String()).
				Str("after", cursor.String()).
				Msg("Agent returned a non-increasing identifier, ending walk")

			return cursor, true, nil
		}

		if err := fn(vb); err != nil {
			return cursor, true, err
		}

		cursor = vb.OID
	}

	return cursor, false, nil
}

// request runs one exchange with retry. Timeouts and transient network
// errors back off exponentially; authentication failures return at once.
func (c *Client) request(ctx context.Context, target Target, op string, send func() (*gosnmp.SnmpPacket, error)) (*gosnmp.SnmpPacket, error) {
	delay := c.cfg.Backoff.Initial

	for attempt := 1; ; attempt++ {
		pkt, err := send()
		if err == nil {
			if authErr := rejectedByAgent(pkt); authErr != nil {
				return nil, &TransportError{Kind: KindAuthRejected, Target: target.String(), Op: op, Attempts: attempt, Err: authErr}
			}

			return pkt, nil
		}

		switch classify(err) {
		case KindAuthRejected:
			return nil, &TransportError{Kind: KindAuthRejected, Target: target.String(), Op: op, Attempts: attempt, Err: err}
		case "":
			// not a transport condition: the response itself was unusable
			return nil, &DecodeError{Reason: ErrMalformedMessage, Detail: err.Error()}
		}

		if attempt > c.cfg.Retries {
			return nil, &TransportError{
				Kind:     KindUnreachable,
				Target:   target.String(),
				Op:       op,
				Attempts: attempt,
				Err:      fmt.Errorf("%w: %w", ErrTimeout, err),
			}
		}

		c.logger.Debug().
			Str("target", target.String()).
			Str("op", op).
			Int("attempt", attempt).
			Dur("backoff", delay).
			Err(err).
			Msg("Retrying SNMP request")

		if err := c.sleep(ctx, delay); err != nil {
			return nil, fmt.Errorf("%w during retry backoff: %w", ErrInterrupted, err)
		}

		delay = c.cfg.Backoff.Next(delay)
	}
}

func (c *Client) dial(ctx context.Context, target Target) (Session, error) {
	sess, err := c.dialer.Dial(ctx, target, c.cfg.Timeout)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return nil, err
		}

		return nil, &TransportError{Kind: KindUnreachable, Target: target.String(), Op: "dial", Attempts: 1, Err: err}
	}

	return sess, nil
}

func (c *Client) closeSession(sess Session, target Target) {
	if err := sess.Close(); err != nil {
		c.logger.Debug().Err(err).Str("target", target.String()).Msg("Failed to close SNMP session")
	}
}

// usmStats report identifiers that mean the agent refused our credentials.
//
//nolint:gochecknoglobals // constant table
var usmAuthReports = []OID{
	MustParseOID(".1.3.6.1.6.3.15.1.1.1"), // usmStatsUnsupportedSecLevels
	MustParseOID(".1.3.6.1.6.3.15.1.1.3"), // usmStatsUnknownUserNames
	MustParseOID(".1.3.6.1.6.3.15.1.1.5"), // usmStatsWrongDigests
	MustParseOID(".1.3.6.1.6.3.15.1.1.6"), // usmStatsDecryptionErrors
}

func rejectedByAgent(pkt *gosnmp.SnmpPacket) error {
	if pkt == nil {
		return nil
	}

	switch pkt.Error {
	case gosnmp.AuthorizationError, gosnmp.NoAccess:
		return fmt.Errorf("agent returned error-status %v", pkt.Error)
	default:
	}

	if pkt.PDUType != gosnmp.Report {
		return nil
	}

	for _, v := range pkt.Variables {
		oid, err := ParseOID(v.Name)
		if err != nil {
			continue
		}

		for _, report := range usmAuthReports {
			if oid.HasPrefix(report) {
				return fmt.Errorf("agent report %s", oid)
			}
		}
	}

	return nil
}

// classify maps a gosnmp error to a transport kind; "" means the error is
// not a transport condition.
func classify(err error) TransportKind {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}

	msg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(msg, "unknown username"),
		strings.Contains(msg, "wrong digest"),
		strings.Contains(msg, "decryption error"),
		strings.Contains(msg, "not authentic"),
		strings.Contains(msg, "authentication"),
		strings.Contains(msg, "unknown security level"):
		return KindAuthRejected
	case strings.Contains(msg, "timeout"),
		strings.Contains(msg, "timed out"),
		strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "no route to host"),
		strings.Contains(msg, "network is unreachable"):
		return KindTimeout
	case strings.Contains(msg, "unmarshal"),
		strings.Contains(msg, "decode"),
		strings.Contains(msg, "invalid"),
		strings.Contains(msg, "malformed"):
		return ""
	default:
		return KindTimeout
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
