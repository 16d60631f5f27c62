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

package snmp

//go:generate mockgen -destination=mock_session.go -package=snmp github.com/carverauto/netdiscovery/pkg/snmp Session,Dialer

import (
	"context"
	"fmt"
	"time"

	"github.com/gosnmp/gosnmp"
)

// Session is one open exchange with an agent. Each call is a single
// request/response; retries are the Client's job.
type Session interface {
	Get(oids []string) (*gosnmp.SnmpPacket, error)
	GetNext(oids []string) (*gosnmp.SnmpPacket, error)
	GetBulk(oids []string, nonRepeaters uint8, maxRepetitions uint32) (*gosnmp.SnmpPacket, error)
	Close() error
}

// Dialer opens Sessions.
type Dialer interface {
	Dial(ctx context.Context, target Target, timeout time.Duration) (Session, error)
}

// UDPDialer opens gosnmp sessions over UDP.
type UDPDialer struct{}

// Dial implements Dialer. The session's requests are detached from ctx
// cancellation so a request already on the wire is always allowed to finish;
// each one is bounded by timeout instead.
func (UDPDialer) Dial(ctx context.Context, target Target, timeout time.Duration) (Session, error) {
	port := target.Port
	if port == 0 {
		port = defaultPort
	}

	client := &gosnmp.GoSNMP{
		Target:    target.Address,
		Port:      port,
		Transport: "udp",
		Timeout:   timeout,
		// the Client owns retry and backoff
		Retries:            0,
		ExponentialTimeout: false,
		MaxOids:            gosnmp.MaxOids,
		Context:            context.WithoutCancel(ctx),
	}

	if err := target.Credentials.apply(client); err != nil {
		return nil, err
	}

	if err := client.Connect(); err != nil {
		return nil, fmt.Errorf("connect %s: %w", target, err)
	}

	return &gosnmpSession{client: client}, nil
}

type gosnmpSession struct {
	client *gosnmp.GoSNMP
}

func (s *gosnmpSession) Get(oids []string) (*gosnmp.SnmpPacket, error) {
	return s.client.Get(oids)
}

func (s *gosnmpSession) GetNext(oids []string) (*gosnmp.SnmpPacket, error) {
	return s.client.GetNext(oids)
}

func (s *gosnmpSession) GetBulk(oids []string, nonRepeaters uint8, maxRepetitions uint32) (*gosnmp.SnmpPacket, error) {
	return s.client.GetBulk(oids, nonRepeaters, maxRepetitions)
}

func (s *gosnmpSession) Close() error {
	if s.client.Conn == nil {
		return nil
	}

	return s.client.Conn.Close()
}
