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

// Package snmptest provides an in-memory snmp.Transport for tests.
package snmptest

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/carverauto/netdiscovery/pkg/snmp"
)

// Agent is a fake MIB. Objects are kept sorted so walks return them in
// identifier order just like a real agent.
type Agent struct {
	mu      sync.RWMutex
	objects []snmp.VarBind
	errs    map[string]error
	down    error
}

// NewAgent returns an empty agent.
func NewAgent() *Agent {
	return &Agent{errs: make(map[string]error)}
}

// Set stores or replaces one object.
func (a *Agent) Set(oid string, v snmp.Value) *Agent {
	a.mu.Lock()
	defer a.mu.Unlock()

	o := snmp.MustParseOID(oid)

	i := sort.Search(len(a.objects), func(i int) bool { return a.objects[i].OID.Compare(o) >= 0 })
	if i < len(a.objects) && a.objects[i].OID.Equal(o) {
		a.objects[i].Value = v
		return a
	}

	a.objects = append(a.objects, snmp.VarBind{})
	copy(a.objects[i+1:], a.objects[i:])
	a.objects[i] = snmp.VarBind{OID: o, Value: v}

	return a
}

// Delete removes every object under root, root included.
func (a *Agent) Delete(root string) *Agent {
	a.mu.Lock()
	defer a.mu.Unlock()

	r := snmp.MustParseOID(root)
	kept := a.objects[:0]

	for _, vb := range a.objects {
		if !vb.OID.HasPrefix(r) {
			kept = append(kept, vb)
		}
	}

	a.objects = kept

	return a
}

// FailWalk makes walks of root return err. A nil err clears it.
func (a *Agent) FailWalk(root string, err error) *Agent {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err == nil {
		delete(a.errs, snmp.MustParseOID(root).String())
	} else {
		a.errs[snmp.MustParseOID(root).String()] = err
	}

	return a
}

// SetDown makes every request fail with err. A nil err brings the agent back.
func (a *Agent) SetDown(err error) *Agent {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.down = err

	return a
}

// Get implements snmp.Transport.
func (a *Agent) Get(_ context.Context, _ snmp.Target, oids []snmp.OID) ([]snmp.VarBind, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.down != nil {
		return nil, a.down
	}

	out := make([]snmp.VarBind, 0, len(oids))

	for _, o := range oids {
		i := sort.Search(len(a.objects), func(i int) bool { return a.objects[i].OID.Compare(o) >= 0 })
		if i < len(a.objects) && a.objects[i].OID.Equal(o) {
			out = append(out, a.objects[i])
			continue
		}

		out = append(out, snmp.VarBind{OID: o, Value: snmp.NoSuchObjectValue()})
	}

	return out, nil
}

// Walk implements snmp.Transport.
func (a *Agent) Walk(ctx context.Context, _ snmp.Target, root snmp.OID, fn snmp.WalkFunc) error {
	a.mu.RLock()
	if a.down != nil {
		a.mu.RUnlock()
		return a.down
	}

	if err, ok := a.errs[root.String()]; ok {
		a.mu.RUnlock()
		return err
	}

	var page []snmp.VarBind

	for _, vb := range a.objects {
		if root.Contains(vb.OID) {
			page = append(page, vb)
		}
	}
	a.mu.RUnlock()

	for _, vb := range page {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %w", snmp.ErrInterrupted, err)
		}

		if err := fn(vb); err != nil {
			return err
		}
	}

	return nil
}

// Network routes requests to agents by target address.
type Network struct {
	mu     sync.RWMutex
	agents map[string]*Agent
}

// NewNetwork returns an empty network.
func NewNetwork() *Network {
	return &Network{agents: make(map[string]*Agent)}
}

// Add attaches an agent at address and returns it.
func (n *Network) Add(address string, agent *Agent) *Agent {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.agents[address] = agent

	return agent
}

// Remove detaches the agent at address; requests to it then time out.
func (n *Network) Remove(address string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	delete(n.agents, address)
}

func (n *Network) lookup(target snmp.Target) (*Agent, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	a, ok := n.agents[target.Address]
	if !ok {
		return nil, Unreachable(target)
	}

	return a, nil
}

// Get implements snmp.Transport.
func (n *Network) Get(ctx context.Context, target snmp.Target, oids []snmp.OID) ([]snmp.VarBind, error) {
	a, err := n.lookup(target)
	if err != nil {
		return nil, err
	}

	return a.Get(ctx, target, oids)
}

// Walk implements snmp.Transport.
func (n *Network) Walk(ctx context.Context, target snmp.Target, root snmp.OID, fn snmp.WalkFunc) error {
	a, err := n.lookup(target)
	if err != nil {
		return err
	}

	return a.Walk(ctx, target, root, fn)
}

// Unreachable builds the error a real client returns after exhausting retries.
func Unreachable(target snmp.Target) error {
	return &snmp.TransportError{
		Kind:     snmp.KindUnreachable,
		Target:   target.String(),
		Op:       "get",
		Attempts: 1,
		Err:      snmp.ErrTimeout,
	}
}

// AuthRejected builds the error a real client returns for bad credentials.
func AuthRejected(target snmp.Target) error {
	return &snmp.TransportError{
		Kind:     snmp.KindAuthRejected,
		Target:   target.String(),
		Op:       "get",
		Attempts: 1,
		Err:      fmt.Errorf("wrong digest"),
	}
}
