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

import (
	"testing"

	"github.com/gosnmp/gosnmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/netdiscovery/pkg/logger"
)

func TestDecodePDUMatchesConstructors(t *testing.T) {
	d := NewDecoder(logger.NewTestLogger())

	tests := []struct {
		name string
		pdu  gosnmp.SnmpPDU
		want Value
	}{
		{"integer", gosnmp.SnmpPDU{Type: gosnmp.Integer, Value: -3}, IntegerValue(-3)},
		{"gauge", gosnmp.SnmpPDU{Type: gosnmp.Gauge32, Value: uint(100)}, UnsignedValue(100)},
		{"counter32", gosnmp.SnmpPDU{Type: gosnmp.Counter32, Value: uint(7)}, CounterValue(7)},
		{"counter64", gosnmp.SnmpPDU{Type: gosnmp.Counter64, Value: uint64(1 << 40)}, Counter64Value(1 << 40)},
		{"timeticks", gosnmp.SnmpPDU{Type: gosnmp.TimeTicks, Value: uint32(42)}, TimeTicksValue(42)},
		{"octet string", gosnmp.SnmpPDU{Type: gosnmp.OctetString, Value: []byte("Gi0/1")}, StringValue("Gi0/1")},
		{"ip address", gosnmp.SnmpPDU{Type: gosnmp.IPAddress, Value: "10.0.0.1"}, IPAddressValue("10.0.0.1")},
		{"null", gosnmp.SnmpPDU{Type: gosnmp.Null}, NullValue()},
		{"no such object", gosnmp.SnmpPDU{Type: gosnmp.NoSuchObject}, NoSuchObjectValue()},
		{"no such instance", gosnmp.SnmpPDU{Type: gosnmp.NoSuchInstance}, NoSuchInstanceValue()},
		{"end of mib view", gosnmp.SnmpPDU{Type: gosnmp.EndOfMibView}, EndOfMibViewValue()},
		{"opaque", gosnmp.SnmpPDU{Type: gosnmp.Opaque, Value: []byte{0x9f, 0x78}}, OpaqueValue([]byte{0x9f, 0x78})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.pdu.Name = ".1.3.6.1.2.1.1.1.0"

			vb, err := d.DecodePDU(tt.pdu)
			require.NoError(t, err)
			assert.Equal(t, tt.want, vb.Value)
			assert.Equal(t, tt.want.IsException(), vb.Value.IsException())
		})
	}
}

func TestDecodePDU(t *testing.T) {
	d := NewDecoder(logger.NewTestLogger())

	tests := []struct {
		name     string
		pdu      gosnmp.SnmpPDU
		wantKind Kind
		check    func(t *testing.T, v Value)
	}{
		{
			name:     "integer",
			pdu:      gosnmp.SnmpPDU{Name: ".1.3.6.1.2.1.2.2.1.7.1", Type: gosnmp.Integer, Value: 1},
			wantKind: KindInteger,
			check: func(t *testing.T, v Value) {
				n, ok := v.Int()
				require.True(t, ok)
				assert.Equal(t, int64(1), n)
			},
		},
		{
			name:     "gauge",
			pdu:      gosnmp.SnmpPDU{Name: ".1.3.6.1.2.1.2.2.1.5.1", Type: gosnmp.Gauge32, Value: uint(1000000000)},
			wantKind: KindUnsigned,
			check: func(t *testing.T, v Value) {
				n, ok := v.Uint()
				require.True(t, ok)
				assert.Equal(t, uint64(1000000000), n)
			},
		},
		{
			name:     "counter64",
			pdu:      gosnmp.SnmpPDU{Name: ".1.3.6.1.2.1.31.1.1.1.6.1", Type: gosnmp.Counter64, Value: uint64(1 << 40)},
			wantKind: KindCounter,
			check: func(t *testing.T, v Value) {
				n, ok := v.Uint()
				require.True(t, ok)
				assert.Equal(t, uint64(1<<40), n)
			},
		},
		{
			name:     "timeticks",
			pdu:      gosnmp.SnmpPDU{Name: ".1.3.6.1.2.1.1.3.0", Type: gosnmp.TimeTicks, Value: uint32(12345)},
			wantKind: KindTimeTicks,
		},
		{
			name:     "octet string",
			pdu:      gosnmp.SnmpPDU{Name: ".1.3.6.1.2.1.1.5.0", Type: gosnmp.OctetString, Value: []byte("switch-A")},
			wantKind: KindOctetString,
			check: func(t *testing.T, v Value) {
				assert.Equal(t, "switch-A", v.String())
			},
		},
		{
			name:     "object identifier",
			pdu:      gosnmp.SnmpPDU{Name: ".1.3.6.1.2.1.1.2.0", Type: gosnmp.ObjectIdentifier, Value: ".1.3.6.1.4.1.9.1.1208"},
			wantKind: KindObjectIdentifier,
			check: func(t *testing.T, v Value) {
				oid, ok := v.OID()
				require.True(t, ok)
				assert.Equal(t, ".1.3.6.1.4.1.9.1.1208", oid.String())
			},
		},
		{
			name:     "ip address",
			pdu:      gosnmp.SnmpPDU{Name: ".1.3.6.1.2.1.4.20.1.1.10.0.0.1", Type: gosnmp.IPAddress, Value: "10.0.0.1"},
			wantKind: KindIPAddress,
		},
		{
			name:     "no such object",
			pdu:      gosnmp.SnmpPDU{Name: ".1.0.8802.1.1.2.1.3.2.0", Type: gosnmp.NoSuchObject},
			wantKind: KindNoSuchObject,
			check: func(t *testing.T, v Value) {
				assert.True(t, v.IsException())
				assert.False(t, v.Present())
			},
		},
		{
			name:     "end of mib view",
			pdu:      gosnmp.SnmpPDU{Name: ".1.3.6.1.2.1.17.4.3.1.2", Type: gosnmp.EndOfMibView},
			wantKind: KindEndOfMibView,
		},
		{
			name:     "unknown tag keeps payload",
			pdu:      gosnmp.SnmpPDU{Name: ".1.3.6.1.4.1.9999.1.0", Type: gosnmp.Asn1BER(0x9f), Value: []byte{0xde, 0xad}},
			wantKind: KindUnknown,
			check: func(t *testing.T, v Value) {
				assert.Equal(t, byte(0x9f), v.Tag)
				assert.Equal(t, []byte{0xde, 0xad}, v.Bytes())
				assert.Equal(t, "dead", v.String())
			},
		},
		{
			name:     "integer tag with unexpected go type falls back to unknown",
			pdu:      gosnmp.SnmpPDU{Name: ".1.3.6.1.2.1.2.2.1.8.1", Type: gosnmp.Integer, Value: "up"},
			wantKind: KindUnknown,
			check: func(t *testing.T, v Value) {
				assert.Equal(t, []byte("up"), v.Bytes())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vb, err := d.DecodePDU(tt.pdu)
			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, vb.Value.Kind)

			if tt.check != nil {
				tt.check(t, vb.Value)
			}
		})
	}
}

func TestDecodePacketEnvelope(t *testing.T) {
	d := NewDecoder(logger.NewTestLogger())

	_, err := d.DecodePacket(nil)
	assert.ErrorIs(t, err, ErrMalformedMessage)

	_, err = d.DecodePacket(&gosnmp.SnmpPacket{Version: gosnmp.SnmpVersion(7)})
	assert.ErrorIs(t, err, ErrUnsupportedVersion)

	var decErr *DecodeError
	assert.ErrorAs(t, err, &decErr)
}

func TestDecodePacketDropsOnlyBadBindings(t *testing.T) {
	d := NewDecoder(logger.NewTestLogger())

	vbs, err := d.DecodePacket(&gosnmp.SnmpPacket{
		Version: gosnmp.Version2c,
		Variables: []gosnmp.SnmpPDU{
			{Name: ".1.3.6.1.2.1.1.5.0", Type: gosnmp.OctetString, Value: []byte("a")},
			{Name: "not-an-oid", Type: gosnmp.OctetString, Value: []byte("b")},
			{Name: ".1.3.6.1.2.1.1.6.0", Type: gosnmp.OctetString, Value: []byte("c")},
		},
	})
	require.NoError(t, err)
	require.Len(t, vbs, 2)
	assert.Equal(t, "a", vbs[0].Value.String())
	assert.Equal(t, "c", vbs[1].Value.String())
}

func TestValueCoercion(t *testing.T) {
	_, ok := IntegerValue(-1).Uint()
	assert.False(t, ok, "negative integers are not unsigned")

	n, ok := CounterValue(42).Int()
	assert.True(t, ok)
	assert.Equal(t, int64(42), n)

	_, ok = StringValue("42").Int()
	assert.False(t, ok, "octet strings are not implicitly numeric")

	assert.Equal(t, "00a0b0ff", OctetStringValue([]byte{0x00, 0xa0, 0xb0, 0xff}).String(), "binary strings render as hex")
	assert.Equal(t, "eth0", StringValue("eth0").String())
}
