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
	"fmt"
	"math"
	"strconv"

	"github.com/gosnmp/gosnmp"

	"github.com/carverauto/netdiscovery/pkg/logger"
)

// Decoder turns gosnmp packets into VarBinds. It never fails on an unknown
// value tag; such values become KindUnknown and are logged.
type Decoder struct {
	logger logger.Logger
}

// NewDecoder creates a Decoder that reports vendor oddities through log.
func NewDecoder(log logger.Logger) *Decoder {
	return &Decoder{logger: log}
}

// DecodePacket validates the message envelope and decodes every binding.
// Bindings whose identifier cannot be parsed are dropped with a warning;
// envelope problems return a *DecodeError.
func (d *Decoder) DecodePacket(pkt *gosnmp.SnmpPacket) ([]VarBind, error) {
	if pkt == nil {
		return nil, malformed("empty response")
	}

	switch pkt.Version {
	case gosnmp.Version1, gosnmp.Version2c, gosnmp.Version3:
	default:
		return nil, &DecodeError{Reason: ErrUnsupportedVersion, Detail: fmt.Sprintf("version %d", pkt.Version)}
	}

	out := make([]VarBind, 0, len(pkt.Variables))

	for i := range pkt.Variables {
		vb, err := d.DecodePDU(pkt.Variables[i])
		if err != nil {
			d.logger.Warn().Err(err).Str("name", pkt.Variables[i].Name).Msg("Dropping undecodable variable binding")
			continue
		}

		out = append(out, vb)
	}

	return out, nil
}

// DecodePDU decodes a single binding.
func (d *Decoder) DecodePDU(pdu gosnmp.SnmpPDU) (VarBind, error) {
	oid, err := ParseOID(pdu.Name)
	if err != nil {
		return VarBind{}, err
	}

	return VarBind{OID: oid, Value: d.decodeValue(oid, pdu)}, nil
}

func (d *Decoder) decodeValue(oid OID, pdu gosnmp.SnmpPDU) Value {
	tag := byte(pdu.Type)

	switch pdu.Type {
	case gosnmp.Integer:
		if n, ok := asInt64(pdu.Value); ok {
			return Value{Kind: KindInteger, Tag: tag, i: n}
		}
	case gosnmp.Boolean:
		if b, ok := pdu.Value.(bool); ok {
			if b {
				return Value{Kind: KindInteger, Tag: tag, i: 1}
			}

			return Value{Kind: KindInteger, Tag: tag}
		}
	case gosnmp.Counter32, gosnmp.Counter64:
		if n, ok := asUint64(pdu.Value); ok {
			return Value{Kind: KindCounter, Tag: tag, u: n}
		}
	case gosnmp.Gauge32, gosnmp.Uinteger32:
		if n, ok := asUint64(pdu.Value); ok {
			return Value{Kind: KindUnsigned, Tag: tag, u: n}
		}
	case gosnmp.TimeTicks:
		if n, ok := asUint64(pdu.Value); ok {
			return Value{Kind: KindTimeTicks, Tag: tag, u: n}
		}
	case gosnmp.OctetString, gosnmp.BitString, gosnmp.ObjectDescription:
		if b, ok := pdu.Value.([]byte); ok {
			return Value{Kind: KindOctetString, Tag: tag, raw: b}
		}

		if s, ok := pdu.Value.(string); ok {
			return Value{Kind: KindOctetString, Tag: tag, raw: []byte(s)}
		}
	case gosnmp.ObjectIdentifier:
		if s, ok := pdu.Value.(string); ok {
			if v, err := ParseOID(s); err == nil {
				return Value{Kind: KindObjectIdentifier, Tag: tag, oid: v}
			}
		}
	case gosnmp.IPAddress:
		if s, ok := pdu.Value.(string); ok {
			return Value{Kind: KindIPAddress, Tag: tag, ip: s}
		}
	case gosnmp.Null:
		return Value{Kind: KindNull, Tag: tag}
	case gosnmp.NoSuchObject:
		return Value{Kind: KindNoSuchObject, Tag: tag}
	case gosnmp.NoSuchInstance:
		return Value{Kind: KindNoSuchInstance, Tag: tag}
	case gosnmp.EndOfMibView:
		return Value{Kind: KindEndOfMibView, Tag: tag}
	case gosnmp.Opaque, gosnmp.OpaqueFloat, gosnmp.OpaqueDouble:
		return Value{Kind: KindOpaque, Tag: tag, raw: rawBytes(pdu.Value)}
	default:
	}

	d.logger.Warn().
		Str("oid", oid.String()).
		Str("tag", fmt.Sprintf("0x%02x", tag)).
		Str("go_type", fmt.Sprintf("%T", pdu.Value)).
		Msg("Unrecognized value encoding, keeping raw payload")

	return UnknownValue(tag, rawBytes(pdu.Value))
}

func asInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), uint64(n) <= math.MaxInt64
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), n <= math.MaxInt64
	default:
		return 0, false
	}
}

func asUint64(v interface{}) (uint64, bool) {
	switch n := v.(type) {
	case uint:
		return uint64(n), true
	case uint8:
		return uint64(n), true
	case uint16:
		return uint64(n), true
	case uint32:
		return uint64(n), true
	case uint64:
		return n, true
	case int:
		return uint64(n), n >= 0
	case int32:
		return uint64(n), n >= 0
	case int64:
		return uint64(n), n >= 0
	default:
		return 0, false
	}
}

func rawBytes(v interface{}) []byte {
	switch b := v.(type) {
	case nil:
		return nil
	case []byte:
		return b
	case string:
		return []byte(b)
	case float32:
		return []byte(strconv.FormatFloat(float64(b), 'g', -1, 32))
	case float64:
		return []byte(strconv.FormatFloat(b, 'g', -1, 64))
	default:
		return []byte(fmt.Sprintf("%v", b))
	}
}
