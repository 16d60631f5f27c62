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
	"encoding/hex"
	"math"
	"strconv"
	"unicode/utf8"
)

// Kind is the closed set of value shapes a binding can decode to.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindInteger
	KindUnsigned // Gauge32, Unsigned32
	KindCounter  // Counter32, Counter64
	KindTimeTicks
	KindOctetString
	KindObjectIdentifier
	KindIPAddress
	KindNull
	KindNoSuchObject
	KindNoSuchInstance
	KindEndOfMibView
	KindOpaque
)

func (k Kind) String() string {
	switch k {
	case KindInteger:
		return "Integer"
	case KindUnsigned:
		return "Unsigned"
	case KindCounter:
		return "Counter"
	case KindTimeTicks:
		return "TimeTicks"
	case KindOctetString:
		return "OctetString"
	case KindObjectIdentifier:
		return "ObjectIdentifier"
	case KindIPAddress:
		return "IpAddress"
	case KindNull:
		return "Null"
	case KindNoSuchObject:
		return "NoSuchObject"
	case KindNoSuchInstance:
		return "NoSuchInstance"
	case KindEndOfMibView:
		return "EndOfMibView"
	case KindOpaque:
		return "Opaque"
	default:
		return "Unknown"
	}
}

// Value is one decoded variable. Only the field matching Kind is meaningful.
type Value struct {
	Kind Kind
	// Tag is the BER tag the value arrived with.
	Tag byte

	i   int64
	u   uint64
	raw []byte
	oid OID
	ip  string
}

// VarBind pairs an identifier with its decoded value.
type VarBind struct {
	OID   OID
	Value Value
}

func IntegerValue(v int64) Value      { return Value{Kind: KindInteger, Tag: 0x02, i: v} }
func UnsignedValue(v uint64) Value    { return Value{Kind: KindUnsigned, Tag: 0x42, u: v} }
func CounterValue(v uint64) Value     { return Value{Kind: KindCounter, Tag: 0x41, u: v} }
func Counter64Value(v uint64) Value   { return Value{Kind: KindCounter, Tag: 0x46, u: v} }
func TimeTicksValue(v uint64) Value   { return Value{Kind: KindTimeTicks, Tag: 0x43, u: v} }
func OctetStringValue(b []byte) Value { return Value{Kind: KindOctetString, Tag: 0x04, raw: b} }
func StringValue(s string) Value      { return OctetStringValue([]byte(s)) }
func OIDValue(o OID) Value            { return Value{Kind: KindObjectIdentifier, Tag: 0x06, oid: o} }
func IPAddressValue(ip string) Value  { return Value{Kind: KindIPAddress, Tag: 0x40, ip: ip} }
func NullValue() Value                { return Value{Kind: KindNull, Tag: 0x05} }
func NoSuchObjectValue() Value        { return Value{Kind: KindNoSuchObject, Tag: 0x80} }
func NoSuchInstanceValue() Value      { return Value{Kind: KindNoSuchInstance, Tag: 0x81} }
func EndOfMibViewValue() Value        { return Value{Kind: KindEndOfMibView, Tag: 0x82} }
func OpaqueValue(b []byte) Value      { return Value{Kind: KindOpaque, Tag: 0x44, raw: b} }

// UnknownValue keeps the payload of a tag the decoder does not understand.
func UnknownValue(tag byte, raw []byte) Value {
	return Value{Kind: KindUnknown, Tag: tag, raw: raw}
}

// IsException reports the three "no value here" markers.
func (v Value) IsException() bool {
	return v.Kind == KindNoSuchObject || v.Kind == KindNoSuchInstance || v.Kind == KindEndOfMibView
}

// Present reports whether the value carries data.
func (v Value) Present() bool {
	return !v.IsException() && v.Kind != KindNull
}

// Int returns the value as a signed integer for the integer-valued kinds.
func (v Value) Int() (int64, bool) {
	switch v.Kind {
	case KindInteger:
		return v.i, true
	case KindUnsigned, KindCounter, KindTimeTicks:
		if v.u > math.MaxInt64 {
			return 0, false
		}

		return int64(v.u), true
	default:
		return 0, false
	}
}

// Uint returns the value as an unsigned integer for the integer-valued kinds.
// Negative Integers are rejected.
func (v Value) Uint() (uint64, bool) {
	switch v.Kind {
	case KindUnsigned, KindCounter, KindTimeTicks:
		return v.u, true
	case KindInteger:
		if v.i < 0 {
			return 0, false
		}

		return uint64(v.i), true
	default:
		return 0, false
	}
}

// Bytes returns the payload of OctetString, Opaque and Unknown values.
func (v Value) Bytes() []byte {
	switch v.Kind {
	case KindOctetString, KindOpaque, KindUnknown:
		return v.raw
	default:
		return nil
	}
}

// OID returns the value of an ObjectIdentifier.
func (v Value) OID() (OID, bool) {
	if v.Kind != KindObjectIdentifier {
		return nil, false
	}

	return v.oid, true
}

// IP returns the dotted address of an IpAddress value.
func (v Value) IP() (string, bool) {
	if v.Kind != KindIPAddress {
		return "", false
	}

	return v.ip, true
}

// String renders the value for display. Octet strings that are not valid
// UTF-8 are shown as hex.
func (v Value) String() string {
	switch v.Kind {
	case KindInteger:
		return strconv.FormatInt(v.i, 10)
	case KindUnsigned, KindCounter, KindTimeTicks:
		return strconv.FormatUint(v.u, 10)
	case KindOctetString:
		if utf8.Valid(v.raw) {
			return string(v.raw)
		}

		return hex.EncodeToString(v.raw)
	case KindObjectIdentifier:
		return v.oid.String()
	case KindIPAddress:
		return v.ip
	case KindOpaque, KindUnknown:
		return hex.EncodeToString(v.raw)
	default:
		return v.Kind.String()
	}
}
