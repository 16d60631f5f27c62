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
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    OID
		wantErr bool
	}{
		{name: "leading dot", input: ".1.3.6.1", want: OID{1, 3, 6, 1}},
		{name: "no leading dot", input: "1.3.6.1.2.1.1.5.0", want: OID{1, 3, 6, 1, 2, 1, 1, 5, 0}},
		{name: "max arc", input: ".1.4294967295", want: OID{1, 4294967295}},
		{name: "empty", input: "", wantErr: true},
		{name: "non numeric", input: ".1.3.x", wantErr: true},
		{name: "overflow", input: ".1.4294967296", wantErr: true},
		{name: "empty arc", input: ".1..3", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseOID(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrMalformedMessage)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOIDCompareIsNumeric(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{".1.3.6.1.2.1.2.2.1.2.9", ".1.3.6.1.2.1.2.2.1.2.10", -1},
		{".1.3.6.1.2.1.2.2.1.2.10", ".1.3.6.1.2.1.2.2.1.2.9", 1},
		{".1.3.6", ".1.3.6", 0},
		{".1.3", ".1.3.6", -1},
		{".1.3.7", ".1.3.6.1", 1},
	}

	for _, tt := range tests {
		t.Run(tt.a+" vs "+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.want, MustParseOID(tt.a).Compare(MustParseOID(tt.b)))
		})
	}
}

func TestOIDSortOrder(t *testing.T) {
	oids := []OID{
		MustParseOID(".1.3.6.1.2.1.2.2.1.2.10"),
		MustParseOID(".1.3.6.1.2.1.2.2.1.2.2"),
		MustParseOID(".1.3.6.1.2.1.2.2.1.2.1"),
		MustParseOID(".1.3.6.1.2.1.2.2.1.2.100"),
	}

	sort.Slice(oids, func(i, j int) bool { return oids[i].Compare(oids[j]) < 0 })

	got := make([]string, 0, len(oids))
	for _, o := range oids {
		got = append(got, o.String())
	}

	assert.Equal(t, []string{
		".1.3.6.1.2.1.2.2.1.2.1",
		".1.3.6.1.2.1.2.2.1.2.2",
		".1.3.6.1.2.1.2.2.1.2.10",
		".1.3.6.1.2.1.2.2.1.2.100",
	}, got)
}

func TestOIDSubtree(t *testing.T) {
	root := MustParseOID(".1.3.6.1.2.1.2.2.1.2")

	assert.True(t, root.Contains(MustParseOID(".1.3.6.1.2.1.2.2.1.2.7")))
	assert.False(t, root.Contains(root), "a root is not inside itself")
	assert.True(t, root.HasPrefix(root))

	// textual prefix but a different arc
	assert.False(t, root.Contains(MustParseOID(".1.3.6.1.2.1.2.2.1.20.1")))
	assert.False(t, root.Contains(MustParseOID(".1.3.6.1.2.1.2.2.1.3.1")))

	assert.Equal(t, OID{7, 1}, MustParseOID(".1.3.6.1.2.1.2.2.1.2.7.1").Suffix(root))
	assert.Nil(t, MustParseOID(".1.3.6.1.2.1.31").Suffix(root))
}

func TestOIDAppendDoesNotAlias(t *testing.T) {
	base := make(OID, 3, 10)
	copy(base, OID{1, 3, 6})

	a := base.Append(1)
	b := base.Append(2)

	assert.Equal(t, ".1.3.6.1", a.String())
	assert.Equal(t, ".1.3.6.2", b.String())
}
