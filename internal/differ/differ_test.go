// Copyright (c) 2026 The Concord Consortium.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package differ

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiff(t *testing.T) {
	tests := []struct {
		name        string
		before      string
		after       string
		wantChanged bool
		wantOut     []string
		wantErr     bool
	}{
		{
			name:        "identical",
			before:      `{"CachePolicyId":"abc","MinTTL":0}`,
			after:       `{"MinTTL":0,"CachePolicyId":"abc"}`,
			wantChanged: false,
		},
		{
			name:        "modified value",
			before:      `{"CachePolicyId":"abc"}`,
			after:       `{"CachePolicyId":"d41b1d60"}`,
			wantChanged: true,
			wantOut:     []string{`"abc"`, `"d41b1d60"`},
		},
		{
			name:        "removed key",
			before:      `{"CachePolicyId":"abc","DefaultTTL":86400}`,
			after:       `{"CachePolicyId":"abc"}`,
			wantChanged: true,
			wantOut:     []string{`"DefaultTTL"`},
		},
		{
			name:    "invalid json",
			before:  `{`,
			after:   `{}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			changed, err := Diff(&buf, []byte(tt.before), []byte(tt.after), false)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantChanged, changed)
			if !tt.wantChanged {
				assert.Empty(t, buf.String())
			}
			for _, want := range tt.wantOut {
				assert.Contains(t, buf.String(), want)
			}
		})
	}
}

func TestDiffValues(t *testing.T) {
	type origin struct {
		DomainName string
		Headers    []string
	}

	var buf bytes.Buffer
	changed, err := DiffValues(&buf,
		origin{DomainName: "cc.s3.amazonaws.com"},
		origin{DomainName: "cc.s3.amazonaws.com", Headers: []string{"Origin"}},
		false)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Contains(t, buf.String(), "Origin")
}
