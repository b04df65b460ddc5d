package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventroster/internal/domain"
)

func TestIdentityResolver_Resolve(t *testing.T) {
	f := newFixture(t)
	withLegacy := f.addPerson(t, "Ada", "Lovelace", "ada@example.com", "666")
	noLegacy := f.addPerson(t, "Grace", "Hopper", "grace@example.com", "")
	resolver := NewIdentityResolver(f.repos.People)

	tests := []struct {
		name   string
		rec    domain.RemoteMemberRecord
		wantID string
	}{
		{
			name:   "legacy id wins over a different email",
			rec:    domain.RemoteMemberRecord{LegacyID: "666", Email: "grace@example.com"},
			wantID: withLegacy.ID,
		},
		{
			name:   "email match ignores case",
			rec:    domain.RemoteMemberRecord{Email: "GRACE@Example.com "},
			wantID: noLegacy.ID,
		},
		{
			name:   "unknown legacy id falls back to email",
			rec:    domain.RemoteMemberRecord{LegacyID: "777", Email: "grace@example.com"},
			wantID: noLegacy.ID,
		},
		{
			name:   "email of someone with another legacy id is not a match",
			rec:    domain.RemoteMemberRecord{LegacyID: "777", Email: "ada@example.com"},
			wantID: "",
		},
		{
			name:   "no match",
			rec:    domain.RemoteMemberRecord{LegacyID: "999", Email: "nobody@example.com"},
			wantID: "",
		},
		{
			name:   "no identifiers at all",
			rec:    domain.RemoteMemberRecord{Firstname: "Ada", Lastname: "Lovelace"},
			wantID: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolver.Resolve(context.Background(), tt.rec)
			require.NoError(t, err)
			if tt.wantID == "" {
				assert.True(t, got.New())
				return
			}
			require.False(t, got.New())
			assert.Equal(t, tt.wantID, got.Person.ID)
		})
	}
}
