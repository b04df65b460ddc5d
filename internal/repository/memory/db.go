// Package memory stores the roster in process memory using go-memdb. It backs
// STORAGE=memory and the service tests.
package memory

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/hashicorp/go-memdb"
)

var (
	tblEvents      = "events"
	tblPeople      = "people"
	tblMemberships = "memberships"
	tblInvitations = "invitations"
)

var schema = &memdb.DBSchema{
	Tables: map[string]*memdb.TableSchema{
		tblEvents: {
			Name: tblEvents,
			Indexes: map[string]*memdb.IndexSchema{
				"id": {
					Name:    "id",
					Unique:  true,
					Indexer: &memdb.StringFieldIndex{Field: "ID"},
				},
				"code": {
					Name:    "code",
					Unique:  true,
					Indexer: &memdb.StringFieldIndex{Field: "Code", Lowercase: true},
				},
			},
		},
		tblPeople: {
			Name: tblPeople,
			Indexes: map[string]*memdb.IndexSchema{
				"id": {
					Name:    "id",
					Unique:  true,
					Indexer: &memdb.StringFieldIndex{Field: "ID"},
				},
				"legacy_id": {
					Name:         "legacy_id",
					Unique:       true,
					AllowMissing: true,
					Indexer:      &memdb.StringFieldIndex{Field: "LegacyID"},
				},
				"email": {
					Name:         "email",
					Unique:       true,
					AllowMissing: true,
					Indexer:      &memdb.StringFieldIndex{Field: "Email", Lowercase: true},
				},
			},
		},
		tblMemberships: {
			Name: tblMemberships,
			Indexes: map[string]*memdb.IndexSchema{
				"id": {
					Name:    "id",
					Unique:  true,
					Indexer: &memdb.StringFieldIndex{Field: "ID"},
				},
				"event_id": {
					Name:    "event_id",
					Indexer: &memdb.StringFieldIndex{Field: "EventID"},
				},
				"event_id_person_id": {
					Name:   "event_id_person_id",
					Unique: true,
					Indexer: &memdb.CompoundIndex{
						Indexes: []memdb.Indexer{
							&memdb.StringFieldIndex{Field: "EventID"},
							&memdb.StringFieldIndex{Field: "PersonID"},
						},
					},
				},
				"event_id_role": {
					Name: "event_id_role",
					Indexer: &memdb.CompoundIndex{
						Indexes: []memdb.Indexer{
							&memdb.StringFieldIndex{Field: "EventID"},
							&memdb.StringFieldIndex{Field: "Role"},
						},
					},
				},
			},
		},
		tblInvitations: {
			Name: tblInvitations,
			Indexes: map[string]*memdb.IndexSchema{
				"id": {
					Name:    "id",
					Unique:  true,
					Indexer: &memdb.StringFieldIndex{Field: "ID"},
				},
				"code": {
					Name:    "code",
					Unique:  true,
					Indexer: &memdb.StringFieldIndex{Field: "Code"},
				},
				"membership_id": {
					Name:    "membership_id",
					Unique:  true,
					Indexer: &memdb.StringFieldIndex{Field: "MembershipID"},
				},
			},
		},
	},
}

// DB is an in-memory roster store.
type DB struct {
	db *memdb.MemDB
}

// New returns an empty store.
func New() (*DB, error) {
	memDB, err := memdb.NewMemDB(schema)
	if err != nil {
		return nil, fmt.Errorf("new memdb: %w", err)
	}
	return &DB{db: memDB}, nil
}

func newID() string {
	return uuid.NewString()
}
