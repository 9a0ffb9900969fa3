package dbtypes

import (
	"database/sql/driver"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// UUIDArray maps a postgres uuid[] column onto a uuid slice. Proposals use it
// for their addon selection.
type UUIDArray []uuid.UUID

// Value renders the slice as a postgres array literal via pq.
func (a UUIDArray) Value() (driver.Value, error) {
	raw := make(pq.StringArray, len(a))
	for i, id := range a {
		raw[i] = id.String()
	}
	return raw.Value()
}

// Scan reads the postgres array literal and parses each element.
func (a *UUIDArray) Scan(src any) error {
	var raw pq.StringArray
	if err := raw.Scan(src); err != nil {
		return fmt.Errorf("uuid array: %w", err)
	}

	out := make([]uuid.UUID, 0, len(raw))
	for _, element := range raw {
		id, err := uuid.Parse(element)
		if err != nil {
			return fmt.Errorf("uuid array element %q: %w", element, err)
		}
		out = append(out, id)
	}
	*a = out
	return nil
}
