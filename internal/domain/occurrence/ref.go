package occurrence

import (
	"fmt"
	"strings"
	"time"
)

// virtualPrefix is the wire-format marker for virtual occurrence ids:
// virtual_{templateId}_{expectedDate}. Template ids are UUIDs and never
// contain underscores, so splitting into three segments is unambiguous.
const virtualPrefix = "virtual"

// Ref identifies an occurrence on the wire. It is a closed sum of
// StoredRef (a persisted row) and VirtualRef (a template + date pair),
// replacing id-string parsing at call sites.
type Ref interface {
	// String renders the wire format accepted by ParseRef.
	String() string

	isRef()
}

// StoredRef points at a persisted occurrence row.
type StoredRef struct {
	ID string
}

func (r StoredRef) String() string { return r.ID }
func (StoredRef) isRef()           {}

// VirtualRef points at an occurrence materialized from a template for a
// specific expected date.
type VirtualRef struct {
	TemplateID   string
	ExpectedDate time.Time
}

func (r VirtualRef) String() string {
	return fmt.Sprintf("%s_%s_%s", virtualPrefix, r.TemplateID, r.ExpectedDate.Format(time.DateOnly))
}

func (VirtualRef) isRef() {}

// ParseRef decodes an occurrence identifier. Anything not shaped like a
// virtual id is a stored ref; a malformed virtual id is an error so that
// typos do not silently resolve to a nonexistent stored row.
func ParseRef(id string) (Ref, error) {
	if !strings.HasPrefix(id, virtualPrefix+"_") {
		return StoredRef{ID: id}, nil
	}

	parts := strings.SplitN(id, "_", 3)
	if len(parts) != 3 || parts[1] == "" || parts[2] == "" {
		return nil, fmt.Errorf("malformed virtual occurrence id %q", id)
	}

	date, err := time.Parse(time.DateOnly, parts[2])
	if err != nil {
		// Older clients sent full timestamps.
		date, err = time.Parse(time.RFC3339, parts[2])
		if err != nil {
			return nil, fmt.Errorf("malformed virtual occurrence id %q: bad date segment", id)
		}
	}

	return VirtualRef{TemplateID: parts[1], ExpectedDate: date}, nil
}
