package reconcile

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"trucking-dispatch-core/internal/apperr"
	"trucking-dispatch-core/internal/domain"
)

// Policy decides which assignment of a resource conflict survives.
type Policy string

// Conflict policies. Newest keeps the most recently created assignment;
// InProgress prefers an on_duty assignment and falls back to newest.
const (
	PolicyNewest     Policy = "newest"
	PolicyInProgress Policy = "in_progress"
)

// ParsePolicy parses a policy name; empty means newest.
func ParsePolicy(raw string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(raw))); p {
	case "":
		return PolicyNewest, nil
	case PolicyNewest, PolicyInProgress:
		return p, nil
	default:
		return "", fmt.Errorf("unknown conflict policy %q: %w", raw, apperr.ErrInvalid)
	}
}

// Resolve splits conflicting assignments into keepers and assignments to cancel.
// Candidates are visited in preference order; one is kept unless its window
// overlaps an already kept assignment.
func (p Policy) Resolve(members []domain.ConflictingAssignment) (keep, cancel []uuid.UUID) {
	ordered := slices.Clone(members)
	slices.SortFunc(ordered, func(a, b domain.ConflictingAssignment) int {
		if p == PolicyInProgress {
			ao, bo := a.Status == domain.AssignmentOnDuty, b.Status == domain.AssignmentOnDuty
			if ao != bo {
				if ao {
					return -1
				}
				return 1
			}
		}
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.AssignmentID.String(), a.AssignmentID.String())
	})

	var kept []domain.ConflictingAssignment
	for _, m := range ordered {
		clash := slices.ContainsFunc(kept, func(k domain.ConflictingAssignment) bool {
			return domain.Overlaps(m.StartDate, m.EndDate, k.StartDate, k.EndDate)
		})
		if clash {
			cancel = append(cancel, m.AssignmentID)
			continue
		}
		kept = append(kept, m)
		keep = append(keep, m.AssignmentID)
	}
	return keep, cancel
}
