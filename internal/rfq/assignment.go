package rfq

import (
	"sort"

	"github.com/izerwaren/b2bportal/internal/domain"
)

// HasCapacity reports whether a rep can take one more RFQ
func HasCapacity(rep *domain.AccountRep) bool {
	return rep.MaxRfqCapacity == nil || rep.CurrentAssignedCount < *rep.MaxRfqCapacity
}

// RankCandidates filters reps to those able to take an RFQ from region and orders them best first:
// bounded reps by lowest load ratio, then unbounded reps; ties by lowest assigned count, then by id.
// CurrentAssignedCount must come from a live count.
func RankCandidates(reps []*domain.AccountRep, region string) []*domain.AccountRep {
	candidates := make([]*domain.AccountRep, 0, len(reps))
	for _, rep := range reps {
		if !rep.IsActive || !rep.CoversRegion(region) || !HasCapacity(rep) {
			continue
		}
		if rep.MaxRfqCapacity != nil && *rep.MaxRfqCapacity <= 0 {
			continue
		}
		candidates = append(candidates, rep)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		aBounded, bBounded := a.MaxRfqCapacity != nil, b.MaxRfqCapacity != nil
		if aBounded != bBounded {
			return aBounded
		}
		if aBounded {
			// a.count/a.cap < b.count/b.cap without floating point
			left := a.CurrentAssignedCount * *b.MaxRfqCapacity
			right := b.CurrentAssignedCount * *a.MaxRfqCapacity
			if left != right {
				return left < right
			}
		}
		if a.CurrentAssignedCount != b.CurrentAssignedCount {
			return a.CurrentAssignedCount < b.CurrentAssignedCount
		}
		return a.ID.String() < b.ID.String()
	})
	return candidates
}

// SelectRep returns the best candidate for an RFQ from region
func SelectRep(reps []*domain.AccountRep, region string) (*domain.AccountRep, bool) {
	ranked := RankCandidates(reps, region)
	if len(ranked) == 0 {
		return nil, false
	}
	return ranked[0], true
}
