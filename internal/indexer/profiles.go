package indexer

import (
	models "github.com/canopy-network/course-indexer/pkg/db/models/indexer"
	"github.com/canopy-network/course-indexer/pkg/numeric"
)

// touchUser loads or creates the profile of addr and stamps the activity time.
// Callers save the profile after mutating it.
func touchUser(s *session, agg *aggregates, addr string) (*models.UserProfile, error) {
	p, created, err := s.profiles().loadOrCreate(addr)
	if err != nil {
		return nil, err
	}
	if created {
		p.FirstSeenBlock = s.ev.Position.BlockNumber
		agg.platform.TotalUsers++
		agg.daily.NewUsers++
	}
	p.RollMonth(s.ev.Timestamp)
	p.LastActivityAt = s.ev.Timestamp.Unix()
	s.profiles().save(p.ID, p)
	return p, nil
}

func markStudent(agg *aggregates, p *models.UserProfile) {
	if !p.IsStudent {
		p.IsStudent = true
		agg.platform.TotalStudents++
	}
}

func markCreator(agg *aggregates, p *models.UserProfile) {
	if !p.IsCreator {
		p.IsCreator = true
		agg.platform.TotalCreators++
	}
}

func addSpend(p *models.UserProfile, amount numeric.BigInt) {
	p.TotalSpent = p.TotalSpent.Add(amount)
	p.TotalSpentEth = numeric.ToEther(p.TotalSpent)
	p.MonthlySpent = p.MonthlySpent.Add(amount)
}

func addCreatorRevenue(p *models.UserProfile, amount numeric.BigInt) {
	p.CreatorRevenue = p.CreatorRevenue.Add(amount)
	p.CreatorRevenueEth = numeric.ToEther(p.CreatorRevenue)
	p.MonthlyCreatorRevenue = p.MonthlyCreatorRevenue.Add(amount)
}

func refreshCreatorRating(p *models.UserProfile) {
	p.CreatorAverageRating = numeric.Ratio(p.CreatorRatingSum, p.CreatorTotalRatings)
}
