package indexer

import (
	"github.com/canopy-network/course-indexer/pkg/blob"
	models "github.com/canopy-network/course-indexer/pkg/db/models/indexer"
	"github.com/canopy-network/course-indexer/pkg/ident"
	"github.com/canopy-network/course-indexer/pkg/numeric"
)

// aggregates is the single owner of the singleton counters for one event.
// Every handler receives it explicitly; nothing else writes these rows.
type aggregates struct {
	network  *models.NetworkStats
	platform *models.PlatformStats
	daily    *models.DailyNetworkStats
}

func loadAggregates(s *session) (*aggregates, error) {
	network, _, err := s.networkStats().loadOrCreate(ident.NetworkStatsID)
	if err != nil {
		return nil, err
	}
	platform, _, err := s.platformStats().loadOrCreate(ident.PlatformStatsID)
	if err != nil {
		return nil, err
	}
	daily, _, err := s.dailyStats().loadOrCreate(ident.DayID(s.ev.Timestamp))
	if err != nil {
		return nil, err
	}
	return &aggregates{network: network, platform: platform, daily: daily}, nil
}

func (a *aggregates) save(s *session) {
	a.platform.UpdatedAt = s.ev.Timestamp.Unix()
	s.networkStats().save(a.network.ID, a.network)
	s.platformStats().save(a.platform.ID, a.platform)
	s.dailyStats().save(a.daily.ID, a.daily)
}

// countEvent applies the counters every handled event contributes, whatever its kind.
func (a *aggregates) countEvent(ev *blob.Event) {
	n := a.network
	first := n.TotalEvents == 0
	ts := ev.Timestamp.Unix()

	if first {
		n.FirstBlockNumber = ev.Position.BlockNumber
	} else {
		n.AverageBlockTime = ts - n.LastBlockTimestamp
	}
	newTx := first || ev.TxHash != n.LastTransactionHash
	newBlock := first || ev.Position.BlockNumber != n.LastBlockNumber

	n.TotalEvents++
	if newTx {
		n.TotalTransactions++
	}
	if newBlock {
		n.TotalBlocks++
	}

	switch ev.Contract {
	case blob.ContractCourseFactory:
		n.CourseFactoryEvents++
	case blob.ContractCourseLicense:
		n.CourseLicenseInteractions++
	case blob.ContractProgressTracker:
		n.ProgressTrackerEvents++
	case blob.ContractCertificateManager:
		n.CertificateManagerEvents++
	}
	if isAdmin(ev.Kind) {
		n.AdminEvents++
	}

	n.LastBlockNumber = ev.Position.BlockNumber
	n.LastBlockTimestamp = ts
	n.LastTransactionHash = ev.TxHash

	d := a.daily
	if d.Events == 0 {
		d.FirstBlock = ev.Position.BlockNumber
	}
	d.Events++
	if newTx {
		d.Transactions++
	}
	d.LastBlock = ev.Position.BlockNumber
}

// payment is one split amount.
type payment struct {
	amount  numeric.BigInt
	fee     numeric.BigInt
	creator numeric.BigInt
}

func splitPayment(amount numeric.BigInt, percent uint64) payment {
	fee, creator := numeric.SplitRevenue(amount, percent)
	return payment{amount: amount, fee: fee, creator: creator}
}

// addRevenue books a payment on the platform and daily rows.
func (a *aggregates) addRevenue(p payment) {
	pl := a.platform
	pl.TotalRevenue = pl.TotalRevenue.Add(p.amount)
	pl.TotalRevenueEth = numeric.ToEther(pl.TotalRevenue)
	pl.PlatformFees = pl.PlatformFees.Add(p.fee)
	pl.PlatformFeesEth = numeric.ToEther(pl.PlatformFees)
	pl.CreatorRevenue = pl.CreatorRevenue.Add(p.creator)
	pl.CreatorRevenueEth = numeric.ToEther(pl.CreatorRevenue)

	d := a.daily
	d.Revenue = d.Revenue.Add(p.amount)
	d.RevenueEth = numeric.ToEther(d.Revenue)
	d.PlatformFees = d.PlatformFees.Add(p.fee)
	d.PlatformFeesEth = numeric.ToEther(d.PlatformFees)
}

func isAdmin(kind blob.Kind) bool {
	switch kind {
	case blob.KindPlatformFeeUpdated, blob.KindPlatformWalletUpdated, blob.KindBaseURIUpdated,
		blob.KindCertificateFeeUpdated, blob.KindDefaultBaseRouteUpdated, blob.KindPlatformNameUpdated:
		return true
	}
	return false
}
