package indexer

import (
	"fmt"
	"strconv"

	"github.com/canopy-network/course-indexer/pkg/blob"
	models "github.com/canopy-network/course-indexer/pkg/db/models/indexer"
)

// configChange is one administrative parameter change carried by an event.
type configChange struct {
	parameter string
	oldValue  string
	newValue  string
	apply     func(*models.ContractConfigState)
}

// onConfigChange updates the contract's config snapshot and appends its audit row.
// Parameters that change without an event never reach this path.
func onConfigChange(s *session, agg *aggregates, ch configChange) error {
	contract := string(s.ev.Contract)
	cfg, _, err := s.configStates().loadOrCreate(contract)
	if err != nil {
		return err
	}
	ch.apply(cfg)
	cfg.ChangeCount++
	cfg.LastUpdatedAt = s.ev.Timestamp.Unix()
	cfg.LastUpdatedBlock = s.ev.Position.BlockNumber
	s.configStates().save(cfg.ID, cfg)

	audit := models.NewAdminConfigEvent(s.ev.ID, s.ev.Timestamp)
	audit.Contract = contract
	audit.Parameter = ch.parameter
	audit.OldValue = ch.oldValue
	audit.NewValue = ch.newValue
	audit.Actor = s.ev.From
	audit.BlockNumber = s.ev.Position.BlockNumber
	audit.TransactionHash = s.ev.TxHash
	s.adminConfigEvents().save(audit.ID, audit)

	return record(s, agg, activity{
		kind:        models.ActivityAdminConfigChanged,
		user:        s.ev.From,
		description: fmt.Sprintf("%s %s changed from %q to %q", contract, ch.parameter, ch.oldValue, ch.newValue),
		metadata: map[string]string{
			"contract":  contract,
			"parameter": ch.parameter,
			"oldValue":  ch.oldValue,
			"newValue":  ch.newValue,
		},
	})
}

func onPlatformFeeUpdated(s *session, agg *aggregates, p *blob.PlatformFeeUpdated) error {
	return onConfigChange(s, agg, configChange{
		parameter: "platformFeePercent",
		oldValue:  strconv.FormatUint(p.PreviousPercent, 10),
		newValue:  strconv.FormatUint(p.NewPercent, 10),
		apply:     func(c *models.ContractConfigState) { c.PlatformFeePercent = p.NewPercent },
	})
}

func onPlatformWalletUpdated(s *session, agg *aggregates, p *blob.PlatformWalletUpdated) error {
	return onConfigChange(s, agg, configChange{
		parameter: "platformWallet",
		oldValue:  p.PreviousWallet,
		newValue:  p.NewWallet,
		apply:     func(c *models.ContractConfigState) { c.PlatformWallet = p.NewWallet },
	})
}

func onBaseURIUpdated(s *session, agg *aggregates, p *blob.BaseURIUpdated) error {
	// The event carries only the new value; the old one comes from the snapshot.
	cfg, err := s.configStates().load(string(s.ev.Contract))
	if err != nil {
		return err
	}
	old := ""
	if cfg != nil {
		old = cfg.BaseURI
	}
	return onConfigChange(s, agg, configChange{
		parameter: "baseURI",
		oldValue:  old,
		newValue:  p.NewURI,
		apply:     func(c *models.ContractConfigState) { c.BaseURI = p.NewURI },
	})
}

func onCertificateFeeUpdated(s *session, agg *aggregates, p *blob.CertificateFeeUpdated) error {
	ch := configChange{
		oldValue: p.PreviousFee.String(),
		newValue: p.NewFee.String(),
	}
	if p.FeeType == "mint" {
		ch.parameter = "certificateMintFee"
		ch.apply = func(c *models.ContractConfigState) { c.CertificateMintFee = p.NewFee }
	} else {
		ch.parameter = "certificateUpdateFee"
		ch.apply = func(c *models.ContractConfigState) { c.CertificateUpdateFee = p.NewFee }
	}
	return onConfigChange(s, agg, ch)
}

func onDefaultBaseRouteUpdated(s *session, agg *aggregates, p *blob.DefaultBaseRouteUpdated) error {
	return onConfigChange(s, agg, configChange{
		parameter: "defaultBaseRoute",
		oldValue:  p.PreviousRoute,
		newValue:  p.NewRoute,
		apply:     func(c *models.ContractConfigState) { c.DefaultBaseRoute = p.NewRoute },
	})
}

func onPlatformNameUpdated(s *session, agg *aggregates, p *blob.PlatformNameUpdated) error {
	return onConfigChange(s, agg, configChange{
		parameter: "platformName",
		oldValue:  p.PreviousName,
		newValue:  p.NewName,
		apply:     func(c *models.ContractConfigState) { c.PlatformName = p.NewName },
	})
}
