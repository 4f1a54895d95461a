package indexer

import (
	"testing"

	"github.com/canopy-network/course-indexer/pkg/blob"
	models "github.com/canopy-network/course-indexer/pkg/db/models/indexer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (h *harness) configState(contract blob.Contract) *models.ContractConfigState {
	return load[models.ContractConfigState](h, models.ContractConfigStatesCollection, string(contract))
}

func TestAdminConfigEvents(t *testing.T) {
	const (
		oldWallet = "0x0000000000000000000000000000000000000001"
		newWallet = "0x0000000000000000000000000000000000000002"
	)
	h := newHarness(t)

	tests := []struct {
		name      string
		event     blob.Payload
		contract  blob.Contract
		parameter string
		oldValue  string
		newValue  string
		changes   int64
		check     func(*models.ContractConfigState)
	}{
		{
			name:      "platform fee",
			event:     &blob.PlatformFeeUpdated{PreviousPercent: 2, NewPercent: 5},
			contract:  blob.ContractCourseLicense,
			parameter: "platformFeePercent", oldValue: "2", newValue: "5", changes: 1,
			check: func(c *models.ContractConfigState) { assert.Equal(t, uint64(5), c.PlatformFeePercent) },
		},
		{
			name:      "platform wallet",
			event:     &blob.PlatformWalletUpdated{PreviousWallet: oldWallet, NewWallet: newWallet},
			contract:  blob.ContractCourseLicense,
			parameter: "platformWallet", oldValue: oldWallet, newValue: newWallet, changes: 2,
			check: func(c *models.ContractConfigState) { assert.Equal(t, newWallet, c.PlatformWallet) },
		},
		{
			name:      "first base uri has no previous value",
			event:     &blob.BaseURIUpdated{NewURI: "ipfs://a/"},
			contract:  blob.ContractCourseLicense,
			parameter: "baseURI", oldValue: "", newValue: "ipfs://a/", changes: 3,
			check: func(c *models.ContractConfigState) { assert.Equal(t, "ipfs://a/", c.BaseURI) },
		},
		{
			name:      "base uri previous value comes from the snapshot",
			event:     &blob.BaseURIUpdated{NewURI: "ipfs://b/"},
			contract:  blob.ContractCourseLicense,
			parameter: "baseURI", oldValue: "ipfs://a/", newValue: "ipfs://b/", changes: 4,
			check: func(c *models.ContractConfigState) {
				assert.Equal(t, "ipfs://b/", c.BaseURI)
				assert.Equal(t, uint64(5), c.PlatformFeePercent)
			},
		},
		{
			name:      "certificate mint fee",
			event:     &blob.CertificateFeeUpdated{FeeType: "mint", PreviousFee: wei(0), NewFee: wei(100)},
			contract:  blob.ContractCertificateManager,
			parameter: "certificateMintFee", oldValue: "0", newValue: "100", changes: 1,
			check: func(c *models.ContractConfigState) {
				assert.Equal(t, "100", c.CertificateMintFee.String())
				assert.True(t, c.CertificateUpdateFee.IsZero())
			},
		},
		{
			name:      "certificate update fee",
			event:     &blob.CertificateFeeUpdated{FeeType: "update", PreviousFee: wei(0), NewFee: wei(40)},
			contract:  blob.ContractCertificateManager,
			parameter: "certificateUpdateFee", oldValue: "0", newValue: "40", changes: 2,
			check: func(c *models.ContractConfigState) {
				assert.Equal(t, "100", c.CertificateMintFee.String())
				assert.Equal(t, "40", c.CertificateUpdateFee.String())
			},
		},
		{
			name:      "default base route",
			event:     &blob.DefaultBaseRouteUpdated{PreviousRoute: "/c", NewRoute: "/certs"},
			contract:  blob.ContractCertificateManager,
			parameter: "defaultBaseRoute", oldValue: "/c", newValue: "/certs", changes: 3,
			check: func(c *models.ContractConfigState) { assert.Equal(t, "/certs", c.DefaultBaseRoute) },
		},
		{
			name:      "platform name",
			event:     &blob.PlatformNameUpdated{PreviousName: "Old", NewName: "New"},
			contract:  blob.ContractCertificateManager,
			parameter: "platformName", oldValue: "Old", newValue: "New", changes: 4,
			check: func(c *models.ContractConfigState) { assert.Equal(t, "New", c.PlatformName) },
		},
	}

	for i, tt := range tests {
		ev := h.emit(tt.event)

		audit := load[models.AdminConfigEvent](h, models.AdminConfigEventsCollection, ev.ID)
		assert.Equal(t, string(tt.contract), audit.Contract, tt.name)
		assert.Equal(t, tt.parameter, audit.Parameter, tt.name)
		assert.Equal(t, tt.oldValue, audit.OldValue, tt.name)
		assert.Equal(t, tt.newValue, audit.NewValue, tt.name)
		assert.Equal(t, operator, audit.Actor, tt.name)
		assert.Equal(t, ev.Position.BlockNumber, audit.BlockNumber, tt.name)
		assert.Equal(t, ev.TxHash, audit.TransactionHash, tt.name)

		cfg := h.configState(tt.contract)
		assert.Equal(t, tt.changes, cfg.ChangeCount, tt.name)
		assert.Equal(t, ev.Position.BlockNumber, cfg.LastUpdatedBlock, tt.name)
		tt.check(cfg)

		act := load[models.ActivityEvent](h, models.ActivityEventsCollection, ev.ID)
		assert.Equal(t, models.ActivityAdminConfigChanged, act.Type, tt.name)
		assert.Equal(t, tt.parameter, act.Metadata["parameter"], tt.name)

		require.Equal(t, int64(i+1), h.network().AdminEvents, tt.name)
	}
}

func TestPlatformFeeAppliesToLaterLicenses(t *testing.T) {
	h := newHarness(t)
	h.emit(courseCreated(1, 100))
	h.emit(h.licenseMinted(alice, 1, 100))
	h.emit(&blob.PlatformFeeUpdated{PreviousPercent: 2, NewPercent: 25})
	h.emit(h.licenseMinted(bob, 1, 100))

	assert.Equal(t, "2", h.enrollment(alice, 1).PlatformFee.String())
	assert.Equal(t, "25", h.enrollment(bob, 1).PlatformFee.String())
	assert.Equal(t, "27", h.platform().PlatformFees.String())
}
