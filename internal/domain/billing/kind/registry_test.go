package kind

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetConfig_UnknownKindFails(t *testing.T) {
	_, err := GetConfig("warehouse_transfer")
	require.Error(t, err)
}

func TestGetConfig_EveryKindIsComplete(t *testing.T) {
	for _, k := range AllKinds() {
		cfg, err := GetConfig(k)
		require.NoError(t, err, "kind %s", k)

		assert.NotEmpty(t, cfg.Label, "kind %s has no label", k)
		assert.NotEmpty(t, cfg.Prefix, "kind %s has no prefix", k)
		assert.NotEmpty(t, cfg.StatusOptions, "kind %s has no statuses", k)
		assert.True(t, ValidStatus(k, cfg.DefaultStatus),
			"kind %s default status %s not in status options", k, cfg.DefaultStatus)
		assert.True(t, cfg.RequiresClient != cfg.RequiresSupplier,
			"kind %s must require exactly one of client/supplier", k)
		if cfg.AffectsStock {
			assert.NotEmpty(t, cfg.StockDirection, "kind %s affects stock without direction", k)
		}
	}
}

func TestConversionTargetsAreRegistered(t *testing.T) {
	for _, k := range AllKinds() {
		cfg := MustConfig(k)
		for _, target := range cfg.CanConvertTo {
			_, err := GetConfig(target)
			require.NoError(t, err, "kind %s converts to unregistered %s", k, target)
		}
	}
}

// TestConversionGraphIsAcyclic walks the conversion graph from every kind.
// Each flow advances forward (quote → order → delivery → invoice → credit
// note); a cycle would allow endless document chains.
func TestConversionGraphIsAcyclic(t *testing.T) {
	const (
		unvisited = 0
		inStack   = 1
		done      = 2
	)
	state := make(map[DocumentKind]int)

	var visit func(k DocumentKind) bool
	visit = func(k DocumentKind) bool {
		switch state[k] {
		case inStack:
			return false
		case done:
			return true
		}
		state[k] = inStack
		for _, target := range MustConfig(k).CanConvertTo {
			if !visit(target) {
				return false
			}
		}
		state[k] = done
		return true
	}

	for _, k := range AllKinds() {
		assert.True(t, visit(k), "conversion cycle reachable from %s", k)
	}
}

func TestCreditNoteKinds(t *testing.T) {
	assert.True(t, IsCreditNote(CreditNote))
	assert.True(t, IsCreditNote(PurchaseCreditNote))
	assert.False(t, IsCreditNote(Invoice))
	assert.False(t, IsCreditNote(DeliveryNote))

	// Credit notes are terminal in the conversion graph.
	assert.Empty(t, MustConfig(CreditNote).CanConvertTo)
	assert.Empty(t, MustConfig(PurchaseCreditNote).CanConvertTo)
}

func TestCanConvert(t *testing.T) {
	assert.True(t, CanConvert(Quote, Invoice))
	assert.True(t, CanConvert(DeliveryNote, Invoice))
	assert.True(t, CanConvert(Invoice, CreditNote))
	assert.False(t, CanConvert(Invoice, Quote))
	assert.False(t, CanConvert(CreditNote, Invoice))
	assert.False(t, CanConvert(Invoice, PurchaseCreditNote))
	assert.False(t, CanConvert("bogus", Invoice))
}
