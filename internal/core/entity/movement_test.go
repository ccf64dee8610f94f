package entity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
)

func split(productID id.ID, b, p *types.RawQuantity) Item {
	return Item{ProductID: productID, QuantityBulk: b, QuantityPacked: p}
}

func TestMovementValidate_Split(t *testing.T) {
	productID := id.New()
	date := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	garbage := types.RawQuantity("كثير")

	tests := []struct {
		name    string
		item    Item
		wantErr bool
	}{
		{name: "both positive", item: split(productID, types.QPtr(10), types.QPtr(3))},
		{name: "both negative", item: split(productID, types.QPtr(-10), types.QPtr(-3))},
		{name: "one side zero", item: split(productID, types.QPtr(-10), types.QPtr(0))},
		{name: "one side missing", item: split(productID, nil, types.QPtr(-3))},
		{name: "unparseable side", item: split(productID, &garbage, types.QPtr(-3))},
		{name: "bulk in packed out", item: split(productID, types.QPtr(10), types.QPtr(-3)), wantErr: true},
		{name: "bulk out packed in", item: split(productID, types.QPtr(-1), types.QPtr(0.5)), wantErr: true},
		{name: "no product", item: Item{Quantity: "1"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMovement("finished_goods", MovementAdjustment, date, "", tt.item)
			err := m.Validate(context.Background())
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, apperror.IsCode(err, apperror.CodeValidation), "got %v", err)
		})
	}
}

func TestSaleValidate_Split(t *testing.T) {
	date := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	s := NewSale("finished_goods", date, split(id.New(), types.QPtr(-2), types.QPtr(4)))

	err := s.Validate(context.Background())
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
	assert.Contains(t, err.Error(), "opposite signs")
}

func TestMovementTouches(t *testing.T) {
	m := NewMovement("raw_materials", MovementTransfer, time.Now(), "")
	m.TargetScope = "finished_goods"

	assert.True(t, m.Touches("raw_materials"))
	assert.True(t, m.Touches("finished_goods"))
	assert.False(t, m.Touches("parts"))

	m.Type = MovementIn
	assert.False(t, m.Touches("finished_goods"), "only transfers reach a target scope")
}
