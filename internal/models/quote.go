package models

import (
	"github.com/shopspring/decimal"
)

// Quote is one live stock quote from the market feed
type Quote struct {
	ID           int64
	Symbol       string
	Name         string
	Price        decimal.Decimal
	Change       decimal.Decimal // percentage change
	ChangeAmount decimal.Decimal
	Volume       string
}
