package enums

import "fmt"

// TransactionType discriminates the business transaction behind a ledger entry.
type TransactionType string

const (
	TransactionTypeSale              TransactionType = "sale"
	TransactionTypeGRV               TransactionType = "grv"
	TransactionTypeRefund            TransactionType = "refund"
	TransactionTypeTransferIn        TransactionType = "transfer_in"
	TransactionTypeTransferOut       TransactionType = "transfer_out"
	TransactionTypeAdjustmentIn      TransactionType = "adjustment_in"
	TransactionTypeAdjustmentOut     TransactionType = "adjustment_out"
	TransactionTypeProductionInput   TransactionType = "production_input"
	TransactionTypeProductionOutput  TransactionType = "production_output"
	TransactionTypeRTS               TransactionType = "rts"
	TransactionTypeStocktakeVariance TransactionType = "stocktake_variance"
	TransactionTypeWholesaleSale     TransactionType = "wholesale_sale"
	TransactionTypeWholesaleRefund   TransactionType = "wholesale_refund"
	TransactionTypeAccountPayment    TransactionType = "account_payment"
	TransactionTypeLayby             TransactionType = "layby"
	TransactionTypeQuote             TransactionType = "quote"
)

// TransactionProfile carries the static ledger behavior of a transaction type.
type TransactionProfile struct {
	Label          string
	Direction      MovementDirection
	StockAffecting bool
}

// profileByTransactionType is the closed lookup driving movement generation.
// Non-stock-affecting types have no direction.
var profileByTransactionType = map[TransactionType]TransactionProfile{
	TransactionTypeSale:              {Label: "Point of Sale", Direction: MovementDirectionOut, StockAffecting: true},
	TransactionTypeGRV:               {Label: "Goods Received", Direction: MovementDirectionIn, StockAffecting: true},
	TransactionTypeRefund:            {Label: "Customer Refund", Direction: MovementDirectionIn, StockAffecting: true},
	TransactionTypeTransferIn:        {Label: "Transfer In", Direction: MovementDirectionIn, StockAffecting: true},
	TransactionTypeTransferOut:       {Label: "Transfer Out", Direction: MovementDirectionOut, StockAffecting: true},
	TransactionTypeAdjustmentIn:      {Label: "Stock Adjustment In", Direction: MovementDirectionIn, StockAffecting: true},
	TransactionTypeAdjustmentOut:     {Label: "Stock Adjustment Out", Direction: MovementDirectionOut, StockAffecting: true},
	TransactionTypeProductionInput:   {Label: "Production Input", Direction: MovementDirectionOut, StockAffecting: true},
	TransactionTypeProductionOutput:  {Label: "Production Output", Direction: MovementDirectionIn, StockAffecting: true},
	TransactionTypeRTS:               {Label: "Return To Supplier", Direction: MovementDirectionOut, StockAffecting: true},
	TransactionTypeStocktakeVariance: {Label: "Stocktake Variance", Direction: MovementDirectionOut, StockAffecting: true},
	TransactionTypeWholesaleSale:     {Label: "Wholesale Sale", Direction: MovementDirectionOut, StockAffecting: true},
	TransactionTypeWholesaleRefund:   {Label: "Wholesale Refund", Direction: MovementDirectionIn, StockAffecting: true},
	TransactionTypeAccountPayment:    {Label: "Account Payment", StockAffecting: false},
	TransactionTypeLayby:             {Label: "Layby", Direction: MovementDirectionOut, StockAffecting: true},
	TransactionTypeQuote:             {Label: "Quote", StockAffecting: false},
}

// IsValid reports whether the value matches the canonical transaction enum.
func (t TransactionType) IsValid() bool {
	_, ok := profileByTransactionType[t]
	return ok
}

func (t TransactionType) String() string {
	return string(t)
}

// Profile returns the static ledger behavior for the type.
func (t TransactionType) Profile() (TransactionProfile, error) {
	profile, ok := profileByTransactionType[t]
	if !ok {
		return TransactionProfile{}, fmt.Errorf("invalid transaction type %q", t)
	}
	return profile, nil
}

// IsStockAffecting reports whether the type produces ledger entries at all.
func (t TransactionType) IsStockAffecting() bool {
	profile, ok := profileByTransactionType[t]
	return ok && profile.StockAffecting
}

// ParseTransactionType converts raw input into TransactionType.
func ParseTransactionType(value string) (TransactionType, error) {
	candidate := TransactionType(value)
	if !candidate.IsValid() {
		return "", fmt.Errorf("invalid transaction type %q", value)
	}
	return candidate, nil
}
