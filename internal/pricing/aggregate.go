package pricing

// DiscountType selects how the cart discount input is interpreted.
type DiscountType string

const (
	// DiscountPercentage treats the discount value as basis points of the subtotal.
	DiscountPercentage DiscountType = "percentage"
	// DiscountFlat treats the discount value as a flat paise amount.
	DiscountFlat DiscountType = "flat"
)

// Summary aggregates computed cart totals.
type Summary struct {
	Subtotal       Money `json:"subtotal"`
	GSTAmount      Money `json:"gstAmount"`
	Total          Money `json:"total"`
	DiscountAmount Money `json:"discountAmount"`
	FinalTotal     Money `json:"finalTotal"`
	AmountPaid     Money `json:"amountPaid"`
	BalanceDue     Money `json:"balanceDue"`
}

// Aggregate recomputes cart totals from line totals and the user-editable
// summary inputs. cartGSTBps is the blended cart-level GST applied on the
// subtotal in addition to the per-line GST already inside each total; a
// deployment that wants single taxation configures it to 0.
func Aggregate(lineTotals []Money, discount int64, discountType DiscountType, amountPaid Money, cartGSTBps int) Summary {
	var subtotal Money
	for _, t := range lineTotals {
		if t <= 0 {
			continue
		}
		subtotal += t
	}
	gstBps := int64(cartGSTBps)
	if gstBps < 0 {
		gstBps = 0
	}
	gstAmount := subtotal * gstBps / 10000
	total := subtotal + gstAmount

	if discount < 0 {
		discount = 0
	}
	var discountAmount Money
	if discountType == DiscountPercentage {
		discountAmount = subtotal * discount / 10000
	} else {
		discountAmount = discount
	}
	if discountAmount > total {
		discountAmount = total
	}
	finalTotal := total - discountAmount
	if amountPaid < 0 {
		amountPaid = 0
	}
	return Summary{
		Subtotal:       subtotal,
		GSTAmount:      gstAmount,
		Total:          total,
		DiscountAmount: discountAmount,
		FinalTotal:     finalTotal,
		AmountPaid:     amountPaid,
		BalanceDue:     finalTotal - amountPaid,
	}
}
