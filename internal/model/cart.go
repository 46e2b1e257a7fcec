package model

// CartLine is one resolved cart item taking part in a checkout.
// It is immutable once it has been added to a session.
type CartLine struct {
	CartItemID  int64  `json:"cartItemId" db:"id"`
	ProductID   string `json:"productId" db:"product_id"`
	ProductName string `json:"productName" db:"name"`
	UnitPrice   int64  `json:"unitPrice" db:"price"`
	Quantity    int    `json:"quantity" db:"quantity"`
}

// Amount returns unitPrice × quantity.
func (l CartLine) Amount() int64 {
	return l.UnitPrice * int64(l.Quantity)
}

// LookupFailure records a cart item that could not be resolved.
type LookupFailure struct {
	CartItemID int64  `json:"cartItemId"`
	Reason     string `json:"reason"`
}
