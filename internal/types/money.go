// README: Common money value object used across modules.
package types

// Money is an integral amount in the smallest currency unit the business quotes in (whole rupees).
type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}
