package model

// SyncResult is the per-provider outcome of one synchronize run. The engine
// always returns one result per configured provider, success or not.
type SyncResult struct {
	Success bool   `json:"success"`
	Count   int    `json:"count"`
	Error   string `json:"error,omitempty"`
}

// ProviderBalance is the balance figure an adapter reports for one account.
// Available and CreditLimit are nil when the provider does not supply them.
type ProviderBalance struct {
	SourceAccountID string   `json:"source_account_id"`
	Current         float64  `json:"current"`
	Available       *float64 `json:"available,omitempty"`
	CreditLimit     *float64 `json:"credit_limit,omitempty"`
	Currency        string   `json:"currency"`
}

// DailySummary is the aggregate the daily report job derives from one day of
// debit transactions.
type DailySummary struct {
	Date               string  `json:"date"`
	TotalSpent         float64 `json:"total_spent"`
	TransactionCount   int     `json:"transaction_count"`
	TopCategory        string  `json:"top_category"`
	TopCategoryAmount  float64 `json:"top_category_amount"`
	AverageTransaction float64 `json:"average_transaction"`
}
