package persistence

import (
	"strings"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	normalized := strings.ToUpper(strings.TrimSpace(orderDir))
	if normalized == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns the defaultField if the input is invalid, empty, or not in the whitelist.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// CommonSortFields contains fields common to most entities
var CommonSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
}

// DocumentSortFields contains allowed sort fields for documents
var DocumentSortFields = map[string]bool{
	"id":                true,
	"created_at":        true,
	"updated_at":        true,
	"document_number":   true,
	"kind":              true,
	"counterparty_id":   true,
	"counterparty_name": true,
	"status":            true,
	"subtotal":          true,
	"total":             true,
	"amount_paid":       true,
	"due_date":          true,
	"finalized_at":      true,
	"paid_at":           true,
}

// PaymentSortFields contains allowed sort fields for payments
var PaymentSortFields = map[string]bool{
	"id":              true,
	"created_at":      true,
	"updated_at":      true,
	"payment_number":  true,
	"direction":       true,
	"method":          true,
	"counterparty_id": true,
	"total_amount":    true,
	"status":          true,
	"payment_date":    true,
	"reversed_at":     true,
}

// LedgerAccountSortFields contains allowed sort fields for ledger accounts
var LedgerAccountSortFields = map[string]bool{
	"id":                  true,
	"created_at":          true,
	"updated_at":          true,
	"counterparty_id":     true,
	"counterparty_type":   true,
	"counterparty_name":   true,
	"outstanding_balance": true,
	"total_activity":      true,
	"open_documents":      true,
	"recomputed_at":       true,
}
