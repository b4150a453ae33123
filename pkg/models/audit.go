package models

import "time"

// AuditEntry records a single vault operation. Secret values and key
// material never appear here, only metadata.
type AuditEntry struct {
	ID           int64      `json:"id"`
	RequestID    string     `json:"request_id"`
	Timestamp    time.Time  `json:"timestamp"`
	Operation    string     `json:"operation"`
	AccountID    int64      `json:"account_id,omitempty"`
	CredentialID *int64     `json:"credential_id,omitempty"`
	Status       string     `json:"status"`
	ResponseCode int        `json:"response_code"`
	LatencyMs    int64      `json:"latency_ms"`
	ClientIP     string     `json:"client_ip,omitempty"`
}
