package constants

// PassStatus is the canonical status for rows in issued_pass.
type PassStatus string

// Stable values (store these exact strings in DB).
const (
	PassStatusIssued   PassStatus = "ISSUED"   // archive written
	PassStatusUnsigned PassStatus = "UNSIGNED" // archive written without signature
	PassStatusFailed   PassStatus = "FAILED"   // archive could not be written
)

// Enrichment outcome labels recorded alongside a pass.
const (
	EnrichmentSkipped     = "SKIPPED"
	EnrichmentOK          = "OK"
	EnrichmentUnavailable = "UNAVAILABLE"
	EnrichmentInvalid     = "INVALID"
)
