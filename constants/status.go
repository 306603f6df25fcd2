package constants

// DocumentStatus is the canonical outcome for rows in the processing history.
type DocumentStatus string

// Stable values (store these exact strings in DB).
const (
	StatusProcessed  DocumentStatus = "PROCESSED"  // extracted, verified, exported
	StatusCalculated DocumentStatus = "CALCULATED" // processed + consortium calculation
	StatusSkipped    DocumentStatus = "SKIPPED"    // unsupported shape (Group A)
	StatusFailed     DocumentStatus = "FAILED"     // terminal failure, reported once
)

// Stage names for failure notices.
const (
	StageClassify  = "classify"
	StageExtract   = "extract"
	StageVerify    = "verify"
	StageCalculate = "calculate"
	StageExport    = "export"
)

// EligibleTypeCode is the registry type code of consortium-member customers.
// Only these customers go through the calculation engine.
const EligibleTypeCode = "CLA"
