package constants

// DetectionType is the canonical type for rows in fraud_detections.
type DetectionType string

const (
	DetectionDuplicateSEP          DetectionType = "duplicate_sep"
	DetectionBillingAnomaly        DetectionType = "billing_anomaly"
	DetectionDiagnosisManipulation DetectionType = "diagnosis_manipulation"
	DetectionFictitiousRecord      DetectionType = "fictitious_medical_record"
	DetectionTariffAnomaly         DetectionType = "tariff_anomaly"
	DetectionDataInconsistency     DetectionType = "data_inconsistency"
)

// RiskLevel grades a fraud finding.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// Decision thresholds for the post-fraud-check status transition.
// A high-risk finding must exceed RejectConfidence (strictly) to reject;
// a medium-risk finding must exceed ReviewConfidence to require manual review.
const (
	RejectConfidence = 0.7
	ReviewConfidence = 0.6
)
