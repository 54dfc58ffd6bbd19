// models/security.go
package models

import "time"

type ThreatType string

const (
	ThreatAbuse             ThreatType = "abuse"
	ThreatInjection         ThreatType = "injection"
	ThreatRateLimit         ThreatType = "rate_limit"
	ThreatSuspiciousAgent   ThreatType = "suspicious_agent"
	ThreatSuspiciousPattern ThreatType = "suspicious_pattern"
	ThreatNetwork           ThreatType = "network"
)

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

type ThreatLevel string

const (
	ThreatLevelGreen  ThreatLevel = "green"
	ThreatLevelYellow ThreatLevel = "yellow"
	ThreatLevelOrange ThreatLevel = "orange"
	ThreatLevelRed    ThreatLevel = "red"
)

type SecurityAction string

const (
	ActionMonitor             SecurityAction = "monitor"
	ActionFlagSuspicious      SecurityAction = "flag_suspicious"
	ActionRateLimit           SecurityAction = "rate_limit"
	ActionRequireVerification SecurityAction = "require_verification"
	ActionBlock               SecurityAction = "block"
)

// SecurityRequest is the request metadata the analyzers look at.
type SecurityRequest struct {
	AgentID   string            `json:"agent_id"`
	IP        string            `json:"ip"`
	UserAgent string            `json:"user_agent"`
	Method    string            `json:"method"`
	Path      string            `json:"path"`
	Payload   string            `json:"payload,omitempty"`
	Headers   map[string]string `json:"headers,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

type SecurityThreat struct {
	AgentID     string     `json:"agent_id"`
	Type        ThreatType `json:"type"`
	Severity    Severity   `json:"severity"`
	Description string     `json:"description"`
	DetectedAt  time.Time  `json:"detected_at"`
}

// AgentProfile is the per-caller trust state kept by the security service.
type AgentProfile struct {
	AgentID        string    `json:"agent_id"`
	TrustScore     float64   `json:"trust_score"`
	Reputation     float64   `json:"reputation"`
	TotalRequests  int       `json:"total_requests"`
	FailedRequests int       `json:"failed_requests"`
	ThreatCount    int       `json:"threat_count"`
	Blocked        bool      `json:"blocked"`
	BlockReason    string    `json:"block_reason,omitempty"`
	BlockedVia     string    `json:"blocked_via,omitempty"`
	LastIP         string    `json:"last_ip,omitempty"`
	Allowlisted    bool      `json:"allowlisted"`
	FirstSeen      time.Time `json:"first_seen"`
	LastSeen       time.Time `json:"last_seen"`
}

type SecurityCheckResult struct {
	Allowed     bool             `json:"allowed"`
	ThreatLevel ThreatLevel      `json:"threat_level"`
	Threats     []SecurityThreat `json:"threats"`
	TrustScore  float64          `json:"trust_score"`
	Reputation  float64          `json:"reputation"`
	Reason      string           `json:"reason,omitempty"`
	Actions     []SecurityAction `json:"actions"`
}

func (r *SecurityCheckResult) HasAction(a SecurityAction) bool {
	for _, got := range r.Actions {
		if got == a {
			return true
		}
	}
	return false
}

type SecurityStats struct {
	Profiles      int `json:"profiles"`
	Blocked       int `json:"blocked"`
	Allowlisted   int `json:"allowlisted"`
	RecentThreats int `json:"recent_threats"`
}
