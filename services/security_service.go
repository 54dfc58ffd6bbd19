// services/security_service.go
package services

import (
	"context"
	"fmt"
	"log"
	"math"
	"net"
	"regexp"
	"strings"
	"sync"
	"time"

	"voisss-backend/config"
	"voisss-backend/models"

	"github.com/gosimple/unidecode"
)

const (
	initialTrust      = 50.0
	initialReputation = 100.0

	threatRetention    = 24 * time.Hour
	recentThreatWindow = time.Hour
	maxRecentThreats   = 10
	minRatioRequests   = 10
)

// severityPenalty is the (trust, reputation) decrement per threat.
var severityPenalty = map[models.Severity][2]float64{
	models.SeverityCritical: {30, 100},
	models.SeverityHigh:     {15, 50},
	models.SeverityMedium:   {5, 20},
	models.SeverityLow:      {1, 5},
}

var (
	sqlInjectionRe = regexp.MustCompile(`(?i)(\bunion\b\s+(all\s+)?\bselect\b|\bor\b\s+'?\d+'?\s*=\s*'?\d+|;\s*drop\s+(table|database)\b|\binsert\s+into\b.+\bvalues\b|\bsleep\s*\(\s*\d+\s*\)|\bxp_cmdshell\b|'\s*--)`)
	commandRe      = regexp.MustCompile("(?i)((;|&&|\\|\\|)\\s*(rm|cat|wget|curl|bash|sh|nc|chmod|python|perl)\\b|\\$\\([^)]*\\)|`[^`]+`)")
	xssRe          = regexp.MustCompile(`(?i)(<script\b|javascript:|\bon(error|load|click|mouseover)\s*=|<iframe\b|document\.cookie)`)
	traversalRe    = regexp.MustCompile(`(?i)(\.\./|\.\.\\|%2e%2e%2f|/etc/passwd)`)
)

// scannedHeaders carry caller-controlled values that upstream proxies and
// loggers tend to trust.
var scannedHeaders = []string{"Referer", "X-Forwarded-For", "X-Forwarded-Host", "X-Real-Ip", "Origin"}

// pathOverrideHeaders rewrite the routed path on some proxies.
var pathOverrideHeaders = []string{"X-Original-Url", "X-Rewrite-Url"}

var scannerAgents = []string{
	"sqlmap", "nikto", "nmap", "masscan", "zgrab", "dirbuster", "gobuster",
	"wpscan", "nuclei", "acunetix", "havij", "hydra", "metasploit",
}

type analyzer func(s *SecurityService, req models.SecurityRequest, p *models.AgentProfile, now time.Time) []models.SecurityThreat

// SecurityService scores callers of the agent API. All state is in memory.
type SecurityService struct {
	cfg       config.SecurityConfig
	analyzers []analyzer
	now       func() time.Time

	mu       sync.Mutex
	profiles map[string]*models.AgentProfile
	threats  map[string][]models.SecurityThreat
	requests map[string][]time.Time
}

func NewSecurityService(cfg config.SecurityConfig) *SecurityService {
	return &SecurityService{
		cfg: cfg,
		analyzers: []analyzer{
			checkHoneypot,
			checkPayloadPatterns,
			checkPayloadSize,
			checkUserAgent,
			checkRatePattern,
			checkNetwork,
			checkHeaders,
		},
		now:      time.Now,
		profiles: make(map[string]*models.AgentProfile),
		threats:  make(map[string][]models.SecurityThreat),
		requests: make(map[string][]time.Time),
	}
}

// AgentKey identifies the caller: the declared agent id, else its IP.
func AgentKey(req models.SecurityRequest) string {
	if req.AgentID != "" {
		return req.AgentID
	}
	return addressKey(req.IP)
}

func addressKey(ip string) string { return "ip:" + ip }

// addressProfile is the profile shared by every agent id seen from req.IP,
// or nil when the caller is already keyed by address.
func (s *SecurityService) addressProfile(req models.SecurityRequest, create bool, now time.Time) *models.AgentProfile {
	if req.IP == "" || req.AgentID == "" {
		return nil
	}
	if create {
		return s.profile(addressKey(req.IP), now)
	}
	return s.profiles[addressKey(req.IP)]
}

func (s *SecurityService) profile(id string, now time.Time) *models.AgentProfile {
	p, ok := s.profiles[id]
	if !ok {
		p = &models.AgentProfile{
			AgentID:    id,
			TrustScore: initialTrust,
			Reputation: initialReputation,
			FirstSeen:  now,
			LastSeen:   now,
		}
		s.profiles[id] = p
	}
	return p
}

// SecurityCheck scores req and decides whether it may proceed. It never fails;
// enforcement is up to the caller.
func (s *SecurityService) SecurityCheck(ctx context.Context, req models.SecurityRequest) models.SecurityCheckResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := req.Timestamp
	if now.IsZero() {
		now = s.now()
	}
	id := AgentKey(req)
	addr := s.addressProfile(req, false, now)
	_, known := s.profiles[id]
	p := s.profile(id, now)
	if !known && addr != nil {
		// A fresh agent id starts from what its address has already earned.
		p.TrustScore = math.Min(p.TrustScore, addr.TrustScore)
		p.Reputation = math.Min(p.Reputation, addr.Reputation)
	}
	p.LastSeen = now
	if req.IP != "" {
		p.LastIP = req.IP
	}
	p.TotalRequests++
	s.requests[id] = append(pruneBefore(s.requests[id], now.Add(-time.Minute)), now)

	if p.Blocked {
		return blockedResult(p, "agent is blocked: "+p.BlockReason)
	}
	if addr != nil && addr.Blocked {
		return blockedResult(p, "address is blocked: "+addr.BlockReason)
	}
	if p.Allowlisted {
		return models.SecurityCheckResult{
			Allowed:     true,
			ThreatLevel: models.ThreatLevelGreen,
			TrustScore:  p.TrustScore,
			Reputation:  p.Reputation,
			Reason:      "agent is allowlisted",
		}
	}

	var threats []models.SecurityThreat
	for _, a := range s.analyzers {
		for _, t := range a(s, req, p, now) {
			t.AgentID = id
			t.DetectedAt = now
			threats = append(threats, t)
		}
	}

	applyScore(p, threats)
	if len(threats) > 0 {
		addr = s.addressProfile(req, true, now)
	}
	if addr != nil {
		addr.LastSeen = now
		applyScore(addr, threats)
	}
	s.threats[id] = append(s.threats[id], threats...)

	level := threatLevel(threats, p.TrustScore)
	res := models.SecurityCheckResult{
		Allowed:     true,
		ThreatLevel: level,
		Threats:     threats,
		TrustScore:  p.TrustScore,
		Reputation:  p.Reputation,
		Reason:      "ok",
	}

	recent := countSince(s.threats[id], now.Add(-recentThreatWindow))
	switch {
	case level == models.ThreatLevelRed:
		res.Allowed = false
		res.Reason = "threat level red"
	case recent > maxRecentThreats:
		res.Allowed = false
		res.Reason = fmt.Sprintf("%d threats in the last hour", recent)
	case len(threats) > 0:
		res.Reason = fmt.Sprintf("%d threat(s) detected", len(threats))
	}
	res.Actions = recommendActions(res)

	if len(threats) > 0 {
		log.Printf("🛡️ [SECURITY] %s %s %s → level=%s allowed=%t trust=%.0f threats=%d",
			id, req.Method, req.Path, level, res.Allowed, p.TrustScore, len(threats))
	}
	return res
}

func blockedResult(p *models.AgentProfile, reason string) models.SecurityCheckResult {
	return models.SecurityCheckResult{
		Allowed:     false,
		ThreatLevel: models.ThreatLevelRed,
		TrustScore:  p.TrustScore,
		Reputation:  p.Reputation,
		Reason:      reason,
		Actions:     []models.SecurityAction{models.ActionBlock},
	}
}

// applyScore rewards a clean request or charges each threat's penalty.
func applyScore(p *models.AgentProfile, threats []models.SecurityThreat) {
	if len(threats) == 0 {
		p.TrustScore = clampScore(p.TrustScore + 1)
		p.Reputation = clampScore(p.Reputation + 1)
		return
	}
	for _, t := range threats {
		pen := severityPenalty[t.Severity]
		p.TrustScore = clampScore(p.TrustScore - pen[0])
		p.Reputation = clampScore(p.Reputation - pen[1])
	}
	p.ThreatCount += len(threats)
}

func threatLevel(threats []models.SecurityThreat, trust float64) models.ThreatLevel {
	var high, medium int
	for _, t := range threats {
		switch t.Severity {
		case models.SeverityCritical:
			return models.ThreatLevelRed
		case models.SeverityHigh:
			high++
		case models.SeverityMedium:
			medium++
		}
	}
	switch {
	case trust < 10:
		return models.ThreatLevelRed
	case high > 1 || trust < 25:
		return models.ThreatLevelOrange
	case high > 0 || medium > 2 || trust < 40:
		return models.ThreatLevelYellow
	}
	return models.ThreatLevelGreen
}

func recommendActions(res models.SecurityCheckResult) []models.SecurityAction {
	var actions []models.SecurityAction
	if len(res.Threats) > 0 {
		actions = append(actions, models.ActionFlagSuspicious)
	}
	for _, t := range res.Threats {
		if t.Type == models.ThreatRateLimit {
			actions = append(actions, models.ActionRateLimit)
			break
		}
	}
	switch res.ThreatLevel {
	case models.ThreatLevelOrange:
		actions = append(actions, models.ActionRequireVerification)
	case models.ThreatLevelYellow:
		actions = append(actions, models.ActionMonitor)
	}
	if !res.Allowed {
		actions = append(actions, models.ActionBlock)
	}
	return actions
}

func checkHoneypot(s *SecurityService, req models.SecurityRequest, _ *models.AgentProfile, _ time.Time) []models.SecurityThreat {
	path := strings.ToLower(req.Path)
	for _, hp := range s.cfg.HoneypotPaths {
		hp = strings.ToLower(hp)
		if path == hp || strings.HasPrefix(path, strings.TrimRight(hp, "/")+"/") {
			return []models.SecurityThreat{{
				Type:        models.ThreatAbuse,
				Severity:    models.SeverityHigh,
				Description: "honeypot path accessed: " + req.Path,
			}}
		}
	}
	return nil
}

func checkPayloadPatterns(_ *SecurityService, req models.SecurityRequest, _ *models.AgentProfile, _ time.Time) []models.SecurityThreat {
	text := unidecode.Unidecode(req.Path + "\n" + req.Payload)
	var out []models.SecurityThreat
	if sqlInjectionRe.MatchString(text) {
		out = append(out, models.SecurityThreat{Type: models.ThreatInjection, Severity: models.SeverityCritical, Description: "SQL injection pattern"})
	}
	if commandRe.MatchString(text) {
		out = append(out, models.SecurityThreat{Type: models.ThreatInjection, Severity: models.SeverityCritical, Description: "command injection pattern"})
	}
	if xssRe.MatchString(text) {
		out = append(out, models.SecurityThreat{Type: models.ThreatInjection, Severity: models.SeverityHigh, Description: "script injection pattern"})
	}
	if traversalRe.MatchString(text) {
		out = append(out, models.SecurityThreat{Type: models.ThreatInjection, Severity: models.SeverityHigh, Description: "path traversal pattern"})
	}
	return out
}

func checkPayloadSize(s *SecurityService, req models.SecurityRequest, _ *models.AgentProfile, _ time.Time) []models.SecurityThreat {
	if s.cfg.MaxPayloadBytes > 0 && len(req.Payload) > s.cfg.MaxPayloadBytes {
		return []models.SecurityThreat{{
			Type:        models.ThreatAbuse,
			Severity:    models.SeverityMedium,
			Description: fmt.Sprintf("payload of %d bytes exceeds %d", len(req.Payload), s.cfg.MaxPayloadBytes),
		}}
	}
	return nil
}

func checkUserAgent(_ *SecurityService, req models.SecurityRequest, _ *models.AgentProfile, _ time.Time) []models.SecurityThreat {
	ua := strings.ToLower(strings.TrimSpace(unidecode.Unidecode(req.UserAgent)))
	if ua == "" {
		return []models.SecurityThreat{{Type: models.ThreatSuspiciousAgent, Severity: models.SeverityLow, Description: "missing user agent"}}
	}
	for _, scanner := range scannerAgents {
		if strings.Contains(ua, scanner) {
			return []models.SecurityThreat{{Type: models.ThreatSuspiciousAgent, Severity: models.SeverityHigh, Description: "scanner user agent: " + scanner}}
		}
	}
	return nil
}

func checkRatePattern(s *SecurityService, _ models.SecurityRequest, p *models.AgentProfile, _ time.Time) []models.SecurityThreat {
	var out []models.SecurityThreat
	if n := len(s.requests[p.AgentID]); s.cfg.MaxRequestsPerMinute > 0 && n > s.cfg.MaxRequestsPerMinute {
		out = append(out, models.SecurityThreat{
			Type:        models.ThreatRateLimit,
			Severity:    models.SeverityMedium,
			Description: fmt.Sprintf("%d requests in the last minute", n),
		})
	}
	if p.TotalRequests >= minRatioRequests {
		ratio := float64(p.FailedRequests) / float64(p.TotalRequests)
		if ratio > 0.5 {
			out = append(out, models.SecurityThreat{
				Type:        models.ThreatSuspiciousPattern,
				Severity:    models.SeverityMedium,
				Description: fmt.Sprintf("failure ratio %.2f over %d requests", ratio, p.TotalRequests),
			})
		}
	}
	return out
}

func checkNetwork(_ *SecurityService, req models.SecurityRequest, _ *models.AgentProfile, _ time.Time) []models.SecurityThreat {
	ip := net.ParseIP(req.IP)
	if ip == nil {
		return nil
	}
	if ip.IsPrivate() || ip.IsLoopback() || ip.IsLinkLocalUnicast() {
		return []models.SecurityThreat{{Type: models.ThreatNetwork, Severity: models.SeverityLow, Description: "request from private network " + req.IP}}
	}
	return nil
}

func checkHeaders(_ *SecurityService, req models.SecurityRequest, _ *models.AgentProfile, _ time.Time) []models.SecurityThreat {
	var out []models.SecurityThreat
	for _, h := range pathOverrideHeaders {
		if _, ok := req.Headers[h]; ok {
			out = append(out, models.SecurityThreat{Type: models.ThreatSuspiciousPattern, Severity: models.SeverityMedium, Description: "path override header " + h})
		}
	}
	for _, h := range scannedHeaders {
		v := unidecode.Unidecode(req.Headers[h])
		if v == "" {
			continue
		}
		if sqlInjectionRe.MatchString(v) || commandRe.MatchString(v) || xssRe.MatchString(v) || traversalRe.MatchString(v) {
			out = append(out, models.SecurityThreat{Type: models.ThreatInjection, Severity: models.SeverityHigh, Description: "injection pattern in " + h + " header"})
		}
	}
	return out
}

// RecordOutcome feeds the failure ratio analyzer.
func (s *SecurityService) RecordOutcome(agentID string, success bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[agentID]
	if !ok || success {
		return
	}
	p.FailedRequests++
}

// BlockAgent denies agentID and the address it was last seen from, so a new
// X-Agent-ID from the same place stays blocked. Pass "ip:<addr>" to block an
// address directly.
func (s *SecurityService) BlockAgent(agentID, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	p := s.profile(agentID, now)
	p.Blocked = true
	p.BlockReason = reason
	log.Printf("⛔ [SECURITY] agent %s blocked: %s", agentID, reason)

	if p.LastIP == "" || strings.HasPrefix(agentID, "ip:") {
		return
	}
	addr := s.profile(addressKey(p.LastIP), now)
	if !addr.Blocked {
		addr.Blocked = true
		addr.BlockReason = reason
		addr.BlockedVia = agentID
		log.Printf("⛔ [SECURITY] address %s blocked with agent %s", p.LastIP, agentID)
	}
}

// UnblockAgent lifts the block on agentID and any address block it caused.
func (s *SecurityService) UnblockAgent(agentID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[agentID]
	if !ok || !p.Blocked {
		return false
	}
	p.Blocked = false
	p.BlockReason = ""
	p.BlockedVia = ""

	if p.LastIP != "" {
		if addr, ok := s.profiles[addressKey(p.LastIP)]; ok && addr.Blocked && addr.BlockedVia == agentID {
			addr.Blocked = false
			addr.BlockReason = ""
			addr.BlockedVia = ""
		}
	}
	return true
}

func (s *SecurityService) AllowAgent(agentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profile(agentID, s.now()).Allowlisted = true
}

func (s *SecurityService) RemoveAllow(agentID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[agentID]
	if !ok || !p.Allowlisted {
		return false
	}
	p.Allowlisted = false
	return true
}

// GetProfile returns a copy of the agent's profile.
func (s *SecurityService) GetProfile(agentID string) (models.AgentProfile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[agentID]
	if !ok {
		return models.AgentProfile{}, false
	}
	return *p, true
}

func (s *SecurityService) Stats() models.SecurityStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := models.SecurityStats{Profiles: len(s.profiles)}
	since := s.now().Add(-recentThreatWindow)
	for id, p := range s.profiles {
		if p.Blocked {
			st.Blocked++
		}
		if p.Allowlisted {
			st.Allowlisted++
		}
		st.RecentThreats += countSince(s.threats[id], since)
	}
	return st
}

// Cleanup drops threats older than a day and forgets idle agents that are
// neither blocked nor allowlisted.
func (s *SecurityService) Cleanup(now time.Time) (threatsDropped, profilesDropped int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := now.Add(-threatRetention)
	for id, ts := range s.threats {
		kept := ts[:0]
		for _, t := range ts {
			if t.DetectedAt.After(cutoff) {
				kept = append(kept, t)
			}
		}
		threatsDropped += len(ts) - len(kept)
		if len(kept) == 0 {
			delete(s.threats, id)
		} else {
			s.threats[id] = kept
		}
	}
	for id, p := range s.profiles {
		if p.Blocked || p.Allowlisted || p.LastSeen.After(cutoff) {
			continue
		}
		delete(s.profiles, id)
		delete(s.requests, id)
		profilesDropped++
	}
	for id, ts := range s.requests {
		if ts = pruneBefore(ts, now.Add(-time.Minute)); len(ts) == 0 {
			delete(s.requests, id)
		} else {
			s.requests[id] = ts
		}
	}
	if threatsDropped > 0 || profilesDropped > 0 {
		log.Printf("🧹 [SECURITY] cleanup dropped %d threats and %d profiles", threatsDropped, profilesDropped)
	}
	return threatsDropped, profilesDropped
}

func clampScore(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}

func countSince(ts []models.SecurityThreat, since time.Time) int {
	n := 0
	for _, t := range ts {
		if t.DetectedAt.After(since) {
			n++
		}
	}
	return n
}

func pruneBefore(ts []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(ts) && !ts[i].After(cutoff) {
		i++
	}
	return ts[i:]
}
