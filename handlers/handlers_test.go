package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"voisss-backend/config"
	"voisss-backend/database"
	"voisss-backend/ipfs"
	"voisss-backend/models"
	"voisss-backend/services"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type stubProvider struct {
	err   error
	calls int
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) Upload(ctx context.Context, data []byte, meta models.AudioMetadata) (*models.UploadResult, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return &models.UploadResult{Hash: "QmStub", Size: int64(len(data)), Provider: "stub", URL: ipfs.GatewayURL("https://gw.test", "QmStub")}, nil
}

type testEnv struct {
	app      *fiber.App
	missions *services.MissionService
	rewards  *services.RewardService
	security *services.SecurityService
	staging  *services.TempStorage
	ipfs     *services.IPFSService
	provider *stubProvider
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := database.NewSQLiteStore(":memory:")
	if err := store.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	staging, err := services.NewTempStorage(config.StagingConfig{Dir: t.TempDir(), MaxRetries: 3, MaxAge: time.Hour})
	if err != nil {
		t.Fatalf("NewTempStorage: %v", err)
	}
	provider := &stubProvider{}
	ipfsSvc := services.NewIPFSService(config.IPFSConfig{MaxRetries: 1}, provider, nil, staging)

	env := &testEnv{
		app:      fiber.New(fiber.Config{Immutable: true}),
		missions: services.NewMissionService(store),
		security: services.NewSecurityService(config.SecurityConfig{
			HoneypotPaths:        config.DefaultHoneypotPaths,
			MaxPayloadBytes:      1 << 20,
			MaxRequestsPerMinute: 100,
		}),
		staging:  staging,
		ipfs:     ipfsSvc,
		provider: provider,
	}
	env.rewards = services.NewRewardService(store, env.missions)

	SetupHoneypots(env.app, env.security, config.DefaultHoneypotPaths)
	SetupMissionRoutes(env.app, env.missions)
	SetupRewardRoutes(env.app, env.rewards, nil)
	SetupRecordingRoutes(env.app, ipfsSvc, services.NewRecordingService())
	SetupAgentRoutes(env.app, env.security, env.missions, ipfsSvc)
	SetupAdminRoutes(env.app, AdminDeps{
		Missions: env.missions,
		Rewards:  env.rewards,
		IPFS:     ipfsSvc,
		Staging:  staging,
		Security: env.security,
	})
	return env
}

func (e *testEnv) createMission(t *testing.T, maxParticipants int) *models.Mission {
	t.Helper()
	m, err := e.missions.CreateMission(context.Background(), services.CreateMissionInput{
		Title:           "Morning Commute",
		Topic:           "transport",
		Difficulty:      models.DifficultyEasy,
		RewardAmount:    decimal.NewFromInt(10),
		ExpiresAt:       time.Now().Add(48 * time.Hour),
		MaxParticipants: maxParticipants,
	})
	if err != nil {
		t.Fatalf("CreateMission: %v", err)
	}
	return m
}

func (e *testEnv) do(t *testing.T, req *http.Request) (int, map[string]any) {
	t.Helper()
	resp, err := e.app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	out := map[string]any{}
	_ = json.Unmarshal(raw, &out)
	return resp.StatusCode, out
}

func jsonRequest(method, path string, body any, user string, roles string) *http.Request {
	var r io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("X-User-ID", user)
	}
	if roles != "" {
		req.Header.Set("X-User-Roles", roles)
	}
	return req
}

func audioRequest(t *testing.T, path string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="audio"; filename="clip.webm"`)
	h.Set("Content-Type", "audio/webm")
	part, err := w.CreatePart(h)
	if err != nil {
		t.Fatalf("CreatePart: %v", err)
	}
	part.Write(data)
	w.WriteField("title", "Harbour at dawn")
	w.WriteField("duration", "12.5")
	w.Close()

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestAcceptMissionCapacity(t *testing.T) {
	env := newTestEnv(t)
	m := env.createMission(t, 1)
	path := "/missions/" + m.ID + "/accept"

	code, body := env.do(t, jsonRequest(http.MethodPost, path, nil, "alice", ""))
	if code != fiber.StatusOK || body["accepted"] != true {
		t.Fatalf("alice: %d %v", code, body)
	}
	code, body = env.do(t, jsonRequest(http.MethodPost, path, nil, "bob", ""))
	if code != fiber.StatusConflict || body["accepted"] != false {
		t.Fatalf("bob: %d %v", code, body)
	}

	got, err := env.missions.GetMission(context.Background(), m.ID)
	if err != nil {
		t.Fatalf("GetMission: %v", err)
	}
	if got.CurrentParticipants != 1 {
		t.Errorf("participants = %d, want 1", got.CurrentParticipants)
	}
}

func TestUserRoutesRequireIdentity(t *testing.T) {
	env := newTestEnv(t)
	m := env.createMission(t, 0)

	for _, req := range []*http.Request{
		jsonRequest(http.MethodPost, "/missions/"+m.ID+"/accept", nil, "", ""),
		jsonRequest(http.MethodGet, "/user/rewards", nil, "", ""),
		jsonRequest(http.MethodGet, "/user/missions", nil, "", ""),
	} {
		if code, _ := env.do(t, req); code != fiber.StatusUnauthorized {
			t.Errorf("%s %s = %d, want 401", req.Method, req.URL.Path, code)
		}
	}
}

func TestUnknownMissionIs404(t *testing.T) {
	env := newTestEnv(t)
	if code, _ := env.do(t, jsonRequest(http.MethodGet, "/missions/nope", nil, "", "")); code != fiber.StatusNotFound {
		t.Errorf("code = %d, want 404", code)
	}
}

func TestAdminRequiresRole(t *testing.T) {
	env := newTestEnv(t)
	in := map[string]any{
		"title":         "Rain",
		"topic":         "weather",
		"difficulty":    "easy",
		"reward_amount": "5",
		"expires_at":    time.Now().Add(time.Hour).Format(time.RFC3339),
	}

	if code, _ := env.do(t, jsonRequest(http.MethodPost, "/admin/missions", in, "alice", "user")); code != fiber.StatusForbidden {
		t.Fatalf("non-admin code = %d, want 403", code)
	}
	code, body := env.do(t, jsonRequest(http.MethodPost, "/admin/missions", in, "root", "user,admin"))
	if code != fiber.StatusCreated {
		t.Fatalf("admin code = %d body = %v", code, body)
	}
	if body["created_by"] != "root" {
		t.Errorf("created_by = %v", body["created_by"])
	}
}

func TestMilestoneAndClaimFlow(t *testing.T) {
	env := newTestEnv(t)
	m := env.createMission(t, 0)
	ctx := context.Background()

	resp, err := env.missions.SubmitMissionResponse(ctx, services.SubmitResponseInput{
		MissionID:   m.ID,
		UserID:      "alice",
		RecordingID: "rec-1",
		IPFSHash:    "QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG",
	})
	if err != nil {
		t.Fatalf("SubmitMissionResponse: %v", err)
	}

	complete := func(ms models.Milestone) int {
		code, _ := env.do(t, jsonRequest(http.MethodPost, "/admin/milestones/complete", map[string]any{
			"user_id":     "alice",
			"mission_id":  m.ID,
			"response_id": resp.ID,
			"milestone":   ms,
		}, "root", "admin"))
		return code
	}
	if code := complete(models.MilestoneQualityApproved); code != fiber.StatusConflict {
		t.Errorf("out of order = %d, want 409", code)
	}
	if code := complete(models.MilestoneSubmission); code != fiber.StatusOK {
		t.Fatalf("submission = %d", code)
	}

	code, body := env.do(t, jsonRequest(http.MethodGet, "/user/rewards?status=pending", nil, "alice", ""))
	if code != fiber.StatusOK {
		t.Fatalf("rewards = %d", code)
	}
	list, _ := body["rewards"].([]any)
	if len(list) != 1 {
		t.Fatalf("rewards = %v", body)
	}
	rewardID := list[0].(map[string]any)["id"].(string)

	code, _ = env.do(t, jsonRequest(http.MethodPost, "/user/rewards/claim", map[string]any{"reward_ids": []string{"missing"}}, "alice", ""))
	if code != fiber.StatusUnprocessableEntity {
		t.Errorf("claim of unknown reward = %d, want 422", code)
	}

	code, body = env.do(t, jsonRequest(http.MethodPost, "/user/rewards/claim", map[string]any{"reward_ids": []string{rewardID}}, "alice", ""))
	if code != fiber.StatusCreated {
		t.Fatalf("claim = %d %v", code, body)
	}
	claimID, _ := body["id"].(string)

	code, _ = env.do(t, jsonRequest(http.MethodPost, "/admin/claims/"+claimID+"/complete", map[string]any{}, "root", "admin"))
	if code != fiber.StatusBadRequest {
		t.Errorf("complete without tx_hash = %d, want 400", code)
	}
	code, body = env.do(t, jsonRequest(http.MethodPost, "/admin/claims/"+claimID+"/complete", map[string]any{"tx_hash": "0xabc"}, "root", "admin"))
	if code != fiber.StatusOK || body["tx_hash"] != "0xabc" {
		t.Errorf("complete = %d %v", code, body)
	}
}

func TestRecordingUploadPinned(t *testing.T) {
	env := newTestEnv(t)
	req := audioRequest(t, "/recordings/upload", []byte("fake webm bytes"))
	req.Header.Set("X-User-ID", "alice")

	code, body := env.do(t, req)
	if code != fiber.StatusCreated {
		t.Fatalf("code = %d body = %v", code, body)
	}
	res, _ := body["result"].(map[string]any)
	if res["hash"] != "QmStub" {
		t.Errorf("result = %v", body)
	}
}

func TestRecordingUploadStagedWhenProvidersFail(t *testing.T) {
	env := newTestEnv(t)
	env.provider.err = errors.New("pinning service unavailable")

	req := audioRequest(t, "/recordings/upload", []byte("fake webm bytes"))
	req.Header.Set("X-User-ID", "alice")

	code, body := env.do(t, req)
	if code != fiber.StatusAccepted {
		t.Fatalf("code = %d body = %v", code, body)
	}
	recs, err := env.staging.List()
	if err != nil || len(recs) != 1 {
		t.Fatalf("staged = %v, %v", recs, err)
	}
	if recs[0].Metadata.UserID != "alice" || recs[0].Metadata.Title != "Harbour at dawn" {
		t.Errorf("metadata = %+v", recs[0].Metadata)
	}
}

func TestStagedUploadResultReachesOwner(t *testing.T) {
	env := newTestEnv(t)
	env.provider.err = errors.New("pinning service unavailable")

	req := audioRequest(t, "/recordings/upload", []byte("fake webm bytes"))
	req.Header.Set("X-User-ID", "alice")
	code, body := env.do(t, req)
	if code != fiber.StatusAccepted {
		t.Fatalf("upload = %d %v", code, body)
	}
	staged, _ := body["staged"].(map[string]any)
	id, _ := staged["id"].(string)
	path := "/recordings/staged/" + id

	code, body = env.do(t, jsonRequest(http.MethodGet, path, nil, "alice", ""))
	if code != fiber.StatusOK || body["uploaded"] != false {
		t.Fatalf("before sweep = %d %v", code, body)
	}
	if code, _ := env.do(t, jsonRequest(http.MethodGet, path, nil, "bob", "")); code != fiber.StatusNotFound {
		t.Errorf("other user = %d, want 404", code)
	}

	env.provider.err = nil
	if rep, err := env.staging.Sweep(context.Background(), env.ipfs); err != nil || rep.Uploaded != 1 {
		t.Fatalf("sweep = %+v, %v", rep, err)
	}

	code, body = env.do(t, jsonRequest(http.MethodGet, path, nil, "alice", ""))
	if code != fiber.StatusOK || body["uploaded"] != true {
		t.Fatalf("after sweep = %d %v", code, body)
	}
	rec, _ := body["staged"].(map[string]any)
	res, _ := rec["result"].(map[string]any)
	if res["hash"] != "QmStub" {
		t.Errorf("result = %v", rec["result"])
	}
}

func TestRecordingUploadRejectsNonAudio(t *testing.T) {
	env := newTestEnv(t)
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, _ := w.CreateFormFile("audio", "notes.txt")
	part.Write([]byte("plain text, not audio"))
	w.Close()

	req := httptest.NewRequest(http.MethodPost, "/recordings/upload", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("X-User-ID", "alice")

	if code, _ := env.do(t, req); code != fiber.StatusUnsupportedMediaType {
		t.Errorf("code = %d, want 415", code)
	}
	if env.provider.calls != 0 {
		t.Errorf("provider called %d times", env.provider.calls)
	}
}

func TestSaveRecordingUnsupportedChain(t *testing.T) {
	env := newTestEnv(t)
	code, _ := env.do(t, jsonRequest(http.MethodPost, "/recordings/solana/save", map[string]any{
		"ipfs_hash": "QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG",
	}, "alice", ""))
	if code != fiber.StatusBadRequest {
		t.Errorf("code = %d, want 400", code)
	}
}

func TestAgentInjectionDenied(t *testing.T) {
	env := newTestEnv(t)
	req := jsonRequest(http.MethodPost, "/agent/recordings/upload", map[string]string{"q": "1' UNION SELECT password FROM users"}, "", "")
	req.Header.Set("X-Agent-ID", "agent-7")
	req.Header.Set("User-Agent", "voisss-agent/1.0")

	code, body := env.do(t, req)
	if code != fiber.StatusForbidden {
		t.Fatalf("code = %d body = %v", code, body)
	}
	if body["threat_level"] != string(models.ThreatLevelRed) {
		t.Errorf("threat_level = %v", body["threat_level"])
	}
}

func TestAgentBlockedByAdmin(t *testing.T) {
	env := newTestEnv(t)
	agentReq := func() *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/agent/missions", nil)
		req.Header.Set("X-Agent-ID", "agent-9")
		req.Header.Set("User-Agent", "voisss-agent/1.0")
		return req
	}

	if code, _ := env.do(t, agentReq()); code != fiber.StatusOK {
		t.Fatalf("clean agent = %d", code)
	}
	if code, _ := env.do(t, jsonRequest(http.MethodPost, "/admin/agents/agent-9/block", map[string]string{"reason": "scraping"}, "root", "admin")); code != fiber.StatusOK {
		t.Fatalf("block = %d", code)
	}
	if code, _ := env.do(t, agentReq()); code != fiber.StatusForbidden {
		t.Errorf("blocked agent = %d, want 403", code)
	}
	if code, _ := env.do(t, jsonRequest(http.MethodDelete, "/admin/agents/agent-9/block", nil, "root", "admin")); code != fiber.StatusOK {
		t.Fatalf("unblock = %d", code)
	}
	if code, _ := env.do(t, agentReq()); code != fiber.StatusOK {
		t.Errorf("unblocked agent = %d, want 200", code)
	}
}

func TestAgentProfilesKeyedByStableIDs(t *testing.T) {
	env := newTestEnv(t)
	agents := []string{"agent-alpha", "agent-beta", "agent-gamma", "agent-delta"}
	for round := 0; round < 3; round++ {
		for _, id := range agents {
			req := httptest.NewRequest(http.MethodGet, "/agent/missions", nil)
			req.Header.Set("X-Agent-ID", id)
			req.Header.Set("User-Agent", "voisss-agent/1.0")
			if code, _ := env.do(t, req); code != fiber.StatusOK {
				t.Fatalf("%s round %d = %d", id, round, code)
			}
		}
	}
	for _, id := range agents {
		p, ok := env.security.GetProfile(id)
		if !ok || p.AgentID != id || p.TotalRequests != 3 {
			t.Errorf("profile %s = %+v ok=%t", id, p, ok)
		}
	}
}

func TestHoneypotRecordsThreat(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodGet, "/.env", nil)
	req.Header.Set("X-Agent-ID", "crawler-7")
	req.Header.Set("User-Agent", "voisss-agent/1.0")

	if code, _ := env.do(t, req); code != fiber.StatusNotFound {
		t.Fatalf("code = %d, want 404 for a single bait request", code)
	}
	p, ok := env.security.GetProfile("crawler-7")
	if !ok || p.ThreatCount == 0 {
		t.Errorf("profile = %+v ok=%t", p, ok)
	}
}
