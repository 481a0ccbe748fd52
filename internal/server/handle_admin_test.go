package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/playperu/harvest/internal/harvest"
)

func (e *testEnv) login(t *testing.T, username, password string) []*http.Cookie {
	t.Helper()
	req, _ := http.NewRequest(http.MethodPost, e.srv.URL+"/api/admin/login",
		strings.NewReader(`{"username":"`+username+`","password":"`+password+`"}`))
	resp, err := e.srv.Client().Do(req)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login: expected 200, got %d", resp.StatusCode)
	}
	return resp.Cookies()
}

func TestAdminLogin(t *testing.T) {
	e := newTestEnv(t)

	tests := []struct {
		name       string
		body       AdminLoginRequest
		wantStatus int
	}{
		{name: "good credentials", body: AdminLoginRequest{Username: "admin", Password: "changeme"}, wantStatus: http.StatusOK},
		{name: "wrong password", body: AdminLoginRequest{Username: "admin", Password: "wrong"}, wantStatus: http.StatusUnauthorized},
		{name: "wrong username", body: AdminLoginRequest{Username: "nobody", Password: "changeme"}, wantStatus: http.StatusUnauthorized},
		{name: "missing password", body: AdminLoginRequest{Username: "admin"}, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := e.do(t, http.MethodPost, "/api/admin/login", tt.body)
			if status != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", status, tt.wantStatus, body)
			}
			if status == http.StatusOK {
				var resp AdminMeResponse
				json.Unmarshal(body, &resp)
				if resp.Username != "admin" {
					t.Errorf("username = %q", resp.Username)
				}
			}
		})
	}
}

func TestAdminLoginSetsCookie(t *testing.T) {
	e := newTestEnv(t)
	cookies := e.login(t, "admin", "changeme")

	found := false
	for _, c := range cookies {
		if c.Name == adminCookieName && c.Value != "" && c.HttpOnly {
			found = true
		}
	}
	if !found {
		t.Error("expected admin_session cookie to be set")
	}
}

func TestAdminMe(t *testing.T) {
	e := newTestEnv(t)

	status, _ := e.do(t, http.MethodGet, "/api/admin/me", nil)
	if status != http.StatusUnauthorized {
		t.Errorf("unauthenticated: status %d", status)
	}

	status, _ = e.do(t, http.MethodGet, "/api/admin/me", nil, &http.Cookie{Name: adminCookieName, Value: "forged"})
	if status != http.StatusUnauthorized {
		t.Errorf("unknown session: status %d", status)
	}

	cookies := e.login(t, "admin", "changeme")
	status, body := e.do(t, http.MethodGet, "/api/admin/me", nil, cookies...)
	if status != http.StatusOK {
		t.Fatalf("authenticated: status %d", status)
	}
	var resp AdminMeResponse
	json.Unmarshal(body, &resp)
	if resp.Username != "admin" {
		t.Errorf("username = %q", resp.Username)
	}
}

func TestAdminLogout(t *testing.T) {
	e := newTestEnv(t)
	cookies := e.login(t, "admin", "changeme")

	status, _ := e.do(t, http.MethodPost, "/api/admin/logout", nil, cookies...)
	if status != http.StatusOK {
		t.Fatalf("logout: status %d", status)
	}

	status, _ = e.do(t, http.MethodGet, "/api/admin/me", nil, cookies...)
	if status != http.StatusUnauthorized {
		t.Errorf("session still valid after logout: status %d", status)
	}
}

func TestAdminRoutesRequireSession(t *testing.T) {
	e := newTestEnv(t)

	routes := []struct{ method, path string }{
		{http.MethodPut, "/api/admin/credentials"},
		{http.MethodPost, "/api/admin/game/start"},
		{http.MethodPost, "/api/admin/game/advance"},
		{http.MethodPost, "/api/admin/game/end"},
		{http.MethodPost, "/api/admin/game/winner"},
		{http.MethodPost, "/api/admin/game/reset"},
		{http.MethodPost, "/api/admin/game/timer"},
		{http.MethodPut, "/api/admin/game/settings/ready"},
		{http.MethodPut, "/api/admin/game/settings/timer"},
		{http.MethodDelete, "/api/admin/teams/A"},
		{http.MethodPut, "/api/admin/teams/A/notes"},
	}
	for _, rt := range routes {
		t.Run(rt.method+" "+rt.path, func(t *testing.T) {
			status, _ := e.do(t, rt.method, rt.path, "{}")
			if status != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", status)
			}
		})
	}
	if e.eng.Snapshot().Phase != harvest.PhaseLobby {
		t.Error("unauthenticated request changed the game")
	}
}

func TestAdminGameLifecycle(t *testing.T) {
	e := newTestEnv(t)
	e.claim(t, harvest.TeamA, "c1")
	e.claim(t, harvest.TeamB, "c2")
	cookies := e.login(t, "admin", "changeme")

	status, body := e.do(t, http.MethodPost, "/api/admin/game/start", nil, cookies...)
	if status != http.StatusConflict || errorMessage(t, body) != "not all teams ready" {
		t.Fatalf("start with two of three: status %d: %s", status, body)
	}

	status, body = e.do(t, http.MethodPut, "/api/admin/game/settings/ready", RequireAllReadyRequest{RequireAllReady: false}, cookies...)
	if status != http.StatusOK || decodeState(t, body).AdminOnly.RequireAllReady {
		t.Fatalf("settings/ready: status %d: %s", status, body)
	}

	status, body = e.do(t, http.MethodPost, "/api/admin/game/start", nil, cookies...)
	if status != http.StatusOK {
		t.Fatalf("start: status %d: %s", status, body)
	}
	if gs := decodeState(t, body); gs.Phase != harvest.PhaseRunning || gs.ScenarioIndex != 0 {
		t.Fatalf("after start: %+v", gs)
	}

	status, body = e.do(t, http.MethodPost, "/api/admin/game/advance", nil, cookies...)
	if status != http.StatusConflict || errorMessage(t, body) != "not all teams have answered" {
		t.Fatalf("advance with pending teams: status %d: %s", status, body)
	}

	for _, id := range []string{"A", "B"} {
		status, body = e.do(t, http.MethodPost, "/api/teams/"+id+"/answer",
			AnswerRequest{ScenarioIndex: intPtr(0), ChoiceID: "water-2"})
		if status != http.StatusOK {
			t.Fatalf("answer %s: status %d: %s", id, status, body)
		}
	}

	status, body = e.do(t, http.MethodPost, "/api/admin/game/advance", nil, cookies...)
	if status != http.StatusOK || decodeState(t, body).ScenarioIndex != 1 {
		t.Fatalf("advance: status %d: %s", status, body)
	}

	status, body = e.do(t, http.MethodPost, "/api/admin/game/end", nil, cookies...)
	if status != http.StatusOK {
		t.Fatalf("end: status %d: %s", status, body)
	}
	gs := decodeState(t, body)
	if gs.Phase != harvest.PhaseFinished || gs.Results == nil || !gs.Results.EndedEarly {
		t.Fatalf("after end: %+v", gs)
	}

	status, body = e.do(t, http.MethodPost, "/api/admin/game/winner", nil, cookies...)
	if status != http.StatusConflict {
		t.Errorf("winner after early end: status %d: %s", status, body)
	}

	status, body = e.do(t, http.MethodPost, "/api/admin/game/reset", nil, cookies...)
	if status != http.StatusOK {
		t.Fatalf("reset: status %d: %s", status, body)
	}
	gs = decodeState(t, body)
	if gs.Phase != harvest.PhaseLobby || gs.ScenarioIndex != -1 || gs.Teams[harvest.TeamA].Claimed() {
		t.Errorf("after reset: %+v", gs)
	}

	// Admin credentials survive a reset.
	e.login(t, "admin", "changeme")
}

func TestAdminTimerAndTeams(t *testing.T) {
	e := newTestEnv(t)
	e.claim(t, harvest.TeamA, "c1")
	cookies := e.login(t, "admin", "changeme")

	status, _ := e.do(t, http.MethodPut, "/api/admin/game/settings/timer", TimerSettingsRequest{Enabled: true}, cookies...)
	if status != http.StatusBadRequest {
		t.Errorf("zero duration: status %d", status)
	}
	status, body := e.do(t, http.MethodPut, "/api/admin/game/settings/timer", TimerSettingsRequest{Enabled: true, Duration: 45}, cookies...)
	if status != http.StatusOK {
		t.Fatalf("timer: status %d: %s", status, body)
	}
	if s := decodeState(t, body).AdminOnly; !s.TimerEnabled || s.TimerDuration != 45 {
		t.Errorf("settings = %+v", s)
	}

	status, _ = e.do(t, http.MethodPost, "/api/admin/game/timer", TimerStartRequest{ScenarioIndex: intPtr(0)}, cookies...)
	if status != http.StatusConflict {
		t.Errorf("timer in lobby: status %d", status)
	}

	status, body = e.do(t, http.MethodPut, "/api/admin/teams/A/notes", NotesRequest{Notes: "front row"}, cookies...)
	if status != http.StatusOK || decodeState(t, body).Teams[harvest.TeamA].Notes != "front row" {
		t.Errorf("notes: status %d: %s", status, body)
	}

	status, body = e.do(t, http.MethodDelete, "/api/admin/teams/A", nil, cookies...)
	if status != http.StatusOK || decodeState(t, body).Teams[harvest.TeamA].Claimed() {
		t.Errorf("release: status %d: %s", status, body)
	}
	status, _ = e.do(t, http.MethodDelete, "/api/admin/teams/Q", nil, cookies...)
	if status != http.StatusNotFound {
		t.Errorf("release unknown team: status %d", status)
	}
}

func TestAdminCredentials(t *testing.T) {
	e := newTestEnv(t)
	cookies := e.login(t, "admin", "changeme")

	status, _ := e.do(t, http.MethodPut, "/api/admin/credentials", AdminLoginRequest{Username: "host"}, cookies...)
	if status != http.StatusBadRequest {
		t.Errorf("missing password: status %d", status)
	}

	status, body := e.do(t, http.MethodPut, "/api/admin/credentials", AdminLoginRequest{Username: "host", Password: "s3cret"}, cookies...)
	if status != http.StatusOK {
		t.Fatalf("credentials: status %d: %s", status, body)
	}

	stored, err := e.repo.Admin(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stored.Username != "host" || bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("s3cret")) != nil {
		t.Errorf("stored credentials = %+v", stored)
	}

	status, _ = e.do(t, http.MethodPost, "/api/admin/login", AdminLoginRequest{Username: "admin", Password: "changeme"})
	if status != http.StatusUnauthorized {
		t.Errorf("old credentials: status %d", status)
	}
	e.login(t, "host", "s3cret")
}

func TestCheckPassword(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		stored, given string
		want          bool
	}{
		{stored: "pw", given: "pw", want: true},
		{stored: "pw", given: "pW", want: false},
		{stored: string(hash), given: "pw", want: true},
		{stored: string(hash), given: string(hash), want: false},
		{stored: "", given: "", want: true},
	}
	for _, tt := range tests {
		if got := checkPassword(tt.stored, tt.given); got != tt.want {
			t.Errorf("checkPassword(%q, %q) = %v, want %v", tt.stored, tt.given, got, tt.want)
		}
	}
}
