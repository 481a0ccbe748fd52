package server

import (
	"encoding/json"
	"net/http"
	"strings"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"

	"github.com/playperu/harvest/internal/handler/health"
	"github.com/playperu/harvest/internal/harvest"
)

// ErrorResponse is returned for all error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

type opDoc struct {
	method, path string
	summary      string
	description  string
	req          any
	resp         any
	errors       []int
}

type teamPath struct {
	TeamID string `path:"teamID" enum:"A,B,C"`
}

const adminCookieNote = " Requires admin_session cookie."

var apiOps = []opDoc{
	{method: http.MethodGet, path: "/api/game/state", summary: "Get game state",
		description: "Returns the full authoritative game state.",
		resp:        harvest.GameState{}},
	{method: http.MethodGet, path: "/api/scenarios", summary: "List scenarios",
		description: "Returns the scenario catalog in play order.",
		resp:        harvest.Catalog{}},
	{method: http.MethodGet, path: "/api/teams/{teamID}", summary: "Get team",
		description: "Returns one team slot (A, B or C).",
		resp:        harvest.TeamState{}, errors: []int{http.StatusNotFound}},
	{method: http.MethodPost, path: "/api/teams/{teamID}/claim", summary: "Claim team",
		description: "Binds a client to a team slot. Lobby only; the owner may re-claim.",
		req:         ClaimRequest{}, resp: harvest.GameState{},
		errors: []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict}},
	{method: http.MethodPost, path: "/api/teams/{teamID}/answer", summary: "Submit answer",
		description: "Records the team's choice for the current scenario. Repeats are no-ops.",
		req:         AnswerRequest{}, resp: harvest.GameState{},
		errors: []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict}},
	{method: http.MethodPost, path: "/api/teams/{teamID}/penalty", summary: "Submit time penalty",
		description: "Records a missed deadline for the current scenario once its timer has expired.",
		req:         PenaltyRequest{}, resp: harvest.GameState{},
		errors: []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict}},
	{method: http.MethodPost, path: "/api/admin/login", summary: "Admin login",
		description: "Authenticate with username and password. Sets admin_session cookie.",
		req:         AdminLoginRequest{}, resp: AdminMeResponse{},
		errors: []int{http.StatusBadRequest, http.StatusUnauthorized}},
	{method: http.MethodPost, path: "/api/admin/logout", summary: "Admin logout",
		description: "Clears admin session and cookie."},
	{method: http.MethodGet, path: "/api/admin/me", summary: "Current admin",
		description: "Returns the authenticated admin." + adminCookieNote,
		resp:        AdminMeResponse{}, errors: []int{http.StatusUnauthorized}},
	{method: http.MethodPut, path: "/api/admin/credentials", summary: "Change admin credentials",
		description: "Replaces the admin username and password." + adminCookieNote,
		req:         AdminLoginRequest{}, resp: AdminMeResponse{},
		errors: []int{http.StatusBadRequest, http.StatusUnauthorized}},
	{method: http.MethodPost, path: "/api/admin/game/start", summary: "Start game",
		description: "Moves from the lobby to the first scenario." + adminCookieNote,
		resp:        harvest.GameState{}, errors: []int{http.StatusUnauthorized, http.StatusConflict}},
	{method: http.MethodPost, path: "/api/admin/game/advance", summary: "Advance scenario",
		description: "Moves to the next scenario, or finishes after the last. Blocked until every claimed team has answered." + adminCookieNote,
		resp:        harvest.GameState{}, errors: []int{http.StatusUnauthorized, http.StatusConflict}},
	{method: http.MethodPost, path: "/api/admin/game/end", summary: "End game early",
		description: "Finishes the game with the current scores." + adminCookieNote,
		resp:        harvest.GameState{}, errors: []int{http.StatusUnauthorized, http.StatusConflict}},
	{method: http.MethodPost, path: "/api/admin/game/winner", summary: "Reveal winner",
		description: "Broadcasts the winner reveal. Not available after an early end." + adminCookieNote,
		resp:        harvest.GameState{}, errors: []int{http.StatusUnauthorized, http.StatusConflict}},
	{method: http.MethodPost, path: "/api/admin/game/reset", summary: "Reset game",
		description: "Deletes all game data and returns to the lobby. Clients receive a reset event." + adminCookieNote,
		resp:        harvest.GameState{}, errors: []int{http.StatusUnauthorized}},
	{method: http.MethodPost, path: "/api/admin/game/timer", summary: "Start timer",
		description: "Restarts the answer window of the current scenario." + adminCookieNote,
		req:         TimerStartRequest{}, resp: harvest.GameState{},
		errors: []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusConflict}},
	{method: http.MethodPut, path: "/api/admin/game/settings/ready", summary: "Set readiness gate",
		description: "Whether all three teams must be ready before starting." + adminCookieNote,
		req:         RequireAllReadyRequest{}, resp: harvest.GameState{},
		errors: []int{http.StatusBadRequest, http.StatusUnauthorized}},
	{method: http.MethodPut, path: "/api/admin/game/settings/timer", summary: "Set timer",
		description: "Enables or disables per-scenario timers and sets their duration in seconds." + adminCookieNote,
		req:         TimerSettingsRequest{}, resp: harvest.GameState{},
		errors: []int{http.StatusBadRequest, http.StatusUnauthorized}},
	{method: http.MethodDelete, path: "/api/admin/teams/{teamID}", summary: "Release team",
		description: "Returns a slot to its unclaimed defaults. Lobby only." + adminCookieNote,
		resp:        harvest.GameState{},
		errors:      []int{http.StatusNotFound, http.StatusUnauthorized, http.StatusConflict}},
	{method: http.MethodPut, path: "/api/admin/teams/{teamID}/notes", summary: "Set team notes",
		description: "Stores free text notes on a team." + adminCookieNote,
		req:         NotesRequest{}, resp: harvest.GameState{},
		errors: []int{http.StatusBadRequest, http.StatusNotFound, http.StatusUnauthorized}},
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "Harvest API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Backend API for the three-team harvest decision game.")

	// GET /healthz
	getHealthz, _ := r.NewOperationContext(http.MethodGet, "/healthz")
	getHealthz.SetSummary("Health check")
	getHealthz.SetDescription("Returns the health status of the blob store and the number of live subscribers.")
	getHealthz.AddRespStructure(health.Response{}, openapi.WithHTTPStatus(http.StatusOK))
	getHealthz.AddRespStructure(health.Response{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(getHealthz)

	// GET /api/game/events
	getEvents, _ := r.NewOperationContext(http.MethodGet, "/api/game/events")
	getEvents.SetSummary("SSE event stream")
	getEvents.SetDescription("Server-Sent Events stream of state, reset and winner events. The current state is sent first.")
	getEvents.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK),
		openapi.WithContentType("text/event-stream"))
	_ = r.AddOperation(getEvents)

	// GET /api/game/ws
	getWS, _ := r.NewOperationContext(http.MethodGet, "/api/game/ws")
	getWS.SetSummary("WebSocket event stream")
	getWS.SetDescription("Upgrades to a WebSocket that carries the same events as /api/game/events.")
	getWS.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusSwitchingProtocols),
		openapi.WithContentType("text/plain"))
	_ = r.AddOperation(getWS)

	for _, d := range apiOps {
		op, err := r.NewOperationContext(d.method, d.path)
		if err != nil {
			continue
		}
		op.SetSummary(d.summary)
		op.SetDescription(d.description)
		if strings.Contains(d.path, "{teamID}") {
			op.AddReqStructure(teamPath{})
		}
		if d.req != nil {
			op.AddReqStructure(d.req)
		}
		op.AddRespStructure(d.resp, openapi.WithHTTPStatus(http.StatusOK))
		for _, code := range d.errors {
			op.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(code))
		}
		_ = r.AddOperation(op)
	}

	return r.Spec
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	data, _ := json.MarshalIndent(spec, "", "  ")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
