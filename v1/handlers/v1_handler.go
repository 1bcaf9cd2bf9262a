package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/cwangg897/OneDayPiece/shared/utils"
	"github.com/cwangg897/OneDayPiece/v1/models"
	"github.com/cwangg897/OneDayPiece/v1/services"
	v1utils "github.com/cwangg897/OneDayPiece/v1/utils"
)

// V1Handler handles all V1 API routes
type V1Handler struct {
	memberService    *services.MemberService
	challengeService *services.ChallengeService
	recordService    *services.ChallengeRecordService
}

// NewV1Handler creates a new V1 handler
func NewV1Handler(db *gorm.DB, tokens *services.TokenProvider) *V1Handler {
	return &V1Handler{
		memberService:    services.NewMemberService(db, tokens),
		challengeService: services.NewChallengeService(db),
		recordService:    services.NewChallengeRecordService(db),
	}
}

// SetupV1Routes configures all V1 API routes. The authenticate middleware
// guards the member and admin groups; the members and guest groups are public.
func (h *V1Handler) SetupV1Routes(mux *http.ServeMux, authenticate func(http.Handler) http.Handler) {
	// Public routes
	mux.Handle("/api/v1/members/", utils.PanicRecoveryMiddleware(http.HandlerFunc(h.handlePublicMembers)))
	mux.Handle("/api/v1/guest/", utils.PanicRecoveryMiddleware(http.HandlerFunc(h.handleGuest)))

	// Authenticated routes
	mux.Handle("/api/v1/member/", utils.PanicRecoveryMiddleware(authenticate(http.HandlerFunc(h.handleMember))))
	mux.Handle("/api/v1/admin/", utils.PanicRecoveryMiddleware(authenticate(http.HandlerFunc(h.handleAdmin))))
}

// handlePublicMembers handles signup, login and token reissue
func (h *V1Handler) handlePublicMembers(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/members")
	parts := strings.Split(strings.Trim(path, "/"), "/")

	if len(parts) != 1 || parts[0] == "" {
		utils.RespondWithError(w, http.StatusNotFound, "Endpoint not found")
		return
	}
	if r.Method != http.MethodPost {
		utils.RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	switch parts[0] {
	case "signup":
		h.signup(w, r)
	case "login":
		h.login(w, r)
	case "reissue":
		h.reissue(w, r)
	default:
		utils.RespondWithError(w, http.StatusNotFound, "Endpoint not found")
	}
}

// handleGuest handles the anonymous main page and search
func (h *V1Handler) handleGuest(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/guest")
	parts := strings.Split(strings.Trim(path, "/"), "/")

	if r.Method != http.MethodGet {
		utils.RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	switch {
	case len(parts) == 1 && parts[0] == "main":
		resp, err := h.challengeService.GetGuestMainPage()
		h.respond(w, resp, err)
	case len(parts) == 3 && parts[0] == "search":
		page := parsePage(parts[1])
		resp, err := h.challengeService.SearchChallenges(parts[2], page)
		h.respond(w, resp, err)
	default:
		utils.RespondWithError(w, http.StatusNotFound, "Endpoint not found")
	}
}

// handleMember handles everything behind member authentication
func (h *V1Handler) handleMember(w http.ResponseWriter, r *http.Request) {
	user, err := v1utils.RequireAuthentication(r)
	if err != nil {
		utils.RespondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/v1/member")
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		utils.RespondWithError(w, http.StatusNotFound, "Endpoint not found")
		return
	}

	switch parts[0] {
	case "main":
		if r.Method != http.MethodGet {
			utils.RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		resp, err := h.challengeService.GetMainPage(user.Email)
		h.respond(w, resp, err)
	case "reload":
		if r.Method != http.MethodGet {
			utils.RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		resp, err := h.memberService.Reload(user.Email)
		h.respond(w, resp, err)
	case "password":
		h.updatePassword(w, r, user)
	case "profile":
		h.updateProfile(w, r, user)
	case "mypage":
		h.handleMyPage(w, r, user, parts[1:])
	case "challenge":
		h.handleChallenge(w, r, user, parts[1:])
	case "record":
		h.handleRecord(w, r, user, parts[1:])
	default:
		utils.RespondWithError(w, http.StatusNotFound, "Endpoint not found")
	}
}

// handleMyPage handles the member's participation tabs and point history
func (h *V1Handler) handleMyPage(w http.ResponseWriter, r *http.Request, user *models.AuthenticatedUser, parts []string) {
	if r.Method != http.MethodGet || len(parts) != 1 {
		utils.RespondWithError(w, http.StatusNotFound, "Endpoint not found")
		return
	}

	switch parts[0] {
	case "proceed":
		resp, err := h.memberService.GetMyChallenges(user.Email, models.ProgressInProgress)
		h.respond(w, resp, err)
	case "scheduled":
		resp, err := h.memberService.GetMyChallenges(user.Email, models.ProgressScheduled)
		h.respond(w, resp, err)
	case "end":
		resp, err := h.memberService.GetMyChallenges(user.Email, models.ProgressEnded)
		h.respond(w, resp, err)
	case "history":
		resp, err := h.memberService.GetPointHistory(user.Email)
		h.respond(w, resp, err)
	default:
		utils.RespondWithError(w, http.StatusNotFound, "Endpoint not found")
	}
}

// handleChallenge handles challenge CRUD, browsing and search
func (h *V1Handler) handleChallenge(w http.ResponseWriter, r *http.Request, user *models.AuthenticatedUser, parts []string) {
	// Collection endpoint: create and update
	if len(parts) == 0 || (len(parts) == 1 && parts[0] == "") {
		switch r.Method {
		case http.MethodPost:
			h.createChallenge(w, r, user)
		case http.MethodPut:
			h.updateChallenge(w, r, user)
		default:
			utils.RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
		return
	}

	if len(parts) == 3 && parts[0] == "category" && r.Method == http.MethodGet {
		page := parsePage(parts[1])
		resp, err := h.challengeService.GetChallengesByCategory(models.CategoryName(parts[2]), page)
		h.respond(w, resp, err)
		return
	}
	if len(parts) == 3 && parts[0] == "search" && r.Method == http.MethodGet {
		page := parsePage(parts[1])
		resp, err := h.challengeService.SearchChallenges(parts[2], page)
		h.respond(w, resp, err)
		return
	}

	if len(parts) == 1 {
		challengeID := parts[0]
		switch r.Method {
		case http.MethodGet:
			resp, err := h.challengeService.GetChallengeDetail(challengeID)
			h.respond(w, resp, err)
		case http.MethodDelete:
			h.respondNoBody(w, h.challengeService.DeleteChallenge(challengeID, user.Email))
		default:
			utils.RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
		return
	}

	utils.RespondWithError(w, http.StatusNotFound, "Endpoint not found")
}

// handleRecord handles enrollment and withdrawal
func (h *V1Handler) handleRecord(w http.ResponseWriter, r *http.Request, user *models.AuthenticatedUser, parts []string) {
	if len(parts) != 1 || parts[0] == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Challenge ID is required")
		return
	}
	challengeID := parts[0]

	switch r.Method {
	case http.MethodPost:
		h.respondNoBody(w, h.recordService.RequestChallenge(challengeID, user.Email))
	case http.MethodDelete:
		h.respondNoBody(w, h.recordService.GiveUpChallenge(challengeID, user.Email))
	default:
		utils.RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// handleAdmin handles the admin console routes
func (h *V1Handler) handleAdmin(w http.ResponseWriter, r *http.Request) {
	if _, err := v1utils.RequireAdmin(r); err != nil {
		utils.RespondWithError(w, http.StatusForbidden, "Admin role required")
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/v1/admin")
	parts := strings.Split(strings.Trim(path, "/"), "/")

	switch {
	case len(parts) == 1 && parts[0] == "challenges" && r.Method == http.MethodGet:
		resp, err := h.challengeService.GetAllChallenges()
		h.respond(w, resp, err)
	case len(parts) == 2 && parts[0] == "challenge" && r.Method == http.MethodDelete:
		h.respondNoBody(w, h.challengeService.DeleteChallengeByAdmin(parts[1]))
	case len(parts) == 1 && parts[0] == "kick" && r.Method == http.MethodPost:
		var req models.KickRequest
		if !h.decode(w, r, &req) {
			return
		}
		resp, err := h.recordService.KickMembers(&req)
		h.respond(w, resp, err)
	default:
		utils.RespondWithError(w, http.StatusNotFound, "Endpoint not found")
	}
}

// Leaf handlers

func (h *V1Handler) signup(w http.ResponseWriter, r *http.Request) {
	var req models.SignupRequest
	if !h.decode(w, r, &req) {
		return
	}
	resp, err := h.memberService.Signup(&req)
	if err != nil {
		utils.RespondWithAPIError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, resp)
}

func (h *V1Handler) login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !h.decode(w, r, &req) {
		return
	}
	resp, err := h.memberService.Login(&req)
	h.respond(w, resp, err)
}

func (h *V1Handler) reissue(w http.ResponseWriter, r *http.Request) {
	var req models.TokenReissueRequest
	if !h.decode(w, r, &req) {
		return
	}
	resp, err := h.memberService.Reissue(&req)
	h.respond(w, resp, err)
}

func (h *V1Handler) updatePassword(w http.ResponseWriter, r *http.Request, user *models.AuthenticatedUser) {
	if r.Method != http.MethodPut {
		utils.RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	var req models.PasswordUpdateRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.respondNoBody(w, h.memberService.UpdatePassword(&req, user.Email))
}

func (h *V1Handler) updateProfile(w http.ResponseWriter, r *http.Request, user *models.AuthenticatedUser) {
	if r.Method != http.MethodPut {
		utils.RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	var req models.ProfileUpdateRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.respondNoBody(w, h.memberService.UpdateProfile(&req, user.Email))
}

func (h *V1Handler) createChallenge(w http.ResponseWriter, r *http.Request, user *models.AuthenticatedUser) {
	var req models.CreateChallengeRequest
	if !h.decode(w, r, &req) {
		return
	}
	resp, err := h.challengeService.CreateChallenge(&req, user.Email)
	if err != nil {
		utils.RespondWithAPIError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, resp)
}

func (h *V1Handler) updateChallenge(w http.ResponseWriter, r *http.Request, user *models.AuthenticatedUser) {
	var req models.UpdateChallengeRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.respondNoBody(w, h.challengeService.UpdateChallenge(&req, user.Email))
}

// Shared response helpers

// decode reads the JSON request body, responding 400 on malformed input
func (h *V1Handler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return false
	}
	return true
}

func (h *V1Handler) respond(w http.ResponseWriter, data interface{}, err error) {
	if err != nil {
		utils.RespondWithAPIError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, data)
}

func (h *V1Handler) respondNoBody(w http.ResponseWriter, err error) {
	if err != nil {
		utils.RespondWithAPIError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// parsePage parses a 1-based page path segment, defaulting to the first page
func parsePage(raw string) int {
	page, err := strconv.Atoi(raw)
	if err != nil || page < 1 {
		return 1
	}
	return page
}
