package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/efreitasn/minivenue/internal/domain"
	"github.com/efreitasn/minivenue/internal/service"
)

// AccountHandler handles HTTP requests for account endpoints.
type AccountHandler struct {
	accountSvc *service.AccountService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accountSvc *service.AccountService) *AccountHandler {
	return &AccountHandler{accountSvc: accountSvc}
}

// credentialsRequest is the JSON request body for POST /signup and /signin.
type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// onRampRequest is the JSON request body for POST /onramp.
type onRampRequest struct {
	UserEmail string `json:"user_email"`
	Balance   int64  `json:"balance"`
	Holdings  int64  `json:"holdings"`
}

// onRampResponse is the JSON response for POST /onramp (202 Accepted).
type onRampResponse struct {
	Message     string `json:"message"`
	NewBalance  int64  `json:"new_balance"`
	NewHoldings int64  `json:"new_holdings"`
}

// accountResponse is the JSON response for GET /accounts/{email}.
type accountResponse struct {
	Email             string `json:"email"`
	Balance           int64  `json:"balance"`
	Holdings          int64  `json:"holdings"`
	ReservedBalance   int64  `json:"reserved_balance"`
	ReservedHoldings  int64  `json:"reserved_holdings"`
	AvailableBalance  int64  `json:"available_balance"`
	AvailableHoldings int64  `json:"available_holdings"`
	UpdatedAt         string `json:"updated_at"`
}

// Signup handles POST /signup.
func (h *AccountHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := ParseJSON(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	if err := h.accountSvc.Signup(r.Context(), req.Email, req.Password); err != nil {
		writeStatusError(w, err)
		return
	}

	WriteJSON(w, HTTPStatus(domain.StatusCreated), messageResponse{Message: "User created"})
}

// Signin handles POST /signin.
func (h *AccountHandler) Signin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := ParseJSON(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	if err := h.accountSvc.Signin(r.Context(), req.Email, req.Password); err != nil {
		writeStatusError(w, err)
		return
	}

	WriteJSON(w, HTTPStatus(domain.StatusAuthenticated), messageResponse{Message: "Authenticated"})
}

// OnRamp handles POST /onramp.
func (h *AccountHandler) OnRamp(w http.ResponseWriter, r *http.Request) {
	var req onRampRequest
	if err := ParseJSON(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	a, err := h.accountSvc.OnRamp(r.Context(), req.UserEmail, req.Balance, req.Holdings)
	if err != nil {
		writeStatusError(w, err)
		return
	}

	WriteJSON(w, http.StatusAccepted, onRampResponse{
		Message:     "Deposit accepted",
		NewBalance:  a.Balance,
		NewHoldings: a.Holdings,
	})
}

// GetAccount handles GET /accounts/{email}.
func (h *AccountHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")

	a, err := h.accountSvc.Account(r.Context(), email)
	if err != nil {
		writeStatusError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, accountResponse{
		Email:             a.Email,
		Balance:           a.Balance,
		Holdings:          a.Holdings,
		ReservedBalance:   a.ReservedBalance,
		ReservedHoldings:  a.ReservedHoldings,
		AvailableBalance:  a.AvailableBalance(),
		AvailableHoldings: a.AvailableHoldings(),
		UpdatedAt:         a.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	})
}
