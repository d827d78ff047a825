package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"playledger/internal/auth"
	"playledger/internal/ledger"
	"playledger/internal/metrics"
	"playledger/internal/model"
	"playledger/internal/service"
)

type Handler struct {
	svc     service.LedgerService
	authn   *auth.Authenticator
	metrics *metrics.LedgerMetrics
}

func NewHandler(svc service.LedgerService, authn *auth.Authenticator) *Handler {
	return &Handler{svc: svc, authn: authn, metrics: metrics.Ledger()}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Get("/health", h.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(v1 chi.Router) {
		v1.Use(authenticate(h.authn))
		v1.Use(h.observe)

		v1.Get("/today", h.Today)
		v1.Post("/plays", h.Play)
		v1.Post("/plays/mint", h.MintToday)
		v1.Get("/records/{participant}/today", h.GetTodayRecord)
		v1.Get("/records/{participant}/{day}", h.GetRecord)
		v1.Get("/participants/{participant}/best-score", h.GetBestScore)
		v1.Get("/leaderboard", h.GetLeaderboard)

		v1.Post("/token/transfer", h.Transfer)
		v1.Post("/token/approve", h.Approve)
		v1.Get("/token/balances/{account}", h.GetBalance)
		v1.Get("/token/allowances/{owner}/{spender}", h.GetAllowance)
		v1.Get("/assets/{id}", h.GetAsset)

		v1.Route("/admin", func(admin chi.Router) {
			admin.Post("/issue", h.Issue)
			admin.Post("/withdraw", h.Withdraw)
			admin.Post("/records/minted", h.SetMinted)
			admin.Post("/reward-asset", h.SetRewardAsset)
			admin.Post("/reward-assets", h.DeployRewardAsset)
			admin.Post("/issuer", h.SetIssuer)
		})
	})
	return r
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (h *Handler) Today(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]int64{"day": h.svc.TodayDate(r.Context())})
}

func (h *Handler) Play(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CallerFrom(r.Context())
	var req model.PlayRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.svc.Play(r.Context(), caller, req)
	if err != nil {
		respondLedgerError(w, err)
		return
	}
	status := http.StatusCreated
	if res.FeeCharged {
		status = http.StatusOK
	}
	respondJSON(w, status, res)
}

func (h *Handler) MintToday(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CallerFrom(r.Context())
	var req model.MintRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.svc.MintToday(r.Context(), caller, req)
	if err != nil {
		respondLedgerError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, res)
}

func (h *Handler) GetTodayRecord(w http.ResponseWriter, r *http.Request) {
	h.writeRecord(w, r, h.svc.TodayDate(r.Context()))
}

func (h *Handler) GetRecord(w http.ResponseWriter, r *http.Request) {
	day, err := strconv.ParseInt(chi.URLParam(r, "day"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_day", "day must be an integer")
		return
	}
	h.writeRecord(w, r, day)
}

func (h *Handler) writeRecord(w http.ResponseWriter, r *http.Request, day int64) {
	participant := model.Address(chi.URLParam(r, "participant"))
	rec, err := h.svc.Record(r.Context(), participant, day)
	if err != nil {
		respondLedgerError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

func (h *Handler) GetBestScore(w http.ResponseWriter, r *http.Request) {
	participant := model.Address(chi.URLParam(r, "participant"))
	score, err := h.svc.BestScore(r.Context(), participant)
	if err != nil {
		respondLedgerError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, model.LeaderboardEntry{Participant: participant, BestScore: score})
}

func (h *Handler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 || v > 100 {
			respondError(w, http.StatusBadRequest, "invalid_limit", "limit must be between 1 and 100")
			return
		}
		limit = v
	}
	entries, err := h.svc.Leaderboard(r.Context(), limit)
	if err != nil {
		respondLedgerError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (h *Handler) Transfer(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CallerFrom(r.Context())
	var req model.TransferRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.svc.Transfer(r.Context(), caller, req); err != nil {
		respondLedgerError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CallerFrom(r.Context())
	var req model.ApproveRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.svc.Approve(r.Context(), caller, req); err != nil {
		respondLedgerError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	account := model.Address(chi.URLParam(r, "account"))
	bal, err := h.svc.GetBalance(r.Context(), account)
	if err != nil {
		respondLedgerError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"account": string(account), "balance": bal})
}

func (h *Handler) GetAllowance(w http.ResponseWriter, r *http.Request) {
	owner := model.Address(chi.URLParam(r, "owner"))
	spender := model.Address(chi.URLParam(r, "spender"))
	amount, err := h.svc.GetAllowance(r.Context(), owner, spender)
	if err != nil {
		respondLedgerError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"owner": string(owner), "spender": string(spender), "allowance": amount})
}

func (h *Handler) GetAsset(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_id", "id must be a positive integer")
		return
	}
	asset, err := h.svc.GetAsset(r.Context(), model.Address(r.URL.Query().Get("contract")), id)
	if err != nil {
		respondLedgerError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, asset)
}

func (h *Handler) Issue(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CallerFrom(r.Context())
	var req model.IssueRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.svc.Issue(r.Context(), caller, req); err != nil {
		respondLedgerError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CallerFrom(r.Context())
	var req model.TransferRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.svc.Withdraw(r.Context(), caller, req); err != nil {
		respondLedgerError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (h *Handler) SetMinted(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CallerFrom(r.Context())
	var req model.SetMintedRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.svc.SetMinted(r.Context(), caller, req); err != nil {
		respondLedgerError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (h *Handler) SetRewardAsset(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CallerFrom(r.Context())
	var req model.AddressRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.svc.SetRewardAsset(r.Context(), caller, req.Address); err != nil {
		respondLedgerError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (h *Handler) DeployRewardAsset(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CallerFrom(r.Context())
	var req model.AddressRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.svc.DeployRewardAsset(r.Context(), caller, req.Address); err != nil {
		respondLedgerError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"status": "created"})
}

func (h *Handler) SetIssuer(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CallerFrom(r.Context())
	var req model.IssuerRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.svc.SetIssuer(r.Context(), caller, req); err != nil {
		respondLedgerError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// observe records latency and the outcome code per route pattern.
func (h *Handler) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		h.metrics.ObserveRequest("http", r.Method+" "+route, strconv.Itoa(ww.Status()), time.Since(start).Seconds())
	})
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return false
	}
	return true
}

// statusFor maps ledger errors to HTTP statuses. A failed replay fee is
// always 402 so clients can prompt for a top-up or approval.
func statusFor(err error) int {
	if errors.Is(err, ledger.ErrPaymentRequired) {
		return http.StatusPaymentRequired
	}
	switch ledger.ErrorCode(err) {
	case ledger.CodeUnauthorized:
		return http.StatusForbidden
	case ledger.CodeNotFound:
		return http.StatusNotFound
	case ledger.CodeAlreadyMinted:
		return http.StatusConflict
	case ledger.CodeInsufficientBalance, ledger.CodeInsufficientAllowance:
		return http.StatusUnprocessableEntity
	case ledger.CodeInvalidAmount, ledger.CodeInvalidAddress:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func respondLedgerError(w http.ResponseWriter, err error) {
	respondError(w, statusFor(err), ledger.ErrorCode(err), err.Error())
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, map[string]string{"error": code, "message": message})
}
