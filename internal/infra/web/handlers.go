package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"referral-service/internal/domain"
	"referral-service/internal/domain/model"
	"referral-service/internal/infra/logging"
	"referral-service/internal/usecase"
)

// Wire error codes. The taxonomy is deliberately exhaustive: every domain
// rejection is classified so the form UI can render a specific message, and
// storage failures are a separate, retryable class.
const (
	codeInvalidFingerprint = "INVALID_FINGERPRINT"
	codeInvalidReferral    = "INVALID_REFERRAL_CODE"
	codeReferralNotFound   = "REFERRAL_NOT_FOUND"
	codeInactive           = "CODE_INACTIVE"
	codeExpired            = "CODE_EXPIRED"
	codeSelfReferral       = "CANNOT_USE_OWN_CODE"
	codeDeviceBanned       = "DEVICE_BANNED"
	codeAlreadyRedeemed    = "ALREADY_REDEEMED"
	codeServiceUnavailable = "SERVICE_UNAVAILABLE"
)

type errorBody struct {
	Code           string     `json:"code"`
	BannedUntil    *time.Time `json:"banned_until,omitempty"`
	FailedAttempts *int       `json:"failed_attempts,omitempty"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

type validateRequest struct {
	ReferralCode string                   `json:"referral_code"`
	DeviceData   model.FingerprintPayload `json:"device_data"`
}

type validateResponse struct {
	Fingerprint  string  `json:"fingerprint"`
	IsSpecial    bool    `json:"is_special"`
	ReferrerName *string `json:"referrer_name,omitempty"`
}

type submitRequest struct {
	ReferralCode string                   `json:"referral_code"`
	DeviceData   model.FingerprintPayload `json:"device_data"`
	Form         json.RawMessage          `json:"form"`
}

type submitResponse struct {
	SubmissionID string `json:"submission_id"`
}

type deviceStatusRequest struct {
	DeviceData model.FingerprintPayload `json:"device_data"`
}

type deviceStatusResponse struct {
	IsBanned       bool       `json:"is_banned"`
	FailedAttempts int        `json:"failed_attempts"`
	BannedUntil    *time.Time `json:"banned_until,omitempty"`
	LastAttemptAt  *time.Time `json:"last_attempt_at,omitempty"`
}

func validateHandler(validationUC usecase.ValidationUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req validateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		var userID *string
		if uid, ok := SessionUser(ctx); ok {
			userID = &uid
		}

		res, err := validationUC.Validate(ctx, req.ReferralCode, req.DeviceData, userID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, validateResponse{
			Fingerprint:  res.DeviceID,
			IsSpecial:    res.IsSpecial,
			ReferrerName: res.ReferrerName,
		})
	}
}

func submitHandler(submissionUC usecase.SubmissionUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req submitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		var userID *string
		if uid, ok := SessionUser(ctx); ok {
			userID = &uid
		}

		s, err := submissionUC.Submit(ctx, req.ReferralCode, req.DeviceData, userID, req.Form)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, submitResponse{SubmissionID: s.ID})
	}
}

func deviceStatusHandler(deviceUC usecase.DeviceUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req deviceStatusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		status, err := deviceUC.Status(ctx, req.DeviceData)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, deviceStatusResponse{
			IsBanned:       status.IsBanned(time.Now().UTC()),
			FailedAttempts: status.FailedAttempts,
			BannedUntil:    status.BannedUntil,
			LastAttemptAt:  status.LastAttemptAt,
		})
	}
}

// writeDomainError maps domain rejections to their wire codes. Anything not
// in the taxonomy is a storage/transport failure and surfaces as a
// retryable 503, never as a domain rejection.
func writeDomainError(w http.ResponseWriter, err error) {
	var banned *usecase.BannedError
	if errors.As(err, &banned) {
		attempts := banned.Status.FailedAttempts
		writeJSON(w, http.StatusForbidden, errorResponse{Error: errorBody{
			Code:           codeDeviceBanned,
			BannedUntil:    banned.Status.BannedUntil,
			FailedAttempts: &attempts,
		}})
		return
	}

	var wire string
	status := http.StatusUnprocessableEntity
	switch {
	case errors.Is(err, domain.ErrInvalidFingerprint):
		wire, status = codeInvalidFingerprint, http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidCodeFormat):
		wire, status = codeInvalidReferral, http.StatusBadRequest
	case errors.Is(err, domain.ErrCodeNotFound):
		wire, status = codeReferralNotFound, http.StatusNotFound
	case errors.Is(err, domain.ErrCodeInactive):
		wire = codeInactive
	case errors.Is(err, domain.ErrCodeExpired):
		wire = codeExpired
	case errors.Is(err, domain.ErrSelfReferral):
		wire, status = codeSelfReferral, http.StatusForbidden
	case errors.Is(err, domain.ErrDeviceBanned):
		wire, status = codeDeviceBanned, http.StatusForbidden
	case errors.Is(err, domain.ErrAlreadyRedeemed):
		wire, status = codeAlreadyRedeemed, http.StatusConflict
	default:
		wire, status = codeServiceUnavailable, http.StatusServiceUnavailable
	}
	writeJSON(w, status, errorResponse{Error: errorBody{Code: wire}})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ---- Admin handlers ----

type codeCreateRequest struct {
	Code        string     `json:"code"`
	OwnerUserID string     `json:"owner_user_id"`
	OwnerName   string     `json:"owner_name"`
	Special     bool       `json:"special"`
	ExpiresAt   *time.Time `json:"expires_at"`
}

type codeUpdateRequest struct {
	IsActive    *bool      `json:"is_active"`
	ExpiresAt   *time.Time `json:"expires_at"`
	ClearExpiry bool       `json:"clear_expiry"`
}

type codeView struct {
	ID          string     `json:"id"`
	Code        string     `json:"code"`
	OwnerUserID *string    `json:"owner_user_id,omitempty"`
	OwnerName   *string    `json:"owner_name,omitempty"`
	IsSpecial   bool       `json:"is_special"`
	IsActive    bool       `json:"is_active"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func toCodeView(c *model.ReferralCode) codeView {
	return codeView{
		ID:          c.ID,
		Code:        c.Code,
		OwnerUserID: c.OwnerUserID,
		OwnerName:   c.OwnerName,
		IsSpecial:   c.IsSpecial,
		IsActive:    c.IsActive,
		ExpiresAt:   c.ExpiresAt,
		CreatedAt:   c.CreatedAt,
	}
}

func codeCreateHandler(adminUC usecase.CodeAdminUseCase, logger *zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req codeCreateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		var (
			c   *model.ReferralCode
			err error
		)
		if req.Special {
			c, err = adminUC.CreateSpecial(ctx, req.Code, req.ExpiresAt)
		} else {
			c, err = adminUC.CreateOwned(ctx, req.Code, req.OwnerUserID, req.OwnerName, req.ExpiresAt)
		}
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrInvalidCodeFormat):
				http.Error(w, err.Error(), http.StatusBadRequest)
			case errors.Is(err, domain.ErrAlreadyExists):
				http.Error(w, err.Error(), http.StatusConflict)
			default:
				logging.With(ctx, logger).Error().Err(err).Msg("code create failed")
				http.Error(w, "Failed to create code", http.StatusInternalServerError)
			}
			return
		}
		writeJSON(w, http.StatusCreated, toCodeView(c))
	}
}

func codeListHandler(adminUC usecase.CodeAdminUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		if limit <= 0 {
			limit = 50
		}
		if offset < 0 {
			offset = 0
		}

		codes, err := adminUC.List(r.Context(), offset, limit)
		if err != nil {
			http.Error(w, "Failed to list codes", http.StatusInternalServerError)
			return
		}
		views := make([]codeView, 0, len(codes))
		for _, c := range codes {
			views = append(views, toCodeView(c))
		}
		writeJSON(w, http.StatusOK, struct {
			Data   []codeView `json:"data"`
			Limit  int        `json:"limit"`
			Offset int        `json:"offset"`
		}{views, limit, offset})
	}
}

func codeUpdateHandler(adminUC usecase.CodeAdminUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id := chi.URLParam(r, "id")

		var req codeUpdateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		var (
			c   *model.ReferralCode
			err error
		)
		switch {
		case req.IsActive != nil:
			c, err = adminUC.SetActive(ctx, id, *req.IsActive)
		case req.ClearExpiry:
			c, err = adminUC.SetExpiry(ctx, id, nil)
		case req.ExpiresAt != nil:
			c, err = adminUC.SetExpiry(ctx, id, req.ExpiresAt)
		default:
			http.Error(w, "Nothing to update", http.StatusBadRequest)
			return
		}
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				http.Error(w, "Code not found", http.StatusNotFound)
				return
			}
			http.Error(w, "Failed to update code", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, toCodeView(c))
	}
}

func codeDeleteHandler(adminUC usecase.CodeAdminUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := adminUC.Delete(r.Context(), id); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				http.Error(w, "Code not found", http.StatusNotFound)
				return
			}
			http.Error(w, "Failed to delete code", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type submissionView struct {
	ID             string          `json:"id"`
	ReferralCodeID string          `json:"referral_code_id"`
	DeviceID       string          `json:"device_id"`
	FormSnapshot   json.RawMessage `json:"form_snapshot"`
	CreatedAt      time.Time       `json:"created_at"`
}

func codeSubmissionsHandler(adminUC usecase.CodeAdminUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		if limit <= 0 {
			limit = 50
		}
		if offset < 0 {
			offset = 0
		}

		subs, total, err := adminUC.Submissions(r.Context(), id, offset, limit)
		if err != nil {
			http.Error(w, "Failed to list submissions", http.StatusInternalServerError)
			return
		}
		views := make([]submissionView, 0, len(subs))
		for _, s := range subs {
			views = append(views, submissionView{
				ID:             s.ID,
				ReferralCodeID: s.ReferralCodeID,
				DeviceID:       s.DeviceID,
				FormSnapshot:   s.FormSnapshot,
				CreatedAt:      s.CreatedAt,
			})
		}
		writeJSON(w, http.StatusOK, struct {
			Data   []submissionView `json:"data"`
			Total  int              `json:"total"`
			Limit  int              `json:"limit"`
			Offset int              `json:"offset"`
		}{views, total, limit, offset})
	}
}
