package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/zoff-tech/time-capsule/pkg/scheduler"
	"github.com/zoff-tech/time-capsule/pkg/store"
)

// PassRunner is the part of the scheduler the trigger endpoint needs.
type PassRunner interface {
	RunOnce(ctx context.Context, now time.Time) (scheduler.Summary, error)
}

type CapsuleHandler struct {
	repo     store.CapsuleRepository
	runner   PassRunner
	validate *validator.Validate
}

func NewCapsuleHandler(repo store.CapsuleRepository, runner PassRunner) *CapsuleHandler {
	return &CapsuleHandler{
		repo:     repo,
		runner:   runner,
		validate: validator.New(),
	}
}

type createCapsuleRequest struct {
	SenderName    string `json:"senderName" validate:"required"`
	ReceiverEmail string `json:"receiverEmail" validate:"required,email"`
	Message       string `json:"message" validate:"required"`
	UnlockAt      string `json:"unlockAt" validate:"required"`
	Category      string `json:"category"`
	Password      string `json:"password"`
}

func (h *CapsuleHandler) CreateCapsule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createCapsuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}

	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "missing required fields")
		return
	}

	unlockAt, err := time.Parse(time.RFC3339, req.UnlockAt)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid unlock date")
		return
	}

	now := time.Now()
	if unlockAt.Before(now) {
		writeError(w, http.StatusBadRequest, "unlock date is in the past")
		return
	}

	var digest string
	if req.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			log.Printf("Failed to hash capsule password: %v", err)
			writeError(w, http.StatusInternalServerError, "server error")
			return
		}
		digest = string(hash)
	}

	capsule := &store.Capsule{
		ID:               uuid.NewString(),
		SenderName:       req.SenderName,
		ReceiverEmail:    req.ReceiverEmail,
		Message:          req.Message,
		UnlockAt:         unlockAt,
		Category:         req.Category,
		CredentialDigest: digest,
		Status:           store.StatusPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := h.repo.Create(ctx, capsule); err != nil {
		log.Printf("Failed to create capsule: %v", err)
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Saved",
		"capsule": capsule,
	})
}

func (h *CapsuleHandler) ListCapsules(w http.ResponseWriter, r *http.Request) {
	capsules, err := h.repo.List(r.Context())
	if err != nil {
		log.Printf("Failed to list capsules: %v", err)
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}

	if capsules == nil {
		capsules = []store.Capsule{}
	}

	writeJSON(w, http.StatusOK, capsules)
}

func (h *CapsuleHandler) TriggerSend(w http.ResponseWriter, r *http.Request) {
	summary, err := h.runner.RunOnce(r.Context(), time.Now())
	if err != nil {
		log.Printf("Manual pass failed: %v", err)
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
