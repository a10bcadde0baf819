package handler

import (
	"net/http"

	"vaultdrive/internal/auth"
	"vaultdrive/internal/service"
)

type QuotaHandler struct {
	quotaService *service.QuotaService
}

func NewQuotaHandler(quotaService *service.QuotaService) *QuotaHandler {
	return &QuotaHandler{quotaService: quotaService}
}

func (h *QuotaHandler) GetUsage(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.VerifyToken(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	usage, err := h.quotaService.Usage(r.Context(), actor.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, usage)
}
