package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"vaultdrive/internal/auth"
	"vaultdrive/internal/domain"
	"vaultdrive/internal/service"
)

// maxMultipartMemory - порог, после которого multipart-форма
// выгружается на диск
const maxMultipartMemory = 32 << 20

type FileHandler struct {
	fileService *service.FileService
}

func NewFileHandler(fileService *service.FileService) *FileHandler {
	return &FileHandler{fileService: fileService}
}

func (h *FileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.VerifyToken(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		http.Error(w, "Invalid multipart form", http.StatusBadRequest)
		return
	}

	src, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "File is required", http.StatusBadRequest)
		return
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		http.Error(w, "Failed to read file", http.StatusBadRequest)
		return
	}

	var folderID *int64
	if idStr := r.FormValue("folder_id"); idStr != "" {
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			http.Error(w, "Invalid folder ID", http.StatusBadRequest)
			return
		}
		folderID = &id
	}

	file, err := h.fileService.Upload(r.Context(), actor, domain.FileUpload{
		OriginalName: header.Filename,
		MIMEType:     header.Header.Get("Content-Type"),
		FolderID:     folderID,
		Data:         data,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, file)
}

func (h *FileHandler) Download(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.VerifyToken(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	fileUUID, err := parseFileUUID(r)
	if err != nil {
		http.Error(w, "Invalid file UUID", http.StatusBadRequest)
		return
	}

	download, err := h.fileService.Download(r.Context(), actor, fileUUID)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", download.File.OriginalName))
	w.Header().Set("Content-Type", download.File.MIMEType)
	w.Header().Set("Content-Length", strconv.Itoa(len(download.Data)))
	w.Write(download.Data)
}

func (h *FileHandler) Rename(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.VerifyToken(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	fileUUID, err := parseFileUUID(r)
	if err != nil {
		http.Error(w, "Invalid file UUID", http.StatusBadRequest)
		return
	}

	var req renameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	file, err := h.fileService.Rename(r.Context(), actor, fileUUID, req.Name)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, file)
}

func (h *FileHandler) UpdateSharing(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.VerifyToken(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	fileUUID, err := parseFileUUID(r)
	if err != nil {
		http.Error(w, "Invalid file UUID", http.StatusBadRequest)
		return
	}

	var req shareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	file, err := h.fileService.UpdateSharing(r.Context(), actor, fileUUID, req.Shared)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, file)
}

// DeletePermanent удаляет файл, минуя корзину
func (h *FileHandler) DeletePermanent(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.VerifyToken(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	fileUUID, err := parseFileUUID(r)
	if err != nil {
		http.Error(w, "Invalid file UUID", http.StatusBadRequest)
		return
	}

	if err := h.fileService.Delete(r.Context(), actor, fileUUID); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func parseFileUUID(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, "uuid"))
}
