package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"samaj-census/internal/repository"
	"samaj-census/internal/service"

	"go.uber.org/zap"
)

// AdminHandler 管理端查询/导出/导入/统计
type AdminHandler struct {
	admin  service.AdminService
	logger *zap.Logger
}

func NewAdminHandler(admin service.AdminService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{admin: admin, logger: logger}
}

// filterFromQuery maps query params onto the repository filter.
func filterFromQuery(r *http.Request) repository.MemberFilter {
	q := r.URL.Query()
	return repository.MemberFilter{
		SamajName:    q.Get("samaj_name"),
		FamilyName:   q.Get("family_name"),
		Name:         q.Get("name"),
		Role:         q.Get("role"),
		AgeMin:       parseIntPtr(q.Get("age_min")),
		AgeMax:       parseIntPtr(q.Get("age_max")),
		BloodGroup:   q.Get("blood_group"),
		City:         q.Get("city"),
		Profession:   q.Get("profession"),
		IsFamilyHead: parseBoolPtr(q.Get("is_family_head")),
	}
}

func (h *AdminHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.admin.ListMembers(r.Context(), filterFromQuery(r))
	if err != nil {
		h.logger.Error("Failed to list members", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to list members")
		return
	}
	writeJSON(w, http.StatusOK, members)
}

// GetMember handles /api/v1/admin/members/{id}.
func (h *AdminHandler) GetMember(w http.ResponseWriter, r *http.Request, memberID string) {
	member, err := h.admin.GetMember(r.Context(), memberID)
	if err != nil {
		h.logger.Error("Failed to get member", zap.String("member_id", memberID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to get member")
		return
	}
	if member == nil {
		writeError(w, http.StatusNotFound, "Member not found")
		return
	}
	writeJSON(w, http.StatusOK, member)
}

func (h *AdminHandler) ListSamaj(w http.ResponseWriter, r *http.Request) {
	list, err := h.admin.ListSamaj(r.Context())
	if err != nil {
		h.logger.Error("Failed to list samaj", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to list samaj")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *AdminHandler) ListFamilies(w http.ResponseWriter, r *http.Request) {
	list, err := h.admin.ListFamilies(r.Context(), r.URL.Query().Get("samaj_name"))
	if err != nil {
		h.logger.Error("Failed to list families", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to list families")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *AdminHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	data, filename, err := h.admin.ExportCSV(r.Context(), filterFromQuery(r))
	if err != nil {
		h.logger.Error("Failed to export CSV", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to export members")
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *AdminHandler) ExportXLSX(w http.ResponseWriter, r *http.Request) {
	data, filename, err := h.admin.ExportXLSX(r.Context(), filterFromQuery(r))
	if err != nil {
		h.logger.Error("Failed to export XLSX", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to export members")
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *AdminHandler) ImportCSV(w http.ResponseWriter, r *http.Request) {
	samajName := r.URL.Query().Get("samaj_name")
	if strings.TrimSpace(samajName) == "" {
		writeError(w, http.StatusBadRequest, "samaj_name is required")
		return
	}
	defer r.Body.Close()

	result, err := h.admin.ImportCSV(r.Context(), samajName, r.Body)
	if err != nil {
		h.logger.Error("Failed to import CSV", zap.Error(err))
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *AdminHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	analytics, err := h.admin.Analytics(r.Context())
	if err != nil {
		h.logger.Error("Failed to compute analytics", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to compute analytics")
		return
	}
	writeJSON(w, http.StatusOK, analytics)
}
