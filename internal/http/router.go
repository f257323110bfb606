package httpapi

import (
	"net/http"
	"strings"

	"samaj-census/internal/service"

	"go.uber.org/zap"
)

// Router 使用标准库 http.ServeMux（避免引入第三方路由依赖）
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterWebhookRoutes 注册 Twilio 入站 webhook
func (r *Router) RegisterWebhookRoutes(h *WebhookHandler) {
	r.Handle("/api/v1/webhook", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.Webhook(w, req)
	})
}

// RegisterAuthRoutes 注册管理端登录
func (r *Router) RegisterAuthRoutes(h *AuthHandler) {
	r.Handle("/api/v1/auth/token", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.Token(w, req)
	})
}

// RegisterAdminRoutes 注册管理端查询/导出/导入/统计（全部需要 bearer token）
func (r *Router) RegisterAdminRoutes(h *AdminHandler, auth service.AuthService) {
	get := func(inner http.HandlerFunc) http.HandlerFunc {
		return RequireAuth(auth, r.logger, func(w http.ResponseWriter, req *http.Request) {
			if req.Method != http.MethodGet {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			inner(w, req)
		})
	}

	r.Handle("/api/v1/admin/members", get(h.ListMembers))
	r.Handle("/api/v1/admin/members/", get(func(w http.ResponseWriter, req *http.Request) {
		id := strings.TrimPrefix(req.URL.Path, "/api/v1/admin/members/")
		if id == "" || strings.Contains(id, "/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		h.GetMember(w, req, id)
	}))
	r.Handle("/api/v1/admin/samaj", get(h.ListSamaj))
	r.Handle("/api/v1/admin/families", get(h.ListFamilies))
	r.Handle("/api/v1/admin/export/csv", get(h.ExportCSV))
	r.Handle("/api/v1/admin/export/xlsx", get(h.ExportXLSX))
	r.Handle("/api/v1/admin/analytics", get(h.Analytics))

	r.Handle("/api/v1/admin/import/csv", RequireAuth(auth, r.logger, func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.ImportCSV(w, req)
	}))
}

// RegisterHealthRoutes 健康检查
func (r *Router) RegisterHealthRoutes() {
	r.Handle("/healthz", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}
