package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"explorafit-server/internal/auth"
	"explorafit-server/internal/domain"
	"explorafit-server/internal/export"
	"explorafit-server/internal/service"
	"explorafit-server/internal/storage"
)

const userIDKey = "user_id"

// Handler wires HTTP routes to domain services.
type Handler struct {
	users     service.UserService
	routes    service.RouteService
	exports   service.ExportService
	issuer    *auth.Issuer
	manager   export.Manager
	storage   storage.Service
	bucket    string
	keyPrefix string
}

func NewHandler(
	users service.UserService,
	routes service.RouteService,
	exports service.ExportService,
	issuer *auth.Issuer,
	manager export.Manager,
	store storage.Service,
	bucket string,
	keyPrefix string,
) *Handler {
	return &Handler{
		users:     users,
		routes:    routes,
		exports:   exports,
		issuer:    issuer,
		manager:   manager,
		storage:   store,
		bucket:    bucket,
		keyPrefix: keyPrefix,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(corsMiddleware())
	router.Use(h.identityMiddleware())

	api := router.Group("/api")
	{
		api.POST("/signup", h.signup)
		api.POST("/login", h.login)
		api.GET("/routes", h.listRoutes)
		api.POST("/routes", h.createRoute)
		api.POST("/routes/:id/export", h.exportRoute)
		api.GET("/exports", h.listExports)
		api.GET("/exports/:id/url", h.exportURL)
		api.DELETE("/exports/:id", h.cancelExport)
		api.GET("/storage/objects", h.listStorageObjects)
		api.GET("/health", func(ctx *gin.Context) {
			ctx.JSON(http.StatusOK, gin.H{"ok": "ok"})
		})
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// identityMiddleware resolves the bearer token to a user id when present and
// valid. A missing or bad token leaves the request anonymous; only handlers
// that require identity reject it.
func (h *Handler) identityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimSpace(c.GetHeader("Authorization"))
		token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
		if token != "" {
			if userID, err := h.issuer.Verify(token); err == nil {
				c.Set(userIDKey, userID)
			}
		}
		c.Next()
	}
}

// requireIdentity returns the authenticated user id, or writes 401 and
// reports false.
func requireIdentity(c *gin.Context) (int64, bool) {
	v, ok := c.Get(userIDKey)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return 0, false
	}
	return v.(int64), true
}

type credentialsRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) signup(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.Signup(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}

	token, err := h.issuer.Issue(user.ID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, AuthResponse{
		Token: token,
		User:  userToResponse(user),
	})
}

func (h *Handler) login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}

	token, err := h.issuer.Issue(user.ID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, AuthResponse{
		Token: token,
		User:  userToResponse(user),
	})
}

type createRouteRequest struct {
	Name        string          `json:"name" binding:"required"`
	Difficulty  string          `json:"difficulty" binding:"required"`
	Description string          `json:"description"`
	Landmarks   string          `json:"landmarks"`
	City        string          `json:"city"`
	DistanceKm  float64         `json:"distance_km"` // hint only, recomputed server-side
	Polyline    []domain.LatLng `json:"polyline" binding:"required"`
}

func (h *Handler) createRoute(c *gin.Context) {
	userID, ok := requireIdentity(c)
	if !ok {
		return
	}

	var req createRouteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	route, user, err := h.routes.CreateRoute(c.Request.Context(), userID, service.NewRouteInput{
		Name:        req.Name,
		Difficulty:  domain.Difficulty(req.Difficulty),
		Description: req.Description,
		Landmarks:   req.Landmarks,
		City:        req.City,
		Polyline:    req.Polyline,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, CreateRouteResponse{
		Route: routeToResponse(*route),
		User:  userToResponse(user),
	})
}

func (h *Handler) listRoutes(c *gin.Context) {
	userID, ok := requireIdentity(c)
	if !ok {
		return
	}

	routes, err := h.routes.ListByOwner(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}

	resp := make([]RouteResponse, len(routes))
	for i := range routes {
		resp[i] = routeToResponse(routes[i])
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) exportRoute(c *gin.Context) {
	userID, ok := requireIdentity(c)
	if !ok {
		return
	}
	if h.storage == nil || h.bucket == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage service not configured"})
		return
	}

	routeID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || routeID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid route id"})
		return
	}

	job, err := h.exports.RequestExport(c.Request.Context(), userID, routeID)
	if err != nil {
		writeError(c, err)
		return
	}

	if err := h.manager.Enqueue(c.Request.Context(), job.ID); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, exportToResponse(*job))
}

func (h *Handler) listExports(c *gin.Context) {
	userID, ok := requireIdentity(c)
	if !ok {
		return
	}

	jobs, err := h.exports.ListByOwner(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}

	resp := make([]ExportResponse, len(jobs))
	for i := range jobs {
		resp[i] = exportToResponse(jobs[i])
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) exportURL(c *gin.Context) {
	userID, ok := requireIdentity(c)
	if !ok {
		return
	}
	if h.storage == nil || h.bucket == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage service not configured"})
		return
	}

	jobID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || jobID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid export id"})
		return
	}

	job, err := h.exports.GetJob(c.Request.Context(), jobID)
	if err != nil {
		writeError(c, err)
		return
	}
	if job.OwnerID != userID {
		c.JSON(http.StatusNotFound, gin.H{"error": domain.ErrExportNotFound.Error()})
		return
	}
	if job.Status != domain.ExportStatusCompleted {
		c.JSON(http.StatusConflict, gin.H{"error": "export not completed"})
		return
	}

	key, err := extractS3Key(job.S3Location, h.bucket)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	url, err := h.storage.GetObjectURL(c.Request.Context(), h.bucket, key, 15*time.Minute)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": url})
}

// cancelExport stops a job that has not finished yet. A running job is
// interrupted before its record is marked; a pending one is simply marked.
func (h *Handler) cancelExport(c *gin.Context) {
	userID, ok := requireIdentity(c)
	if !ok {
		return
	}

	jobID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || jobID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid export id"})
		return
	}

	job, err := h.exports.GetJob(c.Request.Context(), jobID)
	if err != nil {
		writeError(c, err)
		return
	}
	if job.OwnerID != userID {
		c.JSON(http.StatusNotFound, gin.H{"error": domain.ErrExportNotFound.Error()})
		return
	}
	if job.Status == domain.ExportStatusCompleted || job.Status == domain.ExportStatusCancelled {
		c.JSON(http.StatusConflict, gin.H{"error": "export already " + string(job.Status)})
		return
	}

	if h.manager != nil {
		if err := h.manager.Cancel(c.Request.Context(), job.ID); err != nil {
			writeError(c, err)
			return
		}
	}

	msg := "cancelled by owner"
	if err := h.exports.UpdateStatus(c.Request.Context(), job.ID, domain.ExportStatusCancelled, &msg); err != nil {
		writeError(c, err)
		return
	}

	updated, err := h.exports.GetJob(c.Request.Context(), job.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, exportToResponse(*updated))
}

func (h *Handler) listStorageObjects(c *gin.Context) {
	if _, ok := requireIdentity(c); !ok {
		return
	}
	if h.storage == nil || h.bucket == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage service not configured"})
		return
	}

	objects, err := h.storage.ListObjects(c.Request.Context(), h.bucket, h.keyPrefix)
	if err != nil {
		writeError(c, err)
		return
	}

	resp := make([]ObjectResponse, len(objects))
	for i, obj := range objects {
		resp[i] = ObjectResponse{Key: obj.Key, Size: obj.Size}
		if obj.LastModified != nil {
			v := obj.LastModified.Format(time.RFC3339)
			resp[i].LastModified = &v
		}
	}
	c.JSON(http.StatusOK, resp)
}

func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidCredentials),
		errors.Is(err, domain.ErrInvalidToken),
		errors.Is(err, domain.ErrTokenExpired):
		status = http.StatusUnauthorized
	case errors.Is(err, domain.ErrInsufficientCredits):
		status = http.StatusPaymentRequired
	case errors.Is(err, domain.ErrEmailTaken):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrRouteNotFound),
		errors.Is(err, domain.ErrExportNotFound):
		status = http.StatusNotFound
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

type UserResponse struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	IsPremium bool   `json:"is_premium"`
	Credits   int    `json:"credits"`
}

type RouteResponse struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Difficulty  string          `json:"difficulty"`
	Description string          `json:"description,omitempty"`
	Landmarks   string          `json:"landmarks,omitempty"`
	City        string          `json:"city,omitempty"`
	DistanceKm  float64         `json:"distance_km"`
	Polyline    []domain.LatLng `json:"polyline"`
	CreatedAt   string          `json:"created_at"`
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

type CreateRouteResponse struct {
	Route RouteResponse `json:"route"`
	User  UserResponse  `json:"user"`
}

type ObjectResponse struct {
	Key          string  `json:"key"`
	Size         int64   `json:"size"`
	LastModified *string `json:"last_modified,omitempty"`
}

type ExportResponse struct {
	ID           int64   `json:"id"`
	RouteID      int64   `json:"route_id"`
	Status       string  `json:"status"`
	S3Location   string  `json:"s3_location,omitempty"`
	ErrorMessage string  `json:"error_message,omitempty"`
	CreatedAt    string  `json:"created_at"`
	CompletedAt  *string `json:"completed_at,omitempty"`
}

// userToResponse maps a user to its public shape; the password hash never
// leaves the service boundary.
func userToResponse(user *domain.User) UserResponse {
	return UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		IsPremium: user.IsPremium,
		Credits:   user.Credits,
	}
}

func routeToResponse(route domain.Route) RouteResponse {
	return RouteResponse{
		ID:          route.ID,
		Name:        route.Name,
		Difficulty:  string(route.Difficulty),
		Description: route.Description,
		Landmarks:   route.Landmarks,
		City:        route.City,
		DistanceKm:  route.DistanceKm,
		Polyline:    route.Polyline,
		CreatedAt:   route.CreatedAt.Format(time.RFC3339),
	}
}

func exportToResponse(job domain.ExportJob) ExportResponse {
	resp := ExportResponse{
		ID:           job.ID,
		RouteID:      job.RouteID,
		Status:       string(job.Status),
		S3Location:   job.S3Location,
		ErrorMessage: job.ErrorMessage,
		CreatedAt:    job.CreatedAt.Format(time.RFC3339),
	}
	if job.CompletedAt != nil {
		v := job.CompletedAt.Format(time.RFC3339)
		resp.CompletedAt = &v
	}
	return resp
}

func extractS3Key(location, bucket string) (string, error) {
	if !strings.HasPrefix(location, "s3://") {
		return "", errors.New("invalid s3 location")
	}
	rest := strings.TrimPrefix(location, "s3://")
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", errors.New("invalid s3 location")
	}
	if bucket != "" && parts[0] != bucket {
		return "", errors.New("s3 bucket mismatch")
	}
	return parts[1], nil
}
