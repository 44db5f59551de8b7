package v1

import (
	"net/http"

	"portfolio-backend/internal/delivery/http/response"
	"portfolio-backend/internal/usecase"

	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	healthUC usecase.HealthUsecase
}

func NewHealthHandler(public *gin.RouterGroup, healthUC usecase.HealthUsecase) {
	handler := &HealthHandler{healthUC: healthUC}
	public.GET("/health", handler.Check)
}

// Check godoc
// @Summary      Health Check
// @Tags         health
// @Produce      json
// @Success      200  {object}  response.SuccessResponse
// @Router       /health [get]
func (h *HealthHandler) Check(c *gin.Context) {
	var status map[string]string
	if h.healthUC != nil {
		status = h.healthUC.Check(c.Request.Context())
	}
	response.Success(c, http.StatusOK, "System operational", status)
}
