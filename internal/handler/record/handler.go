package record

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/optiplus/clinic-api/internal/handler"
	"github.com/optiplus/clinic-api/internal/model"
	"github.com/optiplus/clinic-api/internal/service/record"
)

type Handler struct {
	service *record.Service
}

func NewHandler(service *record.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	records := r.Group("/records")
	{
		records.GET("", h.ListRecords)
		records.GET("/:id", h.GetRecord)
		records.DELETE("/:id", h.DeleteRecord)
	}
}

// ListRecords returns patients joined with their latest examination and
// sale, newest first. Status and date-range filters are optional.
func (h *Handler) ListRecords(c *gin.Context) {
	var filters model.RecordFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	records, err := h.service.List(c.Request.Context(), &filters)
	if err != nil {
		c.JSON(handler.StatusCode(err), handler.NewErrorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(records))
}

func (h *Handler) GetRecord(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid record ID"))
		return
	}

	patient, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		c.JSON(handler.StatusCode(err), handler.NewErrorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(patient))
}

func (h *Handler) DeleteRecord(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid record ID"))
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		c.JSON(handler.StatusCode(err), handler.NewErrorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"deleted": id}))
}
