package responses

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"semantiq/internal/models"
	"semantiq/internal/services"
)

type APIResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func JSON(c *gin.Context, statusCode int, status string, data interface{}, message string, err error) {
	response := APIResponse{
		Status:  status,
		Message: message,
		Data:    data,
	}

	if err != nil {
		response.Error = err.Error()
	}

	c.JSON(statusCode, response)
}

func Success(c *gin.Context, statusCode int, data interface{}, message string) {
	c.JSON(statusCode, APIResponse{
		Status:  "success",
		Message: message,
		Data:    data,
	})
}

func Fail(c *gin.Context, statusCode int, err error, message string) {
	resp := APIResponse{
		Status:  "error",
		Message: message,
	}
	if err != nil {
		resp.Error = err.Error()
	}
	c.JSON(statusCode, resp)
}

// Error maps service and model errors to HTTP status codes before
// rendering the standard failure envelope.
func Error(c *gin.Context, err error, message string) {
	Fail(c, statusOf(err), err, message)
}

func statusOf(err error) int {
	var validation *services.ValidationError
	var notFound *services.NotFoundError
	var conflict *services.ConflictError
	switch {
	case errors.As(err, &validation):
		return http.StatusUnprocessableEntity
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &conflict):
		return http.StatusConflict
	case errors.Is(err, models.ErrTableNotFound),
		errors.Is(err, models.ErrColumnNotFound),
		errors.Is(err, models.ErrRelationshipNotFound),
		errors.Is(err, models.ErrMetricNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrReadOnlyRelationship):
		return http.StatusForbidden
	case errors.Is(err, models.ErrUnknownField),
		errors.Is(err, models.ErrEmptyEndpoint),
		errors.Is(err, models.ErrConfidenceRange):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
