package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobboard/internal/role"
	"jobboard/internal/session"
)

func counterValue(c prometheus.Counter) float64 {
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		return 0
	}
	return m.GetCounter().GetValue()
}

func TestTaskResult(t *testing.T) {
	assert.Equal(t, TaskSucceeded, TaskResult(nil))
	assert.Equal(t, TaskFailed, TaskResult(errors.New("boom")))
	assert.Equal(t, TaskDropped, TaskResult(fmt.Errorf("bad payload: %w", asynq.SkipRetry)))
}

func TestAsynqMiddlewareCountsByResult(t *testing.T) {
	handler := AsynqMetricsMiddleware()(asynq.HandlerFunc(func(context.Context, *asynq.Task) error {
		return asynq.SkipRetry
	}))
	before := counterValue(taskProcessedTotal.WithLabelValues("test:task", TaskDropped))

	err := handler.ProcessTask(context.Background(), asynq.NewTask("test:task", nil))
	require.ErrorIs(t, err, asynq.SkipRetry)
	assert.Equal(t, before+1, counterValue(taskProcessedTotal.WithLabelValues("test:task", TaskDropped)))
}

func TestGinMiddlewareLabelsRouteAndRole(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(GinMiddleware())
	r.GET("/items/:id", func(c *gin.Context) {
		s := session.New(&role.Principal{ID: 3}, role.Resolution{Role: role.Employer, SignedIn: true})
		c.Request = c.Request.WithContext(session.WithSession(c.Request.Context(), s))
		c.Status(http.StatusNoContent)
	})

	counted := func(path, status, r string) float64 {
		return counterValue(requestTotal.WithLabelValues(http.MethodGet, path, status, r))
	}
	routed := counted("/items/:id", "204", "employer")
	missing := counted(unmatchedPath, "404", "guest")

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/items/42", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope/42", nil))

	assert.Equal(t, routed+1, counted("/items/:id", "204", "employer"))
	assert.Equal(t, missing+1, counted(unmatchedPath, "404", "guest"))
}
