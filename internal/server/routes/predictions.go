package routes

import (
	"encoding/json"
	"net/http"

	"github.com/OFFIS-RIT/relex/internal/queue"
	"github.com/OFFIS-RIT/relex/internal/server/middleware"
	"github.com/OFFIS-RIT/relex/pkg/logger"

	"github.com/labstack/echo/v4"
)

type postPredictionResponse struct {
	RunID  string `json:"run_id"`
	Status string `json:"status"`
}

// PostPredictionHandler enqueues a predict job and answers with its run id.
func PostPredictionHandler(c echo.Context) error {
	ac := c.(*middleware.AppContext)

	var job queue.PredictJob
	if err := c.Bind(&job); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if err := c.Validate(&job); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	job, err := job.Normalize()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to create run id"})
	}

	body, err := json.Marshal(job)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to encode job"})
	}
	if err := ac.App.Queue.Publish(queue.PredictQueue, body); err != nil {
		logger.Error("[Server] Failed to enqueue predict job", "run_id", job.RunID, "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to enqueue job"})
	}

	logger.Info("[Server] Predict job enqueued", "run_id", job.RunID, "user_id", ac.User.UserID)
	return c.JSON(http.StatusAccepted, postPredictionResponse{RunID: job.RunID, Status: "queued"})
}
