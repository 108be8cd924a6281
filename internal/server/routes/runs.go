package routes

import (
	"errors"
	"net/http"

	"github.com/OFFIS-RIT/relex/internal/server/middleware"
	"github.com/OFFIS-RIT/relex/pkg/common"
	"github.com/OFFIS-RIT/relex/pkg/logger"
	"github.com/OFFIS-RIT/relex/pkg/store"

	"github.com/labstack/echo/v4"
)

func GetRunHandler(c echo.Context) error {
	ac := c.(*middleware.AppContext)
	id := c.Param("id")

	run, err := ac.App.Store.GetRun(c.Request().Context(), id)
	if errors.Is(err, store.ErrRunNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Run not found"})
	}
	if err != nil {
		logger.Error("[Server] Failed to get run", "run_id", id, "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to get run"})
	}
	return c.JSON(http.StatusOK, run)
}

// GetRunPredictionsHandler lists the predictions of a run. With
// ?label=1 only positive predictions are returned.
func GetRunPredictionsHandler(c echo.Context) error {
	ac := c.(*middleware.AppContext)
	id := c.Param("id")
	ctx := c.Request().Context()

	want := -1
	switch c.QueryParam("label") {
	case "":
	case "0":
		want = 0
	case "1":
		want = 1
	default:
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "label must be 0 or 1"})
	}

	if _, err := ac.App.Store.GetRun(ctx, id); err != nil {
		if errors.Is(err, store.ErrRunNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "Run not found"})
		}
		logger.Error("[Server] Failed to get run", "run_id", id, "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to get run"})
	}

	predictions, err := ac.App.Store.GetPredictions(ctx, id)
	if err != nil {
		logger.Error("[Server] Failed to get predictions", "run_id", id, "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to get predictions"})
	}

	if want >= 0 {
		filtered := make([]common.Prediction, 0, len(predictions))
		for _, p := range predictions {
			if p.Label == want {
				filtered = append(filtered, p)
			}
		}
		predictions = filtered
	}

	return c.JSON(http.StatusOK, predictions)
}
