// controllers/referral_controller.go
package controllers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/frostextreme11/digitalsquad-sub001/models"
	"github.com/frostextreme11/digitalsquad-sub001/repositories"
	"github.com/frostextreme11/digitalsquad-sub001/utils"
)

// ReferralController serves the agent dashboard: balance, earned commissions,
// downlines and notifications.
type ReferralController struct {
	db             *mongo.Database
	userRepo       *repositories.UserRepository
	commissionRepo *repositories.CommissionRepository
}

func NewReferralController(db *mongo.Database) *ReferralController {
	return &ReferralController{
		db:             db,
		userRepo:       repositories.NewUserRepository(db),
		commissionRepo: repositories.NewCommissionRepository(db),
	}
}

// GetProfile returns the authenticated agent's profile, including balance and
// affiliate code.
func (rc *ReferralController) GetProfile(c echo.Context) error {
	user, err := utils.GetUserFromToken(c, rc.db)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Invalid or missing token",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Profile retrieved",
		Data:    user,
	})
}

// GetCommissions lists the agent's earned commissions, newest first.
func (rc *ReferralController) GetCommissions(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	agentID, err := utils.GetUserIDFromToken(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Invalid or missing token",
		})
	}

	page, limit := pagination(c)
	commissions, err := rc.commissionRepo.ListByAgent(ctx, agentID, page, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to load commissions",
		})
	}

	var total int64
	for _, commission := range commissions {
		total += commission.Amount
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Commissions retrieved",
		Data: map[string]interface{}{
			"commissions": commissions,
			"pageTotal":   total,
		},
	})
}

// GetDownlines lists agents referred by the authenticated agent.
func (rc *ReferralController) GetDownlines(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	agentID, err := utils.GetUserIDFromToken(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Invalid or missing token",
		})
	}

	downlines, err := rc.userRepo.ListDownlines(ctx, agentID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to load downlines",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Downlines retrieved",
		Data:    downlines,
	})
}

// GetNotifications lists the agent's in-app notifications, newest first.
func (rc *ReferralController) GetNotifications(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	agentID, err := utils.GetUserIDFromToken(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Invalid or missing token",
		})
	}

	notifications, err := utils.ListNotifications(ctx, rc.db, agentID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to load notifications",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Notifications retrieved",
		Data:    notifications,
	})
}

func pagination(c echo.Context) (int64, int64) {
	page, _ := strconv.ParseInt(c.QueryParam("page"), 10, 64)
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.ParseInt(c.QueryParam("limit"), 10, 64)
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}
