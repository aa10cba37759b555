package handler

import (
	"net/http"
	"peek/backend/internal/config"
	"peek/backend/internal/database"
	"peek/backend/internal/hub"
	"peek/backend/internal/notify"
	"peek/backend/internal/repository"
	"peek/backend/internal/storage"
	"strconv"

	"github.com/gin-gonic/gin"
)

const defaultMaxBesties = 5

var (
	dispatcher notify.Dispatcher = notify.Discard
	notifier   *notify.Notifier
	images     storage.ImageStore
	events     = hub.GlobalHub
)

// SetDispatcher installs the fire-and-forget trigger used after writes.
func SetDispatcher(d notify.Dispatcher) {
	if d == nil {
		d = notify.Discard
	}
	dispatcher = d
}

// SetNotifier installs the synchronous fan-out used by the trigger endpoint.
func SetNotifier(n *notify.Notifier) { notifier = n }

// SetImageStore installs the object store for peek images.
func SetImageStore(s storage.ImageStore) { images = s }

func besties() repository.BestieRepository {
	return repository.NewBestieRepository(database.DB)
}

func subscriptions() repository.SubscriptionRepository {
	return repository.NewSubscriptionRepository(database.DB)
}

func maxBesties() int {
	if config.AppConfig == nil || config.AppConfig.MaxBesties < 1 {
		return defaultMaxBesties
	}
	return config.AppConfig.MaxBesties
}

// currentUserID returns the id stored by the auth middleware.
func currentUserID(c *gin.Context) uint {
	id, _ := c.Get("userID")
	userID, _ := id.(uint)
	return userID
}

// parseIDParam reads a positive numeric path parameter and writes a 400 when it is not one.
func parseIDParam(c *gin.Context, name, message string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": message})
		return 0, false
	}
	return uint(id), true
}
