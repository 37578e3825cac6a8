package handlers

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/cpu"

	"github.com/miwidot/twitchmod/internal/app/infrastructure/config"
	"github.com/miwidot/twitchmod/internal/app/ports"
	"github.com/miwidot/twitchmod/pkg/logger"
)

type Handlers struct {
	log     logger.Logger
	manager *config.Manager
	chat    ports.ChatPort
	members ports.MembershipPort
	api     ports.APIPort

	startedAt time.Time
}

func New(log logger.Logger, manager *config.Manager, chat ports.ChatPort, members ports.MembershipPort, apiPort ports.APIPort) *Handlers {
	return &Handlers{
		log:       log,
		manager:   manager,
		chat:      chat,
		members:   members,
		api:       apiPort,
		startedAt: time.Now(),
	}
}

func (h *Handlers) StatusHandler(c *gin.Context) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	var cpuPercent float64
	if percent, err := cpu.Percent(0, false); err == nil && len(percent) > 0 {
		cpuPercent = percent[0]
	}

	rooms := make(map[string]int)
	for _, room := range h.members.Rooms() {
		rooms[room] = h.members.Count(room)
	}

	c.JSON(http.StatusOK, gin.H{
		"session_state": h.chat.State().String(),
		"rooms":         rooms,
		"uptime":        time.Since(h.startedAt).Truncate(time.Second).String(),
		"cpu_percent":   cpuPercent,
		"mem_sys_mb":    m.Sys / 1024 / 1024,
		"goroutines":    runtime.NumGoroutine(),
	})
}
