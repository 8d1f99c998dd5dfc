package main

import (
	"io"
	"time"

	"github.com/gin-gonic/gin"
)

// Heartbeats keep idle stream connections from being reaped by
// intermediaries.
const defaultHeartbeatInterval = 25 * time.Second

// @Summary Ledger event stream
// @Description Server-sent events for the calling tenant: an "update" event with {version, etag, document} after every accepted write, plus periodic "heartbeat" events. No replay: clients must GET /api/ledger after (re)connecting.
// @Tags ledger
// @Produce text/event-stream
// @Success 200 {string} string "event stream"
// @Router /api/ledger/stream [get]
func (a *app) streamLedger(c *gin.Context) {
	tenant := tenantID(c)
	events, cancel := a.notifier.Subscribe(tenant)
	defer cancel()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	// Flush the headers right away so clients see the stream open even
	// before the first event or heartbeat arrives.
	c.Writer.Flush()

	heartbeat := time.NewTicker(a.heartbeatInterval)
	defer heartbeat.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent("update", ev)
			return true
		case <-heartbeat.C:
			c.SSEvent("heartbeat", gin.H{"ts": time.Now().Unix()})
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
