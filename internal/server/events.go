package server

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// heartbeatInterval はSSE接続維持用の ping 間隔
const heartbeatInterval = 15 * time.Second

// events はイベントをServer-Sent Eventsで配信する
// ?session= を指定するとストリーム更新はそのセッション分だけになる
func (h *handler) events(c *gin.Context) {
	session := c.Query("session")
	sub := h.broker.Subscribe(session)
	defer sub.Close()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	// 購読開始を知らせてヘッダを送り出す
	c.Status(http.StatusOK)
	c.SSEvent("connected", gin.H{"session": session})
	c.Writer.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case e, ok := <-sub.Events():
			if !ok {
				return false
			}
			c.SSEvent(string(e.Name), e.Payload)
			return true
		case <-heartbeat.C:
			c.SSEvent("ping", time.Now().Unix())
			return true
		case <-ctx.Done():
			return false
		}
	})
}
