package progress

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSHandler upgrades the connection and keeps it registered until the
// client goes away. The stream is one-directional; incoming frames are
// read only to detect the close.
func WSHandler(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}

		hub.Join(ws)
		defer hub.Leave(ws)

		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}
}
