package main

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/ubersdr-labs/sstvdecode/sstv"
)

/*
 * Live Preview
 *
 * A small websocket broadcast hub, same upgrader shape as this
 * repository's own websocket handlers (permissive CheckOrigin, a
 * buffered per-connection write path): every preview client receives a
 * PNG-encoded snapshot of the in-progress raster each time the decode
 * loop calls broadcast.
 */

var previewUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 65536,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// previewHub tracks connected preview clients and fans out snapshots.
type previewHub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

func newPreviewHub() *previewHub {
	return &previewHub{clients: make(map[*websocket.Conn]struct{})}
}

func (h *previewHub) handle(w http.ResponseWriter, r *http.Request) {
	conn, err := previewUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[sstvdecode] preview upgrade failed: %v", err)
		return
	}

	h.mu.Lock()
	h.clients[conn] = struct{}{}
	h.mu.Unlock()

	// Drain reads until the client disconnects; preview is send-only.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.mu.Lock()
				delete(h.clients, conn)
				h.mu.Unlock()
				conn.Close()
				return
			}
		}
	}()
}

// broadcast PNG-encodes raster and pushes it to every connected client,
// dropping any connection that errors on write.
func (h *previewHub) broadcast(raster *sstv.Raster) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.clients) == 0 {
		return
	}

	img := image.NewRGBA(image.Rect(0, 0, raster.Width, raster.Height))
	raster.ForEachPixel(func(row, col int, r, g, b int32) (int32, int32, int32) {
		img.Set(col, row, color.RGBA{
			R: uint8(sstv.ClampChannel(r)),
			G: uint8(sstv.ClampChannel(g)),
			B: uint8(sstv.ClampChannel(b)),
			A: 255,
		})
		return r, g, b
	})

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		log.Printf("[sstvdecode] preview encode failed: %v", err)
		return
	}

	for conn := range h.clients {
		if err := conn.WriteMessage(websocket.BinaryMessage, buf.Bytes()); err != nil {
			conn.Close()
			delete(h.clients, conn)
		}
	}
}
