package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hailocam/hailocam/pkg/gen"
	"github.com/hailocam/hailocam/pkg/mjpeg"
	"github.com/hailocam/hailocam/pkg/www"
	"github.com/julienschmidt/httprouter"
)

// Stream annotated frames as multipart MJPEG, until the client disconnects
func (s *Server) httpVideoStream(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	quality := www.QueryInt(r, "quality")
	if quality == 0 {
		quality = 80
	}
	quality = gen.Clamp(quality, 1, 100)
	maxFPS := gen.Clamp(www.QueryInt(r, "fps"), 0, 60)
	results := s.Monitor.AddWatcher()
	defer s.Monitor.RemoveWatcher(results)

	ctx := r.Context()
	frames := make(chan []byte, 4)
	go func() {
		defer close(frames)
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-results:
				if !ok {
					return
				}
				jpg, err := s.Monitor.AnnotatedJPEG(quality)
				if err != nil || jpg == nil {
					continue
				}
				select {
				case frames <- jpg:
				default:
					// Viewer is slower than the NN. Drop the frame.
				}
			}
		}
	}()

	mjpeg.ServeStream(w, r, frames, maxFPS)
}

var wsUpgrader = websocket.Upgrader{
	// The viewer page may be served from a different host/port than the API
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Push every detection result to the client as JSON
func (s *Server) httpWSDetections(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an error response
		s.Log.Infof("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	results := s.Monitor.AddWatcher()
	defer s.Monitor.RemoveWatcher(results)

	clientClosed := make(chan bool)
	go func() {
		// We never expect meaningful messages from the client. This read loop
		// exists to notice when the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				close(clientClosed)
				return
			}
		}
	}()

	for {
		select {
		case <-clientClosed:
			return
		case result, ok := <-results:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteJSON(result); err != nil {
				return
			}
		}
	}
}
