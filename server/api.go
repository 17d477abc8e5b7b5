package server

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"
	"github.com/hailocam/hailocam/pkg/gen"
	"github.com/hailocam/hailocam/pkg/www"
	"github.com/julienschmidt/httprouter"
)

func (s *Server) setupRouter() *httprouter.Router {
	router := httprouter.New()

	www.Handle(s.Log, router, "GET", "/", s.httpIndex)
	www.Handle(s.Log, router, "GET", "/video", s.httpVideoStream)
	www.Handle(s.Log, router, "GET", "/ws/detections", s.httpWSDetections)

	// Rate limit the polled API endpoints, but not the streams.
	// One limiter per endpoint, keyed by client IP.
	ratelimited := func(method, route string, handle httprouter.Handle, requestLimit int, windowLength time.Duration) {
		limited := httprate.Limit(requestLimit, windowLength, httprate.WithKeyFuncs(httprate.KeyByIP))
		www.Handle(s.Log, router, method, route, func(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
			limited(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				handle(w, r, params)
			})).ServeHTTP(w, r)
		})
	}

	ratelimited("GET", "/api/status", s.httpStatus, 60, time.Minute)
	ratelimited("GET", "/api/latest/image", s.httpLatestImage, 300, time.Minute)
	ratelimited("GET", "/api/latest/detections", s.httpLatestDetections, 300, time.Minute)
	ratelimited("GET", "/api/events", s.httpEvents, 60, time.Minute)

	return router
}

type statusJSON struct {
	UptimeSeconds int64   `json:"uptimeSeconds"`
	Camera        string  `json:"camera"`
	Source        string  `json:"source"`
	Device        string  `json:"device"`
	Model         string  `json:"model"`
	FPS           float64 `json:"fps"`
	FrameCount    int64   `json:"frameCount"`
	CameraDropped int64   `json:"cameraDropped"`
	NNProcessed   int64   `json:"nnProcessed"`
	NNDropped     int64   `json:"nnDropped"`
	DecodeMS      float64 `json:"decodeMS"`
	NNPrepMS      float64 `json:"nnPrepMS"`
	NNDetMS       float64 `json:"nnDetMS"`
	EventCount    int64   `json:"eventCount"`
}

func (s *Server) httpStatus(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	stats := s.Monitor.Stats()
	nEvents, err := s.EventDB.EventCount()
	www.Check(err)
	www.SendJSON(w, &statusJSON{
		UptimeSeconds: int64(time.Now().Sub(s.startedAt).Seconds()),
		Camera:        s.Camera.Name,
		Source:        s.Camera.Source.Ident(),
		Device:        s.DeviceName,
		Model:         s.ModelName,
		FPS:           stats.CameraFPS,
		FrameCount:    stats.CameraFrameCount,
		CameraDropped: stats.CameraDropped,
		NNProcessed:   stats.FramesProcessed,
		NNDropped:     stats.FramesDropped,
		DecodeMS:      stats.DecodeMS,
		NNPrepMS:      stats.NNPrepMS,
		NNDetMS:       stats.NNDetMS,
		EventCount:    nEvents,
	})
}

func (s *Server) httpLatestImage(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	quality := www.QueryInt(r, "quality")
	if quality == 0 {
		quality = 85
	}
	quality = gen.Clamp(quality, 1, 100)
	jpg, err := s.Monitor.AnnotatedJPEG(quality)
	www.Check(err)
	if jpg == nil {
		www.Panic(http.StatusServiceUnavailable, "No frame received yet")
	}
	www.SendJPEG(w, jpg)
}

func (s *Server) httpLatestDetections(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	detection := s.Monitor.LatestDetection()
	if detection == nil {
		www.Panic(http.StatusServiceUnavailable, "No frame received yet")
	}
	www.CacheNever(w)
	www.SendJSON(w, detection)
}

func (s *Server) httpEvents(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	limit := www.QueryInt(r, "limit")
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	events, err := s.EventDB.RecentEvents(limit)
	www.Check(err)
	www.SendJSON(w, events)
}
