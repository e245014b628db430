// Package httpapi serves the station's readings over HTTP. Handlers only
// read cached snapshots; commands are queued to the control loop.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang/glog"
	"golang.org/x/net/websocket"

	"github.com/robotalks/pms.go/pkg/framework"
	"github.com/robotalks/pms.go/pkg/station"
	"github.com/robotalks/pms.go/pkg/station/aqi"
)

// Config configures the HTTP server.
type Config struct {
	Addr         string        `toml:"addr"`
	ReadTimeout  time.Duration `toml:"read_timeout"`
	WriteTimeout time.Duration `toml:"write_timeout"`
}

// Station is the state served by the API.
type Station interface {
	Snapshot() *station.Snapshot
	Health() station.Health
	Lights() map[string]bool
	SetLight(name string, on bool) error
	Subscribe() (<-chan *station.Snapshot, func())
}

// Executor queues a sensor command.
type Executor func(cmd string) error

// Server is the HTTP API server.
type Server struct {
	srv     *http.Server
	station Station
	execute Executor
}

const shutdownTimeout = 5 * time.Second

// New creates the server and registers the routes. metricsHandler and
// execute are optional.
func New(cfg Config, st Station, execute Executor, metricsHandler http.Handler) *Server {
	s := &Server{station: st, execute: execute}
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	r.GET("/readyz", func(c *gin.Context) {
		if st.Snapshot() != nil {
			c.String(http.StatusOK, "ready")
			return
		}
		c.String(http.StatusServiceUnavailable, "not-ready")
	})
	r.GET("/status", s.getStatus)
	r.GET("/pmdata", s.getRaw)
	r.GET("/getdata", s.getSmoothed)
	r.GET("/aqi", s.getAQI)
	r.GET("/th", s.getClimate)
	r.GET("/lights", s.getLights)
	r.PUT("/lights/:name/:state", s.putLight)
	r.POST("/commands/:cmd", s.postCommand)
	r.GET("/stream", gin.WrapH(websocket.Handler(s.stream)))
	if metricsHandler != nil {
		r.GET("/metrics", gin.WrapH(metricsHandler))
	}

	s.srv = &http.Server{
		Addr:         cfg.Addr,
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Name implements framework.Named.
func (s *Server) Name() string {
	return "http"
}

// Run implements framework.Runnable.
func (s *Server) Run(ctx context.Context) error {
	glog.Infof("http: listening on %s", s.srv.Addr)
	return framework.RunWithContextCancel(ctx, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			glog.Warningf("http: shutdown: %v", err)
		}
	}, func() error {
		if err := s.srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
}

func (s *Server) snapshot(c *gin.Context) *station.Snapshot {
	snap := s.station.Snapshot()
	if snap == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no reading yet"})
	}
	return snap
}

func (s *Server) getStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.station.Health())
}

func (s *Server) getRaw(c *gin.Context) {
	if snap := s.snapshot(c); snap != nil {
		c.JSON(http.StatusOK, snap.Raw)
	}
}

func (s *Server) getSmoothed(c *gin.Context) {
	if snap := s.snapshot(c); snap != nil {
		c.JSON(http.StatusOK, snap.Smoothed)
	}
}

// getClimate serves the temperature and humidity of the latest read.
func (s *Server) getClimate(c *gin.Context) {
	snap := s.snapshot(c)
	if snap == nil {
		return
	}
	if snap.Climate == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no temperature and humidity reading"})
		return
	}
	c.JSON(http.StatusOK, snap.Climate)
}

func (s *Server) getAQI(c *gin.Context) {
	snap := s.snapshot(c)
	if snap == nil {
		return
	}
	switch c.DefaultQuery("pollutant", "pm25") {
	case "pm25":
		c.JSON(http.StatusOK, snap.AQI)
	case "pm10":
		c.JSON(http.StatusOK, aqi.Describe(snap.AQIPM10))
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "pollutant must be pm25 or pm10"})
	}
}

func (s *Server) getLights(c *gin.Context) {
	c.JSON(http.StatusOK, s.station.Lights())
}

func (s *Server) putLight(c *gin.Context) {
	var on bool
	switch c.Param("state") {
	case "on":
		on = true
	case "off":
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "state must be on or off"})
		return
	}
	if err := s.station.SetLight(c.Param("name"), on); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, station.ErrUnknown) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, s.station.Lights())
}

func (s *Server) postCommand(c *gin.Context) {
	if s.execute == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "commands disabled"})
		return
	}
	cmd := c.Param("cmd")
	if err := s.execute(cmd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"command": cmd})
}

func (s *Server) stream(ws *websocket.Conn) {
	defer ws.Close()
	ch, unsubscribe := s.station.Subscribe()
	defer unsubscribe()
	if snap := s.station.Snapshot(); snap != nil {
		if err := websocket.JSON.Send(ws, snap); err != nil {
			return
		}
	}
	ctx := ws.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return
		case snap := <-ch:
			if err := websocket.JSON.Send(ws, snap); err != nil {
				glog.V(2).Infof("http: stream closed: %v", err)
				return
			}
		}
	}
}
