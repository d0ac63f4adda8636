// Package server exposes the configuration core over HTTP for remote
// introspection: live counts, both export schemas, and a forced persist.
package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/isabella232/iot-edge-opc-publisher/internal/domain"
	"github.com/isabella232/iot-edge-opc-publisher/internal/ports"
	"github.com/isabella232/iot-edge-opc-publisher/internal/registry"
)

// Persister is the slice of the persistence coordinator the API needs.
type Persister interface {
	Persist() (bool, error)
	LastWritten() uint64
}

type Server struct {
	reg       *registry.Registry
	persister Persister
	obs       ports.Observability
}

func New(reg *registry.Registry, persister Persister, obs ports.Observability) *Server {
	return &Server{reg: reg, persister: persister, obs: obs}
}

// Router builds the gin engine with all introspection routes registered.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	v1 := r.Group("/v1")
	v1.GET("/status", s.getStatus)
	v1.GET("/nodes", s.getNodes)
	v1.GET("/nodes/legacy", s.getNodesLegacy)
	v1.POST("/persist", s.postPersist)

	return r
}

func (s *Server) getStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"counts":             s.reg.Counts(),
		"nodeConfigVersion":  s.reg.Version(),
		"lastPersistVersion": s.persister.LastWritten(),
	})
}

func (s *Server) getNodes(c *gin.Context) {
	includeRemoved := false
	if v := c.Query("includeRemoved"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "includeRemoved must be a boolean"})
			return
		}
		includeRemoved = parsed
	}

	entries, version := s.reg.ExportGrouped(c.Query("endpoint"), includeRemoved)
	if entries == nil {
		entries = []domain.PublishedNodesEntry{}
	}
	c.JSON(http.StatusOK, gin.H{
		"version": version,
		"entries": entries,
	})
}

func (s *Server) getNodesLegacy(c *gin.Context) {
	entries, version := s.reg.ExportLegacy(c.Query("endpoint"))
	if entries == nil {
		entries = []domain.PublishedNodesEntry{}
	}
	c.JSON(http.StatusOK, gin.H{
		"version": version,
		"entries": entries,
	})
}

func (s *Server) postPersist(c *gin.Context) {
	written, err := s.persister.Persist()
	if err != nil {
		s.obs.LogError("persist_request_failed", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"written": written,
		"version": s.persister.LastWritten(),
	})
}
