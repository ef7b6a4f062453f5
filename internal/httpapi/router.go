// Package httpapi exposes the ledger command surface over REST. Commands
// require a bearer token naming the acting party; reads report sync freshness
// through the X-Stale-Collections header.
package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"buildledger/internal/blob"
	"buildledger/internal/core"
	ledgersync "buildledger/internal/sync"
)

// Server bundles the HTTP surface over the ledger service. The coordinator is
// optional; without it reads never carry freshness headers and health reports
// no sync state.
type Server struct {
	engine *gin.Engine
	svc    *core.Service
	coord  *ledgersync.Coordinator
	blobs  blob.Store
	log    *zap.Logger
}

// NewServer builds the router. A nil logger falls back to a no-op; a nil blob
// store disables the attachment endpoints.
func NewServer(svc *core.Service, coord *ledgersync.Coordinator, blobs blob.Store, jwtSecret string, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		engine: gin.New(),
		svc:    svc,
		coord:  coord,
		blobs:  blobs,
		log:    log,
	}
	s.engine.Use(gin.Recovery())

	s.engine.GET("/healthz", s.health)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := s.engine.Group("/api/v1")
	api.Use(AuthMiddleware(jwtSecret))
	{
		api.POST("/projects", s.createProject)
		api.GET("/projects", s.listProjects)
		api.GET("/projects/:id", s.getProject)
		api.POST("/projects/:id/activate", s.activateProject)
		api.POST("/projects/:id/complete", s.completeProject)
		api.POST("/projects/:id/cancel", s.cancelProject)
		api.POST("/projects/:id/escrow", s.depositEscrow)
		api.POST("/projects/:id/adjust", s.adminAdjustBalance)
		api.GET("/projects/:id/milestones", s.listProjectMilestones)
		api.GET("/projects/:id/payments", s.listProjectPayments)

		api.POST("/milestones", s.createMilestone)
		api.POST("/milestones/:id/submit", s.submitMilestone)
		api.POST("/milestones/:id/approve", s.approveMilestone)
		api.POST("/milestones/:id/reject", s.rejectMilestone)

		api.POST("/change-orders", s.createChangeOrder)
		api.GET("/change-orders", s.listChangeOrders)
		api.POST("/change-orders/:id/approve", s.approveChangeOrder)
		api.POST("/change-orders/:id/reject", s.rejectChangeOrder)
		api.POST("/change-orders/:id/implement", s.implementChangeOrder)

		api.POST("/disputes", s.fileDispute)
		api.GET("/disputes", s.listDisputes)
		api.POST("/disputes/:id/review", s.reviewDispute)
		api.POST("/disputes/:id/escalate", s.escalateDispute)
		api.POST("/disputes/:id/resolve", s.resolveDispute)
		api.POST("/disputes/:id/close", s.closeDispute)
		api.POST("/disputes/:id/evidence", s.addDisputeEvidence)

		api.POST("/contracts", s.createContract)
		api.POST("/contracts/:id/sign", s.signContract)

		api.POST("/scopes", s.createScopeOfWork)
		api.POST("/punch-list", s.addPunchListItem)
		api.POST("/punch-list/:id/complete", s.completePunchListItem)
		api.POST("/progress", s.addProgressUpdate)

		api.POST("/attachments/*key", s.uploadAttachment)
		api.GET("/attachments/*key", s.downloadAttachment)
	}
	return s
}

// Engine exposes the router for tests.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Run serves until the listener fails.
func (s *Server) Run(port int) error {
	return s.engine.Run(fmt.Sprintf(":%d", port))
}

// health reports liveness plus sync degradation state.
func (s *Server) health(c *gin.Context) {
	body := gin.H{"status": "ok"}
	if s.coord != nil {
		stale := s.coord.StaleCollections()
		body["stale_collections"] = stale
		body["outbox_pending"] = s.coord.Outbox().Len()
		if len(stale) > 0 {
			body["status"] = "degraded"
		}
	}
	c.JSON(http.StatusOK, body)
}

// staleHeader stamps read responses with the collections currently served
// from cache.
func (s *Server) staleHeader(c *gin.Context) {
	if s.coord == nil {
		return
	}
	if stale := s.coord.StaleCollections(); len(stale) > 0 {
		c.Header("X-Stale-Collections", strings.Join(stale, ","))
	}
}
