package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"buildledger/pkg/domain"
)

// writeError maps domain errors onto HTTP statuses. Rule violations and
// transition failures are client conflicts, not server faults.
func (s *Server) writeError(c *gin.Context, err error) {
	var (
		unauthorized domain.UnauthorizedError
		notFound     domain.NotFoundError
		violation    domain.RuleViolationError
		transition   domain.InvalidTransitionError
		funds        domain.InsufficientFundsError
		blocked      domain.DisputeBlockedError
		amount       domain.InvalidAmountError
	)
	switch {
	case errors.As(err, &unauthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &violation):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "violations": violation.Result.Violations})
	case errors.As(err, &transition), errors.As(err, &funds), errors.As(err, &blocked):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &amount):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		s.log.Error("command failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func badRequest(c *gin.Context) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
}

// Projects --------------------------------------------------------------------

func (s *Server) createProject(c *gin.Context) {
	var req struct {
		Title        string        `json:"title"`
		Description  string        `json:"description"`
		OwnerID      string        `json:"owner_id"`
		ContractorID string        `json:"contractor_id"`
		TotalAmount  domain.Amount `json:"total_amount"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}
	project, _, err := s.svc.CreateProject(c.Request.Context(), actorFrom(c), domain.Project{
		Title:        req.Title,
		Description:  req.Description,
		OwnerID:      req.OwnerID,
		ContractorID: req.ContractorID,
		TotalAmount:  req.TotalAmount,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, project)
}

func (s *Server) listProjects(c *gin.Context) {
	s.staleHeader(c)
	c.JSON(http.StatusOK, s.svc.Store().ListProjects())
}

func (s *Server) getProject(c *gin.Context) {
	s.staleHeader(c)
	project, ok := s.svc.Store().GetProject(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
		return
	}
	c.JSON(http.StatusOK, project)
}

func (s *Server) activateProject(c *gin.Context) {
	project, _, err := s.svc.ActivateProject(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

func (s *Server) completeProject(c *gin.Context) {
	project, _, err := s.svc.CompleteProject(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

func (s *Server) cancelProject(c *gin.Context) {
	project, _, err := s.svc.CancelProject(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

func (s *Server) depositEscrow(c *gin.Context) {
	var req struct {
		Amount domain.Amount `json:"amount"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}
	project, _, err := s.svc.DepositEscrow(c.Request.Context(), actorFrom(c), c.Param("id"), req.Amount)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

func (s *Server) adminAdjustBalance(c *gin.Context) {
	var req struct {
		DeltaTotal  domain.Amount `json:"delta_total"`
		DeltaPaid   domain.Amount `json:"delta_paid"`
		DeltaEscrow domain.Amount `json:"delta_escrow"`
		Reason      string        `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}
	project, _, err := s.svc.AdminAdjustBalance(c.Request.Context(), actorFrom(c), c.Param("id"),
		req.DeltaTotal, req.DeltaPaid, req.DeltaEscrow, req.Reason)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

func (s *Server) listProjectMilestones(c *gin.Context) {
	s.staleHeader(c)
	c.JSON(http.StatusOK, s.svc.Store().ListMilestonesByProject(c.Param("id")))
}

func (s *Server) listProjectPayments(c *gin.Context) {
	s.staleHeader(c)
	projectID := c.Param("id")
	var out []domain.Payment
	for _, payment := range s.svc.Store().ListPayments() {
		if payment.ProjectID == projectID {
			out = append(out, payment)
		}
	}
	c.JSON(http.StatusOK, out)
}

// Milestones ------------------------------------------------------------------

func (s *Server) createMilestone(c *gin.Context) {
	var req struct {
		ProjectID     string        `json:"project_id"`
		Title         string        `json:"title"`
		Description   string        `json:"description"`
		PaymentAmount domain.Amount `json:"payment_amount"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}
	milestone, _, err := s.svc.CreateMilestone(c.Request.Context(), actorFrom(c), domain.Milestone{
		ProjectID:     req.ProjectID,
		Title:         req.Title,
		Description:   req.Description,
		PaymentAmount: req.PaymentAmount,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, milestone)
}

func (s *Server) submitMilestone(c *gin.Context) {
	milestone, _, err := s.svc.SubmitMilestone(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, milestone)
}

func (s *Server) approveMilestone(c *gin.Context) {
	milestone, _, err := s.svc.ApproveMilestone(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, milestone)
}

func (s *Server) rejectMilestone(c *gin.Context) {
	milestone, _, err := s.svc.RejectMilestone(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, milestone)
}

// Change orders ---------------------------------------------------------------

func (s *Server) createChangeOrder(c *gin.Context) {
	var req struct {
		ProjectID   string        `json:"project_id"`
		Description string        `json:"description"`
		CostImpact  domain.Amount `json:"cost_impact"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}
	order, _, err := s.svc.CreateChangeOrder(c.Request.Context(), actorFrom(c), domain.ChangeOrder{
		ProjectID:   req.ProjectID,
		Description: req.Description,
		CostImpact:  req.CostImpact,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func (s *Server) listChangeOrders(c *gin.Context) {
	s.staleHeader(c)
	c.JSON(http.StatusOK, s.svc.Store().ListChangeOrders())
}

func (s *Server) approveChangeOrder(c *gin.Context) {
	order, _, err := s.svc.ApproveChangeOrder(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (s *Server) rejectChangeOrder(c *gin.Context) {
	order, _, err := s.svc.RejectChangeOrder(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (s *Server) implementChangeOrder(c *gin.Context) {
	order, _, err := s.svc.ImplementChangeOrder(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// Disputes --------------------------------------------------------------------

func (s *Server) fileDispute(c *gin.Context) {
	var req struct {
		ProjectID         string          `json:"project_id"`
		MilestoneID       string          `json:"milestone_id"`
		DisputeType       string          `json:"dispute_type"`
		Description       string          `json:"description"`
		AmountDisputed    domain.Amount   `json:"amount_disputed"`
		DesiredResolution string          `json:"desired_resolution"`
		Evidence          domain.Evidence `json:"evidence"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}
	dispute, _, err := s.svc.FileDispute(c.Request.Context(), actorFrom(c), domain.Dispute{
		ProjectID:         req.ProjectID,
		MilestoneID:       req.MilestoneID,
		DisputeType:       req.DisputeType,
		Description:       req.Description,
		AmountDisputed:    req.AmountDisputed,
		DesiredResolution: req.DesiredResolution,
		Evidence:          req.Evidence,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dispute)
}

func (s *Server) listDisputes(c *gin.Context) {
	s.staleHeader(c)
	c.JSON(http.StatusOK, s.svc.Store().ListDisputes())
}

func (s *Server) reviewDispute(c *gin.Context) {
	dispute, _, err := s.svc.ReviewDispute(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dispute)
}

func (s *Server) escalateDispute(c *gin.Context) {
	dispute, _, err := s.svc.EscalateDispute(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dispute)
}

func (s *Server) resolveDispute(c *gin.Context) {
	var req struct {
		Resolution string `json:"resolution"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}
	dispute, _, err := s.svc.ResolveDispute(c.Request.Context(), actorFrom(c), c.Param("id"), req.Resolution)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dispute)
}

func (s *Server) closeDispute(c *gin.Context) {
	dispute, _, err := s.svc.CloseDispute(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dispute)
}

func (s *Server) addDisputeEvidence(c *gin.Context) {
	var req domain.Evidence
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}
	dispute, _, err := s.svc.AddDisputeEvidence(c.Request.Context(), actorFrom(c), c.Param("id"), req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dispute)
}

// Contracts and supporting records -------------------------------------------

func (s *Server) createContract(c *gin.Context) {
	var req struct {
		ProjectID string `json:"project_id"`
		Terms     string `json:"terms"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}
	contract, _, err := s.svc.CreateContract(c.Request.Context(), actorFrom(c), domain.Contract{
		ProjectID: req.ProjectID,
		Terms:     req.Terms,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, contract)
}

func (s *Server) signContract(c *gin.Context) {
	var req struct {
		Signature string `json:"signature"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}
	contract, _, err := s.svc.SignContract(c.Request.Context(), actorFrom(c), c.Param("id"), req.Signature)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, contract)
}

func (s *Server) createScopeOfWork(c *gin.Context) {
	var req struct {
		ProjectID string `json:"project_id"`
		Summary   string `json:"summary"`
		Details   string `json:"details"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}
	scope, _, err := s.svc.CreateScopeOfWork(c.Request.Context(), actorFrom(c), domain.ScopeOfWork{
		ProjectID: req.ProjectID,
		Summary:   req.Summary,
		Details:   req.Details,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, scope)
}

func (s *Server) addPunchListItem(c *gin.Context) {
	var req struct {
		ProjectID   string `json:"project_id"`
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}
	item, _, err := s.svc.AddPunchListItem(c.Request.Context(), actorFrom(c), domain.PunchListItem{
		ProjectID:   req.ProjectID,
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (s *Server) completePunchListItem(c *gin.Context) {
	item, _, err := s.svc.CompletePunchListItem(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (s *Server) addProgressUpdate(c *gin.Context) {
	var req struct {
		ProjectID string   `json:"project_id"`
		Note      string   `json:"note"`
		Photos    []string `json:"photos"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}
	update, _, err := s.svc.AddProgressUpdate(c.Request.Context(), actorFrom(c), domain.ProgressUpdate{
		ProjectID: req.ProjectID,
		Note:      req.Note,
		Photos:    req.Photos,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, update)
}
