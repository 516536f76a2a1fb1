package main

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"finassist/internal/chat"
	"finassist/internal/ingest"
	"finassist/internal/models"
	"finassist/internal/recommend"
	"finassist/internal/vectorstore"
)

// HttpHandler exposes ingestion, chat and recommendations over HTTP.
type HttpHandler struct {
	pipeline    *ingest.Pipeline
	session     *chat.Session
	recommender *recommend.Engine
}

func NewHttpHandler(pipeline *ingest.Pipeline, session *chat.Session, recommender *recommend.Engine) *HttpHandler {
	return &HttpHandler{
		pipeline:    pipeline,
		session:     session,
		recommender: recommender,
	}
}

type ingestResponse struct {
	Indexed int      `json:"indexed"`
	Failed  []string `json:"failed,omitempty"`
}

// ingest indexes the dataset posted in the request body.
func (h *HttpHandler) ingest(c *gin.Context) {
	var dataset models.Dataset
	if err := c.ShouldBindJSON(&dataset); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid dataset: " + err.Error()})
		return
	}
	h.runIngest(c, &dataset)
}

type seedRequest struct {
	Seed         int64 `json:"seed"`
	Transactions int   `json:"transactions"`
	Offers       int   `json:"offers"`
	Assets       int   `json:"assets"`
	Strategies   int   `json:"strategies"`
}

// ingestSynthetic generates and indexes a seeded synthetic dataset.
func (h *HttpHandler) ingestSynthetic(c *gin.Context) {
	req := seedRequest{Seed: 1, Transactions: 5, Offers: 3, Assets: 3, Strategies: 3}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	gen := models.NewGenerator(req.Seed)
	dataset := gen.Dataset(req.Transactions, req.Offers, req.Assets, req.Strategies)
	h.runIngest(c, dataset)
}

func (h *HttpHandler) runIngest(c *gin.Context, dataset *models.Dataset) {
	outcomes, err := h.pipeline.Run(c.Request.Context(), dataset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := ingestResponse{}
	for _, o := range outcomes {
		if o.Err != nil {
			resp.Failed = append(resp.Failed, o.ID)
		} else {
			resp.Indexed++
		}
	}
	c.JSON(http.StatusOK, resp)
}

type chatRequest struct {
	Question string `json:"question" binding:"required"`
}

// chat answers one question within the server's session.
func (h *HttpHandler) chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "question is required"})
		return
	}

	answer, err := h.session.Submit(c.Request.Context(), req.Question)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, vectorstore.ErrInvalidFilter) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"answer": answer})
}

// resetChat discards the session's history.
func (h *HttpHandler) resetChat(c *gin.Context) {
	h.session.Reset()
	c.Status(http.StatusNoContent)
}

// history returns the session's recorded turns.
func (h *HttpHandler) history(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"turns": h.session.History()})
}

// recommendations builds personalized recommendations for one user.
func (h *HttpHandler) recommendations(c *gin.Context) {
	userID := c.Param("user_id")
	recs, err := h.recommender.Recommend(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, recs)
}
