package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mentoria-ai/mentoria/pkg/domain"
)

type queryRequest struct {
	Question       string `json:"question" binding:"required"`
	Type           string `json:"type"`
	ConversationID string `json:"conversation_id"`
}

// Query answers a one-shot or conversation-scoped question against the
// project's documents.
func (d Deps) Query(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	queryType := domain.EducationalQueryType(req.Type)
	switch queryType {
	case "":
		queryType = domain.QueryTypeQuestion
	case domain.QueryTypeQuestion, domain.QueryTypeSummary, domain.QueryTypeQuiz, domain.QueryTypeExplanation:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown query type: " + req.Type})
		return
	}

	answer, err := d.Engine.EducationalQuery(c.Request.Context(), c.Param("id"), req.Question, queryType, req.ConversationID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, answer)
}
