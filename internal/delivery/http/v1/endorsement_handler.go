package v1

import (
	"net/http"

	"go-profile-backend/internal/delivery/http/response"
	"go-profile-backend/internal/domain"

	"github.com/gin-gonic/gin"
)

type EndorsementHandler struct {
	endorsementUC domain.EndorsementUsecase
}

func NewEndorsementHandler(public *gin.RouterGroup, endorsementUC domain.EndorsementUsecase) {
	handler := &EndorsementHandler{endorsementUC: endorsementUC}

	skills := public.Group("/skills")
	{
		skills.POST("/:skillId/endorse", handler.Endorse)
		skills.GET("/:skillId/endorsements", handler.Count)
	}
}

type EndorseRequest struct {
	EndorserEmail string `json:"endorserEmail" example:"grace@example.com"`
}

type EndorseResponse struct {
	ID string `json:"id"`
}

// Endorse godoc
// @Summary      Endorse a skill
// @Description  One endorsement per email and skill.
// @Tags         skills
// @Accept       json
// @Produce      json
// @Param        skillId  path      string          true  "Skill ID"
// @Param        request  body      EndorseRequest  true  "Endorser"
// @Success      201      {object}  EndorseResponse
// @Failure      400      {object}  response.ErrorBody
// @Failure      404      {object}  response.ErrorBody
// @Failure      409      {object}  response.ErrorBody
// @Router       /skills/{skillId}/endorse [post]
func (h *EndorsementHandler) Endorse(c *gin.Context) {
	var req EndorseRequest
	if !bindJSON(c, &req) {
		return
	}

	endorsement, err := h.endorsementUC.Endorse(c.Request.Context(), c.Param("skillId"), req.EndorserEmail)
	if err != nil {
		c.Error(err)
		return
	}
	response.JSON(c, http.StatusCreated, EndorseResponse{ID: endorsement.ID})
}

// Count godoc
// @Summary      Count endorsements
// @Description  Unknown skills count zero.
// @Tags         skills
// @Produce      json
// @Param        skillId  path      string  true  "Skill ID"
// @Success      200      {object}  domain.EndorsementCount
// @Router       /skills/{skillId}/endorsements [get]
func (h *EndorsementHandler) Count(c *gin.Context) {
	count, err := h.endorsementUC.CountEndorsements(c.Request.Context(), c.Param("skillId"))
	if err != nil {
		c.Error(err)
		return
	}
	response.JSON(c, http.StatusOK, count)
}
