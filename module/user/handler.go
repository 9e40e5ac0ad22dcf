package user

import (
	"net/http"

	"duochat/logger"
	"duochat/tools/errs"

	"github.com/gin-gonic/gin"
)

type loginReq struct {
	UserID   string `json:"userId"`
	Password string `json:"password"`
}

// Handler bundles the login endpoint with its collaborators.
type Handler struct {
	auth     *JWTAuthenticator
	verifier CredentialVerifier
}

func NewHandler(auth *JWTAuthenticator, verifier CredentialVerifier) *Handler {
	return &Handler{auth: auth, verifier: verifier}
}

// HandlerLogin serves POST /api/auth/login and answers with a bearer token
// for the websocket and message endpoints.
func (h *Handler) HandlerLogin(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errs.ErrInvalidInput.WithDetail("malformed body"))
		return
	}

	if err := h.verifier.Verify(c.Request.Context(), req.UserID, req.Password); err != nil {
		c.JSON(http.StatusUnauthorized, errs.ErrUnauthorized)
		return
	}

	token, expireAt, err := h.auth.IssueToken(req.UserID)
	if err != nil {
		logger.Errorf("[HandlerLogin] issue token user=%s: %v", req.UserID, err)
		c.JSON(http.StatusInternalServerError, errs.ErrUnauthorized.WithDetail("token issue failed"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":    token,
		"expireAt": expireAt.UnixMilli(),
		"user": gin.H{
			"id": req.UserID,
		},
	})
}
