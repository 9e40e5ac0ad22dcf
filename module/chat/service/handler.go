package service

import (
	"net/http"

	"duochat/middleware"
	"duochat/tools/errs"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
)

type sendMessageReq struct {
	Message string `json:"message"`
}

// HandlerSend serves POST /api/messages/send/:id. The authenticated user is
// the sender; :id is the receiver. A 200 carries the stored message and
// means the write is durable, whatever the receiver's connectivity.
func (s *MessageService) HandlerSend(c *gin.Context) {
	senderID := middleware.UserID(c)
	if senderID == "" {
		c.JSON(http.StatusUnauthorized, errs.ErrUnauthorized)
		return
	}
	receiverID := c.Param("id")

	var req sendMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errs.ErrInvalidInput.WithDetail("malformed body"))
		return
	}

	msg, err := s.SendMessage(c.Request.Context(), senderID, receiverID, req.Message)
	if err != nil {
		var codeErr *errs.CodeError
		if errors.As(err, &codeErr) && codeErr.Code == errs.CodeInvalidInput {
			c.JSON(http.StatusBadRequest, codeErr)
			return
		}
		c.JSON(http.StatusServiceUnavailable, errs.ErrPersistence)
		return
	}

	c.JSON(http.StatusOK, msg)
}
