package routers

import (
	"context"
	"net/http"

	"llm-dispatch/internal/ctx"
	"llm-dispatch/internal/handlers/messages"
	"llm-dispatch/internal/shared"

	"github.com/labstack/echo/v4"
)

type MessageRouter struct {
	mh *messages.MessageHandler
}

func RegisterMessageRoutes(e *echo.Group, mh *messages.MessageHandler) {
	mr := MessageRouter{mh: mh}

	e.GET("/", mr.Root)
	e.GET("/messages", mr.ListMessages)
	e.GET("/messages/:id", mr.GetMessage)
	e.POST("/send-message", mr.SendMessage)
	e.POST("/generate-image", mr.GenerateImage)
	e.DELETE("/messages/:id", mr.DeleteMessage)
}

func (mr *MessageRouter) Root(cc echo.Context) error {
	return cc.JSON(http.StatusOK, map[string]string{"message": shared.Banner})
}

func (mr *MessageRouter) ListMessages(cc echo.Context) error {
	c := cc.(*ctx.Context)

	ctx, cancel := context.WithTimeout(c.Request().Context(), shared.DefaultListTimeout)
	defer cancel()

	previews, err := mr.mh.ListMessages(ctx)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"messages": previews})
}

func (mr *MessageRouter) GetMessage(cc echo.Context) error {
	c := cc.(*ctx.Context)
	id := c.Param("id")
	c.LogValues.MessageID = id

	record, err := mr.mh.GetMessage(c.Request().Context(), id)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, record)
}

func (mr *MessageRouter) SendMessage(cc echo.Context) error {
	c := cc.(*ctx.Context)
	body, err := readRequestBody(c)
	if err != nil {
		return errorResponse(c, shared.ErrInvalidRequest)
	}

	out, err := mr.mh.SendMessage(c.Request().Context(), body)
	if err != nil {
		return errorResponse(c, err)
	}
	c.LogValues.MessageID = out.MessageID
	return c.JSON(http.StatusCreated, out)
}

func (mr *MessageRouter) GenerateImage(cc echo.Context) error {
	c := cc.(*ctx.Context)
	body, err := readRequestBody(c)
	if err != nil {
		return errorResponse(c, shared.ErrInvalidRequest)
	}

	raw, err := mr.mh.GenerateImage(c.Request().Context(), body)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSONBlob(http.StatusCreated, raw)
}

func (mr *MessageRouter) DeleteMessage(cc echo.Context) error {
	c := cc.(*ctx.Context)
	id := c.Param("id")
	c.LogValues.MessageID = id

	out, err := mr.mh.DeleteMessage(c.Request().Context(), id)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
