package rest

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/txplore/txplore"
	"github.com/txplore/txplore/internal/domain"
	"github.com/txplore/txplore/internal/present/rest/presenter"
	"github.com/txplore/txplore/internal/service"
	"github.com/txplore/txplore/internal/usecase"
)

type Handler struct {
	posts    *usecase.PostUsecase
	notifier *service.Notifier
	cache    *service.PostCache // optional
}

func NewHandler(posts *usecase.PostUsecase, notifier *service.Notifier, cache *service.PostCache) *Handler {
	return &Handler{
		posts:    posts,
		notifier: notifier,
		cache:    cache,
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/api/posts", h.handlePosts)
	e.POST("/api/posts", h.handleAddPost)
	e.GET("/api/posts/:id", h.handlePost)
	e.PUT("/api/posts/:id", h.handleEditPost)
	e.DELETE("/api/posts/:id", h.handleDeletePost)
	e.GET("/api/posts/:id/transactions", h.handlePostTransactions)
	e.GET("/api/transactions", h.handleTransactionsBatch)
	e.POST("/api/transactions", h.handleAddTransaction)
	e.PUT("/api/transactions/:id", h.handleEditTransaction)
	e.DELETE("/api/transactions/:id", h.handleDeleteTransaction)
	e.GET("/realtime", h.handleRealtime)
}

func respondError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return presenter.BadRequest(c, err)
	case errors.Is(err, domain.ErrNotFound):
		return presenter.NotFound(c, err)
	case errors.Is(err, domain.ErrConstraint):
		return presenter.Conflict(c, err)
	default:
		return presenter.InternalError(c, err)
	}
}

func paramID(c echo.Context) (int64, error) {
	return strconv.ParseInt(c.Param("id"), 10, 64)
}

func (h *Handler) handlePosts(c echo.Context) error {
	ctx := c.Request().Context()

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	after, err := strconv.ParseInt(c.QueryParam("after"), 10, 64)
	if err != nil {
		after = 0
	}

	window, err := h.posts.Paginate(ctx, limit, after)
	if err != nil {
		return respondError(c, err)
	}
	return presenter.OK(c, window)
}

func (h *Handler) handlePost(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := paramID(c)
	if err != nil {
		return presenter.BadRequest(c, errors.New("invalid id"))
	}

	if h.cache != nil {
		if post, found := h.cache.Get(id); found {
			return presenter.OK(c, post)
		}
	}

	post, err := h.posts.Get(ctx, id)
	if err != nil {
		return respondError(c, err)
	}

	if h.cache != nil {
		h.cache.Set(post)
	}
	return presenter.OK(c, post)
}

func (h *Handler) handleAddPost(c echo.Context) error {
	ctx := c.Request().Context()

	var input txplore.NewPostInput
	if err := c.Bind(&input); err != nil {
		return presenter.BadRequest(c, err)
	}

	post, err := h.posts.Create(ctx, input)
	if err != nil {
		return respondError(c, err)
	}
	return presenter.OK(c, post)
}

func (h *Handler) handleEditPost(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := paramID(c)
	if err != nil {
		return presenter.BadRequest(c, errors.New("invalid id"))
	}

	var input txplore.EditPostInput
	if err := c.Bind(&input); err != nil {
		return presenter.BadRequest(c, err)
	}
	input.ID = id

	post, err := h.posts.Edit(ctx, input)
	if err != nil {
		return respondError(c, err)
	}
	return presenter.OK(c, post)
}

func (h *Handler) handleDeletePost(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := paramID(c)
	if err != nil {
		return presenter.BadRequest(c, errors.New("invalid id"))
	}

	result, err := h.posts.Delete(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return presenter.OK(c, result)
}

func (h *Handler) handlePostTransactions(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := paramID(c)
	if err != nil {
		return presenter.BadRequest(c, errors.New("invalid id"))
	}

	grouped, err := h.posts.TransactionsForPosts(ctx, []int64{id})
	if err != nil {
		return respondError(c, err)
	}
	return presenter.OK(c, grouped[id])
}

// handleTransactionsBatch is the batched loader surface: one call for
// any number of posts, keyed by the requested ids.
func (h *Handler) handleTransactionsBatch(c echo.Context) error {
	ctx := c.Request().Context()

	raw := c.QueryParam("postIds")
	if raw == "" {
		return presenter.BadRequest(c, errors.New("postIds required"))
	}

	var postIDs []int64
	for _, part := range strings.Split(raw, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return presenter.BadRequest(c, errors.Errorf("invalid post id %q", part))
		}
		postIDs = append(postIDs, id)
	}

	grouped, err := h.posts.TransactionsForPosts(ctx, postIDs)
	if err != nil {
		return respondError(c, err)
	}
	return presenter.OK(c, grouped)
}

func (h *Handler) handleAddTransaction(c echo.Context) error {
	ctx := c.Request().Context()

	var input txplore.NewTransactionInput
	if err := c.Bind(&input); err != nil {
		return presenter.BadRequest(c, err)
	}

	transaction, err := h.posts.AddTransaction(ctx, input)
	if err != nil {
		return respondError(c, err)
	}
	return presenter.OK(c, transaction)
}

func (h *Handler) handleEditTransaction(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := paramID(c)
	if err != nil {
		return presenter.BadRequest(c, errors.New("invalid id"))
	}

	var input txplore.EditTransactionInput
	if err := c.Bind(&input); err != nil {
		return presenter.BadRequest(c, err)
	}
	input.ID = id

	transaction, err := h.posts.EditTransaction(ctx, input)
	if err != nil {
		return respondError(c, err)
	}
	return presenter.OK(c, transaction)
}

func (h *Handler) handleDeleteTransaction(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := paramID(c)
	if err != nil {
		return presenter.BadRequest(c, errors.New("invalid id"))
	}

	result, err := h.posts.DeleteTransaction(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return presenter.OK(c, result)
}

// HandleImport seeds a post's transactions from the chain gateway. The
// post title is treated as the watched address.
func (h *Handler) HandleImport(gateway usecase.ChainGateway) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		id, err := paramID(c)
		if err != nil {
			return presenter.BadRequest(c, errors.New("invalid id"))
		}

		limit, _ := strconv.Atoi(c.QueryParam("limit"))

		imported, err := h.posts.ImportTransactions(ctx, gateway, id, limit)
		if err != nil {
			return respondError(c, err)
		}
		return presenter.OK(c, echo.Map{"imported": imported})
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Request is one client frame on the realtime socket.
type Request struct {
	Type   string `json:"type"`
	Stream string `json:"stream"` // posts | post | transactions
	Cursor int64  `json:"cursor"`
	ID     int64  `json:"id"`
	PostID int64  `json:"postId"`
}

func (h *Handler) handleRealtime(c echo.Context) error {
	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.Error(
			"Failed to upgrade WebSocket",
			slog.String("error", err.Error()),
			slog.String("module", "socket"),
		)
		return err
	}
	defer ws.Close()

	ctx := c.Request().Context()

	output := make(chan txplore.Event, 64)
	quit := make(chan struct{})

	forward := func(ev txplore.Event) {
		select {
		case output <- ev:
		case <-quit:
		}
	}

	go func() {
		defer close(quit)

		var cancels []func()
		defer func() {
			for _, cancel := range cancels {
				cancel()
			}
		}()

		for {
			var req Request
			err := ws.ReadJSON(&req)
			if err != nil {
				wsErr, ok := err.(*websocket.CloseError)
				if ok {
					if !(wsErr.Code == websocket.CloseNormalClosure || wsErr.Code == websocket.CloseGoingAway) {
						slog.DebugContext(
							ctx, "WebSocket closed",
							slog.String("error", wsErr.Error()),
							slog.String("module", "socket"),
						)
					}
				} else {
					slog.DebugContext(
						ctx, "Error reading message",
						slog.String("error", err.Error()),
						slog.String("module", "socket"),
					)
				}
				return
			}

			switch req.Type {
			case "subscribe":
				var cancel func()
				switch req.Stream {
				case txplore.TopicPosts:
					cancel = h.notifier.Subscribe(txplore.TopicPosts, service.AllAfter(req.Cursor), forward)
				case txplore.TopicPost:
					cancel = h.notifier.Subscribe(txplore.TopicPost, service.ExactID(req.ID), forward)
				case txplore.TopicTransactions:
					cancel = h.notifier.Subscribe(txplore.TopicTransactions, service.ChildrenOf(req.PostID), forward)
				default:
					slog.InfoContext(
						ctx, "Unknown stream",
						slog.String("stream", req.Stream),
						slog.String("module", "socket"),
					)
					continue
				}
				cancels = append(cancels, cancel)
			case "h": // heartbeat
				// do nothing
			default:
				slog.InfoContext(
					ctx, "Unknown request type",
					slog.String("type", req.Type),
					slog.String("module", "socket"),
				)
			}
		}
	}()

	for {
		select {
		case <-quit:
			return nil
		case ev := <-output:
			err := ws.WriteJSON(ev)
			if err != nil {
				slog.DebugContext(
					ctx, "Error writing message",
					slog.String("error", err.Error()),
					slog.String("module", "socket"),
				)
				return nil
			}
		}
	}
}
