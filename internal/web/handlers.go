package web

import (
	"errors"
	"io"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"

	"shoplist/internal/list"
	"shoplist/internal/output"
	"shoplist/internal/store"
)

const (
	sessionKey     = "session"
	maxRequestBody = 4 << 10
)

var errInvalidBody = errors.New("invalid body")

type loginRequest struct {
	Password string `json:"password"`
}

type addRequest struct {
	Text string `json:"text"`
}

type confirmRequest struct {
	Confirm bool `json:"confirm"`
}

// stateResponse is returned by every API call.
type stateResponse struct {
	output.Frame
	Authenticated bool           `json:"authenticated"`
	Mode          list.Mode      `json:"mode"`
	Identity      *list.Identity `json:"identity,omitempty"`
	Selection     []string       `json:"selection"`
	Notice        *output.Notice `json:"notice,omitempty"`
	Deleted       []string       `json:"deleted,omitempty"`
	Failed        []string       `json:"failed,omitempty"`
}

func (s *Server) register(g *echo.Group) {
	g.POST("/login", s.login)
	g.POST("/logout", s.logout)
	g.GET("/items", s.listItems)
	g.POST("/items", s.addItem)
	g.POST("/items/:id/toggle", s.toggleItem)
	g.POST("/selection/completed", s.selectCompleted)
	g.POST("/selection/all", s.selectAll)
	g.POST("/selection/confirm", s.confirmDelete)
	g.POST("/selection/:id", s.toggleSelection)
	g.DELETE("/selection", s.cancelSelection)
}

func sessionOf(c echo.Context) *session {
	return c.Get(sessionKey).(*session)
}

func decodeBody(c echo.Context, v any) error {
	lr := io.LimitReader(c.Request().Body, maxRequestBody)
	dec := sonic.ConfigStd.NewDecoder(lr)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errInvalidBody
	}
	return nil
}

func state(sess *session, notice *output.Notice) stateResponse {
	s := sess.ctrl.Session()
	resp := stateResponse{
		Frame:         sess.screen.Frame(),
		Authenticated: s.Authenticated,
		Mode:          sess.ctrl.Mode(),
		Selection:     sess.ctrl.SelectedIDs(),
		Notice:        notice,
	}
	if s.Authenticated {
		id := s.Identity
		resp.Identity = &id
	}
	if resp.Selection == nil {
		resp.Selection = []string{}
	}
	return resp
}

func respond(c echo.Context, status int, notice *output.Notice) error {
	return c.JSON(status, state(sessionOf(c), notice))
}

func noticef(kind output.NoticeKind, format string, args ...any) *output.Notice {
	n := output.Noticef(kind, format, args...)
	return &n
}

// statusOf maps a controller error to an HTTP status.
func statusOf(err error) int {
	var batchErr *list.BatchDeleteError
	var validationErr *list.ValidationError
	var storeErr *list.StoreError
	switch {
	case errors.As(err, &batchErr):
		return http.StatusMultiStatus
	case errors.Is(err, errInvalidBody):
		return http.StatusBadRequest
	case errors.As(err, &validationErr),
		errors.Is(err, list.ErrUnknownFilter),
		errors.Is(err, list.ErrNothingSelected):
		return http.StatusUnprocessableEntity
	case errors.Is(err, list.ErrAuthRequired), errors.Is(err, list.ErrInvalidCredential):
		return http.StatusUnauthorized
	case errors.Is(err, list.ErrItemNotFound), errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &storeErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(c echo.Context, err error) error {
	status := statusOf(err)
	msg := err.Error()
	switch {
	case errors.Is(err, list.ErrInvalidCredential):
		msg = "wrong password"
	case status >= http.StatusInternalServerError:
		s.logger.WithError(err).WithField("path", c.Path()).Error("request failed")
	}
	return respond(c, status, noticef(output.Error, "%s", msg))
}

func (s *Server) login(c echo.Context) error {
	var req loginRequest
	if err := decodeBody(c, &req); err != nil {
		return s.fail(c, err)
	}
	sess := sessionOf(c)
	if sess.ctrl.Session().Authenticated {
		return respond(c, http.StatusOK, noticef(output.Info, "already logged in"))
	}
	if err := sess.ctrl.Authenticate(c.Request().Context(), req.Password); err != nil {
		return s.fail(c, err)
	}
	return respond(c, http.StatusOK, noticef(output.Success, "logged in"))
}

func (s *Server) logout(c echo.Context) error {
	if err := sessionOf(c).ctrl.Logout(c.Request().Context()); err != nil {
		s.logger.WithError(err).Warn("logout failed")
	}
	return respond(c, http.StatusOK, noticef(output.Info, "logged out"))
}

func (s *Server) listItems(c echo.Context) error {
	sess := sessionOf(c)
	if name := c.QueryParam("filter"); name != "" {
		f, err := list.ParseFilter(name)
		if err != nil {
			return s.fail(c, err)
		}
		if err := sess.ctrl.SetFilter(f); err != nil {
			return s.fail(c, err)
		}
	}
	if err := sess.ctrl.LoadItems(c.Request().Context()); err != nil {
		return s.fail(c, err)
	}
	return respond(c, http.StatusOK, nil)
}

func (s *Server) addItem(c echo.Context) error {
	var req addRequest
	if err := decodeBody(c, &req); err != nil {
		return s.fail(c, err)
	}
	item, err := sessionOf(c).ctrl.AddItem(c.Request().Context(), req.Text)
	if err != nil {
		return s.fail(c, err)
	}
	return respond(c, http.StatusCreated, noticef(output.Success, "added: %s", item.Text))
}

func (s *Server) toggleItem(c echo.Context) error {
	completed, err := sessionOf(c).ctrl.ToggleCompletion(c.Request().Context(), c.Param("id"))
	if err != nil {
		return s.fail(c, err)
	}
	if completed {
		return respond(c, http.StatusOK, noticef(output.Success, "checked"))
	}
	return respond(c, http.StatusOK, noticef(output.Success, "unchecked"))
}

func (s *Server) toggleSelection(c echo.Context) error {
	if err := sessionOf(c).ctrl.ToggleSelection(c.Param("id")); err != nil {
		return s.fail(c, err)
	}
	return respond(c, http.StatusOK, nil)
}

func (s *Server) selectCompleted(c echo.Context) error {
	n, err := sessionOf(c).ctrl.SelectCompleted()
	if err != nil {
		return s.fail(c, err)
	}
	if n == 0 {
		return respond(c, http.StatusOK, noticef(output.Info, "no completed items"))
	}
	return respond(c, http.StatusOK, nil)
}

func (s *Server) selectAll(c echo.Context) error {
	n, err := sessionOf(c).ctrl.SelectAll()
	if err != nil {
		return s.fail(c, err)
	}
	if n == 0 {
		return respond(c, http.StatusOK, noticef(output.Info, "nothing to delete"))
	}
	return respond(c, http.StatusOK, nil)
}

func (s *Server) cancelSelection(c echo.Context) error {
	sessionOf(c).ctrl.CancelSelection()
	return respond(c, http.StatusOK, nil)
}

func (s *Server) confirmDelete(c echo.Context) error {
	var req confirmRequest
	if err := decodeBody(c, &req); err != nil {
		return s.fail(c, err)
	}
	sess := sessionOf(c)
	result, err := sess.ctrl.ConfirmDelete(c.Request().Context(), func([]string) bool {
		return req.Confirm
	})

	var batchErr *list.BatchDeleteError
	switch {
	case errors.As(err, &batchErr):
		s.logger.WithField("failed", len(batchErr.Failed)).Warn("bulk delete partially failed")
		resp := state(sess, noticef(output.Error, "%s", batchErr.Error()))
		resp.Deleted = result.Deleted
		resp.Failed = result.Failed
		return c.JSON(http.StatusMultiStatus, resp)
	case err != nil:
		return s.fail(c, err)
	case result.Cancelled:
		return respond(c, http.StatusOK, noticef(output.Info, "cancelled"))
	}
	resp := state(sess, noticef(output.Success, "deleted %d item(s)", len(result.Deleted)))
	resp.Deleted = result.Deleted
	return c.JSON(http.StatusOK, resp)
}
