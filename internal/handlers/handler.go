package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/google/uuid"

	"github.com/latestcomment/ai-battle-arena/internal/models"
	"github.com/latestcomment/ai-battle-arena/internal/services"
)

const viewerCookie = "viewer_id"

type Handler struct {
	Service *services.BattleService
}

func NewHandler(service *services.BattleService) *Handler {
	return &Handler{Service: service}
}

// ViewerMiddleware identifies the viewer by cookie, issuing a new id when
// the cookie is missing or unreadable.
func (h *Handler) ViewerMiddleware(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Cookies(viewerCookie))
	if err != nil {
		id = uuid.New()
		c.Cookie(&fiber.Cookie{
			Name:     viewerCookie,
			Value:    id.String(),
			Path:     "/",
			Expires:  time.Now().AddDate(1, 0, 0),
			HTTPOnly: true,
			SameSite: fiber.CookieSameSiteLaxMode,
		})
	}
	c.Locals("viewer", id)
	return c.Next()
}

func viewerID(c *fiber.Ctx) uuid.UUID {
	id, _ := c.Locals("viewer").(uuid.UUID)
	return id
}

func (h *Handler) session(c *fiber.Ctx) *models.Session {
	return h.Service.Session(c.UserContext(), viewerID(c))
}

func (h *Handler) BattlePage(c *fiber.Ctx) error {
	return c.Render("battle", fiber.Map{
		"View": h.session(c).View(),
	})
}

func (h *Handler) ViewJSON(c *fiber.Ctx) error {
	return c.JSON(h.session(c).View())
}

// formValue copies the value out of the request buffer; the session keeps it
// past the handler.
func formValue(c *fiber.Ctx, key string) string {
	return utils.CopyString(c.FormValue(key))
}

func (h *Handler) StartBattle(c *fiber.Ctx) error {
	err := h.Service.StartBattle(c.UserContext(), h.session(c), formValue(c, "topic"))
	return h.done(c, err)
}

func (h *Handler) NextRound(c *fiber.Ctx) error {
	err := h.Service.AdvanceRound(c.UserContext(), h.session(c), formValue(c, "battle_id"))
	return h.done(c, err)
}

func (h *Handler) Vote(c *fiber.Ctx) error {
	err := h.Service.SubmitVote(c.UserContext(), h.session(c),
		formValue(c, "battle_id"),
		formValue(c, "chosen_ai"),
		formValue(c, "twitter_username"),
	)
	return h.done(c, err)
}

func (h *Handler) RefreshVotes(c *fiber.Ctx) error {
	err := h.Service.FetchVotes(c.UserContext(), h.session(c), formValue(c, "battle_id"))
	return h.done(c, err)
}

func (h *Handler) Reset(c *fiber.Ctx) error {
	return h.done(c, h.Service.Reset(c.UserContext(), h.session(c)))
}

func (h *Handler) Healthz(c *fiber.Ctx) error {
	return c.SendString("ok")
}

// done refuses guarded requests outright. Backend failures are already on the
// session and show up on the page, so those redirect like a success.
func (h *Handler) done(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrBusy),
		errors.Is(err, services.ErrBattleExists),
		errors.Is(err, services.ErrStaleBattle):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, services.ErrEmptyTopic),
		errors.Is(err, services.ErrNoBattle),
		errors.Is(err, services.ErrEmptyHandle),
		errors.Is(err, services.ErrUnknownParticipant):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return c.Redirect("/", fiber.StatusSeeOther)
}
