package session

import (
	"fmt"
	"log/slog"

	"fitnessweb/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

// Flash kinds understood by the layout.
const (
	FlashSuccess = "success"
	FlashError   = "error"
	FlashInfo    = "info"
)

const (
	keyFlashKind = "flash_kind"
	keyFlashMsg  = "flash_msg"
)

// FlashMessage is a notification shown once on the next rendered page.
type FlashMessage struct {
	Kind    string
	Message string
}

// Flash queues a one-shot message. A later call before it is shown replaces it.
func (m *Manager) Flash(c *fiber.Ctx, kind, msg string) error {
	sess, err := m.store.Get(c)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	sess.Set(keyFlashKind, kind)
	sess.Set(keyFlashMsg, msg)
	id := sess.ID()
	if err := sess.Save(); err != nil {
		return fmt.Errorf("save flash: %w", err)
	}
	c.Request().Header.SetCookie(CookieName, id)
	return nil
}

// TakeFlash returns the queued message and removes it, or nil when there is none.
// If the removal cannot be saved the message is still returned and will show
// again on the next page.
func (m *Manager) TakeFlash(c *fiber.Ctx) *FlashMessage {
	sess, err := m.store.Get(c)
	if err != nil {
		return nil
	}
	msg := stringValue(sess.Get(keyFlashMsg))
	if msg == "" {
		return nil
	}
	flash := &FlashMessage{Kind: stringValue(sess.Get(keyFlashKind)), Message: msg}
	sess.Delete(keyFlashKind)
	sess.Delete(keyFlashMsg)
	if err := sess.Save(); err != nil {
		middleware.Logger.WarnContext(c.UserContext(), "flash not cleared", slog.String("error", err.Error()))
	}
	return flash
}
