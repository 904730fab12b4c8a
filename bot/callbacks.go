package bot

import (
	"context"
	"log"
	"slices"
	"strconv"
	"strings"

	"food-order-bot/lang"
	"food-order-bot/models"
	"food-order-bot/services"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func (b *Bot) handleCallback(ctx context.Context, c *chat, cq *tgbotapi.CallbackQuery) {
	msgID := cq.Message.MessageID
	prefix, arg, _ := strings.Cut(cq.Data, ":")
	toast := ""

	switch prefix {
	case "filter":
		c.menuMsgID = msgID
		// a button from an older menu may name a category that is gone
		if arg == models.CategoryAll || slices.Contains(c.app.Catalog.Categories(), arg) {
			c.app.Catalog.SetFilter(arg)
		} else {
			c.app.Catalog.SetFilter(models.CategoryAll)
		}
		c.app.View.ShowPanel(services.PanelMenu)
		b.refreshMenu(c)

	case "reload":
		c.menuMsgID = msgID
		if err := c.app.Catalog.Reload(ctx); err != nil {
			log.Printf("chat %d: reload menu: %v", c.id, err)
			toast = errorText(c.lang, err)
		}
		c.app.View.ShowPanel(services.PanelMenu)
		b.refreshMenu(c)

	case "add":
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			break
		}
		item, err := c.app.AddToCart(ctx, id)
		if err != nil {
			toast = errorText(c.lang, err)
			break
		}
		toast = lang.T(c.lang, "added_to_cart", item.Name)
		if c.menuMsgID == 0 {
			c.menuMsgID = msgID
		}
		b.refreshMenu(c)
		b.refreshCart(c)

	case "open":
		if services.Modal(arg) == services.ModalCart {
			b.outsideClick(c)
			b.openCart(c)
		}

	case "qty", "rm", "clear":
		b.cartCallback(c, msgID, prefix, arg)

	case "order":
		toast = b.placeOrder(ctx, c, msgID)

	case "close":
		m := services.Modal(arg)
		c.app.View.Close(m)
		b.dropKeyboard(c.id, msgID)
		switch m {
		case services.ModalCart:
			c.cartMsgID = 0
		case services.ModalProfile:
			c.profileMsgID = 0
		}

	case "switch":
		from, to, _ := strings.Cut(arg, ":")
		if services.FormFields[services.Modal(to)] == nil {
			break
		}
		b.dropKeyboard(c.id, msgID)
		c.app.View.Close(services.Modal(from))
		b.startDialog(c, services.Modal(to))

	case "dd":
		b.closeDropdown(c)
		switch arg {
		case "profile":
			b.openProfile(ctx, c)
		case "orders":
			b.showOrders(ctx, c)
		case "logout":
			b.logout(ctx, c)
		}

	case "lang":
		c.lang = lang.Normalize(arg)
		if err := b.store.Set(ctx, c.id, keyLang, c.lang); err != nil {
			log.Printf("chat %d: save language: %v", c.id, err)
		}
		b.dropKeyboard(c.id, msgID)
		b.sendKeyboard(c, lang.T(c.lang, "language_changed"))

	case "edit":
		if arg != services.FieldName && arg != services.FieldPhone && arg != services.FieldAddress {
			break
		}
		if !c.app.Session.Authenticated() {
			toast = lang.T(c.lang, "login_required")
			break
		}
		b.dropKeyboard(c.id, msgID)
		c.profileMsgID = 0
		b.startDialog(c, services.ModalProfile, arg)
	}

	b.answer(cq.ID, toast)
}

// cartCallback applies a quantity, remove or clear button of the cart dialog.
func (b *Bot) cartCallback(c *chat, msgID int, action, arg string) {
	c.app.View.Open(services.ModalCart)
	c.cartMsgID = msgID

	switch action {
	case "qty":
		idxStr, deltaStr, _ := strings.Cut(arg, ":")
		idx, err1 := strconv.Atoi(idxStr)
		delta, err2 := strconv.Atoi(deltaStr)
		if err1 != nil || err2 != nil {
			return
		}
		c.app.Cart.ChangeQuantity(idx, delta)
	case "rm":
		idx, err := strconv.Atoi(arg)
		if err != nil {
			return
		}
		c.app.Cart.RemoveItem(idx)
	case "clear":
		c.app.Cart.Clear()
	}
	b.refreshCart(c)
	b.refreshMenu(c)
}

// placeOrder submits the cart and returns the toast text. On success the cart
// message becomes the confirmation; on failure the error is pinned to the cart.
func (b *Bot) placeOrder(ctx context.Context, c *chat, msgID int) string {
	wasAuth := c.app.Session.Authenticated()
	c.app.View.Open(services.ModalCart)
	c.cartMsgID = msgID

	placed, err := c.app.PlaceOrder(ctx)
	if err != nil {
		if wasAuth && !c.app.Session.Authenticated() {
			c.app.View.Close(services.ModalCart)
			b.dropKeyboard(c.id, msgID)
			c.cartMsgID = 0
			b.sendKeyboard(c, lang.T(c.lang, "session_expired"))
			return ""
		}
		if !wasAuth {
			c.app.View.Close(services.ModalCart)
			b.dropKeyboard(c.id, msgID)
			c.cartMsgID = 0
			b.startDialog(c, services.ModalLogin)
			return errorText(c.lang, err)
		}
		msg := errorText(c.lang, err)
		c.app.View.SetFormError(services.ModalCart, msg)
		b.refreshCart(c)
		return msg
	}

	c.app.View.ClearFormError(services.ModalCart)
	c.app.View.Close(services.ModalCart)
	done := lang.T(c.lang, "order_placed", placed.OrderID, money(c.lang, placed.TotalPrice))
	b.upsert(c.id, &c.cartMsgID, esc(done), nil)
	c.cartMsgID = 0
	b.refreshMenu(c)
	return done
}
