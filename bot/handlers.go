package bot

import (
	"context"
	"errors"
	"log"
	"strings"

	"food-order-bot/lang"
	"food-order-bot/models"
	"food-order-bot/services"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// label prefix of the account button of a logged in user
const accountPrefix = "👤 "

const (
	cmdStart    = "start"
	cmdMenu     = "menu"
	cmdCart     = "cart"
	cmdOrders   = "orders"
	cmdLogin    = "login"
	cmdRegister = "register"
	cmdProfile  = "profile"
	cmdLogout   = "logout"
	cmdLanguage = "language"
	cmdCancel   = "cancel"
	cmdAccount  = "account"
)

// command maps a slash command or a reply keyboard label to a command name.
// Anything else yields "".
func command(c *chat, text string) string {
	if strings.HasPrefix(text, "/") {
		name := strings.TrimPrefix(strings.Fields(text)[0], "/")
		name, _, _ = strings.Cut(name, "@")
		return strings.ToLower(name)
	}
	switch text {
	case lang.T(c.lang, "btn_menu"):
		return cmdMenu
	case lang.T(c.lang, "btn_cart"):
		return cmdCart
	case lang.T(c.lang, "btn_orders"):
		return cmdOrders
	case lang.T(c.lang, "btn_login"):
		return cmdAccount
	}
	if u := c.app.Session.User(); u != nil && text == accountPrefix+u.Name {
		return cmdAccount
	}
	return ""
}

func (b *Bot) handleMessage(ctx context.Context, c *chat, msg *tgbotapi.Message) {
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}
	cmd := command(c, text)
	if cmd == "" {
		if dlg := c.app.View.Dialog(); dlg != nil {
			b.handleDialogInput(ctx, c, msg, dlg, text)
			return
		}
		b.sendKeyboard(c, lang.T(c.lang, "unknown"))
		return
	}

	// a top-level command is the chat's equivalent of clicking outside the dialogs
	if cmd != cmdAccount {
		b.outsideClick(c)
	}

	switch cmd {
	case cmdStart:
		b.sendKeyboard(c, lang.T(c.lang, "welcome"))
		b.showMenu(ctx, c, false)
	case cmdMenu:
		b.showMenu(ctx, c, false)
	case cmdCart:
		b.openCart(c)
	case cmdOrders:
		b.showOrders(ctx, c)
	case cmdLogin, cmdRegister:
		if u := c.app.Session.User(); u != nil {
			b.sendKeyboard(c, lang.T(c.lang, "already_logged_in", u.Name))
			return
		}
		b.startDialog(c, services.Modal(cmd))
	case cmdProfile:
		b.openProfile(ctx, c)
	case cmdLogout:
		b.logout(ctx, c)
	case cmdLanguage:
		b.sendMarkdown(c.id, lang.T(c.lang, "choose_lang"), languageKeyboard())
	case cmdCancel:
		b.sendKeyboard(c, lang.T(c.lang, "cancelled"))
	case cmdAccount:
		b.toggleAccount(c)
	default:
		b.sendKeyboard(c, lang.T(c.lang, "unknown"))
	}
}

// outsideClick closes every dialog and the dropdown, disabling their buttons.
func (b *Bot) outsideClick(c *chat) {
	if c.app.View.DropdownOpen() {
		b.deleteMessage(c.id, c.dropdownMsgID)
	}
	if c.app.View.IsOpen(services.ModalCart) {
		b.dropKeyboard(c.id, c.cartMsgID)
	}
	if c.app.View.IsOpen(services.ModalProfile) {
		b.dropKeyboard(c.id, c.profileMsgID)
	}
	c.dropdownMsgID, c.cartMsgID, c.profileMsgID = 0, 0, 0
	c.app.View.OutsideClick()
}

func (b *Bot) toggleAccount(c *chat) {
	u := c.app.Session.User()
	if u == nil {
		b.startDialog(c, services.ModalLogin)
		return
	}
	if c.app.View.ToggleDropdown() {
		c.dropdownMsgID = b.sendMarkdown(c.id, accountPrefix+esc(u.Name), dropdownKeyboard(c.lang))
		return
	}
	b.deleteMessage(c.id, c.dropdownMsgID)
	c.dropdownMsgID = 0
}

func (b *Bot) closeDropdown(c *chat) {
	if c.app.View.DropdownOpen() {
		c.app.View.ToggleDropdown()
	}
	b.deleteMessage(c.id, c.dropdownMsgID)
	c.dropdownMsgID = 0
}

// showMenu sends the menu panel. The catalog is fetched on first use or when
// reload is set; a failed reload keeps showing the cached list.
func (b *Bot) showMenu(ctx context.Context, c *chat, reload bool) {
	c.app.View.ShowPanel(services.PanelMenu)
	if reload || !c.app.Catalog.Loaded() {
		if err := c.app.Catalog.Reload(ctx); err != nil {
			log.Printf("chat %d: load menu: %v", c.id, err)
			b.send(c.id, lang.T(c.lang, "menu_load_err")+": "+errorText(c.lang, err))
			if !c.app.Catalog.Loaded() {
				return
			}
		}
	}
	text, kb := renderMenu(c.lang, c.app.Catalog, c.app.Cart.Len())
	c.menuMsgID = b.sendMarkdown(c.id, text, kb)
}

func (b *Bot) refreshMenu(c *chat) {
	if c.menuMsgID == 0 || c.app.View.Panel() != services.PanelMenu {
		return
	}
	text, kb := renderMenu(c.lang, c.app.Catalog, c.app.Cart.Len())
	b.upsert(c.id, &c.menuMsgID, text, &kb)
}

// openCart shows the cart dialog. Anonymous users are sent to the login dialog.
func (b *Bot) openCart(c *chat) {
	if !c.app.Session.Authenticated() {
		b.send(c.id, lang.T(c.lang, "login_required"))
		b.startDialog(c, services.ModalLogin)
		return
	}
	c.app.View.Open(services.ModalCart)
	c.cartMsgID = 0
	b.refreshCart(c)
}

func (b *Bot) refreshCart(c *chat) {
	if !c.app.View.IsOpen(services.ModalCart) {
		return
	}
	text, kb := renderCart(c.lang, c.app.Cart, c.app.View.FormError(services.ModalCart))
	b.upsert(c.id, &c.cartMsgID, text, &kb)
}

func (b *Bot) showOrders(ctx context.Context, c *chat) {
	wasAuth := c.app.Session.Authenticated()
	orders, err := c.app.LoadOrders(ctx)
	if err != nil {
		b.fail(c, wasAuth, err)
		return
	}
	c.app.View.ShowPanel(services.PanelOrders)
	c.menuMsgID = 0
	b.sendMarkdown(c.id, renderOrders(c.lang, orders), nil)
}

func (b *Bot) openProfile(ctx context.Context, c *chat) {
	wasAuth := c.app.Session.Authenticated()
	u, err := c.app.Session.Profile(ctx)
	if err != nil {
		b.fail(c, wasAuth, err)
		return
	}
	c.app.View.Open(services.ModalProfile)
	text, kb := renderProfile(c.lang, u, c.app.View.FormError(services.ModalProfile))
	c.profileMsgID = 0
	b.upsert(c.id, &c.profileMsgID, text, &kb)
}

func (b *Bot) logout(ctx context.Context, c *chat) {
	if err := c.app.Logout(ctx); err != nil {
		log.Printf("chat %d: logout: %v", c.id, err)
	}
	c.cartMsgID, c.profileMsgID, c.dropdownMsgID = 0, 0, 0
	b.sendKeyboard(c, lang.T(c.lang, "logout_ok"))
	b.refreshMenu(c)
}

// fail reports err. A session the backend has just rejected gets the expiry
// notice and a fresh keyboard; an anonymous user is sent to the login dialog.
func (b *Bot) fail(c *chat, wasAuth bool, err error) {
	switch {
	case wasAuth && !c.app.Session.Authenticated():
		b.sendKeyboard(c, lang.T(c.lang, "session_expired"))
	case !wasAuth && errors.Is(err, services.ErrUnauthenticated):
		b.send(c.id, lang.T(c.lang, "login_required"))
		b.startDialog(c, services.ModalLogin)
	default:
		b.send(c.id, errorText(c.lang, err))
	}
}

// startDialog opens form and asks for its first field.
func (b *Bot) startDialog(c *chat, form services.Modal, fields ...string) {
	if len(fields) == 0 {
		fields = services.FormFields[form]
	}
	dlg := c.app.View.StartDialog(form, fields...)
	text, kb := renderPrompt(c.lang, dlg, true, c.app.View.FormError(form))
	b.sendMarkdown(c.id, text, *kb)
}

func (b *Bot) handleDialogInput(ctx context.Context, c *chat, msg *tgbotapi.Message, dlg *services.Dialog, text string) {
	field := dlg.Field()
	if field == services.FieldPassword {
		// keep passwords out of the chat history
		b.deleteMessage(c.id, msg.MessageID)
	}
	if optionalField(dlg.Form, field) && text == "-" {
		text = ""
	}
	if !dlg.Accept(text) {
		prompt, _ := renderPrompt(c.lang, dlg, false, "")
		b.sendMarkdown(c.id, prompt, nil)
		return
	}
	b.submitDialog(ctx, c, dlg)
}

// submitDialog sends a completed form. On failure the error is pinned to the
// form and the dialog starts over; on success the pinned error is cleared.
func (b *Bot) submitDialog(ctx context.Context, c *chat, dlg *services.Dialog) {
	wasAuth := c.app.Session.Authenticated()
	v := dlg.Values
	var (
		err  error
		done string
	)
	switch dlg.Form {
	case services.ModalLogin:
		err = c.app.Session.Login(ctx, v[services.FieldEmail], v[services.FieldPassword])
		done = "login_ok"
	case services.ModalRegister:
		err = c.app.Session.Register(ctx, models.RegisterInput{
			Name:     v[services.FieldName],
			Email:    v[services.FieldEmail],
			Password: v[services.FieldPassword],
			Phone:    v[services.FieldPhone],
			Address:  v[services.FieldAddress],
		})
		done = "register_ok"
	case services.ModalProfile:
		err = b.updateProfile(ctx, c, v)
		done = "profile_updated"
	}

	if err != nil {
		if wasAuth && !c.app.Session.Authenticated() {
			c.app.View.Close(dlg.Form)
			b.sendKeyboard(c, lang.T(c.lang, "session_expired"))
			return
		}
		msg := errorText(c.lang, err)
		c.app.View.SetFormError(dlg.Form, msg)
		dlg.Restart()
		text, kb := renderPrompt(c.lang, dlg, true, msg)
		b.sendMarkdown(c.id, text, *kb)
		return
	}

	c.app.View.ClearFormError(dlg.Form)
	c.app.View.Close(dlg.Form)
	b.sendKeyboard(c, lang.T(c.lang, done))
	if dlg.Form == services.ModalProfile {
		b.openProfile(ctx, c)
	}
}

// updateProfile applies the edited fields on top of the current profile.
func (b *Bot) updateProfile(ctx context.Context, c *chat, values map[string]string) error {
	u := c.app.Session.User()
	if u == nil {
		return services.ErrUnauthenticated
	}
	upd := models.ProfileUpdate{Name: u.Name, Phone: u.Phone, Address: u.Address}
	for field, value := range values {
		switch field {
		case services.FieldName:
			upd.Name = value
		case services.FieldPhone:
			upd.Phone = value
		case services.FieldAddress:
			upd.Address = value
		}
	}
	return c.app.Session.UpdateProfile(ctx, upd)
}
