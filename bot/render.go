package bot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"food-order-bot/api"
	"food-order-bot/lang"
	"food-order-bot/models"
	"food-order-bot/services"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"
)

const (
	maxOrdersShown  = 20
	maxCallbackData = 64 // bytes, Bot API limit
)

func esc(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s)
}

func money(l string, d decimal.Decimal) string {
	return lang.T(l, "currency", d.String())
}

// errorText turns any error from services or api into the text shown to the user.
// Backend messages are passed through verbatim.
func errorText(l string, err error) string {
	var ve *services.ValidationError
	var be *api.BackendError
	var te *api.TransportError
	var th *services.ThrottledError
	switch {
	case errors.As(err, &ve):
		if ve.Key == "err_required" {
			return lang.T(l, ve.Key, lang.T(l, "field_"+ve.Field))
		}
		return lang.T(l, ve.Key)
	case errors.As(err, &th):
		return lang.T(l, "err_throttled", th.WaitSeconds)
	case errors.Is(err, services.ErrUnauthenticated):
		return lang.T(l, "login_required")
	case errors.Is(err, services.ErrEmptyCart):
		return lang.T(l, "cart_empty")
	case errors.As(err, &be):
		return be.Message
	case errors.As(err, &te):
		return lang.T(l, "err_network")
	default:
		return lang.T(l, "err_generic")
	}
}

func mainKeyboard(l string, s *services.Session) tgbotapi.ReplyKeyboardMarkup {
	account := tgbotapi.NewKeyboardButton(lang.T(l, "btn_login"))
	if u := s.User(); u != nil {
		account = tgbotapi.NewKeyboardButton(accountPrefix + u.Name)
	}
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(lang.T(l, "btn_menu")),
			tgbotapi.NewKeyboardButton(lang.T(l, "btn_cart")),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(lang.T(l, "btn_orders")),
			account,
		),
	)
	kb.ResizeKeyboard = true
	return kb
}

func categoryLabel(l, category string) string {
	if category == models.CategoryAll {
		return lang.T(l, "btn_all")
	}
	return category
}

func renderMenu(l string, cat *services.Catalog, cartLen int) (string, tgbotapi.InlineKeyboardMarkup) {
	var sb strings.Builder
	sb.WriteString("*" + lang.T(l, "menu_header") + "*\n")
	sb.WriteString(esc(lang.T(l, "menu_filter", categoryLabel(l, cat.Filter()))) + "\n")

	visible := cat.Visible()
	if len(visible) == 0 {
		sb.WriteString("\n" + lang.T(l, "menu_empty"))
	}
	for _, it := range visible {
		fmt.Fprintf(&sb, "\n%s *%s* — %s\n", services.CategoryEmoji(it.Category), esc(it.Name), esc(money(l, it.Price)))
		if it.Description != "" {
			sb.WriteString(esc(it.Description) + "\n")
		}
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	mark := func(label string, active bool) string {
		if active {
			return "• " + label
		}
		return label
	}
	filters := []tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardButtonData(mark(lang.T(l, "btn_all"), cat.Filter() == models.CategoryAll), "filter:all"),
	}
	for _, c := range cat.Categories() {
		if len("filter:"+c) > maxCallbackData {
			continue
		}
		filters = append(filters, tgbotapi.NewInlineKeyboardButtonData(
			mark(services.CategoryEmoji(c)+" "+c, cat.Filter() == c),
			"filter:"+c,
		))
	}
	for len(filters) > 0 {
		n := 3
		if len(filters) < n {
			n = len(filters)
		}
		rows = append(rows, filters[:n])
		filters = filters[n:]
	}
	for _, it := range visible {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(
				fmt.Sprintf("➕ %s — %s", it.Name, money(l, it.Price)),
				"add:"+strconv.FormatInt(it.ID, 10),
			),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(lang.T(l, "btn_reload"), "reload"),
		tgbotapi.NewInlineKeyboardButtonData(lang.T(l, "btn_cart_count", cartLen), "open:cart"),
	))
	return sb.String(), tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func renderCart(l string, cart *services.Cart, errText string) (string, tgbotapi.InlineKeyboardMarkup) {
	var sb strings.Builder
	sb.WriteString("*" + lang.T(l, "cart_header") + "*\n")
	if errText != "" {
		sb.WriteString("⚠️ " + esc(errText) + "\n")
	}

	closeBtn := tgbotapi.NewInlineKeyboardButtonData(lang.T(l, "btn_close"), "close:cart")
	if cart.IsEmpty() {
		sb.WriteString("\n" + lang.T(l, "cart_empty") + "\n")
		sb.WriteString(esc(lang.T(l, "cart_total", money(l, decimal.Zero))))
		return sb.String(), tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(closeBtn))
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	for i, line := range cart.Lines() {
		fmt.Fprintf(&sb, "\n%d. %s — %s × %d = %s", i+1, esc(line.Name),
			esc(money(l, line.UnitPrice)), line.Quantity, esc(money(l, line.Subtotal())))
		idx := strconv.Itoa(i)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("−", "qty:"+idx+":-1"),
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("%s ×%d", line.Name, line.Quantity), "noop"),
			tgbotapi.NewInlineKeyboardButtonData("+", "qty:"+idx+":1"),
			tgbotapi.NewInlineKeyboardButtonData(lang.T(l, "btn_remove"), "rm:"+idx),
		))
	}
	sb.WriteString("\n\n*" + esc(lang.T(l, "cart_total", money(l, cart.Total()))) + "*")

	rows = append(rows,
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(lang.T(l, "btn_place_order"), "order")),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(lang.T(l, "btn_clear"), "clear"),
			closeBtn,
		),
	)
	return sb.String(), tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func renderOrders(l string, orders []models.Order) string {
	if len(orders) == 0 {
		return lang.T(l, "orders_empty")
	}
	if len(orders) > maxOrdersShown {
		orders = orders[:maxOrdersShown]
	}
	var sb strings.Builder
	sb.WriteString("*" + lang.T(l, "orders_header") + "*\n")
	for _, o := range orders {
		fmt.Fprintf(&sb, "\n*%s* — %s\n", esc(lang.T(l, "order_title", o.ID)),
			lang.T(l, "status_"+services.StatusLabel(o.Status)))
		for _, it := range o.Items {
			fmt.Fprintf(&sb, "• %s × %d\n", esc(it.Name), it.Quantity)
		}
		fmt.Fprintf(&sb, "%s · %s\n", esc(money(l, o.TotalPrice)), esc(services.FormatOrderDate(o.CreatedAt)))
	}
	return sb.String()
}

func renderProfile(l string, u *models.User, errText string) (string, tgbotapi.InlineKeyboardMarkup) {
	orDash := func(s string) string {
		if s == "" {
			return "—"
		}
		return esc(s)
	}
	var sb strings.Builder
	sb.WriteString("*" + lang.T(l, "profile_header") + "*\n")
	if errText != "" {
		sb.WriteString("⚠️ " + esc(errText) + "\n")
	}
	fmt.Fprintf(&sb, "\n%s: %s", lang.T(l, "field_name"), orDash(u.Name))
	fmt.Fprintf(&sb, "\n%s: %s", lang.T(l, "field_email"), orDash(u.Email))
	fmt.Fprintf(&sb, "\n%s: %s", lang.T(l, "field_phone"), orDash(u.Phone))
	fmt.Fprintf(&sb, "\n%s: %s", lang.T(l, "field_address"), orDash(u.Address))

	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(lang.T(l, "btn_edit_name"), "edit:"+services.FieldName),
			tgbotapi.NewInlineKeyboardButtonData(lang.T(l, "btn_edit_phone"), "edit:"+services.FieldPhone),
			tgbotapi.NewInlineKeyboardButtonData(lang.T(l, "btn_edit_address"), "edit:"+services.FieldAddress),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(lang.T(l, "btn_close"), "close:profile"),
		),
	)
	return sb.String(), kb
}

func dropdownKeyboard(l string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(lang.T(l, "btn_profile"), "dd:profile")),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(lang.T(l, "btn_orders"), "dd:orders")),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(lang.T(l, "btn_logout"), "dd:logout")),
	)
}

func languageKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Русский", "lang:"+lang.Ru),
			tgbotapi.NewInlineKeyboardButtonData("English", "lang:"+lang.En),
		),
	)
}

var dialogTitles = map[services.Modal]string{
	services.ModalLogin:    "login_title",
	services.ModalRegister: "register_title",
	services.ModalProfile:  "profile_header",
}

func optionalField(form services.Modal, field string) bool {
	return form == services.ModalRegister && (field == services.FieldPhone || field == services.FieldAddress)
}

// renderPrompt asks for the dialog's current field. withTitle adds the form
// title and its pinned error, used on the first step.
func renderPrompt(l string, dlg *services.Dialog, withTitle bool, errText string) (string, *tgbotapi.InlineKeyboardMarkup) {
	var sb strings.Builder
	if withTitle {
		sb.WriteString("*" + lang.T(l, dialogTitles[dlg.Form]) + "*\n")
		if errText != "" {
			sb.WriteString("⚠️ " + esc(errText) + "\n")
		}
	}
	cur, total := dlg.Step()
	key := "ask_field"
	if optionalField(dlg.Form, dlg.Field()) {
		key = "ask_optional"
	}
	sb.WriteString(esc(lang.T(l, key, lang.T(l, "field_"+dlg.Field()), cur, total)))

	if !withTitle {
		return sb.String(), nil
	}
	var row []tgbotapi.InlineKeyboardButton
	switch dlg.Form {
	case services.ModalLogin:
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(lang.T(l, "btn_register"), "switch:login:register"))
	case services.ModalRegister:
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(lang.T(l, "btn_login"), "switch:register:login"))
	}
	row = append(row, tgbotapi.NewInlineKeyboardButtonData(lang.T(l, "btn_close"), "close:"+string(dlg.Form)))
	kb := tgbotapi.NewInlineKeyboardMarkup(row)
	return sb.String(), &kb
}
