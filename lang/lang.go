// Package lang holds the bot's user-facing texts.
package lang

import (
	"fmt"

	"golang.org/x/text/language"
)

const (
	Ru = "ru"
	En = "en"
)

var matcher = language.NewMatcher([]language.Tag{language.Russian, language.English})

// Match maps a Telegram language_code (e.g. "en-GB", "uk") to a supported code.
// Unknown or empty codes yield def.
func Match(code, def string) string {
	if code == "" {
		return Normalize(def)
	}
	tag, err := language.Parse(code)
	if err != nil {
		return Normalize(def)
	}
	_, idx, conf := matcher.Match(tag)
	if conf == language.No {
		return Normalize(def)
	}
	if idx == 1 {
		return En
	}
	return Ru
}

// Normalize returns code if supported, Ru otherwise.
func Normalize(code string) string {
	if code == En {
		return En
	}
	return Ru
}

// T returns the message for key in lang l, formatted with args. Missing
// translations fall back to Russian, then to the key itself.
func T(l, key string, args ...interface{}) string {
	m, ok := messages[Normalize(l)][key]
	if !ok {
		m, ok = messages[Ru][key]
	}
	if !ok {
		return key
	}
	if len(args) > 0 {
		return fmt.Sprintf(m, args...)
	}
	return m
}

var messages = map[string]map[string]string{
	Ru: {
		"welcome":            "Добро пожаловать! Выберите блюда из меню и оформите заказ.",
		"btn_menu":           "🍽 Меню",
		"btn_cart":           "🛒 Корзина",
		"btn_orders":         "📦 Мои заказы",
		"btn_login":          "🔑 Войти",
		"btn_register":       "📝 Регистрация",
		"btn_profile":        "👤 Профиль",
		"btn_logout":         "🚪 Выйти",
		"btn_close":          "✖ Закрыть",
		"btn_reload":         "🔄 Обновить",
		"btn_all":            "Все",
		"btn_place_order":    "✅ Оформить заказ",
		"btn_clear":          "🗑 Очистить",
		"btn_remove":         "✖",
		"btn_cart_count":     "🛒 Корзина (%d)",
		"btn_edit_name":      "✏️ Имя",
		"btn_edit_phone":     "✏️ Телефон",
		"btn_edit_address":   "✏️ Адрес",
		"menu_header":        "🍽 Меню",
		"menu_filter":        "Категория: %s",
		"menu_empty":         "В этой категории пока ничего нет.",
		"menu_load_err":      "Ошибка загрузки меню",
		"added_to_cart":      "%s добавлена в корзину",
		"cart_header":        "🛒 Корзина",
		"cart_empty":         "Корзина пуста",
		"cart_total":         "Итого: %s",
		"order_placed":       "Заказ %d успешно оформлен! Сумма: %s",
		"orders_header":      "📦 Мои заказы",
		"orders_empty":       "У вас нет заказов",
		"order_title":        "Заказ #%d",
		"status_completed":   "Доставлено",
		"status_pending":     "В обработке",
		"profile_header":     "👤 Профиль",
		"profile_updated":    "Профиль обновлён",
		"field_name":         "Имя",
		"field_email":        "Email",
		"field_password":     "Пароль",
		"field_phone":        "Телефон",
		"field_address":      "Адрес",
		"ask_field":          "%s (%d/%d):",
		"ask_optional":       "%s (%d/%d), или «-» чтобы пропустить:",
		"login_title":        "🔑 Вход",
		"register_title":     "📝 Регистрация",
		"no_account":         "Нет аккаунта? Зарегистрируйтесь.",
		"have_account":       "Уже есть аккаунт? Войдите.",
		"login_ok":           "Успешный вход!",
		"register_ok":        "Регистрация успешна!",
		"logout_ok":          "Вы вышли из аккаунта",
		"already_logged_in":  "Вы уже вошли как %s.",
		"login_required":     "Пожалуйста, войдите в аккаунт",
		"session_expired":    "Сессия истекла, войдите снова.",
		"cancelled":          "Отменено.",
		"unknown":            "Не понимаю. Воспользуйтесь кнопками ниже.",
		"choose_lang":        "Выберите язык / Choose language",
		"language_changed":   "Язык изменён.",
		"err_required":       "Поле «%s» обязательно",
		"err_email":          "Некорректный email",
		"err_password_short": "Пароль должен быть не менее 6 символов",
		"err_network":        "Сервер недоступен, попробуйте позже",
		"err_throttled":      "Слишком много попыток входа. Подождите %d сек.",
		"err_generic":        "Что-то пошло не так",
		"currency":           "%s ₽",
	},
	En: {
		"welcome":            "Welcome! Pick dishes from the menu and place an order.",
		"btn_menu":           "🍽 Menu",
		"btn_cart":           "🛒 Cart",
		"btn_orders":         "📦 My orders",
		"btn_login":          "🔑 Log in",
		"btn_register":       "📝 Sign up",
		"btn_profile":        "👤 Profile",
		"btn_logout":         "🚪 Log out",
		"btn_close":          "✖ Close",
		"btn_reload":         "🔄 Reload",
		"btn_all":            "All",
		"btn_place_order":    "✅ Place order",
		"btn_clear":          "🗑 Clear",
		"btn_remove":         "✖",
		"btn_cart_count":     "🛒 Cart (%d)",
		"btn_edit_name":      "✏️ Name",
		"btn_edit_phone":     "✏️ Phone",
		"btn_edit_address":   "✏️ Address",
		"menu_header":        "🍽 Menu",
		"menu_filter":        "Category: %s",
		"menu_empty":         "Nothing in this category yet.",
		"menu_load_err":      "Could not load the menu",
		"added_to_cart":      "%s added to cart",
		"cart_header":        "🛒 Cart",
		"cart_empty":         "Your cart is empty",
		"cart_total":         "Total: %s",
		"order_placed":       "Order %d placed! Total: %s",
		"orders_header":      "📦 My orders",
		"orders_empty":       "You have no orders yet",
		"order_title":        "Order #%d",
		"status_completed":   "Delivered",
		"status_pending":     "Processing",
		"profile_header":     "👤 Profile",
		"profile_updated":    "Profile updated",
		"field_name":         "Name",
		"field_email":        "Email",
		"field_password":     "Password",
		"field_phone":        "Phone",
		"field_address":      "Address",
		"ask_field":          "%s (%d/%d):",
		"ask_optional":       "%s (%d/%d), or \"-\" to skip:",
		"login_title":        "🔑 Log in",
		"register_title":     "📝 Sign up",
		"no_account":         "No account yet? Sign up.",
		"have_account":       "Already registered? Log in.",
		"login_ok":           "Logged in!",
		"register_ok":        "Signed up!",
		"logout_ok":          "You have logged out",
		"already_logged_in":  "You are already logged in as %s.",
		"login_required":     "Please log in first",
		"session_expired":    "Your session has expired, please log in again.",
		"cancelled":          "Cancelled.",
		"unknown":            "I don't understand. Use the buttons below.",
		"choose_lang":        "Выберите язык / Choose language",
		"language_changed":   "Language changed.",
		"err_required":       "%s is required",
		"err_email":          "Invalid email",
		"err_password_short": "Password must be at least 6 characters",
		"err_network":        "Server is unreachable, try again later",
		"err_throttled":      "Too many login attempts. Wait %d s.",
		"err_generic":        "Something went wrong",
		"currency":           "%s ₽",
	},
}
