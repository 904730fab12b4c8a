package bot

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"food-order-bot/api"
	"food-order-bot/api/apitest"
	"food-order-bot/config"
	"food-order-bot/db"
	"food-order-bot/lang"
	"food-order-bot/services"

	"github.com/go-chi/chi/v5"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testChat int64 = 42

type tgCall struct {
	Method    string
	ChatID    string
	MessageID string
	Text      string
	Markup    string
}

// fakeTelegram answers Bot API requests and records them.
type fakeTelegram struct {
	*httptest.Server

	mu     sync.Mutex
	calls  []tgCall
	nextID int
}

func newFakeTelegram(t *testing.T) *fakeTelegram {
	f := &fakeTelegram{nextID: 100}
	r := chi.NewRouter()
	r.Post("/bot{token}/{method}", f.handle)
	f.Server = httptest.NewServer(r)
	t.Cleanup(f.Close)
	return f
}

func (f *fakeTelegram) handle(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	method := chi.URLParam(r, "method")

	f.mu.Lock()
	f.nextID++
	id := f.nextID
	f.calls = append(f.calls, tgCall{
		Method:    method,
		ChatID:    r.PostForm.Get("chat_id"),
		MessageID: r.PostForm.Get("message_id"),
		Text:      r.PostForm.Get("text"),
		Markup:    r.PostForm.Get("reply_markup"),
	})
	f.mu.Unlock()

	var result any = true
	switch method {
	case "getMe":
		result = map[string]any{"id": 1, "is_bot": true, "first_name": "Food", "username": "food_bot"}
	case "sendMessage", "editMessageText":
		chatID, _ := strconv.ParseInt(r.PostForm.Get("chat_id"), 10, 64)
		if m := r.PostForm.Get("message_id"); m != "" {
			id, _ = strconv.Atoi(m)
		}
		result = map[string]any{
			"message_id": id,
			"date":       0,
			"chat":       map[string]any{"id": chatID, "type": "private"},
			"text":       r.PostForm.Get("text"),
		}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "result": result})
}

func (f *fakeTelegram) reset() {
	f.mu.Lock()
	f.calls = nil
	f.mu.Unlock()
}

func (f *fakeTelegram) byMethod(method string) []tgCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tgCall
	for _, c := range f.calls {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// lastEdit returns the latest edit of message msgID.
func (f *fakeTelegram) lastEdit(msgID int) tgCall {
	var out tgCall
	for _, c := range f.byMethod("editMessageText") {
		if c.MessageID == strconv.Itoa(msgID) {
			out = c
		}
	}
	return out
}

func (f *fakeTelegram) last(method string) tgCall {
	calls := f.byMethod(method)
	if len(calls) == 0 {
		return tgCall{}
	}
	return calls[len(calls)-1]
}

// transcript joins the text of every sent or edited message.
func (f *fakeTelegram) transcript() string {
	var parts []string
	for _, c := range append(f.byMethod("sendMessage"), f.byMethod("editMessageText")...) {
		parts = append(parts, c.Text)
	}
	return strings.Join(parts, "\n")
}

type harness struct {
	msgID   int
	bot     *Bot
	tg      *fakeTelegram
	backend *apitest.Backend
	store   *db.SQLiteStorage
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	backend := apitest.NewBackend()
	t.Cleanup(backend.Close)

	sqlDB, err := db.OpenSQLite(filepath.Join(t.TempDir(), "client.db"))
	require.NoError(t, err)
	store := db.NewSQLiteStorage(sqlDB)
	t.Cleanup(store.Close)
	require.NoError(t, db.ApplyMigrations(context.Background(), store, false))

	return newHarnessWith(t, backend, store)
}

func newHarnessWith(t *testing.T, backend *apitest.Backend, store *db.SQLiteStorage) *harness {
	t.Helper()
	tg := newFakeTelegram(t)
	tgAPI, err := tgbotapi.NewBotAPIWithClient("test-token", tg.URL+"/bot%s/%s", tg.Client())
	require.NoError(t, err)

	cfg := &config.Config{
		API:  config.APIConfig{BaseURL: backend.BaseURL(), Timeout: 5 * time.Second},
		Lang: lang.Ru,
	}
	client := api.New(cfg.API.BaseURL, cfg.API.Timeout)
	return &harness{
		bot:     NewWithAPI(tgAPI, cfg, store, client),
		tg:      tg,
		backend: backend,
		store:   store,
	}
}

func (h *harness) message(chatID int64, text string) tgbotapi.Update {
	h.msgID++
	return tgbotapi.Update{
		Message: &tgbotapi.Message{
			MessageID: h.msgID,
			Chat:      &tgbotapi.Chat{ID: chatID},
			From:      &tgbotapi.User{ID: chatID, LanguageCode: "ru"},
			Text:      text,
		},
	}
}

// text sends a user message and returns its id.
func (h *harness) text(t *testing.T, text string) int {
	t.Helper()
	h.bot.HandleUpdate(context.Background(), h.message(testChat, text))
	return h.msgID
}

func (h *harness) press(t *testing.T, msgID int, data string) {
	t.Helper()
	h.bot.HandleUpdate(context.Background(), tgbotapi.Update{
		CallbackQuery: &tgbotapi.CallbackQuery{
			ID:      "cq-" + data,
			From:    &tgbotapi.User{ID: testChat},
			Message: &tgbotapi.Message{MessageID: msgID, Chat: &tgbotapi.Chat{ID: testChat}},
			Data:    data,
		},
	})
}

func (h *harness) chat() *chat {
	return h.chatByID(testChat)
}

func (h *harness) chatByID(id int64) *chat {
	h.bot.chatsMu.Lock()
	defer h.bot.chatsMu.Unlock()
	return h.bot.chats[id]
}

func (h *harness) app() *services.App {
	return h.chat().app
}

func (h *harness) register(t *testing.T) {
	t.Helper()
	h.text(t, "/register")
	for _, v := range []string{"Ivan", "ivan@example.com", "secret1", "+7900", "Tverskaya 1"} {
		h.text(t, v)
	}
	require.True(t, h.app().Session.Authenticated())
}

func TestMenuAndAddToCart(t *testing.T) {
	h := newHarness(t)

	h.text(t, "/menu")
	menu := h.tg.last("sendMessage")
	assert.Contains(t, menu.Text, "Пицца Маргарита")
	assert.Contains(t, menu.Markup, "add:1")
	assert.Contains(t, menu.Markup, "filter:all")

	menuID := h.chat().menuMsgID
	require.NotZero(t, menuID)

	h.press(t, menuID, "add:1")
	assert.Contains(t, h.tg.last("answerCallbackQuery").Text, "добавлена в корзину")
	assert.Equal(t, 1, h.app().Cart.Len())
	assert.Contains(t, h.tg.last("editMessageText").Markup, "Корзина (1)")
}

func TestFilterDoesNotRefetch(t *testing.T) {
	h := newHarness(t)
	h.text(t, "/menu")
	menuID := h.chat().menuMsgID

	assert.Contains(t, h.tg.last("sendMessage").Markup, "filter:Суши")
	h.press(t, menuID, "filter:Суши")
	assert.Equal(t, "Суши", h.app().Catalog.Filter())
	edited := h.tg.last("editMessageText").Text
	assert.Contains(t, edited, "Суши сет")
	assert.NotContains(t, edited, "Пицца Маргарита")
	assert.Equal(t, 1, h.backend.Hits("GET /menu"))

	h.press(t, menuID, "reload")
	assert.Equal(t, 2, h.backend.Hits("GET /menu"))
	assert.Equal(t, "Суши", h.app().Catalog.Filter())
}

func TestCartRequiresLogin(t *testing.T) {
	h := newHarness(t)

	h.text(t, "/cart")
	assert.Contains(t, h.tg.transcript(), lang.T(lang.Ru, "login_required"))
	dlg := h.app().View.Dialog()
	require.NotNil(t, dlg)
	assert.Equal(t, services.ModalLogin, dlg.Form)
	assert.False(t, h.app().View.IsOpen(services.ModalCart))
}

func TestRegisterDialog(t *testing.T) {
	h := newHarness(t)

	h.text(t, "/register")
	h.text(t, "Ivan")
	h.text(t, "ivan@example.com")
	passwordMsg := strconv.Itoa(h.text(t, "secret1"))
	h.text(t, "-")
	h.text(t, "-")

	app := h.app()
	require.True(t, app.Session.Authenticated())
	assert.Equal(t, "Ivan", app.Session.User().Name)
	assert.Nil(t, app.View.Dialog())

	deleted := h.tg.byMethod("deleteMessage")
	require.Len(t, deleted, 1)
	assert.Equal(t, passwordMsg, deleted[0].MessageID)

	last := h.tg.last("sendMessage")
	assert.Equal(t, lang.T(lang.Ru, "register_ok"), last.Text)
	assert.Contains(t, last.Markup, "👤 Ivan")

	token, ok, err := h.store.Get(context.Background(), testChat, services.KeyAuthToken)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, app.Session.Token(), token)
}

func TestRegisterValidationPinsError(t *testing.T) {
	h := newHarness(t)

	h.text(t, "/register")
	for _, v := range []string{"Ivan", "ivan@example.com", "123", "-", "-"} {
		h.text(t, v)
	}

	app := h.app()
	assert.False(t, app.Session.Authenticated())
	assert.Equal(t, lang.T(lang.Ru, "err_password_short"), app.View.FormError(services.ModalRegister))
	assert.Zero(t, h.backend.Hits("POST /auth/register"))

	dlg := app.View.Dialog()
	require.NotNil(t, dlg)
	assert.Equal(t, services.FieldName, dlg.Field())
}

func TestLoginFailureShowsBackendMessage(t *testing.T) {
	h := newHarness(t)
	h.register(t)
	h.text(t, "/logout")
	require.False(t, h.app().Session.Authenticated())

	h.text(t, "/login")
	h.text(t, "ivan@example.com")
	h.text(t, "wrong-password")
	assert.Equal(t, "Invalid email or password", h.app().View.FormError(services.ModalLogin))
	assert.Contains(t, h.tg.last("sendMessage").Text, "Invalid email or password")

	h.text(t, "ivan@example.com")
	h.text(t, "secret1")
	assert.True(t, h.app().Session.Authenticated())
	assert.Empty(t, h.app().View.FormError(services.ModalLogin))
}

func TestPlaceOrderAndHistory(t *testing.T) {
	h := newHarness(t)
	h.register(t)
	h.text(t, "/menu")
	menuID := h.chat().menuMsgID
	h.press(t, menuID, "add:1")
	h.press(t, menuID, "add:1")
	h.press(t, menuID, "add:2")

	h.text(t, "/cart")
	cartID := h.chat().cartMsgID
	require.NotZero(t, cartID)
	assert.Contains(t, h.tg.last("sendMessage").Text, "1347 ₽")

	h.press(t, cartID, "order")
	assert.Contains(t, h.tg.last("answerCallbackQuery").Text, "Заказ 1 успешно оформлен")
	assert.True(t, h.app().Cart.IsEmpty())
	assert.False(t, h.app().View.IsOpen(services.ModalCart))
	assert.Equal(t, 1, h.backend.Hits("POST /orders"))

	h.text(t, "/orders")
	history := h.tg.last("sendMessage").Text
	assert.Contains(t, history, "Заказ #1")
	assert.Contains(t, history, "В обработке")
	assert.Contains(t, history, "08.03.2024")
	assert.Equal(t, services.PanelOrders, h.app().View.Panel())
}

func TestPlaceOrderFailureKeepsCart(t *testing.T) {
	h := newHarness(t)
	h.register(t)
	h.text(t, "/menu")
	h.press(t, h.chat().menuMsgID, "add:4")
	h.text(t, "/cart")
	cartID := h.chat().cartMsgID

	h.backend.FailOrders("Kitchen is closed")
	h.press(t, cartID, "order")

	assert.Equal(t, "Kitchen is closed", h.tg.last("answerCallbackQuery").Text)
	assert.Equal(t, 1, h.app().Cart.Len())
	assert.Equal(t, "Kitchen is closed", h.app().View.FormError(services.ModalCart))
	assert.Contains(t, h.tg.lastEdit(cartID).Text, "Kitchen is closed")
}

func TestCartButtons(t *testing.T) {
	h := newHarness(t)
	h.register(t)
	h.text(t, "/menu")
	menuID := h.chat().menuMsgID
	h.press(t, menuID, "add:1")
	h.press(t, menuID, "add:3")
	h.text(t, "/cart")
	cartID := h.chat().cartMsgID

	h.press(t, cartID, "qty:0:1")
	assert.Equal(t, 2, h.app().Cart.Lines()[0].Quantity)
	h.press(t, cartID, "qty:1:-1")
	assert.Equal(t, 1, h.app().Cart.Len())
	h.press(t, cartID, "rm:0")
	assert.True(t, h.app().Cart.IsEmpty())
	assert.Contains(t, h.tg.lastEdit(cartID).Text, lang.T(lang.Ru, "cart_empty"))
}

func TestRejectedTokenExpiresSession(t *testing.T) {
	h := newHarness(t)
	h.register(t)
	h.text(t, "/menu")
	h.press(t, h.chat().menuMsgID, "add:1")

	h.backend.RevokeTokens()
	h.text(t, "/orders")

	assert.Equal(t, lang.T(lang.Ru, "session_expired"), h.tg.last("sendMessage").Text)
	assert.False(t, h.app().Session.Authenticated())
	assert.Equal(t, 1, h.app().Cart.Len())
	_, ok, err := h.store.Get(context.Background(), testChat, services.KeyAuthToken)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOutsideClickClosesDialogs(t *testing.T) {
	h := newHarness(t)
	h.text(t, "/login")
	require.NotNil(t, h.app().View.Dialog())

	h.text(t, "/menu")
	assert.Nil(t, h.app().View.Dialog())
	assert.Empty(t, h.app().View.OpenModals())
}

func TestAccountDropdown(t *testing.T) {
	h := newHarness(t)
	h.register(t)

	h.text(t, "👤 Ivan")
	assert.True(t, h.app().View.DropdownOpen())
	dd := h.tg.last("sendMessage")
	assert.Contains(t, dd.Markup, "dd:logout")

	h.press(t, h.chat().dropdownMsgID, "dd:logout")
	assert.False(t, h.app().View.DropdownOpen())
	assert.False(t, h.app().Session.Authenticated())
	assert.Contains(t, h.tg.last("sendMessage").Markup, lang.T(lang.Ru, "btn_login"))
}

func TestProfileEdit(t *testing.T) {
	h := newHarness(t)
	h.register(t)

	h.text(t, "/profile")
	assert.Contains(t, h.tg.last("sendMessage").Text, "Tverskaya 1")
	profileID := h.chat().profileMsgID

	h.press(t, profileID, "edit:address")
	h.text(t, "Arbat 5")

	u := h.app().Session.User()
	assert.Equal(t, "Arbat 5", u.Address)
	assert.Equal(t, "Ivan", u.Name)
	assert.Equal(t, 1, h.backend.Hits("PUT /auth/profile"))
	assert.Contains(t, h.tg.last("sendMessage").Text, "Arbat 5")
}

func TestSessionSurvivesRestart(t *testing.T) {
	h := newHarness(t)
	h.register(t)
	hits := h.backend.TotalHits()

	restarted := newHarnessWith(t, h.backend, h.store)
	restarted.text(t, "/cancel")

	app := restarted.app()
	assert.True(t, app.Session.Authenticated())
	assert.Equal(t, "Ivan", app.Session.User().Name)
	assert.Equal(t, hits, h.backend.TotalHits())
}

func TestLanguageSwitch(t *testing.T) {
	h := newHarness(t)
	h.text(t, "/language")
	assert.Contains(t, h.tg.last("sendMessage").Markup, "lang:en")
	h.press(t, 500, "lang:en")

	stored, ok, err := h.store.Get(context.Background(), testChat, keyLang)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, lang.En, stored)
	assert.Equal(t, "Language changed.", h.tg.last("sendMessage").Text)

	h.tg.reset()
	h.text(t, "🛒 Cart")
	assert.Contains(t, h.tg.transcript(), "Please log in first")
}

func TestDispatchKeepsChatOrder(t *testing.T) {
	const otherChat int64 = 43
	ctx := context.Background()

	for run := 0; run < 10; run++ {
		h := newHarness(t)

		h.bot.Dispatch(ctx, h.message(testChat, "/register"))
		h.bot.Dispatch(ctx, h.message(otherChat, "/register"))
		answers := map[int64][]string{
			testChat:  {"Ivan", "ivan@example.com", "secret1", "+7900", "Tverskaya 1"},
			otherChat: {"Olga", "olga@example.com", "secret2", "-", "-"},
		}
		for i := 0; i < 5; i++ {
			h.bot.Dispatch(ctx, h.message(testChat, answers[testChat][i]))
			h.bot.Dispatch(ctx, h.message(otherChat, answers[otherChat][i]))
		}
		h.bot.stopWorkers()

		for id, want := range map[int64]string{testChat: "Ivan", otherChat: "Olga"} {
			app := h.chatByID(id).app
			require.True(t, app.Session.Authenticated(), "run %d chat %d: %s", run, id, app.View.FormError(services.ModalRegister))
			assert.Equal(t, want, app.Session.User().Name)
		}
		assert.Equal(t, "+7900", h.app().Session.User().Phone)
	}
}

func TestDispatchAfterStopStartsNewWorker(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.bot.Dispatch(ctx, h.message(testChat, "/login"))
	h.bot.stopWorkers()
	h.bot.Dispatch(ctx, h.message(testChat, "/cancel"))
	h.bot.stopWorkers()

	assert.Nil(t, h.app().View.Dialog())
	assert.Equal(t, lang.T(lang.Ru, "cancelled"), h.tg.last("sendMessage").Text)
}

func TestFilterFromOldMenuAfterReload(t *testing.T) {
	h := newHarness(t)
	h.text(t, "/menu")
	oldMenuID := h.chat().menuMsgID

	menu := apitest.DefaultMenu()
	h.backend.SetMenu(menu[2:]) // Пиццы and Бургеры are gone
	h.text(t, "/menu")
	h.press(t, h.chat().menuMsgID, "reload")
	require.Equal(t, "Салаты", h.app().Catalog.Categories()[0])

	h.press(t, oldMenuID, "filter:Бургеры")
	assert.Equal(t, "all", h.app().Catalog.Filter())

	h.press(t, oldMenuID, "filter:Суши")
	assert.Equal(t, "Суши", h.app().Catalog.Filter())
	assert.Contains(t, h.tg.last("editMessageText").Text, "Суши сет")
}
