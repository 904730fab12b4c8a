package bot

import (
	"context"
	"log"
	"strings"
	"sync"

	"food-order-bot/config"
	"food-order-bot/lang"
	"food-order-bot/services"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// storage key of the chat's chosen language
const keyLang = "lang"

// chat is the client state of one Telegram chat plus the ids of the messages
// that act as its menu panel, cart dialog, profile dialog and user dropdown.
type chat struct {
	id   int64
	app  *services.App
	lang string

	menuMsgID     int
	cartMsgID     int
	profileMsgID  int
	dropdownMsgID int
}

type Bot struct {
	api     *tgbotapi.BotAPI
	cfg     *config.Config
	store   services.Storage
	backend services.Backend
	loader  *services.MenuLoader

	chats   map[int64]*chat
	chatsMu sync.Mutex

	chatLocks sync.Map // map[chatID]*sync.Mutex, serializes updates of one chat

	// one FIFO queue and worker per chat keeps a chat's updates in arrival order
	queues   map[int64]chan tgbotapi.Update
	queuesMu sync.Mutex
	workers  sync.WaitGroup
}

// per-chat backlog before Dispatch blocks the polling loop
const chatQueueSize = 64

func New(cfg *config.Config, store services.Storage, backend services.Backend) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		return nil, err
	}
	return NewWithAPI(api, cfg, store, backend), nil
}

// NewWithAPI builds a bot around an existing API handle (e.g. one pointed at a test server).
func NewWithAPI(api *tgbotapi.BotAPI, cfg *config.Config, store services.Storage, backend services.Backend) *Bot {
	return &Bot{
		api:     api,
		cfg:     cfg,
		store:   store,
		backend: backend,
		loader:  services.NewMenuLoader(backend),
		chats:   make(map[int64]*chat),
		queues:  make(map[int64]chan tgbotapi.Update),
	}
}

func (b *Bot) setBotCommands() error {
	cfg := tgbotapi.SetMyCommandsConfig{
		Commands: []tgbotapi.BotCommand{
			{Command: "start", Description: "Главная"},
			{Command: "menu", Description: "Меню"},
			{Command: "cart", Description: "Корзина"},
			{Command: "orders", Description: "Мои заказы"},
			{Command: "profile", Description: "Профиль"},
			{Command: "login", Description: "Войти"},
			{Command: "register", Description: "Регистрация"},
			{Command: "logout", Description: "Выйти"},
			{Command: "language", Description: "Язык / Language"},
			{Command: "cancel", Description: "Отмена"},
		},
	}
	_, err := b.api.Request(cfg)
	return err
}

// Start polls for updates until ctx is cancelled. Updates of one chat are
// handled in arrival order; different chats run concurrently.
func (b *Bot) Start(ctx context.Context) {
	if err := b.setBotCommands(); err != nil {
		log.Printf("set commands: %v", err)
	}
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		b.Dispatch(ctx, update)
	}
	b.stopWorkers()
}

func updateChatID(update tgbotapi.Update) int64 {
	switch {
	case update.CallbackQuery != nil && update.CallbackQuery.Message != nil:
		return update.CallbackQuery.Message.Chat.ID
	case update.Message != nil:
		return update.Message.Chat.ID
	}
	return 0
}

// Dispatch queues update for its chat's worker, starting the worker on first use.
func (b *Bot) Dispatch(ctx context.Context, update tgbotapi.Update) {
	chatID := updateChatID(update)
	if chatID == 0 {
		return
	}
	b.queuesMu.Lock()
	q, ok := b.queues[chatID]
	if !ok {
		q = make(chan tgbotapi.Update, chatQueueSize)
		b.queues[chatID] = q
		b.workers.Add(1)
		go b.drain(ctx, q)
	}
	b.queuesMu.Unlock()
	q <- update
}

func (b *Bot) drain(ctx context.Context, q <-chan tgbotapi.Update) {
	defer b.workers.Done()
	for up := range q {
		b.HandleUpdate(ctx, up)
	}
}

// stopWorkers closes every chat queue and waits until the queued updates are handled.
func (b *Bot) stopWorkers() {
	b.queuesMu.Lock()
	for _, q := range b.queues {
		close(q)
	}
	b.queues = make(map[int64]chan tgbotapi.Update)
	b.queuesMu.Unlock()
	b.workers.Wait()
}

// HandleUpdate processes one update. It blocks while another update of the
// same chat is in progress.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	chatID := updateChatID(update)
	if chatID == 0 {
		return
	}
	isCallback := update.CallbackQuery != nil && update.CallbackQuery.Message != nil
	var from *tgbotapi.User
	if isCallback {
		from = update.CallbackQuery.From
	} else {
		from = update.Message.From
	}

	unlock := b.lockChat(chatID)
	defer unlock()

	c := b.getChat(ctx, chatID, from)
	if isCallback {
		b.handleCallback(ctx, c, update.CallbackQuery)
		return
	}
	b.handleMessage(ctx, c, update.Message)
}

// lockChat locks by chatID and returns an unlock function.
func (b *Bot) lockChat(chatID int64) func() {
	v, _ := b.chatLocks.LoadOrStore(chatID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// getChat returns the state of chatID, creating it on first contact. A new
// chat restores its persisted session and language.
func (b *Bot) getChat(ctx context.Context, chatID int64, from *tgbotapi.User) *chat {
	b.chatsMu.Lock()
	defer b.chatsMu.Unlock()
	if c, ok := b.chats[chatID]; ok {
		return c
	}

	c := &chat{
		id:  chatID,
		app: services.NewApp(chatID, b.store, b.backend, b.loader),
	}
	if err := c.app.Session.Restore(ctx); err != nil {
		log.Printf("chat %d: restore session: %v", chatID, err)
	}

	stored, ok, err := b.store.Get(ctx, chatID, keyLang)
	switch {
	case err != nil:
		log.Printf("chat %d: read language: %v", chatID, err)
		c.lang = lang.Normalize(b.cfg.Lang)
	case ok:
		c.lang = lang.Normalize(stored)
	default:
		code := ""
		if from != nil {
			code = from.LanguageCode
		}
		c.lang = lang.Match(code, b.cfg.Lang)
	}

	b.chats[chatID] = c
	return c
}

func (b *Bot) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("send error: %v", err)
	}
}

// sendKeyboard sends text with the main reply keyboard, refreshing the account button.
func (b *Bot) sendKeyboard(c *chat, text string) {
	msg := tgbotapi.NewMessage(c.id, text)
	msg.ReplyMarkup = mainKeyboard(c.lang, c.app.Session)
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("send error: %v", err)
	}
}

// sendMarkdown sends a Markdown message and returns its id, 0 on failure.
// markup may be nil.
func (b *Bot) sendMarkdown(chatID int64, text string, markup interface{}) int {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if markup != nil {
		msg.ReplyMarkup = markup
	}
	sent, err := b.api.Send(msg)
	if err != nil {
		log.Printf("send error: %v", err)
		return 0
	}
	return sent.MessageID
}

// upsert edits the message *msgID if there is one; otherwise, or when the
// message is gone, it sends a new one and stores its id.
func (b *Bot) upsert(chatID int64, msgID *int, text string, kb *tgbotapi.InlineKeyboardMarkup) {
	if *msgID != 0 {
		edit := tgbotapi.NewEditMessageText(chatID, *msgID, text)
		edit.ParseMode = tgbotapi.ModeMarkdown
		edit.ReplyMarkup = kb
		_, err := b.api.Send(edit)
		if err == nil || strings.Contains(err.Error(), "message is not modified") {
			return
		}
		log.Printf("edit message %d: %v", *msgID, err)
	}
	var markup interface{}
	if kb != nil {
		markup = *kb
	}
	*msgID = b.sendMarkdown(chatID, text, markup)
}

// dropKeyboard removes the inline keyboard of a message that no longer accepts input.
func (b *Bot) dropKeyboard(chatID int64, msgID int) {
	if msgID == 0 {
		return
	}
	edit := tgbotapi.NewEditMessageReplyMarkup(chatID, msgID, tgbotapi.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{},
	})
	if _, err := b.api.Request(edit); err != nil {
		log.Printf("drop keyboard %d: %v", msgID, err)
	}
}

func (b *Bot) deleteMessage(chatID int64, msgID int) {
	if msgID == 0 {
		return
	}
	if _, err := b.api.Request(tgbotapi.NewDeleteMessage(chatID, msgID)); err != nil {
		log.Printf("delete message %d: %v", msgID, err)
	}
}

// answer sends a short toast for the callback (no new message).
func (b *Bot) answer(callbackQueryID, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(callbackQueryID, text)); err != nil {
		log.Printf("answer callback: %v", err)
	}
}
