package services

import (
	"context"

	"food-order-bot/models"
)

// Storage is durable per-owner key/value storage (see db.Storage).
type Storage interface {
	Get(ctx context.Context, ownerID int64, key string) (string, bool, error)
	Set(ctx context.Context, ownerID int64, key, value string) error
	Remove(ctx context.Context, ownerID int64, keys ...string) error
}

type AuthBackend interface {
	Login(ctx context.Context, in models.LoginInput) (*models.AuthResult, error)
	Register(ctx context.Context, in models.RegisterInput) (*models.AuthResult, error)
	Profile(ctx context.Context, token string) (*models.User, error)
	UpdateProfile(ctx context.Context, token string, in models.ProfileUpdate) (*models.User, error)
}

type MenuBackend interface {
	Menu(ctx context.Context) ([]models.MenuItem, error)
	MenuItem(ctx context.Context, id int64) (*models.MenuItem, error)
}

type OrderBackend interface {
	PlaceOrder(ctx context.Context, token string, lines []models.OrderLine) (*models.PlacedOrder, error)
	Orders(ctx context.Context, token string) ([]models.Order, error)
}

// Backend is the full REST contract; *api.Client implements it.
type Backend interface {
	AuthBackend
	MenuBackend
	OrderBackend
}

// App is the client state of one chat: who is logged in, what is in the cart,
// which menu is cached and which dialogs are open.
type App struct {
	Session *Session
	Cart    *Cart
	Catalog *Catalog
	View    *View

	orders OrderBackend
}

func NewApp(ownerID int64, store Storage, backend Backend, loader *MenuLoader) *App {
	a := &App{
		Session: NewSession(ownerID, store, backend),
		Cart:    NewCart(),
		Catalog: NewCatalog(loader),
		View:    NewView(),
		orders:  backend,
	}
	// a cart left behind by an expired session belongs to that user only
	a.Session.onUserChange = a.Cart.Clear
	return a
}

// AddToCart adds one unit of a menu item, resolving it from the cached menu or the backend.
func (a *App) AddToCart(ctx context.Context, productID int64) (models.MenuItem, error) {
	item, err := a.Catalog.Resolve(ctx, productID)
	if err != nil {
		return models.MenuItem{}, err
	}
	a.Cart.AddItem(item.ID, item.Name, item.Price)
	return item, nil
}

// Logout ends the session, empties the cart and closes every dialog.
func (a *App) Logout(ctx context.Context) error {
	err := a.Session.Logout(ctx)
	a.Cart.Clear()
	a.View.CloseAll()
	return err
}
