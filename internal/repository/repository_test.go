package repository_test

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/jikgumate/internal/database/dbtest"
	"github.com/iliyamo/jikgumate/internal/model"
	"github.com/iliyamo/jikgumate/internal/repository"
)

func createUser(t *testing.T, db *sql.DB, email string) model.User {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()
	u := model.User{Email: email, PasswordHash: "x", Name: "n", CreatedAt: now, UpdatedAt: now}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := repository.NewUserRepo(db).CreateTx(ctx, tx, &u); err != nil {
		_ = tx.Rollback()
		t.Fatalf("create user: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	return u
}

func TestUserEmailUniqueAndCaseSensitive(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	users := repository.NewUserRepo(db)
	u := createUser(t, db, "  Alice@Example.COM ")
	if u.Email != "Alice@Example.COM" {
		t.Fatalf("email not stored as sent: %q", u.Email)
	}

	tx, _ := db.BeginTx(ctx, nil)
	dup := model.User{Email: "Alice@Example.COM", PasswordHash: "x", Name: "n", CreatedAt: u.CreatedAt, UpdatedAt: u.UpdatedAt}
	if err := users.CreateTx(ctx, tx, &dup); !errors.Is(err, repository.ErrEmailExists) {
		t.Fatalf("duplicate insert err = %v, want ErrEmailExists", err)
	}
	_ = tx.Rollback()

	if _, err := users.GetByEmail(ctx, "alice@example.com"); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("lookup with other case err = %v, want sql.ErrNoRows", err)
	}
	lower := createUser(t, db, "alice@example.com")
	if lower.ID == u.ID {
		t.Fatalf("case variants share an account")
	}
	got, err := users.GetByEmail(ctx, "Alice@Example.COM")
	if err != nil || got.ID != u.ID {
		t.Fatalf("exact lookup = %+v, %v", got, err)
	}
}

func TestUserGetByEmailMissing(t *testing.T) {
	db := dbtest.Open(t)
	if _, err := repository.NewUserRepo(db).GetByEmail(context.Background(), "nobody@x.io"); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("err = %v, want sql.ErrNoRows", err)
	}
}

func TestTokenConsumeIsSingleUse(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	u := createUser(t, db, "t@x.io")
	tokens := repository.NewTokenRepo(db)
	now := time.Now().UTC()

	tx, _ := db.BeginTx(ctx, nil)
	if err := tokens.StoreRefreshTx(ctx, tx, u.ID, "h1", now.Add(time.Hour), now); err != nil {
		t.Fatalf("store: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	for i, want := range []bool{true, false} {
		tx, _ := db.BeginTx(ctx, nil)
		ok, err := tokens.ConsumeTx(ctx, tx, u.ID, "h1", now)
		if err != nil {
			t.Fatalf("consume #%d: %v", i, err)
		}
		if ok != want {
			t.Fatalf("consume #%d = %v, want %v", i, ok, want)
		}
		_ = tx.Commit()
	}
}

func TestTokenConsumeConcurrentConnections(t *testing.T) {
	db := dbtest.OpenConcurrent(t, 8)
	ctx := context.Background()
	u := createUser(t, db, "cas@x.io")
	tokens := repository.NewTokenRepo(db)
	now := time.Now().UTC()

	tx, _ := db.BeginTx(ctx, nil)
	if err := tokens.StoreRefreshTx(ctx, tx, u.ID, "h1", now.Add(time.Hour), now); err != nil {
		t.Fatalf("store: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	const n = 8
	var wg sync.WaitGroup
	start := make(chan struct{})
	consumed := make([]bool, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			tx, err := db.BeginTx(ctx, nil)
			if err != nil {
				errs[i] = err
				return
			}
			consumed[i], errs[i] = tokens.ConsumeTx(ctx, tx, u.ID, "h1", now)
			if errs[i] != nil {
				_ = tx.Rollback()
				return
			}
			errs[i] = tx.Commit()
		}(i)
	}
	close(start)
	wg.Wait()

	wins := 0
	for i := range consumed {
		if errs[i] != nil {
			t.Fatalf("consume #%d: %v", i, errs[i])
		}
		if consumed[i] {
			wins++
		}
	}
	if wins != 1 {
		t.Fatalf("consumed %d times, want 1", wins)
	}
}

func TestTokenConsumeIgnoresExpired(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	u := createUser(t, db, "e@x.io")
	tokens := repository.NewTokenRepo(db)
	now := time.Now().UTC()

	tx, _ := db.BeginTx(ctx, nil)
	defer tx.Rollback()
	if err := tokens.StoreRefreshTx(ctx, tx, u.ID, "old", now.Add(-time.Minute), now.Add(-time.Hour)); err != nil {
		t.Fatalf("store: %v", err)
	}
	ok, err := tokens.ConsumeTx(ctx, tx, u.ID, "old", now)
	if err != nil || ok {
		t.Fatalf("expired token consumed: ok=%v err=%v", ok, err)
	}
}

func TestProductCRUD(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	products := repository.NewProductRepo(db)

	cat := "shoes"
	p := model.Product{NameKo: "운동화", Category: &cat, PriceUSD: decimal.RequireFromString("59.90")}
	if err := products.Create(ctx, &p); err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := products.GetByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.PriceUSD.Equal(decimal.RequireFromString("59.9")) || got.Category == nil || *got.Category != "shoes" {
		t.Fatalf("unexpected product %+v", got)
	}

	price := decimal.RequireFromString("49.50")
	upd, err := products.Update(ctx, p.ID, repository.ProductPatch{PriceUSD: &price})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !upd.PriceUSD.Equal(price) || upd.NameKo != "운동화" {
		t.Fatalf("update result %+v", upd)
	}

	list, err := products.List(ctx, "shoes", 10, 0)
	if err != nil || len(list) != 1 {
		t.Fatalf("list: %v %d", err, len(list))
	}
	if list, _ := products.List(ctx, "bags", 10, 0); len(list) != 0 {
		t.Fatalf("category filter returned %d rows", len(list))
	}

	if err := products.Delete(ctx, p.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := products.Delete(ctx, p.ID); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("second delete err = %v", err)
	}
}

func TestCartAddItemMergesQuantity(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	u := createUser(t, db, "c@x.io")
	products := repository.NewProductRepo(db)
	carts := repository.NewCartRepo(db)

	p := model.Product{NameKo: "가방", PriceUSD: decimal.NewFromInt(10)}
	if err := products.Create(ctx, &p); err != nil {
		t.Fatalf("create product: %v", err)
	}
	cart, err := carts.GetOrCreate(ctx, u.ID)
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}
	again, err := carts.GetOrCreate(ctx, u.ID)
	if err != nil || again.ID != cart.ID {
		t.Fatalf("second GetOrCreate returned cart %d (%v), want %d", again.ID, err, cart.ID)
	}

	for _, q := range []int{2, 3} {
		tx, _ := db.BeginTx(ctx, nil)
		if err := carts.AddItemTx(ctx, tx, cart.ID, p.ID, q, time.Now().UTC()); err != nil {
			t.Fatalf("add: %v", err)
		}
		_ = tx.Commit()
	}
	items, err := carts.ListItems(ctx, cart.ID)
	if err != nil {
		t.Fatalf("list items: %v", err)
	}
	if len(items) != 1 || items[0].Quantity != 5 || items[0].Product == nil {
		t.Fatalf("items = %+v", items)
	}

	if err := carts.UpdateItemQuantity(ctx, cart.ID+1, items[0].ID, 1); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("update through foreign cart err = %v", err)
	}
	if err := carts.DeleteItem(ctx, cart.ID, items[0].ID); err != nil {
		t.Fatalf("delete item: %v", err)
	}
}

func TestOrderWriteAndExpand(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	u := createUser(t, db, "o@x.io")
	products := repository.NewProductRepo(db)
	orders := repository.NewOrderRepo(db)

	p := model.Product{NameKo: "모자", PriceUSD: decimal.RequireFromString("12.34")}
	if err := products.Create(ctx, &p); err != nil {
		t.Fatalf("create product: %v", err)
	}

	tx, _ := db.BeginTx(ctx, nil)
	o := model.Order{UserID: u.ID, TotalAmount: decimal.RequireFromString("24.68"), Status: model.OrderPending, OrderDate: time.Now().UTC()}
	if err := orders.CreateTx(ctx, tx, &o); err != nil {
		t.Fatalf("create order: %v", err)
	}
	if err := orders.CreateItemsBulkTx(ctx, tx, []model.LineItem{{OrderID: o.ID, ProductID: p.ID, Quantity: 2, UnitPrice: p.PriceUSD}}); err != nil {
		t.Fatalf("create items: %v", err)
	}
	if err := orders.CreateShippingTx(ctx, tx, &model.ShippingSnapshot{OrderID: o.ID, RecipientName: "r", RecipientPhone: "p", RecipientAddress: "a"}); err != nil {
		t.Fatalf("create shipping: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	got, err := orders.GetByID(ctx, o.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.TotalAmount.StringFixed(2) != "24.68" || len(got.Items) != 1 || got.Shipping == nil {
		t.Fatalf("expanded order = %+v", got)
	}
	if got.Items[0].Product == nil || got.Items[0].Product.NameKo != "모자" {
		t.Fatalf("item product not joined: %+v", got.Items[0])
	}

	if err := orders.UpdateStatus(ctx, o.ID, model.OrderPurchased); err != nil {
		t.Fatalf("update status: %v", err)
	}
	if err := orders.UpdateStatus(ctx, o.ID+100, model.OrderPurchased); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("update missing order err = %v", err)
	}

	tx, _ = db.BeginTx(ctx, nil)
	if err := orders.DeleteTx(ctx, tx, o.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	_ = tx.Commit()
	var n int
	_ = db.QueryRow("SELECT COUNT(*) FROM order_items WHERE order_id = ?", o.ID).Scan(&n)
	if n != 0 {
		t.Fatalf("items left after delete: %d", n)
	}
	if _, err := orders.GetByID(ctx, o.ID); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("get after delete err = %v", err)
	}
}
