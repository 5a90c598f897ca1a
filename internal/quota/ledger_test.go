package quota

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/abdulaziz27/analisisaham-ai/internal/models"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupLedgerDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:quotaledger_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, errOpen := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	sqlDB, errDB := db.DB()
	if errDB != nil {
		t.Fatalf("unwrap db: %v", errDB)
	}
	sqlDB.SetMaxOpenConns(1)
	if errMigrate := db.AutoMigrate(&models.UserQuota{}); errMigrate != nil {
		t.Fatalf("migrate db: %v", errMigrate)
	}
	return db
}

func loadQuotaRow(t *testing.T, db *gorm.DB, userID string) models.UserQuota {
	t.Helper()
	var row models.UserQuota
	if errTake := db.Where("user_id = ?", userID).Take(&row).Error; errTake != nil {
		t.Fatalf("load quota row: %v", errTake)
	}
	return row
}

func TestFirstUseGrantsFreeTier(t *testing.T) {
	db := setupLedgerDB(t)
	ledger := NewLedger(db)
	ctx := context.Background()

	ok, errHas := ledger.HasQuota(ctx, "user-1")
	if errHas != nil {
		t.Fatalf("HasQuota: %v", errHas)
	}
	if !ok {
		t.Fatal("expected brand-new user to have quota")
	}

	balance, errEnsure := ledger.EnsureAndPatch(ctx, "user-1", ProfilePatch{})
	if errEnsure != nil {
		t.Fatalf("EnsureAndPatch: %v", errEnsure)
	}
	if balance.Remaining != FreeTierGrant || balance.Total != 0 {
		t.Fatalf("expected balance {%d 0}, got {%d %d}", FreeTierGrant, balance.Remaining, balance.Total)
	}
}

func TestDecrementSpendsUntilExhausted(t *testing.T) {
	db := setupLedgerDB(t)
	ledger := NewLedger(db)
	ctx := context.Background()

	for i := 0; i < FreeTierGrant; i++ {
		ok, errDec := ledger.Decrement(ctx, "user-1")
		if errDec != nil {
			t.Fatalf("Decrement %d: %v", i, errDec)
		}
		if !ok {
			t.Fatalf("expected decrement %d to succeed", i)
		}
	}

	ok, errDec := ledger.Decrement(ctx, "user-1")
	if errDec != nil {
		t.Fatalf("Decrement after exhaustion: %v", errDec)
	}
	if ok {
		t.Fatal("expected decrement on empty balance to fail")
	}

	row := loadQuotaRow(t, db, "user-1")
	if row.RequestsRemaining != 0 {
		t.Fatalf("expected balance 0, got %d", row.RequestsRemaining)
	}
	if row.TotalRequests != FreeTierGrant {
		t.Fatalf("expected total %d, got %d", FreeTierGrant, row.TotalRequests)
	}
}

func TestDecrementOnEmptyBalanceIsNoOp(t *testing.T) {
	db := setupLedgerDB(t)
	ledger := NewLedger(db)
	ctx := context.Background()

	if errCreate := db.Create(&models.UserQuota{UserID: "u1", RequestsRemaining: 0}).Error; errCreate != nil {
		t.Fatalf("seed row: %v", errCreate)
	}

	ok, errDec := ledger.Decrement(ctx, "u1")
	if errDec != nil {
		t.Fatalf("Decrement: %v", errDec)
	}
	if ok {
		t.Fatal("expected decrement to report false")
	}
	if row := loadQuotaRow(t, db, "u1"); row.RequestsRemaining != 0 || row.TotalRequests != 0 {
		t.Fatalf("expected untouched row, got remaining=%d total=%d", row.RequestsRemaining, row.TotalRequests)
	}
}

func TestConcurrentDecrementsNeverOverspend(t *testing.T) {
	db := setupLedgerDB(t)
	ledger := NewLedger(db)
	ctx := context.Background()

	const initial = 5
	const callers = 20
	if errCreate := db.Create(&models.UserQuota{UserID: "user-1", RequestsRemaining: initial}).Error; errCreate != nil {
		t.Fatalf("seed row: %v", errCreate)
	}

	var wg sync.WaitGroup
	results := make(chan bool, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, errDec := ledger.Decrement(ctx, "user-1")
			if errDec != nil {
				t.Errorf("Decrement: %v", errDec)
				return
			}
			results <- ok
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for ok := range results {
		if ok {
			succeeded++
		}
	}
	if succeeded != initial {
		t.Fatalf("expected exactly %d successful decrements, got %d", initial, succeeded)
	}

	row := loadQuotaRow(t, db, "user-1")
	if row.RequestsRemaining != 0 {
		t.Fatalf("expected final balance 0, got %d", row.RequestsRemaining)
	}
	if row.TotalRequests != initial {
		t.Fatalf("expected total %d, got %d", initial, row.TotalRequests)
	}
}

func TestEnsureAndPatchOverwritesOnlyPresentFields(t *testing.T) {
	db := setupLedgerDB(t)
	ledger := NewLedger(db)
	ctx := context.Background()

	username := "aziz"
	firstName := "Abdul"
	if _, errEnsure := ledger.EnsureAndPatch(ctx, "user-1", ProfilePatch{
		Username:  &username,
		FirstName: &firstName,
	}); errEnsure != nil {
		t.Fatalf("EnsureAndPatch: %v", errEnsure)
	}

	lastName := "Aziz"
	premium := true
	if _, errEnsure := ledger.EnsureAndPatch(ctx, "user-1", ProfilePatch{
		LastName:  &lastName,
		IsPremium: &premium,
	}); errEnsure != nil {
		t.Fatalf("EnsureAndPatch: %v", errEnsure)
	}

	row := loadQuotaRow(t, db, "user-1")
	if row.Username == nil || *row.Username != "aziz" {
		t.Fatalf("expected username retained, got %v", row.Username)
	}
	if row.FirstName == nil || *row.FirstName != "Abdul" {
		t.Fatalf("expected first name retained, got %v", row.FirstName)
	}
	if row.LastName == nil || *row.LastName != "Aziz" {
		t.Fatalf("expected last name patched, got %v", row.LastName)
	}
	if row.IsPremium == nil || !*row.IsPremium {
		t.Fatalf("expected premium patched, got %v", row.IsPremium)
	}
}

func TestCreditCreatesAbsentUserWithGrantBaseline(t *testing.T) {
	db := setupLedgerDB(t)
	ledger := NewLedger(db)
	ctx := context.Background()

	newBalance, errCredit := ledger.Credit(ctx, "user-1", 30)
	if errCredit != nil {
		t.Fatalf("Credit: %v", errCredit)
	}
	if want := FreeTierGrant + 30; newBalance != want {
		t.Fatalf("expected balance %d, got %d", want, newBalance)
	}
}

func TestCreditAddsToExistingBalance(t *testing.T) {
	db := setupLedgerDB(t)
	ledger := NewLedger(db)
	ctx := context.Background()

	if errCreate := db.Create(&models.UserQuota{UserID: "user-1", RequestsRemaining: 2, TotalRequests: 7}).Error; errCreate != nil {
		t.Fatalf("seed row: %v", errCreate)
	}

	newBalance, errCredit := ledger.Credit(ctx, "user-1", 100)
	if errCredit != nil {
		t.Fatalf("Credit: %v", errCredit)
	}
	if newBalance != 102 {
		t.Fatalf("expected balance 102, got %d", newBalance)
	}
	if row := loadQuotaRow(t, db, "user-1"); row.TotalRequests != 7 {
		t.Fatalf("expected total untouched at 7, got %d", row.TotalRequests)
	}
}
