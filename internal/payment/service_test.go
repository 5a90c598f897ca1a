package payment

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/abdulaziz27/analisisaham-ai/internal/models"
	"github.com/abdulaziz27/analisisaham-ai/internal/plan"
)

type fakeGateway struct {
	charges []string
	err     error
}

func (f *fakeGateway) ChargeQRIS(_ context.Context, orderID, _ string, _ plan.Plan) (*Charge, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.charges = append(f.charges, orderID)
	return &Charge{OrderID: orderID, QRURL: "https://qr.example/" + orderID}, nil
}

func TestCreatePurchaseRecordsPendingTransaction(t *testing.T) {
	db := setupPaymentDB(t)
	gateway := &fakeGateway{}
	service := NewService(NewStore(db), gateway)

	receipt, errCreate := service.CreatePurchase(context.Background(), "u1", "pro")
	if errCreate != nil {
		t.Fatalf("CreatePurchase: %v", errCreate)
	}

	if !strings.HasPrefix(receipt.OrderID, "ORDER-u1-") {
		t.Fatalf("unexpected order id %s", receipt.OrderID)
	}
	if receipt.PlanName != "Paket Pro" || receipt.Amount != 100000 || receipt.Type != "qris" {
		t.Fatalf("unexpected receipt %+v", receipt)
	}
	if !strings.HasSuffix(receipt.ExpiryTime, " WIB") {
		t.Fatalf("expected WIB expiry, got %s", receipt.ExpiryTime)
	}

	var row models.PaymentTransaction
	if errTake := db.Where("order_id = ?", receipt.OrderID).Take(&row).Error; errTake != nil {
		t.Fatalf("load transaction: %v", errTake)
	}
	if row.Status != models.StatusPending || row.Amount != 100000 || row.UserID != "u1" {
		t.Fatalf("unexpected row %+v", row)
	}
	if row.PaymentURL != receipt.PaymentURL {
		t.Fatalf("expected stored payment url %s, got %s", receipt.PaymentURL, row.PaymentURL)
	}
}

func TestCreatePurchaseUnknownPlan(t *testing.T) {
	db := setupPaymentDB(t)
	service := NewService(NewStore(db), &fakeGateway{})

	_, errCreate := service.CreatePurchase(context.Background(), "u1", "platinum")
	if !errors.Is(errCreate, plan.ErrUnknownPlan) {
		t.Fatalf("expected ErrUnknownPlan, got %v", errCreate)
	}

	var count int64
	if errCount := db.Model(&models.PaymentTransaction{}).Count(&count).Error; errCount != nil {
		t.Fatalf("count transactions: %v", errCount)
	}
	if count != 0 {
		t.Fatal("expected no row for rejected purchase")
	}
}

func TestCreatePurchaseGatewayFailureLeavesNoRow(t *testing.T) {
	db := setupPaymentDB(t)
	gateway := &fakeGateway{err: errors.New("gateway down")}
	service := NewService(NewStore(db), gateway)

	if _, errCreate := service.CreatePurchase(context.Background(), "u1", "basic"); errCreate == nil {
		t.Fatal("expected gateway error")
	}

	var count int64
	if errCount := db.Model(&models.PaymentTransaction{}).Count(&count).Error; errCount != nil {
		t.Fatalf("count transactions: %v", errCount)
	}
	if count != 0 {
		t.Fatal("expected no row after gateway failure")
	}
}
