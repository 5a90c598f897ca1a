package payment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/abdulaziz27/analisisaham-ai/internal/plan"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// wib is the display timezone for expiry times.
var wib = loadWIB()

func loadWIB() *time.Location {
	loc, errLoad := time.LoadLocation("Asia/Jakarta")
	if errLoad != nil {
		return time.FixedZone("WIB", 7*3600)
	}
	return loc
}

// Receipt describes a freshly created purchase for client display.
type Receipt struct {
	OrderID    string `json:"order_id"`
	PaymentURL string `json:"payment_url"`
	PlanName   string `json:"plan_name"`
	Amount     int64  `json:"amount"`
	Type       string `json:"type"`
	ExpiryTime string `json:"expiry_time"`
}

// Service creates purchases: it charges the gateway and records the pending
// transaction.
type Service struct {
	store   *Store
	gateway Gateway
}

// NewService constructs a purchase Service.
func NewService(store *Store, gateway Gateway) *Service {
	return &Service{store: store, gateway: gateway}
}

// newOrderID generates a globally unique, gateway-facing order identifier.
func newOrderID(userID string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:4]
	return fmt.Sprintf("ORDER-%s-%d-%s", userID, time.Now().Unix(), suffix)
}

// CreatePurchase charges the gateway for the plan and inserts the pending
// transaction row. Unknown plans surface plan.ErrUnknownPlan; a gateway
// failure leaves no row behind and is safe to retry with a fresh order id.
func (s *Service) CreatePurchase(ctx context.Context, userID, planID string) (*Receipt, error) {
	p, errLookup := plan.Lookup(planID)
	if errLookup != nil {
		return nil, errLookup
	}

	orderID := newOrderID(userID)
	charge, errCharge := s.gateway.ChargeQRIS(ctx, orderID, userID, p)
	if errCharge != nil {
		return nil, errCharge
	}

	if _, errCreate := s.store.Create(ctx, userID, p.ID, p.Price, orderID, charge.QRURL); errCreate != nil {
		return nil, errCreate
	}
	log.Infof("payment: created order %s for user %s plan %s", orderID, userID, p.ID)

	expiry := time.Now().In(wib).Add(chargeExpiryMinutes * time.Minute)
	return &Receipt{
		OrderID:    orderID,
		PaymentURL: charge.QRURL,
		PlanName:   p.Name,
		Amount:     p.Price,
		Type:       "qris",
		ExpiryTime: expiry.Format("15:04") + " WIB",
	}, nil
}
