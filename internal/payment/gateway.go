package payment

import (
	"context"
	"fmt"

	"github.com/abdulaziz27/analisisaham-ai/internal/plan"
	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/coreapi"
)

// chargeExpiryMinutes is the QRIS validity window requested from the gateway.
const chargeExpiryMinutes = 15

// Charge is the gateway's answer to a QRIS charge request.
type Charge struct {
	OrderID string // Echoed order identifier.
	QRURL   string // QR code image locator, when provided.
}

// Gateway creates charges at the external payment provider.
type Gateway interface {
	ChargeQRIS(ctx context.Context, orderID, userID string, p plan.Plan) (*Charge, error)
}

// MidtransGateway drives the Midtrans Core API.
type MidtransGateway struct {
	client coreapi.Client
}

// NewMidtransGateway constructs a MidtransGateway for the given credentials.
func NewMidtransGateway(serverKey string, production bool) *MidtransGateway {
	env := midtrans.Sandbox
	if production {
		env = midtrans.Production
	}
	g := &MidtransGateway{}
	g.client.New(serverKey, env)
	return g
}

// ChargeQRIS creates a QRIS charge with a bounded expiry window.
func (g *MidtransGateway) ChargeQRIS(_ context.Context, orderID, userID string, p plan.Plan) (*Charge, error) {
	req := &coreapi.ChargeReq{
		PaymentType: coreapi.PaymentTypeQris,
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  orderID,
			GrossAmt: p.Price,
		},
		Items: &[]midtrans.ItemDetails{{
			ID:    p.ID,
			Price: p.Price,
			Qty:   1,
			Name:  p.Name,
		}},
		CustomerDetails: &midtrans.CustomerDetails{
			FName: userID,
		},
		CustomExpiry: &coreapi.CustomExpiry{
			ExpiryDuration: chargeExpiryMinutes,
			Unit:           "minute",
		},
		Qris: &coreapi.QrisDetails{Acquirer: "gopay"},
	}

	resp, errCharge := g.client.ChargeTransaction(req)
	if errCharge != nil {
		return nil, fmt.Errorf("payment: midtrans charge for order %s: %w", orderID, errCharge)
	}

	charge := &Charge{OrderID: orderID}
	for _, action := range resp.Actions {
		if action.Name == "generate-qr-code" {
			charge.QRURL = action.URL
			break
		}
	}
	return charge, nil
}
