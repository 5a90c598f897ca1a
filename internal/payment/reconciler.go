package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/abdulaziz27/analisisaham-ai/internal/models"
	"github.com/abdulaziz27/analisisaham-ai/internal/plan"
	"github.com/abdulaziz27/analisisaham-ai/internal/quota"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// notifyTimeout bounds each outbound notification call. The ledger mutation is
// already committed when notification starts, so a slow or failing dispatch
// must never hold the webhook response hostage.
const notifyTimeout = 5 * time.Second

// Notifier delivers best-effort payment outcome messages to users.
type Notifier interface {
	PaymentSuccess(ctx context.Context, userID, planName string, added, newBalance int) error
	PaymentFailed(ctx context.Context, userID, planName, gatewayStatus string) error
}

// Result is the acknowledgement body returned to the gateway.
type Result struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Acknowledgement statuses.
const (
	ResultOK       = "ok"
	ResultNotFound = "not_found"
	ResultError    = "error"
)

// webhookPayload is the subset of the gateway confirmation we act on.
type webhookPayload struct {
	OrderID           string `json:"order_id"`
	TransactionStatus string `json:"transaction_status"`
	FraudStatus       string `json:"fraud_status"`
}

// MapStatus translates a gateway (transaction status, fraud flag) pair into an
// internal transaction status. Unrecognized statuses fall back to pending.
func MapStatus(transactionStatus, fraudStatus string) string {
	switch transactionStatus {
	case "capture":
		if fraudStatus == "challenge" {
			return models.StatusChallenge
		}
		return models.StatusSuccess
	case "settlement":
		return models.StatusSuccess
	case "cancel", "deny", "expire":
		return models.StatusFailed
	case "pending":
		return models.StatusPending
	default:
		return models.StatusPending
	}
}

// Reconciler maps gateway confirmations onto the transaction store and the
// quota ledger. It is the only component touching both.
type Reconciler struct {
	db       *gorm.DB
	ledger   *quota.Ledger
	notifier Notifier
}

// NewReconciler constructs a Reconciler.
func NewReconciler(db *gorm.DB, ledger *quota.Ledger, notifier Notifier) *Reconciler {
	return &Reconciler{db: db, ledger: ledger, notifier: notifier}
}

// Process applies one inbound confirmation payload. The status transition and
// the quota credit commit in a single database transaction; notifications are
// dispatched afterwards, outside any lock, and their failures are swallowed.
// A storage failure is returned to the caller, which decides how to
// acknowledge it.
func (r *Reconciler) Process(ctx context.Context, rawPayload []byte) (Result, error) {
	var payload webhookPayload
	if errUnmarshal := json.Unmarshal(rawPayload, &payload); errUnmarshal != nil {
		return Result{Status: ResultError, Message: "invalid payload"}, nil
	}
	if payload.OrderID == "" {
		return Result{Status: ResultError, Message: "missing order_id"}, nil
	}

	target := MapStatus(payload.TransactionStatus, payload.FraudStatus)
	log.Infof("payment: processing notification for order %s: %s", payload.OrderID, payload.TransactionStatus)

	var result Result
	var record *models.PaymentTransaction
	var applied bool
	var newBalance int
	var purchased plan.Plan

	errTx := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var errGet error
		record, errGet = getByOrderID(ctx, tx, payload.OrderID)
		if errGet != nil {
			if errors.Is(errGet, gorm.ErrRecordNotFound) {
				log.Warnf("payment: transaction %s not found", payload.OrderID)
				result = Result{Status: ResultNotFound}
				return nil
			}
			return errGet
		}

		var errApply error
		applied, record, errApply = applyStatusTx(ctx, tx, payload.OrderID, target, rawPayload)
		if errApply != nil {
			return errApply
		}
		if !applied {
			log.Infof("payment: transaction %s already terminal, ignoring", payload.OrderID)
			result = Result{Status: ResultOK, Message: "Already processed"}
			return nil
		}

		if target == models.StatusSuccess {
			var errPlan error
			purchased, errPlan = plan.Lookup(record.PlanID)
			if errPlan != nil {
				return fmt.Errorf("payment: order %s references plan %s: %w", record.OrderID, record.PlanID, errPlan)
			}

			log.Infof("payment: adding %d quota to user %s", purchased.QuotaGranted, record.UserID)
			var errCredit error
			newBalance, errCredit = r.ledger.CreditTx(ctx, tx, record.UserID, purchased.QuotaGranted)
			if errCredit != nil {
				return errCredit
			}
		}

		result = Result{Status: ResultOK}
		return nil
	})
	if errTx != nil {
		return Result{}, errTx
	}

	if applied {
		r.dispatch(target, record, payload.TransactionStatus, purchased, newBalance)
	}
	return result, nil
}

// dispatch sends the outcome notification for an applied transition. Failures
// are logged and swallowed; the committed mutation is never rolled back or
// retried on their account.
func (r *Reconciler) dispatch(target string, record *models.PaymentTransaction, gatewayStatus string, purchased plan.Plan, newBalance int) {
	if r.notifier == nil || record == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()

	switch target {
	case models.StatusSuccess:
		if errNotify := r.notifier.PaymentSuccess(ctx, record.UserID, purchased.Name, purchased.QuotaGranted, newBalance); errNotify != nil {
			log.WithError(errNotify).Warnf("payment: success notification for order %s failed", record.OrderID)
		}
	case models.StatusFailed:
		planName := record.PlanID
		if p, errPlan := plan.Lookup(record.PlanID); errPlan == nil {
			planName = p.Name
		}
		if errNotify := r.notifier.PaymentFailed(ctx, record.UserID, planName, gatewayStatus); errNotify != nil {
			log.WithError(errNotify).Warnf("payment: failure notification for order %s failed", record.OrderID)
		}
	}
}
