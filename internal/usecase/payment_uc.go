package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"telegram-club-subscription/internal/domain"
	"telegram-club-subscription/internal/domain/model"
	"telegram-club-subscription/internal/domain/ports/repository"
	"telegram-club-subscription/internal/infra/metrics"
	"telegram-club-subscription/internal/infra/payment/robokassa"
)

// Notification is one asynchronous ResultURL delivery from the gateway.
// Params carries every form field as received; only Shp_-prefixed keys
// participate in the signature.
type Notification struct {
	OutSum    string
	InvoiceID string
	Signature string
	Params    map[string]string
}

// Acknowledgment strings the gateway expects verbatim. Anything that does not
// start with "OK" is redelivered.
const (
	ackMissingParams   = "ERROR: Missing parameters"
	ackPaymentNotFound = "ERROR: Payment not found"
	ackBadSignature    = "ERROR: Invalid signature"
)

// Compile-time check
var _ PaymentUseCase = (*paymentUC)(nil)

type PaymentUseCase interface {
	// Initiate creates a pending payment and returns the signed gateway URL.
	Initiate(ctx context.Context, tgID int64, productID string) (payURL string, invoiceID string, err error)
	// HandleResult reconciles one gateway notification. The returned string is
	// the exact response body; the error is the classified failure for logging.
	HandleResult(ctx context.Context, n Notification) (string, error)
}

type paymentUC struct {
	payments repository.PaymentRepository
	products *model.ProductSet
	subUC    *SubscriptionUseCase
	baseURL  string
	testMode bool
	log      *zerolog.Logger
}

func NewPaymentUseCase(payments repository.PaymentRepository, products *model.ProductSet, subUC *SubscriptionUseCase, baseURL string, testMode bool, logger *zerolog.Logger) *paymentUC {
	ucLog := logger.With().Str("component", "PaymentUC").Logger()
	return &paymentUC{
		payments: payments,
		products: products,
		subUC:    subUC,
		baseURL:  baseURL,
		testMode: testMode,
		log:      &ucLog,
	}
}

func (u *paymentUC) Initiate(ctx context.Context, tgID int64, productID string) (string, string, error) {
	product, err := u.products.Get(productID)
	if err != nil {
		return "", "", err
	}

	now := time.Now()
	invoiceID := robokassa.NewInvoiceID(now)
	p := &model.Payment{
		ID:         uuid.NewString(),
		InvoiceID:  invoiceID,
		TelegramID: tgID,
		ProductID:  product.ID,
		AmountRUB:  product.PriceRUB,
		Status:     model.PaymentStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := u.payments.Save(ctx, p); err != nil {
		return "", "", fmt.Errorf("initiate payment: %w", err)
	}
	metrics.IncPayment("initiated")

	payURL := robokassa.PaymentURL(u.baseURL, product.Merchant, product.PriceRUB, product.Description, invoiceID, tgID, u.testMode)
	return payURL, invoiceID, nil
}

// HandleResult drives the reconciliation state machine exactly once per
// successful payment:
//
//  1. missing fields are rejected before anything is looked up;
//  2. the payment is looked up before the signature is checked, so unknown
//     invoices give no signature-failure signal;
//  3. the signature is verified with the password of the payment's own
//     product over the received Shp_ parameter set;
//  4. the pending->success flip is a conditional update: only its winner runs
//     the grant, every other delivery gets the same acknowledgment back;
//  5. a grant failure after the flip is logged but neither rolls the status
//     back nor withholds the acknowledgment.
func (u *paymentUC) HandleResult(ctx context.Context, n Notification) (string, error) {
	if n.OutSum == "" || n.InvoiceID == "" || n.Signature == "" {
		metrics.IncWebhookResult("missing_params")
		return ackMissingParams, domain.ErrInvalidArgument
	}

	p, err := u.payments.FindByInvoiceID(ctx, n.InvoiceID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			metrics.IncWebhookResult("not_found")
			return ackPaymentNotFound, domain.ErrNotFound
		}
		return ackPaymentNotFound, fmt.Errorf("lookup payment %s: %w", n.InvoiceID, err)
	}

	product, err := u.products.Get(p.ProductID)
	if err != nil {
		return ackPaymentNotFound, fmt.Errorf("payment %s: %w", n.InvoiceID, err)
	}

	shp := robokassa.ExtractShp(n.Params)
	if !robokassa.VerifySignature(n.OutSum, n.InvoiceID, n.Signature, product.Merchant.Password2, shp) {
		metrics.IncWebhookResult("bad_signature")
		return ackBadSignature, domain.ErrInvalidSignature
	}

	ack := "OK" + n.InvoiceID

	changed, err := u.payments.MarkSucceeded(ctx, n.InvoiceID)
	if err != nil {
		return ackPaymentNotFound, fmt.Errorf("mark succeeded %s: %w", n.InvoiceID, err)
	}
	if !changed {
		// Duplicate delivery: the grant already ran (or is running); ack again
		// with no side effects.
		metrics.IncWebhookResult("duplicate")
		return ack, nil
	}

	metrics.IncWebhookResult("ok")
	metrics.IncPayment("succeeded")
	metrics.AddPaymentRevenue(p.ProductID, p.AmountRUB)

	if _, err := u.subUC.GrantPaid(ctx, p.TelegramID, p.ProductID); err != nil {
		// Status is already committed; this gap is resolved by administrative
		// replay, never by re-running the grant automatically.
		u.log.Error().Err(err).Str("invoice_id", n.InvoiceID).Int64("tg_id", p.TelegramID).Msg("grant after payment failed")
	}
	return ack, nil
}
