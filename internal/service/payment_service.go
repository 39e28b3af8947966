package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/digkill/writory/internal/apperr"
	"github.com/digkill/writory/internal/gateway"
	"github.com/digkill/writory/internal/models"
)

type CardGateway interface {
	Currency() string
	CreateIntent(ctx context.Context, amount int64, email string, metadata map[string]string) (*gateway.CardIntent, error)
	GetIntent(ctx context.Context, id string) (*gateway.CardIntent, error)
	CreateCheckout(ctx context.Context, amount int64, email, description string, metadata map[string]string) (*gateway.CheckoutSession, error)
	GetCheckout(ctx context.Context, id string) (*gateway.CheckoutSession, error)
}

type PayPalGateway interface {
	CreateOrder(ctx context.Context, usdAmount, description, referenceID string) (*gateway.PayPalOrder, error)
	CaptureOrder(ctx context.Context, orderID string) (*gateway.PayPalOrder, error)
}

type paymentLookup interface {
	FindByReference(ctx context.Context, provider models.PaymentMethod, reference string) (*models.Payment, error)
}

// usdBuckets is the fixed INR to USD table PayPal orders are priced from.
var usdBuckets = map[models.Tier]struct {
	inr   int
	cents int
}{
	models.TierSingle: {inr: 50, cents: 60},
	models.TierDouble: {inr: 90, cents: 110},
	models.TierBulk:   {inr: 230, cents: 280},
}

// USDAmount converts a rupee amount with the tier's bucket rate, rounding to the
// nearest cent with a one cent floor.
func USDAmount(tier models.Tier, inr int) (string, error) {
	bucket, ok := usdBuckets[tier]
	if !ok {
		return "", fmt.Errorf("tier %q cannot be paid with paypal: %w", tier, apperr.ErrValidation)
	}
	if inr <= 0 {
		return "", fmt.Errorf("amount must be positive: %w", apperr.ErrValidation)
	}
	cents := (inr*bucket.cents*2 + bucket.inr) / (bucket.inr * 2)
	if cents < 1 {
		cents = 1
	}
	return fmt.Sprintf("%d.%02d", cents/100, cents%100), nil
}

type PaymentService struct {
	card     CardGateway
	paypal   PayPalGateway
	payments paymentLookup
	now      func() time.Time
}

// NewPaymentService accepts nil gateways; the matching flows then report ErrUnavailable.
func NewPaymentService(card CardGateway, paypal PayPalGateway, payments paymentLookup) *PaymentService {
	return &PaymentService{card: card, paypal: paypal, payments: payments, now: time.Now}
}

type PaymentRequest struct {
	Tier   models.Tier `json:"tier"`
	Amount int         `json:"amount"`
	Email  string      `json:"email"`
}

type CheckoutVerification struct {
	Verified        bool   `json:"verified"`
	PaymentIntentID string `json:"paymentIntentId"`
	Amount          int    `json:"amount"`
	Status          string `json:"status"`
}

type PayPalOrderResult struct {
	OrderID     string `json:"orderId"`
	ApprovalURL string `json:"approvalUrl"`
	USDAmount   string `json:"usdAmount"`
}

type PayPalVerification struct {
	Verified bool   `json:"verified"`
	OrderID  string `json:"orderId"`
	Status   string `json:"status"`
	Amount   string `json:"amount"`
}

// VerifiedPayment is what gets recorded in the payments table.
type VerifiedPayment struct {
	Method    models.PaymentMethod
	Reference string
	Status    string
	Currency  string
	Raw       string
}

func (r PaymentRequest) validate() (TierInfo, error) {
	info, err := ResolveTier(string(r.Tier))
	if err != nil {
		return TierInfo{}, err
	}
	if info.Price == 0 {
		return TierInfo{}, fmt.Errorf("free tier needs no payment: %w", apperr.ErrValidation)
	}
	if r.Amount <= 0 || r.Amount > info.Price {
		return TierInfo{}, fmt.Errorf("amount %d is outside the %s tier price: %w", r.Amount, info.Tier, apperr.ErrValidation)
	}
	return info, nil
}

func (s *PaymentService) CreateCardIntent(ctx context.Context, req PaymentRequest) (*gateway.CardIntent, error) {
	if s.card == nil {
		return nil, fmt.Errorf("card payments disabled: %w", apperr.ErrUnavailable)
	}
	info, err := req.validate()
	if err != nil {
		return nil, err
	}
	return s.card.CreateIntent(ctx, int64(req.Amount)*100, req.Email, map[string]string{
		"tier":       string(info.Tier),
		"poem_count": fmt.Sprint(info.PoemCount),
	})
}

func (s *PaymentService) CreateCheckout(ctx context.Context, req PaymentRequest) (*gateway.CheckoutSession, error) {
	if s.card == nil {
		return nil, fmt.Errorf("card payments disabled: %w", apperr.ErrUnavailable)
	}
	info, err := req.validate()
	if err != nil {
		return nil, err
	}
	desc := fmt.Sprintf("Writory %s entry (%d poem(s))", info.Tier, info.PoemCount)
	return s.card.CreateCheckout(ctx, int64(req.Amount)*100, req.Email, desc, map[string]string{"tier": string(info.Tier)})
}

func (s *PaymentService) VerifyCheckout(ctx context.Context, sessionID string) (CheckoutVerification, error) {
	if s.card == nil {
		return CheckoutVerification{}, fmt.Errorf("card payments disabled: %w", apperr.ErrUnavailable)
	}
	if strings.TrimSpace(sessionID) == "" {
		return CheckoutVerification{}, fmt.Errorf("session id is required: %w", apperr.ErrValidation)
	}
	sess, err := s.card.GetCheckout(ctx, sessionID)
	if err != nil {
		return CheckoutVerification{}, fmt.Errorf("%v: %w", err, apperr.ErrPaymentRequired)
	}
	return CheckoutVerification{
		Verified:        sess.PaymentStatus == gateway.CheckoutPaid,
		PaymentIntentID: sess.PaymentIntentID,
		Amount:          int(sess.AmountTotal / 100),
		Status:          sess.PaymentStatus,
	}, nil
}

func (s *PaymentService) CreatePayPalOrder(ctx context.Context, req PaymentRequest) (PayPalOrderResult, error) {
	if s.paypal == nil {
		return PayPalOrderResult{}, fmt.Errorf("paypal payments disabled: %w", apperr.ErrUnavailable)
	}
	info, err := req.validate()
	if err != nil {
		return PayPalOrderResult{}, err
	}
	usd, err := USDAmount(info.Tier, req.Amount)
	if err != nil {
		return PayPalOrderResult{}, err
	}
	desc := fmt.Sprintf("Writory %s entry (%d poem(s))", info.Tier, info.PoemCount)
	order, err := s.paypal.CreateOrder(ctx, usd, desc, string(info.Tier)+"-"+uuid.NewString())
	if err != nil {
		return PayPalOrderResult{}, fmt.Errorf("create paypal order: %w", err)
	}
	return PayPalOrderResult{OrderID: order.ID, ApprovalURL: order.ApprovalURL, USDAmount: usd}, nil
}

// VerifyPayPal captures the order. Capturing an already captured order is safe.
func (s *PaymentService) VerifyPayPal(ctx context.Context, orderID string) (PayPalVerification, error) {
	if s.paypal == nil {
		return PayPalVerification{}, fmt.Errorf("paypal payments disabled: %w", apperr.ErrUnavailable)
	}
	if strings.TrimSpace(orderID) == "" {
		return PayPalVerification{}, fmt.Errorf("order id is required: %w", apperr.ErrValidation)
	}
	order, err := s.paypal.CaptureOrder(ctx, orderID)
	if err != nil {
		return PayPalVerification{}, fmt.Errorf("%v: %w", err, apperr.ErrPaymentRequired)
	}
	return PayPalVerification{
		Verified: order.Status == "COMPLETED",
		OrderID:  order.ID,
		Status:   order.Status,
		Amount:   order.Amount,
	}, nil
}

// Verify confirms that reference pays amount rupees for tier through method.
// A zero amount short-circuits to a synthetic free reference. QR and manual
// references are recorded as attested by the submitter.
func (s *PaymentService) Verify(ctx context.Context, method models.PaymentMethod, reference string, tier models.Tier, amount int) (VerifiedPayment, error) {
	if amount == 0 {
		return VerifiedPayment{Method: models.PaymentFree, Reference: "free_" + uuid.NewString(), Status: "free", Currency: "inr"}, nil
	}
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return VerifiedPayment{}, fmt.Errorf("payment reference is required: %w", apperr.ErrPaymentRequired)
	}

	var (
		out VerifiedPayment
		err error
	)
	switch method {
	case models.PaymentStripe:
		out, err = s.verifyIntent(ctx, reference, amount)
	case models.PaymentStripeCheckout:
		out, err = s.verifyCheckoutSession(ctx, reference, amount)
	case models.PaymentPayPal:
		out, err = s.verifyPayPalOrder(ctx, reference, tier, amount)
	case models.PaymentQR, models.PaymentManual:
		out, err = attested(method, reference)
	default:
		return VerifiedPayment{}, fmt.Errorf("payment method %q unsupported: %w", method, apperr.ErrValidation)
	}
	if err != nil {
		return VerifiedPayment{}, err
	}

	if out.Method != models.PaymentManual && s.payments != nil {
		existing, err := s.payments.FindByReference(ctx, out.Method, out.Reference)
		if err != nil {
			return VerifiedPayment{}, fmt.Errorf("lookup payment reference: %w", err)
		}
		if existing != nil {
			return VerifiedPayment{}, fmt.Errorf("payment %s was already used for another submission: %w", out.Reference, apperr.ErrConflict)
		}
	}
	return out, nil
}

func (s *PaymentService) verifyIntent(ctx context.Context, id string, amount int) (VerifiedPayment, error) {
	if s.card == nil {
		return VerifiedPayment{}, fmt.Errorf("card payments disabled: %w", apperr.ErrUnavailable)
	}
	pi, err := s.card.GetIntent(ctx, id)
	if err != nil {
		return VerifiedPayment{}, fmt.Errorf("%v: %w", err, apperr.ErrPaymentRequired)
	}
	if pi.Status != gateway.IntentSucceeded {
		return VerifiedPayment{}, fmt.Errorf("payment status is %s: %w", pi.Status, apperr.ErrPaymentRequired)
	}
	if pi.Amount != int64(amount)*100 {
		return VerifiedPayment{}, fmt.Errorf("paid %d does not match expected %d: %w", pi.Amount/100, amount, apperr.ErrPaymentRequired)
	}
	return VerifiedPayment{Method: models.PaymentStripe, Reference: pi.ID, Status: pi.Status, Currency: pi.Currency}, nil
}

func (s *PaymentService) verifyCheckoutSession(ctx context.Context, id string, amount int) (VerifiedPayment, error) {
	if s.card == nil {
		return VerifiedPayment{}, fmt.Errorf("card payments disabled: %w", apperr.ErrUnavailable)
	}
	sess, err := s.card.GetCheckout(ctx, id)
	if err != nil {
		return VerifiedPayment{}, fmt.Errorf("%v: %w", err, apperr.ErrPaymentRequired)
	}
	if sess.PaymentStatus != gateway.CheckoutPaid {
		return VerifiedPayment{}, fmt.Errorf("checkout status is %s: %w", sess.PaymentStatus, apperr.ErrPaymentRequired)
	}
	if sess.AmountTotal != int64(amount)*100 {
		return VerifiedPayment{}, fmt.Errorf("paid %d does not match expected %d: %w", sess.AmountTotal/100, amount, apperr.ErrPaymentRequired)
	}
	return VerifiedPayment{Method: models.PaymentStripeCheckout, Reference: sess.ID, Status: sess.PaymentStatus, Currency: s.card.Currency()}, nil
}

func (s *PaymentService) verifyPayPalOrder(ctx context.Context, orderID string, tier models.Tier, amount int) (VerifiedPayment, error) {
	if s.paypal == nil {
		return VerifiedPayment{}, fmt.Errorf("paypal payments disabled: %w", apperr.ErrUnavailable)
	}
	want, err := USDAmount(tier, amount)
	if err != nil {
		return VerifiedPayment{}, err
	}
	order, err := s.paypal.CaptureOrder(ctx, orderID)
	if err != nil {
		return VerifiedPayment{}, fmt.Errorf("%v: %w", err, apperr.ErrPaymentRequired)
	}
	if order.Status != "COMPLETED" {
		return VerifiedPayment{}, fmt.Errorf("paypal order status is %s: %w", order.Status, apperr.ErrPaymentRequired)
	}
	if order.Amount != want {
		return VerifiedPayment{}, fmt.Errorf("paypal captured %s USD, expected %s: %w", order.Amount, want, apperr.ErrPaymentRequired)
	}
	return VerifiedPayment{Method: models.PaymentPayPal, Reference: order.ID, Status: order.Status, Currency: "usd", Raw: string(order.Raw)}, nil
}

// attested accepts the submitter's word. There is no provider to ask.
func attested(method models.PaymentMethod, reference string) (VerifiedPayment, error) {
	switch {
	case reference == ManualReference:
		return VerifiedPayment{Method: models.PaymentManual, Reference: reference, Status: "unverified", Currency: "inr"}, nil
	case strings.HasPrefix(reference, "qr_"):
		return VerifiedPayment{Method: models.PaymentQR, Reference: reference, Status: "unverified", Currency: "inr"}, nil
	}
	return VerifiedPayment{}, fmt.Errorf("%s reference %q is malformed: %w", method, reference, apperr.ErrPaymentRequired)
}

// ManualReference marks an entry whose payment an operator confirms by hand.
const ManualReference = "manual_payment"

// QRReference is the synthetic id handed to the client when it shows the QR code.
func QRReference(at time.Time) string {
	return fmt.Sprintf("qr_%d", at.UnixMilli())
}
