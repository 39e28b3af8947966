package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/digkill/writory/internal/apperr"
	"github.com/digkill/writory/internal/gateway"
	"github.com/digkill/writory/internal/models"
	"github.com/digkill/writory/internal/repository"
	"github.com/digkill/writory/internal/storage"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeUsage struct {
	used map[string]bool
}

func (f *fakeUsage) Used(_ context.Context, key string) (bool, error) {
	return f.used[key], nil
}

type fakeCoupons struct {
	byCode    map[string]*models.Coupon
	redeemed  map[string]bool
	created   []*models.Coupon
	createErr error
}

func newFakeCoupons(coupons ...*models.Coupon) *fakeCoupons {
	f := &fakeCoupons{byCode: map[string]*models.Coupon{}, redeemed: map[string]bool{}}
	for _, c := range coupons {
		f.byCode[c.Code] = c
	}
	return f
}

func (f *fakeCoupons) GetByCode(_ context.Context, code string) (*models.Coupon, error) {
	return f.byCode[strings.ToUpper(strings.TrimSpace(code))], nil
}

func (f *fakeCoupons) GetByID(_ context.Context, id int64) (*models.Coupon, error) {
	for _, c := range f.byCode {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, nil
}

func (f *fakeCoupons) HasUserRedeemed(_ context.Context, couponID int64, uid string) (bool, error) {
	for _, c := range f.byCode {
		if c.ID == couponID {
			return f.redeemed[c.Code+"/"+uid], nil
		}
	}
	return false, nil
}

func (f *fakeCoupons) List(context.Context) ([]models.Coupon, error) {
	var out []models.Coupon
	for _, c := range f.byCode {
		out = append(out, *c)
	}
	return out, nil
}

func (f *fakeCoupons) Create(_ context.Context, c *models.Coupon) (*models.Coupon, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	c.ID = int64(len(f.byCode) + 1)
	f.byCode[c.Code] = c
	f.created = append(f.created, c)
	return c, nil
}

func (f *fakeCoupons) Update(_ context.Context, c *models.Coupon) (*models.Coupon, error) {
	f.byCode[c.Code] = c
	return c, nil
}

func (f *fakeCoupons) Delete(_ context.Context, id int64) error {
	for code, c := range f.byCode {
		if c.ID == id {
			delete(f.byCode, code)
		}
	}
	return nil
}

type fakeFiles struct {
	folders   []string
	uploads   []storage.File
	deleted   []string
	uploadErr error
	failAfter int
}

func (f *fakeFiles) Validate(storage.Kind, string, int64) error { return nil }

func (f *fakeFiles) EnsureFolder(_ context.Context, name string) error {
	f.folders = append(f.folders, name)
	return nil
}

func (f *fakeFiles) Upload(_ context.Context, file storage.File) (string, error) {
	if f.uploadErr != nil && len(f.uploads) >= f.failAfter {
		return "", f.uploadErr
	}
	f.uploads = append(f.uploads, file)
	return "https://cdn.example.com/" + file.Folder + "/" + file.Group + "/" + file.Filename, nil
}

func (f *fakeFiles) Delete(_ context.Context, url string) error {
	f.deleted = append(f.deleted, url)
	return nil
}

type fakeSubmissions struct {
	groups []repository.SubmissionGroup
	err    error
	list   []models.Submission
	filter repository.SubmissionFilter
}

func (f *fakeSubmissions) CreateGroup(_ context.Context, g repository.SubmissionGroup) ([]int64, int64, error) {
	if f.err != nil {
		return nil, 0, f.err
	}
	f.groups = append(f.groups, g)
	ids := make([]int64, len(g.Submissions))
	for i := range ids {
		ids[i] = int64(100 + i)
	}
	return ids, 7, nil
}

func (f *fakeSubmissions) List(_ context.Context, filter repository.SubmissionFilter) ([]models.Submission, error) {
	f.filter = filter
	return f.list, nil
}

type fakeQueue struct {
	pushed []int64
	err    error
}

func (f *fakeQueue) Push(_ context.Context, id int64) error {
	if f.err != nil {
		return f.err
	}
	f.pushed = append(f.pushed, id)
	return nil
}

type fakeNotifier struct {
	submissions [][]*models.Submission
	contacts    []*models.ContactMessage
}

func (f *fakeNotifier) NewSubmission(subs []*models.Submission) {
	f.submissions = append(f.submissions, subs)
}

func (f *fakeNotifier) ContactMessage(msg *models.ContactMessage) {
	f.contacts = append(f.contacts, msg)
}

type fakeCard struct {
	intents    map[string]*gateway.CardIntent
	sessions   map[string]*gateway.CheckoutSession
	lastAmount int64
}

func (f *fakeCard) Currency() string { return "inr" }

func (f *fakeCard) CreateIntent(_ context.Context, amount int64, _ string, _ map[string]string) (*gateway.CardIntent, error) {
	f.lastAmount = amount
	return &gateway.CardIntent{ID: "pi_new", ClientSecret: "pi_new_secret", Amount: amount}, nil
}

func (f *fakeCard) GetIntent(_ context.Context, id string) (*gateway.CardIntent, error) {
	if pi, ok := f.intents[id]; ok {
		return pi, nil
	}
	return nil, errors.New("no such payment_intent")
}

func (f *fakeCard) CreateCheckout(_ context.Context, amount int64, _, _ string, _ map[string]string) (*gateway.CheckoutSession, error) {
	f.lastAmount = amount
	return &gateway.CheckoutSession{ID: "cs_new", URL: "https://checkout.stripe.com/cs_new"}, nil
}

func (f *fakeCard) GetCheckout(_ context.Context, id string) (*gateway.CheckoutSession, error) {
	if s, ok := f.sessions[id]; ok {
		return s, nil
	}
	return nil, errors.New("no such checkout session")
}

type fakePayPal struct {
	orders     map[string]*gateway.PayPalOrder
	createdUSD string
}

func (f *fakePayPal) CreateOrder(_ context.Context, usd, _, _ string) (*gateway.PayPalOrder, error) {
	f.createdUSD = usd
	return &gateway.PayPalOrder{ID: "ORDER-1", Status: "CREATED", ApprovalURL: "https://paypal.example/approve"}, nil
}

func (f *fakePayPal) CaptureOrder(_ context.Context, id string) (*gateway.PayPalOrder, error) {
	if o, ok := f.orders[id]; ok {
		return o, nil
	}
	return nil, &gateway.PayPalError{StatusCode: 404, Name: "RESOURCE_NOT_FOUND"}
}

type fakePayments struct {
	used map[string]bool
}

func (f *fakePayments) FindByReference(_ context.Context, provider models.PaymentMethod, ref string) (*models.Payment, error) {
	if f.used[string(provider)+"/"+ref] {
		return &models.Payment{Provider: provider, Reference: ref}, nil
	}
	return nil, nil
}

type fakeEvaluations struct {
	byID      map[int64]*models.Submission
	applied   map[int64]repository.Evaluation
	list      []models.Submission
	updateErr map[int64]error
}

func newFakeEvaluations(subs ...*models.Submission) *fakeEvaluations {
	f := &fakeEvaluations{byID: map[int64]*models.Submission{}, applied: map[int64]repository.Evaluation{}}
	for _, s := range subs {
		f.byID[s.ID] = s
	}
	return f
}

func (f *fakeEvaluations) GetByID(_ context.Context, id int64) (*models.Submission, error) {
	return f.byID[id], nil
}

func (f *fakeEvaluations) FindByEmailTitle(_ context.Context, email, title string) (*models.Submission, error) {
	var found *models.Submission
	for _, s := range f.byID {
		if strings.EqualFold(strings.TrimSpace(s.Email), strings.TrimSpace(email)) &&
			strings.EqualFold(strings.TrimSpace(s.PoemTitle), strings.TrimSpace(title)) {
			if found == nil || s.ID > found.ID {
				found = s
			}
		}
	}
	return found, nil
}

func (f *fakeEvaluations) UpdateEvaluation(_ context.Context, id int64, e repository.Evaluation) error {
	if err := f.updateErr[id]; err != nil {
		return err
	}
	f.applied[id] = e
	return nil
}

func (f *fakeEvaluations) List(context.Context, repository.SubmissionFilter) ([]models.Submission, error) {
	return f.list, nil
}

func (f *fakeEvaluations) UpdateWinner(_ context.Context, id int64, isWinner bool, position *int, category string) error {
	s, ok := f.byID[id]
	if !ok {
		return apperr.ErrNotFound
	}
	s.IsWinner, s.WinnerPosition, s.WinnerCategory = isWinner, position, category
	return nil
}
