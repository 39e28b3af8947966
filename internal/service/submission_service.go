package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/digkill/writory/internal/apperr"
	"github.com/digkill/writory/internal/models"
	"github.com/digkill/writory/internal/outbox"
	"github.com/digkill/writory/internal/repository"
	"github.com/digkill/writory/internal/storage"
)

type fileStore interface {
	Validate(kind storage.Kind, filename string, size int64) error
	EnsureFolder(ctx context.Context, name string) error
	Upload(ctx context.Context, f storage.File) (string, error)
	Delete(ctx context.Context, publicURL string) error
}

type submissionStore interface {
	CreateGroup(ctx context.Context, group repository.SubmissionGroup) ([]int64, int64, error)
	List(ctx context.Context, filter repository.SubmissionFilter) ([]models.Submission, error)
}

type outboxQueue interface {
	Push(ctx context.Context, id int64) error
}

type submissionNotifier interface {
	NewSubmission(subs []*models.Submission)
}

type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// PoemEntry carries either a file to upload or the URL of a file uploaded earlier.
type PoemEntry struct {
	Title   string
	File    *Upload
	FileURL string
}

type SubmitInput struct {
	UserUID          string
	Name             string
	Email            string
	Phone            string
	Age              int
	Tier             models.Tier
	Poems            []PoemEntry
	Photo            *Upload
	PhotoURL         string
	CouponCode       string
	PaymentMethod    models.PaymentMethod
	PaymentReference string
	TermsAccepted    bool
}

type SubmitResult struct {
	SubmissionUUID string               `json:"submissionUuid"`
	SubmissionIDs  []int64              `json:"submissionIds"`
	Price          int                  `json:"price"`
	DiscountAmount int                  `json:"discountAmount"`
	PaymentID      string               `json:"paymentId"`
	PaymentMethod  models.PaymentMethod `json:"paymentMethod"`
}

type Folders struct {
	Poems  string
	Photos string
}

type SubmissionService struct {
	tiers    *TierService
	coupons  *CouponService
	payments *PaymentService
	files    fileStore
	store    submissionStore
	queue    outboxQueue
	notifier submissionNotifier
	folders  Folders
	log      *slog.Logger
}

func NewSubmissionService(tiers *TierService, coupons *CouponService, payments *PaymentService, files fileStore, store submissionStore, queue outboxQueue, notifier submissionNotifier, folders Folders, log *slog.Logger) *SubmissionService {
	return &SubmissionService{
		tiers:    tiers,
		coupons:  coupons,
		payments: payments,
		files:    files,
		store:    store,
		queue:    queue,
		notifier: notifier,
		folders:  folders,
		log:      log,
	}
}

// Submit runs the entry pipeline: validate, price, verify payment, upload, record.
// Rows, payment, coupon redemption, free-tier marker and sheet mirror entry are
// committed together; uploaded objects are removed again if anything after the
// uploads fails.
func (s *SubmissionService) Submit(ctx context.Context, in SubmitInput) (*SubmitResult, error) {
	tier, err := s.validate(&in)
	if err != nil {
		return nil, err
	}

	var freeKey string
	if tier.Tier == models.TierFree {
		status, err := s.tiers.CheckFreeTier(ctx, in.UserUID)
		if err != nil {
			return nil, err
		}
		if !status.Allowed {
			return nil, fmt.Errorf("free tier already used this month: %w", apperr.ErrConflict)
		}
		freeKey = status.UsageKey
	}

	price := tier.Price
	discount := 0
	var coupon *models.Coupon
	if code := strings.TrimSpace(in.CouponCode); code != "" && tier.Price > 0 {
		res, err := s.coupons.Validate(ctx, CouponCheck{Code: code, Tier: tier.Tier, Amount: tier.Price, UserUID: in.UserUID})
		if err != nil {
			return nil, err
		}
		if !res.Valid {
			return nil, fmt.Errorf("%s: %w", res.Error, apperr.ErrValidation)
		}
		discount, price, coupon = res.DiscountAmount, res.FinalAmount, res.Coupon
	}

	if strings.TrimSpace(in.PaymentReference) == "" {
		switch in.PaymentMethod {
		case models.PaymentQR:
			in.PaymentReference = QRReference(time.Now())
		case models.PaymentManual:
			in.PaymentReference = ManualReference
		}
	}
	paid, err := s.payments.Verify(ctx, in.PaymentMethod, in.PaymentReference, tier.Tier, price)
	if err != nil {
		return nil, err
	}

	groupID := uuid.NewString()
	uploaded, poemURLs, photoURL, err := s.upload(ctx, in, groupID)
	if err != nil {
		s.cleanup(uploaded)
		return nil, err
	}

	now := time.Now()
	month := s.tiers.ContestMonth(now)
	subs := make([]*models.Submission, 0, len(in.Poems))
	for i, p := range in.Poems {
		sub := &models.Submission{
			SubmissionUUID: groupID,
			UserUID:        in.UserUID,
			Name:           in.Name,
			Email:          in.Email,
			Phone:          in.Phone,
			Age:            in.Age,
			PoemTitle:      strings.TrimSpace(p.Title),
			PoemIndex:      i + 1,
			TotalPoems:     len(in.Poems),
			Tier:           tier.Tier,
			Price:          price,
			DiscountAmount: discount,
			PaymentID:      paid.Reference,
			PaymentMethod:  paid.Method,
			PoemFileURL:    poemURLs[i],
			PhotoURL:       photoURL,
			ContestMonth:   month,
			Status:         models.SubmissionStatusPending,
			CreatedAt:      now,
		}
		if coupon != nil {
			sub.CouponCode = coupon.Code
		}
		subs = append(subs, sub)
	}

	rows, err := json.Marshal(outbox.BuildRows(subs, s.tiers.Location()))
	if err != nil {
		s.cleanup(uploaded)
		return nil, fmt.Errorf("encode sheet rows: %w", err)
	}
	group := repository.SubmissionGroup{
		Submissions: subs,
		Payment: &models.Payment{
			Provider:       paid.Method,
			Reference:      paid.Reference,
			SubmissionUUID: groupID,
			Amount:         price,
			Currency:       paid.Currency,
			Status:         paid.Status,
			RawPayload:     paid.Raw,
		},
		FreeTierKey: freeKey,
		Outbox:      &models.OutboxEntry{Topic: outbox.TopicSheetMirror, AggregateID: groupID, Payload: rows},
	}
	if coupon != nil {
		group.CouponID = coupon.ID
	}

	ids, outboxID, err := s.store.CreateGroup(ctx, group)
	if err != nil {
		s.cleanup(uploaded)
		return nil, err
	}

	if s.queue != nil {
		if err := s.queue.Push(ctx, outboxID); err != nil {
			s.log.Warn("outbox enqueue failed, sweeper will retry", "outbox_id", outboxID, "err", err)
		}
	}
	if s.notifier != nil {
		s.notifier.NewSubmission(subs)
	}
	s.log.Info("submission recorded", "submission_uuid", groupID, "tier", tier.Tier, "poems", len(subs), "price", price, "payment_method", paid.Method)

	return &SubmitResult{
		SubmissionUUID: groupID,
		SubmissionIDs:  ids,
		Price:          price,
		DiscountAmount: discount,
		PaymentID:      paid.Reference,
		PaymentMethod:  paid.Method,
	}, nil
}

func (s *SubmissionService) validate(in *SubmitInput) (TierInfo, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)

	if !in.TermsAccepted {
		return TierInfo{}, fmt.Errorf("terms and conditions must be accepted: %w", apperr.ErrValidation)
	}
	if in.UserUID == "" {
		return TierInfo{}, fmt.Errorf("sign in before submitting: %w", apperr.ErrUnauthorized)
	}
	if in.Name == "" {
		return TierInfo{}, fmt.Errorf("name is required: %w", apperr.ErrValidation)
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return TierInfo{}, fmt.Errorf("a valid email is required: %w", apperr.ErrValidation)
	}
	if in.Age <= 0 || in.Age > 120 {
		return TierInfo{}, fmt.Errorf("age must be between 1 and 120: %w", apperr.ErrValidation)
	}

	tier, err := ResolveTier(string(in.Tier))
	if err != nil {
		return TierInfo{}, err
	}
	in.Tier = tier.Tier

	if len(in.Poems) != tier.PoemCount {
		return TierInfo{}, fmt.Errorf("%s tier needs exactly %d poem(s), got %d: %w", tier.Tier, tier.PoemCount, len(in.Poems), apperr.ErrValidation)
	}
	for i, p := range in.Poems {
		if strings.TrimSpace(p.Title) == "" {
			return TierInfo{}, fmt.Errorf("poem %d needs a title: %w", i+1, apperr.ErrValidation)
		}
		switch {
		case p.File != nil:
			if err := s.files.Validate(storage.KindPoem, p.File.Filename, int64(len(p.File.Data))); err != nil {
				return TierInfo{}, err
			}
		case strings.TrimSpace(p.FileURL) == "":
			return TierInfo{}, fmt.Errorf("poem %d needs a file: %w", i+1, apperr.ErrValidation)
		}
	}
	switch {
	case in.Photo != nil:
		if err := s.files.Validate(storage.KindPhoto, in.Photo.Filename, int64(len(in.Photo.Data))); err != nil {
			return TierInfo{}, err
		}
	case strings.TrimSpace(in.PhotoURL) == "":
		return TierInfo{}, fmt.Errorf("a photo is required: %w", apperr.ErrValidation)
	}
	return tier, nil
}

// upload stores poem files first, then the photo. uploaded lists every object
// written so far, also on error.
func (s *SubmissionService) upload(ctx context.Context, in SubmitInput, groupID string) (uploaded, poemURLs []string, photoURL string, err error) {
	poemURLs = make([]string, len(in.Poems))
	needPoems, needPhoto := false, in.Photo != nil
	for i, p := range in.Poems {
		if p.File == nil {
			poemURLs[i] = strings.TrimSpace(p.FileURL)
			continue
		}
		needPoems = true
	}

	if needPoems {
		if err := s.files.EnsureFolder(ctx, s.folders.Poems); err != nil {
			return nil, nil, "", err
		}
	}
	if needPhoto {
		if err := s.files.EnsureFolder(ctx, s.folders.Photos); err != nil {
			return nil, nil, "", err
		}
	}

	for i, p := range in.Poems {
		if p.File == nil {
			continue
		}
		url, err := s.files.Upload(ctx, storage.File{
			Folder:      s.folders.Poems,
			Group:       groupID,
			Email:       in.Email,
			Title:       p.Title,
			Index:       i + 1,
			Filename:    p.File.Filename,
			ContentType: p.File.ContentType,
			Data:        p.File.Data,
		})
		if err != nil {
			return uploaded, nil, "", fmt.Errorf("upload poem %d: %w", i+1, err)
		}
		uploaded = append(uploaded, url)
		poemURLs[i] = url
	}

	photoURL = strings.TrimSpace(in.PhotoURL)
	if needPhoto {
		url, err := s.files.Upload(ctx, storage.File{
			Folder:      s.folders.Photos,
			Group:       groupID,
			Email:       in.Email,
			Title:       in.Poems[0].Title,
			Index:       1,
			Filename:    in.Photo.Filename,
			ContentType: in.Photo.ContentType,
			Data:        in.Photo.Data,
		})
		if err != nil {
			return uploaded, nil, "", fmt.Errorf("upload photo: %w", err)
		}
		uploaded = append(uploaded, url)
		photoURL = url
	}
	return uploaded, poemURLs, photoURL, nil
}

// cleanup is best effort and detached from the request context, which may
// already be cancelled.
func (s *SubmissionService) cleanup(urls []string) {
	if len(urls) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	for _, u := range urls {
		if err := s.files.Delete(ctx, u); err != nil {
			s.log.Warn("remove orphaned upload failed", "url", u, "err", err)
		}
	}
}

func (s *SubmissionService) ListForEmail(ctx context.Context, email string) ([]models.Submission, error) {
	if strings.TrimSpace(email) == "" {
		return nil, fmt.Errorf("email is required: %w", apperr.ErrUnauthorized)
	}
	list, err := s.store.List(ctx, repository.SubmissionFilter{Email: strings.TrimSpace(email)})
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return list, nil
}

func (s *SubmissionService) List(ctx context.Context, filter repository.SubmissionFilter) ([]models.Submission, error) {
	list, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return list, nil
}
