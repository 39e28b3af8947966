package models

import "time"

type Tier string

const (
	TierFree   Tier = "free"
	TierSingle Tier = "single"
	TierDouble Tier = "double"
	TierBulk   Tier = "bulk"
)

type PaymentMethod string

const (
	PaymentStripe         PaymentMethod = "stripe"
	PaymentStripeCheckout PaymentMethod = "stripe_checkout"
	PaymentPayPal         PaymentMethod = "paypal"
	PaymentQR             PaymentMethod = "qr"
	PaymentManual         PaymentMethod = "manual"
	PaymentFree           PaymentMethod = "free"
)

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

type WallStatus string

const (
	WallPending  WallStatus = "pending"
	WallApproved WallStatus = "approved"
	WallRejected WallStatus = "rejected"
)

const SubmissionStatusPending = "Pending"

type User struct {
	ID                int64     `json:"id"`
	UID               string    `json:"uid"`
	Email             string    `json:"email"`
	Name              string    `json:"name"`
	Phone             string    `json:"phone"`
	ProfilePictureURL string    `json:"profilePictureUrl"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

type ScoreBreakdown struct {
	Originality int `json:"originality"`
	Emotion     int `json:"emotion"`
	Structure   int `json:"structure"`
	Language    int `json:"language"`
	Theme       int `json:"theme"`
}

// Submission is one poem. Poems entered together share SubmissionUUID, Tier,
// Price and PaymentID.
type Submission struct {
	ID             int64           `json:"id"`
	SubmissionUUID string          `json:"submissionUuid"`
	UserUID        string          `json:"userUid"`
	Name           string          `json:"name"`
	Email          string          `json:"email"`
	Phone          string          `json:"phone"`
	Age            int             `json:"age"`
	PoemTitle      string          `json:"poemTitle"`
	PoemIndex      int             `json:"poemIndex"`
	TotalPoems     int             `json:"totalPoems"`
	Tier           Tier            `json:"tier"`
	Price          int             `json:"price"`
	DiscountAmount int             `json:"discountAmount"`
	CouponCode     string          `json:"couponCode,omitempty"`
	PaymentID      string          `json:"paymentId"`
	PaymentMethod  PaymentMethod   `json:"paymentMethod"`
	PoemFileURL    string          `json:"poemFileUrl"`
	PhotoURL       string          `json:"photoUrl"`
	ContestMonth   string          `json:"contestMonth"`
	Score          *int            `json:"score"`
	Type           string          `json:"type"`
	Status         string          `json:"status"`
	ScoreBreakdown *ScoreBreakdown `json:"scoreBreakdown"`
	IsWinner       bool            `json:"isWinner"`
	WinnerPosition *int            `json:"winnerPosition"`
	WinnerCategory string          `json:"winnerCategory"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

type Coupon struct {
	ID              int64        `json:"id"`
	Code            string       `json:"code"`
	DiscountType    DiscountType `json:"discountType"`
	DiscountValue   int          `json:"discountValue"`
	ValidFrom       *time.Time   `json:"validFrom"`
	ValidUntil      *time.Time   `json:"validUntil"`
	UsageLimit      *int         `json:"usageLimit"`
	UsedCount       int          `json:"usedCount"`
	ApplicableTiers []Tier       `json:"applicableTiers"`
	IsActive        bool         `json:"isActive"`
	CreatedAt       time.Time    `json:"createdAt"`
	UpdatedAt       time.Time    `json:"updatedAt"`
}

type Payment struct {
	ID             int64         `json:"id"`
	Provider       PaymentMethod `json:"provider"`
	Reference      string        `json:"reference"`
	SubmissionUUID string        `json:"submissionUuid"`
	Amount         int           `json:"amount"`
	Currency       string        `json:"currency"`
	Status         string        `json:"status"`
	RawPayload     string        `json:"-"`
	CreatedAt      time.Time     `json:"createdAt"`
	UpdatedAt      time.Time     `json:"updatedAt"`
}

// WallPost.LikedBy holds user uids; a uid appears at most once and Likes == len(LikedBy).
type WallPost struct {
	ID          int64      `json:"id"`
	AuthorUID   string     `json:"authorUid"`
	AuthorName  string     `json:"authorName"`
	AuthorEmail string     `json:"-"`
	Title       string     `json:"title"`
	Content     string     `json:"content"`
	Status      WallStatus `json:"status"`
	Likes       int        `json:"likes"`
	LikedBy     []string   `json:"likedBy"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

type WinnerPhoto struct {
	ID           int64     `json:"id"`
	Title        string    `json:"title"`
	ImageURL     string    `json:"imageUrl"`
	ContestMonth string    `json:"contestMonth"`
	Position     int       `json:"position"`
	CreatedAt    time.Time `json:"createdAt"`
}

type Setting struct {
	Scope     string    `json:"scope"`
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type ContactMessage struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Subject   string    `json:"subject"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

type OutboxEntry struct {
	ID          int64      `json:"id"`
	Topic       string     `json:"topic"`
	AggregateID string     `json:"aggregateId"`
	Payload     []byte     `json:"payload"`
	Attempts    int        `json:"attempts"`
	LastError   string     `json:"lastError"`
	DeliveredAt *time.Time `json:"deliveredAt"`
	CreatedAt   time.Time  `json:"createdAt"`
}
