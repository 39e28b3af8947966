package server

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/digkill/writory/internal/apperr"
	"github.com/digkill/writory/internal/models"
	"github.com/digkill/writory/internal/service"
)

type submissionResponse struct {
	Success bool `json:"success"`
	*service.SubmitResult
}

func (s *Server) handleSubmitPoem(w http.ResponseWriter, r *http.Request) {
	s.submitMultipart(w, r, "poemTitle", "poemFile")
}

func (s *Server) handleSubmitMultiplePoems(w http.ResponseWriter, r *http.Request) {
	s.submitMultipart(w, r, "poemTitles[]", "poemFiles[]")
}

func (s *Server) submitMultipart(w http.ResponseWriter, r *http.Request, titleField, fileField string) {
	user, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes*6+(1<<20))
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		s.writeError(w, r, fmt.Errorf("invalid multipart form: %v: %w", err, apperr.ErrValidation))
		return
	}
	defer r.MultipartForm.RemoveAll()

	form := r.MultipartForm
	in := submitInputFromForm(user, form.Value)

	titles := form.Value[titleField]
	files := form.File[fileField]
	if len(titles) != len(files) {
		s.writeError(w, r, fmt.Errorf("got %d titles for %d poem files: %w", len(titles), len(files), apperr.ErrValidation))
		return
	}
	for i, fh := range files {
		up, err := readUpload(fh)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		in.Poems = append(in.Poems, service.PoemEntry{Title: titles[i], File: up})
	}
	if photos := form.File["photo"]; len(photos) > 0 {
		up, err := readUpload(photos[0])
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		in.Photo = up
	}

	s.submit(w, r, in)
}

type submitJSONRequest struct {
	Name             string               `json:"name"`
	Email            string               `json:"email"`
	Phone            string               `json:"phone"`
	Age              int                  `json:"age"`
	Tier             models.Tier          `json:"tier"`
	Poems            []submitJSONPoem     `json:"poems"`
	PhotoURL         string               `json:"photoUrl"`
	CouponCode       string               `json:"couponCode"`
	PaymentMethod    models.PaymentMethod `json:"paymentMethod"`
	PaymentReference string               `json:"paymentReference"`
	TermsAccepted    bool                 `json:"termsAccepted"`
}

type submitJSONPoem struct {
	Title   string `json:"title"`
	FileURL string `json:"fileUrl"`
}

// handleSubmitJSON records an entry whose files were uploaded in an earlier request.
func (s *Server) handleSubmitJSON(w http.ResponseWriter, r *http.Request) {
	user, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	var req submitJSONRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	in := service.SubmitInput{
		UserUID:          user.UID,
		Name:             req.Name,
		Email:            firstNonEmpty(req.Email, user.Email),
		Phone:            req.Phone,
		Age:              req.Age,
		Tier:             req.Tier,
		PhotoURL:         req.PhotoURL,
		CouponCode:       req.CouponCode,
		PaymentMethod:    req.PaymentMethod,
		PaymentReference: req.PaymentReference,
		TermsAccepted:    req.TermsAccepted,
	}
	for _, p := range req.Poems {
		in.Poems = append(in.Poems, service.PoemEntry{Title: p.Title, FileURL: p.FileURL})
	}
	s.submit(w, r, in)
}

func (s *Server) submit(w http.ResponseWriter, r *http.Request, in service.SubmitInput) {
	res, err := s.svc.Submissions.Submit(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, submissionResponse{Success: true, SubmitResult: res})
}

func (s *Server) handleMySubmissions(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.Submissions.ListForEmail(r.Context(), identityEmail(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if list == nil {
		list = []models.Submission{}
	}
	s.writeJSON(w, http.StatusOK, list)
}

func submitInputFromForm(user *models.User, v map[string][]string) service.SubmitInput {
	get := func(keys ...string) string {
		for _, k := range keys {
			if vals := v[k]; len(vals) > 0 && strings.TrimSpace(vals[0]) != "" {
				return strings.TrimSpace(vals[0])
			}
		}
		return ""
	}
	age, _ := strconv.Atoi(get("age"))
	terms, _ := strconv.ParseBool(get("termsAccepted"))
	if get("termsAccepted") == "on" {
		terms = true
	}
	return service.SubmitInput{
		UserUID:          user.UID,
		Name:             get("name"),
		Email:            firstNonEmpty(get("email"), user.Email),
		Phone:            get("phone"),
		Age:              age,
		Tier:             models.Tier(get("tier")),
		PhotoURL:         get("photoUrl"),
		CouponCode:       get("couponCode"),
		PaymentMethod:    models.PaymentMethod(get("paymentMethod")),
		PaymentReference: get("paymentReference", "paymentIntentId", "sessionId", "paypalOrderId"),
		TermsAccepted:    terms,
	}
}

func readUpload(fh *multipart.FileHeader) (*service.Upload, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload %q: %w", fh.Filename, err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read upload %q: %w", fh.Filename, err)
	}
	return &service.Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
