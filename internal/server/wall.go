package server

import (
	"net/http"
	"strconv"

	"github.com/digkill/writory/internal/models"
	"github.com/digkill/writory/internal/service"
)

func (s *Server) handleListWall(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))
	posts, err := s.svc.Wall.Approved(r.Context(), page, pageSize)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, nonNilPosts(posts))
}

func (s *Server) handleCreateWallPost(w http.ResponseWriter, r *http.Request) {
	user, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	var req service.WallPostInput
	if !s.decodeJSON(w, r, &req) {
		return
	}
	post, err := s.svc.Wall.Create(r.Context(), user, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, post)
}

func (s *Server) handleMyWallPosts(w http.ResponseWriter, r *http.Request) {
	user, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	posts, err := s.svc.Wall.Mine(r.Context(), user.UID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, nonNilPosts(posts))
}

func (s *Server) handleDeleteWallPost(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	user, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	if err := s.svc.Wall.Delete(r.Context(), id, user.UID); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLikeWallPost(w http.ResponseWriter, r *http.Request) {
	s.setLike(w, r, true)
}

func (s *Server) handleUnlikeWallPost(w http.ResponseWriter, r *http.Request) {
	s.setLike(w, r, false)
}

func (s *Server) setLike(w http.ResponseWriter, r *http.Request, like bool) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	user, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	var (
		post *models.WallPost
		err  error
	)
	if like {
		post, err = s.svc.Wall.Like(r.Context(), id, user.UID)
	} else {
		post, err = s.svc.Wall.Unlike(r.Context(), id, user.UID)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, post)
}

func nonNilPosts(posts []models.WallPost) []models.WallPost {
	if posts == nil {
		return []models.WallPost{}
	}
	return posts
}
