package handlers

import (
	"net/http"

	"cattube/internal/logger"
	"cattube/internal/middleware"
	"cattube/internal/web"
)

// Page carries what the base layout needs on every page.
type Page struct {
	Username string
}

func currentPage(s *middleware.Sessions, r *http.Request) Page {
	_, username, _ := s.CurrentUser(r)
	return Page{Username: username}
}

func render(w http.ResponseWriter, pages *web.Renderer, status int, page string, data interface{}) {
	if err := pages.Render(w, status, page, data); err != nil {
		logger.Errorf("%v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
