package web

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/classquiz/internal/apiclient"
	"github.com/mind-engage/classquiz/internal/results"
	"github.com/mind-engage/classquiz/internal/session"
	"github.com/mind-engage/classquiz/internal/views"
)

type adminLoginData struct {
	Error string
	Email string
}

type dashboardData struct {
	Active       apiclient.AdminActiveQuiz
	Found        bool
	Message      string
	Error        string
	DefaultTitle string
}

type resultsData struct {
	views.ResultsPage
	ExportURL string
}

func (s *Server) adminLoginPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "admin_login.html", adminLoginData{})
}

func (s *Server) adminLogin(w http.ResponseWriter, r *http.Request) {
	data := adminLoginData{Email: strings.TrimSpace(r.FormValue("email"))}
	password := r.FormValue("password")
	if data.Email == "" || password == "" {
		data.Error = "Email and password are required"
		s.render(w, http.StatusBadRequest, "admin_login.html", data)
		return
	}
	res, err := s.client(r).AdminLogin(r.Context(), data.Email, password)
	if err != nil {
		data.Error = userMessage(err)
		s.render(w, statusFor(err), "admin_login.html", data)
		return
	}
	if err := s.store(r).Set(r.Context(), res.Token, session.Role(res.Role)); err != nil {
		data.Error = err.Error()
		s.render(w, http.StatusBadGateway, "admin_login.html", data)
		return
	}
	redirect(w, r, "/admin/dashboard")
}

func (s *Server) dashboard(w http.ResponseWriter, r *http.Request) {
	data := dashboardData{
		Message:      r.URL.Query().Get("msg"),
		Error:        r.URL.Query().Get("err"),
		DefaultTitle: apiclient.DefaultTitle(s.opt.Clock()),
	}
	aq, found, err := s.client(r).AdminActiveQuiz(r.Context())
	if err != nil {
		if s.adminGone(w, r, err) {
			return
		}
		data.Error = userMessage(err)
	}
	data.Active, data.Found = aq, found
	s.render(w, http.StatusOK, "dashboard.html", data)
}

func (s *Server) upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(16 << 20); err != nil {
		backToDashboard(w, r, "", "Please choose a file to upload")
		return
	}
	f, hdr, err := r.FormFile("file")
	if err != nil {
		backToDashboard(w, r, "", "Please choose a file to upload")
		return
	}
	defer f.Close()
	if !apiclient.AllowedUpload(hdr.Filename) {
		backToDashboard(w, r, "", apiclient.ErrUnsupportedFile.Error())
		return
	}
	title := strings.TrimSpace(r.FormValue("title"))
	if title == "" {
		title = apiclient.DefaultTitle(s.opt.Clock())
	}

	id, err := s.client(r).UploadQuiz(r.Context(), hdr.Filename, f, title)
	if err != nil {
		if s.adminGone(w, r, err) {
			return
		}
		backToDashboard(w, r, "", userMessage(err))
		return
	}
	backToDashboard(w, r, fmt.Sprintf("Uploaded %q as quiz %s", title, id), "")
}

func (s *Server) start(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.FormValue("quiz_id"))
	if id == "" {
		backToDashboard(w, r, "", "Quiz id is required")
		return
	}
	msg, err := s.client(r).StartQuiz(r.Context(), apiclient.ID(id))
	if err != nil {
		if s.adminGone(w, r, err) {
			return
		}
		backToDashboard(w, r, "", userMessage(err))
		return
	}
	backToDashboard(w, r, msg, "")
}

// stop ends the live quiz and lands on its results.
func (s *Server) stop(w http.ResponseWriter, r *http.Request) {
	client := s.client(r)
	aq, found, err := client.AdminActiveQuiz(r.Context())
	if err == nil && !found {
		backToDashboard(w, r, "", "No active quiz found")
		return
	}
	if err == nil {
		_, err = client.StopQuiz(r.Context())
	}
	if err != nil {
		if s.adminGone(w, r, err) {
			return
		}
		backToDashboard(w, r, "", userMessage(err))
		return
	}
	redirect(w, r, "/admin/results/"+url.PathEscape(aq.QuizID.String()))
}

func (s *Server) resultsPage(w http.ResponseWriter, r *http.Request) {
	quizID := chi.URLParam(r, "quizID")
	entries, err := s.client(r).QuizResults(r.Context(), apiclient.ID(quizID))
	if err != nil {
		if s.adminGone(w, r, err) {
			return
		}
		backToDashboard(w, r, "", userMessage(err))
		return
	}
	f := filterFrom(r)
	q := url.Values{"department": {f.Department}, "class": {f.Class}}
	s.render(w, http.StatusOK, "results.html", resultsData{
		ResultsPage: views.BuildResults(quizID, entries, f),
		ExportURL:   "/admin/results/" + url.PathEscape(quizID) + "/export.csv?" + q.Encode(),
	})
}

func (s *Server) exportCSV(w http.ResponseWriter, r *http.Request) {
	quizID := chi.URLParam(r, "quizID")
	entries, err := s.client(r).QuizResults(r.Context(), apiclient.ID(quizID))
	if err != nil {
		if s.adminGone(w, r, err) {
			return
		}
		http.Error(w, userMessage(err), statusFor(err))
		return
	}
	rows := results.Rank(entries, filterFrom(r))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="quiz-%s-results.csv"`, quizID))
	if err := results.WriteCSV(w, rows); err != nil {
		s.log.Printf("web: export %s: %v", quizID, err)
	}
}

func (s *Server) adminLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.store(r).Clear(r.Context()); err != nil {
		s.log.Printf("web: clear %s: %v", scopeOf(r), err)
	}
	redirect(w, r, adminLogin)
}

// adminGone sends the browser back to the admin login when the API
// rejected its token.
func (s *Server) adminGone(w http.ResponseWriter, r *http.Request, err error) bool {
	if apiclient.KindOf(err) != apiclient.KindUnauthenticated {
		return false
	}
	redirect(w, r, adminLogin)
	return true
}

func filterFrom(r *http.Request) results.Filter {
	q := r.URL.Query()
	f := results.Filter{Department: q.Get("department"), Class: q.Get("class")}
	if f.Department == "" {
		f.Department = results.All
	}
	if f.Class == "" {
		f.Class = results.All
	}
	return f
}

func backToDashboard(w http.ResponseWriter, r *http.Request, msg, errMsg string) {
	q := url.Values{}
	if msg != "" {
		q.Set("msg", msg)
	}
	if errMsg != "" {
		q.Set("err", errMsg)
	}
	to := "/admin/dashboard"
	if len(q) > 0 {
		to += "?" + q.Encode()
	}
	redirect(w, r, to)
}
