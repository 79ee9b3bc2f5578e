package web

import (
	"context"
	"net/http"
	"strconv"

	"github.com/mind-engage/classquiz/internal/apiclient"
	"github.com/mind-engage/classquiz/internal/quizsession"
	"github.com/mind-engage/classquiz/internal/rbac"
	"github.com/mind-engage/classquiz/internal/session"
	"github.com/mind-engage/classquiz/internal/views"
)

type indexData struct {
	Error       string
	Tab         string // login|register
	Form        apiclient.Registration
	Classes     []string
	Sections    []string
	Departments []string
}

func newIndexData() indexData {
	return indexData{
		Tab:         "login",
		Classes:     views.ClassOptions,
		Sections:    views.SectionOptions,
		Departments: views.DepartmentOptions,
	}
}

func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	if rbac.RoleFromContext(r.Context()) == string(session.RoleStudent) {
		redirect(w, r, "/student/quiz")
		return
	}
	s.render(w, http.StatusOK, "index.html", newIndexData())
}

func (s *Server) studentLogin(w http.ResponseWriter, r *http.Request) {
	data := newIndexData()
	data.Form.RegisterNumber = r.FormValue("register_number")
	if data.Form.RegisterNumber == "" {
		data.Error = "Register number is required"
		s.render(w, http.StatusBadRequest, "index.html", data)
		return
	}
	res, err := s.client(r).Login(r.Context(), data.Form.RegisterNumber)
	if err != nil {
		data.Error = userMessage(err)
		s.render(w, statusFor(err), "index.html", data)
		return
	}
	s.signedIn(w, r, res.Token)
}

func (s *Server) studentRegister(w http.ResponseWriter, r *http.Request) {
	data := newIndexData()
	data.Tab = "register"
	data.Form = apiclient.Registration{
		Name:           r.FormValue("name"),
		RegisterNumber: r.FormValue("register_number"),
		ClassName:      r.FormValue("class_name"),
		Section:        r.FormValue("section"),
		Department:     r.FormValue("department"),
	}
	reg, err := views.CheckRegistration(data.Form)
	if err != nil {
		data.Error = err.Error()
		s.render(w, http.StatusBadRequest, "index.html", data)
		return
	}
	res, err := s.client(r).Register(r.Context(), reg)
	if err != nil {
		data.Error = userMessage(err)
		s.render(w, statusFor(err), "index.html", data)
		return
	}
	s.signedIn(w, r, res.Token)
}

// signedIn stores a fresh student token and starts a new attempt view.
func (s *Server) signedIn(w http.ResponseWriter, r *http.Request, token string) {
	if err := s.store(r).Set(r.Context(), token, session.RoleStudent); err != nil {
		http.Error(w, "session error", http.StatusInternalServerError)
		return
	}
	s.dropController(scopeOf(r))
	redirect(w, r, "/student/quiz")
}

func (s *Server) quizPage(w http.ResponseWriter, r *http.Request) {
	c := s.controller(r)
	snap := c.Snapshot()
	switch {
	case snap.State == quizsession.StateRedirect:
		s.dropController(scopeOf(r))
		redirect(w, r, studentLogin)
		return
	case snap.State == quizsession.StateNoQuestions,
		snap.State == quizsession.StateError && (snap.Failure == nil || !snap.Failure.Retryable):
		// nothing left to do on this attempt; the next visit starts over
		s.dropController(scopeOf(r))
	}
	s.render(w, http.StatusOK, "quiz.html", views.BuildQuiz(snap))
}

func (s *Server) quizAnswer(w http.ResponseWriter, r *http.Request) {
	c, ok := s.existingController(scopeOf(r))
	if !ok {
		redirect(w, r, "/student/quiz")
		return
	}
	opt, err := strconv.Atoi(r.FormValue("option"))
	if err != nil {
		http.Error(w, "option must be a number", http.StatusBadRequest)
		return
	}
	if qid := r.FormValue("question_id"); qid != "" {
		err = c.Select(apiclient.ID(qid), opt)
	} else {
		err = c.SelectCurrent(opt)
	}
	if err != nil {
		s.log.Printf("web: select: %v", err)
	}
	redirect(w, r, "/student/quiz")
}

// quizStep applies one controller action and sends the browser back to
// the quiz page, which shows whatever state the action produced.
func (s *Server) quizStep(fn func(*quizsession.Controller, context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, ok := s.existingController(scopeOf(r))
		if !ok {
			redirect(w, r, "/student/quiz")
			return
		}
		if err := fn(c, r.Context()); err != nil {
			s.log.Printf("web: %s: %v", r.URL.Path, err)
		}
		if c.Snapshot().State == quizsession.StateRedirect {
			s.dropController(scopeOf(r))
			redirect(w, r, studentLogin)
			return
		}
		redirect(w, r, "/student/quiz")
	}
}

func (s *Server) studentLogout(w http.ResponseWriter, r *http.Request) {
	scope := scopeOf(r)
	if c, ok := s.existingController(scope); ok {
		if err := c.Exit(r.Context()); err != nil {
			s.log.Printf("web: exit: %v", err)
		}
		s.dropController(scope)
	}
	if err := s.store(r).Clear(r.Context()); err != nil {
		s.log.Printf("web: clear %s: %v", scope, err)
	}
	redirect(w, r, studentLogin)
}

func userMessage(err error) string {
	switch apiclient.KindOf(err) {
	case apiclient.KindTransportError:
		return "The quiz service is unavailable. Please try again."
	case apiclient.KindUnauthenticated:
		return "Your session has expired. Please log in again."
	case apiclient.KindServerError:
		return "Something went wrong on the server. Please try again."
	}
	return apiclient.Message(err)
}

func statusFor(err error) int {
	switch apiclient.KindOf(err) {
	case apiclient.KindClientError:
		if st := apiclient.StatusOf(err); st >= 400 && st < 500 {
			return st
		}
		return http.StatusBadRequest
	case apiclient.KindUnauthenticated:
		return http.StatusUnauthorized
	}
	return http.StatusBadGateway
}
