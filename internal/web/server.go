// Package web serves the student and admin pages in the browser. Every
// browser gets its own token store scope, keyed by a session cookie, and
// its own quiz controller.
package web

import (
	"context"
	"embed"
	"html/template"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	"github.com/mind-engage/classquiz/internal/apiclient"
	"github.com/mind-engage/classquiz/internal/quizsession"
	"github.com/mind-engage/classquiz/internal/rbac"
	"github.com/mind-engage/classquiz/internal/session"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	cookieName   = "cq_session"
	studentLogin = "/"
	adminLogin   = "/admin/login"
)

type Options struct {
	BaseURL      string
	HTTPClient   *http.Client
	KV           session.KV
	Sealer       *session.Sealer // optional
	Recorder     func(scope string) quizsession.Recorder
	Logger       *log.Logger
	CookieSecure bool
	CORSOrigins  []string
	Timeout      time.Duration
	Clock        func() time.Time
}

type Server struct {
	opt   Options
	log   *log.Logger
	pages map[string]*template.Template

	mu          sync.Mutex
	controllers map[string]*quizsession.Controller
}

func New(opt Options) (*Server, error) {
	if opt.HTTPClient == nil {
		opt.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
	if opt.Clock == nil {
		opt.Clock = time.Now
	}
	if opt.Timeout <= 0 {
		opt.Timeout = 30 * time.Second
	}
	if opt.Logger == nil {
		opt.Logger = log.Default()
	}
	pages, err := parsePages()
	if err != nil {
		return nil, err
	}
	return &Server{
		opt:         opt,
		log:         opt.Logger,
		pages:       pages,
		controllers: map[string]*quizsession.Controller{},
	}, nil
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(s.opt.Timeout))
	if len(s.opt.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.opt.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Content-Type"},
			ExposedHeaders:   []string{"Content-Length", "Content-Disposition"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	r.Group(func(pr chi.Router) {
		pr.Use(s.sessions)

		pr.Get("/", s.index)
		pr.Post("/student/login", s.studentLogin)
		pr.Post("/student/register", s.studentRegister)

		pr.Group(func(sr chi.Router) {
			sr.Use(rbac.Require(rbac.PermQuizTake, studentLogin))
			sr.Get("/student/quiz", s.quizPage)
			sr.Post("/student/quiz/answer", s.quizAnswer)
			sr.Post("/student/quiz/next", s.quizStep(func(c *quizsession.Controller, _ context.Context) error { return c.Next() }))
			sr.Post("/student/quiz/prev", s.quizStep(func(c *quizsession.Controller, _ context.Context) error { return c.Prev() }))
			sr.Post("/student/quiz/submit", s.quizStep((*quizsession.Controller).Submit))
			sr.Post("/student/quiz/retry", s.quizStep((*quizsession.Controller).Retry))
			sr.Post("/student/logout", s.studentLogout)
		})

		pr.Route("/admin", func(ar chi.Router) {
			ar.Get("/login", s.adminLoginPage)
			ar.Post("/login", s.adminLogin)
			ar.Group(func(gr chi.Router) {
				gr.Use(rbac.Require(rbac.PermQuizManage, adminLogin))
				gr.Get("/dashboard", s.dashboard)
				gr.Post("/upload", s.upload)
				gr.Post("/start", s.start)
				gr.Post("/stop", s.stop)
				gr.Post("/logout", s.adminLogout)
				gr.With(rbac.Require(rbac.PermResultsView, adminLogin)).
					Get("/results/{quizID}", s.resultsPage)
				gr.With(rbac.Require(rbac.PermResultsExport, adminLogin)).
					Get("/results/{quizID}/export.csv", s.exportCSV)
			})
		})
	})
	return r
}

// ---- per-browser session ----

type scopeKey struct{}

// sessions makes sure the browser has a session cookie and puts the
// stored role, if any, in the request context.
func (s *Server) sessions(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := ""
		if c, err := r.Cookie(cookieName); err == nil {
			if _, err := uuid.Parse(c.Value); err == nil {
				id = c.Value
			}
		}
		if id == "" {
			id = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     cookieName,
				Value:    id,
				Path:     "/",
				HttpOnly: true,
				Secure:   s.opt.CookieSecure,
				SameSite: http.SameSiteLaxMode,
			})
		}
		scope := "web:" + id
		ctx := context.WithValue(r.Context(), scopeKey{}, scope)

		cred, ok, err := s.storeFor(scope).Get(ctx)
		if err != nil {
			s.log.Printf("web: load session %s: %v", scope, err)
		}
		if ok {
			ctx = rbac.WithRole(ctx, string(cred.Role))
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func scopeOf(r *http.Request) string {
	s, _ := r.Context().Value(scopeKey{}).(string)
	return s
}

func (s *Server) storeFor(scope string) *session.Store {
	var opts []session.Option
	if s.opt.Sealer != nil {
		opts = append(opts, session.WithSealer(s.opt.Sealer))
	}
	return session.New(s.opt.KV, scope, opts...)
}

func (s *Server) store(r *http.Request) *session.Store { return s.storeFor(scopeOf(r)) }

// client talks to the quiz API as the browser behind r. After a rejected
// token the next quiz visit starts a fresh controller.
func (s *Server) client(r *http.Request) *apiclient.Client {
	scope := scopeOf(r)
	return apiclient.New(s.opt.BaseURL, s.opt.HTTPClient, s.storeFor(scope),
		apiclient.WithLogger(s.log),
		apiclient.WithUnauthenticated(func(context.Context) {
			s.log.Printf("web: token rejected for %s", scope)
			s.forgetController(scope)
		}))
}

// controller returns the browser's live quiz controller, creating and
// loading one on first use.
func (s *Server) controller(r *http.Request) *quizsession.Controller {
	scope := scopeOf(r)
	s.mu.Lock()
	c, ok := s.controllers[scope]
	if !ok {
		opts := []quizsession.Option{quizsession.WithClock(s.opt.Clock)}
		if s.opt.Recorder != nil {
			opts = append(opts, quizsession.WithRecorder(s.opt.Recorder(scope)))
		}
		c = quizsession.New(s.client(r), s.storeFor(scope), opts...)
		s.controllers[scope] = c
	}
	s.mu.Unlock()
	if !ok {
		if err := c.Load(r.Context()); err != nil {
			s.log.Printf("web: load quiz for %s: %v", scope, err)
		}
	}
	return c
}

func (s *Server) existingController(scope string) (*quizsession.Controller, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.controllers[scope]
	return c, ok
}

// forgetController unlinks the controller but lets its in-flight call
// finish, so the current request still sees where it ended up.
func (s *Server) forgetController(scope string) {
	s.mu.Lock()
	delete(s.controllers, scope)
	s.mu.Unlock()
}

func (s *Server) dropController(scope string) {
	s.mu.Lock()
	c, ok := s.controllers[scope]
	delete(s.controllers, scope)
	s.mu.Unlock()
	if ok {
		c.Close()
	}
}

// ---- rendering ----

var pageNames = []string{"index.html", "quiz.html", "admin_login.html", "dashboard.html", "results.html"}

func parsePages() (map[string]*template.Template, error) {
	funcs := template.FuncMap{
		"isState": func(st quizsession.State, name string) bool { return st.String() == name },
	}
	out := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		t, err := template.New(name).Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+name)
		if err != nil {
			return nil, err
		}
		out[name] = t
	}
	return out, nil
}

func (s *Server) render(w http.ResponseWriter, status int, page string, data any) {
	t, ok := s.pages[page]
	if !ok {
		http.Error(w, "unknown page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := t.ExecuteTemplate(w, "layout", data); err != nil {
		s.log.Printf("web: render %s: %v", page, err)
	}
}

func redirect(w http.ResponseWriter, r *http.Request, to string) {
	http.Redirect(w, r, to, http.StatusSeeOther)
}
