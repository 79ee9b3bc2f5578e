package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCheckerPolicy(t *testing.T) {
	c := NewChecker(nil)
	if !c.Has("student", PermQuizTake) {
		t.Fatalf("student should take quizzes")
	}
	if c.Has("student", PermQuizManage) || c.Has("student", PermResultsView) {
		t.Fatalf("student must not manage quizzes")
	}
	if !c.Has("admin", PermResultsExport) || !c.Has("admin", PermQuizTake) {
		t.Fatalf("admin holds everything")
	}
	if c.Has("", PermQuizTake) || c.Has("guest", PermQuizTake) {
		t.Fatalf("unknown roles hold nothing")
	}
	p := NewChecker(map[string][]string{"grader": {"results:*"}})
	if !p.Has("grader", PermResultsView) || p.Has("grader", PermQuizManage) {
		t.Fatalf("prefix pattern mismatch")
	}
}

func TestRequireRedirects(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := Require(PermQuizManage, "/admin/login")(ok)

	cases := []struct {
		role string
		code int
	}{
		{"", http.StatusSeeOther},
		{"student", http.StatusSeeOther},
		{"admin", http.StatusNoContent},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil)
		if tc.role != "" {
			req = req.WithContext(WithRole(req.Context(), tc.role))
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != tc.code {
			t.Fatalf("role %q: code = %d, want %d", tc.role, rec.Code, tc.code)
		}
		if tc.code == http.StatusSeeOther && rec.Header().Get("Location") != "/admin/login" {
			t.Fatalf("location = %q", rec.Header().Get("Location"))
		}
	}
}
