package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mind-engage/classquiz/internal/apiclient"
	"github.com/mind-engage/classquiz/internal/results"
	"github.com/mind-engage/classquiz/internal/session"
	"github.com/mind-engage/classquiz/internal/views"
)

func admin(ctx context.Context, args []string, out io.Writer, d Deps) error {
	if len(args) == 0 {
		printHelp(out)
		return ErrUsage
	}
	cmd, rest := args[0], args[1:]
	if cmd != "login" {
		if err := requireAdmin(ctx, d); err != nil {
			return err
		}
	}

	switch cmd {
	case "login":
		if len(rest) != 2 {
			return fmt.Errorf("%w: quizctl admin login <email> <password>", ErrUsage)
		}
		res, err := d.Client.AdminLogin(ctx, rest[0], rest[1])
		if err != nil {
			return describe(err, d.Client.BaseURL())
		}
		if err := d.Store.Set(ctx, res.Token, session.Role(res.Role)); err != nil {
			return err
		}
		fmt.Fprintln(out, "Admin login successful.")
		return nil

	case "logout":
		if err := d.Store.Clear(ctx); err != nil {
			return err
		}
		fmt.Fprintln(out, "Logged out.")
		return nil

	case "active":
		aq, found, err := d.Client.AdminActiveQuiz(ctx)
		if err != nil {
			return describe(err, d.Client.BaseURL())
		}
		views.RenderActiveQuiz(out, aq, found)
		return nil

	case "upload":
		if len(rest) < 1 || len(rest) > 2 {
			return fmt.Errorf("%w: quizctl admin upload <file> [title]", ErrUsage)
		}
		return upload(ctx, out, d, rest)

	case "start":
		if len(rest) != 1 {
			return fmt.Errorf("%w: quizctl admin start <quiz-id>", ErrUsage)
		}
		msg, err := d.Client.StartQuiz(ctx, apiclient.ID(rest[0]))
		if err != nil {
			return describe(err, d.Client.BaseURL())
		}
		fmt.Fprintln(out, msgOr(msg, "Quiz started."))
		return nil

	case "stop":
		return stop(ctx, out, d)

	case "results":
		return showResults(ctx, rest, out, d)
	}
	printHelp(out)
	return fmt.Errorf("%w: unknown admin command %q", ErrUsage, cmd)
}

func requireAdmin(ctx context.Context, d Deps) error {
	cred, ok, err := d.Store.Get(ctx)
	if err != nil {
		return err
	}
	if !ok || cred.Role != session.RoleAdmin {
		return errors.New("admin login required: quizctl admin login <email> <password>")
	}
	return nil
}

func upload(ctx context.Context, out io.Writer, d Deps, args []string) error {
	path := args[0]
	title := apiclient.DefaultTitle(d.Clock())
	if len(args) == 2 && strings.TrimSpace(args[1]) != "" {
		title = strings.TrimSpace(args[1])
	}
	if !apiclient.AllowedUpload(path) {
		return describe(apiclient.ErrUnsupportedFile, d.Client.BaseURL())
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	id, err := d.Client.UploadQuiz(ctx, filepath.Base(path), f, title)
	if err != nil {
		return describe(err, d.Client.BaseURL())
	}
	fmt.Fprintf(out, "Uploaded %q as quiz %s.\n", title, id)
	return nil
}

// stop ends the live quiz and shows its results, like the dashboard does.
func stop(ctx context.Context, out io.Writer, d Deps) error {
	aq, found, err := d.Client.AdminActiveQuiz(ctx)
	if err != nil {
		return describe(err, d.Client.BaseURL())
	}
	if !found {
		fmt.Fprintln(out, "No active quiz found.")
		return nil
	}
	msg, err := d.Client.StopQuiz(ctx)
	if err != nil {
		return describe(err, d.Client.BaseURL())
	}
	fmt.Fprintln(out, msgOr(msg, "Quiz stopped."))

	entries, err := d.Client.QuizResults(ctx, aq.QuizID)
	if err != nil {
		return describe(err, d.Client.BaseURL())
	}
	return views.RenderResults(out, views.BuildResults(aq.QuizID.String(), entries, results.Filter{}))
}

func showResults(ctx context.Context, args []string, out io.Writer, d Deps) error {
	fs := flag.NewFlagSet("results", flag.ContinueOnError)
	fs.SetOutput(out)
	dept := fs.String("department", results.All, "filter by department")
	class := fs.String("class", results.All, "filter by class")
	export := fs.String("export", "", "write the filtered table as CSV under this name")

	// quiz id first, flags after
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		return fmt.Errorf("%w: quizctl admin results <quiz-id> [flags]", ErrUsage)
	}
	quizID := apiclient.ID(args[0])
	if err := fs.Parse(args[1:]); err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}

	entries, err := d.Client.QuizResults(ctx, quizID)
	if err != nil {
		return describe(err, d.Client.BaseURL())
	}
	page := views.BuildResults(quizID.String(), entries, results.Filter{Department: *dept, Class: *class})
	if err := views.RenderResults(out, page); err != nil {
		return err
	}

	if *export == "" {
		return nil
	}
	if d.Exports == nil {
		return errors.New("no export directory configured")
	}
	key, err := results.Export(d.Exports, *export, page.Rows)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	link, err := d.Exports.URL(key)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Exported %d rows to %s\n", len(page.Rows), link)
	return nil
}

func msgOr(msg, def string) string {
	if strings.TrimSpace(msg) == "" {
		return def
	}
	return msg
}
