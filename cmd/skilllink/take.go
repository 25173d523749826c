package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/skilllink/skilllink/internal/client"
	"github.com/skilllink/skilllink/internal/model"
)

func takeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "take",
		Short: "Answer an evaluation from the terminal",
		RunE:  runTake,
	}
	f := cmd.Flags()
	f.String("url", client.DefaultBaseURL, "API base URL")
	f.String("session-file", defaultSessionFile(), "Where the login session is kept")
	f.StringP("username", "u", "", "Log in as this user when no session is saved")
	f.StringP("password", "p", "", "Password for --username (or set SKILLLINK_PASSWORD)")
	f.Int64("evaluation-id", 0, "Evaluation to answer (required)")
	f.Int64("enrollment-id", 0, "Enrollment to submit under; found automatically when omitted")
	f.String("lang", "", "Preferred response language (es, en)")
	addLogFlags(cmd)

	_ = cmd.MarkFlagRequired("evaluation-id")
	return cmd
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".skilllink-session.json"
	}
	return filepath.Join(dir, "skilllink", "session.json")
}

func runTake(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()
	in := bufio.NewScanner(cmd.InOrStdin())

	c, err := client.New(v.GetString("url"),
		client.WithSessionFile(v.GetString("session-file")),
		client.WithLanguage(v.GetString("lang")),
	)
	if err != nil {
		return err
	}
	if err := ensureLogin(ctx, c, v); err != nil {
		return err
	}

	evalID := v.GetInt64("evaluation-id")
	enrollmentID := v.GetInt64("enrollment-id")
	if enrollmentID == 0 {
		eval, err := c.GetEvaluation(ctx, evalID)
		if err != nil {
			return err
		}
		if enrollmentID, err = findEnrollment(ctx, c, eval.TutoringID); err != nil {
			return err
		}
	}

	r := client.NewRunner(c, evalID, enrollmentID)
	r.OnPhase = func(p client.Phase) { fmt.Fprintf(out, "[%s]\n", p) }
	if err := r.Load(ctx); err != nil {
		return err
	}

	eval := r.Evaluation()
	fmt.Fprintf(out, "\n%s\n", eval.Name)
	if eval.Description != "" {
		fmt.Fprintln(out, eval.Description)
	}
	for _, q := range r.Questions() {
		if err := askQuestion(out, in, r, q); err != nil {
			return err
		}
	}

	res, err := r.Submit(ctx, func(answered, total int) bool {
		fmt.Fprintf(out, "\n%d of %d questions answered. Submit? [y/N] ", answered, total)
		if !in.Scan() {
			return false
		}
		reply := strings.ToLower(strings.TrimSpace(in.Text()))
		return reply == "y" || reply == "yes" || reply == "s" || reply == "si" || reply == "sí"
	})
	switch {
	case errors.Is(err, client.ErrNoAnswers):
		fmt.Fprintln(out, "Nothing answered, nothing submitted.")
		return nil
	case errors.Is(err, client.ErrCancelled):
		fmt.Fprintln(out, "Submission cancelled.")
		return nil
	case err != nil:
		return err
	}

	fmt.Fprintf(out, "Score: %g / %g\n", res.Score, res.MaxScore)
	for _, a := range res.Answers {
		if a.Pending {
			fmt.Fprintf(out, "  question %d: pending review\n", a.QuestionID)
		}
	}
	return nil
}

func ensureLogin(ctx context.Context, c *client.Client, v *viper.Viper) error {
	if c.Session() != nil {
		return nil
	}
	username := v.GetString("username")
	if username == "" {
		return errors.New("not logged in: pass --username and --password")
	}
	sess, err := c.Login(ctx, username, v.GetString("password"))
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if sess.User.RoleID != model.RoleStudent {
		return fmt.Errorf("user %s is not a student", sess.User.Username)
	}
	return nil
}

func findEnrollment(ctx context.Context, c *client.Client, tutoringID int64) (int64, error) {
	enrollments, err := c.MyEnrollments(ctx)
	if err != nil {
		return 0, fmt.Errorf("list enrollments: %w", err)
	}
	for _, e := range enrollments {
		if e.TutoringID == tutoringID {
			return e.ID, nil
		}
	}
	return 0, fmt.Errorf("not enrolled in tutoring %d", tutoringID)
}

// askQuestion prompts until the answer is accepted or left blank.
func askQuestion(out io.Writer, in *bufio.Scanner, r *client.Runner, q model.Question) error {
	fmt.Fprintf(out, "\n%d. %s (%g pts)\n", q.Order, q.Description, q.Points)
	for _, o := range q.Options {
		fmt.Fprintf(out, "   %c) %s\n", optionLetter(o.Index), o.Text)
	}
	for {
		if q.Type.HasOptions() {
			fmt.Fprint(out, "Option (blank to skip): ")
		} else {
			fmt.Fprint(out, "Answer (blank to skip): ")
		}
		if !in.Scan() {
			return in.Err()
		}
		line := strings.TrimSpace(in.Text())
		if line == "" {
			return nil
		}
		var err error
		if q.Type.HasOptions() {
			idx, perr := parseOptionIndex(line)
			if perr != nil {
				fmt.Fprintln(out, perr)
				continue
			}
			err = r.Select(q.ID, idx)
		} else {
			err = r.Answer(q.ID, line)
		}
		if err != nil {
			fmt.Fprintln(out, err)
			continue
		}
		return nil
	}
}

func optionLetter(index int) rune {
	if index < 1 || index > 26 {
		return '?'
	}
	return rune('a' + index - 1)
}

// parseOptionIndex accepts a letter (a, B) or a 1-based number.
func parseOptionIndex(s string) (int, error) {
	if r := []rune(s); len(r) == 1 && unicode.IsLetter(r[0]) {
		l := unicode.ToLower(r[0])
		if l >= 'a' && l <= 'z' {
			return int(l-'a') + 1, nil
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%q is not an option letter or number", s)
	}
	return n, nil
}
