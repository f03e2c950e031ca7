package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/phrazzld/scry-local/internal/domain/ranking"
	"github.com/phrazzld/scry-local/internal/review"
)

const reviewHelp = `keys: f flip, h hit, m miss, n next, p previous, s save, e export, q quit, ? help`

func newReviewCmd(a *app) *cobra.Command {
	var exportPath string

	cmd := &cobra.Command{
		Use:   "review",
		Short: "Review cards interactively",
		Long: `Review shows one card at a time and reads one key per line:

  f  flip the card          n  next card without a verdict
  h  hit (you knew it)      p  previous card
  m  miss (you did not)     s  save now
  e  export the session     q  quit

Misses make a card come up more often, hits less often. Verdicts are saved
after every answer unless review.autosave is off. If another process changed
the card store in the meantime, the save is refused and the session becomes
read-only: export it with "e" to keep your progress.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.review(cmd.Context(), exportPath)
		},
	}

	cmd.Flags().StringVar(&exportPath, "export-file", "scry-export.json", "file written by the e key")
	return cmd
}

func (a *app) review(ctx context.Context, exportPath string) error {
	params, err := ranking.NewParams(ranking.ParamsConfig{
		Policy:  a.cfg.Review.Policy,
		Reverse: a.cfg.Review.Reverse,
	})
	if err != nil {
		return err
	}

	session, err := review.Start(ctx, a.store, ranking.NewSelectorWithParams(params, nil), review.Options{
		ExclusionWindow: a.cfg.Review.ExclusionWindow,
		Autosave:        a.cfg.Review.Autosave,
		Reverse:         a.cfg.Review.Reverse,
	}, a.logger)
	if err != nil {
		return err
	}

	if _, _, err := session.Card(); errors.Is(err, ranking.ErrEmptySet) {
		_, _ = fmt.Fprintln(a.stdout, "no cards to review; add some with `scry import FILE` or `scry init`")
		return nil
	}

	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	externalChange := a.watchStore(watchCtx)

	l := &reviewLoop{
		app:            a,
		session:        session,
		exportPath:     exportPath,
		externalChange: externalChange,
		interactive:    isTerminal(a.stdin),
	}
	return l.run(ctx)
}

// watchStore flags external writes to the file backend. The flag only
// prompts a tag comparison; the guard still decides at commit time.
func (a *app) watchStore(ctx context.Context) *atomic.Bool {
	changed := &atomic.Bool{}
	if a.file == nil || !a.cfg.Review.Watch {
		return changed
	}

	events, err := a.file.Watch(ctx)
	if err != nil {
		a.logger.Warn("cannot watch card store for external changes", slog.String("error", err.Error()))
		return changed
	}
	go func() {
		for range events {
			changed.Store(true)
		}
	}()
	return changed
}

type reviewLoop struct {
	app            *app
	session        *review.Session
	exportPath     string
	externalChange *atomic.Bool
	interactive    bool
	warned         bool
}

func (l *reviewLoop) run(ctx context.Context) error {
	out := l.app.stdout
	if l.interactive {
		_, _ = fmt.Fprintln(out, reviewHelp)
	}
	l.show()

	scanner := bufio.NewScanner(l.app.stdin)
	for {
		if l.interactive {
			_, _ = fmt.Fprint(out, "> ")
		}
		if !scanner.Scan() {
			break
		}
		l.checkExternal(ctx)

		quit, err := l.handle(ctx, strings.TrimSpace(scanner.Text()))
		if err != nil {
			return err
		}
		if quit {
			return l.finish(ctx)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	return l.finish(ctx)
}

// handle applies one input line and reports whether the loop should end.
// Errors are returned only when they end the review.
func (l *reviewLoop) handle(ctx context.Context, key string) (bool, error) {
	out := l.app.stdout
	s := l.session

	switch key {
	case "":
		return false, nil
	case "q":
		return true, nil
	case "?":
		_, _ = fmt.Fprintln(out, reviewHelp)
		return false, nil
	case "f":
		s.Flip()
	case "n":
		if err := s.Next(); err != nil {
			return false, err
		}
	case "p":
		if !s.Prev() {
			_, _ = fmt.Fprintln(out, "no previous card")
			return false, nil
		}
	case "h", "m":
		if err := s.Answer(ctx, key == "h"); err != nil {
			if errors.Is(err, review.ErrReadOnly) {
				_, _ = fmt.Fprintln(out, "read-only: verdicts are no longer recorded; press e to export or q to quit")
				return false, nil
			}
			if s.Halted() != nil {
				l.reportHalt()
				return false, nil
			}
			return false, err
		}
	case "s":
		if err := s.Save(ctx); err != nil {
			if s.Halted() != nil {
				l.reportHalt()
				return false, nil
			}
			return false, err
		}
		_, _ = fmt.Fprintln(out, "saved")
		return false, nil
	case "e":
		l.export()
		return false, nil
	default:
		_, _ = fmt.Fprintf(out, "unknown key %q (? for help)\n", key)
		return false, nil
	}

	l.show()
	return false, nil
}

func (l *reviewLoop) show() {
	text, err := l.session.Visible()
	if err != nil {
		return
	}
	card, index, _ := l.session.Card()
	side := "front"
	if l.session.Face() == review.FaceBack {
		side = "back"
	}
	_, _ = fmt.Fprintf(l.app.stdout, "[%d %s, %d/%d] %s\n", index, side, card.Hits, card.Hits+card.Misses, text)
}

func (l *reviewLoop) export() {
	data, err := l.session.Export()
	if err == nil {
		err = writeOutput(l.app.stdout, l.exportPath, data)
	}
	if err != nil {
		_, _ = fmt.Fprintf(l.app.stdout, "export failed: %v\n", err)
		return
	}
	_, _ = fmt.Fprintf(l.app.stdout, "exported %d cards to %s\n", l.session.Set().Len(), l.exportPath)
}

func (l *reviewLoop) reportHalt() {
	_, _ = fmt.Fprintln(l.app.stdout, "save refused: the card store changed since this session loaded it.")
	_, _ = fmt.Fprintln(l.app.stdout, "The session is now read-only. Press e to export your progress, q to quit.")
}

func (l *reviewLoop) checkExternal(ctx context.Context) {
	if l.warned || !l.externalChange.Swap(false) {
		return
	}
	changed, err := l.session.CheckExternal(ctx)
	if err != nil || !changed {
		return
	}
	l.warned = true
	_, _ = fmt.Fprintln(l.app.stdout, "warning: the card store was changed by another program; your next save will be refused.")
}

// finish saves pending verdicts and reports a halted session as an error so
// the process exits with the fatal status.
func (l *reviewLoop) finish(ctx context.Context) error {
	if halted := l.session.Halted(); halted != nil {
		return halted
	}
	return l.session.Save(ctx)
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
