package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/phrazzld/scry-local/internal/cardjson"
	"github.com/phrazzld/scry-local/internal/domain/ranking"
	"github.com/phrazzld/scry-local/internal/store"
)

// Exit codes.
const (
	exitOK    = 0
	exitError = 1
	// exitFatal reports a concurrent modification or corrupt data: the store
	// needs the user's attention before anything else is written.
	exitFatal = 2
)

// reportError prints a user-facing message for err and returns the exit code.
func reportError(w io.Writer, err error) int {
	if err == nil {
		return exitOK
	}

	var validation *cardjson.ValidationError
	switch {
	case errors.Is(err, store.ErrConcurrentModification):
		_, _ = fmt.Fprintln(w, "error: the card store was changed by another program since it was loaded; nothing was written.")
		_, _ = fmt.Fprintln(w, "Export your session if needed, then start again to pick up the other changes.")
		_, _ = fmt.Fprintf(w, "details: %v\n", err)
		return exitFatal
	case errors.Is(err, store.ErrCorruptData):
		_, _ = fmt.Fprintln(w, "error: the card store holds data that cannot be read.")
		_, _ = fmt.Fprintln(w, "Fix the file by hand, or run `scry reset --yes` to discard it and start empty.")
		_, _ = fmt.Fprintf(w, "details: %v\n", err)
		return exitFatal
	case errors.As(err, &validation):
		_, _ = fmt.Fprintf(w, "error: invalid card data: %v\n", validation)
		return exitError
	case errors.Is(err, ranking.ErrEmptySet):
		_, _ = fmt.Fprintln(w, "error: there are no cards; add some with `scry import FILE` or `scry init`.")
		return exitError
	default:
		_, _ = fmt.Fprintf(w, "error: %v\n", err)
		return exitError
	}
}
