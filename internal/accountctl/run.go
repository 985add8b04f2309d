package accountctl

import (
	"context"
	"errors"
	"fmt"
	"io"
)

var ErrUsage = errors.New("usage: accountctl [-d dsn] disable|enable|set-password <username> | purge-stale")

// Run executes one command given as positional args.
func Run(ctx context.Context, a *Admin, args []string, w io.Writer) error {
	if len(args) == 0 {
		return ErrUsage
	}

	cmd, rest := args[0], args[1:]
	if cmd == "purge-stale" {
		if len(rest) != 0 {
			return ErrUsage
		}
		n, err := a.PurgeStale(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "purged %d stale signup(s)\n", n)
		return nil
	}

	if len(rest) != 1 {
		return ErrUsage
	}
	username := rest[0]

	switch cmd {
	case "disable":
		if err := a.Disable(ctx, username); err != nil {
			return err
		}
		fmt.Fprintf(w, "%s disabled\n", username)
	case "enable":
		if err := a.Enable(ctx, username); err != nil {
			return err
		}
		fmt.Fprintf(w, "%s enabled\n", username)
	case "set-password":
		pw, err := ReadNewPassword(w)
		if err != nil {
			return err
		}
		if err := a.SetPassword(ctx, username, pw); err != nil {
			return err
		}
		fmt.Fprintf(w, "password of %s updated\n", username)
	default:
		return ErrUsage
	}
	return nil
}
