package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/imamik/pvecfg/internal/resource"
	"github.com/imamik/pvecfg/internal/state"
)

func openStateOnly(ctx context.Context, opts GlobalOptions) (state.Store, error) {
	cfg, err := resolveConfig(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	store, err := openStore(ctx, stateOptions(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open state: %w", err)
	}
	return store, nil
}

// StateList prints every reconciliation record.
func StateList(ctx context.Context, opts GlobalOptions) error {
	store, err := openStateOnly(ctx, opts)
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list state: %w", err)
	}
	if len(records) == 0 {
		fmt.Fprintln(stdout, "No records.")
		return nil
	}
	fmt.Fprintln(stdout, renderRecords(records))
	return nil
}

// StateRemove forgets the records named by args, each written as kind/id.
// The resources on the cluster are left untouched.
func StateRemove(ctx context.Context, opts GlobalOptions, args []string) error {
	keys := make([]resource.Key, 0, len(args))
	for _, arg := range args {
		key, err := parseKey(arg)
		if err != nil {
			return err
		}
		keys = append(keys, key)
	}

	store, err := openStateOnly(ctx, opts)
	if err != nil {
		return err
	}
	defer store.Close()

	var errs []error
	for _, key := range keys {
		if _, err := store.Get(ctx, key); err != nil {
			if errors.Is(err, state.ErrNotFound) {
				errs = append(errs, fmt.Errorf("no record for %s", key))
				continue
			}
			errs = append(errs, fmt.Errorf("failed to read %s: %w", key, err))
			continue
		}
		if err := store.Delete(ctx, key); err != nil {
			errs = append(errs, fmt.Errorf("failed to remove %s: %w", key, err))
			continue
		}
		log.Info().Str("resource", key.String()).Msg("Removed record")
		fmt.Fprintf(stdout, "Removed %s\n", key)
	}
	return errors.Join(errs...)
}

func parseKey(s string) (resource.Key, error) {
	kindName, id, ok := strings.Cut(s, "/")
	if !ok || id == "" {
		return resource.Key{}, fmt.Errorf("invalid resource %q: expected kind/id", s)
	}
	kind, err := resource.ParseKind(kindName)
	if err != nil {
		return resource.Key{}, err
	}
	return resource.Key{Kind: kind, ID: id}, nil
}
