package main

import (
	"context"
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"

	"github.com/recifedata/crimecast/internal/app"
)

// initServices validates the configuration for mode and builds the
// services. Callers should defer svc.Close().
func initServices(ctx context.Context, mode string, opts app.Options) (*app.Services, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	svc, err := app.Bootstrap(ctx, cfg, opts)
	if err != nil {
		return nil, eris.Wrap(err, "bootstrap")
	}
	return svc, nil
}

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(v), "encode output")
}
