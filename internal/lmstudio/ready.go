package lmstudio

import (
	"context"
	"slices"

	"github.com/rs/zerolog/log"

	"github.com/jxmullins/lmsready/internal/config"
)

// Listing is the outcome of the model-listing step of a readiness check.
// A non-nil Err is advisory: the check continues without blocking the
// caller, and the model state is left undetermined.
type Listing struct {
	Models []string
	Err    error
}

// OK reports whether the listing was obtained.
func (l Listing) OK() bool {
	return l.Err == nil
}

// Has reports whether model is in a successful listing.
func (l Listing) Has(model string) bool {
	return l.OK() && slices.Contains(l.Models, model)
}

func (c *Client) listing(ctx context.Context) Listing {
	models, err := c.ListModels(ctx)
	if err != nil {
		return Listing{Err: err}
	}
	return Listing{Models: models}
}

// Result describes a completed readiness check.
type Result struct {
	Model      string
	Listing    Listing
	Downloaded bool
	// Declined is set when the Confirm hook refused the download.
	Declined bool
}

// Ensurer runs readiness checks. Nil Locate and Runner fall back to
// LocateBinary and ExecRunner.
type Ensurer struct {
	// HomeDir overrides the home directory used to locate lms.
	HomeDir string

	// Locate finds the lms CLI.
	Locate func(homeDir string) (string, error)

	// Runner spawns the lms CLI.
	Runner Runner

	// Confirm, when set, is asked before downloading a missing model.
	Confirm func(model string) (bool, error)
}

// NewEnsurer returns an Ensurer that locates lms on this machine and runs
// it with the process's stdout and stderr.
func NewEnsurer() *Ensurer {
	return &Ensurer{
		Locate: LocateBinary,
		Runner: ExecRunner{},
	}
}

// EnsureReady runs a readiness check with the default Ensurer.
func EnsureReady(ctx context.Context, cfg *config.Config) (*Result, error) {
	return NewEnsurer().EnsureReady(ctx, cfg)
}

// EnsureReady verifies the LM Studio server is reachable and that the
// configured model is available, downloading it with lms when it is not.
// Failing to list models is logged and does not fail the check.
func (e *Ensurer) EnsureReady(ctx context.Context, cfg *config.Config) (*Result, error) {
	client, err := NewClientFromConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	model := cfg.ResolveModel("")
	result := &Result{Model: model}

	result.Listing = client.listing(ctx)
	if !result.Listing.OK() {
		// Not fatal; higher layers may still proceed and surface errors later.
		log.Warn().Err(result.Listing.Err).Str("base_url", client.BaseURL()).Msg("Failed to query local models from LM Studio")
		return result, nil
	}

	if result.Listing.Has(model) {
		log.Debug().Str("model", model).Msg("Model already available")
		return result, nil
	}

	if e.Confirm != nil {
		ok, err := e.Confirm(model)
		if err != nil {
			return nil, err
		}
		if !ok {
			result.Declined = true
			return result, nil
		}
	}

	locate := e.Locate
	if locate == nil {
		locate = LocateBinary
	}
	binary, err := locate(e.HomeDir)
	if err != nil {
		return nil, err
	}

	runner := e.Runner
	if runner == nil {
		runner = ExecRunner{}
	}

	log.Info().Str("model", model).Str("lms", binary).Msg("Downloading model")
	if err := runner.Run(ctx, binary, "get", "--yes", model); err != nil {
		return nil, err
	}

	log.Info().Str("model", model).Msg("Successfully downloaded model")
	result.Downloaded = true

	return result, nil
}
