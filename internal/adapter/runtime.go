package adapter

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"outreach/internal/logging"

	"github.com/go-rod/rod"
)

// Runtime executes named DOM functions inside a page. Arguments and results
// travel as JSON.
type Runtime interface {
	Call(ctx context.Context, fn string, args ...any) (json.RawMessage, error)
}

// Function names understood by the installed page bundle.
const (
	fnSnapshot        = "snapshot"
	fnStamp           = "stamp"
	fnCardExists      = "cardExists"
	fnClickConnect    = "clickConnect"
	fnClickPrompt     = "clickPrompt"
	fnModalPresent    = "modalPresent"
	fnModalClick      = "modalClick"
	fnModalClickText  = "modalClickText"
	fnModalFill       = "modalFill"
	fnInspect         = "inspect"
	fnInspectText     = "inspectTextPrefix"
	fnClick           = "click"
	fnClickTextPrefix = "clickTextPrefix"
)

// ErrNotInstalled is returned when the page script is missing from the page
// and could not be reinstalled.
var ErrNotInstalled = errors.New("adapter: page script not installed")

//go:embed page.js
var pageScript string

const callJS = `(fn, args) => {
	const api = window.__outreach;
	if (!api) return { missing: true };
	if (typeof api[fn] !== "function") return { error: "unknown function " + fn };
	return Promise.resolve(api[fn](...args)).then((v) => ({ value: v === undefined ? null : v }));
}`

type callEnvelope struct {
	Missing bool            `json:"missing"`
	Error   string          `json:"error"`
	Value   json.RawMessage `json:"value"`
}

// RodRuntime runs page functions in a go-rod page.
type RodRuntime struct {
	page *rod.Page
	mu   sync.Mutex
}

// NewRodRuntime binds a runtime to page. Call Install before the first Call.
func NewRodRuntime(page *rod.Page) *RodRuntime {
	return &RodRuntime{page: page}
}

// Install defines window.__outreach in the page.
func (r *RodRuntime) Install(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, err := r.page.Context(ctx).Evaluate(&rod.EvalOptions{
		JS:           pageScript,
		ByValue:      true,
		AwaitPromise: true,
	})
	if err != nil || res == nil {
		return fmt.Errorf("install page script: %w", err)
	}
	if !res.Value.Bool() {
		return ErrNotInstalled
	}
	logging.AdapterDebug("page script installed")
	return nil
}

// Call runs fn with args. A page that navigated away from the installed
// document gets the bundle reinstalled once.
func (r *RodRuntime) Call(ctx context.Context, fn string, args ...any) (json.RawMessage, error) {
	env, err := r.call(ctx, fn, args)
	if err != nil {
		return nil, err
	}
	if env.Missing {
		logging.AdapterDebug("page script missing before %s, reinstalling", fn)
		if err := r.Install(ctx); err != nil {
			return nil, err
		}
		if env, err = r.call(ctx, fn, args); err != nil {
			return nil, err
		}
		if env.Missing {
			return nil, ErrNotInstalled
		}
	}
	if env.Error != "" {
		return nil, fmt.Errorf("%s: %s", fn, env.Error)
	}
	return env.Value, nil
}

func (r *RodRuntime) call(ctx context.Context, fn string, args []any) (callEnvelope, error) {
	if args == nil {
		args = []any{}
	}
	res, err := r.page.Context(ctx).Evaluate(&rod.EvalOptions{
		JS:           callJS,
		JSArgs:       []interface{}{fn, args},
		ByValue:      true,
		AwaitPromise: true,
	})
	if err != nil || res == nil {
		return callEnvelope{}, fmt.Errorf("call %s failed: %w", fn, err)
	}
	raw, err := res.Value.MarshalJSON()
	if err != nil {
		return callEnvelope{}, fmt.Errorf("marshal %s result: %w", fn, err)
	}
	var env callEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return callEnvelope{}, fmt.Errorf("decode %s result: %w", fn, err)
	}
	return env, nil
}

func callInto(ctx context.Context, rt Runtime, dst any, fn string, args ...any) error {
	raw, err := rt.Call(ctx, fn, args...)
	if err != nil {
		return err
	}
	if len(raw) == 0 {
		return fmt.Errorf("%s returned nothing", fn)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode %s: %w", fn, err)
	}
	return nil
}

func callBool(ctx context.Context, rt Runtime, fn string, args ...any) (bool, error) {
	var ok bool
	err := callInto(ctx, rt, &ok, fn, args...)
	return ok, err
}
