package store

import (
	"context"
	"errors"

	"outreach/internal/operation"
)

// Settings keys.
const (
	KeySelectedOperation = "selectedOperation"
	KeyOperationConfigs  = "operationConfigs"
	KeyLastResult        = "lastResult"
)

// Settings reads and writes operation settings on top of a KV.
type Settings struct {
	kv KV
}

// NewSettings wraps kv.
func NewSettings(kv KV) *Settings {
	return &Settings{kv: kv}
}

// SelectedOperation returns the chosen operation, defaulting to connect.
func (s *Settings) SelectedOperation(ctx context.Context) (operation.ID, error) {
	var id string
	err := s.kv.Get(ctx, KeySelectedOperation, &id)
	if errors.Is(err, ErrNotFound) || (err == nil && id == "") {
		return operation.Connect, nil
	}
	if err != nil {
		return "", err
	}
	return operation.ID(id), nil
}

// OperationConfigs returns the raw stored configs keyed by operation id.
func (s *Settings) OperationConfigs(ctx context.Context) (map[string]map[string]any, error) {
	configs := map[string]map[string]any{}
	err := s.kv.Get(ctx, KeyOperationConfigs, &configs)
	if errors.Is(err, ErrNotFound) {
		return map[string]map[string]any{}, nil
	}
	if err != nil {
		return nil, err
	}
	return configs, nil
}

// OperationConfig returns the raw stored config for id, or nil if none.
func (s *Settings) OperationConfig(ctx context.Context, id operation.ID) (map[string]any, error) {
	configs, err := s.OperationConfigs(ctx)
	if err != nil {
		return nil, err
	}
	return configs[string(id)], nil
}

// SaveOperationConfig stores values for id and makes id the selected operation.
func (s *Settings) SaveOperationConfig(ctx context.Context, id operation.ID, values map[string]any) error {
	configs, err := s.OperationConfigs(ctx)
	if err != nil {
		return err
	}
	configs[string(id)] = values
	if err := s.kv.Set(ctx, KeyOperationConfigs, configs); err != nil {
		return err
	}
	return s.kv.Set(ctx, KeySelectedOperation, string(id))
}

// SaveLastResult stores the latest command result.
func (s *Settings) SaveLastResult(ctx context.Context, result any) error {
	return s.kv.Set(ctx, KeyLastResult, result)
}

// LastResult decodes the latest command result into dst.
// It returns ErrNotFound when nothing has been recorded.
func (s *Settings) LastResult(ctx context.Context, dst any) error {
	return s.kv.Get(ctx, KeyLastResult, dst)
}
