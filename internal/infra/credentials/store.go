package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"storystudio/internal/infra"
	"storystudio/internal/sqlinline"
)

const (
	// ProviderTrigger names the executor webhook token row.
	ProviderTrigger = "n8n"
)

// Store reads and writes integration tokens kept in the database, used when the
// environment does not carry them.
type Store struct {
	sql infra.SQLExecutor
}

func NewStore(sql infra.SQLExecutor) *Store {
	return &Store{sql: sql}
}

// TriggerToken returns the bearer token for the executor webhook, or "" when none is stored.
func (s *Store) TriggerToken(ctx context.Context) (string, error) {
	return s.Token(ctx, ProviderTrigger)
}

func (s *Store) Token(ctx context.Context, provider string) (string, error) {
	row := s.sql.QueryRow(ctx, sqlinline.QSelectIntegrationToken, provider)
	var token string
	if err := row.Scan(&token); err != nil {
		if infra.IsNoRows(err) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(token), nil
}

func (s *Store) SetTriggerToken(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("trigger token is required")
	}
	return s.upsert(ctx, ProviderTrigger, token, nil)
}

func (s *Store) upsert(ctx context.Context, provider, token string, props map[string]any) error {
	payload := props
	if payload == nil {
		payload = map[string]any{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = s.sql.Exec(ctx, sqlinline.QUpsertIntegrationToken, provider, token, raw)
	return err
}
