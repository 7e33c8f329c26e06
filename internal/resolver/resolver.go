package resolver

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"ms-gatekeeper/internal/models"
)

// ErrNotFound is returned when a scanned code resolves to no known pass.
var ErrNotFound = errors.New("pass not found")

type PassLookup interface {
	GetPassByCode(ctx context.Context, code string) (*models.Pass, error)
	GetPassByID(ctx context.Context, id string) (*models.Pass, error)
}

// legacyPayload is the JSON body of an old encrypted QR code. Either field
// may identify the pass.
type legacyPayload struct {
	PassCode string `json:"pass_code"`
	PassID   string `json:"pass_id"`
}

// Resolver maps a scanned opaque string to a canonical pass record. The
// current scheme is a direct pass_code lookup; older QR codes carried an
// encrypted payload and are still honored when a legacy key is configured.
type Resolver struct {
	db        PassLookup
	legacyKey []byte
}

// New builds a Resolver. An empty legacy key disables the legacy decrypt path;
// resolution of plain codes is unaffected.
func New(db PassLookup, legacyKey string) *Resolver {
	r := &Resolver{db: db}
	if legacyKey != "" {
		r.legacyKey = normalizeKey(legacyKey)
	}
	return r
}

// LegacyEnabled reports whether the legacy decrypt path is active.
func (r *Resolver) LegacyEnabled() bool {
	return r.legacyKey != nil
}

// Resolve looks up the scanned code, trying the direct scheme first and the
// legacy encrypted scheme second. It never mutates anything.
func (r *Resolver) Resolve(ctx context.Context, code string) (*models.Pass, error) {
	if code == "" {
		return nil, ErrNotFound
	}

	pass, err := r.db.GetPassByCode(ctx, code)
	if err == nil {
		return pass, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("pass lookup failed: %w", err)
	}

	if r.legacyKey == nil {
		return nil, ErrNotFound
	}

	decrypted, err := decryptAES(code, r.legacyKey)
	if err != nil {
		// Not a legacy payload, or garbled; treated as an unknown code.
		return nil, ErrNotFound
	}

	var payload legacyPayload
	if err := json.Unmarshal(decrypted, &payload); err != nil {
		return nil, ErrNotFound
	}

	switch {
	case payload.PassCode != "":
		pass, err = r.db.GetPassByCode(ctx, payload.PassCode)
	case payload.PassID != "":
		pass, err = r.db.GetPassByID(ctx, payload.PassID)
	default:
		return nil, ErrNotFound
	}

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("legacy pass lookup failed: %w", err)
	}
	return pass, nil
}

// EncodeLegacyPayload produces an encrypted legacy code for a pass. Issuance
// stopped emitting these, but the offline tooling still needs them to test
// old stock.
func EncodeLegacyPayload(legacyKey, passCode string) (string, error) {
	data, err := json.Marshal(legacyPayload{PassCode: passCode})
	if err != nil {
		return "", err
	}
	return encryptAES(data, normalizeKey(legacyKey))
}
