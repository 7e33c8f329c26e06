package resolver

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-gatekeeper/internal/models"
)

// fakeLookup serves passes from memory and reports misses the way the bun
// layer does, with sql.ErrNoRows.
type fakeLookup struct {
	byCode map[string]*models.Pass
	byID   map[string]*models.Pass
}

func (f *fakeLookup) GetPassByCode(ctx context.Context, code string) (*models.Pass, error) {
	if p, ok := f.byCode[code]; ok {
		return p, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeLookup) GetPassByID(ctx context.Context, id string) (*models.Pass, error) {
	if p, ok := f.byID[id]; ok {
		return p, nil
	}
	return nil, sql.ErrNoRows
}

func newFakeLookup(passes ...*models.Pass) *fakeLookup {
	f := &fakeLookup{
		byCode: make(map[string]*models.Pass),
		byID:   make(map[string]*models.Pass),
	}
	for _, p := range passes {
		f.byCode[p.PassCode] = p
		f.byID[p.ID] = p
	}
	return f
}

func TestResolveDirectLookup(t *testing.T) {
	pass := &models.Pass{ID: "pass-1", PassCode: "PASS-123"}
	r := New(newFakeLookup(pass), "")

	got, err := r.Resolve(context.Background(), "PASS-123")
	require.NoError(t, err)
	assert.Equal(t, "pass-1", got.ID)
}

func TestResolveEmptyCode(t *testing.T) {
	r := New(newFakeLookup(), "")

	_, err := r.Resolve(context.Background(), "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolveUnknownCodeWithoutLegacyKey(t *testing.T) {
	r := New(newFakeLookup(), "")
	assert.False(t, r.LegacyEnabled())

	_, err := r.Resolve(context.Background(), "no-such-code")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolveLegacyPayloadByCode(t *testing.T) {
	pass := &models.Pass{ID: "pass-1", PassCode: "PASS-123"}
	r := New(newFakeLookup(pass), "legacy-secret")
	require.True(t, r.LegacyEnabled())

	encoded, err := EncodeLegacyPayload("legacy-secret", "PASS-123")
	require.NoError(t, err)

	got, err := r.Resolve(context.Background(), encoded)
	require.NoError(t, err)
	assert.Equal(t, "pass-1", got.ID)
}

func TestResolveLegacyPayloadWrongKey(t *testing.T) {
	pass := &models.Pass{ID: "pass-1", PassCode: "PASS-123"}
	r := New(newFakeLookup(pass), "another-secret")

	encoded, err := EncodeLegacyPayload("legacy-secret", "PASS-123")
	require.NoError(t, err)

	// Decrypts to garbage under the wrong key, which must read as unknown.
	_, err = r.Resolve(context.Background(), encoded)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolveMalformedLegacyPayload(t *testing.T) {
	r := New(newFakeLookup(), "legacy-secret")

	_, err := r.Resolve(context.Background(), "not-base64-%%%")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolveLegacyPayloadUnknownPass(t *testing.T) {
	r := New(newFakeLookup(), "legacy-secret")

	encoded, err := EncodeLegacyPayload("legacy-secret", "PASS-GONE")
	require.NoError(t, err)

	_, err = r.Resolve(context.Background(), encoded)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLegacyRoundTrip(t *testing.T) {
	key := normalizeKey("some-passphrase")

	encoded, err := encryptAES([]byte(`{"pass_code":"PASS-9"}`), key)
	require.NoError(t, err)

	decoded, err := decryptAES(encoded, key)
	require.NoError(t, err)
	assert.JSONEq(t, `{"pass_code":"PASS-9"}`, string(decoded))
}
