package test

import (
	"encoding/base64"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/argon2"

	"taskflow/internal/config"
	"taskflow/internal/models"
	"taskflow/pkg/crypto"
	"taskflow/pkg/totp"
)

func TestRegister(t *testing.T) {
	app := CreateTestApp()

	username := fmt.Sprintf("register_%d", time.Now().UnixNano())
	status, result := doJSON(t, app, "POST", "/api/v1/register", "", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "secret123",
	})
	require.Equal(t, 201, status)
	require.NotNil(t, result["data"])
}

func TestRegisterDuplicateUsername(t *testing.T) {
	app := CreateTestApp()

	username, _, _ := RegisterTestUser(t, app)

	// Username sama, email beda: harus 409
	status, _ := doJSON(t, app, "POST", "/api/v1/register", "", map[string]string{
		"username": username,
		"email":    fmt.Sprintf("other_%d@example.com", time.Now().UnixNano()),
		"password": "secret123",
	})
	require.Equal(t, 409, status)
}

func TestRegisterInvalidInput(t *testing.T) {
	app := CreateTestApp()

	// Username dengan karakter terlarang
	status, _ := doJSON(t, app, "POST", "/api/v1/register", "", map[string]string{
		"username": "bad@name",
		"email":    "badname@example.com",
		"password": "secret123",
	})
	require.Equal(t, 400, status)

	// Password terlalu pendek
	status, _ = doJSON(t, app, "POST", "/api/v1/register", "", map[string]string{
		"username": "shortpass",
		"email":    "shortpass@example.com",
		"password": "abc",
	})
	require.Equal(t, 400, status)
}

func TestLoginTwoStep(t *testing.T) {
	app := CreateTestApp()

	_, email, userID := RegisterTestUser(t, app)

	// Tahap 1: password benar, kode terkirim (belum ada token)
	status, result := doJSON(t, app, "POST", "/api/v1/login", "", map[string]string{
		"email":    email,
		"password": "secret123",
	})
	require.Equal(t, 200, status)
	require.Nil(t, result["data"])

	// Tahap 2: kode TOTP dihitung dari secret yang tersimpan
	user, err := config.Store.GetUserByEmail(config.Ctx, email)
	require.NoError(t, err)
	require.True(t, user.TotpSecret.Valid)

	code, err := totp.CurrentCode(user.TotpSecret.String)
	require.NoError(t, err)

	status, result = doJSON(t, app, "POST", "/api/v1/login/verify", "", map[string]string{
		"email": email,
		"code":  code,
	})
	require.Equal(t, 200, status)
	data := result["data"].(map[string]interface{})
	require.NotEmpty(t, data["token"])

	// Login sukses harus set presence ONLINE
	statuses, err := config.Store.GetAllStatuses(config.Ctx)
	require.NoError(t, err)
	found := false
	for _, p := range statuses {
		if p.UserID == userID {
			found = true
			require.Equal(t, models.StatusOnline, p.Status)
		}
	}
	require.True(t, found)
}

// legacyArgonHash membuat hash valid untuk plaintext tapi dengan
// parameter memory lama, sehingga NeedsRehash mengembalikan true.
func legacyArgonHash(t *testing.T, plaintext string) string {
	t.Helper()

	salt := []byte("legacy-salt-16by")
	digest := argon2.IDKey([]byte(plaintext), salt, 3, 32768, 2, 32)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, 32768, 3, 2,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(digest))
}

func storedPasswordHash(t *testing.T, email string) string {
	t.Helper()

	var hash string
	err := testDB.QueryRow("SELECT password FROM users WHERE email = $1", email).Scan(&hash)
	require.NoError(t, err)
	return hash
}

func TestLoginUpgradesOutdatedHash(t *testing.T) {
	app := CreateTestApp()

	_, email, _ := RegisterTestUser(t, app)

	// Timpa password dengan hash berparameter usang
	legacy := legacyArgonHash(t, "secret123")
	_, err := testDB.Exec("UPDATE users SET password = $1 WHERE email = $2", legacy, email)
	require.NoError(t, err)
	require.True(t, crypto.NeedsRehash(legacy))

	// Password salah: login gagal dan hash tidak boleh tersentuh
	status, _ := doJSON(t, app, "POST", "/api/v1/login", "", map[string]string{
		"email":    email,
		"password": "wrong-password",
	})
	require.Equal(t, 401, status)
	require.Equal(t, legacy, storedPasswordHash(t, email))

	// Password benar: login sukses dan hash di-upgrade diam-diam
	status, _ = doJSON(t, app, "POST", "/api/v1/login", "", map[string]string{
		"email":    email,
		"password": "secret123",
	})
	require.Equal(t, 200, status)

	upgraded := storedPasswordHash(t, email)
	require.NotEqual(t, legacy, upgraded)
	require.False(t, crypto.NeedsRehash(upgraded))

	ok, err := crypto.VerifyPassword(upgraded, "secret123")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestLoginWrongPassword(t *testing.T) {
	app := CreateTestApp()

	_, email, _ := RegisterTestUser(t, app)

	status, _ := doJSON(t, app, "POST", "/api/v1/login", "", map[string]string{
		"email":    email,
		"password": "wrong-password",
	})
	require.Equal(t, 401, status)
}

func TestLoginUnknownEmail(t *testing.T) {
	app := CreateTestApp()

	status, _ := doJSON(t, app, "POST", "/api/v1/login", "", map[string]string{
		"email":    "nobody@example.com",
		"password": "secret123",
	})
	require.Equal(t, 401, status)
}

func TestVerifyLoginWrongCode(t *testing.T) {
	app := CreateTestApp()

	_, email, _ := RegisterTestUser(t, app)

	// Minta kode dulu supaya secret dibuat
	status, _ := doJSON(t, app, "POST", "/api/v1/login", "", map[string]string{
		"email":    email,
		"password": "secret123",
	})
	require.Equal(t, 200, status)

	status, _ = doJSON(t, app, "POST", "/api/v1/login/verify", "", map[string]string{
		"email": email,
		"code":  "000000",
	})
	require.Equal(t, 401, status)
}

func TestTotpSecretNotRegenerated(t *testing.T) {
	app := CreateTestApp()

	_, email, _ := RegisterTestUser(t, app)

	first, err := config.Store.GetOrCreateTotpSecret(config.Ctx, email)
	require.NoError(t, err)
	second, err := config.Store.GetOrCreateTotpSecret(config.Ctx, email)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestLogout(t *testing.T) {
	app := CreateTestApp()

	_, email, userID := RegisterTestUser(t, app)
	token := LoginTestUser(t, app, email)

	status, _ := doJSON(t, app, "POST", "/api/v1/logout", token, nil)
	require.Equal(t, 200, status)

	statuses, err := config.Store.GetAllStatuses(config.Ctx)
	require.NoError(t, err)
	for _, p := range statuses {
		if p.UserID == userID {
			require.Equal(t, models.StatusOffline, p.Status)
		}
	}
}

func TestProtectedRouteWithoutToken(t *testing.T) {
	app := CreateTestApp()

	status, _ := doJSON(t, app, "GET", "/api/v1/users/", "", nil)
	require.Equal(t, 401, status)
}
