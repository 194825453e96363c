package test

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	"github.com/ory/dockertest/v3"
	"github.com/stretchr/testify/require"

	v1 "taskflow/internal/api/v1"
	"taskflow/internal/config"
	"taskflow/internal/middleware"
	"taskflow/internal/repository"
	"taskflow/internal/store"
	"taskflow/pkg/logger"
	"taskflow/pkg/mailer"
	"taskflow/pkg/totp"
)

var testDB *sql.DB

// TestMain menjalankan postgres + redis sekali pakai lewat dockertest,
// lalu menyiapkan dependency global seperti di main.
func TestMain(m *testing.M) {
	logger.InitLoggers("logs")
	defer logger.SyncLoggers()

	os.Setenv("GO_ENV", "test")

	pool, err := dockertest.NewPool("")
	if err != nil {
		log.Fatalf("Could not connect to docker: %v", err)
	}

	pgRes, err := pool.Run("postgres", "15-alpine", []string{
		"POSTGRES_USER=taskflow",
		"POSTGRES_PASSWORD=taskflow",
		"POSTGRES_DB=taskflow_test",
	})
	if err != nil {
		log.Fatalf("Could not start postgres: %v", err)
	}

	redisRes, err := pool.Run("redis", "7-alpine", nil)
	if err != nil {
		log.Fatalf("Could not start redis: %v", err)
	}

	if err := pool.Retry(func() error {
		var err error
		testDB, err = sql.Open("postgres", fmt.Sprintf(
			"host=localhost port=%s user=taskflow password=taskflow dbname=taskflow_test sslmode=disable",
			pgRes.GetPort("5432/tcp")))
		if err != nil {
			return err
		}
		return testDB.Ping()
	}); err != nil {
		log.Fatalf("Could not connect to postgres container: %v", err)
	}

	config.RedisClient = redis.NewClient(&redis.Options{
		Addr: "localhost:" + redisRes.GetPort("6379/tcp"),
	})
	if err := pool.Retry(func() error {
		return config.RedisClient.Ping(config.Ctx).Err()
	}); err != nil {
		log.Fatalf("Could not connect to redis container: %v", err)
	}

	repository.CreateTableIfNotExists(testDB)

	config.Store = store.New(testDB)
	// Noop mailer: kode TOTP dihitung langsung dari secret di database
	config.Mailer = mailer.Noop{}

	code := m.Run()

	repository.DeleteAllTable(testDB)
	testDB.Close()
	config.RedisClient.Close()
	_ = pool.Purge(pgRes)
	_ = pool.Purge(redisRes)

	os.Exit(code)
}

// CreateTestApp menginisialisasi aplikasi Fiber dengan seluruh route API.
func CreateTestApp() *fiber.App {
	app := fiber.New()
	app.Use(middleware.ErrorHandler())
	v1.RegisterRoutes(app)
	return app
}

// doJSON mengirim request JSON (dengan token opsional) ke app test.
func doJSON(t *testing.T, app *fiber.App, method, url, token string, body interface{}) (int, map[string]interface{}) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, url, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var result map[string]interface{}
	_ = json.NewDecoder(resp.Body).Decode(&result)
	return resp.StatusCode, result
}

// RegisterTestUser mendaftarkan user unik dan mengembalikan
// username, email, dan user id-nya.
func RegisterTestUser(t *testing.T, app *fiber.App) (string, string, int) {
	t.Helper()

	username := fmt.Sprintf("user_%d", time.Now().UnixNano())
	email := username + "@example.com"
	status, result := doJSON(t, app, "POST", "/api/v1/register", "", map[string]string{
		"username": username,
		"email":    email,
		"password": "secret123",
	})
	require.Equal(t, 201, status)

	data, ok := result["data"].(map[string]interface{})
	require.True(t, ok, "expected data field in register response")
	return username, email, int(data["id"].(float64))
}

// LoginTestUser menjalankan login dua tahap: password dulu, lalu kode
// TOTP yang dihitung dari secret di database (mailer test adalah Noop).
func LoginTestUser(t *testing.T, app *fiber.App, email string) string {
	t.Helper()

	status, _ := doJSON(t, app, "POST", "/api/v1/login", "", map[string]string{
		"email":    email,
		"password": "secret123",
	})
	require.Equal(t, 200, status)

	user, err := config.Store.GetUserByEmail(config.Ctx, email)
	require.NoError(t, err)
	require.True(t, user.TotpSecret.Valid)

	code, err := totp.CurrentCode(user.TotpSecret.String)
	require.NoError(t, err)

	status, result := doJSON(t, app, "POST", "/api/v1/login/verify", "", map[string]string{
		"email": email,
		"code":  code,
	})
	require.Equal(t, 200, status)

	data, ok := result["data"].(map[string]interface{})
	require.True(t, ok, "expected data field in verify response")
	token, ok := data["token"].(string)
	require.True(t, ok)
	require.NotEmpty(t, token)
	return token
}

// CreateTestMember mendaftarkan user baru sekaligus login-nya.
func CreateTestMember(t *testing.T, app *fiber.App) (string, string, int) {
	t.Helper()
	username, email, id := RegisterTestUser(t, app)
	token := LoginTestUser(t, app, email)
	return username, token, id
}
