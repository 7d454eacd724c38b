package app

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"math/big"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julik/signed-params/internal/common/errors"
	"github.com/julik/signed-params/internal/common/retry"
	"github.com/julik/signed-params/internal/config"
	"github.com/julik/signed-params/internal/crypto"
	"github.com/julik/signed-params/internal/middleware"
	"github.com/julik/signed-params/internal/params"
	"github.com/julik/signed-params/internal/signature"
)

func testConfig(source string) *config.Config {
	return &config.Config{
		Port:           "0",
		LogLevel:       "error",
		SaltSource:     source,
		RedisPoolSize:  10,
		RedisKeyPrefix: "signed-params:",
	}
}

func newTestApp(t *testing.T, cfg *config.Config) *App {
	t.Helper()
	require.NoError(t, cfg.Validate())
	app, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(app.Cleanup)
	return app
}

func serve(app *App, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestNew_StaticSalt(t *testing.T) {
	app := newTestApp(t, testConfig("static:_zis_is_mai_sikret"))

	config := app.Keeper.Snapshot()
	require.NotNil(t, config)
	assert.Equal(t, "_zis_is_mai_sikret", config.Salt)
	assert.Equal(t, signature.AlgorithmHMACSHA256, config.Algorithm)
	assert.Nil(t, app.RedisClient)
}

func TestNew_MissingSalt(t *testing.T) {
	t.Setenv("TEST_APP_SALT", "")
	_, err := New(testConfig("env:TEST_APP_SALT"))
	assert.Error(t, err)
}

func TestHealthCheck(t *testing.T) {
	app := newTestApp(t, testConfig("static:s3cret"))

	rec := serve(app, http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "hmac-sha256", body["algorithm"])
	assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))
}

func TestConfirm(t *testing.T) {
	app := newTestApp(t, testConfig("static:s3cret"))

	link, err := app.Links.SignedURL(ConfirmRoute, params.Map{
		"id":        params.Integer(42),
		"send_mail": params.String("yes"),
	})
	require.NoError(t, err)

	t.Run("signed link", func(t *testing.T) {
		rec := serve(app, http.MethodGet, link)
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Confirmed string            `json:"confirmed"`
			Params    map[string]string `json:"params"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "42", body.Confirmed)
		assert.Equal(t, map[string]string{"id": "42", "send_mail": "yes"}, body.Params)
	})

	t.Run("unsigned link", func(t *testing.T) {
		rec := serve(app, http.MethodGet, "/confirm/42?send_mail=yes")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, middleware.NotFoundBody, rec.Body.String())
	})

	t.Run("health is not guarded", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, serve(app, http.MethodGet, "/health").Code)
	})
}

func TestLegacyLinks(t *testing.T) {
	cfg := testConfig("static:foo bastard")
	cfg.Legacy = true
	app := newTestApp(t, cfg)

	assert.Equal(t, signature.AlgorithmHMACSHA1, app.Keeper.Snapshot().Algorithm)

	link, err := app.Links.SignedURL(ConfirmRoute, params.Map{
		"id":   params.Integer(1),
		"tags": params.List{params.String("a")},
	})
	require.NoError(t, err)
	assert.Contains(t, link, "tags%5B%5D=a")
	assert.Equal(t, http.StatusOK, serve(app, http.MethodGet, link).Code)
}

func TestReloadSalt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "salt")
	require.NoError(t, os.WriteFile(path, []byte("first\n"), 0o600))

	app := newTestApp(t, testConfig("file:"+path))

	link, err := app.Links.SignedURL(ConfirmRoute, params.Map{"id": params.Integer(1)})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, serve(app, http.MethodGet, link).Code)

	t.Run("failed reload keeps the salt", func(t *testing.T) {
		require.NoError(t, os.WriteFile(path, []byte("  \n"), 0o600))
		app.reloadSalt("test")
		assert.Equal(t, "first", app.Keeper.Snapshot().Salt)
		assert.Equal(t, http.StatusOK, serve(app, http.MethodGet, link).Code)
	})

	t.Run("new salt invalidates old links", func(t *testing.T) {
		require.NoError(t, os.WriteFile(path, []byte("second\n"), 0o600))
		app.reloadSalt("test")
		assert.Equal(t, "second", app.Keeper.Snapshot().Salt)
		assert.Equal(t, http.StatusNotFound, serve(app, http.MethodGet, link).Code)
	})
}

func TestStartSaltRefresh(t *testing.T) {
	cfg := testConfig("static:s3cret")
	cfg.SaltRefreshSchedule = "@every 1h"
	app := newTestApp(t, cfg)

	require.NoError(t, app.StartSaltRefresh())
	require.NotNil(t, app.scheduler)
	assert.Len(t, app.scheduler.Entries(), 1)

	require.NoError(t, app.Shutdown(context.Background()))
	assert.Nil(t, app.scheduler)
}

func TestRedisSalt(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	require.NoError(t, mr.Set("signed-params:salt", "from-redis"))

	cfg := testConfig("redis:salt")
	cfg.RedisAddress = mr.Addr()
	app := newTestApp(t, cfg)

	require.NotNil(t, app.RedisClient)
	assert.Equal(t, "from-redis", app.Keeper.Snapshot().Salt)

	rec := serve(app, http.MethodGet, "/health")
	assert.Contains(t, rec.Body.String(), `"redis_status":"healthy"`)

	require.NoError(t, mr.Set("signed-params:salt", "rotated"))
	app.reloadSalt("test")
	assert.Equal(t, "rotated", app.Keeper.Snapshot().Salt)
}

func TestEncryptedSalt(t *testing.T) {
	encryptor, err := crypto.NewConfigEncryptor("passphrase")
	require.NoError(t, err)
	sealed, err := encryptor.Encrypt("from-enc")
	require.NoError(t, err)

	cfg := testConfig("enc:" + sealed)
	cfg.EncryptionKey = "passphrase"
	app := newTestApp(t, cfg)

	assert.Equal(t, "from-enc", app.Keeper.Snapshot().Salt)
}

func TestRedisSaltWaitsForStore(t *testing.T) {
	previous := saltRetry
	saltRetry = retry.Config{
		MaxAttempts:   100,
		InitialDelay:  10 * time.Millisecond,
		MaxDelay:      20 * time.Millisecond,
		BackoffFactor: 2.0,
	}
	t.Cleanup(func() { saltRetry = previous })

	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	require.NoError(t, mr.Set("signed-params:salt", "late-redis"))
	mr.Close()

	cfg := testConfig("redis:salt")
	cfg.RedisAddress = mr.Addr()
	require.NoError(t, cfg.Validate())

	type result struct {
		app *App
		err error
	}
	done := make(chan result, 1)
	go func() {
		app, err := New(cfg)
		done <- result{app, err}
	}()

	time.Sleep(100 * time.Millisecond)
	select {
	case res := <-done:
		t.Fatalf("New returned before the store came up: %v", res.err)
	default:
	}

	require.NoError(t, mr.Restart())

	select {
	case res := <-done:
		require.NoError(t, res.err)
		t.Cleanup(res.app.Cleanup)
		assert.Equal(t, "late-redis", res.app.Keeper.Snapshot().Salt)
	case <-time.After(5 * time.Second):
		t.Fatal("New did not finish after the store came up")
	}
}

func TestRedisSaltGivesUp(t *testing.T) {
	previous := saltRetry
	saltRetry = retry.Config{MaxAttempts: 2, InitialDelay: time.Millisecond}
	t.Cleanup(func() { saltRetry = previous })

	cfg := testConfig("redis:salt")
	cfg.RedisAddress = "127.0.0.1:1"
	require.NoError(t, cfg.Validate())

	_, err := New(cfg)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeConnection))
}

func writeSelfSignedCert(t *testing.T) (string, string) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "localhost"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		IPAddresses:  []net.IP{net.ParseIP("127.0.0.1")},
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)
	keyDER, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)

	dir := t.TempDir()
	certPath := filepath.Join(dir, "cert.pem")
	keyPath := filepath.Join(dir, "key.pem")
	require.NoError(t, os.WriteFile(certPath, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0o600))
	require.NoError(t, os.WriteFile(keyPath, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}), 0o600))
	return certPath, keyPath
}

func TestRunServer_TLS(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := fmt.Sprint(ln.Addr().(*net.TCPAddr).Port)
	require.NoError(t, ln.Close())

	cfg := testConfig("static:s3cret")
	cfg.Port = port
	cfg.TLSCertFile, cfg.TLSKeyFile = writeSelfSignedCert(t)
	app := newTestApp(t, cfg)

	srv := app.RunServer()
	require.NoError(t, srv.Start())
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}()

	client := &http.Client{
		Timeout:   5 * time.Second,
		Transport: &http.Transport{TLSClientConfig: &tls.Config{InsecureSkipVerify: true}},
	}
	resp, err := client.Get("https://127.0.0.1:" + port + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotNil(t, resp.TLS)
}
