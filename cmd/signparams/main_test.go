package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func clearEnv(t *testing.T) {
	for _, name := range []string{
		"SIGNED_PARAMS_SALT_SOURCE", "SIGNED_PARAMS_ALGORITHM", "SIGNED_PARAMS_LEGACY",
		"SALT_REFRESH_SCHEDULE", "REDIS_ADDRESS", "REDIS_KEY_PREFIX", "TLS_CERT_FILE", "TLS_KEY_FILE", "CONFIG_ENCRYPTION_KEY", "PORT", "LOG_LEVEL",
	} {
		t.Setenv(name, "")
	}
}

func TestRun_Usage(t *testing.T) {
	code, _, stderr := runCLI(t)
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "usage: signparams")

	code, _, stderr = runCLI(t, "frobnicate")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, `unknown command "frobnicate"`)

	code, stdout, _ := runCLI(t, "help")
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "encrypt-salt")
	assert.Contains(t, stdout, "algorithms: hmac-sha1, hmac-sha256, hmac-sha512")
}

func TestSign(t *testing.T) {
	clearEnv(t)

	t.Run("reference vector", func(t *testing.T) {
		code, stdout, stderr := runCLI(t, "sign", "-salt", "static:_zis_is_mai_sikret", "foo=1", "bar=2", "baz=1", "baz=2", "baz=3")
		require.Equal(t, 0, code, stderr)

		lines := strings.Split(strings.TrimSpace(stdout), "\n")
		require.Len(t, lines, 2)
		assert.Equal(t, "71855012bf2bd89ad358f58c7369e27a0f37fba8128d0c7b654e7950cb3c1918", lines[0])
		assert.Contains(t, lines[1], "sig="+lines[0])
	})

	t.Run("legacy reference vector", func(t *testing.T) {
		code, stdout, stderr := runCLI(t, "sign", "-legacy", "-salt", "static:foo bastard", "foo=baz")
		require.Equal(t, 0, code, stderr)
		assert.True(t, strings.HasPrefix(stdout, "1eb451a548196f527ff549b6836cc5a51d4a4250\n"))
	})

	t.Run("environment salt", func(t *testing.T) {
		t.Setenv("SIGNED_PARAMS_SALT", "_zis_is_mai_sikret")
		code, stdout, _ := runCLI(t, "sign", "foo=1", "bar=2", "baz[]=1", "baz[]=2", "baz[]=3")
		require.Equal(t, 0, code)
		assert.True(t, strings.HasPrefix(stdout, "71855012bf2bd89ad358f58c7369e27a0f37fba8128d0c7b654e7950cb3c1918\n"))
	})

	t.Run("missing salt", func(t *testing.T) {
		t.Setenv("SIGNED_PARAMS_SALT", "")
		code, _, stderr := runCLI(t, "sign", "foo=1")
		assert.Equal(t, 1, code)
		assert.Contains(t, stderr, "error:")
	})

	t.Run("bad pair", func(t *testing.T) {
		code, _, stderr := runCLI(t, "sign", "-salt", "static:x", "novalue")
		assert.Equal(t, 1, code)
		assert.Contains(t, stderr, "is not key=value")
	})
}

func TestVerify(t *testing.T) {
	clearEnv(t)

	_, stdout, _ := runCLI(t, "sign", "-salt", "static:s3cret", "user=12", "send_mail=yes")
	query := strings.Split(strings.TrimSpace(stdout), "\n")[1]

	code, out, stderr := runCLI(t, "verify", "-salt", "static:s3cret", query)
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, "ok\n", out)

	code, _, stderr = runCLI(t, "verify", "-salt", "static:s3cret", strings.Replace(query, "user=12", "user=13", 1))
	assert.Equal(t, 3, code)
	assert.Contains(t, stderr, "tampered: checksum_mismatch")

	code, _, stderr = runCLI(t, "verify", "-salt", "static:s3cret", "user=12")
	assert.Equal(t, 3, code)
	assert.Contains(t, stderr, "tampered: no_signature")

	code, _, _ = runCLI(t, "verify", "-salt", "static:s3cret")
	assert.Equal(t, 2, code)
}

func TestLink(t *testing.T) {
	clearEnv(t)

	code, stdout, stderr := runCLI(t, "link", "-salt", "static:s3cret", "confirm", "id=4", "send_mail=yes")
	require.Equal(t, 0, code, stderr)
	assert.True(t, strings.HasPrefix(stdout, "/confirm/4?"), stdout)
	assert.Contains(t, stdout, "sig=")

	code, _, stderr = runCLI(t, "link", "-salt", "static:s3cret", "nowhere")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "not_found")
}

func TestEncryptSalt(t *testing.T) {
	clearEnv(t)

	code, stdout, stderr := runCLI(t, "encrypt-salt", "-key", "passphrase", "new salt")
	require.Equal(t, 0, code, stderr)
	source := strings.TrimSpace(stdout)
	assert.True(t, strings.HasPrefix(source, "enc:"))

	t.Setenv("CONFIG_ENCRYPTION_KEY", "passphrase")
	code, stdout, stderr = runCLI(t, "sign", "-salt", source, "a=1")
	require.Equal(t, 0, code, stderr)

	_, expected, _ := runCLI(t, "sign", "-salt", "static:new salt", "a=1")
	assert.Equal(t, expected, stdout)

	code, _, _ = runCLI(t, "encrypt-salt", "-key", "", "x")
	assert.Equal(t, 1, code)
}

func TestChecksum(t *testing.T) {
	clearEnv(t)

	code, stdout, stderr := runCLI(t, "checksum", "-salt", "static:_zis_is_mai_sikret", "foo=1", "bar=2", "baz=1", "baz=2", "baz=3")
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, "71855012bf2bd89ad358f58c7369e27a0f37fba8128d0c7b654e7950cb3c1918\n", stdout)
}

func TestConfigFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	legacy := filepath.Join(dir, "legacy.json")
	require.NoError(t, os.WriteFile(legacy, []byte(`{"salt": "foo bastard", "legacy": true}`), 0o600))

	code, stdout, stderr := runCLI(t, "checksum", "-config", legacy, "foo=baz")
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, "1eb451a548196f527ff549b6836cc5a51d4a4250\n", stdout)

	t.Run("missing salt", func(t *testing.T) {
		empty := filepath.Join(dir, "empty.json")
		require.NoError(t, os.WriteFile(empty, []byte(`{"algorithm": "hmac-sha512"}`), 0o600))

		code, _, stderr := runCLI(t, "sign", "-config", empty, "foo=1")
		assert.Equal(t, 1, code)
		assert.Contains(t, stderr, "hint: pass -salt or -config")
	})

	t.Run("malformed", func(t *testing.T) {
		broken := filepath.Join(dir, "broken.json")
		require.NoError(t, os.WriteFile(broken, []byte(`{"salt":`), 0o600))

		code, _, stderr := runCLI(t, "sign", "-config", broken, "foo=1")
		assert.Equal(t, 1, code)
		assert.Contains(t, stderr, "invalid signature configuration")
		assert.NotContains(t, stderr, "hint:")
	})
}

func TestStoreSalt(t *testing.T) {
	clearEnv(t)

	code, _, stderr := runCLI(t, "store-salt", "salt", "x")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "REDIS_ADDRESS is required")

	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	t.Setenv("REDIS_ADDRESS", mr.Addr())

	code, stdout, stderr := runCLI(t, "store-salt", "salt", "rotated salt")
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, "redis:salt\n", stdout)

	stored, err := mr.Get("signed-params:salt")
	require.NoError(t, err)
	assert.Equal(t, "rotated salt", stored)

	code, fromRedis, stderr := runCLI(t, "checksum", "-salt", "redis:salt", "a=1")
	require.Equal(t, 0, code, stderr)
	_, fromStatic, _ := runCLI(t, "checksum", "-salt", "static:rotated salt", "a=1")
	assert.Equal(t, fromStatic, fromRedis)

	code, _, _ = runCLI(t, "store-salt", "salt")
	assert.Equal(t, 2, code)
}
