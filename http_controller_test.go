package auth_test

import (
	"encoding/json"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-token-auth"
)

func login(t *testing.T, h *routeHarness, email, password string) auth.LoginResponse {
	t.Helper()
	resp := h.do(t, "POST", "/api/auth/login", "", `{"email":"`+email+`","password":"`+password+`"}`)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	env := decodeEnvelope(t, resp)
	require.True(t, env.Success)

	var out auth.LoginResponse
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

func TestAuthController_LoginLogoutScenario(t *testing.T) {
	h := newRouteHarness(t, nil)
	h.seed(t, "alice@example.com", "Sup3rSecret")

	session := login(t, h, "alice@example.com", "Sup3rSecret")
	assert.NotEmpty(t, session.AccessToken)
	assert.Equal(t, "Bearer", session.TokenType)
	assert.Equal(t, int64(900), session.ExpiresIn)
	assert.Equal(t, "alice@example.com", session.User.Email)

	resp := h.do(t, "GET", "/api/whoami", session.AccessToken, "")
	assert.Equal(t, "alice@example.com", h.text(t, resp))

	resp = h.do(t, "POST", "/api/auth/logout", session.AccessToken, "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	env := decodeEnvelope(t, resp)
	assert.True(t, env.Success)
	assert.Nil(t, env.Error)

	assert.False(t, h.tokens.IsExpired(session.AccessToken))

	resp = h.do(t, "GET", "/api/whoami", session.AccessToken, "")
	assert.Equal(t, "anonymous", h.text(t, resp))

	resp = h.do(t, "GET", "/api/auth/me", session.AccessToken, "")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	// logging out twice is a no-op for the store
	resp = h.do(t, "POST", "/api/auth/logout", session.AccessToken, "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, h.revocations.Len())
}

func TestAuthController_LogoutErrors(t *testing.T) {
	h := newRouteHarness(t, nil)

	resp := h.do(t, "POST", "/api/auth/logout", "", "")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, auth.TextCodeTokenRequired, decodeEnvelope(t, resp).Error.Code)

	resp = h.do(t, "POST", "/api/auth/logout", "garbage", "")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, auth.TextCodeInvalidToken, decodeEnvelope(t, resp).Error.Code)

	assert.Equal(t, 0, h.revocations.Len())
}

func TestAuthController_LoginFailuresAreIndistinguishable(t *testing.T) {
	h := newRouteHarness(t, nil)
	h.seed(t, "alice@example.com", "Sup3rSecret")

	wrong := h.do(t, "POST", "/api/auth/login", "", `{"email":"alice@example.com","password":"Wr0ngSecret"}`)
	unknown := h.do(t, "POST", "/api/auth/login", "", `{"email":"nobody@example.com","password":"Wr0ngSecret"}`)

	assert.Equal(t, fiber.StatusUnauthorized, wrong.StatusCode)
	assert.Equal(t, wrong.StatusCode, unknown.StatusCode)

	a := decodeEnvelope(t, wrong)
	b := decodeEnvelope(t, unknown)
	assert.Equal(t, auth.TextCodeInvalidCredentials, a.Error.Code)
	assert.Equal(t, a.Error, b.Error)
}

func TestAuthController_Signup(t *testing.T) {
	h := newRouteHarness(t, nil)

	resp := h.do(t, "POST", "/api/auth/signup", "", `{"email":"Bob@Example.com","password":"Sup3rSecret","name":"Bob","phone":"(201) 555-0123"}`)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	env := decodeEnvelope(t, resp)
	var acc auth.AccountResponse
	require.NoError(t, json.Unmarshal(env.Data, &acc))
	assert.Equal(t, "bob@example.com", acc.Email)
	assert.Equal(t, "+12015550123", acc.Phone)
	assert.NotEmpty(t, acc.ID)
	assert.NotContains(t, string(env.Data), "Sup3rSecret")

	resp = h.do(t, "POST", "/api/auth/signup", "", `{"email":"bob@example.com","password":"An0therOne","name":"Bobby"}`)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	assert.Equal(t, auth.TextCodeDuplicateAccount, decodeEnvelope(t, resp).Error.Code)
	assert.Equal(t, 1, h.directory.Len())

	session := login(t, h, "bob@example.com", "Sup3rSecret")
	assert.Equal(t, "Bob", session.User.Name)
}

func TestAuthController_SignupValidation(t *testing.T) {
	h := newRouteHarness(t, nil)

	tests := []struct {
		name  string
		body  string
		field string
	}{
		{name: "bad email", body: `{"email":"not-an-email","password":"Sup3rSecret","name":"Bob"}`, field: "email"},
		{name: "short password", body: `{"email":"bob@example.com","password":"S3cret","name":"Bob"}`, field: "password"},
		{name: "password without digits", body: `{"email":"bob@example.com","password":"SuperSecret","name":"Bob"}`, field: "password"},
		{name: "missing name", body: `{"email":"bob@example.com","password":"Sup3rSecret"}`, field: "name"},
		{name: "bad phone", body: `{"email":"bob@example.com","password":"Sup3rSecret","name":"Bob","phone":"nope"}`, field: "phone"},
		{name: "bad json", body: `{"email":`, field: "body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := h.do(t, "POST", "/api/auth/signup", "", tt.body)
			assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

			env := decodeEnvelope(t, resp)
			require.NotNil(t, env.Error)
			assert.Equal(t, auth.TextCodeInvalidInput, env.Error.Code)

			details, ok := env.Error.Details.(map[string]any)
			require.True(t, ok)
			assert.Contains(t, details, tt.field)
		})
	}

	assert.Equal(t, 0, h.directory.Len())
}

func TestAuthController_CheckEmail(t *testing.T) {
	h := newRouteHarness(t, nil)
	h.seed(t, "alice@example.com", "Sup3rSecret")

	check := func(email string) auth.CheckEmailResponse {
		resp := h.do(t, "GET", "/api/auth/check-email?email="+email, "", "")
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		var out auth.CheckEmailResponse
		require.NoError(t, json.Unmarshal(decodeEnvelope(t, resp).Data, &out))
		return out
	}

	assert.False(t, check("alice@example.com").Available)
	assert.True(t, check("bob@example.com").Available)

	resp := h.do(t, "GET", "/api/auth/check-email", "", "")
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestAuthController_Me(t *testing.T) {
	h := newRouteHarness(t, nil)
	h.seed(t, "alice@example.com", "Sup3rSecret")
	session := login(t, h, "alice@example.com", "Sup3rSecret")

	resp := h.do(t, "GET", "/api/auth/me", "", "")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, auth.TextCodeAuthenticationRequired, decodeEnvelope(t, resp).Error.Code)

	resp = h.do(t, "GET", "/api/auth/me", session.AccessToken, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var me auth.AccountResponse
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, resp).Data, &me))
	assert.Equal(t, "alice@example.com", me.Email)

	resp = h.do(t, "PUT", "/api/auth/me", session.AccessToken, `{"name":"Alice B","phone":"+44 121 234 5678"}`)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, resp).Data, &me))
	assert.Equal(t, "Alice B", me.Name)
	assert.Equal(t, "+441212345678", me.Phone)

	resp = h.do(t, "PUT", "/api/auth/me", session.AccessToken, `{"name":""}`)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestAuthController_ChangePassword(t *testing.T) {
	h := newRouteHarness(t, nil)
	h.seed(t, "alice@example.com", "Sup3rSecret")
	session := login(t, h, "alice@example.com", "Sup3rSecret")

	resp := h.do(t, "PUT", "/api/auth/change-password", session.AccessToken,
		`{"currentPassword":"Sup3rSecret","newPassword":"N3wSecret1","confirmPassword":"Mismatch1"}`)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp = h.do(t, "PUT", "/api/auth/change-password", session.AccessToken,
		`{"currentPassword":"Wr0ngSecret","newPassword":"N3wSecret1","confirmPassword":"N3wSecret1"}`)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp = h.do(t, "PUT", "/api/auth/change-password", session.AccessToken,
		`{"currentPassword":"Sup3rSecret","newPassword":"N3wSecret1","confirmPassword":"N3wSecret1"}`)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	login(t, h, "alice@example.com", "N3wSecret1")

	resp = h.do(t, "POST", "/api/auth/login", "", `{"email":"alice@example.com","password":"Sup3rSecret"}`)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
