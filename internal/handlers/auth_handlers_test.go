package handlers_test

import (
	"net/http"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proshop-dev/proshop-backend/internal/models"
	"github.com/proshop-dev/proshop-backend/internal/token"
)

func TestRegister(t *testing.T) {
	env := newTestEnv(t)

	payload := map[string]string{
		"name":     "Test User",
		"email":    "test@shop.test",
		"password": "password",
	}

	rec := env.do(http.MethodPost, "/api/users", payload, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "Test User", body["name"])
	assert.Equal(t, "test@shop.test", body["email"])
	assert.Equal(t, "user", body["role"])
	require.NotEmpty(t, body["token"])

	// Token verifies back to the created user id.
	userID, err := token.Parse(body["token"].(string), testSecret)
	require.NoError(t, err)
	assert.Equal(t, float64(userID), body["id"])

	events := env.Pub.byType("user_registered")
	require.Len(t, events, 1)

	// Password is stored hashed.
	var stored models.User
	require.NoError(t, env.DB.Where("email = ?", "test@shop.test").First(&stored).Error)
	assert.NotEqual(t, "password", stored.PasswordHash)
}

func TestRegister_DuplicateEmailConflict(t *testing.T) {
	env := newTestEnv(t)

	payload := map[string]string{
		"name":     "Test User",
		"email":    "dup@shop.test",
		"password": "password",
	}

	rec := env.do(http.MethodPost, "/api/users", payload, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(http.MethodPost, "/api/users", payload, "")
	require.Equal(t, http.StatusConflict, rec.Code)

	var count int64
	require.NoError(t, env.DB.Model(&models.User{}).Where("email = ?", "dup@shop.test").Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

// Two registrations for the same email racing each other: exactly one row
// lands and the loser gets a conflict, whether it trips over the lookup or
// over the unique index.
func TestRegister_ConcurrentDuplicate(t *testing.T) {
	env := newTestEnv(t)

	payload := map[string]string{
		"name":     "Test User",
		"email":    "race@shop.test",
		"password": "password",
	}

	var wg sync.WaitGroup
	codes := make([]int, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			codes[i] = env.do(http.MethodPost, "/api/users", payload, "").Code
		}(i)
	}
	wg.Wait()

	sort.Ints(codes)
	assert.Equal(t, []int{http.StatusCreated, http.StatusConflict}, codes)

	var count int64
	require.NoError(t, env.DB.Model(&models.User{}).Where("email = ?", "race@shop.test").Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	user, _ := env.createUser("Login User", "login@shop.test", "password", models.RoleUser)

	rec := env.do(http.MethodPost, "/api/users/login", map[string]string{
		"email":    "login@shop.test",
		"password": "password",
	}, "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	require.NotEmpty(t, body["token"])

	userID, err := token.Parse(body["token"].(string), testSecret)
	require.NoError(t, err)
	assert.Equal(t, user.ID, userID)
}

func TestLogin_BadCredentials(t *testing.T) {
	env := newTestEnv(t)
	env.createUser("Login User", "login@shop.test", "password", models.RoleUser)

	tests := []struct {
		name    string
		payload map[string]string
	}{
		{name: "wrong password", payload: map[string]string{"email": "login@shop.test", "password": "nope"}},
		{name: "unknown email", payload: map[string]string{"email": "ghost@shop.test", "password": "password"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(http.MethodPost, "/api/users/login", tt.payload, "")
			require.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestProfile(t *testing.T) {
	env := newTestEnv(t)
	user, bearer := env.createUser("Profile User", "profile@shop.test", "password", models.RoleUser)

	rec := env.do(http.MethodGet, "/api/users/profile", nil, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(http.MethodGet, "/api/users/profile", nil, bearer)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(user.ID), body["id"])
	assert.Equal(t, "profile@shop.test", body["email"])

	rec = env.do(http.MethodPut, "/api/users/profile", map[string]string{
		"name":     "Renamed",
		"password": "newpassword",
	}, bearer)
	require.Equal(t, http.StatusOK, rec.Code)
	body = decodeBody(t, rec)
	assert.Equal(t, "Renamed", body["name"])
	require.NotEmpty(t, body["token"])

	// Old password no longer works, the new one does.
	rec = env.do(http.MethodPost, "/api/users/login", map[string]string{
		"email": "profile@shop.test", "password": "password",
	}, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(http.MethodPost, "/api/users/login", map[string]string{
		"email": "profile@shop.test", "password": "newpassword",
	}, "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestUpdateProfile_EmailTaken(t *testing.T) {
	env := newTestEnv(t)
	env.createUser("First", "first@shop.test", "password", models.RoleUser)
	_, bearer := env.createUser("Second", "second@shop.test", "password", models.RoleUser)

	rec := env.do(http.MethodPut, "/api/users/profile", map[string]string{
		"email": "first@shop.test",
	}, bearer)
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestAdminUserManagement(t *testing.T) {
	env := newTestEnv(t)
	_, userBearer := env.createUser("Plain User", "plain@shop.test", "password", models.RoleUser)
	_, adminBearer := env.createUser("Admin", "admin@shop.test", "password", models.RoleAdmin)
	target, _ := env.createUser("Target", "target@shop.test", "password", models.RoleUser)

	rec := env.do(http.MethodGet, "/api/users", nil, userBearer)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(http.MethodGet, "/api/users", nil, adminBearer)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(http.MethodPut, "/api/users/"+itoa(target.ID), map[string]any{
		"is_admin": true,
	}, adminBearer)
	require.Equal(t, http.StatusOK, rec.Code)

	var updated models.User
	require.NoError(t, env.DB.First(&updated, target.ID).Error)
	assert.True(t, updated.Role.IsAdmin())

	rec = env.do(http.MethodPut, "/api/users/"+itoa(target.ID), map[string]any{
		"email": "admin@shop.test",
	}, adminBearer)
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(http.MethodDelete, "/api/users/"+itoa(target.ID), nil, adminBearer)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(http.MethodGet, "/api/users/"+itoa(target.ID), nil, adminBearer)
	require.Equal(t, http.StatusNotFound, rec.Code)
}
