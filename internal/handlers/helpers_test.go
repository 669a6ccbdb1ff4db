package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/proshop-dev/proshop-backend/internal/config"
	"github.com/proshop-dev/proshop-backend/internal/handlers"
	"github.com/proshop-dev/proshop-backend/internal/hash"
	authmw "github.com/proshop-dev/proshop-backend/internal/middleware/auth"
	"github.com/proshop-dev/proshop-backend/internal/models"
	"github.com/proshop-dev/proshop-backend/internal/token"
	httpserver "github.com/proshop-dev/proshop-backend/internal/transport/http"
)

var testSecret = []byte("test-jwt-secret")

type recordedEvent struct {
	Topic string
	Key   string
	Event map[string]any
}

type fakePublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (p *fakePublisher) PublishEvent(_ context.Context, topic, key string, event map[string]any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{Topic: topic, Key: key, Event: event})
	return nil
}

func (p *fakePublisher) byType(eventType string) []recordedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []recordedEvent
	for _, e := range p.events {
		if e.Event["type"] == eventType {
			out = append(out, e)
		}
	}
	return out
}

type sentMail struct {
	To      string
	Subject string
	Body    string
}

type fakeMailer struct {
	mu       sync.Mutex
	sent     []sentMail
	failWith error
}

func (m *fakeMailer) Send(to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	m.sent = append(m.sent, sentMail{To: to, Subject: subject, Body: body})
	return nil
}

type testEnv struct {
	T      *testing.T
	E      *echo.Echo
	DB     *gorm.DB
	Pub    *fakePublisher
	Mailer *fakeMailer
}

func initTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err, "failed to connect to in-memory db")

	// One connection so the whole test shares the one in-memory database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, config.Migrate(db), "failed to migrate tables")
	return db
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := initTestDB(t)
	pub := &fakePublisher{}
	mailer := &fakeMailer{}

	e := echo.New()
	httpserver.Register(e, &httpserver.Deps{
		Auth:     &authmw.Middleware{DB: db, JWTSecret: testSecret},
		AuthH:    &handlers.AuthHandler{DB: db, JWTSecret: testSecret, TokenTTL: time.Hour, Producer: pub},
		UserH:    &handlers.UserHandler{DB: db},
		ResetH:   &handlers.ResetHandler{DB: db, Mailer: mailer, ResetURL: "https://shop.test/resetpassword"},
		ProductH: &handlers.ProductHandler{DB: db, Producer: pub},
		ReviewH:  &handlers.ReviewHandler{DB: db, Producer: pub},
		OrderH:   &handlers.OrderHandler{DB: db, Producer: pub},
	})

	return &testEnv{T: t, E: e, DB: db, Pub: pub, Mailer: mailer}
}

func (env *testEnv) do(method, path string, body any, bearer string) *httptest.ResponseRecorder {
	env.T.Helper()

	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(env.T, err)
		rd = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if bearer != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+bearer)
	}

	rec := httptest.NewRecorder()
	env.E.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

// createUser seeds a user directly and returns it with a valid token.
func (env *testEnv) createUser(name, email, password string, role models.Role) (*models.User, string) {
	env.T.Helper()

	pwHash, err := hash.HashPassword(password)
	require.NoError(env.T, err)

	user := models.User{Name: name, Email: email, PasswordHash: pwHash, Role: role}
	require.NoError(env.T, env.DB.Create(&user).Error)

	signed, err := token.Sign(user.ID, time.Hour, testSecret)
	require.NoError(env.T, err)
	return &user, signed
}

func (env *testEnv) createProduct(name string, price float64, rating float64) *models.Product {
	env.T.Helper()

	owner := models.User{Name: "owner-" + name, Email: name + "@shop.test", PasswordHash: "x", Role: models.RoleAdmin}
	require.NoError(env.T, env.DB.Create(&owner).Error)

	p := models.Product{
		UserID:       owner.ID,
		Name:         name,
		Brand:        "brand",
		Category:     "category",
		Price:        price,
		Rating:       rating,
		CountInStock: 10,
	}
	require.NoError(env.T, env.DB.Create(&p).Error)
	return &p
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}