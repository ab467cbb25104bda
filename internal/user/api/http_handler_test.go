package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/ridloal/inventory-pos/internal/platform/middleware"
	"github.com/ridloal/inventory-pos/internal/user/domain"
	"github.com/ridloal/inventory-pos/internal/user/service"
	"github.com/ridloal/inventory-pos/internal/user/service/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func setupRouter(svc *mocks.MockUserService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	fakeAuth := func(c *gin.Context) {
		c.Set(middleware.UserIDKey, "u-1")
		c.Next()
	}
	NewUserHandler(svc).RegisterRoutes(router.Group("/api/v1"), fakeAuth)
	return router
}

func postJSON(router *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestUserHandler_Register(t *testing.T) {
	t.Run("Created", func(t *testing.T) {
		svc := new(mocks.MockUserService)
		svc.On("Register", mock.Anything, domain.RegisterRequest{Username: "cashier1", Email: "c@example.com", Password: "secret1"}).
			Return(&domain.User{ID: "u-1", Username: "cashier1", Role: "viewer"}, nil).Once()

		w := postJSON(setupRouter(svc), "/api/v1/users/register", `{"username":"cashier1","email":"c@example.com","password":"secret1"}`)
		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Contains(t, w.Body.String(), `"role":"viewer"`)
		assert.NotContains(t, w.Body.String(), "password")
	})

	t.Run("Username must be alphanumeric", func(t *testing.T) {
		svc := new(mocks.MockUserService)
		w := postJSON(setupRouter(svc), "/api/v1/users/register", `{"username":"bad name","email":"c@example.com","password":"secret1"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		svc.AssertNotCalled(t, "Register", mock.Anything, mock.Anything)
	})

	t.Run("Duplicate", func(t *testing.T) {
		svc := new(mocks.MockUserService)
		svc.On("Register", mock.Anything, mock.Anything).Return(nil, service.ErrUserAlreadyExists).Once()

		w := postJSON(setupRouter(svc), "/api/v1/users/register", `{"username":"cashier1","email":"c@example.com","password":"secret1"}`)
		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestUserHandler_Login(t *testing.T) {
	t.Run("Bad credentials", func(t *testing.T) {
		svc := new(mocks.MockUserService)
		svc.On("Login", mock.Anything, domain.LoginRequest{Username: "admin", Password: "nope"}).Return(nil, service.ErrInvalidCredentials).Once()

		w := postJSON(setupRouter(svc), "/api/v1/users/login", `{"username":"admin","password":"nope"}`)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Token returned", func(t *testing.T) {
		svc := new(mocks.MockUserService)
		svc.On("Login", mock.Anything, mock.Anything).Return(&domain.LoginResponse{Token: "jwt"}, nil).Once()

		w := postJSON(setupRouter(svc), "/api/v1/users/login", `{"username":"admin","password":"secret1"}`)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"token":"jwt"`)
	})
}

func TestUserHandler_Me(t *testing.T) {
	svc := new(mocks.MockUserService)
	svc.On("Profile", mock.Anything, "u-1").Return(&domain.User{ID: "u-1", Username: "cashier1"}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	w := httptest.NewRecorder()
	setupRouter(svc).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}
